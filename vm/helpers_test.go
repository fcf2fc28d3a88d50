package vm

import (
	"fmt"
	"strings"
	"testing"

	"github.com/chazu/cubescript/pkg/bytecode"
)

// recordingConsole keeps everything a script prints.
type recordingConsole struct {
	warnings []string
	lines    []string
}

func (c *recordingConsole) Warnf(format string, args ...any) {
	c.warnings = append(c.warnings, fmt.Sprintf(format, args...))
}

func (c *recordingConsole) Echo(line string) {
	c.lines = append(c.lines, line)
}

func (c *recordingConsole) warned(substr string) bool {
	for _, w := range c.warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}

func newTestInterp(t *testing.T) (*Interp, *recordingConsole) {
	t.Helper()
	in := New()
	con := &recordingConsole{}
	in.Console = con
	return in, con
}

func mustExecute(t *testing.T, in *Interp, src string) Value {
	t.Helper()
	v, err := in.Execute(src)
	if err != nil {
		t.Fatalf("Execute(%q): %v", src, err)
	}
	return v
}

func mustGet(t *testing.T, in *Interp, name string) Value {
	t.Helper()
	v, err := in.GetValue(name)
	if err != nil {
		t.Fatalf("GetValue(%q): %v", name, err)
	}
	return v
}

// opsOf decodes a block into its instruction opcodes.
func opsOf(t *testing.T, b *bytecode.Block) []bytecode.Op {
	t.Helper()
	var ops []bytecode.Op
	for pc := 0; pc < b.Len(); {
		instr, err := bytecode.Decode(b.Words, pc)
		if err != nil {
			t.Fatalf("decode at %d: %v", pc, err)
		}
		ops = append(ops, instr.Op)
		pc += instr.Size
	}
	return ops
}

func hasOp(ops []bytecode.Op, op bytecode.Op) bool {
	for _, o := range ops {
		if o == op {
			return true
		}
	}
	return false
}
