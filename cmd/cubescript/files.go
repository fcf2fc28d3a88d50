package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/cubescript/pkg/bytecode"
	"github.com/chazu/cubescript/vm"
)

// CompiledExt marks files holding a CBOR-encoded compiled block.
const CompiledExt = ".csb"

// runFile executes a source script or a compiled block, chosen by extension.
func runFile(in *vm.Interp, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if !strings.HasSuffix(abs, CompiledExt) {
		if err := in.ExecFile(abs); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		return nil
	}

	b, src, err := loadCompiled(abs)
	if err != nil {
		return err
	}
	if !in.BindIdents(b.Idents) {
		log.Infof("%s was compiled against different identifiers, recompiling", path)
		b = in.Compile(src, b.Name)
	}
	if _, err := in.ExecuteBlock(b); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func loadCompiled(path string) (*bytecode.Block, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	b, src, err := bytecode.UnmarshalBlock(data)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", path, err)
	}
	return b, src, nil
}

// compileFile compiles src and writes it, with its source and the
// identifier table it was compiled against, to out.
func compileFile(in *vm.Interp, src, out string) error {
	text, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	b := in.Compile(string(text), filepath.Base(src))
	b.Idents = in.IdentNames()
	data, err := bytecode.MarshalBlock(b, string(text))
	if err != nil {
		return fmt.Errorf("%s: %w", src, err)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}
	log.Infof("compiled %s to %s (%d bytes)", src, out, len(data))
	return nil
}

// disassembleFile prints the bytecode of a source script or compiled block.
func disassembleFile(in *vm.Interp, path string, w io.Writer) error {
	var b *bytecode.Block
	if strings.HasSuffix(path, CompiledExt) {
		var err error
		if b, _, err = loadCompiled(path); err != nil {
			return err
		}
	} else {
		text, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		b = in.Compile(string(text), filepath.Base(path))
	}
	_, err := io.WriteString(w, b.DisassembleWithNames(in))
	return err
}
