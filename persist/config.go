// Package persist writes persistent identifiers back out, either as a config
// script that re-creates them when executed or as snapshots in SQLite.
package persist

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/chazu/cubescript/vm"
)

// Entry is one persistent identifier and its value in config-script form.
type Entry struct {
	Name  string
	Kind  vm.Kind
	Value string
}

// Collect returns the persistent variables followed by the persistent
// aliases, each group sorted by name. Overridden, unset and read-only
// identifiers are skipped.
func Collect(in *vm.Interp) []Entry {
	var vars, aliases []Entry
	for _, id := range in.Idents() {
		if id.Flags&vm.FlagPersist == 0 || id.Flags&(vm.FlagOverridden|vm.FlagReadOnly|vm.FlagArg|vm.FlagUnknown) != 0 {
			continue
		}
		if strings.HasPrefix(id.Name, "//") {
			continue
		}
		switch {
		case id.Kind.IsVar():
			vars = append(vars, Entry{Name: id.Name, Kind: id.Kind, Value: id.String()})
		case id.Kind == vm.KindAlias:
			if id.Value().IsNull() {
				continue
			}
			aliases = append(aliases, Entry{Name: id.Name, Kind: id.Kind, Value: id.String()})
		}
	}
	byName := func(es []Entry) {
		sort.Slice(es, func(i, j int) bool { return es[i].Name < es[j].Name })
	}
	byName(vars)
	byName(aliases)
	return append(vars, aliases...)
}

const configHeader = "// written automatically on exit; put overrides in autoexec.cfg\n"

// WriteConfig writes every persistent identifier as a statement that
// restores it: "name value" for variables and "name = [body]" for aliases.
func WriteConfig(w io.Writer, in *vm.Interp) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(configHeader)
	inAliases := false
	for _, e := range Collect(in) {
		if e.Kind == vm.KindAlias && !inAliases {
			bw.WriteString("\n")
			inAliases = true
		}
		bw.WriteString(e.Statement())
		bw.WriteString("\n")
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Statement formats e as one line of config script.
func (e Entry) Statement() string {
	switch e.Kind {
	case vm.KindStringVar:
		return e.Name + " " + vm.EscapeString(e.Value)
	case vm.KindAlias:
		if validBlock(e.Value) {
			return e.Name + " = [" + e.Value + "]"
		}
		return e.Name + " = " + vm.EscapeString(e.Value)
	}
	return e.Name + " " + e.Value
}

// validBlock reports whether s reads back unchanged inside [brackets]:
// brackets balance, strings close, and nothing is substituted or dropped.
func validBlock(s string) bool {
	var stack []byte
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '[', '(':
			stack = append(stack, c)
		case ']', ')':
			open := byte('[')
			if c == ')' {
				open = '('
			}
			if len(stack) == 0 || stack[len(stack)-1] != open {
				return false
			}
			stack = stack[:len(stack)-1]
		case '"':
			i++
			for i < len(s) && s[i] != '"' {
				if s[i] == '\n' || s[i] == '\r' {
					return false
				}
				if s[i] == '^' {
					i++
				}
				i++
			}
			if i >= len(s) {
				return false
			}
		case '/':
			if i+1 < len(s) && s[i+1] == '/' {
				return false
			}
		case '@', '\f':
			return false
		}
	}
	return len(stack) == 0
}
