package vm

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Table: name and index lookup for identifiers
// ---------------------------------------------------------------------------

// Table maps names to identifiers and assigns each a dense index. The first
// MaxArgs indices are always the argument slots arg1..arg25, so an argument
// binding can be addressed by a bit in a uint32 mask.
type Table struct {
	byName  map[string]*Ident
	byIndex []*Ident
}

func newTable() Table {
	return Table{
		byName:  make(map[string]*Ident),
		byIndex: make([]*Ident, 0, 256),
	}
}

// Find returns the identifier registered under name, or nil.
func (t *Table) Find(name string) *Ident {
	return t.byName[name]
}

// At returns the identifier with the given index, or nil.
func (t *Table) At(index int) *Ident {
	if index < 0 || index >= len(t.byIndex) {
		return nil
	}
	return t.byIndex[index]
}

// Len returns the number of registered identifiers.
func (t *Table) Len() int {
	return len(t.byIndex)
}

// IdentName returns the name for an index, or "" if invalid. It lets a
// Table label disassembly listings.
func (t *Table) IdentName(index int) string {
	if id := t.At(index); id != nil {
		return id.Name
	}
	return ""
}

// Idents returns all identifiers in index order.
func (t *Table) Idents() []*Ident {
	out := make([]*Ident, len(t.byIndex))
	copy(out, t.byIndex)
	return out
}

// add inserts id and assigns its index. Registering a name again with the
// same kind updates the existing entry in place and keeps its index.
func (t *Table) add(id *Ident) (*Ident, error) {
	if old, ok := t.byName[id.Name]; ok {
		if old.Kind != id.Kind {
			return nil, fmt.Errorf("%q is a %s, cannot register it as a %s: %w",
				id.Name, old.Kind, id.Kind, ErrIdentConflict)
		}
		id.Index = old.Index
		*old = *id
		return old, nil
	}
	id.Index = len(t.byIndex)
	t.byName[id.Name] = id
	t.byIndex = append(t.byIndex, id)
	return id, nil
}

// ---------------------------------------------------------------------------
// Registration
// ---------------------------------------------------------------------------

// IntVarDef describes an integer variable. A nil Storage gets a private
// cell. Min greater than Max makes the variable read-only.
type IntVarDef struct {
	Name              string
	Min, Default, Max int32
	Storage           *int32
	OnChange          Watcher
	Flags             Flags
}

// FloatVarDef describes a float variable.
type FloatVarDef struct {
	Name              string
	Min, Default, Max float32
	Storage           *float32
	OnChange          Watcher
	Flags             Flags
}

// StringVarDef describes a string variable.
type StringVarDef struct {
	Name     string
	Default  string
	Storage  *string
	OnChange Watcher
	Flags    Flags
}

// CommandDef describes a native command. Args is the signature string, one
// letter per argument:
//
//	i  integer (default 0)        b  integer (default INT_MIN)
//	f  float (default 0)          F  float (default: previous argument)
//	s  string                     S  string, left as text when it is the last letter
//	t  any value                  T  any value, null when missing
//	e  code block                 E  condition (code or null)
//	r  identifier reference       $  the command's own identifier
//	N  number of arguments given  D  key state, always 1 (pressed)
//	C  all arguments joined into one string
//	V  all arguments passed as-is
//	1-4 repeat the preceding 1-4 letters while arguments remain
type CommandDef struct {
	Name  string
	Args  string
	Fn    CommandFunc
	Flags Flags
}

const varFlags = FlagPersist | FlagOverride | FlagHex | FlagReadOnly

// RegisterIntVar adds an integer variable and stores its default.
func (in *Interp) RegisterIntVar(def IntVarDef) (*Ident, error) {
	store := def.Storage
	if store == nil {
		store = new(int32)
	}
	*store = def.Default
	flags := def.Flags & varFlags
	if def.Min > def.Max {
		flags |= FlagReadOnly
	}
	return in.add(&Ident{
		Kind:     KindVar,
		Name:     def.Name,
		Flags:    flags,
		minInt:   def.Min,
		maxInt:   def.Max,
		intStore: store,
		watcher:  def.OnChange,
	})
}

// RegisterFloatVar adds a float variable and stores its default.
func (in *Interp) RegisterFloatVar(def FloatVarDef) (*Ident, error) {
	store := def.Storage
	if store == nil {
		store = new(float32)
	}
	*store = def.Default
	flags := def.Flags & varFlags
	if def.Min > def.Max {
		flags |= FlagReadOnly
	}
	return in.add(&Ident{
		Kind:       KindFloatVar,
		Name:       def.Name,
		Flags:      flags,
		minFloat:   def.Min,
		maxFloat:   def.Max,
		floatStore: store,
		watcher:    def.OnChange,
	})
}

// RegisterStringVar adds a string variable and stores its default.
func (in *Interp) RegisterStringVar(def StringVarDef) (*Ident, error) {
	store := def.Storage
	if store == nil {
		store = new(string)
	}
	*store = def.Default
	return in.add(&Ident{
		Kind:     KindStringVar,
		Name:     def.Name,
		Flags:    def.Flags & varFlags,
		strStore: store,
		watcher:  def.OnChange,
	})
}

// RegisterCommand adds a native command after checking its signature.
func (in *Interp) RegisterCommand(def CommandDef) (*Ident, error) {
	if def.Fn == nil {
		return nil, fmt.Errorf("command %q has no function: %w", def.Name, ErrBadSignature)
	}
	return in.registerBuiltin(KindCommand, def.Name, def.Args, def.Fn, def.Flags)
}

func (in *Interp) registerBuiltin(kind Kind, name, args string, fn CommandFunc, flags Flags) (*Ident, error) {
	n, err := checkSignature(args)
	if err != nil {
		return nil, fmt.Errorf("command %q: %w", name, err)
	}
	return in.add(&Ident{
		Kind:    kind,
		Name:    name,
		Flags:   flags &^ (FlagArg | FlagUnknown | FlagOverridden),
		Args:    args,
		NumArgs: n,
		fn:      fn,
	})
}

// MustRegister panics if err is non-nil. It is meant for registrations made
// during startup whose failure is a programming error.
func MustRegister(id *Ident, err error) *Ident {
	if err != nil {
		panic(err)
	}
	return id
}

// checkSignature validates a command signature and returns the number of
// fixed argument slots it declares.
func checkSignature(sig string) (int, error) {
	n := 0
	variadic := false
	for i := 0; i < len(sig); i++ {
		c := sig[i]
		switch c {
		case 'i', 'b', 'f', 'F', 't', 'T', 'E', 'N', 's', 'S', 'e', 'r', '$':
			n++
		case 'D':
			if i != len(sig)-1 {
				return 0, fmt.Errorf("D must be the last letter of %q: %w", sig, ErrBadSignature)
			}
			n++
		case '1', '2', '3', '4':
			rep := int(c - '0')
			if rep > i || !strings.ContainsAny(sig[i+1:], "CV") {
				return 0, fmt.Errorf("repeat %c in %q needs %d preceding letters and a trailing C or V: %w",
					c, sig, rep, ErrBadSignature)
			}
		case 'C', 'V':
			if i != len(sig)-1 {
				return 0, fmt.Errorf("%c must be the last letter of %q: %w", c, sig, ErrBadSignature)
			}
			variadic = true
		default:
			return 0, fmt.Errorf("unknown letter %q in %q: %w", c, sig, ErrBadSignature)
		}
	}
	if !variadic && n > MaxComArgs {
		return 0, fmt.Errorf("%q declares %d arguments, at most %d allowed: %w",
			sig, n, MaxComArgs, ErrBadSignature)
	}
	return n, nil
}

// newIdent returns the identifier named name, creating an unset alias with
// the given flags if none exists. Numbers cannot name identifiers and map to
// the shared dummy alias.
func (in *Interp) newIdent(name string, flags Flags) *Ident {
	if id := in.Find(name); id != nil {
		return id
	}
	if CheckNumber(name) {
		in.debugf("number %s is not a valid identifier name", name)
		return in.dummy
	}
	id, _ := in.add(&Ident{Kind: KindAlias, Name: name, Flags: flags})
	return id
}

// NewAlias returns the alias named name, creating it unset if needed.
func (in *Interp) NewAlias(name string) *Ident {
	return in.newIdent(name, FlagUnknown)
}

// IdentNames returns the name of every identifier in index order. It is the
// table a cached block records in bytecode.Block.Idents.
func (in *Interp) IdentNames() []string {
	names := make([]string, len(in.byIndex))
	for i, id := range in.byIndex {
		names[i] = id.Name
	}
	return names
}

// BindIdents makes index i of the table name names[i], creating unset
// aliases for names past the end of the table. It reports false if an
// existing index holds a different identifier, in which case a block
// compiled against names must not run here.
func (in *Interp) BindIdents(names []string) bool {
	for i, name := range names {
		if i < len(in.byIndex) {
			if in.byIndex[i].Name != name {
				return false
			}
			continue
		}
		if in.Find(name) != nil || CheckNumber(name) {
			return false
		}
		if id := in.NewAlias(name); id.Index != i {
			return false
		}
	}
	return true
}
