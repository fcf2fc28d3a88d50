package vm

import (
	"fmt"

	"github.com/chazu/cubescript/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Identifier kinds and flags
// ---------------------------------------------------------------------------

// Kind discriminates identifiers.
type Kind uint8

const (
	KindVar       Kind = iota // integer variable backed by native storage
	KindFloatVar              // float variable backed by native storage
	KindStringVar             // string variable backed by native storage
	KindCommand               // native command
	KindAlias                 // script-defined binding

	// Pseudo-commands the compiler turns into control-flow bytecode.
	KindLocal
	KindDo
	KindDoArgs
	KindIf
	KindResult
	KindNot
	KindAnd
	KindOr
)

var kindNames = [...]string{
	KindVar:       "var",
	KindFloatVar:  "fvar",
	KindStringVar: "svar",
	KindCommand:   "command",
	KindAlias:     "alias",
	KindLocal:     "local",
	KindDo:        "do",
	KindDoArgs:    "doargs",
	KindIf:        "if",
	KindResult:    "result",
	KindNot:       "not",
	KindAnd:       "and",
	KindOr:        "or",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// IsVar reports whether k is one of the three native variable kinds.
func (k Kind) IsVar() bool {
	return k <= KindStringVar
}

// Flags is the identifier flag set.
type Flags uint16

const (
	FlagPersist    Flags = 1 << iota // written back to the config file
	FlagOverride                     // may be overridden by map/mod scripts
	FlagHex                          // printed in hex
	FlagReadOnly                     // rejects script writes
	FlagOverridden                   // currently holds an override value
	FlagUnknown                      // alias referenced but never defined
	FlagArg                          // one of the argument slots arg1..argN
)

// ---------------------------------------------------------------------------
// Change notification
// ---------------------------------------------------------------------------

// Watcher is notified synchronously after a variable is written.
type Watcher interface {
	Changed(in *Interp, id *Ident)
}

// WatchFunc adapts a function to the Watcher interface.
type WatchFunc func(in *Interp, id *Ident)

func (f WatchFunc) Changed(in *Interp, id *Ident) { f(in, id) }

// CommandFunc implements a native command. args has exactly one entry per
// signature letter, already coerced. Results are reported with
// Interp.IntRet, FloatRet, StrRet or Ret.
type CommandFunc func(in *Interp, args []Value)

// ---------------------------------------------------------------------------
// Ident
// ---------------------------------------------------------------------------

// Ident is one entry of the identifier table. Its index is assigned at
// registration and is stable for the interpreter's lifetime.
type Ident struct {
	Kind  Kind
	Index int
	Name  string
	Flags Flags

	// Variables
	minInt, maxInt     int32
	minFloat, maxFloat float32
	intStore           *int32
	floatStore         *float32
	strStore           *string
	saved              Value // value in effect before an override
	watcher            Watcher

	// Commands
	Args    string
	NumArgs int
	fn      CommandFunc

	// Aliases
	val   Value
	code  *bytecode.Block
	stack []Value
}

// IntRange returns the declared bounds of an integer variable.
func (id *Ident) IntRange() (min, max int32) {
	return id.minInt, id.maxInt
}

// FloatRange returns the declared bounds of a float variable.
func (id *Ident) FloatRange() (min, max float32) {
	return id.minFloat, id.maxFloat
}

// Value returns the identifier's current value: the native storage of a
// variable or the bound value of an alias. Commands have no value.
func (id *Ident) Value() Value {
	switch id.Kind {
	case KindVar:
		return Int(*id.intStore)
	case KindFloatVar:
		return Float(*id.floatStore)
	case KindStringVar:
		return Str(*id.strStore)
	case KindAlias:
		return id.val.GetVal()
	}
	return NullVal
}

// String formats the current value the way the print command shows it.
func (id *Ident) String() string {
	switch id.Kind {
	case KindVar:
		v := *id.intStore
		if id.Flags&FlagHex != 0 && v >= 0 {
			if id.maxInt == 0xFFFFFF {
				return fmt.Sprintf("0x%.6X", v)
			}
			return fmt.Sprintf("0x%X", v)
		}
		return FormatInt(v)
	case KindFloatVar:
		return FormatFloat(*id.floatStore)
	case KindStringVar:
		return *id.strStore
	case KindAlias:
		return id.val.GetStr()
	}
	return ""
}

// Depth returns how many shadowed bindings an alias currently has.
func (id *Ident) Depth() int {
	return len(id.stack)
}

func (id *Ident) readOnly() bool {
	return id.Flags&FlagReadOnly != 0
}

func (id *Ident) changed(in *Interp) {
	if id.watcher != nil {
		id.watcher.Changed(in, id)
	}
}

// setVal replaces an alias value and drops its compiled body.
func (id *Ident) setVal(v Value) {
	id.val = v
	id.code = nil
}

// forceNull empties an alias.
func (id *Ident) forceNull() {
	id.setVal(NullVal)
}
