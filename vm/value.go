package vm

import (
	"fmt"

	"github.com/chazu/cubescript/pkg/bytecode"
)

// Type tags a Value. The numbering of the first four matches bytecode.Ret
// so a ret tag can be turned into a Type with a shift.
type Type uint8

const (
	TypeNull Type = iota
	TypeInt
	TypeFloat
	TypeStr
	TypeAny
	TypeCode
	TypeMacro
	TypeIdent
	TypeCStr
	TypeCAny
	TypeWord
	TypePop
	TypeCond
)

var typeNames = [...]string{
	TypeNull:  "null",
	TypeInt:   "int",
	TypeFloat: "float",
	TypeStr:   "str",
	TypeAny:   "any",
	TypeCode:  "code",
	TypeMacro: "macro",
	TypeIdent: "ident",
	TypeCStr:  "cstr",
	TypeCAny:  "cany",
	TypeWord:  "word",
	TypePop:   "pop",
	TypeCond:  "cond",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", t)
}

// ret returns the bytecode ret tag for the value types that have one.
// Types from TypeAny upward have no fixed tag.
func (t Type) ret() bytecode.Ret {
	if t >= TypeAny {
		return bytecode.RetNull
	}
	return bytecode.Ret(uint32(t) << bytecode.RetShift)
}

// Code is a reference into a compiled block. PC is the first instruction of
// the body; execution stops at the matching OpExit.
type Code struct {
	Block *bytecode.Block
	PC    int
}

// Value is one script-level datum. Only the payload selected by the type tag
// is meaningful; constructors are the only way to build one.
//
// Str values own their text. CStr and Macro values are views of text held by
// an identifier or a block and are materialized into Str by GetVal.
type Value struct {
	typ  Type
	i    int32
	f    float32
	s    string
	code Code
	id   *Ident
}

// NullVal is the shared "no value" constant.
var NullVal = Value{}

// Int returns an integer value.
func Int(i int32) Value { return Value{typ: TypeInt, i: i} }

// Float returns a float value.
func Float(f float32) Value { return Value{typ: TypeFloat, f: f} }

// Str returns an owned string value.
func Str(s string) Value { return Value{typ: TypeStr, s: s} }

// CStr returns a borrowed string value.
func CStr(s string) Value { return Value{typ: TypeCStr, s: s} }

// Macro returns a borrowed string value taken from a compiled block.
func Macro(s string) Value { return Value{typ: TypeMacro, s: s} }

// CodeVal returns a value referring to compiled code.
func CodeVal(c Code) Value { return Value{typ: TypeCode, code: c} }

// IdentVal returns a reference to an identifier.
func IdentVal(id *Ident) Value { return Value{typ: TypeIdent, id: id} }

// Bool returns Int(1) or Int(0).
func Bool(b bool) Value {
	if b {
		return Int(1)
	}
	return Int(0)
}

// Type returns the value's tag.
func (v Value) Type() Type { return v.typ }

// IsNull reports whether v carries no value.
func (v Value) IsNull() bool { return v.typ == TypeNull }

// IsString reports whether v holds text, owned or borrowed.
func (v Value) IsString() bool {
	return v.typ == TypeStr || v.typ == TypeMacro || v.typ == TypeCStr
}

// Code returns the code reference of a code value.
func (v Value) Code() (Code, bool) {
	if v.typ != TypeCode {
		return Code{}, false
	}
	return v.code, true
}

// Ident returns the identifier of an ident value, or nil.
func (v Value) Ident() *Ident {
	if v.typ != TypeIdent {
		return nil
	}
	return v.id
}

// GetStr coerces v to a string.
func (v Value) GetStr() string {
	switch v.typ {
	case TypeStr, TypeMacro, TypeCStr:
		return v.s
	case TypeInt:
		return FormatInt(v.i)
	case TypeFloat:
		return FormatFloat(v.f)
	}
	return ""
}

// GetInt coerces v to an integer.
func (v Value) GetInt() int32 {
	switch v.typ {
	case TypeInt:
		return v.i
	case TypeFloat:
		return int32(v.f)
	case TypeStr, TypeMacro, TypeCStr:
		return ParseInt(v.s)
	}
	return 0
}

// GetFloat coerces v to a float.
func (v Value) GetFloat() float32 {
	switch v.typ {
	case TypeFloat:
		return v.f
	case TypeInt:
		return float32(v.i)
	case TypeStr, TypeMacro, TypeCStr:
		return ParseFloat(v.s)
	}
	return 0
}

// GetNumber coerces v to a double-precision number.
func (v Value) GetNumber() float64 {
	switch v.typ {
	case TypeFloat:
		return float64(v.f)
	case TypeInt:
		return float64(v.i)
	case TypeStr, TypeMacro, TypeCStr:
		return ParseNumber(v.s)
	}
	return 0
}

// GetBool coerces v to a truth value. Strings are numeric-aware: "0" and
// "0.0" are false.
func (v Value) GetBool() bool {
	switch v.typ {
	case TypeFloat:
		return v.f != 0
	case TypeInt:
		return v.i != 0
	case TypeStr, TypeMacro, TypeCStr:
		return parseBool(v.s)
	}
	return false
}

// GetVal materializes v into a self-contained value: borrowed strings become
// owned, numbers are copied and everything else becomes null.
func (v Value) GetVal() Value {
	switch v.typ {
	case TypeStr, TypeMacro, TypeCStr:
		return Str(v.s)
	case TypeInt, TypeFloat:
		return v
	}
	return NullVal
}

// getCVal is GetVal without materializing borrowed strings.
func (v Value) getCVal() Value {
	switch v.typ {
	case TypeStr, TypeMacro, TypeCStr:
		return CStr(v.s)
	case TypeInt, TypeFloat:
		return v
	}
	return NullVal
}

// String implements fmt.Stringer for debugging.
func (v Value) String() string {
	switch v.typ {
	case TypeNull:
		return "<null>"
	case TypeCode:
		return fmt.Sprintf("<code %d>", v.code.PC)
	case TypeIdent:
		if v.id != nil {
			return "<ident " + v.id.Name + ">"
		}
		return "<ident>"
	}
	return v.GetStr()
}

// ---------------------------------------------------------------------------
// Coercions in place
// ---------------------------------------------------------------------------

func (v *Value) forceStr() string {
	switch v.typ {
	case TypeStr:
	case TypeMacro, TypeCStr:
		v.typ = TypeStr
	case TypeInt:
		*v = Str(FormatInt(v.i))
	case TypeFloat:
		*v = Str(FormatFloat(v.f))
	default:
		*v = Str("")
	}
	return v.s
}

func (v *Value) forceInt() int32 {
	if v.typ != TypeInt {
		*v = Int(v.GetInt())
	}
	return v.i
}

func (v *Value) forceFloat() float32 {
	if v.typ != TypeFloat {
		*v = Float(v.GetFloat())
	}
	return v.f
}

func (v *Value) forceNull() {
	*v = NullVal
}

// force coerces v to the type named by a ret tag. RetNull leaves v alone.
func (v *Value) force(ret bytecode.Ret) {
	switch ret {
	case bytecode.RetStr:
		if v.typ != TypeStr {
			v.forceStr()
		}
	case bytecode.RetInt:
		v.forceInt()
	case bytecode.RetFloat:
		v.forceFloat()
	}
}
