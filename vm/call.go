package vm

import (
	"math"
	"strings"

	"github.com/chazu/cubescript/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Calls
// ---------------------------------------------------------------------------

// invoke calls a command whose arguments the compiler already shaped to its
// signature.
func (in *Interp) invoke(id *Ident, args []Value) {
	if id.fn == nil {
		return
	}
	id.fn(in, args)
}

// callCommand coerces args to id's signature and calls it. Missing
// arguments get their type's default. lookup is set when the command is
// being read as a value through $name, which makes N report -1.
func (in *Interp) callCommand(id *Ident, args []Value, lookup bool) {
	buf := make([]Value, len(args), len(args)+len(id.Args)+1)
	copy(buf, args)
	numargs := len(buf)
	arg := func(i int) *Value {
		for len(buf) <= i {
			buf = append(buf, NullVal)
		}
		return &buf[i]
	}

	i := -1
	fake := 0
	rep := false
	sig := id.Args
	for f := 0; f < len(sig); f++ {
		c := sig[f]
		switch c {
		case 'i', 'b', 'f', 'F', 's', 'S', 't', 'T', 'E', 'e', 'r':
			i++
			if i >= numargs {
				if rep {
					continue
				}
				*arg(i) = defaultArg(in, c, buf, i)
				fake++
				continue
			}
			in.coerceArg(&buf[i], c)
		case '$':
			i++
			*arg(i) = IdentVal(id)
		case 'N':
			i++
			n := int32(i - fake)
			if lookup {
				n = -1
			}
			*arg(i) = Int(n)
		case 'D':
			i++
			*arg(i) = Int(1)
			fake++
		case 'C':
			i = max(i+1, numargs)
			id.fn(in, []Value{Str(concat(buf[:i], true))})
			return
		case 'V':
			i = max(i+1, numargs)
			id.fn(in, buf[:i])
			return
		case '1', '2', '3', '4':
			if i+1 < numargs {
				f -= int(c-'0') + 1
				rep = true
			}
		}
	}
	i++
	id.fn(in, buf[:i])
}

// defaultArg is the value a missing argument of signature letter c takes.
func defaultArg(in *Interp, c byte, buf []Value, i int) Value {
	switch c {
	case 'i':
		return Int(0)
	case 'b':
		return Int(math.MinInt32)
	case 'f':
		return Float(0)
	case 'F':
		if i > 0 {
			return Float(buf[i-1].GetFloat())
		}
		return Float(0)
	case 's':
		return CStr("")
	case 'S':
		return Str("")
	case 'e':
		return CodeVal(emptyCode(bytecode.RetNull))
	case 'r':
		return IdentVal(in.dummy)
	}
	return NullVal
}

// coerceArg converts a supplied argument to what letter c expects.
func (in *Interp) coerceArg(v *Value, c byte) {
	switch c {
	case 'i', 'b':
		v.forceInt()
	case 'f', 'F':
		v.forceFloat()
	case 's', 'S':
		v.forceStr()
	case 'E':
		if v.IsString() {
			if v.s == "" {
				*v = NullVal
			} else {
				*v = CodeVal(Code{Block: in.Compile(v.s, ""), PC: 1})
			}
		}
	case 'e':
		if v.typ != TypeCode {
			*v = CodeVal(Code{Block: in.Compile(v.GetStr(), ""), PC: 1})
		}
	case 'r':
		if v.typ != TypeIdent {
			id := in.dummy
			if v.IsString() {
				id = in.newIdent(v.s, FlagUnknown)
			}
			if id.Kind == KindAlias && id.Index < MaxArgs {
				in.bindArg(id)
			}
			*v = IdentVal(id)
		}
	}
}

// callAlias runs an alias body with args bound to arg1..argN. Every binding
// the callee made, including arguments it assigned beyond argN, is undone
// on return, also when a panic unwinds through the call.
func (in *Interp) callAlias(id *Ident, args []Value, ret bytecode.Ret, result *Value) {
	argc := len(args)
	for i := 0; i < argc; i++ {
		in.pushArg(in.byIndex[i], args[i])
	}
	oldArgs := in.numArgs
	in.numArgs = int32(argc)
	oldFlags := in.identFlags
	in.identFlags |= id.Flags & FlagOverridden
	h := in.pushLink(id, uint32(1)<<uint(argc)-1)
	defer func() {
		used := in.popLink(h)
		in.identFlags = oldFlags
		for i := 0; i < argc; i++ {
			in.popArg(in.byIndex[i])
		}
		for i := argc; i < MaxArgs; i++ {
			if used&(1<<uint(i)) != 0 {
				in.popArg(in.byIndex[i])
			}
		}
		in.numArgs = oldArgs
	}()

	if id.code == nil {
		id.code = in.compileMain(id.val.GetStr(), id.Name, TypeAny)
	}
	in.run(Code{Block: id.code, PC: 1}, result)
	result.force(ret)
}

// concat joins values as strings, with single spaces when space is set.
func concat(vals []Value, space bool) string {
	if len(vals) == 1 {
		return vals[0].GetStr()
	}
	var sb strings.Builder
	for i, v := range vals {
		if space && i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(v.GetStr())
	}
	return sb.String()
}
