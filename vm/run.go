package vm

import (
	"github.com/chazu/cubescript/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Operand frames
// ---------------------------------------------------------------------------

// frame is the operand stack of one run. Frames are reused per run depth, so
// a command's argument slice stays valid while deeper runs execute.
type frame struct {
	args []Value
	n    int
}

func (f *frame) push(v Value) {
	if f.n >= len(f.args) {
		panic(invariantf("operand stack overflow"))
	}
	f.args[f.n] = v
	f.n++
}

func (f *frame) pop() Value {
	if f.n <= 0 {
		panic(invariantf("operand stack underflow"))
	}
	f.n--
	v := f.args[f.n]
	f.args[f.n] = NullVal
	return v
}

func (f *frame) top() *Value {
	if f.n <= 0 {
		panic(invariantf("operand stack underflow"))
	}
	return &f.args[f.n-1]
}

// window returns the top k operands without popping them.
func (f *frame) window(k int) []Value {
	if k < 0 || k > f.n {
		panic(invariantf("operand stack underflow: need %d, have %d", k, f.n))
	}
	return f.args[f.n-k : f.n]
}

// truncate drops operands down to n.
func (f *frame) truncate(n int) {
	for i := n; i < f.n; i++ {
		f.args[i] = NullVal
	}
	f.n = n
}

func (in *Interp) frameAt(depth int) *frame {
	for len(in.frames) <= depth {
		in.frames = append(in.frames, &frame{args: make([]Value, MaxArgs+MaxResults)})
	}
	f := in.frames[depth]
	f.truncate(0)
	return f
}

// ---------------------------------------------------------------------------
// Dispatch loop
// ---------------------------------------------------------------------------

// run executes c until its matching EXIT and returns the position after it.
// The value of the last statement is left in result.
func (in *Interp) run(c Code, result *Value) int {
	*result = NullVal
	if in.runDepth >= in.MaxRunDepth {
		in.debugf("exceeded recursion limit")
		return in.skipCode(c, result)
	}
	in.runDepth++
	fr := in.frameAt(in.runDepth)
	prevRet := in.ret
	in.ret = result

	blk := c.Block
	words := blk.Words
	pc := c.PC
	fail := func(format string, args ...any) {
		e := invariantf(format, args...)
		e.Block, e.PC = blk.Name, pc-1
		panic(e)
	}
	ident := func(index int) *Ident {
		if index < 0 || index >= len(in.byIndex) {
			fail("identifier index %d out of range", index)
		}
		return in.byIndex[index]
	}

	var locals []*Ident
	defer func() {
		for i := len(locals) - 1; i >= 0; i-- {
			in.popAlias(locals[i])
		}
	}()

	for {
		if pc < 0 || pc >= len(words) {
			fail("ran off the end of the block")
		}
		w := words[pc]
		pc++
		op := bytecode.OpOf(w)
		ret := bytecode.RetOf(w)
		arg := bytecode.ArgOf(w)
		if in.Trace {
			in.log.Debugf("%04X %s%s depth=%d stack=%d", pc-1, op, ret, in.runDepth, fr.n)
		}

		switch op {
		case bytecode.OpStart, bytecode.OpOffset:

		case bytecode.OpNull:
			*result = NullVal
			result.force(ret)
		case bytecode.OpTrue:
			*result = Int(1)
			result.force(ret)
		case bytecode.OpFalse:
			*result = Int(0)
			result.force(ret)
		case bytecode.OpNot:
			v := fr.pop()
			if v.typ == TypeCode {
				in.run(v.code, result)
				v = *result
			}
			*result = Bool(!v.GetBool())
			result.force(ret)
		case bytecode.OpPop:
			fr.pop()

		case bytecode.OpEnter:
			var sub Value
			pc = in.run(Code{Block: blk, PC: pc}, &sub)
			fr.push(sub)
		case bytecode.OpEnterResult:
			pc = in.run(Code{Block: blk, PC: pc}, result)
		case bytecode.OpExit:
			result.force(ret)
			fr.truncate(0)
			in.ret = prevRet
			in.runDepth--
			return pc
		case bytecode.OpResultArg:
			v := *result
			v.force(ret)
			fr.push(v)
			*result = NullVal

		case bytecode.OpVal, bytecode.OpValI, bytecode.OpMacro:
			instr, err := bytecode.Decode(words, pc-1)
			if err != nil {
				fail("%v", err)
			}
			pc = pc - 1 + instr.Size
			switch {
			case op == bytecode.OpMacro:
				fr.push(Macro(instr.Str))
			case ret == bytecode.RetStr:
				fr.push(Str(instr.Str))
			case ret == bytecode.RetInt:
				fr.push(Int(instr.Int))
			case ret == bytecode.RetFloat:
				fr.push(Float(instr.Float))
			default:
				fr.push(NullVal)
			}
		case bytecode.OpDup:
			v := *fr.top()
			switch ret {
			case bytecode.RetStr:
				fr.push(Str(v.GetStr()))
			case bytecode.RetInt:
				fr.push(Int(v.GetInt()))
			case bytecode.RetFloat:
				fr.push(Float(v.GetFloat()))
			default:
				fr.push(v.GetVal())
			}
		case bytecode.OpBlock:
			fr.push(CodeVal(Code{Block: blk, PC: pc + 1}))
			pc += int(arg)
		case bytecode.OpEmpty:
			fr.push(CodeVal(emptyCode(ret)))
		case bytecode.OpCompile:
			v := fr.top()
			switch v.typ {
			case TypeInt, TypeFloat:
				*v = CodeVal(literalCode(*v))
			case TypeStr, TypeMacro, TypeCStr:
				*v = CodeVal(Code{Block: in.Compile(v.s, ""), PC: 1})
			default:
				*v = CodeVal(emptyCode(bytecode.RetNull))
			}
		case bytecode.OpCond:
			v := fr.top()
			if v.IsString() {
				if v.s != "" {
					*v = CodeVal(Code{Block: in.Compile(v.s, ""), PC: 1})
				} else {
					*v = NullVal
				}
			}
		case bytecode.OpForce:
			fr.top().force(ret)
		case bytecode.OpResult:
			*result = fr.pop()
			result.force(ret)

		case bytecode.OpIdent:
			fr.push(IdentVal(ident(int(arg))))
		case bytecode.OpIdentArg:
			id := ident(int(arg))
			in.bindArg(id)
			fr.push(IdentVal(id))
		case bytecode.OpIdentU:
			v := fr.top()
			id := in.dummy
			if v.IsString() {
				id = in.newIdent(v.s, FlagUnknown)
			}
			if id.Index < MaxArgs && id.Kind == KindAlias {
				in.bindArg(id)
			}
			*v = IdentVal(id)

		case bytecode.OpCom:
			id := ident(int(arg))
			offset := fr.n - id.NumArgs
			*result = NullVal
			in.invoke(id, fr.window(id.NumArgs))
			result.force(ret)
			fr.truncate(offset)
		case bytecode.OpComD:
			id := ident(int(arg))
			fr.push(Int(1))
			offset := fr.n - id.NumArgs
			*result = NullVal
			in.invoke(id, fr.window(id.NumArgs))
			result.force(ret)
			fr.truncate(offset)
		case bytecode.OpComV:
			id := ident(bytecode.CallIndex(w))
			argc := bytecode.CallArgc(w)
			offset := fr.n - argc
			*result = NullVal
			in.invoke(id, fr.window(argc))
			result.force(ret)
			fr.truncate(offset)
		case bytecode.OpComC:
			id := ident(bytecode.CallIndex(w))
			argc := bytecode.CallArgc(w)
			offset := fr.n - argc
			s := concat(fr.window(argc), true)
			fr.truncate(offset)
			*result = NullVal
			in.invoke(id, []Value{Str(s)})
			result.force(ret)

		case bytecode.OpConc, bytecode.OpConcW:
			k := int(arg)
			s := concat(fr.window(k), op == bytecode.OpConc)
			fr.truncate(fr.n - k)
			v := Str(s)
			v.force(ret)
			fr.push(v)
		case bytecode.OpConcM:
			k := int(arg)
			s := concat(fr.window(k), false)
			fr.truncate(fr.n - k)
			*result = Str(s)
			result.force(ret)

		case bytecode.OpSVar:
			id := ident(int(arg))
			switch ret {
			case bytecode.RetInt:
				fr.push(Int(ParseInt(*id.strStore)))
			case bytecode.RetFloat:
				fr.push(Float(ParseFloat(*id.strStore)))
			default:
				fr.push(Str(*id.strStore))
			}
		case bytecode.OpSVarM:
			fr.push(CStr(*ident(int(arg)).strStore))
		case bytecode.OpSVar1:
			in.setStrVarChecked(ident(int(arg)), fr.pop().GetStr())
		case bytecode.OpIVar:
			v := *ident(int(arg)).intStore
			switch ret {
			case bytecode.RetStr:
				fr.push(Str(FormatInt(v)))
			case bytecode.RetFloat:
				fr.push(Float(float32(v)))
			default:
				fr.push(Int(v))
			}
		case bytecode.OpIVar1:
			in.setIntVarChecked(ident(int(arg)), fr.pop().GetInt())
		case bytecode.OpIVar2:
			b := fr.pop().GetInt()
			a := fr.pop().GetInt()
			in.setIntVarChecked(ident(int(arg)), a<<16|b<<8)
		case bytecode.OpIVar3:
			c := fr.pop().GetInt()
			b := fr.pop().GetInt()
			a := fr.pop().GetInt()
			in.setIntVarChecked(ident(int(arg)), a<<16|b<<8|c)
		case bytecode.OpFVar:
			v := *ident(int(arg)).floatStore
			switch ret {
			case bytecode.RetStr:
				fr.push(Str(FormatFloat(v)))
			case bytecode.RetInt:
				fr.push(Int(int32(v)))
			default:
				fr.push(Float(v))
			}
		case bytecode.OpFVar1:
			in.setFloatVarChecked(ident(int(arg)), fr.pop().GetFloat())

		case bytecode.OpLookup, bytecode.OpLookupM:
			id := ident(int(arg))
			if id.Flags&FlagUnknown != 0 {
				in.debugf("unknown alias lookup: %s", id.Name)
			}
			fr.push(aliasValue(id.val, ret, op == bytecode.OpLookupM))
		case bytecode.OpLookupArg, bytecode.OpLookupMArg:
			id := ident(int(arg))
			if !in.argBound(id) {
				fr.push(nullValue(ret, op == bytecode.OpLookupMArg))
			} else {
				fr.push(aliasValue(id.val, ret, op == bytecode.OpLookupMArg))
			}
		case bytecode.OpLookupU, bytecode.OpLookupMU:
			v := fr.top()
			if v.IsString() {
				*v = in.lookupName(v.s, ret, op == bytecode.OpLookupMU)
			}

		case bytecode.OpAlias:
			in.setAlias(ident(int(arg)), fr.pop())
		case bytecode.OpAliasArg:
			in.setArg(ident(int(arg)), fr.pop())
		case bytecode.OpAliasU:
			v := fr.pop()
			name := fr.pop()
			in.setAliasByName(name.GetStr(), v)

		case bytecode.OpCall, bytecode.OpCallArg:
			id := ident(bytecode.CallIndex(w))
			argc := bytecode.CallArgc(w)
			offset := fr.n - argc
			switch {
			case op == bytecode.OpCall && id.Flags&FlagUnknown != 0:
				in.debugf("unknown command: %s", id.Name)
				*result = NullVal
			case op == bytecode.OpCallArg && !in.argBound(id):
				*result = NullVal
			default:
				in.callAlias(id, fr.window(argc), ret, result)
			}
			result.force(ret)
			fr.truncate(offset)
		case bytecode.OpCallU:
			argc := int(arg)
			offset := fr.n - argc - 1
			args := fr.window(argc + 1)
			in.callName(args[0], args[1:], ret, result)
			fr.truncate(offset)

		case bytecode.OpPrint:
			in.printVar(ident(int(arg)))

		case bytecode.OpLocal:
			// Locals stay shadowed until this run's EXIT. Operands pushed
			// before them belong to the same frame and remain in place.
			k := int(arg)
			offset := fr.n - k
			for _, v := range fr.window(k) {
				id := v.Ident()
				if id == nil {
					id = in.dummy
				}
				in.pushAlias(id)
				locals = append(locals, id)
			}
			fr.truncate(offset)

		case bytecode.OpDo:
			in.runValue(fr.pop(), result)
			result.force(ret)
		case bytecode.OpDoArgs:
			in.doArgs(fr.pop(), result)
			result.force(ret)

		case bytecode.OpJump:
			pc += int(arg)
		case bytecode.OpJumpTrue:
			if fr.pop().GetBool() {
				pc += int(arg)
			}
		case bytecode.OpJumpFalse:
			if !fr.pop().GetBool() {
				pc += int(arg)
			}
		case bytecode.OpJumpResultTrue, bytecode.OpJumpResultFalse:
			v := fr.pop()
			if v.typ == TypeCode {
				in.run(v.code, result)
			} else {
				*result = v
			}
			if result.GetBool() == (op == bytecode.OpJumpResultTrue) {
				pc += int(arg)
			}

		default:
			fail("invalid instruction %s", op)
		}
	}
}

// skipCode advances past c without executing it, leaving result at the
// null value forced to the EXIT's ret tag.
func (in *Interp) skipCode(c Code, result *Value) int {
	words := c.Block.Words
	depth := 0
	for pc := c.PC; pc < len(words); {
		instr, err := bytecode.Decode(words, pc)
		if err != nil {
			panic(&InvariantError{Msg: err.Error(), Block: c.Block.Name, PC: pc})
		}
		next := pc + instr.Size
		switch {
		case instr.Op == bytecode.OpBlock || instr.Op.IsJump():
			next += int(instr.Arg)
		case instr.Op == bytecode.OpEnter || instr.Op == bytecode.OpEnterResult:
			depth++
		case instr.Op == bytecode.OpExit:
			if depth == 0 {
				result.force(instr.Ret)
				return next
			}
			depth--
		}
		pc = next
	}
	panic(&InvariantError{Msg: "block has no EXIT", Block: c.Block.Name, PC: c.PC})
}

// doArgs runs v with the caller's argument bindings in effect.
func (in *Interp) doArgs(v Value, result *Value) {
	if in.aliasStack == noAlias {
		in.runValue(v, result)
		return
	}
	var u undoState
	in.undoArgs(&u)
	defer in.redoArgs(&u)
	in.runValue(v, result)
}

// aliasValue reads an alias value for LOOKUP. Macro lookups borrow strings
// instead of copying them.
func aliasValue(v Value, ret bytecode.Ret, macro bool) Value {
	switch ret {
	case bytecode.RetStr:
		if macro {
			return CStr(v.GetStr())
		}
		return Str(v.GetStr())
	case bytecode.RetInt:
		return Int(v.GetInt())
	case bytecode.RetFloat:
		return Float(v.GetFloat())
	}
	if macro {
		return v.getCVal()
	}
	return v.GetVal()
}

// nullValue is what looking up an unset name yields.
func nullValue(ret bytecode.Ret, macro bool) Value {
	switch ret {
	case bytecode.RetStr:
		if macro {
			return CStr("")
		}
		return Str("")
	case bytecode.RetInt:
		return Int(0)
	case bytecode.RetFloat:
		return Float(0)
	}
	return NullVal
}

// lookupName resolves a name computed at run time.
func (in *Interp) lookupName(name string, ret bytecode.Ret, macro bool) Value {
	id := in.Find(name)
	if id == nil {
		in.debugf("unknown alias lookup: %s", name)
		return nullValue(ret, macro)
	}
	switch id.Kind {
	case KindAlias:
		if id.Flags&FlagUnknown != 0 {
			in.debugf("unknown alias lookup: %s", name)
			return nullValue(ret, macro)
		}
		if id.Index < MaxArgs && !in.argBound(id) {
			return nullValue(ret, macro)
		}
		return aliasValue(id.val, ret, macro)
	case KindStringVar:
		if macro && ret == bytecode.RetNull {
			return CStr(*id.strStore)
		}
		return aliasValue(Str(*id.strStore), ret, macro)
	case KindVar:
		return aliasValue(Int(*id.intStore), ret, false)
	case KindFloatVar:
		return aliasValue(Float(*id.floatStore), ret, false)
	case KindCommand:
		var v Value
		prev := in.ret
		in.ret = &v
		in.callCommand(id, nil, true)
		in.ret = prev
		v.force(ret)
		return v
	}
	return nullValue(ret, macro)
}

// callName implements CALLU: the callee is named by a value on the stack.
func (in *Interp) callName(head Value, args []Value, ret bytecode.Ret, result *Value) {
	*result = NullVal
	if !head.IsString() {
		*result = head.GetVal()
		result.force(ret)
		return
	}
	id := in.Find(head.s)
	if id == nil {
		if CheckNumber(head.s) {
			*result = Str(head.s)
		} else {
			in.debugf("unknown command: %s", head.s)
		}
		result.force(ret)
		return
	}
	switch id.Kind {
	case KindAlias:
		switch {
		case id.Flags&FlagUnknown != 0:
			in.debugf("unknown command: %s", head.s)
		case id.Index < MaxArgs && !in.argBound(id):
		default:
			in.callAlias(id, args, ret, result)
		}
	case KindVar, KindFloatVar, KindStringVar:
		if len(args) == 0 {
			in.printVar(id)
		} else {
			in.setIdent(id, args[0])
		}
	default:
		if id.fn != nil {
			in.callCommand(id, args, false)
		}
	}
	result.force(ret)
}

// printVar echoes a variable the way typing its bare name does.
func (in *Interp) printVar(id *Ident) {
	switch id.Kind {
	case KindVar:
		v := *id.intStore
		if id.Flags&FlagHex != 0 && v >= 0 && id.maxInt == 0xFFFFFF {
			in.Console.Echo(id.Name + " = " + id.String() + " (" + FormatInt(v>>16&0xFF) + ", " +
				FormatInt(v>>8&0xFF) + ", " + FormatInt(v&0xFF) + ")")
			return
		}
		in.Console.Echo(id.Name + " = " + id.String())
	case KindFloatVar:
		in.Console.Echo(id.Name + " = " + id.String())
	case KindStringVar:
		in.Console.Echo(id.Name + " = \"" + id.String() + "\"")
	}
}

var emptyBlocks = func() [4]*bytecode.Block {
	var out [4]*bytecode.Block
	for i := range out {
		b := bytecode.NewBlock()
		b.EmitOp(bytecode.OpExit, bytecode.Ret(uint32(i)<<bytecode.RetShift), 0)
		b.Name = "empty"
		out[i] = b
	}
	return out
}()

// emptyCode is the shared empty block that yields the null value forced to
// ret.
func emptyCode(ret bytecode.Ret) Code {
	return Code{Block: emptyBlocks[uint32(ret)>>bytecode.RetShift], PC: 1}
}

// literalCode compiles a number into a block that returns it.
func literalCode(v Value) Code {
	b := bytecode.NewBlock()
	if v.typ == TypeInt {
		b.EmitInt(v.i)
	} else {
		b.EmitFloat(v.f)
	}
	b.EmitOp(bytecode.OpResult, bytecode.RetNull, 0)
	b.EmitOp(bytecode.OpExit, bytecode.RetNull, 0)
	return Code{Block: b, PC: 1}
}
