package vm

// ---------------------------------------------------------------------------
// Command library
// ---------------------------------------------------------------------------

func (in *Interp) registerLibrary() {
	in.registerControlCommands()
	in.registerIdentCommands()
	in.registerMathCommands()
	in.registerStringCommands()
	in.registerListCommands()
	in.registerIOCommands()
}

// command registers a library command. A bad signature here is a bug.
func (in *Interp) command(name, args string, fn CommandFunc) {
	MustRegister(in.RegisterCommand(CommandDef{Name: name, Args: args, Fn: fn}))
}

// slot returns where the running command should leave its result.
func (in *Interp) slot() *Value {
	if in.ret == nil {
		return new(Value)
	}
	return in.ret
}

// exec runs a code argument and discards its result.
func (in *Interp) exec(body Value) {
	var discard Value
	in.runValue(body, &discard)
}

// execBool runs a code argument and reports its truth.
func (in *Interp) execBool(cond Value) bool {
	var v Value
	in.runValue(cond, &v)
	return v.GetBool()
}

// ---------------------------------------------------------------------------
// Pseudo-commands
// ---------------------------------------------------------------------------
//
// The compiler turns these into dedicated instructions. The functions run
// when one is called through a computed name or read as $name.

func cmdDo(in *Interp, args []Value) {
	in.runValue(args[0], in.slot())
}

func cmdDoArgs(in *Interp, args []Value) {
	in.doArgs(args[0], in.slot())
}

func cmdIf(in *Interp, args []Value) {
	if args[0].GetBool() {
		in.runValue(args[1], in.slot())
	} else {
		in.runValue(args[2], in.slot())
	}
}

func cmdResult(in *Interp, args []Value) {
	in.Ret(args[0])
}

func cmdNot(in *Interp, args []Value) {
	in.Ret(Bool(!args[0].GetBool()))
}

func cmdAnd(in *Interp, args []Value) {
	andOr(in, args, false)
}

func cmdOr(in *Interp, args []Value) {
	andOr(in, args, true)
}

// andOr evaluates operands left to right until one is stop. The result is
// the last operand evaluated.
func andOr(in *Interp, args []Value, stop bool) {
	ret := in.slot()
	if len(args) == 0 {
		*ret = Bool(!stop)
		return
	}
	for _, a := range args {
		if _, ok := a.Code(); ok {
			in.runValue(a, ret)
		} else {
			*ret = a
		}
		if ret.GetBool() == stop {
			return
		}
	}
}
