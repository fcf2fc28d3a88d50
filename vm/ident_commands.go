package vm

// ---------------------------------------------------------------------------
// Identifier commands
// ---------------------------------------------------------------------------

func (in *Interp) registerIdentCommands() {
	in.command("alias", "sT", func(in *Interp, a []Value) {
		in.setAliasByName(a[0].GetStr(), a[1].GetVal())
	})

	// getalias reads an alias as a string. Unbound argument slots and
	// non-aliases read as "".
	in.command("getalias", "s", func(in *Interp, a []Value) {
		in.StrRet(in.getAlias(a[0].GetStr()))
	})

	in.command("identexists", "s", func(in *Interp, a []Value) {
		in.Ret(Bool(in.Find(a[0].GetStr()) != nil))
	})

	in.command("resetvar", "s", func(in *Interp, a []Value) {
		in.resetVar(a[0].GetStr())
	})
}

func (in *Interp) getAlias(name string) string {
	id := in.Find(name)
	if id == nil || id.Kind != KindAlias {
		return ""
	}
	if id.Index < MaxArgs && !in.argBound(id) {
		return ""
	}
	return id.val.GetStr()
}
