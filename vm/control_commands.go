package vm

// ---------------------------------------------------------------------------
// Control commands
// ---------------------------------------------------------------------------

// iterator binds a loop variable for the duration of a loop. The first
// value shadows the alias and later values overwrite the shadow.
type iterator struct {
	id     *Ident
	pushed bool
}

func (it *iterator) set(in *Interp, v Value) {
	if it.pushed {
		it.id.setVal(v)
		return
	}
	in.pushArg(it.id, v)
	it.id.Flags &^= FlagUnknown
	it.pushed = true
}

func (it *iterator) done(in *Interp) {
	if it.pushed {
		in.popArg(it.id)
	}
}

// loop runs body n times with id counting offset, offset+step, and so on.
// A nil cond runs every iteration; otherwise the loop stops when cond is
// false.
func (in *Interp) loop(id *Ident, offset, n, step int32, cond *Value, body Value) {
	if n <= 0 || id == nil || id.Kind != KindAlias {
		return
	}
	it := iterator{id: id}
	defer it.done(in)
	for i := int32(0); i < n; i++ {
		it.set(in, Int(offset+i*step))
		if cond != nil && !in.execBool(*cond) {
			return
		}
		in.exec(body)
	}
}

func (in *Interp) registerControlCommands() {
	in.command("loop", "rie", func(in *Interp, a []Value) {
		in.loop(a[0].Ident(), 0, a[1].GetInt(), 1, nil, a[2])
	})
	in.command("loop+", "riie", func(in *Interp, a []Value) {
		in.loop(a[0].Ident(), a[1].GetInt(), a[2].GetInt(), 1, nil, a[3])
	})
	in.command("loop*", "riie", func(in *Interp, a []Value) {
		in.loop(a[0].Ident(), 0, a[2].GetInt(), a[1].GetInt(), nil, a[3])
	})
	in.command("loop+*", "riiie", func(in *Interp, a []Value) {
		in.loop(a[0].Ident(), a[1].GetInt(), a[3].GetInt(), a[2].GetInt(), nil, a[4])
	})
	in.command("loopwhile", "riee", func(in *Interp, a []Value) {
		in.loop(a[0].Ident(), 0, a[1].GetInt(), 1, &a[2], a[3])
	})
	in.command("loopwhile+", "riiee", func(in *Interp, a []Value) {
		in.loop(a[0].Ident(), a[1].GetInt(), a[2].GetInt(), 1, &a[3], a[4])
	})
	in.command("loopwhile*", "riiee", func(in *Interp, a []Value) {
		in.loop(a[0].Ident(), 0, a[2].GetInt(), a[1].GetInt(), &a[3], a[4])
	})
	in.command("loopwhile+*", "riiiee", func(in *Interp, a []Value) {
		in.loop(a[0].Ident(), a[1].GetInt(), a[3].GetInt(), a[2].GetInt(), &a[4], a[5])
	})
	in.command("while", "ee", func(in *Interp, a []Value) {
		for in.execBool(a[0]) {
			in.exec(a[1])
		}
	})

	in.command("?", "tTT", func(in *Interp, a []Value) {
		if a[0].GetBool() {
			in.Ret(a[1])
		} else {
			in.Ret(a[2])
		}
	})

	// cond takes condition/body pairs. A trailing unpaired block is the
	// fallback.
	in.command("cond", "ee2V", func(in *Interp, a []Value) {
		for i := 0; i < len(a); i += 2 {
			if i+1 >= len(a) {
				in.runValue(a[i], in.slot())
				return
			}
			if in.execBool(a[i]) {
				in.runValue(a[i+1], in.slot())
				return
			}
		}
	})

	// case, casef and cases compare the first argument with each label and
	// run the body of the first match. A missing label matches anything.
	in.command("case", "ite2V", func(in *Interp, a []Value) {
		val := a[0].GetInt()
		in.caseOf(a, func(label Value) bool { return label.GetInt() == val })
	})
	in.command("casef", "fte2V", func(in *Interp, a []Value) {
		val := a[0].GetFloat()
		in.caseOf(a, func(label Value) bool { return label.GetFloat() == val })
	})
	in.command("cases", "ste2V", func(in *Interp, a []Value) {
		val := a[0].GetStr()
		in.caseOf(a, func(label Value) bool { return label.GetStr() == val })
	})

	in.command("push", "rTe", func(in *Interp, a []Value) {
		id := a[0].Ident()
		if id == nil || id.Kind != KindAlias || id.Index < MaxArgs {
			return
		}
		in.pushArg(id, a[1])
		id.Flags &^= FlagUnknown
		defer in.popArg(id)
		in.runValue(a[2], in.slot())
	})

	in.command("nodebug", "e", func(in *Interp, a []Value) {
		in.noDebug++
		defer func() { in.noDebug-- }()
		in.runValue(a[0], in.slot())
	})
}

func (in *Interp) caseOf(a []Value, match func(Value) bool) {
	for i := 1; i+1 < len(a); i += 2 {
		if a[i].IsNull() || match(a[i]) {
			in.runValue(a[i+1], in.slot())
			return
		}
	}
}
