package vm

// ---------------------------------------------------------------------------
// Native variable writes
// ---------------------------------------------------------------------------

// override applies the override rules before a variable write. It returns
// false if the write must be dropped. A variable is overridden when the
// interpreter is in override mode or the variable carries FlagOverride; the
// first overriding write saves the value it replaces. A plain write to an
// overridden variable makes it plain again.
func (in *Interp) override(id *Ident) bool {
	if in.identFlags&FlagOverridden != 0 || id.Flags&FlagOverride != 0 {
		if id.Flags&FlagPersist != 0 {
			in.debugf("cannot override persistent variable %s", id.Name)
			return false
		}
		if id.Flags&FlagOverridden == 0 {
			id.saved = id.Value()
			id.Flags |= FlagOverridden
		}
	} else if id.Flags&FlagOverridden != 0 {
		id.saved = NullVal
		id.Flags &^= FlagOverridden
	}
	return true
}

func (in *Interp) rejectReadOnly(id *Ident) bool {
	if id.readOnly() {
		in.debugf("variable %s is read-only", id.Name)
		return true
	}
	return false
}

// clampInt keeps v inside the variable's bounds. Out-of-range writes are
// only logged at debug level.
func (in *Interp) clampInt(id *Ident, v int32) int32 {
	if v < id.minInt || v > id.maxInt {
		clamped := id.maxInt
		if v < id.minInt {
			clamped = id.minInt
		}
		if id.Flags&FlagHex != 0 {
			in.log.Debugf("valid range for %s is 0x%X..0x%X, clamped 0x%X to 0x%X", id.Name, id.minInt, id.maxInt, v, clamped)
		} else {
			in.log.Debugf("valid range for %s is %d..%d, clamped %d to %d", id.Name, id.minInt, id.maxInt, v, clamped)
		}
		return clamped
	}
	return v
}

func (in *Interp) clampFloat(id *Ident, v float32) float32 {
	if v < id.minFloat || v > id.maxFloat {
		clamped := id.maxFloat
		if v < id.minFloat {
			clamped = id.minFloat
		}
		in.log.Debugf("valid range for %s is %s..%s, clamped %s to %s", id.Name,
			FormatFloat(id.minFloat), FormatFloat(id.maxFloat), FormatFloat(v), FormatFloat(clamped))
		return clamped
	}
	return v
}

func (in *Interp) setIntVarChecked(id *Ident, v int32) {
	if in.rejectReadOnly(id) || !in.override(id) {
		return
	}
	*id.intStore = in.clampInt(id, v)
	id.changed(in)
}

func (in *Interp) setFloatVarChecked(id *Ident, v float32) {
	if in.rejectReadOnly(id) || !in.override(id) {
		return
	}
	*id.floatStore = in.clampFloat(id, v)
	id.changed(in)
}

func (in *Interp) setStrVarChecked(id *Ident, v string) {
	if in.rejectReadOnly(id) || !in.override(id) {
		return
	}
	*id.strStore = v
	id.changed(in)
}

// setIdent writes v to any writable identifier the way an assignment
// statement does.
func (in *Interp) setIdent(id *Ident, v Value) {
	switch id.Kind {
	case KindAlias:
		if id.Index < MaxArgs {
			in.setArg(id, v)
		} else {
			in.setAlias(id, v)
		}
	case KindVar:
		in.setIntVarChecked(id, v.GetInt())
	case KindFloatVar:
		in.setFloatVarChecked(id, v.GetFloat())
	case KindStringVar:
		in.setStrVarChecked(id, v.GetStr())
	default:
		in.debugf("cannot redefine builtin %s with an alias", id.Name)
	}
}

// setAliasByName assigns to name, creating the alias if needed.
func (in *Interp) setAliasByName(name string, v Value) {
	if id := in.Find(name); id != nil {
		in.setIdent(id, v)
		return
	}
	if CheckNumber(name) {
		in.debugf("cannot alias number %s", name)
		return
	}
	id, _ := in.add(&Ident{Kind: KindAlias, Name: name})
	in.setAlias(id, v)
}

// clearOverride reverts one overridden identifier. Aliases are emptied and
// variables get back the value they held before the first override.
func (in *Interp) clearOverride(id *Ident) {
	if id.Flags&FlagOverridden == 0 {
		return
	}
	switch id.Kind {
	case KindAlias:
		if !(id.val.IsString() && id.val.s == "") {
			id.setVal(Str(""))
		}
	case KindVar:
		*id.intStore = id.saved.GetInt()
		id.changed(in)
	case KindFloatVar:
		*id.floatStore = id.saved.GetFloat()
		id.changed(in)
	case KindStringVar:
		*id.strStore = id.saved.GetStr()
		id.changed(in)
	}
	id.saved = NullVal
	id.Flags &^= FlagOverridden
}

// resetVar reverts one overridden identifier by name. Persistent identifiers
// are never overridden and are refused.
func (in *Interp) resetVar(name string) {
	id := in.Find(name)
	if id == nil {
		return
	}
	if id.readOnly() || id.Flags&FlagPersist != 0 && id.Kind.IsVar() {
		in.debugf("variable %s is read-only", id.Name)
		return
	}
	in.clearOverride(id)
}
