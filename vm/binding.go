package vm

// ---------------------------------------------------------------------------
// Scoped bindings
// ---------------------------------------------------------------------------
//
// Every alias keeps its shadowed values in its own stack slice. A call frame
// records only which argument slots it bound, as a bitmask in its link. On
// return the frame pops exactly the slots whose bits are set. Links live in
// one slice indexed by integer handles; handle 0 is the top-level sentinel
// whose mask has every slot set, so top-level writes to argN update in place.

const (
	allArgs  uint32 = 1<<MaxArgs - 1
	undoFlag uint32 = 1 << MaxArgs
	noAlias         = 0
)

// link is one argument-binding scope.
type link struct {
	id       *Ident
	prev     int
	usedArgs uint32
}

func (in *Interp) resetLinks() {
	in.links = append(in.links[:0], link{prev: -1, usedArgs: allArgs})
	in.aliasStack = noAlias
}

func (in *Interp) pushLink(id *Ident, used uint32) int {
	in.links = append(in.links, link{id: id, prev: in.aliasStack, usedArgs: used})
	in.aliasStack = len(in.links) - 1
	return in.aliasStack
}

// popLink removes the innermost link, which must be h, and returns its mask.
func (in *Interp) popLink(h int) uint32 {
	if h != in.aliasStack || h != len(in.links)-1 || h == noAlias {
		panic(invariantf("unbalanced call link %d (top %d)", h, in.aliasStack))
	}
	l := in.links[h]
	in.links[h] = link{}
	in.links = in.links[:h]
	in.aliasStack = l.prev
	return l.usedArgs
}

func (in *Interp) usedArgs() uint32 {
	return in.links[in.aliasStack].usedArgs
}

// argBound reports whether argument slot id is bound in the current frame.
func (in *Interp) argBound(id *Ident) bool {
	return in.usedArgs()&(1<<uint(id.Index)) != 0
}

// pushArg saves the current binding of id and installs v.
func (in *Interp) pushArg(id *Ident, v Value) {
	id.stack = append(id.stack, id.val)
	id.setVal(v)
}

// popArg restores the binding saved by the matching pushArg.
func (in *Interp) popArg(id *Ident) {
	n := len(id.stack)
	if n == 0 {
		panic(invariantf("binding stack of %s is empty", id.Name))
	}
	id.val = id.stack[n-1]
	id.stack[n-1] = NullVal
	id.stack = id.stack[:n-1]
	id.code = nil
}

// pushAlias shadows a named alias with an unset binding, as local does.
// Argument slots are scoped by call frames instead and are left alone.
func (in *Interp) pushAlias(id *Ident) {
	if id.Kind == KindAlias && id.Index >= MaxArgs {
		in.pushArg(id, NullVal)
		id.Flags &^= FlagUnknown
	}
}

func (in *Interp) popAlias(id *Ident) {
	if id.Kind == KindAlias && id.Index >= MaxArgs {
		in.popArg(id)
	}
}

// setArg writes argument slot id. The first write in a frame saves the
// caller's binding and marks the slot as used.
func (in *Interp) setArg(id *Ident, v Value) {
	l := &in.links[in.aliasStack]
	bit := uint32(1) << uint(id.Index)
	if l.usedArgs&bit != 0 {
		id.setVal(v)
		return
	}
	in.pushArg(id, v)
	l.usedArgs |= bit
}

// bindArg marks argument slot id as used in the current frame, binding it to
// null if it was not yet bound.
func (in *Interp) bindArg(id *Ident) {
	l := &in.links[in.aliasStack]
	bit := uint32(1) << uint(id.Index)
	if l.usedArgs&bit == 0 {
		in.pushArg(id, NullVal)
		l.usedArgs |= bit
	}
}

// setAlias writes an alias and stamps it with the current write flags.
func (in *Interp) setAlias(id *Ident, v Value) {
	id.setVal(v)
	id.Flags = id.Flags&in.identFlags | in.identFlags
}

// ---------------------------------------------------------------------------
// doargs: running a block with the caller's arguments
// ---------------------------------------------------------------------------

// undoState remembers what undoArgs took off the argument slots.
type undoState struct {
	active     bool
	handle     int
	mask       uint32
	callerUsed uint32
	saved      [MaxArgs]Value
}

// undoArgs temporarily restores the argument bindings of the caller of the
// innermost alias call. Links created by an enclosing doargs are skipped
// together with the frame they undid, so nested doargs reach further out.
func (in *Interp) undoArgs(u *undoState) {
	undos := 0
	for h := in.aliasStack; h != noAlias; h = in.links[h].prev {
		l := in.links[h]
		switch {
		case l.usedArgs&undoFlag != 0:
			undos++
		case undos > 0:
			undos--
		default:
			caller := in.links[l.prev].usedArgs
			mask := l.usedArgs & allArgs
			for i := 0; mask>>uint(i) != 0; i++ {
				if mask&(1<<uint(i)) != 0 {
					id := in.byIndex[i]
					u.saved[i] = id.val
					in.popArg(id)
				}
			}
			u.active = true
			u.mask = mask
			u.callerUsed = caller
			u.handle = in.pushLink(l.id, undoFlag|caller)
			return
		}
	}
}

// redoArgs reinstates what undoArgs removed. Slots first bound inside the
// doargs body are unbound again before the frame's own values return.
func (in *Interp) redoArgs(u *undoState) {
	if !u.active {
		return
	}
	used := in.popLink(u.handle)
	extra := used &^ u.callerUsed & allArgs
	for i := MaxArgs - 1; i >= 0; i-- {
		if extra&(1<<uint(i)) != 0 {
			in.popArg(in.byIndex[i])
		}
	}
	for i := 0; u.mask>>uint(i) != 0; i++ {
		if u.mask&(1<<uint(i)) != 0 {
			in.pushArg(in.byIndex[i], u.saved[i])
			u.saved[i] = NullVal
		}
	}
	u.active = false
}
