package vm

// ---------------------------------------------------------------------------
// List commands
// ---------------------------------------------------------------------------
//
// A list is a string of whitespace separated elements. Quoted, [bracketed]
// and (parenthesized) elements count as one element each.

func (in *Interp) registerListCommands() {
	in.command("listlen", "s", func(in *Interp, a []Value) {
		in.IntRet(int32(listLen(a[0].GetStr())))
	})

	// at indexes into nested lists: "at $l 1 0" is element 0 of element 1.
	in.command("at", "si1V", func(in *Interp, a []Value) {
		if len(a) == 0 {
			return
		}
		cur := listElem{text: a[0].GetStr()}
		for _, idx := range a[1:] {
			e, ok := listAt(cur.text, int(idx.GetInt()))
			if !ok {
				cur = listElem{}
				break
			}
			cur = e
		}
		in.StrRet(cur.String())
	})

	in.command("sublist", "siiN", func(in *Interp, a []Value) {
		s := a[0].GetStr()
		skip := int(max(a[1].GetInt(), 0))
		count := -1
		if a[3].GetInt() >= 3 {
			count = int(max(a[2].GetInt(), 0))
		}
		in.StrRet(subList(s, skip, count))
	})

	in.command("listfind", "rse", func(in *Interp, a []Value) {
		id := a[0].Ident()
		if id == nil || id.Kind != KindAlias {
			in.IntRet(-1)
			return
		}
		it := iterator{id: id}
		defer it.done(in)
		n := int32(0)
		for i := 0; ; n++ {
			e, next, ok := nextListElem(a[1].GetStr(), i)
			if !ok {
				break
			}
			it.set(in, Str(e.String()))
			if in.execBool(a[2]) {
				in.IntRet(n)
				return
			}
			i = next
		}
		in.IntRet(-1)
	})

	in.command("looplist", "rse", func(in *Interp, a []Value) {
		id := a[0].Ident()
		if id == nil || id.Kind != KindAlias {
			return
		}
		it := iterator{id: id}
		defer it.done(in)
		s := a[1].GetStr()
		for i := 0; ; {
			e, next, ok := nextListElem(s, i)
			if !ok {
				return
			}
			it.set(in, Str(e.String()))
			in.exec(a[2])
			i = next
		}
	})
}

func listLen(s string) int {
	n := 0
	for i := 0; ; n++ {
		_, next, ok := nextListElem(s, i)
		if !ok {
			return n
		}
		i = next
	}
}

// listAt returns element pos of s.
func listAt(s string, pos int) (listElem, bool) {
	if pos < 0 {
		return listElem{}, false
	}
	for i := 0; ; pos-- {
		e, next, ok := nextListElem(s, i)
		if !ok {
			return listElem{}, false
		}
		if pos == 0 {
			return e, true
		}
		i = next
	}
}

// subList returns count elements of s after skipping skip, as source text.
// A negative count takes the rest of the list.
func subList(s string, skip, count int) string {
	i := 0
	for ; skip > 0; skip-- {
		_, next, ok := nextListElem(s, i)
		if !ok {
			return ""
		}
		i = next
	}
	start := -1
	end := i
	for ; count != 0; count-- {
		_, next, ok := nextListElem(s, i)
		if !ok {
			break
		}
		if start < 0 {
			start = skipListSpace(s, i)
		}
		end = next
		i = next
	}
	if start < 0 {
		return ""
	}
	return s[start:end]
}

// skipListSpace returns where the element at or after i begins.
func skipListSpace(s string, i int) int {
	for i < len(s) {
		switch s[i] {
		case ' ', '\t', '\r', '\n':
			i++
			continue
		case '/':
			if i+1 < len(s) && s[i+1] == '/' {
				for i < len(s) && s[i] != '\n' {
					i++
				}
				continue
			}
		}
		break
	}
	return i
}
