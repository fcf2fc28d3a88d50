package vm

import (
	"strings"

	"github.com/chazu/cubescript/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Compiler: CubeScript source to bytecode in a single pass
// ---------------------------------------------------------------------------
//
// Word types steer how each argument is compiled. TypeAny and the types
// above it are requests ("whatever fits", "a code block", "an identifier")
// rather than value tags.

// compiler emits into one block. Nested block literals are emitted inline
// and executed in place by BLOCK/OFFSET, so a whole source compiles to one
// word stream.
type compiler struct {
	in   *Interp
	code *bytecode.Block
}

func (in *Interp) compileMain(src, name string, ret Type) *bytecode.Block {
	c := &compiler{in: in, code: bytecode.NewBlock()}
	c.code.Name = name
	c.statements(&parser{src: src, name: name}, TypeAny, 0, 0)
	c.code.EmitOp(bytecode.OpExit, retAny(ret), 0)
	return c.code
}

// ret helpers: the tag an instruction carries when its result is wanted as
// word type t, with def used for the request types.

func retAny(t Type) bytecode.Ret {
	if t >= TypeAny {
		if t == TypeCStr {
			return bytecode.RetStr
		}
		return bytecode.RetNull
	}
	return t.ret()
}

func retInt(t Type) bytecode.Ret {
	if t >= TypeAny {
		if t == TypeCStr {
			return bytecode.RetStr
		}
		return bytecode.RetInt
	}
	return t.ret()
}

func retFloat(t Type) bytecode.Ret {
	if t >= TypeAny {
		if t == TypeCStr {
			return bytecode.RetStr
		}
		return bytecode.RetFloat
	}
	return t.ret()
}

func retStr(t Type) bytecode.Ret {
	if t >= TypeAny {
		return bytecode.RetStr
	}
	return t.ret()
}

func (c *compiler) warnf(p *parser, format string, args ...any) {
	if p.name != "" {
		c.in.debugf("%s:%d: "+format, append([]any{p.name, p.line()}, args...)...)
		return
	}
	c.in.debugf(format, args...)
}

// ---------------------------------------------------------------------------
// Literals
// ---------------------------------------------------------------------------

func (c *compiler) emitNull() {
	c.code.EmitOp(bytecode.OpValI, bytecode.RetNull, 0)
}

func (c *compiler) emitStr(s string, macro bool) {
	if macro {
		c.code.EmitMacro(s)
	} else {
		c.code.EmitString(s)
	}
}

func (c *compiler) emitIdent(id *Ident) {
	op := bytecode.OpIdent
	if id.Index < MaxArgs {
		op = bytecode.OpIdentArg
	}
	c.code.EmitOp(op, bytecode.RetNull, uint32(id.Index))
}

// emitBlock compiles p as a nested block literal, or EMPTY when it has no
// statements. A nil parser yields EMPTY.
func (c *compiler) emitBlock(p *parser, ret bytecode.Ret, brak byte) {
	start := c.code.BeginBlock()
	if p != nil {
		c.statements(p, TypeAny, brak, 0)
	}
	if c.code.Len() > start+2 {
		c.code.EndBlock(start, ret)
		return
	}
	c.code.Truncate(start)
	c.code.EmitOp(bytecode.OpEmpty, ret, 0)
}

func (c *compiler) emitBlockText(s string, name string) {
	c.emitBlock(&parser{src: s, name: name}, bytecode.RetNull, 0)
}

// emitVal compiles word as an argument of word type t.
func (c *compiler) emitVal(t Type, word string, name string) {
	switch t {
	case TypeCAny:
		if word != "" {
			c.emitStr(word, true)
		} else {
			c.emitNull()
		}
	case TypeCStr:
		c.emitStr(word, true)
	case TypeAny:
		if word != "" {
			c.emitStr(word, false)
		} else {
			c.emitNull()
		}
	case TypeStr:
		c.emitStr(word, false)
	case TypeFloat:
		c.code.EmitFloat(ParseFloat(word))
	case TypeInt:
		c.code.EmitInt(ParseInt(word))
	case TypeCond:
		if word != "" {
			c.emitBlockText(word, name)
		} else {
			c.emitNull()
		}
	case TypeCode:
		c.emitBlockText(word, name)
	case TypeIdent:
		c.emitIdent(c.in.newIdent(word, FlagUnknown))
	case TypePop:
	default:
		c.emitStr(word, false)
	}
}

// ---------------------------------------------------------------------------
// Lookups and block literals
// ---------------------------------------------------------------------------

// lookup compiles $name, $"name", $(expr), $[text] and $$name.
func (c *compiler) lookup(p *parser, ltype Type, prevargs int) {
	p.pos++
	var name string
	switch p.peek(0) {
	case '(', '[':
		if !c.arg(p, TypeCStr, prevargs, nil) {
			c.invalidLookup(ltype)
			return
		}
		c.emitLookupU(ltype)
		return
	case '$':
		c.lookup(p, TypeCStr, prevargs)
		c.emitLookupU(ltype)
		return
	case '"':
		name = p.cutQuoted()
	default:
		w, ok := p.cutWord()
		if !ok {
			c.invalidLookup(ltype)
			return
		}
		name = w
	}

	id := c.in.newIdent(name, FlagUnknown)
	switch id.Kind {
	case KindVar, KindFloatVar:
		if ltype == TypePop {
			return
		}
		if id.Kind == KindVar {
			c.code.EmitOp(bytecode.OpIVar, retInt(ltype), uint32(id.Index))
		} else {
			c.code.EmitOp(bytecode.OpFVar, retFloat(ltype), uint32(id.Index))
		}
		switch ltype {
		case TypeCode:
			c.code.EmitOp(bytecode.OpCompile, bytecode.RetNull, 0)
		case TypeIdent:
			c.code.EmitOp(bytecode.OpIdentU, bytecode.RetNull, 0)
		}
		return
	case KindStringVar:
		switch ltype {
		case TypePop:
			return
		case TypeCAny, TypeCStr, TypeCode, TypeIdent, TypeCond:
			c.code.EmitOp(bytecode.OpSVarM, bytecode.RetNull, uint32(id.Index))
		default:
			c.code.EmitOp(bytecode.OpSVar, retStr(ltype), uint32(id.Index))
		}
		c.lookupTail(ltype)
		return
	case KindAlias:
		switch ltype {
		case TypePop:
			return
		case TypeCAny, TypeCond:
			c.emitLookup(bytecode.OpLookupMArg, bytecode.OpLookupM, bytecode.RetNull, id)
		case TypeCStr, TypeCode, TypeIdent:
			c.emitLookup(bytecode.OpLookupMArg, bytecode.OpLookupM, bytecode.RetStr, id)
		default:
			c.emitLookup(bytecode.OpLookupArg, bytecode.OpLookup, retStr(ltype), id)
		}
		c.lookupTail(ltype)
		return
	case KindCommand:
		c.lookupCommand(id, ltype, prevargs)
		return
	}
	c.invalidLookup(ltype)
}

// invalidLookup stands in for a $ with nothing usable after it.
func (c *compiler) invalidLookup(ltype Type) {
	switch ltype {
	case TypePop:
	case TypeNull, TypeAny, TypeCAny, TypeWord, TypeCond:
		c.emitNull()
	default:
		c.emitVal(ltype, "", "")
	}
}

func (c *compiler) emitLookup(argOp, op bytecode.Op, ret bytecode.Ret, id *Ident) {
	if id.Index < MaxArgs {
		op = argOp
	}
	c.code.EmitOp(op, ret, uint32(id.Index))
}

// lookupTail converts a looked-up value to what the word type needs.
func (c *compiler) lookupTail(ltype Type) {
	switch ltype {
	case TypePop:
		c.code.EmitOp(bytecode.OpPop, bytecode.RetNull, 0)
	case TypeCode:
		c.code.EmitOp(bytecode.OpCompile, bytecode.RetNull, 0)
	case TypeCond:
		c.code.EmitOp(bytecode.OpCond, bytecode.RetNull, 0)
	case TypeIdent:
		c.code.EmitOp(bytecode.OpIdentU, bytecode.RetNull, 0)
	}
}

func (c *compiler) emitLookupU(ltype Type) {
	switch ltype {
	case TypeCAny, TypeCond:
		c.code.EmitOp(bytecode.OpLookupMU, bytecode.RetNull, 0)
	case TypeCStr, TypeCode, TypeIdent:
		c.code.EmitOp(bytecode.OpLookupMU, bytecode.RetStr, 0)
	default:
		c.code.EmitOp(bytecode.OpLookupU, retAny(ltype), 0)
	}
	c.lookupTail(ltype)
}

// lookupCommand compiles $cmd: a call with every argument defaulted.
func (c *compiler) lookupCommand(id *Ident, ltype Type, prevargs int) {
	comtype := bytecode.OpCom
	numargs := 0
	if prevargs >= MaxResults {
		c.code.EmitOp(bytecode.OpEnter, bytecode.RetNull, 0)
	}
	for _, f := range []byte(id.Args) {
		switch f {
		case 's', 'S':
			c.emitStr("", f == 's')
			numargs++
		case 'i':
			c.code.EmitInt(0)
			numargs++
		case 'b':
			c.code.EmitInt(-1 << 31)
			numargs++
		case 'f':
			c.code.EmitFloat(0)
			numargs++
		case 'F':
			c.emitFloatDup(numargs)
			numargs++
		case 'E', 'T', 't':
			c.emitNull()
			numargs++
		case 'e':
			c.emitBlock(nil, bytecode.RetNull, 0)
			numargs++
		case 'r':
			c.emitIdent(c.in.dummy)
			numargs++
		case '$':
			c.emitIdent(id)
			numargs++
		case 'N':
			c.code.EmitInt(-1)
			numargs++
		case 'D':
			comtype = bytecode.OpComD
			numargs++
		case 'C':
			comtype = bytecode.OpComC
		case 'V':
			comtype = bytecode.OpComV
		}
	}
	switch comtype {
	case bytecode.OpComC, bytecode.OpComV:
		c.code.EmitCall(comtype, retAny(ltype), numargs, id.Index)
	default:
		c.code.EmitOp(comtype, retAny(ltype), uint32(id.Index))
	}
	if prevargs >= MaxResults {
		c.code.EmitOp(bytecode.OpExit, retAny(ltype), 0)
	} else {
		c.code.EmitOp(bytecode.OpResultArg, retAny(ltype), 0)
	}
	c.lookupTail(ltype)
}

// blockText emits the raw text of a block segment as a string, dropping
// carriage returns and // comments outside strings.
func (c *compiler) blockText(seg string, macro bool) {
	var sb strings.Builder
	sb.Grow(len(seg))
	for i := 0; i < len(seg); {
		ch := seg[i]
		switch {
		case ch == '\r':
			i++
		case ch == '"':
			j := parseString(seg, i+1)
			if j < len(seg) && seg[j] == '"' {
				j++
			}
			sb.WriteString(seg[i:j])
			i = j
		case ch == '/' && i+1 < len(seg) && seg[i+1] == '/':
			j := strings.IndexByte(seg[i:], '\n')
			if j < 0 {
				j = len(seg)
			} else {
				j += i
			}
			if i+2 < len(seg) && isPunct(seg[i+2]) {
				sb.WriteString(seg[i:j])
			}
			i = j
		default:
			sb.WriteByte(ch)
			i++
		}
	}
	c.emitStr(sb.String(), macro)
}

// blockSub compiles the expression after an @ inside a block literal.
func (c *compiler) blockSub(p *parser, prevargs int) bool {
	var name string
	switch p.peek(0) {
	case '(':
		return c.arg(p, TypeCAny, prevargs, nil)
	case '[':
		if !c.arg(p, TypeCStr, prevargs, nil) {
			return false
		}
		c.code.EmitOp(bytecode.OpLookupMU, bytecode.RetNull, 0)
		return true
	case '"':
		name = p.cutQuoted()
	default:
		start := p.pos
		for isAlnum(p.peek(0)) || p.peek(0) == '_' {
			p.pos++
		}
		if p.pos == start {
			return false
		}
		name = p.src[start:p.pos]
	}

	id := c.in.newIdent(name, FlagUnknown)
	switch id.Kind {
	case KindVar:
		c.code.EmitOp(bytecode.OpIVar, bytecode.RetNull, uint32(id.Index))
	case KindFloatVar:
		c.code.EmitOp(bytecode.OpFVar, bytecode.RetNull, uint32(id.Index))
	case KindStringVar:
		c.code.EmitOp(bytecode.OpSVarM, bytecode.RetNull, uint32(id.Index))
	case KindAlias:
		c.emitLookup(bytecode.OpLookupMArg, bytecode.OpLookupM, bytecode.RetNull, id)
	default:
		c.emitStr(name, true)
		c.code.EmitOp(bytecode.OpLookupMU, bytecode.RetNull, 0)
	}
	return true
}

// blockMain compiles a [bracketed] literal whose opening bracket has been
// consumed. @ at the bracket depth of the literal splices in the value of
// the following expression.
func (c *compiler) blockMain(p *parser, wordtype Type, prevargs int) {
	start := p.pos
	end := -1
	concs := 0
	for brak := 1; brak > 0; {
		p.skipTo("@\"/[]")
		switch p.next() {
		case 0:
			c.warnf(p, "missing \"]\"")
			end = len(p.src)
			brak = 0
		case '"':
			p.pos = parseString(p.src, p.pos)
			if p.peek(0) == '"' {
				p.pos++
			}
		case '/':
			if p.peek(0) == '/' {
				p.skipTo("\n")
			}
		case '[':
			brak++
		case ']':
			brak--
			if brak == 0 {
				end = p.pos - 1
			}
		case '@':
			esc := p.pos
			for p.peek(0) == '@' {
				p.pos++
			}
			level := p.pos - (esc - 1)
			if brak > level {
				continue
			}
			if brak < level {
				c.warnf(p, "too many @s")
			}
			if concs == 0 && prevargs >= MaxResults {
				c.code.EmitOp(bytecode.OpEnter, bytecode.RetNull, 0)
			}
			if concs+2 > MaxArgs {
				c.code.EmitOp(bytecode.OpConcW, bytecode.RetStr, uint32(concs))
				concs = 1
			}
			c.blockText(p.src[start:esc-1], true)
			concs++
			if c.blockSub(p, prevargs+concs) {
				concs++
			}
			start = p.pos
		}
	}

	if end > start {
		if concs == 0 {
			switch wordtype {
			case TypePop:
				return
			case TypeCode, TypeCond:
				c.emitBlock(&parser{src: p.src[:end], pos: start, name: p.name}, bytecode.RetNull, 0)
				return
			case TypeIdent:
				c.emitIdent(c.in.newIdent(p.src[start:end], FlagUnknown))
				return
			}
		}
		switch wordtype {
		case TypeCStr, TypeCode, TypeIdent, TypeCAny, TypeCond:
			c.blockText(p.src[start:end], true)
		default:
			c.blockText(p.src[start:end], concs > 0)
		}
		if concs > 0 {
			concs++
		}
	}
	empty := concs == 0 && end <= start
	if concs > 0 {
		if prevargs >= MaxResults {
			c.code.EmitOp(bytecode.OpConcM, retAny(wordtype), uint32(concs))
			c.code.EmitOp(bytecode.OpExit, retAny(wordtype), 0)
		} else {
			c.code.EmitOp(bytecode.OpConcW, retAny(wordtype), uint32(concs))
		}
	}
	switch wordtype {
	case TypePop:
		if !empty {
			c.code.EmitOp(bytecode.OpPop, bytecode.RetNull, 0)
		}
	case TypeCond:
		if empty {
			c.emitNull()
		} else {
			c.code.EmitOp(bytecode.OpCond, bytecode.RetNull, 0)
		}
	case TypeCode:
		if empty {
			c.emitBlock(nil, bytecode.RetNull, 0)
		} else {
			c.code.EmitOp(bytecode.OpCompile, bytecode.RetNull, 0)
		}
	case TypeIdent:
		if empty {
			c.emitIdent(c.in.dummy)
		} else {
			c.code.EmitOp(bytecode.OpIdentU, bytecode.RetNull, 0)
		}
	case TypeCStr, TypeCAny:
		if empty {
			c.emitStr("", true)
		}
	case TypeStr, TypeNull, TypeAny, TypeWord:
		if empty {
			c.emitStr("", false)
		}
	default:
		if concs == 0 {
			if end <= start {
				c.emitVal(wordtype, "", p.name)
			} else {
				c.code.EmitOp(bytecode.OpForce, wordtype.ret(), 0)
			}
		}
	}
}

// ---------------------------------------------------------------------------
// Arguments
// ---------------------------------------------------------------------------

// arg compiles one argument of word type t. For TypeWord a bare word is
// returned through word instead of being emitted. It reports whether an
// argument was found.
func (c *compiler) arg(p *parser, t Type, prevargs int, word *string) bool {
	p.skipComments()
	switch p.peek(0) {
	case '"':
		switch t {
		case TypePop:
			p.pos = parseString(p.src, p.pos+1)
			if p.peek(0) == '"' {
				p.pos++
			}
		case TypeCond:
			if s := p.cutString(); s != "" {
				c.emitBlockText(s, p.name)
			} else {
				c.emitNull()
			}
		case TypeCode:
			c.emitBlockText(p.cutString(), p.name)
		case TypeWord:
			if s := p.cutString(); s != "" {
				*word = s
			} else {
				c.emitStr("", true)
			}
		case TypeAny, TypeStr:
			c.emitStr(p.cutString(), false)
		case TypeCAny, TypeCStr:
			c.emitStr(p.cutString(), true)
		default:
			c.emitVal(t, p.cutString(), p.name)
		}
		return true
	case '$':
		c.lookup(p, t, prevargs)
		return true
	case '(':
		p.pos++
		inner := TypeAny
		if t > TypeAny {
			inner = TypeCAny
		}
		if prevargs >= MaxResults {
			c.code.EmitOp(bytecode.OpEnter, bytecode.RetNull, 0)
			c.statements(p, inner, ')', 0)
			c.code.EmitOp(bytecode.OpExit, retAny(t), 0)
		} else {
			start := c.code.Len()
			c.statements(p, inner, ')', prevargs)
			if c.code.Len() > start {
				c.code.EmitOp(bytecode.OpResultArg, retAny(t), 0)
			} else {
				c.emitVal(t, "", p.name)
				return true
			}
		}
		switch t {
		case TypePop:
			c.code.EmitOp(bytecode.OpPop, bytecode.RetNull, 0)
		case TypeCond:
			c.code.EmitOp(bytecode.OpCond, bytecode.RetNull, 0)
		case TypeCode:
			c.code.EmitOp(bytecode.OpCompile, bytecode.RetNull, 0)
		case TypeIdent:
			c.code.EmitOp(bytecode.OpIdentU, bytecode.RetNull, 0)
		}
		return true
	case '[':
		p.pos++
		c.blockMain(p, t, prevargs)
		return true
	}

	switch t {
	case TypePop:
		start := p.pos
		p.pos = parseWord(p.src, p.pos)
		return p.pos != start
	case TypeCond, TypeCode:
		s, ok := p.cutWord()
		if !ok {
			return false
		}
		c.emitBlockText(s, p.name)
		return true
	case TypeWord:
		s, ok := p.cutWord()
		if !ok {
			return false
		}
		*word = s
		return true
	}
	s, ok := p.cutWord()
	if !ok {
		return false
	}
	c.emitVal(t, s, p.name)
	return true
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// statements compiles statements until brak or the end of input. The value
// of each statement becomes the block result as word type rettype.
func (c *compiler) statements(p *parser, rettype Type, brak byte, prevargs int) {
	for {
		more := c.statement(p, rettype, prevargs)
		if c.endStatement(p, more, brak, prevargs) {
			return
		}
	}
}

// endStatement skips trailing arguments and the separator. It reports true
// when the enclosing statement list is finished.
func (c *compiler) endStatement(p *parser, more bool, brak byte, prevargs int) bool {
	if more {
		for c.arg(p, TypePop, prevargs, nil) {
		}
	}
	for {
		p.skipTo(")];/\n")
		switch ch := p.next(); ch {
		case 0:
			if brak != 0 {
				c.warnf(p, "missing \"%c\"", brak)
			}
			return true
		case ')', ']':
			if ch == brak {
				return true
			}
			c.warnf(p, "unexpected \"%c\"", ch)
			return false
		case '/':
			if p.peek(0) == '/' {
				p.skipTo("\n")
			}
			continue
		}
		return false
	}
}

// statement compiles one statement and reports whether arguments may
// remain on the line.
func (c *compiler) statement(p *parser, rettype Type, prevargs int) bool {
	var idname string
	numargs := 0
	more := c.arg(p, TypeWord, prevargs, &idname)
	if !more {
		return false
	}

	p.skipComments()
	if p.peek(0) == '=' {
		switch p.peek(1) {
		case '/':
			if p.peek(2) != '/' {
				break
			}
			fallthrough
		case ';', ' ', '\t', '\r', '\n', 0:
			p.pos++
			return c.assignment(p, idname, prevargs)
		}
	}

	if idname == "" {
		return c.callUnknown(p, rettype, prevargs, numargs)
	}

	id := c.in.Find(idname)
	if id == nil {
		if !CheckNumber(idname) {
			c.emitStr(idname, true)
			return c.callUnknown(p, rettype, prevargs, numargs)
		}
		switch rettype {
		case TypeAny, TypeCAny:
			if v, end := parseUint(idname); end == len(idname) {
				c.code.EmitInt(int32(uint32(v)))
			} else {
				c.emitStr(idname, rettype == TypeCAny)
			}
		default:
			c.emitVal(rettype, idname, p.name)
		}
		c.code.EmitOp(bytecode.OpResult, bytecode.RetNull, 0)
		return true
	}

	switch id.Kind {
	case KindAlias:
		op := bytecode.OpCall
		if id.Index < MaxArgs {
			op = bytecode.OpCallArg
		}
		for numargs < MaxArgs {
			if more = c.arg(p, TypeAny, prevargs+numargs, nil); !more {
				break
			}
			numargs++
		}
		c.code.EmitCall(op, retAny(rettype), numargs, id.Index)
	case KindCommand:
		more = c.command(p, id, rettype, prevargs)
	case KindLocal:
		if more {
			for numargs < MaxArgs {
				if more = c.arg(p, TypeIdent, prevargs+numargs, nil); !more {
					break
				}
				numargs++
			}
		}
		if more {
			for c.arg(p, TypePop, prevargs, nil) {
			}
			more = false
		}
		c.code.EmitOp(bytecode.OpLocal, bytecode.RetNull, uint32(numargs))
	case KindDo, KindDoArgs:
		if more {
			more = c.arg(p, TypeCode, prevargs, nil)
		}
		switch {
		case !more:
			c.code.EmitOp(bytecode.OpNull, retAny(rettype), 0)
		case id.Kind == KindDo:
			c.code.EmitOp(bytecode.OpDo, retAny(rettype), 0)
		default:
			c.code.EmitOp(bytecode.OpDoArgs, retAny(rettype), 0)
		}
	case KindIf:
		more = c.compileIf(p, id, rettype, prevargs)
	case KindResult:
		if more {
			more = c.arg(p, TypeAny, prevargs, nil)
		}
		if more {
			c.code.EmitOp(bytecode.OpResult, retAny(rettype), 0)
		} else {
			c.code.EmitOp(bytecode.OpNull, retAny(rettype), 0)
		}
	case KindNot:
		if more {
			more = c.arg(p, TypeCAny, prevargs, nil)
		}
		if !more {
			c.code.EmitOp(bytecode.OpTrue, retAny(rettype), 0)
		} else {
			c.code.EmitOp(bytecode.OpNot, retAny(rettype), 0)
		}
	case KindAnd, KindOr:
		more = c.compileAndOr(p, id, rettype, prevargs)
	case KindVar:
		if more {
			more = c.arg(p, TypeInt, prevargs, nil)
		}
		if !more {
			c.code.EmitOp(bytecode.OpPrint, bytecode.RetNull, uint32(id.Index))
		} else if id.Flags&FlagHex == 0 {
			c.code.EmitOp(bytecode.OpIVar1, bytecode.RetNull, uint32(id.Index))
		} else if more = c.arg(p, TypeInt, prevargs+1, nil); !more {
			c.code.EmitOp(bytecode.OpIVar1, bytecode.RetNull, uint32(id.Index))
		} else if more = c.arg(p, TypeInt, prevargs+2, nil); !more {
			c.code.EmitOp(bytecode.OpIVar2, bytecode.RetNull, uint32(id.Index))
		} else {
			c.code.EmitOp(bytecode.OpIVar3, bytecode.RetNull, uint32(id.Index))
		}
	case KindFloatVar:
		if more {
			more = c.arg(p, TypeFloat, prevargs, nil)
		}
		if !more {
			c.code.EmitOp(bytecode.OpPrint, bytecode.RetNull, uint32(id.Index))
		} else {
			c.code.EmitOp(bytecode.OpFVar1, bytecode.RetNull, uint32(id.Index))
		}
	case KindStringVar:
		if more {
			more = c.arg(p, TypeCStr, prevargs, nil)
		}
		if !more {
			c.code.EmitOp(bytecode.OpPrint, bytecode.RetNull, uint32(id.Index))
		} else {
			for numargs = 1; numargs < MaxArgs; numargs++ {
				if more = c.arg(p, TypeCAny, prevargs+numargs, nil); !more {
					break
				}
			}
			if numargs > 1 {
				c.code.EmitOp(bytecode.OpConc, bytecode.RetStr, uint32(numargs))
			}
			c.code.EmitOp(bytecode.OpSVar1, bytecode.RetNull, uint32(id.Index))
		}
	}
	return more
}

// assignment compiles "name = value" after the = has been consumed.
func (c *compiler) assignment(p *parser, idname string, prevargs int) bool {
	if idname != "" {
		id := c.in.newIdent(idname, FlagUnknown)
		switch id.Kind {
		case KindAlias:
			more := c.arg(p, TypeAny, prevargs, nil)
			if !more {
				c.emitStr("", false)
			}
			op := bytecode.OpAlias
			if id.Index < MaxArgs {
				op = bytecode.OpAliasArg
			}
			c.code.EmitOp(op, bytecode.RetNull, uint32(id.Index))
			return more
		case KindVar:
			more := c.arg(p, TypeInt, prevargs, nil)
			if !more {
				c.code.EmitInt(0)
			}
			c.code.EmitOp(bytecode.OpIVar1, bytecode.RetNull, uint32(id.Index))
			return more
		case KindFloatVar:
			more := c.arg(p, TypeFloat, prevargs, nil)
			if !more {
				c.code.EmitFloat(0)
			}
			c.code.EmitOp(bytecode.OpFVar1, bytecode.RetNull, uint32(id.Index))
			return more
		case KindStringVar:
			more := c.arg(p, TypeCStr, prevargs, nil)
			if !more {
				c.emitStr("", false)
			}
			c.code.EmitOp(bytecode.OpSVar1, bytecode.RetNull, uint32(id.Index))
			return more
		}
		c.emitStr(idname, true)
	}
	more := c.arg(p, TypeAny, prevargs+1, nil)
	if !more {
		c.emitStr("", false)
	}
	c.code.EmitOp(bytecode.OpAliasU, bytecode.RetNull, 0)
	return more
}

// callUnknown compiles a call whose target is resolved at run time. The
// callee's name is already on the stack.
func (c *compiler) callUnknown(p *parser, rettype Type, prevargs, numargs int) bool {
	more := true
	for numargs < MaxArgs {
		if more = c.arg(p, TypeCAny, prevargs+numargs+1, nil); !more {
			break
		}
		numargs++
	}
	c.code.EmitOp(bytecode.OpCallU, retAny(rettype), uint32(numargs))
	return more
}

// command compiles a call to a native command, shaping the arguments to its
// signature.
func (c *compiler) command(p *parser, id *Ident, rettype Type, prevargs int) bool {
	comtype := bytecode.OpCom
	numargs, fakeargs := 0, 0
	more := true
	rep := false
	sig := id.Args
	for f := 0; f < len(sig); f++ {
		letter := sig[f]
		switch letter {
		case 's':
			if more {
				more = c.arg(p, TypeCStr, prevargs+numargs, nil)
			}
			if !more {
				if rep {
					break
				}
				c.emitStr("", true)
				fakeargs++
			} else if f+1 == len(sig) {
				numconc := 1
				for numargs+numconc < MaxArgs {
					if more = c.arg(p, TypeCStr, prevargs+numargs+numconc, nil); !more {
						break
					}
					numconc++
				}
				if numconc > 1 {
					c.code.EmitOp(bytecode.OpConc, bytecode.RetStr, uint32(numconc))
				}
			}
			numargs++
		case 'i', 'b', 'f', 'F':
			t := TypeInt
			if letter == 'f' || letter == 'F' {
				t = TypeFloat
			}
			if more {
				more = c.arg(p, t, prevargs+numargs, nil)
			}
			if !more {
				if rep {
					break
				}
				switch letter {
				case 'i':
					c.code.EmitInt(0)
				case 'b':
					c.code.EmitInt(-1 << 31)
				case 'f':
					c.code.EmitFloat(0)
				case 'F':
					c.emitFloatDup(numargs)
				}
				fakeargs++
			}
			numargs++
		case 'S', 'T', 't', 'E', 'e', 'r':
			t := TypeStr
			switch letter {
			case 'T', 't':
				t = TypeCAny
			case 'E':
				t = TypeCond
			case 'e':
				t = TypeCode
			case 'r':
				t = TypeIdent
			}
			if more {
				more = c.arg(p, t, prevargs+numargs, nil)
			}
			if !more {
				if rep {
					break
				}
				switch letter {
				case 'S':
					c.emitStr("", false)
				case 'T', 't', 'E':
					c.emitNull()
				case 'e':
					c.emitBlock(nil, bytecode.RetNull, 0)
				case 'r':
					c.emitIdent(c.in.dummy)
				}
				fakeargs++
			}
			numargs++
		case '$':
			c.emitIdent(id)
			numargs++
		case 'N':
			c.code.EmitInt(int32(numargs - fakeargs))
			numargs++
		case 'D':
			comtype = bytecode.OpComD
			numargs++
		case 'C', 'V':
			if more {
				for numargs < MaxArgs {
					if more = c.arg(p, TypeCAny, prevargs+numargs, nil); !more {
						break
					}
					numargs++
				}
			}
			op := bytecode.OpComV
			if letter == 'C' {
				op = bytecode.OpComC
			}
			c.code.EmitCall(op, retAny(rettype), numargs, id.Index)
			return more
		case '1', '2', '3', '4':
			if more && numargs < MaxArgs {
				f -= int(letter-'0') + 1
				rep = true
			} else {
				for ; numargs > MaxArgs; numargs-- {
					c.code.EmitOp(bytecode.OpPop, bytecode.RetNull, 0)
				}
			}
		}
	}
	c.code.EmitOp(comtype, retAny(rettype), uint32(id.Index))
	return more
}

// emitFloatDup repeats the previous float argument, or 0 if there is none.
func (c *compiler) emitFloatDup(numargs int) {
	if numargs == 0 {
		c.code.EmitFloat(0)
		return
	}
	c.code.EmitOp(bytecode.OpDup, bytecode.RetFloat, 0)
}

// isBlockAt reports whether a complete block literal spans [start, end).
func (c *compiler) isBlockAt(start, end int) bool {
	w := c.code.Words[start]
	return bytecode.OpOf(w) == bytecode.OpBlock && int(bytecode.ArgOf(w)) == end-(start+1)
}

// inlineBlock turns the block literal at start into op followed by an
// inline body whose EXIT yields ret. It returns the literal's length.
func (c *compiler) inlineBlock(start int, op bytecode.Op, jump int, enter bytecode.Op, ret bytecode.Ret) int {
	words := c.code.Words
	n := int(bytecode.ArgOf(words[start]))
	words[start] = bytecode.Word(op, bytecode.RetNull, uint32(jump))
	words[start+1] = bytecode.Word(enter, bytecode.RetNull, 0)
	words[start+n] = words[start+n]&^bytecode.RetMask | uint32(ret)
	return n
}

// compileIf compiles if. Literal branches are first compiled as block
// literals, then their BLOCK headers are rewritten into jumps and their
// EXITs into the end of an ENTER_RESULT.
func (c *compiler) compileIf(p *parser, id *Ident, rettype Type, prevargs int) bool {
	ret := retAny(rettype)
	if !c.arg(p, TypeCAny, prevargs, nil) {
		c.code.EmitOp(bytecode.OpNull, ret, 0)
		return false
	}
	start1 := c.code.Len()
	if !c.arg(p, TypeCode, prevargs+1, nil) {
		c.code.EmitOp(bytecode.OpPop, bytecode.RetNull, 0)
		c.code.EmitOp(bytecode.OpNull, ret, 0)
		return false
	}
	start2 := c.code.Len()
	more := c.arg(p, TypeCode, prevargs+2, nil)
	end := c.code.Len()
	if !more {
		if c.isBlockAt(start1, start2) {
			c.inlineBlock(start1, bytecode.OpJumpFalse, start2-(start1+1), bytecode.OpEnterResult, ret)
			return false
		}
		c.emitBlock(nil, bytecode.RetNull, 0)
	} else if c.isBlockAt(start2, end) {
		switch {
		case c.isBlockAt(start1, start2):
			c.inlineBlock(start1, bytecode.OpJumpFalse, start2-start1, bytecode.OpEnterResult, ret)
			c.inlineBlock(start2, bytecode.OpJump, end-(start2+1), bytecode.OpEnterResult, ret)
			return true
		case start2 == start1+1 && bytecode.OpOf(c.code.Words[start1]) == bytecode.OpEmpty:
			c.code.Words[start1] = bytecode.Word(bytecode.OpNull, bytecode.RetOf(c.code.Words[start2]), 0)
			c.inlineBlock(start2, bytecode.OpJumpTrue, end-(start2+1), bytecode.OpEnterResult, ret)
			return true
		}
	}
	c.code.EmitOp(bytecode.OpCom, ret, uint32(id.Index))
	return more
}

// compileAndOr compiles && and ||. When every operand after the first is a
// block literal, the blocks are inlined behind result jumps that stop at
// the first false (&&) or true (||) operand.
func (c *compiler) compileAndOr(p *parser, id *Ident, rettype Type, prevargs int) bool {
	ret := retAny(rettype)
	if !c.arg(p, TypeCond, prevargs, nil) {
		op := bytecode.OpTrue
		if id.Kind == KindOr {
			op = bytecode.OpFalse
		}
		c.code.EmitOp(op, ret, 0)
		return false
	}
	numargs := 1
	start := c.code.Len()
	end := start
	more := true
	for numargs < MaxArgs {
		if more = c.arg(p, TypeCond, prevargs+numargs, nil); !more {
			break
		}
		numargs++
		if !c.isBlockAt(end, c.code.Len()) {
			break
		}
		end = c.code.Len()
	}
	if more {
		for numargs < MaxArgs {
			if more = c.arg(p, TypeCond, prevargs+numargs, nil); !more {
				break
			}
			numargs++
		}
		c.code.EmitCall(bytecode.OpComV, ret, numargs, id.Index)
		return more
	}

	op := bytecode.OpJumpResultFalse
	if id.Kind == KindOr {
		op = bytecode.OpJumpResultTrue
	}
	c.code.EmitOp(op, bytecode.RetNull, 0)
	end = c.code.Len()
	for start+1 < end {
		n := c.inlineBlock(start, op, end-(start+1), bytecode.OpEnter, ret)
		start += n + 1
	}
	return false
}
