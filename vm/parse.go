package vm

import "strings"

// ---------------------------------------------------------------------------
// Lexical helpers shared by the compiler and the list commands
// ---------------------------------------------------------------------------

// parser is a cursor over source text. Reading past the end yields 0.
type parser struct {
	src  string
	pos  int
	name string
}

func (p *parser) peek(k int) byte {
	if i := p.pos + k; i < len(p.src) {
		return p.src[i]
	}
	return 0
}

// next consumes one byte. At the end it returns 0 without moving.
func (p *parser) next() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	c := p.src[p.pos]
	p.pos++
	return c
}

// line returns the 1-based line number of the cursor.
func (p *parser) line() int {
	return strings.Count(p.src[:min(p.pos, len(p.src))], "\n") + 1
}

// skipTo advances to the first byte of set, or the end.
func (p *parser) skipTo(set string) {
	if i := strings.IndexAny(p.src[min(p.pos, len(p.src)):], set); i >= 0 {
		p.pos += i
	} else {
		p.pos = len(p.src)
	}
}

// skipComments skips blanks and // comments, stopping at a newline.
func (p *parser) skipComments() {
	for {
		for p.pos < len(p.src) {
			c := p.src[p.pos]
			if c != ' ' && c != '\t' && c != '\r' {
				break
			}
			p.pos++
		}
		if p.peek(0) != '/' || p.peek(1) != '/' {
			return
		}
		p.skipTo("\n")
	}
}

// cutString reads a quoted string at the cursor and returns it unescaped.
func (p *parser) cutString() string {
	start := p.pos + 1
	end := parseString(p.src, start)
	p.pos = end
	if p.peek(0) == '"' {
		p.pos++
	}
	return unescapeString(p.src[start:end])
}

// cutQuoted reads a quoted string at the cursor and returns it raw.
func (p *parser) cutQuoted() string {
	start := p.pos + 1
	end := parseString(p.src, start)
	p.pos = end
	if p.peek(0) == '"' {
		p.pos++
	}
	return p.src[start:end]
}

// cutWord reads a bare word at the cursor.
func (p *parser) cutWord() (string, bool) {
	start := p.pos
	p.pos = parseWord(p.src, start)
	return p.src[start:p.pos], p.pos > start
}

// parseString returns the index of the byte that ends the string body
// starting at i: a closing quote, a line break or the end of s. A caret
// escapes the byte after it.
func parseString(s string, i int) int {
	for i < len(s) {
		switch s[i] {
		case '\r', '\n', '"':
			return i
		case '^':
			i++
			if i >= len(s) {
				return i
			}
			if s[i] == '\r' || s[i] == '\n' {
				return i
			}
		}
		i++
	}
	return i
}

// parseWord returns the index just past the bare word starting at i.
// Brackets and parentheses inside a word must balance.
func parseWord(s string, i int) int {
	for i < len(s) {
		switch c := s[i]; c {
		case '"', ';', ' ', '\t', '\r', '\n':
			return i
		case '/':
			if i+1 < len(s) && s[i+1] == '/' {
				return i
			}
		case '[':
			j := parseWord(s, i+1)
			if j >= len(s) || s[j] != ']' {
				return j
			}
			i = j
		case '(':
			j := parseWord(s, i+1)
			if j >= len(s) || s[j] != ')' {
				return j
			}
			i = j
		case ']', ')':
			return i
		}
		i++
	}
	return i
}

// unescapeString resolves caret escapes: ^n ^t ^f ^" ^^ and an escaped
// line break, which is dropped.
func unescapeString(s string) string {
	if strings.IndexByte(s, '^') < 0 && strings.IndexByte(s, '\r') < 0 {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\r':
			continue
		case '^':
			i++
			if i >= len(s) {
				return sb.String()
			}
			switch e := s[i]; e {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'f':
				sb.WriteByte('\f')
			case '\r':
				if i+1 < len(s) && s[i+1] == '\n' {
					i++
				}
			case '\n':
			default:
				sb.WriteByte(e)
			}
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

// EscapeString quotes s so that it reads back as the same string.
func EscapeString(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\n':
			sb.WriteString("^n")
		case '\t':
			sb.WriteString("^t")
		case '\f':
			sb.WriteString("^f")
		case '"':
			sb.WriteString("^\"")
		case '^':
			sb.WriteString("^^")
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

func isPunct(c byte) bool {
	return c > ' ' && c < 0x7F && !isAlnum(c)
}

// ---------------------------------------------------------------------------
// Lists
// ---------------------------------------------------------------------------

// listElem is one element of a whitespace separated list. quoted elements
// are unescaped when read.
type listElem struct {
	text   string
	quoted bool
}

func (e listElem) String() string {
	if e.quoted {
		return unescapeString(e.text)
	}
	return e.text
}

// nextListElem reads the list element at or after i and returns it with the
// index where scanning should resume.
func nextListElem(s string, i int) (listElem, int, bool) {
	for {
		for i < len(s) && strings.IndexByte(" \t\r\n", s[i]) >= 0 {
			i++
		}
		if i+1 < len(s) && s[i] == '/' && s[i+1] == '/' {
			if j := strings.IndexByte(s[i:], '\n'); j >= 0 {
				i += j
			} else {
				i = len(s)
			}
			continue
		}
		break
	}
	if i >= len(s) {
		return listElem{}, i, false
	}
	switch s[i] {
	case '"':
		start := i + 1
		end := parseString(s, start)
		next := end
		if next < len(s) && s[next] == '"' {
			next++
		}
		return listElem{text: s[start:end], quoted: true}, next, true
	case '(', '[':
		open, close := s[i], byte(')')
		if open == '[' {
			close = ']'
		}
		start := i + 1
		depth := 1
		j := start
		for j < len(s) && depth > 0 {
			switch c := s[j]; c {
			case '"':
				j = parseString(s, j+1)
				if j < len(s) && s[j] == '"' {
					j++
				}
				continue
			case '/':
				if j+1 < len(s) && s[j+1] == '/' {
					if k := strings.IndexByte(s[j:], '\n'); k >= 0 {
						j += k
					} else {
						j = len(s)
					}
					continue
				}
			case open:
				depth++
			case close:
				depth--
			}
			j++
		}
		end := j
		if depth == 0 {
			end = j - 1
		}
		return listElem{text: s[start:end]}, j, true
	}
	start := i
	end := parseWord(s, i)
	if end == start {
		// A stray closing bracket: consume it so scanning moves on.
		end++
	}
	return listElem{text: s[start:end]}, end, true
}

// parseList splits s into its elements.
func parseList(s string) []string {
	var out []string
	for i := 0; ; {
		e, next, ok := nextListElem(s, i)
		if !ok {
			return out
		}
		out = append(out, e.String())
		i = next
	}
}
