package vm

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// String commands
// ---------------------------------------------------------------------------

func (in *Interp) registerStringCommands() {
	in.command("concat", "V", func(in *Interp, a []Value) {
		in.StrRet(concat(a, true))
	})
	in.command("concatword", "V", func(in *Interp, a []Value) {
		in.StrRet(concat(a, false))
	})
	in.command("format", "V", func(in *Interp, a []Value) {
		if len(a) == 0 {
			in.StrRet("")
			return
		}
		in.StrRet(formatArgs(a[0].GetStr(), a))
	})
	in.command("strlen", "s", func(in *Interp, a []Value) {
		in.IntRet(int32(len(a[0].GetStr())))
	})
	in.command("substr", "siiN", func(in *Interp, a []Value) {
		s := a[0].GetStr()
		offset := int(min(max(a[1].GetInt(), 0), int32(len(s))))
		n := len(s) - offset
		if a[3].GetInt() >= 3 {
			n = int(min(max(a[2].GetInt(), 0), int32(n)))
		}
		in.StrRet(s[offset : offset+n])
	})
	in.command("strstr", "ss", func(in *Interp, a []Value) {
		in.IntRet(int32(strings.Index(a[0].GetStr(), a[1].GetStr())))
	})
	in.command("strreplace", "sss", func(in *Interp, a []Value) {
		if a[1].GetStr() == "" {
			in.StrRet(a[0].GetStr())
			return
		}
		in.StrRet(strings.ReplaceAll(a[0].GetStr(), a[1].GetStr(), a[2].GetStr()))
	})
	in.command("strlower", "s", func(in *Interp, a []Value) {
		in.StrRet(strings.ToLower(a[0].GetStr()))
	})
	in.command("strupper", "s", func(in *Interp, a []Value) {
		in.StrRet(strings.ToUpper(a[0].GetStr()))
	})
	in.command("escape", "s", func(in *Interp, a []Value) {
		in.StrRet(EscapeString(a[0].GetStr()))
	})
	in.command("unescape", "s", func(in *Interp, a []Value) {
		in.StrRet(unescapeString(a[0].GetStr()))
	})
	in.command("tohex", "ii", func(in *Interp, a []Value) {
		in.StrRet(fmt.Sprintf("0x%.*X", int(max(a[1].GetInt(), 1)), uint32(a[0].GetInt())))
	})
}

// formatArgs expands %1..%9 in f with the matching argument. Any other
// character after % is copied as is.
func formatArgs(f string, args []Value) string {
	var sb strings.Builder
	sb.Grow(len(f))
	for i := 0; i < len(f); i++ {
		c := f[i]
		if c != '%' {
			sb.WriteByte(c)
			continue
		}
		i++
		if i >= len(f) {
			break
		}
		if d := f[i]; d >= '1' && d <= '9' {
			if k := int(d - '0'); k < len(args) {
				sb.WriteString(args[k].GetStr())
			}
		} else {
			sb.WriteByte(d)
		}
	}
	return sb.String()
}
