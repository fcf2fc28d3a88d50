package vm

import (
	"math"
	"strings"
)

// ---------------------------------------------------------------------------
// Arithmetic and comparison commands
// ---------------------------------------------------------------------------
//
// Arithmetic commands fold left over all their arguments. With a single
// argument the unary form applies (negation for -, complement for ^), and
// with none the operator's identity is returned. Comparisons chain: "< a b c"
// is true when a < b and b < c.

func (in *Interp) intFold(name string, init int32, unary func(int32) int32, op func(a, b int32) int32) {
	in.command(name, "i1V", func(in *Interp, a []Value) {
		if len(a) < 2 {
			val := init
			if len(a) > 0 {
				val = a[0].GetInt()
			}
			if unary != nil {
				val = unary(val)
			}
			in.IntRet(val)
			return
		}
		val := a[0].GetInt()
		for _, v := range a[1:] {
			val = op(val, v.GetInt())
		}
		in.IntRet(val)
	})
}

func (in *Interp) floatFold(name string, init float32, unary func(float32) float32, op func(a, b float32) float32) {
	in.command(name, "f1V", func(in *Interp, a []Value) {
		if len(a) < 2 {
			val := init
			if len(a) > 0 {
				val = a[0].GetFloat()
			}
			if unary != nil {
				val = unary(val)
			}
			in.FloatRet(val)
			return
		}
		val := a[0].GetFloat()
		for _, v := range a[1:] {
			val = op(val, v.GetFloat())
		}
		in.FloatRet(val)
	})
}

func (in *Interp) intCompare(name string, cmp func(a, b int32) bool) {
	in.command(name, "i1V", func(in *Interp, a []Value) {
		if len(a) < 2 {
			var x int32
			if len(a) > 0 {
				x = a[0].GetInt()
			}
			in.Ret(Bool(cmp(x, 0)))
			return
		}
		ok := true
		for i := 1; i < len(a) && ok; i++ {
			ok = cmp(a[i-1].GetInt(), a[i].GetInt())
		}
		in.Ret(Bool(ok))
	})
}

func (in *Interp) floatCompare(name string, cmp func(a, b float32) bool) {
	in.command(name, "f1V", func(in *Interp, a []Value) {
		if len(a) < 2 {
			var x float32
			if len(a) > 0 {
				x = a[0].GetFloat()
			}
			in.Ret(Bool(cmp(x, 0)))
			return
		}
		ok := true
		for i := 1; i < len(a) && ok; i++ {
			ok = cmp(a[i-1].GetFloat(), a[i].GetFloat())
		}
		in.Ret(Bool(ok))
	})
}

func (in *Interp) strCompare(name string, cmp func(c int) bool) {
	in.command(name, "s1V", func(in *Interp, a []Value) {
		if len(a) < 2 {
			var x string
			if len(a) > 0 {
				x = a[0].GetStr()
			}
			in.Ret(Bool(cmp(strings.Compare(x, ""))))
			return
		}
		ok := true
		for i := 1; i < len(a) && ok; i++ {
			ok = cmp(strings.Compare(a[i-1].GetStr(), a[i].GetStr()))
		}
		in.Ret(Bool(ok))
	})
}

func (in *Interp) registerMathCommands() {
	neg := func(v int32) int32 { return -v }
	not := func(v int32) int32 { return ^v }

	in.intFold("+", 0, nil, func(a, b int32) int32 { return a + b })
	in.intFold("*", 1, nil, func(a, b int32) int32 { return a * b })
	in.intFold("-", 0, neg, func(a, b int32) int32 { return a - b })
	in.intFold("^", 0, not, func(a, b int32) int32 { return a ^ b })
	in.intFold("&", 0, nil, func(a, b int32) int32 { return a & b })
	in.intFold("|", 0, nil, func(a, b int32) int32 { return a | b })
	in.intFold("^~", 0, nil, func(a, b int32) int32 { return a ^ ^b })
	in.intFold("&~", 0, nil, func(a, b int32) int32 { return a &^ b })
	in.intFold("|~", 0, nil, func(a, b int32) int32 { return a | ^b })
	in.intFold("<<", 0, nil, func(a, b int32) int32 {
		if b >= 32 {
			return 0
		}
		return a << uint(max(b, 0))
	})
	in.intFold(">>", 0, nil, func(a, b int32) int32 {
		return a >> uint(min(max(b, 0), 31))
	})
	in.intFold("div", 0, nil, func(a, b int32) int32 {
		if b == 0 {
			return 0
		}
		return a / b
	})
	in.intFold("mod", 0, nil, func(a, b int32) int32 {
		if b == 0 {
			return 0
		}
		return a % b
	})
	in.command("~", "i", func(in *Interp, a []Value) {
		in.IntRet(^a[0].GetInt())
	})

	in.floatFold("+f", 0, nil, func(a, b float32) float32 { return a + b })
	in.floatFold("*f", 1, nil, func(a, b float32) float32 { return a * b })
	in.floatFold("-f", 0, func(v float32) float32 { return -v }, func(a, b float32) float32 { return a - b })
	in.floatFold("divf", 0, nil, func(a, b float32) float32 {
		if b == 0 {
			return 0
		}
		return a / b
	})
	in.floatFold("modf", 0, nil, func(a, b float32) float32 {
		if b == 0 {
			return 0
		}
		return float32(math.Mod(float64(a), float64(b)))
	})
	in.floatFold("pow", 0, nil, func(a, b float32) float32 {
		return float32(math.Pow(float64(a), float64(b)))
	})

	in.command("min", "i1V", func(in *Interp, a []Value) {
		var val int32
		for i, v := range a {
			if x := v.GetInt(); i == 0 || x < val {
				val = x
			}
		}
		in.IntRet(val)
	})
	in.command("max", "i1V", func(in *Interp, a []Value) {
		var val int32
		for i, v := range a {
			if x := v.GetInt(); i == 0 || x > val {
				val = x
			}
		}
		in.IntRet(val)
	})
	in.command("minf", "f1V", func(in *Interp, a []Value) {
		var val float32
		for i, v := range a {
			if x := v.GetFloat(); i == 0 || x < val {
				val = x
			}
		}
		in.FloatRet(val)
	})
	in.command("maxf", "f1V", func(in *Interp, a []Value) {
		var val float32
		for i, v := range a {
			if x := v.GetFloat(); i == 0 || x > val {
				val = x
			}
		}
		in.FloatRet(val)
	})
	in.command("abs", "i", func(in *Interp, a []Value) {
		v := a[0].GetInt()
		if v < 0 {
			v = -v
		}
		in.IntRet(v)
	})
	in.command("absf", "f", func(in *Interp, a []Value) {
		in.FloatRet(float32(math.Abs(float64(a[0].GetFloat()))))
	})

	in.intCompare("=", func(a, b int32) bool { return a == b })
	in.intCompare("!=", func(a, b int32) bool { return a != b })
	in.intCompare("<", func(a, b int32) bool { return a < b })
	in.intCompare(">", func(a, b int32) bool { return a > b })
	in.intCompare("<=", func(a, b int32) bool { return a <= b })
	in.intCompare(">=", func(a, b int32) bool { return a >= b })

	in.floatCompare("=f", func(a, b float32) bool { return a == b })
	in.floatCompare("!=f", func(a, b float32) bool { return a != b })
	in.floatCompare("<f", func(a, b float32) bool { return a < b })
	in.floatCompare(">f", func(a, b float32) bool { return a > b })
	in.floatCompare("<=f", func(a, b float32) bool { return a <= b })
	in.floatCompare(">=f", func(a, b float32) bool { return a >= b })

	in.strCompare("=s", func(c int) bool { return c == 0 })
	in.strCompare("!=s", func(c int) bool { return c != 0 })
	in.strCompare("<s", func(c int) bool { return c < 0 })
	in.strCompare(">s", func(c int) bool { return c > 0 })
	in.strCompare("<=s", func(c int) bool { return c <= 0 })
	in.strCompare(">=s", func(c int) bool { return c >= 0 })
}
