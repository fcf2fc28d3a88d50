package vm

import (
	"errors"
	"strings"
	"testing"

	"github.com/chazu/cubescript/pkg/bytecode"
)

func TestArgumentsAreRestored(t *testing.T) {
	in, _ := newTestInterp(t)
	mustExecute(t, in, `arg1 = outer; f = [result $arg1]; v = (f inner)`)
	if got := mustGet(t, in, "v").GetStr(); got != "inner" {
		t.Errorf("v = %q, want inner", got)
	}
	if got := mustGet(t, in, "arg1").GetStr(); got != "outer" {
		t.Errorf("arg1 = %q after call, want outer", got)
	}
	if d := in.At(0).Depth(); d != 0 {
		t.Errorf("arg1 depth = %d, want 0", d)
	}
}

func TestAliasCalls(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"recursion", `fact = [if (<= $arg1 1) [result 1] [result (* $arg1 (fact (- $arg1 1)))]]; fact 5`, "120"},
		{"nested", `inner = [result $arg1]; outer = [inner b]; outer a`, "b"},
		{"unbound in callee", `inner = [result $arg2]; outer = [inner only]; outer x y`, ""},
		{"numargs", `f = [result $numargs]; f a b c`, "3"},
		{"doargs", `helper = [doargs [result $arg1]]; caller = [helper y]; caller x`, "x"},
		{"doargs at top level", `doargs [result 4]`, "4"},
		{"arg beyond argc", `f = [arg3 = z; result $arg3]; f a`, "z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, _ := newTestInterp(t)
			if got := mustExecute(t, in, tt.src).GetStr(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
			for i := 0; i < MaxArgs; i++ {
				if d := in.At(i).Depth(); d != 0 {
					t.Errorf("%s depth = %d after return", in.At(i).Name, d)
				}
			}
			if got := in.numArgs; got != 0 {
				t.Errorf("numargs = %d after return", got)
			}
		})
	}
}

func TestRecursiveLog(t *testing.T) {
	in, _ := newTestInterp(t)
	mustExecute(t, in, `log = ""; rec = [log = (concatword $log $arg1); if (< $arg1 3) [rec (+ $arg1 1)]]; rec 1`)
	if got := mustGet(t, in, "log").GetStr(); got != "123" {
		t.Errorf("log = %q, want 123", got)
	}
}

func TestRecursionRestoresOnReturn(t *testing.T) {
	in, _ := newTestInterp(t)
	mustExecute(t, in, `log = ""; rec = [if (< $arg1 4) [rec (+ $arg1 1)]; log = (concatword $log $arg1)]; rec 1`)
	if got := mustGet(t, in, "log").GetStr(); got != "4321" {
		t.Errorf("log = %q, want 4321", got)
	}
	if d := in.At(0).Depth(); d != 0 {
		t.Errorf("arg1 depth = %d", d)
	}
}

func TestLocal(t *testing.T) {
	in, _ := newTestInterp(t)
	got := mustExecute(t, in, `v = 1; f = [local v; v = 2; result $v]; f`)
	if got.GetStr() != "2" {
		t.Errorf("f = %q, want 2", got.GetStr())
	}
	if v := mustGet(t, in, "v").GetStr(); v != "1" {
		t.Errorf("v = %q after local, want 1", v)
	}
	if d := in.Find("v").Depth(); d != 0 {
		t.Errorf("v depth = %d", d)
	}
}

func TestLocalInsideArgument(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"+ 1 (local x; x = 3; result $x)", "4"},
		{"concat a (local x; x = 3; result $x) b", "a 3 b"},
		{"x = out; f = [concat a (local x; x = in; result $x) b]; f", "a in b"},
		{"x = out; concat (local x; x = in; result $x) $x", "in in"},
	}
	for _, tt := range tests {
		in, con := newTestInterp(t)
		if got := mustExecute(t, in, tt.src).GetStr(); got != tt.want {
			t.Errorf("%s = %q, want %q (warnings %q)", tt.src, got, tt.want, con.warnings)
		}
		if d := in.Find("x").Depth(); d != 0 {
			t.Errorf("%s: x depth = %d after return", tt.src, d)
		}
	}

	in, _ := newTestInterp(t)
	mustExecute(t, in, "x = out; f = [concat (local x; x = in; result $x)]; f")
	if got := mustGet(t, in, "x").GetStr(); got != "out" {
		t.Errorf("x = %q after call, want out", got)
	}
}

func TestPush(t *testing.T) {
	in, _ := newTestInterp(t)
	mustExecute(t, in, `p = 1; push p 2 [r = $p]`)
	if got := mustGet(t, in, "r").GetStr(); got != "2" {
		t.Errorf("r = %q, want 2", got)
	}
	if got := mustGet(t, in, "p").GetStr(); got != "1" {
		t.Errorf("p = %q after push, want 1", got)
	}
}

func TestPanicUnwindsBindings(t *testing.T) {
	in, _ := newTestInterp(t)
	in.command("boom", "", func(in *Interp, a []Value) {
		panic(&InvariantError{Msg: "boom"})
	})
	mustExecute(t, in, `q = 1; g = [local q; q = 5; boom]; f = [g]`)

	_, err := in.Execute("f a b")
	if !errors.Is(err, ErrCorruptBytecode) {
		t.Fatalf("err = %v, want ErrCorruptBytecode", err)
	}
	for i := 0; i < 2; i++ {
		if d := in.At(i).Depth(); d != 0 {
			t.Errorf("%s depth = %d", in.At(i).Name, d)
		}
	}
	if got := mustGet(t, in, "q").GetStr(); got != "1" {
		t.Errorf("q = %q, want 1", got)
	}
	if len(in.links) != 1 || in.aliasStack != noAlias {
		t.Errorf("links = %d, aliasStack = %d", len(in.links), in.aliasStack)
	}
	if in.runDepth != 0 {
		t.Errorf("runDepth = %d", in.runDepth)
	}
	if got := mustExecute(t, in, "result ok").GetStr(); got != "ok" {
		t.Errorf("after recovery got %q", got)
	}
}

func TestCorruptBlock(t *testing.T) {
	in, _ := newTestInterp(t)
	b := bytecode.NewBlock()
	b.EmitOp(bytecode.OpPop, bytecode.RetNull, 0)
	b.EmitOp(bytecode.OpExit, bytecode.RetNull, 0)

	_, err := in.ExecuteBlock(b)
	var ie *InvariantError
	if !errors.As(err, &ie) {
		t.Fatalf("err = %v, want *InvariantError", err)
	}
	if !strings.Contains(ie.Msg, "underflow") {
		t.Errorf("Msg = %q", ie.Msg)
	}
	if in.runDepth != 0 {
		t.Errorf("runDepth = %d", in.runDepth)
	}
}

func TestCall(t *testing.T) {
	in, _ := newTestInterp(t)
	mustExecute(t, in, `sum = [+ $arg1 $arg2]`)
	v, err := in.Call("sum", Int(2), Int(3))
	if err != nil || v.GetInt() != 5 {
		t.Errorf("Call(sum) = %v, %v, want 5", v, err)
	}
	v, err = in.Call("strlen", Str("abcd"))
	if err != nil || v.GetInt() != 4 {
		t.Errorf("Call(strlen) = %v, %v, want 4", v, err)
	}
	if _, err := in.Call("nosuch"); !errors.Is(err, ErrUnknownIdent) {
		t.Errorf("Call(nosuch) = %v, want ErrUnknownIdent", err)
	}
}
