package vm

import (
	"testing"
)

func TestExecute(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"number statement", "42", "42"},
		{"result", "result hello", "hello"},
		{"last statement wins", "result a; result b", "b"},
		{"newline separates", "result a\nresult b", "b"},
		{"comment", "result 1 // ignored", "1"},
		{"quoted escapes", `result "a^tb^"c"`, "a\tb\"c"},
		{"sub-expression", "result (+ 1 2)", "3"},
		{"nested sub-expressions", "result (+ (* 2 3) (- 10 4))", "12"},
		{"concat", `concat "foo" "bar"`, "foo bar"},
		{"lookup", "v = 5; result $v", "5"},
		{"quoted lookup", `v = 6; result $"v"`, "6"},
		{"double lookup", "y = z; z = deep; result $$y", "deep"},
		{"computed lookup", "ab = hi; result $(concatword a b)", "hi"},
		{"bracket lookup", "ab = hi; result $[ab]", "hi"},
		{"macro substitution", "x = 7; result [a @x b]", "a 7 b"},
		{"macro expression", "result [n=@(+ 1 1)]", "n=2"},
		{"nested block keeps @", "result [a [@x]]", "a [@x]"},
		{"computed call", "name = greet; greet = [result hi]; $name", "hi"},
		{"number head", "(result 12)", "12"},
		{"do", "do [result 9]", "9"},
		{"do string", `do "result 8"`, "8"},
		{"assign from block", "f = [result 3]; f", "3"},
		{"empty assignment", "v = ; result $v", ""},
		{"float arithmetic", "result (+f 1.5 1)", "2.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, con := newTestInterp(t)
			if got := mustExecute(t, in, tt.src).GetStr(); got != tt.want {
				t.Errorf("got %q, want %q (warnings %q)", got, tt.want, con.warnings)
			}
		})
	}
}

func TestNumberStatementType(t *testing.T) {
	in, _ := newTestInterp(t)
	if v := mustExecute(t, in, "42"); v.Type() != TypeInt || v.GetInt() != 42 {
		t.Errorf("42 = %v (%s), want int", v, v.Type())
	}
	if v := mustExecute(t, in, "4x"); v.Type() != TypeStr || v.GetStr() != "4x" {
		t.Errorf("4x = %v (%s), want str", v, v.Type())
	}
}

func TestConditionals(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"if 1 [result a] [result b]", "a"},
		{"if 0 [result a] [result b]", "b"},
		{"if (= 2 2) [result yes] [result no]", "yes"},
		{`if "" [result a] [result b]`, "b"},
		{"if 1 [] [result b]", ""},
		{"if 0 [] [result b]", "b"},
		{"c = [result b]; if 0 [result a] $c", "b"},
		{"&& 1 0 1", "0"},
		{"&& 1 2 3", "3"},
		{"|| 0 0", "0"},
		{"|| [result 0] [result 2] [result 5]", "2"},
		{"&& [result 1] [result 5]", "5"},
		{"&& [result 1] [result 0] [result 5]", "0"},
		{"&&", "1"},
		{"||", "0"},
		{"! 0", "1"},
		{"! abc", "0"},
		{"!", "1"},
		{"? 1 a b", "a"},
		{"? 0 a b", "b"},
	}
	for _, tt := range tests {
		in, con := newTestInterp(t)
		if got := mustExecute(t, in, tt.src).GetStr(); got != tt.want {
			t.Errorf("%s = %q, want %q (warnings %q)", tt.src, got, tt.want, con.warnings)
		}
	}
}

func TestShortCircuitSkipsSideEffects(t *testing.T) {
	in, _ := newTestInterp(t)
	mustExecute(t, in, "n = 0; && [result 0] [n = 1]; || [result 1] [n = 2]")
	if got := mustGet(t, in, "n").GetStr(); got != "0" {
		t.Errorf("n = %q, want 0", got)
	}
}

func TestDiagnostics(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"nosuchcmd 1 2", "unknown command: nosuchcmd"},
		{"result $nosuch", "unknown alias lookup: nosuch"},
		{"result (1", `missing ")"`},
		{"result [1", `missing "]"`},
		{"result 1)", `unexpected ")"`},
	}
	for _, tt := range tests {
		in, con := newTestInterp(t)
		mustExecute(t, in, tt.src)
		if !con.warned(tt.want) {
			t.Errorf("%s: warnings = %q, want %q", tt.src, con.warnings, tt.want)
		}
	}
}

func TestNoDebugSilences(t *testing.T) {
	in, con := newTestInterp(t)
	mustExecute(t, in, "nodebug [nosuchcmd]")
	if len(con.warnings) != 0 {
		t.Errorf("warnings = %q, want none", con.warnings)
	}
	mustExecute(t, in, "nosuchcmd")
	if !con.warned("unknown command") {
		t.Errorf("nodebug leaked past its block")
	}
}

func TestRecursionLimit(t *testing.T) {
	in, con := newTestInterp(t)
	in.MaxRunDepth = 10
	mustExecute(t, in, "f = [f]; f")
	if !con.warned("exceeded recursion limit") {
		t.Errorf("warnings = %q", con.warnings)
	}
	if in.runDepth != 0 || len(in.links) != 1 {
		t.Errorf("runDepth = %d, links = %d", in.runDepth, len(in.links))
	}
}

func TestEcho(t *testing.T) {
	in, con := newTestInterp(t)
	mustExecute(t, in, "echo hello world; echo (+ 1 1)")
	if len(con.lines) != 2 || con.lines[0] != "hello world" || con.lines[1] != "2" {
		t.Errorf("lines = %q", con.lines)
	}
	mustExecute(t, in, "error oops")
	if !con.warned("oops") {
		t.Errorf("warnings = %q", con.warnings)
	}
}

func TestOverrides(t *testing.T) {
	in, con := newTestInterp(t)
	var ov, p int32
	MustRegister(in.RegisterIntVar(IntVarDef{Name: "ov", Default: 1, Max: 100, Storage: &ov}))
	MustRegister(in.RegisterIntVar(IntVarDef{Name: "p", Default: 2, Max: 100, Storage: &p, Flags: FlagPersist}))

	in.SetOverrideMode(true)
	mustExecute(t, in, "ov 50; p 60; ma = hello")
	in.SetOverrideMode(false)

	if ov != 50 {
		t.Errorf("ov = %d, want 50", ov)
	}
	if p != 2 {
		t.Errorf("p = %d, want persistent value kept", p)
	}
	if !con.warned("cannot override persistent variable p") {
		t.Errorf("warnings = %q", con.warnings)
	}

	in.ClearOverrides()
	if ov != 1 {
		t.Errorf("ov = %d after ClearOverrides, want 1", ov)
	}
	if got := mustGet(t, in, "ma").GetStr(); got != "" {
		t.Errorf("ma = %q after ClearOverrides, want empty", got)
	}
}

func TestResetVar(t *testing.T) {
	in, _ := newTestInterp(t)
	var ov int32
	MustRegister(in.RegisterIntVar(IntVarDef{Name: "ov", Default: 1, Max: 100, Storage: &ov}))

	in.SetOverrideMode(true)
	mustExecute(t, in, "ov 50")
	in.SetOverrideMode(false)
	mustExecute(t, in, "resetvar ov")
	if ov != 1 {
		t.Errorf("ov = %d after resetvar, want 1", ov)
	}

	in.SetOverrideMode(true)
	mustExecute(t, in, "ov 50")
	in.SetOverrideMode(false)
	mustExecute(t, in, "ov 20")
	in.ClearOverrides()
	if ov != 20 {
		t.Errorf("ov = %d, a plain write should end the override", ov)
	}
}

func TestSetAndGetValue(t *testing.T) {
	in, _ := newTestInterp(t)
	var lvl int32
	MustRegister(in.RegisterIntVar(IntVarDef{Name: "lvl", Max: 5, Storage: &lvl}))
	if err := in.Set("lvl", Int(9)); err != nil {
		t.Fatal(err)
	}
	if lvl != 5 {
		t.Errorf("lvl = %d, want 5", lvl)
	}
	if err := in.Set("fresh", Str("v")); err != nil {
		t.Fatal(err)
	}
	if got := mustGet(t, in, "fresh").GetStr(); got != "v" {
		t.Errorf("fresh = %q", got)
	}
	if _, err := in.GetValue("missing"); err == nil {
		t.Errorf("GetValue(missing) succeeded")
	}
}
