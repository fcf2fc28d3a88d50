package vm

import (
	"math"
	"testing"
)

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in   float32
		want string
	}{
		{2, "2"},
		{2.5, "2.5"},
		{-3, "-3"},
		{0, "0"},
		{0.1, "0.1"},
		{0.25, "0.25"},
		{1e10, "1e+10"},
	}
	for _, tt := range tests {
		if got := FormatFloat(tt.in); got != tt.want {
			t.Errorf("FormatFloat(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseInt(t *testing.T) {
	tests := []struct {
		in   string
		want int32
	}{
		{"10", 10},
		{"-5", -5},
		{"0x1F", 31},
		{"010", 8},
		{"12abc", 12},
		{"abc", 0},
		{"", 0},
		{"  7", 7},
		{"0xFFFFFFFF", -1},
		{"4.5", 4},
	}
	for _, tt := range tests {
		if got := ParseInt(tt.in); got != tt.want {
			t.Errorf("ParseInt(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseFloat(t *testing.T) {
	tests := []struct {
		in   string
		want float32
	}{
		{"2.5", 2.5},
		{"-0.5", -0.5},
		{"1e2", 100},
		{"3abc", 3},
		{"abc", 0},
		{"0x10", 16},
	}
	for _, tt := range tests {
		if got := ParseFloat(tt.in); got != tt.want {
			t.Errorf("ParseFloat(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNumberRoundTrip(t *testing.T) {
	for _, i := range []int32{0, 1, -1, 12345, math.MaxInt32, math.MinInt32} {
		if got := ParseInt(FormatInt(i)); got != i {
			t.Errorf("ParseInt(FormatInt(%d)) = %d", i, got)
		}
	}
	for _, f := range []float32{0, 2, 2.5, -1.25, 0.1, 100.75, 1e-5} {
		if got := ParseFloat(FormatFloat(f)); got != f {
			t.Errorf("ParseFloat(FormatFloat(%v)) = %v", f, got)
		}
	}
	for _, s := range []string{"", "hello", "a b", "0x10"} {
		if got := Str(s).GetStr(); got != s {
			t.Errorf("Str(%q).GetStr() = %q", s, got)
		}
	}
}

func TestGetBool(t *testing.T) {
	tests := []struct {
		v    Value
		want bool
	}{
		{NullVal, false},
		{Int(0), false},
		{Int(-2), true},
		{Float(0), false},
		{Float(0.5), true},
		{Str(""), false},
		{Str("0"), false},
		{Str("0.0"), false},
		{Str("-0"), false},
		{Str("00"), false},
		{Str("1"), true},
		{Str("0.5"), true},
		{Str("abc"), true},
		{CStr("0"), false},
	}
	for _, tt := range tests {
		if got := tt.v.GetBool(); got != tt.want {
			t.Errorf("%v (%s).GetBool() = %v, want %v", tt.v, tt.v.Type(), got, tt.want)
		}
	}
}

func TestValueCoercions(t *testing.T) {
	if got := Int(3).GetStr(); got != "3" {
		t.Errorf("Int(3).GetStr() = %q", got)
	}
	if got := Float(2.5).GetInt(); got != 2 {
		t.Errorf("Float(2.5).GetInt() = %d", got)
	}
	if got := Str("7").GetFloat(); got != 7 {
		t.Errorf("Str(7).GetFloat() = %v", got)
	}
	if got := NullVal.GetStr(); got != "" {
		t.Errorf("NullVal.GetStr() = %q", got)
	}
	if got := Macro("x").GetVal(); got.Type() != TypeStr || got.GetStr() != "x" {
		t.Errorf("Macro GetVal = %v (%s), want owned str", got, got.Type())
	}
	if got := CodeVal(emptyCode(0)).GetVal(); !got.IsNull() {
		t.Errorf("code GetVal = %v, want null", got)
	}
}

func TestCheckNumber(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"1", true},
		{"-1", true},
		{"+2", true},
		{".5", true},
		{"-.5", true},
		{"x1", false},
		{"-", false},
		{"+a", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := CheckNumber(tt.in); got != tt.want {
			t.Errorf("CheckNumber(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestEscapeString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", `"plain"`},
		{"a\"b", `"a^"b"`},
		{"line\nnext", `"line^nnext"`},
		{"tab\there", `"tab^there"`},
		{"caret^", `"caret^^"`},
	}
	for _, tt := range tests {
		got := EscapeString(tt.in)
		if got != tt.want {
			t.Errorf("EscapeString(%q) = %s, want %s", tt.in, got, tt.want)
		}
		if back := unescapeString(got[1 : len(got)-1]); back != tt.in {
			t.Errorf("unescape(%s) = %q, want %q", got, back, tt.in)
		}
	}
}
