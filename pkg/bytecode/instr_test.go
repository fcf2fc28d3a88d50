package bytecode

import (
	"errors"
	"testing"
)

func TestEncodeDecodeLiterals(t *testing.T) {
	tests := []struct {
		name string
		in   Instr
		size int
	}{
		{"inline int", Instr{Op: OpValI, Ret: RetInt, Int: 42}, 1},
		{"inline negative int", Instr{Op: OpValI, Ret: RetInt, Int: -5}, 1},
		{"wide int", Instr{Op: OpVal, Ret: RetInt, Int: 1 << 30}, 2},
		{"inline float", Instr{Op: OpValI, Ret: RetFloat, Float: 3}, 1},
		{"wide float", Instr{Op: OpVal, Ret: RetFloat, Float: 2.5}, 2},
		{"inline string", Instr{Op: OpValI, Ret: RetStr, Str: "abc"}, 1},
		{"empty inline string", Instr{Op: OpValI, Ret: RetStr, Str: ""}, 1},
		{"string", Instr{Op: OpVal, Ret: RetStr, Str: "hello"}, 3},
		{"string of four", Instr{Op: OpVal, Ret: RetStr, Str: "four"}, 3},
		{"macro", Instr{Op: OpMacro, Str: "x y z"}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			words := Encode(tt.in)
			if len(words) != tt.size {
				t.Fatalf("Encode produced %d words, want %d", len(words), tt.size)
			}
			got, err := Decode(words, 0)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if got.Size != tt.size {
				t.Errorf("Size = %d, want %d", got.Size, tt.size)
			}
			if got.Op != tt.in.Op || got.Ret != tt.in.Ret {
				t.Errorf("header = %s|%v, want %s|%v", got.Op, got.Ret, tt.in.Op, tt.in.Ret)
			}
			if got.Int != tt.in.Int || got.Float != tt.in.Float || got.Str != tt.in.Str {
				t.Errorf("payload = (%d, %g, %q), want (%d, %g, %q)",
					got.Int, got.Float, got.Str, tt.in.Int, tt.in.Float, tt.in.Str)
			}
		})
	}
}

func TestDecodeCallOperand(t *testing.T) {
	words := []uint32{CallWord(OpCall, RetNull, 3, 99)}
	in, err := Decode(words, 0)
	if err != nil {
		t.Fatal(err)
	}
	if in.Argc() != 3 || in.Index() != 99 {
		t.Errorf("Argc/Index = %d/%d, want 3/99", in.Argc(), in.Index())
	}

	words = []uint32{Word(OpLookup, RetNull, 99)}
	in, _ = Decode(words, 0)
	if in.Index() != 99 {
		t.Errorf("Index = %d, want 99", in.Index())
	}
}

func TestDecodeTruncated(t *testing.T) {
	words := []uint32{Word(OpVal, RetStr, 10)}
	if _, err := Decode(words, 0); !errors.Is(err, ErrTruncated) {
		t.Errorf("Decode truncated string: err = %v, want ErrTruncated", err)
	}
	words = []uint32{Word(OpVal, RetInt, 0)}
	if _, err := Decode(words, 0); !errors.Is(err, ErrTruncated) {
		t.Errorf("Decode truncated int: err = %v, want ErrTruncated", err)
	}
	if _, err := Decode(nil, 0); !errors.Is(err, ErrTruncated) {
		t.Errorf("Decode empty: err = %v, want ErrTruncated", err)
	}
}

func TestDecodeUnknownOp(t *testing.T) {
	if _, err := Decode([]uint32{0x3F}, 0); err == nil {
		t.Error("Decode of undefined opcode should fail")
	}
}

func TestCanInline(t *testing.T) {
	if !CanInlineInt(MaxInlineInt) || CanInlineInt(MaxInlineInt+1) {
		t.Error("CanInlineInt upper bound wrong")
	}
	if !CanInlineInt(MinInlineInt) || CanInlineInt(MinInlineInt-1) {
		t.Error("CanInlineInt lower bound wrong")
	}
	if CanInlineFloat(1.5) {
		t.Error("CanInlineFloat(1.5) = true")
	}
	if !CanInlineFloat(-7) {
		t.Error("CanInlineFloat(-7) = false")
	}
	if CanInlineString("abcd") || !CanInlineString("abc") {
		t.Error("CanInlineString length rule wrong")
	}
}
