package bytecode

import (
	"strings"
	"testing"
)

func TestAllOpsHaveMetadata(t *testing.T) {
	for op := Op(0); int(op) < OpCount(); op++ {
		info := GetOpInfo(op)
		if info.Name == "" || strings.HasPrefix(info.Name, "UNKNOWN") {
			t.Errorf("Op 0x%02X has no metadata", uint32(op))
		}
	}
}

func TestOpCountFitsMask(t *testing.T) {
	if OpCount() > int(OpMask)+1 {
		t.Fatalf("OpCount() = %d does not fit in %d bits", OpCount(), 6)
	}
	if OpCount() != 63 {
		t.Errorf("OpCount() = %d, want 63", OpCount())
	}
}

func TestOpString(t *testing.T) {
	tests := []struct {
		op   Op
		want string
	}{
		{OpStart, "START"},
		{OpEnterResult, "ENTER_RESULT"},
		{OpValI, "VALI"},
		{OpComV, "COMV"},
		{OpIVar3, "IVAR3"},
		{OpLookupMArg, "LOOKUPMARG"},
		{OpCallU, "CALLU"},
		{OpJumpResultFalse, "JUMP_RESULT_FALSE"},
		{Op(0x3F), "UNKNOWN(0x3F)"},
	}

	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("Op(0x%02X).String() = %q, want %q", uint32(tt.op), got, tt.want)
		}
	}
}

func TestIsJump(t *testing.T) {
	jumps := map[Op]bool{
		OpJump: true, OpJumpTrue: true, OpJumpFalse: true,
		OpJumpResultTrue: true, OpJumpResultFalse: true,
	}
	for op := Op(0); int(op) < OpCount(); op++ {
		if got := op.IsJump(); got != jumps[op] {
			t.Errorf("%s.IsJump() = %v, want %v", op, got, jumps[op])
		}
	}
}

func TestWordFields(t *testing.T) {
	w := Word(OpLookup, RetStr, 1234)
	if OpOf(w) != OpLookup {
		t.Errorf("OpOf = %s, want LOOKUP", OpOf(w))
	}
	if RetOf(w) != RetStr {
		t.Errorf("RetOf = %v, want RetStr", RetOf(w))
	}
	if ArgOf(w) != 1234 {
		t.Errorf("ArgOf = %d, want 1234", ArgOf(w))
	}

	c := CallWord(OpComV, RetInt, 7, 4321)
	if OpOf(c) != OpComV || RetOf(c) != RetInt {
		t.Errorf("CallWord header = %s|%v", OpOf(c), RetOf(c))
	}
	if CallArgc(c) != 7 {
		t.Errorf("CallArgc = %d, want 7", CallArgc(c))
	}
	if CallIndex(c) != 4321 {
		t.Errorf("CallIndex = %d, want 4321", CallIndex(c))
	}
}
