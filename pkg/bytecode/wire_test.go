package bytecode

import (
	"bytes"
	"testing"
)

func TestMarshalBlockRoundTrip(t *testing.T) {
	b := NewBlock()
	b.Name = "test.cfg"
	b.Idents = []string{"arg1", "echo"}
	b.EmitString("a longer string literal")
	b.EmitFloat(0.25)
	b.EmitOp(OpResult, RetNull, 0)
	b.EmitOp(OpExit, RetNull, 0)

	data, err := MarshalBlock(b, "echo hi")
	if err != nil {
		t.Fatalf("MarshalBlock: %v", err)
	}

	got, src, err := UnmarshalBlock(data)
	if err != nil {
		t.Fatalf("UnmarshalBlock: %v", err)
	}
	if src != "echo hi" {
		t.Errorf("source = %q, want %q", src, "echo hi")
	}
	if got.Name != b.Name {
		t.Errorf("Name = %q, want %q", got.Name, b.Name)
	}
	if len(got.Idents) != 2 || got.Idents[1] != "echo" {
		t.Errorf("Idents = %q", got.Idents)
	}
	if len(got.Words) != len(b.Words) {
		t.Fatalf("Words len = %d, want %d", len(got.Words), len(b.Words))
	}
	for i := range b.Words {
		if got.Words[i] != b.Words[i] {
			t.Errorf("Words[%d] = %08X, want %08X", i, got.Words[i], b.Words[i])
		}
	}
}

func TestMarshalBlockDeterministic(t *testing.T) {
	b := NewBlock()
	b.EmitInt(5)

	d1, _ := MarshalBlock(b, "")
	d2, _ := MarshalBlock(b, "")
	if !bytes.Equal(d1, d2) {
		t.Error("encoding is not deterministic")
	}
}

func TestUnmarshalBlockRejectsGarbage(t *testing.T) {
	if _, _, err := UnmarshalBlock([]byte{0xFF, 0x00}); err == nil {
		t.Error("UnmarshalBlock should reject invalid data")
	}

	f := blockFile{Magic: []byte("NOPE"), Version: FormatVersion, Words: NewBlock().Words}
	data, _ := cborEncMode.Marshal(&f)
	if _, _, err := UnmarshalBlock(data); err == nil {
		t.Error("UnmarshalBlock should reject bad magic")
	}
}
