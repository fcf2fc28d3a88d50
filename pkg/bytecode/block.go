package bytecode

import "fmt"

// FormatVersion is the current packed format version.
// Increment when opcode numbering or operand layout changes.
const FormatVersion uint16 = 1

// Magic bytes for cached block files: "CSBC" (CubeScript ByteCode)
var Magic = []byte{'C', 'S', 'B', 'C'}

// Block is a compiled instruction stream. Once built it is never modified,
// so code values may share one Block and point into it at different offsets.
type Block struct {
	// Name is an optional label for listings (alias name, file name).
	Name string

	// Words holds the packed instructions. Words[0] is always OpStart.
	Words []uint32

	// Idents optionally lists, by index, the identifier names the block was
	// compiled against. Cached blocks carry it so a loader can check that
	// the indices in Words still refer to the same identifiers.
	Idents []string
}

// NewBlock creates an empty block with the leading OpStart marker.
func NewBlock() *Block {
	return &Block{Words: []uint32{Word(OpStart, RetNull, 0)}}
}

// Len returns the number of words in the block.
func (b *Block) Len() int {
	return len(b.Words)
}

// Emit appends one raw word and returns its position.
func (b *Block) Emit(w uint32) int {
	b.Words = append(b.Words, w)
	return len(b.Words) - 1
}

// EmitOp appends op with its ret tag and operand.
func (b *Block) EmitOp(op Op, ret Ret, arg uint32) int {
	return b.Emit(Word(op, ret, arg))
}

// EmitCall appends a call-style instruction.
func (b *Block) EmitCall(op Op, ret Ret, argc, index int) int {
	return b.Emit(CallWord(op, ret, argc, index))
}

// EmitInstr appends the encoded form of in and returns its position.
func (b *Block) EmitInstr(in Instr) int {
	pos := len(b.Words)
	b.Words = append(b.Words, Encode(in)...)
	return pos
}

// EmitString pushes a string literal, inlining it when it fits.
func (b *Block) EmitString(s string) int {
	if CanInlineString(s) {
		return b.EmitInstr(Instr{Op: OpValI, Ret: RetStr, Str: s})
	}
	return b.EmitInstr(Instr{Op: OpVal, Ret: RetStr, Str: s})
}

// EmitMacro pushes a borrowed string literal.
func (b *Block) EmitMacro(s string) int {
	return b.EmitInstr(Instr{Op: OpMacro, Str: s})
}

// EmitInt pushes an integer literal, inlining it when it fits.
func (b *Block) EmitInt(i int32) int {
	if CanInlineInt(i) {
		return b.EmitInstr(Instr{Op: OpValI, Ret: RetInt, Int: i})
	}
	return b.EmitInstr(Instr{Op: OpVal, Ret: RetInt, Int: i})
}

// EmitFloat pushes a float literal, inlining it when it is a small integer.
func (b *Block) EmitFloat(f float32) int {
	if CanInlineFloat(f) {
		return b.EmitInstr(Instr{Op: OpValI, Ret: RetFloat, Float: f})
	}
	return b.EmitInstr(Instr{Op: OpVal, Ret: RetFloat, Float: f})
}

// EmitJump emits a jump with a placeholder length and returns its position
// for later patching with PatchJump.
func (b *Block) EmitJump(op Op) int {
	return b.Emit(Word(op, RetNull, 0))
}

// PatchJump points the jump at pos to the current end of the block.
func (b *Block) PatchJump(pos int) {
	b.PatchJumpTo(pos, len(b.Words))
}

// PatchJumpTo points the jump at pos to target. Jumps only go forward.
func (b *Block) PatchJumpTo(pos, target int) {
	w := b.Words[pos]
	if !OpOf(w).IsJump() {
		panic(fmt.Sprintf("bytecode: patching non-jump %s at %d", OpOf(w), pos))
	}
	rel := target - (pos + 1)
	if rel < 0 {
		panic(fmt.Sprintf("bytecode: backward jump from %d to %d", pos, target))
	}
	b.Words[pos] = w&(OpMask|RetMask) | uint32(rel)<<ArgShift
}

// BeginBlock opens a nested block literal and returns its start position.
// The body follows; close it with EndBlock.
func (b *Block) BeginBlock() int {
	start := b.Emit(Word(OpBlock, RetNull, 0))
	b.Emit(Word(OpOffset, RetNull, uint32(start+2)))
	return start
}

// EndBlock closes the block literal opened at start.
func (b *Block) EndBlock(start int, ret Ret) {
	b.Emit(Word(OpExit, ret, 0))
	b.Words[start] = Word(OpBlock, RetNull, uint32(len(b.Words)-(start+1)))
}

// BlockBody returns the range [body, exit] of the block literal at start,
// where exit is the position of its closing OpExit.
func (b *Block) BlockBody(start int) (body, exit int) {
	n := int(ArgOf(b.Words[start]))
	return start + 2, start + n
}

// Truncate drops all words from pos onward.
func (b *Block) Truncate(pos int) {
	b.Words = b.Words[:pos]
}

// Validate walks the stream and checks that every instruction decodes and
// every jump lands inside it.
func (b *Block) Validate() error {
	if len(b.Words) == 0 || OpOf(b.Words[0]) != OpStart {
		return fmt.Errorf("bytecode: block %q does not begin with START", b.Name)
	}
	for pc := 0; pc < len(b.Words); {
		in, err := Decode(b.Words, pc)
		if err != nil {
			return err
		}
		switch {
		case in.Op.IsJump():
			if t := in.Target(pc); t > len(b.Words) {
				return fmt.Errorf("bytecode: jump at %d targets %d past end %d", pc, t, len(b.Words))
			}
		case in.Op == OpBlock:
			if pc+1+int(in.Arg) > len(b.Words) {
				return fmt.Errorf("bytecode: block at %d overruns stream", pc)
			}
		}
		pc += in.Size
	}
	return nil
}
