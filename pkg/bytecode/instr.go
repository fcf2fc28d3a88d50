package bytecode

import (
	"errors"
	"fmt"
	"math"
)

// ErrTruncated is returned when an instruction's trailing words run past the
// end of the stream.
var ErrTruncated = errors.New("bytecode: truncated instruction")

// Inline literal limits for OpValI.
const (
	MinInlineInt = -0x800000
	MaxInlineInt = 0x7FFFFF
	MaxInlineStr = 3
)

// Instr is the decoded form of one instruction. The compiler and tooling work
// with Instr values; the engine reads the packed words directly.
type Instr struct {
	Op  Op
	Ret Ret

	// Arg is the raw 24-bit operand.
	Arg uint32

	// Literal payloads for OpVal, OpValI and OpMacro.
	Int   int32
	Float float32
	Str   string

	// Size is the number of words the instruction occupies, including
	// trailing literal words.
	Size int
}

// Argc returns the argument count of a call-style instruction.
func (in Instr) Argc() int {
	return int(in.Arg & CallArgcMask)
}

// Index returns the identifier index of the instruction. For call-style
// instructions the argument count is stripped.
func (in Instr) Index() int {
	if GetOpInfo(in.Op).Operand == OperandCall {
		return int(in.Arg >> (CallIndexShift - ArgShift))
	}
	return int(in.Arg)
}

// Target returns the absolute target of a jump placed at pc.
func (in Instr) Target(pc int) int {
	return pc + in.Size + int(in.Arg)
}

// Decode reads the instruction at words[pc].
func Decode(words []uint32, pc int) (Instr, error) {
	if pc < 0 || pc >= len(words) {
		return Instr{}, fmt.Errorf("%w at %d", ErrTruncated, pc)
	}
	w := words[pc]
	in := Instr{Op: OpOf(w), Ret: RetOf(w), Arg: ArgOf(w), Size: 1}
	if !in.Op.Valid() {
		return in, fmt.Errorf("bytecode: unknown opcode 0x%02X at %d", uint32(in.Op), pc)
	}

	switch in.Op {
	case OpValI:
		switch in.Ret {
		case RetInt:
			in.Int = int32(w) >> ArgShift
		case RetFloat:
			in.Float = float32(int32(w) >> ArgShift)
		case RetStr:
			in.Str = unpackInline(in.Arg)
		}
	case OpVal:
		switch in.Ret {
		case RetInt:
			if pc+1 >= len(words) {
				return in, fmt.Errorf("%w at %d", ErrTruncated, pc)
			}
			in.Int = int32(words[pc+1])
			in.Size = 2
		case RetFloat:
			if pc+1 >= len(words) {
				return in, fmt.Errorf("%w at %d", ErrTruncated, pc)
			}
			in.Float = math.Float32frombits(words[pc+1])
			in.Size = 2
		case RetStr:
			s, n, err := unpackString(words, pc+1, int(in.Arg))
			if err != nil {
				return in, err
			}
			in.Str = s
			in.Size = 1 + n
		}
	case OpMacro:
		s, n, err := unpackString(words, pc+1, int(in.Arg))
		if err != nil {
			return in, err
		}
		in.Str = s
		in.Size = 1 + n
	}
	return in, nil
}

// Encode returns the packed words for in. Literal instructions carry their
// payload from Int, Float or Str; everything else uses Arg.
func Encode(in Instr) []uint32 {
	switch in.Op {
	case OpValI:
		switch in.Ret {
		case RetInt:
			return []uint32{Word(OpValI, RetInt, uint32(in.Int)&0xFFFFFF)}
		case RetFloat:
			return []uint32{Word(OpValI, RetFloat, uint32(int32(in.Float))&0xFFFFFF)}
		case RetStr:
			return []uint32{Word(OpValI, RetStr, packInline(in.Str))}
		}
		return []uint32{Word(OpValI, in.Ret, 0)}
	case OpVal:
		switch in.Ret {
		case RetInt:
			return []uint32{Word(OpVal, RetInt, 0), uint32(in.Int)}
		case RetFloat:
			return []uint32{Word(OpVal, RetFloat, 0), math.Float32bits(in.Float)}
		case RetStr:
			return append([]uint32{Word(OpVal, RetStr, uint32(len(in.Str)))}, packString(in.Str)...)
		}
		return []uint32{Word(OpVal, in.Ret, 0)}
	case OpMacro:
		return append([]uint32{Word(OpMacro, in.Ret, uint32(len(in.Str)))}, packString(in.Str)...)
	}
	return []uint32{Word(in.Op, in.Ret, in.Arg)}
}

// CanInlineInt reports whether i fits an OpValI operand.
func CanInlineInt(i int32) bool {
	return i >= MinInlineInt && i <= MaxInlineInt
}

// CanInlineFloat reports whether f is integral and fits an OpValI operand.
func CanInlineFloat(f float32) bool {
	if f != float32(int32(f)) {
		return false
	}
	return CanInlineInt(int32(f))
}

// CanInlineString reports whether s fits an OpValI operand.
func CanInlineString(s string) bool {
	if len(s) > MaxInlineStr {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] == 0 {
			return false
		}
	}
	return true
}

// StringWords returns how many trailing words hold a packed string of n bytes.
// There is always room for a terminating zero byte.
func StringWords(n int) int {
	return n/4 + 1
}

func packInline(s string) uint32 {
	var v uint32
	for i := 0; i < len(s) && i < MaxInlineStr; i++ {
		v |= uint32(s[i]) << (8 * i)
	}
	return v
}

func unpackInline(arg uint32) string {
	var buf [MaxInlineStr]byte
	n := 0
	for ; n < MaxInlineStr; n++ {
		c := byte(arg >> (8 * n))
		if c == 0 {
			break
		}
		buf[n] = c
	}
	return string(buf[:n])
}

// packString packs s little-endian into words, zero-terminated.
func packString(s string) []uint32 {
	out := make([]uint32, StringWords(len(s)))
	for i := 0; i < len(s); i++ {
		out[i/4] |= uint32(s[i]) << (8 * (i % 4))
	}
	return out
}

func unpackString(words []uint32, start, n int) (string, int, error) {
	nw := StringWords(n)
	if start+nw > len(words) {
		return "", 0, fmt.Errorf("%w: string of %d bytes at %d", ErrTruncated, n, start)
	}
	buf := make([]byte, n)
	for i := 0; i < n; i++ {
		buf[i] = byte(words[start+i/4] >> (8 * (i % 4)))
	}
	return string(buf), nw, nil
}
