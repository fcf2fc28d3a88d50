// Package bytecode defines the packed instruction format executed by the
// CubeScript engine.
//
// A compiled script is a flat stream of 32-bit words:
//
//	bits 0..5    opcode (Op)
//	bits 6..7    expected return type (Ret)
//	bits 8..31   operand
//
// Operands are identifier indices, counts, relative forward jump lengths or
// inline literals. Call-style instructions split the operand into a 5-bit
// argument count and a 19-bit identifier index. Literals that do not fit
// inline follow the instruction word: one word for an int or float, or a
// zero-terminated little-endian byte string for OpVal|RetStr and OpMacro.
//
// # Block literals
//
// A bracketed block compiles to
//
//	BLOCK len=N
//	OFFSET body
//	  ...body...
//	EXIT|ret
//
// where N counts every word after BLOCK. A code value refers to the body
// position inside the enclosing Block, so one Block is shared by every code
// value created from it.
//
// # Components
//
//   - Op, Ret and OpInfo: opcode numbering and metadata
//   - Instr: explicit decoded form with Decode and Encode
//   - Block: instruction stream plus the builder used by the compiler
//   - Disassemble: human-readable listings
//   - MarshalBlock/UnmarshalBlock: CBOR cache format ("CSBC")
package bytecode
