package bytecode

import "fmt"

// Op is the low six bits of an instruction word.
// Opcodes are grouped by role; the numbering is part of the packed format and
// must not be reordered once blocks have been cached.
type Op uint32

const (
	// ========================================================================
	// Markers
	// ========================================================================

	OpStart  Op = iota // First word of every compiled stream
	OpOffset           // Block header: operand is the absolute index of the block body

	// ========================================================================
	// Literals
	// ========================================================================

	OpNull  // Push/produce null (coerced by ret tag)
	OpTrue  // Produce true
	OpFalse // Produce false
	OpNot   // Pop one, produce its negation

	// ========================================================================
	// Stack shape and scope markers
	// ========================================================================

	OpPop         // Pop and discard top of stack
	OpEnter       // Run a nested sub-expression, push its result
	OpEnterResult // Run a nested sub-expression into the frame result
	OpExit        // Leave the current sub-expression (ret tag coerces result)
	OpResultArg   // Move the frame result onto the stack

	OpVal  // Push literal held in following words: OpVal|ret <len:24> [words...]
	OpValI // Push literal packed inline in the operand: OpValI|ret <value:24>
	OpDup  // Duplicate top of stack (ret tag coerces the copy)
	OpMacro
	OpBool // Reserved
	OpBlock
	OpEmpty   // Push an empty code block
	OpCompile // Compile top of stack into a code block
	OpCond    // Compile top of stack into a code block if it is a non-empty string
	OpForce   // Coerce top of stack to the ret tag
	OpResult  // Pop into the frame result

	// ========================================================================
	// Identifier access
	// ========================================================================

	OpIdent    // Push identifier reference: OpIdent <index:24>
	OpIdentU   // Replace top of stack (a name) with an identifier reference
	OpIdentArg // Push argument-slot reference, binding it in the current frame

	// ========================================================================
	// Command calls and concatenation
	// ========================================================================

	OpCom   // Call fixed-signature command: OpCom|ret <index:24>
	OpComD  // Call command that also receives the argument count
	OpComC  // Call command with space-joined arguments: <argc:5> <index:19>
	OpComV  // Call variadic command: <argc:5> <index:19>
	OpConc  // Join top N with spaces: OpConc|ret <n:24>
	OpConcW // Join top N without separator
	OpConcM // Join top N without separator into the frame result
	OpDown  // Reserved

	// ========================================================================
	// Variable fast paths
	// ========================================================================

	OpSVar  // Push string var: OpSVar|ret <index:24>
	OpSVarM // Push string var as borrowed view
	OpSVar1 // Pop and assign string var
	OpIVar  // Push int var
	OpIVar1 // Pop and assign int var
	OpIVar2 // Pop two bytes and assign int var (hex colour form)
	OpIVar3 // Pop three bytes and assign int var (hex colour form)
	OpFVar  // Push float var
	OpFVar1 // Pop and assign float var

	// ========================================================================
	// Lookups (plain, unknown-by-name, argument slot; M = macro/borrowed)
	// ========================================================================

	OpLookup
	OpLookupU
	OpLookupArg
	OpLookupM
	OpLookupMU
	OpLookupMArg

	// ========================================================================
	// Alias assignment
	// ========================================================================

	OpAlias    // Pop into alias: OpAlias <index:24>
	OpAliasU   // Pop value and name, assign by name
	OpAliasArg // Pop into argument slot of the current frame

	// ========================================================================
	// Alias calls
	// ========================================================================

	OpCall    // Call alias: OpCall|ret <argc:5> <index:19>
	OpCallU   // Call by name taken from the stack: OpCallU|ret <argc:24>
	OpCallArg // Call argument-slot alias if bound in the current frame

	// ========================================================================
	// Control constructs
	// ========================================================================

	OpPrint  // Print variable: OpPrint <index:24>
	OpLocal  // Shadow the top N identifiers for the rest of the block
	OpDo     // Pop a code block and run it
	OpDoArgs // Pop a code block and run it in the caller's argument scope

	OpJump            // Relative jump: OpJump <len:24>
	OpJumpTrue        // Pop, jump if true
	OpJumpFalse       // Pop, jump if false
	OpJumpResultTrue  // Pop (running it if code) into result, jump if true
	OpJumpResultFalse // Pop (running it if code) into result, jump if false

	opCount
)

// Packed word layout.
const (
	OpMask   uint32 = 0x3F
	RetShift        = 6
	RetMask  uint32 = 0xC0

	// ArgShift is where the 24-bit operand starts.
	ArgShift = 8

	// Call-style operands split into a 5-bit argument count and a 19-bit index.
	CallArgcMask   uint32 = 0x1F
	CallIndexShift        = 13
)

// Ret is the expected-return-type tag embedded in an instruction word.
type Ret uint32

const (
	RetNull  Ret = 0 << RetShift
	RetInt   Ret = 1 << RetShift
	RetFloat Ret = 2 << RetShift
	RetStr   Ret = 3 << RetShift
)

// String returns the short name used by the disassembler.
func (r Ret) String() string {
	switch r {
	case RetNull:
		return ""
	case RetInt:
		return "i"
	case RetFloat:
		return "f"
	case RetStr:
		return "s"
	default:
		return fmt.Sprintf("Ret(%d)", uint32(r)>>RetShift)
	}
}

// OperandKind describes how the high bits (and any trailing words) of an
// instruction are interpreted.
type OperandKind uint8

const (
	OperandNone    OperandKind = iota
	OperandIdent                // identifier index in bits 8..31
	OperandCount                // small count in bits 8..31
	OperandCall                 // argc in bits 8..12, identifier index in bits 13..31
	OperandJump                 // relative word offset in bits 8..31
	OperandLiteral              // OpVal/OpValI literal; shape depends on the ret tag
	OperandBytes                // byte length in bits 8..31, followed by packed string words
	OperandSpan                 // length in words of the nested block that follows
)

// OpInfo provides metadata about each opcode for debugging and validation.
type OpInfo struct {
	Name    string      // Human-readable name
	Operand OperandKind // Operand layout
	Returns bool        // Whether the ret tag is meaningful
}

var opInfoTable = [opCount]OpInfo{
	OpStart:  {"START", OperandNone, false},
	OpOffset: {"OFFSET", OperandCount, false},

	OpNull:  {"NULL", OperandNone, true},
	OpTrue:  {"TRUE", OperandNone, true},
	OpFalse: {"FALSE", OperandNone, true},
	OpNot:   {"NOT", OperandNone, true},

	OpPop:         {"POP", OperandNone, false},
	OpEnter:       {"ENTER", OperandNone, false},
	OpEnterResult: {"ENTER_RESULT", OperandNone, false},
	OpExit:        {"EXIT", OperandNone, true},
	OpResultArg:   {"RESULT_ARG", OperandNone, true},

	OpVal:     {"VAL", OperandLiteral, true},
	OpValI:    {"VALI", OperandLiteral, true},
	OpDup:     {"DUP", OperandNone, true},
	OpMacro:   {"MACRO", OperandBytes, false},
	OpBool:    {"BOOL", OperandNone, false},
	OpBlock:   {"BLOCK", OperandSpan, false},
	OpEmpty:   {"EMPTY", OperandNone, true},
	OpCompile: {"COMPILE", OperandNone, false},
	OpCond:    {"COND", OperandNone, false},
	OpForce:   {"FORCE", OperandNone, true},
	OpResult:  {"RESULT", OperandNone, true},

	OpIdent:    {"IDENT", OperandIdent, false},
	OpIdentU:   {"IDENTU", OperandNone, false},
	OpIdentArg: {"IDENTARG", OperandIdent, false},

	OpCom:   {"COM", OperandIdent, true},
	OpComD:  {"COMD", OperandIdent, true},
	OpComC:  {"COMC", OperandCall, true},
	OpComV:  {"COMV", OperandCall, true},
	OpConc:  {"CONC", OperandCount, true},
	OpConcW: {"CONCW", OperandCount, true},
	OpConcM: {"CONCM", OperandCount, true},
	OpDown:  {"DOWN", OperandNone, false},

	OpSVar:  {"SVAR", OperandIdent, true},
	OpSVarM: {"SVARM", OperandIdent, false},
	OpSVar1: {"SVAR1", OperandIdent, false},
	OpIVar:  {"IVAR", OperandIdent, true},
	OpIVar1: {"IVAR1", OperandIdent, false},
	OpIVar2: {"IVAR2", OperandIdent, false},
	OpIVar3: {"IVAR3", OperandIdent, false},
	OpFVar:  {"FVAR", OperandIdent, true},
	OpFVar1: {"FVAR1", OperandIdent, false},

	OpLookup:     {"LOOKUP", OperandIdent, true},
	OpLookupU:    {"LOOKUPU", OperandNone, true},
	OpLookupArg:  {"LOOKUPARG", OperandIdent, true},
	OpLookupM:    {"LOOKUPM", OperandIdent, true},
	OpLookupMU:   {"LOOKUPMU", OperandNone, true},
	OpLookupMArg: {"LOOKUPMARG", OperandIdent, true},

	OpAlias:    {"ALIAS", OperandIdent, false},
	OpAliasU:   {"ALIASU", OperandNone, false},
	OpAliasArg: {"ALIASARG", OperandIdent, false},

	OpCall:    {"CALL", OperandCall, true},
	OpCallU:   {"CALLU", OperandCount, true},
	OpCallArg: {"CALLARG", OperandCall, true},

	OpPrint:  {"PRINT", OperandIdent, false},
	OpLocal:  {"LOCAL", OperandCount, false},
	OpDo:     {"DO", OperandNone, true},
	OpDoArgs: {"DOARGS", OperandNone, true},

	OpJump:            {"JUMP", OperandJump, false},
	OpJumpTrue:        {"JUMP_TRUE", OperandJump, false},
	OpJumpFalse:       {"JUMP_FALSE", OperandJump, false},
	OpJumpResultTrue:  {"JUMP_RESULT_TRUE", OperandJump, false},
	OpJumpResultFalse: {"JUMP_RESULT_FALSE", OperandJump, false},
}

// GetOpInfo returns metadata for an opcode.
// Returns an OpInfo with name "UNKNOWN" if the opcode is not recognized.
func GetOpInfo(op Op) OpInfo {
	if op < opCount {
		return opInfoTable[op]
	}
	return OpInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", uint32(op))}
}

// String returns the human-readable name of an opcode.
func (op Op) String() string {
	return GetOpInfo(op).Name
}

// Valid reports whether op is a defined opcode.
func (op Op) Valid() bool {
	return op < opCount
}

// IsJump returns true if this opcode is a relative jump.
func (op Op) IsJump() bool {
	return op >= OpJump && op <= OpJumpResultFalse
}

// IsCall returns true if this opcode invokes a command or alias.
func (op Op) IsCall() bool {
	switch op {
	case OpCom, OpComD, OpComC, OpComV, OpCall, OpCallU, OpCallArg:
		return true
	}
	return false
}

// OpCount returns the number of defined opcodes.
func OpCount() int {
	return int(opCount)
}

// Word packs an opcode, ret tag and 24-bit operand into one instruction word.
func Word(op Op, ret Ret, arg uint32) uint32 {
	return uint32(op) | uint32(ret) | arg<<ArgShift
}

// CallWord packs a call-style instruction: argc in bits 8..12, index above.
func CallWord(op Op, ret Ret, argc int, index int) uint32 {
	return uint32(op) | uint32(ret) | (uint32(argc)&CallArgcMask)<<ArgShift | uint32(index)<<CallIndexShift
}

// OpOf extracts the opcode from an instruction word.
func OpOf(w uint32) Op { return Op(w & OpMask) }

// RetOf extracts the ret tag from an instruction word.
func RetOf(w uint32) Ret { return Ret(w & RetMask) }

// ArgOf extracts the 24-bit operand from an instruction word.
func ArgOf(w uint32) uint32 { return w >> ArgShift }

// CallArgc extracts the argument count of a call-style word.
func CallArgc(w uint32) int { return int((w >> ArgShift) & CallArgcMask) }

// CallIndex extracts the identifier index of a call-style word.
func CallIndex(w uint32) int { return int(w >> CallIndexShift) }
