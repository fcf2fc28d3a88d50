package bytecode

import (
	"fmt"
	"strings"
)

// IdentNamer resolves identifier indices for listings.
type IdentNamer interface {
	IdentName(index int) string
}

// Disassemble returns a human-readable listing of the block.
func (b *Block) Disassemble() string {
	return b.DisassembleWithNames(nil)
}

// DisassembleWithNames returns a listing with identifier operands annotated
// by names. names may be nil.
func (b *Block) DisassembleWithNames(names IdentNamer) string {
	var sb strings.Builder

	// Header
	if b.Name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", b.Name))
	}
	sb.WriteString(fmt.Sprintf("; CubeScript Bytecode v%d\n", FormatVersion))
	sb.WriteString(fmt.Sprintf("; Words: %d\n\n", len(b.Words)))

	// Nested block literals are indented by depth.
	var ends []int
	for pc := 0; pc < len(b.Words); {
		for len(ends) > 0 && pc > ends[len(ends)-1] {
			ends = ends[:len(ends)-1]
		}
		in, err := Decode(b.Words, pc)
		if err != nil {
			sb.WriteString(fmt.Sprintf("%04X  <%v>\n", pc, err))
			break
		}
		indent := strings.Repeat("  ", len(ends))
		sb.WriteString(fmt.Sprintf("%04X  %s%s\n", pc, indent, formatInstr(in, pc, names)))
		if in.Op == OpBlock {
			ends = append(ends, pc+int(in.Arg))
		}
		pc += in.Size
	}

	return sb.String()
}

// formatInstr renders one decoded instruction.
func formatInstr(in Instr, pc int, names IdentNamer) string {
	name := in.Op.String()
	if r := in.Ret.String(); r != "" && GetOpInfo(in.Op).Returns {
		name += "|" + r
	}

	switch GetOpInfo(in.Op).Operand {
	case OperandIdent:
		return fmt.Sprintf("%s %d%s", name, in.Index(), identComment(in.Index(), names))

	case OperandCall:
		return fmt.Sprintf("%s %d argc=%d%s", name, in.Index(), in.Argc(), identComment(in.Index(), names))

	case OperandCount:
		return fmt.Sprintf("%s %d", name, in.Arg)

	case OperandJump:
		return fmt.Sprintf("%s %+d (-> %04X)", name, in.Arg, in.Target(pc))

	case OperandSpan:
		return fmt.Sprintf("%s len=%d (-> %04X)", name, in.Arg, pc+1+int(in.Arg))

	case OperandBytes:
		return fmt.Sprintf("%s %q", name, truncateLiteral(in.Str))

	case OperandLiteral:
		switch in.Ret {
		case RetInt:
			return fmt.Sprintf("%s %d", name, in.Int)
		case RetFloat:
			return fmt.Sprintf("%s %g", name, in.Float)
		case RetStr:
			return fmt.Sprintf("%s %q", name, truncateLiteral(in.Str))
		}
		return name
	}
	return name
}

func identComment(index int, names IdentNamer) string {
	if names == nil {
		return ""
	}
	if n := names.IdentName(index); n != "" {
		return " ; " + n
	}
	return ""
}

func truncateLiteral(s string) string {
	if len(s) > 40 {
		return s[:37] + "..."
	}
	return s
}
