package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble renders a Program as human-readable linear bytecode text,
// grounded on the teacher's internal/bytecode/disasm.go idiom: one line per
// procedure header, one per constant, one per instruction with its
// resolved absolute offset.
func Disassemble(p *Program) string {
	var b strings.Builder
	fmt.Fprintf(&b, "entry proc %d, %d preloaded string(s)\n", p.EntryProc, len(p.Preload))
	for i, s := range p.Preload {
		fmt.Fprintf(&b, "  preload %d = %q\n", i, s)
	}
	for _, proc := range p.Procedures {
		disasmProc(&b, proc)
	}
	return b.String()
}

func disasmProc(b *strings.Builder, proc *Procedure) {
	fmt.Fprintf(b, "proc %d %s(params=%d)", proc.ID, proc.Name, proc.ParamCount)
	if proc.IsCtor {
		fmt.Fprintf(b, " ctor class=%d fields=%d", proc.ClassID, proc.FieldCount)
	}
	b.WriteString("\n")
	for i, c := range proc.Chunk.Constants {
		fmt.Fprintf(b, "  const %d = %s\n", i, c.String())
	}
	for i, instr := range proc.Chunk.Code {
		fmt.Fprintf(b, "  %4d  %s\n", i, FormatInstr(instr))
	}
}

// FormatInstr renders one instruction in "Op a, b, c" form, the same shape
// the IR-level printer uses (internal/ir/printer.go) so both disassembly
// levels read consistently.
func FormatInstr(i Instr) string {
	switch i.Arity {
	case 0:
		return i.Op.String()
	case 1:
		return fmt.Sprintf("%s %s", i.Op, formatArg(i.A))
	case 2:
		return fmt.Sprintf("%s %s, %s", i.Op, formatArg(i.A), formatArg(i.B))
	case 3:
		return fmt.Sprintf("%s %s, %s, %s", i.Op, formatArg(i.A), formatArg(i.B), formatArg(i.C))
	default:
		return i.Op.String()
	}
}

func formatArg(a Arg) string {
	if a.Mode == ArgNone {
		return "-"
	}
	return fmt.Sprintf("%s:%d", a.Mode, a.Index)
}
