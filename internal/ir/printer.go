package ir

import (
	"fmt"
	"strings"
)

// Print renders a Program as human-readable IR text, grounded on the
// teacher's disassembly idiom (internal/bytecode/disasm.go): one line per
// instruction, block headers, locator operands spelled as region:index.
func Print(p *Program) string {
	var b strings.Builder
	for _, proc := range p.Procedures {
		printProc(&b, proc)
	}
	return b.String()
}

func printProc(b *strings.Builder, proc *Procedure) {
	fmt.Fprintf(b, "proc %d %s(params=%d)", proc.ID, proc.Name, proc.ParamCount)
	if proc.IsCtor {
		fmt.Fprintf(b, " ctor class=%d fields=%d", proc.ClassID, proc.FieldCount)
	}
	b.WriteString("\n")
	for i, c := range proc.Constants {
		fmt.Fprintf(b, "  const %d = %s\n", i, c.String())
	}
	for i, s := range proc.Strings {
		fmt.Fprintf(b, "  string %d = %q\n", i, s)
	}
	for _, blk := range proc.CFG.Blocks {
		fmt.Fprintf(b, " block %d (truthy=%d falsy=%d)\n", blk.ID, blk.Truthy, blk.Falsy)
		for _, instr := range blk.Instrs {
			fmt.Fprintf(b, "   %s\n", printInstr(instr))
		}
	}
}

func printInstr(i Instr) string {
	switch i.Arity {
	case 0:
		return i.Op.String()
	case 1:
		return fmt.Sprintf("%s %s", i.Op, printLocator(i.A))
	case 2:
		return fmt.Sprintf("%s %s, %s", i.Op, printLocator(i.A), printLocator(i.B))
	case 3:
		return fmt.Sprintf("%s %s, %s, %s", i.Op, printLocator(i.A), printLocator(i.B), printLocator(i.C))
	default:
		return i.Op.String()
	}
}

func printLocator(l Locator) string {
	return fmt.Sprintf("%s:%d", l.Region, l.Index)
}
