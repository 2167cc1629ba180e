package ir_test

import (
	"testing"

	"github.com/loxiemachine/loxie/internal/ast"
	"github.com/loxiemachine/loxie/internal/ir"
	"github.com/loxiemachine/loxie/internal/lexer"
	"github.com/loxiemachine/loxie/internal/natives"
	"github.com/loxiemachine/loxie/internal/parser"
	"github.com/loxiemachine/loxie/internal/semantic"
)

func analyze(t *testing.T, src string) *semantic.Result {
	t.Helper()
	l := lexer.New(src)
	p := parser.New(l)
	unit := p.ParseUnit("test.loxie")
	if len(p.Errors()) > 0 {
		t.Fatalf("parse errors: %v", p.Errors())
	}
	prog := &ast.Program{Units: []*ast.TranslationUnit{unit}}

	bundle := natives.NewBundle(nil, nil)
	a := semantic.NewAnalyzer(bundle, map[string]string{"test.loxie": src})
	res, err := a.Analyze(prog)
	if err != nil {
		t.Fatalf("analysis failed: %v (%v)", err, a.Diagnostics())
	}
	return res
}

func TestEmitReturnLiteral(t *testing.T) {
	res := analyze(t, `fun main(): int { return 7; }`)
	prog := ir.EmitProgram(res, nil)

	if prog.EntryProc != 0 {
		t.Fatalf("expected entry proc 0, got %d", prog.EntryProc)
	}
	proc := prog.Procedures[0]
	if len(proc.CFG.Blocks) != 1 {
		t.Fatalf("expected a single block, got %d", len(proc.CFG.Blocks))
	}
	blk := proc.CFG.Blocks[0]
	last := blk.Instrs[len(blk.Instrs)-1]
	if last.Op != ir.OpReturn {
		t.Fatalf("expected trailing Return, got %s", last.Op)
	}
}

func TestEmitArithmetic(t *testing.T) {
	res := analyze(t, `fun add(a: int, b: int): int { return a + b; }`)
	prog := ir.EmitProgram(res, nil)
	proc := prog.Procedures[0]
	blk := proc.CFG.Blocks[0]

	var sawAdd bool
	for _, in := range blk.Instrs {
		if in.Op == ir.OpAdd {
			sawAdd = true
		}
	}
	if !sawAdd {
		t.Fatalf("expected an Add instruction in %v", blk.Instrs)
	}
}

func TestEmitIfElseJoins(t *testing.T) {
	res := analyze(t, `
		fun choose(x: int): int {
			if (x > 0) {
				return 1;
			} else {
				return 0;
			}
		}
	`)
	prog := ir.EmitProgram(res, nil)
	proc := prog.Procedures[0]
	if len(proc.CFG.Blocks) != 4 {
		t.Fatalf("expected pre/true/false/join blocks, got %d", len(proc.CFG.Blocks))
	}
	pre := proc.CFG.Blocks[0]
	if pre.Truthy != 1 || pre.Falsy != 2 {
		t.Fatalf("unexpected pre-block successors: truthy=%d falsy=%d", pre.Truthy, pre.Falsy)
	}
}

func TestEmitWhileBackEdge(t *testing.T) {
	res := analyze(t, `
		fun count(n: int): int {
			let i: int = 0;
			while (i < n) {
				i = i + 1;
			}
			return i;
		}
	`)
	prog := ir.EmitProgram(res, nil)
	proc := prog.Procedures[0]

	var sawBeginLoop, sawPatchBack bool
	for _, blk := range proc.CFG.Blocks {
		for _, in := range blk.Instrs {
			switch in.Op {
			case ir.OpGenBeginLoop:
				sawBeginLoop = true
			case ir.OpGenPatchBack:
				sawPatchBack = true
			}
		}
	}
	if !sawBeginLoop || !sawPatchBack {
		t.Fatalf("expected GenBeginLoop/GenPatchBack markers in the loop's blocks")
	}
}

func TestEmitClassConstructorAndMethod(t *testing.T) {
	res := analyze(t, `
		class Counter {
			let value: int;

			fun Counter(start: int): Counter {
				value = start;
			}

			fun get(): int {
				return value;
			}
		}

		fun main(): int {
			let c: Counter = new Counter(5);
			return c.get();
		}
	`)
	prog := ir.EmitProgram(res, nil)

	var ctor, method *ir.Procedure
	for _, p := range prog.Procedures {
		if p.IsCtor {
			ctor = p
		}
		if p.Name == "get" {
			method = p
		}
	}
	if ctor == nil || method == nil {
		t.Fatalf("expected to find constructor and method procedures")
	}

	first := ctor.CFG.Blocks[0].Instrs[0]
	if first.Op != ir.OpMakeHeapObject {
		t.Fatalf("expected constructor to open with MakeHeapObject, got %s", first.Op)
	}
	last := ctor.CFG.Blocks[len(ctor.CFG.Blocks)-1]
	lastInstr := last.Instrs[len(last.Instrs)-1]
	if lastInstr.Op != ir.OpLeave {
		t.Fatalf("expected constructor to end with Leave, got %s", lastInstr.Op)
	}

	var sawGetSelf bool
	for _, in := range method.CFG.Blocks[0].Instrs {
		if in.Op == ir.OpGetSelf {
			sawGetSelf = true
		}
	}
	if !sawGetSelf {
		t.Fatalf("expected method body to read its field via GetSelf")
	}
}
