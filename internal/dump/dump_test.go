package dump_test

import (
	"testing"

	"github.com/loxiemachine/loxie/internal/ast"
	"github.com/loxiemachine/loxie/internal/bytecode"
	"github.com/loxiemachine/loxie/internal/dump"
	"github.com/loxiemachine/loxie/internal/ir"
	"github.com/loxiemachine/loxie/internal/lexer"
	"github.com/loxiemachine/loxie/internal/natives"
	"github.com/loxiemachine/loxie/internal/parser"
	"github.com/loxiemachine/loxie/internal/semantic"
)

func compile(t *testing.T, src string) *bytecode.Program {
	t.Helper()
	l := lexer.New(src)
	p := parser.New(l)
	unit := p.ParseUnit("fixture.loxie")
	if len(p.Errors()) > 0 {
		t.Fatalf("parse errors: %v", p.Errors())
	}
	prog := &ast.Program{Units: []*ast.TranslationUnit{unit}}

	bundle := natives.NewBundle(nil, nil)
	a := semantic.NewAnalyzer(bundle, map[string]string{"fixture.loxie": src})
	res, err := a.Analyze(prog)
	if err != nil {
		t.Fatalf("semantic analysis failed: %v (%v)", err, a.Diagnostics())
	}

	irProg := ir.EmitProgram(res, bundle)
	bcProg, _, err := bytecode.Linearize(irProg)
	if err != nil {
		t.Fatalf("linearize failed: %v", err)
	}
	return bcProg
}

func TestProgramDumpRoundTrips(t *testing.T) {
	bc := compile(t, `fun main(): int { let a: int = 3; let b: int = 4; return a + b - 7; }`)

	doc, err := dump.Program(bc)
	if err != nil {
		t.Fatalf("Program dump failed: %v", err)
	}

	if got := dump.Query(doc, "entry_proc").Int(); got != int64(bc.EntryProc) {
		t.Fatalf("entry_proc = %d, want %d", got, bc.EntryProc)
	}
	if got := dump.Query(doc, "procedures.0.name").String(); got != "main" {
		t.Fatalf("procedures.0.name = %q, want main", got)
	}
	codeLen := dump.Query(doc, "procedures.0.code").Array()
	if len(codeLen) != len(bc.Procedures[0].Chunk.Code) {
		t.Fatalf("dumped %d instructions, want %d", len(codeLen), len(bc.Procedures[0].Chunk.Code))
	}
}

func TestProgramDumpPreloadedStrings(t *testing.T) {
	bc := compile(t, `fun main(): int { let a: string = "hi"; return 0; }`)

	doc, err := dump.Program(bc)
	if err != nil {
		t.Fatalf("Program dump failed: %v", err)
	}
	preload := dump.Query(doc, "preload").Array()
	if len(preload) != 1 || preload[0].String() != "hi" {
		t.Fatalf("preload = %v, want [\"hi\"]", preload)
	}
}
