package semantic_test

import (
	"strings"
	"testing"

	"github.com/loxiemachine/loxie/internal/ast"
	"github.com/loxiemachine/loxie/internal/lexer"
	"github.com/loxiemachine/loxie/internal/natives"
	"github.com/loxiemachine/loxie/internal/parser"
	"github.com/loxiemachine/loxie/internal/semantic"
)

func analyze(t *testing.T, src string) (*semantic.Result, error, *semantic.Analyzer) {
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
	return res, err, a
}

// TestDuplicateClassDeclarationFails is spec.md:69/property 8: duplicate
// declarations in the same scope are errors. Two `class Foo` declarations
// must be rejected rather than silently merged into one Blueprint.
func TestDuplicateClassDeclarationFails(t *testing.T) {
	_, err, a := analyze(t, `
class Foo {
	let x: int;
}
class Foo {
	let y: int;
}
fun main(): int { return 0; }`)
	if err == nil {
		t.Fatalf("expected duplicate class declaration to fail analysis")
	}
	found := false
	for _, d := range a.Diagnostics() {
		if strings.Contains(d.Message, "duplicate declaration") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a duplicate-declaration diagnostic, got %v", a.Diagnostics())
	}
}

// TestSingleClassDeclarationSucceeds is the control case: one class
// declaration analyzes cleanly.
func TestSingleClassDeclarationSucceeds(t *testing.T) {
	_, err, _ := analyze(t, `
class Foo {
	let x: int;
}
fun main(): int { return 0; }`)
	if err != nil {
		t.Fatalf("expected single class declaration to succeed, got %v", err)
	}
}
