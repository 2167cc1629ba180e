package bytecode_test

import (
	"strings"
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"
	"github.com/loxiemachine/loxie/internal/ast"
	"github.com/loxiemachine/loxie/internal/bytecode"
	"github.com/loxiemachine/loxie/internal/ir"
	"github.com/loxiemachine/loxie/internal/lexer"
	"github.com/loxiemachine/loxie/internal/natives"
	"github.com/loxiemachine/loxie/internal/parser"
	"github.com/loxiemachine/loxie/internal/semantic"
)

// compile runs the pipeline up through linearized bytecode, the unit this
// package's tests exercise (spec §4.3). Grounded on the teacher's
// internal/interp/fixture_test.go TestDWScriptFixtures snapshot style,
// scaled down to Loxie's single-program-per-test fixtures (spec §8 S1-S6).
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
	bcProg, warnings, err := bytecode.Linearize(irProg)
	if err != nil {
		t.Fatalf("linearize failed: %v", err)
	}
	for _, w := range warnings {
		t.Logf("linearizer warning: %s", w)
	}
	return bcProg
}

// TestS1ReturnLiteral is spec §8 scenario S1.
func TestS1ReturnLiteral(t *testing.T) {
	prog := compile(t, `fun main(): int { return 0; }`)
	snaps.MatchSnapshot(t, "s1_return_literal", bytecode.Disassemble(prog))
}

// TestS2Arithmetic is spec §8 scenario S2.
func TestS2Arithmetic(t *testing.T) {
	prog := compile(t, `fun main(): int { let a: int = 3; let b: int = 4; return a + b - 7; }`)
	snaps.MatchSnapshot(t, "s2_arithmetic", bytecode.Disassemble(prog))
}

// TestS3Conditional is spec §8 scenario S3.
func TestS3Conditional(t *testing.T) {
	prog := compile(t, `fun main(): int { let n: int = 2; if n > 1 { return 0; } else { return 1; } }`)
	snaps.MatchSnapshot(t, "s3_conditional", bytecode.Disassemble(prog))

	// Property 4: no jump target may remain -1 after linearization.
	for _, proc := range prog.Procedures {
		for i, instr := range proc.Chunk.Code {
			switch instr.Op {
			case ir.OpJump:
				if instr.A.Index < 0 {
					t.Fatalf("unpatched Jump at %d", i)
				}
			case ir.OpJumpElse:
				if instr.B.Index < 0 {
					t.Fatalf("unpatched JumpElse at %d", i)
				}
			}
		}
	}
}

// TestS4WhileLoop is spec §8 scenario S4: a counting loop must linearize
// (every pending patch resolved) with exactly one backward edge.
func TestS4WhileLoop(t *testing.T) {
	prog := compile(t, `
fun main(): int {
	let n: int = 5;
	while n > 0 {
		n = n - 1;
	}
	return n;
}`)
	snaps.MatchSnapshot(t, "s4_while_loop", bytecode.Disassemble(prog))

	proc := prog.Procedures[0]
	backward := 0
	for i, instr := range proc.Chunk.Code {
		if instr.Op == ir.OpJump && int(instr.A.Index) <= i {
			backward++
		}
	}
	if backward != 1 {
		t.Fatalf("expected exactly one backward edge, got %d", backward)
	}
}

// TestS5DivisionByZero only needs to compile cleanly; BadMath is a VM-level
// outcome (internal/vm).
func TestS5DivisionByZero(t *testing.T) {
	prog := compile(t, `fun main(): int { let a: int = 1; let b: int = 0; return a / b; }`)
	snaps.MatchSnapshot(t, "s5_division_by_zero", bytecode.Disassemble(prog))
}

// TestS6ClassWithMethod is spec §8 scenario S6.
func TestS6ClassWithMethod(t *testing.T) {
	prog := compile(t, `
class Counter {
	let value: int;
	fun Counter(v: int) {
		value = v;
	}
	fun get(): int {
		return value;
	}
}
fun main(): int {
	let c: Counter = new Counter(7);
	return c.get() - 7;
}`)
	snaps.MatchSnapshot(t, "s6_class_with_method", bytecode.Disassemble(prog))
}

func TestDisassembleIncludesProcHeader(t *testing.T) {
	prog := compile(t, `fun id(x: int): int { return x; }`)
	out := bytecode.Disassemble(prog)
	if !strings.Contains(out, "proc 0 id") {
		t.Fatalf("expected proc header in disassembly, got:\n%s", out)
	}
}
