package vm_test

import (
	"testing"

	"github.com/loxiemachine/loxie/internal/ast"
	"github.com/loxiemachine/loxie/internal/bytecode"
	"github.com/loxiemachine/loxie/internal/ir"
	"github.com/loxiemachine/loxie/internal/lexer"
	"github.com/loxiemachine/loxie/internal/natives"
	"github.com/loxiemachine/loxie/internal/parser"
	"github.com/loxiemachine/loxie/internal/semantic"
	"github.com/loxiemachine/loxie/internal/value"
	"github.com/loxiemachine/loxie/internal/vm"
)

// compile runs the full front end down to linearized bytecode, the same
// pipeline internal/bytecode's fixture tests use, scoped here to feed the
// engine directly (spec §8 S1-S6, end to end this time).
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

func run(t *testing.T, src string) (vm.Status, value.Value, *vm.Engine) {
	t.Helper()
	prog := compile(t, src)
	e, err := vm.New(prog, natives.NewBundle(nil, nil), vm.DefaultConfig())
	if err != nil {
		t.Fatalf("engine construction failed: %v", err)
	}
	status, result, err := e.Run()
	if err != nil && status != vm.BadMath {
		t.Fatalf("run failed: %v", err)
	}
	return status, result, e
}

// TestS1ReturnLiteral is spec §8 scenario S1.
func TestS1ReturnLiteral(t *testing.T) {
	status, result, _ := run(t, `fun main(): int { return 0; }`)
	if status != vm.Ok {
		t.Fatalf("expected Ok, got %s", status)
	}
	if result.Tag != value.Int || result.Int_ != 0 {
		t.Fatalf("expected int 0, got %v", result)
	}
}

// TestS2Arithmetic is spec §8 scenario S2: 3 + 4 - 7 == 0.
func TestS2Arithmetic(t *testing.T) {
	status, result, _ := run(t, `fun main(): int { let a: int = 3; let b: int = 4; return a + b - 7; }`)
	if status != vm.Ok {
		t.Fatalf("expected Ok, got %s (%v)", status, result)
	}
}

// TestS3Conditional is spec §8 scenario S3: the true branch executes.
func TestS3Conditional(t *testing.T) {
	status, _, _ := run(t, `fun main(): int { let n: int = 2; if n > 1 { return 0; } else { return 1; } }`)
	if status != vm.Ok {
		t.Fatalf("expected Ok, got %s", status)
	}

	status, _, _ = run(t, `fun main(): int { let n: int = 0; if n > 1 { return 0; } else { return 1; } }`)
	if status != vm.NotOk {
		t.Fatalf("expected NotOk for the false branch, got %s", status)
	}
}

// TestS4WhileLoop is spec §8 scenario S4: counts n down to 0.
func TestS4WhileLoop(t *testing.T) {
	status, result, _ := run(t, `
fun main(): int {
	let n: int = 5;
	while n > 0 {
		n = n - 1;
	}
	return n;
}`)
	if status != vm.Ok {
		t.Fatalf("expected Ok, got %s (%v)", status, result)
	}
}

// TestS5DivisionByZero is spec §8 scenario S5: BadMath, not a crash.
func TestS5DivisionByZero(t *testing.T) {
	status, _, _ := run(t, `fun main(): int { let a: int = 1; let b: int = 0; return a / b; }`)
	if status != vm.BadMath {
		t.Fatalf("expected BadMath, got %s", status)
	}
}

// TestS6ClassWithMethod is spec §8 scenario S6: a constructor records a
// field, a method reads it back, and every heap cell is balanced once
// the program halts (property 6).
func TestS6ClassWithMethod(t *testing.T) {
	status, result, e := run(t, `
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
	if status != vm.Ok {
		t.Fatalf("expected Ok, got %s (%v)", status, result)
	}
	if !e.AllRefCountsZero() {
		t.Fatalf("expected every heap cell to be refcount-balanced after halt")
	}
}

// TestPreloadedStringsAreNotPermanentlyInflated is spec §8 property 6: a
// preloaded string literal's heap cell starts at refcount 0 (matching
// original_source's src/vm/heap.rs HeapCell::new), not pre-incremented as
// a "permanent root" — liveRoots already protects every preload handle
// from the sweep without needing its own refcount held up.
func TestPreloadedStringsAreNotPermanentlyInflated(t *testing.T) {
	status, result, e := run(t, `fun main(): int { let a: string = "hi"; return 0; }`)
	if status != vm.Ok {
		t.Fatalf("expected Ok, got %s (%v)", status, result)
	}
	if !e.AllRefCountsZero() {
		t.Fatalf("expected every heap cell, including the preload table, to be refcount-balanced after halt")
	}
}

// TestStringLiteralsAreSharedPreloads checks that two uses of the same
// string literal resolve to the same heap handle (spec §3: preloadable
// heap values are materialized once, not reallocated per OpMakeHeapValue).
func TestStringLiteralsAreSharedPreloads(t *testing.T) {
	prog := compile(t, `fun main(): int { let a: string = "hi"; let b: string = "hi"; return 0; }`)
	if len(prog.Preload) != 1 {
		t.Fatalf("expected one deduplicated preload entry, got %d: %v", len(prog.Preload), prog.Preload)
	}
}
