package driver_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/loxiemachine/loxie/internal/driver"
	"github.com/loxiemachine/loxie/internal/vm"
)

// TestRunSingleFile is spec §8 S1, driven through the full driver pipeline
// rather than compiled in-process like internal/vm's own fixture tests.
func TestRunSingleFile(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "main.loxie")
	mustWrite(t, entry, `fun main(): int { return 0; }`)

	status, _, err := driver.Run(entry, driver.Options{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if status != vm.Ok {
		t.Fatalf("expected Ok, got %s", status)
	}
}

// TestRunImportedFile is spec §8 S7: two files, one importing the other,
// combined into one program whose entry is main in the importing file.
func TestRunImportedFile(t *testing.T) {
	dir := t.TempDir()
	libDir := filepath.Join(dir, "loxie_lib")
	if err := os.MkdirAll(libDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	mustWrite(t, filepath.Join(libDir, "math.loxie"), `fun square(n: int): int { return n * n; }`)

	entry := filepath.Join(dir, "main.loxie")
	mustWrite(t, entry, `
import math;
fun main(): int { return square(3) - 9; }`)

	status, _, err := driver.Run(entry, driver.Options{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if status != vm.Ok {
		t.Fatalf("expected Ok, got %s", status)
	}
}

// TestRunDivisionByZero is spec §8 S5 through the driver: a BadMath
// status, not a Go panic or process crash.
func TestRunDivisionByZero(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "main.loxie")
	mustWrite(t, entry, `fun main(): int { let a: int = 1; let b: int = 0; return a / b; }`)

	status, _, err := driver.Run(entry, driver.Options{})
	if err != nil && status != vm.BadMath {
		t.Fatalf("Run failed unexpectedly: %v", err)
	}
	if status != vm.BadMath {
		t.Fatalf("expected BadMath, got %s", status)
	}
}

// TestCompileExposesBytecodeForDisasm checks Compile alone succeeds
// without executing, the path `loxie disasm` uses.
func TestCompileExposesBytecodeForDisasm(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "main.loxie")
	mustWrite(t, entry, `fun main(): int { return 0; }`)

	compiled, err := driver.Compile(entry)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if compiled.Bytecode == nil || len(compiled.Bytecode.Procedures) == 0 {
		t.Fatalf("expected at least one compiled procedure")
	}
}

// TestRunWiresIONatives checks that println writes to Options.Out instead
// of panicking against a nil io.Writer (internal/natives/io.go's println
// calls fmt.Fprintln(b.out, ...) directly against whatever NewBundle was
// given).
func TestRunWiresIONatives(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "main.loxie")
	mustWrite(t, entry, `fun main(): int { println("hi"); return 0; }`)

	var out bytes.Buffer
	status, _, err := driver.Run(entry, driver.Options{Out: &out})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if status != vm.Ok {
		t.Fatalf("expected Ok, got %s", status)
	}
	if !strings.Contains(out.String(), "hi") {
		t.Fatalf("expected println output to reach Options.Out, got %q", out.String())
	}
}

// TestRunDefaultsIOToStdStreams checks that omitting Options.Out/In falls
// back to os.Stdout/os.Stdin rather than a nil writer/reader.
func TestRunDefaultsIOToStdStreams(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "main.loxie")
	mustWrite(t, entry, `fun main(): int { print("ok"); return 0; }`)

	status, _, err := driver.Run(entry, driver.Options{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if status != vm.Ok {
		t.Fatalf("expected Ok, got %s", status)
	}
}

func mustWrite(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}
