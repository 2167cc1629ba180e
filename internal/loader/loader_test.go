package loader_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/loxiemachine/loxie/internal/loader"
)

// TestLoadSingleFile is the trivial one-unit case.
func TestLoadSingleFile(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "main.loxie")
	mustWrite(t, entry, "fun main(): int { return 0; }")

	l := loader.New(dir)
	prog, sources, err := l.Load(entry)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(prog.Units) != 1 {
		t.Fatalf("expected 1 unit, got %d", len(prog.Units))
	}
	if len(sources) != 1 {
		t.Fatalf("expected 1 source entry, got %d", len(sources))
	}
}

// TestLoadImportGraph is spec §8 S7: two files, one importing the other,
// combined into one ast.Program with the importing file's unit last so
// its main is the program's entry.
func TestLoadImportGraph(t *testing.T) {
	dir := t.TempDir()
	libDir := filepath.Join(dir, "loxie_lib")
	if err := os.MkdirAll(libDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	mustWrite(t, filepath.Join(libDir, "helpers.loxie"), `fun helper(): int { return 1; }`)

	entry := filepath.Join(dir, "main.loxie")
	mustWrite(t, entry, `
import helpers;
fun main(): int { return helper() - 1; }`)

	l := loader.New(dir)
	prog, _, err := l.Load(entry)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(prog.Units) != 2 {
		t.Fatalf("expected 2 units, got %d", len(prog.Units))
	}
	if prog.Units[len(prog.Units)-1].Path != entry {
		t.Fatalf("expected the importing file's unit last, got %s", prog.Units[len(prog.Units)-1].Path)
	}
}

// TestLoadDiamondImportVisitedOnce checks revisit suppression: two units
// that both import the same third file must still produce it only once in
// the resulting unit list (spec §6 "revisits are suppressed").
func TestLoadDiamondImportVisitedOnce(t *testing.T) {
	dir := t.TempDir()
	libDir := filepath.Join(dir, "loxie_lib")
	if err := os.MkdirAll(libDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	mustWrite(t, filepath.Join(libDir, "base.loxie"), `fun base(): int { return 1; }`)
	mustWrite(t, filepath.Join(libDir, "left.loxie"), `
import base;
fun left(): int { return base(); }`)
	mustWrite(t, filepath.Join(libDir, "right.loxie"), `
import base;
fun right(): int { return base(); }`)

	entry := filepath.Join(dir, "main.loxie")
	mustWrite(t, entry, `
import left;
import right;
fun main(): int { return left() - right(); }`)

	l := loader.New(dir)
	prog, _, err := l.Load(entry)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(prog.Units) != 4 {
		t.Fatalf("expected 4 units (base once, left, right, main), got %d", len(prog.Units))
	}
}

func mustWrite(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}
