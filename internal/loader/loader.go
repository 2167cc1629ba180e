// Package loader resolves and reads Loxie source files across the import
// graph described by spec §6: imports name bare identifiers that resolve
// to "./loxie_lib/<name>.loxie", or a literal path if it already begins
// with "./", walked depth-first with revisits suppressed.
//
// The lexer/parser/loader triangle is listed as an external collaborator
// in spec §1, but SPEC_FULL.md §11 commits to implementing it; the DFS
// shape here is original (the teacher's internal/units package only
// shipped test files into the retrieval pack), grounded on the teacher's
// internal/interp/encoding.go for the byte-level decoding in encoding.go.
package loader

import (
	"fmt"
	"path/filepath"

	"github.com/loxiemachine/loxie/internal/ast"
	"github.com/loxiemachine/loxie/internal/lexer"
	"github.com/loxiemachine/loxie/internal/parser"
)

const libDir = "loxie_lib"

// Loader resolves and parses a translation unit's import graph into one
// ast.Program, in dependency-first order.
type Loader struct {
	baseDir string
	visited map[string]bool
	sources map[string]string
	units   []*ast.TranslationUnit
}

// New creates a Loader whose bare-identifier imports resolve relative to
// baseDir (the directory containing the program's entry file).
func New(baseDir string) *Loader {
	return &Loader{
		baseDir: baseDir,
		visited: make(map[string]bool),
		sources: make(map[string]string),
	}
}

// Load reads entryPath and every file it transitively imports, returning
// one ast.Program (units in dependency-first order, so the entry file's
// own declarations are last — spec §8 S7: "one program whose entry is
// main in the importing file") plus a path-to-source map for diagnostic
// rendering (diag.Diagnostic) and the semantic analyzer.
func (l *Loader) Load(entryPath string) (*ast.Program, map[string]string, error) {
	if err := l.load(entryPath); err != nil {
		return nil, nil, err
	}
	return &ast.Program{Units: l.units}, l.sources, nil
}

func (l *Loader) load(path string) error {
	resolved, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("loader: resolving %s: %w", path, err)
	}
	if l.visited[resolved] {
		return nil
	}
	l.visited[resolved] = true

	src, err := readSource(resolved)
	if err != nil {
		return err
	}
	l.sources[resolved] = src

	lx := lexer.New(src)
	p := parser.New(lx)
	unit := p.ParseUnit(resolved)
	if errs := p.Errors(); len(errs) > 0 {
		return fmt.Errorf("loader: parsing %s: %v", resolved, errs)
	}

	for _, decl := range unit.Decls {
		imp, ok := decl.(*ast.ImportDecl)
		if !ok {
			continue
		}
		importPath := l.resolveImportPath(imp.Name)
		if err := l.load(importPath); err != nil {
			return err
		}
	}

	l.units = append(l.units, unit)
	return nil
}

// resolveImportPath applies spec §6's rule: a literal "./"-prefixed name
// is used as-is (relative to baseDir); any other bare identifier resolves
// to loxie_lib/<name>.loxie.
func (l *Loader) resolveImportPath(name string) string {
	if filepath.IsAbs(name) || hasDotSlashPrefix(name) {
		return filepath.Join(l.baseDir, name)
	}
	return filepath.Join(l.baseDir, libDir, name+".loxie")
}

func hasDotSlashPrefix(name string) bool {
	return len(name) >= 2 && name[0] == '.' && name[1] == '/'
}
