package semantic

import (
	"github.com/loxiemachine/loxie/internal/ast"
	"github.com/loxiemachine/loxie/internal/types"
)

// ProcKind discriminates the three callable shapes the spec names:
// free functions, methods, and constructors (spec §3).
type ProcKind int

const (
	ProcFunction ProcKind = iota
	ProcMethod
	ProcConstructor
)

// ProcInfo is one entry of the global procedure table. Procedure ids are
// assigned in prepass registration order and are stable for the rest of
// compilation (spec §4.3 invariant iii).
type ProcInfo struct {
	ID         int
	Name       string
	Kind       ProcKind
	ClassID    int // meaningful for ProcMethod/ProcConstructor
	ParamTypes []types.TypeID
	RetType    types.TypeID
	FunDecl    *ast.FunDecl    // set when Kind == ProcFunction
	MethodDecl *ast.MethodDecl // set for ProcMethod/ProcConstructor
}

// ProcTable is the analyzer's registry of every callable procedure,
// addressable both by id (for the IR/bytecode emitters) and by AST node
// (so a later pass over the same declarations finds its own id).
type ProcTable struct {
	procs  []ProcInfo
	byNode map[ast.Node]int
}

func newProcTable() *ProcTable {
	return &ProcTable{byNode: make(map[ast.Node]int)}
}

func (t *ProcTable) register(info ProcInfo, node ast.Node) int {
	info.ID = len(t.procs)
	t.procs = append(t.procs, info)
	t.byNode[node] = info.ID
	return info.ID
}

// Get returns procedure info by id.
func (t *ProcTable) Get(id int) ProcInfo { return t.procs[id] }

// Len returns the number of registered procedures.
func (t *ProcTable) Len() int { return len(t.procs) }

// IDFor returns the procedure id assigned to an ast.FunDecl or
// ast.MethodDecl node during prepass.
func (t *ProcTable) IDFor(node ast.Node) (int, bool) {
	id, ok := t.byNode[node]
	return id, ok
}

// All returns every registered procedure, in registration order.
func (t *ProcTable) All() []ProcInfo { return t.procs }
