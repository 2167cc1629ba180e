// Package bytecode implements the CFG linearizer and patch protocol of
// spec §4.3: walking each procedure's control-flow graph in a deterministic
// order, emitting a linear instruction stream in which every jump target
// is an absolute instruction offset.
//
// Grounded on the teacher's internal/bytecode/{bytecode.go,compiler_core.go,
// disasm.go} for the Chunk/Program shape and disassembly idiom; the
// patch-deque protocol itself follows spec §4.3 directly, since the
// teacher's own jump patching is single-pass (it compiles straight from
// structured AST and never needs to linearize a CFG after the fact).
package bytecode

import (
	"fmt"

	"github.com/loxiemachine/loxie/internal/ir"
	"github.com/loxiemachine/loxie/internal/value"
)

// ArgMode tags how an Arg's Index should be interpreted, the bytecode-level
// counterpart of ir.Region (spec §4.3).
type ArgMode int

const (
	ArgNone ArgMode = iota
	ConstantID
	StackOffset
	HeapID
	InstanceFieldID
	ProcedureID
	NativeID
	CodeOffset
	RawCount // a literal integer (arity, field count) carried directly, not a pool index
)

func (m ArgMode) String() string {
	switch m {
	case ConstantID:
		return "const"
	case StackOffset:
		return "stack"
	case HeapID:
		return "heap"
	case InstanceFieldID:
		return "field"
	case ProcedureID:
		return "proc"
	case NativeID:
		return "native"
	case CodeOffset:
		return "off"
	case RawCount:
		return "count"
	default:
		return "-"
	}
}

// Arg is one resolved operand: an ArgMode plus its index, with every jump
// target (CodeOffset) guaranteed non-negative once emission completes
// (spec §8 property 4).
type Arg struct {
	Mode  ArgMode
	Index int32
}

// Instr is one linearized bytecode instruction. It reuses ir.Op for the
// executable opcode subset (every ir.Op except the Gen* marker pseudo-ops,
// which never survive linearization).
type Instr struct {
	Op      ir.Op
	Arity   int
	A, B, C Arg
}

// Chunk is a frozen constant pool plus the linear instruction vector of one
// procedure (spec §3).
type Chunk struct {
	Constants []value.Value
	Code      []Instr
}

// Procedure is a compiled (id, chunk) pair, carrying the same identifying
// metadata as its IR counterpart so the VM can set up call frames without
// consulting the IR stage again.
type Procedure struct {
	ID         int
	Name       string
	ParamCount int
	IsCtor     bool
	ClassID    int
	FieldCount int
	Chunk      Chunk
}

// Program is the assembled compilation unit: every procedure, the
// preloadable heap values materialized once at engine start (spec §3 "A
// program is (procedures, preloadable heap values, entry procedure id)"),
// and the entry procedure id.
type Program struct {
	Procedures []*Procedure
	Preload    []string // string literals to materialize into heap cells once, at VM startup
	EntryProc  int
}

// ProcByID returns the procedure with the given id, or an error if none
// exists — procedure ids are stable and dense from registration order
// (spec §4.3 invariant iii), so this is simply an index lookup with a
// bounds check.
func (p *Program) ProcByID(id int) (*Procedure, error) {
	if id < 0 || id >= len(p.Procedures) {
		return nil, fmt.Errorf("bytecode: unknown procedure id %d", id)
	}
	return p.Procedures[id], nil
}
