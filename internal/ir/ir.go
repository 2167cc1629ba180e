// Package ir implements the IR/CFG emitter of spec §4.2: lowering each
// function/method/constructor body into a per-procedure control-flow graph
// of basic blocks holding region-tagged, locator-addressed instructions.
//
// There is no direct teacher analogue: go-dws compiles its AST straight to
// bytecode in one pass. This package is grounded on the teacher's general
// "one struct walks statements/expressions, returns an error" compiler
// idiom (internal/bytecode/compiler_statements.go), generalized into the
// block-list + proto-link CFG builder the spec describes.
package ir

import "github.com/loxiemachine/loxie/internal/value"

// Region identifies where a Locator's operand lives (spec §3).
type Region int

const (
	Immediate Region = iota // constant-pool index
	TempStack                // offset above the callee's frame base
	ArgStore                 // legacy argument slot (kept for format parity; unused by the emitter, which always uses TempStack for parameters)
	ObjectHeapRegion          // heap handle
	Field                     // instance field index
	Functions                 // procedure id
	Methods                   // procedure id invoked via instance
	Natives                   // native id
	BlockID                   // CFG node id placeholder, pre-patch
)

func (r Region) String() string {
	switch r {
	case Immediate:
		return "imm"
	case TempStack:
		return "stk"
	case ArgStore:
		return "arg"
	case ObjectHeapRegion:
		return "heap"
	case Field:
		return "field"
	case Functions:
		return "func"
	case Methods:
		return "method"
	case Natives:
		return "native"
	case BlockID:
		return "block"
	default:
		return "?"
	}
}

// Locator is the spec's (Region, i32) operand address.
type Locator struct {
	Region Region
	Index  int32
}

var NoLocator = Locator{Region: BlockID, Index: -1}

// Op enumerates the IR opcodes, covering the nonary/unary/binary/ternary
// shapes of spec §3 plus the marker pseudo-ops consumed only by the
// bytecode emitter's patch protocol (spec §4.3).
type Op int

const (
	OpNop Op = iota
	OpLoadConst
	OpPush
	OpPop
	OpMakeHeapValue
	OpMakeHeapObject
	OpGetSelf
	OpReplace
	OpNeg
	OpInc
	OpDec
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpCmpEq
	OpCmpNe
	OpCmpLt
	OpCmpGt
	OpJump
	OpJumpElse
	OpReturn
	OpLeave
	OpCall
	OpInstanceCall
	OpNativeCall
	// Marker pseudo-ops: patch-protocol bookkeeping only, never lowered
	// into a bytecode instruction of their own (spec §4.3).
	OpGenPatch
	OpGenBeginLoop
	OpGenPatchBack
)

func (o Op) String() string {
	names := [...]string{
		"Nop", "LoadConst", "Push", "Pop", "MakeHeapValue", "MakeHeapObject",
		"GetSelf", "Replace", "Neg", "Inc", "Dec", "Add", "Sub", "Mul", "Div",
		"CmpEq", "CmpNe", "CmpLt", "CmpGt", "Jump", "JumpElse", "Return",
		"Leave", "Call", "InstanceCall", "NativeCall",
		"GenPatch", "GenBeginLoop", "GenPatchBack",
	}
	if int(o) < len(names) {
		return names[o]
	}
	return "?"
}

// Instr is one IR instruction: a sum of nonary/unary/binary/ternary shapes,
// modeled as a fixed-size operand array plus an explicit arity.
type Instr struct {
	Op    Op
	Arity int
	A, B, C Locator
}

func Nonary(op Op) Instr                            { return Instr{Op: op, Arity: 0} }
func Unary(op Op, a Locator) Instr                   { return Instr{Op: op, Arity: 1, A: a} }
func Binary(op Op, a, b Locator) Instr               { return Instr{Op: op, Arity: 2, A: a, B: b} }
func Ternary(op Op, a, b, c Locator) Instr           { return Instr{Op: op, Arity: 3, A: a, B: b, C: c} }

// Block is one basic block: an ordered instruction list plus up to two
// successor ids (spec §3; -1 = none).
type Block struct {
	ID       int
	Instrs   []Instr
	Truthy   int
	Falsy    int
}

// CFG is one procedure's control-flow graph.
type CFG struct {
	Blocks []*Block
}

// NewBlock appends and returns a fresh block; its id is its insertion
// index (spec §3: "Nodes are identified by their insertion index").
func (c *CFG) NewBlock() *Block {
	b := &Block{ID: len(c.Blocks), Truthy: -1, Falsy: -1}
	c.Blocks = append(c.Blocks, b)
	return b
}

func (b *Block) Emit(i Instr) { b.Instrs = append(b.Instrs, i) }

// Procedure is a CFG plus its constant pool and identifying metadata, the
// unit the bytecode emitter linearizes (spec §2, §4.3).
type Procedure struct {
	ID         int
	Name       string
	ParamCount int
	IsCtor     bool
	ClassID    int // meaningful for methods/constructors
	FieldCount int // meaningful for constructors (spec §4.2 MakeHeapObject(field_count))
	CFG        *CFG
	Constants  []value.Value
	Strings    []string // interned string-literal table, consumed by OpMakeHeapValue
}

// internConst deduplicates a constant within this procedure's pool via
// linear scan (spec §4.2, §8 property 7).
func (p *Procedure) internConst(v value.Value) int32 {
	for i, c := range p.Constants {
		if eq, ok := c.Eq(v); ok && eq {
			return int32(i)
		}
	}
	p.Constants = append(p.Constants, v)
	return int32(len(p.Constants) - 1)
}

// Program is every emitted procedure plus the entry procedure id.
type Program struct {
	Procedures []*Procedure
	EntryProc  int
}
