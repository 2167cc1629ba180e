package vm

import (
	"github.com/loxiemachine/loxie/internal/bytecode"
	"github.com/loxiemachine/loxie/internal/heap"
	"github.com/loxiemachine/loxie/internal/natives"
	"github.com/loxiemachine/loxie/internal/value"
)

// Engine is the spec §4.4 stack machine: a call-frame deque, an operand
// stack, a reference-counted heap, and the four registers (rpp, rip, rbp,
// rsp) the instruction table operates on. It implements natives.Stack so
// a native function can pop/push/allocate directly against it.
//
// Grounded on the teacher's internal/bytecode/{vm_core.go,vm_exec.go,
// vm_stack.go}: a struct holding slices for frames/stack plus registers,
// one dispatch loop, and Pop/Push helpers returning error.
type Engine struct {
	prog    *bytecode.Program
	heap    *heap.Heap
	natives *natives.Bundle
	cfg     Config

	stack  []value.Value
	frames []Frame

	rpp int // current procedure id
	rip int // instruction offset within the current procedure
	rbp int // current frame base (absolute stack index)
	rsp int // current stack top (absolute stack index); -1 when empty

	preload []int32 // Program.Preload[i] materialized as a heap handle

	trace func(pc int, instr bytecode.Instr)
}

// New creates an Engine ready to execute prog from its entry procedure.
// Every preloaded string literal is materialized into its own heap cell
// once, up front (spec §3's "preloadable heap values"), rather than
// reallocated on every OpMakeHeapValue execution.
func New(prog *bytecode.Program, nat *natives.Bundle, cfg Config) (*Engine, error) {
	h := heap.New(cfg.HeapBudget, cfg.CellOverhead)
	e := &Engine{
		prog:    prog,
		heap:    h,
		natives: nat,
		cfg:     cfg,
		stack:   make([]value.Value, cfg.StackCapacity),
		rsp:     -1,
	}
	e.preload = make([]int32, len(prog.Preload))
	for i, s := range prog.Preload {
		handle, err := h.MakeVarchar(s)
		if err != nil {
			return nil, fail(AccessError, "vm: preloading string %d: %v", i, err)
		}
		e.preload[i] = handle
	}
	return e, nil
}

// SetTrace installs a per-instruction hook, used by the --trace CLI flag
// (SPEC_FULL.md §10.1) to print each executed instruction before it runs.
func (e *Engine) SetTrace(fn func(pc int, instr bytecode.Instr)) { e.trace = fn }

// Heap implements natives.Stack.
func (e *Engine) Heap() *heap.Heap { return e.heap }

// Push implements natives.Stack and the general push rule of spec §3
// Lifecycles: pushing a HeapRef increments its target's refcount.
func (e *Engine) Push(v value.Value) {
	e.rsp++
	if e.rsp >= len(e.stack) {
		e.stack = append(e.stack, v)
	} else {
		e.stack[e.rsp] = v
	}
	if v.Tag == value.HeapRef {
		e.heap.Incref(v.Ref)
	}
}

// Pop implements natives.Stack and the general pop rule of spec §3
// Lifecycles: popping a HeapRef decrements its target's refcount.
func (e *Engine) Pop() (value.Value, error) {
	if e.rsp < 0 {
		return value.Value{}, fail(AccessError, "vm: pop from empty stack")
	}
	v := e.stack[e.rsp]
	e.rsp--
	if v.Tag == value.HeapRef {
		e.heap.Decref(v.Ref)
	}
	return v, nil
}

func (e *Engine) currentFrame() *Frame { return &e.frames[len(e.frames)-1] }

// Run executes the program to completion, starting at its entry
// procedure, and returns the exit status and the final stack[0] value
// (spec §4.4, §6: "a zero Int means success").
func (e *Engine) Run() (Status, value.Value, error) {
	if e.prog.EntryProc < 0 {
		return IllegalInstruction, value.Value{}, fail(IllegalInstruction, "vm: program has no entry procedure")
	}
	e.frames = append(e.frames, Frame{CallerID: -1, ReturnIP: -1, SavedRBP: -1, Instance: noInstance})
	e.rpp = e.prog.EntryProc
	e.rip = 0
	e.rbp = 0

	for len(e.frames) > 0 {
		proc, err := e.prog.ProcByID(e.rpp)
		if err != nil {
			return IllegalInstruction, value.Value{}, fail(IllegalInstruction, "%v", err)
		}
		if e.rip < 0 || e.rip >= len(proc.Chunk.Code) {
			return IllegalInstruction, value.Value{}, fail(IllegalInstruction, "vm: pc %d out of range in proc %d", e.rip, proc.ID)
		}
		instr := proc.Chunk.Code[e.rip]
		if e.trace != nil {
			e.trace(e.rip, instr)
		}

		jumped, err := e.step(proc, instr)
		if err != nil {
			return StatusOf(err), value.Value{}, err
		}
		if e.rsp >= e.cfg.StackCapacity {
			err := fail(AccessError, "vm: operand stack capacity %d exceeded", e.cfg.StackCapacity)
			return AccessError, value.Value{}, err
		}
		if !jumped {
			e.rip++
		}

		// Opportunistic incremental sweep (spec §4.4, §4.5): once the heap
		// is more than half full, reclaim zero-refcount cells instead of
		// waiting for outright allocation failure.
		if e.heap.LiveCount()*2 > e.heap.Capacity() {
			e.heap.Sweep(e.liveRoots())
		}
	}

	if e.rsp < 0 {
		return NotOk, value.Value{}, fail(AccessError, "vm: program halted with an empty stack")
	}
	result := e.stack[0]
	if result.Tag == value.Int && result.Int_ == 0 {
		return Ok, result, nil
	}
	return NotOk, result, nil
}

// liveRoots reports every heap handle currently reachable from the
// operand stack, the frame deque's instance fields, and the preload
// table, for a conservative sweep (spec §4.5).
func (e *Engine) liveRoots() []int32 {
	roots := make([]int32, 0, e.rsp+1+len(e.frames)+len(e.preload))
	for i := 0; i <= e.rsp; i++ {
		if e.stack[i].Tag == value.HeapRef {
			roots = append(roots, e.stack[i].Ref)
		}
	}
	for _, f := range e.frames {
		if f.Instance != noInstance {
			roots = append(roots, f.Instance)
		}
	}
	roots = append(roots, e.preload...)
	return roots
}

// Shutdown force-reclaims every heap cell regardless of refcount, used
// once Run returns (spec §4.5).
func (e *Engine) Shutdown() { e.heap.ForceReclaim() }

// AllRefCountsZero reports whether the heap is fully balanced, the
// postcondition spec §8 property 6 checks after a program terminates
// (call before Shutdown).
func (e *Engine) AllRefCountsZero() bool { return e.heap.AllRefCountsZero() }
