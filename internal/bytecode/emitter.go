package bytecode

import (
	"fmt"

	"github.com/loxiemachine/loxie/internal/ir"
)

// patch is one pending jump-target fixup (spec §4.3).
type patch struct {
	instrPos int // position of the jump instruction being patched; -1 for a not-yet-located backward patch
	target   int // resolved target offset; -1 until known
}

// linearizer holds the per-procedure state used while walking the CFG:
// the output instruction stream under construction and two patch channels.
//
// The spec describes a single deque of pending patches; in practice
// GenPatch always resolves the oldest pending *forward* jump while
// GenPatchBack always resolves the innermost pending *loop* (the two
// disciplines only coincide for non-nested control flow), so this
// implementation keeps a forward FIFO and a backward LIFO rather than
// interleaving both patch kinds in one list — see DESIGN.md's note on
// this refinement of spec §4.3's patch protocol.
type linearizer struct {
	code []Instr
	fwd  []*patch // forward patches: push back, pop front (FIFO)
	back []*patch // backward (loop) patches: push/pop back (LIFO)
}

// Linearize walks every procedure's CFG in deterministic DFS order and
// produces its linear bytecode, flattening every procedure's interned
// string table into one program-wide preload list (spec §3's
// "preloadable heap values") so the VM can materialize every compiled
// string literal into a heap cell once, at program load, instead of
// reallocating on every execution of OpMakeHeapValue.
func Linearize(prog *ir.Program) (*Program, []string, error) {
	out := &Program{EntryProc: prog.EntryProc}
	var warnings []string

	base := 0
	for _, proc := range prog.Procedures {
		bp, warns, err := linearizeProc(proc, base)
		if err != nil {
			return nil, nil, fmt.Errorf("procedure %d (%s): %w", proc.ID, proc.Name, err)
		}
		warnings = append(warnings, warns...)
		out.Procedures = append(out.Procedures, bp)
		out.Preload = append(out.Preload, proc.Strings...)
		base += len(proc.Strings)
	}
	return out, warnings, nil
}

// linearizeProc runs the traversal described in spec §4.3: an iterative
// DFS work list starting at block 0. A block with two successors enqueues
// both (falsy first, so LIFO ordering pops truthy next); a block with one
// successor enqueues it after any pending branch siblings (appended to the
// back of the work list instead of the front, so it is processed only once
// every currently-pending sibling has been).
func linearizeProc(proc *ir.Procedure, stringBase int) (*Procedure, []string, error) {
	l := &linearizer{}
	var warnings []string

	visited := make(map[int]bool, len(proc.CFG.Blocks))
	worklist := []int{0}

	for len(worklist) > 0 {
		id := worklist[0]
		worklist = worklist[1:]
		if visited[id] {
			continue
		}
		visited[id] = true
		blk := proc.CFG.Blocks[id]

		for _, instr := range blk.Instrs {
			if err := l.emit(instr, stringBase); err != nil {
				return nil, nil, err
			}
		}

		switch {
		case blk.Truthy >= 0 && blk.Falsy >= 0:
			worklist = append([]int{blk.Truthy, blk.Falsy}, worklist...)
		case blk.Truthy >= 0:
			worklist = append(worklist, blk.Truthy)
		}
	}

	for _, blk := range proc.CFG.Blocks {
		if !visited[blk.ID] {
			warnings = append(warnings, fmt.Sprintf("procedure %s: block %d is unreachable and was dropped", proc.Name, blk.ID))
		}
	}

	for _, p := range l.fwd {
		if p.target < 0 {
			return nil, nil, fmt.Errorf("unresolved forward patch at instruction %d", p.instrPos)
		}
	}
	for _, p := range l.back {
		if p.instrPos < 0 {
			return nil, nil, fmt.Errorf("unresolved backward patch (loop target %d)", p.target)
		}
	}

	bp := &Procedure{
		ID: proc.ID, Name: proc.Name, ParamCount: proc.ParamCount,
		IsCtor: proc.IsCtor, ClassID: proc.ClassID, FieldCount: proc.FieldCount,
		Chunk: Chunk{Constants: proc.Constants, Code: l.code},
	}
	return bp, warnings, nil
}

func (l *linearizer) emit(instr ir.Instr, stringBase int) error {
	switch instr.Op {
	case ir.OpGenPatch:
		return l.patchForward()
	case ir.OpGenBeginLoop:
		l.back = append(l.back, &patch{instrPos: -1, target: len(l.code)})
		return nil
	case ir.OpGenPatchBack:
		return l.patchBackward()
	}

	out := Instr{Op: instr.Op, Arity: instr.Arity}
	switch instr.Arity {
	case 1:
		out.A = l.convertArg(instr.A, instr.Op, 0, stringBase)
	case 2:
		out.A = l.convertArg(instr.A, instr.Op, 0, stringBase)
		out.B = l.convertArg(instr.B, instr.Op, 1, stringBase)
	case 3:
		out.A = l.convertArg(instr.A, instr.Op, 0, stringBase)
		out.B = l.convertArg(instr.B, instr.Op, 1, stringBase)
		out.C = l.convertArg(instr.C, instr.Op, 2, stringBase)
	}

	switch instr.Op {
	case ir.OpJump:
		l.fwd = append(l.fwd, &patch{instrPos: len(l.code), target: -1})
		out.A = Arg{Mode: CodeOffset, Index: -1}
	case ir.OpJumpElse:
		l.fwd = append(l.fwd, &patch{instrPos: len(l.code), target: -1})
		out.B = Arg{Mode: CodeOffset, Index: -1}
	}

	l.code = append(l.code, out)
	return nil
}

// patchForward implements "on encountering a GenPatch marker, the emitter
// sets the front pending record's target to the position of the most
// recently emitted instruction and then finalizes that patch" (spec
// §4.3). A patch whose destination instruction already carries a
// resolved target is a duplicate and is silently discarded.
func (l *linearizer) patchForward() error {
	if len(l.fwd) == 0 {
		return fmt.Errorf("GenPatch with no pending forward jump")
	}
	p := l.fwd[0]
	l.fwd = l.fwd[1:]
	target := len(l.code) - 1
	if target < 0 {
		target = 0
	}
	return l.finalize(p.instrPos, target)
}

// patchBackward implements GenPatchBack: the most recently opened loop
// (GenBeginLoop) is resolved, its instrPos set to the position of the
// backward jump just emitted, and its already-known target (the loop
// head's position) written into that instruction.
func (l *linearizer) patchBackward() error {
	if len(l.back) == 0 {
		return fmt.Errorf("GenPatchBack with no pending loop")
	}
	n := len(l.back) - 1
	p := l.back[n]
	l.back = l.back[:n]
	jumpPos := len(l.code) - 1
	// The backward Jump was also queued as a forward patch when emitted;
	// it is resolved here, so drop that record.
	if m := len(l.fwd); m > 0 && l.fwd[m-1].instrPos == jumpPos {
		l.fwd = l.fwd[:m-1]
	}
	return l.finalize(jumpPos, p.target)
}

// finalize writes target into the jump instruction at pos, whichever of
// its operand slots is the CodeOffset placeholder, unless it was already
// resolved (duplicate discard, spec §4.3).
func (l *linearizer) finalize(pos, target int) error {
	if pos < 0 || pos >= len(l.code) {
		return fmt.Errorf("patch target instruction %d out of range", pos)
	}
	instr := &l.code[pos]
	switch instr.Op {
	case ir.OpJump:
		if instr.A.Index != -1 {
			return nil
		}
		instr.A = Arg{Mode: CodeOffset, Index: int32(target)}
	case ir.OpJumpElse:
		if instr.B.Index != -1 {
			return nil
		}
		instr.B = Arg{Mode: CodeOffset, Index: int32(target)}
	default:
		return fmt.Errorf("patch target at %d is not a jump instruction", pos)
	}
	return nil
}

// convertArg maps an IR locator to its bytecode ArgMode (spec §4.3).
//
// The IR emitter overloads the Immediate region for three unrelated
// purposes depending on which opcode and operand slot it appears in: most
// of the time it is a constant-pool index (literals), but
// MakeHeapObject's field count and Call/InstanceCall's trailing arity
// operand are raw integers written directly into the locator, never
// pool-interned (RawCount below); OpMakeHeapValue's Immediate operand
// names a slot in the procedure's own string table, rewritten here to
// the flattened program-wide preload index (HeapID) described atop
// Linearize. Everywhere else Immediate means ConstantID.
func (l *linearizer) convertArg(loc ir.Locator, op ir.Op, slot int, stringBase int) Arg {
	if loc.Region == ir.Immediate {
		switch {
		case op == ir.OpMakeHeapValue:
			return Arg{Mode: HeapID, Index: loc.Index + int32(stringBase)}
		case op == ir.OpMakeHeapObject:
			return Arg{Mode: RawCount, Index: loc.Index}
		case op == ir.OpCall && slot == 1, op == ir.OpInstanceCall && slot == 2:
			return Arg{Mode: RawCount, Index: loc.Index}
		}
	}
	switch loc.Region {
	case ir.Immediate:
		return Arg{Mode: ConstantID, Index: loc.Index}
	case ir.TempStack, ir.ArgStore:
		return Arg{Mode: StackOffset, Index: loc.Index}
	case ir.ObjectHeapRegion:
		return Arg{Mode: HeapID, Index: loc.Index}
	case ir.Field:
		return Arg{Mode: InstanceFieldID, Index: loc.Index}
	case ir.Functions, ir.Methods:
		return Arg{Mode: ProcedureID, Index: loc.Index}
	case ir.Natives:
		return Arg{Mode: NativeID, Index: loc.Index}
	case ir.BlockID:
		return Arg{Mode: CodeOffset, Index: loc.Index}
	default:
		return Arg{}
	}
}
