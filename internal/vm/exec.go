package vm

import (
	"github.com/loxiemachine/loxie/internal/bytecode"
	"github.com/loxiemachine/loxie/internal/ir"
	"github.com/loxiemachine/loxie/internal/value"
)

// step executes one instruction against the current registers, returning
// true if it already repositioned rip itself (a jump, call, or return),
// so the caller's ordinary rip++ must be skipped.
func (e *Engine) step(proc *bytecode.Procedure, instr bytecode.Instr) (bool, error) {
	switch instr.Op {
	case ir.OpNop:
		return false, nil

	case ir.OpLoadConst:
		v, err := e.readConst(proc, instr.A)
		if err != nil {
			return false, err
		}
		e.Push(v)
		return false, nil

	case ir.OpPush:
		return false, e.execPush(proc, instr.A)

	case ir.OpPop:
		_, err := e.Pop()
		return false, err

	case ir.OpMakeHeapValue:
		if instr.A.Mode != bytecode.HeapID {
			return false, fail(BadArgs, "vm: MakeHeapValue expects a HeapID operand")
		}
		idx := int(instr.A.Index)
		if idx < 0 || idx >= len(e.preload) {
			return false, fail(AccessError, "vm: preload index %d out of range", idx)
		}
		e.Push(value.MakeRef(e.preload[idx]))
		return false, nil

	case ir.OpMakeHeapObject:
		return false, e.execMakeHeapObject(proc, instr.A)

	case ir.OpGetSelf:
		e.Push(value.MakeRef(e.currentFrame().Instance))
		return false, nil

	case ir.OpReplace:
		return false, e.execReplace(proc, instr.A, instr.B)

	case ir.OpNeg:
		return false, e.execUnaryMath(instr.A)

	case ir.OpInc, ir.OpDec:
		return false, e.execIncDec(instr.Op, instr.A)

	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv:
		return false, e.execArith(instr.Op)

	case ir.OpCmpEq, ir.OpCmpNe, ir.OpCmpLt, ir.OpCmpGt:
		return false, e.execCompare(instr.Op)

	case ir.OpJump:
		if instr.A.Mode != bytecode.CodeOffset {
			return false, fail(BadArgs, "vm: Jump expects a CodeOffset operand")
		}
		e.rip = int(instr.A.Index)
		return true, nil

	case ir.OpJumpElse:
		test, err := e.Pop()
		if err != nil {
			return false, err
		}
		if !test.Test() {
			if instr.B.Mode != bytecode.CodeOffset {
				return false, fail(BadArgs, "vm: JumpElse expects a CodeOffset operand")
			}
			e.rip = int(instr.B.Index)
			return true, nil
		}
		return false, nil

	case ir.OpReturn:
		return true, e.execReturn(proc, instr.A)

	case ir.OpLeave:
		return true, e.execLeave()

	case ir.OpCall:
		return true, e.execCall(instr.A, instr.B)

	case ir.OpInstanceCall:
		return true, e.execInstanceCall(instr.A, instr.B, instr.C)

	case ir.OpNativeCall:
		return false, e.execNativeCall(instr.A)

	default:
		return false, fail(IllegalInstruction, "vm: unhandled opcode %s", instr.Op)
	}
}

// readConst reads an operand whose value doesn't consume a stack slot:
// a constant-pool entry or an absolute stack read (spec §4.4 operand
// addressing). It is the read-only counterpart of Pop, used wherever an
// instruction's operand is a Locator rather than "the current top".
func (e *Engine) readConst(proc *bytecode.Procedure, a bytecode.Arg) (value.Value, error) {
	switch a.Mode {
	case bytecode.ConstantID:
		idx := int(a.Index)
		if idx < 0 || idx >= len(proc.Chunk.Constants) {
			return value.Value{}, fail(AccessError, "vm: constant index %d out of range", idx)
		}
		return proc.Chunk.Constants[idx], nil
	case bytecode.StackOffset:
		abs := e.rbp + int(a.Index)
		if abs < 0 || abs > e.rsp {
			return value.Value{}, fail(AccessError, "vm: stack offset %d out of range", a.Index)
		}
		return e.stack[abs], nil
	default:
		return value.Value{}, fail(BadArgs, "vm: unexpected operand mode %s for a value read", a.Mode)
	}
}

// execPush implements Push(src): most sources are read in place (spec
// §4.4's Push row), but a Field source pops the instance handle
// currently on top of the stack and replaces it with the field's value
// (net zero against the instance push, per the OpGetSelf convention —
// spec §9 OQ5/DESIGN.md).
func (e *Engine) execPush(proc *bytecode.Procedure, src bytecode.Arg) error {
	if src.Mode == bytecode.InstanceFieldID {
		instVal, err := e.Pop()
		if err != nil {
			return err
		}
		if instVal.Tag != value.HeapRef || instVal.Ref == value.NullRef {
			return fail(RefError, "vm: field read on a non-instance value")
		}
		cell, err := e.heap.Get(instVal.Ref)
		if err != nil {
			return fail(RefError, "%v", err)
		}
		idx := int(src.Index)
		if idx < 0 || idx >= len(cell.Fields) {
			return fail(AccessError, "vm: field index %d out of range", idx)
		}
		e.Push(cell.Fields[idx])
		return nil
	}
	v, err := e.readConst(proc, src)
	if err != nil {
		return err
	}
	e.Push(v)
	return nil
}

// execMakeHeapObject allocates a fresh instance and pushes its handle
// (spec §4.4). Only a constructor's own prologue additionally records
// the handle as the current frame's instance (spec §4.2: "the
// constructor's first emitted instruction is MakeHeapObject..., which
// produces a fresh instance handle consumed as the implicit first
// operand of member accesses within the constructor body") — recording
// it unconditionally for a bare `new` with no declared constructor would
// overwrite and leak whatever instance the enclosing (non-constructor)
// frame had previously recorded.
func (e *Engine) execMakeHeapObject(proc *bytecode.Procedure, n bytecode.Arg) error {
	if n.Mode != bytecode.RawCount {
		return fail(BadArgs, "vm: MakeHeapObject expects a RawCount operand")
	}
	handle, err := e.heap.MakeInstance(int(n.Index))
	if err != nil {
		return fail(AccessError, "%v", err)
	}
	e.Push(value.MakeRef(handle))
	if proc.IsCtor {
		e.heap.Incref(handle)
		e.currentFrame().Instance = handle
	}
	return nil
}

// execReplace implements Replace(dst, src) (spec §4.4). A Field dst pops
// both the value and the instance handle beneath it and stores into the
// instance's field slot, releasing whichever value previously occupied
// it; any other dst is an in-place overwrite of a stack slot, read
// without popping (the emitter separately issues an explicit Pop when
// the source was a freshly pushed temp — spec §9 OQ5/DESIGN.md).
func (e *Engine) execReplace(proc *bytecode.Procedure, dst, src bytecode.Arg) error {
	if dst.Mode == bytecode.InstanceFieldID {
		val, err := e.Pop()
		if err != nil {
			return err
		}
		instVal, err := e.Pop()
		if err != nil {
			return err
		}
		if instVal.Tag != value.HeapRef || instVal.Ref == value.NullRef {
			return fail(RefError, "vm: field write on a non-instance value")
		}
		cell, err := e.heap.Get(instVal.Ref)
		if err != nil {
			return fail(RefError, "%v", err)
		}
		idx := int(dst.Index)
		if idx < 0 || idx >= len(cell.Fields) {
			return fail(AccessError, "vm: field index %d out of range", idx)
		}
		if val.Tag == value.HeapRef {
			e.heap.Incref(val.Ref)
		}
		old := cell.Fields[idx]
		if old.Tag == value.HeapRef {
			e.heap.Decref(old.Ref)
		}
		cell.Fields[idx] = val
		return nil
	}

	val, err := e.readConst(proc, src)
	if err != nil {
		return err
	}
	if dst.Mode != bytecode.StackOffset {
		return fail(BadArgs, "vm: Replace expects a stack destination")
	}
	abs := e.rbp + int(dst.Index)
	if abs < 0 || abs > e.rsp {
		return fail(AccessError, "vm: stack offset %d out of range", dst.Index)
	}
	if val.Tag == value.HeapRef {
		e.heap.Incref(val.Ref)
	}
	old := e.stack[abs]
	if old.Tag == value.HeapRef {
		e.heap.Decref(old.Ref)
	}
	e.stack[abs] = val
	return nil
}
