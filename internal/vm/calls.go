package vm

import (
	"github.com/loxiemachine/loxie/internal/bytecode"
	"github.com/loxiemachine/loxie/internal/value"
)

// execCall implements Call(proc_id, arity) (spec §4.4): the arity
// arguments already on the operand stack become the callee's rbp..
// rbp+arity-1, and a new frame is pushed recording the caller's own
// registers for Return to restore.
func (e *Engine) execCall(callee, arity bytecode.Arg) error {
	if callee.Mode != bytecode.ProcedureID {
		return fail(BadArgs, "vm: Call expects a ProcedureID operand")
	}
	if arity.Mode != bytecode.RawCount {
		return fail(BadArgs, "vm: Call expects a RawCount arity operand")
	}
	return e.pushCall(int(callee.Index), int(arity.Index), noInstance)
}

// execInstanceCall implements InstanceCall(instance_loc, proc_id, arity)
// (spec §4.4): like Call, plus the instance handle (read, not popped —
// spec §9 OQ2: the frame carries a dedicated instance field, separate
// from the arity arguments) is recorded in the new frame.
func (e *Engine) execInstanceCall(instanceLoc, callee, arity bytecode.Arg) error {
	if callee.Mode != bytecode.ProcedureID {
		return fail(BadArgs, "vm: InstanceCall expects a ProcedureID operand")
	}
	if arity.Mode != bytecode.RawCount {
		return fail(BadArgs, "vm: InstanceCall expects a RawCount arity operand")
	}
	proc, err := e.prog.ProcByID(e.rpp)
	if err != nil {
		return fail(IllegalInstruction, "%v", err)
	}
	instVal, err := e.readConst(proc, instanceLoc)
	if err != nil {
		return err
	}
	if instVal.Tag != value.HeapRef || instVal.Ref == value.NullRef {
		return fail(RefError, "vm: InstanceCall on a non-instance value")
	}
	e.heap.Incref(instVal.Ref) // the new frame's instance field is its own root, balanced on departure
	return e.pushCall(int(callee.Index), int(arity.Index), instVal.Ref)
}

func (e *Engine) pushCall(procID, arity int, instance int32) error {
	if len(e.frames) >= e.cfg.FrameCapacity {
		return fail(AccessError, "vm: call frame capacity %d exceeded", e.cfg.FrameCapacity)
	}
	newBase := e.rsp + 1 - arity
	if newBase < 0 {
		return fail(AccessError, "vm: call with arity %d exceeds the operand stack", arity)
	}
	e.frames = append(e.frames, Frame{
		CallerID: e.rpp,
		ReturnIP: e.rip + 1,
		SavedRBP: e.rbp,
		Instance: instance,
	})
	e.rpp = procID
	e.rbp = newBase
	e.rip = 0
	return nil
}

// execNativeCall implements NativeCall(native_id) (spec §6): the native
// pops its own arguments and pushes its single result directly against
// the engine (natives.Stack), so this is a plain dispatch with no frame
// of its own.
func (e *Engine) execNativeCall(native bytecode.Arg) error {
	if native.Mode != bytecode.NativeID {
		return fail(BadArgs, "vm: NativeCall expects a NativeID operand")
	}
	if err := e.natives.Call(int(native.Index), e); err != nil {
		return fail(ValueError, "vm: native call failed: %v", err)
	}
	return nil
}

// execReturn implements Return(src) (spec §4.4): the result is read from
// wherever src addresses, every slot the departing frame owns is
// released, and the caller's registers are restored with the result
// written at the frame's base.
func (e *Engine) execReturn(proc *bytecode.Procedure, src bytecode.Arg) error {
	result, err := e.readConst(proc, src)
	if err != nil {
		return err
	}
	return e.teardownFrame(result)
}

// execLeave implements Leave (spec §4.4): like Return, but the result is
// always the current frame's instance handle (a constructor's implicit
// return value), and that handle's ownership simply transfers to the
// result slot rather than being released and re-acquired.
func (e *Engine) execLeave() error {
	instance := e.currentFrame().Instance
	return e.teardownFrameTransfer(value.MakeRef(instance), instance)
}

// teardownFrame releases every stack slot the departing frame owns
// (spec §3 Lifecycles: any pop decrements a HeapRef's refcount) plus, if
// present, the frame's own instance reference ("Return/Leave treat the
// departing frame's instance handle as a pop", spec §4.4), then writes
// result at the frame's base and restores the caller's registers.
func (e *Engine) teardownFrame(result value.Value) error {
	frame := e.currentFrame()
	if frame.Instance != noInstance {
		e.heap.Decref(frame.Instance)
	}
	return e.finishTeardown(result)
}

// teardownFrameTransfer is teardownFrame's Leave-specific variant: the
// instance handle being returned is the very reference the frame
// departure would otherwise release, so it is neither decremented nor
// separately re-incremented — only ownership moves, from the frame to
// the result slot.
func (e *Engine) teardownFrameTransfer(result value.Value, _ int32) error {
	return e.finishTeardownNoIncref(result)
}

func (e *Engine) finishTeardown(result value.Value) error {
	e.releaseFrameSlots()
	base := e.rbp
	e.stack[base] = result
	if result.Tag == value.HeapRef {
		e.heap.Incref(result.Ref)
	}
	e.rsp = base
	return e.popFrame()
}

func (e *Engine) finishTeardownNoIncref(result value.Value) error {
	e.releaseFrameSlots()
	base := e.rbp
	e.stack[base] = result
	e.rsp = base
	return e.popFrame()
}

// releaseFrameSlots decrements every HeapRef currently between the
// frame's base and the live top of stack (its arguments, locals, and
// temporaries), all of which are about to be discarded.
func (e *Engine) releaseFrameSlots() {
	for i := e.rbp; i <= e.rsp; i++ {
		if e.stack[i].Tag == value.HeapRef {
			e.heap.Decref(e.stack[i].Ref)
		}
	}
}

func (e *Engine) popFrame() error {
	n := len(e.frames) - 1
	frame := e.frames[n]
	e.frames = e.frames[:n]
	e.rpp = frame.CallerID
	e.rip = frame.ReturnIP
	e.rbp = frame.SavedRBP
	return nil
}
