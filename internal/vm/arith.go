package vm

import (
	"github.com/loxiemachine/loxie/internal/bytecode"
	"github.com/loxiemachine/loxie/internal/ir"
	"github.com/loxiemachine/loxie/internal/value"
)

// execUnaryMath implements Neg(loc): an in-place negation of the stack
// slot loc addresses (spec §4.4). The emitter always passes the current
// top of stack, but the instruction itself only ever touches the one
// addressed slot — it has no stack effect of its own.
func (e *Engine) execUnaryMath(loc bytecode.Arg) error {
	if loc.Mode != bytecode.StackOffset {
		return fail(BadArgs, "vm: Neg expects a stack operand")
	}
	abs := e.rbp + int(loc.Index)
	if abs < 0 || abs > e.rsp {
		return fail(AccessError, "vm: stack offset %d out of range", loc.Index)
	}
	v := e.stack[abs]
	switch v.Tag {
	case value.Int:
		e.stack[abs] = value.MakeInt(-v.Int_)
	case value.Float:
		e.stack[abs] = value.MakeFloat(-v.Float_)
	default:
		return fail(ValueError, "vm: Neg on a %s value", v.Tag)
	}
	return nil
}

// execIncDec implements Inc/Dec(loc): in-place integer increment or
// decrement of the addressed stack slot (spec §4.4 instruction table).
func (e *Engine) execIncDec(op ir.Op, loc bytecode.Arg) error {
	if loc.Mode != bytecode.StackOffset {
		return fail(BadArgs, "vm: %s expects a stack operand", op)
	}
	abs := e.rbp + int(loc.Index)
	if abs < 0 || abs > e.rsp {
		return fail(AccessError, "vm: stack offset %d out of range", loc.Index)
	}
	v := e.stack[abs]
	if v.Tag != value.Int {
		return fail(ValueError, "vm: %s on a %s value", op, v.Tag)
	}
	delta := int32(1)
	if op == ir.OpDec {
		delta = -1
	}
	e.stack[abs] = value.MakeInt(v.Int_ + delta)
	return nil
}

// execArith implements Add/Sub/Mul/Div (spec §4.4): pop the right then
// left operand (the right was pushed last), compute, push the result.
// Both operands must carry the same numeric tag (spec §3); division by
// zero is BadMath, not a silent Inf/NaN.
func (e *Engine) execArith(op ir.Op) error {
	rhs, err := e.Pop()
	if err != nil {
		return err
	}
	lhs, err := e.Pop()
	if err != nil {
		return err
	}
	if lhs.Tag != rhs.Tag {
		return fail(ValueError, "vm: %s between %s and %s", op, lhs.Tag, rhs.Tag)
	}
	switch lhs.Tag {
	case value.Int:
		result, err := intArith(op, lhs.Int_, rhs.Int_)
		if err != nil {
			return err
		}
		e.Push(value.MakeInt(result))
	case value.Float:
		result, err := floatArith(op, lhs.Float_, rhs.Float_)
		if err != nil {
			return err
		}
		e.Push(value.MakeFloat(result))
	default:
		return fail(ValueError, "vm: %s on a %s value", op, lhs.Tag)
	}
	return nil
}

func intArith(op ir.Op, l, r int32) (int32, error) {
	switch op {
	case ir.OpAdd:
		return l + r, nil
	case ir.OpSub:
		return l - r, nil
	case ir.OpMul:
		return l * r, nil
	case ir.OpDiv:
		if r == 0 {
			return 0, fail(BadMath, "vm: integer division by zero")
		}
		return l / r, nil
	default:
		return 0, fail(IllegalInstruction, "vm: unreachable arith op %s", op)
	}
}

func floatArith(op ir.Op, l, r float32) (float32, error) {
	switch op {
	case ir.OpAdd:
		return l + r, nil
	case ir.OpSub:
		return l - r, nil
	case ir.OpMul:
		return l * r, nil
	case ir.OpDiv:
		if r == 0 {
			return 0, fail(BadMath, "vm: floating-point division by zero")
		}
		return l / r, nil
	default:
		return 0, fail(IllegalInstruction, "vm: unreachable arith op %s", op)
	}
}

// execCompare implements CmpEq/CmpNe/CmpLt/CmpGt (spec §4.4): pop the
// right then left operand, compare, push a Bool. Comparison requires
// identical tags (spec §3 Value.Eq/Lt); a type mismatch is ValueError.
func (e *Engine) execCompare(op ir.Op) error {
	rhs, err := e.Pop()
	if err != nil {
		return err
	}
	lhs, err := e.Pop()
	if err != nil {
		return err
	}
	switch op {
	case ir.OpCmpEq, ir.OpCmpNe:
		eq, ok := lhs.Eq(rhs)
		if !ok {
			return fail(ValueError, "vm: comparison between %s and %s", lhs.Tag, rhs.Tag)
		}
		if op == ir.OpCmpNe {
			eq = !eq
		}
		e.Push(value.MakeBool(eq))
	case ir.OpCmpLt:
		lt, ok := lhs.Lt(rhs)
		if !ok {
			return fail(ValueError, "vm: comparison between %s and %s", lhs.Tag, rhs.Tag)
		}
		e.Push(value.MakeBool(lt))
	case ir.OpCmpGt:
		gt, ok := rhs.Lt(lhs)
		if !ok {
			return fail(ValueError, "vm: comparison between %s and %s", lhs.Tag, rhs.Tag)
		}
		e.Push(value.MakeBool(gt))
	default:
		return fail(IllegalInstruction, "vm: unreachable compare op %s", op)
	}
	return nil
}
