package vm

import (
	"fmt"
	"math"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/zurustar/entplay/pkg/opcode"
	"github.com/zurustar/entplay/pkg/scene"
	"github.com/zurustar/entplay/pkg/value"
)

// exec dispatches one instruction.
func (r *Runner) exec(in opcode.Instruction, pc int, ctx Context) (StepResult, error) {
	next := StepResult{Next: pc + 1}

	switch in.Op {
	case opcode.Nop:
		return next, nil

	case opcode.CalcBasic, opcode.Compare, opcode.Logic:
		a, err := r.take(in, 0)
		if err != nil {
			return next, err
		}
		operator, err := r.text(in, 1)
		if err != nil {
			return next, err
		}
		b, err := r.take(in, 2)
		if err != nil {
			return next, err
		}
		var v value.Value
		switch in.Op {
		case opcode.CalcBasic:
			v, err = CalcBasic(a, operator, b)
		case opcode.Compare:
			v, err = Compare(a, operator, b)
		default:
			v, err = Logic(a, operator, b)
		}
		if err != nil {
			return next, err
		}
		next.Produced = v
		return next, nil

	case opcode.Not:
		v, err := r.take(in, 0)
		if err != nil {
			return next, err
		}
		b, ok := v.AsBoolean()
		if !ok {
			return next, NewTypeMismatchError("NOT", v)
		}
		next.Produced = value.Boolean(!b)
		return next, nil

	case opcode.CalcOperation:
		n, err := r.number(in, 0)
		if err != nil {
			return next, err
		}
		name, err := r.text(in, 1)
		if err != nil {
			return next, err
		}
		res, err := Unary(name, n)
		if err != nil {
			return next, err
		}
		next.Produced = value.Number(res)
		return next, nil

	case opcode.QuotientMod:
		a, err := r.number(in, 0)
		if err != nil {
			return next, err
		}
		b, err := r.number(in, 1)
		if err != nil {
			return next, err
		}
		operator, err := r.text(in, 2)
		if err != nil {
			return next, err
		}
		res, err := QuotientMod(a, b, operator)
		if err != nil {
			return next, err
		}
		next.Produced = value.Number(res)
		return next, nil

	case opcode.Combine:
		a, err := r.take(in, 0)
		if err != nil {
			return next, err
		}
		b, err := r.take(in, 1)
		if err != nil {
			return next, err
		}
		v, err := concat(a, b)
		if err != nil {
			return next, err
		}
		next.Produced = v
		return next, nil

	case opcode.LengthOf:
		s, err := r.text(in, 0)
		if err != nil {
			return next, err
		}
		next.Produced = value.Number(float64(utf8.RuneCountInString(norm.NFC.String(s))))
		return next, nil

	case opcode.GetVariable:
		vr, err := r.variable(in, ctx)
		if err != nil {
			return next, err
		}
		next.Produced = vr.Value
		return next, nil

	case opcode.SetVariable:
		vr, err := r.variable(in, ctx)
		if err != nil {
			return next, err
		}
		v, err := r.take(in, 1)
		if err != nil {
			return next, err
		}
		vr.Value = v
		return next, nil

	case opcode.ChangeVariable:
		vr, err := r.variable(in, ctx)
		if err != nil {
			return next, err
		}
		d, err := r.take(in, 1)
		if err != nil {
			return next, err
		}
		if vr.Value.IsNumeric() && d.IsNumeric() {
			x, _ := vr.Value.AsNumber()
			y, _ := d.AsNumber()
			vr.Value = value.Number(x + y)
			return next, nil
		}
		v, err := concat(vr.Value, d)
		if err != nil {
			return next, err
		}
		vr.Value = v
		return next, nil

	case opcode.MoveDirection, opcode.MoveX, opcode.MoveY:
		amount, err := r.number(in, 0)
		if err != nil {
			return next, err
		}
		o, err := r.owner(ctx)
		if err != nil {
			return next, err
		}
		if in.Op == opcode.MoveY {
			o.Y += amount
		} else {
			o.X += amount
		}
		return next, nil

	case opcode.LocateXY:
		x, err := r.number(in, 0)
		if err != nil {
			return next, err
		}
		y, err := r.number(in, 1)
		if err != nil {
			return next, err
		}
		o, err := r.owner(ctx)
		if err != nil {
			return next, err
		}
		o.X, o.Y = x, y
		return next, nil

	case opcode.Locate:
		target, err := r.text(in, 0)
		if err != nil {
			return next, err
		}
		var x, y float64
		if target == opcode.TargetPointer {
			x, y = ctx.Stage.Pointer()
		} else {
			t, ok := ctx.Stage.Object(target)
			if !ok {
				return next, NewLookupError("object", target)
			}
			x, y = t.X, t.Y
		}
		o, err := r.owner(ctx)
		if err != nil {
			return next, err
		}
		o.X, o.Y = x, y
		return next, nil

	case opcode.Coordinate:
		target, err := r.text(in, 0)
		if err != nil {
			return next, err
		}
		name, err := r.text(in, 1)
		if err != nil {
			return next, err
		}
		var o *scene.Object
		if target == opcode.TargetSelf {
			o, err = r.owner(ctx)
			if err != nil {
				return next, err
			}
		} else {
			var ok bool
			if o, ok = ctx.Stage.Object(target); !ok {
				return next, NewLookupError("object", target)
			}
		}
		switch name {
		case "x":
			next.Produced = value.Number(o.X)
		case "y":
			next.Produced = value.Number(o.Y)
		default:
			return next, NewLookupError("coordinate", name)
		}
		return next, nil

	case opcode.MoveXYTime:
		return r.moveXYTime(in, pc, ctx)

	case opcode.WaitSecond:
		return r.waitSecond(in, pc, ctx)

	case opcode.If, opcode.IfElse:
		v, err := r.take(in, 0)
		if err != nil {
			return next, err
		}
		cond, ok := v.AsBoolean()
		if !ok {
			return next, NewTypeMismatchError("condition", v)
		}
		if cond {
			return next, nil
		}
		return r.branch(pc, false)

	case opcode.Jump:
		return r.branch(pc, false)

	case opcode.RepeatBasic:
		return r.repeat(in, pc)

	case opcode.RepeatInf:
		return next, nil

	case opcode.RepeatEnd:
		return r.branch(pc, true)
	}

	return next, NewRuntimeError(ErrorInvalidOperation, fmt.Sprintf("unknown operation %q", in.Op))
}

func (r *Runner) branch(pc int, suspend bool) (StepResult, error) {
	target, ok := r.Program.Branch(pc)
	if !ok {
		return StepResult{Next: pc}, NewRuntimeError(ErrorInvalidOperation, "missing jump data")
	}
	return StepResult{Next: target, Suspend: suspend}, nil
}

func (r *Runner) variable(in opcode.Instruction, ctx Context) (*scene.Variable, error) {
	k, err := r.text(in, 0)
	if err != nil {
		return nil, err
	}
	vr, ok := ctx.Stage.Variable(k)
	if !ok {
		return nil, NewLookupError("variable", k)
	}
	return vr, nil
}

// repeat runs a counted loop header. The bound is resolved on first entry
// and kept with the counter until the loop exits.
func (r *Runner) repeat(in opcode.Instruction, pc int) (StepResult, error) {
	bound, err := r.cachedNumber(in, 0, LabelBound)
	if err != nil {
		return StepResult{Next: pc}, err
	}
	c, err := r.Memory.Entry(in.ID, LabelCount, value.Number(0))
	if err != nil {
		return StepResult{Next: pc}, err
	}
	count, err := c.AsNumber()
	if err != nil {
		return StepResult{Next: pc}, err
	}
	if count < bound {
		if err := r.Memory.Set(in.ID, LabelCount, value.Number(count+1)); err != nil {
			return StepResult{Next: pc}, err
		}
		return StepResult{Next: pc + 1}, nil
	}
	r.Memory.Remove(in.ID, LabelCount, LabelBound)
	return r.branch(pc, false)
}

func (r *Runner) waitSecond(in opcode.Instruction, pc int, ctx Context) (StepResult, error) {
	target, err := r.cachedNumber(in, 0, LabelTarget)
	if err != nil {
		return StepResult{Next: pc}, err
	}
	d, err := r.Memory.Entry(in.ID, LabelDelta, value.Number(0))
	if err != nil {
		return StepResult{Next: pc}, err
	}
	delta, err := d.AsNumber()
	if err != nil {
		return StepResult{Next: pc}, err
	}
	delta += ctx.Delta
	if delta >= target {
		r.Memory.Remove(in.ID, LabelDelta, LabelTarget)
		return StepResult{Next: pc + 1}, nil
	}
	if err := r.Memory.Set(in.ID, LabelDelta, value.Number(delta)); err != nil {
		return StepResult{Next: pc}, err
	}
	return StepResult{Next: pc, Suspend: true}, nil
}

// moveXYTime moves the owner by a fraction of (dx, dy) each tick. The last
// tick applies the remaining fraction so the total is exact.
func (r *Runner) moveXYTime(in opcode.Instruction, pc int, ctx Context) (StepResult, error) {
	seconds, err := r.cachedNumber(in, 0, LabelTarget)
	if err != nil {
		return StepResult{Next: pc}, err
	}
	dx, err := r.cachedNumber(in, 1, LabelDX)
	if err != nil {
		return StepResult{Next: pc}, err
	}
	dy, err := r.cachedNumber(in, 2, LabelDY)
	if err != nil {
		return StepResult{Next: pc}, err
	}
	o, err := r.owner(ctx)
	if err != nil {
		return StepResult{Next: pc}, err
	}
	d, err := r.Memory.Entry(in.ID, LabelDelta, value.Number(0))
	if err != nil {
		return StepResult{Next: pc}, err
	}
	done, err := d.AsNumber()
	if err != nil {
		return StepResult{Next: pc}, err
	}

	frac := 1.0
	if seconds > 0 {
		frac = math.Min(ctx.Delta/seconds, 1)
	}
	if done+frac < 1 {
		o.X += frac * dx
		o.Y += frac * dy
		if err := r.Memory.Set(in.ID, LabelDelta, value.Number(done+frac)); err != nil {
			return StepResult{Next: pc}, err
		}
		return StepResult{Next: pc, Suspend: true}, nil
	}
	rest := 1 - done
	o.X += rest * dx
	o.Y += rest * dy
	r.Memory.Remove(in.ID, LabelDelta, LabelTarget, LabelDX, LabelDY)
	return StepResult{Next: pc + 1}, nil
}
