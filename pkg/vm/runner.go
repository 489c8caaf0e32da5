package vm

import (
	"fmt"

	"github.com/zurustar/entplay/pkg/opcode"
	"github.com/zurustar/entplay/pkg/scene"
	"github.com/zurustar/entplay/pkg/value"
)

// Stage is the scene state a runner reads and mutates.
// *scene.Scene implements it.
type Stage interface {
	Object(id string) (*scene.Object, bool)
	Variable(key string) (*scene.Variable, bool)
	Pointer() (x, y float64)
}

// Context is supplied by the host for every tick.
type Context struct {
	// Delta is the elapsed time since the previous tick, in seconds.
	Delta float64
	Stage Stage
}

// StepResult is the outcome of executing one instruction.
type StepResult struct {
	Next     int         // program counter to continue from
	Suspend  bool        // yield to the scheduler until the next tick
	Produced value.Value // invalid when the instruction produced nothing
}

// State is a runner's lifecycle state.
type State int

const (
	StateRunnable State = iota
	StateSuspended
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateRunnable:
		return "runnable"
	case StateSuspended:
		return "suspended"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Runner is one running instance of a compiled script.
type Runner struct {
	ID      uint64
	Owner   string
	Trigger opcode.Trigger
	Program opcode.Program
	PC      int
	Memory  *Memory
	State   State
}

// NewRunner creates a runner at pc 0 with empty scratch memory.
func NewRunner(id uint64, owner string, trigger opcode.Trigger, prog opcode.Program) *Runner {
	return &Runner{
		ID:      id,
		Owner:   owner,
		Trigger: trigger,
		Program: prog,
		Memory:  NewMemory(),
	}
}

// Done reports whether the program counter has run past the program.
func (r *Runner) Done() bool {
	return r.PC >= len(r.Program)
}

// Step executes the instruction at the program counter. It does not modify
// the program counter or store the produced value; Run does that.
func (r *Runner) Step(ctx Context) (StepResult, error) {
	in, ok := r.Program.At(r.PC)
	if !ok {
		return StepResult{Next: r.PC}, &RuntimeError{
			Type:    ErrorInvalidOperation,
			Message: "program counter out of range",
			PC:      r.PC,
		}
	}
	res, err := r.exec(in, r.PC, ctx)
	if err != nil {
		re := wrapValueError(err)
		re.InstructionID = in.ID
		re.PC = r.PC
		return StepResult{Next: r.PC}, re
	}
	return res, nil
}

// Run steps the runner until it suspends, completes, or fails, and returns
// the number of instructions executed.
func (r *Runner) Run(ctx Context) (int, error) {
	steps := 0
	for !r.Done() {
		in, _ := r.Program.At(r.PC)
		res, err := r.Step(ctx)
		if err != nil {
			r.State = StateFailed
			return steps, err
		}
		steps++
		if res.Produced.IsValid() {
			if err := r.Memory.Set(in.ID, value.ReturnLabel, res.Produced); err != nil {
				r.State = StateFailed
				return steps, err
			}
		}
		r.PC = res.Next
		if res.Suspend {
			r.State = StateSuspended
			return steps, nil
		}
	}
	r.State = StateCompleted
	return steps, nil
}

// take resolves an operand. A reference is read from scratch memory and
// removed, since each producer has exactly one consumer.
func (r *Runner) take(in opcode.Instruction, i int) (value.Value, error) {
	op := in.Operand(i)
	if !op.IsValid() {
		return value.Value{}, NewRuntimeError(ErrorInvalidOperation, fmt.Sprintf("missing operand %d", i))
	}
	ref, isRef := op.Ref()
	v, err := op.Resolve(r.Memory)
	if err != nil {
		return value.Value{}, wrapValueError(err)
	}
	if isRef {
		r.Memory.Remove(ref.ID, ref.Label)
	}
	return v, nil
}

// cached resolves operand i once and keeps it under (in.ID, label) until
// the instruction clears it.
func (r *Runner) cached(in opcode.Instruction, i int, label string) (value.Value, error) {
	if v, ok := r.Memory.Get(key(in.ID, label)); ok {
		return v, nil
	}
	v, err := r.take(in, i)
	if err != nil {
		return value.Value{}, err
	}
	if err := r.Memory.Set(in.ID, label, v); err != nil {
		return value.Value{}, err
	}
	return v, nil
}

func (r *Runner) cachedNumber(in opcode.Instruction, i int, label string) (float64, error) {
	v, err := r.cached(in, i, label)
	if err != nil {
		return 0, err
	}
	return v.AsNumber()
}

func (r *Runner) number(in opcode.Instruction, i int) (float64, error) {
	v, err := r.take(in, i)
	if err != nil {
		return 0, err
	}
	return v.AsNumber()
}

func (r *Runner) text(in opcode.Instruction, i int) (string, error) {
	v, err := r.take(in, i)
	if err != nil {
		return "", err
	}
	return v.AsText()
}

func (r *Runner) owner(ctx Context) (*scene.Object, error) {
	o, ok := ctx.Stage.Object(r.Owner)
	if !ok {
		return nil, NewLookupError("object", r.Owner)
	}
	return o, nil
}
