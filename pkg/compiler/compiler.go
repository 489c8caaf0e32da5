package compiler

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/zurustar/entplay/pkg/block"
	"github.com/zurustar/entplay/pkg/logger"
	"github.com/zurustar/entplay/pkg/opcode"
	"github.com/zurustar/entplay/pkg/value"
)

// Compiler flattens block trees into opcode programs.
//
// Compilation itself is a pure function of the block tree: every helper
// takes the program built so far and returns the extended program. The
// Compiler only carries the logger and the warnings gathered along the way.
type Compiler struct {
	log      *slog.Logger
	warnings []*CompileError
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger used for compile warnings.
func WithLogger(l *slog.Logger) Option {
	return func(c *Compiler) {
		c.log = l
	}
}

// New creates a Compiler.
func New(opts ...Option) *Compiler {
	c := &Compiler{}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.GetLogger()
	}
	return c
}

// Script is a compiled script ready to be registered with the scheduler.
type Script struct {
	Trigger opcode.Trigger
	Program opcode.Program
}

// Warnings returns the unsupported blocks skipped so far.
func (c *Compiler) Warnings() []*CompileError {
	return c.warnings
}

// CompileScript compiles one top-level script. The first block must be a
// trigger; ErrNoTrigger is returned otherwise.
func (c *Compiler) CompileScript(s block.Script) (*Script, error) {
	trigger := s.Trigger()
	if !opcode.IsTrigger(trigger) {
		return nil, fmt.Errorf("%w: %q", ErrNoTrigger, trigger)
	}
	prog, err := c.CompileStatements(s.Body())
	if err != nil {
		return nil, err
	}
	return &Script{Trigger: opcode.Trigger(trigger), Program: prog}, nil
}

// CompileStatements compiles a statement list into a program.
func (c *Compiler) CompileStatements(stmts []*block.Block) (opcode.Program, error) {
	prog, err := c.statements(opcode.Program{}, stmts)
	if err != nil {
		return nil, err
	}
	return prog, nil
}

func (c *Compiler) statements(acc opcode.Program, stmts []*block.Block) (opcode.Program, error) {
	for _, b := range stmts {
		if b == nil {
			continue
		}
		next, _, err := c.block(acc, b)
		if err != nil {
			if IsUnsupported(err) {
				c.warn(err)
				continue
			}
			return nil, err
		}
		acc = next
	}
	return acc, nil
}

// block appends the instructions for b to acc and returns the extended
// program together with the id of the instruction that holds b's value.
func (c *Compiler) block(acc opcode.Program, b *block.Block) (opcode.Program, string, error) {
	spec, ok := catalog[b.Type]
	if !ok {
		return nil, "", newUnsupported(b.ID, b.Type)
	}

	operands := make([]value.Value, 0, len(spec.operands))
	for _, od := range spec.operands {
		p, ok := b.Param(od.index)
		if !ok || p.Kind == block.ParamNull {
			return nil, "", newMalformed(b.ID, b.Type, "missing parameter %d", od.index)
		}
		if od.operators != nil {
			v, err := operator(b, p, od.operators)
			if err != nil {
				return nil, "", err
			}
			operands = append(operands, v)
			continue
		}
		next, v, err := c.param(acc, b, p)
		if err != nil {
			return nil, "", err
		}
		acc = next
		operands = append(operands, v)
	}

	header := opcode.Instruction{ID: b.ID, Op: spec.op, Operands: operands}

	switch spec.shape {
	case shapeIf:
		body, err := c.statements(opcode.Program{}, b.Body(0))
		if err != nil {
			return nil, "", err
		}
		header.Jump = length(body)
		acc = append(acc, header)
		acc = append(acc, body...)
	case shapeIfElse:
		then, err := c.statements(opcode.Program{}, b.Body(0))
		if err != nil {
			return nil, "", err
		}
		els, err := c.statements(opcode.Program{}, b.Body(1))
		if err != nil {
			return nil, "", err
		}
		header.Jump = length(then)
		acc = append(acc, header)
		acc = append(acc, then...)
		acc = append(acc, opcode.Instruction{ID: b.ID, Op: opcode.Jump, Jump: length(els)})
		acc = append(acc, els...)
	case shapeLoop:
		body, err := c.statements(opcode.Program{}, b.Body(0))
		if err != nil {
			return nil, "", err
		}
		header.Jump = length(body)
		acc = append(acc, header)
		acc = append(acc, body...)
		acc = append(acc, opcode.Instruction{ID: b.ID, Op: opcode.RepeatEnd, Jump: length(body)})
	default:
		acc = append(acc, header)
	}
	return acc, acc.LastID(), nil
}

// param compiles one parameter. Literals and wrapper blocks become constant
// operands; expression blocks are emitted before the consumer and bound by
// reference to their return value.
func (c *Compiler) param(acc opcode.Program, owner *block.Block, p block.Param) (opcode.Program, value.Value, error) {
	switch p.Kind {
	case block.ParamNumber:
		return acc, value.Number(p.Number), nil
	case block.ParamText:
		return acc, value.Text(p.Text), nil
	case block.ParamBool:
		return acc, value.Boolean(p.Bool), nil
	case block.ParamBlock:
	default:
		return nil, value.Value{}, newMalformed(owner.ID, owner.Type, "empty parameter")
	}

	nested := p.Block
	if nested == nil {
		return nil, value.Value{}, newMalformed(owner.ID, owner.Type, "empty parameter")
	}
	if b, ok := booleanBlocks[nested.Type]; ok {
		return acc, value.Boolean(b), nil
	}
	if wrapperBlocks[nested.Type] {
		inner, ok := nested.Param(0)
		if !ok || inner.Kind == block.ParamNull {
			return nil, value.Value{}, newMalformed(nested.ID, nested.Type, "literal block has no value")
		}
		return c.param(acc, nested, inner)
	}
	if spec, ok := catalog[nested.Type]; ok && spec.shape != shapeSimple {
		return nil, value.Value{}, newMalformed(nested.ID, nested.Type, "statement block used as a parameter of %s", owner.Type)
	}

	next, id, err := c.block(acc, nested)
	if err != nil {
		return nil, value.Value{}, err
	}
	return next, value.ReturnOf(id), nil
}

// operator validates a compile-time operator name.
func operator(b *block.Block, p block.Param, names map[string]bool) (value.Value, error) {
	if p.Kind != block.ParamText {
		return value.Value{}, newMalformed(b.ID, b.Type, "operator must be a literal name")
	}
	if !names[p.Text] {
		return value.Value{}, &CompileError{
			Kind:      KindUnsupported,
			BlockID:   b.ID,
			BlockType: b.Type,
			Message:   fmt.Sprintf("unsupported operator %q", p.Text),
		}
	}
	return value.Text(p.Text), nil
}

func length(p opcode.Program) []value.Value {
	return []value.Value{value.Number(float64(len(p)))}
}

func (c *Compiler) warn(err error) {
	var ce *CompileError
	if !errors.As(err, &ce) {
		return
	}
	c.warnings = append(c.warnings, ce)
	c.log.Warn("Skipping unsupported block", "block_id", ce.BlockID, "type", ce.BlockType, "reason", ce.Message)
}
