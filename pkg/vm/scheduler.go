// Package vm runs compiled block programs.
// It implements a cooperative, tick-driven execution model:
// - Scripts are registered with an owner object and a trigger
// - Delivered triggers spawn one runner per matching script at the next tick
// - Each tick drains the run queue, stepping every runner until it suspends or ends
// - Suspended runners are queued again for the following tick
package vm

import (
	"log/slog"

	"github.com/zurustar/entplay/pkg/logger"
	"github.com/zurustar/entplay/pkg/opcode"
)

// Script is a compiled program bound to the object that owns it.
type Script struct {
	Owner   string
	Trigger opcode.Trigger
	Program opcode.Program
}

// Stats summarizes one tick.
type Stats struct {
	Spawned   int
	Steps     int
	Suspended int
	Completed int
	Failed    int
}

// Scheduler owns the registered scripts and the run queue.
// It is not safe for concurrent use; the host calls Deliver and Tick from
// one goroutine.
type Scheduler struct {
	scripts []Script
	queue   []*Runner

	// pending holds triggers delivered since the last tick, in delivery
	// order and without duplicates.
	pending []opcode.Trigger

	nextID uint64
	ticks  uint64
	log    *slog.Logger
}

// Option is a functional option for configuring the Scheduler.
type Option func(*Scheduler)

// WithLogger sets a custom logger for the scheduler.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		s.log = l
	}
}

// NewScheduler creates an empty scheduler.
func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.GetLogger()
	}
	return s
}

// Register adds a script that starts when trigger is delivered.
func (s *Scheduler) Register(owner string, trigger opcode.Trigger, prog opcode.Program) {
	s.scripts = append(s.scripts, Script{Owner: owner, Trigger: trigger, Program: prog})
}

// Scripts returns the registered scripts in registration order.
func (s *Scheduler) Scripts() []Script {
	return s.scripts
}

// Deliver records a trigger. Matching scripts are started at the beginning
// of the next tick; delivering the same trigger again before then has no
// further effect.
func (s *Scheduler) Deliver(trigger opcode.Trigger) {
	for _, t := range s.pending {
		if t == trigger {
			return
		}
	}
	s.pending = append(s.pending, trigger)
}

// Spawn starts a runner for prog immediately. It runs from the next tick.
func (s *Scheduler) Spawn(owner string, trigger opcode.Trigger, prog opcode.Program) *Runner {
	s.nextID++
	r := NewRunner(s.nextID, owner, trigger, prog)
	s.queue = append(s.queue, r)
	s.log.Debug("Runner spawned", "runner_id", r.ID, "owner", owner, "trigger", trigger, "instructions", len(prog))
	return r
}

// Tick starts runners for pending triggers, then steps every queued runner
// with ctx until it suspends, completes, or fails.
func (s *Scheduler) Tick(ctx Context) Stats {
	var st Stats
	s.ticks++

	pending := s.pending
	s.pending = nil
	for _, t := range pending {
		for _, sc := range s.scripts {
			if sc.Trigger == t {
				s.Spawn(sc.Owner, sc.Trigger, sc.Program)
				st.Spawned++
			}
		}
	}

	queue := s.queue
	s.queue = make([]*Runner, 0, len(queue))
	for _, r := range queue {
		pc := r.PC
		steps, err := r.Run(ctx)
		st.Steps += steps
		if err != nil {
			st.Failed++
			s.fail(r, pc, err)
			continue
		}
		switch r.State {
		case StateSuspended:
			st.Suspended++
			s.queue = append(s.queue, r)
		case StateCompleted:
			st.Completed++
			s.log.Debug("Runner completed", "runner_id", r.ID, "owner", r.Owner, "tick", s.ticks)
		}
	}
	return st
}

func (s *Scheduler) fail(r *Runner, startPC int, err error) {
	attrs := []any{
		"runner_id", r.ID,
		"owner", r.Owner,
		"trigger", r.Trigger,
		"pc", r.PC,
		"start_pc", startPC,
		"error", err,
	}
	if in, ok := r.Program.At(r.PC); ok {
		attrs = append(attrs, "instruction_id", in.ID, "op", in.Op)
	}
	s.log.Error("Runner aborted", attrs...)
}

// Unregister drops every script owned by owner so later triggers no longer
// start it, and returns how many were dropped.
func (s *Scheduler) Unregister(owner string) int {
	kept := s.scripts[:0]
	n := 0
	for _, sc := range s.scripts {
		if sc.Owner == owner {
			n++
			continue
		}
		kept = append(kept, sc)
	}
	s.scripts = kept
	return n
}

// Cancel removes every queued runner owned by owner and returns how many
// were removed.
func (s *Scheduler) Cancel(owner string) int {
	return s.remove(func(r *Runner) bool { return r.Owner == owner })
}

// StopTrigger removes every queued runner started for trigger and returns
// how many were removed. A pending delivery of trigger is dropped as well.
func (s *Scheduler) StopTrigger(trigger opcode.Trigger) int {
	for i, t := range s.pending {
		if t == trigger {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			break
		}
	}
	return s.remove(func(r *Runner) bool { return r.Trigger == trigger })
}

func (s *Scheduler) remove(match func(*Runner) bool) int {
	kept := s.queue[:0]
	n := 0
	for _, r := range s.queue {
		if match(r) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	for i := len(kept); i < len(s.queue); i++ {
		s.queue[i] = nil
	}
	s.queue = kept
	return n
}

// Runners returns the queued runners in queue order.
func (s *Scheduler) Runners() []*Runner {
	return s.queue
}

// Pending returns the number of queued runners.
func (s *Scheduler) Pending() int {
	return len(s.queue)
}

// Idle reports whether nothing is queued and no trigger is pending.
func (s *Scheduler) Idle() bool {
	return len(s.queue) == 0 && len(s.pending) == 0
}

// Ticks returns the number of ticks run so far.
func (s *Scheduler) Ticks() uint64 {
	return s.ticks
}
