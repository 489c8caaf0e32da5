package vm

import (
	"fmt"

	"github.com/zurustar/entplay/pkg/value"
)

// Scratch labels used by stateful instructions.
const (
	LabelCount  = "count"
	LabelBound  = "iter_num"
	LabelDelta  = "delta"
	LabelTarget = "target"
	LabelDX     = "dx"
	LabelDY     = "dy"
)

// Memory is a runner's scratch memory, keyed by (instruction id, label).
// Instructions are shared between runners, so all per-run state lives here.
// Memory never stores a MemoryRef.
type Memory struct {
	entries map[value.Ref]value.Value
}

// NewMemory creates an empty scratch memory.
func NewMemory() *Memory {
	return &Memory{entries: make(map[value.Ref]value.Value)}
}

func key(id, label string) value.Ref {
	return value.Ref{ID: id, Label: label}
}

// Get returns the entry for ref. It implements value.Lookup.
func (m *Memory) Get(ref value.Ref) (value.Value, bool) {
	v, ok := m.entries[ref]
	return v, ok
}

// Has reports whether the entry (id, label) exists.
func (m *Memory) Has(id, label string) bool {
	_, ok := m.entries[key(id, label)]
	return ok
}

// Set stores v under (id, label).
func (m *Memory) Set(id, label string, v value.Value) error {
	if v.IsRef() {
		return NewRuntimeError(ErrorInvalidOperation, fmt.Sprintf("cannot store reference %v in scratch memory", v))
	}
	if !v.IsValid() {
		return NewRuntimeError(ErrorInvalidOperation, "cannot store an empty value in scratch memory")
	}
	m.entries[key(id, label)] = v
	return nil
}

// Entry returns the entry (id, label), inserting def first when it is absent.
func (m *Memory) Entry(id, label string, def value.Value) (value.Value, error) {
	if v, ok := m.entries[key(id, label)]; ok {
		return v, nil
	}
	if err := m.Set(id, label, def); err != nil {
		return value.Value{}, err
	}
	return def, nil
}

// Remove deletes the given labels of instruction id.
func (m *Memory) Remove(id string, labels ...string) {
	for _, l := range labels {
		delete(m.entries, key(id, l))
	}
}

// Len returns the number of entries.
func (m *Memory) Len() int {
	return len(m.entries)
}
