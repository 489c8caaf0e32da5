// Package scene holds the mutable state that scripts act on: objects with a
// position and scale, declared variables, and the pointer position.
//
// Coordinates are stage coordinates: the origin is the centre of a
// Width x Height stage and y grows upwards.
package scene

import (
	"fmt"

	"github.com/zurustar/entplay/pkg/value"
)

// Stage dimensions in stage units.
const (
	Width  = 480
	Height = 270
)

// Object is a scene object that scripts can move.
type Object struct {
	ID     string  `cbor:"id"`
	Name   string  `cbor:"name"`
	X      float64 `cbor:"x"`
	Y      float64 `cbor:"y"`
	ScaleX float64 `cbor:"sx"`
	ScaleY float64 `cbor:"sy"`
}

// Variable is a declared project variable.
type Variable struct {
	ID    string      `cbor:"id"`
	Name  string      `cbor:"name"`
	Value value.Value `cbor:"value"`
}

// Scene is the object and variable table shared by all runners.
// It is not safe for concurrent use; the scheduler runs on one goroutine.
type Scene struct {
	objects   []*Object
	objByID   map[string]*Object
	variables []*Variable
	varByID   map[string]*Variable
	varByName map[string]*Variable

	pointerX, pointerY float64
}

// New creates an empty scene.
func New() *Scene {
	return &Scene{
		objByID:   make(map[string]*Object),
		varByID:   make(map[string]*Variable),
		varByName: make(map[string]*Variable),
	}
}

// AddObject adds a copy of o and returns the stored record.
// A zero scale is treated as 1.
func (s *Scene) AddObject(o Object) (*Object, error) {
	if o.ID == "" {
		return nil, fmt.Errorf("object has no id")
	}
	if _, dup := s.objByID[o.ID]; dup {
		return nil, fmt.Errorf("duplicate object id %q", o.ID)
	}
	if o.ScaleX == 0 {
		o.ScaleX = 1
	}
	if o.ScaleY == 0 {
		o.ScaleY = 1
	}
	obj := &o
	s.objects = append(s.objects, obj)
	s.objByID[o.ID] = obj
	return obj, nil
}

// RemoveObject deletes an object. It reports whether the object existed.
func (s *Scene) RemoveObject(id string) bool {
	obj, ok := s.objByID[id]
	if !ok {
		return false
	}
	delete(s.objByID, id)
	for i, o := range s.objects {
		if o == obj {
			s.objects = append(s.objects[:i], s.objects[i+1:]...)
			break
		}
	}
	return true
}

// Object looks up an object by id.
func (s *Scene) Object(id string) (*Object, bool) {
	o, ok := s.objByID[id]
	return o, ok
}

// Objects returns all objects in insertion order.
func (s *Scene) Objects() []*Object {
	return s.objects
}

// AddVariable adds a copy of v and returns the stored record.
func (s *Scene) AddVariable(v Variable) (*Variable, error) {
	if v.ID == "" {
		return nil, fmt.Errorf("variable has no id")
	}
	if _, dup := s.varByID[v.ID]; dup {
		return nil, fmt.Errorf("duplicate variable id %q", v.ID)
	}
	if !v.Value.IsValid() {
		v.Value = value.Number(0)
	}
	vr := &v
	s.variables = append(s.variables, vr)
	s.varByID[v.ID] = vr
	if v.Name != "" {
		if _, taken := s.varByName[v.Name]; !taken {
			s.varByName[v.Name] = vr
		}
	}
	return vr, nil
}

// Variable looks up a variable by id, then by name.
func (s *Scene) Variable(key string) (*Variable, bool) {
	if v, ok := s.varByID[key]; ok {
		return v, true
	}
	v, ok := s.varByName[key]
	return v, ok
}

// Variables returns all variables in declaration order.
func (s *Scene) Variables() []*Variable {
	return s.variables
}

// SetPointer records the pointer position in stage coordinates.
func (s *Scene) SetPointer(x, y float64) {
	s.pointerX, s.pointerY = x, y
}

// Pointer returns the pointer position in stage coordinates.
func (s *Scene) Pointer() (x, y float64) {
	return s.pointerX, s.pointerY
}

// ScreenToStage converts a pixel position inside a w x h screen to stage
// coordinates.
func ScreenToStage(px, py, w, h int) (x, y float64) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	x = float64(px)*Width/float64(w) - Width/2
	y = Height/2 - float64(py)*Height/float64(h)
	return x, y
}

// StageToScreen converts stage coordinates to a pixel position inside a
// w x h screen.
func StageToScreen(x, y float64, w, h int) (px, py float64) {
	px = (x + Width/2) * float64(w) / Width
	py = (Height/2 - y) * float64(h) / Height
	return px, py
}
