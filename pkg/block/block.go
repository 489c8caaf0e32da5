// Package block provides the parsed block tree consumed by the compiler.
// A Block is one node of a visual program: an operation name, ordered
// parameters, and zero or more nested statement lists (if/repeat bodies).
package block

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Block is a node in the parsed block tree.
type Block struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	Params     []Param    `json:"params"`
	Statements [][]*Block `json:"statements"`
}

// Body returns statement list i, or nil when the block has fewer lists.
func (b *Block) Body(i int) []*Block {
	if i < 0 || i >= len(b.Statements) {
		return nil
	}
	return b.Statements[i]
}

// Param returns parameter i. ok is false when it is absent.
func (b *Block) Param(i int) (Param, bool) {
	if i < 0 || i >= len(b.Params) {
		return Param{}, false
	}
	return b.Params[i], true
}

// Script is one top-level statement list. The first block names the trigger.
type Script []*Block

// Trigger returns the first block's type, or "" for an empty script.
func (s Script) Trigger() string {
	if len(s) == 0 || s[0] == nil {
		return ""
	}
	return s[0].Type
}

// Body returns the statements after the trigger block.
func (s Script) Body() []*Block {
	if len(s) <= 1 {
		return nil
	}
	return s[1:]
}

// ParamKind identifies the payload of a Param.
type ParamKind int

const (
	ParamNull ParamKind = iota
	ParamNumber
	ParamText
	ParamBool
	ParamBlock
)

// Param is a block parameter: a literal, a nested block, or null.
type Param struct {
	Kind   ParamKind
	Number float64
	Text   string
	Bool   bool
	Block  *Block
}

// Number creates a numeric literal parameter.
func Number(n float64) Param { return Param{Kind: ParamNumber, Number: n} }

// Text creates a text literal parameter.
func Text(s string) Param { return Param{Kind: ParamText, Text: s} }

// Bool creates a boolean literal parameter.
func Bool(b bool) Param { return Param{Kind: ParamBool, Bool: b} }

// Nested creates a parameter holding a nested block.
func Nested(b *Block) Param { return Param{Kind: ParamBlock, Block: b} }

// Null creates an empty parameter.
func Null() Param { return Param{Kind: ParamNull} }

// UnmarshalJSON decodes a parameter from any of null, number, string, bool or object.
func (p *Param) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*p = Null()
		return nil
	}
	switch data[0] {
	case '{':
		var b Block
		if err := json.Unmarshal(data, &b); err != nil {
			return fmt.Errorf("block param: %w", err)
		}
		*p = Nested(&b)
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("text param: %w", err)
		}
		*p = Text(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return fmt.Errorf("bool param: %w", err)
		}
		*p = Bool(b)
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("number param: %w", err)
		}
		*p = Number(n)
	}
	return nil
}

// MarshalJSON encodes the parameter in the same untagged form it is read from.
func (p Param) MarshalJSON() ([]byte, error) {
	switch p.Kind {
	case ParamNumber:
		return json.Marshal(p.Number)
	case ParamText:
		return json.Marshal(p.Text)
	case ParamBool:
		return json.Marshal(p.Bool)
	case ParamBlock:
		return json.Marshal(p.Block)
	default:
		return []byte("null"), nil
	}
}

// New builds a block; handy for tests and generated projects.
func New(id, typ string, params ...Param) *Block {
	return &Block{ID: id, Type: typ, Params: params}
}

// WithBody appends a statement list to b and returns b.
func (b *Block) WithBody(stmts ...*Block) *Block {
	b.Statements = append(b.Statements, stmts)
	return b
}

// ParseScript decodes a JSON array of statement lists ([[block, ...], ...]).
func ParseScript(data []byte) ([]Script, error) {
	var raw [][]*Block
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	scripts := make([]Script, 0, len(raw))
	for _, s := range raw {
		scripts = append(scripts, Script(s))
	}
	return scripts, nil
}
