// Package project はプロジェクトファイル（JSON）の読み込みを行う
package project

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/zurustar/entplay/pkg/block"
	"github.com/zurustar/entplay/pkg/scene"
	"github.com/zurustar/entplay/pkg/value"
)

// Project はプロジェクトファイルの内容を表す
type Project struct {
	Objects   []Object   `json:"objects"`
	Variables []Variable `json:"variables"`
}

// Object はプロジェクト内のオブジェクトを表す
// Script はブロック列のJSON文字列（[[block, ...], ...]）
type Object struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Script string  `json:"script"`
	Entity *Entity `json:"entity,omitempty"`
}

// Entity はオブジェクトの初期位置とスケール
type Entity struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	ScaleX float64 `json:"scaleX"`
	ScaleY float64 `json:"scaleY"`
}

// Variable はプロジェクト変数を表す
type Variable struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Value        json.RawMessage `json:"value"`
	VariableType string          `json:"variableType"`
	Object       *string         `json:"object"`
}

// Load ファイルからプロジェクトを読み込む
func Load(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read project: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return p, nil
}

// Parse プロジェクトJSONを解析する
// BOM付きUTF-8、UTF-16およびShift-JISも受け付ける
func Parse(data []byte) (*Project, error) {
	text, err := decodeText(data)
	if err != nil {
		return nil, err
	}
	var p Project
	if err := json.Unmarshal(text, &p); err != nil {
		return nil, fmt.Errorf("failed to parse project: %w", err)
	}
	return &p, nil
}

// decodeText BOMを見てUTF-8に変換する
// BOMなしで不正なUTF-8の場合はShift-JISとみなす
func decodeText(data []byte) ([]byte, error) {
	var decoder transform.Transformer = unicode.BOMOverride(unicode.UTF8.NewDecoder())
	if !hasBOM(data) && !utf8.Valid(data) {
		decoder = japanese.ShiftJIS.NewDecoder()
	}
	out, _, err := transform.Bytes(decoder, data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode project text: %w", err)
	}
	return out, nil
}

func hasBOM(data []byte) bool {
	return bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}) ||
		bytes.HasPrefix(data, []byte{0xFE, 0xFF}) ||
		bytes.HasPrefix(data, []byte{0xFF, 0xFE})
}

// Scripts オブジェクトのスクリプトを解析する
func (o *Object) Scripts() ([]block.Script, error) {
	if o.Script == "" {
		return nil, nil
	}
	scripts, err := block.ParseScript([]byte(o.Script))
	if err != nil {
		return nil, fmt.Errorf("object %s: %w", o.ID, err)
	}
	return scripts, nil
}

// SceneObject 初期状態のシーンオブジェクトを返す
func (o *Object) SceneObject() scene.Object {
	so := scene.Object{ID: o.ID, Name: o.Name}
	if o.Entity != nil {
		so.X, so.Y = o.Entity.X, o.Entity.Y
		so.ScaleX, so.ScaleY = o.Entity.ScaleX, o.Entity.ScaleY
	}
	return so
}

// SceneVariable 初期状態のシーン変数を返す
func (v *Variable) SceneVariable() (scene.Variable, error) {
	val, err := parseValue(v.Value)
	if err != nil {
		return scene.Variable{}, fmt.Errorf("variable %s: %w", v.ID, err)
	}
	return scene.Variable{ID: v.ID, Name: v.Name, Value: val}, nil
}

// parseValue 変数の初期値（数値・文字列・真偽値・null）を変換する
func parseValue(raw json.RawMessage) (value.Value, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return value.Number(0), nil
	}
	var p block.Param
	if err := json.Unmarshal(raw, &p); err != nil {
		return value.Value{}, err
	}
	switch p.Kind {
	case block.ParamNumber:
		return value.Number(p.Number), nil
	case block.ParamText:
		return value.Text(p.Text), nil
	case block.ParamBool:
		return value.Boolean(p.Bool), nil
	}
	return value.Value{}, fmt.Errorf("unsupported initial value %s", raw)
}
