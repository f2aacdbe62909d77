package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind is the numeric kind of a declared metric.
type Kind uint8

const (
	KindInt   Kind = iota // 64-bit signed integer
	KindFloat             // 64-bit float
)

// String returns the wire name of the kind ("integer" or "float").
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "integer"
	case KindFloat:
		return "float"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// KindFromString parses a wire kind name.
func KindFromString(s string) (Kind, error) {
	switch s {
	case "integer":
		return KindInt, nil
	case "float":
		return KindFloat, nil
	default:
		return 0, fmt.Errorf("unknown kind %q", s)
	}
}

// RenderHint tags a field group with its chart presentation.
// It never affects storage.
type RenderHint string

const (
	HintLine      RenderHint = "line"
	HintStack     RenderHint = "stack"
	HintFullStack RenderHint = "full-stack"
	HintBar       RenderHint = "bar"
)

// Valid reports whether h is one of the recognized hints.
func (h RenderHint) Valid() bool {
	switch h {
	case HintLine, HintStack, HintFullStack, HintBar:
		return true
	}
	return false
}

// Field is one declared metric: a name and its numeric kind.
type Field struct {
	Name string
	Kind Kind
}

// Group is a named, ordered set of metrics collected together each
// cycle, plus the chart hint for rendering it.
type Group struct {
	Name   string
	Fields []Field
	Hint   RenderHint
}

// Value is one typed metric value inside a sample. Exactly one of Int
// or Float is meaningful, selected by Kind.
type Value struct {
	Name  string
	Kind  Kind
	Int   int64
	Float float64
}

// Num returns the value as a JSON-encodable number of the right kind.
func (v Value) Num() any {
	if v.Kind == KindFloat {
		return v.Float
	}
	return v.Int
}

type valueJSON struct {
	Name  string          `json:"name"`
	Kind  string          `json:"kind"`
	Value json.RawMessage `json:"value"`
}

// MarshalJSON encodes the value with its kind so stored samples are
// self-describing regardless of the schema that produced them.
func (v Value) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(v.Num())
	if err != nil {
		return nil, err
	}
	return json.Marshal(valueJSON{Name: v.Name, Kind: v.Kind.String(), Value: raw})
}

// UnmarshalJSON decodes a stored value, restoring its declared kind.
func (v *Value) UnmarshalJSON(data []byte) error {
	var vj valueJSON
	if err := json.Unmarshal(data, &vj); err != nil {
		return err
	}
	kind, err := KindFromString(vj.Kind)
	if err != nil {
		return err
	}
	v.Name = vj.Name
	v.Kind = kind
	switch kind {
	case KindFloat:
		return json.Unmarshal(vj.Value, &v.Float)
	default:
		return json.Unmarshal(vj.Value, &v.Int)
	}
}

// Sample is one persisted, timestamped record for a field group:
// a value for every declared metric, in declaration order.
type Sample struct {
	CreatedAt time.Time
	Values    []Value
}

// PluginStatus is the metadata row returned for one plugin.
type PluginStatus struct {
	Description        string `json:"description"`
	Every              int    `json:"every"` // minutes
	Priority           int    `json:"priority"`
	LastExecutedAt     *int64 `json:"lastExecutedAt"`     // epoch seconds, null before first run
	LastExecutedResult *bool  `json:"lastExecutedResult"` // null before first run
}

// GroupChart is the chart-ready form of one field group's samples.
type GroupChart struct {
	Type    RenderHint `json:"type"`
	Legends []string   `json:"legends"`
	Data    [][]any    `json:"data"`
}
