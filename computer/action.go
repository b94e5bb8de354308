// Package computer parses actor output into executable actions and realises
// them against a display.
package computer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	jsonutil "github.com/richinex/vlmpilot/internal/json"
)

// ErrInvalidAction is returned when actor output does not match the action schema.
var ErrInvalidAction = errors.New("invalid action")

// Kind is an action type from the actor's action space.
type Kind string

const (
	Click  Kind = "CLICK"
	Input  Kind = "INPUT"
	Hover  Kind = "HOVER"
	Enter  Kind = "ENTER"
	Scroll Kind = "SCROLL"
	Esc    Kind = "ESC"
	Press  Kind = "PRESS"
)

// Point is a position normalized to [0,1] relative to the screenshot.
type Point struct {
	X float64
	Y float64
}

// Action is a validated actor action.
type Action struct {
	Kind  Kind
	Value string
	// Position is the target point. For a [[x1,y1],[x2,y2]] box it is the centre.
	Position *Point
	// Box holds both corners when the model returned a box.
	Box []Point
}

func (a Action) String() string {
	var b strings.Builder
	b.WriteString(string(a.Kind))
	if a.Value != "" {
		fmt.Fprintf(&b, " %q", a.Value)
	}
	if a.Position != nil {
		fmt.Fprintf(&b, " at (%.3f, %.3f)", a.Position.X, a.Position.Y)
	}
	return b.String()
}

type rule struct {
	needsValue    bool
	needsPosition bool
	allowsValue   bool
	allowsPos     bool
}

var rules = map[Kind]rule{
	Click:  {needsPosition: true, allowsPos: true},
	Input:  {needsValue: true, needsPosition: true, allowsValue: true, allowsPos: true},
	Hover:  {needsPosition: true, allowsPos: true},
	Enter:  {},
	Scroll: {needsValue: true, allowsValue: true},
	Esc:    {},
	Press:  {needsPosition: true, allowsPos: true},
}

var kindAliases = map[string]Kind{
	"ESCAPE": Esc,
	"TYPE":   Input,
}

// actionFields is the wire shape of an actor answer.
type actionFields struct {
	Action   string          `json:"action"`
	Value    json.RawMessage `json:"value"`
	Position json.RawMessage `json:"position"`
}

// ParseAction extracts and validates an action from raw actor output.
// Both JSON and Python-style dict literals are accepted. Parameters an
// action kind does not use are dropped; missing required ones fail.
func ParseAction(raw string) (Action, error) {
	object, err := jsonutil.ExtractLiteral(raw)
	if err != nil {
		return Action{}, fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}
	fields, err := jsonutil.ExtractJSONFromResponse[actionFields](object)
	if err != nil {
		return Action{}, fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}

	name := strings.ToUpper(strings.TrimSpace(fields.Action))
	kind := Kind(name)
	if alias, ok := kindAliases[name]; ok {
		kind = alias
	}
	r, ok := rules[kind]
	if !ok {
		return Action{}, fmt.Errorf("%w: unknown action %q", ErrInvalidAction, fields.Action)
	}

	a := Action{Kind: kind}
	if r.allowsValue {
		a.Value = decodeValue(fields.Value)
	}
	if r.allowsPos {
		if a.Position, a.Box, err = decodePosition(fields.Position); err != nil {
			return Action{}, err
		}
	}

	if r.needsValue && a.Value == "" {
		return Action{}, fmt.Errorf("%w: %s requires a value", ErrInvalidAction, kind)
	}
	if r.needsPosition && a.Position == nil {
		return Action{}, fmt.Errorf("%w: %s requires a position", ErrInvalidAction, kind)
	}
	if kind == Scroll {
		dir := strings.ToLower(a.Value)
		if dir != "up" && dir != "down" {
			return Action{}, fmt.Errorf("%w: scroll direction must be up or down, got %q", ErrInvalidAction, a.Value)
		}
		a.Value = dir
	}
	return a, nil
}

func decodeValue(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func decodePosition(raw json.RawMessage) (*Point, []Point, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil, nil
	}

	var pair []float64
	if err := json.Unmarshal(raw, &pair); err == nil {
		if len(pair) != 2 {
			return nil, nil, fmt.Errorf("%w: position must be [x,y], got %s", ErrInvalidAction, raw)
		}
		p := Point{X: pair[0], Y: pair[1]}
		if err := checkRange(p); err != nil {
			return nil, nil, err
		}
		return &p, nil, nil
	}

	var box [][]float64
	if err := json.Unmarshal(raw, &box); err != nil || len(box) != 2 || len(box[0]) != 2 || len(box[1]) != 2 {
		return nil, nil, fmt.Errorf("%w: position must be [x,y] or [[x1,y1],[x2,y2]], got %s", ErrInvalidAction, raw)
	}
	corners := []Point{{X: box[0][0], Y: box[0][1]}, {X: box[1][0], Y: box[1][1]}}
	for _, c := range corners {
		if err := checkRange(c); err != nil {
			return nil, nil, err
		}
	}
	centre := Point{X: (corners[0].X + corners[1].X) / 2, Y: (corners[0].Y + corners[1].Y) / 2}
	return &centre, corners, nil
}

func checkRange(p Point) error {
	if p.X < 0 || p.X > 1 || p.Y < 0 || p.Y > 1 {
		return fmt.Errorf("%w: position (%g, %g) outside [0,1]", ErrInvalidAction, p.X, p.Y)
	}
	return nil
}
