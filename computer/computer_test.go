package computer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinex/vlmpilot/model"
	"github.com/richinex/vlmpilot/screen"
)

func TestParseAction(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Action
	}{
		{
			name: "python click",
			raw:  `{'action': 'CLICK', 'value': None, 'position': [0.5, 0.25]}`,
			want: Action{Kind: Click, Position: &Point{X: 0.5, Y: 0.25}},
		},
		{
			name: "json input",
			raw:  `{"action": "INPUT", "value": "hello", "position": [0.1, 0.9]}`,
			want: Action{Kind: Input, Value: "hello", Position: &Point{X: 0.1, Y: 0.9}},
		},
		{
			name: "enter drops stray params",
			raw:  `{'action': 'ENTER', 'value': 'x', 'position': [0.2, 0.2]}`,
			want: Action{Kind: Enter},
		},
		{
			name: "scroll normalizes direction",
			raw:  `{'action': 'SCROLL', 'value': 'Down', 'position': None}`,
			want: Action{Kind: Scroll, Value: "down"},
		},
		{
			name: "apostrophe in leading prose",
			raw:  `Here's the action: {'action': 'CLICK', 'value': None, 'position': [0.5, 0.5]}`,
			want: Action{Kind: Click, Position: &Point{X: 0.5, Y: 0.5}},
		},
		{
			name: "apostrophes around the dict",
			raw:  `I'll click it. {'action': 'INPUT', 'value': "it's", 'position': [0.1, 0.2]} I'm done`,
			want: Action{Kind: Input, Value: "it's", Position: &Point{X: 0.1, Y: 0.2}},
		},
		{
			name: "escape alias",
			raw:  `{'action': 'ESCAPE', 'value': None, 'position': None}`,
			want: Action{Kind: Esc},
		},
		{
			name: "box uses centre",
			raw:  `{'action': 'PRESS', 'value': None, 'position': [[0.2, 0.2], [0.4, 0.6]]}`,
			want: Action{
				Kind:     Press,
				Position: &Point{X: 0.30000000000000004, Y: 0.4},
				Box:      []Point{{X: 0.2, Y: 0.2}, {X: 0.4, Y: 0.6}},
			},
		},
		{
			name: "surrounding prose",
			raw:  "Action: {'action': 'HOVER', 'value': None, 'position': (0.3, 0.7)}",
			want: Action{Kind: Hover, Position: &Point{X: 0.3, Y: 0.7}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAction(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want.Kind, got.Kind)
			assert.Equal(t, tt.want.Value, got.Value)
			if tt.want.Position == nil {
				assert.Nil(t, got.Position)
			} else {
				require.NotNil(t, got.Position)
				assert.InDelta(t, tt.want.Position.X, got.Position.X, 1e-9)
				assert.InDelta(t, tt.want.Position.Y, got.Position.Y, 1e-9)
			}
			assert.Equal(t, tt.want.Box, got.Box)
		})
	}
}

func TestParseActionRejects(t *testing.T) {
	for name, raw := range map[string]string{
		"no json":          "I would click the button",
		"unknown action":   `{"action": "DRAG", "value": null, "position": [0.1, 0.1]}`,
		"missing position": `{"action": "CLICK", "value": null, "position": null}`,
		"missing value":    `{"action": "INPUT", "value": null, "position": [0.1, 0.1]}`,
		"out of range":     `{"action": "CLICK", "value": null, "position": [1.5, 0.1]}`,
		"bad scroll":       `{"action": "SCROLL", "value": "left", "position": null}`,
		"three coords":     `{"action": "CLICK", "value": null, "position": [0.1, 0.1, 0.1]}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseAction(raw)
			assert.True(t, errors.Is(err, ErrInvalidAction), "got %v", err)
		})
	}
}

type stubCapturer struct{}

func (stubCapturer) Capture(context.Context, screen.Request) (screen.Shot, error) {
	return screen.Shot{Image: model.Image{MediaType: "image/png", Data: []byte("png"), Ref: "after"}}, nil
}

func TestExecutorScalesToDisplay(t *testing.T) {
	display := NewDryRun(1920, 1080)
	exec := NewExecutor(display, stubCapturer{}, screen.Request{}, nil)
	ctx := context.Background()

	r := exec.Execute(ctx, model.NewActionRecord(`{'action': 'CLICK', 'value': None, 'position': [0.5, 0.25]}`))
	assert.False(t, r.IsError())
	assert.Contains(t, r.Output, "CLICK")
	require.NotNil(t, r.Image)
	assert.Equal(t, "after", r.Image.Ref)

	exec.Execute(ctx, model.NewActionRecord(`{'action': 'INPUT', 'value': 'hi', 'position': [1.0, 1.0]}`))
	exec.Execute(ctx, model.NewActionRecord(`{'action': 'SCROLL', 'value': 'up', 'position': None}`))
	exec.Execute(ctx, model.NewActionRecord(`{'action': 'ESC', 'value': None, 'position': None}`))
	exec.Execute(ctx, model.NewActionRecord(`{'action': 'PRESS', 'value': None, 'position': [0, 0]}`))

	assert.Equal(t, []string{
		"click 960,270",
		"click 1919,1079",
		`type "hi"`,
		"scroll 0,-500",
		"key escape",
		"press 0,0 1s",
	}, display.Ops())
}

func TestExecutorReportsParseErrorsAsToolResults(t *testing.T) {
	display := NewDryRun(100, 100)
	exec := NewExecutor(display, nil, screen.Request{}, nil)

	r := exec.Execute(context.Background(), model.NewActionRecord("no action here"))
	assert.True(t, r.IsError())
	assert.Contains(t, r.Error, "invalid action")
	assert.Nil(t, r.Image)
	assert.Empty(t, display.Ops())
}
