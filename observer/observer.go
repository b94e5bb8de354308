// Package observer defines the sinks a session reports progress to.
//
// Three independent sinks exist: rendered output (text or HTML image tags),
// raw tool results, and raw provider responses. Each call carries a single
// item. Sinks are invoked synchronously on the turn-processing path and
// must not block indefinitely.
package observer

import (
	"fmt"
	"sync"

	"github.com/richinex/vlmpilot/model"
)

// Sink receives session progress.
type Sink interface {
	// Output receives a rendered item for display.
	Output(rendered string)

	// ToolResult receives the raw outcome of an executed action.
	ToolResult(id string, result model.ToolResult)

	// Response receives the raw text returned by a model provider.
	Response(provider, raw string)
}

// Funcs adapts plain functions to a Sink. Nil fields are ignored.
type Funcs struct {
	OutputFunc     func(rendered string)
	ToolResultFunc func(id string, result model.ToolResult)
	ResponseFunc   func(provider, raw string)
}

func (f Funcs) Output(rendered string) {
	if f.OutputFunc != nil {
		f.OutputFunc(rendered)
	}
}

func (f Funcs) ToolResult(id string, result model.ToolResult) {
	if f.ToolResultFunc != nil {
		f.ToolResultFunc(id, result)
	}
}

func (f Funcs) Response(provider, raw string) {
	if f.ResponseFunc != nil {
		f.ResponseFunc(provider, raw)
	}
}

// Nop discards everything.
var Nop Sink = Funcs{}

// ImageTag renders an image as an inline HTML tag.
func ImageTag(img model.Image) string {
	return fmt.Sprintf(`<img src="%s">`, img.DataURL())
}

// RenderToolResult renders a tool result the way the output sink displays it:
// output text first, then the error, then the image. Returns "" when nothing
// is displayable, e.g. an image-only result with images hidden.
func RenderToolResult(r model.ToolResult, hideImages bool) string {
	switch {
	case r.Output != "":
		return r.Output
	case r.Error != "":
		return "Error: " + r.Error
	case r.Image != nil && !hideImages:
		return ImageTag(*r.Image)
	default:
		return ""
	}
}

// Recorder keeps every item it receives. Safe for concurrent use.
type Recorder struct {
	mu        sync.Mutex
	outputs   []string
	results   map[string]model.ToolResult
	responses []string
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{results: make(map[string]model.ToolResult)}
}

func (r *Recorder) Output(rendered string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outputs = append(r.outputs, rendered)
}

func (r *Recorder) ToolResult(id string, result model.ToolResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[id] = result
}

func (r *Recorder) Response(provider, raw string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses = append(r.responses, provider+": "+raw)
}

// Outputs returns the rendered items in arrival order.
func (r *Recorder) Outputs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.outputs...)
}

// Responses returns the raw provider responses in arrival order.
func (r *Recorder) Responses() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.responses...)
}

// ToolResults returns the recorded tool results keyed by id.
func (r *Recorder) ToolResults() map[string]model.ToolResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]model.ToolResult, len(r.results))
	for k, v := range r.results {
		out[k] = v
	}
	return out
}
