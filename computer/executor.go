package computer

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/richinex/vlmpilot/model"
	"github.com/richinex/vlmpilot/screen"
)

// Display receives input in absolute pixel coordinates.
type Display interface {
	Size() (width, height int)
	Click(ctx context.Context, x, y int) error
	LongPress(ctx context.Context, x, y int, hold time.Duration) error
	Hover(ctx context.Context, x, y int) error
	Type(ctx context.Context, text string) error
	Key(ctx context.Context, name string) error
	Scroll(ctx context.Context, dx, dy int) error
}

// Defaults for Executor.
const (
	DefaultScrollStep = 500
	DefaultPressHold  = time.Second
)

// Executor realises actor output against a display and reports the outcome
// as a tool result carrying a fresh screenshot.
type Executor struct {
	display  Display
	capturer screen.Capturer
	shot     screen.Request
	logger   *zap.Logger

	ScrollStep int
	PressHold  time.Duration
}

// NewExecutor creates an executor. capturer may be nil, in which case tool
// results carry no screenshot.
func NewExecutor(display Display, capturer screen.Capturer, shot screen.Request, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		display:    display,
		capturer:   capturer,
		shot:       shot,
		logger:     logger.Named("executor"),
		ScrollStep: DefaultScrollStep,
		PressHold:  DefaultPressHold,
	}
}

// Execute parses rec and runs it. Parse and display failures are reported
// in the result's Error field, never as a Go error, so the session can show
// them to the model and carry on.
func (e *Executor) Execute(ctx context.Context, rec model.ActionRecord) model.ToolResult {
	action, err := ParseAction(rec.Content)
	if err != nil {
		e.logger.Warn("unparseable action", zap.String("content", rec.Content), zap.Error(err))
		return e.withScreenshot(ctx, model.ToolResult{Error: err.Error()})
	}

	if err := e.Run(ctx, action); err != nil {
		e.logger.Warn("action failed", zap.Stringer("action", action), zap.Error(err))
		return e.withScreenshot(ctx, model.ToolResult{Error: err.Error()})
	}

	e.logger.Info("action executed", zap.Stringer("action", action))
	return e.withScreenshot(ctx, model.ToolResult{Output: "Executed " + action.String()})
}

// Run performs a validated action.
func (e *Executor) Run(ctx context.Context, a Action) error {
	switch a.Kind {
	case Click:
		x, y := e.pixels(*a.Position)
		return e.display.Click(ctx, x, y)
	case Press:
		x, y := e.pixels(*a.Position)
		return e.display.LongPress(ctx, x, y, e.PressHold)
	case Hover:
		x, y := e.pixels(*a.Position)
		return e.display.Hover(ctx, x, y)
	case Input:
		x, y := e.pixels(*a.Position)
		if err := e.display.Click(ctx, x, y); err != nil {
			return err
		}
		return e.display.Type(ctx, a.Value)
	case Enter:
		return e.display.Key(ctx, "enter")
	case Esc:
		return e.display.Key(ctx, "escape")
	case Scroll:
		dy := e.ScrollStep
		if a.Value == "up" {
			dy = -dy
		}
		return e.display.Scroll(ctx, 0, dy)
	default:
		return fmt.Errorf("%w: unsupported action %q", ErrInvalidAction, a.Kind)
	}
}

// pixels maps a normalized point to display pixels, clamped to the screen.
func (e *Executor) pixels(p Point) (int, int) {
	w, h := e.display.Size()
	return scale(p.X, w), scale(p.Y, h)
}

func scale(v float64, size int) int {
	if size <= 0 {
		return 0
	}
	px := int(math.Round(v * float64(size)))
	if px >= size {
		px = size - 1
	}
	if px < 0 {
		px = 0
	}
	return px
}

func (e *Executor) withScreenshot(ctx context.Context, r model.ToolResult) model.ToolResult {
	if e.capturer == nil {
		return r
	}
	shot, err := e.capturer.Capture(ctx, e.shot)
	if err != nil {
		e.logger.Warn("post-action screenshot failed", zap.Error(err))
		return r
	}
	img := shot.Image
	r.Image = &img
	return r
}
