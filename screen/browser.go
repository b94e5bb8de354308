package screen

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"go.uber.org/zap"
)

// BrowserConfig configures a BrowserDisplay.
type BrowserConfig struct {
	StartURL string
	Width    int
	Height   int
	Headless bool
}

// BrowserDisplay is a Chrome tab driven over the DevTools protocol. It is a
// single display (index 0) that can be captured and receive mouse and
// keyboard input.
type BrowserDisplay struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	width       int
	height      int
	logger      *zap.Logger
}

// NewBrowserDisplay launches Chrome and opens cfg.StartURL.
func NewBrowserDisplay(ctx context.Context, cfg BrowserConfig, logger *zap.Logger) (*BrowserDisplay, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("browser")
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("invalid viewport %dx%d", cfg.Width, cfg.Height)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-extensions", true),
		chromedp.WindowSize(cfg.Width, cfg.Height),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, cancel := chromedp.NewContext(allocCtx)

	startURL := cfg.StartURL
	if startURL == "" {
		startURL = "about:blank"
	}
	err := chromedp.Run(browserCtx,
		chromedp.EmulateViewport(int64(cfg.Width), int64(cfg.Height)),
		chromedp.Navigate(startURL),
	)
	if err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("browser failed to start: %w", err)
	}

	logger.Info("browser display ready",
		zap.String("url", startURL),
		zap.Int("width", cfg.Width),
		zap.Int("height", cfg.Height),
	)
	return &BrowserDisplay{
		ctx:         browserCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
		width:       cfg.Width,
		height:      cfg.Height,
		logger:      logger,
	}, nil
}

// Close shuts the browser down.
func (b *BrowserDisplay) Close() error {
	b.cancel()
	b.allocCancel()
	return nil
}

// run executes actions on the tab. ctx is only checked before the actions
// start; an in-flight DevTools call is not interrupted.
func (b *BrowserDisplay) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return chromedp.Run(b.ctx, actions...)
}

func (b *BrowserDisplay) Capture(ctx context.Context, req Request) (Shot, error) {
	if req.Display != 0 {
		return Shot{}, fmt.Errorf("display %d: %w", req.Display, ErrNoDisplay)
	}
	var buf []byte
	if err := b.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return Shot{}, fmt.Errorf("screenshot failed: %w", err)
	}
	return Finish(buf, "image/png", "", req)
}

// Size returns the viewport size in pixels.
func (b *BrowserDisplay) Size() (int, int) {
	return b.width, b.height
}

func (b *BrowserDisplay) Click(ctx context.Context, x, y int) error {
	b.logger.Debug("click", zap.Int("x", x), zap.Int("y", y))
	return b.run(ctx, chromedp.MouseClickXY(float64(x), float64(y)))
}

func (b *BrowserDisplay) LongPress(ctx context.Context, x, y int, hold time.Duration) error {
	b.logger.Debug("long press", zap.Int("x", x), zap.Int("y", y), zap.Duration("hold", hold))
	fx, fy := float64(x), float64(y)
	return b.run(ctx,
		input.DispatchMouseEvent(input.MousePressed, fx, fy).WithButton(input.Left).WithClickCount(1),
		chromedp.Sleep(hold),
		input.DispatchMouseEvent(input.MouseReleased, fx, fy).WithButton(input.Left).WithClickCount(1),
	)
}

func (b *BrowserDisplay) Hover(ctx context.Context, x, y int) error {
	b.logger.Debug("hover", zap.Int("x", x), zap.Int("y", y))
	return b.run(ctx, input.DispatchMouseEvent(input.MouseMoved, float64(x), float64(y)))
}

func (b *BrowserDisplay) Type(ctx context.Context, text string) error {
	b.logger.Debug("type", zap.Int("chars", len(text)))
	return b.run(ctx, chromedp.KeyEvent(text))
}

// Key presses a named key: "enter", "escape", "tab" or "backspace".
// Any other value is sent as typed text.
func (b *BrowserDisplay) Key(ctx context.Context, name string) error {
	b.logger.Debug("key", zap.String("key", name))
	keys := name
	switch name {
	case "enter":
		keys = kb.Enter
	case "escape":
		keys = kb.Escape
	case "tab":
		keys = kb.Tab
	case "backspace":
		keys = kb.Backspace
	}
	return b.run(ctx, chromedp.KeyEvent(keys))
}

// Scroll sends a wheel event at the viewport centre. Positive dy scrolls down.
func (b *BrowserDisplay) Scroll(ctx context.Context, dx, dy int) error {
	b.logger.Debug("scroll", zap.Int("dx", dx), zap.Int("dy", dy))
	cx, cy := float64(b.width)/2, float64(b.height)/2
	return b.run(ctx, input.DispatchMouseEvent(input.MouseWheel, cx, cy).
		WithDeltaX(float64(dx)).
		WithDeltaY(float64(dy)))
}
