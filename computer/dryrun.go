package computer

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DryRun is a Display that performs nothing and records what it was asked
// to do. It backs replayed screenshot sessions and tests.
type DryRun struct {
	Width  int
	Height int

	mu  sync.Mutex
	ops []string
}

// NewDryRun creates a dry-run display of the given size.
func NewDryRun(width, height int) *DryRun {
	return &DryRun{Width: width, Height: height}
}

func (d *DryRun) record(format string, args ...any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ops = append(d.ops, fmt.Sprintf(format, args...))
	return nil
}

// Ops returns the recorded operations in order.
func (d *DryRun) Ops() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.ops...)
}

func (d *DryRun) Size() (int, int) { return d.Width, d.Height }

func (d *DryRun) Click(_ context.Context, x, y int) error {
	return d.record("click %d,%d", x, y)
}

func (d *DryRun) LongPress(_ context.Context, x, y int, hold time.Duration) error {
	return d.record("press %d,%d %s", x, y, hold)
}

func (d *DryRun) Hover(_ context.Context, x, y int) error {
	return d.record("hover %d,%d", x, y)
}

func (d *DryRun) Type(_ context.Context, text string) error {
	return d.record("type %q", text)
}

func (d *DryRun) Key(_ context.Context, name string) error {
	return d.record("key %s", name)
}

func (d *DryRun) Scroll(_ context.Context, dx, dy int) error {
	return d.record("scroll %d,%d", dx, dy)
}

var _ Display = (*DryRun)(nil)
