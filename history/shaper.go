// Package history shapes the conversation log before it is shown to the planner.
//
// Two stages run in order: Filter keeps only plain user-authored text, and
// PruneImages bounds the number of screenshots retained in tool results.
package history

import (
	"go.uber.org/zap"

	"github.com/richinex/vlmpilot/model"
)

// DefaultMinRemovalThreshold is the batch size images are pruned in.
// Removing in batches keeps unchanged prompt prefixes cache-friendly.
const DefaultMinRemovalThreshold = 10

// Shaper filters and prunes planner history.
type Shaper struct {
	// ImagesToKeep is the image-retention budget. Nil disables pruning.
	ImagesToKeep *int

	// MinRemovalThreshold is the pruning batch size. Zero means DefaultMinRemovalThreshold.
	MinRemovalThreshold int

	logger *zap.Logger
}

// NewShaper creates a shaper. imagesToKeep may be nil.
func NewShaper(imagesToKeep *int, logger *zap.Logger) *Shaper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Shaper{
		ImagesToKeep:        imagesToKeep,
		MinRemovalThreshold: DefaultMinRemovalThreshold,
		logger:              logger.Named("history"),
	}
}

// Shape returns the planner-ready view of log: filtered, then pruned.
// The input is never modified.
func (s *Shaper) Shape(log []model.Message) []model.Message {
	view := Filter(log, s.logger)
	s.Prune(view)
	return view
}

// Prune applies the image budget to msgs in place. It is a no-op when no
// budget is configured. Returns the number of images removed.
func (s *Shaper) Prune(msgs []model.Message) int {
	if s.ImagesToKeep == nil {
		return 0
	}
	threshold := s.MinRemovalThreshold
	if threshold == 0 {
		threshold = DefaultMinRemovalThreshold
	}
	return PruneImages(msgs, *s.ImagesToKeep, threshold)
}

// Filter returns the plain user-authored text messages of log, each reduced
// to its leading text item. Assistant turns, tool results and non-text
// content are dropped. A message that cannot be normalized is logged and
// skipped; the pass always completes. Filter is idempotent.
func Filter(log []model.Message, logger *zap.Logger) []model.Message {
	if logger == nil {
		logger = zap.NewNop()
	}
	filtered := make([]model.Message, 0, len(log))
	for i, msg := range log {
		text, ok := userText(msg)
		if !ok {
			logger.Debug("dropping message from planner history",
				zap.Int("index", i),
				zap.String("role", string(msg.Role)),
				zap.Int("items", len(msg.Content)),
			)
			continue
		}
		filtered = append(filtered, model.UserText(text))
	}
	return filtered
}

func userText(msg model.Message) (string, bool) {
	if msg.Role != model.RoleUser || len(msg.Content) == 0 {
		return "", false
	}
	first := msg.Content[0]
	if first.Type != model.ContentText {
		return "", false
	}
	return first.Text, true
}

// PruneImages removes the oldest images from tool-result content so that at
// most imagesToKeep remain, rounding the removal count down to a multiple of
// minRemovalThreshold. Removal follows traversal order, so the earliest
// images go first. Text and error items are never removed. msgs is modified
// in place; the number of removed images is returned.
func PruneImages(msgs []model.Message, imagesToKeep, minRemovalThreshold int) int {
	if minRemovalThreshold <= 0 {
		minRemovalThreshold = 1
	}

	var blocks []*model.ToolResultBlock
	total := 0
	for _, msg := range msgs {
		for _, item := range msg.Content {
			if item.Type == model.ContentToolResult && item.ToolResult != nil {
				blocks = append(blocks, item.ToolResult)
				total += item.ToolResult.ImageCount()
			}
		}
	}

	toRemove := total - imagesToKeep
	if toRemove <= 0 {
		return 0
	}
	toRemove -= toRemove % minRemovalThreshold

	removed := 0
	for _, block := range blocks {
		if removed == toRemove {
			break
		}
		kept := block.Items[:0]
		for _, item := range block.Items {
			if item.Type == model.ContentImage && removed < toRemove {
				removed++
				continue
			}
			kept = append(kept, item)
		}
		block.Items = kept
	}
	return removed
}
