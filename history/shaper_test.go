package history

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinex/vlmpilot/model"
)

// screenshots builds n tool-result messages, each with text plus one image
// whose Ref records its capture order.
func screenshots(n int) []model.Message {
	msgs := make([]model.Message, 0, n)
	for i := 0; i < n; i++ {
		img := model.Image{Data: []byte{byte(i)}, Ref: fmt.Sprintf("shot-%d", i)}
		msgs = append(msgs, model.ToolResultMessage(fmt.Sprintf("t%d", i), model.ToolResult{
			Output: fmt.Sprintf("step %d", i),
			Image:  &img,
		}))
	}
	return msgs
}

func remainingRefs(msgs []model.Message) []string {
	var refs []string
	for _, msg := range msgs {
		for _, item := range msg.Content {
			if item.ToolResult == nil {
				continue
			}
			for _, c := range item.ToolResult.Items {
				if c.Type == model.ContentImage {
					refs = append(refs, c.Image.Ref)
				}
			}
		}
	}
	return refs
}

func TestFilterKeepsOnlyUserText(t *testing.T) {
	img := model.Image{Data: []byte{1}}
	log := []model.Message{
		model.UserText("open settings"),
		model.AssistantText(`{"Next Action": "CLICK"}`),
		model.ToolResultMessage("t1", model.ToolResult{Output: "done", Image: &img}),
		{Role: model.RoleUser, Content: []model.Content{model.ImageContent(img)}},
		{Role: model.RoleUser},
		{Role: model.RoleUser, Content: []model.Content{model.TextContent("second"), model.ImageContent(img)}},
	}

	got := Filter(log, nil)

	require.Len(t, got, 2)
	assert.Equal(t, "open settings", got[0].Content[0].Text)
	assert.Equal(t, "second", got[1].Content[0].Text)
	assert.Len(t, got[1].Content, 1, "non-text items are stripped")
}

func TestFilterIsIdempotent(t *testing.T) {
	log := append([]model.Message{model.UserText("a"), model.AssistantText("b")}, screenshots(3)...)
	log = append(log, model.UserText("c"))

	once := Filter(log, nil)
	twice := Filter(once, nil)

	assert.Equal(t, once, twice)
}

func TestPruneImagesRemovesOldestInBatches(t *testing.T) {
	msgs := screenshots(25)

	removed := PruneImages(msgs, 3, 10)

	// 25 - 3 = 22, rounded down to 20.
	assert.Equal(t, 20, removed)
	refs := remainingRefs(msgs)
	require.Len(t, refs, 5)
	assert.Equal(t, "shot-20", refs[0])
	assert.Equal(t, "shot-24", refs[4])

	for i, msg := range msgs {
		items := msg.Content[0].ToolResult.Items
		assert.Equal(t, fmt.Sprintf("step %d", i), items[0].Text, "text is never removed")
	}
}

func TestPruneImagesBelowThresholdIsNoop(t *testing.T) {
	msgs := screenshots(12)
	assert.Equal(t, 0, PruneImages(msgs, 3, 10))
	assert.Len(t, remainingRefs(msgs), 12)
}

func TestPruneImagesKeepsErrorText(t *testing.T) {
	img := model.Image{Data: []byte{1}, Ref: "err-shot"}
	msgs := []model.Message{model.ToolResultMessage("t", model.ToolResult{Error: "failed", Image: &img})}

	assert.Equal(t, 1, PruneImages(msgs, 0, 1))
	items := msgs[0].Content[0].ToolResult.Items
	require.Len(t, items, 1)
	assert.Equal(t, "failed", items[0].Text)
}

func TestShaperWithoutBudgetIsNoop(t *testing.T) {
	s := NewShaper(nil, nil)
	msgs := screenshots(30)
	assert.Equal(t, 0, s.Prune(msgs))
	assert.Len(t, remainingRefs(msgs), 30)
}

func TestShapeDoesNotTouchInput(t *testing.T) {
	keep := 0
	s := NewShaper(&keep, nil)
	log := append([]model.Message{model.UserText("task")}, screenshots(10)...)

	view := s.Shape(log)

	require.Len(t, view, 1)
	assert.Len(t, remainingRefs(log), 10)
}

func TestPruneImagesProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("removes floor((N-keep)/threshold)*threshold oldest images", prop.ForAll(
		func(n, keep, threshold int) bool {
			msgs := screenshots(n)
			removed := PruneImages(msgs, keep, threshold)

			want := 0
			if n > keep {
				want = (n - keep) / threshold * threshold
			}
			if removed != want {
				return false
			}
			refs := remainingRefs(msgs)
			if len(refs) != n-want {
				return false
			}
			for i, ref := range refs {
				if ref != fmt.Sprintf("shot-%d", want+i) {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 60),
		gen.IntRange(0, 60),
		gen.IntRange(1, 15),
	))

	properties.TestingRun(t)
}
