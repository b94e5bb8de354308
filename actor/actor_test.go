package actor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinex/vlmpilot/computer"
	"github.com/richinex/vlmpilot/llm/llmtest"
	"github.com/richinex/vlmpilot/model"
	"github.com/richinex/vlmpilot/observer"
	"github.com/richinex/vlmpilot/screen"
)

type fixedCapturer struct {
	requests []screen.Request
	err      error
}

func (c *fixedCapturer) Capture(_ context.Context, req screen.Request) (screen.Shot, error) {
	c.requests = append(c.requests, req)
	if c.err != nil {
		return screen.Shot{}, c.err
	}
	return screen.Shot{
		Image:  model.Image{MediaType: "image/png", Data: []byte("png"), Ref: "shot"},
		Width:  req.Width,
		Height: req.Height,
	}, nil
}

func TestActionHistoryWindow(t *testing.T) {
	var h ActionHistory
	assert.Equal(t, "", h.String())

	h.Append("a")
	h.Append("b\nc")
	h.Append("d")

	assert.Equal(t, 3, h.Len())
	assert.Equal(t, []string{"a", "b c", "d"}, h.Lines())
	assert.Equal(t, "a\nb c\nd\n", h.String())
	assert.Equal(t, "b c\nd\n", h.Window(2))
	assert.Equal(t, h.String(), h.Window(0))
	assert.Equal(t, h.String(), h.Window(10))

	h.Reset()
	assert.Zero(t, h.Len())
}

func TestUserPrompt(t *testing.T) {
	assert.Equal(t,
		"Task: CLICK 'ok'\n\nGiven the screenshot and the task, provide the next action based on the defined action space and format.",
		UserPrompt("CLICK 'ok'", ""))

	p := UserPrompt("ENTER", "{'action': 'CLICK'}\n")
	assert.Contains(t, p, "Task: ENTER\n\nPrevious Actions:\n{'action': 'CLICK'}\n\n\nGiven")
}

func TestSystemPromptListsActionSpace(t *testing.T) {
	prompt := SystemPrompt(SplitDesktop)
	for _, kind := range []string{"CLICK", "INPUT", "HOVER", "ENTER", "SCROLL", "ESC", "PRESS"} {
		assert.Contains(t, prompt, kind)
	}
	assert.Contains(t, prompt, "navigate the desktop screen")
	assert.Contains(t, prompt, "scaled to a range of 0-1")
	assert.Equal(t, prompt, SystemPrompt("phone"), "unknown splits fall back to desktop")
}

func TestLookupPreset(t *testing.T) {
	assert.Equal(t, "ui-tars-2b-sft", LookupPreset(ModelLMStudioTARSSFT).APIID)
	custom := LookupPreset("my-grounding-model")
	assert.Equal(t, "my-grounding-model", custom.APIID)
	assert.Len(t, Presets(), 5)
}

func TestNewUsesDeterministicSmallBudget(t *testing.T) {
	a, err := New(Config{Model: ModelShowUI, BaseURL: "http://127.0.0.1:1/v1"}, &fixedCapturer{}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "showui-2b", a.client.Provider().Model())
	assert.Equal(t, "lmstudio", a.client.Provider().Name())

	_, err = New(Config{Model: ModelShowUI, Provider: "deepseek"}, &fixedCapturer{}, nil, nil)
	assert.Error(t, err)
}

func TestNewReadsCredentialFromEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := New(Config{Model: "gpt-4o", Provider: "openai"}, &fixedCapturer{}, nil, nil)
	require.Error(t, err, "missing credential must fail at construction")

	t.Setenv("OPENAI_API_KEY", "test-key")
	a, err := New(Config{Model: "gpt-4o", Provider: "openai"}, &fixedCapturer{}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "openai", a.client.Provider().Name())
	assert.Equal(t, "gpt-4o", a.client.Provider().Model())

	a, err = New(Config{Model: "gpt-4o", Provider: "openai", APIKey: "explicit"}, &fixedCapturer{}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "openai", a.client.Provider().Name())
}

func TestActOpenSettings(t *testing.T) {
	provider := llmtest.Text(`{'action': 'CLICK', 'value': None, 'position': [0.91, 0.05]}`)
	capturer := &fixedCapturer{}
	rec := observer.NewRecorder()
	a := NewWithProvider(DefaultConfig(), provider, capturer, rec, nil)

	record, err := a.Act(context.Background(), "CLICK 'Settings icon'")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAssistant, record.Role)

	action, err := computer.ParseAction(record.Content)
	require.NoError(t, err)
	assert.Equal(t, computer.Click, action.Kind)
	require.NotNil(t, action.Position)
	assert.True(t, action.Position.X >= 0 && action.Position.X <= 1)
	assert.True(t, action.Position.Y >= 0 && action.Position.Y <= 1)

	require.Len(t, capturer.requests, 1)
	assert.Equal(t, screen.Request{Resize: true, Width: 1920, Height: 1080}, capturer.requests[0])

	calls := provider.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, a.SystemPrompt(), calls[0].System)
	require.Len(t, calls[0].Messages, 1)
	msg := calls[0].Messages[0]
	assert.True(t, msg.HasImage())
	assert.True(t, strings.HasPrefix(msg.Text(), "Task: CLICK 'Settings icon'"))
	assert.NotContains(t, msg.Text(), "Previous Actions")

	require.Len(t, rec.Outputs(), 1)
	assert.Contains(t, rec.Outputs()[0], "<img src=")
}

func TestActHistoryFeedsNextPrompt(t *testing.T) {
	provider := llmtest.Text(
		`{'action': 'CLICK', 'value': None, 'position': [0.1, 0.1]}`,
		`{'action': 'INPUT', 'value': 'hello', 'position': [0.1, 0.1]}`,
	)
	a := NewWithProvider(DefaultConfig(), provider, &fixedCapturer{}, nil, nil)
	ctx := context.Background()

	_, err := a.Act(ctx, "CLICK the search box")
	require.NoError(t, err)
	_, err = a.Act(ctx, "INPUT hello")
	require.NoError(t, err)

	calls := provider.Calls()
	require.Len(t, calls, 2)
	assert.Contains(t, calls[1].Messages[0].Text(),
		"Previous Actions:\n{'action': 'CLICK', 'value': None, 'position': [0.1, 0.1]}\n")
}

func TestActHistoryWindowLimitsPrompt(t *testing.T) {
	provider := llmtest.Text("one", "two", "three", "four")
	cfg := DefaultConfig()
	cfg.HistoryWindow = 1
	a := NewWithProvider(cfg, provider, &fixedCapturer{}, nil, nil)

	for i := 0; i < 3; i++ {
		_, err := a.Act(context.Background(), "go")
		require.NoError(t, err)
	}
	_, err := a.Act(context.Background(), "go")
	require.NoError(t, err)

	last := provider.Calls()[3].Messages[0].Text()
	assert.Contains(t, last, "Previous Actions:\nthree\n")
	assert.NotContains(t, last, "two")
	assert.Equal(t, 4, a.History().Len(), "the buffer itself is never truncated")
}

func TestActHistoryCountsEveryCall(t *testing.T) {
	boom := errors.New("timeout")
	provider := llmtest.New(
		llmtest.Reply{Content: "first", Tokens: 3},
		llmtest.Reply{Err: boom},
		llmtest.Reply{Content: "line one\nline two", Tokens: 3},
	)
	a := NewWithProvider(DefaultConfig(), provider, &fixedCapturer{}, nil, nil)
	ctx := context.Background()

	for k := 1; k <= 3; k++ {
		_, err := a.Act(ctx, fmt.Sprintf("step %d", k))
		if k == 2 {
			assert.True(t, errors.Is(err, boom))
		} else {
			require.NoError(t, err)
		}
		assert.Equal(t, k, a.History().Len())
	}

	lines := a.History().Lines()
	assert.Equal(t, "first", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "ERROR: "))
	assert.Equal(t, "line one line two", lines[2])
	assert.Equal(t, 6, a.TotalTokens())
}

func TestActCaptureFailure(t *testing.T) {
	a := NewWithProvider(DefaultConfig(), llmtest.Text("x"), &fixedCapturer{err: screen.ErrNoDisplay}, nil, nil)

	_, err := a.Act(context.Background(), "CLICK")
	assert.True(t, errors.Is(err, screen.ErrNoDisplay))
	assert.Equal(t, 1, a.History().Len())
}

func TestResetClearsHistory(t *testing.T) {
	a := NewWithProvider(DefaultConfig(), llmtest.Text("x"), &fixedCapturer{}, nil, nil)
	_, err := a.Act(context.Background(), "CLICK")
	require.NoError(t, err)

	a.Reset()
	assert.Zero(t, a.History().Len())
}
