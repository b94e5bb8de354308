package planner

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jsonutil "github.com/richinex/vlmpilot/internal/json"
	"github.com/richinex/vlmpilot/llm"
	"github.com/richinex/vlmpilot/llm/llmtest"
	"github.com/richinex/vlmpilot/model"
	"github.com/richinex/vlmpilot/observer"
	"github.com/richinex/vlmpilot/screen"
)

type fixedCapturer struct {
	requests []screen.Request
}

func (c *fixedCapturer) Capture(_ context.Context, req screen.Request) (screen.Shot, error) {
	c.requests = append(c.requests, req)
	return screen.Shot{
		Image:  model.Image{MediaType: "image/png", Data: []byte("png"), Ref: "shot-1"},
		Width:  1920,
		Height: 1080,
	}, nil
}

func TestParseDecisionFencedResponse(t *testing.T) {
	response := "Sure! ```json\n{\"Thinking\": \"t\", \"Next Action\": \"CLICK 'ok'\"}\n```"

	d, err := ParseDecision(response)
	require.NoError(t, err)

	assert.Equal(t, `{"Thinking": "t", "Next Action": "CLICK 'ok'"}`, d.Raw)
	assert.Equal(t, "t", d.Thinking)
	assert.Equal(t, "CLICK 'ok'", d.NextAction)
	assert.Contains(t, d.Summary, "t")
	assert.Contains(t, d.Summary, "Next Action: CLICK 'ok'")
	assert.False(t, d.Done())
}

func TestParseDecisionKeepsExtraFieldsInOrder(t *testing.T) {
	d, err := ParseDecision(`{"Observation": "a dialog", "Thinking": "close it", "Next Action": "ESCAPE"}`)
	require.NoError(t, err)
	assert.Equal(t, "\nObservation: a dialog"+"close it"+"\nNext Action: ESCAPE", d.Summary)
}

func TestParseDecisionNoJSON(t *testing.T) {
	d, err := ParseDecision("I cannot see the screen")
	assert.True(t, errors.Is(err, jsonutil.ErrNoJSONObject))
	assert.Equal(t, "I cannot see the screen", d.Response)
	assert.Empty(t, d.Raw)
}

func TestParseDecisionRequiresNextAction(t *testing.T) {
	response := `Here is an example: {"Thinking": "the dialog is still loading"}`
	d, err := ParseDecision(response)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidDecision))
	assert.Equal(t, response, d.Response)
	assert.Equal(t, "the dialog is still loading", d.Thinking)
}

func TestParseDecisionEmptyNextActionIsDone(t *testing.T) {
	d, err := ParseDecision(`{"Thinking": "finished", "Next Action": ""}`)
	require.NoError(t, err)
	assert.True(t, d.Done())
}

func TestDecisionDone(t *testing.T) {
	for action, done := range map[string]bool{
		"None":         true,
		"none.":        true,
		"":             true,
		"  ":           true,
		"CLICK 'None'": false,
		"SCROLL down":  false,
	} {
		assert.Equal(t, done, Decision{NextAction: action}.Done(), "action %q", action)
	}
}

func TestNewRejectsUnknownModel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Model = "gpt-5-unknown"
	cfg.APIKey = "sk-test"

	p, err := New(cfg, &fixedCapturer{}, nil, nil)
	assert.Nil(t, p)
	assert.True(t, errors.Is(err, llm.ErrUnsupportedModel))

	var cfgErr *llm.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "model", cfgErr.Field)
}

func TestNewRejectsMalformedSSHCredential(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Model = llm.ModelQwen2VL7BSSH
	cfg.APIKey = "localhost"

	_, err := New(cfg, &fixedCapturer{}, nil, nil)
	assert.True(t, errors.Is(err, llm.ErrInvalidConnection))
}

func TestNewResolvesModelTable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.APIKey = "sk-test"

	p, err := New(cfg, &fixedCapturer{}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-2024-11-20", p.Provider().Model())
	assert.Equal(t, "openai", p.Provider().Name())
}

func TestNewProviderOverride(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Provider = "openrouter"
	cfg.APIKey = "or-test"

	p, err := New(cfg, &fixedCapturer{}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "openrouter", p.Provider().Name())
}

func TestSystemPromptSuffix(t *testing.T) {
	p := NewWithProvider(Config{SystemPromptSuffix: "\nNOTE: test"}, llm.ProviderOpenAI, llmtest.Text("{}"), &fixedCapturer{}, nil, nil)
	assert.True(t, strings.HasSuffix(p.SystemPrompt(), "\nNOTE: test"))
	assert.Contains(t, p.SystemPrompt(), `"Next Action": "None"`)

	p = NewWithProvider(Config{}, llm.ProviderOpenAI, llmtest.Text("{}"), &fixedCapturer{}, nil, nil)
	assert.True(t, strings.HasSuffix(p.SystemPrompt(), DefaultSystemPromptSuffix()))
}

func TestDecideOpenSettings(t *testing.T) {
	provider := llmtest.Text(`{"Thinking": "The gear icon opens settings.", "Next Action": "CLICK 'Settings icon'"}`)
	capturer := &fixedCapturer{}
	rec := observer.NewRecorder()
	cfg := Config{SelectedScreen: 1}
	p := NewWithProvider(cfg, llm.ProviderOpenAI, provider, capturer, rec, nil)

	log := []model.Message{
		model.UserText("open settings"),
		model.AssistantText("earlier plan"),
		model.ToolResultMessage("t1", model.ToolResult{Output: "Executed CLICK"}),
	}

	d, err := p.Decide(context.Background(), log)
	require.NoError(t, err)
	assert.Equal(t, "CLICK 'Settings icon'", d.NextAction)
	assert.Equal(t, 10, d.Tokens)

	require.Len(t, capturer.requests, 1)
	assert.Equal(t, 1, capturer.requests[0].Display)

	calls := provider.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, p.SystemPrompt(), calls[0].System)
	require.Len(t, calls[0].Messages, 2, "assistant turns and tool results are filtered out")
	assert.Equal(t, "open settings", calls[0].Messages[0].Text())
	assert.True(t, calls[0].Messages[1].HasImage())

	outputs := rec.Outputs()
	require.Len(t, outputs, 2)
	assert.Contains(t, outputs[0], `<img src="data:image/png;base64,`)
	assert.Contains(t, outputs[1], "Next Action: CLICK 'Settings icon'")
	assert.Len(t, rec.Responses(), 1)

	assert.Len(t, log, 3, "log must not be modified")
}

func TestDecideLedgerGrows(t *testing.T) {
	provider := llmtest.Text(`{"Thinking": "", "Next Action": "ENTER"}`)
	p := NewWithProvider(Config{}, llm.ProviderOpenAI, provider, &fixedCapturer{}, nil, nil)

	for i := 1; i <= 3; i++ {
		_, err := p.Decide(context.Background(), []model.Message{model.UserText("task")})
		require.NoError(t, err)
		assert.Equal(t, 10*i, p.Ledger().TotalTokens())
	}
	assert.InDelta(t, llm.EstimateCost(llm.ProviderOpenAI, 30), p.Ledger().TotalCost(), 1e-12)
}

func TestDecideSurfacesParseError(t *testing.T) {
	provider := llmtest.Text("no idea")
	rec := observer.NewRecorder()
	p := NewWithProvider(Config{}, llm.ProviderQwen, provider, &fixedCapturer{}, rec, nil)

	d, err := p.Decide(context.Background(), []model.Message{model.UserText("task")})
	assert.True(t, errors.Is(err, jsonutil.ErrNoJSONObject))
	assert.Equal(t, "no idea", d.Response)
	assert.Equal(t, 10, p.Ledger().TotalTokens(), "tokens are counted before parsing")
}

func TestDecidePropagatesTransportErrors(t *testing.T) {
	boom := errors.New("connection reset")
	provider := llmtest.New(llmtest.Reply{Err: boom})
	p := NewWithProvider(Config{}, llm.ProviderOpenAI, provider, &fixedCapturer{}, nil, nil)

	_, err := p.Decide(context.Background(), []model.Message{model.UserText("task")})
	assert.True(t, errors.Is(err, boom))
	assert.Zero(t, p.Ledger().TotalTokens())
}
