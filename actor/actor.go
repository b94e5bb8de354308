// Package actor grounds a natural-language instruction into one
// coordinate-precise action for the current screen.
//
// Information Hiding:
// - Model preset resolution hidden
// - Prompt construction and action history hidden
// - The returned record is not validated; execution does that

package actor

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/richinex/vlmpilot/llm"
	"github.com/richinex/vlmpilot/model"
	"github.com/richinex/vlmpilot/observer"
	"github.com/richinex/vlmpilot/screen"
)

// Defaults for actor requests.
const (
	DefaultMaxTokens = 128
	DefaultWidth     = 1920
	DefaultHeight    = 1080
)

// Actor model presets.
const (
	ModelShowUI          = "ShowUI"
	ModelUITARS          = "UI-TARS"
	ModelLMStudioShowUI  = "LM Studio showui-2b"
	ModelLMStudioTARSDPO = "LM Studio ui-tars-7b-dpo"
	ModelLMStudioTARSSFT = "LM Studio ui-tars-2b-sft"
)

// Preset maps an actor display name to the model an OpenAI-compatible
// server hosts it under.
type Preset struct {
	Name     string
	APIID    string
	Provider llm.ProviderType
}

var presets = map[string]Preset{
	ModelShowUI:          {ModelShowUI, "showui-2b", llm.ProviderLMStudio},
	ModelUITARS:          {ModelUITARS, "ui-tars-7b-dpo", llm.ProviderLMStudio},
	ModelLMStudioShowUI:  {ModelLMStudioShowUI, "showui-2b", llm.ProviderLMStudio},
	ModelLMStudioTARSDPO: {ModelLMStudioTARSDPO, "ui-tars-7b-dpo", llm.ProviderLMStudio},
	ModelLMStudioTARSSFT: {ModelLMStudioTARSSFT, "ui-tars-2b-sft", llm.ProviderLMStudio},
}

// LookupPreset resolves an actor display name. Names that are not presets
// are taken as model identifiers served by an OpenAI-compatible server.
func LookupPreset(name string) Preset {
	if p, ok := presets[name]; ok {
		return p
	}
	return Preset{Name: name, APIID: name, Provider: llm.ProviderLMStudio}
}

// Presets returns every actor preset name.
func Presets() []string {
	return []string{ModelShowUI, ModelUITARS, ModelLMStudioShowUI, ModelLMStudioTARSDPO, ModelLMStudioTARSSFT}
}

// Config configures an actor for one session.
type Config struct {
	Model    string
	Provider string // overrides the preset's provider when set
	BaseURL  string
	APIKey   string

	MaxTokens uint32
	Retries   int

	// HistoryWindow limits how many previous actions a prompt shows.
	// Zero shows all of them.
	HistoryWindow int

	SelectedScreen int
	Width          int
	Height         int
	Split          Split
}

// DefaultConfig returns a ShowUI actor configuration.
func DefaultConfig() Config {
	return Config{
		Model:     ModelShowUI,
		MaxTokens: DefaultMaxTokens,
		Width:     DefaultWidth,
		Height:    DefaultHeight,
		Split:     SplitDesktop,
	}
}

// Actor turns instructions into executable action records.
type Actor struct {
	config   Config
	client   *llm.Client
	capturer screen.Capturer
	sink     observer.Sink
	system   string
	history  ActionHistory
	logger   *zap.Logger
}

// New builds the actor's provider from cfg. Sampling is always
// deterministic.
func New(cfg Config, capturer screen.Capturer, sink observer.Sink, logger *zap.Logger) (*Actor, error) {
	preset := LookupPreset(cfg.Model)
	providerType := preset.Provider
	if cfg.Provider != "" {
		var err error
		providerType, err = llm.ParseProviderType(cfg.Provider)
		if err != nil {
			return nil, err
		}
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = DefaultMaxTokens
	}

	builder := llm.NewProviderBuilder(providerType).
		Model(preset.APIID).
		MaxTokens(maxTokens).
		Temperature(0).
		BaseURL(cfg.BaseURL)

	var provider llm.Provider
	var err error
	if cfg.APIKey != "" {
		provider, err = builder.APIKey(cfg.APIKey)
	} else {
		provider, err = builder.FromEnv()
	}
	if err != nil {
		return nil, fmt.Errorf("actor provider: %w", err)
	}
	return NewWithProvider(cfg, provider, capturer, sink, logger), nil
}

// NewWithProvider creates an actor around an already built provider.
func NewWithProvider(cfg Config, provider llm.Provider, capturer screen.Capturer, sink observer.Sink, logger *zap.Logger) *Actor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sink == nil {
		sink = observer.Nop
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = DefaultWidth, DefaultHeight
	}
	if cfg.Split == "" {
		cfg.Split = SplitDesktop
	}
	return &Actor{
		config:   cfg,
		client:   llm.NewClient(provider).WithRetry(llm.DefaultRetryPolicy(cfg.Retries + 1)),
		capturer: capturer,
		sink:     sink,
		system:   SystemPrompt(cfg.Split),
		logger:   logger.Named("actor"),
	}
}

// History returns the actor's action history.
func (a *Actor) History() *ActionHistory { return &a.history }

// Reset clears the action history for a new task.
func (a *Actor) Reset() { a.history.Reset() }

// TotalTokens returns the tokens used by the actor so far.
func (a *Actor) TotalTokens() int { return a.client.TotalTokens() }

// SystemPrompt returns the system prompt sent with every request.
func (a *Actor) SystemPrompt() string { return a.system }

// Act grounds instruction against a fresh screenshot. Every call adds one
// line to the action history, including calls that fail.
//
// The model output is returned as-is; it may not parse as an action.
func (a *Actor) Act(ctx context.Context, instruction string) (model.ActionRecord, error) {
	rec, err := a.act(ctx, instruction)
	if err != nil {
		a.history.Append("ERROR: " + err.Error())
		return model.ActionRecord{}, err
	}
	a.history.Append(rec.Content)
	return rec, nil
}

func (a *Actor) act(ctx context.Context, instruction string) (model.ActionRecord, error) {
	shot, err := a.capturer.Capture(ctx, screen.Request{
		Display: a.config.SelectedScreen,
		Resize:  true,
		Width:   a.config.Width,
		Height:  a.config.Height,
	})
	if err != nil {
		return model.ActionRecord{}, fmt.Errorf("actor screenshot: %w", err)
	}

	provider := a.client.Provider()
	a.sink.Output(fmt.Sprintf("Screenshot for actor (%s):\n%s", provider.Model(), observer.ImageTag(shot.Image)))

	prompt := UserPrompt(instruction, a.history.Window(a.config.HistoryWindow))
	messages := []llm.ChatMessage{
		llm.UserMessage(llm.ImagePart(shot.Image), llm.TextPart(prompt)),
	}

	a.logger.Info("requesting action",
		zap.String("provider", provider.Name()),
		zap.String("model", provider.Model()),
		zap.String("instruction", instruction),
		zap.Int("history", a.history.Len()))

	output, tokens, err := a.client.Complete(ctx, a.system, messages)
	if err != nil {
		return model.ActionRecord{}, fmt.Errorf("actor request failed: %w", err)
	}
	a.sink.Response(provider.Name(), output)

	a.logger.Info("received action", zap.String("action", output), zap.Int("tokens", tokens))
	return model.NewActionRecord(output), nil
}
