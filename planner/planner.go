// Package planner turns a task, the shaped session history and a fresh
// screenshot into one next-action decision.
//
// Information Hiding:
// - Provider dispatch hidden behind llm.Provider
// - Response extraction and summary formatting hidden
// - Token and cost accounting hidden in the Ledger

package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	jsonutil "github.com/richinex/vlmpilot/internal/json"
	"github.com/richinex/vlmpilot/history"
	"github.com/richinex/vlmpilot/llm"
	"github.com/richinex/vlmpilot/model"
	"github.com/richinex/vlmpilot/observer"
	"github.com/richinex/vlmpilot/screen"
)

// Decision field names.
const (
	FieldThinking   = "Thinking"
	FieldNextAction = "Next Action"
)

// NoAction is the Next Action value that ends a task.
const NoAction = "None"

// ErrInvalidDecision is returned for a JSON object without a Next Action field.
var ErrInvalidDecision = errors.New("decision has no Next Action field")

// Decision is the outcome of one planning turn.
type Decision struct {
	// Raw is the JSON object extracted from the response.
	Raw string

	// Response is the full provider text.
	Response string

	Thinking   string
	NextAction string

	// Summary is the multi-line rendering shown to the observer.
	Summary string

	Tokens int
}

// Done reports whether the planner considers the task complete. Only a
// parsed decision whose Next Action is "None" or empty counts.
func (d Decision) Done() bool {
	action := strings.TrimSpace(d.NextAction)
	return action == "" || strings.EqualFold(strings.TrimRight(action, "."), NoAction)
}

// Ledger is the running token and cost total of one planner.
// Both totals only grow.
type Ledger struct {
	tokens int
	cost   float64
}

// Add records one call.
func (l *Ledger) Add(tokens int, cost float64) {
	if tokens > 0 {
		l.tokens += tokens
	}
	if cost > 0 {
		l.cost += cost
	}
}

// TotalTokens returns the tokens used so far.
func (l Ledger) TotalTokens() int { return l.tokens }

// TotalCost returns the estimated cost in USD so far.
func (l Ledger) TotalCost() float64 { return l.cost }

// Planner produces next-action decisions.
type Planner struct {
	config       Config
	providerType llm.ProviderType
	client       *llm.Client
	capturer     screen.Capturer
	shaper       *history.Shaper
	sink         observer.Sink
	system       string
	ledger       Ledger
	logger       *zap.Logger
}

// New resolves cfg against the model table and builds the provider.
// An unknown model fails with llm.ErrUnsupportedModel before any adapter
// is constructed.
func New(cfg Config, capturer screen.Capturer, sink observer.Sink, logger *zap.Logger) (*Planner, error) {
	info, err := llm.LookupModel(cfg.Model)
	if err != nil {
		return nil, err
	}

	providerType := info.Provider
	if cfg.Provider != "" {
		providerType, err = llm.ParseProviderType(cfg.Provider)
		if err != nil {
			return nil, err
		}
	}

	builder := llm.NewProviderBuilder(providerType).
		Model(info.APIID).
		MaxTokens(cfg.MaxTokens).
		Temperature(cfg.Temperature).
		BaseURL(cfg.BaseURL).
		Endpoint(cfg.Endpoint).
		Tunnel(cfg.Tunnel)

	var provider llm.Provider
	if cfg.APIKey != "" {
		provider, err = builder.APIKey(cfg.APIKey)
	} else {
		provider, err = builder.FromEnv()
	}
	if err != nil {
		return nil, fmt.Errorf("planner provider: %w", err)
	}

	return newPlanner(cfg, providerType, provider, capturer, sink, logger), nil
}

// NewWithProvider creates a planner around an already built provider.
func NewWithProvider(cfg Config, providerType llm.ProviderType, provider llm.Provider, capturer screen.Capturer, sink observer.Sink, logger *zap.Logger) *Planner {
	return newPlanner(cfg, providerType, provider, capturer, sink, logger)
}

func newPlanner(cfg Config, providerType llm.ProviderType, provider llm.Provider, capturer screen.Capturer, sink observer.Sink, logger *zap.Logger) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sink == nil {
		sink = observer.Nop
	}
	suffix := cfg.SystemPromptSuffix
	if suffix == "" {
		suffix = DefaultSystemPromptSuffix()
	}
	return &Planner{
		config:       cfg,
		providerType: providerType,
		client:       llm.NewClient(provider).WithRetry(llm.DefaultRetryPolicy(cfg.Retries + 1)),
		capturer:     capturer,
		shaper:       history.NewShaper(cfg.ImagesToKeep, logger),
		sink:         sink,
		system:       SystemPrompt(suffix),
		logger:       logger.Named("planner"),
	}
}

// Ledger returns the running token and cost totals.
func (p *Planner) Ledger() Ledger { return p.ledger }

// Provider returns the provider decisions are requested from.
func (p *Planner) Provider() llm.Provider { return p.client.Provider() }

// SystemPrompt returns the system prompt sent with every request.
func (p *Planner) SystemPrompt() string { return p.system }

// Decide runs one planning turn over the session log. The log is read only.
//
// When the response holds no JSON object the returned error wraps
// jsonutil.ErrNoJSONObject and the Decision still carries the raw Response.
func (p *Planner) Decide(ctx context.Context, log []model.Message) (Decision, error) {
	view := p.shaper.Shape(log)

	shot, err := p.capturer.Capture(ctx, screen.Request{Display: p.config.SelectedScreen})
	if err != nil {
		return Decision{}, fmt.Errorf("planner screenshot: %w", err)
	}
	p.sink.Output("Screenshot for planner:\n" + observer.ImageTag(shot.Image))

	messages := llm.FromMessages(view)
	messages = append(messages, llm.UserMessage(llm.ImagePart(shot.Image)))

	p.logger.Debug("requesting decision",
		zap.String("provider", p.client.Provider().Name()),
		zap.String("model", p.client.Provider().Model()),
		zap.Int("messages", len(messages)),
		zap.String("screenshot", shot.Image.Ref))

	response, tokens, err := p.client.Complete(ctx, p.system, messages)
	if err != nil {
		return Decision{}, fmt.Errorf("planner request failed: %w", err)
	}
	p.sink.Response(p.client.Provider().Name(), response)

	p.ledger.Add(tokens, llm.EstimateCost(p.providerType, tokens))
	p.logger.Info("planner usage",
		zap.Int("tokens", tokens),
		zap.Int("total_tokens", p.ledger.TotalTokens()),
		zap.Float64("total_cost_usd", p.ledger.TotalCost()))

	decision, err := ParseDecision(response)
	decision.Tokens = tokens
	if err != nil {
		return decision, err
	}

	p.sink.Output("Planner:\n" + decision.Summary)
	return decision, nil
}

// ParseDecision extracts the first JSON object of response and formats its
// summary. Fields other than Thinking and Next Action are kept in the summary.
func ParseDecision(response string) (Decision, error) {
	decision := Decision{Response: response}

	raw, err := jsonutil.ExtractJSON(response)
	if err != nil {
		return decision, fmt.Errorf("planner response: %w", err)
	}
	fields, err := jsonutil.Fields(raw)
	if err != nil {
		return decision, fmt.Errorf("planner response: %w", err)
	}

	decision.Raw = raw
	hasNext := false
	for _, f := range fields {
		switch f.Key {
		case FieldThinking:
			decision.Thinking = f.String()
		case FieldNextAction:
			decision.NextAction = f.String()
			hasNext = true
		}
	}
	if !hasNext {
		return decision, fmt.Errorf("planner response: %w", ErrInvalidDecision)
	}
	decision.Summary = FormatSummary(fields)
	return decision, nil
}

// FormatSummary renders decision fields for display in document order: the
// Thinking value bare, every other field as a "\nKey: value" line.
func FormatSummary(fields []jsonutil.Field) string {
	var b strings.Builder
	for _, f := range fields {
		if f.Key == FieldThinking {
			b.WriteString(f.String())
			continue
		}
		fmt.Fprintf(&b, "\n%s: %s", f.Key, f.String())
	}
	return b.String()
}
