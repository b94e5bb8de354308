// Package llmtest provides a scripted llm.Provider for tests.
package llmtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/richinex/vlmpilot/llm"
)

// Reply is one scripted response. A non-nil Err is returned instead of Content.
type Reply struct {
	Content string
	Tokens  uint32
	Err     error
}

// Call records the arguments of one Chat call.
type Call struct {
	System   string
	Messages []llm.ChatMessage
}

// Provider replays scripted replies in order and records every call.
// Once the script is exhausted the last reply repeats.
type Provider struct {
	ProviderName string
	ModelID      string

	mu      sync.Mutex
	replies []Reply
	calls   []Call
}

// New creates a provider that replays replies.
func New(replies ...Reply) *Provider {
	return &Provider{ProviderName: "fake", ModelID: "fake-model", replies: replies}
}

// Text creates a provider that returns each text with 10 tokens.
func Text(texts ...string) *Provider {
	replies := make([]Reply, len(texts))
	for i, t := range texts {
		replies[i] = Reply{Content: t, Tokens: 10}
	}
	return New(replies...)
}

func (p *Provider) Name() string  { return p.ProviderName }
func (p *Provider) Model() string { return p.ModelID }

func (p *Provider) Chat(ctx context.Context, system string, messages []llm.ChatMessage) (llm.LLMResponse, error) {
	if err := ctx.Err(); err != nil {
		return llm.LLMResponse{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls = append(p.calls, Call{System: system, Messages: messages})
	if len(p.replies) == 0 {
		return llm.LLMResponse{}, fmt.Errorf("llmtest: no scripted reply")
	}
	idx := len(p.calls) - 1
	if idx >= len(p.replies) {
		idx = len(p.replies) - 1
	}
	r := p.replies[idx]
	if r.Err != nil {
		return llm.LLMResponse{}, r.Err
	}
	return llm.LLMResponse{
		Content: r.Content,
		Usage:   &llm.TokenUsage{TotalTokens: r.Tokens},
	}, nil
}

// Calls returns the recorded calls in order.
func (p *Provider) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Call(nil), p.calls...)
}

var _ llm.Provider = (*Provider)(nil)
