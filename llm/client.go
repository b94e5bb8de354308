// Client - metered wrapper around providers.

package llm

import (
	"context"
	"sync/atomic"
	"time"
)

// Client wraps a Provider and counts the tokens of every call.
type Client struct {
	provider Provider
	retry    RetryPolicy
	tokens   atomic.Int64
}

// NewClient creates a new LLM client from a provider.
func NewClient(provider Provider) *Client {
	return &Client{provider: provider}
}

// WithRetry repeats transient failures according to policy.
func (c *Client) WithRetry(policy RetryPolicy) *Client {
	c.retry = policy
	return c
}

// Complete sends one request and returns the raw text and its token count.
// The running token total is updated even when the response is empty.
func (c *Client) Complete(ctx context.Context, system string, messages []ChatMessage) (string, int, error) {
	var (
		response LLMResponse
		err      error
	)
	for attempt := 0; attempt < c.retry.attempts(); attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", 0, ctx.Err()
			case <-time.After(c.retry.backoff(attempt)):
			}
		}
		response, err = c.provider.Chat(ctx, system, messages)
		if err == nil || !retryable(err) {
			break
		}
	}
	if err != nil {
		return "", 0, err
	}
	tokens := response.Tokens()
	c.tokens.Add(int64(tokens))
	return response.Content, tokens, nil
}

// TotalTokens returns the tokens used by all calls so far.
func (c *Client) TotalTokens() int {
	return int(c.tokens.Load())
}

// Provider returns the underlying provider.
func (c *Client) Provider() Provider {
	return c.provider
}
