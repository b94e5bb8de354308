// Qwen provider implementation for Alibaba DashScope's native multimodal API.
//
// Information Hiding:
// - DashScope request schema (input.messages with {text}/{image} items)
// - Response field extraction via gjson
// - API error codes surfaced as wrapped errors

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// DashScopeBaseURL is the default multimodal generation endpoint.
const DashScopeBaseURL = "https://dashscope.aliyuncs.com/api/v1/services/aigc/multimodal-generation/generation"

// QwenProvider implements the Provider interface for DashScope.
type QwenProvider struct {
	apiKey      string
	url         string
	httpClient  *http.Client
	model       string
	maxTokens   int
	temperature float32
}

// NewQwenProvider creates a new DashScope provider.
func NewQwenProvider(apiKey, model string, maxTokens uint32, temperature float32, opts Options) *QwenProvider {
	url := opts.BaseURL
	if url == "" {
		url = DashScopeBaseURL
	}
	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	return &QwenProvider{
		apiKey:      apiKey,
		url:         url,
		httpClient:  client,
		model:       model,
		maxTokens:   int(maxTokens),
		temperature: temperature,
	}
}

// Name returns the provider name.
func (p *QwenProvider) Name() string {
	return "qwen"
}

// Model returns the current model.
func (p *QwenProvider) Model() string {
	return p.model
}

type dashScopeItem struct {
	Text  string `json:"text,omitempty"`
	Image string `json:"image,omitempty"`
}

type dashScopeMessage struct {
	Role    string          `json:"role"`
	Content []dashScopeItem `json:"content"`
}

type dashScopeRequest struct {
	Model string `json:"model"`
	Input struct {
		Messages []dashScopeMessage `json:"messages"`
	} `json:"input"`
	Parameters struct {
		MaxTokens   int     `json:"max_tokens"`
		Temperature float32 `json:"temperature"`
	} `json:"parameters"`
}

// Chat sends a multimodal generation request.
func (p *QwenProvider) Chat(ctx context.Context, system string, messages []ChatMessage) (LLMResponse, error) {
	var reqBody dashScopeRequest
	reqBody.Model = p.model
	reqBody.Input.Messages = convertToDashScopeMessages(system, messages)
	reqBody.Parameters.MaxTokens = p.maxTokens
	reqBody.Parameters.Temperature = p.temperature

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return LLMResponse{}, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(payload))
	if err != nil {
		return LLMResponse{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return LLMResponse{}, fmt.Errorf("chat completion failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return LLMResponse{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		code := gjson.GetBytes(body, "code").String()
		msg := gjson.GetBytes(body, "message").String()
		return LLMResponse{}, fmt.Errorf("chat completion failed: status %d: %s: %s", resp.StatusCode, code, msg)
	}

	return parseDashScopeResponse(body)
}

func parseDashScopeResponse(body []byte) (LLMResponse, error) {
	if !gjson.ValidBytes(body) {
		return LLMResponse{}, fmt.Errorf("invalid response body")
	}

	var texts []string
	for _, t := range gjson.GetBytes(body, "output.choices.0.message.content.#.text").Array() {
		texts = append(texts, t.String())
	}
	if len(texts) == 0 {
		// Text-only models return content as a plain string.
		if s := gjson.GetBytes(body, "output.choices.0.message.content"); s.Type == gjson.String {
			texts = append(texts, s.String())
		}
	}

	input := gjson.GetBytes(body, "usage.input_tokens").Uint()
	output := gjson.GetBytes(body, "usage.output_tokens").Uint()
	total := gjson.GetBytes(body, "usage.total_tokens").Uint()
	if total == 0 {
		total = input + output
	}

	return LLMResponse{
		Content: strings.Join(texts, ""),
		Usage: &TokenUsage{
			PromptTokens:     uint32(input),
			CompletionTokens: uint32(output),
			TotalTokens:      uint32(total),
		},
	}, nil
}

func convertToDashScopeMessages(system string, messages []ChatMessage) []dashScopeMessage {
	result := make([]dashScopeMessage, 0, len(messages)+1)
	if system != "" {
		result = append(result, dashScopeMessage{
			Role:    "system",
			Content: []dashScopeItem{{Text: system}},
		})
	}
	for _, msg := range messages {
		items := make([]dashScopeItem, 0, len(msg.Parts))
		for _, part := range msg.Parts {
			switch part.Type {
			case PartText:
				items = append(items, dashScopeItem{Text: part.Text})
			case PartImage:
				if part.Image != nil {
					items = append(items, dashScopeItem{Image: part.Image.DataURL()})
				}
			}
		}
		result = append(result, dashScopeMessage{Role: msg.Role, Content: items})
	}
	return result
}

// Verify QwenProvider implements Provider
var _ Provider = (*QwenProvider)(nil)
