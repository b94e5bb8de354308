// Package llm provides shared data models for LLM providers.
package llm

import (
	"strings"

	"github.com/richinex/vlmpilot/model"
)

// PartType defines the kind of a message part.
type PartType string

const (
	PartText  PartType = "text"
	PartImage PartType = "image"
)

// Part is one item of a multimodal chat message.
type Part struct {
	Type  PartType
	Text  string
	Image *model.Image
}

// ChatMessage represents a chat message with role and ordered parts.
// System prompts are passed separately to Provider.Chat.
type ChatMessage struct {
	Role  string
	Parts []Part
}

// Text returns the concatenated text parts of the message.
func (m ChatMessage) Text() string {
	var b strings.Builder
	for _, p := range m.Parts {
		if p.Type == PartText {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// HasImage reports whether the message carries at least one image part.
func (m ChatMessage) HasImage() bool {
	for _, p := range m.Parts {
		if p.Type == PartImage && p.Image != nil {
			return true
		}
	}
	return false
}

// TextPart creates a text part.
func TextPart(text string) Part {
	return Part{Type: PartText, Text: text}
}

// ImagePart creates an image part.
func ImagePart(img model.Image) Part {
	return Part{Type: PartImage, Image: &img}
}

// UserMessage creates a user message from parts.
func UserMessage(parts ...Part) ChatMessage {
	return ChatMessage{Role: "user", Parts: parts}
}

// AssistantMessage creates a text-only assistant message.
func AssistantMessage(content string) ChatMessage {
	return ChatMessage{Role: "assistant", Parts: []Part{TextPart(content)}}
}

// FromMessages converts log messages into provider chat messages.
// Tool-result blocks are flattened into their text and image items.
// Messages that end up with no parts are skipped.
func FromMessages(msgs []model.Message) []ChatMessage {
	out := make([]ChatMessage, 0, len(msgs))
	for _, msg := range msgs {
		var parts []Part
		for _, c := range msg.Content {
			parts = appendContent(parts, c)
		}
		if len(parts) == 0 {
			continue
		}
		out = append(out, ChatMessage{Role: string(msg.Role), Parts: parts})
	}
	return out
}

func appendContent(parts []Part, c model.Content) []Part {
	switch c.Type {
	case model.ContentText:
		return append(parts, TextPart(c.Text))
	case model.ContentImage:
		if c.Image != nil {
			return append(parts, ImagePart(*c.Image))
		}
	case model.ContentToolResult:
		if c.ToolResult != nil {
			for _, item := range c.ToolResult.Items {
				parts = appendContent(parts, item)
			}
		}
	}
	return parts
}

// LLMResponse represents a response from an LLM provider.
type LLMResponse struct {
	Content string
	Usage   *TokenUsage
}

// Tokens returns the total token count of the response, or zero when the
// provider reported no usage.
func (r LLMResponse) Tokens() int {
	if r.Usage == nil {
		return 0
	}
	return int(r.Usage.TotalTokens)
}

// TokenUsage contains token usage statistics.
type TokenUsage struct {
	PromptTokens     uint32
	CompletionTokens uint32
	TotalTokens      uint32
}
