// Package model provides domain types shared across packages.
package model

import (
	"encoding/base64"
	"strings"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ContentType defines the kind of a content item.
type ContentType string

const (
	ContentText       ContentType = "text"
	ContentImage      ContentType = "image"
	ContentToolResult ContentType = "tool_result"
)

// Image is an encoded screenshot plus the reference it was captured under.
type Image struct {
	MediaType string // e.g. "image/png"
	Data      []byte
	Ref       string // path or store handle; stable for the lifetime of the session
}

// Base64 returns the standard base64 encoding of the image bytes.
func (i Image) Base64() string {
	return base64.StdEncoding.EncodeToString(i.Data)
}

// DataURL returns the image as a data URL, e.g. "data:image/png;base64,...".
func (i Image) DataURL() string {
	mediaType := i.MediaType
	if mediaType == "" {
		mediaType = "image/png"
	}
	return "data:" + mediaType + ";base64," + i.Base64()
}

// Content is a single item of a message.
// Exactly one of Text, Image or ToolResult is meaningful, selected by Type.
type Content struct {
	Type       ContentType
	Text       string
	Image      *Image
	ToolResult *ToolResultBlock
}

// ToolResultBlock is the log representation of an executed action's outcome.
// Items holds text and image content in the order they were produced.
type ToolResultBlock struct {
	ToolUseID string
	IsError   bool
	Items     []Content
}

// ImageCount returns the number of image items in the block.
func (b *ToolResultBlock) ImageCount() int {
	if b == nil {
		return 0
	}
	n := 0
	for _, item := range b.Items {
		if item.Type == ContentImage {
			n++
		}
	}
	return n
}

// Message is one entry of the conversation log.
type Message struct {
	Role    Role
	Content []Content
}

// TextContent creates a text content item.
func TextContent(text string) Content {
	return Content{Type: ContentText, Text: text}
}

// ImageContent creates an image content item.
func ImageContent(img Image) Content {
	return Content{Type: ContentImage, Image: &img}
}

// UserText creates a user message with a single text item.
func UserText(text string) Message {
	return Message{Role: RoleUser, Content: []Content{TextContent(text)}}
}

// AssistantText creates an assistant message with a single text item.
func AssistantText(text string) Message {
	return Message{Role: RoleAssistant, Content: []Content{TextContent(text)}}
}

// ToolResult is the outcome of executing one action.
// At most one of Output and Error is primary; Image may accompany either.
type ToolResult struct {
	Output string
	Error  string
	Image  *Image
}

// IsError reports whether the result carries an error.
func (r ToolResult) IsError() bool {
	return r.Error != ""
}

// Block converts the result into a tool_result content item.
func (r ToolResult) Block(toolUseID string) Content {
	block := &ToolResultBlock{ToolUseID: toolUseID, IsError: r.IsError()}
	switch {
	case r.Error != "":
		block.Items = append(block.Items, TextContent(r.Error))
	case r.Output != "":
		block.Items = append(block.Items, TextContent(r.Output))
	}
	if r.Image != nil {
		block.Items = append(block.Items, ImageContent(*r.Image))
	}
	return Content{Type: ContentToolResult, ToolResult: block}
}

// ToolResultMessage wraps an action outcome as a user-role log entry.
func ToolResultMessage(toolUseID string, r ToolResult) Message {
	return Message{Role: RoleUser, Content: []Content{r.Block(toolUseID)}}
}

// ActionRecord is the Actor's normalized output handed to the action executor.
type ActionRecord struct {
	Content string `json:"content"`
	Role    Role   `json:"role"`
}

// NewActionRecord creates an assistant-role action record.
func NewActionRecord(content string) ActionRecord {
	return ActionRecord{Content: strings.TrimSpace(content), Role: RoleAssistant}
}
