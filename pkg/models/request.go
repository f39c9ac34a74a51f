package models

import "encoding/json"

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Content part types.
const (
	PartText     = "text"
	PartImageURL = "image_url"
)

// ContentPart is one element of a message's content. Text parts carry Text,
// image parts carry ImageURL (a link or a base64 data URL).
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL points at an image the model should look at.
type ImageURL struct {
	URL string `json:"url"`
}

// ChatMessage represents a single message in a chat conversation.
type ChatMessage struct {
	Role    Role          `json:"role"`
	Content []ContentPart `json:"content"`
}

// NewMessage builds a message with a single text part.
func NewMessage(role Role, text string) ChatMessage {
	return ChatMessage{Role: role, Content: []ContentPart{{Type: PartText, Text: text}}}
}

// SystemMessage builds a system message.
func SystemMessage(text string) ChatMessage { return NewMessage(RoleSystem, text) }

// UserMessage builds a user message.
func UserMessage(text string) ChatMessage { return NewMessage(RoleUser, text) }

// AssistantMessage builds an assistant message.
func AssistantMessage(text string) ChatMessage { return NewMessage(RoleAssistant, text) }

// ImageMessage builds a user message that carries an image.
func ImageMessage(url string) ChatMessage {
	return ChatMessage{Role: RoleUser, Content: []ContentPart{{Type: PartImageURL, ImageURL: &ImageURL{URL: url}}}}
}

// Response format types.
const (
	FormatText       = "text"
	FormatJSONObject = "json_object"
	FormatJSONSchema = "json_schema"
)

// ResponseFormat constrains what the model may output.
type ResponseFormat struct {
	Type       string            `json:"type"`
	JSONSchema *JSONSchemaFormat `json:"json_schema,omitempty"`
}

// JSONSchemaFormat is the structured-output schema envelope.
type JSONSchemaFormat struct {
	Name   string          `json:"name"`
	Strict bool            `json:"strict"`
	Schema json.RawMessage `json:"schema"`
}

// Sampling holds the optional parameters that shape a completion.
type Sampling struct {
	Temperature *float64 `json:"temperature,omitempty" yaml:"temperature"`
	TopP        *float64 `json:"top_p,omitempty" yaml:"top_p"`
	MaxTokens   *int     `json:"max_tokens,omitempty" yaml:"max_tokens"`
	Seed        *int64   `json:"seed,omitempty" yaml:"seed"`
	Stop        []string `json:"stop,omitempty" yaml:"stop"`
}

// ChatRequest is an OpenAI-compatible chat completion request.
type ChatRequest struct {
	Model          string          `json:"model"`
	Messages       []ChatMessage   `json:"messages"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
	Sampling

	// User is passed through for abuse attribution and does not shape the answer.
	User string `json:"user,omitempty"`
	// Metadata is client-side only and never sent.
	Metadata map[string]string `json:"-"`
}
