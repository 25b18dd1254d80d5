package llm

import (
	"context"
	"errors"
	"sort"
	"strings"
)

var (
	// ErrEmptyResponse is returned when the model produced no message content.
	ErrEmptyResponse = errors.New("empty response from language model")
	// ErrInvalidOutput is returned when the model output violates its schema.
	ErrInvalidOutput = errors.New("invalid structured output")
)

// Message is one chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// System builds a system message.
func System(content string) Message { return Message{Role: "system", Content: content} }

// User builds a user message.
func User(content string) Message { return Message{Role: "user", Content: content} }

// Schema names a JSON schema the model output must satisfy.
type Schema struct {
	Name   string
	Schema map[string]any
}

// Validator is implemented by structured outputs that check themselves after decoding.
type Validator interface {
	Validate() error
}

// Client sends chat messages and decodes the schema-constrained reply into out.
type Client interface {
	CompleteJSON(ctx context.Context, messages []Message, schema Schema, out any) error
}

// ObjectSchema builds a strict object schema where every property is required.
func ObjectSchema(properties map[string]any) map[string]any {
	required := make([]string, 0, len(properties))
	for name := range properties {
		required = append(required, name)
	}
	sort.Strings(required)
	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"required":             required,
		"additionalProperties": false,
	}
}

// stripMarkdownCodeBlock removes markdown code block wrappers from text.
// Models may wrap JSON responses in ```json ... ``` blocks.
func stripMarkdownCodeBlock(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}
	return s
}
