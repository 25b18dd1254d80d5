package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"newsletter-agent/httpclient"
	"newsletter-agent/logger"
)

// OpenAIConfig configures the chat-completions client.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *jsonSchema `json:"json_schema,omitempty"`
}

type jsonSchema struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// OpenAI is a Client backed by an OpenAI-compatible chat-completions endpoint.
type OpenAI struct {
	client *resty.Client
	apiKey string
	model  string
	log    *zap.Logger
}

// NewOpenAI creates a chat-completions client.
func NewOpenAI(cfg OpenAIConfig, log *zap.Logger) *OpenAI {
	return newOpenAIWithClient(httpclient.New(httpclient.Options{
		Timeout: cfg.Timeout,
		BaseURL: cfg.BaseURL,
	}), cfg, log)
}

func newOpenAIWithClient(client *resty.Client, cfg OpenAIConfig, log *zap.Logger) *OpenAI {
	return &OpenAI{
		client: client,
		apiKey: cfg.APIKey,
		model:  cfg.Model,
		log:    logger.OrNop(log),
	}
}

// Model returns the configured model identifier.
func (o *OpenAI) Model() string { return o.model }

// CompleteJSON issues one chat completion constrained to schema and decodes
// the reply into out. If out implements Validator it is validated too.
func (o *OpenAI) CompleteJSON(ctx context.Context, messages []Message, schema Schema, out any) error {
	reqBody := chatRequest{
		Model:    o.model,
		Messages: messages,
		ResponseFormat: &responseFormat{
			Type: "json_schema",
			JSONSchema: &jsonSchema{
				Name:   schema.Name,
				Strict: true,
				Schema: schema.Schema,
			},
		},
	}

	resp, err := o.client.R().
		SetContext(ctx).
		SetAuthToken(o.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).
		Post("/chat/completions")
	if err != nil {
		return fmt.Errorf("calling chat completions: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("chat completions returned status %d: %s", resp.StatusCode(), errorMessage(resp.Body()))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(resp.Body(), &chatResp); err != nil {
		return fmt.Errorf("parsing chat completions response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return ErrEmptyResponse
	}

	msg := chatResp.Choices[0].Message
	if msg.Refusal != "" {
		return fmt.Errorf("%w: model refused: %s", ErrInvalidOutput, msg.Refusal)
	}

	text := stripMarkdownCodeBlock(msg.Content)
	if text == "" {
		return ErrEmptyResponse
	}

	if err := json.Unmarshal([]byte(text), out); err != nil {
		o.log.Warn("failed to parse structured output",
			zap.String("schema", schema.Name),
			zap.String("finish_reason", chatResp.Choices[0].FinishReason),
			zap.Error(err))
		return fmt.Errorf("%w: decoding %s: %w", ErrInvalidOutput, schema.Name, err)
	}

	if v, ok := out.(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidOutput, schema.Name, err)
		}
	}

	return nil
}

func errorMessage(body []byte) string {
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return apiErr.Error.Message
	}
	return httpclient.Snippet(body)
}

var _ Client = (*OpenAI)(nil)
