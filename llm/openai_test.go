package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsletter-agent/httpclient"
)

type scoredOutput struct {
	Title string  `json:"title"`
	Score float64 `json:"score"`
}

func (s scoredOutput) Validate() error {
	if s.Title == "" {
		return errors.New("title is empty")
	}
	return nil
}

var testSchema = Schema{
	Name: "scored",
	Schema: ObjectSchema(map[string]any{
		"title": map[string]any{"type": "string"},
		"score": map[string]any{"type": "number"},
	}),
}

func chatResponseJSON(content string) string {
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}, "finish_reason": "stop"},
		},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *OpenAI {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := OpenAIConfig{APIKey: "test-key", Model: "test-model"}
	return newOpenAIWithClient(httpclient.New(httpclient.Options{BaseURL: srv.URL}), cfg, nil)
}

func TestCompleteJSON_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "user", req.Messages[1].Role)
		require.NotNil(t, req.ResponseFormat)
		assert.Equal(t, "json_schema", req.ResponseFormat.Type)
		assert.Equal(t, "scored", req.ResponseFormat.JSONSchema.Name)
		assert.True(t, req.ResponseFormat.JSONSchema.Strict)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chatResponseJSON(`{"title":"Go 1.25","score":8}`)))
	})

	var out scoredOutput
	err := c.CompleteJSON(context.Background(), []Message{System("sys"), User("usr")}, testSchema, &out)
	require.NoError(t, err)
	assert.Equal(t, "Go 1.25", out.Title)
	assert.Equal(t, 8.0, out.Score)
}

func TestCompleteJSON_MarkdownCodeBlock(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chatResponseJSON("```json\n{\"title\":\"Wrapped\",\"score\":3}\n```")))
	})

	var out scoredOutput
	require.NoError(t, c.CompleteJSON(context.Background(), []Message{User("x")}, testSchema, &out))
	assert.Equal(t, "Wrapped", out.Title)
}

func TestCompleteJSON_APIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"requests"}}`))
	})

	var out scoredOutput
	err := c.CompleteJSON(context.Background(), []Message{User("x")}, testSchema, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "Rate limit reached")
}

func TestCompleteJSON_EmptyChoices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	})

	var out scoredOutput
	err := c.CompleteJSON(context.Background(), []Message{User("x")}, testSchema, &out)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestCompleteJSON_Refusal(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"","refusal":"I can't help with that."}}]}`))
	})

	var out scoredOutput
	err := c.CompleteJSON(context.Background(), []Message{User("x")}, testSchema, &out)
	assert.ErrorIs(t, err, ErrInvalidOutput)
}

func TestCompleteJSON_InvalidJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chatResponseJSON("not valid json at all")))
	})

	var out scoredOutput
	err := c.CompleteJSON(context.Background(), []Message{User("x")}, testSchema, &out)
	assert.ErrorIs(t, err, ErrInvalidOutput)
}

func TestCompleteJSON_ValidationFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chatResponseJSON(`{"title":"","score":2}`)))
	})

	var out scoredOutput
	err := c.CompleteJSON(context.Background(), []Message{User("x")}, testSchema, &out)
	assert.ErrorIs(t, err, ErrInvalidOutput)
}

func TestCompleteJSON_ContextCanceled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chatResponseJSON(`{"title":"x","score":1}`)))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out scoredOutput
	assert.Error(t, c.CompleteJSON(ctx, []Message{User("x")}, testSchema, &out))
}

func TestObjectSchema_RequiresAllProperties(t *testing.T) {
	s := ObjectSchema(map[string]any{
		"b": map[string]any{"type": "string"},
		"a": map[string]any{"type": "number"},
	})
	assert.Equal(t, "object", s["type"])
	assert.Equal(t, []string{"a", "b"}, s["required"])
	assert.Equal(t, false, s["additionalProperties"])
}

func TestStripMarkdownCodeBlock(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`{"key":"val"}`, `{"key":"val"}`},
		{"```json\n{\"key\":\"val\"}\n```", `{"key":"val"}`},
		{"```\n{\"key\":\"val\"}\n```", `{"key":"val"}`},
		{"  ```json\n{\"key\":\"val\"}\n```  ", `{"key":"val"}`},
		{"no code block", "no code block"},
	}

	for _, tt := range tests {
		got := stripMarkdownCodeBlock(tt.input)
		if got != tt.expected {
			t.Errorf("stripMarkdownCodeBlock(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
