package oracle

import (
	"context"
	"encoding/json/v2"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordermap/ordermap-server/internal/logger"
	"github.com/ordermap/ordermap-server/internal/mapping"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Writer: io.Discard})
}

func sampleRequest() Request {
	return Request{
		Category: "Roller Blinds",
		Unmapped: map[string]mapping.UnmappedKey{
			"MATERIAL": {
				SampleValues: []string{"PLASTIC", "WOOD"},
				SampleInputs: []map[string]string{{"FABRIC": "PVC", "WIDTH": "450"}},
			},
		},
		KeyMap: map[string]mapping.KeyRule{
			"W": {Source: "WIDTH", Transform: mapping.TransformDivide10},
		},
		Constants: map[string]string{"TYPE": "STANDARD"},
	}
}

// chatServer fakes the chat-completions endpoint, returning content as the
// assistant message.
func chatServer(t *testing.T, content string, gotPrompt *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.UnmarshalRead(r.Body, &req))
		require.Len(t, req.Messages, 2)
		if gotPrompt != nil {
			*gotPrompt = req.Messages[1].Content
		}

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		json.MarshalWrite(w, resp)
	}))
}

func newTestClient(baseURL string) *OpenAIClient {
	return NewOpenAIClient(OpenAIConfig{
		BaseURL: baseURL,
		APIKey:  "test-key",
		Model:   "gpt-4o-mini",
	}, testLogger())
}

func TestOpenAI_Suggest(t *testing.T) {
	content := `{
		"MATERIAL": {"source": "FABRIC", "transform": "lookup",
			"value_map": {"PVC": "PLASTIC"}, "confidence": "high",
			"description": "surface material", "reason": "values align"}
	}`
	var prompt string
	srv := chatServer(t, content, &prompt)
	defer srv.Close()

	got, err := newTestClient(srv.URL).Suggest(context.Background(), sampleRequest())
	require.NoError(t, err)
	require.Contains(t, got, "MATERIAL")
	assert.Equal(t, "FABRIC", got["MATERIAL"].Source)
	assert.Equal(t, mapping.TransformLookup, got["MATERIAL"].Transform)
	assert.Equal(t, mapping.ConfidenceHigh, got["MATERIAL"].Confidence)
	assert.Equal(t, map[string]string{"PVC": "PLASTIC"}, got["MATERIAL"].ValueMap)

	// Prompt carries the learner's context.
	assert.Contains(t, prompt, "Roller Blinds")
	assert.Contains(t, prompt, "W <- WIDTH (divide10)")
	assert.Contains(t, prompt, "TYPE = STANDARD")
	assert.Contains(t, prompt, "Output key: MATERIAL")
}

func TestOpenAI_StripsMarkdownFences(t *testing.T) {
	content := "```json\n{\"MATERIAL\": {\"source\": \"FABRIC\", \"transform\": \"copy\", \"confidence\": \"medium\"}}\n```"
	srv := chatServer(t, content, nil)
	defer srv.Close()

	got, err := newTestClient(srv.URL).Suggest(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, mapping.TransformCopy, got["MATERIAL"].Transform)
	assert.Equal(t, mapping.ConfidenceMedium, got["MATERIAL"].Confidence)
}

func TestOpenAI_DiscardsEntriesWithoutSource(t *testing.T) {
	content := `{
		"GOOD": {"source": "A", "transform": "copy", "confidence": "low"},
		"BAD": {"transform": "copy", "confidence": "high"}
	}`
	srv := chatServer(t, content, nil)
	defer srv.Close()

	got, err := newTestClient(srv.URL).Suggest(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Contains(t, got, "GOOD")
	assert.NotContains(t, got, "BAD")
}

func TestOpenAI_NormalizesBadLabels(t *testing.T) {
	content := `{"K": {"source": "A", "transform": "multiply", "confidence": "certain"}}`
	srv := chatServer(t, content, nil)
	defer srv.Close()

	got, err := newTestClient(srv.URL).Suggest(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, mapping.TransformManual, got["K"].Transform)
	assert.Equal(t, mapping.ConfidenceLow, got["K"].Confidence)
}

func TestOpenAI_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Suggest(context.Background(), sampleRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestOpenAI_InvalidJSONContent(t *testing.T) {
	srv := chatServer(t, "sorry, I cannot help with that", nil)
	defer srv.Close()

	_, err := newTestClient(srv.URL).Suggest(context.Background(), sampleRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "valid JSON")
}

func TestOpenAI_EmptyUnmappedSkipsCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected API call for empty unmapped set")
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL).Suggest(context.Background(), Request{Category: "x"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fence", `{"a": 1}`, `{"a": 1}`},
		{"plain fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"surrounding whitespace", "  {\"a\": 1}  ", `{"a": 1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripFences(tt.in))
		})
	}
}

func TestNoop(t *testing.T) {
	got, err := Noop{}.Suggest(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Empty(t, got)
}
