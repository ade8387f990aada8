package oracle

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/ordermap/ordermap-server/internal/logger"
	"github.com/ordermap/ordermap-server/internal/mapping"
)

// Prompt size caps. Oversized context costs money without improving answers.
const (
	maxMappedLines  = 30
	maxConstLines   = 20
	maxInputKeys    = 20
	maxSampleFields = 10
)

// OpenAIConfig configures the chat-completions client.
type OpenAIConfig struct {
	BaseURL string
	Model   string
	APIKey  string
	Timeout time.Duration
}

// OpenAIClient asks an OpenAI-compatible chat-completions endpoint for
// suggestions.
type OpenAIClient struct {
	cfg         OpenAIConfig
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	logger      *logger.Logger
}

// NewOpenAIClient creates a suggestion client.
// Rate limited to one request per second with a small burst, which keeps a
// full re-learn over many categories inside typical account limits.
func NewOpenAIClient(cfg OpenAIConfig, log *logger.Logger) *OpenAIClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &OpenAIClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: rate.NewLimiter(rate.Every(time.Second), 3),
		logger:      log,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// wireSuggestion is the shape requested from the model. Entries without a
// source are discarded; confidence is normalized to the closed set.
type wireSuggestion struct {
	Source      string            `json:"source"`
	Transform   string            `json:"transform"`
	Description string            `json:"description"`
	Confidence  string            `json:"confidence"`
	Reason      string            `json:"reason"`
	ValueMap    map[string]string `json:"value_map,omitempty"`
}

// Suggest implements Oracle against the chat-completions API.
func (c *OpenAIClient) Suggest(ctx context.Context, req Request) (map[string]mapping.Suggestion, error) {
	if len(req.Unmapped) == 0 {
		return map[string]mapping.Suggestion{}, nil
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: "You return only valid JSON."},
			{Role: "user", Content: buildPrompt(req)},
		},
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("suggestion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("suggestion API returned %d: %s", resp.StatusCode, snippet)
	}

	var chat chatResponse
	if err := json.UnmarshalRead(resp.Body, &chat); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("suggestion API returned no choices")
	}

	content := stripFences(chat.Choices[0].Message.Content)

	var raw map[string]wireSuggestion
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("model did not return valid JSON: %w", err)
	}

	out := make(map[string]mapping.Suggestion, len(raw))
	for key, ws := range raw {
		if ws.Source == "" {
			c.logger.Warn("discarding oracle suggestion without source", "key", key)
			continue
		}
		out[key] = mapping.Suggestion{
			Source:      ws.Source,
			Transform:   normalizeTransform(ws.Transform),
			ValueMap:    ws.ValueMap,
			Confidence:  mapping.NormalizeConfidence(ws.Confidence),
			Description: ws.Description,
			Reason:      ws.Reason,
		}
	}

	c.logger.Info("oracle suggestions received",
		"category", req.Category, "asked", len(req.Unmapped), "returned", len(out))
	return out, nil
}

func normalizeTransform(s string) mapping.Transform {
	switch mapping.Transform(s) {
	case mapping.TransformCopy, mapping.TransformDivide10, mapping.TransformLookup:
		return mapping.Transform(s)
	}
	return mapping.TransformManual
}

// stripFences removes a markdown code fence wrapper if the model added one.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if _, rest, ok := strings.Cut(s, "\n"); ok {
		s = rest
	}
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func buildPrompt(req Request) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are helping map input order parameters to manufacturing output parameters for product category: %s.\n\n", req.Category)

	b.WriteString("Already-mapped output keys (output <- input source):\n")
	mappedKeys := sortedKeys(req.KeyMap)
	if len(mappedKeys) == 0 {
		b.WriteString("  (none)\n")
	}
	for i, k := range mappedKeys {
		if i == maxMappedLines {
			break
		}
		rule := req.KeyMap[k]
		fmt.Fprintf(&b, "  %s <- %s (%s)\n", k, rule.Source, rule.Transform)
	}

	b.WriteString("\nConstants:\n")
	constKeys := sortedKeys(req.Constants)
	if len(constKeys) == 0 {
		b.WriteString("  (none)\n")
	}
	for i, k := range constKeys {
		if i == maxConstLines {
			break
		}
		fmt.Fprintf(&b, "  %s = %s\n", k, req.Constants[k])
	}

	b.WriteString("\nThe following output keys could NOT be automatically matched to any input key. For each one, analyze the key name and sample values to suggest the best mapping.\n\nUnmapped keys:\n")
	for _, key := range sortedKeys(req.Unmapped) {
		info := req.Unmapped[key]
		fmt.Fprintf(&b, "  Output key: %s\n", key)
		fmt.Fprintf(&b, "    Sample output values: %v\n", info.SampleValues)

		inputKeys := make(map[string]bool)
		for _, snap := range info.SampleInputs {
			for k := range snap {
				inputKeys[k] = true
			}
		}
		keys := sortedKeys(inputKeys)
		if len(keys) > maxInputKeys {
			keys = keys[:maxInputKeys]
		}
		fmt.Fprintf(&b, "    Available input keys: %v\n", keys)

		if len(info.SampleInputs) > 0 {
			b.WriteString("    Sample input row:")
			sample := info.SampleInputs[0]
			for i, k := range sortedKeys(sample) {
				if i == maxSampleFields {
					break
				}
				fmt.Fprintf(&b, " %s=%s", k, sample[k])
			}
			b.WriteString("\n")
		}
	}

	b.WriteString(`
For each unmapped output key, return a JSON object with:
- "source": the input key name to map from (or "manual" if no match)
- "transform": "copy", "divide10", "lookup", or "manual"
- "description": brief description of what this parameter is
- "confidence": "high", "medium", or "low"
- "reason": brief explanation of why you chose this mapping
- "value_map": optional dict mapping input values to output values (for lookup transform)

Guidelines:
- If an unmapped output key name is similar to an already-mapped key, map it similarly
- Keys ending in DE/EN might be German/English translations
- SYST_ prefix usually refers to system-level parameters
- If no reasonable match, use source="manual" and transform="manual"

Return ONLY a valid JSON object where keys are the output key names.`)

	return b.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
