// Package oracle asks an external language model for mapping suggestions on
// target keys the learner could not resolve.
//
// The oracle is advisory: every suggestion it returns is persisted separately
// from learned rules and flagged low-trust at translation time. Failures never
// propagate as errors to learning; a broken or unconfigured oracle just means
// zero suggestions.
package oracle

import (
	"context"

	"github.com/ordermap/ordermap-server/internal/mapping"
)

// Request carries the context the oracle needs for one category: what could
// not be mapped, plus what was, so the model can reason by analogy.
type Request struct {
	Category  string
	Unmapped  map[string]mapping.UnmappedKey
	KeyMap    map[string]mapping.KeyRule
	Constants map[string]string
}

// Oracle produces mapping suggestions keyed by target key.
type Oracle interface {
	Suggest(ctx context.Context, req Request) (map[string]mapping.Suggestion, error)
}

// Noop is the oracle used when no API key is configured. It always returns
// zero suggestions.
type Noop struct{}

// Suggest implements Oracle with no suggestions.
func (Noop) Suggest(context.Context, Request) (map[string]mapping.Suggestion, error) {
	return map[string]mapping.Suggestion{}, nil
}
