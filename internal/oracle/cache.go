package oracle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strings"
	"time"

	"github.com/ordermap/ordermap-server/internal/errors"
	"github.com/ordermap/ordermap-server/internal/id"
	"github.com/ordermap/ordermap-server/internal/logger"
	"github.com/ordermap/ordermap-server/internal/mapping"
	"github.com/ordermap/ordermap-server/internal/store"
)

// Cached wraps an Oracle with a persistent response cache, so re-learning a
// category with the same unresolved keys does not repeat the upstream call.
type Cached struct {
	inner  Oracle
	store  *store.Store
	logger *logger.Logger
}

// NewCached wraps inner with the cache in s.
func NewCached(inner Oracle, s *store.Store, log *logger.Logger) *Cached {
	return &Cached{inner: inner, store: s, logger: log}
}

// Suggest implements Oracle. Cache failures fall through to the inner oracle;
// a cache that cannot be written only costs the next call.
func (c *Cached) Suggest(ctx context.Context, req Request) (map[string]mapping.Suggestion, error) {
	if len(req.Unmapped) == 0 {
		return map[string]mapping.Suggestion{}, nil
	}

	fp := Fingerprint(req)
	if cached, err := c.store.CachedSuggestions(ctx, fp); err == nil {
		c.logger.Debug("oracle cache hit", "category", req.Category, "fingerprint", fp)
		return cached, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		c.logger.Warn("oracle cache lookup failed", "error", err)
	}

	suggestions, err := c.inner.Suggest(ctx, req)
	if err != nil {
		return nil, err
	}

	entry := &store.OracleCacheEntry{
		ID:          id.MustGenerate("oc"),
		Fingerprint: fp,
		Category:    req.Category,
		Suggestions: suggestions,
		CreatedAt:   time.Now().UTC(),
	}
	if err := c.store.CacheSuggestions(ctx, entry); err != nil {
		c.logger.Warn("failed to cache oracle suggestions", "error", err)
	}

	return suggestions, nil
}

// Fingerprint identifies an oracle request by its category and the sorted set
// of unresolved keys. Sample values are deliberately excluded: the keys define
// the question, samples just illustrate it.
func Fingerprint(req Request) string {
	keys := make([]string, 0, len(req.Unmapped))
	for k := range req.Unmapped {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	h := sha256.New()
	h.Write([]byte(req.Category))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(keys, "\x00")))
	return hex.EncodeToString(h.Sum(nil))
}
