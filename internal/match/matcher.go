// Package match resolves freeform category labels from incoming orders to
// stored category mappings.
//
// Resolution runs through tiers of decreasing strictness: exact
// case-insensitive equality, substring overlap against the category label,
// the same against the product description, and finally a fuzzy full-text
// query. The substring tiers score candidates instead of returning the first
// hit, so the same inputs always resolve to the same category regardless of
// directory enumeration order.
package match

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"

	"github.com/ordermap/ordermap-server/internal/errors"
	"github.com/ordermap/ordermap-server/internal/logger"
	"github.com/ordermap/ordermap-server/internal/mapping"
	"github.com/ordermap/ordermap-server/internal/mappings"
)

// Matcher resolves category labels against the mappings store.
//
// Thread safety: all public methods are safe for concurrent use. The mutex
// protects the fuzzy index during rebuilds, which the mappings directory
// watcher triggers on external changes.
type Matcher struct {
	store  *mappings.Store
	logger *logger.Logger

	mu    sync.RWMutex
	index bleve.Index
}

// NewMatcher builds a matcher over store, indexing the currently stored
// categories for the fuzzy tier.
func NewMatcher(store *mappings.Store, log *logger.Logger) (*Matcher, error) {
	m := &Matcher{store: store, logger: log}
	if err := m.Rebuild(); err != nil {
		return nil, err
	}
	return m, nil
}

// Rebuild re-indexes the stored categories. Called on startup and whenever
// the mappings directory changes underneath the server.
func (m *Matcher) Rebuild() error {
	categories, err := m.store.Categories()
	if err != nil {
		return fmt.Errorf("failed to list categories: %w", err)
	}

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = simple.Name

	idx, err := bleve.NewMemOnly(indexMapping)
	if err != nil {
		return fmt.Errorf("failed to create match index: %w", err)
	}

	batch := idx.NewBatch()
	for _, c := range categories {
		if c == "" {
			continue
		}
		if err := batch.Index(c, map[string]any{"name": c}); err != nil {
			idx.Close()
			return fmt.Errorf("failed to index category %q: %w", c, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		idx.Close()
		return fmt.Errorf("failed to build match index: %w", err)
	}

	m.mu.Lock()
	old := m.index
	m.index = idx
	m.mu.Unlock()

	if old != nil {
		old.Close()
	}
	m.logger.Debug("rebuilt category match index", "categories", len(categories))
	return nil
}

// Close releases the fuzzy index.
func (m *Matcher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.index == nil {
		return nil
	}
	err := m.index.Close()
	m.index = nil
	return err
}

// Match resolves a category label, optionally assisted by the product
// description, to a stored mapping. Returns ErrNotFound when no tier
// produces a candidate.
func (m *Matcher) Match(ctx context.Context, category, description string) (*mapping.Mapping, error) {
	categories, err := m.store.Categories()
	if err != nil {
		return nil, err
	}
	if len(categories) == 0 {
		return nil, errors.NotFound("no mappings stored")
	}

	query := strings.ToLower(strings.TrimSpace(category))

	// Tier 1: exact, case-insensitive.
	for _, c := range categories {
		if strings.ToLower(strings.TrimSpace(c)) == query {
			return m.load(c)
		}
	}

	// Tier 2: substring overlap against the label.
	if best, ok := bestOverlap(query, categories); ok {
		return m.load(best)
	}

	// Tier 3: substring overlap against the product description.
	desc := strings.ToLower(strings.TrimSpace(description))
	if best, ok := bestOverlap(desc, categories); ok {
		return m.load(best)
	}

	// Tier 4: fuzzy full-text query.
	if best, ok := m.fuzzy(ctx, category, description); ok {
		m.logger.Debug("fuzzy category match", "query", category, "matched", best)
		return m.load(best)
	}

	return nil, errors.NotFoundf("no mapping matches category %q", category)
}

func (m *Matcher) load(category string) (*mapping.Mapping, error) {
	return m.store.Load(category)
}

// bestOverlap returns the candidate with a substring relationship to query,
// preferring the longest common substring and breaking ties by candidate
// name, so resolution does not depend on enumeration order.
func bestOverlap(query string, categories []string) (string, bool) {
	if query == "" {
		return "", false
	}

	best := ""
	bestScore := 0
	for _, c := range categories {
		cl := strings.ToLower(strings.TrimSpace(c))
		if cl == "" {
			continue
		}
		if !strings.Contains(cl, query) && !strings.Contains(query, cl) {
			continue
		}
		score := longestCommonSubstring(query, cl)
		if score > bestScore || (score == bestScore && best != "" && c < best) {
			best = c
			bestScore = score
		}
	}
	return best, best != ""
}

// longestCommonSubstring returns the length of the longest contiguous
// substring shared by a and b.
func longestCommonSubstring(a, b string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	longest := 0
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
				if cur[j] > longest {
					longest = cur[j]
				}
			} else {
				cur[j] = 0
			}
		}
		prev, cur = cur, prev
	}
	return longest
}

// fuzzy runs the last-resort full-text query over indexed category names.
func (m *Matcher) fuzzy(ctx context.Context, category, description string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.index == nil {
		return "", false
	}

	text := strings.TrimSpace(category)
	if text == "" {
		text = strings.TrimSpace(description)
	}
	if text == "" {
		return "", false
	}

	nameMatch := bleve.NewMatchQuery(text)
	nameMatch.SetField("name")

	fuzzyQuery := bleve.NewFuzzyQuery(strings.ToLower(text))
	fuzzyQuery.SetFuzziness(1)
	fuzzyQuery.SetField("name")
	fuzzyQuery.SetBoost(0.8)

	req := bleve.NewSearchRequest(bleve.NewDisjunctionQuery(nameMatch, fuzzyQuery))
	req.Size = 1

	res, err := m.index.SearchInContext(ctx, req)
	if err != nil {
		m.logger.Warn("fuzzy category search failed", "query", text, "error", err)
		return "", false
	}
	if len(res.Hits) == 0 {
		return "", false
	}
	return res.Hits[0].ID, true
}
