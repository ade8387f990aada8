package store

import (
	"context"
	"slices"
	"time"

	"github.com/ordermap/ordermap-server/internal/mapping"
)

// TranslationRecord is one entry in the translation audit trail: which
// category a request resolved to, what it asked for, and how trustworthy the
// output was.
type TranslationRecord struct {
	ID          string `json:"id"`
	Category    string `json:"category"`
	QueryLabel  string `json:"query_label"`
	Description string `json:"description,omitempty"`

	OutputKeys        int      `json:"output_keys"`
	LowConfidenceKeys []string `json:"low_confidence_keys,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// OracleCacheEntry caches one oracle response so re-learning a category does
// not repeat the upstream call. The fingerprint covers the category and the
// unmapped keys the oracle was asked about.
type OracleCacheEntry struct {
	ID          string                        `json:"id"`
	Fingerprint string                        `json:"fingerprint"`
	Category    string                        `json:"category"`
	Suggestions map[string]mapping.Suggestion `json:"suggestions"`
	CreatedAt   time.Time                     `json:"created_at"`
}

// AddRecord appends a translation record to the audit trail.
func (s *Store) AddRecord(ctx context.Context, r *TranslationRecord) error {
	return s.Records.Create(ctx, r.ID, r)
}

// ListRecords returns audit records, newest first, capped at limit when
// limit is positive.
func (s *Store) ListRecords(ctx context.Context, category string, limit int) ([]*TranslationRecord, error) {
	var out []*TranslationRecord
	for r, err := range s.Records.List(ctx) {
		if err != nil {
			return nil, err
		}
		if category != "" && r.Category != category {
			continue
		}
		out = append(out, r)
	}

	slices.SortFunc(out, func(a, b *TranslationRecord) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CachedSuggestions looks up an oracle response by fingerprint.
// Returns ErrNotFound on a cache miss.
func (s *Store) CachedSuggestions(ctx context.Context, fingerprint string) (map[string]mapping.Suggestion, error) {
	entry, err := s.OracleCache.GetByIndex(ctx, "fingerprint", fingerprint)
	if err != nil {
		return nil, err
	}
	return entry.Suggestions, nil
}

// CacheSuggestions stores an oracle response under its fingerprint,
// replacing any previous entry for the same fingerprint.
func (s *Store) CacheSuggestions(ctx context.Context, entry *OracleCacheEntry) error {
	if existing, err := s.OracleCache.GetByIndex(ctx, "fingerprint", entry.Fingerprint); err == nil {
		entry.ID = existing.ID
		return s.OracleCache.Update(ctx, existing.ID, entry)
	}
	return s.OracleCache.Create(ctx, entry.ID, entry)
}
