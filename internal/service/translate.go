package service

import (
	"context"
	"time"

	"github.com/ordermap/ordermap-server/internal/id"
	"github.com/ordermap/ordermap-server/internal/logger"
	"github.com/ordermap/ordermap-server/internal/match"
	"github.com/ordermap/ordermap-server/internal/params"
	"github.com/ordermap/ordermap-server/internal/store"
	"github.com/ordermap/ordermap-server/internal/translate"
)

// TranslateService resolves incoming records to a category mapping, applies
// it, and records the outcome in the audit trail.
type TranslateService struct {
	matcher *match.Matcher
	records *store.Store
	logger  *logger.Logger
}

// NewTranslateService creates a translate service.
func NewTranslateService(matcher *match.Matcher, records *store.Store, log *logger.Logger) *TranslateService {
	return &TranslateService{
		matcher: matcher,
		records: records,
		logger:  log,
	}
}

// Translation is the outcome for one input record.
type Translation struct {
	RecordID string
	Category string
	Output   *params.Map
	// LowConfidence names output keys produced from oracle suggestions.
	LowConfidence []string
}

// Translate resolves the category label (with the product description as a
// fallback signal), applies the matched mapping to input, and appends an
// audit record. The translation itself is total; only category resolution
// and persistence can fail.
func (s *TranslateService) Translate(ctx context.Context, category, description string, input *params.Map) (*Translation, error) {
	m, err := s.matcher.Match(ctx, category, description)
	if err != nil {
		return nil, err
	}

	res := translate.Translate(input, m)

	low := make([]string, 0, len(res.LowConfidence))
	for _, k := range res.Output.Keys() {
		if res.LowConfidence[k] {
			low = append(low, k)
		}
	}

	rec := &store.TranslationRecord{
		ID:                id.MustGenerate("rec"),
		Category:          m.Category,
		QueryLabel:        category,
		Description:       description,
		OutputKeys:        res.Output.Len(),
		LowConfidenceKeys: low,
		CreatedAt:         time.Now().UTC(),
	}
	if err := s.records.AddRecord(ctx, rec); err != nil {
		// The caller still gets their translation; losing one audit row is
		// not worth failing the request.
		s.logger.Warn("failed to record translation", "error", err)
	}

	s.logger.Debug("translated record",
		"query", category, "matched", m.Category,
		"keys", res.Output.Len(), "low_confidence", len(low))

	return &Translation{
		RecordID:      rec.ID,
		Category:      m.Category,
		Output:        res.Output,
		LowConfidence: low,
	}, nil
}

// Records lists audit records, newest first. category filters when non-empty;
// limit caps the result when positive.
func (s *TranslateService) Records(ctx context.Context, category string, limit int) ([]*store.TranslationRecord, error) {
	return s.records.ListRecords(ctx, category, limit)
}
