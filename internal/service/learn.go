// Package service orchestrates the learning and translation workflows over
// the corpus, the mappings store, the matcher, the oracle, and the
// operational record store.
package service

import (
	"context"
	"io"
	"time"

	"github.com/ordermap/ordermap-server/internal/corpus"
	"github.com/ordermap/ordermap-server/internal/errors"
	"github.com/ordermap/ordermap-server/internal/logger"
	"github.com/ordermap/ordermap-server/internal/mapping"
	"github.com/ordermap/ordermap-server/internal/mappings"
	"github.com/ordermap/ordermap-server/internal/oracle"
)

// LearnService ingests training data and learns category mappings from it.
type LearnService struct {
	corpus   *corpus.Store
	mappings *mappings.Store
	oracle   oracle.Oracle
	logger   *logger.Logger

	// invalidate runs after mappings change, to refresh derived state such
	// as the category match index. Optional.
	invalidate func()
}

// NewLearnService creates a learn service.
func NewLearnService(c *corpus.Store, m *mappings.Store, o oracle.Oracle, log *logger.Logger) *LearnService {
	return &LearnService{
		corpus:   c,
		mappings: m,
		oracle:   o,
		logger:   log,
	}
}

// SetInvalidate registers a callback run after mappings change.
func (s *LearnService) SetInvalidate(fn func()) {
	s.invalidate = fn
}

// Ingest stores training rows from CSV data as a new batch.
func (s *LearnService) Ingest(ctx context.Context, r io.Reader) (*corpus.IngestReport, error) {
	return s.corpus.IngestCSV(ctx, r)
}

// DeleteBatch backs out one ingested batch.
func (s *LearnService) DeleteBatch(ctx context.Context, batchID string) (int64, error) {
	return s.corpus.DeleteBatch(ctx, batchID)
}

// CategoryReport summarizes the learned mapping for one category.
type CategoryReport struct {
	Category    string `json:"category"`
	Pairs       int    `json:"pairs"`
	MappedKeys  int    `json:"mapped_keys"`
	Constants   int    `json:"constants"`
	Unmapped    int    `json:"unmapped"`
	Suggestions int    `json:"suggestions"`
	Path        string `json:"path"`
}

// Learn derives and persists a mapping for every category in the corpus, or
// for a single category when one is given. Each learned mapping replaces the
// stored one whole. Oracle failures degrade to zero suggestions; they never
// fail the learn.
func (s *LearnService) Learn(ctx context.Context, category string) ([]CategoryReport, error) {
	var categories []string
	if category != "" {
		categories = []string{category}
	} else {
		var err error
		categories, err = s.corpus.Categories(ctx)
		if err != nil {
			return nil, err
		}
	}
	if len(categories) == 0 {
		return nil, errors.NotFound("training corpus is empty")
	}

	started := time.Now()
	reports := make([]CategoryReport, 0, len(categories))
	for _, cat := range categories {
		report, err := s.learnCategory(ctx, cat)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *report)
	}

	if s.invalidate != nil {
		s.invalidate()
	}

	s.logger.Info("learn complete",
		"categories", len(reports), "took", time.Since(started))
	return reports, nil
}

func (s *LearnService) learnCategory(ctx context.Context, category string) (*CategoryReport, error) {
	pairs, err := s.corpus.TrainingPairs(ctx, category)
	if err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		return nil, errors.NotFoundf("no training rows for category %q", category)
	}

	m := mapping.Learn(category, pairs)

	if len(m.Unmapped) > 0 {
		suggestions, err := s.oracle.Suggest(ctx, oracle.Request{
			Category:  category,
			Unmapped:  m.Unmapped,
			KeyMap:    m.KeyMap,
			Constants: m.Constants,
		})
		if err != nil {
			s.logger.Warn("oracle suggestions unavailable",
				"category", category, "error", err)
		} else if len(suggestions) > 0 {
			m.OracleSuggestions = suggestions
		}
	}

	path, err := s.mappings.Save(m)
	if err != nil {
		return nil, err
	}

	s.logger.Info("learned mapping",
		"category", category,
		"pairs", len(pairs),
		"mapped", len(m.KeyMap),
		"constants", len(m.Constants),
		"unmapped", len(m.Unmapped),
		"suggestions", len(m.OracleSuggestions))

	return &CategoryReport{
		Category:    category,
		Pairs:       len(pairs),
		MappedKeys:  len(m.KeyMap),
		Constants:   len(m.Constants),
		Unmapped:    len(m.Unmapped),
		Suggestions: len(m.OracleSuggestions),
		Path:        path,
	}, nil
}

// Mappings lists the stored mappings.
func (s *LearnService) Mappings(ctx context.Context) ([]*mapping.Mapping, error) {
	return s.mappings.List()
}

// Mapping resolves one stored mapping by category.
func (s *LearnService) Mapping(ctx context.Context, category string) (*mapping.Mapping, error) {
	return s.mappings.Load(category)
}

// DeleteMapping removes a stored mapping by category.
func (s *LearnService) DeleteMapping(ctx context.Context, category string) error {
	if err := s.mappings.Delete(category); err != nil {
		return err
	}
	if s.invalidate != nil {
		s.invalidate()
	}
	return nil
}
