package service

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordermap/ordermap-server/internal/corpus"
	"github.com/ordermap/ordermap-server/internal/errors"
	"github.com/ordermap/ordermap-server/internal/logger"
	"github.com/ordermap/ordermap-server/internal/mapping"
	"github.com/ordermap/ordermap-server/internal/mappings"
	"github.com/ordermap/ordermap-server/internal/oracle"
)

// fakeOracle returns canned suggestions and records the requests it saw.
type fakeOracle struct {
	requests    []oracle.Request
	suggestions map[string]mapping.Suggestion
	err         error
}

func (f *fakeOracle) Suggest(_ context.Context, req oracle.Request) (map[string]mapping.Suggestion, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.suggestions, nil
}

// MYSTERY cannot be explained by any input key: the third row repeats the
// first row's inputs with a different MYSTERY value, so every candidate
// lookup is inconsistent.
const trainingCSV = `category,input_params,target_params
Roller Blinds,"WIDTH=450, COLOR=RED, JUNK=a","TYPE=STANDARD, W=45, KOLOR=RED, MYSTERY=m1"
Roller Blinds,"WIDTH=620, COLOR=BLUE, JUNK=b","TYPE=STANDARD, W=62, KOLOR=BLUE, MYSTERY=m2"
Roller Blinds,"WIDTH=450, COLOR=RED, JUNK=a","TYPE=STANDARD, W=45, KOLOR=RED, MYSTERY=m3"
Pleats,"HEIGHT=1200","H=120"
Pleats,"HEIGHT=1800","H=180"
`

func newLearnService(t *testing.T, o oracle.Oracle) (*LearnService, *mappings.Store) {
	t.Helper()
	log := logger.New(logger.Config{Writer: io.Discard})

	c, err := corpus.Open(filepath.Join(t.TempDir(), "corpus.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	ms, err := mappings.NewStore(t.TempDir(), log)
	require.NoError(t, err)

	return NewLearnService(c, ms, o, log), ms
}

func TestLearn_AllCategories(t *testing.T) {
	fake := &fakeOracle{suggestions: map[string]mapping.Suggestion{
		"MYSTERY": {Source: "JUNK", Transform: mapping.TransformCopy, Confidence: mapping.ConfidenceLow},
	}}
	svc, ms := newLearnService(t, fake)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, strings.NewReader(trainingCSV))
	require.NoError(t, err)

	reports, err := svc.Learn(ctx, "")
	require.NoError(t, err)
	require.Len(t, reports, 2)

	// Corpus categories are sorted, so Pleats is first.
	assert.Equal(t, "Pleats", reports[0].Category)
	assert.Equal(t, "Roller Blinds", reports[1].Category)
	assert.Equal(t, 3, reports[1].Pairs)
	assert.Equal(t, 1, reports[1].Constants, "TYPE should be constant")
	assert.Equal(t, 1, reports[1].Suggestions)

	m, err := ms.Load("Roller Blinds")
	require.NoError(t, err)
	assert.Equal(t, "STANDARD", m.Constants["TYPE"])
	assert.Equal(t, mapping.TransformDivide10, m.KeyMap["W"].Transform)
	assert.Contains(t, m.OracleSuggestions, "MYSTERY")

	// The oracle was consulted only for the category with unmapped keys.
	require.Len(t, fake.requests, 1)
	assert.Equal(t, "Roller Blinds", fake.requests[0].Category)
	assert.Contains(t, fake.requests[0].Unmapped, "MYSTERY")
}

func TestLearn_SingleCategory(t *testing.T) {
	svc, ms := newLearnService(t, oracle.Noop{})
	ctx := context.Background()

	_, err := svc.Ingest(ctx, strings.NewReader(trainingCSV))
	require.NoError(t, err)

	reports, err := svc.Learn(ctx, "Pleats")
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "Pleats", reports[0].Category)

	_, err = ms.Load("Roller Blinds")
	assert.ErrorIs(t, err, errors.ErrNotFound, "other categories must not be learned")
}

func TestLearn_OracleFailureDegrades(t *testing.T) {
	fake := &fakeOracle{err: errors.Unavailable("oracle down")}
	svc, ms := newLearnService(t, fake)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, strings.NewReader(trainingCSV))
	require.NoError(t, err)

	_, err = svc.Learn(ctx, "Roller Blinds")
	require.NoError(t, err, "oracle failure must not fail the learn")

	m, err := ms.Load("Roller Blinds")
	require.NoError(t, err)
	assert.Empty(t, m.OracleSuggestions)
	assert.Contains(t, m.Unmapped, "MYSTERY")
}

func TestLearn_EmptyCorpus(t *testing.T) {
	svc, _ := newLearnService(t, oracle.Noop{})
	_, err := svc.Learn(context.Background(), "")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestLearn_UnknownCategory(t *testing.T) {
	svc, _ := newLearnService(t, oracle.Noop{})
	ctx := context.Background()
	_, err := svc.Ingest(ctx, strings.NewReader(trainingCSV))
	require.NoError(t, err)

	_, err = svc.Learn(ctx, "Garage Doors")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestLearn_InvalidateRunsAfterChanges(t *testing.T) {
	svc, _ := newLearnService(t, oracle.Noop{})
	ctx := context.Background()
	_, err := svc.Ingest(ctx, strings.NewReader(trainingCSV))
	require.NoError(t, err)

	invalidated := 0
	svc.SetInvalidate(func() { invalidated++ })

	_, err = svc.Learn(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, invalidated)

	require.NoError(t, svc.DeleteMapping(ctx, "Pleats"))
	assert.Equal(t, 2, invalidated)
}

func TestDeleteBatch(t *testing.T) {
	svc, _ := newLearnService(t, oracle.Noop{})
	ctx := context.Background()

	report, err := svc.Ingest(ctx, strings.NewReader(trainingCSV))
	require.NoError(t, err)

	n, err := svc.DeleteBatch(ctx, report.BatchID)
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)

	_, err = svc.Learn(ctx, "")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}
