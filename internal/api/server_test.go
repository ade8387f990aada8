package api

import (
	"encoding/json/v2"
	"io"
	"path/filepath"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/require"

	"github.com/ordermap/ordermap-server/internal/corpus"
	"github.com/ordermap/ordermap-server/internal/logger"
	"github.com/ordermap/ordermap-server/internal/mappings"
	"github.com/ordermap/ordermap-server/internal/match"
	"github.com/ordermap/ordermap-server/internal/oracle"
	"github.com/ordermap/ordermap-server/internal/service"
	"github.com/ordermap/ordermap-server/internal/store"
)

// testServer wraps the API server with a humatest client over real stores in
// a temp directory.
type testServer struct {
	*Server
	api humatest.TestAPI
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	tmpDir := t.TempDir()
	log := logger.New(logger.Config{Writer: io.Discard, Format: "json"})

	corpusStore, err := corpus.Open(filepath.Join(tmpDir, "corpus.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = corpusStore.Close() })

	records, err := store.New(filepath.Join(tmpDir, "records"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = records.Close() })

	mappingStore, err := mappings.NewStore(filepath.Join(tmpDir, "mappings"), log)
	require.NoError(t, err)

	matcher, err := match.NewMatcher(mappingStore, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = matcher.Close() })

	learn := service.NewLearnService(corpusStore, mappingStore, oracle.Noop{}, log)
	learn.SetInvalidate(func() { _ = matcher.Rebuild() })
	translate := service.NewTranslateService(matcher, records, log)

	s := NewServer(&Services{Learn: learn, Translate: translate}, corpusStore, records, mappingStore, log)

	return &testServer{
		Server: s,
		api:    humatest.Wrap(t, s.api),
	}
}

func decodeBody[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v))
	return v
}
