package oracle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordermap/ordermap-server/internal/mapping"
	"github.com/ordermap/ordermap-server/internal/store"
)

// countingOracle records how many times it was asked.
type countingOracle struct {
	calls       int
	suggestions map[string]mapping.Suggestion
}

func (c *countingOracle) Suggest(context.Context, Request) (map[string]mapping.Suggestion, error) {
	c.calls++
	return c.suggestions, nil
}

func TestCached_SecondCallHitsCache(t *testing.T) {
	s, err := store.New(t.TempDir(), nil)
	require.NoError(t, err)
	defer s.Close()

	inner := &countingOracle{suggestions: map[string]mapping.Suggestion{
		"MATERIAL": {Source: "FABRIC", Transform: mapping.TransformCopy, Confidence: mapping.ConfidenceHigh},
	}}
	cached := NewCached(inner, s, testLogger())
	ctx := context.Background()

	first, err := cached.Suggest(ctx, sampleRequest())
	require.NoError(t, err)
	second, err := cached.Suggest(ctx, sampleRequest())
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, first, second)
}

func TestCached_DifferentRequestsMiss(t *testing.T) {
	s, err := store.New(t.TempDir(), nil)
	require.NoError(t, err)
	defer s.Close()

	inner := &countingOracle{suggestions: map[string]mapping.Suggestion{}}
	cached := NewCached(inner, s, testLogger())
	ctx := context.Background()

	req := sampleRequest()
	_, err = cached.Suggest(ctx, req)
	require.NoError(t, err)

	other := sampleRequest()
	other.Unmapped["EXTRA"] = mapping.UnmappedKey{SampleValues: []string{"x"}}
	_, err = cached.Suggest(ctx, other)
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls)
}

func TestFingerprint(t *testing.T) {
	a := sampleRequest()
	b := sampleRequest()
	assert.Equal(t, Fingerprint(a), Fingerprint(b))

	// Sample values do not affect identity, only the key set does.
	b.Unmapped["MATERIAL"] = mapping.UnmappedKey{SampleValues: []string{"other"}}
	assert.Equal(t, Fingerprint(a), Fingerprint(b))

	b.Unmapped["EXTRA"] = mapping.UnmappedKey{}
	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))

	c := sampleRequest()
	c.Category = "Pleats"
	assert.NotEqual(t, Fingerprint(a), Fingerprint(c))
}
