package service

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordermap/ordermap-server/internal/errors"
	"github.com/ordermap/ordermap-server/internal/logger"
	"github.com/ordermap/ordermap-server/internal/mapping"
	"github.com/ordermap/ordermap-server/internal/mappings"
	"github.com/ordermap/ordermap-server/internal/match"
	"github.com/ordermap/ordermap-server/internal/params"
	"github.com/ordermap/ordermap-server/internal/store"
)

func newTranslateService(t *testing.T) *TranslateService {
	t.Helper()
	log := logger.New(logger.Config{Writer: io.Discard})

	ms, err := mappings.NewStore(t.TempDir(), log)
	require.NoError(t, err)

	m := mapping.New("Roller Blinds")
	m.Constants["TYPE"] = "STANDARD"
	m.KeyMap["W"] = mapping.KeyRule{Source: "WIDTH", Transform: mapping.TransformDivide10}
	m.KeyMap["KOLOR"] = mapping.KeyRule{Source: "COLOR", Transform: mapping.TransformCopy}
	m.OracleSuggestions = map[string]mapping.Suggestion{
		"MATERIAL": {Source: "FABRIC", Transform: mapping.TransformCopy, Confidence: mapping.ConfidenceMedium},
	}
	m.TargetOrder = []string{"TYPE", "W", "KOLOR", "MATERIAL"}
	_, err = ms.Save(m)
	require.NoError(t, err)

	matcher, err := match.NewMatcher(ms, log)
	require.NoError(t, err)
	t.Cleanup(func() { matcher.Close() })

	records, err := store.New(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { records.Close() })

	return NewTranslateService(matcher, records, log)
}

func TestTranslate_FullFlow(t *testing.T) {
	svc := newTranslateService(t)
	ctx := context.Background()

	input := params.Parse("WIDTH=450, COLOR=RED, FABRIC=PVC")
	res, err := svc.Translate(ctx, "roller blinds", "", input)
	require.NoError(t, err)

	assert.Equal(t, "Roller Blinds", res.Category)
	assert.Equal(t, []string{"TYPE", "W", "KOLOR", "MATERIAL"}, res.Output.Keys())
	v, _ := res.Output.Get("W")
	assert.Equal(t, "45", v.Text())
	v, _ = res.Output.Get("MATERIAL")
	assert.Equal(t, "PVC", v.Text())
	assert.Equal(t, []string{"MATERIAL"}, res.LowConfidence)
	assert.NotEmpty(t, res.RecordID)
}

func TestTranslate_RecordsAudit(t *testing.T) {
	svc := newTranslateService(t)
	ctx := context.Background()

	_, err := svc.Translate(ctx, "roller blinds", "day night", params.Parse("WIDTH=620"))
	require.NoError(t, err)
	_, err = svc.Translate(ctx, "roller", "", params.Parse("WIDTH=450"))
	require.NoError(t, err)

	recs, err := svc.Records(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Roller Blinds", recs[0].Category)
	assert.Equal(t, 4, recs[0].OutputKeys)

	filtered, err := svc.Records(ctx, "Roller Blinds", 1)
	require.NoError(t, err)
	assert.Len(t, filtered, 1)
}

func TestTranslate_NoMatch(t *testing.T) {
	svc := newTranslateService(t)

	_, err := svc.Translate(context.Background(), "garage doors", "", params.Parse("A=1"))
	assert.ErrorIs(t, err, errors.ErrNotFound)

	recs, err := svc.Records(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Empty(t, recs, "failed matches must not be recorded")
}
