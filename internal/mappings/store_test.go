package mappings

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordermap/ordermap-server/internal/errors"
	"github.com/ordermap/ordermap-server/internal/logger"
	"github.com/ordermap/ordermap-server/internal/mapping"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), logger.New(logger.Config{Writer: io.Discard}))
	require.NoError(t, err)
	return s
}

func sampleMapping(category string) *mapping.Mapping {
	m := mapping.New(category)
	m.Constants["TYPE"] = "STANDARD"
	m.KeyMap["W"] = mapping.KeyRule{Source: "WIDTH", Transform: mapping.TransformDivide10}
	m.KeyMap["SIDE"] = mapping.KeyRule{Source: "DRIVE", Transform: mapping.TransformLookup}
	m.ValueMap["SIDE"] = map[string]string{"L": "LEFT", "R": "RIGHT"}
	m.TargetOrder = []string{"TYPE", "W", "SIDE"}
	return m
}

func TestStore_SaveAndLoadExact(t *testing.T) {
	s := testStore(t)

	path, err := s.Save(sampleMapping("Roller Blinds"))
	require.NoError(t, err)
	assert.Equal(t, "Roller_Blinds.json", filepath.Base(path))

	m, err := s.Load("Roller Blinds")
	require.NoError(t, err)
	assert.Equal(t, "Roller Blinds", m.Category)
	assert.Equal(t, "STANDARD", m.Constants["TYPE"])
	assert.Equal(t, mapping.KeyRule{Source: "WIDTH", Transform: mapping.TransformDivide10}, m.KeyMap["W"])
	assert.Equal(t, map[string]string{"L": "LEFT", "R": "RIGHT"}, m.ValueMap["SIDE"])
}

func TestStore_SaveReplacesWhole(t *testing.T) {
	s := testStore(t)

	_, err := s.Save(sampleMapping("Roller Blinds"))
	require.NoError(t, err)

	replacement := mapping.New("Roller Blinds")
	replacement.Constants["ONLY"] = "x"
	_, err = s.Save(replacement)
	require.NoError(t, err)

	m, err := s.Load("Roller Blinds")
	require.NoError(t, err)
	assert.Equal(t, "x", m.Constants["ONLY"])
	assert.NotContains(t, m.Constants, "TYPE")
	assert.Empty(t, m.KeyMap)
}

func TestStore_LoadFuzzy(t *testing.T) {
	s := testStore(t)
	_, err := s.Save(sampleMapping("Vertical Blinds Premium"))
	require.NoError(t, err)

	// Query is a substring of the stored category.
	m, err := s.Load("vertical blinds")
	require.NoError(t, err)
	assert.Equal(t, "Vertical Blinds Premium", m.Category)

	// Stored category is a substring of the query.
	m, err = s.Load("VERTICAL BLINDS PREMIUM 25MM")
	require.NoError(t, err)
	assert.Equal(t, "Vertical Blinds Premium", m.Category)
}

func TestStore_LoadByFilenameWords(t *testing.T) {
	s := testStore(t)

	// A hand-written document with a blank category can only be resolved
	// through its filename.
	doc := `{"category":"","key_map":{},"value_map":{},"constants":{"TYPE":"STANDARD"}}`
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "Pleats.json"), []byte(doc), 0o644))

	got, err := s.Load("pleats 25mm")
	require.NoError(t, err)
	assert.Equal(t, "STANDARD", got.Constants["TYPE"])
}

func TestStore_LoadNotFound(t *testing.T) {
	s := testStore(t)
	_, err := s.Load("nonexistent")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestStore_ListAndCategories(t *testing.T) {
	s := testStore(t)
	for _, c := range []string{"Roller Blinds", "Pleats", "Vertical Blinds"} {
		_, err := s.Save(sampleMapping(c))
		require.NoError(t, err)
	}

	cats, err := s.Categories()
	require.NoError(t, err)
	// Filename order: Pleats, Roller_Blinds, Vertical_Blinds.
	assert.Equal(t, []string{"Pleats", "Roller Blinds", "Vertical Blinds"}, cats)

	ms, err := s.List()
	require.NoError(t, err)
	assert.Len(t, ms, 3)
}

func TestStore_Delete(t *testing.T) {
	s := testStore(t)
	_, err := s.Save(sampleMapping("Roller Blinds"))
	require.NoError(t, err)

	require.NoError(t, s.Delete("Roller Blinds"))
	_, err = s.Load("Roller Blinds")
	assert.ErrorIs(t, err, errors.ErrNotFound)

	assert.ErrorIs(t, s.Delete("Roller Blinds"), errors.ErrNotFound)
}

func TestStore_DeleteFuzzy(t *testing.T) {
	s := testStore(t)
	_, err := s.Save(sampleMapping("Vertical Blinds Premium"))
	require.NoError(t, err)

	require.NoError(t, s.Delete("vertical blinds"))
	_, err = s.Load("Vertical Blinds Premium")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}
