// Package mappings persists learned category mappings as JSON documents, one
// file per category, and resolves lookups by category name with progressively
// fuzzier matching.
//
// The on-disk layout is {dir}/{slug}.json where slug is
// util.CategorySlug(category). The documents are the durable interchange
// format: hand-editable, diffable, and readable by other tools, so their field
// names are stable.
package mappings

import (
	"encoding/json/jsontext"
	"encoding/json/v2"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ordermap/ordermap-server/internal/errors"
	"github.com/ordermap/ordermap-server/internal/logger"
	"github.com/ordermap/ordermap-server/internal/mapping"
	"github.com/ordermap/ordermap-server/internal/util"
)

// Store reads and writes mapping documents under a single directory.
type Store struct {
	dir    string
	logger *logger.Logger
}

// NewStore creates the mappings directory if needed and returns a store over it.
func NewStore(dir string, log *logger.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create mappings directory: %w", err)
	}
	return &Store{dir: dir, logger: log}, nil
}

// Dir returns the directory the store persists into.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the document path a category persists to.
func (s *Store) Path(category string) string {
	return filepath.Join(s.dir, util.CategorySlug(category)+".json")
}

// Save writes m to its category's document, replacing any previous version.
// Mappings are superseded whole, never merged.
func (s *Store) Save(m *mapping.Mapping) (string, error) {
	path := s.Path(m.Category)

	data, err := json.Marshal(m, jsontext.WithIndent("  "))
	if err != nil {
		return "", fmt.Errorf("failed to encode mapping for %q: %w", m.Category, err)
	}

	// Write-then-rename so readers never observe a partial document.
	tmp, err := os.CreateTemp(s.dir, ".mapping-*.json")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write mapping: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to replace mapping document: %w", err)
	}

	s.logger.Debug("saved mapping", "category", m.Category, "path", path)
	return path, nil
}

// Load resolves a category to its mapping.
//
// Resolution order:
//  1. Exact slug match on the document filename.
//  2. Case-insensitive substring match, either direction, against each
//     document's stored category.
//  3. The same against each filename read back as words (underscores as
//     spaces).
//
// Candidates are scanned in filename order, so resolution is deterministic.
// Returns ErrNotFound when nothing matches.
func (s *Store) Load(category string) (*mapping.Mapping, error) {
	if m, err := s.read(s.Path(category)); err == nil {
		return m, nil
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	query := strings.ToLower(strings.TrimSpace(category))

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read mappings directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		m, err := s.read(filepath.Join(s.dir, e.Name()))
		if err != nil {
			s.logger.Warn("skipping unreadable mapping document", "file", e.Name(), "error", err)
			continue
		}
		stored := strings.ToLower(strings.TrimSpace(m.Category))
		if containsEither(query, stored) {
			return m, nil
		}
		words := util.SlugWords(strings.TrimSuffix(e.Name(), ".json"))
		if containsEither(query, words) {
			return m, nil
		}
	}

	return nil, errors.NotFoundf("no mapping for category %q", category)
}

// List returns every stored mapping in filename order. Unreadable documents
// are skipped with a warning rather than failing the listing.
func (s *Store) List() ([]*mapping.Mapping, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read mappings directory: %w", err)
	}

	var out []*mapping.Mapping
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		m, err := s.read(filepath.Join(s.dir, e.Name()))
		if err != nil {
			s.logger.Warn("skipping unreadable mapping document", "file", e.Name(), "error", err)
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// Categories returns the stored category names in filename order.
func (s *Store) Categories() ([]string, error) {
	ms, err := s.List()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ms))
	for _, m := range ms {
		names = append(names, m.Category)
	}
	return names, nil
}

// Delete removes the document for category, resolving it the same way Load
// does. Returns ErrNotFound when no document matches.
func (s *Store) Delete(category string) error {
	path := s.Path(category)
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat mapping document: %w", err)
		}
		m, err := s.Load(category)
		if err != nil {
			return err
		}
		path = s.Path(m.Category)
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return errors.NotFoundf("no mapping for category %q", category)
		}
		return fmt.Errorf("failed to delete mapping document: %w", err)
	}
	s.logger.Info("deleted mapping", "category", category, "path", path)
	return nil
}

func (s *Store) read(path string) (*mapping.Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var m mapping.Mapping
	if err := json.UnmarshalRead(f, &m); err != nil {
		return nil, fmt.Errorf("failed to decode mapping document %s: %w", filepath.Base(path), err)
	}
	if m.KeyMap == nil {
		m.KeyMap = make(map[string]mapping.KeyRule)
	}
	if m.ValueMap == nil {
		m.ValueMap = make(map[string]map[string]string)
	}
	if m.Constants == nil {
		m.Constants = make(map[string]string)
	}
	return &m, nil
}

func containsEither(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
