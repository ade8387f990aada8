// Package corpus stores ingested training rows in SQLite and turns them into
// per-category training pairs for the learner.
//
// A row is one historical order line: its category, the raw input parameter
// string, and the raw target parameter string it was translated to. Rows are
// grouped into batches so a bad import can be backed out without touching the
// rest of the corpus.
package corpus

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ordermap/ordermap-server/internal/errors"
	"github.com/ordermap/ordermap-server/internal/id"
	"github.com/ordermap/ordermap-server/internal/logger"
	"github.com/ordermap/ordermap-server/internal/mapping"
	"github.com/ordermap/ordermap-server/internal/params"
)

//go:embed schema.sql
var schemaSQL string

// Row is one training example as ingested.
type Row struct {
	ID           string
	BatchID      string
	Category     string
	InputParams  string
	TargetParams string
	CreatedAt    time.Time
}

// Store provides SQLite-backed persistence for the training corpus.
type Store struct {
	db     *sql.DB
	logger *logger.Logger
}

// Open creates or opens the corpus database at path. It configures WAL mode,
// sets pragmas, and runs schema migrations.
func Open(path string, log *logger.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	return &Store{db: db, logger: log}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// rowColumns is the ordered list of columns selected in row queries.
// Must match the scan order in scanRow.
const rowColumns = `id, batch_id, category, input_params, target_params, created_at`

func scanRow(scanner interface{ Scan(dest ...any) error }) (*Row, error) {
	var r Row
	var createdAt string

	err := scanner.Scan(
		&r.ID,
		&r.BatchID,
		&r.Category,
		&r.InputParams,
		&r.TargetParams,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	r.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// AddRows inserts rows under batchID in a single transaction. Row IDs are
// assigned here; Category, InputParams, and TargetParams must be set.
func (s *Store) AddRows(ctx context.Context, batchID string, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO training_rows (`+rowColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, r := range rows {
		rowID, err := id.Generate("row")
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, rowID, batchID, r.Category, r.InputParams, r.TargetParams, now); err != nil {
			return fmt.Errorf("insert training row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.logger.Debug("added training rows", "batch", batchID, "rows", len(rows))
	return nil
}

// Categories returns the distinct categories in the corpus, sorted.
func (s *Store) Categories(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT category FROM training_rows ORDER BY category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CountByCategory returns the number of training rows per category.
func (s *Store) CountByCategory(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT category, COUNT(*) FROM training_rows GROUP BY category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var c string
		var n int
		if err := rows.Scan(&c, &n); err != nil {
			return nil, err
		}
		out[c] = n
	}
	return out, rows.Err()
}

// ListByCategory returns the rows for a category in insertion order.
func (s *Store) ListByCategory(ctx context.Context, category string) ([]*Row, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+rowColumns+` FROM training_rows WHERE category = ? ORDER BY rowid`,
		category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Row
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteBatch removes every row in a batch. Returns ErrNotFound when the
// batch has no rows.
func (s *Store) DeleteBatch(ctx context.Context, batchID string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM training_rows WHERE batch_id = ?`, batchID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, errors.NotFoundf("no training rows in batch %q", batchID)
	}
	s.logger.Info("deleted training batch", "batch", batchID, "rows", n)
	return n, nil
}

// TrainingPairs parses the rows of a category into learner input. Rows whose
// input or target string parses to nothing are skipped, matching ingest
// semantics for unusable lines.
func (s *Store) TrainingPairs(ctx context.Context, category string) ([]mapping.TrainingPair, error) {
	rows, err := s.ListByCategory(ctx, category)
	if err != nil {
		return nil, err
	}

	var pairs []mapping.TrainingPair
	for _, r := range rows {
		in := params.Parse(r.InputParams)
		out := params.Parse(r.TargetParams)
		if in.Len() == 0 || out.Len() == 0 {
			continue
		}
		pairs = append(pairs, mapping.TrainingPair{Input: in, Output: out})
	}
	return pairs, nil
}
