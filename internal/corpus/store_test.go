package corpus

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ordermap/ordermap-server/internal/errors"
	"github.com/ordermap/ordermap-server/internal/logger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "corpus.db")
	s, err := Open(dbPath, logger.New(logger.Config{Writer: io.Discard}))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_Pragmas(t *testing.T) {
	s := newTestStore(t)

	var journalMode string
	if err := s.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("journal_mode = %q, want wal", journalMode)
	}
}

func TestAddRowsAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rows := []Row{
		{Category: "Roller Blinds", InputParams: "WIDTH=450", TargetParams: "W=45"},
		{Category: "Roller Blinds", InputParams: "WIDTH=620", TargetParams: "W=62"},
		{Category: "Pleats", InputParams: "COLOR=RED", TargetParams: "KOLOR=RED"},
	}
	if err := s.AddRows(ctx, "batch-1", rows); err != nil {
		t.Fatalf("add rows: %v", err)
	}

	got, err := s.ListByCategory(ctx, "Roller Blinds")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d rows, want 2", len(got))
	}
	if got[0].InputParams != "WIDTH=450" || got[1].InputParams != "WIDTH=620" {
		t.Errorf("rows out of insertion order: %q, %q", got[0].InputParams, got[1].InputParams)
	}
	if got[0].ID == "" || got[0].BatchID != "batch-1" {
		t.Errorf("row identity not populated: id=%q batch=%q", got[0].ID, got[0].BatchID)
	}
	if got[0].CreatedAt.IsZero() {
		t.Error("created_at not populated")
	}
}

func TestCategoriesAndCounts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rows := []Row{
		{Category: "Roller Blinds", InputParams: "A=1", TargetParams: "B=1"},
		{Category: "Roller Blinds", InputParams: "A=2", TargetParams: "B=2"},
		{Category: "Pleats", InputParams: "A=3", TargetParams: "B=3"},
	}
	if err := s.AddRows(ctx, "batch-1", rows); err != nil {
		t.Fatalf("add rows: %v", err)
	}

	cats, err := s.Categories(ctx)
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	if len(cats) != 2 || cats[0] != "Pleats" || cats[1] != "Roller Blinds" {
		t.Errorf("categories = %v, want [Pleats, Roller Blinds]", cats)
	}

	counts, err := s.CountByCategory(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts["Roller Blinds"] != 2 || counts["Pleats"] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestDeleteBatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.AddRows(ctx, "batch-1", []Row{
		{Category: "Pleats", InputParams: "A=1", TargetParams: "B=1"},
	}); err != nil {
		t.Fatalf("add rows: %v", err)
	}
	if err := s.AddRows(ctx, "batch-2", []Row{
		{Category: "Pleats", InputParams: "A=2", TargetParams: "B=2"},
	}); err != nil {
		t.Fatalf("add rows: %v", err)
	}

	n, err := s.DeleteBatch(ctx, "batch-1")
	if err != nil {
		t.Fatalf("delete batch: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d rows, want 1", n)
	}

	rows, err := s.ListByCategory(ctx, "Pleats")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 || rows[0].BatchID != "batch-2" {
		t.Errorf("surviving rows = %+v", rows)
	}

	if _, err := s.DeleteBatch(ctx, "batch-1"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("delete missing batch: got %v, want ErrNotFound", err)
	}
}

func TestTrainingPairs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rows := []Row{
		{Category: "Pleats", InputParams: "WIDTH=450, COLOR=RED", TargetParams: "W=45, KOLOR=RED"},
		{Category: "Pleats", InputParams: "no equals sign here", TargetParams: "W=62"},
		{Category: "Pleats", InputParams: "WIDTH=620", TargetParams: "W=62"},
	}
	if err := s.AddRows(ctx, "batch-1", rows); err != nil {
		t.Fatalf("add rows: %v", err)
	}

	pairs, err := s.TrainingPairs(ctx, "Pleats")
	if err != nil {
		t.Fatalf("training pairs: %v", err)
	}
	if len(pairs) != 2 {
		t.Fatalf("got %d pairs, want 2 (unparseable row skipped)", len(pairs))
	}
	if v, ok := pairs[0].Input.Get("WIDTH"); !ok || v.Text() != "450" {
		t.Errorf("first pair input WIDTH = %q", v.Text())
	}
	if v, ok := pairs[0].Output.Get("KOLOR"); !ok || v.Text() != "RED" {
		t.Errorf("first pair output KOLOR = %q", v.Text())
	}
}

func TestIngestCSV(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	body := strings.Join([]string{
		`order_id,category,input_params,target_params`,
		`1,Roller Blinds,"WIDTH=450, COLOR=RED","W=45, KOLOR=RED"`,
		`2,Roller Blinds,"WIDTH=620, COLOR=BLUE","W=62, KOLOR=BLUE"`,
		`3,Pleats,"WIDTH=300","W=30"`,
		`4,,"WIDTH=100","W=10"`,
	}, "\n")

	report, err := s.IngestCSV(ctx, strings.NewReader(body))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if report.Rows != 3 {
		t.Errorf("rows = %d, want 3", report.Rows)
	}
	if report.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", report.Skipped)
	}
	if report.ByCat["Roller Blinds"] != 2 || report.ByCat["Pleats"] != 1 {
		t.Errorf("by_category = %v", report.ByCat)
	}
	if !strings.HasPrefix(report.BatchID, "batch-") {
		t.Errorf("batch id = %q", report.BatchID)
	}

	rows, err := s.ListByCategory(ctx, "Roller Blinds")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("stored %d rows, want 2", len(rows))
	}
}

func TestIngestCSV_Errors(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.IngestCSV(ctx, strings.NewReader("")); !errors.Is(err, errors.ErrValidation) {
		t.Errorf("empty body: got %v, want ErrValidation", err)
	}

	noCols := "a,b,c\n1,2,3\n"
	if _, err := s.IngestCSV(ctx, strings.NewReader(noCols)); !errors.Is(err, errors.ErrValidation) {
		t.Errorf("missing columns: got %v, want ErrValidation", err)
	}

	onlyHeader := "category,input_params,target_params\n"
	if _, err := s.IngestCSV(ctx, strings.NewReader(onlyHeader)); !errors.Is(err, errors.ErrValidation) {
		t.Errorf("no rows: got %v, want ErrValidation", err)
	}
}
