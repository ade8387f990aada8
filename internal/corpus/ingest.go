package corpus

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/ordermap/ordermap-server/internal/errors"
	"github.com/ordermap/ordermap-server/internal/id"
)

// IngestReport summarizes one ingest batch.
type IngestReport struct {
	BatchID string         `json:"batch_id"`
	Rows    int            `json:"rows"`
	Skipped int            `json:"skipped"`
	ByCat   map[string]int `json:"by_category"`
}

// csv column aliases accepted in the header, lowercased.
var (
	categoryColumns = []string{"category", "asortment"}
	inputColumns    = []string{"input_params", "input", "source_params"}
	targetColumns   = []string{"target_params", "target", "output_params"}
)

// IngestCSV reads training rows from CSV data and stores them as a new batch.
//
// The first record is a header; category, input, and target columns are
// located by name (several aliases are accepted) and any other columns are
// ignored. Records with a blank category, input, or target are counted as
// skipped rather than failing the batch, since historical exports routinely
// contain incomplete lines.
func (s *Store) IngestCSV(ctx context.Context, r io.Reader) (*IngestReport, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.Validation("empty CSV body")
	}
	if err != nil {
		return nil, errors.Validation("malformed CSV header").WithCause(err)
	}

	catIdx := columnIndex(header, categoryColumns)
	inIdx := columnIndex(header, inputColumns)
	outIdx := columnIndex(header, targetColumns)
	if catIdx < 0 || inIdx < 0 || outIdx < 0 {
		return nil, errors.Validationf(
			"CSV header must name category, input, and target columns, got %v", header)
	}

	batchID, err := id.Generate("batch")
	if err != nil {
		return nil, err
	}

	report := &IngestReport{BatchID: batchID, ByCat: make(map[string]int)}
	var rows []Row

	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Validationf("malformed CSV record at line %d", line).WithCause(err)
		}

		category := strings.TrimSpace(field(rec, catIdx))
		input := strings.TrimSpace(field(rec, inIdx))
		target := strings.TrimSpace(field(rec, outIdx))
		if category == "" || input == "" || target == "" {
			report.Skipped++
			continue
		}

		rows = append(rows, Row{Category: category, InputParams: input, TargetParams: target})
		report.ByCat[category]++
	}

	if len(rows) == 0 {
		return nil, errors.Validation("CSV contains no usable training rows")
	}

	if err := s.AddRows(ctx, batchID, rows); err != nil {
		return nil, fmt.Errorf("store batch: %w", err)
	}
	report.Rows = len(rows)

	s.logger.Info("ingested training batch",
		"batch", batchID, "rows", report.Rows, "skipped", report.Skipped,
		"categories", len(report.ByCat))
	return report, nil
}

func columnIndex(header []string, names []string) int {
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		for _, n := range names {
			if h == n {
				return i
			}
		}
	}
	return -1
}

func field(rec []string, idx int) string {
	if idx < 0 || idx >= len(rec) {
		return ""
	}
	return rec[idx]
}
