package api

import (
	"bytes"
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ordermap/ordermap-server/internal/errors"
)

func (s *Server) registerTrainingRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "ingestTrainingData",
		Method:      http.MethodPost,
		Path:        "/api/v1/training/ingest",
		Summary:     "Ingest training data",
		Description: "Stores paired training rows from a CSV body as a new batch",
		Tags:        []string{"Training"},
	}, s.handleIngestTraining)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteTrainingBatch",
		Method:      http.MethodDelete,
		Path:        "/api/v1/training/batches/{id}",
		Summary:     "Delete training batch",
		Description: "Removes every training row ingested under the given batch",
		Tags:        []string{"Training"},
	}, s.handleDeleteBatch)
}

// IngestInput carries the raw CSV payload.
type IngestInput struct {
	ContentType string `header:"Content-Type"`
	RawBody     []byte
}

// IngestResponse summarizes one accepted training batch.
type IngestResponse struct {
	BatchID    string         `json:"batch_id" doc:"Identifier for deleting this batch later"`
	Rows       int            `json:"rows" doc:"Training rows stored"`
	Skipped    int            `json:"skipped" doc:"Rows discarded for missing fields"`
	ByCategory map[string]int `json:"by_category" doc:"Stored rows per category"`
}

// IngestOutput wraps the ingest response for Huma.
type IngestOutput struct {
	Body IngestResponse
}

func (s *Server) handleIngestTraining(ctx context.Context, input *IngestInput) (*IngestOutput, error) {
	if len(input.RawBody) == 0 {
		return nil, errors.Validation("request body is empty")
	}

	report, err := s.services.Learn.Ingest(ctx, bytes.NewReader(input.RawBody))
	if err != nil {
		return nil, err
	}

	s.logger.Info("training batch ingested",
		"batch", report.BatchID, "rows", report.Rows, "skipped", report.Skipped)

	return &IngestOutput{
		Body: IngestResponse{
			BatchID:    report.BatchID,
			Rows:       report.Rows,
			Skipped:    report.Skipped,
			ByCategory: report.ByCat,
		},
	}, nil
}

// DeleteBatchInput contains parameters for deleting a batch.
type DeleteBatchInput struct {
	ID string `path:"id" doc:"Batch ID"`
}

// DeleteBatchResponse reports how many rows a batch delete removed.
type DeleteBatchResponse struct {
	Deleted int64 `json:"deleted" doc:"Training rows removed"`
}

// DeleteBatchOutput wraps the delete batch response for Huma.
type DeleteBatchOutput struct {
	Body DeleteBatchResponse
}

func (s *Server) handleDeleteBatch(ctx context.Context, input *DeleteBatchInput) (*DeleteBatchOutput, error) {
	deleted, err := s.services.Learn.DeleteBatch(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	return &DeleteBatchOutput{
		Body: DeleteBatchResponse{Deleted: deleted},
	}, nil
}
