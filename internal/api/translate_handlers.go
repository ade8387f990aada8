package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ordermap/ordermap-server/internal/errors"
	"github.com/ordermap/ordermap-server/internal/params"
	"github.com/ordermap/ordermap-server/internal/store"
)

func (s *Server) registerTranslateRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "translateParams",
		Method:      http.MethodPost,
		Path:        "/api/v1/translate",
		Summary:     "Translate parameters",
		Description: "Resolves each item to a learned mapping and translates its parameters to the target schema",
		Tags:        []string{"Translate"},
	}, s.handleTranslate)

	huma.Register(s.api, huma.Operation{
		OperationID: "listRecords",
		Method:      http.MethodGet,
		Path:        "/api/v1/records",
		Summary:     "List translation records",
		Description: "Returns recent translation audit records, newest first",
		Tags:        []string{"Records"},
	}, s.handleListRecords)
}

// ParamsObject carries an ordered parameter object across the wire. JSON
// object key order is preserved on both directions, which plain Go maps
// cannot do.
type ParamsObject struct {
	*params.Map
}

// Schema implements huma.SchemaProvider. The document is a free-form object;
// reflection would otherwise see only unexported fields.
func (ParamsObject) Schema(_ huma.Registry) *huma.Schema {
	return &huma.Schema{
		Type:                 huma.TypeObject,
		AdditionalProperties: true,
	}
}

// MarshalJSON renders the wrapped map, or an empty object when unset.
func (p ParamsObject) MarshalJSON() ([]byte, error) {
	if p.Map == nil {
		return []byte("{}"), nil
	}
	return p.Map.MarshalJSON()
}

// UnmarshalJSON parses into a fresh map.
func (p *ParamsObject) UnmarshalJSON(data []byte) error {
	m := &params.Map{}
	if err := m.UnmarshalJSON(data); err != nil {
		return err
	}
	p.Map = m
	return nil
}

// TranslateItem is one record to translate.
type TranslateItem struct {
	Category    string       `json:"category,omitempty" validate:"required,max=200" doc:"Product category label, resolved fuzzily"`
	Description string       `json:"description,omitempty" validate:"omitempty,max=2000" doc:"Free-text product description, used as a fallback match signal"`
	Parameters  ParamsObject `json:"parameters,omitempty" doc:"Input parameters as an ordered object"`
	Query       string       `json:"query,omitempty" validate:"omitempty,max=10000" doc:"Input parameters as a KEY=VALUE, KEY=VALUE string; ignored when parameters is set"`
}

// TranslateRequest is the request body for translation. Either the single
// item fields or items must be set.
type TranslateRequest struct {
	TranslateItem
	Items []TranslateItem `json:"items,omitempty" validate:"omitempty,dive" doc:"Batch of records to translate; overrides the single item fields"`
}

// TranslateInput wraps the translate request for Huma.
type TranslateInput struct {
	Body TranslateRequest
}

// TranslateResult is the outcome for one translated item.
type TranslateResult struct {
	RecordID          string       `json:"record_id" doc:"Audit record ID"`
	Category          string       `json:"category" doc:"Matched category"`
	Output            ParamsObject `json:"output" doc:"Translated parameters in target schema order"`
	LowConfidenceKeys []string     `json:"low_confidence_keys,omitempty" doc:"Output keys produced from oracle suggestions"`
}

// TranslateResponse contains results for every requested item.
type TranslateResponse struct {
	Results []TranslateResult `json:"results" doc:"One result per item, in request order"`
}

// TranslateOutput wraps the translate response for Huma.
type TranslateOutput struct {
	Body TranslateResponse
}

func (s *Server) handleTranslate(ctx context.Context, input *TranslateInput) (*TranslateOutput, error) {
	items := input.Body.Items
	if len(items) == 0 {
		items = []TranslateItem{input.Body.TranslateItem}
	}

	results := make([]TranslateResult, 0, len(items))
	for i, item := range items {
		if err := s.validate.Validate(item); err != nil {
			return nil, err
		}

		in := item.Parameters.Map
		if in == nil {
			if item.Query == "" {
				return nil, errors.Validationf("item %d: parameters or query is required", i)
			}
			in = params.Parse(item.Query)
		}

		tr, err := s.services.Translate.Translate(ctx, item.Category, item.Description, in)
		if err != nil {
			return nil, err
		}

		results = append(results, TranslateResult{
			RecordID:          tr.RecordID,
			Category:          tr.Category,
			Output:            ParamsObject{tr.Output},
			LowConfidenceKeys: tr.LowConfidence,
		})
	}

	return &TranslateOutput{
		Body: TranslateResponse{Results: results},
	}, nil
}

// ListRecordsInput contains query parameters for listing records.
type ListRecordsInput struct {
	Category string `query:"category" doc:"Filter by matched category"`
	Limit    int    `query:"limit" default:"50" minimum:"1" maximum:"500" doc:"Maximum records to return"`
}

// RecordsResponse contains translation audit records.
type RecordsResponse struct {
	Records []*store.TranslationRecord `json:"records" doc:"Audit records, newest first"`
}

// RecordsOutput wraps the records response for Huma.
type RecordsOutput struct {
	Body RecordsResponse
}

func (s *Server) handleListRecords(ctx context.Context, input *ListRecordsInput) (*RecordsOutput, error) {
	records, err := s.services.Translate.Records(ctx, input.Category, input.Limit)
	if err != nil {
		return nil, err
	}

	return &RecordsOutput{
		Body: RecordsResponse{Records: records},
	}, nil
}
