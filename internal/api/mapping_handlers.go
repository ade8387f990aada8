package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ordermap/ordermap-server/internal/mapping"
	"github.com/ordermap/ordermap-server/internal/service"
)

func (s *Server) registerMappingRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "learnMappings",
		Method:      http.MethodPost,
		Path:        "/api/v1/mappings/learn",
		Summary:     "Learn mappings",
		Description: "Derives and persists mappings from the training corpus, for one category or all of them",
		Tags:        []string{"Mappings"},
	}, s.handleLearnMappings)

	huma.Register(s.api, huma.Operation{
		OperationID: "listMappings",
		Method:      http.MethodGet,
		Path:        "/api/v1/mappings",
		Summary:     "List mappings",
		Description: "Returns a summary of every stored mapping document",
		Tags:        []string{"Mappings"},
	}, s.handleListMappings)

	huma.Register(s.api, huma.Operation{
		OperationID: "getMapping",
		Method:      http.MethodGet,
		Path:        "/api/v1/mappings/{category}",
		Summary:     "Get mapping",
		Description: "Returns the full mapping document for a category, resolved fuzzily",
		Tags:        []string{"Mappings"},
	}, s.handleGetMapping)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteMapping",
		Method:      http.MethodDelete,
		Path:        "/api/v1/mappings/{category}",
		Summary:     "Delete mapping",
		Tags:        []string{"Mappings"},
	}, s.handleDeleteMapping)
}

// LearnRequest selects what to learn. An empty category means every category
// present in the corpus.
type LearnRequest struct {
	Category string `json:"category,omitempty" validate:"omitempty,max=200" doc:"Single category to learn; empty learns all"`
}

// LearnInput wraps the learn request for Huma.
type LearnInput struct {
	Body LearnRequest
}

// LearnResponse reports what a learn run produced.
type LearnResponse struct {
	Categories []service.CategoryReport `json:"categories" doc:"Per-category learning reports"`
}

// LearnOutput wraps the learn response for Huma.
type LearnOutput struct {
	Body LearnResponse
}

func (s *Server) handleLearnMappings(ctx context.Context, input *LearnInput) (*LearnOutput, error) {
	if err := s.validate.Validate(input.Body); err != nil {
		return nil, err
	}

	reports, err := s.services.Learn.Learn(ctx, input.Body.Category)
	if err != nil {
		return nil, err
	}

	return &LearnOutput{
		Body: LearnResponse{Categories: reports},
	}, nil
}

// MappingSummary describes one stored mapping document.
type MappingSummary struct {
	Category    string `json:"category" doc:"Product category"`
	MappedKeys  int    `json:"mapped_keys" doc:"Learned key rules"`
	Constants   int    `json:"constants" doc:"Constant output keys"`
	Unmapped    int    `json:"unmapped" doc:"Target keys without a learned rule"`
	Suggestions int    `json:"suggestions" doc:"Oracle suggestions on file"`
}

// MappingListResponse contains mapping summaries.
type MappingListResponse struct {
	Mappings []MappingSummary `json:"mappings" doc:"Stored mapping documents"`
}

// MappingListOutput wraps the mapping list response for Huma.
type MappingListOutput struct {
	Body MappingListResponse
}

func (s *Server) handleListMappings(ctx context.Context, _ *struct{}) (*MappingListOutput, error) {
	docs, err := s.services.Learn.Mappings(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]MappingSummary, 0, len(docs))
	for _, m := range docs {
		summaries = append(summaries, MappingSummary{
			Category:    m.Category,
			MappedKeys:  len(m.KeyMap),
			Constants:   len(m.Constants),
			Unmapped:    len(m.Unmapped),
			Suggestions: len(m.OracleSuggestions),
		})
	}

	return &MappingListOutput{
		Body: MappingListResponse{Mappings: summaries},
	}, nil
}

// GetMappingInput contains parameters for fetching a mapping.
type GetMappingInput struct {
	Category string `path:"category" doc:"Category name or slug"`
}

// MappingOutput wraps a full mapping document for Huma.
type MappingOutput struct {
	Body mapping.Mapping
}

func (s *Server) handleGetMapping(ctx context.Context, input *GetMappingInput) (*MappingOutput, error) {
	m, err := s.services.Learn.Mapping(ctx, input.Category)
	if err != nil {
		return nil, err
	}

	return &MappingOutput{Body: *m}, nil
}

// DeleteMappingInput contains parameters for deleting a mapping.
type DeleteMappingInput struct {
	Category string `path:"category" doc:"Category name or slug"`
}

// MessageResponse contains a simple message.
type MessageResponse struct {
	Message string `json:"message" doc:"Success message"`
}

// MessageOutput wraps the message response for Huma.
type MessageOutput struct {
	Body MessageResponse
}

func (s *Server) handleDeleteMapping(ctx context.Context, input *DeleteMappingInput) (*MessageOutput, error) {
	if err := s.services.Learn.DeleteMapping(ctx, input.Category); err != nil {
		return nil, err
	}

	return &MessageOutput{
		Body: MessageResponse{Message: "Mapping deleted"},
	}, nil
}
