package api

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns server health status with component checks",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status" doc:"Component status: healthy, degraded, or unhealthy"`
	Latency string `json:"latency,omitempty" doc:"Response time for this component"`
	Message string `json:"message,omitempty" doc:"Additional status information"`
}

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status     string                     `json:"status" doc:"Overall status: healthy, degraded, or unhealthy"`
	Components map[string]ComponentHealth `json:"components" doc:"Individual component statuses"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

func (s *Server) handleHealthCheck(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	components := make(map[string]ComponentHealth)
	overall := "healthy"

	corpusHealth := s.checkCorpus(ctx)
	components["corpus"] = corpusHealth
	if corpusHealth.Status == "unhealthy" {
		overall = "unhealthy"
	}

	recordsHealth := s.checkRecords()
	components["records"] = recordsHealth
	if recordsHealth.Status == "unhealthy" {
		overall = "unhealthy"
	}

	mappingsHealth := s.checkMappings()
	components["mappings"] = mappingsHealth
	if mappingsHealth.Status == "unhealthy" {
		overall = "unhealthy"
	} else if mappingsHealth.Status == "degraded" && overall == "healthy" {
		overall = "degraded"
	}

	return &HealthOutput{
		Body: HealthResponse{
			Status:     overall,
			Components: components,
		},
	}, nil
}

// checkCorpus verifies the training corpus database is accessible.
func (s *Server) checkCorpus(ctx context.Context) ComponentHealth {
	// Handle nil store (e.g., in tests)
	if s.corpus == nil {
		return ComponentHealth{
			Status:  "degraded",
			Message: "corpus not configured",
		}
	}

	start := time.Now()
	err := s.corpus.Ping(ctx)
	latency := time.Since(start)

	if err != nil {
		return ComponentHealth{
			Status:  "unhealthy",
			Latency: latency.String(),
			Message: "corpus database unreachable",
		}
	}

	return ComponentHealth{
		Status:  "healthy",
		Latency: latency.String(),
	}
}

// checkRecords verifies the record store is accessible.
func (s *Server) checkRecords() ComponentHealth {
	if s.records == nil {
		return ComponentHealth{
			Status:  "degraded",
			Message: "record store not configured",
		}
	}

	start := time.Now()
	err := s.records.Ping()
	latency := time.Since(start)

	if err != nil {
		return ComponentHealth{
			Status:  "unhealthy",
			Latency: latency.String(),
			Message: "record store read failed",
		}
	}

	return ComponentHealth{
		Status:  "healthy",
		Latency: latency.String(),
	}
}

// checkMappings verifies the mapping documents directory exists and lists
// how many documents it holds. An empty directory is degraded rather than
// unhealthy: the server works, it just has nothing learned yet.
func (s *Server) checkMappings() ComponentHealth {
	if s.mappings == nil {
		return ComponentHealth{
			Status:  "degraded",
			Message: "mappings not configured",
		}
	}

	if _, err := os.Stat(s.mappings.Dir()); err != nil {
		return ComponentHealth{
			Status:  "unhealthy",
			Message: "mappings directory unreachable",
		}
	}

	categories, err := s.mappings.Categories()
	if err != nil {
		return ComponentHealth{
			Status:  "unhealthy",
			Message: "mappings directory unreadable",
		}
	}
	if len(categories) == 0 {
		return ComponentHealth{
			Status:  "degraded",
			Message: "no mappings learned yet",
		}
	}

	return ComponentHealth{Status: "healthy"}
}
