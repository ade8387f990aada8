// Package api provides the HTTP API server and handlers for the OrderMap service.
package api

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ordermap/ordermap-server/internal/corpus"
	"github.com/ordermap/ordermap-server/internal/logger"
	"github.com/ordermap/ordermap-server/internal/mappings"
	"github.com/ordermap/ordermap-server/internal/service"
	"github.com/ordermap/ordermap-server/internal/store"
	"github.com/ordermap/ordermap-server/internal/validation"
)

// Services groups the business logic services used by the API server.
type Services struct {
	Learn     *service.LearnService
	Translate *service.TranslateService
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	services *Services
	corpus   *corpus.Store
	records  *store.Store
	mappings *mappings.Store
	validate *validation.Validator
	router   *chi.Mux
	api      huma.API
	logger   *logger.Logger
}

// NewServer creates an HTTP server with all routes configured.
func NewServer(services *Services, corpusStore *corpus.Store, records *store.Store, mappingStore *mappings.Store, log *logger.Logger) *Server {
	s := &Server{
		services: services,
		corpus:   corpusStore,
		records:  records,
		mappings: mappingStore,
		validate: validation.New(),
		router:   chi.NewRouter(),
		logger:   log,
	}

	s.setupMiddleware()

	humaConfig := huma.DefaultConfig("OrderMap API", "1.0.0")
	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.registerHealthRoutes()
	s.registerTrainingRoutes()
	s.registerMappingRoutes()
	s.registerTranslateRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}
