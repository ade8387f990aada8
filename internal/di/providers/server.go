package providers

import (
	"context"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/ordermap/ordermap-server/internal/api"
	"github.com/ordermap/ordermap-server/internal/config"
	"github.com/ordermap/ordermap-server/internal/logger"
	"github.com/ordermap/ordermap-server/internal/mappings"
	"github.com/ordermap/ordermap-server/internal/service"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	corpusHandle := do.MustInvoke[*CorpusHandle](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	mappingStore := do.MustInvoke[*mappings.Store](i)

	services := &api.Services{
		Learn:     do.MustInvoke[*service.LearnService](i),
		Translate: do.MustInvoke[*service.TranslateService](i),
	}

	handler := api.NewServer(services, corpusHandle.Store, storeHandle.Store, mappingStore, log)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv}, nil
}
