package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/ordermap/ordermap-server/internal/config"
	"github.com/ordermap/ordermap-server/internal/corpus"
	"github.com/ordermap/ordermap-server/internal/logger"
	"github.com/ordermap/ordermap-server/internal/mappings"
	"github.com/ordermap/ordermap-server/internal/match"
	"github.com/ordermap/ordermap-server/internal/store"
)

// CorpusHandle wraps the training corpus store with shutdown capability.
type CorpusHandle struct {
	*corpus.Store
}

// Shutdown implements do.Shutdownable.
func (h *CorpusHandle) Shutdown() error {
	return h.Close()
}

// ProvideCorpus provides the training corpus store.
func ProvideCorpus(i do.Injector) (*CorpusHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	db, err := corpus.Open(cfg.Data.CorpusPath, log)
	if err != nil {
		return nil, err
	}

	log.Info("Training corpus opened", "path", cfg.Data.CorpusPath)

	return &CorpusHandle{Store: db}, nil
}

// StoreHandle wraps the record store with shutdown capability.
type StoreHandle struct {
	*store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the record store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	db, err := store.New(cfg.Data.RecordsPath, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Record store opened", "path", cfg.Data.RecordsPath)

	return &StoreHandle{Store: db}, nil
}

// ProvideMappingStore provides the mapping document store.
func ProvideMappingStore(i do.Injector) (*mappings.Store, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return mappings.NewStore(cfg.Data.MappingsDir, log)
}

// MatcherHandle wraps the category matcher with shutdown capability.
type MatcherHandle struct {
	*match.Matcher
}

// Shutdown implements do.Shutdownable.
func (h *MatcherHandle) Shutdown() error {
	return h.Close()
}

// ProvideMatcher provides the fuzzy category matcher over the mapping store.
func ProvideMatcher(i do.Injector) (*MatcherHandle, error) {
	mappingStore := do.MustInvoke[*mappings.Store](i)
	log := do.MustInvoke[*logger.Logger](i)

	matcher, err := match.NewMatcher(mappingStore, log)
	if err != nil {
		return nil, err
	}

	return &MatcherHandle{Matcher: matcher}, nil
}

// WatcherHandle wraps the mappings directory watcher with its context for
// lifecycle management.
type WatcherHandle struct {
	*mappings.Watcher
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *WatcherHandle) Shutdown() error {
	h.cancel()
	return h.Watcher.Close()
}

// ProvideMappingsWatcher provides the watcher that rebuilds the match index
// when mapping documents change on disk behind the server's back.
func ProvideMappingsWatcher(i do.Injector) (*WatcherHandle, error) {
	mappingStore := do.MustInvoke[*mappings.Store](i)
	matcherHandle := do.MustInvoke[*MatcherHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	watcher, err := mappings.NewWatcher(mappingStore, log, func() {
		if err := matcherHandle.Rebuild(); err != nil {
			log.Warn("Failed to rebuild match index after mappings change", "error", err)
		}
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	watcher.Start(ctx)

	log.Info("Mappings watcher started")

	return &WatcherHandle{
		Watcher: watcher,
		cancel:  cancel,
	}, nil
}
