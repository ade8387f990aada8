// Package di provides dependency injection configuration for the OrderMap server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/ordermap/ordermap-server/internal/config"
	"github.com/ordermap/ordermap-server/internal/di/providers"
	"github.com/ordermap/ordermap-server/internal/logger"
	"github.com/ordermap/ordermap-server/internal/mappings"
	"github.com/ordermap/ordermap-server/internal/oracle"
	"github.com/ordermap/ordermap-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Storage layer
	do.Provide(injector, providers.ProvideCorpus)
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideMappingStore)

	// Matching layer
	do.Provide(injector, providers.ProvideMatcher)
	do.Provide(injector, providers.ProvideMappingsWatcher)

	// Oracle
	do.Provide(injector, providers.ProvideOracle)

	// Business services
	do.Provide(injector, providers.ProvideLearnService)
	do.Provide(injector, providers.ProvideTranslateService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	// Invoke core services to trigger initialization
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.CorpusHandle](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*mappings.Store](injector)
	_ = do.MustInvoke[*providers.MatcherHandle](injector)
	_ = do.MustInvoke[*providers.WatcherHandle](injector)
	_ = do.MustInvoke[oracle.Oracle](injector)

	// Business services
	_ = do.MustInvoke[*service.LearnService](injector)
	_ = do.MustInvoke[*service.TranslateService](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
