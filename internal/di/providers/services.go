package providers

import (
	"github.com/samber/do/v2"

	"github.com/ordermap/ordermap-server/internal/config"
	"github.com/ordermap/ordermap-server/internal/logger"
	"github.com/ordermap/ordermap-server/internal/mappings"
	"github.com/ordermap/ordermap-server/internal/oracle"
	"github.com/ordermap/ordermap-server/internal/service"
)

// ProvideOracle provides the suggestion oracle. Without an API key the
// oracle is a no-op and learning simply produces no suggestions.
func ProvideOracle(i do.Injector) (oracle.Oracle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	if cfg.Oracle.APIKey == "" {
		log.Info("No oracle API key configured, suggestions disabled")
		return oracle.Noop{}, nil
	}

	client := oracle.NewOpenAIClient(oracle.OpenAIConfig{
		BaseURL: cfg.Oracle.BaseURL,
		Model:   cfg.Oracle.Model,
		APIKey:  cfg.Oracle.APIKey,
		Timeout: cfg.Oracle.Timeout,
	}, log)

	log.Info("Suggestion oracle configured",
		"base_url", cfg.Oracle.BaseURL, "model", cfg.Oracle.Model)

	// Responses are cached by category and unmapped key set, so re-learning
	// a category does not repeat the upstream call.
	return oracle.NewCached(client, storeHandle.Store, log), nil
}

// ProvideLearnService provides the learning service.
func ProvideLearnService(i do.Injector) (*service.LearnService, error) {
	corpusHandle := do.MustInvoke[*CorpusHandle](i)
	mappingStore := do.MustInvoke[*mappings.Store](i)
	matcherHandle := do.MustInvoke[*MatcherHandle](i)
	orc := do.MustInvoke[oracle.Oracle](i)
	log := do.MustInvoke[*logger.Logger](i)

	svc := service.NewLearnService(corpusHandle.Store, mappingStore, orc, log)
	svc.SetInvalidate(func() {
		if err := matcherHandle.Rebuild(); err != nil {
			log.Warn("Failed to rebuild match index after learn", "error", err)
		}
	})

	return svc, nil
}

// ProvideTranslateService provides the translation service.
func ProvideTranslateService(i do.Injector) (*service.TranslateService, error) {
	matcherHandle := do.MustInvoke[*MatcherHandle](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewTranslateService(matcherHandle.Matcher, storeHandle.Store, log), nil
}
