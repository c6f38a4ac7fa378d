package main

import (
	"time"

	"github.com/rs/zerolog"

	"askd/internal/config"
	"askd/internal/fetch"
	"askd/internal/profile"
	"askd/internal/registry"
	"askd/internal/runtime/llama"
	"askd/internal/runtime/openai"
	"askd/internal/session"
	"askd/pkg/types"
)

// service is the session plus the catalog it was built from; it satisfies
// httpapi.Service and httpapi.ModelLister.
type service struct {
	*session.Session
	catalog *registry.Catalog
}

func (s *service) Models() []types.Model { return s.catalog.Models() }

// loadCatalog returns the configured catalog merged with any local models.
func loadCatalog(cfg config.Config) (*registry.Catalog, error) {
	cat := registry.Builtin()
	if cfg.CatalogPath != "" {
		c, err := registry.LoadFile(cfg.CatalogPath)
		if err != nil {
			return nil, err
		}
		cat = c
	}
	if cfg.ModelsDir != "" {
		local, err := registry.LoadDir(cfg.ModelsDir)
		if err != nil {
			return nil, err
		}
		return cat.Merge(local)
	}
	return cat, nil
}

func newAcquirer(cfg config.Config, cat *registry.Catalog, log zerolog.Logger) session.Acquirer {
	if cfg.Backend == config.BackendOpenAI {
		return openai.New(openai.Options{
			BaseURL: cfg.OpenAIBaseURL,
			APIKey:  cfg.OpenAIAPIKey,
			Logger:  &log,
		})
	}
	return llama.New(llama.Options{
		Catalog:     cat,
		CacheDir:    cfg.CacheDir,
		ContextSize: cfg.ContextSize,
		Threads:     cfg.Threads,
		Fetch: fetch.Options{
			Concurrency:  cfg.FetchConcurrency,
			RetryMax:     cfg.FetchRetries,
			RetryWaitMin: 500 * time.Millisecond,
			RetryWaitMax: 10 * time.Second,
		},
		Logger: &log,
	})
}

// buildService wires configuration into a ready-to-load session.
func buildService(cfg config.Config, log zerolog.Logger) (*service, error) {
	cat, err := loadCatalog(cfg)
	if err != nil {
		return nil, err
	}
	system, err := profile.Load(cfg.ProfilePath)
	if err != nil {
		return nil, err
	}
	s := session.New(session.Config{
		ModelID:        cfg.ModelID,
		Acquirer:       newAcquirer(cfg, cat, log),
		SystemContext:  system,
		TokenCeiling:   cfg.TokenCeiling,
		WordsPerToken:  cfg.WordsPerToken,
		MaxNewTokens:   cfg.MaxNewTokens,
		Temperature:    cfg.Temperature,
		MinResponseLen: cfg.MinResponseLen,
		Logger:         &log,
	})
	return &service{Session: s, catalog: cat}, nil
}
