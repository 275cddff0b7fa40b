package main

import (
	"fmt"
	"time"

	"github.com/pkgscout/pkgscout/internal/analyzer"
	"github.com/pkgscout/pkgscout/internal/config"
	"github.com/pkgscout/pkgscout/internal/forge"
	"github.com/pkgscout/pkgscout/internal/llm"
	"github.com/pkgscout/pkgscout/internal/matcher"
	"github.com/pkgscout/pkgscout/internal/notify"
	"github.com/pkgscout/pkgscout/internal/pipeline"
	"github.com/pkgscout/pkgscout/internal/storage"
)

// app bundles the wired services one command invocation uses.
type app struct {
	cfg    *config.Config
	store  storage.Storage
	pool   *llm.Pool
	runner *pipeline.Runner
}

// newApp loads configuration and wires the full pipeline. Callers must
// close it.
func newApp() (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	store, err := storage.New(&storage.Config{Path: cfg.DBPath})
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	creds := make([]llm.CredentialConfig, 0, len(cfg.Credentials))
	for _, c := range cfg.Credentials {
		creds = append(creds, llm.CredentialConfig{
			Label:  c.Label,
			APIKey: c.APIKey,
			Model:  c.Model,
		})
	}
	pool, err := llm.NewPool(llm.Config{
		Credentials:   creds,
		Quota:         cfg.PoolQuota,
		Window:        cfg.PoolWindow,
		MaxConcurrent: cfg.PoolMaxConcurrent,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("initializing credential pool: %w", err)
	}

	fc := forge.NewHTTPClient(forge.ClientConfig{
		BaseURL: cfg.ForgeBaseURL,
		Token:   cfg.ForgeToken,
		RPS:     cfg.ForgeRPS,
		Timeout: 30 * time.Second,
	})

	an := analyzer.New(pool, fc, cfg.ManifestPath)
	ma := matcher.New(pool, fc, cfg.RelevanceThreshold)
	gate := notify.New(store, fc, cfg.Cooldown)

	runner := pipeline.New(store, fc, an, ma, gate, pipeline.Config{
		BatchSize:      cfg.BatchSize,
		Topics:         cfg.Topics,
		ScoreThreshold: cfg.ScoreThreshold,
		Language:       cfg.Language,
	})

	return &app{cfg: cfg, store: store, pool: pool, runner: runner}, nil
}

// openStore opens just the store, for read-only commands.
func openStore() (storage.Storage, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	store, err := storage.New(&storage.Config{Path: cfg.DBPath})
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}
	return store, nil
}

func (a *app) close() {
	a.pool.Close()
	_ = a.store.Close()
}
