package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/rewired-gh/silverroute/internal/albiondata"
	"github.com/rewired-gh/silverroute/internal/analyzer"
	"github.com/rewired-gh/silverroute/internal/arbitrage"
	"github.com/rewired-gh/silverroute/internal/assistant"
	"github.com/rewired-gh/silverroute/internal/catalog"
	"github.com/rewired-gh/silverroute/internal/config"
	"github.com/rewired-gh/silverroute/internal/logger"
	"github.com/rewired-gh/silverroute/internal/storage"
)

// app holds the wired components shared by the commands.
type app struct {
	cfg   *config.Config
	mode  arbitrage.Mode
	store *storage.Storage
	svc   *analyzer.Service
}

// newApp builds every component from cfg.
func newApp(cfg *config.Config) (*app, error) {
	cat, err := catalog.Load(cfg.Catalog.ItemsPath, catalog.Options{
		Locale:         cfg.Catalog.Locale,
		FallbackLocale: cfg.Catalog.FallbackLocale,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	mode, err := arbitrage.ParseMode(cfg.Arbitrage.Mode)
	if err != nil {
		return nil, err
	}
	engine := arbitrage.New(cat, arbitrage.WithMode(mode), arbitrage.WithTopSells(cfg.Arbitrage.TopSells))

	prices := albiondata.NewClient(cfg.Albion.APIBaseURL, cfg.Albion.Cities, cfg.Albion.Timeout, albiondata.ClientConfig{
		Quality:           cfg.Albion.Quality,
		MaxRetries:        cfg.Albion.MaxRetries,
		RetryDelayBase:    cfg.Albion.RetryDelayBase,
		BatchSize:         cfg.Albion.BatchSize,
		RequestsPerMinute: cfg.Albion.RequestsPerMinute,
		MaxQuoteAge:       cfg.Albion.MaxQuoteAge,
	})

	a := &app{cfg: cfg, mode: mode}

	var quotes analyzer.QuoteCache
	if cfg.Cache.Enabled {
		a.store, err = storage.New(cfg.Cache.DBPath, cfg.Albion.Cities)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		quotes = a.store
		logger.Debug("Quote cache at %s (ttl %v)", cfg.Cache.DBPath, cfg.Cache.TTL)
	}

	var extractor assistant.TermExtractor = assistant.Passthrough{}
	if cfg.Assistant.Enabled {
		extractor = assistant.NewOllama(cfg.Assistant.BaseURL, cfg.Assistant.Model, cfg.Assistant.Timeout)
		logger.Info("Assistant enabled (model %s)", cfg.Assistant.Model)
	}

	a.svc = analyzer.New(cat, prices, quotes, engine, extractor, analyzer.Config{
		Cities:    cfg.Albion.Cities,
		QuoteTTL:  cfg.Cache.TTL,
		SearchTTL: cfg.Cache.SearchTTL,
	})
	return a, nil
}

func (a *app) Close() {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		logger.Error("Failed to close storage: %v", err)
	}
}

// runPruner removes expired quotes every interval until ctx is done.
func (a *app) runPruner(ctx context.Context) {
	interval := a.cfg.Cache.PruneInterval
	if a.store == nil || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case tickTime := <-ticker.C:
			removed, err := a.store.Prune(ctx, tickTime.Add(-a.cfg.Cache.TTL))
			if err != nil {
				logger.Warn("Failed to prune quote cache: %v", err)
				continue
			}
			if removed > 0 {
				logger.Debug("Pruned %d cached items", removed)
			}
		}
	}
}
