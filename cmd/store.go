package main

import (
	"context"
	"time"

	"github.com/harbor-legal/docketwatch/internal/config"
	"github.com/harbor-legal/docketwatch/internal/docket"
	"github.com/harbor-legal/docketwatch/internal/enrich"
	"github.com/harbor-legal/docketwatch/internal/source"
	"github.com/harbor-legal/docketwatch/internal/store"
)

// openStore connects the Postgres store using the loaded configuration.
func openStore(ctx context.Context) (*store.Postgres, error) {
	return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &cfg.Store.Pool, cfg.Store.Tables.Tables())
}

// buildEngine wires the full sync pipeline from configuration.
func buildEngine(st *store.Postgres, c *config.Config) *docket.Engine {
	fetcher := source.NewFetcher(source.NewClient(source.ClientOptions{
		BaseURL:    c.Source.BaseURL,
		AppToken:   c.Source.AppToken,
		PageLimit:  c.Source.PageLimit,
		MaxRetries: c.Source.MaxRetries,
		RatePerSec: c.Source.RatePerSec,
	}))

	worker := enrich.NewHTTPWorker(c.OCR.WorkerURL, time.Duration(c.OCR.TimeoutSecs)*time.Second)

	return docket.NewEngine(st, fetcher, worker, docket.Config{
		DailyQuota:    c.Sync.DailyQuota,
		ThrottleDelay: c.Sync.ThrottleDelay(),
		FailureCap:    c.Sync.FailureCap,
		GracePeriod:   c.Sync.GracePeriod,
	})
}
