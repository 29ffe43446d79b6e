// Package docket orchestrates the daily sync run: metadata sync, ghost
// detection, and quota-bounded OCR enrichment, in that order, strictly
// sequentially.
package docket

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/harbor-legal/docketwatch/internal/enrich"
	"github.com/harbor-legal/docketwatch/internal/resolve"
	"github.com/harbor-legal/docketwatch/internal/source"
	"github.com/harbor-legal/docketwatch/internal/store"
)

// ErrRunInProgress is returned when another sync run holds the run lock.
var ErrRunInProgress = eris.New("docket: another sync run is in progress")

// Config holds the engine's numeric knobs.
type Config struct {
	DailyQuota    int
	ThrottleDelay time.Duration
	FailureCap    int
	GracePeriod   int
}

// RunOptions selects which phases a run executes.
type RunOptions struct {
	// MetadataOnly skips ghost detection and enrichment.
	MetadataOnly bool
}

// RunSummary is the machine-readable outcome of one run. Phase summaries
// are nil for phases that did not execute.
type RunSummary struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`

	Clients         int `json:"clients"`
	FetchTerms      int `json:"fetch_terms"`
	FetchTermErrors int `json:"fetch_term_errors"`

	Metadata   *MetadataSummary `json:"metadata,omitempty"`
	Ghost      *GhostSummary    `json:"ghost,omitempty"`
	Enrichment *enrich.Summary  `json:"enrichment,omitempty"`

	QuotaRemaining int `json:"quota_remaining"`
}

// Engine runs the full sync pipeline.
type Engine struct {
	store   store.Store
	fetcher *source.Fetcher
	worker  enrich.Worker
	cfg     Config
	now     func() time.Time
	log     *zap.Logger
}

// NewEngine wires the pipeline together.
func NewEngine(st store.Store, fetcher *source.Fetcher, worker enrich.Worker, cfg Config) *Engine {
	return &Engine{
		store:   st,
		fetcher: fetcher,
		worker:  worker,
		cfg:     cfg,
		now:     time.Now,
		log:     zap.L().With(zap.String("component", "docket.engine")),
	}
}

// Run executes one sync run under the run lock. Phase-internal failures are
// counted in the summary; an error return means the run itself aborted.
// Either way the outcome is recorded into the sync status before returning.
func (e *Engine) Run(ctx context.Context, opts RunOptions) (*RunSummary, error) {
	locked, err := e.store.TryRunLock(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "docket: run lock")
	}
	if !locked {
		return nil, ErrRunInProgress
	}
	defer func() {
		if err := e.store.ReleaseRunLock(ctx); err != nil {
			e.log.Warn("failed to release run lock", zap.Error(err))
		}
	}()

	summary := &RunSummary{StartedAt: e.now().UTC()}
	err = e.run(ctx, opts, summary)
	summary.FinishedAt = e.now().UTC()
	summary.Success = err == nil
	if err != nil {
		summary.Error = err.Error()
		e.log.Error("sync run failed", zap.Error(err))
	}

	e.recordOutcome(ctx, summary)
	return summary, err
}

func (e *Engine) run(ctx context.Context, opts RunOptions, summary *RunSummary) error {
	clients, err := e.store.ListClients(ctx)
	if err != nil {
		return eris.Wrap(err, "docket: load client roster")
	}
	summary.Clients = len(clients)
	if len(clients) == 0 {
		e.log.Info("no clients registered, nothing to sync")
		return nil
	}

	resolver := resolve.NewResolver(clients)
	e.log.Info("run starting",
		zap.Int("clients", len(clients)),
		zap.Int("resolver_keys", resolver.Size()),
		zap.Bool("metadata_only", opts.MetadataOnly),
	)

	fetch, err := e.fetcher.FetchAll(ctx, clients)
	if err != nil {
		return eris.Wrap(err, "docket: fetch source records")
	}
	summary.FetchTerms = fetch.Terms
	summary.FetchTermErrors = fetch.TermErrors

	meta := newMetadataSync(e.store, e.now)
	summary.Metadata = meta.run(ctx, resolver, fetch.Records)
	e.touchStatus(ctx, &store.StatusPatch{LastMetadataAt: store.Ptr(e.now().UTC())})

	if opts.MetadataOnly {
		return ctx.Err()
	}

	ghost := newGhostDetector(e.store, e.cfg.GracePeriod, e.now)
	ghostSummary, err := ghost.run(ctx, fetch.Observed)
	summary.Ghost = ghostSummary
	if err != nil {
		return eris.Wrap(err, "docket: ghost scan")
	}
	e.touchStatus(ctx, &store.StatusPatch{LastGhostScanAt: store.Ptr(e.now().UTC())})

	quota := NewQuotaTracker(e.store, e.cfg.DailyQuota)
	quota.now = e.now
	remaining, err := quota.Remaining(ctx)
	if err != nil {
		return eris.Wrap(err, "docket: read quota")
	}

	processor := enrich.NewProcessor(e.store, e.worker, e.cfg.FailureCap, e.cfg.ThrottleDelay)
	enrichSummary, err := processor.Process(ctx, remaining)
	summary.Enrichment = enrichSummary
	if consumeErr := quota.Consume(ctx, enrichSummary.QuotaUsed); consumeErr != nil {
		e.log.Error("failed to persist quota usage", zap.Error(consumeErr))
	}
	summary.QuotaRemaining = remaining - enrichSummary.QuotaUsed
	if err != nil {
		return eris.Wrap(err, "docket: enrichment pass")
	}
	e.touchStatus(ctx, &store.StatusPatch{LastEnrichmentAt: store.Ptr(e.now().UTC())})

	return ctx.Err()
}

// recordOutcome persists run-level status. Failures here are logged, never
// fatal; the run's result is already decided.
func (e *Engine) recordOutcome(ctx context.Context, summary *RunSummary) {
	patch := &store.StatusPatch{
		LastRunAt:      store.Ptr(summary.StartedAt),
		LastRunSuccess: store.Ptr(summary.Success),
		LastRunError:   store.Ptr(summary.Error),
	}
	if summary.Metadata != nil {
		patch.LastRunCreated = store.Ptr(summary.Metadata.Created)
		patch.LastRunUpdated = store.Ptr(summary.Metadata.Updated)
	}
	if summary.Ghost != nil {
		patch.LastRunArchived = store.Ptr(summary.Ghost.Archived)
	}
	if summary.Enrichment != nil {
		patch.LastRunEnriched = store.Ptr(summary.Enrichment.Succeeded)
	}
	e.touchStatus(ctx, patch)
}

func (e *Engine) touchStatus(ctx context.Context, patch *store.StatusPatch) {
	if err := e.store.UpdateSyncStatus(ctx, patch); err != nil {
		e.log.Error("sync status write failed", zap.Error(err))
	}
}
