package enrich

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/harbor-legal/docketwatch/internal/model"
	"github.com/harbor-legal/docketwatch/internal/store"
)

// caseStore is the slice of the persistence layer the queue needs.
type caseStore interface {
	ListEnrichmentCandidates(ctx context.Context) ([]model.CaseRecord, error)
	UpdateCase(ctx context.Context, id string, patch *store.CasePatch) error
}

// Summary reports what one enrichment pass did. QuotaUsed counts completed
// worker calls only; safety skips and failures do not consume quota.
type Summary struct {
	Eligible      int `json:"eligible"`
	ExcludedByCap int `json:"excluded_by_cap"`
	Selected      int `json:"selected"`
	Succeeded     int `json:"succeeded"`
	Failed        int `json:"failed"`
	Skipped       int `json:"skipped"`
	QuotaUsed     int `json:"quota_used"`
}

// Processor runs the enrichment queue: select, order, throttle, invoke.
type Processor struct {
	store      caseStore
	worker     Worker
	failureCap int
	delay      time.Duration
	now        func() time.Time
	log        *zap.Logger
}

// NewProcessor builds a queue processor. delay is the mandatory pause
// between consecutive worker calls.
func NewProcessor(st caseStore, worker Worker, failureCap int, delay time.Duration) *Processor {
	return &Processor{
		store:      st,
		worker:     worker,
		failureCap: failureCap,
		delay:      delay,
		now:        time.Now,
		log:        zap.L().With(zap.String("component", "enrich.queue")),
	}
}

// Process runs one enrichment pass bounded by the remaining daily quota.
// Calls are strictly sequential; per-record failures are counted, never
// fatal. The returned summary is valid even when an error is returned
// part-way through.
func (p *Processor) Process(ctx context.Context, remaining int) (*Summary, error) {
	summary := &Summary{}

	candidates, err := p.store.ListEnrichmentCandidates(ctx)
	if err != nil {
		return summary, err
	}

	now := p.now().UTC()

	var eligible []model.CaseRecord
	for _, rec := range candidates {
		state := model.ComputeOCRState(&rec, p.failureCap)
		switch state.Kind {
		case model.StateExcluded:
			summary.ExcludedByCap++
		case model.StatePending:
			eligible = append(eligible, rec)
		}
	}
	summary.Eligible = len(eligible)

	scores := make(map[string]int, len(eligible))
	for _, rec := range eligible {
		scores[rec.ID] = Score(&rec, now)
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		si, sj := scores[eligible[i].ID], scores[eligible[j].ID]
		if si != sj {
			return si < sj
		}
		return eligible[i].TicketNumber < eligible[j].TicketNumber
	})

	if remaining < 0 {
		remaining = 0
	}
	if len(eligible) > remaining {
		eligible = eligible[:remaining]
	}
	summary.Selected = len(eligible)

	for i := range eligible {
		rec := &eligible[i]

		if i > 0 && p.delay > 0 {
			select {
			case <-ctx.Done():
				return summary, ctx.Err()
			case <-time.After(p.delay):
			}
		}

		p.processOne(ctx, rec, summary)
	}

	return summary, nil
}

// processOne runs one record through the safety check, healing detection,
// and worker invocation, then persists the outcome.
func (p *Processor) processOne(ctx context.Context, rec *model.CaseRecord, summary *Summary) {
	log := p.log.With(zap.String("ticket", rec.TicketNumber))

	// A narrative means enrichment already happened; a complete record slipped
	// in through a scheduling race. Never re-submit it.
	if rec.Narrative != "" && !model.NeedsHealing(rec) {
		patch := &store.CasePatch{OCRStatus: store.Ptr(model.OCRComplete)}
		if err := p.store.UpdateCase(ctx, rec.ID, patch); err != nil {
			log.Error("failed to mark narrative-bearing record complete", zap.Error(err))
			summary.Failed++
			return
		}
		summary.Skipped++
		return
	}

	healing := model.NeedsHealing(rec)
	res, err := p.worker.Enrich(ctx, Request{
		RecordID:      rec.ID,
		TicketNumber:  rec.TicketNumber,
		DocumentLink:  rec.DocumentLink,
		VideoLink:     rec.VideoLink,
		ViolationDate: rec.ViolationDate,
		HealingMode:   healing,
	})

	switch {
	case err != nil:
		p.recordFailure(ctx, rec, err.Error(), summary, log)
	case res.HasOCRData:
		now := p.now().UTC()
		patch := &store.CasePatch{
			OCRStatus:       store.Ptr(model.OCRComplete),
			OCRFailureCount: store.Ptr(0),
			LastScanDate:    store.Ptr(now),
			AppendActivity: []model.ActivityEntry{
				model.NewActivityEntry(now, model.ActivityOCRComplete, "Document text extracted", "", ""),
			},
		}
		if err := p.store.UpdateCase(ctx, rec.ID, patch); err != nil {
			log.Error("failed to persist enrichment success", zap.Error(err))
			summary.Failed++
			return
		}
		summary.Succeeded++
		summary.QuotaUsed++
		log.Info("enrichment complete", zap.Bool("healing", healing))
	case res.Skipped:
		// Completed call, nothing to extract. Quota is spent either way.
		summary.Skipped++
		summary.QuotaUsed++
		log.Info("worker skipped record")
	default:
		reason := res.Error
		if reason == "" {
			reason = "worker reported failure without detail"
		}
		p.recordFailure(ctx, rec, reason, summary, log)
	}
}

func (p *Processor) recordFailure(ctx context.Context, rec *model.CaseRecord, reason string, summary *Summary, log *zap.Logger) {
	now := p.now().UTC()
	patch := &store.CasePatch{
		OCRFailureCount:  store.Ptr(rec.OCRFailureCount + 1),
		OCRFailureReason: store.Ptr(reason),
		OCRFailureAt:     store.Ptr(now),
	}
	if err := p.store.UpdateCase(ctx, rec.ID, patch); err != nil {
		log.Error("failed to persist enrichment failure", zap.Error(err))
	}
	summary.Failed++
	log.Warn("enrichment failed",
		zap.Int("failure_count", rec.OCRFailureCount+1),
		zap.String("reason", reason))
}

// String renders the summary for run logs.
func (s *Summary) String() string {
	return fmt.Sprintf("eligible=%d excluded_by_cap=%d selected=%d succeeded=%d failed=%d skipped=%d quota_used=%d",
		s.Eligible, s.ExcludedByCap, s.Selected, s.Succeeded, s.Failed, s.Skipped, s.QuotaUsed)
}
