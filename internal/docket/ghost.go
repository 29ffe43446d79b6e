package docket

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/harbor-legal/docketwatch/internal/diff"
	"github.com/harbor-legal/docketwatch/internal/model"
	"github.com/harbor-legal/docketwatch/internal/store"
)

// Archive reasons, in inference priority order.
const (
	ReasonDismissed     = "dismissed"
	ReasonPaidInFull    = "paid_in_full"
	ReasonHearingClosed = "hearing_closed"
	ReasonMissing       = "missing_from_source"
)

// GhostSummary counts what one ghost scan did.
type GhostSummary struct {
	Scanned  int `json:"scanned"`
	Missing  int `json:"missing"`
	Warned   int `json:"warned"`
	Archived int `json:"archived"`
	Errors   int `json:"errors"`
}

// ghostDetector archives records that stop appearing at the source, after a
// grace period of consecutive misses.
type ghostDetector struct {
	store store.Store
	grace int
	now   func() time.Time
	log   *zap.Logger
}

func newGhostDetector(st store.Store, grace int, now func() time.Time) *ghostDetector {
	return &ghostDetector{
		store: st,
		grace: grace,
		now:   now,
		log:   zap.L().With(zap.String("component", "docket.ghost")),
	}
}

// run scans all non-archived records against the set of ticket numbers
// observed this fetch. Missing records accrue a miss counter; at the grace
// threshold they are archived with an inferred reason.
func (g *ghostDetector) run(ctx context.Context, observed map[string]bool) (*GhostSummary, error) {
	summary := &GhostSummary{}

	records, err := g.store.ListActiveCases(ctx)
	if err != nil {
		return summary, err
	}
	summary.Scanned = len(records)

	for i := range records {
		rec := &records[i]
		if observed[rec.TicketNumber] {
			continue
		}
		summary.Missing++

		misses := rec.APIMissCount + 1
		if misses < g.grace {
			patch := &store.CasePatch{APIMissCount: store.Ptr(misses)}
			if err := g.store.UpdateCase(ctx, rec.ID, patch); err != nil {
				summary.Errors++
				g.log.Error("miss counter update failed", zap.String("ticket", rec.TicketNumber), zap.Error(err))
				continue
			}
			summary.Warned++
			g.log.Warn("record missing from source",
				zap.String("ticket", rec.TicketNumber),
				zap.Int("consecutive_misses", misses),
				zap.Int("grace", g.grace),
			)
			continue
		}

		if err := g.archive(ctx, rec, misses); err != nil {
			summary.Errors++
			g.log.Error("archive failed", zap.String("ticket", rec.TicketNumber), zap.Error(err))
			continue
		}
		summary.Archived++
	}

	return summary, nil
}

func (g *ghostDetector) archive(ctx context.Context, rec *model.CaseRecord, misses int) error {
	now := g.now().UTC()
	reason := archiveReason(rec, now)

	patch := &store.CasePatch{
		APIMissCount:   store.Ptr(misses),
		IsArchived:     store.Ptr(true),
		ArchivedAt:     store.Ptr(now),
		ArchivedReason: store.Ptr(reason),
		AppendActivity: []model.ActivityEntry{
			model.NewActivityEntry(now, model.ActivityArchived,
				fmt.Sprintf("Archived after %d consecutive misses: %s", misses, reason),
				rec.Status, reason),
		},
	}
	if err := g.store.UpdateCase(ctx, rec.ID, patch); err != nil {
		return err
	}

	g.log.Info("record archived",
		zap.String("ticket", rec.TicketNumber),
		zap.String("reason", reason),
	)
	return nil
}

// archiveReason infers why a record disappeared from the source, from its
// last known field values, in priority order.
func archiveReason(rec *model.CaseRecord, now time.Time) string {
	status := strings.ToUpper(rec.Status)
	result := strings.ToUpper(rec.HearingResult)
	if strings.Contains(status, "DISMISS") || strings.Contains(result, "DISMISS") {
		return ReasonDismissed
	}
	if rec.AmountDue.IsZero() && rec.AmountPaid.IsPositive() {
		return ReasonPaidInFull
	}
	if hearing, ok := diff.ParseDate(rec.HearingDate); ok && hearing.Before(now) {
		return ReasonHearingClosed
	}
	return ReasonMissing
}
