package docket

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/harbor-legal/docketwatch/internal/diff"
	"github.com/harbor-legal/docketwatch/internal/model"
	"github.com/harbor-legal/docketwatch/internal/resolve"
	"github.com/harbor-legal/docketwatch/internal/source"
	"github.com/harbor-legal/docketwatch/internal/store"
)

// MetadataSummary counts what one metadata sync pass did.
type MetadataSummary struct {
	RecordsSeen   int `json:"records_seen"`
	Created       int `json:"created"`
	Updated       int `json:"updated"`
	Unchanged     int `json:"unchanged"`
	Skipped       int `json:"skipped"`
	EnrichFlagged int `json:"enrich_flagged"`
	Errors        int `json:"errors"`
}

// metadataSync creates and updates case records from one fetch pass. It
// never touches enrichment; it only flags records for it.
type metadataSync struct {
	store store.Store
	now   func() time.Time
	log   *zap.Logger
}

func newMetadataSync(st store.Store, now func() time.Time) *metadataSync {
	return &metadataSync{
		store: st,
		now:   now,
		log:   zap.L().With(zap.String("component", "docket.metadata")),
	}
}

// run processes every fetched record: resolve the respondent to a client,
// then create, diff-update, or proof-of-life touch the stored record.
// Per-record store errors are counted and skipped.
func (m *metadataSync) run(ctx context.Context, resolver *resolve.Resolver, records []source.Record) *MetadataSummary {
	summary := &MetadataSummary{RecordsSeen: len(records)}

	for _, rec := range records {
		select {
		case <-ctx.Done():
			return summary
		default:
		}

		name := rec.RespondentName()
		if name == "" {
			summary.Skipped++
			continue
		}

		client, ok := resolver.Resolve(name)
		if !ok {
			summary.Skipped++
			m.log.Debug("unmatched respondent", zap.String("name", name), zap.String("ticket", rec.TicketNumber))
			continue
		}

		existing, err := m.store.GetCaseByTicket(ctx, rec.TicketNumber)
		if err != nil {
			summary.Errors++
			m.log.Error("case lookup failed", zap.String("ticket", rec.TicketNumber), zap.Error(err))
			continue
		}

		if existing == nil {
			if err := m.create(ctx, client, rec); err != nil {
				summary.Errors++
				m.log.Error("case create failed", zap.String("ticket", rec.TicketNumber), zap.Error(err))
				continue
			}
			summary.Created++
			summary.EnrichFlagged++
			continue
		}

		if existing.IsArchived {
			// Reactivation is not supported; an archived ticket reappearing at
			// the source is left alone.
			summary.Skipped++
			m.log.Debug("archived ticket reappeared at source", zap.String("ticket", rec.TicketNumber))
			continue
		}

		m.update(ctx, existing, rec, summary)
	}

	return summary
}

// create builds a new case record fully populated from the fetch.
func (m *metadataSync) create(ctx context.Context, client *model.Client, rec source.Record) error {
	now := m.now().UTC()
	created := &model.CaseRecord{
		ID:             uuid.NewString(),
		TicketNumber:   rec.TicketNumber,
		ClientID:       client.ID,
		RespondentName: rec.RespondentName(),

		Status:        rec.Status,
		HearingDate:   diff.NormalizeDate(rec.HearingDate),
		HearingTime:   rec.HearingTime,
		HearingResult: rec.HearingResult,

		Violation:         rec.Violation,
		ViolationDate:     diff.NormalizeDate(rec.ViolationDate),
		ViolationLocation: rec.ViolationLocation,
		LicensePlate:      rec.LicensePlate,

		BaseFine:       diff.NormalizeMoney(rec.BaseFine),
		AmountDue:      diff.NormalizeMoney(rec.AmountDue),
		AmountPaid:     diff.NormalizeMoney(rec.AmountPaid),
		PenaltyImposed: diff.NormalizeMoney(rec.PenaltyImposed),

		DocumentLink: rec.DocumentLink,
		VideoLink:    rec.VideoLink,

		OCRStatus:        model.OCRPending,
		LastMetadataSync: &now,
		ActivityLog: []model.ActivityEntry{
			model.NewActivityEntry(now, model.ActivityCreated, "Case created from source", "", rec.Status),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	return m.store.InsertCase(ctx, created)
}

// update diffs the stored record against the fetch and writes either the
// full change set or a cheap proof-of-life touch.
func (m *metadataSync) update(ctx context.Context, existing *model.CaseRecord, rec source.Record, summary *MetadataSummary) {
	now := m.now().UTC()
	in := diff.FromSource(rec)
	res := diff.Compare(existing, in)

	patch := &store.CasePatch{LastMetadataSync: store.Ptr(now)}

	if res.HasChanges {
		patch.Status = store.Ptr(in.Status)
		patch.HearingDate = store.Ptr(in.HearingDate)
		patch.HearingTime = store.Ptr(in.HearingTime)
		patch.HearingResult = store.Ptr(in.HearingResult)
		patch.Violation = store.Ptr(in.Violation)
		patch.AmountDue = store.Ptr(in.AmountDue)
		patch.AmountPaid = store.Ptr(in.AmountPaid)
		patch.LastChangeSummary = store.Ptr(res.Summary)
		patch.LastChangeAt = store.Ptr(now)
		patch.AppendActivity = res.Entries(now)
	}

	// A record without a narrative still needs enrichment, whether or not
	// anything else changed.
	if existing.Narrative == "" {
		summary.EnrichFlagged++
		if existing.OCRStatus != model.OCRPending {
			patch.OCRStatus = store.Ptr(model.OCRPending)
		}
	}

	// The record was observed; any ghost warning is stale.
	if existing.APIMissCount != 0 {
		patch.APIMissCount = store.Ptr(0)
	}

	if err := m.store.UpdateCase(ctx, existing.ID, patch); err != nil {
		summary.Errors++
		m.log.Error("case update failed", zap.String("ticket", existing.TicketNumber), zap.Error(err))
		return
	}

	if res.HasChanges {
		summary.Updated++
		m.log.Info("case updated",
			zap.String("ticket", existing.TicketNumber),
			zap.String("changes", res.Summary),
		)
	} else {
		summary.Unchanged++
	}
}
