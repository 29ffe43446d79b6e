package docket

import (
	"context"
	"time"

	"github.com/harbor-legal/docketwatch/internal/model"
	"github.com/harbor-legal/docketwatch/internal/store"
)

// QuotaTracker bounds how many enrichment calls a day may issue. The used
// counter lives in the singleton sync status; the date field guards the
// reset so it happens exactly once per UTC calendar day, never mid-day.
type QuotaTracker struct {
	store    store.Store
	maxDaily int
	now      func() time.Time
}

// NewQuotaTracker builds a tracker over the given store.
func NewQuotaTracker(st store.Store, maxDaily int) *QuotaTracker {
	return &QuotaTracker{store: st, maxDaily: maxDaily, now: time.Now}
}

// Remaining reads the singleton status, resets the counter if the stored
// date is not today, and returns how many enrichment calls are left.
func (q *QuotaTracker) Remaining(ctx context.Context) (int, error) {
	status, err := q.store.GetSyncStatus(ctx)
	if err != nil {
		return 0, err
	}

	today := model.QuotaDate(q.now())
	used := status.OCRProcessedToday
	if status.OCRProcessedDate != today {
		used = 0
		err := q.store.UpdateSyncStatus(ctx, &store.StatusPatch{
			OCRProcessedToday: store.Ptr(0),
			OCRProcessedDate:  store.Ptr(today),
		})
		if err != nil {
			return 0, err
		}
	}

	remaining := q.maxDaily - used
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// Consume records n completed enrichment calls against today's counter.
func (q *QuotaTracker) Consume(ctx context.Context, n int) error {
	if n <= 0 {
		return nil
	}
	status, err := q.store.GetSyncStatus(ctx)
	if err != nil {
		return err
	}

	today := model.QuotaDate(q.now())
	used := status.OCRProcessedToday
	if status.OCRProcessedDate != today {
		used = 0
	}
	return q.store.UpdateSyncStatus(ctx, &store.StatusPatch{
		OCRProcessedToday: store.Ptr(used + n),
		OCRProcessedDate:  store.Ptr(today),
	})
}
