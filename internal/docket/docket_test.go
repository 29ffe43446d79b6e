package docket

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/harbor-legal/docketwatch/internal/model"
	"github.com/harbor-legal/docketwatch/internal/store"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

var testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

// fakeStore is an in-memory store.Store. Patches are both recorded for
// assertions and applied, so multi-pass tests see their own writes.
type fakeStore struct {
	clients       []model.Client
	cases         map[string]*model.CaseRecord // keyed by ticket number
	patches       map[string][]*store.CasePatch
	status        model.SyncStatus
	statusPatches []*store.StatusPatch
	lockDenied    bool
	lockHeld      bool
	listErr       error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		cases:   make(map[string]*model.CaseRecord),
		patches: make(map[string][]*store.CasePatch),
		status:  model.SyncStatus{ID: model.SyncStatusID},
	}
}

func (f *fakeStore) ListClients(context.Context) ([]model.Client, error) {
	return f.clients, nil
}

func (f *fakeStore) GetCaseByTicket(_ context.Context, ticket string) (*model.CaseRecord, error) {
	if rec, ok := f.cases[ticket]; ok {
		cp := *rec
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeStore) InsertCase(_ context.Context, rec *model.CaseRecord) error {
	if _, exists := f.cases[rec.TicketNumber]; exists {
		return fmt.Errorf("duplicate ticket %s", rec.TicketNumber)
	}
	cp := *rec
	f.cases[rec.TicketNumber] = &cp
	return nil
}

func (f *fakeStore) UpdateCase(_ context.Context, id string, patch *store.CasePatch) error {
	f.patches[id] = append(f.patches[id], patch)
	for _, rec := range f.cases {
		if rec.ID == id {
			applyCasePatch(rec, patch)
			return nil
		}
	}
	return fmt.Errorf("no such record %s", id)
}

func (f *fakeStore) ListActiveCases(context.Context) ([]model.CaseRecord, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []model.CaseRecord
	for _, rec := range f.cases {
		if !rec.IsArchived {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (f *fakeStore) ListEnrichmentCandidates(context.Context) ([]model.CaseRecord, error) {
	var out []model.CaseRecord
	for _, rec := range f.cases {
		if rec.IsArchived {
			continue
		}
		if rec.OCRStatus == model.OCRPending || (rec.OCRStatus == "" && rec.Narrative == "") {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (f *fakeStore) GetSyncStatus(context.Context) (*model.SyncStatus, error) {
	cp := f.status
	return &cp, nil
}

func (f *fakeStore) UpdateSyncStatus(_ context.Context, patch *store.StatusPatch) error {
	f.statusPatches = append(f.statusPatches, patch)
	if patch.OCRProcessedToday != nil {
		f.status.OCRProcessedToday = *patch.OCRProcessedToday
	}
	if patch.OCRProcessedDate != nil {
		f.status.OCRProcessedDate = *patch.OCRProcessedDate
	}
	if patch.LastRunSuccess != nil {
		f.status.LastRunSuccess = patch.LastRunSuccess
	}
	if patch.LastRunError != nil {
		f.status.LastRunError = *patch.LastRunError
	}
	return nil
}

func (f *fakeStore) TryRunLock(context.Context) (bool, error) {
	if f.lockDenied {
		return false, nil
	}
	f.lockHeld = true
	return true, nil
}

func (f *fakeStore) ReleaseRunLock(context.Context) error {
	f.lockHeld = false
	return nil
}

func (f *fakeStore) Close() {}

func applyCasePatch(rec *model.CaseRecord, p *store.CasePatch) {
	if p.Status != nil {
		rec.Status = *p.Status
	}
	if p.HearingDate != nil {
		rec.HearingDate = *p.HearingDate
	}
	if p.HearingTime != nil {
		rec.HearingTime = *p.HearingTime
	}
	if p.HearingResult != nil {
		rec.HearingResult = *p.HearingResult
	}
	if p.Violation != nil {
		rec.Violation = *p.Violation
	}
	if p.AmountDue != nil {
		rec.AmountDue = *p.AmountDue
	}
	if p.AmountPaid != nil {
		rec.AmountPaid = *p.AmountPaid
	}
	if p.OCRStatus != nil {
		rec.OCRStatus = *p.OCRStatus
	}
	if p.OCRFailureCount != nil {
		rec.OCRFailureCount = *p.OCRFailureCount
	}
	if p.OCRFailureReason != nil {
		rec.OCRFailureReason = *p.OCRFailureReason
	}
	if p.LastScanDate != nil {
		rec.LastScanDate = p.LastScanDate
	}
	if p.APIMissCount != nil {
		rec.APIMissCount = *p.APIMissCount
	}
	if p.IsArchived != nil {
		rec.IsArchived = *p.IsArchived
	}
	if p.ArchivedAt != nil {
		rec.ArchivedAt = p.ArchivedAt
	}
	if p.ArchivedReason != nil {
		rec.ArchivedReason = *p.ArchivedReason
	}
	if p.LastMetadataSync != nil {
		rec.LastMetadataSync = p.LastMetadataSync
	}
	if p.LastChangeSummary != nil {
		rec.LastChangeSummary = *p.LastChangeSummary
	}
	if p.LastChangeAt != nil {
		rec.LastChangeAt = p.LastChangeAt
	}
	rec.ActivityLog = append(rec.ActivityLog, p.AppendActivity...)
}

func TestQuotaTracker_SameDayCountsDown(t *testing.T) {
	st := newFakeStore()
	st.status.OCRProcessedToday = 120
	st.status.OCRProcessedDate = model.QuotaDate(testNow)

	q := NewQuotaTracker(st, 500)
	q.now = fixedNow

	remaining, err := q.Remaining(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 380, remaining)
	assert.Empty(t, st.statusPatches, "no reset write on the same day")
}

func TestQuotaTracker_ResetsOncePerNewDay(t *testing.T) {
	st := newFakeStore()
	st.status.OCRProcessedToday = 499
	st.status.OCRProcessedDate = "2026-04-30"

	q := NewQuotaTracker(st, 500)
	q.now = fixedNow

	remaining, err := q.Remaining(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 500, remaining)
	require.Len(t, st.statusPatches, 1)
	assert.Equal(t, 0, *st.statusPatches[0].OCRProcessedToday)
	assert.Equal(t, "2026-05-01", *st.statusPatches[0].OCRProcessedDate)

	// A second read the same day must not reset again.
	remaining, err = q.Remaining(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 500, remaining)
	assert.Len(t, st.statusPatches, 1)
}

func TestQuotaTracker_ConsumeAccumulates(t *testing.T) {
	st := newFakeStore()
	st.status.OCRProcessedToday = 10
	st.status.OCRProcessedDate = model.QuotaDate(testNow)

	q := NewQuotaTracker(st, 500)
	q.now = fixedNow

	require.NoError(t, q.Consume(context.Background(), 25))
	assert.Equal(t, 35, st.status.OCRProcessedToday)

	require.NoError(t, q.Consume(context.Background(), 0))
	assert.Equal(t, 35, st.status.OCRProcessedToday, "zero consumption writes nothing")
}

func TestQuotaTracker_ExhaustedFloorsAtZero(t *testing.T) {
	st := newFakeStore()
	st.status.OCRProcessedToday = 700
	st.status.OCRProcessedDate = model.QuotaDate(testNow)

	q := NewQuotaTracker(st, 500)
	q.now = fixedNow

	remaining, err := q.Remaining(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
}
