package enrich

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

type fakeStore struct {
	candidates []model.CaseRecord
	patches    map[string][]*store.CasePatch
	failUpdate bool
}

func (f *fakeStore) ListEnrichmentCandidates(_ context.Context) ([]model.CaseRecord, error) {
	return f.candidates, nil
}

func (f *fakeStore) UpdateCase(_ context.Context, id string, patch *store.CasePatch) error {
	if f.failUpdate {
		return fmt.Errorf("write refused")
	}
	if f.patches == nil {
		f.patches = make(map[string][]*store.CasePatch)
	}
	f.patches[id] = append(f.patches[id], patch)
	return nil
}

type fakeWorker struct {
	requests []Request
	results  map[string]*Result
	err      error
}

func (f *fakeWorker) Enrich(_ context.Context, req Request) (*Result, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	if res, ok := f.results[req.TicketNumber]; ok {
		return res, nil
	}
	return &Result{HasOCRData: true}, nil
}

func newTestProcessor(st *fakeStore, w Worker) *Processor {
	p := NewProcessor(st, w, 3, 0)
	p.now = func() time.Time { return scoreNow }
	return p
}

func pendingRec(id, ticket string, hearingDays int) model.CaseRecord {
	rec := *recWithHearing(hearingDays)
	rec.ID = id
	rec.TicketNumber = ticket
	rec.OCRStatus = model.OCRPending
	return rec
}

func TestProcess_FailureCapExcludes(t *testing.T) {
	capped := pendingRec("r1", "TKT-1", 10)
	capped.OCRFailureCount = 3
	st := &fakeStore{candidates: []model.CaseRecord{capped, pendingRec("r2", "TKT-2", 10)}}
	w := &fakeWorker{}

	summary, err := newTestProcessor(st, w).Process(context.Background(), 100)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.ExcludedByCap)
	assert.Equal(t, 1, summary.Eligible)
	require.Len(t, w.requests, 1)
	assert.Equal(t, "TKT-2", w.requests[0].TicketNumber)
}

func TestProcess_QuotaBoundsSelectionInPriorityOrder(t *testing.T) {
	st := &fakeStore{candidates: []model.CaseRecord{
		pendingRec("r1", "TKT-1", 60),
		pendingRec("r2", "TKT-2", 2),
		pendingRec("r3", "TKT-3", 20),
	}}
	w := &fakeWorker{}

	summary, err := newTestProcessor(st, w).Process(context.Background(), 2)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Eligible)
	assert.Equal(t, 2, summary.Selected)
	require.Len(t, w.requests, 2)
	// Most urgent first: 2 days out, then 20, and the 60-day record misses the cut.
	assert.Equal(t, "TKT-2", w.requests[0].TicketNumber)
	assert.Equal(t, "TKT-3", w.requests[1].TicketNumber)
}

func TestProcess_ZeroQuotaProcessesNothing(t *testing.T) {
	st := &fakeStore{candidates: []model.CaseRecord{pendingRec("r1", "TKT-1", 5)}}
	w := &fakeWorker{}

	summary, err := newTestProcessor(st, w).Process(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Eligible)
	assert.Equal(t, 0, summary.Selected)
	assert.Empty(t, w.requests)
}

func TestProcess_NarrativeSafetySkip(t *testing.T) {
	rec := pendingRec("r1", "TKT-1", 5)
	rec.Narrative = "extracted text"
	rec.OCRDocketID = "D-100"
	rec.OCRLicensePlate = "ABC1234"
	st := &fakeStore{candidates: []model.CaseRecord{rec}}
	w := &fakeWorker{}

	summary, err := newTestProcessor(st, w).Process(context.Background(), 10)
	require.NoError(t, err)

	assert.Empty(t, w.requests, "worker must not be invoked for a narrative-bearing record")
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 0, summary.QuotaUsed, "safety skips do not consume quota")

	require.Len(t, st.patches["r1"], 1)
	require.NotNil(t, st.patches["r1"][0].OCRStatus)
	assert.Equal(t, model.OCRComplete, *st.patches["r1"][0].OCRStatus)
}

func TestProcess_HealingMode(t *testing.T) {
	rec := pendingRec("r1", "TKT-1", 5)
	rec.Narrative = "extracted text"
	rec.OCRDocketID = "D-100"
	// Missing plate: partial prior enrichment, resubmit with the healing flag.
	st := &fakeStore{candidates: []model.CaseRecord{rec}}
	w := &fakeWorker{}

	summary, err := newTestProcessor(st, w).Process(context.Background(), 10)
	require.NoError(t, err)

	require.Len(t, w.requests, 1)
	assert.True(t, w.requests[0].HealingMode)
	assert.Equal(t, 1, summary.Succeeded)
}

func TestProcess_SuccessMarksCompleteAndResetsFailures(t *testing.T) {
	rec := pendingRec("r1", "TKT-1", 5)
	rec.OCRFailureCount = 2
	st := &fakeStore{candidates: []model.CaseRecord{rec}}
	w := &fakeWorker{}

	summary, err := newTestProcessor(st, w).Process(context.Background(), 10)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.QuotaUsed)

	require.Len(t, st.patches["r1"], 1)
	patch := st.patches["r1"][0]
	assert.Equal(t, model.OCRComplete, *patch.OCRStatus)
	assert.Equal(t, 0, *patch.OCRFailureCount)
	assert.NotNil(t, patch.LastScanDate)
	require.Len(t, patch.AppendActivity, 1)
	assert.Equal(t, model.ActivityOCRComplete, patch.AppendActivity[0].Type)
}

func TestProcess_WorkerSkipConsumesQuota(t *testing.T) {
	st := &fakeStore{candidates: []model.CaseRecord{pendingRec("r1", "TKT-1", 5)}}
	w := &fakeWorker{results: map[string]*Result{"TKT-1": {Skipped: true}}}

	summary, err := newTestProcessor(st, w).Process(context.Background(), 10)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.QuotaUsed)
	assert.Empty(t, st.patches, "a worker skip leaves the record untouched")
}

func TestProcess_FailureIncrementsCounter(t *testing.T) {
	rec := pendingRec("r1", "TKT-1", 5)
	rec.OCRFailureCount = 1
	st := &fakeStore{candidates: []model.CaseRecord{rec}}
	w := &fakeWorker{results: map[string]*Result{"TKT-1": {Error: "document unreadable"}}}

	summary, err := newTestProcessor(st, w).Process(context.Background(), 10)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 0, summary.QuotaUsed, "failures do not consume quota")

	require.Len(t, st.patches["r1"], 1)
	patch := st.patches["r1"][0]
	assert.Equal(t, 2, *patch.OCRFailureCount)
	assert.Equal(t, "document unreadable", *patch.OCRFailureReason)
	assert.NotNil(t, patch.OCRFailureAt)
	assert.Nil(t, patch.OCRStatus, "status stays pending after a failure")
}

func TestProcess_TransportErrorCountsAsFailure(t *testing.T) {
	st := &fakeStore{candidates: []model.CaseRecord{pendingRec("r1", "TKT-1", 5)}}
	w := &fakeWorker{err: fmt.Errorf("connection refused")}

	summary, err := newTestProcessor(st, w).Process(context.Background(), 10)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	require.Len(t, st.patches["r1"], 1)
	assert.Equal(t, 1, *st.patches["r1"][0].OCRFailureCount)
}
