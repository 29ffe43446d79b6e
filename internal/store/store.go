// Package store persists clients, case records, and the singleton sync
// status. Every engine write goes through a typed partial-update patch, so
// the set of writable fields is fixed at compile time — user-owned fields
// have no patch representation and can never be clobbered by a sync.
package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/harbor-legal/docketwatch/internal/model"
)

// Store defines the persistence interface for the sync engine.
type Store interface {
	// Clients are read-only to the engine.
	ListClients(ctx context.Context) ([]model.Client, error)

	// Case records.
	GetCaseByTicket(ctx context.Context, ticketNumber string) (*model.CaseRecord, error)
	InsertCase(ctx context.Context, rec *model.CaseRecord) error
	UpdateCase(ctx context.Context, id string, patch *CasePatch) error
	ListActiveCases(ctx context.Context) ([]model.CaseRecord, error)
	ListEnrichmentCandidates(ctx context.Context) ([]model.CaseRecord, error)

	// Singleton sync status.
	GetSyncStatus(ctx context.Context) (*model.SyncStatus, error)
	UpdateSyncStatus(ctx context.Context, patch *StatusPatch) error

	// Run-level single-flight guard.
	TryRunLock(ctx context.Context) (bool, error)
	ReleaseRunLock(ctx context.Context) error

	Close()
}

// CasePatch is a typed partial update for a case record. Nil fields are
// left untouched. AppendActivity appends to the activity log; existing
// entries are never modified. Identity fields (id, ticket number, client)
// and user-owned fields are deliberately absent.
type CasePatch struct {
	Status        *string
	HearingDate   *string
	HearingTime   *string
	HearingResult *string

	Violation         *string
	ViolationDate     *string
	ViolationLocation *string
	LicensePlate      *string

	BaseFine       *decimal.Decimal
	AmountDue      *decimal.Decimal
	AmountPaid     *decimal.Decimal
	PenaltyImposed *decimal.Decimal

	DocumentLink *string
	VideoLink    *string

	OCRStatus        *model.OCRStatus
	OCRFailureCount  *int
	OCRFailureReason *string
	OCRFailureAt     *time.Time
	Narrative        *string
	OCRDocketID      *string
	OCRLicensePlate  *string
	LastScanDate     *time.Time

	APIMissCount   *int
	IsArchived     *bool
	ArchivedAt     *time.Time
	ArchivedReason *string

	LastMetadataSync  *time.Time
	LastChangeSummary *string
	LastChangeAt      *time.Time

	AppendActivity []model.ActivityEntry
}

// StatusPatch is a typed partial update for the singleton sync status row.
type StatusPatch struct {
	OCRProcessedToday *int
	OCRProcessedDate  *string

	LastRunAt        *time.Time
	LastRunSuccess   *bool
	LastRunError     *string
	LastMetadataAt   *time.Time
	LastGhostScanAt  *time.Time
	LastEnrichmentAt *time.Time

	LastRunCreated  *int
	LastRunUpdated  *int
	LastRunArchived *int
	LastRunEnriched *int
}

// Ptr returns a pointer to v, for building patches inline.
func Ptr[T any](v T) *T {
	return &v
}
