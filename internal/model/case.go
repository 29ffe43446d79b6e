package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OCRStatus is the stored enrichment status of a case record. Legacy rows
// may carry an empty status; they are treated as pending when they also lack
// a narrative. See OCRState for the computed state machine.
type OCRStatus string

const (
	OCRPending  OCRStatus = "pending"
	OCRComplete OCRStatus = "complete"
)

// CaseRecord is one external violation case tracked for a client. Records
// are created on first sighting, updated by the metadata sync, enriched by
// the OCR queue, and terminally archived by the ghost detector. They are
// never deleted.
type CaseRecord struct {
	// Identity. ID is locally generated and immutable; TicketNumber is the
	// source's unique key and immutable once set.
	ID             string `json:"id"`
	TicketNumber   string `json:"ticket_number"`
	ClientID       string `json:"client_id"`
	RespondentName string `json:"respondent_name"`

	// Hearing and status.
	Status        string `json:"status"`
	HearingDate   string `json:"hearing_date,omitempty"`
	HearingTime   string `json:"hearing_time,omitempty"`
	HearingResult string `json:"hearing_result,omitempty"`

	// Violation.
	Violation         string `json:"violation,omitempty"`
	ViolationDate     string `json:"violation_date,omitempty"`
	ViolationLocation string `json:"violation_location,omitempty"`
	LicensePlate      string `json:"license_plate,omitempty"`

	// Financial.
	BaseFine       decimal.Decimal `json:"base_fine"`
	AmountDue      decimal.Decimal `json:"amount_due"`
	AmountPaid     decimal.Decimal `json:"amount_paid"`
	PenaltyImposed decimal.Decimal `json:"penalty_imposed"`

	// Source document links passed to the enrichment worker.
	DocumentLink string `json:"document_link,omitempty"`
	VideoLink    string `json:"video_link,omitempty"`

	// Enrichment state.
	OCRStatus         OCRStatus  `json:"ocr_status,omitempty"`
	OCRFailureCount   int        `json:"ocr_failure_count"`
	OCRFailureReason  string     `json:"ocr_failure_reason,omitempty"`
	OCRFailureAt      *time.Time `json:"ocr_failure_at,omitempty"`
	Narrative         string     `json:"narrative,omitempty"`
	OCRDocketID       string     `json:"ocr_docket_id,omitempty"`
	OCRLicensePlate   string     `json:"ocr_license_plate,omitempty"`
	LastScanDate      *time.Time `json:"last_scan_date,omitempty"`

	// Lifecycle bookkeeping.
	APIMissCount      int             `json:"api_miss_count"`
	IsArchived        bool            `json:"is_archived"`
	ArchivedAt        *time.Time      `json:"archived_at,omitempty"`
	ArchivedReason    string          `json:"archived_reason,omitempty"`
	LastMetadataSync  *time.Time      `json:"last_metadata_sync,omitempty"`
	LastChangeSummary string          `json:"last_change_summary,omitempty"`
	LastChangeAt      *time.Time      `json:"last_change_at,omitempty"`
	ActivityLog       []ActivityEntry `json:"activity_log,omitempty"`

	// User-owned fields. The sync engine reads them for display only; no
	// patch it constructs may write them.
	Notes           string `json:"notes,omitempty"`
	InternalStatus  string `json:"internal_status,omitempty"`
	EvidencePhotos  bool   `json:"evidence_photos"`
	EvidenceWitness bool   `json:"evidence_witness"`
	AddedToCalendar bool   `json:"added_to_calendar"`
	Invoiced        bool   `json:"invoiced"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OCRStateKind discriminates the computed enrichment state.
type OCRStateKind int

const (
	// StatePending means the record is eligible for enrichment scheduling.
	StatePending OCRStateKind = iota
	// StateComplete means enrichment has produced a narrative (or the record
	// was explicitly marked complete).
	StateComplete
	// StateExcluded means the record is permanently out of the enrichment
	// queue; Reason says why.
	StateExcluded
)

// OCRState is the enrichment state machine computed at read time from the
// stored ocr_status and failure count. Storage stays backward compatible
// with legacy rows lacking an explicit status.
type OCRState struct {
	Kind   OCRStateKind
	Reason string
}

// ComputeOCRState derives the enrichment state for a record given the
// failure cap. Records at or above the cap are excluded by filtering, not by
// a stored terminal status.
func ComputeOCRState(rec *CaseRecord, failureCap int) OCRState {
	if rec.IsArchived {
		return OCRState{Kind: StateExcluded, Reason: "archived"}
	}
	if failureCap > 0 && rec.OCRFailureCount >= failureCap {
		return OCRState{Kind: StateExcluded, Reason: "failure cap reached"}
	}
	if rec.OCRStatus == OCRComplete {
		return OCRState{Kind: StateComplete}
	}
	if rec.OCRStatus == "" && rec.Narrative != "" {
		// Legacy row enriched before the status field existed.
		return OCRState{Kind: StateComplete}
	}
	return OCRState{Kind: StatePending}
}

// NeedsHealing reports whether a record has partial prior enrichment output:
// a narrative exists but one of the derived fields is missing. Such records
// are re-submitted once with the healing flag instead of being treated as a
// fresh extraction.
func NeedsHealing(rec *CaseRecord) bool {
	if rec.Narrative == "" {
		return false
	}
	return rec.OCRDocketID == "" || rec.OCRLicensePlate == ""
}
