package model

import "time"

// SyncStatusID is the fixed key of the singleton sync status row.
const SyncStatusID = "singleton"

// SyncStatus is the singleton run-level bookkeeping record: the daily OCR
// quota counter plus per-phase outcomes of the most recent run. It is
// created lazily on first access and only ever merge-updated.
type SyncStatus struct {
	ID string `json:"id" yaml:"id"`

	// Daily enrichment quota accounting. OCRProcessedDate is a UTC calendar
	// date (YYYY-MM-DD); when it no longer matches today the counter resets.
	OCRProcessedToday int    `json:"ocr_processed_today" yaml:"ocr_processed_today"`
	OCRProcessedDate  string `json:"ocr_processed_date" yaml:"ocr_processed_date"`

	// Last run outcomes.
	LastRunAt         *time.Time `json:"last_run_at,omitempty" yaml:"last_run_at,omitempty"`
	LastRunSuccess    *bool      `json:"last_run_success,omitempty" yaml:"last_run_success,omitempty"`
	LastRunError      string     `json:"last_run_error,omitempty" yaml:"last_run_error,omitempty"`
	LastMetadataAt    *time.Time `json:"last_metadata_at,omitempty" yaml:"last_metadata_at,omitempty"`
	LastGhostScanAt   *time.Time `json:"last_ghost_scan_at,omitempty" yaml:"last_ghost_scan_at,omitempty"`
	LastEnrichmentAt  *time.Time `json:"last_enrichment_at,omitempty" yaml:"last_enrichment_at,omitempty"`
	LastRunCreated    int        `json:"last_run_created" yaml:"last_run_created"`
	LastRunUpdated    int        `json:"last_run_updated" yaml:"last_run_updated"`
	LastRunArchived   int        `json:"last_run_archived" yaml:"last_run_archived"`
	LastRunEnriched   int        `json:"last_run_enriched" yaml:"last_run_enriched"`

	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// QuotaDate formats a time as the UTC calendar date used for quota resets.
func QuotaDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
