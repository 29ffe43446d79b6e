package store

// assignments maps a CasePatch to parallel slices of column names and
// argument values, in declaration order. This is the single place patch
// fields are bound to columns; adding a field without extending this
// function is a compile-time no-op, never a silent write.
func (p *CasePatch) assignments() ([]string, []any) {
	var cols []string
	var args []any

	add := func(col string, arg any) {
		cols = append(cols, col)
		args = append(args, arg)
	}

	if p.Status != nil {
		add("status", *p.Status)
	}
	if p.HearingDate != nil {
		add("hearing_date", *p.HearingDate)
	}
	if p.HearingTime != nil {
		add("hearing_time", *p.HearingTime)
	}
	if p.HearingResult != nil {
		add("hearing_result", *p.HearingResult)
	}
	if p.Violation != nil {
		add("violation", *p.Violation)
	}
	if p.ViolationDate != nil {
		add("violation_date", *p.ViolationDate)
	}
	if p.ViolationLocation != nil {
		add("violation_location", *p.ViolationLocation)
	}
	if p.LicensePlate != nil {
		add("license_plate", *p.LicensePlate)
	}
	if p.BaseFine != nil {
		add("base_fine", p.BaseFine.String())
	}
	if p.AmountDue != nil {
		add("amount_due", p.AmountDue.String())
	}
	if p.AmountPaid != nil {
		add("amount_paid", p.AmountPaid.String())
	}
	if p.PenaltyImposed != nil {
		add("penalty_imposed", p.PenaltyImposed.String())
	}
	if p.DocumentLink != nil {
		add("document_link", *p.DocumentLink)
	}
	if p.VideoLink != nil {
		add("video_link", *p.VideoLink)
	}
	if p.OCRStatus != nil {
		add("ocr_status", string(*p.OCRStatus))
	}
	if p.OCRFailureCount != nil {
		add("ocr_failure_count", *p.OCRFailureCount)
	}
	if p.OCRFailureReason != nil {
		add("ocr_failure_reason", *p.OCRFailureReason)
	}
	if p.OCRFailureAt != nil {
		add("ocr_failure_at", *p.OCRFailureAt)
	}
	if p.Narrative != nil {
		add("narrative", *p.Narrative)
	}
	if p.OCRDocketID != nil {
		add("ocr_docket_id", *p.OCRDocketID)
	}
	if p.OCRLicensePlate != nil {
		add("ocr_license_plate", *p.OCRLicensePlate)
	}
	if p.LastScanDate != nil {
		add("last_scan_date", *p.LastScanDate)
	}
	if p.APIMissCount != nil {
		add("api_miss_count", *p.APIMissCount)
	}
	if p.IsArchived != nil {
		add("is_archived", *p.IsArchived)
	}
	if p.ArchivedAt != nil {
		add("archived_at", *p.ArchivedAt)
	}
	if p.ArchivedReason != nil {
		add("archived_reason", *p.ArchivedReason)
	}
	if p.LastMetadataSync != nil {
		add("last_metadata_sync", *p.LastMetadataSync)
	}
	if p.LastChangeSummary != nil {
		add("last_change_summary", *p.LastChangeSummary)
	}
	if p.LastChangeAt != nil {
		add("last_change_at", *p.LastChangeAt)
	}

	return cols, args
}

// IsEmpty reports whether the patch would write nothing.
func (p *CasePatch) IsEmpty() bool {
	if p == nil {
		return true
	}
	cols, _ := p.assignments()
	return len(cols) == 0 && len(p.AppendActivity) == 0
}

// assignments maps a StatusPatch to column names and argument values.
func (p *StatusPatch) assignments() ([]string, []any) {
	var cols []string
	var args []any

	add := func(col string, arg any) {
		cols = append(cols, col)
		args = append(args, arg)
	}

	if p.OCRProcessedToday != nil {
		add("ocr_processed_today", *p.OCRProcessedToday)
	}
	if p.OCRProcessedDate != nil {
		add("ocr_processed_date", *p.OCRProcessedDate)
	}
	if p.LastRunAt != nil {
		add("last_run_at", *p.LastRunAt)
	}
	if p.LastRunSuccess != nil {
		add("last_run_success", *p.LastRunSuccess)
	}
	if p.LastRunError != nil {
		add("last_run_error", *p.LastRunError)
	}
	if p.LastMetadataAt != nil {
		add("last_metadata_at", *p.LastMetadataAt)
	}
	if p.LastGhostScanAt != nil {
		add("last_ghost_scan_at", *p.LastGhostScanAt)
	}
	if p.LastEnrichmentAt != nil {
		add("last_enrichment_at", *p.LastEnrichmentAt)
	}
	if p.LastRunCreated != nil {
		add("last_run_created", *p.LastRunCreated)
	}
	if p.LastRunUpdated != nil {
		add("last_run_updated", *p.LastRunUpdated)
	}
	if p.LastRunArchived != nil {
		add("last_run_archived", *p.LastRunArchived)
	}
	if p.LastRunEnriched != nil {
		add("last_run_enriched", *p.LastRunEnriched)
	}

	return cols, args
}
