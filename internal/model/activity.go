package model

import "time"

// ActivityType tags an activity log entry with the kind of change it records.
type ActivityType string

const (
	ActivityCreated      ActivityType = "CREATED"
	ActivityStatusChange ActivityType = "STATUS_CHANGE"
	ActivityReschedule   ActivityType = "RESCHEDULE"
	ActivityResultChange ActivityType = "RESULT_CHANGE"
	ActivityAmountChange ActivityType = "AMOUNT_CHANGE"
	ActivityPayment      ActivityType = "PAYMENT"
	ActivityAmendment    ActivityType = "AMENDMENT"
	ActivityOCRComplete  ActivityType = "OCR_COMPLETE"
	ActivityArchived     ActivityType = "ARCHIVED"
)

// ActivityEntry is one immutable entry in a case record's audit trail.
// Entries are append-only: they are never edited or removed once written.
type ActivityEntry struct {
	Timestamp   time.Time    `json:"timestamp"`
	Type        ActivityType `json:"type"`
	Description string       `json:"description"`
	OldValue    string       `json:"old_value,omitempty"`
	NewValue    string       `json:"new_value,omitempty"`
}

// NewActivityEntry builds an entry stamped with the given time.
func NewActivityEntry(at time.Time, typ ActivityType, description, oldValue, newValue string) ActivityEntry {
	return ActivityEntry{
		Timestamp:   at.UTC(),
		Type:        typ,
		Description: description,
		OldValue:    oldValue,
		NewValue:    newValue,
	}
}
