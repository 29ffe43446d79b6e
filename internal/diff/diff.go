// Package diff compares a freshly fetched record against its stored version
// across the monitored metadata fields, producing a human-readable change
// summary and structured audit entries. A zero-diff result lets the caller
// skip the write entirely, which is what keeps daily syncs cheap and keeps
// "updated" notifications honest.
package diff

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/harbor-legal/docketwatch/internal/model"
	"github.com/harbor-legal/docketwatch/internal/source"
)

// Incoming holds the normalized values of the monitored fields from one
// fetched source record.
type Incoming struct {
	Status        string
	HearingDate   string
	HearingTime   string
	HearingResult string
	Violation     string
	AmountDue     decimal.Decimal
	AmountPaid    decimal.Decimal
}

// FromSource normalizes a raw source record into comparable form.
func FromSource(rec source.Record) Incoming {
	return Incoming{
		Status:        strings.TrimSpace(rec.Status),
		HearingDate:   NormalizeDate(rec.HearingDate),
		HearingTime:   strings.TrimSpace(rec.HearingTime),
		HearingResult: strings.TrimSpace(rec.HearingResult),
		Violation:     strings.TrimSpace(rec.Violation),
		AmountDue:     NormalizeMoney(rec.AmountDue),
		AmountPaid:    NormalizeMoney(rec.AmountPaid),
	}
}

// Change is one monitored-field difference.
type Change struct {
	Field string
	Type  model.ActivityType
	Old   string
	New   string
}

// Fragment renders the change as a "field: old -> new" summary fragment.
func (c Change) Fragment() string {
	old := c.Old
	if old == "" {
		old = "(none)"
	}
	nw := c.New
	if nw == "" {
		nw = "(none)"
	}
	return fmt.Sprintf("%s: %s -> %s", c.Field, old, nw)
}

// Result is the outcome of comparing a stored record to incoming values.
type Result struct {
	HasChanges bool
	Summary    string
	Changes    []Change
}

// Entries converts the changes to activity log entries stamped at the given
// time.
func (r Result) Entries(at time.Time) []model.ActivityEntry {
	entries := make([]model.ActivityEntry, 0, len(r.Changes))
	for _, c := range r.Changes {
		entries = append(entries, model.NewActivityEntry(at, c.Type, c.Fragment(), c.Old, c.New))
	}
	return entries
}

// Compare diffs a stored record against normalized incoming values across
// exactly the monitored fields: status, hearing result, hearing date,
// hearing time, amount due, amount paid, and violation description.
// Comparison is null-safe: two empty values are equal.
func Compare(existing *model.CaseRecord, in Incoming) Result {
	var changes []Change

	addString := func(field string, typ model.ActivityType, old, nw string) {
		if old == nw {
			return
		}
		changes = append(changes, Change{Field: field, Type: typ, Old: old, New: nw})
	}

	addString("status", model.ActivityStatusChange, strings.TrimSpace(existing.Status), in.Status)
	addString("hearing result", model.ActivityResultChange, strings.TrimSpace(existing.HearingResult), in.HearingResult)
	addString("hearing date", model.ActivityReschedule, NormalizeDate(existing.HearingDate), in.HearingDate)
	addString("hearing time", model.ActivityReschedule, strings.TrimSpace(existing.HearingTime), in.HearingTime)
	addString("violation", model.ActivityAmendment, strings.TrimSpace(existing.Violation), in.Violation)

	if !MoneyEqual(existing.AmountDue, in.AmountDue) {
		changes = append(changes, Change{
			Field: "amount due",
			Type:  model.ActivityAmountChange,
			Old:   existing.AmountDue.StringFixed(2),
			New:   in.AmountDue.StringFixed(2),
		})
	}
	if !MoneyEqual(existing.AmountPaid, in.AmountPaid) {
		changes = append(changes, Change{
			Field: "amount paid",
			Type:  model.ActivityPayment,
			Old:   existing.AmountPaid.StringFixed(2),
			New:   in.AmountPaid.StringFixed(2),
		})
	}

	if len(changes) == 0 {
		return Result{}
	}

	fragments := make([]string, len(changes))
	for i, c := range changes {
		fragments[i] = c.Fragment()
	}

	return Result{
		HasChanges: true,
		Summary:    strings.Join(fragments, "; "),
		Changes:    changes,
	}
}
