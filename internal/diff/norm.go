package diff

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// dateLayouts are the timestamp shapes the source has been observed to emit.
// Layouts without a zone parse as UTC.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006 15:04",
	"01/02/2006",
}

// NormalizeMoney coerces a currency string to a decimal amount. Dollar
// signs, grouping commas, and surrounding whitespace are stripped;
// non-numeric or empty input yields zero.
func NormalizeMoney(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("$", "", ",", "").Replace(s)
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// MoneyEqual compares two amounts at 2-decimal precision.
func MoneyEqual(a, b decimal.Decimal) bool {
	return a.Round(2).Equal(b.Round(2))
}

// NormalizeDate canonicalizes a source timestamp to RFC3339 UTC. A missing
// timezone is taken as UTC, so "2026-05-01T00:00:00" and
// "2026-05-01T00:00:00Z" normalize identically. Empty input yields "";
// unparseable input passes through trimmed so a diff is still visible.
func NormalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format(time.RFC3339)
		}
	}
	return s
}

// ParseDate parses a canonical or source-form date, for callers that need
// the time value (hearing proximity scoring, archive reason inference).
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
