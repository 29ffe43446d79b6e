// Package enrich schedules and executes OCR enrichment of case records
// against an external worker, bounded by a daily quota and a per-call
// throttle.
package enrich

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/harbor-legal/docketwatch/internal/diff"
	"github.com/harbor-legal/docketwatch/internal/model"
)

var highValueThreshold = decimal.NewFromInt(1000)

// Score computes the tiered priority score for a record; lower is more
// urgent. The base tier comes from hearing proximity, then three modifiers
// apply: recent creation and high amounts pull a record forward within its
// tier, prior failures push it back so retries never starve fresh work.
func Score(rec *model.CaseRecord, now time.Time) int {
	base := 450
	if hearing, ok := diff.ParseDate(rec.HearingDate); ok {
		days := int(hearing.Sub(now).Hours() / 24)
		switch {
		case days < 0:
			late := -days
			if late > 100 {
				late = 100
			}
			base = 400 + late
		case days <= 7:
			base = days * 10
		case days <= 30:
			base = 100 + (days - 7)
		case days <= 90:
			base = 200 + (days-30)/2
		default:
			base = 300 + (days-90)/3
			if base > 399 {
				base = 399
			}
		}
	}

	score := base
	if now.Sub(rec.CreatedAt) < 24*time.Hour {
		score -= 20
	}
	if rec.AmountDue.GreaterThan(highValueThreshold) {
		score -= 10
	}
	score += 50 * rec.OCRFailureCount
	if score < 0 {
		score = 0
	}
	return score
}
