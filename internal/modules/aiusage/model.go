package aiusage

import (
	"errors"
	"time"
)

// ErrQuotaExhausted is returned when a caller has no generations left for the current month.
var ErrQuotaExhausted = errors.New("planning quota exhausted")

// DefaultMonthlyQuota is the number of itinerary generations granted per caller per month.
const DefaultMonthlyQuota = 100

// Period formats the quota period a timestamp falls into.
func Period(t time.Time) string {
	return t.UTC().Format("2006-01")
}
