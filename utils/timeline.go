package utils

import "time"

// Timeline categories for contract-expiration qualification.
const (
	TimelineImmediate = "immediate" // expires within 60 days
	TimelineMidTerm   = "mid_term"  // expires in 6 to 9 months
	TimelineLongTerm  = "long_term" // expires beyond 9 months
	TimelineUnknown   = "unknown"
)

// TimelineCategory buckets a contract expiration date relative to now.
// Boundary convention: exactly 6 months falls in mid_term, exactly 9
// months falls in long_term (inclusive lower bound, exclusive upper).
// Dates between 60 days and 6 months are treated as immediate since they
// still demand action this sales cycle.
func TimelineCategory(contractExpiresAt *time.Time, now time.Time) string {
	if contractExpiresAt == nil {
		return TimelineUnknown
	}
	exp := *contractExpiresAt
	if exp.Before(now) {
		return TimelineImmediate
	}
	sixMonths := now.AddDate(0, 6, 0)
	nineMonths := now.AddDate(0, 9, 0)
	switch {
	case exp.Before(sixMonths):
		return TimelineImmediate
	case exp.Before(nineMonths):
		return TimelineMidTerm
	default:
		return TimelineLongTerm
	}
}
