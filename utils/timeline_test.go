package utils

import (
	"testing"
	"time"
)

func TestTimelineCategory(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	ptr := func(t time.Time) *time.Time { return &t }

	tests := []struct {
		name      string
		expiresAt *time.Time
		want      string
	}{
		{"nil expiration", nil, TimelineUnknown},
		{"already expired", ptr(now.AddDate(0, -1, 0)), TimelineImmediate},
		{"thirty days out", ptr(now.AddDate(0, 0, 30)), TimelineImmediate},
		{"four months out", ptr(now.AddDate(0, 4, 0)), TimelineImmediate},
		{"exactly six months", ptr(now.AddDate(0, 6, 0)), TimelineMidTerm},
		{"seven months out", ptr(now.AddDate(0, 7, 0)), TimelineMidTerm},
		{"just under nine months", ptr(now.AddDate(0, 9, 0).Add(-time.Hour)), TimelineMidTerm},
		{"exactly nine months", ptr(now.AddDate(0, 9, 0)), TimelineLongTerm},
		{"a year out", ptr(now.AddDate(1, 0, 0)), TimelineLongTerm},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TimelineCategory(tt.expiresAt, now); got != tt.want {
				t.Errorf("TimelineCategory() = %q, want %q", got, tt.want)
			}
		})
	}
}
