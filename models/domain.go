package models

import (
	"time"

	"gorm.io/gorm"
)

// DNS auth statuses
const (
	AuthPass    = "pass"
	AuthFail    = "fail"
	AuthNeutral = "neutral"
	AuthNone    = "none"
)

// SendingDomain carries per-domain warm-up and reputation state. Counters
// are mutated through utils.DomainTracker only; the daily rollover resets
// DailyVolumeSent and applies the next plan limit.
type SendingDomain struct {
	gorm.Model

	Domain string `gorm:"not null;uniqueIndex" json:"domain"`

	// Warm-up progress
	DayNumber        int        `gorm:"default:1" json:"day_number"`
	DailyVolumeSent  int        `gorm:"default:0" json:"daily_volume_sent"`
	DailyVolumeLimit int        `gorm:"default:50" json:"daily_volume_limit"`
	WarmupStartedAt  *time.Time `json:"warmup_started_at"`

	// Reputation signals
	ReputationScore int     `gorm:"default:100" json:"reputation_score"` // 0-100
	SPFStatus       string  `gorm:"default:'none'" json:"spf_status"`
	DKIMStatus      string  `gorm:"default:'none'" json:"dkim_status"`
	DMARCStatus     string  `gorm:"default:'none'" json:"dmarc_status"`
	BounceRate      float64 `gorm:"default:0" json:"bounce_rate"`       // percent
	SpamComplaintRate float64 `gorm:"default:0" json:"spam_complaint_rate"` // percent

	// Lifetime counters backing the rates
	TotalSent       int `gorm:"default:0" json:"total_sent"`
	TotalBounced    int `gorm:"default:0" json:"total_bounced"`
	TotalComplaints int `gorm:"default:0" json:"total_complaints"`

	DomainAgeDays int        `gorm:"default:0" json:"domain_age_days"`
	LastCheckedAt *time.Time `json:"last_checked_at"`
}

// WarmupPlanDay maps a warm-up day to its daily volume limit.
type WarmupPlanDay struct {
	gorm.Model
	DayNumber   int `gorm:"not null;uniqueIndex" json:"day_number"`
	VolumeLimit int `gorm:"not null" json:"volume_limit"`
}

// DeliverabilityThreshold is pure per-domain configuration compared
// against SendingDomain state to produce a health verdict.
type DeliverabilityThreshold struct {
	gorm.Model

	Domain string `gorm:"not null;uniqueIndex" json:"domain"`

	BounceWarningPct   float64 `gorm:"default:2" json:"bounce_warning_pct"`
	BounceCriticalPct  float64 `gorm:"default:5" json:"bounce_critical_pct"`
	SpamWarningPct     float64 `gorm:"default:0.05" json:"spam_warning_pct"`
	SpamCriticalPct    float64 `gorm:"default:0.1" json:"spam_critical_pct"`
	MinReputationScore int     `gorm:"default:50" json:"min_reputation_score"`

	AutoPauseEnabled bool     `gorm:"default:true" json:"auto_pause_enabled"`
	AlertRecipients  []string `gorm:"serializer:json" json:"alert_recipients"`
}

// DefaultThresholds returns the safeguard configuration applied to
// domains with no explicit threshold row.
func DefaultThresholds(domain string) DeliverabilityThreshold {
	return DeliverabilityThreshold{
		Domain:             domain,
		BounceWarningPct:   2,
		BounceCriticalPct:  5,
		SpamWarningPct:     0.05,
		SpamCriticalPct:    0.1,
		MinReputationScore: 50,
		AutoPauseEnabled:   true,
	}
}

// CreateDefaultWarmupPlan seeds the 30-day warm-up volume ladder. Safe to
// call on every startup.
func CreateDefaultWarmupPlan(db *gorm.DB) error {
	defaultPlan := []WarmupPlanDay{
		{DayNumber: 1, VolumeLimit: 50}, {DayNumber: 2, VolumeLimit: 50},
		{DayNumber: 3, VolumeLimit: 100}, {DayNumber: 4, VolumeLimit: 100},
		{DayNumber: 5, VolumeLimit: 250}, {DayNumber: 6, VolumeLimit: 250},
		{DayNumber: 7, VolumeLimit: 250},
		{DayNumber: 8, VolumeLimit: 500}, {DayNumber: 9, VolumeLimit: 500},
		{DayNumber: 10, VolumeLimit: 500},
		{DayNumber: 11, VolumeLimit: 1000}, {DayNumber: 12, VolumeLimit: 1000},
		{DayNumber: 13, VolumeLimit: 1000}, {DayNumber: 14, VolumeLimit: 1000},
		{DayNumber: 15, VolumeLimit: 2500}, {DayNumber: 16, VolumeLimit: 2500},
		{DayNumber: 17, VolumeLimit: 2500}, {DayNumber: 18, VolumeLimit: 2500},
		{DayNumber: 19, VolumeLimit: 5000}, {DayNumber: 20, VolumeLimit: 5000},
		{DayNumber: 21, VolumeLimit: 5000}, {DayNumber: 22, VolumeLimit: 5000},
		{DayNumber: 23, VolumeLimit: 10000}, {DayNumber: 24, VolumeLimit: 10000},
		{DayNumber: 25, VolumeLimit: 10000}, {DayNumber: 26, VolumeLimit: 10000},
		{DayNumber: 27, VolumeLimit: 25000}, {DayNumber: 28, VolumeLimit: 25000},
		{DayNumber: 29, VolumeLimit: 25000}, {DayNumber: 30, VolumeLimit: 25000},
	}
	for _, day := range defaultPlan {
		if err := db.FirstOrCreate(&day, "day_number = ?", day.DayNumber).Error; err != nil {
			return err
		}
	}
	return nil
}

// VolumeLimitForDay returns the plan limit for a warm-up day. Days past
// the end of the plan are considered graduated and get double the final
// plan volume.
func VolumeLimitForDay(db *gorm.DB, dayNumber int) (int, error) {
	var day WarmupPlanDay
	err := db.Where("day_number = ?", dayNumber).First(&day).Error
	if err == nil {
		return day.VolumeLimit, nil
	}
	if err != gorm.ErrRecordNotFound {
		return 0, err
	}

	var last WarmupPlanDay
	if err := db.Order("day_number DESC").First(&last).Error; err != nil {
		return 0, err
	}
	if dayNumber > last.DayNumber {
		return last.VolumeLimit * 2, nil
	}
	return last.VolumeLimit, nil
}
