package models

import (
	"time"

	"gorm.io/gorm"
)

// Campaign statuses. At most one pending/active campaign may exist per
// lead at any time; the engine rejects a second start with a conflict.
const (
	CampaignPending   = "pending"
	CampaignActive    = "active"
	CampaignPaused    = "paused"
	CampaignCompleted = "completed"
	CampaignCancelled = "cancelled"
)

// Follow-up queue entry statuses
const (
	FollowupPending   = "pending"
	FollowupSent      = "sent"
	FollowupCancelled = "cancelled"
	FollowupSkipped   = "skipped"
)

// Campaign is a running instance of a Sequence applied to one Lead.
type Campaign struct {
	gorm.Model
	LeadID     uint `gorm:"not null;index" json:"lead_id"`
	SequenceID uint `gorm:"not null;index" json:"sequence_id"`

	Status      string     `gorm:"default:'pending';index" json:"status"`
	CurrentStep int        `gorm:"default:0" json:"current_step"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
	PausedAt    *time.Time `json:"paused_at"`
	PauseReason string     `json:"pause_reason"` // manual, deliverability

	// Sending domain this campaign's mail goes out through
	Domain string `gorm:"not null;index" json:"domain"`

	// Statistics (denormalized for display)
	SentCount   int `gorm:"default:0" json:"sent_count"`
	BounceCount int `gorm:"default:0" json:"bounce_count"`
	ReplyCount  int `gorm:"default:0" json:"reply_count"`

	// Relations
	Lead      Lead                 `json:"-"`
	Sequence  Sequence             `json:"-"`
	Followups []FollowupQueueEntry `gorm:"foreignKey:CampaignID" json:"followups,omitempty"`
}

// IsTerminal reports whether no further transitions are allowed.
func (c *Campaign) IsTerminal() bool {
	return c.Status == CampaignCompleted || c.Status == CampaignCancelled
}

// FollowupQueueEntry is the materialized follow-up record, one per
// dispatched (or scheduled) sequence step for a lead. Several historical
// rows may exist per lead; utils.DedupFollowups selects the single
// current one.
type FollowupQueueEntry struct {
	gorm.Model
	LeadID     uint `gorm:"not null;index" json:"lead_id"`
	CampaignID uint `gorm:"not null;index" json:"campaign_id"`

	FollowupNumber int       `gorm:"not null" json:"followup_number"`
	ScheduledFor   time.Time `gorm:"not null;index" json:"scheduled_for"`
	Status         string    `gorm:"default:'pending';index" json:"status"`
	Responded      bool      `gorm:"default:false" json:"responded"`

	// Relations
	Lead     Lead     `json:"-"`
	Campaign Campaign `json:"-"`
}

// SendRecord tracks an individual outbound campaign email, keyed by the
// SMTP Message-ID so replies can be matched back to the campaign.
type SendRecord struct {
	gorm.Model
	CampaignID uint   `gorm:"not null;index" json:"campaign_id"`
	LeadID     uint   `gorm:"not null;index" json:"lead_id"`
	StepNumber int    `gorm:"not null" json:"step_number"`
	Domain     string `gorm:"not null;index" json:"domain"`

	MessageID string     `gorm:"not null;uniqueIndex" json:"message_id"`
	Subject   string     `json:"subject"`
	SentAt    time.Time  `gorm:"not null" json:"sent_at"`
	BouncedAt *time.Time `json:"bounced_at"`
	RepliedAt *time.Time `json:"replied_at"`
	OpenedAt  *time.Time `json:"opened_at"`
	ClickedAt *time.Time `json:"clicked_at"`
}
