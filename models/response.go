package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Pending response statuses
const (
	ResponsePending  = "pending"
	ResponseApproved = "approved"
	ResponseRejected = "rejected"
	ResponseSent     = "sent"
)

// AI responder strategies
const (
	StrategyAggressive   = "aggressive"
	StrategyModerate     = "moderate"
	StrategyConservative = "conservative"
)

// MaxResponseDelayMinutes caps the auto-send delay at 72 hours.
const MaxResponseDelayMinutes = 4320

// PendingResponse is an AI-drafted reply awaiting approval or automatic
// send. At most one row per lead may be in pending status; a new draft
// supersedes the previous one in place.
type PendingResponse struct {
	gorm.Model
	LeadID         uint    `gorm:"not null;index" json:"lead_id"`
	CampaignID     *uint   `gorm:"index" json:"campaign_id"`
	EmailMessageID *string `json:"email_message_id"` // inbound message being replied to

	Subject string `gorm:"not null" json:"subject"`
	Content string `gorm:"type:text;not null" json:"content"`
	Status  string `gorm:"default:'pending';index" json:"status"`

	// Operator edits captured at approval time
	UserChanges *string `gorm:"type:text" json:"user_changes"`

	GeneratedAt time.Time  `gorm:"not null" json:"generated_at"`
	ReviewedAt  *time.Time `json:"reviewed_at"`
	SentAt      *time.Time `json:"sent_at"`

	// Relations
	Lead Lead `json:"-"`
}

// AIResponderConfig is the process-wide policy governing whether drafts
// require manual approval or are sent automatically after a delay. It is
// passed into the workflow at call time, never read from ambient state.
type AIResponderConfig struct {
	gorm.Model

	Enabled              bool   `gorm:"default:false" json:"enabled"`
	AutoSend             bool   `gorm:"default:false" json:"auto_send"`
	Strategy             string `gorm:"default:'moderate'" json:"strategy"`
	ResponsePrompt       string `gorm:"type:text" json:"response_prompt"`
	ResponseDelayMinutes int    `gorm:"default:30" json:"response_delay_minutes"`
}

// Validate enforces the configuration bounds.
func (c *AIResponderConfig) Validate() error {
	if c.ResponseDelayMinutes < 0 || c.ResponseDelayMinutes > MaxResponseDelayMinutes {
		return fmt.Errorf("response_delay_minutes must be between 0 and %d, got %d",
			MaxResponseDelayMinutes, c.ResponseDelayMinutes)
	}
	switch c.Strategy {
	case StrategyAggressive, StrategyModerate, StrategyConservative:
	default:
		return fmt.Errorf("strategy must be one of aggressive, moderate, conservative, got %q", c.Strategy)
	}
	return nil
}

// CreateDefaultResponderConfig seeds the single responder config row.
func CreateDefaultResponderConfig(db *gorm.DB) error {
	cfg := AIResponderConfig{
		Enabled:              false,
		AutoSend:             false,
		Strategy:             StrategyModerate,
		ResponseDelayMinutes: 30,
		ResponsePrompt: "You are a helpful sales rep replying to a prospect. " +
			"Keep the reply short, reference their message, and suggest a call.",
	}
	var count int64
	if err := db.Model(&AIResponderConfig{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return db.Create(&cfg).Error
}
