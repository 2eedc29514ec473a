package models

import (
	"time"

	"gorm.io/gorm"
)

// InboxEmail stores a reply pulled over IMAP. The reply worker matches
// In-Reply-To/References headers against SendRecord message ids to tie a
// reply back to its campaign and lead.
type InboxEmail struct {
	gorm.Model

	MessageID string `gorm:"not null;uniqueIndex" json:"message_id"`
	ThreadID  string `gorm:"index" json:"thread_id"`
	From      string `gorm:"not null" json:"from"`
	To        string `gorm:"not null" json:"to"`
	Subject   string `json:"subject"`
	Body      string `gorm:"type:text" json:"body"`
	Date      time.Time `gorm:"not null" json:"date"`

	InReplyTo  string `gorm:"index" json:"in_reply_to"`
	References string `json:"references"`

	// Set once the reply is matched to an outbound send
	LeadID     *uint `gorm:"index" json:"lead_id"`
	CampaignID *uint `gorm:"index" json:"campaign_id"`
	Processed  bool  `gorm:"default:false;index" json:"processed"`
}
