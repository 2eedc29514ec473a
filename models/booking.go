package models

import (
	"time"

	"gorm.io/gorm"
)

// Booking statuses reported by the calendar collaborator
const (
	BookingLinkSent  = "link_sent"
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
	BookingNoShow    = "no_show"
	BookingCompleted = "completed"
)

// CalendarIntegration mirrors the calendar collaborator's per-provider
// status. Token exchange happens outside this service; only the active
// flag and calendar id are read here.
type CalendarIntegration struct {
	gorm.Model

	Provider   string `gorm:"not null;uniqueIndex" json:"provider"` // google, microsoft
	IsActive   bool   `gorm:"default:false" json:"is_active"`
	CalendarID string `json:"calendar_id"`
}

// Booking is a meeting record pushed by the calendar collaborator. A
// confirmed booking transitions the lead's outreach status to booked.
type Booking struct {
	gorm.Model
	LeadID uint `gorm:"not null;index" json:"lead_id"`

	BookingStatus string     `gorm:"not null" json:"booking_status"`
	ScheduledTime *time.Time `json:"scheduled_time"`
	Provider      string     `json:"provider"`

	// Relations
	Lead Lead `json:"-"`
}
