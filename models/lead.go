package models

import (
	"time"

	"gorm.io/gorm"
)

// Qualification statuses for a lead
const (
	QualificationUnqualified  = "unqualified"
	QualificationQualified    = "qualified"
	QualificationDisqualified = "disqualified"
)

// Outreach statuses for a lead. Only the campaign engine and the
// follow-up scheduler mutate these.
const (
	OutreachNotStarted = "not_started"
	OutreachQueued     = "queued"
	OutreachInSequence = "in_sequence"
	OutreachResponded  = "responded"
	OutreachBooked     = "booked"
	OutreachCompleted  = "completed"
)

// Lead represents a single contact/lead
type Lead struct {
	gorm.Model
	CompanyID *uint `gorm:"index" json:"company_id"`

	Email     string `gorm:"not null;index" json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	JobTitle  string `json:"job_title"`
	Phone     string `json:"phone"`
	LinkedIn  string `json:"linkedin"`

	// Status
	QualificationStatus string `gorm:"default:'unqualified';index" json:"qualification_status"`
	OutreachStatus      string `gorm:"default:'not_started';index" json:"outreach_status"`
	CurrentCampaignID   *uint  `json:"current_campaign_id"` // weak reference, engine-owned

	IsBounced      bool `gorm:"default:false" json:"is_bounced"`
	IsUnsubscribed bool `gorm:"default:false" json:"is_unsubscribed"`
	IsDoNotContact bool `gorm:"default:false" json:"is_do_not_contact"`

	// Metadata
	Source      string     `json:"source"`
	LastContact *time.Time `json:"last_contact"`

	// Relations
	Company   *Company             `json:"company,omitempty"`
	Followups []FollowupQueueEntry `gorm:"foreignKey:LeadID" json:"followups,omitempty"`
}

// Company holds the firmographic facts the ICP scorer reads. The persisted
// ICP fields are derived: they are rewritten every time an input fact
// changes, never edited directly.
type Company struct {
	gorm.Model

	Name              string `gorm:"not null" json:"name"`
	IndustryType      string `json:"industry_type"` // restaurant, hotel
	LocationCount     int    `gorm:"default:0" json:"location_count"`
	EmployeeCount     int    `gorm:"default:0" json:"employee_count"`
	RevenueRange      string `json:"revenue_range"` // e.g. "$30M-$500M"
	HeadquartersState string `json:"headquarters_state"`
	Website           string `json:"website"`

	// Contract timeline facts (optional)
	ContractExpiresAt *time.Time `json:"contract_expires_at"`
	TimelineCategory  string     `json:"timeline_category"` // immediate, mid_term, long_term

	// Derived ICP score, persisted for display and sequence-entry decisions
	ICPScore     int        `gorm:"default:0" json:"icp_score"`
	ICPQualified bool       `gorm:"default:false" json:"icp_qualified"`
	ICPReasons   []string   `gorm:"serializer:json" json:"icp_reasons"`
	ICPScoredAt  *time.Time `json:"icp_scored_at"`

	// Relations
	Leads []Lead `gorm:"foreignKey:CompanyID" json:"leads,omitempty"`
}
