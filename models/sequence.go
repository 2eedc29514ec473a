package models

import (
	"sort"

	"gorm.io/gorm"
)

// Sequence represents a reusable ordered outreach definition. Inactive
// sequences cannot be selected to start new campaigns; campaigns already
// referencing one keep running.
type Sequence struct {
	gorm.Model

	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	IsActive    bool   `gorm:"default:true;index" json:"is_active"`

	// Relations
	Steps []SequenceStep `gorm:"foreignKey:SequenceID" json:"steps,omitempty"`
}

// SequenceStep represents one step in an email sequence. DaysAfter is the
// scheduling offset from the previous sent step; steps are processed
// strictly in StepNumber order.
type SequenceStep struct {
	gorm.Model
	SequenceID uint  `gorm:"not null;index" json:"sequence_id"`
	TemplateID *uint `gorm:"index" json:"template_id"`

	StepNumber int    `gorm:"not null" json:"step_number"`
	Name       string `gorm:"not null" json:"name"`
	DaysAfter  int    `gorm:"not null;default:0" json:"days_after"`
	Enabled    bool   `gorm:"default:true" json:"enabled"`

	// Tracking
	SentCount int     `gorm:"default:0" json:"sent_count"`
	ReplyRate float64 `gorm:"default:0" json:"reply_rate"`

	// Relations
	Template *Template `json:"-"`
}

// Template represents email templates referenced by sequence steps
type Template struct {
	gorm.Model

	Name        string `gorm:"not null" json:"name"`
	Subject     string `gorm:"not null" json:"subject"`
	HTMLContent string `gorm:"type:text" json:"html_content"`
	TextContent string `gorm:"type:text" json:"text_content"`
	Category    string `json:"category"`
}

// OrderedSteps returns the sequence's steps sorted by StepNumber. GORM
// preloads make no ordering promise, so callers that advance campaigns go
// through this.
func (s *Sequence) OrderedSteps() []SequenceStep {
	steps := make([]SequenceStep, len(s.Steps))
	copy(steps, s.Steps)
	sort.Slice(steps, func(i, j int) bool {
		return steps[i].StepNumber < steps[j].StepNumber
	})
	return steps
}
