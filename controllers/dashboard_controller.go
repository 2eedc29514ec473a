package controller

import (
	"log"

	"outreachcrm/models"
	"outreachcrm/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type DashboardController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewDashboardController(db *gorm.DB, logger *log.Logger) *DashboardController {
	return &DashboardController{DB: db, Logger: logger}
}

// GetOverview aggregates the headline pipeline numbers.
func (dc *DashboardController) GetOverview(c *fiber.Ctx) error {
	var stats struct {
		TotalLeads       int64 `json:"total_leads"`
		QualifiedLeads   int64 `json:"qualified_leads"`
		ActiveCampaigns  int64 `json:"active_campaigns"`
		PausedCampaigns  int64 `json:"paused_campaigns"`
		PendingResponses int64 `json:"pending_responses"`
		BookedMeetings   int64 `json:"booked_meetings"`
	}

	dc.DB.Model(&models.Lead{}).Count(&stats.TotalLeads)
	dc.DB.Model(&models.Lead{}).Where("qualification_status = ?", models.QualificationQualified).
		Count(&stats.QualifiedLeads)
	dc.DB.Model(&models.Campaign{}).Where("status = ?", models.CampaignActive).
		Count(&stats.ActiveCampaigns)
	dc.DB.Model(&models.Campaign{}).Where("status = ?", models.CampaignPaused).
		Count(&stats.PausedCampaigns)
	dc.DB.Model(&models.PendingResponse{}).Where("status = ?", models.ResponsePending).
		Count(&stats.PendingResponses)
	dc.DB.Model(&models.Booking{}).Where("booking_status = ?", models.BookingConfirmed).
		Count(&stats.BookedMeetings)

	return c.JSON(utils.SuccessResponse(stats))
}

// GetOutreachFunnel breaks leads down by outreach status.
func (dc *DashboardController) GetOutreachFunnel(c *fiber.Ctx) error {
	type bucket struct {
		OutreachStatus string `json:"outreach_status"`
		Count          int64  `json:"count"`
	}

	var funnel []bucket
	if err := dc.DB.Model(&models.Lead{}).
		Select("outreach_status, COUNT(*) as count").
		Group("outreach_status").
		Scan(&funnel).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to build funnel", err)
	}
	return c.JSON(utils.SuccessResponse(funnel))
}

// GetDomainSummary returns warm-up progress for every sending domain.
func (dc *DashboardController) GetDomainSummary(c *fiber.Ctx) error {
	var domains []models.SendingDomain
	if err := dc.DB.Order("domain ASC").Find(&domains).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch domains", err)
	}

	type summary struct {
		Domain          string  `json:"domain"`
		DayNumber       int     `json:"day_number"`
		VolumeUsedPct   float64 `json:"volume_used_pct"`
		ReputationScore int     `json:"reputation_score"`
		BounceRate      float64 `json:"bounce_rate"`
	}

	out := make([]summary, 0, len(domains))
	for _, d := range domains {
		used := 0.0
		if d.DailyVolumeLimit > 0 {
			used = float64(d.DailyVolumeSent) / float64(d.DailyVolumeLimit) * 100
		}
		out = append(out, summary{
			Domain:          d.Domain,
			DayNumber:       d.DayNumber,
			VolumeUsedPct:   used,
			ReputationScore: d.ReputationScore,
			BounceRate:      d.BounceRate,
		})
	}
	return c.JSON(utils.SuccessResponse(out))
}
