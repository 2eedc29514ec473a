package controller

import (
	"time"

	"outreachcrm/models"
	"outreachcrm/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// HandleCampaignWebhook processes delivery events (bounces, spam
// complaints, opens, clicks, replies) reported by the mail provider,
// keyed by the outbound Message-ID.
func (cc *CampaignController) HandleCampaignWebhook(c *fiber.Ctx) error {
	var input struct {
		EventType string `json:"event_type"` // bounce, spam_complaint, open, click, reply
		MessageID string `json:"message_id"`
		Email     string `json:"email"`
		Timestamp int64  `json:"timestamp"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	var record models.SendRecord
	if err := cc.DB.Where("message_id = ?", input.MessageID).First(&record).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Send record not found", nil)
	}

	eventTime := time.Unix(input.Timestamp, 0)
	if input.Timestamp == 0 {
		eventTime = time.Now()
	}

	switch input.EventType {
	case "bounce":
		if record.BouncedAt == nil {
			record.BouncedAt = utils.Pointer(eventTime)
			cc.DB.Model(&models.Campaign{}).Where("id = ?", record.CampaignID).
				Update("bounce_count", gorm.Expr("bounce_count + ?", 1))
			cc.DB.Model(&models.Lead{}).Where("id = ?", record.LeadID).
				Update("is_bounced", true)
			if err := cc.Engine.Tracker.RecordBounce(record.Domain); err != nil {
				cc.Logger.Printf("Failed to record bounce for %s: %v", record.Domain, err)
			}
		}
	case "spam_complaint":
		if err := cc.Engine.Tracker.RecordSpamComplaint(record.Domain); err != nil {
			cc.Logger.Printf("Failed to record complaint for %s: %v", record.Domain, err)
		}
	case "open":
		if record.OpenedAt == nil {
			record.OpenedAt = utils.Pointer(eventTime)
		}
	case "click":
		if record.ClickedAt == nil {
			record.ClickedAt = utils.Pointer(eventTime)
		}
	case "reply":
		if record.RepliedAt == nil {
			record.RepliedAt = utils.Pointer(eventTime)
		}
		if err := cc.Engine.OnLeadResponded(record.LeadID); err != nil {
			cc.Logger.Printf("Failed to process reply for lead %d: %v", record.LeadID, err)
		}
	default:
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Unknown event type", nil)
	}

	if err := cc.DB.Save(&record).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update send record", err)
	}

	utils.LogEvent("campaign_event", map[string]interface{}{
		"event_type":  input.EventType,
		"message_id":  input.MessageID,
		"campaign_id": record.CampaignID,
		"lead_id":     record.LeadID,
	})

	return c.JSON(utils.SuccessResponse(fiber.Map{"processed": true}))
}

// HandleBookingWebhook ingests booking events from the calendar provider.
func (cc *CampaignController) HandleBookingWebhook(c *fiber.Ctx) error {
	var input struct {
		LeadID        uint   `json:"lead_id" validate:"required"`
		Provider      string `json:"provider"`
		BookingStatus string `json:"booking_status" validate:"required,oneof=link_sent confirmed cancelled no_show completed"`
		ScheduledTime int64  `json:"scheduled_time"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.CoreErrorResponse(c, "Validation failed", err)
	}

	booking := models.Booking{
		LeadID:        input.LeadID,
		Provider:      input.Provider,
		BookingStatus: input.BookingStatus,
	}
	if input.ScheduledTime > 0 {
		booking.ScheduledTime = utils.Pointer(time.Unix(input.ScheduledTime, 0))
	}
	if err := cc.DB.Create(&booking).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to record booking", err)
	}

	if err := cc.Engine.ApplyBookingStatus(&booking); err != nil {
		return utils.CoreErrorResponse(c, "Failed to apply booking status", err)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(booking))
}
