package controller

import (
	"log"
	"time"

	"outreachcrm/models"
	"outreachcrm/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type FollowupController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewFollowupController(db *gorm.DB, logger *log.Logger) *FollowupController {
	return &FollowupController{DB: db, Logger: logger}
}

// ListQueue returns the raw follow-up entries for a campaign or lead.
func (fc *FollowupController) ListQueue(c *fiber.Ctx) error {
	query := fc.DB.Model(&models.FollowupQueueEntry{})
	if id := c.Query("campaign_id"); id != "" {
		query = query.Where("campaign_id = ?", utils.ParseUint(id))
	}
	if id := c.Query("lead_id"); id != "" {
		query = query.Where("lead_id = ?", utils.ParseUint(id))
	}
	if s := c.Query("status"); s != "" {
		query = query.Where("status = ?", s)
	}

	var entries []models.FollowupQueueEntry
	if err := query.Order("scheduled_for ASC").Find(&entries).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch queue", err)
	}
	return c.JSON(utils.SuccessResponse(entries))
}

// ListDisplay returns the deduplicated, display-ordered follow-up view:
// one entry per lead, sorted by seniority tier, response state, and
// schedule.
func (fc *FollowupController) ListDisplay(c *fiber.Ctx) error {
	var entries []models.FollowupQueueEntry
	if err := fc.DB.Where("status IN ?", []string{models.FollowupPending, models.FollowupSent}).
		Find(&entries).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch queue", err)
	}

	deduped := utils.DedupFollowups(entries)

	// Seniority ordering needs each lead's job title
	leadIDs := make([]uint, 0, len(deduped))
	for _, e := range deduped {
		leadIDs = append(leadIDs, e.LeadID)
	}
	titles := make(map[uint]string, len(leadIDs))
	if len(leadIDs) > 0 {
		var leads []models.Lead
		if err := fc.DB.Where("id IN ?", leadIDs).Find(&leads).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch leads", err)
		}
		for _, l := range leads {
			titles[l.ID] = l.JobTitle
		}
	}

	sorted := utils.SortFollowupsForDisplay(deduped, titles)
	return c.JSON(utils.SuccessResponse(sorted))
}

// Reschedule moves a pending follow-up to a new time.
func (fc *FollowupController) Reschedule(c *fiber.Ctx) error {
	entryID := utils.ParseUint(c.Params("id"))

	var input struct {
		ScheduledFor int64 `json:"scheduled_for" validate:"required"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.CoreErrorResponse(c, "Validation failed", err)
	}

	var entry models.FollowupQueueEntry
	if err := fc.DB.First(&entry, entryID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Follow-up not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch follow-up", err)
	}
	if entry.Status != models.FollowupPending {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Only pending follow-ups can be rescheduled", nil)
	}

	entry.ScheduledFor = time.Unix(input.ScheduledFor, 0)
	if err := fc.DB.Save(&entry).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to reschedule", err)
	}
	return c.JSON(utils.SuccessResponse(entry))
}
