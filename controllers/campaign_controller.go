package controller

import (
	"log"

	"outreachcrm/models"
	"outreachcrm/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CampaignController struct {
	DB     *gorm.DB
	Logger *log.Logger
	Engine *utils.CampaignEngine
}

func NewCampaignController(db *gorm.DB, logger *log.Logger, engine *utils.CampaignEngine) *CampaignController {
	return &CampaignController{
		DB:     db,
		Logger: logger,
		Engine: engine,
	}
}

// StartCampaign enrolls a lead into a sequence and attempts the first send.
func (cc *CampaignController) StartCampaign(c *fiber.Ctx) error {
	var input struct {
		LeadID     uint   `json:"lead_id" validate:"required"`
		SequenceID uint   `json:"sequence_id" validate:"required"`
		Domain     string `json:"domain" validate:"required"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.CoreErrorResponse(c, "Validation failed", err)
	}

	campaign, result, err := cc.Engine.Start(input.LeadID, input.SequenceID, input.Domain)
	if err != nil {
		if utils.IsTransient(err) && campaign != nil {
			// The campaign exists; only the first send deferred
			return c.Status(fiber.StatusAccepted).JSON(utils.SuccessResponse(fiber.Map{
				"campaign": campaign,
				"result":   result,
			}))
		}
		return utils.CoreErrorResponse(c, "Failed to start campaign", err)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(fiber.Map{
		"campaign": campaign,
		"result":   result,
	}))
}

// AdvanceCampaign manually triggers one advance pass (the worker does this
// on a schedule; the endpoint exists for operators and tests).
func (cc *CampaignController) AdvanceCampaign(c *fiber.Ctx) error {
	campaignID := utils.ParseUint(c.Params("id"))

	result, err := cc.Engine.Advance(campaignID)
	if err != nil && !utils.IsTransient(err) {
		return utils.CoreErrorResponse(c, "Failed to advance campaign", err)
	}
	return c.JSON(utils.SuccessResponse(result))
}

func (cc *CampaignController) PauseCampaign(c *fiber.Ctx) error {
	campaignID := utils.ParseUint(c.Params("id"))

	if err := cc.Engine.Pause(campaignID); err != nil {
		return utils.CoreErrorResponse(c, "Failed to pause campaign", err)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"status": models.CampaignPaused}))
}

func (cc *CampaignController) ResumeCampaign(c *fiber.Ctx) error {
	campaignID := utils.ParseUint(c.Params("id"))

	result, err := cc.Engine.Resume(campaignID)
	if err != nil && !utils.IsTransient(err) {
		return utils.CoreErrorResponse(c, "Failed to resume campaign", err)
	}
	return c.JSON(utils.SuccessResponse(result))
}

func (cc *CampaignController) CancelCampaign(c *fiber.Ctx) error {
	campaignID := utils.ParseUint(c.Params("id"))

	if err := cc.Engine.Cancel(campaignID); err != nil {
		return utils.CoreErrorResponse(c, "Failed to cancel campaign", err)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"status": models.CampaignCancelled}))
}

func (cc *CampaignController) GetCampaign(c *fiber.Ctx) error {
	campaignID := utils.ParseUint(c.Params("id"))

	var campaign models.Campaign
	if err := cc.DB.Preload("Followups").First(&campaign, campaignID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch campaign", err)
	}
	return c.JSON(utils.SuccessResponse(campaign))
}

func (cc *CampaignController) ListCampaigns(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 50)
	status := c.Query("status")

	query := cc.DB.Model(&models.Campaign{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to count campaigns", err)
	}

	var campaigns []models.Campaign
	if err := query.Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&campaigns).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch campaigns", err)
	}

	return c.JSON(utils.SuccessResponse(utils.PaginatedResponse{
		Data:  campaigns,
		Total: total,
		Page:  page,
		Limit: limit,
	}))
}
