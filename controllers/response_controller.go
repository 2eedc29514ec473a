package controller

import (
	"log"

	"outreachcrm/models"
	"outreachcrm/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type ResponseController struct {
	DB       *gorm.DB
	Logger   *log.Logger
	Workflow *utils.ResponseWorkflow
}

func NewResponseController(db *gorm.DB, logger *log.Logger, workflow *utils.ResponseWorkflow) *ResponseController {
	return &ResponseController{
		DB:       db,
		Logger:   logger,
		Workflow: workflow,
	}
}

// ListPending returns drafts awaiting review, oldest first.
func (rc *ResponseController) ListPending(c *fiber.Ctx) error {
	var pending []models.PendingResponse
	if err := rc.DB.Where("status = ?", models.ResponsePending).
		Order("generated_at ASC").Find(&pending).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch pending responses", err)
	}
	return c.JSON(utils.SuccessResponse(pending))
}

func (rc *ResponseController) GetResponse(c *fiber.Ctx) error {
	responseID := utils.ParseUint(c.Params("id"))

	var pending models.PendingResponse
	if err := rc.DB.First(&pending, responseID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Response not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch response", err)
	}
	return c.JSON(utils.SuccessResponse(pending))
}

// ApproveResponse approves a draft (optionally with edits) and sends it.
func (rc *ResponseController) ApproveResponse(c *fiber.Ctx) error {
	responseID := utils.ParseUint(c.Params("id"))

	var input struct {
		Subject *string `json:"subject"` // edited subject, unchanged when nil
		Content *string `json:"content"` // edited body, unchanged when nil
		Domain  string  `json:"domain" validate:"required"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.CoreErrorResponse(c, "Validation failed", err)
	}

	pending, err := rc.Workflow.Approve(responseID, input.Subject, input.Content, input.Domain)
	if err != nil {
		if utils.IsTransient(err) && pending != nil {
			// Send deferred; the draft is back in the review queue and
			// can be approved again
			return c.Status(fiber.StatusAccepted).JSON(utils.SuccessResponse(pending))
		}
		return utils.CoreErrorResponse(c, "Failed to approve response", err)
	}
	return c.JSON(utils.SuccessResponse(pending))
}

func (rc *ResponseController) RejectResponse(c *fiber.Ctx) error {
	responseID := utils.ParseUint(c.Params("id"))

	if err := rc.Workflow.Reject(responseID); err != nil {
		return utils.CoreErrorResponse(c, "Failed to reject response", err)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"status": models.ResponseRejected}))
}

// RequestDraft regenerates the draft for a lead on demand, superseding
// any existing pending draft.
func (rc *ResponseController) RequestDraft(c *fiber.Ctx) error {
	var input struct {
		LeadID uint `json:"lead_id" validate:"required"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.CoreErrorResponse(c, "Validation failed", err)
	}

	pending, err := rc.Workflow.RequestDraft(input.LeadID)
	if err != nil {
		return utils.CoreErrorResponse(c, "Failed to generate draft", err)
	}
	if pending == nil {
		return utils.ErrorResponse(c, fiber.StatusConflict, "AI responder is disabled", nil)
	}
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(pending))
}

// GetResponderConfig returns the process-wide responder policy.
func (rc *ResponseController) GetResponderConfig(c *fiber.Ctx) error {
	var cfg models.AIResponderConfig
	if err := rc.DB.First(&cfg).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch responder config", err)
	}
	return c.JSON(utils.SuccessResponse(cfg))
}

// UpdateResponderConfig mutates the responder policy with bounds checks.
func (rc *ResponseController) UpdateResponderConfig(c *fiber.Ctx) error {
	var cfg models.AIResponderConfig
	if err := rc.DB.First(&cfg).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch responder config", err)
	}

	var input struct {
		Enabled              *bool   `json:"enabled"`
		AutoSend             *bool   `json:"auto_send"`
		Strategy             *string `json:"strategy"`
		ResponsePrompt       *string `json:"response_prompt"`
		ResponseDelayMinutes *int    `json:"response_delay_minutes"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if input.Enabled != nil {
		cfg.Enabled = *input.Enabled
	}
	if input.AutoSend != nil {
		cfg.AutoSend = *input.AutoSend
	}
	if input.Strategy != nil {
		cfg.Strategy = *input.Strategy
	}
	if input.ResponsePrompt != nil {
		cfg.ResponsePrompt = *input.ResponsePrompt
	}
	if input.ResponseDelayMinutes != nil {
		cfg.ResponseDelayMinutes = *input.ResponseDelayMinutes
	}

	if err := cfg.Validate(); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid responder config", err)
	}
	if err := rc.DB.Save(&cfg).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to save responder config", err)
	}
	return c.JSON(utils.SuccessResponse(cfg))
}
