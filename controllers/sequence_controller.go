package controller

import (
	"log"

	"outreachcrm/models"
	"outreachcrm/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type SequenceController struct {
	DB        *gorm.DB
	Logger    *log.Logger
	Validator *utils.SequenceValidator
}

func NewSequenceController(db *gorm.DB, logger *log.Logger, validator *utils.SequenceValidator) *SequenceController {
	return &SequenceController{
		DB:        db,
		Logger:    logger,
		Validator: validator,
	}
}

func (sc *SequenceController) CreateSequence(c *fiber.Ctx) error {
	var input struct {
		Name        string `json:"name" validate:"required"`
		Description string `json:"description"`
		Steps       []struct {
			Name       string `json:"name" validate:"required"`
			TemplateID *uint  `json:"template_id"`
			DaysAfter  int    `json:"days_after" validate:"gte=0"`
		} `json:"steps"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.CoreErrorResponse(c, "Validation failed", err)
	}

	tx := sc.DB.Begin()

	sequence := models.Sequence{
		Name:        input.Name,
		Description: input.Description,
		IsActive:    true,
	}
	if err := tx.Create(&sequence).Error; err != nil {
		tx.Rollback()
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create sequence", err)
	}

	for i, s := range input.Steps {
		step := models.SequenceStep{
			SequenceID: sequence.ID,
			TemplateID: s.TemplateID,
			StepNumber: i,
			Name:       s.Name,
			DaysAfter:  s.DaysAfter,
			Enabled:    true,
		}
		if err := tx.Create(&step).Error; err != nil {
			tx.Rollback()
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create sequence step", err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to commit sequence", err)
	}

	sc.DB.Preload("Steps").First(&sequence, sequence.ID)
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(sequence))
}

func (sc *SequenceController) GetSequence(c *fiber.Ctx) error {
	sequenceID := utils.ParseUint(c.Params("id"))

	var sequence models.Sequence
	if err := sc.DB.Preload("Steps").First(&sequence, sequenceID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Sequence not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch sequence", err)
	}
	return c.JSON(utils.SuccessResponse(sequence))
}

func (sc *SequenceController) ListSequences(c *fiber.Ctx) error {
	var sequences []models.Sequence
	if err := sc.DB.Preload("Steps").Order("created_at DESC").Find(&sequences).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch sequences", err)
	}
	return c.JSON(utils.SuccessResponse(sequences))
}

// UpdateStep edits one step; the change is checked against the validation
// webhook first. Toggling Enabled here affects only future advances of
// running campaigns.
func (sc *SequenceController) UpdateStep(c *fiber.Ctx) error {
	sequenceID := utils.ParseUint(c.Params("id"))
	stepID := utils.ParseUint(c.Params("stepId"))

	var step models.SequenceStep
	if err := sc.DB.Where("id = ? AND sequence_id = ?", stepID, sequenceID).First(&step).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Step not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch step", err)
	}

	var input struct {
		Name       *string `json:"name"`
		TemplateID *uint   `json:"template_id"`
		DaysAfter  *int    `json:"days_after"`
		Enabled    *bool   `json:"enabled"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if input.DaysAfter != nil && *input.DaysAfter < 0 {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "days_after cannot be negative", nil)
	}

	if err := sc.Validator.Validate(sequenceID, "update_step", input); err != nil {
		return utils.CoreErrorResponse(c, "Step change rejected", err)
	}

	if input.Name != nil {
		step.Name = *input.Name
	}
	if input.TemplateID != nil {
		step.TemplateID = input.TemplateID
	}
	if input.DaysAfter != nil {
		step.DaysAfter = *input.DaysAfter
	}
	if input.Enabled != nil {
		step.Enabled = *input.Enabled
	}

	if err := sc.DB.Save(&step).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update step", err)
	}
	return c.JSON(utils.SuccessResponse(step))
}

// SetActive toggles whether new campaigns may start from this sequence.
func (sc *SequenceController) SetActive(c *fiber.Ctx) error {
	sequenceID := utils.ParseUint(c.Params("id"))

	var input struct {
		IsActive bool `json:"is_active"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if err := sc.Validator.Validate(sequenceID, "set_active", input); err != nil {
		return utils.CoreErrorResponse(c, "Change rejected", err)
	}

	result := sc.DB.Model(&models.Sequence{}).Where("id = ?", sequenceID).
		Update("is_active", input.IsActive)
	if result.Error != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update sequence", result.Error)
	}
	if result.RowsAffected == 0 {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Sequence not found", nil)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"is_active": input.IsActive}))
}

// CreateTemplate stores a reusable email template.
func (sc *SequenceController) CreateTemplate(c *fiber.Ctx) error {
	var input struct {
		Name        string `json:"name" validate:"required"`
		Subject     string `json:"subject" validate:"required"`
		HTMLContent string `json:"html_content"`
		TextContent string `json:"text_content"`
		Category    string `json:"category"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.CoreErrorResponse(c, "Validation failed", err)
	}

	template := models.Template{
		Name:        input.Name,
		Subject:     input.Subject,
		HTMLContent: input.HTMLContent,
		TextContent: input.TextContent,
		Category:    input.Category,
	}
	if err := sc.DB.Create(&template).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create template", err)
	}
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(template))
}

func (sc *SequenceController) ListTemplates(c *fiber.Ctx) error {
	var templates []models.Template
	if err := sc.DB.Order("created_at DESC").Find(&templates).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch templates", err)
	}
	return c.JSON(utils.SuccessResponse(templates))
}
