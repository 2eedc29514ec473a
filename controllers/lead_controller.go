package controller

import (
	"log"

	"outreachcrm/models"
	"outreachcrm/utils"

	"github.com/badoux/checkmail"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type LeadController struct {
	DB     *gorm.DB
	Logger *log.Logger
	Engine *utils.CampaignEngine
}

func NewLeadController(db *gorm.DB, logger *log.Logger, engine *utils.CampaignEngine) *LeadController {
	return &LeadController{
		DB:     db,
		Logger: logger,
		Engine: engine,
	}
}

func (lc *LeadController) CreateLead(c *fiber.Ctx) error {
	var input struct {
		Email     string `json:"email" validate:"required,email"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		JobTitle  string `json:"job_title"`
		CompanyID *uint  `json:"company_id"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.CoreErrorResponse(c, "Validation failed", err)
	}
	if err := checkmail.ValidateFormat(input.Email); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid email address", err)
	}

	lead := models.Lead{
		Email:               input.Email,
		FirstName:           input.FirstName,
		LastName:            input.LastName,
		JobTitle:            input.JobTitle,
		CompanyID:           input.CompanyID,
		QualificationStatus: models.QualificationUnqualified,
		OutreachStatus:      models.OutreachNotStarted,
	}
	if err := lc.DB.Create(&lead).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create lead", err)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(lead))
}

// ImportLeads bulk-creates leads, skipping rows with malformed or
// duplicate emails. Partial success is reported per row.
func (lc *LeadController) ImportLeads(c *fiber.Ctx) error {
	var input struct {
		Leads []struct {
			Email     string `json:"email"`
			FirstName string `json:"first_name"`
			LastName  string `json:"last_name"`
			JobTitle  string `json:"job_title"`
			CompanyID *uint  `json:"company_id"`
			Source    string `json:"source"`
		} `json:"leads" validate:"required,min=1"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.CoreErrorResponse(c, "Validation failed", err)
	}

	imported := 0
	var skipped []fiber.Map
	for i, row := range input.Leads {
		if err := checkmail.ValidateFormat(row.Email); err != nil {
			skipped = append(skipped, fiber.Map{"index": i, "email": row.Email, "reason": "invalid email"})
			continue
		}

		var exists int64
		lc.DB.Model(&models.Lead{}).Where("email = ?", row.Email).Count(&exists)
		if exists > 0 {
			skipped = append(skipped, fiber.Map{"index": i, "email": row.Email, "reason": "duplicate"})
			continue
		}

		lead := models.Lead{
			Email:               row.Email,
			FirstName:           row.FirstName,
			LastName:            row.LastName,
			JobTitle:            row.JobTitle,
			CompanyID:           row.CompanyID,
			Source:              row.Source,
			QualificationStatus: models.QualificationUnqualified,
			OutreachStatus:      models.OutreachNotStarted,
		}
		if err := lc.DB.Create(&lead).Error; err != nil {
			skipped = append(skipped, fiber.Map{"index": i, "email": row.Email, "reason": "database error"})
			continue
		}
		imported++
	}

	lc.Logger.Printf("Imported %d leads (%d skipped)", imported, len(skipped))
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(fiber.Map{
		"imported": imported,
		"skipped":  skipped,
	}))
}

func (lc *LeadController) GetLead(c *fiber.Ctx) error {
	leadID := utils.ParseUint(c.Params("id"))

	var lead models.Lead
	if err := lc.DB.Preload("Company").First(&lead, leadID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch lead", err)
	}
	return c.JSON(utils.SuccessResponse(lead))
}

func (lc *LeadController) ListLeads(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 50)

	query := lc.DB.Model(&models.Lead{})
	if s := c.Query("qualification_status"); s != "" {
		query = query.Where("qualification_status = ?", s)
	}
	if s := c.Query("outreach_status"); s != "" {
		query = query.Where("outreach_status = ?", s)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to count leads", err)
	}

	var leads []models.Lead
	if err := query.Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&leads).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch leads", err)
	}

	return c.JSON(utils.SuccessResponse(utils.PaginatedResponse{
		Data:  leads,
		Total: total,
		Page:  page,
		Limit: limit,
	}))
}

func (lc *LeadController) UpdateLead(c *fiber.Ctx) error {
	leadID := utils.ParseUint(c.Params("id"))

	var lead models.Lead
	if err := lc.DB.First(&lead, leadID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch lead", err)
	}

	var input struct {
		FirstName           *string `json:"first_name"`
		LastName            *string `json:"last_name"`
		JobTitle            *string `json:"job_title"`
		QualificationStatus *string `json:"qualification_status"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if input.FirstName != nil {
		lead.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		lead.LastName = *input.LastName
	}
	if input.JobTitle != nil {
		lead.JobTitle = *input.JobTitle
	}
	if input.QualificationStatus != nil {
		lead.QualificationStatus = *input.QualificationStatus
	}

	if err := lc.DB.Save(&lead).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update lead", err)
	}
	return c.JSON(utils.SuccessResponse(lead))
}

// MarkResponded is the manual counterpart of the reply webhook: an
// operator saw a reply in an external inbox and logs it here.
func (lc *LeadController) MarkResponded(c *fiber.Ctx) error {
	leadID := utils.ParseUint(c.Params("id"))

	if err := lc.Engine.OnLeadResponded(leadID); err != nil {
		return utils.CoreErrorResponse(c, "Failed to mark lead responded", err)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"outreach_status": models.OutreachResponded}))
}

// Unsubscribe flags the lead and cancels any live campaign.
func (lc *LeadController) Unsubscribe(c *fiber.Ctx) error {
	leadID := utils.ParseUint(c.Params("id"))

	var lead models.Lead
	if err := lc.DB.First(&lead, leadID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch lead", err)
	}

	lead.IsUnsubscribed = true
	if err := lc.DB.Save(&lead).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update lead", err)
	}

	if lead.CurrentCampaignID != nil {
		if err := lc.Engine.Cancel(*lead.CurrentCampaignID); err != nil && !utils.IsTransient(err) {
			lc.Logger.Printf("Failed to cancel campaign %d on unsubscribe: %v", *lead.CurrentCampaignID, err)
		}
	}
	return c.JSON(utils.SuccessResponse(lead))
}
