package controller

import (
	"log"
	"time"

	"outreachcrm/models"
	"outreachcrm/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CompanyController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewCompanyController(db *gorm.DB, logger *log.Logger) *CompanyController {
	return &CompanyController{DB: db, Logger: logger}
}

func (cc *CompanyController) CreateCompany(c *fiber.Ctx) error {
	var input struct {
		Name              string `json:"name" validate:"required"`
		IndustryType      string `json:"industry_type"`
		LocationCount     int    `json:"location_count"`
		EmployeeCount     int    `json:"employee_count"`
		RevenueRange      string `json:"revenue_range"`
		HeadquartersState string `json:"headquarters_state"`
		ContractExpiresAt *int64 `json:"contract_expires_at"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.CoreErrorResponse(c, "Validation failed", err)
	}

	company := models.Company{
		Name:              input.Name,
		IndustryType:      input.IndustryType,
		LocationCount:     input.LocationCount,
		EmployeeCount:     input.EmployeeCount,
		RevenueRange:      input.RevenueRange,
		HeadquartersState: input.HeadquartersState,
	}
	if input.ContractExpiresAt != nil {
		company.ContractExpiresAt = utils.Pointer(time.Unix(*input.ContractExpiresAt, 0))
	}

	// Derived fields are computed on write, never left stale
	utils.RescoreCompany(&company)
	company.TimelineCategory = utils.TimelineCategory(company.ContractExpiresAt, time.Now())

	if err := cc.DB.Create(&company).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create company", err)
	}
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(company))
}

func (cc *CompanyController) GetCompany(c *fiber.Ctx) error {
	companyID := utils.ParseUint(c.Params("id"))

	var company models.Company
	if err := cc.DB.Preload("Leads").First(&company, companyID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Company not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch company", err)
	}
	return c.JSON(utils.SuccessResponse(company))
}

func (cc *CompanyController) ListCompanies(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 50)

	query := cc.DB.Model(&models.Company{})
	if c.Query("qualified") == "true" {
		query = query.Where("icp_qualified = ?", true)
	}
	if tc := c.Query("timeline"); tc != "" {
		query = query.Where("timeline_category = ?", tc)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to count companies", err)
	}

	var companies []models.Company
	if err := query.Order("icp_score DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&companies).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch companies", err)
	}

	return c.JSON(utils.SuccessResponse(utils.PaginatedResponse{
		Data:  companies,
		Total: total,
		Page:  page,
		Limit: limit,
	}))
}

func (cc *CompanyController) UpdateCompany(c *fiber.Ctx) error {
	companyID := utils.ParseUint(c.Params("id"))

	var company models.Company
	if err := cc.DB.First(&company, companyID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Company not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch company", err)
	}

	var input struct {
		IndustryType      *string `json:"industry_type"`
		LocationCount     *int    `json:"location_count"`
		EmployeeCount     *int    `json:"employee_count"`
		RevenueRange      *string `json:"revenue_range"`
		HeadquartersState *string `json:"headquarters_state"`
		ContractExpiresAt *int64  `json:"contract_expires_at"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if input.IndustryType != nil {
		company.IndustryType = *input.IndustryType
	}
	if input.LocationCount != nil {
		company.LocationCount = *input.LocationCount
	}
	if input.EmployeeCount != nil {
		company.EmployeeCount = *input.EmployeeCount
	}
	if input.RevenueRange != nil {
		company.RevenueRange = *input.RevenueRange
	}
	if input.HeadquartersState != nil {
		company.HeadquartersState = *input.HeadquartersState
	}
	if input.ContractExpiresAt != nil {
		company.ContractExpiresAt = utils.Pointer(time.Unix(*input.ContractExpiresAt, 0))
	}

	// Firmographic edits invalidate the previous score
	utils.RescoreCompany(&company)
	company.TimelineCategory = utils.TimelineCategory(company.ContractExpiresAt, time.Now())

	if err := cc.DB.Save(&company).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update company", err)
	}
	return c.JSON(utils.SuccessResponse(company))
}

// ScoreCompany re-runs ICP scoring on demand and returns the breakdown.
func (cc *CompanyController) ScoreCompany(c *fiber.Ctx) error {
	companyID := utils.ParseUint(c.Params("id"))

	var company models.Company
	if err := cc.DB.First(&company, companyID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Company not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch company", err)
	}

	result := utils.ScoreCompany(&company)
	utils.RescoreCompany(&company)
	company.TimelineCategory = utils.TimelineCategory(company.ContractExpiresAt, time.Now())
	if err := cc.DB.Save(&company).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to persist score", err)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"company": company,
		"result":  result,
	}))
}

// RescoreAll recomputes scores for every company, for when the scoring
// bands change.
func (cc *CompanyController) RescoreAll(c *fiber.Ctx) error {
	var companies []models.Company
	if err := cc.DB.Find(&companies).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch companies", err)
	}

	now := time.Now()
	for i := range companies {
		utils.RescoreCompany(&companies[i])
		companies[i].TimelineCategory = utils.TimelineCategory(companies[i].ContractExpiresAt, now)
		if err := cc.DB.Save(&companies[i]).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to persist scores", err)
		}
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{"rescored": len(companies)}))
}
