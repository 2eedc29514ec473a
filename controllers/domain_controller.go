package controller

import (
	"log"
	"time"

	"outreachcrm/models"
	"outreachcrm/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type DomainController struct {
	DB      *gorm.DB
	Logger  *log.Logger
	Tracker *utils.DomainTracker
}

func NewDomainController(db *gorm.DB, logger *log.Logger, tracker *utils.DomainTracker) *DomainController {
	return &DomainController{
		DB:      db,
		Logger:  logger,
		Tracker: tracker,
	}
}

// RegisterDomain enrolls a sending domain into the warm-up plan at day 1.
func (dc *DomainController) RegisterDomain(c *fiber.Ctx) error {
	var input struct {
		Domain string `json:"domain" validate:"required"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.CoreErrorResponse(c, "Validation failed", err)
	}

	var existing models.SendingDomain
	if err := dc.DB.Where("domain = ?", input.Domain).First(&existing).Error; err == nil {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Domain already registered", nil)
	} else if err != gorm.ErrRecordNotFound {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check domain", err)
	}

	limit, err := models.VolumeLimitForDay(dc.DB, 1)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load warm-up plan", err)
	}

	domain := models.SendingDomain{
		Domain:           input.Domain,
		WarmupStartedAt:  utils.Pointer(time.Now()),
		DayNumber:        1,
		DailyVolumeLimit: limit,
		ReputationScore:  100,
		SPFStatus:        models.AuthNone,
		DKIMStatus:       models.AuthNone,
		DMARCStatus:      models.AuthNone,
	}
	if err := dc.DB.Create(&domain).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to register domain", err)
	}

	// Kick off the first authentication probe asynchronously; results
	// land on the next read.
	go func(d string) {
		if err := dc.Tracker.RefreshAuthStatus(d); err != nil {
			dc.Logger.Printf("Initial auth probe failed for %s: %v", d, err)
		}
	}(input.Domain)

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(domain))
}

// GetDomainHealth returns the current warm-up state plus the live
// deliverability verdict.
func (dc *DomainController) GetDomainHealth(c *fiber.Ctx) error {
	name := c.Params("domain")

	state, err := dc.Tracker.GetState(name)
	if err != nil {
		return utils.CoreErrorResponse(c, "Failed to fetch domain", err)
	}
	thresholds, err := dc.Tracker.GetThresholds(name)
	if err != nil {
		return utils.CoreErrorResponse(c, "Failed to fetch thresholds", err)
	}

	verdict := utils.EvaluateDeliverability(state, thresholds)
	return c.JSON(utils.SuccessResponse(fiber.Map{
		"domain":  state,
		"health":  verdict.Health,
		"rules":   verdict.TriggeredRules,
		"paused":  verdict.ShouldPause(thresholds),
	}))
}

func (dc *DomainController) ListDomains(c *fiber.Ctx) error {
	var domains []models.SendingDomain
	if err := dc.DB.Order("domain ASC").Find(&domains).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch domains", err)
	}
	return c.JSON(utils.SuccessResponse(domains))
}

// RefreshAuth re-probes SPF/DKIM/DMARC and domain age synchronously.
func (dc *DomainController) RefreshAuth(c *fiber.Ctx) error {
	name := c.Params("domain")

	if err := dc.Tracker.RefreshAuthStatus(name); err != nil {
		return utils.CoreErrorResponse(c, "Failed to refresh authentication status", err)
	}
	state, err := dc.Tracker.GetState(name)
	if err != nil {
		return utils.CoreErrorResponse(c, "Failed to fetch domain", err)
	}
	return c.JSON(utils.SuccessResponse(state))
}

// RollOverDomain manually advances the warm-up day (the cron worker does
// this nightly for all domains).
func (dc *DomainController) RollOverDomain(c *fiber.Ctx) error {
	name := c.Params("domain")

	if err := dc.Tracker.RollOverDay(name); err != nil {
		return utils.CoreErrorResponse(c, "Failed to roll over domain", err)
	}
	state, err := dc.Tracker.GetState(name)
	if err != nil {
		return utils.CoreErrorResponse(c, "Failed to fetch domain", err)
	}
	return c.JSON(utils.SuccessResponse(state))
}

// UpdateThresholds adjusts the deliverability safeguard configuration for
// a domain.
func (dc *DomainController) UpdateThresholds(c *fiber.Ctx) error {
	name := c.Params("domain")

	var input struct {
		BounceWarningPct  *float64 `json:"bounce_warning_pct"`
		BounceCriticalPct *float64 `json:"bounce_critical_pct"`
		SpamWarningPct    *float64 `json:"spam_warning_pct"`
		SpamCriticalPct   *float64 `json:"spam_critical_pct"`
		MinReputation     *int     `json:"min_reputation_score"`
		AutoPauseEnabled  *bool    `json:"auto_pause_enabled"`
		AlertRecipients   []string `json:"alert_recipients"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	var thresholds models.DeliverabilityThreshold
	err := dc.DB.Where("domain = ?", name).First(&thresholds).Error
	if err == gorm.ErrRecordNotFound {
		thresholds = models.DefaultThresholds(name)
	} else if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch thresholds", err)
	}

	if input.BounceWarningPct != nil {
		thresholds.BounceWarningPct = *input.BounceWarningPct
	}
	if input.BounceCriticalPct != nil {
		thresholds.BounceCriticalPct = *input.BounceCriticalPct
	}
	if input.SpamWarningPct != nil {
		thresholds.SpamWarningPct = *input.SpamWarningPct
	}
	if input.SpamCriticalPct != nil {
		thresholds.SpamCriticalPct = *input.SpamCriticalPct
	}
	if input.MinReputation != nil {
		thresholds.MinReputationScore = *input.MinReputation
	}
	if input.AutoPauseEnabled != nil {
		thresholds.AutoPauseEnabled = *input.AutoPauseEnabled
	}
	if input.AlertRecipients != nil {
		thresholds.AlertRecipients = input.AlertRecipients
	}

	if thresholds.BounceWarningPct > thresholds.BounceCriticalPct {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Bounce warning threshold cannot exceed critical", nil)
	}
	if thresholds.SpamWarningPct > thresholds.SpamCriticalPct {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Spam warning threshold cannot exceed critical", nil)
	}

	if err := dc.DB.Save(&thresholds).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to save thresholds", err)
	}
	return c.JSON(utils.SuccessResponse(thresholds))
}
