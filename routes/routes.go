package routes

import (
	"log"
	"net/url"
	"os"
	"time"

	controller "outreachcrm/controllers"
	"outreachcrm/middleware"
	"outreachcrm/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
	"gorm.io/gorm"
)

// Services bundles the shared orchestration components wired in main.
type Services struct {
	Engine    *utils.CampaignEngine
	Tracker   *utils.DomainTracker
	Workflow  *utils.ResponseWorkflow
	Validator *utils.SequenceValidator
}

func SetupRoutes(app *fiber.App, db *gorm.DB, svc Services) {
	campaignController := controller.NewCampaignController(db, log.New(os.Stdout, "CAMPAIGN: ", log.LstdFlags), svc.Engine)
	leadController := controller.NewLeadController(db, log.New(os.Stdout, "LEAD: ", log.LstdFlags), svc.Engine)
	companyController := controller.NewCompanyController(db, log.New(os.Stdout, "COMPANY: ", log.LstdFlags))
	followupController := controller.NewFollowupController(db, log.New(os.Stdout, "FOLLOWUP: ", log.LstdFlags))
	domainController := controller.NewDomainController(db, log.New(os.Stdout, "DOMAIN: ", log.LstdFlags), svc.Tracker)
	responseController := controller.NewResponseController(db, log.New(os.Stdout, "RESPONSE: ", log.LstdFlags), svc.Workflow)
	sequenceController := controller.NewSequenceController(db, log.New(os.Stdout, "SEQUENCE: ", log.LstdFlags), svc.Validator)
	dashboardController := controller.NewDashboardController(db, log.New(os.Stdout, "DASHBOARD: ", log.LstdFlags))

	api := app.Group("/api/v1", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Lead routes
	leads := api.Group("/leads")
	leads.Post("/", leadController.CreateLead)
	leads.Post("/import", leadController.ImportLeads)
	leads.Get("/", leadController.ListLeads)
	leads.Get("/:id", leadController.GetLead)
	leads.Put("/:id", leadController.UpdateLead)
	leads.Post("/:id/responded", leadController.MarkResponded)
	leads.Post("/:id/unsubscribe", leadController.Unsubscribe)

	// Company routes
	companies := api.Group("/companies")
	companies.Post("/", companyController.CreateCompany)
	companies.Get("/", companyController.ListCompanies)
	companies.Get("/:id", companyController.GetCompany)
	companies.Put("/:id", companyController.UpdateCompany)
	companies.Post("/:id/score", companyController.ScoreCompany)
	companies.Post("/rescore", companyController.RescoreAll)

	// Sequence and template routes
	sequences := api.Group("/sequences")
	sequences.Post("/", sequenceController.CreateSequence)
	sequences.Get("/", sequenceController.ListSequences)
	sequences.Get("/:id", sequenceController.GetSequence)
	sequences.Put("/:id/active", sequenceController.SetActive)
	sequences.Put("/:id/steps/:stepId", sequenceController.UpdateStep)

	templates := api.Group("/templates")
	templates.Post("/", sequenceController.CreateTemplate)
	templates.Get("/", sequenceController.ListTemplates)

	// Campaign routes
	campaigns := api.Group("/campaigns")
	campaigns.Post("/", campaignController.StartCampaign)
	campaigns.Get("/", campaignController.ListCampaigns)
	campaigns.Get("/:id", campaignController.GetCampaign)
	campaigns.Post("/:id/advance", campaignController.AdvanceCampaign)
	campaigns.Post("/:id/pause", campaignController.PauseCampaign)
	campaigns.Post("/:id/resume", campaignController.ResumeCampaign)
	campaigns.Post("/:id/cancel", campaignController.CancelCampaign)

	// Follow-up queue routes
	followups := api.Group("/followups")
	followups.Get("/queue", followupController.ListQueue)
	followups.Get("/display", followupController.ListDisplay)
	followups.Put("/:id/reschedule", followupController.Reschedule)

	// Sending domain routes
	domains := api.Group("/domains")
	domains.Post("/", domainController.RegisterDomain)
	domains.Get("/", domainController.ListDomains)
	domains.Get("/:domain/health", domainController.GetDomainHealth)
	domains.Post("/:domain/refresh-auth", domainController.RefreshAuth)
	domains.Post("/:domain/rollover", domainController.RollOverDomain)
	domains.Put("/:domain/thresholds", domainController.UpdateThresholds)

	// AI response review routes
	responses := api.Group("/responses")
	responses.Get("/pending", responseController.ListPending)
	responses.Get("/:id", responseController.GetResponse)
	responses.Post("/:id/approve", responseController.ApproveResponse)
	responses.Post("/:id/reject", responseController.RejectResponse)
	responses.Post("/draft", responseController.RequestDraft)
	responses.Get("/config/responder", responseController.GetResponderConfig)
	responses.Put("/config/responder", responseController.UpdateResponderConfig)

	// Dashboard routes
	dashboard := api.Group("/dashboard")
	dashboard.Get("/overview", dashboardController.GetOverview)
	dashboard.Get("/funnel", dashboardController.GetOutreachFunnel)
	dashboard.Get("/domains", dashboardController.GetDomainSummary)

	// Webhook routes, rate limited per source IP
	webhooks := app.Group("/webhooks", middleware.WebhookRateLimiter(), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	webhooks.Post("/events", campaignController.HandleCampaignWebhook)
	webhooks.Post("/bookings", campaignController.HandleBookingWebhook)

	// Tracking pixel and click redirect; the token is an opaque
	// cache-buster, the message id carries the identity.
	trackingLogger := log.New(os.Stdout, "TRACKING: ", log.LstdFlags)
	app.Get("/track/open/:messageId/:token", func(c *fiber.Ctx) error {
		recordTrackingEvent(db, trackingLogger, c.Params("messageId"), "open")
		c.Set("Content-Type", "image/gif")
		return c.Send(utils.TransparentPixel())
	})
	app.Get("/track/click/:messageId/:token", func(c *fiber.Ctx) error {
		recordTrackingEvent(db, trackingLogger, c.Params("messageId"), "click")
		target := c.Query("url")
		if target == "" {
			return c.SendStatus(fiber.StatusBadRequest)
		}
		return c.Redirect(target, fiber.StatusFound)
	})

	// Live campaign progress over websocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/campaigns", websocket.New(controller.HandleCampaignProgressWS))
}

// recordTrackingEvent stamps the first open or click on a send record.
func recordTrackingEvent(db *gorm.DB, logger *log.Logger, rawMessageID, event string) {
	messageID, err := url.PathUnescape(rawMessageID)
	if err != nil {
		logger.Printf("Bad tracking message id: %v", err)
		return
	}

	column := "opened_at"
	if event == "click" {
		column = "clicked_at"
	}
	if err := db.Exec(
		"UPDATE send_records SET "+column+" = ? WHERE message_id = ? AND "+column+" IS NULL",
		time.Now(), messageID,
	).Error; err != nil {
		logger.Printf("Failed to record %s event: %v", event, err)
	}
}
