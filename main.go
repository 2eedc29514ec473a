package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"

	"outreachcrm/config"
	"outreachcrm/middleware"
	"outreachcrm/routes"
	"outreachcrm/utils"
	"outreachcrm/worker"
)

func main() {
	logger := log.New(os.Stdout, "OUTREACH: ", log.Ldate|log.Ltime|log.Lshortfile)

	if err := config.LoadConfig(); err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	if config.AppConfig.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         config.AppConfig.SentryDSN,
			Environment: config.AppConfig.Environment,
		}); err != nil {
			logger.Printf("Sentry initialization failed: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	if err := config.ConnectDB(); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Shared orchestration services
	tracker := utils.NewDomainTracker(config.DB, log.New(os.Stdout, "DOMAIN: ", log.LstdFlags))
	transport := utils.NewSMTPTransport(config.AppConfig.SMTP)
	drafter := utils.NewOpenAIDrafter(config.AppConfig.OpenAI, log.New(os.Stdout, "DRAFTER: ", log.LstdFlags))

	workflow := utils.NewResponseWorkflow(
		config.DB,
		log.New(os.Stdout, "RESPONSE: ", log.LstdFlags),
		drafter,
		transport,
		tracker,
		config.AppConfig.CollaboratorTimeout,
	)

	engine := utils.NewCampaignEngine(config.DB, log.New(os.Stdout, "CAMPAIGN: ", log.LstdFlags), transport, tracker)
	engine.Drafts = workflow
	engine.BaseURL = config.AppConfig.TrackingBaseURL

	validator := utils.NewSequenceValidator(
		config.AppConfig.SequenceValidationURL,
		config.AppConfig.CollaboratorTimeout,
		log.New(os.Stdout, "SEQUENCE: ", log.LstdFlags),
	)

	app := fiber.New()
	app.Use(middleware.CORS())

	// Background workers
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	campaignWorker := worker.NewCampaignWorker(
		config.DB, engine, tracker,
		log.New(os.Stdout, "CAMPAIGN-WORKER: ", log.LstdFlags),
		config.AppConfig.CampaignTickInterval,
	)
	go campaignWorker.Start(ctx)

	responderWorker := worker.NewResponderWorker(
		config.DB, workflow,
		log.New(os.Stdout, "RESPONDER: ", log.LstdFlags),
		config.AppConfig.DefaultSendingDomain,
		config.AppConfig.CampaignTickInterval,
	)
	go responderWorker.Start(ctx)

	replyWorker := worker.NewReplyWorker(
		config.DB, engine,
		log.New(os.Stdout, "REPLY: ", log.LstdFlags),
		config.AppConfig.IMAP,
		config.AppConfig.ReplyPollInterval,
	)
	go replyWorker.Start(ctx)

	var rolloverLock *utils.RedisLock
	if config.AppConfig.Redis.Enabled {
		rolloverLock = utils.NewRedisLock(redis.NewClient(&redis.Options{
			Addr:     config.AppConfig.Redis.Address,
			Password: config.AppConfig.Redis.Password,
			DB:       config.AppConfig.Redis.DB,
		}), 5*time.Minute)
	}
	rolloverWorker := worker.NewRolloverWorker(
		config.DB, tracker,
		log.New(os.Stdout, "ROLLOVER: ", log.LstdFlags),
		rolloverLock,
	)
	go rolloverWorker.Start(ctx)

	routes.SetupRoutes(app, config.DB, routes.Services{
		Engine:    engine,
		Tracker:   tracker,
		Workflow:  workflow,
		Validator: validator,
	})

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "running",
			"version": "1.0.0",
		})
	})

	// Graceful shutdown on SIGINT/SIGTERM
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		logger.Println("Shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	logger.Printf("🚀 Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
