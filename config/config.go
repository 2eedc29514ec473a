package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"outreachcrm/models"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	DB        *gorm.DB
	AppConfig Config
	envLoaded bool
)

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type SMTPConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"-"`
}

type OpenAIConfig struct {
	APIKey      string  `json:"-"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float32 `json:"temperature"`
}

type IMAPConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"-"`
	Mailbox  string `json:"mailbox"`
}

type Config struct {
	Environment    string       `json:"environment"`
	ServerPort     string       `json:"server_port"`
	DBHost         string       `json:"db_host"`
	DBPort         string       `json:"db_port"`
	DBUser         string       `json:"db_user"`
	DBPassword     string       `json:"-"`
	DBName         string       `json:"db_name"`
	DBSSLMode      string       `json:"db_ssl_mode"`
	DBMaxIdleConns int          `json:"db_max_idle_conns"`
	DBMaxOpenConns int          `json:"db_max_open_conns"`
	SentryDSN      string       `json:"-"`
	Redis          RedisConfig  `json:"redis"`
	SMTP           SMTPConfig   `json:"smtp"`
	IMAP           IMAPConfig   `json:"imap"`
	OpenAI         OpenAIConfig `json:"openai"`

	// Domain used when a send is not tied to a specific campaign, e.g.
	// auto-sent reply drafts.
	DefaultSendingDomain string `json:"default_sending_domain"`

	// Public base URL for open/click tracking links. Empty disables
	// tracking injection.
	TrackingBaseURL string `json:"tracking_base_url"`

	// Webhook called before a sequence edit is committed. Empty disables
	// the precheck entirely.
	SequenceValidationURL string `json:"sequence_validation_url"`

	// Collaborator call budget (mail transport, AI drafting).
	CollaboratorTimeout time.Duration `json:"collaborator_timeout"`

	// Worker cadence
	CampaignTickInterval time.Duration `json:"campaign_tick_interval"`
	ReplyPollInterval    time.Duration `json:"reply_poll_interval"`

	RateLimitWebhook int `json:"rate_limit_webhook"`
}

func init() {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()
	envLoaded = true
}

func LoadConfig() error {
	AppConfig = Config{
		Environment:    getEnv("ENVIRONMENT", "development"),
		ServerPort:     getEnv("SERVER_PORT", "5000"),
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     getEnv("DB_PASSWORD", ""),
		DBName:         getEnv("DB_NAME", "outreachcrm"),
		DBSSLMode:      getEnv("DB_SSL_MODE", "disable"),
		DBMaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
		DBMaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
		SentryDSN:      getEnv("SENTRY_DSN", ""),
		Redis: RedisConfig{
			Enabled:  getEnv("REDIS_ENABLED", "") == "true",
			Address:  getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
		},
		IMAP: IMAPConfig{
			Host:     getEnv("IMAP_HOST", ""),
			Port:     getEnvAsInt("IMAP_PORT", 993),
			Username: getEnv("IMAP_USERNAME", ""),
			Password: getEnv("IMAP_PASSWORD", ""),
			Mailbox:  getEnv("IMAP_MAILBOX", "INBOX"),
		},
		OpenAI: OpenAIConfig{
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			Model:       getEnv("OPENAI_MODEL", "gpt-4-turbo-preview"),
			MaxTokens:   getEnvAsInt("OPENAI_MAX_TOKENS", 1000),
			Temperature: 0.7,
		},
		DefaultSendingDomain:  getEnv("DEFAULT_SENDING_DOMAIN", ""),
		TrackingBaseURL:       getEnv("TRACKING_BASE_URL", ""),
		SequenceValidationURL: getEnv("SEQUENCE_VALIDATION_URL", ""),
		CollaboratorTimeout:   time.Duration(getEnvAsInt("COLLABORATOR_TIMEOUT_SECONDS", 30)) * time.Second,
		CampaignTickInterval:  time.Duration(getEnvAsInt("CAMPAIGN_TICK_SECONDS", 60)) * time.Second,
		ReplyPollInterval:     time.Duration(getEnvAsInt("REPLY_POLL_SECONDS", 300)) * time.Second,
		RateLimitWebhook:      getEnvAsInt("RATE_LIMIT_WEBHOOK", 120),
	}

	// Validate required configurations
	if AppConfig.DBPassword == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if AppConfig.Environment == "production" {
		if AppConfig.SMTP.Host == "" {
			return fmt.Errorf("SMTP_HOST is required in production")
		}
		if AppConfig.OpenAI.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required in production")
		}
	}

	logConfig()
	return nil
}

func ConnectDB() error {
	log.Println("Attempting to connect to database...")

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		AppConfig.DBHost,
		AppConfig.DBPort,
		AppConfig.DBUser,
		AppConfig.DBPassword,
		AppConfig.DBName,
		AppConfig.DBSSLMode,
	)
	log.Println("Using connection string:", maskPassword(dsn))

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get DB instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(AppConfig.DBMaxIdleConns)
	sqlDB.SetMaxOpenConns(AppConfig.DBMaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	log.Println("✅ Successfully connected to the database")
	log.Println("🔄 Starting database migration...")
	if err := migrateDB(DB); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	log.Println("✅ Database migration completed")
	return nil
}

// Helper functions
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	if !envLoaded && fallback == "" {
		log.Printf("⚠️ Environment variable %s not found and no fallback provided", key)
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	var value int
	_, err := fmt.Sscanf(valueStr, "%d", &value)
	if err != nil {
		return fallback
	}
	return value
}

func maskPassword(dsn string) string {
	const passwordMarker = "password="
	startIdx := strings.Index(dsn, passwordMarker)
	if startIdx == -1 {
		return dsn
	}

	startIdx += len(passwordMarker)
	endIdx := strings.IndexAny(dsn[startIdx:], " ")
	if endIdx == -1 {
		return dsn[:startIdx] + "*****"
	}
	return dsn[:startIdx] + "*****" + dsn[startIdx+endIdx:]
}

func logConfig() {
	log.Println("🔧 Loaded configuration:")
	log.Printf("Environment: %s", AppConfig.Environment)
	log.Printf("Server Port: %s", AppConfig.ServerPort)
	log.Printf("Database: %s@%s:%s/%s",
		AppConfig.DBUser,
		AppConfig.DBHost,
		AppConfig.DBPort,
		AppConfig.DBName)
	log.Printf("Collaborators: SMTP(%t), IMAP(%t), OpenAI(%t)",
		AppConfig.SMTP.Host != "",
		AppConfig.IMAP.Host != "",
		AppConfig.OpenAI.APIKey != "")
}

func migrateDB(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Lead{},
		&models.Company{},
		&models.Sequence{},
		&models.SequenceStep{},
		&models.Template{},
		&models.Campaign{},
		&models.FollowupQueueEntry{},
		&models.SendingDomain{},
		&models.WarmupPlanDay{},
		&models.DeliverabilityThreshold{},
		&models.PendingResponse{},
		&models.AIResponderConfig{},
		&models.CalendarIntegration{},
		&models.Booking{},
		&models.InboxEmail{},
		&models.SendRecord{},
	); err != nil {
		return err
	}

	// Seed rows the orchestration core depends on
	if err := models.CreateDefaultWarmupPlan(db); err != nil {
		return fmt.Errorf("failed to seed warmup plan: %w", err)
	}
	if err := models.CreateDefaultResponderConfig(db); err != nil {
		return fmt.Errorf("failed to seed responder config: %w", err)
	}
	return nil
}
