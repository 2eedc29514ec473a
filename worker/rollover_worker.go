package worker

import (
	"context"
	"log"

	"outreachcrm/models"
	"outreachcrm/utils"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// RolloverWorker advances every sending domain's warm-up day at midnight
// and refreshes DNS authentication status once a day. With a Redis lock
// configured, only one instance in the deployment runs each job.
type RolloverWorker struct {
	DB      *gorm.DB
	Tracker *utils.DomainTracker
	Logger  *log.Logger
	Lock    *utils.RedisLock // nil in single-instance deployments

	cron *cron.Cron
}

func NewRolloverWorker(db *gorm.DB, tracker *utils.DomainTracker, logger *log.Logger, lock *utils.RedisLock) *RolloverWorker {
	return &RolloverWorker{
		DB:      db,
		Tracker: tracker,
		Logger:  logger,
		Lock:    lock,
		cron:    cron.New(),
	}
}

func (rw *RolloverWorker) Start(ctx context.Context) {
	if _, err := rw.cron.AddFunc("0 0 * * *", rw.rollOverAll); err != nil {
		rw.Logger.Printf("Failed to schedule rollover job: %v", err)
		return
	}
	if _, err := rw.cron.AddFunc("30 0 * * *", rw.refreshAuthAll); err != nil {
		rw.Logger.Printf("Failed to schedule auth refresh job: %v", err)
		return
	}

	rw.cron.Start()
	rw.Logger.Println("Rollover worker started")

	<-ctx.Done()
	rw.Logger.Println("Rollover worker shutting down...")
	<-rw.cron.Stop().Done()
}

// acquire takes the cross-instance lock for a job. Returns a release
// func, or nil when another instance already holds it.
func (rw *RolloverWorker) acquire(job string) func() {
	if rw.Lock == nil {
		return func() {}
	}
	release, err := rw.Lock.Acquire(context.Background(), "rollover:"+job)
	if err != nil {
		rw.Logger.Printf("Lock acquisition failed for %s: %v", job, err)
		return nil
	}
	return release
}

func (rw *RolloverWorker) rollOverAll() {
	release := rw.acquire("daily")
	if release == nil {
		return
	}
	defer release()

	var domains []models.SendingDomain
	if err := rw.DB.Find(&domains).Error; err != nil {
		rw.Logger.Printf("Failed to fetch domains for rollover: %v", err)
		return
	}

	for _, domain := range domains {
		if err := rw.Tracker.RollOverDay(domain.Domain); err != nil {
			rw.Logger.Printf("Failed to roll over domain %s: %v", domain.Domain, err)
			continue
		}
	}
	rw.Logger.Printf("Rolled over %d domains", len(domains))
}

func (rw *RolloverWorker) refreshAuthAll() {
	release := rw.acquire("auth")
	if release == nil {
		return
	}
	defer release()

	var domains []models.SendingDomain
	if err := rw.DB.Find(&domains).Error; err != nil {
		rw.Logger.Printf("Failed to fetch domains for auth refresh: %v", err)
		return
	}

	for _, domain := range domains {
		if err := rw.Tracker.RefreshAuthStatus(domain.Domain); err != nil {
			rw.Logger.Printf("Auth refresh failed for %s: %v", domain.Domain, err)
		}
	}
}
