package worker

import (
	"context"
	"log"
	"time"

	"outreachcrm/utils"

	"gorm.io/gorm"
)

// ResponderWorker auto-sends AI drafts whose review delay has elapsed.
// It only acts when the responder config has auto-send enabled; otherwise
// every pass is a no-op and drafts wait for manual review.
type ResponderWorker struct {
	DB       *gorm.DB
	Workflow *utils.ResponseWorkflow
	Logger   *log.Logger
	Domain   string // sending domain used for auto-sent replies
	Interval time.Duration
}

func NewResponderWorker(db *gorm.DB, workflow *utils.ResponseWorkflow, logger *log.Logger, domain string, interval time.Duration) *ResponderWorker {
	return &ResponderWorker{
		DB:       db,
		Workflow: workflow,
		Logger:   logger,
		Domain:   domain,
		Interval: interval,
	}
}

func (rw *ResponderWorker) Start(ctx context.Context) {
	rw.Logger.Println("Responder worker started")

	ticker := time.NewTicker(rw.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			rw.Logger.Println("Responder worker shutting down...")
			return
		case <-ticker.C:
			sent, err := rw.Workflow.AutoSendDue(rw.Domain)
			if err != nil {
				rw.Logger.Printf("Auto-send pass failed: %v", err)
				continue
			}
			if sent > 0 {
				rw.Logger.Printf("Auto-sent %d drafted replies", sent)
			}
		}
	}
}
