package worker

import (
	"context"
	"log"
	"time"

	"outreachcrm/models"
	"outreachcrm/utils"

	"gorm.io/gorm"
)

// CampaignWorker drives the campaign state machine forward on a fixed
// cadence: due follow-ups are sent, pending campaigns get their first
// advance, and deliverability-paused campaigns are resumed once their
// domain recovers.
type CampaignWorker struct {
	DB       *gorm.DB
	Engine   *utils.CampaignEngine
	Tracker  *utils.DomainTracker
	Logger   *log.Logger
	Interval time.Duration
}

func NewCampaignWorker(db *gorm.DB, engine *utils.CampaignEngine, tracker *utils.DomainTracker, logger *log.Logger, interval time.Duration) *CampaignWorker {
	return &CampaignWorker{
		DB:       db,
		Engine:   engine,
		Tracker:  tracker,
		Logger:   logger,
		Interval: interval,
	}
}

func (cw *CampaignWorker) Start(ctx context.Context) {
	cw.Logger.Println("Campaign worker started")

	ticker := time.NewTicker(cw.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			cw.Logger.Println("Campaign worker shutting down...")
			return
		case <-ticker.C:
			cw.processDueCampaigns()
			cw.resumeRecoveredCampaigns()
		}
	}
}

// processDueCampaigns advances every pending or active campaign whose
// next follow-up is due (or that has no schedule yet).
func (cw *CampaignWorker) processDueCampaigns() {
	var campaigns []models.Campaign
	if err := cw.DB.Where("status IN ?", []string{models.CampaignPending, models.CampaignActive}).
		Find(&campaigns).Error; err != nil {
		cw.Logger.Printf("Failed to fetch campaigns: %v", err)
		return
	}

	for _, campaign := range campaigns {
		result, err := cw.Engine.Advance(campaign.ID)
		if err != nil {
			if utils.IsTransient(err) {
				continue // retried next tick
			}
			cw.Logger.Printf("Failed to advance campaign %d: %v", campaign.ID, err)
			continue
		}
		if result.Outcome == utils.OutcomeSent || result.Outcome == utils.OutcomeCompleted {
			cw.Logger.Printf("Campaign %d: %s (step %d)", campaign.ID, result.Outcome, result.StepNumber)
		}
	}
}

// resumeRecoveredCampaigns re-activates campaigns that were auto-paused
// for deliverability once their domain's verdict is no longer critical.
func (cw *CampaignWorker) resumeRecoveredCampaigns() {
	var paused []models.Campaign
	if err := cw.DB.Where("status = ? AND pause_reason = ?", models.CampaignPaused, "deliverability").
		Find(&paused).Error; err != nil {
		cw.Logger.Printf("Failed to fetch paused campaigns: %v", err)
		return
	}

	// Evaluate each domain once per pass
	healthy := make(map[string]bool)
	for _, campaign := range paused {
		ok, seen := healthy[campaign.Domain]
		if !seen {
			state, err := cw.Tracker.GetState(campaign.Domain)
			if err != nil {
				cw.Logger.Printf("Failed to load domain %s: %v", campaign.Domain, err)
				continue
			}
			thresholds, err := cw.Tracker.GetThresholds(campaign.Domain)
			if err != nil {
				continue
			}
			verdict := utils.EvaluateDeliverability(state, thresholds)
			ok = verdict.Health != utils.HealthCritical
			healthy[campaign.Domain] = ok
		}
		if !ok {
			continue
		}

		if _, err := cw.Engine.Resume(campaign.ID); err != nil && !utils.IsTransient(err) {
			cw.Logger.Printf("Failed to resume campaign %d: %v", campaign.ID, err)
			continue
		}
		cw.Logger.Printf("Campaign %d resumed: domain %s recovered", campaign.ID, campaign.Domain)
	}
}
