package utils

import (
	"log"
	"strings"
	"time"

	"outreachcrm/models"

	"github.com/badoux/checkmail"
	"gorm.io/gorm"
)

// Advance outcomes
const (
	OutcomeSent                 = "sent"
	OutcomeCompleted            = "completed"
	OutcomeWaiting              = "waiting"               // next step not due yet
	OutcomeDeferredSafeguard    = "deferred_deliverability" // paused by critical verdict
	OutcomeDeferredCapacity     = "deferred_capacity"       // daily warm-up limit reached
	OutcomeDeferredTransient    = "deferred_transient"      // transport hiccup, retry next tick
	OutcomeSkippedPermanent     = "skipped_permanent"       // hard rejection, step skipped
	OutcomeNoop                 = "noop"                    // terminal or paused campaign
)

// AdvanceResult describes what a single advance() pass did.
type AdvanceResult struct {
	Outcome     string `json:"outcome"`
	StepNumber  int    `json:"step_number"`
	MessageID   string `json:"message_id,omitempty"`
	HealthRules []string `json:"health_rules,omitempty"`
}

// DraftRequester is the hook the engine fires when a lead responds; the
// pending-response workflow implements it.
type DraftRequester interface {
	RequestDraft(leadID uint) (*models.PendingResponse, error)
}

// CampaignEngine is the campaign state machine: pending -> active ->
// completed, with active <-> paused and cancel always available. All
// entrypoints are serialized per lead through the shared keyed mutex, so
// two concurrent starts for one lead cannot both pass the conflict check.
type CampaignEngine struct {
	DB        *gorm.DB
	Logger    *log.Logger
	Transport MailTransport
	Tracker   *DomainTracker
	Drafts    DraftRequester
	BaseURL   string // tracking link base; empty disables injection

	locks *KeyedMutex
}

func NewCampaignEngine(db *gorm.DB, logger *log.Logger, transport MailTransport, tracker *DomainTracker) *CampaignEngine {
	return &CampaignEngine{
		DB:        db,
		Logger:    logger,
		Transport: transport,
		Tracker:   tracker,
		locks:     NewKeyedMutex(),
	}
}

// Start creates a campaign for (lead, sequence) and immediately attempts
// the first advance. Rejected with ConflictError when a pending or active
// campaign already exists for the lead.
func (ce *CampaignEngine) Start(leadID, sequenceID uint, domain string) (*models.Campaign, *AdvanceResult, error) {
	key := LeadKey(leadID)
	ce.locks.Lock(key)
	defer ce.locks.Unlock(key)

	var lead models.Lead
	if err := ce.DB.First(&lead, leadID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, &NotFoundError{Entity: "lead", ID: leadID}
		}
		return nil, nil, err
	}

	if lead.Email == "" {
		return nil, nil, &ValidationError{Field: "email", Message: "lead has no email address"}
	}
	if err := checkmail.ValidateFormat(lead.Email); err != nil {
		return nil, nil, &ValidationError{Field: "email", Message: "lead email is not a valid address"}
	}
	if lead.IsUnsubscribed || lead.IsDoNotContact {
		return nil, nil, &ValidationError{Field: "lead", Message: "lead has opted out of outreach"}
	}
	if domain == "" {
		return nil, nil, &ValidationError{Field: "domain", Message: "sending domain is required"}
	}

	var sequence models.Sequence
	if err := ce.DB.Preload("Steps").First(&sequence, sequenceID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, &NotFoundError{Entity: "sequence", ID: sequenceID}
		}
		return nil, nil, err
	}
	if !sequence.IsActive {
		return nil, nil, &ValidationError{Field: "sequence", Message: "sequence is not active"}
	}
	if len(sequence.Steps) == 0 {
		return nil, nil, &ValidationError{Field: "sequence", Message: "sequence has no steps"}
	}

	// At most one pending/active campaign per lead
	var existing int64
	if err := ce.DB.Model(&models.Campaign{}).
		Where("lead_id = ? AND status IN ?", leadID, []string{models.CampaignPending, models.CampaignActive}).
		Count(&existing).Error; err != nil {
		return nil, nil, err
	}
	if existing > 0 {
		return nil, nil, &ConflictError{Message: "lead already has an active or pending campaign"}
	}

	campaign := &models.Campaign{
		LeadID:     leadID,
		SequenceID: sequenceID,
		Status:     models.CampaignPending,
		Domain:     domain,
	}
	if err := ce.DB.Create(campaign).Error; err != nil {
		return nil, nil, err
	}

	lead.OutreachStatus = models.OutreachQueued
	lead.CurrentCampaignID = &campaign.ID
	if err := ce.DB.Save(&lead).Error; err != nil {
		return nil, nil, err
	}

	ce.Logger.Printf("Started campaign %d for lead %d (sequence %d)", campaign.ID, leadID, sequenceID)

	result, err := ce.advanceLocked(campaign)
	return campaign, result, err
}

// Advance runs one pass of the state machine for a campaign.
func (ce *CampaignEngine) Advance(campaignID uint) (*AdvanceResult, error) {
	campaign, err := ce.loadCampaign(campaignID)
	if err != nil {
		return nil, err
	}

	key := LeadKey(campaign.LeadID)
	ce.locks.Lock(key)
	defer ce.locks.Unlock(key)

	// Re-read under the lock; a cancel may have landed in between
	campaign, err = ce.loadCampaign(campaignID)
	if err != nil {
		return nil, err
	}
	return ce.advanceLocked(campaign)
}

// advanceLocked implements the advance pass. Caller must hold the lead lock.
func (ce *CampaignEngine) advanceLocked(campaign *models.Campaign) (*AdvanceResult, error) {
	// Idempotent on terminal campaigns, inert while manually paused
	if campaign.IsTerminal() || campaign.Status == models.CampaignPaused {
		return &AdvanceResult{Outcome: OutcomeNoop, StepNumber: campaign.CurrentStep}, nil
	}

	var sequence models.Sequence
	if err := ce.DB.Preload("Steps").First(&sequence, campaign.SequenceID).Error; err != nil {
		return nil, err
	}
	steps := sequence.OrderedSteps()

	for campaign.CurrentStep < len(steps) {
		step := steps[campaign.CurrentStep]

		// Disabled steps are passed over without sending
		if !step.Enabled {
			campaign.CurrentStep++
			if err := ce.DB.Save(campaign).Error; err != nil {
				return nil, err
			}
			continue
		}

		// Honor the schedule: a pending follow-up entry for this step that
		// is not yet due means the campaign just waits.
		var due models.FollowupQueueEntry
		err := ce.DB.Where(
			"campaign_id = ? AND followup_number = ? AND status = ?",
			campaign.ID, campaign.CurrentStep, models.FollowupPending,
		).First(&due).Error
		if err == nil && due.ScheduledFor.After(time.Now()) {
			return &AdvanceResult{Outcome: OutcomeWaiting, StepNumber: campaign.CurrentStep}, nil
		}
		if err != nil && err != gorm.ErrRecordNotFound {
			return nil, err
		}

		return ce.dispatchStep(campaign, steps, step)
	}

	return ce.complete(campaign)
}

// dispatchStep consults the deliverability safeguard, sends the step, and
// records the outcome.
func (ce *CampaignEngine) dispatchStep(campaign *models.Campaign, steps []models.SequenceStep, step models.SequenceStep) (*AdvanceResult, error) {
	state, err := ce.Tracker.GetState(campaign.Domain)
	if err != nil {
		return nil, err
	}
	thresholds, err := ce.Tracker.GetThresholds(campaign.Domain)
	if err != nil {
		return nil, err
	}

	// Never cached: the verdict is recomputed before every send
	verdict := EvaluateDeliverability(state, thresholds)
	if verdict.ShouldPause(thresholds) {
		now := time.Now()
		campaign.Status = models.CampaignPaused
		campaign.PausedAt = &now
		campaign.PauseReason = "deliverability"
		if err := ce.DB.Save(campaign).Error; err != nil {
			return nil, err
		}
		ce.Logger.Printf("Campaign %d paused: domain %s critical (%v)",
			campaign.ID, campaign.Domain, verdict.TriggeredRules)
		return &AdvanceResult{
			Outcome:     OutcomeDeferredSafeguard,
			StepNumber:  campaign.CurrentStep,
			HealthRules: verdict.TriggeredRules,
		}, nil
	}

	// Warm-up volume throttle: hold the step without pausing
	if state.DailyVolumeSent >= state.DailyVolumeLimit {
		return &AdvanceResult{Outcome: OutcomeDeferredCapacity, StepNumber: campaign.CurrentStep}, nil
	}

	var lead models.Lead
	if err := ce.DB.First(&lead, campaign.LeadID).Error; err != nil {
		return nil, err
	}

	subject, body := ce.renderStep(step, &lead)
	messageID := NewMessageID(campaign.Domain)
	body = InjectTracking(body, ce.BaseURL, messageID)
	sendErr := ce.Transport.Send(campaign.Domain, lead.Email, subject, body, messageID)

	if sendErr != nil {
		if IsPermanent(sendErr) {
			// Hard rejection: mark the step skipped and move past it
			ce.markFollowup(campaign.ID, campaign.CurrentStep, models.FollowupSkipped)
			skipped := campaign.CurrentStep
			campaign.CurrentStep++
			if err := ce.DB.Save(campaign).Error; err != nil {
				return nil, err
			}
			ce.Logger.Printf("Campaign %d step %d skipped: %v", campaign.ID, skipped, sendErr)
			ce.scheduleNext(campaign, steps)
			if campaign.CurrentStep >= len(steps) {
				return ce.complete(campaign)
			}
			return &AdvanceResult{Outcome: OutcomeSkippedPermanent, StepNumber: skipped}, nil
		}
		// Transient: leave all state untouched so the next tick retries
		ce.Logger.Printf("Campaign %d step %d deferred: %v", campaign.ID, campaign.CurrentStep, sendErr)
		return &AdvanceResult{Outcome: OutcomeDeferredTransient, StepNumber: campaign.CurrentStep}, sendErr
	}

	now := time.Now()
	sent := campaign.CurrentStep

	record := models.SendRecord{
		CampaignID: campaign.ID,
		LeadID:     lead.ID,
		StepNumber: sent,
		Domain:     campaign.Domain,
		MessageID:  messageID,
		Subject:    subject,
		SentAt:     now,
	}
	if err := ce.DB.Create(&record).Error; err != nil {
		return nil, err
	}

	ce.markFollowup(campaign.ID, sent, models.FollowupSent)

	if campaign.Status == models.CampaignPending {
		campaign.StartedAt = &now
	}
	campaign.Status = models.CampaignActive
	campaign.CurrentStep++
	campaign.SentCount++
	if err := ce.DB.Save(campaign).Error; err != nil {
		return nil, err
	}

	lead.OutreachStatus = models.OutreachInSequence
	lead.LastContact = &now
	if err := ce.DB.Save(&lead).Error; err != nil {
		return nil, err
	}

	if err := ce.Tracker.RecordSend(campaign.Domain); err != nil {
		ce.Logger.Printf("Failed to record send for domain %s: %v", campaign.Domain, err)
	}
	ce.DB.Model(&models.SequenceStep{}).Where("id = ?", step.ID).
		Update("sent_count", gorm.Expr("sent_count + ?", 1))

	ce.scheduleNext(campaign, steps)

	if campaign.CurrentStep >= len(steps) {
		if _, err := ce.complete(campaign); err != nil {
			return nil, err
		}
	}

	ce.Logger.Printf("Campaign %d sent step %d to lead %d (%s)", campaign.ID, sent, lead.ID, messageID)
	return &AdvanceResult{Outcome: OutcomeSent, StepNumber: sent, MessageID: messageID}, nil
}

// scheduleNext materializes the follow-up entry for the next enabled
// step, scheduled DaysAfter days from now.
func (ce *CampaignEngine) scheduleNext(campaign *models.Campaign, steps []models.SequenceStep) {
	next := campaign.CurrentStep
	for next < len(steps) && !steps[next].Enabled {
		next++
	}
	if next >= len(steps) {
		return
	}

	entry := models.FollowupQueueEntry{
		LeadID:         campaign.LeadID,
		CampaignID:     campaign.ID,
		FollowupNumber: next,
		ScheduledFor:   time.Now().AddDate(0, 0, steps[next].DaysAfter),
		Status:         models.FollowupPending,
	}
	if err := ce.DB.Create(&entry).Error; err != nil {
		ce.Logger.Printf("Failed to schedule follow-up for campaign %d: %v", campaign.ID, err)
	}
}

func (ce *CampaignEngine) complete(campaign *models.Campaign) (*AdvanceResult, error) {
	if campaign.Status == models.CampaignCompleted {
		return &AdvanceResult{Outcome: OutcomeCompleted, StepNumber: campaign.CurrentStep}, nil
	}
	now := time.Now()
	campaign.Status = models.CampaignCompleted
	campaign.CompletedAt = &now
	if err := ce.DB.Save(campaign).Error; err != nil {
		return nil, err
	}

	ce.DB.Model(&models.Lead{}).Where("id = ? AND outreach_status = ?", campaign.LeadID, models.OutreachInSequence).
		Update("outreach_status", models.OutreachCompleted)

	ce.Logger.Printf("Campaign %d completed", campaign.ID)
	return &AdvanceResult{Outcome: OutcomeCompleted, StepNumber: campaign.CurrentStep}, nil
}

// Pause is the manual operator control.
func (ce *CampaignEngine) Pause(campaignID uint) error {
	return ce.transition(campaignID, func(campaign *models.Campaign) error {
		if campaign.Status != models.CampaignActive && campaign.Status != models.CampaignPending {
			return &ConflictError{Message: "only pending or active campaigns can be paused"}
		}
		now := time.Now()
		campaign.Status = models.CampaignPaused
		campaign.PausedAt = &now
		campaign.PauseReason = "manual"
		return nil
	})
}

// Resume reactivates a paused campaign and re-attempts the advance.
func (ce *CampaignEngine) Resume(campaignID uint) (*AdvanceResult, error) {
	campaign, err := ce.loadCampaign(campaignID)
	if err != nil {
		return nil, err
	}

	key := LeadKey(campaign.LeadID)
	ce.locks.Lock(key)
	defer ce.locks.Unlock(key)

	campaign, err = ce.loadCampaign(campaignID)
	if err != nil {
		return nil, err
	}
	if campaign.Status != models.CampaignPaused {
		return nil, &ConflictError{Message: "campaign is not paused"}
	}
	campaign.Status = models.CampaignActive
	campaign.PausedAt = nil
	campaign.PauseReason = ""
	if err := ce.DB.Save(campaign).Error; err != nil {
		return nil, err
	}
	return ce.advanceLocked(campaign)
}

// Cancel is terminal and safe to call at any time; state is re-checked
// under the lead lock so it cannot race an in-flight advance.
func (ce *CampaignEngine) Cancel(campaignID uint) error {
	return ce.transition(campaignID, func(campaign *models.Campaign) error {
		if campaign.IsTerminal() {
			return &ConflictError{Message: "campaign is already " + campaign.Status}
		}
		campaign.Status = models.CampaignCancelled

		// Cancel the outstanding follow-ups and release the lead
		ce.DB.Model(&models.FollowupQueueEntry{}).
			Where("campaign_id = ? AND status = ?", campaign.ID, models.FollowupPending).
			Update("status", models.FollowupCancelled)
		ce.DB.Model(&models.Lead{}).Where("id = ?", campaign.LeadID).
			Update("current_campaign_id", nil)
		return nil
	})
}

// OnLeadResponded handles a reply: flips the lead to responded, marks the
// most recent follow-up entry, and asks the workflow for an AI draft.
func (ce *CampaignEngine) OnLeadResponded(leadID uint) error {
	key := LeadKey(leadID)
	ce.locks.Lock(key)
	defer ce.locks.Unlock(key)

	var lead models.Lead
	if err := ce.DB.First(&lead, leadID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return &NotFoundError{Entity: "lead", ID: leadID}
		}
		return err
	}

	lead.OutreachStatus = models.OutreachResponded
	if err := ce.DB.Save(&lead).Error; err != nil {
		return err
	}

	var latest models.FollowupQueueEntry
	err := ce.DB.Where("lead_id = ?", leadID).Order("scheduled_for DESC").First(&latest).Error
	if err == nil {
		latest.Responded = true
		if err := ce.DB.Save(&latest).Error; err != nil {
			return err
		}
	} else if err != gorm.ErrRecordNotFound {
		return err
	}

	if lead.CurrentCampaignID != nil {
		ce.DB.Model(&models.Campaign{}).Where("id = ?", *lead.CurrentCampaignID).
			Update("reply_count", gorm.Expr("reply_count + ?", 1))
	}

	if ce.Drafts != nil {
		if _, err := ce.Drafts.RequestDraft(leadID); err != nil {
			// Draft generation failing must not lose the responded state
			ce.Logger.Printf("Draft request failed for lead %d: %v", leadID, err)
		}
	}
	return nil
}

// ApplyBookingStatus reflects the calendar collaborator's booking state
// onto the lead. Only confirmed bookings flip outreach status.
func (ce *CampaignEngine) ApplyBookingStatus(booking *models.Booking) error {
	if booking.BookingStatus != models.BookingConfirmed {
		return nil
	}
	key := LeadKey(booking.LeadID)
	ce.locks.Lock(key)
	defer ce.locks.Unlock(key)

	return ce.DB.Model(&models.Lead{}).Where("id = ?", booking.LeadID).
		Update("outreach_status", models.OutreachBooked).Error
}

func (ce *CampaignEngine) loadCampaign(campaignID uint) (*models.Campaign, error) {
	var campaign models.Campaign
	if err := ce.DB.First(&campaign, campaignID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &NotFoundError{Entity: "campaign", ID: campaignID}
		}
		return nil, err
	}
	return &campaign, nil
}

func (ce *CampaignEngine) transition(campaignID uint, fn func(*models.Campaign) error) error {
	campaign, err := ce.loadCampaign(campaignID)
	if err != nil {
		return err
	}

	key := LeadKey(campaign.LeadID)
	ce.locks.Lock(key)
	defer ce.locks.Unlock(key)

	campaign, err = ce.loadCampaign(campaignID)
	if err != nil {
		return err
	}
	if err := fn(campaign); err != nil {
		return err
	}
	return ce.DB.Save(campaign).Error
}

// markFollowup updates the pending entry for a step, if one exists.
func (ce *CampaignEngine) markFollowup(campaignID uint, stepNumber int, status string) {
	ce.DB.Model(&models.FollowupQueueEntry{}).
		Where("campaign_id = ? AND followup_number = ? AND status = ?",
			campaignID, stepNumber, models.FollowupPending).
		Update("status", status)
}

// renderStep produces the subject and body for a step, applying light
// personalization and tracking injection.
func (ce *CampaignEngine) renderStep(step models.SequenceStep, lead *models.Lead) (string, string) {
	subject := step.Name
	body := ""

	if step.TemplateID != nil {
		var tmpl models.Template
		if err := ce.DB.First(&tmpl, *step.TemplateID).Error; err == nil {
			subject = tmpl.Subject
			body = tmpl.HTMLContent
			if body == "" {
				body = tmpl.TextContent
			}
		}
	}

	replacer := strings.NewReplacer(
		"{{first_name}}", lead.FirstName,
		"{{last_name}}", lead.LastName,
		"{{job_title}}", lead.JobTitle,
	)
	subject = replacer.Replace(subject)
	body = replacer.Replace(body)

	return subject, body
}
