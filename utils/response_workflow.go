package utils

import (
	"context"
	"log"
	"time"

	"outreachcrm/models"

	"gorm.io/gorm"
)

// ResponseWorkflow owns the lifecycle of AI-drafted replies: generation
// on lead response, operator review, and delayed auto-send. Per-lead
// serialization rides on the same keyed mutex family as the engine.
type ResponseWorkflow struct {
	DB        *gorm.DB
	Logger    *log.Logger
	Drafter   Drafter
	Transport MailTransport
	Tracker   *DomainTracker
	Timeout   time.Duration // budget per drafting call

	locks *KeyedMutex
}

func NewResponseWorkflow(db *gorm.DB, logger *log.Logger, drafter Drafter, transport MailTransport, tracker *DomainTracker, timeout time.Duration) *ResponseWorkflow {
	return &ResponseWorkflow{
		DB:        db,
		Logger:    logger,
		Drafter:   drafter,
		Transport: transport,
		Tracker:   tracker,
		Timeout:   timeout,
		locks:     NewKeyedMutex(),
	}
}

// RequestDraft generates a reply draft for a lead that just responded.
// At most one pending draft exists per lead: a new request supersedes
// the previous pending row instead of stacking a second one.
func (rw *ResponseWorkflow) RequestDraft(leadID uint) (*models.PendingResponse, error) {
	key := LeadKey(leadID)
	rw.locks.Lock(key)
	defer rw.locks.Unlock(key)

	cfg, err := rw.loadConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.Enabled {
		return nil, nil
	}

	var lead models.Lead
	if err := rw.DB.Preload("Company").First(&lead, leadID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &NotFoundError{Entity: "lead", ID: leadID}
		}
		return nil, err
	}

	companyName := ""
	if lead.Company != nil {
		companyName = lead.Company.Name
	}

	history, inboundID := rw.conversationHistory(leadID)

	ctx, cancel := context.WithTimeout(context.Background(), rw.Timeout)
	defer cancel()

	draft, err := rw.Drafter.GenerateReply(ctx, DraftRequest{
		LeadName:            lead.FirstName + " " + lead.LastName,
		LeadEmail:           lead.Email,
		CompanyName:         companyName,
		JobTitle:            lead.JobTitle,
		ConversationHistory: history,
		Strategy:            cfg.Strategy,
		PromptTemplate:      cfg.ResponsePrompt,
	})
	if err != nil {
		rw.Logger.Printf("Draft generation failed for lead %d: %v", leadID, err)
		return nil, err
	}

	now := time.Now()

	// Supersede the existing pending draft in place if one exists
	var existing models.PendingResponse
	findErr := rw.DB.Where("lead_id = ? AND status = ?", leadID, models.ResponsePending).
		First(&existing).Error
	if findErr == nil {
		existing.Subject = draft.Subject
		existing.Content = draft.Content
		existing.EmailMessageID = inboundID
		existing.CampaignID = lead.CurrentCampaignID
		existing.GeneratedAt = now
		if err := rw.DB.Save(&existing).Error; err != nil {
			return nil, err
		}
		rw.Logger.Printf("Superseded pending draft %d for lead %d", existing.ID, leadID)
		return &existing, nil
	}
	if findErr != gorm.ErrRecordNotFound {
		return nil, findErr
	}

	pending := models.PendingResponse{
		LeadID:         leadID,
		CampaignID:     lead.CurrentCampaignID,
		EmailMessageID: inboundID,
		Subject:        draft.Subject,
		Content:        draft.Content,
		Status:         models.ResponsePending,
		GeneratedAt:    now,
	}
	if err := rw.DB.Create(&pending).Error; err != nil {
		return nil, err
	}
	rw.Logger.Printf("Drafted reply %d for lead %d", pending.ID, leadID)
	return &pending, nil
}

// Approve marks a pending draft approved, capturing any operator edits,
// and sends it immediately. Refused while the responder runs in auto-send
// mode: drafts flow pending -> approved -> sent on the delay timer alone.
func (rw *ResponseWorkflow) Approve(responseID uint, editedSubject, editedContent *string, domain string) (*models.PendingResponse, error) {
	if err := rw.rejectIfAutoSend(); err != nil {
		return nil, err
	}

	pending, err := rw.loadPending(responseID)
	if err != nil {
		return nil, err
	}

	key := LeadKey(pending.LeadID)
	rw.locks.Lock(key)
	defer rw.locks.Unlock(key)

	pending, err = rw.loadPending(responseID)
	if err != nil {
		return nil, err
	}
	if pending.Status != models.ResponsePending {
		return nil, &ConflictError{Message: "response is not pending review"}
	}

	now := time.Now()
	if editedSubject != nil && *editedSubject != pending.Subject {
		pending.Subject = *editedSubject
	}
	if editedContent != nil && *editedContent != pending.Content {
		pending.UserChanges = editedContent
		pending.Content = *editedContent
	}
	pending.Status = models.ResponseApproved
	pending.ReviewedAt = &now
	if err := rw.DB.Save(pending).Error; err != nil {
		return nil, err
	}

	if err := rw.send(pending, domain); err != nil {
		return pending, err
	}
	return pending, nil
}

// Reject discards a pending draft without sending.
func (rw *ResponseWorkflow) Reject(responseID uint) error {
	if err := rw.rejectIfAutoSend(); err != nil {
		return err
	}

	pending, err := rw.loadPending(responseID)
	if err != nil {
		return err
	}

	key := LeadKey(pending.LeadID)
	rw.locks.Lock(key)
	defer rw.locks.Unlock(key)

	pending, err = rw.loadPending(responseID)
	if err != nil {
		return err
	}
	if pending.Status != models.ResponsePending {
		return &ConflictError{Message: "response is not pending review"}
	}

	now := time.Now()
	pending.Status = models.ResponseRejected
	pending.ReviewedAt = &now
	return rw.DB.Save(pending).Error
}

// AutoSendDue dispatches every pending draft whose configured delay has
// elapsed. Only runs when the responder config has auto-send enabled.
// Returns the number of drafts sent.
func (rw *ResponseWorkflow) AutoSendDue(domain string) (int, error) {
	cfg, err := rw.loadConfig()
	if err != nil {
		return 0, err
	}
	if !cfg.Enabled || !cfg.AutoSend {
		return 0, nil
	}

	cutoff := time.Now().Add(-time.Duration(cfg.ResponseDelayMinutes) * time.Minute)

	var due []models.PendingResponse
	if err := rw.DB.Where("status = ? AND generated_at <= ?", models.ResponsePending, cutoff).
		Find(&due).Error; err != nil {
		return 0, err
	}

	sent := 0
	for i := range due {
		pending := &due[i]
		key := LeadKey(pending.LeadID)
		rw.locks.Lock(key)

		// Re-check under the lock: an operator may have just reviewed it
		fresh, err := rw.loadPending(pending.ID)
		if err != nil || fresh.Status != models.ResponsePending {
			rw.locks.Unlock(key)
			continue
		}

		now := time.Now()
		fresh.Status = models.ResponseApproved
		fresh.ReviewedAt = &now
		if err := rw.DB.Save(fresh).Error; err != nil {
			rw.locks.Unlock(key)
			return sent, err
		}
		if err := rw.send(fresh, domain); err != nil {
			rw.Logger.Printf("Auto-send failed for response %d: %v", fresh.ID, err)
			rw.locks.Unlock(key)
			continue
		}
		sent++
		rw.locks.Unlock(key)
	}
	return sent, nil
}

// send delivers an approved draft and records the sent timestamp. Caller
// must hold the lead lock. A transient transport failure puts the draft
// back to pending (ReviewedAt kept) so the next auto-send pass or a
// fresh review retries it; a permanent failure rejects it.
func (rw *ResponseWorkflow) send(pending *models.PendingResponse, domain string) error {
	var lead models.Lead
	if err := rw.DB.First(&lead, pending.LeadID).Error; err != nil {
		return err
	}

	messageID := NewMessageID(domain)
	if err := rw.Transport.Send(domain, lead.Email, pending.Subject, pending.Content, messageID); err != nil {
		if IsPermanent(err) {
			pending.Status = models.ResponseRejected
		} else {
			pending.Status = models.ResponsePending
		}
		if saveErr := rw.DB.Save(pending).Error; saveErr != nil {
			rw.Logger.Printf("Failed to reset response %d after send failure: %v", pending.ID, saveErr)
		}
		return err
	}

	now := time.Now()
	pending.Status = models.ResponseSent
	pending.SentAt = &now
	if err := rw.DB.Save(pending).Error; err != nil {
		return err
	}

	// Replies count against the domain's warm-up volume too
	if err := rw.Tracker.RecordSend(domain); err != nil {
		rw.Logger.Printf("Failed to record reply send for domain %s: %v", domain, err)
	}

	rw.Logger.Printf("Sent reply %d to lead %d (%s)", pending.ID, pending.LeadID, messageID)
	return nil
}

// conversationHistory assembles recent inbound messages for the lead,
// newest last, and returns the message-id of the latest inbound email.
func (rw *ResponseWorkflow) conversationHistory(leadID uint) ([]string, *string) {
	var emails []models.InboxEmail
	if err := rw.DB.Where("lead_id = ?", leadID).Order("date ASC").Limit(10).
		Find(&emails).Error; err != nil {
		return nil, nil
	}
	if len(emails) == 0 {
		return nil, nil
	}

	history := make([]string, 0, len(emails))
	for _, e := range emails {
		history = append(history, "From "+e.From+": "+e.Body)
	}
	latest := emails[len(emails)-1].MessageID
	return history, &latest
}

// rejectIfAutoSend blocks manual review actions while auto-send is on.
func (rw *ResponseWorkflow) rejectIfAutoSend() error {
	cfg, err := rw.loadConfig()
	if err != nil {
		return err
	}
	if cfg.Enabled && cfg.AutoSend {
		return &ConflictError{Message: "responder is in auto-send mode; manual review is disabled"}
	}
	return nil
}

func (rw *ResponseWorkflow) loadConfig() (*models.AIResponderConfig, error) {
	var cfg models.AIResponderConfig
	if err := rw.DB.First(&cfg).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &NotFoundError{Entity: "responder config", ID: 0}
		}
		return nil, err
	}
	return &cfg, nil
}

func (rw *ResponseWorkflow) loadPending(responseID uint) (*models.PendingResponse, error) {
	var pending models.PendingResponse
	if err := rw.DB.First(&pending, responseID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &NotFoundError{Entity: "pending response", ID: responseID}
		}
		return nil, err
	}
	return &pending, nil
}
