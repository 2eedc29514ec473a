package utils

import (
	"errors"
	"sync"
	"testing"
	"time"

	"outreachcrm/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestWorkflow(t *testing.T) (*ResponseWorkflow, *fakeDrafter, *fakeTransport, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	drafter := &fakeDrafter{}
	transport := &fakeTransport{}
	tracker := NewDomainTracker(db, testLogger())
	workflow := NewResponseWorkflow(db, testLogger(), drafter, transport, tracker, 5*time.Second)
	return workflow, drafter, transport, db
}

func seedResponderConfig(t *testing.T, db *gorm.DB, enabled, autoSend bool, delayMinutes int) {
	t.Helper()
	cfg := &models.AIResponderConfig{
		Enabled:              enabled,
		AutoSend:             autoSend,
		Strategy:             models.StrategyModerate,
		ResponseDelayMinutes: delayMinutes,
	}
	require.NoError(t, db.Create(cfg).Error)
}

func seedInboundEmail(t *testing.T, db *gorm.DB, leadID uint, messageID, body string, date time.Time) {
	t.Helper()
	email := &models.InboxEmail{
		MessageID: messageID,
		From:      "dana@prospect.com",
		To:        "sales@mail.example.com",
		Subject:   "Re: intro",
		Body:      body,
		Date:      date,
		LeadID:    &leadID,
	}
	require.NoError(t, db.Create(email).Error)
}

func TestRequestDraftCreatesPending(t *testing.T) {
	workflow, drafter, _, db := newTestWorkflow(t)
	seedResponderConfig(t, db, true, false, 30)
	lead := seedLead(t, db, "dana@prospect.com")

	seedInboundEmail(t, db, lead.ID, "<m1@prospect.com>", "Tell me more", time.Now().Add(-2*time.Hour))
	seedInboundEmail(t, db, lead.ID, "<m2@prospect.com>", "Still interested", time.Now().Add(-time.Hour))

	pending, err := workflow.RequestDraft(lead.ID)
	require.NoError(t, err)
	require.NotNil(t, pending)
	require.Equal(t, 1, drafter.Calls)
	require.Equal(t, models.ResponsePending, pending.Status)
	require.NotEmpty(t, pending.Content)

	// The draft replies to the latest inbound message
	require.NotNil(t, pending.EmailMessageID)
	require.Equal(t, "<m2@prospect.com>", *pending.EmailMessageID)
}

func TestRequestDraftDisabledResponder(t *testing.T) {
	workflow, drafter, _, db := newTestWorkflow(t)
	seedResponderConfig(t, db, false, false, 30)
	lead := seedLead(t, db, "dana@prospect.com")

	pending, err := workflow.RequestDraft(lead.ID)
	require.NoError(t, err)
	require.Nil(t, pending)
	require.Zero(t, drafter.Calls)
}

func TestRequestDraftSupersedesPrevious(t *testing.T) {
	workflow, _, _, db := newTestWorkflow(t)
	seedResponderConfig(t, db, true, false, 30)
	lead := seedLead(t, db, "dana@prospect.com")

	first, err := workflow.RequestDraft(lead.ID)
	require.NoError(t, err)

	second, err := workflow.RequestDraft(lead.ID)
	require.NoError(t, err)

	// Same row, updated in place: never two pending drafts per lead
	require.Equal(t, first.ID, second.ID)
	var count int64
	db.Model(&models.PendingResponse{}).
		Where("lead_id = ? AND status = ?", lead.ID, models.ResponsePending).
		Count(&count)
	require.EqualValues(t, 1, count)
}

func TestRequestDraftConcurrentSinglePending(t *testing.T) {
	workflow, _, _, db := newTestWorkflow(t)
	seedResponderConfig(t, db, true, false, 30)
	lead := seedLead(t, db, "dana@prospect.com")

	// Near-simultaneous requests serialize on the lead lock, so at most
	// one pending row survives
	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := workflow.RequestDraft(lead.ID); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	var count int64
	db.Model(&models.PendingResponse{}).
		Where("lead_id = ? AND status = ?", lead.ID, models.ResponsePending).
		Count(&count)
	require.EqualValues(t, 1, count)
}

func TestRequestDraftDrafterFailure(t *testing.T) {
	workflow, drafter, _, db := newTestWorkflow(t)
	seedResponderConfig(t, db, true, false, 30)
	lead := seedLead(t, db, "dana@prospect.com")

	drafter.Err = errors.New("model overloaded")

	_, err := workflow.RequestDraft(lead.ID)
	require.Error(t, err)

	var count int64
	db.Model(&models.PendingResponse{}).Where("lead_id = ?", lead.ID).Count(&count)
	require.Zero(t, count)
}

func TestApproveSendsDraft(t *testing.T) {
	workflow, _, transport, db := newTestWorkflow(t)
	seedResponderConfig(t, db, true, false, 30)
	lead := seedLead(t, db, "dana@prospect.com")

	pending, err := workflow.RequestDraft(lead.ID)
	require.NoError(t, err)

	approved, err := workflow.Approve(pending.ID, nil, nil, "mail.example.com")
	require.NoError(t, err)
	require.Equal(t, models.ResponseSent, approved.Status)
	require.NotNil(t, approved.ReviewedAt)
	require.NotNil(t, approved.SentAt)
	require.Nil(t, approved.UserChanges)
	require.Equal(t, 1, transport.sendCount())
	require.Equal(t, "dana@prospect.com", transport.Sent[0].To)

	// Double approval is a conflict
	_, err = workflow.Approve(pending.ID, nil, nil, "mail.example.com")
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestApproveCapturesEdits(t *testing.T) {
	workflow, _, transport, db := newTestWorkflow(t)
	seedResponderConfig(t, db, true, false, 30)
	lead := seedLead(t, db, "dana@prospect.com")

	pending, err := workflow.RequestDraft(lead.ID)
	require.NoError(t, err)

	subject := "Quick question, Dana"
	edited := "Thanks Dana, how about Tuesday at 10?"
	approved, err := workflow.Approve(pending.ID, &subject, &edited, "mail.example.com")
	require.NoError(t, err)
	require.NotNil(t, approved.UserChanges)
	require.Equal(t, subject, approved.Subject)
	require.Equal(t, edited, approved.Content)
	require.Equal(t, subject, transport.Sent[0].Subject)
	require.Equal(t, edited, transport.Sent[0].Body)
}

func TestManualReviewRefusedInAutoSendMode(t *testing.T) {
	workflow, _, transport, db := newTestWorkflow(t)
	seedResponderConfig(t, db, true, true, 30)
	lead := seedLead(t, db, "dana@prospect.com")

	pending, err := workflow.RequestDraft(lead.ID)
	require.NoError(t, err)

	var conflict *ConflictError
	_, err = workflow.Approve(pending.ID, nil, nil, "mail.example.com")
	require.ErrorAs(t, err, &conflict)
	require.ErrorAs(t, workflow.Reject(pending.ID), &conflict)
	require.Zero(t, transport.sendCount())
}

func TestRejectDraft(t *testing.T) {
	workflow, _, transport, db := newTestWorkflow(t)
	seedResponderConfig(t, db, true, false, 30)
	lead := seedLead(t, db, "dana@prospect.com")

	pending, err := workflow.RequestDraft(lead.ID)
	require.NoError(t, err)

	require.NoError(t, workflow.Reject(pending.ID))
	require.Zero(t, transport.sendCount())

	var fresh models.PendingResponse
	require.NoError(t, db.First(&fresh, pending.ID).Error)
	require.Equal(t, models.ResponseRejected, fresh.Status)
	require.NotNil(t, fresh.ReviewedAt)

	var conflict *ConflictError
	require.ErrorAs(t, workflow.Reject(pending.ID), &conflict)
}

func TestAutoSendDue(t *testing.T) {
	workflow, _, transport, db := newTestWorkflow(t)
	seedResponderConfig(t, db, true, true, 30)
	lead := seedLead(t, db, "dana@prospect.com")

	pending, err := workflow.RequestDraft(lead.ID)
	require.NoError(t, err)

	// Fresh draft: delay has not elapsed yet
	sent, err := workflow.AutoSendDue("mail.example.com")
	require.NoError(t, err)
	require.Zero(t, sent)

	// Backdate past the configured delay
	require.NoError(t, db.Model(&models.PendingResponse{}).Where("id = ?", pending.ID).
		Update("generated_at", time.Now().Add(-time.Hour)).Error)

	sent, err = workflow.AutoSendDue("mail.example.com")
	require.NoError(t, err)
	require.Equal(t, 1, sent)
	require.Equal(t, 1, transport.sendCount())

	var fresh models.PendingResponse
	require.NoError(t, db.First(&fresh, pending.ID).Error)
	require.Equal(t, models.ResponseSent, fresh.Status)

	// Idempotent: nothing left to send
	sent, err = workflow.AutoSendDue("mail.example.com")
	require.NoError(t, err)
	require.Zero(t, sent)
}

func TestAutoSendDisabledWithoutFlag(t *testing.T) {
	workflow, _, transport, db := newTestWorkflow(t)
	seedResponderConfig(t, db, true, false, 0)
	lead := seedLead(t, db, "dana@prospect.com")

	pending, err := workflow.RequestDraft(lead.ID)
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.PendingResponse{}).Where("id = ?", pending.ID).
		Update("generated_at", time.Now().Add(-time.Hour)).Error)

	sent, err := workflow.AutoSendDue("mail.example.com")
	require.NoError(t, err)
	require.Zero(t, sent)
	require.Zero(t, transport.sendCount())
}

func TestAutoSendRetriesAfterTransientFailure(t *testing.T) {
	workflow, _, transport, db := newTestWorkflow(t)
	seedResponderConfig(t, db, true, true, 30)
	lead := seedLead(t, db, "dana@prospect.com")

	pending, err := workflow.RequestDraft(lead.ID)
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.PendingResponse{}).Where("id = ?", pending.ID).
		Update("generated_at", time.Now().Add(-time.Hour)).Error)

	transport.Err = &TransientCollaboratorError{Collaborator: "mail transport", Err: errors.New("451 try again later")}

	sent, err := workflow.AutoSendDue("mail.example.com")
	require.NoError(t, err)
	require.Zero(t, sent)

	// Back to pending so a later pass picks it up again
	var fresh models.PendingResponse
	require.NoError(t, db.First(&fresh, pending.ID).Error)
	require.Equal(t, models.ResponsePending, fresh.Status)

	transport.Err = nil
	sent, err = workflow.AutoSendDue("mail.example.com")
	require.NoError(t, err)
	require.Equal(t, 1, sent)
	require.NoError(t, db.First(&fresh, pending.ID).Error)
	require.Equal(t, models.ResponseSent, fresh.Status)
}

func TestAutoSendPermanentFailureRejectsDraft(t *testing.T) {
	workflow, _, transport, db := newTestWorkflow(t)
	seedResponderConfig(t, db, true, true, 30)
	lead := seedLead(t, db, "dana@prospect.com")

	pending, err := workflow.RequestDraft(lead.ID)
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.PendingResponse{}).Where("id = ?", pending.ID).
		Update("generated_at", time.Now().Add(-time.Hour)).Error)

	transport.Err = &PermanentCollaboratorError{Collaborator: "mail transport", Err: errors.New("550 no such user")}

	sent, err := workflow.AutoSendDue("mail.example.com")
	require.NoError(t, err)
	require.Zero(t, sent)

	var fresh models.PendingResponse
	require.NoError(t, db.First(&fresh, pending.ID).Error)
	require.Equal(t, models.ResponseRejected, fresh.Status)

	// Never retried
	transport.Err = nil
	sent, err = workflow.AutoSendDue("mail.example.com")
	require.NoError(t, err)
	require.Zero(t, sent)
}

func TestApproveTransientFailureRollsBack(t *testing.T) {
	workflow, _, transport, db := newTestWorkflow(t)
	seedResponderConfig(t, db, true, false, 30)
	lead := seedLead(t, db, "dana@prospect.com")

	pending, err := workflow.RequestDraft(lead.ID)
	require.NoError(t, err)

	transport.Err = &TransientCollaboratorError{Collaborator: "mail transport", Err: errors.New("connection reset")}

	_, err = workflow.Approve(pending.ID, nil, nil, "mail.example.com")
	require.Error(t, err)
	require.True(t, IsTransient(err))

	var fresh models.PendingResponse
	require.NoError(t, db.First(&fresh, pending.ID).Error)
	require.Equal(t, models.ResponsePending, fresh.Status)
	require.NotNil(t, fresh.ReviewedAt)

	// A second review goes through once the transport recovers
	transport.Err = nil
	approved, err := workflow.Approve(pending.ID, nil, nil, "mail.example.com")
	require.NoError(t, err)
	require.Equal(t, models.ResponseSent, approved.Status)
	require.Equal(t, 1, transport.sendCount())
}

func TestApproveRecordsDomainSend(t *testing.T) {
	workflow, _, _, db := newTestWorkflow(t)
	seedResponderConfig(t, db, true, false, 30)
	seedDomain(t, db, "mail.example.com")
	lead := seedLead(t, db, "dana@prospect.com")

	pending, err := workflow.RequestDraft(lead.ID)
	require.NoError(t, err)

	_, err = workflow.Approve(pending.ID, nil, nil, "mail.example.com")
	require.NoError(t, err)

	var state models.SendingDomain
	require.NoError(t, db.Where("domain = ?", "mail.example.com").First(&state).Error)
	require.EqualValues(t, 1, state.DailyVolumeSent)
	require.EqualValues(t, 1, state.TotalSent)
}
