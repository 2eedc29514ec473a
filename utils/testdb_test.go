package utils

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"testing"

	"outreachcrm/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBCounter int64

// newTestDB opens a fresh in-memory database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:test%d?mode=memory&cache=shared", atomic.AddInt64(&testDBCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	err = db.AutoMigrate(
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
	)
	if err != nil {
		t.Fatalf("failed to migrate test schema: %v", err)
	}
	return db
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// sentMail records one delivery made through the fake transport.
type sentMail struct {
	Domain    string
	To        string
	Subject   string
	Body      string
	MessageID string
}

// fakeTransport implements MailTransport in-memory. Err, when set, is
// returned for every send.
type fakeTransport struct {
	mu   sync.Mutex
	Sent []sentMail
	Err  error
}

func (f *fakeTransport) Send(domain, to, subject, body, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.Sent = append(f.Sent, sentMail{
		Domain:    domain,
		To:        to,
		Subject:   subject,
		Body:      body,
		MessageID: messageID,
	})
	return nil
}

func (f *fakeTransport) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Sent)
}

// fakeDrafter returns a canned draft, or Err when set.
type fakeDrafter struct {
	mu     sync.Mutex
	Calls  int
	Result DraftResult
	Err    error
}

func (f *fakeDrafter) GenerateReply(_ context.Context, _ DraftRequest) (*DraftResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++
	if f.Err != nil {
		return nil, f.Err
	}
	result := f.Result
	if result.Subject == "" {
		result.Subject = "Re: your message"
	}
	if result.Content == "" {
		result.Content = "Thanks for getting back to us."
	}
	return &result, nil
}
