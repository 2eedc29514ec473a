package worker

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"outreachcrm/config"
	"outreachcrm/models"
	"outreachcrm/utils"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
	"gorm.io/gorm"
)

// ReplyWorker polls the shared outreach mailbox over IMAP, stores new
// inbound mail, and matches replies back to campaigns via the
// In-Reply-To / References headers against recorded Message-IDs.
type ReplyWorker struct {
	DB       *gorm.DB
	Engine   *utils.CampaignEngine
	Logger   *log.Logger
	IMAP     config.IMAPConfig
	Interval time.Duration
}

func NewReplyWorker(db *gorm.DB, engine *utils.CampaignEngine, logger *log.Logger, imapCfg config.IMAPConfig, interval time.Duration) *ReplyWorker {
	return &ReplyWorker{
		DB:       db,
		Engine:   engine,
		Logger:   logger,
		IMAP:     imapCfg,
		Interval: interval,
	}
}

func (rw *ReplyWorker) Start(ctx context.Context) {
	if rw.IMAP.Host == "" {
		rw.Logger.Println("Reply worker disabled: no IMAP host configured")
		return
	}
	rw.Logger.Println("Reply worker started")

	ticker := time.NewTicker(rw.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			rw.Logger.Println("Reply worker shutting down...")
			return
		case <-ticker.C:
			if err := rw.fetchReplies(); err != nil {
				rw.Logger.Printf("Reply fetch failed: %v", err)
			}
		}
	}
}

func (rw *ReplyWorker) fetchReplies() error {
	imapAddr := fmt.Sprintf("%s:%d", rw.IMAP.Host, rw.IMAP.Port)
	imapClient, err := client.DialTLS(imapAddr, &tls.Config{
		ServerName: rw.IMAP.Host,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to IMAP server: %v", err)
	}
	defer imapClient.Logout()

	if err := imapClient.Login(rw.IMAP.Username, rw.IMAP.Password); err != nil {
		return fmt.Errorf("failed to login to IMAP server: %v", err)
	}

	mailbox := rw.IMAP.Mailbox
	if mailbox == "" {
		mailbox = "INBOX"
	}
	if _, err := imapClient.Select(mailbox, false); err != nil {
		return fmt.Errorf("failed to select mailbox: %v", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{"\\Seen"}
	ids, err := imapClient.Search(criteria)
	if err != nil {
		return fmt.Errorf("failed to search messages: %v", err)
	}
	if len(ids) == 0 {
		return nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- imapClient.Fetch(seqset, []imap.FetchItem{imap.FetchEnvelope, imap.FetchItem("BODY.PEEK[]")}, messages)
	}()

	for msg := range messages {
		if err := rw.processMessage(msg); err != nil {
			rw.Logger.Printf("Failed to process message %d: %v", msg.SeqNum, err)
		}
	}

	if err := <-done; err != nil {
		return fmt.Errorf("error during fetch: %v", err)
	}
	return nil
}

func (rw *ReplyWorker) processMessage(msg *imap.Message) error {
	if msg.Envelope == nil || msg.Envelope.MessageId == "" {
		return fmt.Errorf("message has no envelope")
	}

	// Already ingested on a previous pass
	var existing int64
	rw.DB.Model(&models.InboxEmail{}).
		Where("message_id = ?", msg.Envelope.MessageId).Count(&existing)
	if existing > 0 {
		return nil
	}

	bodyText, references := rw.parseBody(msg)

	email := models.InboxEmail{
		MessageID: msg.Envelope.MessageId,
		ThreadID:  msg.Envelope.InReplyTo,
		From:      formatAddress(msg.Envelope.From),
		To:        formatAddress(msg.Envelope.To),
		Subject:   msg.Envelope.Subject,
		Body:      bodyText,
		Date:      msg.Envelope.Date,
		InReplyTo: msg.Envelope.InReplyTo,
		References: references,
	}

	// Try to match the reply to an outbound campaign email
	record := rw.matchSendRecord(msg.Envelope.InReplyTo, references, formatAddress(msg.Envelope.From))
	if record != nil {
		email.LeadID = &record.LeadID
		email.CampaignID = &record.CampaignID
	}

	if err := rw.DB.Create(&email).Error; err != nil {
		return fmt.Errorf("failed to save email: %v", err)
	}

	if record != nil {
		now := time.Now()
		rw.DB.Model(&models.SendRecord{}).
			Where("id = ? AND replied_at IS NULL", record.ID).
			Update("replied_at", now)

		if err := rw.Engine.OnLeadResponded(record.LeadID); err != nil {
			return fmt.Errorf("failed to process response for lead %d: %v", record.LeadID, err)
		}
		rw.DB.Model(&email).Update("processed", true)
	}
	return nil
}

// matchSendRecord resolves a reply to its outbound record: first by
// threading headers, then by sender address as a fallback.
func (rw *ReplyWorker) matchSendRecord(inReplyTo, references, from string) *models.SendRecord {
	candidates := []string{}
	if inReplyTo != "" {
		candidates = append(candidates, strings.Trim(inReplyTo, "<>"))
	}
	for _, ref := range strings.Fields(references) {
		candidates = append(candidates, strings.Trim(ref, "<>"))
	}

	for _, id := range candidates {
		var record models.SendRecord
		if err := rw.DB.Where("message_id = ?", id).First(&record).Error; err == nil {
			return &record
		}
	}

	if from == "" {
		return nil
	}
	var lead models.Lead
	if err := rw.DB.Where("email = ?", from).First(&lead).Error; err != nil {
		return nil
	}
	var record models.SendRecord
	if err := rw.DB.Where("lead_id = ?", lead.ID).Order("sent_at DESC").
		First(&record).Error; err != nil {
		return nil
	}
	return &record
}

func (rw *ReplyWorker) parseBody(msg *imap.Message) (string, string) {
	if msg.Body == nil {
		return "", ""
	}
	section := imap.BodySectionName{}
	literal, ok := msg.Body[&section]
	if !ok {
		return "", ""
	}

	mr, err := mail.CreateReader(literal)
	if err != nil {
		return "", ""
	}

	references := mr.Header.Get("References")

	var bodyText, bodyHTML string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		} else if err != nil {
			break
		}

		if h, ok := p.Header.(*mail.InlineHeader); ok {
			contentType, _, _ := h.ContentType()
			b, err := io.ReadAll(p.Body)
			if err != nil {
				continue
			}
			if strings.Contains(contentType, "text/plain") {
				bodyText = string(b)
			} else if strings.Contains(contentType, "text/html") {
				bodyHTML = string(b)
			}
		}
	}

	if bodyText == "" {
		bodyText = bodyHTML
	}
	return bodyText, references
}

func formatAddress(addrs []*imap.Address) string {
	if len(addrs) == 0 {
		return ""
	}
	return fmt.Sprintf("%s@%s", addrs[0].MailboxName, addrs[0].HostName)
}
