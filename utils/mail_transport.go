package utils

import (
	"fmt"
	"net"
	"strings"

	"outreachcrm/config"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"
)

// MailTransport is the outbound mail collaborator. The caller generates
// the Message-ID (via NewMessageID) so tracking links can reference it
// before the send. Failures come back as TransientCollaboratorError
// (retry on a later tick) or PermanentCollaboratorError (hard bounce /
// rejection, step is skipped).
type MailTransport interface {
	Send(domain, to, subject, body, messageID string) error
}

// NewMessageID mints an RFC 5322 Message-ID under the sending domain.
func NewMessageID(domain string) string {
	return fmt.Sprintf("<%s@%s>", uuid.New().String(), domain)
}

// SMTPTransport sends through the configured SMTP relay using gomail.
type SMTPTransport struct {
	Host     string
	Port     int
	Username string
	Password string
}

func NewSMTPTransport(cfg config.SMTPConfig) *SMTPTransport {
	return &SMTPTransport{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: cfg.Password,
	}
}

func (t *SMTPTransport) Send(domain, to, subject, body, messageID string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", fmt.Sprintf("outreach@%s", domain))
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetHeader("Message-ID", messageID)
	m.SetBody("text/html", body)

	d := gomail.NewDialer(t.Host, t.Port, t.Username, t.Password)
	if err := d.DialAndSend(m); err != nil {
		return classifySendError(err)
	}
	return nil
}

// classifySendError maps SMTP failures into the error taxonomy. Network
// problems and 4xx greylisting are transient; 5xx rejections are
// permanent.
func classifySendError(err error) error {
	if _, ok := err.(net.Error); ok {
		return &TransientCollaboratorError{Collaborator: "mail transport", Err: err}
	}

	msg := err.Error()
	for _, code := range []string{"421", "450", "451", "452"} {
		if strings.Contains(msg, code) {
			return &TransientCollaboratorError{Collaborator: "mail transport", Err: err}
		}
	}
	for _, code := range []string{"550", "551", "552", "553", "554"} {
		if strings.Contains(msg, code) {
			return &PermanentCollaboratorError{Collaborator: "mail transport", Err: err}
		}
	}
	// Unknown failure mode: keep the step for retry rather than dropping it
	return &TransientCollaboratorError{Collaborator: "mail transport", Err: err}
}
