package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/lms-live/backend/config"
	"github.com/lms-live/backend/pkg/queue"
)

// Mailer sends queued notification email over SMTP. It implements the worker
// Handler contract for email jobs.
type Mailer struct {
	cfg    config.EmailConfig
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	logger *zap.Logger
}

// NewMailer creates an SMTP mailer.
func NewMailer(cfg config.EmailConfig, logger *zap.Logger) *Mailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mailer{cfg: cfg, send: smtp.SendMail, logger: logger}
}

// Process sends one email job. A missing SMTP host drops the job with a log
// line rather than retrying forever in environments without mail.
func (m *Mailer) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeEmail {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.EmailPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	if m.cfg.SMTPHost == "" {
		m.logger.Warn("smtp not configured, dropping email job",
			zap.String("recipient", payload.RecipientEmail),
			zap.String("email_type", payload.EmailType))
		return nil
	}
	if payload.RecipientEmail == "" {
		return fmt.Errorf("email job %s has no recipient", job.ID)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	addr := fmt.Sprintf("%s:%d", m.cfg.SMTPHost, m.cfg.SMTPPort)
	var auth smtp.Auth
	if m.cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", m.cfg.SMTPUser, m.cfg.SMTPPass, m.cfg.SMTPHost)
	}
	msg := m.compose(payload)
	if err := m.send(addr, auth, m.cfg.FromAddress, []string{payload.RecipientEmail}, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	m.logger.Info("email sent",
		zap.String("recipient", payload.RecipientEmail),
		zap.String("email_type", payload.EmailType))
	return nil
}

func (m *Mailer) compose(p queue.EmailPayload) []byte {
	var b strings.Builder
	from := m.cfg.FromAddress
	if m.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", m.cfg.FromName, m.cfg.FromAddress)
	}
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", p.RecipientEmail)
	fmt.Fprintf(&b, "Subject: %s\r\n", p.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(p.BodyHTML)
	b.WriteString("\r\n")
	return []byte(b.String())
}
