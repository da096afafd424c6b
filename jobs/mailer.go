package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/atheneum-lms/atheneum/internal/jobs"
)

// EmailSender delivers transactional mail.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPSender delivers mail through a plain SMTP relay. Local development
// points this at Mailpit.
type SMTPSender struct {
	Addr string
	From string
}

// NewSMTPSender constructs a sender for the given relay.
func NewSMTPSender(host string, port int, from string) *SMTPSender {
	return &SMTPSender{Addr: net.JoinHostPort(host, strconv.Itoa(port)), From: from}
}

// Send submits one message. The relay handles queueing and retries beyond
// the initial handoff.
func (s *SMTPSender) Send(_ context.Context, to, subject, body string) error {
	msg := strings.Join([]string{
		"From: " + s.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")
	return smtp.SendMail(s.Addr, nil, s.From, []string{to}, []byte(msg))
}

// MailJob delivers queued emails through the configured sender.
type MailJob struct {
	Sender  EmailSender
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewMailJob wires dependencies for the mail handler.
func NewMailJob(sender EmailSender, logger *slog.Logger, metrics *jobmetrics.Metrics) *MailJob {
	return &MailJob{Sender: sender, Logger: logger, Metrics: metrics}
}

// Handle processes TaskTypeSendEmail tasks.
func (j *MailJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Sender == nil {
		return errors.New("mail job: sender not configured")
	}
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if strings.TrimSpace(payload.To) == "" {
		return asynq.SkipRetry
	}
	track := j.Metrics.Track(TaskTypeSendEmail)
	err := j.Sender.Send(ctx, payload.To, payload.Subject, payload.Body)
	if err != nil && j.Logger != nil {
		j.Logger.Error("send email", slog.String("to", payload.To), slog.Any("error", err))
	}
	return track.End(err)
}
