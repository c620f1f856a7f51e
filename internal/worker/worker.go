package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cybercon/speaker-portal/config"
	"github.com/cybercon/speaker-portal/pkg/queue"
)

// dequeueBackoff is the pause after a dequeue error before polling again.
const dequeueBackoff = 10 * time.Second

// DeliveryStore records email delivery attempts against their notifications.
// *notifications.Repository implements it.
type DeliveryStore interface {
	RecordDelivery(ctx context.Context, notificationID uuid.UUID, method, status, errMsg string, sentAt *time.Time) error
}

// EmailProcessor drains the email queue and delivers notification emails over
// SMTP. Delivery is best-effort: every attempt is recorded as a delivery row
// and a failed job is dropped, never retried. Without an SMTP host configured,
// jobs are consumed and recorded as skipped so the queue never backs up in
// development.
type EmailProcessor struct {
	deliveries DeliveryStore
	queue      *queue.Queue
	email      config.EmailConfig
	logger     *zap.Logger

	// send is swappable for tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmailProcessor creates an email delivery processor.
func NewEmailProcessor(deliveries DeliveryStore, q *queue.Queue, email config.EmailConfig, logger *zap.Logger) *EmailProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailProcessor{
		deliveries: deliveries,
		queue:      q,
		email:      email,
		logger:     logger,
		send:       smtp.SendMail,
	}
}

// Process executes one email job. A send failure is recorded and consumed;
// only a malformed job comes back as an error.
func (p *EmailProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeEmail {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.EmailPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	if p.email.SMTPHost == "" {
		p.recordDelivery(ctx, payload, "skipped", "smtp not configured", nil)
		p.logger.Debug("email delivery skipped", zap.String("notification_id", payload.NotificationID.String()))
		return nil
	}

	msg := buildMessage(p.email.FromAddress, payload)
	addr := p.email.SMTPHost + ":" + strconv.Itoa(p.email.SMTPPort)
	var auth smtp.Auth
	if p.email.SMTPUser != "" {
		auth = smtp.PlainAuth("", p.email.SMTPUser, p.email.SMTPPass, p.email.SMTPHost)
	}

	if err := p.send(addr, auth, p.email.FromAddress, []string{payload.RecipientEmail}, msg); err != nil {
		p.recordDelivery(ctx, payload, "failed", err.Error(), nil)
		p.logger.Error("notification email failed",
			zap.Error(err),
			zap.String("notification_id", payload.NotificationID.String()),
			zap.String("recipient", payload.RecipientEmail))
		return nil
	}

	now := time.Now()
	p.recordDelivery(ctx, payload, "sent", "", &now)
	p.logger.Info("notification email sent",
		zap.String("notification_id", payload.NotificationID.String()),
		zap.String("recipient", payload.RecipientEmail))
	return nil
}

func (p *EmailProcessor) recordDelivery(ctx context.Context, payload queue.EmailPayload, status, errMsg string, sentAt *time.Time) {
	if err := p.deliveries.RecordDelivery(ctx, payload.NotificationID, "email", status, errMsg, sentAt); err != nil {
		p.logger.Warn("record delivery failed", zap.Error(err), zap.String("notification_id", payload.NotificationID.String()))
	}
}

func buildMessage(from string, payload queue.EmailPayload) []byte {
	return []byte("From: " + from + "\r\n" +
		"To: " + payload.RecipientEmail + "\r\n" +
		"Subject: " + payload.Subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		payload.Body + "\r\n")
}

// Run starts the worker loop. Malformed jobs are logged and dropped.
func (p *EmailProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("email worker stopping")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				p.logger.Info("email worker stopping")
				return
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(dequeueBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job dropped", zap.String("job_id", job.ID), zap.Error(err))
		}
	}
}
