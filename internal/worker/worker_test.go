package worker

import (
	"context"
	"encoding/json"
	"errors"
	"net/smtp"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cybercon/speaker-portal/config"
	"github.com/cybercon/speaker-portal/pkg/queue"
)

type fakeDeliveries struct {
	calls  int
	status string
	errMsg string
	sentAt *time.Time
}

func (f *fakeDeliveries) RecordDelivery(_ context.Context, _ uuid.UUID, _, status, errMsg string, sentAt *time.Time) error {
	f.calls++
	f.status = status
	f.errMsg = errMsg
	f.sentAt = sentAt
	return nil
}

func emailJob(t *testing.T) *queue.Job {
	t.Helper()
	payload := queue.EmailPayload{
		NotificationID: uuid.New(),
		UserID:         uuid.New(),
		RecipientEmail: "speaker@example.com",
		Subject:        "Your session was approved",
		Body:           "See you there.",
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return &queue.Job{ID: "job-1", Type: queue.JobTypeEmail, Payload: raw, CreatedAt: time.Now()}
}

func newProcessor(deliveries *fakeDeliveries, host string, send func(string, smtp.Auth, string, []string, []byte) error) *EmailProcessor {
	return &EmailProcessor{
		deliveries: deliveries,
		email:      config.EmailConfig{FromAddress: "noreply@example.com", SMTPHost: host, SMTPPort: 587},
		logger:     zap.NewNop(),
		send:       send,
	}
}

func TestProcessSendsAndRecords(t *testing.T) {
	deliveries := &fakeDeliveries{}
	var gotTo []string
	p := newProcessor(deliveries, "smtp.example.com", func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotTo = to
		if addr != "smtp.example.com:587" {
			t.Errorf("addr = %q", addr)
		}
		return nil
	})

	if err := p.Process(context.Background(), emailJob(t)); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(gotTo) != 1 || gotTo[0] != "speaker@example.com" {
		t.Errorf("sent to %v", gotTo)
	}
	if deliveries.status != "sent" || deliveries.sentAt == nil {
		t.Errorf("recorded status %q, sentAt %v", deliveries.status, deliveries.sentAt)
	}
}

// A failed send is recorded and the job is consumed; nothing is re-enqueued.
func TestProcessSendFailureConsumesJob(t *testing.T) {
	deliveries := &fakeDeliveries{}
	p := newProcessor(deliveries, "smtp.example.com", func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	})

	if err := p.Process(context.Background(), emailJob(t)); err != nil {
		t.Fatalf("expected the job to be consumed, got %v", err)
	}
	if deliveries.status != "failed" {
		t.Errorf("recorded status %q, want failed", deliveries.status)
	}
	if deliveries.errMsg != "connection refused" {
		t.Errorf("recorded error %q", deliveries.errMsg)
	}
	if deliveries.calls != 1 {
		t.Errorf("RecordDelivery called %d times, want 1", deliveries.calls)
	}
}

func TestProcessSkipsWithoutSMTPHost(t *testing.T) {
	deliveries := &fakeDeliveries{}
	p := newProcessor(deliveries, "", func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("send must not be called without an SMTP host")
		return nil
	})

	if err := p.Process(context.Background(), emailJob(t)); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if deliveries.status != "skipped" {
		t.Errorf("recorded status %q, want skipped", deliveries.status)
	}
}

func TestProcessRejectsUnknownJobType(t *testing.T) {
	p := newProcessor(&fakeDeliveries{}, "smtp.example.com", nil)
	job := &queue.Job{ID: "job-2", Type: "video", Payload: json.RawMessage(`{}`)}
	if err := p.Process(context.Background(), job); err == nil {
		t.Fatal("expected an error for an unknown job type")
	}
}
