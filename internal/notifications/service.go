package notifications

import (
	"context"

	"go.uber.org/zap"

	"github.com/cybercon/speaker-portal/internal/metrics"
	"github.com/cybercon/speaker-portal/internal/models"
	"github.com/cybercon/speaker-portal/internal/realtime"
	"github.com/cybercon/speaker-portal/pkg/queue"
)

// Service creates notifications and fans them out: a database row always, a
// live push when the user has the feed open, an email job when the user's
// preferences allow it. Fan-out failures never fail the calling operation.
type Service struct {
	repo   *Repository
	hub    *realtime.Hub
	queue  *queue.Queue
	logger *zap.Logger
}

// NewService creates a notification service. hub and q may be nil (e.g. in
// the background worker process).
func NewService(repo *Repository, hub *realtime.Hub, q *queue.Queue, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, hub: hub, queue: q, logger: logger}
}

// Notify creates the notification and fans it out.
func (s *Service) Notify(ctx context.Context, p CreateParams) (*models.Notification, error) {
	n, err := s.repo.Create(ctx, p)
	if err != nil {
		return nil, err
	}

	if s.hub != nil {
		s.hub.SendToUser(n.UserID, "notification", n)
		metrics.NotificationsSent.WithLabelValues("push").Inc()
	}

	if s.queue != nil {
		prefs, err := s.repo.GetPreferences(ctx, n.UserID)
		if err != nil {
			s.logger.Warn("load notification preferences failed", zap.Error(err), zap.String("user_id", n.UserID.String()))
			return n, nil
		}
		if prefs.EmailEnabledFor(n.Type) {
			email, err := s.repo.EmailFor(ctx, n.UserID)
			if err != nil {
				s.logger.Warn("resolve recipient email failed", zap.Error(err), zap.String("user_id", n.UserID.String()))
				return n, nil
			}
			err = s.queue.EnqueueEmail(ctx, queue.EmailPayload{
				NotificationID: n.ID,
				UserID:         n.UserID,
				RecipientEmail: email,
				Subject:        n.Title,
				Body:           n.Message,
			})
			if err != nil {
				s.logger.Warn("enqueue notification email failed", zap.Error(err), zap.String("notification_id", n.ID.String()))
			} else {
				metrics.NotificationsSent.WithLabelValues("email").Inc()
			}
		}
	}

	return n, nil
}
