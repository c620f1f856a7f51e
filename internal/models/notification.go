package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification categories.
const (
	NotifySessionUpdate  = "session_update"
	NotifyReviewUpdate   = "review_update"
	NotifyScheduleUpdate = "schedule_update"
	NotifyQuestion       = "question"
	NotifyBroadcast      = "broadcast"
	NotifySystem         = "system"
)

// Notification priorities.
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

// Notification is one in-app notification for a user.
type Notification struct {
	ID               uuid.UUID  `json:"id"`
	UserID           uuid.UUID  `json:"user_id"`
	Type             string     `json:"notification_type"`
	Title            string     `json:"title"`
	Message          string     `json:"message"`
	Priority         string     `json:"priority"`
	IsRead           bool       `json:"is_read"`
	ReadAt           *time.Time `json:"read_at,omitempty"`
	RelatedSessionID *uuid.UUID `json:"related_session_id,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// NotificationPreferences controls per-category email delivery for a user.
type NotificationPreferences struct {
	UserID               uuid.UUID `json:"user_id"`
	EmailSessionUpdates  bool      `json:"email_session_updates"`
	EmailReviewUpdates   bool      `json:"email_review_updates"`
	EmailScheduleUpdates bool      `json:"email_schedule_updates"`
	EmailQuestions       bool      `json:"email_questions"`
	EmailBroadcasts      bool      `json:"email_broadcasts"`
	PushEnabled          bool      `json:"push_enabled"`
	DigestFrequency      string    `json:"digest_frequency"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// EmailEnabledFor reports whether email is on for the notification type.
func (p *NotificationPreferences) EmailEnabledFor(notificationType string) bool {
	switch notificationType {
	case NotifySessionUpdate:
		return p.EmailSessionUpdates
	case NotifyReviewUpdate:
		return p.EmailReviewUpdates
	case NotifyScheduleUpdate:
		return p.EmailScheduleUpdates
	case NotifyQuestion:
		return p.EmailQuestions
	case NotifyBroadcast:
		return p.EmailBroadcasts
	default:
		return false
	}
}

// NotificationDelivery records one delivery attempt for a notification.
type NotificationDelivery struct {
	ID             uuid.UUID  `json:"id"`
	NotificationID uuid.UUID  `json:"notification_id"`
	Method         string     `json:"method"`
	Status         string     `json:"status"`
	Error          string     `json:"error,omitempty"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
