package models

import (
	"time"

	"github.com/google/uuid"
)

// Broadcast target audiences.
const (
	AudienceAllSpeakers       = "all_speakers"
	AudienceSubmittedSpeakers = "submitted_speakers"
	AudienceApprovedSpeakers  = "approved_speakers"
)

// BroadcastMessage is an admin announcement fanned out to an audience.
type BroadcastMessage struct {
	ID                  uuid.UUID  `json:"id"`
	CreatedBy           uuid.UUID  `json:"created_by"`
	Subject             string     `json:"subject"`
	Message             string     `json:"message"`
	MessageType         string     `json:"message_type"`
	TargetAudience      string     `json:"target_audience"`
	TargetSessionStatus string     `json:"target_session_status,omitempty"`
	SentAt              *time.Time `json:"sent_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
}

// MessageDelivery is the per-recipient snapshot of a broadcast.
type MessageDelivery struct {
	ID          uuid.UUID  `json:"id"`
	MessageID   uuid.UUID  `json:"message_id"`
	RecipientID uuid.UUID  `json:"recipient_id"`
	IsRead      bool       `json:"is_read"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	DeliveredAt time.Time  `json:"delivered_at"`
}

// BroadcastStats summarizes delivery state for one broadcast.
type BroadcastStats struct {
	Recipients  int     `json:"recipients"`
	Read        int     `json:"read"`
	ReadPercent float64 `json:"read_percent"`
}
