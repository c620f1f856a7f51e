package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Schedule statuses.
const (
	ScheduleTentative = "tentative"
	ScheduleConfirmed = "confirmed"
	ScheduleCancelled = "cancelled"
)

// Room is a physical conference room.
type Room struct {
	ID       uuid.UUID       `json:"id"`
	Name     string          `json:"name"`
	Capacity int             `json:"capacity"`
	Location string          `json:"location"`
	Features json.RawMessage `json:"features,omitempty"`
	IsActive bool            `json:"is_active"`
}

// SessionSchedule places a session in a room on a day.
// Start and End are wall-clock times formatted "HH:MM".
type SessionSchedule struct {
	ID          uuid.UUID `json:"id"`
	SessionID   uuid.UUID `json:"session_id"`
	RoomID      uuid.UUID `json:"room_id"`
	Day         time.Time `json:"day"`
	StartTime   string    `json:"start_time"`
	EndTime     string    `json:"end_time"`
	Status      string    `json:"status"`
	ScheduledBy uuid.UUID `json:"scheduled_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
