package models

import (
	"time"

	"github.com/google/uuid"
)

// Question statuses.
const (
	QuestionOpen     = "open"
	QuestionAnswered = "answered"
	QuestionClosed   = "closed"
)

// SessionQuestion is a speaker question about their session.
type SessionQuestion struct {
	ID         uuid.UUID  `json:"id"`
	SessionID  uuid.UUID  `json:"session_id"`
	AskedBy    uuid.UUID  `json:"asked_by"`
	Subject    string     `json:"subject"`
	Question   string     `json:"question"`
	IsUrgent   bool       `json:"is_urgent"`
	Status     string     `json:"status"`
	AnsweredAt *time.Time `json:"answered_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// QuestionResponse is one reply on a question thread.
type QuestionResponse struct {
	ID          uuid.UUID `json:"id"`
	QuestionID  uuid.UUID `json:"question_id"`
	ResponderID uuid.UUID `json:"responder_id"`
	Response    string    `json:"response"`
	IsInternal  bool      `json:"is_internal"`
	CreatedAt   time.Time `json:"created_at"`
}

// FAQ is a published frequently-asked question.
type FAQ struct {
	ID          uuid.UUID `json:"id"`
	Category    string    `json:"category"`
	Question    string    `json:"question"`
	Answer      string    `json:"answer"`
	OrderIndex  int       `json:"order_index"`
	IsPublished bool      `json:"is_published"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
