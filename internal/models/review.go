package models

import (
	"time"

	"github.com/google/uuid"
)

// Assignment statuses.
const (
	AssignmentActive    = "active"
	AssignmentCompleted = "completed"
	AssignmentCancelled = "cancelled"
)

// Review decisions.
const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"
)

// Review statuses.
const (
	ReviewInProgress = "in_progress"
	ReviewCompleted  = "completed"
)

// SessionAssignment links an approver to a session for review.
type SessionAssignment struct {
	ID          uuid.UUID  `json:"id"`
	SessionID   uuid.UUID  `json:"session_id"`
	ApproverID  uuid.UUID  `json:"approver_id"`
	AssignedBy  uuid.UUID  `json:"assigned_by"`
	Status      string     `json:"status"`
	AssignedAt  time.Time  `json:"assigned_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// SessionReview is one reviewer's evaluation of a session.
type SessionReview struct {
	ID               uuid.UUID  `json:"id"`
	SessionID        uuid.UUID  `json:"session_id"`
	ReviewerID       uuid.UUID  `json:"reviewer_id"`
	Status           string     `json:"status"`
	Decision         string     `json:"decision,omitempty"`
	Score            *int       `json:"score,omitempty"`
	InternalComments string     `json:"internal_comments,omitempty"`
	SpeakerFeedback  string     `json:"speaker_feedback,omitempty"`
	StartedAt        time.Time  `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// ReviewComment is a threaded comment on a review.
type ReviewComment struct {
	ID         uuid.UUID `json:"id"`
	ReviewID   uuid.UUID `json:"review_id"`
	AuthorID   uuid.UUID `json:"author_id"`
	Comment    string    `json:"comment"`
	IsInternal bool      `json:"is_internal"`
	CreatedAt  time.Time `json:"created_at"`
}

// ReviewSummary aggregates completed reviews for a session.
type ReviewSummary struct {
	Total          int     `json:"total"`
	Completed      int     `json:"completed"`
	Approvals      int     `json:"approvals"`
	Rejections     int     `json:"rejections"`
	AverageScore   float64 `json:"average_score"`
	Recommendation string  `json:"recommendation"`
}
