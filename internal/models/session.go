package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the lifecycle state of a session proposal.
type SessionStatus string

const (
	SessionDraft       SessionStatus = "draft"
	SessionSubmitted   SessionStatus = "submitted"
	SessionUnderReview SessionStatus = "under_review"
	SessionApproved    SessionStatus = "approved"
	SessionRejected    SessionStatus = "rejected"
	SessionScheduled   SessionStatus = "scheduled"
)

// SessionType categorizes proposals (talk, workshop, ...).
type SessionType struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	DurationMinutes int       `json:"duration_minutes"`
	IsActive        bool      `json:"is_active"`
}

// Session is a conference session proposal.
type Session struct {
	ID               uuid.UUID        `json:"id"`
	Title            string           `json:"title"`
	Description      string           `json:"description"`
	Abstract         string           `json:"abstract"`
	SessionTypeID    *uuid.UUID       `json:"session_type_id,omitempty"`
	PrimarySpeakerID uuid.UUID        `json:"primary_speaker_id"`
	Status           SessionStatus    `json:"status"`
	SubmittedAt      *time.Time       `json:"submitted_at,omitempty"`
	Speakers         []SessionSpeaker `json:"speakers,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// SessionSpeaker is an additional speaker on a session.
type SessionSpeaker struct {
	SessionID uuid.UUID `json:"session_id"`
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	RoleLabel string    `json:"role_label"`
	AddedAt   time.Time `json:"added_at"`
}

// SessionFile is one uploaded version of a session's materials.
type SessionFile struct {
	ID               uuid.UUID `json:"id"`
	SessionID        uuid.UUID `json:"session_id"`
	UploadedBy       uuid.UUID `json:"uploaded_by"`
	OriginalFilename string    `json:"original_filename"`
	StorageKey       string    `json:"-"`
	ContentType      string    `json:"content_type"`
	SizeBytes        int64     `json:"size_bytes"`
	SHA256           string    `json:"sha256"`
	Version          int       `json:"version"`
	IsCurrentVersion bool      `json:"is_current_version"`
	UploadedAt       time.Time `json:"uploaded_at"`
}
