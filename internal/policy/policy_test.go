package policy

import (
	"testing"

	"github.com/google/uuid"

	"github.com/cybercon/speaker-portal/internal/models"
)

func TestCanAccess(t *testing.T) {
	primary := uuid.New()
	additional := uuid.New()
	stranger := uuid.New()

	session := func(status models.SessionStatus) *models.Session {
		return &models.Session{
			ID:               uuid.New(),
			PrimarySpeakerID: primary,
			Status:           status,
			Speakers: []models.SessionSpeaker{
				{UserID: additional},
			},
		}
	}

	tests := []struct {
		name   string
		actor  Actor
		status models.SessionStatus
		action Action
		want   bool
	}{
		{"admin edits anything", Actor{UserID: stranger, Roles: []string{models.RoleAdmin}}, models.SessionScheduled, ActionEdit, true},
		{"manager views anything", Actor{UserID: stranger, Roles: []string{models.RoleManager}}, models.SessionDraft, ActionView, true},
		{"primary edits draft", Actor{UserID: primary}, models.SessionDraft, ActionEdit, true},
		{"primary edits submitted", Actor{UserID: primary}, models.SessionSubmitted, ActionEdit, true},
		{"primary cannot edit approved", Actor{UserID: primary}, models.SessionApproved, ActionEdit, false},
		{"primary views scheduled", Actor{UserID: primary}, models.SessionScheduled, ActionView, true},
		{"additional edits draft", Actor{UserID: additional}, models.SessionDraft, ActionEdit, true},
		{"additional cannot edit submitted", Actor{UserID: additional}, models.SessionSubmitted, ActionEdit, false},
		{"additional views submitted", Actor{UserID: additional}, models.SessionSubmitted, ActionView, true},
		{"stranger cannot view", Actor{UserID: stranger}, models.SessionSubmitted, ActionView, false},
		{"stranger cannot edit", Actor{UserID: stranger}, models.SessionDraft, ActionEdit, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanAccess(tt.actor, session(tt.status), tt.action); got != tt.want {
				t.Fatalf("CanAccess() = %v, want %v", got, tt.want)
			}
		})
	}
}
