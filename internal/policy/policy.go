package policy

import (
	"github.com/google/uuid"

	"github.com/cybercon/speaker-portal/internal/models"
)

// Action is what the actor wants to do with a session.
type Action string

const (
	ActionView Action = "view"
	ActionEdit Action = "edit"
)

// Actor is the minimum identity needed for a decision.
type Actor struct {
	UserID uuid.UUID
	Roles  []string
}

func (a Actor) hasRole(name string) bool {
	for _, r := range a.Roles {
		if r == name {
			return true
		}
	}
	return false
}

// IsStaff reports whether the actor holds a manager or admin role.
func (a Actor) IsStaff() bool {
	return a.hasRole(models.RoleManager) || a.hasRole(models.RoleAdmin)
}

// CanAccess is the single access decision for sessions.
//
// Staff (manager/admin) may always view and edit. The primary speaker edits
// while the session is draft or submitted. Additional speakers edit only while
// draft. Any associated speaker may view.
func CanAccess(actor Actor, session *models.Session, action Action) bool {
	if actor.IsStaff() {
		return true
	}

	isPrimary := session.PrimarySpeakerID == actor.UserID
	isAdditional := false
	for _, s := range session.Speakers {
		if s.UserID == actor.UserID {
			isAdditional = true
			break
		}
	}
	if !isPrimary && !isAdditional {
		return false
	}

	switch action {
	case ActionView:
		return true
	case ActionEdit:
		if isPrimary {
			return session.Status == models.SessionDraft || session.Status == models.SessionSubmitted
		}
		return session.Status == models.SessionDraft
	default:
		return false
	}
}
