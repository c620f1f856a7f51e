package models

import (
	"testing"
	"time"
)

func TestInvitationValid(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		inv  ApproverInvitation
		want bool
	}{
		{"live", ApproverInvitation{ExpiresAt: now.Add(time.Hour)}, true},
		{"expired", ApproverInvitation{ExpiresAt: now.Add(-time.Hour)}, false},
		{"used", ApproverInvitation{IsUsed: true, ExpiresAt: now.Add(time.Hour)}, false},
		{"expires exactly now", ApproverInvitation{ExpiresAt: now}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.inv.Valid(now); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHasRole(t *testing.T) {
	u := User{Roles: []string{RoleSpeaker, RoleManager}}
	if !u.HasRole(RoleSpeaker) || !u.HasRole(RoleManager) {
		t.Error("expected held roles to be reported")
	}
	if u.HasRole(RoleAdmin) {
		t.Error("unexpected admin role")
	}
	var empty User
	if empty.HasRole(RoleSpeaker) {
		t.Error("empty user should hold no roles")
	}
}
