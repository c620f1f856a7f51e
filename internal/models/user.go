package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Role names known to the system.
const (
	RoleSpeaker = "speaker"
	RoleManager = "manager"
	RoleAdmin   = "admin"
)

// User represents a portal account.
type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Organization string     `json:"organization"`
	Phone        string     `json:"phone"`
	Bio          string     `json:"bio"`
	IsActive     bool       `json:"is_active"`
	MFAEnabled   bool       `json:"mfa_enabled"`
	MFASecret    string     `json:"-"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	Roles        []string   `json:"roles"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// HasRole reports whether the user holds the named role.
func (u *User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if r == name {
			return true
		}
	}
	return false
}

// Role is a named permission set.
type Role struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Permissions json.RawMessage `json:"permissions"`
}

// ApproverInvitation lets an invited email register with an elevated role.
type ApproverInvitation struct {
	ID        uuid.UUID  `json:"id"`
	Email     string     `json:"email"`
	Token     string     `json:"-"`
	RoleName  string     `json:"role_name"`
	InvitedBy uuid.UUID  `json:"invited_by"`
	IsUsed    bool       `json:"is_used"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	ExpiresAt time.Time  `json:"expires_at"`
	CreatedAt time.Time  `json:"created_at"`
}

// Valid reports whether the invitation can still be redeemed at t.
func (i *ApproverInvitation) Valid(t time.Time) bool {
	return !i.IsUsed && t.Before(i.ExpiresAt)
}

// AuditLog is one append-only audit record.
type AuditLog struct {
	ID           uuid.UUID       `json:"id"`
	UserID       *uuid.UUID      `json:"user_id,omitempty"`
	Action       string          `json:"action"`
	ResourceType string          `json:"resource_type"`
	ResourceID   string          `json:"resource_id"`
	Details      json.RawMessage `json:"details,omitempty"`
	IPAddress    string          `json:"ip_address"`
	UserAgent    string          `json:"user_agent"`
	CreatedAt    time.Time       `json:"created_at"`
}
