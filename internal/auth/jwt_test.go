package auth

import (
	"testing"

	"github.com/google/uuid"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret", 1, 30)
	userID := uuid.New()

	token, err := svc.GenerateAccess(userID, "speaker@example.com", []string{"speaker"})
	if err != nil {
		t.Fatalf("GenerateAccess: %v", err)
	}

	claims, err := svc.ValidateAccess(token)
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if claims.UserID != userID {
		t.Errorf("user id = %s, want %s", claims.UserID, userID)
	}
	if claims.Email != "speaker@example.com" {
		t.Errorf("email = %q", claims.Email)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != "speaker" {
		t.Errorf("roles = %v", claims.Roles)
	}
	if claims.TokenType != TokenAccess {
		t.Errorf("token type = %q, want %q", claims.TokenType, TokenAccess)
	}
	if claims.ID == "" {
		t.Error("expected a jti")
	}
}

func TestRefreshTokenRejectedAsAccess(t *testing.T) {
	svc := NewJWTService("test-secret", 1, 30)

	refresh, err := svc.GenerateRefresh(uuid.New(), "a@b.c", nil)
	if err != nil {
		t.Fatalf("GenerateRefresh: %v", err)
	}

	if _, err := svc.ValidateAccess(refresh); err != ErrWrongType {
		t.Errorf("ValidateAccess(refresh) err = %v, want ErrWrongType", err)
	}
	if _, err := svc.ValidateRefresh(refresh); err != nil {
		t.Errorf("ValidateRefresh(refresh) err = %v", err)
	}
}

func TestAccessTokenRejectedAsRefresh(t *testing.T) {
	svc := NewJWTService("test-secret", 1, 30)

	access, err := svc.GenerateAccess(uuid.New(), "a@b.c", nil)
	if err != nil {
		t.Fatalf("GenerateAccess: %v", err)
	}
	if _, err := svc.ValidateRefresh(access); err != ErrWrongType {
		t.Errorf("ValidateRefresh(access) err = %v, want ErrWrongType", err)
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	svc := NewJWTService("test-secret", 1, 30)
	other := NewJWTService("other-secret", 1, 30)

	token, err := svc.GenerateAccess(uuid.New(), "a@b.c", nil)
	if err != nil {
		t.Fatalf("GenerateAccess: %v", err)
	}
	if _, err := other.Validate(token); err != ErrInvalidToken {
		t.Errorf("Validate with wrong secret err = %v, want ErrInvalidToken", err)
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	svc := NewJWTService("test-secret", 1, 30)
	for _, token := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := svc.Validate(token); err != ErrInvalidToken {
			t.Errorf("Validate(%q) err = %v, want ErrInvalidToken", token, err)
		}
	}
}
