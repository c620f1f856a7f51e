package auth

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cybercon/speaker-portal/internal/models"
)

type failingIssuer struct{}

func (failingIssuer) GenerateAccess(uuid.UUID, string, []string) (string, error) {
	return "", errors.New("sign failed")
}

func (failingIssuer) GenerateRefresh(uuid.UUID, string, []string) (string, error) {
	return "", errors.New("sign failed")
}

func (failingIssuer) ValidateRefresh(string) (*Claims, error) {
	return nil, ErrInvalidToken
}

func TestTokensIssueFailure(t *testing.T) {
	h := &Handler{jwt: failingIssuer{}, logger: zap.NewNop()}
	user := &models.User{ID: uuid.New(), Email: "speaker@example.com", Roles: []string{models.RoleSpeaker}}

	resp, err := h.tokens(user)
	if err == nil {
		t.Fatal("expected an error when token signing fails")
	}
	if resp != nil {
		t.Errorf("expected nil response on failure, got %+v", resp)
	}
}

func TestTokensIssuesPair(t *testing.T) {
	h := &Handler{jwt: NewJWTService("test-secret", 1, 30), logger: zap.NewNop()}
	user := &models.User{ID: uuid.New(), Email: "speaker@example.com", Roles: []string{models.RoleSpeaker}}

	resp, err := h.tokens(user)
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Error("expected both tokens to be issued")
	}
	if resp.User != user {
		t.Error("expected the user to be echoed in the response")
	}
}
