package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
)

func TestGenerateSecret(t *testing.T) {
	mfa := NewMFA("Speaker Portal")
	secret, uri, err := mfa.GenerateSecret("speaker@example.com")
	if err != nil {
		t.Fatalf("GenerateSecret: %v", err)
	}
	if secret == "" {
		t.Error("empty secret")
	}
	if !strings.HasPrefix(uri, "otpauth://totp/") {
		t.Errorf("uri = %q, want otpauth://totp/ prefix", uri)
	}
	if !strings.Contains(uri, "Speaker%20Portal") && !strings.Contains(uri, "Speaker+Portal") {
		t.Errorf("uri %q does not carry the issuer", uri)
	}
}

func TestVerifyCode(t *testing.T) {
	fixed := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	timeNow = func() time.Time { return fixed }
	defer func() { timeNow = time.Now }()

	mfa := NewMFA("Speaker Portal")
	secret, _, err := mfa.GenerateSecret("speaker@example.com")
	if err != nil {
		t.Fatalf("GenerateSecret: %v", err)
	}

	code, err := totp.GenerateCode(secret, fixed)
	if err != nil {
		t.Fatalf("GenerateCode: %v", err)
	}
	if !mfa.VerifyCode(secret, code) {
		t.Error("current code rejected")
	}

	// One period of skew is accepted either way.
	prev, err := totp.GenerateCode(secret, fixed.Add(-30*time.Second))
	if err != nil {
		t.Fatalf("GenerateCode: %v", err)
	}
	if !mfa.VerifyCode(secret, prev) {
		t.Error("previous period code rejected")
	}

	stale, err := totp.GenerateCode(secret, fixed.Add(-5*time.Minute))
	if err != nil {
		t.Fatalf("GenerateCode: %v", err)
	}
	if mfa.VerifyCode(secret, stale) {
		t.Error("stale code accepted")
	}

	if mfa.VerifyCode(secret, "000000") && code != "000000" {
		t.Error("wrong code accepted")
	}
	if mfa.VerifyCode(secret, "abc") {
		t.Error("malformed code accepted")
	}
}
