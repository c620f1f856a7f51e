package auth

import (
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// overridable in tests
var timeNow = time.Now

// MFA wraps TOTP secret generation and code verification.
type MFA struct {
	issuer string
}

// NewMFA creates an MFA helper with the configured issuer name.
func NewMFA(issuer string) *MFA {
	return &MFA{issuer: issuer}
}

// GenerateSecret creates a new TOTP secret for the account and returns the
// secret and the otpauth:// provisioning URI for authenticator apps.
func (m *MFA) GenerateSecret(accountEmail string) (secret, uri string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      m.issuer,
		AccountName: accountEmail,
	})
	if err != nil {
		return "", "", err
	}
	return key.Secret(), key.URL(), nil
}

// VerifyCode checks a TOTP code against the secret, accepting one period of
// clock skew either side.
func (m *MFA) VerifyCode(secret, code string) bool {
	ok, err := totp.ValidateCustom(code, secret, timeNow(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}
