package auth

import (
	"crypto/subtle"
	"errors"
	"strings"
)

var (
	errMissingAdminEmail    = errors.New("admin email must be provided")
	errMissingAdminPassword = errors.New("admin password must be provided")

	// ErrInvalidCredentials indicates a login attempt with the wrong email or password.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
)

// CredentialChecker verifies the single administrator login.
type CredentialChecker struct {
	email    string
	password []byte
}

// NewCredentialChecker constructs a checker for the configured administrator.
func NewCredentialChecker(email, password string) (*CredentialChecker, error) {
	normalizedEmail := strings.ToLower(strings.TrimSpace(email))
	if normalizedEmail == "" {
		return nil, errMissingAdminEmail
	}
	if password == "" {
		return nil, errMissingAdminPassword
	}
	return &CredentialChecker{email: normalizedEmail, password: []byte(password)}, nil
}

// Verify returns the normalized email when email and password match.
// Email comparison ignores case and surrounding space.
func (c *CredentialChecker) Verify(email, password string) (string, error) {
	candidate := strings.ToLower(strings.TrimSpace(email))
	emailMatches := subtle.ConstantTimeCompare([]byte(candidate), []byte(c.email)) == 1
	passwordMatches := subtle.ConstantTimeCompare([]byte(password), c.password) == 1
	if !emailMatches || !passwordMatches {
		return "", ErrInvalidCredentials
	}
	return c.email, nil
}
