package auth

import (
	"errors"
	"net/http"
	"strings"
)

const bearerPrefix = "Bearer "

var (
	errMissingTokenIssuer       = errors.New("token issuer must be provided")
	errMissingSessionCookieName = errors.New("session cookie name must be provided")
)

// SessionValidator authenticates admin requests carrying a bearer token or the
// session cookie set at login.
type SessionValidator struct {
	issuer     *TokenIssuer
	cookieName string
}

// NewSessionValidator constructs a validator backed by issuer.
func NewSessionValidator(issuer *TokenIssuer, cookieName string) (*SessionValidator, error) {
	if issuer == nil {
		return nil, errMissingTokenIssuer
	}
	name := strings.TrimSpace(cookieName)
	if name == "" {
		return nil, errMissingSessionCookieName
	}
	return &SessionValidator{issuer: issuer, cookieName: name}, nil
}

// CookieName returns the cookie name configured for session lookups.
func (v *SessionValidator) CookieName() string {
	return v.cookieName
}

// ValidateRequest extracts the token from the request and validates it. The
// Authorization header takes precedence over the cookie.
func (v *SessionValidator) ValidateRequest(r *http.Request) (AdminClaims, error) {
	token := TokenFromRequest(r, v.cookieName)
	if token == "" {
		return AdminClaims{}, ErrMissingToken
	}
	return v.issuer.ValidateToken(token)
}

// TokenFromRequest returns the bearer token or, failing that, the named cookie.
func TokenFromRequest(r *http.Request, cookieName string) string {
	if r == nil {
		return ""
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > len(bearerPrefix) && strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return strings.TrimSpace(header[len(bearerPrefix):])
	}
	if cookieName == "" {
		return ""
	}
	cookie, err := r.Cookie(cookieName)
	if err != nil || cookie == nil {
		return ""
	}
	return strings.TrimSpace(cookie.Value)
}
