package session

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoToken indicates no bearer token could be resolved from any source.
var ErrNoToken = errors.New("session: no bearer token configured")

// Options describe where the bearer token comes from.
type Options struct {
	Token     string
	TokenFile string
}

// Session carries the bearer token for authenticated marketplace calls.
// It replaces the original client's ambient global token store: the HTTP
// client receives a Session at construction, nothing reads shared mutable
// state. The session only holds the token; it never refreshes or
// validates it against the server.
type Session struct {
	token string
}

// Load resolves a session from the configured literal token or token
// file. Literal token wins when both are set.
func Load(opts Options) (*Session, error) {
	token := strings.TrimSpace(opts.Token)
	if token == "" && opts.TokenFile != "" {
		raw, err := os.ReadFile(opts.TokenFile)
		if err != nil {
			return nil, err
		}
		token = strings.TrimSpace(string(raw))
	}
	if token == "" {
		return nil, ErrNoToken
	}
	return &Session{token: token}, nil
}

// New wraps an already-resolved token.
func New(token string) *Session {
	return &Session{token: strings.TrimSpace(token)}
}

// AuthorizationHeader returns the value for the Authorization header.
func (s *Session) AuthorizationHeader() string {
	return "Bearer " + s.token
}

// ExpiresAt extracts the exp claim without verifying the signature. The
// client has no key material; this exists only to warn before issuing a
// request the server will reject anyway. Zero time when the token is not
// a JWT or carries no expiry.
func (s *Session) ExpiresAt() time.Time {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(s.token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// Expired reports whether the token's exp claim is in the past.
func (s *Session) Expired(now time.Time) bool {
	exp := s.ExpiresAt()
	return !exp.IsZero() && exp.Before(now)
}
