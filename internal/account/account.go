// Package account decides whether a joining player may be linked to an
// external account for score submission.
//
// Tokens are checked for shape and freshness only. Signatures are never
// verified; the score store does that when it receives the token.
package account

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissing         = errors.New("user id and access token are both required")
	ErrMalformed       = errors.New("access token is not a well-formed JWT")
	ErrExpired         = errors.New("access token has expired")
	ErrSubjectMismatch = errors.New("access token subject does not match user id")
)

// Claims are the fields read from an access token.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

var parser = jwt.NewParser()

// Link returns nil when userID and token may be attached to a player.
func Link(userID, token string, now time.Time) error {
	if userID == "" || token == "" {
		return ErrMissing
	}
	claims := &Claims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if claims.ExpiresAt != nil && !now.Before(claims.ExpiresAt.Time) {
		return ErrExpired
	}
	if claims.Subject != "" && claims.Subject != userID {
		return ErrSubjectMismatch
	}
	return nil
}
