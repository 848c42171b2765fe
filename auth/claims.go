package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenClaims is the subset of access-token claims the session cares about.
type tokenClaims struct {
	subject   string
	email     string
	expiresAt time.Time
}

type accessTokenClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// parseClaims extracts identity claims from an access token without verifying
// the signature. The token was just issued to us over TLS by the auth
// endpoint; verification is the backend's job when the token is presented.
func parseClaims(token string) (tokenClaims, error) {
	var claims accessTokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return tokenClaims{}, fmt.Errorf("parse access token: %w", err)
	}

	out := tokenClaims{
		subject: claims.Subject,
		email:   claims.Email,
	}
	if claims.ExpiresAt != nil {
		out.expiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
