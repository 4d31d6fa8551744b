// CLAUDE:SUMMARY Signs and verifies HS256 session tokens carried by the bulkvis_session cookie.
// Package auth binds browsers to dashboard sessions with signed cookies.
// It does not authenticate users: a token only proves the server issued
// the session id it carries.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hazyhaar/bulkvis/horosafe"
)

// Issuer is the iss claim of session tokens.
const Issuer = "bulkvis"

// Sign returns a token for sessionID valid for ttl.
func Sign(secret []byte, sessionID string, ttl time.Duration) (string, error) {
	if err := horosafe.ValidateSecret(secret); err != nil {
		return "", fmt.Errorf("auth: %w", err)
	}
	now := time.Now()
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		SessionID: sessionID,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// Verify parses a token. Only HS256 is accepted.
func Verify(secret []byte, token string) (*SessionClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v (only HS256 allowed)", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithIssuer(Issuer))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*SessionClaims)
	if !ok || !parsed.Valid || claims.SessionID == "" {
		return nil, errors.New("auth: invalid session token")
	}
	if err := horosafe.ValidateIdentifier(claims.SessionID); err != nil {
		return nil, fmt.Errorf("auth: %w", err)
	}
	return claims, nil
}
