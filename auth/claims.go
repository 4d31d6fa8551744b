package auth

import "github.com/golang-jwt/jwt/v5"

// SessionClaims binds a browser to a dashboard session.
type SessionClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}
