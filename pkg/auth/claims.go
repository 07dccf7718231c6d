package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID      uuid.UUID
	Level       int
	Permissions []string
	JTI         string
}

// AccessTokenClaims represents the typed JWT presented by operators.
type AccessTokenClaims struct {
	UserID      uuid.UUID `json:"user_id"`
	Level       int       `json:"level"`
	Permissions []string  `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}
