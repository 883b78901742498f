package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	CallerID uuid.UUID
	StoreID  *uuid.UUID
	JTI      string
}

// AccessTokenClaims represents the typed JWT issued to calling services.
// StoreID, when present, scopes the caller to a single store's ledger.
type AccessTokenClaims struct {
	CallerID uuid.UUID  `json:"caller_id"`
	StoreID  *uuid.UUID `json:"store_id,omitempty"`
	jwt.RegisteredClaims
}
