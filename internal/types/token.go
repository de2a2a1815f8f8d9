package types

import (
	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the payload of the bearer token issued by the REST API.
// The client only reads it; signature checks belong to the server.
type SessionClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"id,omitempty"`
	Role   string `json:"role,omitempty"`
}
