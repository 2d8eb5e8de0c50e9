package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims are the JWT claims the auth middleware extracts from an access token.
// The subject claim carries the user id used by the permission resolver.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}
