// Package auth provides JWT validation for the drive API.
//
// The API does not issue tokens: the frontend's identity provider signs
// HS256 bearer tokens with a shared secret, and this package only validates
// them and extracts the owner identity that scopes every namespace
// operation.
package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims represents the JWT claims carried by drive API tokens.
type Claims struct {
	jwt.RegisteredClaims

	// UserID is the unique identifier (UUID) for the user.
	UserID string `json:"uid,omitempty"`

	// Email is the user's email address, informational only.
	Email string `json:"email,omitempty"`
}

// OwnerID returns the identity that scopes namespace operations: the uid
// claim when present, the registered subject otherwise.
func (c *Claims) OwnerID() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.Subject
}
