package accounts

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// PurposeSession marks tokens that authenticate requests
	PurposeSession = "session"
	// PurposePasswordReset marks tokens that allow a single password reset
	PurposePasswordReset = "password_reset"
)

// JWTClaims is the payload of every token issued by the TokenService
type JWTClaims struct {
	jwt.RegisteredClaims
	UID         string `json:"uid,omitempty"`
	Username    string `json:"username,omitempty"`
	Purpose     string `json:"purpose"`
	Fingerprint string `json:"fp,omitempty"`
	RememberMe  bool   `json:"rm,omitempty"`
}

// Subject returns the subject claim
func (c *JWTClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the user ID
func (c *JWTClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

// UserUUID parses the user ID
func (c *JWTClaims) UserUUID() (uuid.UUID, error) {
	return uuid.Parse(c.UserID())
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}
