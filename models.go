package accounts

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AccountStatus is derived from the active flag
type AccountStatus string

const (
	// StatusInactive registered but not yet activated
	StatusInactive AccountStatus = "inactive"
	// StatusActive may sign in
	StatusActive AccountStatus = "active"
)

// User is the account model
type User struct {
	bun.BaseModel   `bun:"table:users,alias:usr"`
	ID              uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Username        string     `bun:"username,notnull,unique" json:"username,omitempty"`
	FirstName       string     `bun:"first_name,notnull" json:"first_name,omitempty"`
	LastName        string     `bun:"last_name,notnull" json:"last_name,omitempty"`
	Email           string     `bun:"email,notnull" json:"email,omitempty"`
	EmailNormalized string     `bun:"email_normalized,notnull" json:"-"`
	PasswordHash    string     `bun:"password_hash,notnull" json:"-"`
	IsActive        bool       `bun:"is_active,notnull" json:"is_active"`
	LastLoginAt     *time.Time `bun:"last_login_at,nullzero" json:"last_login_at,omitempty"`
	CreatedAt       time.Time  `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt       time.Time  `bun:"updated_at,notnull" json:"updated_at"`
}

// Status returns the lifecycle state of the account
func (u *User) Status() AccountStatus {
	if u == nil || !u.IsActive {
		return StatusInactive
	}
	return StatusActive
}

// FullName joins first and last name
func (u *User) FullName() string {
	if u == nil {
		return ""
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// CodePurpose tells activation codes apart in the shared registry
type CodePurpose string

const (
	// PurposeActivate redeeming the code activates the owner
	PurposeActivate CodePurpose = "activate"
	// PurposeChangeEmail redeeming the code swaps the owner's email
	PurposeChangeEmail CodePurpose = "change_email"
)

// ActivationCode is a single use code owned by a user
type ActivationCode struct {
	bun.BaseModel `bun:"table:activation_codes,alias:act"`
	ID            uuid.UUID   `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID   `bun:"user_id,notnull,type:uuid" json:"user_id"`
	User          *User       `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	Purpose       CodePurpose `bun:"purpose,notnull" json:"purpose"`
	Code          string      `bun:"code,notnull,unique" json:"-"`
	PendingEmail  string      `bun:"pending_email" json:"pending_email,omitempty"`
	CreatedAt     time.Time   `bun:"created_at,notnull" json:"created_at"`
}

// NormalizeEmail lower-cases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
