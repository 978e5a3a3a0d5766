package accounts

import "github.com/google/uuid"

// UserIdentity adapts a User into the Identity interface
type UserIdentity struct {
	user *User
}

// NewIdentityFromUser returns an Identity adapter for the provided user.
func NewIdentityFromUser(user *User) Identity {
	if user == nil {
		return nil
	}
	return UserIdentity{user: user}
}

// ID returns the user's ID as a string.
func (u UserIdentity) ID() string {
	if u.user == nil {
		return ""
	}
	return u.user.ID.String()
}

// Username returns the user's username.
func (u UserIdentity) Username() string {
	if u.user == nil {
		return ""
	}
	return u.user.Username
}

// Email returns the user's email address.
func (u UserIdentity) Email() string {
	if u.user == nil {
		return ""
	}
	return u.user.Email
}

// IsActive reports whether the account was activated
func (u UserIdentity) IsActive() bool {
	if u.user == nil {
		return false
	}
	return u.user.IsActive
}

var _ Identity = UserIdentity{}

func parseUserID(id string) (uuid.UUID, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, err
	}
	if uid == uuid.Nil {
		return uuid.Nil, ErrAccountNotFound
	}
	return uid, nil
}
