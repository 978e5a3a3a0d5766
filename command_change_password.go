package accounts

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type ChangePasswordMessage struct {
	UserID          uuid.UUID `json:"-"`
	OldPassword     string    `json:"old_password"`
	Password        string    `json:"password"`
	ConfirmPassword string    `json:"confirm_password"`
}

func (e ChangePasswordMessage) Type() string { return "account.password.change" }

// Validate will run validation rules
func (e ChangePasswordMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.UserID, validation.By(ValidateUUIDRequired)),
		validation.Field(&e.OldPassword, validation.Required),
		validation.Field(&e.Password, validation.Required, validation.Length(1, 128)),
		validation.Field(
			&e.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(e.Password)),
		),
	)
}

// ChangePassword replaces the password of a signed in account after
// checking the current one
func (l *Lifecycle) ChangePassword(ctx context.Context, msg ChangePasswordMessage) (*User, error) {
	if err := msg.Validate(); err != nil {
		return nil, validationFailed(err)
	}

	var user *User

	err := l.run(ctx, "password change", func(ctx context.Context, tx bun.Tx) error {
		users := l.repo.Users()

		found, err := users.GetByIDTx(ctx, tx, msg.UserID)
		if err != nil {
			return lookupFailed(err, ErrAccountNotFound, "password change")
		}

		if err := l.passwords.ComparePasswordAndHash(msg.OldPassword, found.PasswordHash); err != nil {
			return ErrInvalidCredentials
		}

		if err := l.checkPassword(msg.Password, found.Username, found.Email); err != nil {
			return err
		}

		hash, err := l.passwords.HashPassword(msg.Password)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid new password provided")
		}

		found.PasswordHash = hash
		found.UpdatedAt = l.now().UTC()
		if _, err := users.UpdateTx(ctx, tx, found, "password_hash"); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user password in database")
		}

		user = found
		return nil
	})

	if err != nil {
		return nil, err
	}

	l.record(ctx, ActivityEvent{
		EventType: ActivityEventPasswordChanged,
		Actor:     userActor(user),
		UserID:    user.ID.String(),
	})

	return user, nil
}
