package accounts

import (
	"context"
	"crypto/subtle"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type FinalizePasswordResetMessage struct {
	Token           string `json:"token" doc:"Reset password token"`
	Password        string `json:"password" example:"some_secret_word" doc:"Password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (p FinalizePasswordResetMessage) Type() string { return "account.password_reset.finalize" }

// Validate will run validation rules
func (p FinalizePasswordResetMessage) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Token, validation.Required),
		validation.Field(&p.Password, validation.Required, validation.Length(1, 128)),
		validation.Field(
			&p.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(p.Password)),
		),
	)
}

// FinalizePasswordReset sets a new password for the account bound to the
// reset token. A token stops verifying once the password or last login of
// its account changes.
func (l *Lifecycle) FinalizePasswordReset(ctx context.Context, msg FinalizePasswordResetMessage) (*User, error) {
	msg.Token = strings.TrimSpace(msg.Token)
	if msg.Token == "" {
		return nil, ErrTokenInvalid
	}

	claims, err := l.tokens.VerifyPasswordReset(msg.Token)
	if err != nil {
		return nil, err
	}

	uid, err := claims.UserUUID()
	if err != nil {
		return nil, ErrTokenInvalid
	}

	if err := msg.Validate(); err != nil {
		return nil, validationFailed(err)
	}

	var user *User

	err = l.run(ctx, "password reset finalization", func(ctx context.Context, tx bun.Tx) error {
		users := l.repo.Users()

		found, err := users.GetByIDTx(ctx, tx, uid)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrTokenInvalid
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not retrieve account for password reset")
		}

		want := l.tokens.PasswordResetFingerprint(found)
		if subtle.ConstantTimeCompare([]byte(want), []byte(claims.Fingerprint)) != 1 {
			return ErrTokenInvalid
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
		EventType: ActivityEventPasswordResetSuccess,
		Actor:     userActor(user),
		UserID:    user.ID.String(),
		Metadata: map[string]any{
			"token_id": claims.ID,
		},
	})

	return user, nil
}
