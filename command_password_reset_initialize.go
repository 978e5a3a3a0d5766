package accounts

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type InitializePasswordResetMessage struct {
	// Identifier is an email, or a username when the deployment allows it
	Identifier string `json:"identifier" example:"pepe.rone@example.com"`
}

func (p InitializePasswordResetMessage) Type() string { return "account.password_reset" }

// Validate will run validation rules
func (p InitializePasswordResetMessage) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Identifier, validation.Required, validation.Length(1, 254)),
	)
}

// RequestPasswordReset mints a signed reset token for an active account and
// mails the reset link. The token is returned so callers without a mailer
// can deliver it themselves.
func (l *Lifecycle) RequestPasswordReset(ctx context.Context, msg InitializePasswordResetMessage) (string, error) {
	msg.Identifier = strings.TrimSpace(msg.Identifier)
	if err := msg.Validate(); err != nil {
		return "", validationFailed(err)
	}

	var user *User

	err := l.run(ctx, "password reset initialization", func(ctx context.Context, tx bun.Tx) error {
		found, err := l.repo.Users().GetByIdentifierTx(ctx, tx, l.cfg.PasswordResetIdentifier, msg.Identifier)
		if err != nil {
			return lookupFailed(err, ErrAccountNotFound, "password reset initialization")
		}

		if !found.IsActive {
			return ErrInactiveAccount
		}

		user = found
		return nil
	})

	if err != nil {
		return "", err
	}

	token, err := l.tokens.SignPasswordReset(user)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign password reset token")
	}

	l.record(ctx, ActivityEvent{
		EventType: ActivityEventPasswordResetRequested,
		Actor:     userActor(user),
		UserID:    user.ID.String(),
	})

	l.notify(ctx, Notification{
		Kind:      NotificationPasswordReset,
		Recipient: user.Email,
		Context: notificationContext(user, map[string]any{
			"link":       l.link("accounts", "password", "reset", token),
			"expires_at": l.now().Add(l.cfg.PasswordResetTTL).UTC().Format("2006-01-02 15:04 MST"),
		}),
	})

	return token, nil
}
