package accounts

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/uptrace/bun"
)

type RemindUsernameMessage struct {
	Email string `json:"email"`
}

func (e RemindUsernameMessage) Type() string { return "account.username.remind" }

// Validate will run validation rules
func (e RemindUsernameMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Email, validation.Required, validation.Length(3, 254), is.Email),
	)
}

// RemindUsername mails the username of the active account that owns email
func (l *Lifecycle) RemindUsername(ctx context.Context, msg RemindUsernameMessage) error {
	msg.Email = strings.TrimSpace(msg.Email)
	if err := msg.Validate(); err != nil {
		return validationFailed(err)
	}

	var user *User

	err := l.run(ctx, "username reminder", func(ctx context.Context, tx bun.Tx) error {
		found, err := l.repo.Users().GetByEmailTx(ctx, tx, msg.Email)
		if err != nil {
			return lookupFailed(err, ErrAccountNotFound, "username reminder")
		}

		if !found.IsActive {
			return ErrInactiveAccount
		}

		user = found
		return nil
	})

	if err != nil {
		return err
	}

	l.record(ctx, ActivityEvent{
		EventType: ActivityEventUsernameReminded,
		Actor:     userActor(user),
		UserID:    user.ID.String(),
	})

	l.notify(ctx, Notification{
		Kind:      NotificationForgottenUsername,
		Recipient: user.Email,
		Context: notificationContext(user, map[string]any{
			"link": l.link("accounts", "login"),
		}),
	})

	return nil
}
