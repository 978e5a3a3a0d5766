package accounts

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type RequestEmailChangeMessage struct {
	UserID uuid.UUID `json:"-"`
	Email  string    `json:"email"`
}

func (e RequestEmailChangeMessage) Type() string { return "account.email.change" }

// Validate will run validation rules
func (e RequestEmailChangeMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.UserID, validation.By(ValidateUUIDRequired)),
		validation.Field(&e.Email, validation.Required, validation.Length(3, 254), is.Email),
	)
}

// RequestEmailChange starts an email change. When confirmation is required
// any earlier change request is replaced and a code is mailed to the new
// address, the returned code is nil when the email was changed right away.
func (l *Lifecycle) RequestEmailChange(ctx context.Context, msg RequestEmailChangeMessage) (*ActivationCode, error) {
	msg.Email = strings.TrimSpace(msg.Email)
	if err := msg.Validate(); err != nil {
		return nil, validationFailed(err)
	}

	newEmail := NormalizeEmail(msg.Email)

	var user *User
	var code *ActivationCode

	err := l.run(ctx, "email change request", func(ctx context.Context, tx bun.Tx) error {
		users := l.repo.Users()

		owner, err := users.GetByIDTx(ctx, tx, msg.UserID)
		if err != nil {
			return lookupFailed(err, ErrAccountNotFound, "email change request")
		}

		if NormalizeEmail(owner.Email) == newEmail {
			return ErrSameEmail
		}

		taken, err := users.EmailTakenTx(ctx, tx, newEmail, owner.ID)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email availability")
		}
		if taken {
			return ErrEmailTaken
		}

		if !l.cfg.EmailChangeRequiresConfirmation {
			owner.Email = newEmail
			owner.UpdatedAt = l.now().UTC()
			if _, err := users.UpdateTx(ctx, tx, owner, "email"); err != nil {
				return err
			}
			user = owner
			return nil
		}

		if _, err := l.repo.ActivationCodes().DeleteForUserTx(ctx, tx, owner.ID, PurposeChangeEmail); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to remove previous email change request")
		}

		if code, err = l.issueCode(ctx, tx, owner, PurposeChangeEmail, newEmail); err != nil {
			return err
		}

		user = owner
		return nil
	})

	if err != nil {
		return nil, err
	}

	if code == nil {
		l.record(ctx, ActivityEvent{
			EventType: ActivityEventEmailChanged,
			Actor:     userActor(user),
			UserID:    user.ID.String(),
			Metadata:  map[string]any{"confirmed": false},
		})
		return nil, nil
	}

	l.record(ctx, ActivityEvent{
		EventType: ActivityEventEmailChangeRequested,
		Actor:     userActor(user),
		UserID:    user.ID.String(),
	})

	l.notify(ctx, Notification{
		Kind:      NotificationEmailChange,
		Recipient: newEmail,
		Context: notificationContext(user, map[string]any{
			"email": newEmail,
			"code":  code.Code,
			"link":  l.link("accounts", "change", "email", code.Code),
		}),
	})

	return code, nil
}

// ConfirmEmailChange redeems an email change code. Uniqueness is checked
// again since another account may have claimed the address meanwhile.
func (l *Lifecycle) ConfirmEmailChange(ctx context.Context, code string) (*User, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrCodeNotFound
	}

	var user *User

	err := l.run(ctx, "email change confirmation", func(ctx context.Context, tx bun.Tx) error {
		users := l.repo.Users()
		codes := l.repo.ActivationCodes()

		record, err := codes.GetByCodeTx(ctx, tx, code, PurposeChangeEmail)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrCodeNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve email change code")
		}

		if err := codes.DeleteTx(ctx, tx, record); err != nil {
			return err
		}

		owner, err := users.GetByIDTx(ctx, tx, record.UserID)
		if err != nil {
			return lookupFailed(err, ErrAccountNotFound, "email change confirmation")
		}

		taken, err := users.EmailTakenTx(ctx, tx, record.PendingEmail, owner.ID)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email availability")
		}
		if taken {
			return ErrEmailTaken
		}

		owner.Email = record.PendingEmail
		owner.UpdatedAt = l.now().UTC()
		if _, err := users.UpdateTx(ctx, tx, owner, "email"); err != nil {
			return err
		}

		user = owner
		return nil
	})

	if err != nil {
		return nil, err
	}

	l.record(ctx, ActivityEvent{
		EventType: ActivityEventEmailChanged,
		Actor:     userActor(user),
		UserID:    user.ID.String(),
		Metadata:  map[string]any{"confirmed": true},
	})

	return user, nil
}
