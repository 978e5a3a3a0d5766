package accounts

import (
	"context"
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type ResendActivationCodeMessage struct {
	// Identifier is an email, or a username when usernames are enabled
	Identifier string `json:"identifier"`
}

func (e ResendActivationCodeMessage) Type() string { return "account.activation.resend" }

// Validate will run validation rules
func (e ResendActivationCodeMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Identifier, validation.Required, validation.Length(1, 254)),
	)
}

// ResendActivationCode replaces the pending activation code of an inactive
// account once the previous one is older than the cooldown
func (l *Lifecycle) ResendActivationCode(ctx context.Context, msg ResendActivationCodeMessage) error {
	msg.Identifier = strings.TrimSpace(msg.Identifier)
	if err := msg.Validate(); err != nil {
		return validationFailed(err)
	}

	var user *User
	var code *ActivationCode

	err := l.run(ctx, "activation code resend", func(ctx context.Context, tx bun.Tx) error {
		codes := l.repo.ActivationCodes()

		owner, err := l.repo.Users().GetByIdentifierTx(ctx, tx, l.cfg.ResendIdentifier(), msg.Identifier)
		if err != nil {
			return lookupFailed(err, ErrAccountNotFound, "activation code resend")
		}

		if owner.IsActive {
			return ErrAlreadyActive
		}

		pending, err := codes.GetPendingTx(ctx, tx, owner.ID, PurposeActivate)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrNoActivationPending
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve pending activation code")
		}

		now := l.now()
		if IsWithinThresholdAt(now, pending.CreatedAt, l.cfg.ActivationCooldown) {
			return ErrCooldownActive
		}

		if err := codes.DeleteTx(ctx, tx, pending); err != nil {
			if !errors.Is(err, ErrCodeNotFound) {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to remove pending activation code")
			}
			// lost a race: a redemption consumed the code, or another
			// resend already replaced it
			if _, err := codes.GetPendingTx(ctx, tx, owner.ID, PurposeActivate); err == nil {
				return ErrCooldownActive
			}
			return ErrNoActivationPending
		}

		if code, err = l.issueCode(ctx, tx, owner, PurposeActivate, ""); err != nil {
			return err
		}

		user = owner
		return nil
	})

	if err != nil {
		return err
	}

	l.record(ctx, ActivityEvent{
		EventType: ActivityEventActivationResent,
		Actor:     userActor(user),
		UserID:    user.ID.String(),
	})

	l.notify(ctx, l.activationNotification(user, code))

	return nil
}
