package accounts

import (
	"context"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// ActivateAccount redeems an activation code and activates its owner.
// The code is consumed by a compare-and-delete so only one of several
// concurrent redemptions succeeds.
func (l *Lifecycle) ActivateAccount(ctx context.Context, code string) (*User, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrCodeNotFound
	}

	var user *User

	err := l.run(ctx, "account activation", func(ctx context.Context, tx bun.Tx) error {
		record, err := l.repo.ActivationCodes().GetByCodeTx(ctx, tx, code, PurposeActivate)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrCodeNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve activation code")
		}

		if err := l.repo.ActivationCodes().DeleteTx(ctx, tx, record); err != nil {
			return err
		}

		owner, err := l.repo.Users().GetByIDTx(ctx, tx, record.UserID)
		if err != nil {
			return lookupFailed(err, ErrAccountNotFound, "account activation")
		}

		if owner, err = l.states.Transition(ctx, tx, userActor(owner), owner, StatusActive); err != nil {
			return err
		}

		user = owner
		return nil
	})

	if err != nil {
		return nil, err
	}

	l.logger.Debug("account activated", "user_id", user.ID)

	return user, nil
}
