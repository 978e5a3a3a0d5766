package accounts

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type ChangeProfileMessage struct {
	UserID    uuid.UUID `json:"-"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
}

func (e ChangeProfileMessage) Type() string { return "account.profile.change" }

// Validate will run validation rules
func (e ChangeProfileMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.UserID, validation.By(ValidateUUIDRequired)),
		validation.Field(&e.FirstName, validation.Length(0, 150)),
		validation.Field(&e.LastName, validation.Length(0, 150)),
	)
}

func (l *Lifecycle) ChangeProfile(ctx context.Context, msg ChangeProfileMessage) (*User, error) {
	msg.FirstName = strings.TrimSpace(msg.FirstName)
	msg.LastName = strings.TrimSpace(msg.LastName)
	if err := msg.Validate(); err != nil {
		return nil, validationFailed(err)
	}

	var user *User
	changed := map[string]any{}

	err := l.run(ctx, "profile change", func(ctx context.Context, tx bun.Tx) error {
		users := l.repo.Users()

		found, err := users.GetByIDTx(ctx, tx, msg.UserID)
		if err != nil {
			return lookupFailed(err, ErrAccountNotFound, "profile change")
		}

		if found.FirstName != msg.FirstName {
			changed["first_name"] = msg.FirstName
		}
		if found.LastName != msg.LastName {
			changed["last_name"] = msg.LastName
		}

		if len(changed) == 0 {
			user = found
			return nil
		}

		found.FirstName = msg.FirstName
		found.LastName = msg.LastName
		found.UpdatedAt = l.now().UTC()
		if _, err := users.UpdateTx(ctx, tx, found, "first_name", "last_name"); err != nil {
			return err
		}

		user = found
		return nil
	})

	if err != nil {
		return nil, err
	}

	if len(changed) > 0 {
		l.record(ctx, ActivityEvent{
			EventType: ActivityEventProfileChanged,
			Actor:     userActor(user),
			UserID:    user.ID.String(),
			Metadata:  changed,
		})
	}

	return user, nil
}
