package accounts

import (
	"context"
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type RegisterUserMessage struct {
	Username        string `json:"username"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	// UseHashid derives the account id from the email
	UseHashid bool `json:"-"`
}

func (e RegisterUserMessage) Type() string { return "account.register" }

// Validate will run validation rules
func (e RegisterUserMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Username, validation.Length(0, 150), validation.Match(usernamePattern)),
		validation.Field(&e.FirstName, validation.Length(0, 150)),
		validation.Field(&e.LastName, validation.Length(0, 150)),
		validation.Field(&e.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&e.Password, validation.Required, validation.Length(1, 128)),
		validation.Field(
			&e.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(e.Password)),
		),
	)
}

// RegisterUser creates an account. With activation enabled the account
// starts inactive and an activation code is mailed to it.
func (l *Lifecycle) RegisterUser(ctx context.Context, msg RegisterUserMessage) (*User, error) {
	msg.Email = strings.TrimSpace(msg.Email)
	msg.Username = strings.TrimSpace(msg.Username)
	if l.cfg.UsernameDisabled {
		msg.Username = ""
	}

	if err := msg.Validate(); err != nil {
		return nil, validationFailed(err)
	}

	if !l.cfg.UsernameDisabled && msg.Username == "" {
		return nil, validationFailed(validation.Errors{
			"username": errors.New("cannot be blank"),
		})
	}

	if err := l.checkPassword(msg.Password, msg.Username, msg.Email); err != nil {
		return nil, err
	}

	hash, err := l.passwords.HashPassword(msg.Password)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	var user *User
	var code *ActivationCode

	err = l.run(ctx, "account registration", func(ctx context.Context, tx bun.Tx) error {
		users := l.repo.Users()

		taken, err := users.EmailTakenTx(ctx, tx, msg.Email, uuid.Nil)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email availability")
		}
		if taken {
			return ErrEmailTaken
		}

		if !l.cfg.UsernameDisabled {
			taken, err = users.UsernameTakenTx(ctx, tx, msg.Username)
			if err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check username availability")
			}
			if taken {
				return ErrUsernameTaken
			}
		}

		now := l.now().UTC()
		record := &User{
			Username:     msg.Username,
			FirstName:    strings.TrimSpace(msg.FirstName),
			LastName:     strings.TrimSpace(msg.LastName),
			Email:        msg.Email,
			PasswordHash: hash,
			IsActive:     !l.cfg.ActivationEnabled,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if msg.UseHashid {
			if id, err := hashid.NewUUID(NormalizeEmail(msg.Email)); err == nil {
				record.ID = id
			}
		}

		if l.cfg.UsernameDisabled {
			record.Username = PlaceholderUsername()
		}

		created, err := users.CreateTx(ctx, tx, record)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return richErr
			}
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		if l.cfg.UsernameDisabled {
			created.Username = FinalUsername(created.ID)
			if _, err := users.UpdateTx(ctx, tx, created, "username"); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to assign username")
			}
		}

		if l.cfg.ActivationEnabled {
			if code, err = l.issueCode(ctx, tx, created, PurposeActivate, ""); err != nil {
				return err
			}
		}

		user = created
		return nil
	})

	if err != nil {
		return nil, err
	}

	l.record(ctx, ActivityEvent{
		EventType: ActivityEventAccountRegistered,
		Actor:     userActor(user),
		UserID:    user.ID.String(),
		ToStatus:  user.Status(),
		Metadata: map[string]any{
			"activation_required": code != nil,
		},
	})

	if code != nil {
		l.notify(ctx, l.activationNotification(user, code))
	}

	return user, nil
}

func (l *Lifecycle) activationNotification(user *User, code *ActivationCode) Notification {
	return Notification{
		Kind:      NotificationActivation,
		Recipient: user.Email,
		Context: notificationContext(user, map[string]any{
			"code": code.Code,
			"link": l.link("accounts", "activate", code.Code),
		}),
	}
}
