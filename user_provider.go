package accounts

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type LoginMessage struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

func (e LoginMessage) Type() string { return "account.login" }

// Validate will run validation rules
func (e LoginMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Identifier, validation.Required, validation.Length(1, 254)),
		validation.Field(&e.Password, validation.Required),
	)
}

// LoginResult carries the session token issued for a successful login
type LoginResult struct {
	User       *User
	Token      string
	ExpiresAt  time.Time
	Persistent bool
}

// ResolveCredentials finds the account for the identifier and checks the
// password. Unknown identifiers, inactive accounts and wrong passwords all
// fail with ErrInvalidCredentials.
func (l *Lifecycle) ResolveCredentials(ctx context.Context, identifier, password string) (*User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	var user *User
	var reason string

	err := l.run(ctx, "credential resolution", func(ctx context.Context, tx bun.Tx) error {
		users := l.repo.Users()

		found, err := users.GetByIdentifierTx(ctx, tx, l.cfg.LoginIdentifier, identifier)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				l.equalizeTiming(password)
				reason = "unknown_identifier"
				return ErrInvalidCredentials
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user during verification")
		}

		if err := l.passwords.ComparePasswordAndHash(password, found.PasswordHash); err != nil {
			reason = "password_mismatch"
			user = found
			return ErrInvalidCredentials
		}

		if !found.IsActive {
			reason = "inactive"
			user = found
			return ErrInvalidCredentials
		}

		if err := users.TrackSuccessfulLoginTx(ctx, tx, found, l.now().UTC()); err != nil {
			l.logger.Error("failed to track successful login", "error", err)
		}

		user = found
		return nil
	})

	if err != nil {
		if reason != "" {
			event := ActivityEvent{
				EventType: ActivityEventLoginFailure,
				Metadata:  map[string]any{"reason": reason},
			}
			if user != nil {
				event.Actor = userActor(user)
				event.UserID = user.ID.String()
			}
			l.record(ctx, event)
			l.logger.Debug("login refused", "reason", reason)
		}
		return nil, err
	}

	l.record(ctx, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		Actor:     userActor(user),
		UserID:    user.ID.String(),
	})

	return user, nil
}

// Login resolves the credentials and signs a session token. The token
// lives for the short session duration when remember me is offered and
// was not requested.
func (l *Lifecycle) Login(ctx context.Context, msg LoginMessage) (*LoginResult, error) {
	if err := msg.Validate(); err != nil {
		return nil, ErrInvalidCredentials
	}

	user, err := l.ResolveCredentials(ctx, msg.Identifier, msg.Password)
	if err != nil {
		return nil, err
	}

	persistent := !l.cfg.RememberMeEnabled || msg.RememberMe
	ttl := l.cfg.SessionTTL(msg.RememberMe)

	token, err := l.tokens.SignSession(user, ttl, persistent)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign session token")
	}

	return &LoginResult{
		User:       user,
		Token:      token,
		ExpiresAt:  l.now().Add(ttl),
		Persistent: persistent,
	}, nil
}

// UserByID returns the account with the given id, used to resolve session
// claims back into a user
func (l *Lifecycle) UserByID(ctx context.Context, id string) (*User, error) {
	uid, err := parseUserID(id)
	if err != nil {
		return nil, ErrAccountNotFound
	}

	var user *User
	err = l.run(ctx, "account lookup", func(ctx context.Context, tx bun.Tx) error {
		found, err := l.repo.Users().GetByIDTx(ctx, tx, uid)
		if err != nil {
			return lookupFailed(err, ErrAccountNotFound, "account lookup")
		}
		user = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

var _ CredentialResolver = (*Lifecycle)(nil)
