package accounts

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/sethvargo/go-envconfig"
)

// IdentifierMode selects which account fields an identifier is matched against
type IdentifierMode string

const (
	IdentifierUsername IdentifierMode = "username"
	IdentifierEmail    IdentifierMode = "email"
	IdentifierEither   IdentifierMode = "either"
)

// Config is the deployment policy of the account lifecycle
type Config struct {
	// UsernameDisabled drops usernames from sign up, a placeholder
	// user_<id> value is assigned instead
	UsernameDisabled bool `env:"ACCOUNTS_DISABLE_USERNAME,default=false"`
	// ActivationEnabled creates accounts inactive and mails an activation code
	ActivationEnabled bool           `env:"ACCOUNTS_ENABLE_ACTIVATION,default=true"`
	LoginIdentifier   IdentifierMode `env:"ACCOUNTS_LOGIN_IDENTIFIER,default=username"`
	RememberMeEnabled bool           `env:"ACCOUNTS_USE_REMEMBER_ME,default=false"`
	// EmailChangeRequiresConfirmation mails a code to the new address
	// instead of updating the email right away
	EmailChangeRequiresConfirmation bool           `env:"ACCOUNTS_EMAIL_ACTIVATION_AFTER_CHANGING,default=true"`
	PasswordResetIdentifier         IdentifierMode `env:"ACCOUNTS_PASSWORD_RESET_IDENTIFIER,default=email"`

	ActivationCooldown time.Duration `env:"ACCOUNTS_ACTIVATION_COOLDOWN,default=24h"`
	CodeLength         int           `env:"ACCOUNTS_CODE_LENGTH,default=20"`
	MinPasswordLength  int           `env:"ACCOUNTS_MIN_PASSWORD_LENGTH,default=8"`

	SigningKey              string        `env:"ACCOUNTS_SIGNING_KEY"`
	Issuer                  string        `env:"ACCOUNTS_ISSUER,default=go-accounts"`
	SessionDuration         time.Duration `env:"ACCOUNTS_SESSION_DURATION,default=24h"`
	ExtendedSessionDuration time.Duration `env:"ACCOUNTS_EXTENDED_SESSION_DURATION,default=336h"`
	PasswordResetTTL        time.Duration `env:"ACCOUNTS_PASSWORD_RESET_TTL,default=72h"`
	SiteURL                 string        `env:"ACCOUNTS_SITE_URL,default=http://localhost:8080"`
}

// DefaultConfig returns the policy used when no environment overrides it
func DefaultConfig() *Config {
	return &Config{
		ActivationEnabled:               true,
		LoginIdentifier:                 IdentifierUsername,
		EmailChangeRequiresConfirmation: true,
		PasswordResetIdentifier:         IdentifierEmail,
		ActivationCooldown:              24 * time.Hour,
		CodeLength:                      20,
		MinPasswordLength:               8,
		Issuer:                          "go-accounts",
		SessionDuration:                 24 * time.Hour,
		ExtendedSessionDuration:         14 * 24 * time.Hour,
		PasswordResetTTL:                72 * time.Hour,
		SiteURL:                         "http://localhost:8080",
	}
}

// LoadConfig reads the policy from the environment
func LoadConfig(ctx context.Context) (*Config, error) {
	return LoadConfigWith(ctx, envconfig.OsLookuper())
}

// LoadConfigWith reads the policy from the given lookuper
func LoadConfigWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}
	if err := envconfig.ProcessWith(ctx, cfg, l); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to process accounts config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the policy is coherent
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.LoginIdentifier,
			validation.Required,
			validation.In(IdentifierUsername, IdentifierEmail, IdentifierEither),
		),
		validation.Field(&c.PasswordResetIdentifier,
			validation.Required,
			validation.In(IdentifierEmail, IdentifierEither),
		),
		validation.Field(&c.CodeLength, validation.Required, validation.Min(8), validation.Max(64)),
		validation.Field(&c.MinPasswordLength, validation.Required, validation.Min(1)),
		validation.Field(&c.ActivationCooldown, validation.Min(time.Duration(0))),
		validation.Field(&c.SessionDuration, validation.Required),
		validation.Field(&c.PasswordResetTTL, validation.Required),
	)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid accounts config")
	}

	if c.UsernameDisabled && c.LoginIdentifier == IdentifierUsername {
		return goerrors.New("username sign in requires usernames to be enabled", goerrors.CategoryValidation).
			WithMetadata(map[string]any{"login_identifier": c.LoginIdentifier})
	}

	if c.UsernameDisabled && c.PasswordResetIdentifier == IdentifierEither {
		return goerrors.New("password reset by username requires usernames to be enabled", goerrors.CategoryValidation).
			WithMetadata(map[string]any{"password_reset_identifier": c.PasswordResetIdentifier})
	}

	return nil
}

// ResendIdentifier is email only when usernames are disabled
func (c Config) ResendIdentifier() IdentifierMode {
	if c.UsernameDisabled {
		return IdentifierEmail
	}
	return IdentifierEither
}

// SessionTTL picks the session lifetime for a sign in
func (c Config) SessionTTL(rememberMe bool) time.Duration {
	if c.RememberMeEnabled && !rememberMe {
		return c.SessionDuration
	}
	if c.ExtendedSessionDuration > 0 {
		return c.ExtendedSessionDuration
	}
	return c.SessionDuration
}
