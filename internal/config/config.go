// Package config loads the daemon configuration from the environment and
// an optional .env file.
package config

import (
	"context"
	"errors"
	"io/fs"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	accounts "github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/internal/logging"
	"github.com/goliatone/go-accounts/queue"
	goerrors "github.com/goliatone/go-errors"
	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

const (
	NotifierLog   = "log"
	NotifierSMTP  = "smtp"
	NotifierKafka = "kafka"
)

type ServerConfig struct {
	Env      string `env:"ENV,default=dev"`
	Addr     string `env:"HTTP_ADDR,default=:8080"`
	Prefix   string `env:"HTTP_PREFIX,default=/accounts"`
	SiteName string `env:"SITE_NAME,default=Accounts"`

	CookieName   string `env:"SESSION_COOKIE,default=accounts_session"`
	CookieSecure bool   `env:"SESSION_COOKIE_SECURE,default=true"`

	DatabaseDriver string `env:"DATABASE_DRIVER,default=sqlite"`
	DatabaseURL    string `env:"DATABASE_URL,default=file:accounts.db?cache=shared"`
	AutoMigrate    bool   `env:"DATABASE_AUTO_MIGRATE,default=true"`

	// Notifier is log, smtp or kafka
	Notifier string `env:"NOTIFIER,default=log"`
	Metrics  bool   `env:"METRICS_ENABLED,default=true"`

	Accounts accounts.Config
	SMTP     accounts.SMTPConfig
	Log      logging.Config `env:",prefix=LOG_"`
	Kafka    queue.Config   `env:",prefix=KAFKA_"`
}

// IsProd reports whether ENV is prod
func (c ServerConfig) IsProd() bool {
	return strings.EqualFold(c.Env, "prod")
}

// Validate checks the daemon settings and the accounts policy
func (c ServerConfig) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Addr, validation.Required),
		validation.Field(&c.DatabaseDriver, validation.Required, validation.In("sqlite", "sqlite3", "postgres", "pg", "pgx")),
		validation.Field(&c.DatabaseURL, validation.Required),
		validation.Field(&c.Notifier, validation.In(NotifierLog, NotifierSMTP, NotifierKafka)),
	)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid server config")
	}

	if c.Notifier == NotifierKafka && !c.Kafka.Enabled() {
		return goerrors.New("kafka notifier requires KAFKA_BROKERS", goerrors.CategoryValidation)
	}

	if c.IsProd() && c.Accounts.SigningKey == "" {
		return goerrors.New("ACCOUNTS_SIGNING_KEY is required in prod", goerrors.CategoryValidation)
	}

	return c.Accounts.Validate()
}

// Load reads the .env files, when present, and then the environment
func Load(ctx context.Context, files ...string) (*ServerConfig, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to read env file")
	}
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads the configuration from l
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*ServerConfig, error) {
	cfg := &ServerConfig{}
	if err := envconfig.ProcessWith(ctx, cfg, l); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to process server config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
