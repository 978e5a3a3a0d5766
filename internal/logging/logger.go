// Package logging builds the zap logger used by the daemon and adapts it
// to accounts.Logger.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Level string `env:"LEVEL,default=info"`
	Dev   bool   `env:"DEV,default=false"`
	// File enables rotated file output next to stdout, e.g. /var/log/accounts.log
	File         string        `env:"FILE"`
	MaxAge       time.Duration `env:"MAX_AGE,default=168h"`
	RotationTime time.Duration `env:"ROTATION_TIME,default=24h"`
}

func levelFromString(l string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(l)) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Init initializes and returns a *zap.Logger
func Init(cfg Config) (*zap.Logger, error) {
	lvl := levelFromString(cfg.Level)
	if cfg.Dev && cfg.File == "" {
		c := zap.NewDevelopmentConfig()
		c.Level = zap.NewAtomicLevelAt(lvl)
		return c.Build()
	}

	var out io.Writer = os.Stdout
	if cfg.File != "" {
		rotated, err := rotatelogs.New(
			cfg.File+".%Y%m%d",
			rotatelogs.WithLinkName(cfg.File),
			rotatelogs.WithMaxAge(cfg.MaxAge),
			rotatelogs.WithRotationTime(cfg.RotationTime),
		)
		if err != nil {
			return nil, err
		}
		out = io.MultiWriter(os.Stdout, rotated)
	}

	return New(out, lvl), nil
}

// New builds a JSON logger writing to w
func New(w io.Writer, lvl zapcore.Level) *zap.Logger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(w), lvl)
	opts := []zap.Option{zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)}
	return zap.New(core, opts...)
}

// Adapter implements accounts.Logger over a zap.SugaredLogger
type Adapter struct {
	sugar *zap.SugaredLogger
}

// NewAdapter names the logger and skips the adapter frame in caller info
func NewAdapter(logger *zap.Logger, name string) *Adapter {
	l := logger.WithOptions(zap.AddCallerSkip(1))
	if name != "" {
		l = l.Named(name)
	}
	return &Adapter{sugar: l.Sugar()}
}

func (a *Adapter) Debug(msg string, args ...any) { a.sugar.Debugw(msg, args...) }
func (a *Adapter) Info(msg string, args ...any)  { a.sugar.Infow(msg, args...) }
func (a *Adapter) Warn(msg string, args ...any)  { a.sugar.Warnw(msg, args...) }
func (a *Adapter) Error(msg string, args ...any) { a.sugar.Errorw(msg, args...) }
