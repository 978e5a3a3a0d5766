package accounts

import (
	"context"
	"crypto/rand"
	"net/url"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

const operationTimeout = 10 * time.Second

// Lifecycle runs the account lifecycle: sign up, activation, resend,
// sign in, email change, password reset and account maintenance. Every
// operation commits in a single transaction and notifies afterwards.
type Lifecycle struct {
	repo      RepositoryManager
	cfg       *Config
	tokens    TokenService
	notifier  Notifier
	activity  ActivitySink
	logger    Logger
	now       func() time.Time
	states    AccountStateMachine
	passwords PasswordAuthenticator

	dummyHashOnce sync.Once
	dummyHash     string
}

// LifecycleOption customizes the Lifecycle
type LifecycleOption func(*Lifecycle)

// WithLifecycleClock injects the clock used for code timestamps and tokens
func WithLifecycleClock(now func() time.Time) LifecycleOption {
	return func(l *Lifecycle) {
		if now != nil {
			l.now = now
		}
	}
}

// WithNotifier sets the notification dispatcher
func WithNotifier(n Notifier) LifecycleOption {
	return func(l *Lifecycle) {
		l.notifier = n
	}
}

// WithActivitySink sets the sink used to emit lifecycle events
func WithActivitySink(sink ActivitySink) LifecycleOption {
	return func(l *Lifecycle) {
		l.activity = normalizeActivitySink(sink)
	}
}

// WithLogger overrides the logger
func WithLogger(logger Logger) LifecycleOption {
	return func(l *Lifecycle) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithTokenService overrides the token service built from the config
func WithTokenService(ts TokenService) LifecycleOption {
	return func(l *Lifecycle) {
		l.tokens = ts
	}
}

// WithPasswordAuthenticator overrides the bcrypt password hashing
func WithPasswordAuthenticator(p PasswordAuthenticator) LifecycleOption {
	return func(l *Lifecycle) {
		if p != nil {
			l.passwords = p
		}
	}
}

// NewLifecycle returns a Lifecycle over the repositories. A nil config
// uses DefaultConfig.
func NewLifecycle(repo RepositoryManager, cfg *Config, opts ...LifecycleOption) *Lifecycle {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	l := &Lifecycle{
		repo:      repo,
		cfg:       cfg,
		activity:  noopActivitySink{},
		logger:    defLogger{},
		now:       time.Now,
		passwords: BcryptAuthenticator{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}

	if l.tokens == nil {
		key := []byte(cfg.SigningKey)
		if len(key) == 0 {
			l.logger.Warn("no signing key configured, tokens will not survive a restart")
			key = randomSigningKey()
		}
		l.tokens = NewTokenService(
			key,
			cfg.Issuer,
			cfg.PasswordResetTTL,
			WithTokenClock(l.now),
			WithTokenLogger(l.logger),
		)
	}

	l.states = NewAccountStateMachine(repo.Users(),
		WithStateMachineClock(l.now),
		WithStateMachineActivitySink(l.activity),
		WithStateMachineLogger(l.logger),
	)

	return l
}

// Config returns the deployment policy
func (l *Lifecycle) Config() *Config {
	return l.cfg
}

// Tokens returns the token service
func (l *Lifecycle) Tokens() TokenService {
	return l.tokens
}

func (l *Lifecycle) run(ctx context.Context, operation string, fn func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during "+operation,
		)
	default:
	}

	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	if err := l.repo.RunInTx(ctx, nil, fn); err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, operation+" transaction failed")
	}

	return nil
}

func (l *Lifecycle) issueCode(ctx context.Context, tx bun.IDB, user *User, purpose CodePurpose, pendingEmail string) (*ActivationCode, error) {
	value, err := GenerateCode(l.cfg.CodeLength)
	if err != nil {
		return nil, err
	}

	record := &ActivationCode{
		UserID:       user.ID,
		Purpose:      purpose,
		Code:         value,
		PendingEmail: pendingEmail,
		CreatedAt:    l.now().UTC(),
	}

	created, err := l.repo.ActivationCodes().CreateTx(ctx, tx, record)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store activation code").
			WithMetadata(map[string]any{"purpose": purpose})
	}

	return created, nil
}

func (l *Lifecycle) notify(ctx context.Context, n Notification) {
	if l.notifier == nil {
		return
	}

	if err := l.notifier.Notify(ctx, n); err != nil {
		l.logger.Warn("notification delivery failed", "kind", n.Kind, "to", n.Recipient, "error", err)
	}
}

func (l *Lifecycle) record(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = l.now()
	}
	if event.Actor == (ActorRef{}) {
		event.Actor = ActorRef{Type: "system"}
	}

	if err := normalizeActivitySink(l.activity).Record(ctx, event); err != nil {
		l.logger.Warn("activity sink error", "event", event.EventType, "error", err)
	}
}

func (l *Lifecycle) link(elem ...string) string {
	out, err := url.JoinPath(l.cfg.SiteURL, elem...)
	if err != nil {
		return l.cfg.SiteURL
	}
	return out
}

func (l *Lifecycle) checkPassword(password, username, email string) error {
	return CheckPassword(password, l.cfg.MinPasswordLength, username, email)
}

// equalizeTiming spends a bcrypt comparison when no account matched, so
// unknown identifiers take as long as wrong passwords
func (l *Lifecycle) equalizeTiming(password string) {
	l.dummyHashOnce.Do(func() {
		l.dummyHash = RandomPasswordHash()
	})
	_ = l.passwords.ComparePasswordAndHash(password, l.dummyHash)
}

func randomSigningKey() []byte {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic(err)
	}
	return key
}

func lookupFailed(err error, notFound error, operation string) error {
	if repository.IsRecordNotFound(err) {
		return notFound
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account during "+operation)
}

func notificationContext(user *User, extra map[string]any) map[string]any {
	out := map[string]any{
		"username":   user.Username,
		"first_name": user.FirstName,
		"last_name":  user.LastName,
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
