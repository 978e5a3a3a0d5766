package accounts_test

import (
	"context"
	"testing"
	"time"

	accounts "github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const (
	testSigningKey = "test-signing-key"
	testSiteURL    = "https://accounts.test"
	testPassword   = "correct-horse-battery"
)

var testEpoch = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

type fixture struct {
	store     *repository.Store
	lifecycle *accounts.Lifecycle
	clock     *testClock
	rec       *recorder
	cfg       *accounts.Config
}

func newTestStore(t *testing.T) *repository.Store {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	store, err := repository.Open(repository.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func newFixture(t *testing.T, configure ...func(*accounts.Config)) *fixture {
	t.Helper()

	cfg := accounts.DefaultConfig()
	cfg.SigningKey = testSigningKey
	cfg.SiteURL = testSiteURL
	for _, fn := range configure {
		fn(cfg)
	}
	require.NoError(t, cfg.Validate())

	f := &fixture{
		store: newTestStore(t),
		clock: newTestClock(testEpoch),
		rec:   &recorder{},
		cfg:   cfg,
	}

	f.lifecycle = f.newLifecycle(f.store.Manager)

	return f
}

// newLifecycle builds a lifecycle sharing the fixture clock, recorder and
// config on top of repo
func (f *fixture) newLifecycle(repo accounts.RepositoryManager, opts ...accounts.LifecycleOption) *accounts.Lifecycle {
	base := []accounts.LifecycleOption{
		accounts.WithLifecycleClock(f.clock.Now),
		accounts.WithNotifier(f.rec),
		accounts.WithActivitySink(f.rec),
		accounts.WithLogger(accounts.NopLogger{}),
	}
	return accounts.NewLifecycle(repo, f.cfg, append(base, opts...)...)
}

func (f *fixture) register(t *testing.T, username, email string) *accounts.User {
	t.Helper()

	user, err := f.lifecycle.RegisterUser(context.Background(), accounts.RegisterUserMessage{
		Username:        username,
		Email:           email,
		Password:        testPassword,
		ConfirmPassword: testPassword,
	})
	require.NoError(t, err)
	return user
}

func (f *fixture) registerActive(t *testing.T, username, email string) *accounts.User {
	t.Helper()

	user := f.register(t, username, email)
	if user.IsActive {
		return user
	}

	activated, err := f.lifecycle.ActivateAccount(context.Background(), f.lastCode(t, accounts.NotificationActivation))
	require.NoError(t, err)
	return activated
}

func (f *fixture) lastNotification(t *testing.T, kind accounts.NotificationKind) accounts.Notification {
	t.Helper()

	sent := f.rec.Notifications(kind)
	require.NotEmpty(t, sent, "no %s notification", kind)
	return sent[len(sent)-1]
}

func (f *fixture) lastCode(t *testing.T, kind accounts.NotificationKind) string {
	t.Helper()

	code, ok := f.lastNotification(t, kind).Context["code"].(string)
	require.True(t, ok)
	return code
}

func (f *fixture) user(t *testing.T, id uuid.UUID) *accounts.User {
	t.Helper()

	user, err := f.store.Manager.Users().GetByIDTx(context.Background(), f.store.DB, id)
	require.NoError(t, err)
	return user
}

func (f *fixture) codes(t *testing.T, userID uuid.UUID, purpose accounts.CodePurpose) []*accounts.ActivationCode {
	t.Helper()

	var out []*accounts.ActivationCode
	err := f.store.DB.NewSelect().
		Model(&out).
		Where("user_id = ?", userID).
		Where("purpose = ?", purpose).
		Scan(context.Background())
	require.NoError(t, err)
	return out
}
