package accounts_test

import (
	"context"
	"sync"
	"time"

	accounts "github.com/goliatone/go-accounts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

// MockUsers implements accounts.Users
type MockUsers struct {
	mock.Mock
}

func (m *MockUsers) GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*accounts.User, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounts.User), args.Error(1)
}

func (m *MockUsers) GetByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*accounts.User, error) {
	args := m.Called(ctx, tx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounts.User), args.Error(1)
}

func (m *MockUsers) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*accounts.User, error) {
	args := m.Called(ctx, tx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounts.User), args.Error(1)
}

func (m *MockUsers) GetByIdentifierTx(ctx context.Context, tx bun.IDB, mode accounts.IdentifierMode, identifier string) (*accounts.User, error) {
	args := m.Called(ctx, tx, mode, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounts.User), args.Error(1)
}

func (m *MockUsers) EmailTakenTx(ctx context.Context, tx bun.IDB, email string, exclude uuid.UUID) (bool, error) {
	args := m.Called(ctx, tx, email, exclude)
	return args.Bool(0), args.Error(1)
}

func (m *MockUsers) UsernameTakenTx(ctx context.Context, tx bun.IDB, username string) (bool, error) {
	args := m.Called(ctx, tx, username)
	return args.Bool(0), args.Error(1)
}

func (m *MockUsers) CreateTx(ctx context.Context, tx bun.IDB, record *accounts.User) (*accounts.User, error) {
	args := m.Called(ctx, tx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounts.User), args.Error(1)
}

func (m *MockUsers) UpdateTx(ctx context.Context, tx bun.IDB, record *accounts.User, columns ...string) (*accounts.User, error) {
	args := m.Called(ctx, tx, record, columns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounts.User), args.Error(1)
}

func (m *MockUsers) ActivateTx(ctx context.Context, tx bun.IDB, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, tx, id, at)
	return args.Error(0)
}

func (m *MockUsers) TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *accounts.User, at time.Time) error {
	args := m.Called(ctx, tx, user, at)
	return args.Error(0)
}

// recorder captures notifications and activity events
type recorder struct {
	mu            sync.Mutex
	notifications []accounts.Notification
	events        []accounts.ActivityEvent
}

func (r *recorder) Notify(_ context.Context, n accounts.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, n)
	return nil
}

func (r *recorder) Record(_ context.Context, event accounts.ActivityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recorder) Notifications(kind accounts.NotificationKind) []accounts.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []accounts.Notification
	for _, n := range r.notifications {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

func (r *recorder) Events(eventType accounts.ActivityEventType) []accounts.ActivityEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []accounts.ActivityEvent
	for _, e := range r.events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

// testClock is a settable clock
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(now time.Time) *testClock {
	return &testClock{now: now}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
