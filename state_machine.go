package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

const textCodeInvalidTransition = "INVALID_ACCOUNT_STATE_TRANSITION"

// ErrInvalidTransition is returned when a requested status change is not allowed.
var ErrInvalidTransition = goerrors.New("invalid account state transition", goerrors.CategoryValidation).
	WithTextCode(textCodeInvalidTransition).
	WithCode(goerrors.CodeBadRequest)

// AccountStateMachine moves accounts between lifecycle states. Activation
// is one directional, there is no edge back to inactive.
type AccountStateMachine interface {
	Transition(ctx context.Context, tx bun.IDB, actor ActorRef, user *User, target AccountStatus) (*User, error)
	CurrentStatus(user *User) AccountStatus
}

// StateMachineOption customizes state machine construction.
type StateMachineOption func(*accountStateMachine)

// WithStateMachineClock injects a custom clock (useful for tests).
func WithStateMachineClock(clock func() time.Time) StateMachineOption {
	return func(sm *accountStateMachine) {
		if clock != nil {
			sm.now = clock
		}
	}
}

// WithStateMachineActivitySink sets the ActivitySink used to publish lifecycle events.
func WithStateMachineActivitySink(sink ActivitySink) StateMachineOption {
	return func(sm *accountStateMachine) {
		sm.activitySink = normalizeActivitySink(sink)
	}
}

// WithStateMachineLogger overrides the logger used for sink failures.
func WithStateMachineLogger(logger Logger) StateMachineOption {
	return func(sm *accountStateMachine) {
		if logger != nil {
			sm.logger = logger
		}
	}
}

// NewAccountStateMachine returns the default implementation backed by the provided repository.
func NewAccountStateMachine(users Users, opts ...StateMachineOption) AccountStateMachine {
	sm := &accountStateMachine{
		users: users,
		transitions: map[AccountStatus]map[AccountStatus]struct{}{
			StatusInactive: {
				StatusActive: {},
			},
		},
		now:          time.Now,
		activitySink: noopActivitySink{},
		logger:       defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(sm)
		}
	}

	return sm
}

type accountStateMachine struct {
	users        Users
	transitions  map[AccountStatus]map[AccountStatus]struct{}
	now          func() time.Time
	activitySink ActivitySink
	logger       Logger
}

func (sm *accountStateMachine) Transition(ctx context.Context, tx bun.IDB, actor ActorRef, user *User, target AccountStatus) (*User, error) {
	if user == nil {
		return nil, ErrInvalidTransition
	}

	from := user.Status()
	if from == target {
		return user, nil
	}

	if !sm.canTransition(from, target) {
		sm.logger.Debug("rejected account transition", "user_id", user.ID, "from", from, "to", target)
		return nil, ErrInvalidTransition
	}

	now := sm.now()
	if err := sm.users.ActivateTx(ctx, tx, user.ID, now); err != nil {
		return nil, err
	}

	user.IsActive = true
	user.UpdatedAt = now

	sm.recordActivity(ctx, ActivityEvent{
		EventType:  ActivityEventAccountActivated,
		Actor:      actor,
		UserID:     user.ID.String(),
		FromStatus: from,
		ToStatus:   target,
		OccurredAt: now,
	})

	return user, nil
}

func (sm *accountStateMachine) CurrentStatus(user *User) AccountStatus {
	return user.Status()
}

func (sm *accountStateMachine) canTransition(from, to AccountStatus) bool {
	if allowed, ok := sm.transitions[from]; ok {
		_, exists := allowed[to]
		return exists
	}
	return false
}

func (sm *accountStateMachine) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.Actor == (ActorRef{}) {
		event.Actor = ActorRef{Type: "system"}
	}

	sink := normalizeActivitySink(sm.activitySink)
	if err := sink.Record(ctx, event); err != nil {
		sm.logger.Warn("state machine activity sink error", "error", err)
	}
}
