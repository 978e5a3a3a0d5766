// Package accounts implements an account lifecycle: sign up, activation by
// one time code, activation resend with a cooldown, sign in, email change
// with optional confirmation, password reset with signed tokens, username
// reminders and profile maintenance.
//
// Lifecycle:
//   - Lifecycle is the entry point. Each operation validates its message,
//     runs a single transaction through RepositoryManager and only then
//     dispatches notifications and activity events. Notification failures
//     are logged and never undo committed state.
//   - Activation and email change codes share the ActivationCodes registry.
//     Codes are consumed with a compare-and-delete so concurrent
//     redemptions of one code cannot both succeed.
//   - Accounts move from inactive to active through AccountStateMachine and
//     never back.
//
// Deployment policy lives in Config, loaded from the environment with
// LoadConfig and passed to NewLifecycle once at startup.
//
// Activity sinks:
//   - ActivitySink receives lifecycle, login and password events. Sinks run
//     best-effort so you can forward to prometheus or a queue without
//     blocking requests.
package accounts
