package accounts

import (
	"context"
	"errors"
)

// NotificationKind names the message template
type NotificationKind string

const (
	NotificationActivation        NotificationKind = "activation"
	NotificationEmailChange       NotificationKind = "email_change"
	NotificationPasswordReset     NotificationKind = "password_reset"
	NotificationForgottenUsername NotificationKind = "forgotten_username"
)

// Notification is a message for a single recipient. Context carries the
// template values, code, token, username, and the links built from them.
type Notification struct {
	Kind      NotificationKind `json:"kind"`
	Recipient string           `json:"recipient"`
	Context   map[string]any   `json:"context"`
}

// Notifier delivers notifications on a best effort basis
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotifierFunc adapts a function to the Notifier interface
type NotifierFunc func(ctx context.Context, n Notification) error

// Notify implements Notifier
func (f NotifierFunc) Notify(ctx context.Context, n Notification) error {
	if f == nil {
		return nil
	}
	return f(ctx, n)
}

// MultiNotifier delivers to every notifier and joins their errors
type MultiNotifier []Notifier

// Notify implements Notifier
func (m MultiNotifier) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, notifier := range m {
		if notifier == nil {
			continue
		}
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier writes notifications to the logger instead of sending them
type LogNotifier struct {
	Logger Logger
}

// Notify implements Notifier
func (l LogNotifier) Notify(_ context.Context, n Notification) error {
	logger := l.Logger
	if logger == nil {
		logger = defLogger{}
	}

	args := []any{"kind", n.Kind, "to", n.Recipient}
	for _, key := range []string{"link", "username"} {
		if v, ok := n.Context[key]; ok {
			args = append(args, key, v)
		}
	}

	logger.Info("sending notification", args...)
	return nil
}
