package accounts_test

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	accounts "github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	to, subject, body string
}

func TestMailNotifierRendersEmbeddedTemplates(t *testing.T) {
	var sent []sentMail
	sender := accounts.MailSenderFunc(func(_ context.Context, to, subject, body string) error {
		sent = append(sent, sentMail{to, subject, body})
		return nil
	})

	notifier, err := accounts.NewMailNotifier(sender, "Example", accounts.WithMailLogger(accounts.NopLogger{}))
	require.NoError(t, err)

	err = notifier.Notify(context.Background(), accounts.Notification{
		Kind:      accounts.NotificationActivation,
		Recipient: "alice@example.com",
		Context: map[string]any{
			"first_name": "Alice",
			"code":       "AbC123xyz",
			"link":       "https://accounts.test/accounts/activate/AbC123xyz",
		},
	})
	require.NoError(t, err)

	require.Len(t, sent, 1)
	assert.Equal(t, "alice@example.com", sent[0].to)
	assert.Equal(t, "Activate your account", sent[0].subject)
	assert.Contains(t, sent[0].body, "Hello Alice,")
	assert.Contains(t, sent[0].body, "signing up at Example")
	assert.Contains(t, sent[0].body, "<strong>AbC123xyz</strong>")
	assert.Contains(t, sent[0].body, `href="https://accounts.test/accounts/activate/AbC123xyz"`)
}

func TestMailNotifierKinds(t *testing.T) {
	notifier, err := accounts.NewMailNotifier(accounts.MailSenderFunc(func(context.Context, string, string, string) error {
		return nil
	}), "Example")
	require.NoError(t, err)

	tests := []struct {
		kind    accounts.NotificationKind
		context map[string]any
		subject string
		body    string
	}{
		{accounts.NotificationEmailChange, map[string]any{"email": "new@example.com", "link": "l"}, "Confirm your new email", "to new@example.com"},
		{accounts.NotificationPasswordReset, map[string]any{"expires_at": "2026-03-05 09:30 UTC", "link": "l"}, "Reset your password", "valid until 2026-03-05 09:30 UTC"},
		{accounts.NotificationForgottenUsername, map[string]any{"username": "walt"}, "Your username", "<strong>walt</strong>"},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			subject, body, err := notifier.Render(accounts.Notification{Kind: tt.kind, Context: tt.context})
			require.NoError(t, err)
			assert.Equal(t, tt.subject, subject)
			assert.Contains(t, body, tt.body)
			assert.Contains(t, body, "Hello,")
		})
	}
}

func TestMailNotifierCustomTemplates(t *testing.T) {
	fsys := fstest.MapFS{
		"activation.html": {Data: []byte("code={{ code }} site={{ site_name }}")},
	}

	notifier, err := accounts.NewMailNotifier(
		accounts.MailSenderFunc(func(context.Context, string, string, string) error { return nil }),
		"Example",
		accounts.WithMailTemplates(fsys),
		accounts.WithMailSubject(accounts.NotificationActivation, "Welcome"),
	)
	require.NoError(t, err)

	subject, body, err := notifier.Render(accounts.Notification{
		Kind:    accounts.NotificationActivation,
		Context: map[string]any{"code": "xyz"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Welcome", subject)
	assert.Equal(t, "code=xyz site=Example", body)

	_, _, err = notifier.Render(accounts.Notification{Kind: accounts.NotificationForgottenUsername})
	assert.Error(t, err)
}

func TestMailNotifierSenderFailure(t *testing.T) {
	notifier, err := accounts.NewMailNotifier(accounts.MailSenderFunc(func(context.Context, string, string, string) error {
		return errors.New("connection refused")
	}), "Example", accounts.WithMailLogger(accounts.NopLogger{}))
	require.NoError(t, err)

	err = notifier.Notify(context.Background(), accounts.Notification{
		Kind:      accounts.NotificationForgottenUsername,
		Recipient: "a@example.com",
		Context:   map[string]any{"username": "a"},
	})
	assert.Error(t, err)
}

func TestMultiNotifier(t *testing.T) {
	calls := 0
	ok := accounts.NotifierFunc(func(context.Context, accounts.Notification) error {
		calls++
		return nil
	})
	failing := accounts.NotifierFunc(func(context.Context, accounts.Notification) error {
		calls++
		return errors.New("down")
	})

	err := accounts.MultiNotifier{ok, nil, failing, ok}.Notify(context.Background(), accounts.Notification{})
	assert.EqualError(t, err, "down")
	assert.Equal(t, 3, calls)

	assert.NoError(t, accounts.LogNotifier{Logger: accounts.NopLogger{}}.Notify(context.Background(), accounts.Notification{
		Kind:    accounts.NotificationActivation,
		Context: map[string]any{"link": "https://accounts.test"},
	}))
}

func TestNotificationFailureDoesNotUndoRegistration(t *testing.T) {
	f := newFixture(t)
	lifecycle := accounts.NewLifecycle(f.store.Manager, f.cfg,
		accounts.WithLifecycleClock(f.clock.Now),
		accounts.WithLogger(accounts.NopLogger{}),
		accounts.WithNotifier(accounts.NotifierFunc(func(context.Context, accounts.Notification) error {
			return errors.New("smtp down")
		})),
	)

	user, err := lifecycle.RegisterUser(context.Background(), accounts.RegisterUserMessage{
		Username:        "fay",
		Email:           "fay@example.com",
		Password:        testPassword,
		ConfirmPassword: testPassword,
	})
	require.NoError(t, err)
	assert.Len(t, f.codes(t, user.ID, accounts.PurposeActivate), 1)
}
