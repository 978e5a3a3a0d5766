package accounts

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"net/smtp"
	"strings"
	"time"

	"github.com/gofiber/template/django/v3"
	goerrors "github.com/goliatone/go-errors"
)

// MailSender hands a rendered message to a transport
type MailSender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// MailSenderFunc adapts a function to the MailSender interface
type MailSenderFunc func(ctx context.Context, to, subject, htmlBody string) error

// Send implements MailSender
func (f MailSenderFunc) Send(ctx context.Context, to, subject, htmlBody string) error {
	return f(ctx, to, subject, htmlBody)
}

var defaultSubjects = map[NotificationKind]string{
	NotificationActivation:        "Activate your account",
	NotificationEmailChange:       "Confirm your new email",
	NotificationPasswordReset:     "Reset your password",
	NotificationForgottenUsername: "Your username",
}

// MailNotifier renders notifications with the django template engine and
// sends them through a MailSender
type MailNotifier struct {
	engine   *django.Engine
	sender   MailSender
	siteName string
	subjects map[NotificationKind]string
	logger   Logger
}

// MailNotifierOption customizes the MailNotifier
type MailNotifierOption func(*MailNotifier)

// WithMailTemplates renders templates from fsys instead of the embedded ones
func WithMailTemplates(fsys fs.FS) MailNotifierOption {
	return func(m *MailNotifier) {
		m.engine = django.NewFileSystem(http.FS(fsys), ".html")
	}
}

// WithMailSubject overrides the subject of a notification kind
func WithMailSubject(kind NotificationKind, subject string) MailNotifierOption {
	return func(m *MailNotifier) {
		m.subjects[kind] = subject
	}
}

// WithMailLogger overrides the logger
func WithMailLogger(logger Logger) MailNotifierOption {
	return func(m *MailNotifier) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewMailNotifier loads the templates and returns the notifier
func NewMailNotifier(sender MailSender, siteName string, opts ...MailNotifierOption) (*MailNotifier, error) {
	m := &MailNotifier{
		engine:   django.NewFileSystem(http.FS(GetEmailTemplatesFS()), ".html"),
		sender:   sender,
		siteName: siteName,
		subjects: make(map[NotificationKind]string, len(defaultSubjects)),
		logger:   defLogger{},
	}

	for kind, subject := range defaultSubjects {
		m.subjects[kind] = subject
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	if err := m.engine.Load(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load email templates")
	}

	return m, nil
}

// Render returns the subject and html body of a notification
func (m *MailNotifier) Render(n Notification) (string, string, error) {
	binding := make(map[string]any, len(n.Context)+1)
	binding["site_name"] = m.siteName
	for k, v := range n.Context {
		binding[k] = v
	}

	var buf bytes.Buffer
	if err := m.engine.Render(&buf, string(n.Kind), binding); err != nil {
		return "", "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to render email").
			WithMetadata(map[string]any{"kind": n.Kind})
	}

	subject := m.subjects[n.Kind]
	if subject == "" {
		subject = m.siteName
	}

	return subject, buf.String(), nil
}

// Notify implements Notifier
func (m *MailNotifier) Notify(ctx context.Context, n Notification) error {
	subject, body, err := m.Render(n)
	if err != nil {
		return err
	}

	if err := m.sender.Send(ctx, n.Recipient, subject, body); err != nil {
		m.logger.Error("failed to send email", "kind", n.Kind, "to", n.Recipient, "error", err)
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to send email")
	}

	m.logger.Debug("email sent", "kind", n.Kind, "to", n.Recipient)
	return nil
}

// SMTPConfig holds the mail transport settings
type SMTPConfig struct {
	Host        string        `env:"SMTP_HOST,default=localhost"`
	Port        int           `env:"SMTP_PORT,default=587"`
	Username    string        `env:"SMTP_USERNAME"`
	Password    string        `env:"SMTP_PASSWORD"`
	From        string        `env:"SMTP_FROM,default=no-reply@localhost"`
	FromName    string        `env:"SMTP_FROM_NAME,default=Accounts"`
	DialTimeout time.Duration `env:"SMTP_DIAL_TIMEOUT,default=8s"`
	IOTimeout   time.Duration `env:"SMTP_IO_TIMEOUT,default=15s"`
}

// SMTPSender delivers html email over SMTP with STARTTLS when offered
type SMTPSender struct {
	cfg SMTPConfig
}

// NewSMTPSender returns a sender for cfg
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// Send implements MailSender
func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	msg := strings.Join([]string{
		fmt.Sprintf("From: %s <%s>", s.cfg.FromName, s.cfg.From),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		`Content-Type: text/html; charset="UTF-8"`,
		"",
		htmlBody,
	}, "\r\n")

	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))

	dialer := net.Dialer{Timeout: s.cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}

	deadline := time.Now().Add(s.cfg.IOTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	c, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer func() { _ = c.Quit() }()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
			return err
		}
	}

	if s.cfg.Username != "" {
		auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		if err := c.Auth(auth); err != nil {
			return err
		}
	}

	if err := c.Mail(s.cfg.From); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}

	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}
