package accounts

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

// DefaultSessionCookie is the cookie holding the session token
const DefaultSessionCookie = "accounts_session"

const (
	localsUserKey   = "accounts.user"
	localsClaimsKey = "accounts.claims"
)

// RouteAuthenticator issues session cookies and guards routes with them
type RouteAuthenticator struct {
	lifecycle    *Lifecycle
	CookieName   string
	SecureCookie bool
	Logger       Logger
	ErrorHandler func(c *fiber.Ctx, err error) error
}

// RouteAuthenticatorOption customizes the RouteAuthenticator
type RouteAuthenticatorOption func(*RouteAuthenticator)

// WithSessionCookie sets the cookie name and secure flag
func WithSessionCookie(name string, secure bool) RouteAuthenticatorOption {
	return func(a *RouteAuthenticator) {
		if name != "" {
			a.CookieName = name
		}
		a.SecureCookie = secure
	}
}

// WithRouteLogger overrides the logger
func WithRouteLogger(logger Logger) RouteAuthenticatorOption {
	return func(a *RouteAuthenticator) {
		if logger != nil {
			a.Logger = logger
		}
	}
}

// NewRouteAuthenticator returns session middleware backed by lifecycle
func NewRouteAuthenticator(lifecycle *Lifecycle, opts ...RouteAuthenticatorOption) *RouteAuthenticator {
	a := &RouteAuthenticator{
		lifecycle:    lifecycle,
		CookieName:   DefaultSessionCookie,
		SecureCookie: true,
		Logger:       defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}

	if a.ErrorHandler == nil {
		a.ErrorHandler = a.defaultErrHandler
	}

	return a
}

// Login resolves the credentials and stores the session cookie
func (a *RouteAuthenticator) Login(c *fiber.Ctx, msg LoginMessage) (*LoginResult, error) {
	result, err := a.lifecycle.Login(c.UserContext(), msg)
	if err != nil {
		return nil, err
	}

	a.setCookieToken(c, result.Token, result.ExpiresAt, result.Persistent)
	return result, nil
}

// Logout drops the session cookie
func (a *RouteAuthenticator) Logout(c *fiber.Ctx) {
	a.cookieDel(c, a.CookieName)
}

// ProtectedRoute rejects requests without a valid session and makes the
// account available through CurrentUser
func (a *RouteAuthenticator) ProtectedRoute() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, claims, err := a.authenticate(c)
		if err != nil {
			return a.ErrorHandler(c, err)
		}

		c.Locals(localsUserKey, user)
		c.Locals(localsClaimsKey, claims)

		ctx := WithContext(c.UserContext(), user)
		c.SetUserContext(WithClaimsContext(ctx, claims))

		return c.Next()
	}
}

// GuestOnly rejects requests that already carry a valid session
func (a *RouteAuthenticator) GuestOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if a.token(c) == "" {
			return c.Next()
		}

		if _, _, err := a.authenticate(c); err == nil {
			return a.ErrorHandler(c, ErrAlreadyAuthenticated)
		}

		return c.Next()
	}
}

// CurrentUser returns the account set by ProtectedRoute
func CurrentUser(c *fiber.Ctx) (*User, bool) {
	user, ok := c.Locals(localsUserKey).(*User)
	return user, ok && user != nil
}

func (a *RouteAuthenticator) authenticate(c *fiber.Ctx) (*User, *JWTClaims, error) {
	token := a.token(c)
	if token == "" {
		return nil, nil, ErrUnableToFindSession
	}

	claims, err := a.lifecycle.Tokens().ValidateSession(token)
	if err != nil {
		return nil, nil, err
	}

	user, err := a.lifecycle.UserByID(c.UserContext(), claims.UserID())
	if err != nil {
		if goerrors.Is(err, ErrAccountNotFound) {
			return nil, nil, ErrTokenInvalid
		}
		return nil, nil, err
	}

	if !user.IsActive {
		return nil, nil, ErrInactiveAccount
	}

	return user, claims, nil
}

func (a *RouteAuthenticator) token(c *fiber.Ctx) string {
	if header := c.Get(fiber.HeaderAuthorization); header != "" {
		if scheme, value, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(value)
		}
	}
	return c.Cookies(a.CookieName)
}

func (a *RouteAuthenticator) setCookieToken(c *fiber.Ctx, val string, expires time.Time, persistent bool) {
	cookie := &fiber.Cookie{
		Name:     a.CookieName,
		Value:    val,
		Path:     "/",
		HTTPOnly: true,
		Secure:   a.SecureCookie,
		SameSite: fiber.CookieSameSiteLaxMode,
	}

	if persistent {
		cookie.Expires = expires
	} else {
		cookie.SessionOnly = true
	}

	c.Cookie(cookie)
}

func (a *RouteAuthenticator) cookieDel(c *fiber.Ctx, name string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   a.SecureCookie,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (a *RouteAuthenticator) defaultErrHandler(c *fiber.Ctx, err error) error {
	return WriteError(c, a.Logger, err)
}

// WriteError renders err as {"error": {...}} with the status carried by
// the rich error
func WriteError(c *fiber.Ctx, logger Logger, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}

	status := richErr.Code
	if status < http.StatusBadRequest || status > 599 {
		status = statusFor(richErr)
	}

	if logger != nil {
		if status >= http.StatusInternalServerError {
			logger.Error("request failed",
				"path", c.OriginalURL(),
				"error", err,
				"details", print.MaybePrettyJSON(richErr.Metadata),
			)
		} else {
			logger.Debug("request rejected", "path", c.OriginalURL(), "text_code", richErr.TextCode)
		}
	}

	body := fiber.Map{
		"code":    richErr.TextCode,
		"message": richErr.Message,
	}

	if status >= http.StatusInternalServerError {
		body["message"] = "An unexpected server error occurred"
	} else if fields, ok := richErr.Metadata["fields"]; ok {
		body["fields"] = fields
	}

	return c.Status(status).JSON(fiber.Map{"error": body})
}

func statusFor(richErr *goerrors.Error) int {
	switch richErr.Category {
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return http.StatusBadRequest
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
