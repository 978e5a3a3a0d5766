package accounts

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeAccountNotFound      = "ACCOUNT_NOT_FOUND"
	TextCodeInvalidCreds         = "INVALID_CREDENTIALS"
	TextCodeAccountInactive      = "ACCOUNT_INACTIVE"
	TextCodeEmailTaken           = "EMAIL_TAKEN"
	TextCodeUsernameTaken        = "USERNAME_TAKEN"
	TextCodeSameEmail            = "SAME_EMAIL"
	TextCodeCodeNotFound         = "CODE_NOT_FOUND"
	TextCodeAlreadyActive        = "ALREADY_ACTIVE"
	TextCodeNoActivationPending  = "NO_ACTIVATION_PENDING"
	TextCodeCooldownActive       = "COOLDOWN_ACTIVE"
	TextCodeTokenExpired         = "TOKEN_EXPIRED"
	TextCodeTokenInvalid         = "TOKEN_INVALID"
	TextCodeEmptyPassword        = "EMPTY_PASSWORD"
	TextCodeWeakPassword         = "WEAK_PASSWORD"
	TextCodeInvalidPayload       = "INVALID_PAYLOAD"
	TextCodeSessionNotFound      = "SESSION_NOT_FOUND"
	TextCodeAlreadyAuthenticated = "ALREADY_AUTHENTICATED"
)

// ErrAccountNotFound no account matches the identifier
var ErrAccountNotFound = goerrors.New("account not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeAccountNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrInvalidCredentials covers unknown identifiers, inactive accounts and
// wrong passwords during sign in.
var ErrInvalidCredentials = goerrors.New("the credentials provided are invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(goerrors.CodeUnauthorized)

// ErrInactiveAccount the account exists but was never activated
var ErrInactiveAccount = goerrors.New("account is not active", goerrors.CategoryAuth).
	WithTextCode(TextCodeAccountInactive).
	WithCode(goerrors.CodeForbidden)

// ErrEmailTaken another account owns the email, compared case-insensitively
var ErrEmailTaken = goerrors.New("email is already in use", goerrors.CategoryConflict).
	WithTextCode(TextCodeEmailTaken).
	WithCode(goerrors.CodeConflict)

// ErrUsernameTaken another account owns the username
var ErrUsernameTaken = goerrors.New("username is already in use", goerrors.CategoryConflict).
	WithTextCode(TextCodeUsernameTaken).
	WithCode(goerrors.CodeConflict)

// ErrSameEmail the requested email matches the current one
var ErrSameEmail = goerrors.New("please enter another email", goerrors.CategoryValidation).
	WithTextCode(TextCodeSameEmail).
	WithCode(goerrors.CodeBadRequest)

// ErrCodeNotFound the code does not exist or was already redeemed
var ErrCodeNotFound = goerrors.New("activation code not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeCodeNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrAlreadyActive the account has already been activated
var ErrAlreadyActive = goerrors.New("account is already active", goerrors.CategoryConflict).
	WithTextCode(TextCodeAlreadyActive).
	WithCode(goerrors.CodeConflict)

// ErrNoActivationPending the inactive account has no activation code to replace
var ErrNoActivationPending = goerrors.New("no pending activation for account", goerrors.CategoryNotFound).
	WithTextCode(TextCodeNoActivationPending).
	WithCode(goerrors.CodeNotFound)

// ErrCooldownActive the current activation code is younger than the resend cooldown
var ErrCooldownActive = goerrors.New("activation code was sent recently, try again later", goerrors.CategoryRateLimit).
	WithTextCode(TextCodeCooldownActive).
	WithCode(http.StatusTooManyRequests)

// ErrTokenExpired the signed token is past its expiration
var ErrTokenExpired = goerrors.New("token has expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenInvalid the signed token is malformed, tampered with or stale
var ErrTokenInvalid = goerrors.New("token is invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenInvalid).
	WithCode(goerrors.CodeUnauthorized)

// ErrNoEmptyString refuses to hash an empty password
var ErrNoEmptyString = goerrors.New("password can not be empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(goerrors.CodeBadRequest)

// ErrMismatchedHashAndPassword the password does not match the stored hash
var ErrMismatchedHashAndPassword = goerrors.New("the credentials provided are invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(goerrors.CodeUnauthorized)

// ErrUnableToFindSession the request carries no session token
var ErrUnableToFindSession = goerrors.New("unable to find session", goerrors.CategoryAuth).
	WithTextCode(TextCodeSessionNotFound).
	WithCode(goerrors.CodeUnauthorized)

// ErrAlreadyAuthenticated guest only endpoints reject signed in callers
var ErrAlreadyAuthenticated = goerrors.New("already signed in", goerrors.CategoryConflict).
	WithTextCode(TextCodeAlreadyAuthenticated).
	WithCode(goerrors.CodeConflict)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if goerrors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// AsError returns the rich error carried by err, or wraps err as an
// internal failure.
func AsError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, "unexpected error").
		WithCode(goerrors.CodeInternal)
}
