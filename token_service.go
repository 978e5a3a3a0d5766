package accounts

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// TokenService signs and verifies session and password reset tokens
type TokenService interface {
	SignSession(user *User, ttl time.Duration, rememberMe bool) (string, error)
	ValidateSession(token string) (*JWTClaims, error)
	// SignPasswordReset binds the token to the current password hash and
	// last login so it stops verifying once the password changes
	SignPasswordReset(user *User) (string, error)
	VerifyPasswordReset(token string) (*JWTClaims, error)
	// PasswordResetFingerprint is the value a reset token must carry for user
	PasswordResetFingerprint(user *User) string
}

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey []byte
	issuer     string
	resetTTL   time.Duration
	now        func() time.Time
	logger     Logger
}

// TokenServiceOption customizes the TokenService
type TokenServiceOption func(*TokenServiceImpl)

// WithTokenClock injects the clock used for issuing and validating tokens
func WithTokenClock(now func() time.Time) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if now != nil {
			ts.now = now
		}
	}
}

// WithTokenLogger overrides the logger
func WithTokenLogger(logger Logger) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if logger != nil {
			ts.logger = logger
		}
	}
}

// NewTokenService creates a new TokenService instance
func NewTokenService(signingKey []byte, issuer string, resetTTL time.Duration, opts ...TokenServiceOption) *TokenServiceImpl {
	ts := &TokenServiceImpl{
		signingKey: signingKey,
		issuer:     issuer,
		resetTTL:   resetTTL,
		now:        time.Now,
		logger:     defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(ts)
		}
	}

	return ts
}

var _ TokenService = (*TokenServiceImpl)(nil)

// SignSession issues a session token for the user
func (ts *TokenServiceImpl) SignSession(user *User, ttl time.Duration, rememberMe bool) (string, error) {
	if user == nil {
		return "", goerrors.New("user is required", goerrors.CategoryBadInput)
	}

	now := ts.now()
	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UID:        user.ID.String(),
		Username:   user.Username,
		Purpose:    PurposeSession,
		RememberMe: rememberMe,
	}

	ensureTokenID(&claims.RegisteredClaims)

	return ts.SignClaims(claims)
}

// ValidateSession parses a session token
func (ts *TokenServiceImpl) ValidateSession(token string) (*JWTClaims, error) {
	return ts.validate(token, PurposeSession)
}

// SignPasswordReset issues a password reset token for the user
func (ts *TokenServiceImpl) SignPasswordReset(user *User) (string, error) {
	if user == nil {
		return "", goerrors.New("user is required", goerrors.CategoryBadInput)
	}

	now := ts.now()
	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.resetTTL)),
		},
		UID:         user.ID.String(),
		Purpose:     PurposePasswordReset,
		Fingerprint: ts.PasswordResetFingerprint(user),
	}

	ensureTokenID(&claims.RegisteredClaims)

	return ts.SignClaims(claims)
}

// VerifyPasswordReset parses a password reset token. The caller still has
// to compare the fingerprint against the stored account.
func (ts *TokenServiceImpl) VerifyPasswordReset(token string) (*JWTClaims, error) {
	return ts.validate(token, PurposePasswordReset)
}

// PasswordResetFingerprint hashes the account state a reset token is bound to
func (ts *TokenServiceImpl) PasswordResetFingerprint(user *User) string {
	lastLogin := ""
	if user.LastLoginAt != nil {
		lastLogin = strconv.FormatInt(user.LastLoginAt.Unix(), 10)
	}

	sum := sha256.Sum256([]byte(user.ID.String() + "|" + user.PasswordHash + "|" + lastLogin))
	return hex.EncodeToString(sum[:16])
}

// SignClaims signs arbitrary JWT claims using the configured signing key.
func (ts *TokenServiceImpl) SignClaims(claims *JWTClaims) (string, error) {
	if claims == nil {
		return "", goerrors.New("claims must not be nil", goerrors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

func (ts *TokenServiceImpl) validate(tokenString, purpose string) (*JWTClaims, error) {
	parserOptions := []jwt.ParserOption{
		jwt.WithTimeFunc(ts.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("token service encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	if claims.Purpose != purpose {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
