package accounts

import (
	"errors"
	"regexp"
	"strings"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

// ValidateUUIDRequired rejects the nil UUID
func ValidateUUIDRequired(value any) error {
	id, _ := value.(uuid.UUID)
	if id == uuid.Nil {
		return errors.New("cannot be blank")
	}
	return nil
}

// FormatValidationErrorToMap flattens ozzo validation errors into
// field -> message pairs
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			if ferr == nil {
				continue
			}
			out[field] = ferr.Error()
		}
		return out
	}

	out["form"] = err.Error()
	return out
}

// validationFailed wraps payload validation errors keeping the per field
// messages in the metadata
func validationFailed(err error) error {
	richErr := goerrors.Wrap(err, goerrors.CategoryValidation, "invalid payload").
		WithTextCode(TextCodeInvalidPayload).
		WithCode(goerrors.CodeBadRequest)

	if fields := FormatValidationErrorToMap(err); len(fields) > 0 {
		richErr = richErr.WithMetadata(map[string]any{"fields": fields})
	}

	return richErr
}

func weakPassword(msg string) *goerrors.Error {
	return goerrors.New(msg, goerrors.CategoryValidation).
		WithTextCode(TextCodeWeakPassword).
		WithCode(goerrors.CodeBadRequest)
}

// CheckPassword applies the password policy: a minimum length, not
// entirely numeric, and not too close to the username or email
func CheckPassword(password string, minLength int, username, email string) error {
	if password == "" {
		return ErrNoEmptyString
	}

	if len([]rune(password)) < minLength {
		return weakPassword("this password is too short").
			WithMetadata(map[string]any{"min_length": minLength})
	}

	numeric := true
	for _, r := range password {
		if !unicode.IsDigit(r) {
			numeric = false
			break
		}
	}
	if numeric {
		return weakPassword("this password is entirely numeric")
	}

	lowered := strings.ToLower(password)
	candidates := []string{strings.ToLower(username)}
	if local, _, ok := strings.Cut(strings.ToLower(email), "@"); ok {
		candidates = append(candidates, local, strings.ToLower(email))
	}
	for _, c := range candidates {
		if len(c) >= 3 && (lowered == c || strings.Contains(lowered, c) && len(c)*10 >= len(lowered)*7) {
			return weakPassword("the password is too similar to the account details")
		}
	}

	return nil
}
