package accounts

import (
	"crypto/rand"
	"math/big"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/nrednav/cuid2"
)

// CodeAlphabet holds the symbols activation codes are drawn from
const CodeAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// DefaultCodeLength matches the width of the code column
const DefaultCodeLength = 20

// GenerateCode returns a random code of the given length drawn uniformly
// from CodeAlphabet using crypto/rand
func GenerateCode(length int) (string, error) {
	if length <= 0 {
		length = DefaultCodeLength
	}

	max := big.NewInt(int64(len(CodeAlphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read random source")
		}
		out[i] = CodeAlphabet[n.Int64()]
	}

	return string(out), nil
}

// PlaceholderUsername is written on insert when usernames are disabled,
// it is replaced with FinalUsername once the id is known
func PlaceholderUsername() string {
	return "tmp_" + cuid2.Generate()
}

// FinalUsername is the username assigned to accounts without one
func FinalUsername(id uuid.UUID) string {
	return "user_" + id.String()
}
