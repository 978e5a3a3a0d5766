package accounts_test

import (
	"context"
	"sync"
	"testing"

	accounts "github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// countingPasswords records every hash the lifecycle checks passwords against
type countingPasswords struct {
	accounts.BcryptAuthenticator
	mu       sync.Mutex
	hashed   int
	compared []string
}

func (c *countingPasswords) HashPassword(password string) (string, error) {
	c.mu.Lock()
	c.hashed++
	c.mu.Unlock()
	return c.BcryptAuthenticator.HashPassword(password)
}

func (c *countingPasswords) ComparePasswordAndHash(password, hash string) error {
	c.mu.Lock()
	c.compared = append(c.compared, hash)
	c.mu.Unlock()
	return c.BcryptAuthenticator.ComparePasswordAndHash(password, hash)
}

func (c *countingPasswords) lastCompared() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.compared) == 0 {
		return ""
	}
	return c.compared[len(c.compared)-1]
}

func TestBcryptAuthenticator(t *testing.T) {
	auth := accounts.BcryptAuthenticator{}

	hash, err := auth.HashPassword(testPassword)
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, accounts.PasswordHashCost(), cost)

	tests := []struct {
		name     string
		password string
		hash     string
		want     error
		wantErr  bool
	}{
		{name: "matching password", password: testPassword, hash: hash},
		{name: "wrong password", password: "not-the-password", hash: hash, want: accounts.ErrMismatchedHashAndPassword, wantErr: true},
		{name: "malformed hash", password: testPassword, hash: "plaintext", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := auth.ComparePasswordAndHash(tt.password, tt.hash)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			} else {
				assert.NotErrorIs(t, err, accounts.ErrMismatchedHashAndPassword)
			}
		})
	}

	_, err = auth.HashPassword("")
	assert.ErrorIs(t, err, accounts.ErrNoEmptyString)
}

func TestRandomPasswordHashIsUnusable(t *testing.T) {
	first := accounts.RandomPasswordHash()
	second := accounts.RandomPasswordHash()

	assert.NotEqual(t, first, second)
	assert.Error(t, accounts.ComparePasswordAndHash("", first))
	assert.Error(t, accounts.ComparePasswordAndHash(testPassword, first))
}

func TestCredentialPathUsesPasswordAuthenticator(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	passwords := &countingPasswords{}
	f.lifecycle = f.newLifecycle(f.store.Manager, accounts.WithPasswordAuthenticator(passwords))

	active := f.registerActive(t, "bram", "bram@example.com")
	inactive := f.register(t, "cleo", "cleo@example.com")
	assert.Equal(t, 2, passwords.hashed)

	stored := f.user(t, active.ID)
	cost, err := bcrypt.Cost([]byte(stored.PasswordHash))
	require.NoError(t, err)
	assert.Equal(t, accounts.PasswordHashCost(), cost)

	t.Run("wrong password", func(t *testing.T) {
		_, err := f.lifecycle.ResolveCredentials(ctx, "bram", "not-the-password")
		assert.Equal(t, accounts.ErrInvalidCredentials, err)
		assert.Equal(t, stored.PasswordHash, passwords.lastCompared())
	})

	t.Run("inactive account", func(t *testing.T) {
		_, err := f.lifecycle.ResolveCredentials(ctx, "cleo", testPassword)
		assert.Equal(t, accounts.ErrInvalidCredentials, err)
		assert.Equal(t, f.user(t, inactive.ID).PasswordHash, passwords.lastCompared())
	})

	t.Run("unknown identifier spends a comparison", func(t *testing.T) {
		before := len(passwords.compared)

		_, err := f.lifecycle.ResolveCredentials(ctx, "nobody", testPassword)
		assert.Equal(t, accounts.ErrInvalidCredentials, err)
		require.Len(t, passwords.compared, before+1)

		dummy := passwords.lastCompared()
		assert.NotEqual(t, stored.PasswordHash, dummy)
		_, err = bcrypt.Cost([]byte(dummy))
		assert.NoError(t, err)

		_, err = f.lifecycle.ResolveCredentials(ctx, "ghost", testPassword)
		assert.Equal(t, accounts.ErrInvalidCredentials, err)
		assert.Equal(t, dummy, passwords.lastCompared())
	})
}
