package repository_test

import (
	"context"
	"testing"
	"time"

	accounts "github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/repository"
	gorepository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSQLite(t *testing.T) *repository.Store {
	t.Helper()

	store, err := repository.Open("sqlite3", "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.Equal(t, repository.DriverSQLite, store.Driver)
	require.NoError(t, store.Ping(context.Background()))
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func newUser(username, email string) *accounts.User {
	now := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	return &accounts.User{
		Username:     username,
		Email:        email,
		PasswordHash: "$2a$04$hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := repository.Open("oracle", "whatever")
	assert.Error(t, err)
}

func TestMigrateIsIdempotent(t *testing.T) {
	store := openSQLite(t)
	require.NoError(t, store.Migrate(context.Background()))

	count, err := store.DB.NewSelect().Model((*accounts.User)(nil)).Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestUsersRepository(t *testing.T) {
	ctx := context.Background()
	store := openSQLite(t)
	users := store.Manager.Users()

	created, err := users.CreateTx(ctx, store.DB, newUser("alice", "Alice@Example.com"))
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)

	byEmail, err := users.GetByEmailTx(ctx, store.DB, "ALICE@example.COM")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	either, err := users.GetByIdentifierTx(ctx, store.DB, accounts.IdentifierEither, "alice")
	require.NoError(t, err)
	assert.Equal(t, created.ID, either.ID)

	_, err = users.GetByIdentifierTx(ctx, store.DB, accounts.IdentifierUsername, "alice@example.com")
	assert.True(t, gorepository.IsRecordNotFound(err))

	taken, err := users.EmailTakenTx(ctx, store.DB, "alice@EXAMPLE.com", uuid.Nil)
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = users.EmailTakenTx(ctx, store.DB, "alice@example.com", created.ID)
	require.NoError(t, err)
	assert.False(t, taken)

	_, err = users.CreateTx(ctx, store.DB, newUser("alice2", "alice@example.com"))
	assert.ErrorIs(t, err, accounts.ErrEmailTaken)

	_, err = users.CreateTx(ctx, store.DB, newUser("alice", "other@example.com"))
	assert.ErrorIs(t, err, accounts.ErrUsernameTaken)

	at := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
	require.NoError(t, users.ActivateTx(ctx, store.DB, created.ID, at))

	stored, err := users.GetByIDTx(ctx, store.DB, created.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsActive)

	err = users.ActivateTx(ctx, store.DB, uuid.New(), at)
	assert.True(t, gorepository.IsRecordNotFound(err))
}

func TestUsersRepositoryNonASCIIEmail(t *testing.T) {
	ctx := context.Background()
	store := openSQLite(t)
	users := store.Manager.Users()

	created, err := users.CreateTx(ctx, store.DB, newUser("olaf", "Ölaf@example.com"))
	require.NoError(t, err)
	assert.Equal(t, "ölaf@example.com", created.EmailNormalized)

	byEmail, err := users.GetByEmailTx(ctx, store.DB, "ÖLAF@EXAMPLE.COM")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	either, err := users.GetByIdentifierTx(ctx, store.DB, accounts.IdentifierEither, "ölaf@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, either.ID)

	taken, err := users.EmailTakenTx(ctx, store.DB, "ölaf@example.com", uuid.Nil)
	require.NoError(t, err)
	assert.True(t, taken)

	_, err = users.CreateTx(ctx, store.DB, newUser("olaf2", "ölaf@example.com"))
	assert.ErrorIs(t, err, accounts.ErrEmailTaken)
}

func TestActivationCodesRepository(t *testing.T) {
	ctx := context.Background()
	store := openSQLite(t)
	codes := store.Manager.ActivationCodes()

	owner, err := store.Manager.Users().CreateTx(ctx, store.DB, newUser("bob", "bob@example.com"))
	require.NoError(t, err)

	base := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	older, err := codes.CreateTx(ctx, store.DB, &accounts.ActivationCode{
		UserID: owner.ID, Purpose: accounts.PurposeActivate, Code: "older-code-value", CreatedAt: base,
	})
	require.NoError(t, err)
	newer, err := codes.CreateTx(ctx, store.DB, &accounts.ActivationCode{
		UserID: owner.ID, Purpose: accounts.PurposeActivate, Code: "newer-code-value", CreatedAt: base.Add(time.Hour),
	})
	require.NoError(t, err)

	pending, err := codes.GetPendingTx(ctx, store.DB, owner.ID, accounts.PurposeActivate)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, pending.ID)

	_, err = codes.GetByCodeTx(ctx, store.DB, "older-code-value", accounts.PurposeChangeEmail)
	assert.True(t, gorepository.IsRecordNotFound(err))

	require.NoError(t, codes.DeleteTx(ctx, store.DB, older))
	assert.ErrorIs(t, codes.DeleteTx(ctx, store.DB, older), accounts.ErrCodeNotFound)

	n, err := codes.DeleteForUserTx(ctx, store.DB, owner.ID, accounts.PurposeActivate)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = codes.GetPendingTx(ctx, store.DB, owner.ID, accounts.PurposeActivate)
	assert.True(t, gorepository.IsRecordNotFound(err))
}
