package accounts

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the credential store
type Users interface {
	GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error)
	GetByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*User, error)
	// GetByEmailTx matches on the normalized email, see NormalizeEmail
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	GetByIdentifierTx(ctx context.Context, tx bun.IDB, mode IdentifierMode, identifier string) (*User, error)
	EmailTakenTx(ctx context.Context, tx bun.IDB, email string, exclude uuid.UUID) (bool, error)
	UsernameTakenTx(ctx context.Context, tx bun.IDB, username string) (bool, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error)
	UpdateTx(ctx context.Context, tx bun.IDB, record *User, columns ...string) (*User, error)
	ActivateTx(ctx context.Context, tx bun.IDB, id uuid.UUID, at time.Time) error
	TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *User, at time.Time) error
}

type users struct {
	repo repository.Repository[*User]
	db   *bun.DB
}

var _ Users = (*users)(nil)

// NewUsersRepository returns the bun backed credential store
func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{
		repo: repo,
		db:   db,
	}
}

func (a *users) GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFoundOr(err, "id", id.String())
	}
	return record, nil
}

func (a *users) GetByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.username = ?", username).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFoundOr(err, "username", username)
	}
	return record, nil
}

func (a *users) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email_normalized = ?", NormalizeEmail(email)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFoundOr(err, "email", email)
	}
	return record, nil
}

func (a *users) GetByIdentifierTx(ctx context.Context, tx bun.IDB, mode IdentifierMode, identifier string) (*User, error) {
	switch mode {
	case IdentifierUsername:
		return a.GetByUsernameTx(ctx, tx, identifier)
	case IdentifierEmail:
		return a.GetByEmailTx(ctx, tx, identifier)
	}

	record := &User{}
	err := tx.NewSelect().
		Model(record).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("?TableAlias.username = ?", identifier).
				WhereOr("?TableAlias.email_normalized = ?", NormalizeEmail(identifier))
		}).
		OrderExpr("CASE WHEN ?TableAlias.username = ? THEN 0 ELSE 1 END", identifier).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFoundOr(err, "identifier", identifier)
	}
	return record, nil
}

func (a *users) EmailTakenTx(ctx context.Context, tx bun.IDB, email string, exclude uuid.UUID) (bool, error) {
	q := tx.NewSelect().
		Model((*User)(nil)).
		Where("?TableAlias.email_normalized = ?", NormalizeEmail(email))

	if exclude != uuid.Nil {
		q = q.Where("?TableAlias.id != ?", exclude)
	}

	return q.Exists(ctx)
}

func (a *users) UsernameTakenTx(ctx context.Context, tx bun.IDB, username string) (bool, error) {
	return tx.NewSelect().
		Model((*User)(nil)).
		Where("?TableAlias.username = ?", username).
		Exists(ctx)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error) {
	prepareUserDefaults(record)
	created, err := a.repo.CreateTx(ctx, tx, record)
	if err != nil {
		return nil, mapUniqueViolation(err)
	}
	return created, nil
}

func (a *users) UpdateTx(ctx context.Context, tx bun.IDB, record *User, columns ...string) (*User, error) {
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = time.Now().UTC()
	}
	record.EmailNormalized = NormalizeEmail(record.Email)

	q := tx.NewUpdate().
		Model(record).
		WherePK()

	if len(columns) > 0 {
		cols := make([]string, 0, len(columns)+1)
		for _, col := range columns {
			cols = append(cols, col)
			if col == "email" {
				cols = append(cols, "email_normalized")
			}
		}
		q = q.Column(append(cols, "updated_at")...)
	} else {
		q = q.ExcludeColumn("id", "created_at")
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return nil, mapUniqueViolation(err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": record.ID.String(),
			})
	}

	return record, nil
}

func (a *users) ActivateTx(ctx context.Context, tx bun.IDB, id uuid.UUID, at time.Time) error {
	res, err := tx.NewUpdate().
		Model((*User)(nil)).
		Set("is_active = ?", true).
		Set("updated_at = ?", at).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}

func (a *users) TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *User, at time.Time) error {
	_, err := tx.NewUpdate().
		Model((*User)(nil)).
		Set("last_login_at = ?", at).
		Where("id = ?", user.ID).
		Exec(ctx)
	if err != nil {
		return err
	}

	user.LastLoginAt = &at
	return nil
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	record.EmailNormalized = NormalizeEmail(record.Email)

	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}

	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = record.CreatedAt
	}
}

func notFoundOr(err error, key, value string) error {
	if repository.IsRecordNotFound(err) || errors.Is(err, sql.ErrNoRows) {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				key: value,
			})
	}
	return err
}
