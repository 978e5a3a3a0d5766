package accounts

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ActivationCodes is the registry of single use codes
type ActivationCodes interface {
	CreateTx(ctx context.Context, tx bun.IDB, record *ActivationCode) (*ActivationCode, error)
	GetByCodeTx(ctx context.Context, tx bun.IDB, code string, purpose CodePurpose) (*ActivationCode, error)
	// GetPendingTx returns the newest code of the given purpose owned by the user
	GetPendingTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, purpose CodePurpose) (*ActivationCode, error)
	// DeleteTx removes the record only if it still exists with the same
	// code, ErrCodeNotFound otherwise
	DeleteTx(ctx context.Context, tx bun.IDB, record *ActivationCode) error
	DeleteForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, purpose CodePurpose) (int64, error)
}

type activationCodes struct {
	repo repository.Repository[*ActivationCode]
}

var _ ActivationCodes = (*activationCodes)(nil)

// NewActivationCodesRepository returns the bun backed code registry
func NewActivationCodesRepository(db *bun.DB) ActivationCodes {
	repo := repository.NewRepository[*ActivationCode](db, repository.ModelHandlers[*ActivationCode]{
		NewRecord: func() *ActivationCode { return &ActivationCode{} },
		GetID: func(record *ActivationCode) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *ActivationCode, id uuid.UUID) {
			if record != nil {
				record.ID = id
			}
		},
		GetIdentifier: func() string {
			return "code"
		},
	})

	return &activationCodes{repo: repo}
}

func (r *activationCodes) CreateTx(ctx context.Context, tx bun.IDB, record *ActivationCode) (*ActivationCode, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return r.repo.CreateTx(ctx, tx, record)
}

func (r *activationCodes) GetByCodeTx(ctx context.Context, tx bun.IDB, code string, purpose CodePurpose) (*ActivationCode, error) {
	record := &ActivationCode{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.code = ?", code).
		Where("?TableAlias.purpose = ?", purpose).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFoundOr(err, "code", code)
	}
	return record, nil
}

func (r *activationCodes) GetPendingTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, purpose CodePurpose) (*ActivationCode, error) {
	record := &ActivationCode{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.purpose = ?", purpose).
		OrderExpr("?TableAlias.created_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFoundOr(err, "user_id", userID.String())
	}
	return record, nil
}

func (r *activationCodes) DeleteTx(ctx context.Context, tx bun.IDB, record *ActivationCode) error {
	res, err := tx.NewDelete().
		Model((*ActivationCode)(nil)).
		Where("id = ?", record.ID).
		Where("code = ?", record.Code).
		Exec(ctx)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if n == 0 {
		return ErrCodeNotFound
	}

	return nil
}

func (r *activationCodes) DeleteForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, purpose CodePurpose) (int64, error) {
	res, err := tx.NewDelete().
		Model((*ActivationCode)(nil)).
		Where("user_id = ?", userID).
		Where("purpose = ?", purpose).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
