package repository

import (
	"context"

	"franchise-subscription/internal/domain/model"
)

type AccountRepository interface {
	Save(ctx context.Context, tx Tx, a *model.Account) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Account, error)
	FindByEmail(ctx context.Context, tx Tx, email string) (*model.Account, error)
	CountAccounts(ctx context.Context, tx Tx) (int, error)
}
