package usecase

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"franchise-subscription/internal/domain/model"
	"franchise-subscription/internal/domain/ports/repository"
	"franchise-subscription/internal/infra/logging"
)

// Compile-time check
var _ AccountUseCase = (*accountUC)(nil)

// AccountUseCase exposes account operations used by the admin API and tooling.
type AccountUseCase interface {
	RegisterOrFetch(ctx context.Context, email, displayName string) (*model.Account, error)
	GetByID(ctx context.Context, id string) (*model.Account, error)
	Count(ctx context.Context) (int, error)
}

type accountUC struct {
	accounts repository.AccountRepository
	tm       repository.TransactionManager
	log      *zerolog.Logger
}

func NewAccountUseCase(accounts repository.AccountRepository, tm repository.TransactionManager, logger *zerolog.Logger) *accountUC {
	return &accountUC{accounts: accounts, tm: tm, log: logger}
}

func (u *accountUC) RegisterOrFetch(ctx context.Context, email, displayName string) (*model.Account, error) {
	defer logging.TraceDuration(u.log, "AccountUC.RegisterOrFetch")()

	var account *model.Account
	// The find and save must be one atomic operation so two concurrent
	// registrations for the same email cannot both insert.
	txOpts := pgx.TxOptions{IsoLevel: pgx.Serializable}
	err := u.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		acc, err := u.accounts.FindByEmail(ctx, tx, email)
		if err != nil {
			return err
		}

		if acc != nil {
			acc.Touch()
			if err := u.accounts.Save(ctx, tx, acc); err != nil {
				u.log.Error().Err(err).Msg("failed to update account")
				return err
			}
			account = acc
			return nil
		}

		na, err := model.NewAccount("", email, displayName)
		if err != nil {
			return err
		}
		if err := u.accounts.Save(ctx, tx, na); err != nil {
			return err
		}
		account = na
		return nil
	})

	return account, err
}

func (u *accountUC) GetByID(ctx context.Context, id string) (*model.Account, error) {
	defer logging.TraceDuration(u.log, "AccountUC.GetByID")()
	return u.accounts.FindByID(ctx, repository.NoTX, id)
}

func (u *accountUC) Count(ctx context.Context) (int, error) {
	defer logging.TraceDuration(u.log, "AccountUC.Count")()
	return u.accounts.CountAccounts(ctx, repository.NoTX)
}
