package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"franchise-subscription/internal/domain/model"
	"franchise-subscription/internal/domain/ports/repository"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

type StatsUseCase interface {
	Totals(ctx context.Context) (accounts int, subsByStatus map[model.SubscriptionStatus]int, codesByKind map[model.CodeKind]int, redemptions int, err error)
}

type statsUC struct {
	accounts repository.AccountRepository
	subs     repository.SubscriptionRepository
	codes    repository.CodeRegistry

	log *zerolog.Logger
}

func NewStatsUseCase(accounts repository.AccountRepository, subs repository.SubscriptionRepository, codes repository.CodeRegistry, logger *zerolog.Logger) *statsUC {
	return &statsUC{accounts: accounts, subs: subs, codes: codes, log: logger}
}

func (s *statsUC) Totals(ctx context.Context) (int, map[model.SubscriptionStatus]int, map[model.CodeKind]int, int, error) {
	accounts, err := s.accounts.CountAccounts(ctx, repository.NoTX)
	if err != nil {
		return 0, nil, nil, 0, err
	}
	subs, err := s.subs.CountByStatus(ctx, repository.NoTX)
	if err != nil {
		return 0, nil, nil, 0, err
	}
	codes, err := s.codes.CountByKind(ctx, repository.NoTX)
	if err != nil {
		return 0, nil, nil, 0, err
	}
	redemptions, err := s.codes.CountRedemptions(ctx, repository.NoTX)
	if err != nil {
		return 0, nil, nil, 0, err
	}
	return accounts, subs, codes, redemptions, nil
}
