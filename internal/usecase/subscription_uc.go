// File: internal/usecase/subscription_uc.go
package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"franchise-subscription/internal/domain/model"
	"franchise-subscription/internal/domain/ports/repository"
	"franchise-subscription/internal/infra/logging"
)

// Compile-time check
var _ SubscriptionUseCase = (*subscriptionUC)(nil)

// SubscriptionUseCase exposes subscription reads and the expiry sweep.
// Extension is RedemptionUseCase's job; nothing here mutates a window.
type SubscriptionUseCase interface {
	GetCurrent(ctx context.Context, accountID string) (*model.Subscription, error)
	ListByAccount(ctx context.Context, accountID string) ([]*model.Subscription, error)
	// ExpireDue flips the denormalized status on rows whose window has passed
	// and returns how many were touched. Run periodically by the expiry worker.
	ExpireDue(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context) (map[model.SubscriptionStatus]int, error)
}

type subscriptionUC struct {
	subs repository.SubscriptionRepository
	log  *zerolog.Logger
}

func NewSubscriptionUseCase(subs repository.SubscriptionRepository, logger *zerolog.Logger) *subscriptionUC {
	return &subscriptionUC{subs: subs, log: logger}
}

func (u *subscriptionUC) GetCurrent(ctx context.Context, accountID string) (*model.Subscription, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.GetCurrent")()
	return u.subs.FindCurrentByAccount(ctx, repository.NoTX, accountID)
}

func (u *subscriptionUC) ListByAccount(ctx context.Context, accountID string) ([]*model.Subscription, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.ListByAccount")()
	return u.subs.ListByAccount(ctx, repository.NoTX, accountID)
}

func (u *subscriptionUC) ExpireDue(ctx context.Context) (int, error) {
	return u.subs.MarkExpired(ctx, repository.NoTX, time.Now())
}

func (u *subscriptionUC) CountByStatus(ctx context.Context) (map[model.SubscriptionStatus]int, error) {
	return u.subs.CountByStatus(ctx, repository.NoTX)
}
