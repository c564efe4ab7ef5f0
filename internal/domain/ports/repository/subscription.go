package repository

import (
	"context"
	"time"

	"franchise-subscription/internal/domain/model"
)

// SubscriptionRepository is the port for account subscriptions.
type SubscriptionRepository interface {
	// Save inserts or updates a subscription row.
	Save(ctx context.Context, tx Tx, sub *model.Subscription) error
	// FindCurrentByAccount returns the row with the latest EndsAt (tie-break:
	// latest StartsAt), or domain.ErrNotFound. When called inside a
	// transaction the row is locked for update.
	FindCurrentByAccount(ctx context.Context, tx Tx, accountID string) (*model.Subscription, error)
	ListByAccount(ctx context.Context, tx Tx, accountID string) ([]*model.Subscription, error)
	// LockAccount serializes subscription writes for one account within the
	// current transaction. Must be called with a live tx handle.
	LockAccount(ctx context.Context, tx Tx, accountID string) error

	// MarkExpired flips status to 'expired' on rows whose window passed
	// before `now`, returning the number of rows touched.
	MarkExpired(ctx context.Context, tx Tx, now time.Time) (int, error)

	// --- Statistics read-only methods ---
	CountByStatus(ctx context.Context, tx Tx) (map[model.SubscriptionStatus]int, error)
}
