package repository

import (
	"context"
	"time"

	"franchise-subscription/internal/domain/model"
)

// CodeRegistry is the port for redemption codes and the promo ledger.
//
// ClaimVoucher, IncrementPromoUsage and InsertRedemptionRecord are the three
// atomic "claim" steps of the redemption flow. Each must be a conditional
// write on the implementation side (UPDATE ... WHERE guard, unique index), so
// that exactly one of any set of concurrent claimants can win; the read that
// preceded them is advisory only.
type CodeRegistry interface {
	// Save creates a redemption code.
	Save(ctx context.Context, tx Tx, code *model.RedemptionCode) error
	// FindByCode looks up a code by its normalized string, redeemed or not.
	FindByCode(ctx context.Context, tx Tx, code string) (*model.RedemptionCode, error)
	// ClaimVoucher marks a voucher used iff it is still unused. Returns
	// domain.ErrCodeAlreadyRedeemed when another redemption won the claim.
	ClaimVoucher(ctx context.Context, tx Tx, codeID, accountID string, at time.Time) error
	// IncrementPromoUsage bumps used_count iff used_count < quota. Returns
	// domain.ErrCodeQuotaExhausted when the quota is already consumed.
	IncrementPromoUsage(ctx context.Context, tx Tx, codeID string) error
	// InsertRedemptionRecord appends a ledger row; the (codeID, accountID)
	// unique constraint maps to domain.ErrCodeRedeemedByAccount.
	InsertRedemptionRecord(ctx context.Context, tx Tx, rec *model.RedemptionRecord) error
	// HasRedemption reports whether the ledger already holds (codeID, accountID).
	HasRedemption(ctx context.Context, tx Tx, codeID, accountID string) (bool, error)

	// --- Admin read methods ---
	List(ctx context.Context, tx Tx, offset, limit int) ([]*model.RedemptionCode, error)
	CountByKind(ctx context.Context, tx Tx) (map[model.CodeKind]int, error)
	CountRedemptions(ctx context.Context, tx Tx) (int, error)
}
