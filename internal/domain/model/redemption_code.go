package model

import (
	"strings"
	"time"

	"franchise-subscription/internal/domain"
)

type CodeKind string

const (
	// CodeKindVoucher is redeemable exactly once, by exactly one account, globally.
	CodeKindVoucher CodeKind = "voucher"
	// CodeKindPromo is redeemable by many distinct accounts up to a fixed quota,
	// at most once per account.
	CodeKindPromo CodeKind = "promo"
)

// RedemptionCode is a voucher or promo code that extends a subscription window
// by DurationDays when redeemed.
type RedemptionCode struct {
	ID           string
	Code         string
	Kind         CodeKind
	PlanName     string
	DurationDays int
	CreatedAt    time.Time

	// Voucher state
	IsUsed          bool
	UsedByAccountID *string    // Pointer to allow for NULL
	UsedAt          *time.Time // Pointer to allow for NULL

	// Promo state
	Quota     int
	UsedCount int
}

// NormalizeCode canonicalizes user-supplied code input. Codes are stored
// uppercase; lookups trim surrounding whitespace and case-fold so that
// "abcd-1234 " and "ABCD-1234" name the same code.
func NormalizeCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// NewVoucherCode creates an unredeemed single-use voucher.
func NewVoucherCode(id, code, planName string, durationDays int) (*RedemptionCode, error) {
	if id == "" || code == "" || durationDays <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &RedemptionCode{
		ID:           id,
		Code:         NormalizeCode(code),
		Kind:         CodeKindVoucher,
		PlanName:     planName,
		DurationDays: durationDays,
		CreatedAt:    time.Now(),
	}, nil
}

// NewPromoCode creates a quota-limited promo code with no redemptions yet.
func NewPromoCode(id, code, planName string, durationDays, quota int) (*RedemptionCode, error) {
	if id == "" || code == "" || durationDays <= 0 || quota <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &RedemptionCode{
		ID:           id,
		Code:         NormalizeCode(code),
		Kind:         CodeKindPromo,
		PlanName:     planName,
		DurationDays: durationDays,
		Quota:        quota,
		CreatedAt:    time.Now(),
	}, nil
}

// Exhausted reports whether a promo code has reached its redemption limit.
// Always false for vouchers; voucher availability is IsUsed.
func (c *RedemptionCode) Exhausted() bool {
	return c.Kind == CodeKindPromo && c.UsedCount >= c.Quota
}

// RedemptionRecord is the promo-only ledger entry. The (CodeID, AccountID)
// pair is unique: an account may redeem a given promo code at most once,
// independent of the global quota. Records are never mutated or deleted.
type RedemptionRecord struct {
	ID         string
	CodeID     string
	AccountID  string
	RedeemedAt time.Time
}
