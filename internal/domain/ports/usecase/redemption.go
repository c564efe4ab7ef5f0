package usecase

import (
	"context"
	"time"
)

// RedemptionReceipt confirms a successful redemption.
type RedemptionReceipt struct {
	Code      string
	DaysAdded int
	EndsAt    time.Time
}

// Redeemer defines the redemption operation needed by external components
// such as HTTP handlers.
type Redeemer interface {
	Redeem(ctx context.Context, accountID, code string) (*RedemptionReceipt, error)
}
