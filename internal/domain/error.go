package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrAlreadyExists   = errors.New("entity already exists")
	ErrInvalidArgument = errors.New("invalid argument")

	// Redemption errors
	ErrUnauthenticated       = errors.New("no authenticated account")
	ErrCodeNotFound          = errors.New("redemption code not found")
	ErrCodeAlreadyRedeemed   = errors.New("voucher already redeemed")
	ErrCodeRedeemedByAccount = errors.New("promo code already redeemed by this account")
	ErrCodeQuotaExhausted    = errors.New("promo code quota exhausted")

	// Infrastructure errors (storage failures are transient and safe to retry)
	ErrOperationFailed    = errors.New("storage operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid execution context")
)
