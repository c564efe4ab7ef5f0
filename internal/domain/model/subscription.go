package model

import (
	"time"

	"franchise-subscription/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive  SubscriptionStatus = "active"
	SubscriptionStatusExpired SubscriptionStatus = "expired"
)

// Subscription is one entitlement window for an account. An account may have
// multiple historical rows; the current one is the row with the latest EndsAt
// (tie-break: latest StartsAt). Status is denormalized; true expiry is always
// computed from EndsAt vs now.
type Subscription struct {
	ID        string // UUID
	AccountID string // UUID of account
	PlanName  string
	StartsAt  time.Time
	EndsAt    time.Time
	Status    SubscriptionStatus
	CreatedAt time.Time
}

// NewSubscription creates an active subscription starting now and ending
// durationDays calendar days later.
func NewSubscription(id, accountID, planName string, durationDays int, now time.Time) (*Subscription, error) {
	if id == "" || accountID == "" || durationDays <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &Subscription{
		ID:        id,
		AccountID: accountID,
		PlanName:  planName,
		StartsAt:  now,
		EndsAt:    now.AddDate(0, 0, durationDays),
		Status:    SubscriptionStatusActive,
		CreatedAt: now,
	}, nil
}

// IsActive reports whether the window covers the given instant.
func (s *Subscription) IsActive(now time.Time) bool {
	return s.EndsAt.After(now)
}

// ExtensionBase returns the instant a new extension is added onto: the
// current EndsAt while the window is still in the future, otherwise now.
// An expired window never contributes stale time to a new redemption.
func (s *Subscription) ExtensionBase(now time.Time) time.Time {
	if s != nil && s.EndsAt.After(now) {
		return s.EndsAt
	}
	return now
}

// Extend pushes EndsAt forward by durationDays calendar days from the
// extension base and reactivates the row.
func (s *Subscription) Extend(durationDays int, now time.Time) {
	s.EndsAt = s.ExtensionBase(now).AddDate(0, 0, durationDays)
	s.Status = SubscriptionStatusActive
}
