package model

import (
	"time"

	"github.com/google/uuid"

	"franchise-subscription/internal/domain"
)

// Account is a marketplace account. Authentication lives in the identity
// provider; the engine only needs a stable account row to hang subscriptions
// and redemption records off.
type Account struct {
	ID           string
	Email        string
	DisplayName  string
	RegisteredAt time.Time
	LastActiveAt time.Time
}

func NewAccount(id, email, displayName string) (*Account, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if email == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Account{
		ID:           id,
		Email:        email,
		DisplayName:  displayName,
		RegisteredAt: now,
		LastActiveAt: now,
	}, nil
}

func (a *Account) IsZero() bool { return a == nil || a.ID == "" }
func (a *Account) Touch()       { a.LastActiveAt = time.Now() }
