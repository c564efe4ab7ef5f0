//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"franchise-subscription/internal/domain"
	"franchise-subscription/internal/domain/model"
	"franchise-subscription/internal/usecase"
)

func seedSub(t *testing.T, subs *memSubRepo, id, accountID string, startsIn, endsIn int, status model.SubscriptionStatus) *model.Subscription {
	t.Helper()
	now := time.Now()
	s := &model.Subscription{
		ID:        id,
		AccountID: accountID,
		PlanName:  "Pro",
		StartsAt:  now.AddDate(0, 0, startsIn),
		EndsAt:    now.AddDate(0, 0, endsIn),
		Status:    status,
		CreatedAt: now,
	}
	if err := subs.Save(context.Background(), nil, s); err != nil {
		t.Fatalf("seed subscription: %v", err)
	}
	return s
}

func TestSubscriptionUseCase_GetCurrent(t *testing.T) {
	ctx := context.Background()

	t.Run("should return the row with the latest end", func(t *testing.T) {
		subs := newMemSubRepo()
		uc := usecase.NewSubscriptionUseCase(subs, newTestLogger())

		seedSub(t, subs, "sub-old", "acct-1", -60, -30, model.SubscriptionStatusExpired)
		want := seedSub(t, subs, "sub-new", "acct-1", -10, 20, model.SubscriptionStatusActive)

		got, err := uc.GetCurrent(ctx, "acct-1")
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if got.ID != want.ID {
			t.Errorf("expected %s, got %s", want.ID, got.ID)
		}
	})

	t.Run("should return ErrNotFound for an account with no rows", func(t *testing.T) {
		uc := usecase.NewSubscriptionUseCase(newMemSubRepo(), newTestLogger())
		if _, err := uc.GetCurrent(ctx, "acct-unknown"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestSubscriptionUseCase_ExpireDue(t *testing.T) {
	ctx := context.Background()

	t.Run("should flip only past-due active rows", func(t *testing.T) {
		subs := newMemSubRepo()
		uc := usecase.NewSubscriptionUseCase(subs, newTestLogger())

		seedSub(t, subs, "sub-due", "acct-1", -40, -1, model.SubscriptionStatusActive)
		seedSub(t, subs, "sub-live", "acct-2", -10, 20, model.SubscriptionStatusActive)
		seedSub(t, subs, "sub-done", "acct-3", -90, -60, model.SubscriptionStatusExpired)

		n, err := uc.ExpireDue(ctx)
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if n != 1 {
			t.Errorf("expected 1 row swept, got %d", n)
		}

		counts, err := uc.CountByStatus(ctx)
		if err != nil {
			t.Fatalf("count: %v", err)
		}
		if counts[model.SubscriptionStatusActive] != 1 || counts[model.SubscriptionStatusExpired] != 2 {
			t.Errorf("unexpected status counts: %v", counts)
		}
	})

	t.Run("a second sweep touches nothing", func(t *testing.T) {
		subs := newMemSubRepo()
		uc := usecase.NewSubscriptionUseCase(subs, newTestLogger())
		seedSub(t, subs, "sub-due", "acct-1", -40, -1, model.SubscriptionStatusActive)

		if _, err := uc.ExpireDue(ctx); err != nil {
			t.Fatalf("first sweep: %v", err)
		}
		n, err := uc.ExpireDue(ctx)
		if err != nil {
			t.Fatalf("second sweep: %v", err)
		}
		if n != 0 {
			t.Errorf("expected idempotent sweep, got %d rows", n)
		}
	})
}

func TestSubscriptionUseCase_ListByAccount(t *testing.T) {
	ctx := context.Background()
	subs := newMemSubRepo()
	uc := usecase.NewSubscriptionUseCase(subs, newTestLogger())

	seedSub(t, subs, "sub-1", "acct-1", -60, -30, model.SubscriptionStatusExpired)
	seedSub(t, subs, "sub-2", "acct-1", -10, 20, model.SubscriptionStatusActive)
	seedSub(t, subs, "sub-other", "acct-2", -10, 20, model.SubscriptionStatusActive)

	got, err := uc.ListByAccount(ctx, "acct-1")
	if err != nil {
		t.Fatalf("expected no error, but got: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	// Newest window first.
	if got[0].ID != "sub-2" || got[1].ID != "sub-1" {
		t.Errorf("unexpected order: %s, %s", got[0].ID, got[1].ID)
	}
}
