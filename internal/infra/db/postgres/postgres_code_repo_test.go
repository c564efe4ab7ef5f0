//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"franchise-subscription/internal/domain"
	"franchise-subscription/internal/domain/model"
)

func TestCodeRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	ctx := context.Background()
	repo := NewCodeRepo(testPool)

	t.Run("should save and find a voucher by its code", func(t *testing.T) {
		cleanup(t)

		voucher, _ := model.NewVoucherCode(uuid.NewString(), "SAVE-FIND-0001", "Pro", 30)
		if err := repo.Save(ctx, nil, voucher); err != nil {
			t.Fatalf("Failed to save voucher: %v", err)
		}

		found, err := repo.FindByCode(ctx, nil, "SAVE-FIND-0001")
		if err != nil {
			t.Fatalf("FindByCode failed: %v", err)
		}
		if found.ID != voucher.ID || found.Kind != model.CodeKindVoucher {
			t.Errorf("found wrong code: %+v", found)
		}
		if found.IsUsed {
			t.Error("expected a fresh voucher to be unused")
		}
	})

	t.Run("should reject a duplicate code string", func(t *testing.T) {
		cleanup(t)

		first, _ := model.NewVoucherCode(uuid.NewString(), "DUPL-ICAT-0001", "Pro", 30)
		if err := repo.Save(ctx, nil, first); err != nil {
			t.Fatalf("first save: %v", err)
		}
		second, _ := model.NewVoucherCode(uuid.NewString(), "DUPL-ICAT-0001", "Pro", 30)
		if err := repo.Save(ctx, nil, second); !errors.Is(err, domain.ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
	})

	t.Run("should return ErrNotFound for an unknown code", func(t *testing.T) {
		cleanup(t)
		if _, err := repo.FindByCode(ctx, nil, "ZZZZ-ZZZZ-ZZZZ"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("ClaimVoucher lets exactly one claim through", func(t *testing.T) {
		cleanup(t)

		voucher, _ := model.NewVoucherCode(uuid.NewString(), "ONEW-INNN-0001", "Pro", 30)
		if err := repo.Save(ctx, nil, voucher); err != nil {
			t.Fatalf("save: %v", err)
		}

		if err := repo.ClaimVoucher(ctx, nil, voucher.ID, "acct-1", time.Now()); err != nil {
			t.Fatalf("first claim should win: %v", err)
		}
		if err := repo.ClaimVoucher(ctx, nil, voucher.ID, "acct-2", time.Now()); !errors.Is(err, domain.ErrCodeAlreadyRedeemed) {
			t.Fatalf("expected ErrCodeAlreadyRedeemed on second claim, got %v", err)
		}

		// The winner's attribution must be persisted.
		found, err := repo.FindByCode(ctx, nil, "ONEW-INNN-0001")
		if err != nil {
			t.Fatalf("find after claim: %v", err)
		}
		if !found.IsUsed || found.UsedByAccountID == nil || *found.UsedByAccountID != "acct-1" {
			t.Errorf("claim state not persisted: %+v", found)
		}
	})

	t.Run("IncrementPromoUsage stops at the quota", func(t *testing.T) {
		cleanup(t)

		promo, _ := model.NewPromoCode(uuid.NewString(), "QUOT-AAAA-0001", "Starter", 7, 2)
		if err := repo.Save(ctx, nil, promo); err != nil {
			t.Fatalf("save: %v", err)
		}

		if err := repo.IncrementPromoUsage(ctx, nil, promo.ID); err != nil {
			t.Fatalf("first increment: %v", err)
		}
		if err := repo.IncrementPromoUsage(ctx, nil, promo.ID); err != nil {
			t.Fatalf("second increment: %v", err)
		}
		if err := repo.IncrementPromoUsage(ctx, nil, promo.ID); !errors.Is(err, domain.ErrCodeQuotaExhausted) {
			t.Fatalf("expected ErrCodeQuotaExhausted, got %v", err)
		}

		found, _ := repo.FindByCode(ctx, nil, "QUOT-AAAA-0001")
		if found.UsedCount != 2 {
			t.Errorf("expected used_count 2, got %d", found.UsedCount)
		}
	})

	t.Run("the redemption ledger is unique per code and account", func(t *testing.T) {
		cleanup(t)

		promo, _ := model.NewPromoCode(uuid.NewString(), "LEDG-ERRR-0001", "Starter", 7, 10)
		if err := repo.Save(ctx, nil, promo); err != nil {
			t.Fatalf("save: %v", err)
		}

		rec := &model.RedemptionRecord{ID: uuid.NewString(), CodeID: promo.ID, AccountID: "acct-1", RedeemedAt: time.Now()}
		if err := repo.InsertRedemptionRecord(ctx, nil, rec); err != nil {
			t.Fatalf("first insert: %v", err)
		}

		dup := &model.RedemptionRecord{ID: uuid.NewString(), CodeID: promo.ID, AccountID: "acct-1", RedeemedAt: time.Now()}
		if err := repo.InsertRedemptionRecord(ctx, nil, dup); !errors.Is(err, domain.ErrCodeRedeemedByAccount) {
			t.Fatalf("expected ErrCodeRedeemedByAccount, got %v", err)
		}

		has, err := repo.HasRedemption(ctx, nil, promo.ID, "acct-1")
		if err != nil {
			t.Fatalf("HasRedemption: %v", err)
		}
		if !has {
			t.Error("expected the ledger to hold the pair")
		}
		has, _ = repo.HasRedemption(ctx, nil, promo.ID, "acct-2")
		if has {
			t.Error("expected no ledger row for another account")
		}
	})

	t.Run("counts reflect kinds and redemptions", func(t *testing.T) {
		cleanup(t)

		voucher, _ := model.NewVoucherCode(uuid.NewString(), "CNTS-AAAA-0001", "Pro", 30)
		promo, _ := model.NewPromoCode(uuid.NewString(), "CNTS-BBBB-0001", "Starter", 7, 5)
		for _, c := range []*model.RedemptionCode{voucher, promo} {
			if err := repo.Save(ctx, nil, c); err != nil {
				t.Fatalf("save: %v", err)
			}
		}
		if err := repo.ClaimVoucher(ctx, nil, voucher.ID, "acct-1", time.Now()); err != nil {
			t.Fatalf("claim: %v", err)
		}
		rec := &model.RedemptionRecord{ID: uuid.NewString(), CodeID: promo.ID, AccountID: "acct-2", RedeemedAt: time.Now()}
		if err := repo.InsertRedemptionRecord(ctx, nil, rec); err != nil {
			t.Fatalf("insert record: %v", err)
		}

		byKind, err := repo.CountByKind(ctx, nil)
		if err != nil {
			t.Fatalf("CountByKind: %v", err)
		}
		if byKind[model.CodeKindVoucher] != 1 || byKind[model.CodeKindPromo] != 1 {
			t.Errorf("unexpected kind counts: %v", byKind)
		}

		redemptions, err := repo.CountRedemptions(ctx, nil)
		if err != nil {
			t.Fatalf("CountRedemptions: %v", err)
		}
		if redemptions != 2 {
			t.Errorf("expected 2 redemptions (1 voucher + 1 ledger row), got %d", redemptions)
		}
	})

	t.Run("List pages newest first", func(t *testing.T) {
		cleanup(t)

		for i, code := range []string{"PAGE-AAAA-0001", "PAGE-BBBB-0002", "PAGE-CCCC-0003"} {
			c, _ := model.NewVoucherCode(uuid.NewString(), code, "Pro", 30)
			c.CreatedAt = time.Now().Add(time.Duration(i) * time.Second)
			if err := repo.Save(ctx, nil, c); err != nil {
				t.Fatalf("save: %v", err)
			}
		}

		page, err := repo.List(ctx, nil, 0, 2)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(page) != 2 {
			t.Fatalf("expected 2 codes, got %d", len(page))
		}
		if page[0].Code != "PAGE-CCCC-0003" {
			t.Errorf("expected newest first, got %s", page[0].Code)
		}
	})
}
