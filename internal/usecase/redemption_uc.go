// File: internal/usecase/redemption_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"franchise-subscription/internal/domain"
	"franchise-subscription/internal/domain/model"
	"franchise-subscription/internal/domain/ports/repository"
	ports "franchise-subscription/internal/domain/ports/usecase"
	"franchise-subscription/internal/infra/logging"
	"franchise-subscription/internal/infra/metrics"
)

// Compile-time check
var _ ports.Redeemer = (*RedemptionUseCase)(nil)

// RedemptionUseCase converts a voucher or promo code into an extension of the
// account's subscription window. Every call is a single atomic unit of work:
// the code claim and the subscription write commit together or not at all.
type RedemptionUseCase struct {
	codes repository.CodeRegistry
	subs  repository.SubscriptionRepository
	tm    repository.TransactionManager
	log   *zerolog.Logger
}

func NewRedemptionUseCase(
	codes repository.CodeRegistry,
	subs repository.SubscriptionRepository,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *RedemptionUseCase {
	return &RedemptionUseCase{codes: codes, subs: subs, tm: tm, log: logger}
}

// Redeem validates and claims `rawCode` for accountID.
//
// Rules:
//   - A voucher is globally single-use: the claim is a conditional update and
//     exactly one concurrent caller can win; the rest see ErrCodeAlreadyRedeemed.
//   - A promo is limited per-account by the redemption ledger and globally by
//     its quota; both checks re-run as conditional writes inside the tx, so the
//     pre-checks only serve to return the more specific error early.
//   - The extension bases off max(now, current endsAt) and adds whole calendar
//     days. Subscription writes are serialized per account via an advisory lock.
func (u *RedemptionUseCase) Redeem(ctx context.Context, accountID, rawCode string) (*ports.RedemptionReceipt, error) {
	defer logging.TraceDuration(u.log, "RedemptionUC.Redeem")()

	if accountID == "" {
		return nil, domain.ErrUnauthenticated
	}
	code := model.NormalizeCode(rawCode)
	if code == "" {
		return nil, domain.ErrCodeNotFound
	}

	var receipt *ports.RedemptionReceipt
	kind := "unknown"
	txOpts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	err := u.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		rc, err := u.codes.FindByCode(ctx, tx, code)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrCodeNotFound
			}
			return err
		}
		kind = string(rc.Kind)

		// Serialize subscription writes for this account before touching the
		// code row, so lock order is identical for every redemption path.
		if err := u.subs.LockAccount(ctx, tx, accountID); err != nil {
			return err
		}

		now := time.Now()
		switch rc.Kind {
		case model.CodeKindVoucher:
			if rc.IsUsed {
				return domain.ErrCodeAlreadyRedeemed
			}
			if err := u.codes.ClaimVoucher(ctx, tx, rc.ID, accountID, now); err != nil {
				return err
			}
		case model.CodeKindPromo:
			used, err := u.codes.HasRedemption(ctx, tx, rc.ID, accountID)
			if err != nil {
				return err
			}
			if used {
				return domain.ErrCodeRedeemedByAccount
			}
			if rc.Exhausted() {
				return domain.ErrCodeQuotaExhausted
			}
			rec := &model.RedemptionRecord{
				ID:         uuid.NewString(),
				CodeID:     rc.ID,
				AccountID:  accountID,
				RedeemedAt: now,
			}
			if err := u.codes.InsertRedemptionRecord(ctx, tx, rec); err != nil {
				return err
			}
			if err := u.codes.IncrementPromoUsage(ctx, tx, rc.ID); err != nil {
				return err
			}
		default:
			return domain.ErrInvalidArgument
		}

		sub, err := u.extendSubscription(ctx, tx, accountID, rc.PlanName, rc.DurationDays, now)
		if err != nil {
			return err
		}
		receipt = &ports.RedemptionReceipt{
			Code:      rc.Code,
			DaysAdded: rc.DurationDays,
			EndsAt:    sub.EndsAt,
		}
		return nil
	})
	if err != nil {
		metrics.IncRedemption(kind, outcomeLabel(err))
		u.log.Debug().Err(err).Str("account_id", accountID).Msg("redemption rejected")
		return nil, err
	}
	metrics.IncRedemption(kind, "success")

	u.log.Info().
		Str("account_id", accountID).
		Int("days_added", receipt.DaysAdded).
		Time("ends_at", receipt.EndsAt).
		Msg("code redeemed")
	return receipt, nil
}

// extendSubscription fetches the account's current subscription (locked for
// update) and pushes its window forward, or creates the first one. It has no
// validation of its own; the claim in Redeem already decided eligibility.
func (u *RedemptionUseCase) extendSubscription(ctx context.Context, tx repository.Tx, accountID, planName string, durationDays int, now time.Time) (*model.Subscription, error) {
	cur, err := u.subs.FindCurrentByAccount(ctx, tx, accountID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	if cur == nil {
		sub, err := model.NewSubscription(uuid.NewString(), accountID, planName, durationDays, now)
		if err != nil {
			return nil, err
		}
		if err := u.subs.Save(ctx, tx, sub); err != nil {
			return nil, err
		}
		return sub, nil
	}

	cur.Extend(durationDays, now)
	if err := u.subs.Save(ctx, tx, cur); err != nil {
		return nil, err
	}
	return cur, nil
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, domain.ErrCodeNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrCodeAlreadyRedeemed):
		return "already_redeemed"
	case errors.Is(err, domain.ErrCodeRedeemedByAccount):
		return "already_redeemed_by_account"
	case errors.Is(err, domain.ErrCodeQuotaExhausted):
		return "quota_exhausted"
	case errors.Is(err, domain.ErrUnauthenticated):
		return "unauthenticated"
	default:
		return "storage_failure"
	}
}
