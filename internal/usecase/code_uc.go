package usecase

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"franchise-subscription/internal/domain"
	"franchise-subscription/internal/domain/model"
	"franchise-subscription/internal/domain/ports/repository"
	"franchise-subscription/internal/infra/logging"
)

// Compile-time check
var _ CodeUseCase = (*codeUC)(nil)

// CodeUseCase exposes code administration used by the admin API and tooling.
// Creation lives here; redemption is RedemptionUseCase's job.
type CodeUseCase interface {
	CreateVoucher(ctx context.Context, planName string, durationDays int) (*model.RedemptionCode, error)
	CreatePromo(ctx context.Context, planName string, durationDays, quota int) (*model.RedemptionCode, error)
	Get(ctx context.Context, code string) (*model.RedemptionCode, error)
	List(ctx context.Context, offset, limit int) ([]*model.RedemptionCode, error)
}

type codeUC struct {
	codes repository.CodeRegistry
	log   *zerolog.Logger
}

func NewCodeUseCase(codes repository.CodeRegistry, logger *zerolog.Logger) *codeUC {
	return &codeUC{codes: codes, log: logger}
}

func (u *codeUC) CreateVoucher(ctx context.Context, planName string, durationDays int) (*model.RedemptionCode, error) {
	defer logging.TraceDuration(u.log, "CodeUC.CreateVoucher")()

	code, err := u.createUnique(ctx, func(raw string) (*model.RedemptionCode, error) {
		return model.NewVoucherCode(uuid.NewString(), raw, planName, durationDays)
	})
	if err != nil {
		return nil, err
	}
	u.log.Info().Str("code_id", code.ID).Int("days", durationDays).Msg("voucher created")
	return code, nil
}

func (u *codeUC) CreatePromo(ctx context.Context, planName string, durationDays, quota int) (*model.RedemptionCode, error) {
	defer logging.TraceDuration(u.log, "CodeUC.CreatePromo")()

	code, err := u.createUnique(ctx, func(raw string) (*model.RedemptionCode, error) {
		return model.NewPromoCode(uuid.NewString(), raw, planName, durationDays, quota)
	})
	if err != nil {
		return nil, err
	}
	u.log.Info().Str("code_id", code.ID).Int("days", durationDays).Int("quota", quota).Msg("promo created")
	return code, nil
}

// createUnique generates code strings until the insert does not collide.
// Collisions are vanishingly rare with a 12-character code; the bound exists
// so a broken registry cannot spin forever.
func (u *codeUC) createUnique(ctx context.Context, build func(raw string) (*model.RedemptionCode, error)) (*model.RedemptionCode, error) {
	for attempt := 0; attempt < 5; attempt++ {
		raw, err := generateCode()
		if err != nil {
			return nil, err
		}
		code, err := build(raw)
		if err != nil {
			return nil, err
		}
		err = u.codes.Save(ctx, repository.NoTX, code)
		if err == nil {
			return code, nil
		}
		if !errors.Is(err, domain.ErrAlreadyExists) {
			return nil, err
		}
	}
	return nil, domain.ErrOperationFailed
}

func (u *codeUC) Get(ctx context.Context, code string) (*model.RedemptionCode, error) {
	return u.codes.FindByCode(ctx, repository.NoTX, model.NormalizeCode(code))
}

func (u *codeUC) List(ctx context.Context, offset, limit int) ([]*model.RedemptionCode, error) {
	return u.codes.List(ctx, repository.NoTX, offset, limit)
}
