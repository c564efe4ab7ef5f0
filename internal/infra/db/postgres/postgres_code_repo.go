package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"franchise-subscription/internal/domain"
	"franchise-subscription/internal/domain/model"
	"franchise-subscription/internal/domain/ports/repository"
)

// Ensure implementation satisfies the interface.
var _ repository.CodeRegistry = (*codeRepo)(nil)

type codeRepo struct {
	pool *pgxpool.Pool
}

func NewCodeRepo(pool *pgxpool.Pool) *codeRepo {
	return &codeRepo{pool: pool}
}

const codeColumns = `id, code, kind, plan_name, duration_days, is_used, used_by_account_id, used_at, quota, used_count, created_at`

func (r *codeRepo) Save(ctx context.Context, tx repository.Tx, c *model.RedemptionCode) error {
	const q = `
INSERT INTO redemption_codes (id, code, kind, plan_name, duration_days, is_used, used_by_account_id, used_at, quota, used_count, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
`
	_, err := execSQL(ctx, r.pool, tx, q,
		c.ID, c.Code, c.Kind, c.PlanName, c.DurationDays, c.IsUsed, c.UsedByAccountID, c.UsedAt, c.Quota, c.UsedCount, c.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *codeRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.RedemptionCode, error) {
	q := `SELECT ` + codeColumns + ` FROM redemption_codes WHERE code = $1`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, code)
	if err != nil {
		return nil, err
	}

	c, err := scanCode(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return c, nil
}

// ClaimVoucher is the atomic claim step: the WHERE guard makes concurrent
// claims on the same voucher resolve to exactly one winner.
func (r *codeRepo) ClaimVoucher(ctx context.Context, tx repository.Tx, codeID, accountID string, at time.Time) error {
	const q = `
UPDATE redemption_codes
   SET is_used = TRUE, used_by_account_id = $2, used_at = $3
 WHERE id = $1 AND kind = 'voucher' AND is_used = FALSE;
`
	tag, err := execSQL(ctx, r.pool, tx, q, codeID, accountID, at)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCodeAlreadyRedeemed
	}
	return nil
}

// IncrementPromoUsage bumps used_count iff quota remains; the conditional
// UPDATE is what holds the quota boundary under concurrency.
func (r *codeRepo) IncrementPromoUsage(ctx context.Context, tx repository.Tx, codeID string) error {
	const q = `
UPDATE redemption_codes
   SET used_count = used_count + 1
 WHERE id = $1 AND kind = 'promo' AND used_count < quota;
`
	tag, err := execSQL(ctx, r.pool, tx, q, codeID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCodeQuotaExhausted
	}
	return nil
}

func (r *codeRepo) InsertRedemptionRecord(ctx context.Context, tx repository.Tx, rec *model.RedemptionRecord) error {
	const q = `
INSERT INTO redemption_records (id, code_id, account_id, redeemed_at)
VALUES ($1, $2, $3, $4);
`
	_, err := execSQL(ctx, r.pool, tx, q, rec.ID, rec.CodeID, rec.AccountID, rec.RedeemedAt)
	if err != nil {
		// The (code_id, account_id) unique index is the per-account rule.
		if isUniqueViolation(err) {
			return domain.ErrCodeRedeemedByAccount
		}
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *codeRepo) HasRedemption(ctx context.Context, tx repository.Tx, codeID, accountID string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM redemption_records WHERE code_id = $1 AND account_id = $2);`
	row, err := pickRow(ctx, r.pool, tx, q, codeID, accountID)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, domain.ErrReadDatabaseRow
	}
	return exists, nil
}

func (r *codeRepo) List(ctx context.Context, tx repository.Tx, offset, limit int) ([]*model.RedemptionCode, error) {
	const q = `
SELECT ` + codeColumns + `
  FROM redemption_codes
 ORDER BY created_at DESC
 OFFSET $1 LIMIT $2;
`
	rows, err := queryRows(ctx, r.pool, tx, q, offset, limit)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.RedemptionCode
	for rows.Next() {
		c, err := scanCode(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *codeRepo) CountByKind(ctx context.Context, tx repository.Tx) (map[model.CodeKind]int, error) {
	const q = `SELECT kind, COUNT(*) FROM redemption_codes GROUP BY kind;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	out := make(map[model.CodeKind]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out[model.CodeKind(kind)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *codeRepo) CountRedemptions(ctx context.Context, tx repository.Tx) (int, error) {
	// Vouchers count via their used flag, promos via the ledger.
	const q = `
SELECT (SELECT COUNT(*) FROM redemption_codes WHERE kind = 'voucher' AND is_used)
     + (SELECT COUNT(*) FROM redemption_records);
`
	row, err := pickRow(ctx, r.pool, tx, q)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}

func scanCode(row pgx.Row) (*model.RedemptionCode, error) {
	var c model.RedemptionCode
	err := row.Scan(
		&c.ID, &c.Code, &c.Kind, &c.PlanName, &c.DurationDays,
		&c.IsUsed, &c.UsedByAccountID, &c.UsedAt,
		&c.Quota, &c.UsedCount, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
