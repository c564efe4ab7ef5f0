//go:build !integration

package usecase_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"franchise-subscription/internal/domain"
	"franchise-subscription/internal/domain/model"
	"franchise-subscription/internal/domain/ports/repository"
)

var (
	_ repository.TransactionManager     = (*memTxManager)(nil)
	_ repository.CodeRegistry           = (*memCodeRegistry)(nil)
	_ repository.SubscriptionRepository = (*memSubRepo)(nil)
	_ repository.AccountRepository      = (*memAccountRepo)(nil)
)

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

// memTx stands in for a database transaction handle. Release funcs queued by
// repositories (advisory locks) run when the transaction ends.
type memTx struct {
	mu       sync.Mutex
	releases []func()
}

func (t *memTx) onDone(f func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.releases = append(t.releases, f)
}

func (t *memTx) done() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := len(t.releases) - 1; i >= 0; i-- {
		t.releases[i]()
	}
	t.releases = nil
}

// memTxManager runs the callback with a memTx handle. There is no rollback;
// tests assert on claim outcomes, not on partial-write cleanup.
type memTxManager struct{}

func (m *memTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	tx := &memTx{}
	defer tx.done()
	return fn(ctx, tx)
}

// memCodeRegistry is an in-memory CodeRegistry. The claim methods hold the
// mutex across check-and-set, matching the atomicity of the SQL conditional
// updates they stand in for.
type memCodeRegistry struct {
	mu      sync.RWMutex
	byCode  map[string]*model.RedemptionCode
	byID    map[string]*model.RedemptionCode
	ledger  map[string]map[string]bool // codeID -> accountID -> redeemed
	saveErr error                      // used by tests to simulate save failures
}

func newMemCodeRegistry() *memCodeRegistry {
	return &memCodeRegistry{
		byCode: make(map[string]*model.RedemptionCode),
		byID:   make(map[string]*model.RedemptionCode),
		ledger: make(map[string]map[string]bool),
	}
}

func (m *memCodeRegistry) Save(ctx context.Context, _ repository.Tx, c *model.RedemptionCode) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byCode[c.Code]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *c
	m.byCode[cp.Code] = &cp
	m.byID[cp.ID] = &cp
	return nil
}

func (m *memCodeRegistry) FindByCode(ctx context.Context, _ repository.Tx, code string) (*model.RedemptionCode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.byCode[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCodeRegistry) ClaimVoucher(ctx context.Context, _ repository.Tx, codeID, accountID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[codeID]
	if !ok || c.Kind != model.CodeKindVoucher || c.IsUsed {
		return domain.ErrCodeAlreadyRedeemed
	}
	c.IsUsed = true
	c.UsedByAccountID = &accountID
	c.UsedAt = &at
	return nil
}

func (m *memCodeRegistry) IncrementPromoUsage(ctx context.Context, _ repository.Tx, codeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[codeID]
	if !ok || c.Kind != model.CodeKindPromo || c.UsedCount >= c.Quota {
		return domain.ErrCodeQuotaExhausted
	}
	c.UsedCount++
	return nil
}

func (m *memCodeRegistry) InsertRedemptionRecord(ctx context.Context, _ repository.Tx, rec *model.RedemptionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	accounts, ok := m.ledger[rec.CodeID]
	if !ok {
		accounts = make(map[string]bool)
		m.ledger[rec.CodeID] = accounts
	}
	if accounts[rec.AccountID] {
		return domain.ErrCodeRedeemedByAccount
	}
	accounts[rec.AccountID] = true
	return nil
}

func (m *memCodeRegistry) HasRedemption(ctx context.Context, _ repository.Tx, codeID, accountID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ledger[codeID][accountID], nil
}

func (m *memCodeRegistry) List(ctx context.Context, _ repository.Tx, offset, limit int) ([]*model.RedemptionCode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := make([]*model.RedemptionCode, 0, len(m.byCode))
	for _, c := range m.byCode {
		cp := *c
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (m *memCodeRegistry) CountByKind(ctx context.Context, _ repository.Tx) (map[model.CodeKind]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[model.CodeKind]int)
	for _, c := range m.byCode {
		out[c.Kind]++
	}
	return out, nil
}

func (m *memCodeRegistry) CountRedemptions(ctx context.Context, _ repository.Tx) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, c := range m.byCode {
		if c.Kind == model.CodeKindVoucher && c.IsUsed {
			n++
		}
	}
	for _, accounts := range m.ledger {
		n += len(accounts)
	}
	return n, nil
}

// memSubRepo provides in-memory subscriptions and emulates the per-account
// advisory lock: LockAccount holds a per-account mutex until the memTx ends.
type memSubRepo struct {
	mu    sync.RWMutex
	subs  map[string]*model.Subscription // map by subscription ID
	locks map[string]*sync.Mutex         // per-account advisory locks
}

func newMemSubRepo() *memSubRepo {
	return &memSubRepo{
		subs:  make(map[string]*model.Subscription),
		locks: make(map[string]*sync.Mutex),
	}
}

func (m *memSubRepo) Save(ctx context.Context, _ repository.Tx, sub *model.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *sub
	m.subs[sub.ID] = &cp
	return nil
}

func (m *memSubRepo) FindCurrentByAccount(ctx context.Context, _ repository.Tx, accountID string) (*model.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var cur *model.Subscription
	for _, s := range m.subs {
		if s.AccountID != accountID {
			continue
		}
		if cur == nil || s.EndsAt.After(cur.EndsAt) ||
			(s.EndsAt.Equal(cur.EndsAt) && s.StartsAt.After(cur.StartsAt)) {
			cur = s
		}
	}
	if cur == nil {
		return nil, domain.ErrNotFound
	}
	cp := *cur
	return &cp, nil
}

func (m *memSubRepo) ListByAccount(ctx context.Context, _ repository.Tx, accountID string) ([]*model.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Subscription
	for _, s := range m.subs {
		if s.AccountID == accountID {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EndsAt.Equal(out[j].EndsAt) {
			return out[i].EndsAt.After(out[j].EndsAt)
		}
		return out[i].StartsAt.After(out[j].StartsAt)
	})
	return out, nil
}

func (m *memSubRepo) LockAccount(ctx context.Context, tx repository.Tx, accountID string) error {
	mt, ok := tx.(*memTx)
	if !ok {
		return domain.ErrInvalidExecContext
	}
	m.mu.Lock()
	lk, found := m.locks[accountID]
	if !found {
		lk = &sync.Mutex{}
		m.locks[accountID] = lk
	}
	m.mu.Unlock()
	lk.Lock()
	mt.onDone(lk.Unlock)
	return nil
}

func (m *memSubRepo) MarkExpired(ctx context.Context, _ repository.Tx, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.subs {
		if s.Status == model.SubscriptionStatusActive && s.EndsAt.Before(now) {
			s.Status = model.SubscriptionStatusExpired
			n++
		}
	}
	return n, nil
}

func (m *memSubRepo) CountByStatus(ctx context.Context, _ repository.Tx) (map[model.SubscriptionStatus]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[model.SubscriptionStatus]int)
	for _, s := range m.subs {
		out[s.Status]++
	}
	return out, nil
}

// memAccountRepo is a small in-memory AccountRepository used by unit tests.
type memAccountRepo struct {
	mu      sync.RWMutex
	store   map[string]*model.Account // map by ID
	saveErr error
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{store: make(map[string]*model.Account)}
}

func (m *memAccountRepo) Save(ctx context.Context, _ repository.Tx, a *model.Account) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.store[a.ID] = &cp
	return nil
}

func (m *memAccountRepo) FindByID(ctx context.Context, _ repository.Tx, id string) (*model.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memAccountRepo) FindByEmail(ctx context.Context, _ repository.Tx, email string) (*model.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.store {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memAccountRepo) CountAccounts(ctx context.Context, _ repository.Tx) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store), nil
}
