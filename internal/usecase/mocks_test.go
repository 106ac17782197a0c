//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"trading-signal-console/internal/domain"
	"trading-signal-console/internal/domain/model"
	"trading-signal-console/internal/domain/ports/repository"
)

// =============================
// In-memory repositories
// =============================

// memKeyRepo is a small in-memory key store used by unit tests. The
// conditional transitions mirror what the postgres repo enforces so the
// concurrency tests are meaningful.
type memKeyRepo struct {
	mu     sync.Mutex
	nextID int64
	store  map[int64]*model.ActivationKey

	CreateBatchFunc  func(ctx context.Context, tx repository.Tx, keys []*model.ActivationKey) error
	SecretExistsFunc func(ctx context.Context, tx repository.Tx, secret string) (bool, error)
	MarkUsedFunc     func(ctx context.Context, tx repository.Tx, id, principalID int64, at time.Time) error
}

var _ repository.ActivationKeyRepository = (*memKeyRepo)(nil)

func newMemKeyRepo() *memKeyRepo {
	return &memKeyRepo{nextID: 1, store: make(map[int64]*model.ActivationKey)}
}

func (m *memKeyRepo) CreateBatch(ctx context.Context, tx repository.Tx, keys []*model.ActivationKey) error {
	if m.CreateBatchFunc != nil {
		return m.CreateBatchFunc(ctx, tx, keys)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		k.ID = m.nextID
		m.nextID++
		cp := *k
		m.store[k.ID] = &cp
	}
	return nil
}

func (m *memKeyRepo) FindByID(ctx context.Context, tx repository.Tx, id int64) (*model.ActivationKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *k
	return &cp, nil
}

func (m *memKeyRepo) FindBySecret(ctx context.Context, tx repository.Tx, secret string) (*model.ActivationKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range m.store {
		if k.Secret == secret {
			cp := *k
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memKeyRepo) List(ctx context.Context, tx repository.Tx, limit int) ([]*model.ActivationKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.ActivationKey, 0, len(m.store))
	for _, k := range m.store {
		cp := *k
		out = append(out, &cp)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memKeyRepo) SecretExists(ctx context.Context, tx repository.Tx, secret string) (bool, error) {
	if m.SecretExistsFunc != nil {
		return m.SecretExistsFunc(ctx, tx, secret)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range m.store {
		if k.Secret == secret {
			return true, nil
		}
	}
	return false, nil
}

func (m *memKeyRepo) MarkUsed(ctx context.Context, tx repository.Tx, id, principalID int64, at time.Time) error {
	if m.MarkUsedFunc != nil {
		return m.MarkUsedFunc(ctx, tx, id, principalID, at)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	if k.UsedAt != nil {
		return domain.ErrKeyAlreadyConsumed
	}
	if k.RevokedAt != nil {
		return domain.ErrKeyRevoked
	}
	t := at
	pid := principalID
	k.UsedAt = &t
	k.UsedByPrincipalID = &pid
	return nil
}

func (m *memKeyRepo) Revoke(ctx context.Context, tx repository.Tx, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	if k.UsedAt != nil {
		return domain.ErrKeyAlreadyConsumed
	}
	if k.RevokedAt != nil {
		return domain.ErrAlreadyRevoked
	}
	t := at
	k.RevokedAt = &t
	return nil
}

// put seeds a key directly, bypassing the use cases.
func (m *memKeyRepo) put(k *model.ActivationKey) *model.ActivationKey {
	m.mu.Lock()
	defer m.mu.Unlock()
	if k.ID == 0 {
		k.ID = m.nextID
		m.nextID++
	}
	cp := *k
	m.store[k.ID] = &cp
	return k
}

// ---- Group repo ----

type memGroupRepo struct {
	mu      sync.Mutex
	nextID  int64
	store   map[int64]*model.Group
	members map[int64]int // groupID -> member count

	CountMembersFunc func(ctx context.Context, tx repository.Tx, id int64) (int, error)
}

var _ repository.GroupRepository = (*memGroupRepo)(nil)

func newMemGroupRepo() *memGroupRepo {
	return &memGroupRepo{nextID: 1, store: make(map[int64]*model.Group), members: make(map[int64]int)}
}

func (m *memGroupRepo) Create(ctx context.Context, tx repository.Tx, g *model.Group) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.store {
		if existing.Name == g.Name {
			return domain.ErrAlreadyExists
		}
	}
	g.ID = m.nextID
	m.nextID++
	cp := *g
	m.store[g.ID] = &cp
	return nil
}

func (m *memGroupRepo) FindByID(ctx context.Context, tx repository.Tx, id int64) (*model.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *g
	cp.AllowedTabs = append([]model.Tab(nil), g.AllowedTabs...)
	return &cp, nil
}

func (m *memGroupRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Group, 0, len(m.store))
	for _, g := range m.store {
		cp := *g
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memGroupRepo) SetAllowedTabs(ctx context.Context, tx repository.Tx, id int64, tabs []model.Tab) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	g.SetAllowedTabs(tabs)
	return nil
}

func (m *memGroupRepo) CountMembers(ctx context.Context, tx repository.Tx, id int64) (int, error) {
	if m.CountMembersFunc != nil {
		return m.CountMembersFunc(ctx, tx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.members[id], nil
}

func (m *memGroupRepo) Delete(ctx context.Context, tx repository.Tx, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.store, id)
	return nil
}

// ---- Principal repo ----

type memPrincipalRepo struct {
	mu    sync.Mutex
	store map[int64]*model.Principal

	FindByIDFunc func(ctx context.Context, tx repository.Tx, id int64) (*model.Principal, error)
	SaveFunc     func(ctx context.Context, tx repository.Tx, p *model.Principal) error
}

var _ repository.PrincipalRepository = (*memPrincipalRepo)(nil)

func newMemPrincipalRepo() *memPrincipalRepo {
	return &memPrincipalRepo{store: make(map[int64]*model.Principal)}
}

func (m *memPrincipalRepo) FindByID(ctx context.Context, tx repository.Tx, id int64) (*model.Principal, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, tx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPrincipalRepo) Save(ctx context.Context, tx repository.Tx, p *model.Principal) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

// ---- Grant audit repo ----

type memGrantAuditRepo struct {
	mu    sync.Mutex
	saved []*model.GrantAudit
}

var _ repository.GrantAuditRepository = (*memGrantAuditRepo)(nil)

func newMemGrantAuditRepo() *memGrantAuditRepo {
	return &memGrantAuditRepo{}
}

func (m *memGrantAuditRepo) Save(ctx context.Context, tx repository.Tx, a *model.GrantAudit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.saved = append(m.saved, &cp)
	return nil
}

func (m *memGrantAuditRepo) List(ctx context.Context, tx repository.Tx, limit int) ([]*model.GrantAudit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.GrantAudit, 0, len(m.saved))
	for i := len(m.saved) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *m.saved[i]
		out = append(out, &cp)
	}
	return out, nil
}

// =============================
// Infra helpers for tests
// =============================

// ---- Mock TransactionManager ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx runs the function immediately without a real transaction. Tests
// that need to observe or fail the transaction assign WithTxFunc.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// ---- In-memory Locker ----

type MockLocker struct {
	mu    sync.Mutex
	held  map[string]string
	ErrOn map[string]error
}

func NewMockLocker() *MockLocker {
	return &MockLocker{held: map[string]string{}, ErrOn: map[string]error{}}
}

func (l *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err, bad := l.ErrOn[key]; bad {
		return "", err
	}
	if tok, ok := l.held[key]; ok && tok != "" {
		return "", errors.New("locked")
	}
	tok := uuid.NewString()
	l.held[key] = tok
	return tok, nil
}

func (l *MockLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
		return nil
	}
	return errors.New("unlock token mismatch")
}

// newTestLogger creates a silent zerolog.Logger so test output stays clean.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}
