//go:build !integration

package web

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"trading-signal-console/internal/domain"
	"trading-signal-console/internal/domain/model"
)

// --- Mock use cases ---

type mockIssuerUC struct {
	GenerateFunc func(ctx context.Context, durationDays, count int, note string) ([]*model.ActivationKey, error)
}

func (m *mockIssuerUC) Generate(ctx context.Context, durationDays, count int, note string) ([]*model.ActivationKey, error) {
	return m.GenerateFunc(ctx, durationDays, count, note)
}

type mockKeyAdminUC struct {
	GetFunc             func(ctx context.Context, id int64) (*model.ActivationKey, error)
	ListFunc            func(ctx context.Context, limit int) ([]*model.ActivationKey, error)
	RevokeFunc          func(ctx context.Context, id int64) error
	ListGrantAuditsFunc func(ctx context.Context, limit int) ([]*model.GrantAudit, error)
}

func (m *mockKeyAdminUC) Get(ctx context.Context, id int64) (*model.ActivationKey, error) {
	return m.GetFunc(ctx, id)
}

func (m *mockKeyAdminUC) List(ctx context.Context, limit int) ([]*model.ActivationKey, error) {
	return m.ListFunc(ctx, limit)
}

func (m *mockKeyAdminUC) Revoke(ctx context.Context, id int64) error {
	return m.RevokeFunc(ctx, id)
}

func (m *mockKeyAdminUC) ListGrantAudits(ctx context.Context, limit int) ([]*model.GrantAudit, error) {
	return m.ListGrantAuditsFunc(ctx, limit)
}

type mockRedeemerUC struct {
	RedeemFunc func(ctx context.Context, secret string, principalID int64) (int, error)
}

func (m *mockRedeemerUC) Redeem(ctx context.Context, secret string, principalID int64) (int, error) {
	return m.RedeemFunc(ctx, secret, principalID)
}

type mockGroupUC struct {
	CreateFunc          func(ctx context.Context, name string, tabs []string) (*model.Group, error)
	ListFunc            func(ctx context.Context) ([]*model.Group, error)
	SetAllowedTabsFunc  func(ctx context.Context, groupID int64, tabs []string) error
	DeleteFunc          func(ctx context.Context, groupID int64) error
	AssignPrincipalFunc func(ctx context.Context, principalID, groupID int64) error
}

func (m *mockGroupUC) Create(ctx context.Context, name string, tabs []string) (*model.Group, error) {
	return m.CreateFunc(ctx, name, tabs)
}

func (m *mockGroupUC) List(ctx context.Context) ([]*model.Group, error) {
	return m.ListFunc(ctx)
}

func (m *mockGroupUC) SetAllowedTabs(ctx context.Context, groupID int64, tabs []string) error {
	return m.SetAllowedTabsFunc(ctx, groupID, tabs)
}

func (m *mockGroupUC) Delete(ctx context.Context, groupID int64) error {
	return m.DeleteFunc(ctx, groupID)
}

func (m *mockGroupUC) AssignPrincipal(ctx context.Context, principalID, groupID int64) error {
	return m.AssignPrincipalFunc(ctx, principalID, groupID)
}

// mockAccessUC allows everything unless AllowFunc says otherwise; the tab
// gate tests override it per case.
type mockAccessUC struct {
	AllowFunc           func(principalID int64, tab model.Tab) bool
	ListAllowedTabsFunc func(ctx context.Context, principalID int64) ([]model.Tab, error)
}

func (m *mockAccessUC) IsAllowed(ctx context.Context, principalID int64, tab model.Tab) bool {
	if m.AllowFunc != nil {
		return m.AllowFunc(principalID, tab)
	}
	return true
}

func (m *mockAccessUC) ListAllowedTabs(ctx context.Context, principalID int64) ([]model.Tab, error) {
	if m.ListAllowedTabsFunc != nil {
		return m.ListAllowedTabsFunc(ctx, principalID)
	}
	return nil, domain.ErrNotFound
}

// --- Mock rate limiter ---

type mockRateLimiter struct {
	mu     sync.Mutex
	counts map[string]int
	Err    error
}

func newMockRateLimiter() *mockRateLimiter {
	return &mockRateLimiter{counts: map[string]int{}}
}

func (m *mockRateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
	return m.counts[key] <= limit, nil
}

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}
