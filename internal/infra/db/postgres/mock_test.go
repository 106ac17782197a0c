//go:build !integration

package postgres

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	"trading-signal-console/internal/domain/model"
	"trading-signal-console/internal/domain/ports/repository"
)

// --- Mocks for Cache Decorator Tests ---

// mockInnerGroupRepo mocks the database repository that the group decorator wraps.
type mockInnerGroupRepo struct {
	CreateFunc         func(ctx context.Context, tx repository.Tx, g *model.Group) error
	FindByIDFunc       func(ctx context.Context, tx repository.Tx, id int64) (*model.Group, error)
	ListAllFunc        func(ctx context.Context, tx repository.Tx) ([]*model.Group, error)
	SetAllowedTabsFunc func(ctx context.Context, tx repository.Tx, id int64, tabs []model.Tab) error
	CountMembersFunc   func(ctx context.Context, tx repository.Tx, id int64) (int, error)
	DeleteFunc         func(ctx context.Context, tx repository.Tx, id int64) error
}

func (m *mockInnerGroupRepo) Create(ctx context.Context, tx repository.Tx, g *model.Group) error {
	return m.CreateFunc(ctx, tx, g)
}

func (m *mockInnerGroupRepo) FindByID(ctx context.Context, tx repository.Tx, id int64) (*model.Group, error) {
	return m.FindByIDFunc(ctx, tx, id)
}

func (m *mockInnerGroupRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Group, error) {
	return m.ListAllFunc(ctx, tx)
}

func (m *mockInnerGroupRepo) SetAllowedTabs(ctx context.Context, tx repository.Tx, id int64, tabs []model.Tab) error {
	return m.SetAllowedTabsFunc(ctx, tx, id, tabs)
}

func (m *mockInnerGroupRepo) CountMembers(ctx context.Context, tx repository.Tx, id int64) (int, error) {
	return m.CountMembersFunc(ctx, tx, id)
}

func (m *mockInnerGroupRepo) Delete(ctx context.Context, tx repository.Tx, id int64) error {
	return m.DeleteFunc(ctx, tx, id)
}

// mockRedisClient mocks our Redis client wrapper. Unset functions behave
// like an empty cache.
type mockRedisClient struct {
	GetFunc func(ctx context.Context, key string) (string, error)
	SetFunc func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	DelFunc func(ctx context.Context, keys ...string) error
}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	return "", redis.Nil
}

func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value, expiration)
	}
	return nil
}

func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	if m.DelFunc != nil {
		return m.DelFunc(ctx, keys...)
	}
	return nil
}

func (m *mockRedisClient) Ping(ctx context.Context) error { return nil }

func (m *mockRedisClient) Incr(ctx context.Context, key string) (int64, error) { return 0, nil }

func (m *mockRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return nil
}

func (m *mockRedisClient) Close() error { return nil }
