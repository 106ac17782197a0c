package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"trading-signal-console/internal/domain/model"
	"trading-signal-console/internal/domain/ports/repository"
	"trading-signal-console/internal/infra/metrics"
	red "trading-signal-console/internal/infra/redis"
)

var _ repository.GroupRepository = (*groupRepoCacheDecorator)(nil)

// groupRepoCacheDecorator caches group reads in Redis. The access gate reads
// a group on every privileged request, so this path must not hit Postgres
// each time; writes invalidate.
type groupRepoCacheDecorator struct {
	inner repository.GroupRepository
	cache red.RedisClient
	ttl   time.Duration
}

func NewGroupRepoCacheDecorator(inner repository.GroupRepository, cache red.RedisClient, ttl time.Duration) repository.GroupRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &groupRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl}
}

func groupKey(id int64) string { return fmt.Sprintf("group:%d", id) }

const groupListKey = "groups:all"

func (d *groupRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id int64) (*model.Group, error) {
	// Reads inside a transaction must see tx-local state, not a stale cache.
	if tx != nil {
		return d.inner.FindByID(ctx, tx, id)
	}

	key := groupKey(id)
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		metrics.IncCacheRequest("group", "hit")
		var g model.Group
		if json.Unmarshal([]byte(val), &g) == nil {
			return &g, nil
		}
	} else if err != redis.Nil {
		metrics.IncCacheRequest("group", "error")
	}

	metrics.IncCacheRequest("group", "miss")
	g, err := d.inner.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if bytes, err := json.Marshal(g); err == nil {
		_ = d.cache.Set(ctx, key, bytes, d.ttl)
	}
	return g, nil
}

func (d *groupRepoCacheDecorator) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Group, error) {
	if tx != nil {
		return d.inner.ListAll(ctx, tx)
	}

	val, err := d.cache.Get(ctx, groupListKey)
	if err == nil {
		metrics.IncCacheRequest("group_list", "hit")
		var groups []*model.Group
		if json.Unmarshal([]byte(val), &groups) == nil {
			return groups, nil
		}
	}

	metrics.IncCacheRequest("group_list", "miss")
	groups, err := d.inner.ListAll(ctx, tx)
	if err != nil {
		return nil, err
	}
	if len(groups) > 0 {
		if bytes, err := json.Marshal(groups); err == nil {
			_ = d.cache.Set(ctx, groupListKey, bytes, d.ttl)
		}
	}
	return groups, nil
}

// Write operations invalidate before delegating and, when not inside a
// transaction, again after the statement has committed. The first Del alone
// is not enough: a read landing between it and the commit re-caches the old
// row for a full TTL. Transactional writes only become visible when the
// enclosing transaction commits, which the decorator cannot observe; callers
// holding a Tx invalidate again via InvalidateGroup once it has.

func (d *groupRepoCacheDecorator) Create(ctx context.Context, tx repository.Tx, g *model.Group) error {
	_ = d.cache.Del(ctx, groupListKey)
	if err := d.inner.Create(ctx, tx, g); err != nil {
		return err
	}
	if tx == nil {
		_ = d.cache.Del(ctx, groupListKey)
	}
	return nil
}

func (d *groupRepoCacheDecorator) SetAllowedTabs(ctx context.Context, tx repository.Tx, id int64, tabs []model.Tab) error {
	_ = d.cache.Del(ctx, groupKey(id), groupListKey)
	if err := d.inner.SetAllowedTabs(ctx, tx, id, tabs); err != nil {
		return err
	}
	if tx == nil {
		_ = d.cache.Del(ctx, groupKey(id), groupListKey)
	}
	return nil
}

func (d *groupRepoCacheDecorator) Delete(ctx context.Context, tx repository.Tx, id int64) error {
	_ = d.cache.Del(ctx, groupKey(id), groupListKey)
	if err := d.inner.Delete(ctx, tx, id); err != nil {
		return err
	}
	if tx == nil {
		_ = d.cache.Del(ctx, groupKey(id), groupListKey)
	}
	return nil
}

// InvalidateGroup drops the cached entries for one group. Use cases call it
// after a transactional write commits; the decorator's own invalidation ran
// before the new row was visible.
func (d *groupRepoCacheDecorator) InvalidateGroup(ctx context.Context, id int64) {
	_ = d.cache.Del(ctx, groupKey(id), groupListKey)
}

func (d *groupRepoCacheDecorator) CountMembers(ctx context.Context, tx repository.Tx, id int64) (int, error) {
	// Membership counts guard deletion; always authoritative.
	return d.inner.CountMembers(ctx, tx, id)
}
