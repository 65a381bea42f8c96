package mcache

import (
	"context"
	"errors"
	"sync"
	"time"

	asRedis "github.com/redis/go-redis/v9"

	"github.com/lwmacct/251015-go-mod-vlogs/pkg/mrdb"
)

// Cache 字段查询结果缓存
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type memItem struct {
	value    []byte
	expireAt time.Time
}

// Memory 进程内缓存, 过期条目在读取时清理
type Memory struct {
	mu    sync.Mutex
	items map[string]memItem
	now   func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		items: map[string]memItem{},
		now:   time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[key]
	if !ok {
		return nil, false, nil
	}
	if !item.expireAt.IsZero() && !m.now().Before(item.expireAt) {
		delete(m.items, key)
		return nil, false, nil
	}
	return item.value, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item := memItem{value: append([]byte(nil), value...)}
	if ttl > 0 {
		item.expireAt = m.now().Add(ttl)
	}
	m.items[key] = item
	return nil
}

// Len 当前条目数(含未清理的过期条目)
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Redis 基于 redis 的缓存, 多个进程共享
type Redis struct {
	rdb    *mrdb.Redis
	prefix string
}

func NewRedis(rdb *mrdb.Redis, prefix string) *Redis {
	return &Redis{rdb: rdb, prefix: prefix}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := r.rdb.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, asRedis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.rdb.Set(ctx, r.prefix+key, value, ttl).Err()
}
