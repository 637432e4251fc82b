package jds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRepo stores items as JSON strings with a per-user sorted-set index
// scored by fetch time.
type RedisRepo struct {
	Client *redis.Client
	Prefix string
	// TTL expires cached items; zero keeps them.
	TTL time.Duration
}

func (r *RedisRepo) itemKey(id string) string {
	return r.prefix() + "jd:item:" + id
}

func (r *RedisRepo) userKey(userID string) string {
	return r.prefix() + "jd:user:" + userID
}

func (r *RedisRepo) prefix() string {
	if r.Prefix == "" {
		return "jianli:"
	}
	return r.Prefix
}

func (r *RedisRepo) Put(ctx context.Context, item Item) error {
	raw, err := json.Marshal(redisItem{Item: item, UserID: item.UserID})
	if err != nil {
		return err
	}
	created, err := r.Client.SetNX(ctx, r.itemKey(item.ID), raw, r.TTL).Result()
	if err != nil {
		return fmt.Errorf("redis put: %w", err)
	}
	if !created {
		return nil
	}
	score := float64(item.FetchedAt.UnixNano())
	if err := r.Client.ZAdd(ctx, r.userKey(item.UserID), redis.Z{Score: score, Member: item.ID}).Err(); err != nil {
		return fmt.Errorf("redis index: %w", err)
	}
	return nil
}

func (r *RedisRepo) Get(ctx context.Context, id string) (Item, error) {
	raw, err := r.Client.Get(ctx, r.itemKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Item{}, ErrNotFound
	}
	if err != nil {
		return Item{}, fmt.Errorf("redis get: %w", err)
	}
	return decodeRedisItem(raw)
}

func (r *RedisRepo) GetMany(ctx context.Context, ids []string) ([]Item, error) {
	if len(ids) == 0 {
		return []Item{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.itemKey(id)
	}
	vals, err := r.Client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}
	out := make([]Item, 0, len(ids))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, ids[i])
		}
		it, err := decodeRedisItem([]byte(s))
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, nil
}

func (r *RedisRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Item, error) {
	if offset < 0 {
		offset = 0
	}
	stop := int64(-1)
	if limit > 0 {
		stop = int64(offset + limit - 1)
	}
	ids, err := r.Client.ZRevRange(ctx, r.userKey(userID), int64(offset), stop).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list: %w", err)
	}
	return r.liveItems(ctx, ids)
}

func (r *RedisRepo) Search(ctx context.Context, userID string, f SearchFilter) ([]Item, error) {
	all, err := r.ListByUser(ctx, userID, 0, 0)
	if err != nil {
		return nil, err
	}
	out := []Item{}
	for _, it := range all {
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
		if f.matches(it) {
			out = append(out, it)
		}
	}
	return out, nil
}

// liveItems skips index entries whose item has expired.
func (r *RedisRepo) liveItems(ctx context.Context, ids []string) ([]Item, error) {
	out := []Item{}
	for _, id := range ids {
		it, err := r.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, nil
}

// redisItem keeps UserID, which Item hides from JSON responses.
type redisItem struct {
	Item
	UserID string `json:"userId"`
}

func decodeRedisItem(raw []byte) (Item, error) {
	var ri redisItem
	if err := json.Unmarshal(raw, &ri); err != nil {
		return Item{}, fmt.Errorf("decode cached posting: %w", err)
	}
	it := ri.Item
	it.UserID = ri.UserID
	return it, nil
}

// CachedRepo reads through a Redis cache in front of a primary repo.
type CachedRepo struct {
	Primary Repo
	Cache   *RedisRepo
}

func (c *CachedRepo) Put(ctx context.Context, item Item) error {
	if err := c.Primary.Put(ctx, item); err != nil {
		return err
	}
	_ = c.Cache.Put(ctx, item)
	return nil
}

func (c *CachedRepo) Get(ctx context.Context, id string) (Item, error) {
	if it, err := c.Cache.Get(ctx, id); err == nil {
		return it, nil
	}
	it, err := c.Primary.Get(ctx, id)
	if err != nil {
		return Item{}, err
	}
	_ = c.Cache.Put(ctx, it)
	return it, nil
}

func (c *CachedRepo) GetMany(ctx context.Context, ids []string) ([]Item, error) {
	if items, err := c.Cache.GetMany(ctx, ids); err == nil {
		return items, nil
	}
	return c.Primary.GetMany(ctx, ids)
}

func (c *CachedRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Item, error) {
	return c.Primary.ListByUser(ctx, userID, limit, offset)
}

func (c *CachedRepo) Search(ctx context.Context, userID string, f SearchFilter) ([]Item, error) {
	return c.Primary.Search(ctx, userID, f)
}
