package store

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/rushteam/unitrec/core"
)

const defaultRedisPrefix = "unitrec"

// upsertProductScript 在一次脚本执行内完成 HSETNX 和顺序列表追加。
var upsertProductScript = redis.NewScript(`
if redis.call('HSETNX', KEYS[1], ARGV[1], ARGV[2]) == 1 then
	redis.call('RPUSH', KEYS[2], ARGV[1])
	return 1
end
return 0
`)

// OpenRedis 连接 Redis，返回共享同一客户端的两个存储。
//
// key 布局：
//   - {prefix}:events          交互事件列表（RPUSH，JSON）
//   - {prefix}:products        商品 hash，field 为 productId
//   - {prefix}:products:order  商品插入顺序
func OpenRedis(ctx context.Context, addr string, db int, prefix string) (*RedisInteractionStore, *RedisCatalogStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, err
	}
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	shared := newSharedCloser(2, client.Close)
	return &RedisInteractionStore{client: client, key: prefix + ":events", h: &handle{shared: shared}},
		&RedisCatalogStore{
			client:   client,
			key:      prefix + ":products",
			orderKey: prefix + ":products:order",
			h:        &handle{shared: shared},
		},
		nil
}

// RedisInteractionStore 是 Redis 列表实现的交互日志，RPUSH 本身是原子的。
type RedisInteractionStore struct {
	client *redis.Client
	key    string
	h      *handle
}

func (r *RedisInteractionStore) Name() string { return DriverRedis }

func (r *RedisInteractionStore) Append(ctx context.Context, ev core.InteractionEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return r.client.RPush(ctx, r.key, data).Err()
}

func (r *RedisInteractionStore) ReadAll(ctx context.Context) ([]core.InteractionEvent, error) {
	vals, err := r.client.LRange(ctx, r.key, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]core.InteractionEvent, 0, len(vals))
	for _, v := range vals {
		var ev core.InteractionEvent
		if err := json.Unmarshal([]byte(v), &ev); err != nil {
			return nil, fmt.Errorf("unmarshal event: %w", err)
		}
		out = append(out, ev)
	}
	return out, nil
}

func (r *RedisInteractionStore) Close() error { return r.h.Close() }

// RedisCatalogStore 是 Redis hash 实现的商品目录。
type RedisCatalogStore struct {
	client   *redis.Client
	key      string
	orderKey string
	h        *handle
}

func (r *RedisCatalogStore) Name() string { return DriverRedis }

func (r *RedisCatalogStore) Lookup(ctx context.Context, productID string) (core.Product, bool, error) {
	val, err := r.client.HGet(ctx, r.key, productID).Bytes()
	if err == redis.Nil {
		return core.Product{}, false, nil
	}
	if err != nil {
		return core.Product{}, false, err
	}
	var p core.Product
	if err := json.Unmarshal(val, &p); err != nil {
		return core.Product{}, false, fmt.Errorf("unmarshal product: %w", err)
	}
	return p, true, nil
}

func (r *RedisCatalogStore) UpsertIfAbsent(ctx context.Context, p core.Product) (bool, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return false, fmt.Errorf("marshal product: %w", err)
	}
	n, err := upsertProductScript.Run(ctx, r.client, []string{r.key, r.orderKey}, p.ProductID, data).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *RedisCatalogStore) ReadAll(ctx context.Context) ([]core.Product, error) {
	var (
		orderCmd *redis.StringSliceCmd
		hashCmd  *redis.MapStringStringCmd
	)
	// MULTI/EXEC 保证两次读取看到同一个版本
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		orderCmd = pipe.LRange(ctx, r.orderKey, 0, -1)
		hashCmd = pipe.HGetAll(ctx, r.key)
		return nil
	})
	if err != nil {
		return nil, err
	}

	hash := hashCmd.Val()
	out := make([]core.Product, 0, len(hash))
	for _, id := range orderCmd.Val() {
		raw, ok := hash[id]
		if !ok {
			continue
		}
		var p core.Product
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("unmarshal product: %w", err)
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *RedisCatalogStore) Close() error { return r.h.Close() }

var (
	_ core.InteractionStore = (*RedisInteractionStore)(nil)
	_ core.CatalogStore     = (*RedisCatalogStore)(nil)
)
