package state

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the counter in a string key and the order numbers in a set.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "paycharge"
	}
	return &RedisStore{client: client, prefix: prefix}
}

// OpenRedis dials addr and checks the connection.
func OpenRedis(ctx context.Context, addr, prefix string) (*RedisStore, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis_addr is required for redis backend")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("[state] failed to ping redis: %w", err)
	}
	return NewRedisStore(client, prefix), nil
}

func (r *RedisStore) sequenceKey() string { return r.prefix + ":" + SequenceKey + "_id" }
func (r *RedisStore) ordersKey() string   { return r.prefix + ":order_numbers" }

func (r *RedisStore) Current(ctx context.Context) (int64, error) {
	if err := r.client.SetNX(ctx, r.sequenceKey(), 1, 0).Err(); err != nil {
		return 0, fmt.Errorf("[state] failed to initialize transaction sequence: %w", err)
	}
	id, err := r.client.Get(ctx, r.sequenceKey()).Int64()
	if err != nil {
		return 0, fmt.Errorf("[state] failed to read transaction sequence: %w", err)
	}
	return id, nil
}

func (r *RedisStore) Advance(ctx context.Context) error {
	if _, err := r.Current(ctx); err != nil {
		return err
	}
	if err := r.client.Incr(ctx, r.sequenceKey()).Err(); err != nil {
		return fmt.Errorf("[state] failed to advance transaction sequence: %w", err)
	}
	return nil
}

func (r *RedisStore) IsUnique(ctx context.Context, orderNumber string) (bool, error) {
	member, err := r.client.SIsMember(ctx, r.ordersKey(), orderNumber).Result()
	if err != nil {
		return false, fmt.Errorf("[state] failed to look up order number: %w", err)
	}
	return !member, nil
}

func (r *RedisStore) Record(ctx context.Context, orderNumber string) error {
	added, err := r.client.SAdd(ctx, r.ordersKey(), orderNumber).Result()
	if err != nil {
		return fmt.Errorf("[state] failed to record order number: %w", err)
	}
	if added == 0 {
		return fmt.Errorf("order number %s: %w", orderNumber, ErrConflict)
	}
	return nil
}

func (r *RedisStore) Count(ctx context.Context) (int, error) {
	n, err := r.client.SCard(ctx, r.ordersKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("[state] failed to count order numbers: %w", err)
	}
	return int(n), nil
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
