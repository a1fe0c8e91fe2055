/*
Package presence tracks which live connection currently represents a nickname.

It exposes a narrow key-value interface (get/set/delete with expiry) backed by
Redis. Besides nickname presence, the same store holds refresh tokens and
short-lived mail verification codes.
*/
package presence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("presence: key not found")

// KeyValue is the minimal store contract the presence layer depends on.
// Single-key atomicity only; no ordering guarantees across keys.
type KeyValue interface {
	// Set stores value under key. A zero ttl means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// redisKV implements KeyValue on a go-redis client.
type redisKV struct {
	client *redis.Client
}

// NewRedisKV wraps a go-redis client in the KeyValue interface.
func NewRedisKV(client *redis.Client) KeyValue {
	return &redisKV{client: client}
}

func (r *redisKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *redisKV) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (r *redisKV) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return client, nil
}
