package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrTokenNotFound is returned when the token is unknown or expired in the cache.
var ErrTokenNotFound = errors.New("signature token not cached")

const signatureTokenPrefix = "signature:token:"

// SignatureTokenIndex maps signature link tokens to ticket ids.
type SignatureTokenIndex interface {
	Put(ctx context.Context, token, ticketID string) error
	Lookup(ctx context.Context, token string) (string, error)
	Delete(ctx context.Context, token string) error
}

// RedisSignatureTokens stores the index in Redis with a TTL per token.
type RedisSignatureTokens struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSignatureTokens creates the index.
func NewRedisSignatureTokens(client *redis.Client, ttl time.Duration) *RedisSignatureTokens {
	return &RedisSignatureTokens{client: client, ttl: ttl}
}

func (r *RedisSignatureTokens) Put(ctx context.Context, token, ticketID string) error {
	if err := r.client.Set(ctx, signatureTokenPrefix+token, ticketID, r.ttl).Err(); err != nil {
		return fmt.Errorf("cache signature token: %w", err)
	}
	return nil
}

func (r *RedisSignatureTokens) Lookup(ctx context.Context, token string) (string, error) {
	id, err := r.client.Get(ctx, signatureTokenPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrTokenNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup signature token: %w", err)
	}
	return id, nil
}

func (r *RedisSignatureTokens) Delete(ctx context.Context, token string) error {
	if err := r.client.Del(ctx, signatureTokenPrefix+token).Err(); err != nil {
		return fmt.Errorf("drop signature token: %w", err)
	}
	return nil
}
