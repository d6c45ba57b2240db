package session

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenRevoker tracks revoked token IDs until expiry.
type TokenRevoker interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// UserTokenRevoker is an optional capability that invalidates every token of
// a user issued at or before a cutoff.
type UserTokenRevoker interface {
	RevokeUser(ctx context.Context, userID int64, since time.Time, ttl time.Duration) error
	RevokedAfter(ctx context.Context, userID int64) (time.Time, error)
}

// MemoryTokenRevoker keeps revoked tokens in-memory (single instance only).
type MemoryTokenRevoker struct {
	mu     sync.Mutex
	now    func() time.Time
	tokens map[string]time.Time
	users  map[int64]time.Time
}

// NewMemoryTokenRevoker builds an in-memory revoker.
func NewMemoryTokenRevoker() *MemoryTokenRevoker {
	return &MemoryTokenRevoker{
		now:    time.Now,
		tokens: make(map[string]time.Time),
		users:  make(map[int64]time.Time),
	}
}

// Revoke marks a token as revoked until its expiry.
func (r *MemoryTokenRevoker) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	r.mu.Lock()
	r.tokens[jti] = r.now().Add(ttl)
	r.mu.Unlock()
	return nil
}

// IsRevoked checks if the token is revoked.
func (r *MemoryTokenRevoker) IsRevoked(_ context.Context, jti string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	expiry, ok := r.tokens[jti]
	if !ok {
		return false, nil
	}
	if r.now().After(expiry) {
		delete(r.tokens, jti)
		return false, nil
	}
	return true, nil
}

// RevokeUser records a cutoff; an older cutoff never replaces a newer one.
func (r *MemoryTokenRevoker) RevokeUser(_ context.Context, userID int64, since time.Time, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.users[userID]; ok && prev.After(since) {
		return nil
	}
	r.users[userID] = since.UTC()
	return nil
}

func (r *MemoryTokenRevoker) RevokedAfter(_ context.Context, userID int64) (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[userID], nil
}

// RedisTokenRevoker stores revoked tokens in Redis with TTL.
type RedisTokenRevoker struct {
	client *redis.Client
}

// NewRedisTokenRevoker builds a Redis-backed revoker on a shared client.
func NewRedisTokenRevoker(client *redis.Client) *RedisTokenRevoker {
	return &RedisTokenRevoker{client: client}
}

// Revoke marks a token as revoked until expiry.
func (r *RedisTokenRevoker) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return r.client.Set(ctx, revocationKey(jti), "1", ttl).Err()
}

// IsRevoked checks if the token is revoked.
func (r *RedisTokenRevoker) IsRevoked(ctx context.Context, jti string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.client.Exists(ctx, revocationKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return res > 0, nil
}

// RevokeUser stores the cutoff for as long as a token could still be valid.
func (r *RedisTokenRevoker) RevokeUser(ctx context.Context, userID int64, since time.Time, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	key := userRevocationKey(userID)
	cutoff := since.UTC().UnixMilli()
	prev, err := r.client.Get(ctx, key).Int64()
	if err != nil && err != redis.Nil {
		return err
	}
	if err == nil && prev > cutoff {
		return nil
	}
	return r.client.Set(ctx, key, cutoff, ttl).Err()
}

func (r *RedisTokenRevoker) RevokedAfter(ctx context.Context, userID int64) (time.Time, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	ms, err := r.client.Get(ctx, userRevocationKey(userID)).Int64()
	if err == redis.Nil {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}

func revocationKey(jti string) string {
	return "mayorsearch:revoked:" + jti
}

func userRevocationKey(userID int64) string {
	return "mayorsearch:revoked_user:" + strconv.FormatInt(userID, 10)
}
