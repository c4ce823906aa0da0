// Package token stores issued access tokens in Redis.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/recipeapp/recipe-api/internal/auth"
)

const (
	// tokenKeyPrefix maps a hashed token to its user ID.
	tokenKeyPrefix = "auth:token:"
	// userTokensKeyPrefix holds the set of token hashes issued to a user.
	userTokensKeyPrefix = "auth:user_tokens:"
)

// ErrTokenNotFound indicates the token was never issued, expired, or was revoked.
var ErrTokenNotFound = errors.New("token not found")

// Store keeps token -> user mappings. Only a hash of each token is stored.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis and returns a Store. A zero ttl means tokens never expire.
func New(ctx context.Context, redisURL string, ttl time.Duration) (*Store, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Connection pool settings
	opt.PoolSize = 10
	opt.MinIdleConns = 2
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)

	// Verify connection
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return NewWithClient(client, ttl), nil
}

// NewWithClient wraps an existing Redis client.
func NewWithClient(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// Ping checks Redis connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Issue creates a new token for userID and returns its plaintext.
func (s *Store) Issue(ctx context.Context, userID string) (string, error) {
	plaintext, err := auth.GenerateToken()
	if err != nil {
		return "", err
	}

	hash := auth.QuickHash(plaintext)
	setKey := userTokensKeyPrefix + userID

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, tokenKeyPrefix+hash, userID, s.ttl)
		pipe.SAdd(ctx, setKey, hash)
		if s.ttl > 0 {
			pipe.Expire(ctx, setKey, s.ttl)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("store token: %w", err)
	}

	return plaintext, nil
}

// Resolve returns the user ID a token was issued to.
func (s *Store) Resolve(ctx context.Context, plaintext string) (string, error) {
	if !auth.ValidTokenFormat(plaintext) {
		return "", ErrTokenNotFound
	}

	userID, err := s.client.Get(ctx, tokenKeyPrefix+auth.QuickHash(plaintext)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrTokenNotFound
		}
		return "", fmt.Errorf("resolve token: %w", err)
	}

	return userID, nil
}

// RevokeUser deletes every token issued to userID and returns how many were removed.
func (s *Store) RevokeUser(ctx context.Context, userID string) (int, error) {
	setKey := userTokensKeyPrefix + userID

	hashes, err := s.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return 0, fmt.Errorf("list user tokens: %w", err)
	}

	keys := make([]string, 0, len(hashes)+1)
	for _, h := range hashes {
		keys = append(keys, tokenKeyPrefix+h)
	}
	keys = append(keys, setKey)

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return 0, fmt.Errorf("revoke user tokens: %w", err)
	}

	return len(hashes), nil
}
