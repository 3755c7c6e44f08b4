// Package session keeps track of bearer tokens that were logged out before they expired.
package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrRevoked = errors.New("token has been revoked")

// RedisConfig holds the connection settings for the revocation store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// NewRedisClient opens a client and verifies the connection.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// RevocationStore records revoked tokens until their natural expiry.
// Tokens are stored as SHA-256 digests, never in clear text.
type RevocationStore struct {
	client *redis.Client
	prefix string
}

func NewRevocationStore(client *redis.Client, prefix string) *RevocationStore {
	if prefix == "" {
		prefix = "revoked:"
	}
	return &RevocationStore{
		client: client,
		prefix: prefix,
	}
}

// Revoke marks token as revoked until expiresAt. Already-expired tokens are not stored.
func (s *RevocationStore) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, s.key(token), 1, ttl).Err(); err != nil {
		return fmt.Errorf("revocation set: %w", err)
	}
	return nil
}

// Check returns ErrRevoked if the token was logged out.
func (s *RevocationStore) Check(ctx context.Context, token string) error {
	n, err := s.client.Exists(ctx, s.key(token)).Result()
	if err != nil {
		return fmt.Errorf("revocation lookup: %w", err)
	}
	if n > 0 {
		return ErrRevoked
	}
	return nil
}

func (s *RevocationStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RevocationStore) key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return s.prefix + hex.EncodeToString(sum[:])
}
