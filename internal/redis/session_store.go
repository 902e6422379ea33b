package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "session:"
	sessionIndexKey  = "sessions:index"
)

// SessionStore holds issued auth sessions (token -> user ID) with a TTL.
// Redis expires the value keys itself; the index set accumulates dead
// members, which the periodic session-cleanup job prunes.
type SessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSessionStore(rdb *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{rdb: rdb, ttl: ttl}
}

// Put records a session token for a user.
func (s *SessionStore) Put(ctx context.Context, token, userID string) error {
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, sessionKeyPrefix+token, userID, s.ttl)
	pipe.SAdd(ctx, sessionIndexKey, token)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Get resolves a session token to a user ID. Returns "" when the session
// does not exist or has expired.
func (s *SessionStore) Get(ctx context.Context, token string) (string, error) {
	userID, err := s.rdb.Get(ctx, sessionKeyPrefix+token).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get session: %w", err)
	}
	return userID, nil
}

// Delete revokes a session token.
func (s *SessionStore) Delete(ctx context.Context, token string) error {
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, sessionKeyPrefix+token)
	pipe.SRem(ctx, sessionIndexKey, token)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes index entries whose session key has expired.
// Returns the number of entries pruned.
func (s *SessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	tokens, err := s.rdb.SMembers(ctx, sessionIndexKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list session index: %w", err)
	}

	var pruned int64
	for _, token := range tokens {
		exists, err := s.rdb.Exists(ctx, sessionKeyPrefix+token).Result()
		if err != nil {
			return pruned, fmt.Errorf("failed to check session %s: %w", token, err)
		}
		if exists == 0 {
			if err := s.rdb.SRem(ctx, sessionIndexKey, token).Err(); err != nil {
				return pruned, fmt.Errorf("failed to prune session index: %w", err)
			}
			pruned++
		}
	}
	return pruned, nil
}
