package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"commerce3d/api/internal/auth"
	"github.com/redis/go-redis/v9"
)

// RedisStore implements session storage using Redis. Only the hash of a
// token is used as the key. Entries carry no TTL.
type RedisStore struct {
	client   *redis.Client
	prefix   string
	newToken func() (string, error)
}

// NewRedisStore creates a new Redis-backed session store
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client), nil
}

// NewRedisStoreWithClient creates a store from an existing Redis client
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{
		client:   client,
		prefix:   "session:",
		newToken: auth.NewToken,
	}
}

func (s *RedisStore) key(token string) string {
	return s.prefix + auth.HashToken(token)
}

func (s *RedisStore) Create(ctx context.Context, identity string) (string, error) {
	payload, err := json.Marshal(Entry{Identity: identity, CreatedAt: time.Now().UTC()})
	if err != nil {
		return "", fmt.Errorf("marshal session: %w", err)
	}

	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		token, err := s.newToken()
		if err != nil {
			return "", err
		}
		created, err := s.client.SetNX(ctx, s.key(token), payload, 0).Result()
		if err != nil {
			return "", fmt.Errorf("save session: %w", err)
		}
		if created {
			return token, nil
		}
	}
	return "", ErrTokenSpace
}

func (s *RedisStore) Validate(ctx context.Context, token string) (Entry, bool, error) {
	if token == "" {
		return Entry{}, false, nil
	}
	raw, err := s.client.Get(ctx, s.key(token)).Result()
	if err == redis.Nil {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("lookup session: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return Entry{}, false, fmt.Errorf("unmarshal session: %w", err)
	}
	return entry, true, nil
}

// ClearAll removes every key under the session prefix.
func (s *RedisStore) ClearAll(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", 200).Result()
		if err != nil {
			return fmt.Errorf("scan sessions: %w", err)
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("delete sessions: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks if Redis is reachable
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
