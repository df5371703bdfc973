package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vitrinelabs/vitrine/core"
)

// RedisCredentialStore keeps the credential slot in Redis so a fleet of
// kiosk clients sharing one operator account can share one session.
type RedisCredentialStore struct {
	client *redis.Client
	key    string
}

// NewRedisCredentialStore connects to Redis and verifies the connection
func NewRedisCredentialStore(redisURL, key string) (*RedisCredentialStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if key == "" {
		key = "vitrine:credentials"
	}
	return &RedisCredentialStore{client: client, key: key}, nil
}

func (s *RedisCredentialStore) Load(ctx context.Context) (*core.Credentials, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("reading credential slot: %w", err)
	}
	var creds core.Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("corrupt credential slot: %w", err)
	}
	return &creds, nil
}

func (s *RedisCredentialStore) Save(ctx context.Context, creds *core.Credentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("writing credential slot: %w", err)
	}
	return nil
}

func (s *RedisCredentialStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("clearing credential slot: %w", err)
	}
	return nil
}

// Close releases the Redis connection
func (s *RedisCredentialStore) Close() error {
	return s.client.Close()
}
