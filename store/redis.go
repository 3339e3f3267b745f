package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the Redis backend
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// RedisStore keeps uploads as JSON values with a native key TTL
type RedisStore struct {
	Client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore connects a store to the configured Redis server
func NewRedisStore(cfg RedisConfig, ttl time.Duration) *RedisStore {
	return NewRedisStoreWithClient(redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}), cfg.Prefix, ttl)
}

// NewRedisStoreWithClient wraps an existing client
func NewRedisStoreWithClient(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "sonido:upload:"
	}
	return &RedisStore{Client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) key(fileID string) string {
	return s.prefix + fileID
}

func (s *RedisStore) Put(ctx context.Context, upload *Upload) error {
	now := time.Now()
	stamp(upload, now, s.ttl)

	value, err := json.Marshal(upload)
	if err != nil {
		return fmt.Errorf("encode upload: %w", err)
	}

	var ttl time.Duration
	if !upload.ExpiresAt.IsZero() {
		ttl = upload.ExpiresAt.Sub(now)
		if ttl <= 0 {
			return nil
		}
	}
	return s.Client.Set(ctx, s.key(upload.FileID), value, ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, fileID string) (*Upload, error) {
	b, err := s.Client.Get(ctx, s.key(fileID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, fileID)
	}
	if err != nil {
		return nil, err
	}

	var upload Upload
	if err := json.Unmarshal(b, &upload); err != nil {
		return nil, fmt.Errorf("decode upload %s: %w", fileID, err)
	}
	return &upload, nil
}

func (s *RedisStore) Delete(ctx context.Context, fileID string) error {
	return s.Client.Del(ctx, s.key(fileID)).Err()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.Client.Ping(ctx).Err()
}

// Close releases the client's connections
func (s *RedisStore) Close() error {
	return s.Client.Close()
}
