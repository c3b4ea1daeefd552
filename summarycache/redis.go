package summarycache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisConfig configures the redis-backed store.
type RedisConfig struct {
	Addr     string        `yaml:"addr" json:"addr"`
	Password string        `yaml:"password" json:"password"`
	DB       int           `yaml:"db" json:"db"`
	TTL      time.Duration `yaml:"ttl" json:"ttl"`

	MaxRetries   int `yaml:"max_retries" json:"max_retries"`
	PoolSize     int `yaml:"pool_size" json:"pool_size"`
	MinIdleConns int `yaml:"min_idle_conns" json:"min_idle_conns"`

	// KeyPrefix namespaces entries so several conversations (or apps)
	// can share one redis instance.
	KeyPrefix string `yaml:"key_prefix" json:"key_prefix"`
}

// DefaultRedisConfig returns sensible defaults for the redis store.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "localhost:6379",
		TTL:          24 * time.Hour,
		MaxRetries:   3,
		PoolSize:     10,
		MinIdleConns: 2,
		KeyPrefix:    "chatflow:summary",
	}
}

// RedisStore persists summary records in redis so summaries survive
// process restarts and are shared across instances.
type RedisStore struct {
	client *redis.Client
	config RedisConfig
	logger *zap.Logger
}

// NewRedisStore connects to redis and returns a store, failing fast if
// the server is unreachable.
func NewRedisStore(config RedisConfig, logger *zap.Logger) (*RedisStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		MaxRetries:   config.MaxRetries,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	if config.KeyPrefix == "" {
		config.KeyPrefix = "chatflow:summary"
	}

	s := &RedisStore{
		client: client,
		config: config,
		logger: logger.With(zap.String("component", "summarycache.redis")),
	}

	s.logger.Info("redis summary store initialized", zap.String("addr", config.Addr))
	return s, nil
}

func (s *RedisStore) recordKey(key string) string {
	return s.config.KeyPrefix + ":" + key
}

func (s *RedisStore) indexKey() string {
	return s.config.KeyPrefix + ":keys"
}

func (s *RedisStore) Get(ctx context.Context, key string) (*Record, error) {
	val, err := s.client.Get(ctx, s.recordKey(key)).Result()
	if err == redis.Nil {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache get failed: %w", err)
	}

	var rec Record
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return &rec, nil
}

func (s *RedisStore) Put(ctx context.Context, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.recordKey(rec.Key), data, s.config.TTL)
	pipe.SAdd(ctx, s.indexKey(), rec.Key)
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Error("cache put failed", zap.String("key", rec.Key), zap.Error(err))
		return fmt.Errorf("cache put failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	recordKeys := make([]string, len(keys))
	members := make([]interface{}, len(keys))
	for i, k := range keys {
		recordKeys[i] = s.recordKey(k)
		members[i] = k
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, recordKeys...)
	pipe.SRem(ctx, s.indexKey(), members...)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache delete failed: %w", err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]*Record, error) {
	keys, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("cache list failed: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	out := make([]*Record, 0, len(keys))
	var stale []string
	for _, k := range keys {
		rec, err := s.Get(ctx, k)
		if IsCacheMiss(err) {
			// TTL expired but the index member survived.
			stale = append(stale, k)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}

	if len(stale) > 0 {
		members := make([]interface{}, len(stale))
		for i, k := range stale {
			members[i] = k
		}
		if err := s.client.SRem(ctx, s.indexKey(), members...).Err(); err != nil {
			s.logger.Warn("failed to prune stale index members", zap.Error(err))
		}
	}
	return out, nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	keys, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return fmt.Errorf("cache clear failed: %w", err)
	}

	pipe := s.client.TxPipeline()
	for _, k := range keys {
		pipe.Del(ctx, s.recordKey(k))
	}
	pipe.Del(ctx, s.indexKey())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache clear failed: %w", err)
	}
	return nil
}

// Ping checks the redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
