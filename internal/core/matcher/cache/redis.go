package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"recipe-chatbot/internal/infrastructure/config"
	"recipe-chatbot/internal/pkg/common"
)

// RedisStore Redis 快取後端，讓多個實例共用比對結果
type RedisStore struct {
	client *redis.Client
	ttl    config.CacheConfig
	hits   int64
	misses int64
	errors int64
}

// NewRedisStore 建立 Redis 快取後端
func NewRedisStore(cfg *config.Config) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.Cache.RedisAddr,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	common.LogInfo("Redis 快取已連線",
		zap.String("位址", cfg.Cache.RedisAddr),
		zap.Duration("存活時間", cfg.Cache.TTL),
	)

	return &RedisStore{client: client, ttl: cfg.Cache}, nil
}

// Get 取得快取的比對結果
func (s *RedisStore) Get(ctx context.Context, key string) ([]common.MatchResult, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		atomic.AddInt64(&s.misses, 1)
		common.LogCacheMiss("match_redis", key)
		return nil, common.ErrCacheMiss
	}
	if err != nil {
		atomic.AddInt64(&s.errors, 1)
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var results []common.MatchResult
	if err := json.Unmarshal(data, &results); err != nil {
		atomic.AddInt64(&s.errors, 1)
		return nil, fmt.Errorf("cached value corrupted: %w", err)
	}

	atomic.AddInt64(&s.hits, 1)
	common.LogCacheHit("match_redis", key)
	return results, nil
}

// Set 寫入比對結果
func (s *RedisStore) Set(ctx context.Context, key string, results []common.MatchResult) error {
	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("marshal match results: %w", err)
	}
	if err := s.client.Set(ctx, key, data, s.ttl.TTL).Err(); err != nil {
		atomic.AddInt64(&s.errors, 1)
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Stats 取得快取統計資訊
func (s *RedisStore) Stats() map[string]interface{} {
	hits := atomic.LoadInt64(&s.hits)
	misses := atomic.LoadInt64(&s.misses)
	total := hits + misses
	hitRatio := 0.0
	if total > 0 {
		hitRatio = float64(hits) / float64(total)
	}
	return map[string]interface{}{
		"backend":   "redis",
		"hits":      hits,
		"misses":    misses,
		"errors":    atomic.LoadInt64(&s.errors),
		"hit_ratio": hitRatio,
	}
}

// Close 關閉 Redis 連線
func (s *RedisStore) Close() error {
	return s.client.Close()
}
