package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"callguard/internal/config"
	"callguard/internal/domain/models"
	"callguard/pkg/logger"
)

// RedisCache wraps the Redis client with typed operations
type RedisCache struct {
	client    *redis.Client
	keyPrefix string
	logger    *logger.Logger
}

// NewRedis creates a new Redis client
func NewRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (*RedisCache, error) {
	log = log.WithComponent("redis")
	log.Info().Str("host", cfg.Host).Int("port", cfg.Port).Msg("connecting to Redis")

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	log.Info().Msg("connected to Redis successfully")

	return &RedisCache{
		client:    client,
		keyPrefix: cfg.KeyPrefix,
		logger:    log,
	}, nil
}

// Client returns the underlying Redis client
func (c *RedisCache) Client() *redis.Client {
	return c.client
}

// Ping checks the connection
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	c.logger.Info().Msg("closing Redis connection")
	return c.client.Close()
}

// key prepends the namespace prefix to a key
func (c *RedisCache) key(k string) string {
	return c.keyPrefix + k
}

// Get retrieves a value from cache
func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.client.Get(ctx, c.key(key)).Result()
}

// GetJSON retrieves and unmarshals a JSON value from cache
func (c *RedisCache) GetJSON(ctx context.Context, key string, dest any) error {
	data, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), dest)
}

// Set stores a value in cache with optional TTL
func (c *RedisCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return c.client.Set(ctx, c.key(key), value, ttl).Err()
}

// SetJSON marshals and stores a value in cache
func (c *RedisCache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return c.Set(ctx, key, string(data), ttl)
}

// Pipeline returns a Redis pipeline for batch operations
func (c *RedisCache) Pipeline() redis.Pipeliner {
	return c.client.Pipeline()
}

// Cache key constants for CallGuard
const (
	KeyAnalysisPrefix  = "cache:analysis:"
	KeyRateLimitPrefix = "rate_limit:"
)

// AnalysisKey derives the outcome cache key for one scoring input. Each
// field is length-prefixed before hashing so a separator inside the text or
// the language cannot make two inputs encode the same way.
func AnalysisKey(text string, durationSeconds float64, language string) string {
	h := sha256.New()
	for _, field := range []string{
		text,
		strconv.FormatFloat(durationSeconds, 'g', -1, 64),
		language,
	} {
		fmt.Fprintf(h, "%d:%s|", len(field), field)
	}
	return KeyAnalysisPrefix + hex.EncodeToString(h.Sum(nil))
}

// GetAnalysis returns a cached outcome. found is false on a cache miss.
func (c *RedisCache) GetAnalysis(ctx context.Context, key string) (*models.AnalysisOutcome, bool, error) {
	var outcome models.AnalysisOutcome
	err := c.GetJSON(ctx, key, &outcome)
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &outcome, true, nil
}

// SetAnalysis caches an outcome
func (c *RedisCache) SetAnalysis(ctx context.Context, key string, outcome *models.AnalysisOutcome, ttl time.Duration) error {
	return c.SetJSON(ctx, key, outcome, ttl)
}

// CheckRateLimit checks and increments the rate limit counter
// Returns (allowed, remaining, resetTime, error)
func (c *RedisCache) CheckRateLimit(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, time.Time, error) {
	now := time.Now()
	windowKey := rateLimitKey(key, now, window)

	pipe := c.Pipeline()
	incr := pipe.Incr(ctx, c.key(windowKey))
	pipe.Expire(ctx, c.key(windowKey), window)
	_, err := pipe.Exec(ctx)
	if err != nil {
		return false, 0, time.Time{}, err
	}

	count := incr.Val()
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}

	resetTime := now.Add(window)

	return count <= limit, remaining, resetTime, nil
}

// rateLimitKey buckets a client key into fixed windows
func rateLimitKey(key string, now time.Time, window time.Duration) string {
	secs := int64(window.Seconds())
	if secs <= 0 {
		secs = 1
	}
	return fmt.Sprintf("%s%s:%d", KeyRateLimitPrefix, key, now.Unix()/secs)
}
