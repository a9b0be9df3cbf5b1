package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cinema-scheduler/pkg/utils"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisKeyPrefix = "cinema_lock:"

// only the owner token may delete the key
var releaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	end
	return 0
`)

// RedisLocker holds locks as SET NX PX keys so several service replicas
// share the same critical sections. The TTL bounds how long a crashed
// holder can block others.
type RedisLocker struct {
	client     *redis.Client
	ttl        time.Duration
	retryEvery time.Duration
	log        *zap.Logger
}

func NewRedisLocker(client *redis.Client, cfg utils.LockConfig, log *zap.Logger) *RedisLocker {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	retry := cfg.RetryEvery
	if retry <= 0 {
		retry = 25 * time.Millisecond
	}
	return &RedisLocker{
		client:     client,
		ttl:        ttl,
		retryEvery: retry,
		log:        log.With(zap.String("component", "redis_lock")),
	}
}

// NewRedisClient connects and pings Redis.
func NewRedisClient(ctx context.Context, cfg utils.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	return client, nil
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (Unlock, error) {
	redisKey := redisKeyPrefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.retryEvery)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("setnx %s: %w", redisKey, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrNotAcquired, ctx.Err())
		case <-ticker.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// release even if the request context is already cancelled
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, l.client, []string{redisKey}, token).Err(); err != nil && err != redis.Nil {
				l.log.Warn("Failed to release lock", zap.String("key", redisKey), zap.Error(err))
			}
		})
	}, nil
}
