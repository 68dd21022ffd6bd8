package cache

import (
	"context"
	"fmt"
	"time"

	"collections-backend/internal/config"
	"collections-backend/internal/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// OpenRedis connects to the idempotency store and verifies it with PING. Timeouts
// stay short: the middleware fails the request with 503 rather than queueing.
func OpenRedis(cfg *config.Config, log *zap.Logger) (*redis.Client, error) {
	r := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		DB:           cfg.RedisDB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Ping(ctx).Err(); err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
	}
	logger.OrNop(log).Info("redis connected", zap.String("addr", cfg.RedisAddr), zap.Int("db", cfg.RedisDB))
	return r, nil
}
