// Package bootstrap builds runtime dependencies from configuration. Optional
// integrations come back nil when they are not configured.
package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/appointment-assistant/internal/config"
	"github.com/wolfman30/appointment-assistant/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis not available", "addr", cfg.RedisAddr, "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// LoadLocation resolves the clinic timezone, falling back to UTC.
func LoadLocation(cfg *appconfig.Config, logger *logging.Logger) *time.Location {
	if cfg == nil || strings.TrimSpace(cfg.DefaultTimezone) == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(cfg.DefaultTimezone)
	if err != nil {
		if logger == nil {
			logger = logging.Default()
		}
		logger.Warn("invalid timezone; using UTC", "timezone", cfg.DefaultTimezone, "error", err)
		return time.UTC
	}
	return loc
}
