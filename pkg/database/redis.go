package database

import (
	"context"
	"fmt"
	"net"
	"quiz_engine_backend/internal/config"
	"quiz_engine_backend/pkg/logger"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const redisPingTimeout = 3 * time.Second

// RedisAddr is the host:port the session store connects to.
func RedisAddr(cfg *config.RedisConfig) string {
	return net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
}

// InitRedis connects the session snapshot store. Every session change is one
// SET with the session TTL, so the pool stays small.
func InitRedis(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	addr := RedisAddr(cfg)
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     20,
		MinIdleConns: 2,
		DialTimeout:  redisPingTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis %s db %d: %w", addr, cfg.DB, err)
	}

	logger.Log.Info("Redis session store connected",
		zap.String("addr", addr),
		zap.Int("db", cfg.DB),
		zap.Duration("sessionTTL", cfg.SessionTTL()),
	)
	return rdb, nil
}
