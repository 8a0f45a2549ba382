package config

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/Smartconnectcrm/smartconnect-website/logger"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// RedisOptions builds client options for the shared counter and audit store.
// Short timeouts keep a slow Redis from stalling contact submissions.
func RedisOptions(cfg *RedisConfig) *redis.Options {
	opts := &redis.Options{
		Addr:            cfg.Address,
		Password:        cfg.Password,
		DB:              cfg.DB,
		PoolSize:        cfg.PoolSize,
		MinIdleConns:    cfg.MinIdleConns,
		ConnMaxLifetime: time.Hour,
		MaxRetries:      2,
		MinRetryBackoff: 50 * time.Millisecond,
		MaxRetryBackoff: 500 * time.Millisecond,
		DialTimeout:     3 * time.Second,
		ReadTimeout:     2 * time.Second,
		WriteTimeout:    2 * time.Second,
	}
	if cfg.UseTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	logger.GetLogger().Infow("Configuring Redis connection",
		"address", cfg.Address,
		"db", cfg.DB,
		"pool_size", cfg.PoolSize,
		"use_tls", cfg.UseTLS)
	return opts
}

// PingRedis retries a ping a few times so the server can start alongside Redis.
func PingRedis(ctx context.Context, client *redis.Client, attempts int, delay time.Duration) error {
	log := logger.GetLogger()
	var err error
	for i := 0; i < attempts; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err = client.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			return nil
		}
		log.Warnw("Failed to ping Redis, retrying", "error", err, "attempt", i+1, "max_attempts", attempts)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("redis unreachable after %d attempts: %w", attempts, err)
}

// PostgresPoolConfig builds a pgx pool config for the postgres audit backend.
func PostgresPoolConfig(cfg *DatabaseConfig) (*pgxpool.Config, error) {
	log := logger.GetLogger()
	connStr := cfg.URL()

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	if cfg.SSLMode == "require" || cfg.SSLMode == "verify-full" {
		poolConfig.ConnConfig.TLSConfig = &tls.Config{
			ServerName: cfg.Host,
			MinVersion: tls.VersionTLS12,
		}
	}

	connMaxLife, err := time.ParseDuration(cfg.ConnMaxLife)
	if err != nil {
		log.Warnw("Invalid connection max lifetime, using 30m", "value", cfg.ConnMaxLife, "error", err)
		connMaxLife = 30 * time.Minute
	}

	maxConns := cfg.MaxConnections
	if maxConns <= 0 {
		maxConns = 4
	}
	poolConfig.MaxConns = int32(maxConns)
	poolConfig.MinConns = 0
	poolConfig.MaxConnLifetime = connMaxLife
	poolConfig.HealthCheckPeriod = 30 * time.Second
	poolConfig.ConnConfig.ConnectTimeout = 5 * time.Second

	log.Infow("Configured database connection pool",
		"connection_string", logger.MaskConnectionString(connStr),
		"max_conns", poolConfig.MaxConns,
		"max_conn_lifetime", connMaxLife.String())
	return poolConfig, nil
}
