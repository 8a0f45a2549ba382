package services

import (
	"context"
	"time"

	"github.com/Smartconnectcrm/smartconnect-website/logger"
	"github.com/Smartconnectcrm/smartconnect-website/types"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const databasePingAttempts = 3

// Pinger is satisfied by *pgxpool.Pool and the postgres audit store.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthService struct {
	dbPool      Pinger
	redisClient redis.Cmdable
	// redisCritical marks Redis as required: with a fail-closed limiter no
	// submission is accepted while it is unreachable.
	redisCritical bool
	version       string
	log           *zap.SugaredLogger
	startTime     time.Time
}

// NewHealthService builds the checker. dbPool may be nil when no database is configured.
func NewHealthService(dbPool Pinger, redisClient redis.Cmdable, redisCritical bool, version string) *HealthService {
	return &HealthService{
		dbPool:        dbPool,
		redisClient:   redisClient,
		redisCritical: redisCritical,
		version:       version,
		log:           logger.GetLogger(),
		startTime:     time.Now(),
	}
}

func (h *HealthService) CheckHealth(ctx context.Context) types.HealthCheck {
	components := make(map[string]types.HealthComponent)
	overallStatus := types.HealthStatusUp

	redisStatus := h.checkRedis(ctx)
	components[types.ComponentRateLimitStore] = redisStatus
	overallStatus = overallStatus.Worse(redisStatus.Status)

	if h.dbPool != nil {
		dbStatus := h.checkDatabase(ctx)
		components[types.ComponentAuditDatabase] = dbStatus
		overallStatus = overallStatus.Worse(dbStatus.Status)
	}

	return types.HealthCheck{
		Status:     overallStatus,
		Components: components,
		Version:    h.version,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Uptime:     time.Since(h.startTime).Round(time.Second).String(),
	}
}

// checkDatabase retries briefly; only the audit trail depends on it, so an
// outage degrades the service instead of taking it down.
func (h *HealthService) checkDatabase(ctx context.Context) types.HealthComponent {
	var err error
	for attempt := 1; attempt <= databasePingAttempts; attempt++ {
		if err = h.dbPool.Ping(ctx); err == nil {
			return types.HealthComponent{Status: types.HealthStatusUp}
		}
		if ctx.Err() != nil {
			break
		}
		if attempt < databasePingAttempts {
			select {
			case <-ctx.Done():
			case <-time.After(time.Duration(attempt) * 50 * time.Millisecond):
			}
		}
	}

	h.log.Errorw("Database health check failed", "error", err)
	return types.HealthComponent{
		Status:  types.HealthStatusDegraded,
		Details: "Database connection failed after multiple attempts",
	}
}

func (h *HealthService) checkRedis(ctx context.Context) types.HealthComponent {
	if err := h.redisClient.Ping(ctx).Err(); err != nil {
		h.log.Errorw("Redis health check failed", "error", err)
		status := types.HealthStatusDegraded
		if h.redisCritical {
			status = types.HealthStatusDown
		}
		return types.HealthComponent{
			Status:  status,
			Details: "Redis connection failed",
		}
	}

	return types.HealthComponent{
		Status: types.HealthStatusUp,
	}
}
