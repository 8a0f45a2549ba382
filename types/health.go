package types

// HealthStatus is the state of the service or one of its dependencies.
type HealthStatus string

const (
	HealthStatusUp       HealthStatus = "UP"
	HealthStatusDown     HealthStatus = "DOWN"
	HealthStatusDegraded HealthStatus = "DEGRADED"
)

// Component names reported under HealthCheck.Components.
const (
	// ComponentRateLimitStore is the Redis instance behind the contact rate limiter.
	ComponentRateLimitStore = "redis"
	// ComponentAuditDatabase is the Postgres audit trail. Reported only when configured.
	ComponentAuditDatabase = "database"
)

var healthSeverity = map[HealthStatus]int{
	HealthStatusUp:       0,
	HealthStatusDegraded: 1,
	HealthStatusDown:     2,
}

// Worse returns the more severe of s and other. Unknown values rank as UP.
func (s HealthStatus) Worse(other HealthStatus) HealthStatus {
	if healthSeverity[other] > healthSeverity[s] {
		return other
	}
	return s
}

// HealthComponent is the state of one dependency.
type HealthComponent struct {
	Status  HealthStatus `json:"status"`
	Details string       `json:"details,omitempty"`
}

// HealthCheck is the body of the health endpoints.
// A degraded audit database or a fail-open rate-limit store still serves contact traffic.
type HealthCheck struct {
	Status     HealthStatus               `json:"status"`
	Components map[string]HealthComponent `json:"components"`
	Version    string                     `json:"version"`
	Timestamp  string                     `json:"timestamp"`
	Uptime     string                     `json:"uptime"`
}

// Ready reports whether the service can accept contact submissions.
func (h HealthCheck) Ready() bool {
	return h.Status != HealthStatusDown
}
