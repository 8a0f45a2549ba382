package handlers

import (
	"context"

	"github.com/Smartconnectcrm/smartconnect-website/services"
	"github.com/Smartconnectcrm/smartconnect-website/types"
)

// ContactAdmitter runs a submission through the admission pipeline.
type ContactAdmitter interface {
	Admit(ctx context.Context, sub services.Submission) types.AdmissionDecision
}

// AuditReader lists recent admission decisions.
type AuditReader interface {
	Enabled() bool
	Recent(ctx context.Context, limit int) ([]types.AuditLogEntry, error)
}

// HealthChecker reports the state of the backing services.
type HealthChecker interface {
	CheckHealth(ctx context.Context) types.HealthCheck
}

// ReportLimiter throttles low-value endpoints per client.
type ReportLimiter interface {
	Allow(key string) bool
}

var (
	_ ContactAdmitter = (*services.AdmissionService)(nil)
	_ AuditReader     = (*services.AuditService)(nil)
	_ HealthChecker   = (*services.HealthService)(nil)
	_ ReportLimiter   = (*services.MemoryLimiter)(nil)
)
