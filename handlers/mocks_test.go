package handlers

import (
	"context"

	"github.com/Smartconnectcrm/smartconnect-website/logger"
	"github.com/Smartconnectcrm/smartconnect-website/services"
	"github.com/Smartconnectcrm/smartconnect-website/types"
	"github.com/stretchr/testify/mock"
)

func init() {
	logger.IsTest = true
}

// MockAdmitter implements ContactAdmitter for handler tests.
type MockAdmitter struct {
	mock.Mock
}

func (m *MockAdmitter) Admit(ctx context.Context, sub services.Submission) types.AdmissionDecision {
	args := m.Called(ctx, sub)
	d := args.Get(0).(types.AdmissionDecision)
	d.TraceID = sub.TraceID
	return d
}

// MockAuditReader implements AuditReader.
type MockAuditReader struct {
	mock.Mock
}

func (m *MockAuditReader) Enabled() bool {
	return m.Called().Bool(0)
}

func (m *MockAuditReader) Recent(ctx context.Context, limit int) ([]types.AuditLogEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.AuditLogEntry), args.Error(1)
}

// MockHealthChecker implements HealthChecker.
type MockHealthChecker struct {
	mock.Mock
}

func (m *MockHealthChecker) CheckHealth(ctx context.Context) types.HealthCheck {
	return m.Called(ctx).Get(0).(types.HealthCheck)
}

type countingLimiter struct {
	allow bool
	keys  []string
}

func (l *countingLimiter) Allow(key string) bool {
	l.keys = append(l.keys, key)
	return l.allow
}
