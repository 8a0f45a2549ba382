package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/Smartconnectcrm/smartconnect-website/config"
	"github.com/Smartconnectcrm/smartconnect-website/logger"
	"github.com/Smartconnectcrm/smartconnect-website/store"
	"github.com/Smartconnectcrm/smartconnect-website/types"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	auditSubjectRunes = 80
	auditWriteTimeout = 2 * time.Second
)

// ErrAuditDisabled is returned by reads when no audit store is configured.
var ErrAuditDisabled = errors.New("audit log disabled")

// AuditService records admission decisions without ever holding the raw
// address or message. Writes are best effort.
type AuditService struct {
	store     store.AuditStore
	enabled   bool
	retention time.Duration
	salt      []byte
	failures  prometheus.Counter
	now       func() time.Time
}

func NewAuditService(st store.AuditStore, cfg config.AuditConfig) *AuditService {
	return NewAuditServiceWithRegistry(st, cfg, prometheus.DefaultRegisterer)
}

func NewAuditServiceWithRegistry(st store.AuditStore, cfg config.AuditConfig, reg prometheus.Registerer) *AuditService {
	failures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "smartconnect_audit_write_failures_total",
		Help: "Audit entries that could not be written",
	})
	reg.MustRegister(failures)

	var salt []byte
	if cfg.HashSalt != "" {
		salt = []byte(cfg.HashSalt)
	}
	return &AuditService{
		store:     st,
		enabled:   cfg.Enabled && st != nil,
		retention: cfg.Retention,
		salt:      salt,
		failures:  failures,
		now:       time.Now,
	}
}

func (s *AuditService) Enabled() bool {
	return s.enabled
}

// HashEmail returns a hex digest of the lower-cased, trimmed address:
// HMAC-SHA256 when a salt is configured, SHA-256 otherwise. Empty in, empty out.
func (s *AuditService) HashEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return ""
	}
	if s.salt != nil {
		mac := hmac.New(sha256.New, s.salt)
		mac.Write([]byte(email))
		return hex.EncodeToString(mac.Sum(nil))
	}
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:])
}

// NewEntry builds the privacy-reduced record for one decision.
func (s *AuditService) NewEntry(traceID, clientIdentity, email, subject string, outcome types.AdmissionOutcome, reason string) types.AuditLogEntry {
	return types.AuditLogEntry{
		Timestamp:      s.now().UTC(),
		TraceID:        traceID,
		ClientIdentity: clientIdentity,
		EmailHash:      s.HashEmail(email),
		Subject:        truncateRunes(subject, auditSubjectRunes),
		Outcome:        outcome,
		Reason:         reason,
	}
}

// Record writes entry. Failures are logged and counted, never returned.
func (s *AuditService) Record(ctx context.Context, entry types.AuditLogEntry) {
	if !s.enabled {
		return
	}

	// The request may already be answered; the write gets its own short deadline.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditWriteTimeout)
	defer cancel()

	if err := s.store.Append(writeCtx, entry, s.retention); err != nil {
		s.failures.Inc()
		logger.GetLogger().Warnw("Failed to write audit entry",
			"error", err,
			"traceId", entry.TraceID,
			"outcome", entry.Outcome)
	}
}

// Recent returns up to limit entries, newest first.
func (s *AuditService) Recent(ctx context.Context, limit int) ([]types.AuditLogEntry, error) {
	if !s.enabled {
		return nil, ErrAuditDisabled
	}
	return s.store.Recent(ctx, limit)
}

// RunRetentionJanitor purges expired entries every interval until ctx ends.
// Stores that expire records natively are left alone.
func (s *AuditService) RunRetentionJanitor(ctx context.Context, interval time.Duration) {
	expiring, ok := s.store.(store.ExpiringStore)
	if !s.enabled || !ok {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		s.purgeExpired(ctx, expiring)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *AuditService) purgeExpired(ctx context.Context, expiring store.ExpiringStore) {
	log := logger.GetLogger()
	n, err := expiring.PurgeExpired(ctx, s.now())
	if err != nil {
		if ctx.Err() == nil {
			log.Warnw("Audit retention purge failed", "error", err)
		}
		return
	}
	if n > 0 {
		log.Infow("Purged expired audit entries", "count", n)
	}
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == max {
			return s[:pos]
		}
		i++
	}
	return s
}
