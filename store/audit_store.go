// Package store defines the persistence contracts of the website backend.
// Implementations live in store/redisstore and store/postgres.
package store

import (
	"context"
	"time"

	"github.com/Smartconnectcrm/smartconnect-website/types"
)

// AuditStore persists admission audit entries with a retention period.
type AuditStore interface {
	// Append stores one entry that expires after ttl.
	Append(ctx context.Context, entry types.AuditLogEntry, ttl time.Duration) error
	// Recent returns up to limit unexpired entries, newest first.
	Recent(ctx context.Context, limit int) ([]types.AuditLogEntry, error)
}

// ExpiringStore is implemented by backends that do not expire records on their own.
type ExpiringStore interface {
	// PurgeExpired deletes entries whose retention ended before now and returns how many went.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
