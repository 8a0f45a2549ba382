// Package postgres implements the audit store on PostgreSQL for deployments
// that keep the audit trail next to other relational data.
package postgres

import (
	"context"
	"time"

	"github.com/Smartconnectcrm/smartconnect-website/store"
	"github.com/Smartconnectcrm/smartconnect-website/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
)

// DBTX is the subset of *pgxpool.Pool the store needs.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
}

var (
	_ store.AuditStore    = (*AuditStore)(nil)
	_ store.ExpiringStore = (*AuditStore)(nil)
)

type AuditStore struct {
	db  DBTX
	now func() time.Time
}

func NewAuditStore(db DBTX) *AuditStore {
	return &AuditStore{db: db, now: time.Now}
}

const insertEntrySQL = `
	INSERT INTO contact_audit_log (
		trace_id, client_identity, email_hash, subject, outcome, reason, created_at, expires_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

func (s *AuditStore) Append(ctx context.Context, entry types.AuditLogEntry, ttl time.Duration) error {
	createdAt := entry.Timestamp.UTC()
	_, err := s.db.Exec(ctx, insertEntrySQL,
		entry.TraceID,
		entry.ClientIdentity,
		entry.EmailHash,
		entry.Subject,
		string(entry.Outcome),
		entry.Reason,
		createdAt,
		createdAt.Add(ttl),
	)
	if err != nil {
		return errors.Wrap(err, "insert audit entry")
	}
	return nil
}

const recentEntriesSQL = `
	SELECT created_at, trace_id, client_identity, email_hash, subject, outcome, reason
	FROM contact_audit_log
	WHERE expires_at > $1
	ORDER BY created_at DESC
	LIMIT $2`

func (s *AuditStore) Recent(ctx context.Context, limit int) ([]types.AuditLogEntry, error) {
	if limit <= 0 {
		return nil, store.ErrInvalidLimit
	}

	rows, err := s.db.Query(ctx, recentEntriesSQL, s.now().UTC(), limit)
	if err != nil {
		return nil, errors.Wrap(err, "query audit entries")
	}
	defer rows.Close()

	entries := make([]types.AuditLogEntry, 0, limit)
	for rows.Next() {
		var (
			entry   types.AuditLogEntry
			outcome string
		)
		if err := rows.Scan(
			&entry.Timestamp,
			&entry.TraceID,
			&entry.ClientIdentity,
			&entry.EmailHash,
			&entry.Subject,
			&outcome,
			&entry.Reason,
		); err != nil {
			return nil, errors.Wrapf(store.ErrCorruptEntry, "scan audit entry: %v", err)
		}
		entry.Outcome = types.AdmissionOutcome(outcome)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate audit entries")
	}
	return entries, nil
}

// PurgeExpired deletes rows whose retention ended at or before now.
func (s *AuditStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM contact_audit_log WHERE expires_at <= $1`, now.UTC())
	if err != nil {
		return 0, errors.Wrap(err, "purge expired audit entries")
	}
	return tag.RowsAffected(), nil
}

// Ping reports whether the database is reachable.
func (s *AuditStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
