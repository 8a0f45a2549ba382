//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/Smartconnectcrm/smartconnect-website/db"
	"github.com/Smartconnectcrm/smartconnect-website/types"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

func setupAuditDatabase(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations(connStr))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestAuditStore_Integration(t *testing.T) {
	pool := setupAuditDatabase(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Millisecond)
	s := NewAuditStore(pool)
	s.now = func() time.Time { return base }

	entries := []types.AuditLogEntry{
		{Timestamp: base.Add(-3 * time.Minute), TraceID: "t-old", ClientIdentity: "ip:203.0.113.7", Outcome: types.OutcomeBlockedHoneypot, Reason: types.ReasonHoneypot},
		{Timestamp: base.Add(-2 * time.Minute), TraceID: "t-mid", ClientIdentity: "ip:203.0.113.7", EmailHash: "h", Subject: "Demo", Outcome: types.OutcomeSent},
		{Timestamp: base.Add(-1 * time.Minute), TraceID: "t-new", ClientIdentity: "fp:abc", Outcome: types.OutcomeBlockedRateLimit, Reason: types.ReasonRateLimited},
	}
	for _, e := range entries {
		require.NoError(t, s.Append(ctx, e, time.Hour))
	}
	// already past its retention
	require.NoError(t, s.Append(ctx, types.AuditLogEntry{
		Timestamp: base.Add(-2 * time.Hour), TraceID: "t-expired", ClientIdentity: "ip:x", Outcome: types.OutcomeSent,
	}, time.Minute))

	got, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "t-new", got[0].TraceID)
	assert.Equal(t, "t-mid", got[1].TraceID)
	assert.Equal(t, "Demo", got[1].Subject)
	assert.True(t, got[0].Timestamp.Equal(entries[2].Timestamp))

	all, err := s.Recent(ctx, 50)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	purged, err := s.PurgeExpired(ctx, base)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	require.NoError(t, s.Ping(ctx))
}
