package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Smartconnectcrm/smartconnect-website/logger"
	"github.com/Smartconnectcrm/smartconnect-website/store"
	"github.com/Smartconnectcrm/smartconnect-website/types"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.IsTest = true
}

func sampleEntry(ts time.Time, traceID string, outcome types.AdmissionOutcome) types.AuditLogEntry {
	return types.AuditLogEntry{
		Timestamp:      ts,
		TraceID:        traceID,
		ClientIdentity: "ip:203.0.113.7",
		EmailHash:      "5d41402abc4b2a76b9719d911017c592",
		Subject:        "Demo anfragen",
		Outcome:        outcome,
		Reason:         "",
	}
}

func encode(t *testing.T, entry types.AuditLogEntry) string {
	t.Helper()
	data, err := json.Marshal(entry)
	require.NoError(t, err)
	return string(data)
}

func TestEntryKey(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 589793000, time.FixedZone("CET", 3600))
	key := EntryKey(sampleEntry(ts, "trace-1", types.OutcomeSent))
	assert.Equal(t, "contact:log:20260314T082653.589793000:trace-1", key)
}

func TestAuditStore_Append(t *testing.T) {
	ctx := context.Background()
	entry := sampleEntry(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), "trace-append", types.OutcomeSent)
	ttl := 30 * 24 * time.Hour

	t.Run("writes entry with expiry", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		s := NewAuditStore(client)

		mock.ExpectSet(EntryKey(entry), encode(t, entry), ttl).SetVal("OK")

		require.NoError(t, s.Append(ctx, entry, ttl))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("surfaces redis failure", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		s := NewAuditStore(client)

		mock.ExpectSet(EntryKey(entry), encode(t, entry), ttl).SetErr(errors.New("connection refused"))

		err := s.Append(ctx, entry, ttl)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
	})
}

func TestAuditStore_Recent(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	older := sampleEntry(base, "trace-old", types.OutcomeBlockedHoneypot)
	middle := sampleEntry(base.Add(time.Minute), "trace-mid", types.OutcomeSent)
	newest := sampleEntry(base.Add(2*time.Minute), "trace-new", types.OutcomeBlockedRateLimit)

	t.Run("rejects non-positive limit", func(t *testing.T) {
		client, _ := redismock.NewClientMock()
		_, err := NewAuditStore(client).Recent(ctx, 0)
		assert.ErrorIs(t, err, store.ErrInvalidLimit)
	})

	t.Run("empty keyspace", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		mock.ExpectScan(0, KeyPrefix+"*", scanBatch).SetVal([]string{}, 0)

		got, err := NewAuditStore(client).Recent(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("newest first across scan pages and capped at limit", func(t *testing.T) {
		client, mock := redismock.NewClientMock()

		mock.ExpectScan(0, KeyPrefix+"*", scanBatch).SetVal([]string{EntryKey(middle), EntryKey(older)}, 17)
		mock.ExpectScan(17, KeyPrefix+"*", scanBatch).SetVal([]string{EntryKey(newest), EntryKey(middle)}, 0)
		mock.ExpectMGet(EntryKey(newest), EntryKey(middle)).SetVal([]interface{}{
			encode(t, newest),
			encode(t, middle),
		})

		got, err := NewAuditStore(client).Recent(ctx, 2)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "trace-new", got[0].TraceID)
		assert.Equal(t, "trace-mid", got[1].TraceID)
		assert.Equal(t, types.OutcomeBlockedRateLimit, got[0].Outcome)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("skips expired and corrupt entries", func(t *testing.T) {
		client, mock := redismock.NewClientMock()

		keys := []string{EntryKey(newest), EntryKey(middle), EntryKey(older)}
		mock.ExpectScan(0, KeyPrefix+"*", scanBatch).SetVal([]string{keys[2], keys[0], keys[1]}, 0)
		mock.ExpectMGet(keys...).SetVal([]interface{}{
			"{not json",
			nil,
			encode(t, older),
		})

		got, err := NewAuditStore(client).Recent(ctx, 50)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "trace-old", got[0].TraceID)
	})

	t.Run("scan failure", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		mock.ExpectScan(0, KeyPrefix+"*", scanBatch).SetErr(errors.New("LOADING"))

		_, err := NewAuditStore(client).Recent(ctx, 5)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "scan audit keys")
	})
}

func TestDedupe(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, dedupe([]string{"a", "b", "a", "c", "b"}))
	assert.Empty(t, dedupe(nil))
}
