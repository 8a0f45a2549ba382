// Package redisstore implements the audit store on Redis string keys with native TTL.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/Smartconnectcrm/smartconnect-website/logger"
	"github.com/Smartconnectcrm/smartconnect-website/store"
	"github.com/Smartconnectcrm/smartconnect-website/types"
	"github.com/redis/go-redis/v9"
)

const (
	// KeyPrefix is shared with the previous site so existing entries stay readable.
	KeyPrefix = "contact:log:"

	keyTimeLayout = "20060102T150405.000000000"
	scanBatch     = 200
	maxScanKeys   = 20000
)

var _ store.AuditStore = (*AuditStore)(nil)

// AuditStore writes one key per entry: contact:log:<utc timestamp>:<trace id>.
// The timestamp layout sorts lexically, so key order is time order.
type AuditStore struct {
	client redis.Cmdable
}

func NewAuditStore(client redis.Cmdable) *AuditStore {
	return &AuditStore{client: client}
}

// EntryKey returns the key an entry is stored under.
func EntryKey(entry types.AuditLogEntry) string {
	return KeyPrefix + entry.Timestamp.UTC().Format(keyTimeLayout) + ":" + entry.TraceID
}

func (s *AuditStore) Append(ctx context.Context, entry types.AuditLogEntry, ttl time.Duration) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode audit entry: %w", err)
	}
	if err := s.client.Set(ctx, EntryKey(entry), string(data), ttl).Err(); err != nil {
		return fmt.Errorf("write audit entry: %w", err)
	}
	return nil
}

func (s *AuditStore) Recent(ctx context.Context, limit int) ([]types.AuditLogEntry, error) {
	if limit <= 0 {
		return nil, store.ErrInvalidLimit
	}

	keys, err := s.scanKeys(ctx)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return []types.AuditLogEntry{}, nil
	}

	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	if len(keys) > limit {
		keys = keys[:limit]
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("read audit entries: %w", err)
	}

	entries := make([]types.AuditLogEntry, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// expired between SCAN and MGET
			continue
		}
		var entry types.AuditLogEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil || entry.Timestamp.IsZero() {
			logger.GetLogger().Warnw("Skipping unreadable audit entry", "key", keys[i], "error", err)
			continue
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	return entries, nil
}

// scanKeys walks the keyspace with SCAN so a large audit trail never blocks Redis.
func (s *AuditStore) scanKeys(ctx context.Context) ([]string, error) {
	var (
		cursor uint64
		keys   []string
	)
	for {
		batch, next, err := s.client.Scan(ctx, cursor, KeyPrefix+"*", scanBatch).Result()
		if err != nil {
			return nil, fmt.Errorf("scan audit keys: %w", err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 || len(keys) >= maxScanKeys {
			return dedupe(keys), nil
		}
	}
}

// SCAN may return a key more than once.
func dedupe(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := keys[:0]
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
