package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Smartconnectcrm/smartconnect-website/config"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
)

func newTestLimiter(t *testing.T, failClosed bool) (*RateLimitService, redismock.ClientMock) {
	t.Helper()
	client, mock := redismock.NewClientMock()
	svc := NewRateLimitServiceWithRegistry(client, config.RateLimitConfig{
		MaxSubmissions: 5,
		Window:         10 * time.Minute,
		FailClosed:     failClosed,
	}, &mockRegistry{})
	return svc, mock
}

func TestRateLimitService_CheckAndConsume(t *testing.T) {
	ctx := context.Background()
	key := "contact:rl:ip:203.0.113.9"
	windowMs := int64((10 * time.Minute).Milliseconds())

	tests := []struct {
		name          string
		count         int64
		ttlMs         int64
		wantAllowed   bool
		wantRemaining int
		wantRetry     time.Duration
	}{
		{"first submission", 1, windowMs, true, 4, 0},
		{"fifth submission is the last allowed", 5, 300000, true, 0, 0},
		{"sixth submission is blocked", 6, 299500, false, 0, 299500 * time.Millisecond},
		{"missing ttl falls back to window", 9, -1, false, 0, 10 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mock := newTestLimiter(t, false)
			mock.ExpectEvalSha(fixedWindowScript.Hash(), []string{key}, windowMs).
				SetVal([]interface{}{tt.count, tt.ttlMs})

			got := svc.CheckAndConsume(ctx, "ip:203.0.113.9")
			assert.Equal(t, tt.wantAllowed, got.Allowed)
			assert.Equal(t, tt.wantRemaining, got.Remaining)
			assert.Equal(t, tt.wantRetry, got.RetryAfter)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRateLimitService_StoreFailure(t *testing.T) {
	ctx := context.Background()
	key := "contact:rl:fp:abc"
	windowMs := int64((10 * time.Minute).Milliseconds())

	t.Run("fails open by default", func(t *testing.T) {
		svc, mock := newTestLimiter(t, false)
		mock.ExpectEvalSha(fixedWindowScript.Hash(), []string{key}, windowMs).
			SetErr(errors.New("dial tcp: connection refused"))

		got := svc.CheckAndConsume(ctx, "fp:abc")
		assert.True(t, got.Allowed)
		assert.Equal(t, 5, got.Remaining)
		assert.Equal(t, float64(1), testGetCounterValue(svc.storeErrors))
	})

	t.Run("fails closed when configured", func(t *testing.T) {
		svc, mock := newTestLimiter(t, true)
		mock.ExpectEvalSha(fixedWindowScript.Hash(), []string{key}, windowMs).
			SetErr(errors.New("i/o timeout"))

		got := svc.CheckAndConsume(ctx, "fp:abc")
		assert.False(t, got.Allowed)
		assert.Equal(t, 10*time.Minute, got.RetryAfter)
		assert.Equal(t, float64(1), testGetCounterValue(svc.storeErrors))
	})
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, 1, RetryAfterSeconds(0))
	assert.Equal(t, 1, RetryAfterSeconds(-time.Second))
	assert.Equal(t, 1, RetryAfterSeconds(200*time.Millisecond))
	assert.Equal(t, 2, RetryAfterSeconds(1001*time.Millisecond))
	assert.Equal(t, 300, RetryAfterSeconds(300*time.Second))
	assert.Equal(t, 600, RetryAfterSeconds(10*time.Minute))
}

func TestMemoryLimiter(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemoryLimiter(3, time.Minute, 2)
	m.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		assert.True(t, m.Allow("a"), "report %d", i+1)
	}
	assert.False(t, m.Allow("a"))

	assert.True(t, m.Allow("b"))
	assert.False(t, m.Allow("c"), "key table full")

	now = now.Add(61 * time.Second)
	assert.True(t, m.Allow("a"), "window reset")
	assert.True(t, m.Allow("c"), "expired keys collected")
}

func TestMemoryLimiter_Disabled(t *testing.T) {
	m := NewMemoryLimiter(0, time.Minute, 1)
	for i := 0; i < 10; i++ {
		assert.True(t, m.Allow("x"))
	}
}
