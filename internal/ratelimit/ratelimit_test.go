package ratelimit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/plantkeeper/internal/apperror"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type failingStore struct{}

func (failingStore) Load(context.Context, string) ([]time.Time, error) {
	return nil, errors.New("cache down")
}

func (failingStore) Save(context.Context, string, []time.Time, time.Duration) error {
	return errors.New("cache down")
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestLimiter(limit int, period time.Duration) (*Limiter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	return New(limit, period, NewMemoryStore(), discard(), WithClock(clock.Now)), clock
}

func TestAllow_RejectsAfterLimit(t *testing.T) {
	l, clock := newTestLimiter(DefaultLimit, DefaultPeriod)
	ctx := context.Background()

	for i := 0; i < DefaultLimit; i++ {
		d, err := l.Allow(ctx, "10.0.0.1")
		require.NoError(t, err, "request %d", i+1)
		assert.Equal(t, DefaultLimit-i-1, d.Remaining)
		clock.Advance(100 * time.Millisecond)
	}

	_, err := l.Allow(ctx, "10.0.0.1")
	require.ErrorIs(t, err, apperror.ErrRateLimited)

	var exceeded *ExceededError
	require.ErrorAs(t, err, &exceeded)
	assert.Equal(t, DefaultLimit, exceeded.Limit)
	assert.Equal(t, 0, exceeded.Remaining)
	// oldest request was 10s ago, so it leaves the window in 50s
	assert.Equal(t, 50*time.Second, exceeded.Reset)
	assert.Equal(t, 50, exceeded.ResetSeconds())
}

func TestAllow_WindowResets(t *testing.T) {
	l, clock := newTestLimiter(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := l.Allow(ctx, "a")
		require.NoError(t, err)
	}
	_, err := l.Allow(ctx, "a")
	require.Error(t, err)

	clock.Advance(time.Minute)

	d, err := l.Allow(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 2, d.Remaining)
}

func TestAllow_SlidingNotFixed(t *testing.T) {
	l, clock := newTestLimiter(2, 10*time.Second)
	ctx := context.Background()

	_, err := l.Allow(ctx, "a")
	require.NoError(t, err)
	clock.Advance(6 * time.Second)
	_, err = l.Allow(ctx, "a")
	require.NoError(t, err)

	clock.Advance(4 * time.Second)
	// first request is exactly period old and has left the window
	_, err = l.Allow(ctx, "a")
	require.NoError(t, err)

	_, err = l.Allow(ctx, "a")
	var exceeded *ExceededError
	require.ErrorAs(t, err, &exceeded)
	assert.Equal(t, 6*time.Second, exceeded.Reset)
}

func TestAllow_RejectionDoesNotExtendWindow(t *testing.T) {
	l, clock := newTestLimiter(1, 10*time.Second)
	ctx := context.Background()

	_, err := l.Allow(ctx, "a")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		clock.Advance(time.Second)
		_, err = l.Allow(ctx, "a")
		require.Error(t, err)
	}

	clock.Advance(5 * time.Second)
	_, err = l.Allow(ctx, "a")
	assert.NoError(t, err)
}

func TestAllow_IdentitiesAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(1, time.Minute)
	ctx := context.Background()

	_, err := l.Allow(ctx, "a")
	require.NoError(t, err)
	_, err = l.Allow(ctx, "b")
	require.NoError(t, err)
	_, err = l.Allow(ctx, "a")
	assert.Error(t, err)
}

func TestAllow_FailsOpenOnStoreError(t *testing.T) {
	l := New(1, time.Minute, failingStore{}, discard())

	for i := 0; i < 5; i++ {
		_, err := l.Allow(context.Background(), "a")
		require.NoError(t, err)
	}
}

func TestAllow_ConcurrentBurstNeverOverAdmits(t *testing.T) {
	l, _ := newTestLimiter(50, time.Minute)
	ctx := context.Background()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
	)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Allow(ctx, "burst"); err == nil {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, admitted)
}

func TestMemoryStore_ExpiresIdleIdentity(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.Save(ctx, "k", []time.Time{now}, time.Millisecond))
	assert.Eventually(t, func() bool {
		w, err := s.Load(ctx, "k")
		return err == nil && w == nil
	}, time.Second, 5*time.Millisecond)
}

func TestIdentity(t *testing.T) {
	tests := []struct {
		remote string
		want   string
	}{
		{"192.0.2.1:1234", "192.0.2.1"},
		{"[2001:db8::1]:80", "2001:db8::1"},
		{"203.0.113.9", "203.0.113.9"},
		{"", "unknown"},
		{"garbage", "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.remote, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			assert.Equal(t, tt.want, Identity(r))
		})
	}
}
