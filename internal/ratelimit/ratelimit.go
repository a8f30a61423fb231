// Package ratelimit implements a sliding-window request limiter keyed by
// client identity.
package ratelimit

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sakif/plantkeeper/internal/apperror"
	"github.com/sakif/plantkeeper/internal/metrics"
)

const (
	DefaultLimit  = 100
	DefaultPeriod = 60 * time.Second

	keyPrefix = "rate_limit_"
	shards    = 64
)

// Decision describes the state of an identity's window after an admitted request.
type Decision struct {
	Limit     int
	Remaining int
	Reset     time.Duration
}

// ExceededError is returned when an identity has used up its window.
type ExceededError struct {
	Limit     int
	Remaining int
	Reset     time.Duration
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("rate limit of %d requests exceeded, retry in %ds", e.Limit, e.ResetSeconds())
}

func (e *ExceededError) Unwrap() error {
	return apperror.ErrRateLimited
}

// ResetSeconds is the whole number of seconds until the oldest request leaves the window.
func (e *ExceededError) ResetSeconds() int {
	return int(e.Reset / time.Second)
}

type Option func(*Limiter)

// WithClock replaces time.Now. Tests use it to move the window without sleeping.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// Limiter admits at most limit requests per identity in any trailing period.
type Limiter struct {
	limit  int
	period time.Duration
	store  WindowStore
	logger *slog.Logger
	now    func() time.Time

	// Load-modify-save on one key runs under its shard lock so concurrent
	// bursts from one client cannot lose each other's timestamps.
	locks [shards]sync.Mutex
}

func New(limit int, period time.Duration, store WindowStore, logger *slog.Logger, opts ...Option) *Limiter {
	l := &Limiter{
		limit:  limit,
		period: period,
		store:  store,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Limiter) Limit() int { return l.limit }

// Allow records a request for identity or rejects it with *ExceededError.
//
// If the window store fails the request is admitted: availability of the
// API is preferred over strict enforcement. The failure is logged and counted.
func (l *Limiter) Allow(ctx context.Context, identity string) (Decision, error) {
	key := keyPrefix + identity
	mu := &l.locks[shard(key)]
	mu.Lock()
	defer mu.Unlock()

	now := l.now()
	window, err := l.store.Load(ctx, key)
	if err != nil {
		l.storeFailed("load", identity, err)
		return Decision{Limit: l.limit, Remaining: l.limit - 1, Reset: l.period}, nil
	}

	window = prune(window, now.Add(-l.period))
	if len(window) >= l.limit {
		metrics.RateLimitRejections.Inc()
		return Decision{}, &ExceededError{
			Limit:     l.limit,
			Remaining: 0,
			Reset:     window[0].Add(l.period).Sub(now),
		}
	}

	window = append(window, now)
	if err := l.store.Save(ctx, key, window, l.period); err != nil {
		l.storeFailed("save", identity, err)
	}

	return Decision{
		Limit:     l.limit,
		Remaining: l.limit - len(window),
		Reset:     window[0].Add(l.period).Sub(now),
	}, nil
}

func (l *Limiter) storeFailed(op, identity string, err error) {
	metrics.RateLimitStoreErrors.Inc()
	l.logger.Warn("rate limit store unavailable, admitting request",
		"op", op,
		"identity", identity,
		"error", err,
	)
}

// prune drops timestamps at or before cutoff. The result never aliases the
// input slice, so a stored window is never mutated in place.
func prune(window []time.Time, cutoff time.Time) []time.Time {
	out := make([]time.Time, 0, len(window)+1)
	for _, ts := range window {
		if ts.After(cutoff) {
			out = append(out, ts)
		}
	}
	return out
}

func shard(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32() % shards
}

// Identity resolves the client key for r: the host part of RemoteAddr, or
// "unknown" when the transport did not supply one.
func Identity(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if addr == "" {
		return "unknown"
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		// chi's RealIP stores a bare IP without a port.
		if ip := net.ParseIP(addr); ip != nil {
			return ip.String()
		}
		return "unknown"
	}
	if host == "" {
		return "unknown"
	}
	return host
}
