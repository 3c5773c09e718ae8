// Package ratelimit keeps one token bucket per client for the daemon's
// network front ends.
package ratelimit

import (
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/yndnr/reasonjournal/pkg/cmap"
)

// DefaultIdle is how long an unused bucket is kept.
const DefaultIdle = time.Minute

// Limiter allows rps events per second per client key with the given burst.
type Limiter struct {
	buckets   *cmap.Map[string, *bucket]
	limit     rate.Limit
	burst     int
	idle      time.Duration
	lastSweep atomic.Int64
	now       func() time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

// New creates a limiter. Buckets idle for longer than DefaultIdle are
// dropped.
func New(rps float64, burst int) *Limiter {
	return &Limiter{
		buckets: cmap.New[string, *bucket](),
		limit:   rate.Limit(rps),
		burst:   burst,
		idle:    DefaultIdle,
		now:     time.Now,
	}
}

// Allow reports whether an event from key may proceed now.
func (l *Limiter) Allow(key string) bool {
	now := l.now()
	b, loaded := l.buckets.GetOrCompute(key, func() *bucket {
		return &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
	})
	b.lastSeen.Store(now.UnixNano())
	if !loaded {
		l.maybeSweep(now)
	}
	return b.limiter.AllowN(now, 1)
}

// maybeSweep drops idle buckets, at most once per idle period, when a new
// client shows up. The map stays bounded by recently active clients.
func (l *Limiter) maybeSweep(now time.Time) {
	last := l.lastSweep.Load()
	if now.UnixNano()-last < int64(l.idle) || !l.lastSweep.CompareAndSwap(last, now.UnixNano()) {
		return
	}
	cutoff := now.Add(-l.idle).UnixNano()
	l.buckets.DeleteFunc(func(_ string, b *bucket) bool {
		return b.lastSeen.Load() < cutoff
	})
}

// Len returns the number of tracked clients.
func (l *Limiter) Len() int {
	return l.buckets.Count()
}
