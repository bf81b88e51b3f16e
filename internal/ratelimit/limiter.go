package ratelimit

import (
	"log/slog"
	"sync"
	"time"
)

// sweepInterval is how often expired buckets are evicted. Without eviction
// the store grows by one entry per distinct identifier ever seen.
const sweepInterval = 10 * time.Minute

// sweepHorizon is the age past which a bucket is certainly expired. It must
// exceed the longest policy window in use.
const sweepHorizon = time.Hour

// Limiter tracks request counts per identifier within a fixed window and
// decides admit/deny. Safe for concurrent use.
type Limiter struct {
	store Store

	// mu serializes the check-expiry/increment cycle. The read and the
	// write must be one atomic step; a suspension point between them would
	// reintroduce the lost-update race.
	mu sync.Mutex

	now func() time.Time

	sweep *time.Ticker
	stop  chan struct{}
	done  sync.Once
}

// New creates a Limiter backed by store and starts the eviction sweep.
// Call Stop when the limiter is no longer needed.
func New(store Store) *Limiter {
	l := &Limiter{
		store: store,
		now:   time.Now,
		sweep: time.NewTicker(sweepInterval),
		stop:  make(chan struct{}),
	}

	go l.sweepExpired()

	return l
}

// Admit records one request for identifier under cfg and reports whether the
// request exceeded the policy. Admission never fails: it is arithmetic over
// the backing store. Every call counts toward the window, admitted or not.
//
// Buckets are isolated: requests for one identifier never affect the count
// of another, including when both use the same policy.
func (l *Limiter) Admit(identifier string, cfg Config) Result {
	if cfg.Window <= 0 || cfg.MaxRequests <= 0 {
		cfg = Default
	}

	key := bucketKey(identifier, cfg)
	now := l.now()

	l.mu.Lock()
	entry, ok := l.store.Get(key)
	if !ok || now.Sub(entry.WindowStart) >= cfg.Window {
		// First request ever, or the window expired: start a fresh window
		// before counting this request.
		entry = Entry{WindowStart: now}
	}
	entry.Count++
	l.store.Set(key, entry)
	l.mu.Unlock()

	return Result{
		Limited: entry.Count > cfg.MaxRequests,
		Current: entry.Count,
		Limit:   cfg.MaxRequests,
		ResetIn: cfg.Window - now.Sub(entry.WindowStart),
	}
}

// IsOverLimit is a convenience wrapper around Admit that discards the count
// detail. Note that the call still counts toward the window.
func (l *Limiter) IsOverLimit(identifier string, cfg Config) bool {
	return l.Admit(identifier, cfg).Limited
}

// Stop terminates the eviction sweep goroutine.
func (l *Limiter) Stop() {
	l.done.Do(func() {
		close(l.stop)
	})
}

// sweepExpired periodically evicts buckets whose windows are long gone.
func (l *Limiter) sweepExpired() {
	for {
		select {
		case <-l.sweep.C:
			now := l.now()
			evicted := 0
			l.store.Range(func(key string, entry Entry) bool {
				if now.Sub(entry.WindowStart) >= sweepHorizon {
					l.mu.Lock()
					// Re-check under the lock: the bucket may have been
					// refreshed since the snapshot.
					if current, ok := l.store.Get(key); ok && now.Sub(current.WindowStart) >= sweepHorizon {
						l.store.Delete(key)
						evicted++
					}
					l.mu.Unlock()
				}
				return true
			})
			if evicted > 0 {
				slog.Debug("evicted expired rate limit buckets", "count", evicted)
			}
		case <-l.stop:
			l.sweep.Stop()
			return
		}
	}
}

// bucketKey derives the store key. The policy name is part of the key so the
// same identifier is tracked independently per policy.
func bucketKey(identifier string, cfg Config) string {
	return identifier + "|" + cfg.Name
}
