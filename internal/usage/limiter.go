package usage

import (
	"context"
	"fmt"
	"time"
)

// Decision is the outcome of a rate limit check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration // time until the current window ends
}

// Limiter allows at most Limit requests per key in each fixed window.
type Limiter struct {
	store  Store
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewLimiter(store Store, limit int, window time.Duration) *Limiter {
	return &Limiter{
		store:  store,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Allow counts one request for key. A limit <= 0 disables limiting.
func (l *Limiter) Allow(ctx context.Context, key string) (Decision, error) {
	if l.limit <= 0 || l.window <= 0 {
		return Decision{Allowed: true, Limit: l.limit, Remaining: -1}, nil
	}

	now := l.now()
	windowStart := now.Truncate(l.window)
	bucket := fmt.Sprintf("rate:%s:%d", key, windowStart.Unix())

	count, err := l.store.IncrBy(ctx, bucket, 1, l.window)
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit check failed: %w", err)
	}

	d := Decision{
		Allowed:   count <= int64(l.limit),
		Limit:     l.limit,
		Remaining: max(l.limit-int(count), 0),
	}
	if !d.Allowed {
		d.RetryAfter = windowStart.Add(l.window).Sub(now)
	}
	return d, nil
}

// Tracker accumulates transcribed media seconds per key for the retention
// period.
type Tracker struct {
	store     Store
	retention time.Duration
}

func NewTracker(store Store, retention time.Duration) *Tracker {
	return &Tracker{store: store, retention: retention}
}

func trackerKey(key string) string {
	return "seconds:" + key
}

// Add records seconds of processed media, rounded to whole seconds.
func (t *Tracker) Add(ctx context.Context, key string, seconds float64) (int64, error) {
	delta := int64(seconds + 0.5)
	if delta < 0 {
		delta = 0
	}
	total, err := t.store.IncrBy(ctx, trackerKey(key), delta, t.retention)
	if err != nil {
		return 0, fmt.Errorf("failed to record usage: %w", err)
	}
	return total, nil
}

// Total returns the seconds recorded for key in the retention period.
func (t *Tracker) Total(ctx context.Context, key string) (int64, error) {
	total, err := t.store.Get(ctx, trackerKey(key))
	if err != nil {
		return 0, fmt.Errorf("failed to read usage: %w", err)
	}
	return total, nil
}
