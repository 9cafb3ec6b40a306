// Package ratelimit enforces the upstream provider's quota windows.
//
// A permit is granted only when both the short window (requests/second) and
// the long window (requests/2min) have headroom, and no throttle penalty is
// active for the endpoint family. Waiters queue FIFO per family so a caller
// can never be starved by newer arrivals.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// RateLimitExceededError is returned when a permit cannot be granted within
// the caller's deadline. SuggestedDelay tells the caller when to retry.
type RateLimitExceededError struct {
	Family         string
	SuggestedDelay time.Duration
}

func (e *RateLimitExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s, retry in %s", e.Family, e.SuggestedDelay)
}

// Config holds the quota window sizes and throttle backoff policy.
type Config struct {
	ShortWindow time.Duration
	ShortLimit  int
	LongWindow  time.Duration
	LongLimit   int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// Status is a point-in-time view of one family's quota state, for monitoring.
type Status struct {
	Family               string    `json:"family"`
	RequestsShortWindow  int       `json:"requests_short_window"`
	RequestsLongWindow   int       `json:"requests_long_window"`
	ShortLimit           int       `json:"short_limit"`
	LongLimit            int       `json:"long_limit"`
	PenaltyActive        bool      `json:"penalty_active"`
	PenaltyUntil         time.Time `json:"penalty_until,omitempty"`
	ConsecutiveThrottles int       `json:"consecutive_throttles"`
	Waiters              int       `json:"waiters"`
}

// Limiter enforces two overlapping sliding quota windows per endpoint family
// plus an adaptive penalty state fed by upstream throttling signals.
type Limiter struct {
	cfg Config
	log zerolog.Logger

	mu       sync.Mutex
	families map[string]*familyState

	// now is swappable for tests
	now func() time.Time
}

type familyState struct {
	short *window
	long  *window

	penaltyUntil         time.Time
	consecutiveThrottles int

	// FIFO queue of waiting acquirers; only the head may take a permit
	waiters []*waiter
}

type waiter struct {
	ready chan struct{} // signalled when the waiter becomes head of the queue
}

// window tracks request timestamps inside a sliding interval.
type window struct {
	duration   time.Duration
	limit      int
	timestamps []time.Time
}

func newWindow(duration time.Duration, limit int) *window {
	return &window{duration: duration, limit: limit}
}

// prune drops timestamps that have slid out of the window.
func (w *window) prune(now time.Time) {
	cutoff := now.Add(-w.duration)
	i := 0
	for i < len(w.timestamps) && !w.timestamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.timestamps = w.timestamps[i:]
	}
}

// freeAt returns the earliest instant a new request fits in the window.
// Returns the zero time when there is headroom right now.
func (w *window) freeAt(now time.Time) time.Time {
	w.prune(now)
	if len(w.timestamps) < w.limit {
		return time.Time{}
	}
	// The slot frees when the (len-limit+1)-th oldest timestamp expires.
	return w.timestamps[len(w.timestamps)-w.limit].Add(w.duration)
}

func (w *window) record(now time.Time) {
	w.timestamps = append(w.timestamps, now)
}

// New creates a rate limiter with the given quota configuration.
func New(cfg Config, log zerolog.Logger) *Limiter {
	return &Limiter{
		cfg:      cfg,
		log:      log.With().Str("component", "ratelimit").Logger(),
		families: make(map[string]*familyState),
		now:      time.Now,
	}
}

func (l *Limiter) family(name string) *familyState {
	f, ok := l.families[name]
	if !ok {
		f = &familyState{
			short: newWindow(l.cfg.ShortWindow, l.cfg.ShortLimit),
			long:  newWindow(l.cfg.LongWindow, l.cfg.LongLimit),
		}
		l.families[name] = f
	}
	return f
}

// permitDelay returns how long the head waiter must wait for a permit.
// Zero or negative means a permit is available now. Callers hold l.mu.
func (l *Limiter) permitDelay(f *familyState, now time.Time) time.Duration {
	earliest := f.penaltyUntil
	if t := f.short.freeAt(now); t.After(earliest) {
		earliest = t
	}
	if t := f.long.freeAt(now); t.After(earliest) {
		earliest = t
	}
	return earliest.Sub(now)
}

// Acquire blocks until a permit is granted for the endpoint family, the
// context is cancelled, or the context deadline provably cannot be met.
// Cancelled or expired callers release their queue slot without consuming
// a permit.
func (l *Limiter) Acquire(ctx context.Context, family string) error {
	w := &waiter{ready: make(chan struct{}, 1)}

	l.mu.Lock()
	f := l.family(family)
	f.waiters = append(f.waiters, w)
	isHead := len(f.waiters) == 1
	l.mu.Unlock()

	if isHead {
		w.signal()
	}

	for {
		select {
		case <-ctx.Done():
			l.abandon(family, w)
			return fmt.Errorf("rate limit acquire cancelled for %s: %w", family, ctx.Err())
		case <-w.ready:
		}

		l.mu.Lock()
		if len(f.waiters) == 0 || f.waiters[0] != w {
			// Spurious wakeup after reordering; wait for our turn.
			l.mu.Unlock()
			continue
		}

		now := l.now()
		delay := l.permitDelay(f, now)
		if delay <= 0 {
			f.short.record(now)
			f.long.record(now)
			f.waiters = f.waiters[1:]
			l.wakeHead(f)
			l.mu.Unlock()
			return nil
		}
		l.mu.Unlock()

		// Fail fast when the wait provably exceeds the caller's deadline.
		if deadline, ok := ctx.Deadline(); ok && l.now().Add(delay).After(deadline) {
			l.abandon(family, w)
			return &RateLimitExceededError{Family: family, SuggestedDelay: delay}
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			l.abandon(family, w)
			return fmt.Errorf("rate limit acquire cancelled for %s: %w", family, ctx.Err())
		case <-timer.C:
			// Still head; re-check the windows.
			w.signal()
		}
	}
}

// abandon removes a waiter from the queue, waking the next head if needed.
func (l *Limiter) abandon(family string, w *waiter) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f := l.family(family)
	for i, queued := range f.waiters {
		if queued == w {
			wasHead := i == 0
			f.waiters = append(f.waiters[:i], f.waiters[i+1:]...)
			if wasHead {
				l.wakeHead(f)
			}
			return
		}
	}
}

// wakeHead signals the current head waiter. Callers hold l.mu.
func (l *Limiter) wakeHead(f *familyState) {
	if len(f.waiters) > 0 {
		f.waiters[0].signal()
	}
}

func (w *waiter) signal() {
	select {
	case w.ready <- struct{}{}:
	default:
	}
}

// ReportThrottled records an upstream throttling signal (HTTP 429) for the
// family. The penalty delay is max(retryAfterHint, base*2^consecutive) with
// jitter, capped at MaxBackoff. While the penalty is active no permits are
// granted for the family.
func (l *Limiter) ReportThrottled(family string, retryAfterHint time.Duration) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	f := l.family(family)

	backoff := l.cfg.BaseBackoff << uint(f.consecutiveThrottles)
	if backoff > l.cfg.MaxBackoff || backoff <= 0 {
		backoff = l.cfg.MaxBackoff
	}
	delay := backoff
	if retryAfterHint > delay {
		delay = retryAfterHint
	}
	// Up to 10% jitter so synchronized callers don't retry in lockstep
	delay += time.Duration(rand.Int63n(int64(delay)/10 + 1))

	f.consecutiveThrottles++
	f.penaltyUntil = l.now().Add(delay)

	l.log.Warn().
		Str("family", family).
		Dur("delay", delay).
		Int("consecutive_throttles", f.consecutiveThrottles).
		Msg("Upstream throttled, penalty active")

	return delay
}

// ReportSuccess records a successful upstream response, resetting the
// family's throttle streak.
func (l *Limiter) ReportSuccess(family string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f := l.family(family)
	if f.consecutiveThrottles > 0 {
		l.log.Info().Str("family", family).Msg("Upstream recovered, resetting throttle state")
	}
	f.consecutiveThrottles = 0
}

// ConsecutiveThrottles returns the family's current throttle streak.
func (l *Limiter) ConsecutiveThrottles(family string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.family(family).consecutiveThrottles
}

// Statuses returns a monitoring snapshot for every known family, ordered by
// family name.
func (l *Limiter) Statuses() []Status {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	names := make([]string, 0, len(l.families))
	for name := range l.families {
		names = append(names, name)
	}
	sort.Strings(names)

	statuses := make([]Status, 0, len(l.families))
	for _, name := range names {
		f := l.families[name]
		f.short.prune(now)
		f.long.prune(now)
		statuses = append(statuses, Status{
			Family:               name,
			RequestsShortWindow:  len(f.short.timestamps),
			RequestsLongWindow:   len(f.long.timestamps),
			ShortLimit:           l.cfg.ShortLimit,
			LongLimit:            l.cfg.LongLimit,
			PenaltyActive:        f.penaltyUntil.After(now),
			PenaltyUntil:         f.penaltyUntil,
			ConsecutiveThrottles: f.consecutiveThrottles,
			Waiters:              len(f.waiters),
		})
	}
	return statuses
}

// IsRateLimitExceeded reports whether err is a deadline-bounded acquire failure.
func IsRateLimitExceeded(err error) bool {
	var rle *RateLimitExceededError
	return errors.As(err, &rle)
}
