package gateway

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/riftscope/riftscope/internal/ratelimit"
	"github.com/riftscope/riftscope/internal/rescache"
)

// PersistentCache is the sqlite-backed second cache tier. It survives
// restarts and serves stale payloads when the upstream is down.
type PersistentCache interface {
	Store(table, key string, value interface{}, ttl time.Duration) error
	GetIfFresh(table, key string, out interface{}) (bool, error)
	Get(table, key string, out interface{}) (bool, error)
}

// Config holds the gateway retry policy.
type Config struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// Gateway composes the response cache, the rate limiter and the retry policy
// into a single fetch-or-serve-cached entry point. Retryable failures are
// contained here; only terminal failures cross the gateway boundary.
type Gateway struct {
	cache   *rescache.Cache
	persist PersistentCache // Optional; nil disables the persistent tier
	limiter *ratelimit.Limiter
	client  *Client
	cfg     Config
	log     zerolog.Logger

	persistTTLs map[string]time.Duration
}

// New creates a gateway. persist may be nil.
func New(
	cache *rescache.Cache,
	persist PersistentCache,
	limiter *ratelimit.Limiter,
	client *Client,
	cfg Config,
	persistTTLs map[string]time.Duration,
	log zerolog.Logger,
) *Gateway {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 10 * time.Second
	}
	return &Gateway{
		cache:       cache,
		persist:     persist,
		limiter:     limiter,
		client:      client,
		cfg:         cfg,
		persistTTLs: persistTTLs,
		log:         log.With().Str("component", "gateway").Logger(),
	}
}

// classFor maps an endpoint family onto its in-memory cache class.
func classFor(family string) rescache.Class {
	switch family {
	case FamilyAccount, FamilySummoner:
		return rescache.ClassSummoner
	case FamilyStatic:
		return rescache.ClassStaticReference
	default:
		return rescache.ClassRecentMatches
	}
}

// tableFor maps an endpoint family onto its persistent cache table.
func tableFor(family string) string {
	return "upstream_" + family
}

// Fetch returns the payload for the logical request, serving from cache when
// possible. A nil payload with nil error means the upstream resource does not
// exist (404); absence is data and is cached like any other result.
func (g *Gateway) Fetch(ctx context.Context, req Request) ([]byte, error) {
	key := req.CacheKey()

	value, err := g.cache.GetOrFetch(ctx, key, classFor(req.Family), func(ctx context.Context) (interface{}, error) {
		return g.fetchUpstream(ctx, req, key)
	})
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, nil
	}
	return value.([]byte), nil
}

// Invalidate drops the cached response for a logical request from the
// in-memory tier.
func (g *Gateway) Invalidate(req Request) {
	g.cache.Invalidate(req.CacheKey())
}

// fetchUpstream checks the persistent tier, then calls the provider with the
// full retry policy applied.
func (g *Gateway) fetchUpstream(ctx context.Context, req Request, key string) (interface{}, error) {
	table := tableFor(req.Family)

	if g.persist != nil {
		var payload []byte
		if ok, err := g.persist.GetIfFresh(table, key, &payload); err == nil && ok {
			g.log.Debug().Str("family", req.Family).Str("key", key).Msg("Persistent cache hit")
			return payload, nil
		}
	}

	payload, err := g.callWithRetry(ctx, req)
	if err != nil {
		// Stale data beats no data when the upstream is merely unavailable.
		if IsUnavailable(err) && g.persist != nil {
			var stale []byte
			if ok, staleErr := g.persist.Get(table, key, &stale); staleErr == nil && ok {
				g.log.Warn().
					Str("family", req.Family).
					Str("key", key).
					Msg("Upstream unavailable, serving stale cached payload")
				return stale, nil
			}
		}
		return nil, err
	}

	if payload != nil && g.persist != nil {
		ttl := g.persistTTLs[req.Family]
		if ttl <= 0 {
			ttl = 10 * time.Minute
		}
		if storeErr := g.persist.Store(table, key, payload, ttl); storeErr != nil {
			g.log.Warn().Err(storeErr).Str("key", key).Msg("Failed to persist upstream payload")
		}
	}

	return payload, nil
}

// callWithRetry applies the taxonomy-driven retry policy:
//   - 429: report to the limiter (its penalty enforces the wait) and retry
//     within the attempt budget; Throttled when exhausted.
//   - network/5xx: exponential backoff with jitter; UpstreamUnavailable when
//     exhausted.
//   - other 4xx: RejectedError immediately, never retried.
func (g *Gateway) callWithRetry(ctx context.Context, req Request) ([]byte, error) {
	var lastRetryAfter time.Duration
	var lastStatus int

	for attempt := 1; attempt <= g.cfg.MaxAttempts; attempt++ {
		if err := g.limiter.Acquire(ctx, req.Family); err != nil {
			return nil, err
		}

		result, err := g.client.Do(ctx, req)
		if err != nil {
			// Transport-level failure: transient.
			if ctx.Err() != nil {
				return nil, &UnavailableError{Err: ctx.Err()}
			}
			lastStatus = 0
			if attempt < g.cfg.MaxAttempts {
				if sleepErr := g.backoff(ctx, attempt); sleepErr != nil {
					return nil, &UnavailableError{Err: sleepErr}
				}
				continue
			}
			return nil, &UnavailableError{Err: err}
		}

		switch result.Outcome {
		case OutcomeSuccess:
			g.limiter.ReportSuccess(req.Family)
			return result.Payload, nil

		case OutcomeNotFound:
			g.limiter.ReportSuccess(req.Family)
			return nil, nil

		case OutcomeThrottled:
			lastRetryAfter = g.limiter.ReportThrottled(req.Family, result.RetryAfter)
			if attempt == g.cfg.MaxAttempts {
				return nil, &ThrottledError{RetryAfter: lastRetryAfter}
			}
			// No explicit sleep: the next Acquire waits out the penalty,
			// or fails fast if the caller's deadline cannot cover it.
			if deadline, ok := ctx.Deadline(); ok && time.Now().Add(lastRetryAfter).After(deadline) {
				return nil, &ThrottledError{RetryAfter: lastRetryAfter}
			}

		case OutcomeTransient:
			lastStatus = result.Status
			if attempt == g.cfg.MaxAttempts {
				return nil, &UnavailableError{Status: lastStatus}
			}
			if sleepErr := g.backoff(ctx, attempt); sleepErr != nil {
				return nil, &UnavailableError{Status: lastStatus, Err: sleepErr}
			}

		case OutcomePermanent:
			return nil, &RejectedError{Status: result.Status}
		}
	}

	// Unreachable: every branch above returns or continues inside the budget.
	return nil, &UnavailableError{Status: lastStatus}
}

// backoff sleeps for base*2^(attempt-1) with jitter, capped, honoring ctx.
func (g *Gateway) backoff(ctx context.Context, attempt int) error {
	delay := g.cfg.BaseBackoff << uint(attempt-1)
	if delay > g.cfg.MaxBackoff || delay <= 0 {
		delay = g.cfg.MaxBackoff
	}
	delay += time.Duration(rand.Int63n(int64(delay)/10 + 1))

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
