package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riftscope/riftscope/internal/ratelimit"
	"github.com/riftscope/riftscope/internal/rescache"
)

func testLimiter() *ratelimit.Limiter {
	return ratelimit.New(ratelimit.Config{
		ShortWindow: time.Second,
		ShortLimit:  100,
		LongWindow:  2 * time.Minute,
		LongLimit:   1000,
		BaseBackoff: 100 * time.Millisecond,
		MaxBackoff:  5 * time.Second,
	}, zerolog.Nop())
}

func testGateway(t *testing.T, handler http.Handler, cfg Config, persist PersistentCache) (*Gateway, *ratelimit.Limiter) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cache := rescache.New(rescache.Config{
		TTLs: map[rescache.Class]time.Duration{
			rescache.ClassRecentMatches: time.Minute,
		},
	}, zerolog.Nop())

	limiter := testLimiter()
	client := NewClientWithBaseURL("test-key", srv.URL, zerolog.Nop())

	return New(cache, persist, limiter, client, cfg, nil, zerolog.Nop()), limiter
}

func matchRequest() Request {
	return Request{
		Family: FamilyMatchDetail,
		Region: "euw1",
		Path:   "/lol/match/v5/matches/EUW1_100",
	}
}

func TestFetchSuccessIsCached(t *testing.T) {
	var calls atomic.Int32
	gw, _ := testGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"ok":true}`))
	}), Config{MaxAttempts: 3}, nil)

	ctx := context.Background()
	payload, err := gw.Fetch(ctx, matchRequest())
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(payload))

	// Second fetch for the same logical request never reaches upstream.
	payload, err = gw.Fetch(ctx, matchRequest())
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(payload))
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchThrottledThenSuccess(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`[]`))
	})

	gw, limiter := testGateway(t, handler, Config{MaxAttempts: 3}, nil)

	start := time.Now()
	payload, err := gw.Fetch(context.Background(), matchRequest())
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, `[]`, string(payload))
	assert.Equal(t, int32(2), calls.Load(), "one throttled call plus one successful retry")
	assert.GreaterOrEqual(t, elapsed, 2*time.Second, "retry must wait out the Retry-After hint")
	assert.Equal(t, 0, limiter.ConsecutiveThrottles(FamilyMatchDetail),
		"success resets the throttle streak")
}

func TestFetchThrottledBudgetExhausted(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	gw, _ := testGateway(t, handler, Config{MaxAttempts: 2, BaseBackoff: 10 * time.Millisecond}, nil)

	_, err := gw.Fetch(context.Background(), matchRequest())
	require.Error(t, err)
	assert.True(t, IsThrottled(err))
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchPermanentRejectionIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	})

	gw, _ := testGateway(t, handler, Config{MaxAttempts: 3}, nil)

	_, err := gw.Fetch(context.Background(), matchRequest())
	require.Error(t, err)
	assert.True(t, IsRejected(err))
	assert.Equal(t, int32(1), calls.Load(), "4xx other than 429 must not be retried")

	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, http.StatusForbidden, rejected.Status)

	// Rejections are not cached: the caller can retry immediately.
	_, err = gw.Fetch(context.Background(), matchRequest())
	require.Error(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchTransientRetriesThenUnavailable(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	gw, _ := testGateway(t, handler, Config{MaxAttempts: 3, BaseBackoff: 5 * time.Millisecond}, nil)

	_, err := gw.Fetch(context.Background(), matchRequest())
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
	assert.Equal(t, int32(3), calls.Load(), "5xx retries up to the attempt budget")
}

func TestFetchTransientRecovers(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"recovered":true}`))
	})

	gw, _ := testGateway(t, handler, Config{MaxAttempts: 3, BaseBackoff: 5 * time.Millisecond}, nil)

	payload, err := gw.Fetch(context.Background(), matchRequest())
	require.NoError(t, err)
	assert.JSONEq(t, `{"recovered":true}`, string(payload))
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchNotFoundIsDataNotFailure(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})

	gw, _ := testGateway(t, handler, Config{MaxAttempts: 3}, nil)

	ctx := context.Background()
	payload, err := gw.Fetch(ctx, matchRequest())
	require.NoError(t, err)
	assert.Nil(t, payload)

	// Absence is cached like any other answer.
	payload, err = gw.Fetch(ctx, matchRequest())
	require.NoError(t, err)
	assert.Nil(t, payload)
	assert.Equal(t, int32(1), calls.Load())
}

// memPersist is an in-memory stand-in for the sqlite persistent tier.
type memPersist struct {
	mu    sync.Mutex
	fresh map[string][]byte
	stale map[string][]byte
}

func newMemPersist() *memPersist {
	return &memPersist{fresh: map[string][]byte{}, stale: map[string][]byte{}}
}

func (m *memPersist) Store(table, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	payload := value.([]byte)
	m.fresh[table+"/"+key] = payload
	m.stale[table+"/"+key] = payload
	return nil
}

func (m *memPersist) GetIfFresh(table, key string, out interface{}) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	payload, ok := m.fresh[table+"/"+key]
	if !ok {
		return false, nil
	}
	*(out.(*[]byte)) = payload
	return true, nil
}

func (m *memPersist) Get(table, key string, out interface{}) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	payload, ok := m.stale[table+"/"+key]
	if !ok {
		return false, nil
	}
	*(out.(*[]byte)) = payload
	return true, nil
}

func TestFetchPersistentFreshHitSkipsUpstream(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	persist := newMemPersist()
	req := matchRequest()
	require.NoError(t, persist.Store("upstream_match_detail", req.CacheKey(), []byte(`{"stored":true}`), time.Minute))

	gw, _ := testGateway(t, handler, Config{MaxAttempts: 2, BaseBackoff: time.Millisecond}, persist)

	payload, err := gw.Fetch(context.Background(), req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"stored":true}`, string(payload))
	assert.Equal(t, int32(0), calls.Load())
}

func TestFetchStaleFallbackWhenUpstreamDown(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	persist := newMemPersist()
	req := matchRequest()
	// Only a stale copy exists.
	persist.stale["upstream_match_detail/"+req.CacheKey()] = []byte(`{"stale":true}`)

	gw, _ := testGateway(t, handler, Config{MaxAttempts: 2, BaseBackoff: time.Millisecond}, persist)

	payload, err := gw.Fetch(context.Background(), req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"stale":true}`, string(payload))
}

func TestCacheKeyStability(t *testing.T) {
	a := matchRequest()
	b := matchRequest()
	assert.Equal(t, a.CacheKey(), b.CacheKey())

	c := matchRequest()
	c.Path = "/lol/match/v5/matches/EUW1_101"
	assert.NotEqual(t, a.CacheKey(), c.CacheKey())
}

func TestClassify(t *testing.T) {
	h := http.Header{}
	h.Set("Retry-After", "7")

	assert.Equal(t, OutcomeSuccess, classify(200, nil, []byte("x")).Outcome)
	assert.Equal(t, OutcomeNotFound, classify(404, nil, nil).Outcome)

	throttled := classify(429, h, nil)
	assert.Equal(t, OutcomeThrottled, throttled.Outcome)
	assert.Equal(t, 7*time.Second, throttled.RetryAfter)

	assert.Equal(t, OutcomeTransient, classify(502, nil, nil).Outcome)
	assert.Equal(t, OutcomePermanent, classify(403, nil, nil).Outcome)
}
