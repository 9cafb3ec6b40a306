package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riftscope/riftscope/internal/analytics"
	"github.com/riftscope/riftscope/internal/config"
	"github.com/riftscope/riftscope/internal/domain"
	"github.com/riftscope/riftscope/internal/rescache"
)

type fixedRecordStore struct {
	records []domain.MatchParticipantRecord
}

func (s *fixedRecordStore) ListParticipantRecords(playerID string, since, until time.Time) ([]domain.MatchParticipantRecord, error) {
	return s.records, nil
}

func testRouter(records []domain.MatchParticipantRecord) *chi.Mux {
	engine := analytics.NewEngine(config.AnalyticsConfig{
		GPIKillWeight:       1.5,
		GPIDamageScale:      2000,
		GPICSReference:      8.0,
		GPIDeathFloor:       2.0,
		GPIDeathSlope:       1.5,
		GPIVisionReference:  50,
		GPIChampionPoolSize: 5.0,
		GPIVariancePenalty:  0.5,
		GPIVarianceCap:      3.0,
		RoleWeightWinRate:   0.35,
		RoleWeightKDA:       0.25,
		RoleWeightCS:        0.20,
		RoleWeightVision:    0.20,
		RoleMinGames:        3,
		DominanceThreshold:  0.15,
	})
	cache := rescache.New(rescache.Config{}, zerolog.Nop())
	service := analytics.NewService(engine, &fixedRecordStore{records: records}, cache, nil, time.Minute, zerolog.Nop())

	r := chi.NewRouter()
	NewHandler(service, zerolog.Nop()).RegisterRoutes(r)
	return r
}

func doRequest(t *testing.T, router http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestGetOverviewDefaultTimeframe(t *testing.T) {
	router := testRouter([]domain.MatchParticipantRecord{{
		MatchID:         "m1",
		PlayerID:        "p1",
		ChampionName:    "Ahri",
		Kills:           5,
		Deaths:          3,
		Assists:         7,
		Win:             true,
		DurationMinutes: 30,
		PlayedAt:        time.Now().UTC().Add(-time.Hour),
	}})

	rec := doRequest(t, router, http.MethodGet, "/api/analytics/p1/overview")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var overview analytics.OverviewStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &overview))
	assert.Equal(t, 1, overview.TotalGames)
	assert.Equal(t, 30, overview.TimeframeDays)
}

func TestGetSnapshotInvalidTimeframe(t *testing.T) {
	router := testRouter(nil)

	for _, query := range []string{"?days=0", "?days=-5", "?days=abc"} {
		rec := doRequest(t, router, http.MethodGet, "/api/analytics/p1/snapshot"+query)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "query %q", query)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Contains(t, body, "error")
	}
}

func TestGetSnapshotCustomTimeframe(t *testing.T) {
	router := testRouter(nil)

	rec := doRequest(t, router, http.MethodGet, "/api/analytics/p1/snapshot?days=7")
	require.Equal(t, http.StatusOK, rec.Code)

	var snap analytics.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "p1", snap.PlayerID)
	assert.Equal(t, 7, snap.TimeframeDays)
	assert.Zero(t, snap.Overview.TotalGames)
}

func TestSectionEndpointsReturnTheirSlice(t *testing.T) {
	router := testRouter(nil)

	for _, path := range []string{"champions", "roles", "gpi", "heatmap", "trends", "recent"} {
		rec := doRequest(t, router, http.MethodGet, "/api/analytics/p1/"+path)
		assert.Equal(t, http.StatusOK, rec.Code, "endpoint %s", path)
	}
}

func TestInvalidate(t *testing.T) {
	router := testRouter(nil)

	rec := doRequest(t, router, http.MethodPost, "/api/analytics/p1/invalidate")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "invalidated", body["status"])
	assert.Equal(t, "p1", body["player_id"])
}
