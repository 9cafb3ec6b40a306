package profile

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riftscope/riftscope/internal/gateway"
	"github.com/riftscope/riftscope/internal/ratelimit"
	"github.com/riftscope/riftscope/internal/rescache"
)

// testService wires a Service against an httptest upstream so lookups run
// through the full gateway path.
func testService(t *testing.T, upstream http.Handler) *Service {
	t.Helper()

	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)

	cache := rescache.New(rescache.Config{}, zerolog.Nop())
	limiter := ratelimit.New(ratelimit.Config{
		ShortWindow: time.Second,
		ShortLimit:  100,
		LongWindow:  2 * time.Minute,
		LongLimit:   1000,
		BaseBackoff: 10 * time.Millisecond,
		MaxBackoff:  time.Second,
	}, zerolog.Nop())
	client := gateway.NewClientWithBaseURL("test-key", srv.URL, zerolog.Nop())
	gw := gateway.New(cache, nil, limiter, client, gateway.Config{MaxAttempts: 2}, nil, zerolog.Nop())

	return NewService(gw, "euw1", zerolog.Nop())
}

func TestResolveAccount(t *testing.T) {
	var gotPath string
	svc := testService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(map[string]interface{}{
			"puuid":    "puuid-1",
			"gameName": "Faker",
			"tagLine":  "KR1",
		})
	}))

	account, err := svc.ResolveAccount(context.Background(), "Faker", "KR1")
	require.NoError(t, err)
	require.NotNil(t, account)

	assert.Equal(t, "/riot/account/v1/accounts/by-riot-id/Faker/KR1", gotPath)
	assert.Equal(t, "puuid-1", account.PUUID)
	assert.Equal(t, "Faker", account.GameName)
	assert.Equal(t, "KR1", account.TagLine)
}

func TestResolveAccountEscapesRiotID(t *testing.T) {
	var gotURI string
	svc := testService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURI = r.URL.RequestURI()
		json.NewEncoder(w).Encode(map[string]interface{}{"puuid": "p"})
	}))

	_, err := svc.ResolveAccount(context.Background(), "Hide on bush", "KR1")
	require.NoError(t, err)
	assert.Contains(t, gotURI, "Hide%20on%20bush")
}

func TestResolveAccountNotFound(t *testing.T) {
	svc := testService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	account, err := svc.ResolveAccount(context.Background(), "Nobody", "NA1")
	require.NoError(t, err)
	assert.Nil(t, account)
}

func TestSummonerByPUUID(t *testing.T) {
	var gotPath string
	svc := testService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(map[string]interface{}{
			"puuid":         "puuid-1",
			"profileIconId": 4567,
			"revisionDate":  int64(1700000000000),
			"summonerLevel": 512,
		})
	}))

	summoner, err := svc.SummonerByPUUID(context.Background(), "puuid-1")
	require.NoError(t, err)
	require.NotNil(t, summoner)

	assert.Equal(t, "/lol/summoner/v4/summoners/by-puuid/puuid-1", gotPath)
	assert.Equal(t, 4567, summoner.ProfileIconID)
	assert.Equal(t, int64(1700000000000), summoner.RevisionDate)
	assert.Equal(t, 512, summoner.SummonerLevel)
}

func TestLookupCombinesAccountAndSummoner(t *testing.T) {
	svc := testService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/riot/account/v1/accounts/by-riot-id/Faker/KR1":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"puuid":    "puuid-1",
				"gameName": "Faker",
				"tagLine":  "KR1",
			})
		case "/lol/summoner/v4/summoners/by-puuid/puuid-1":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"puuid":         "puuid-1",
				"profileIconId": 4567,
				"summonerLevel": 512,
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	prof, err := svc.Lookup(context.Background(), "Faker", "KR1")
	require.NoError(t, err)
	require.NotNil(t, prof)

	assert.Equal(t, "puuid-1", prof.PUUID)
	assert.Equal(t, "Faker", prof.GameName)
	assert.Equal(t, "KR1", prof.TagLine)
	assert.Equal(t, 4567, prof.ProfileIconID)
	assert.Equal(t, 512, prof.SummonerLevel)
	assert.Equal(t, "euw1", prof.Region)
}

func TestLookupUnknownRiotIDIsNil(t *testing.T) {
	svc := testService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	prof, err := svc.Lookup(context.Background(), "Nobody", "NA1")
	require.NoError(t, err)
	assert.Nil(t, prof)
}

func TestRotation(t *testing.T) {
	var gotPath string
	svc := testService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(map[string]interface{}{
			"freeChampionIds":              []int{1, 2, 3},
			"freeChampionIdsForNewPlayers": []int{10, 20},
			"maxNewPlayerLevel":            10,
		})
	}))

	rotation, err := svc.Rotation(context.Background())
	require.NoError(t, err)
	require.NotNil(t, rotation)

	assert.Equal(t, "/lol/platform/v3/champion-rotations", gotPath)
	assert.Equal(t, []int{1, 2, 3}, rotation.FreeChampionIDs)
	assert.Equal(t, []int{10, 20}, rotation.FreeChampionIDsForNewPlayers)
	assert.Equal(t, 10, rotation.MaxNewPlayerLevel)
}

func TestLookupUpstreamRejectionPropagates(t *testing.T) {
	svc := testService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	_, err := svc.Lookup(context.Background(), "Faker", "KR1")
	require.Error(t, err)
	assert.True(t, gateway.IsRejected(err))
}
