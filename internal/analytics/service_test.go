package analytics

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riftscope/riftscope/internal/domain"
	"github.com/riftscope/riftscope/internal/rescache"
)

type stubRecordStore struct {
	calls   atomic.Int32
	records []domain.MatchParticipantRecord
}

func (s *stubRecordStore) ListParticipantRecords(playerID string, since, until time.Time) ([]domain.MatchParticipantRecord, error) {
	s.calls.Add(1)
	return s.records, nil
}

func newTestService(store domain.RecordStore) *Service {
	cache := rescache.New(rescache.Config{
		TTLs: map[rescache.Class]time.Duration{rescache.ClassSnapshot: 10 * time.Minute},
	}, zerolog.Nop())
	return NewService(testEngine(), store, cache, nil, 10*time.Minute, zerolog.Nop())
}

func TestGetSnapshotRejectsInvalidTimeframe(t *testing.T) {
	store := &stubRecordStore{}
	svc := newTestService(store)

	for _, days := range []int{0, -1, -30} {
		_, err := svc.GetSnapshot(context.Background(), "player-1", days)
		require.Error(t, err)

		var invalid *InvalidTimeframeError
		assert.ErrorAs(t, err, &invalid)
	}
	assert.Equal(t, int32(0), store.calls.Load(), "validation must happen before any record fetch")
}

func TestGetSnapshotCachesPerPlayerAndTimeframe(t *testing.T) {
	store := &stubRecordStore{records: []domain.MatchParticipantRecord{record(nil)}}
	svc := newTestService(store)
	ctx := context.Background()

	first, err := svc.GetSnapshot(ctx, "player-1", 30)
	require.NoError(t, err)
	second, err := svc.GetSnapshot(ctx, "player-1", 30)
	require.NoError(t, err)

	assert.Equal(t, int32(1), store.calls.Load(), "second call must be served from cache")
	assert.Equal(t, first.SnapshotID, second.SnapshotID)

	// A different timeframe is a different snapshot.
	_, err = svc.GetSnapshot(ctx, "player-1", 7)
	require.NoError(t, err)
	assert.Equal(t, int32(2), store.calls.Load())
}

func TestGetSnapshotContents(t *testing.T) {
	store := &stubRecordStore{records: []domain.MatchParticipantRecord{
		record(func(r *domain.MatchParticipantRecord) { r.MatchID = "m1"; r.Win = true }),
		record(func(r *domain.MatchParticipantRecord) { r.MatchID = "m2"; r.Win = false }),
	}}
	svc := newTestService(store)

	snap, err := svc.GetSnapshot(context.Background(), "player-1", 30)
	require.NoError(t, err)

	assert.NotEmpty(t, snap.SnapshotID)
	assert.Equal(t, "player-1", snap.PlayerID)
	assert.Equal(t, 30, snap.TimeframeDays)
	assert.Equal(t, 2, snap.Overview.TotalGames)
	assert.Len(t, snap.RecentMatches, 2)
}

func TestInvalidateDropsAllTimeframesForPlayer(t *testing.T) {
	store := &stubRecordStore{}
	svc := newTestService(store)
	ctx := context.Background()

	_, err := svc.GetSnapshot(ctx, "player-1", 7)
	require.NoError(t, err)
	_, err = svc.GetSnapshot(ctx, "player-1", 30)
	require.NoError(t, err)
	_, err = svc.GetSnapshot(ctx, "player-2", 30)
	require.NoError(t, err)
	require.Equal(t, int32(3), store.calls.Load())

	svc.Invalidate("player-1")

	_, err = svc.GetSnapshot(ctx, "player-1", 7)
	require.NoError(t, err)
	_, err = svc.GetSnapshot(ctx, "player-1", 30)
	require.NoError(t, err)
	_, err = svc.GetSnapshot(ctx, "player-2", 30)
	require.NoError(t, err)

	assert.Equal(t, int32(5), store.calls.Load(),
		"player-1 snapshots recompute, player-2 stays cached")
}

func TestGetSnapshotEmptyStoreYieldsZeroStats(t *testing.T) {
	svc := newTestService(&stubRecordStore{})

	snap, err := svc.GetSnapshot(context.Background(), "player-1", 30)
	require.NoError(t, err)

	assert.Zero(t, snap.Overview.TotalGames)
	assert.Zero(t, snap.Overview.WinRate)
	assert.Empty(t, snap.Champions)
	assert.Equal(t, GPIMetrics{}, snap.GPI)
}
