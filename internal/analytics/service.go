package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/riftscope/riftscope/internal/domain"
	"github.com/riftscope/riftscope/internal/rescache"
)

// InvalidTimeframeError rejects non-positive day counts before any fetch or
// aggregation work begins.
type InvalidTimeframeError struct {
	Days int
}

func (e *InvalidTimeframeError) Error() string {
	return fmt.Sprintf("invalid timeframe: %d days (must be positive)", e.Days)
}

// SnapshotStore persists computed snapshots across restarts. Optional.
type SnapshotStore interface {
	Store(table, key string, value interface{}, ttl time.Duration) error
}

// Snapshot is the full derived-analytics bundle for one (player, timeframe).
type Snapshot struct {
	SnapshotID    string                   `json:"snapshot_id"`
	PlayerID      string                   `json:"player_id"`
	TimeframeDays int                      `json:"timeframe_days"`
	GeneratedAt   time.Time                `json:"generated_at"`
	Overview      OverviewStats            `json:"overview"`
	Champions     []ChampionStats          `json:"champions"`
	Roles         RoleBreakdown            `json:"roles"`
	GPI           GPIMetrics               `json:"gpi"`
	Heatmap       ActivityHeatmap          `json:"heatmap"`
	Trends        PerformanceTrends        `json:"trends"`
	RecentMatches []RecentMatchPerformance `json:"recent_matches"`
}

// Service serves analytics snapshots, caching them with a short TTL and
// recomputing from the record store on miss or after invalidation.
type Service struct {
	engine    *Engine
	store     domain.RecordStore
	cache     *rescache.Cache
	snapshots SnapshotStore // Optional; nil disables persistence
	snapTTL   time.Duration
	now       func() time.Time
	log       zerolog.Logger
}

// NewService creates an analytics service. snapshots may be nil.
func NewService(
	engine *Engine,
	store domain.RecordStore,
	cache *rescache.Cache,
	snapshots SnapshotStore,
	snapTTL time.Duration,
	log zerolog.Logger,
) *Service {
	return &Service{
		engine:    engine,
		store:     store,
		cache:     cache,
		snapshots: snapshots,
		snapTTL:   snapTTL,
		now:       time.Now,
		log:       log.With().Str("component", "analytics").Logger(),
	}
}

func snapshotKey(playerID string, days int) string {
	return fmt.Sprintf("analytics:%s:%d", playerID, days)
}

// GetSnapshot returns the cached snapshot for (player, timeframe), computing
// it when absent. Concurrent callers for the same key share one computation.
func (s *Service) GetSnapshot(ctx context.Context, playerID string, days int) (*Snapshot, error) {
	if days <= 0 {
		return nil, &InvalidTimeframeError{Days: days}
	}

	value, err := s.cache.GetOrFetch(ctx, snapshotKey(playerID, days), rescache.ClassSnapshot,
		func(ctx context.Context) (interface{}, error) {
			return s.compute(playerID, days)
		})
	if err != nil {
		return nil, err
	}
	return value.(*Snapshot), nil
}

// compute reads one consistent slice of records and derives everything
// from it, so all sections of a snapshot agree with each other.
func (s *Service) compute(playerID string, days int) (*Snapshot, error) {
	until := s.now().UTC()
	since := until.AddDate(0, 0, -days)

	records, err := s.store.ListParticipantRecords(playerID, since, until)
	if err != nil {
		return nil, fmt.Errorf("failed to list participant records: %w", err)
	}

	snap := &Snapshot{
		SnapshotID:    uuid.New().String(),
		PlayerID:      playerID,
		TimeframeDays: days,
		GeneratedAt:   s.now().UTC(),
		Overview:      s.engine.Overview(records, days),
		Champions:     s.engine.Champions(records),
		Roles:         s.engine.Roles(records),
		GPI:           s.engine.GPI(records),
		Heatmap:       s.engine.Heatmap(records),
		Trends:        s.engine.Trends(records),
		RecentMatches: s.engine.RecentMatches(records, 10),
	}

	if s.snapshots != nil {
		if err := s.snapshots.Store("analytics_snapshot", snapshotKey(playerID, days), snap, s.snapTTL); err != nil {
			s.log.Warn().Err(err).Str("player_id", playerID).Msg("Failed to persist analytics snapshot")
		}
	}

	s.log.Debug().
		Str("player_id", playerID).
		Int("days", days).
		Int("games", snap.Overview.TotalGames).
		Msg("Computed analytics snapshot")

	return snap, nil
}

// Invalidate drops every cached snapshot for the player, across all
// timeframes. The record store calls this after ingesting new matches.
func (s *Service) Invalidate(playerID string) {
	dropped := s.cache.InvalidatePrefix("analytics:" + playerID + ":")
	s.log.Debug().Str("player_id", playerID).Int("dropped", dropped).Msg("Invalidated analytics snapshots")
}
