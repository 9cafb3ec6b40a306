package matchstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/riftscope/riftscope/internal/domain"
	"github.com/riftscope/riftscope/internal/gateway"
)

// Invalidator is notified after new records land so downstream caches can
// drop anything computed from the old data.
type Invalidator interface {
	Invalidate(playerID string)
}

// matchList is the upstream match-id list payload.
type matchList []string

// matchDetail is the subset of the upstream match payload we map into
// participant records.
type matchDetail struct {
	Metadata struct {
		MatchID string `json:"matchId"`
	} `json:"metadata"`
	Info struct {
		GameDuration       int64 `json:"gameDuration"`
		GameStartTimestamp int64 `json:"gameStartTimestamp"`
		Participants       []struct {
			PUUID                       string `json:"puuid"`
			ChampionID                  int    `json:"championId"`
			ChampionName                string `json:"championName"`
			TeamPosition                string `json:"teamPosition"`
			Kills                       int    `json:"kills"`
			Deaths                      int    `json:"deaths"`
			Assists                     int    `json:"assists"`
			TotalMinionsKilled          int    `json:"totalMinionsKilled"`
			NeutralMinionsKilled        int    `json:"neutralMinionsKilled"`
			VisionScore                 int    `json:"visionScore"`
			GoldEarned                  int    `json:"goldEarned"`
			TotalDamageDealtToChampions int    `json:"totalDamageDealtToChampions"`
			Win                         bool   `json:"win"`
		} `json:"participants"`
	} `json:"info"`
}

// SyncService pulls recent matches for a player from the upstream provider
// and persists every participant row. All upstream traffic goes through the
// gateway, so rate limiting, caching and retries apply transparently.
type SyncService struct {
	gw     *gateway.Gateway
	repo   *Repository
	region string
	inval  Invalidator // Optional; nil disables invalidation
	log    zerolog.Logger
}

// NewSyncService creates a match sync service. inval may be nil.
func NewSyncService(gw *gateway.Gateway, repo *Repository, region string, inval Invalidator, log zerolog.Logger) *SyncService {
	return &SyncService{
		gw:     gw,
		repo:   repo,
		region: region,
		inval:  inval,
		log:    log.With().Str("component", "match_sync").Logger(),
	}
}

// SyncResult summarizes one sync pass.
type SyncResult struct {
	PlayerID       string `json:"player_id"`
	MatchesFetched int    `json:"matches_fetched"`
	RecordsStored  int    `json:"records_stored"`
}

// SyncPlayer fetches up to count recent match IDs for the player, pulls each
// match detail, and upserts every participant record. Matches that fail to
// fetch are skipped rather than aborting the whole pass.
func (s *SyncService) SyncPlayer(ctx context.Context, playerID string, count int) (*SyncResult, error) {
	if count <= 0 {
		count = 20
	}

	ids, err := s.fetchMatchIDs(ctx, playerID, count)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch match list: %w", err)
	}

	result := &SyncResult{PlayerID: playerID}
	var batch []domain.MatchParticipantRecord

	for _, matchID := range ids {
		detail, err := s.fetchMatchDetail(ctx, matchID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.log.Warn().Err(err).Str("match_id", matchID).Msg("Skipping match, detail fetch failed")
			continue
		}
		if detail == nil {
			continue
		}
		result.MatchesFetched++
		batch = append(batch, mapParticipants(detail)...)
	}

	if err := s.repo.UpsertRecords(batch); err != nil {
		return nil, fmt.Errorf("failed to store records: %w", err)
	}
	result.RecordsStored = len(batch)

	if result.RecordsStored > 0 && s.inval != nil {
		s.inval.Invalidate(playerID)
	}

	s.log.Info().
		Str("player_id", playerID).
		Int("matches", result.MatchesFetched).
		Int("records", result.RecordsStored).
		Msg("Match sync completed")

	return result, nil
}

func (s *SyncService) fetchMatchIDs(ctx context.Context, playerID string, count int) (matchList, error) {
	query := url.Values{}
	query.Set("start", "0")
	query.Set("count", strconv.Itoa(count))

	payload, err := s.gw.Fetch(ctx, gateway.Request{
		Family:      gateway.FamilyMatchList,
		Region:      s.region,
		Path:        "/lol/match/v5/matches/by-puuid/" + url.PathEscape(playerID) + "/ids",
		Query:       query,
		Continental: true,
	})
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, nil
	}

	var ids matchList
	if err := json.Unmarshal(payload, &ids); err != nil {
		return nil, fmt.Errorf("failed to decode match list: %w", err)
	}
	return ids, nil
}

func (s *SyncService) fetchMatchDetail(ctx context.Context, matchID string) (*matchDetail, error) {
	payload, err := s.gw.Fetch(ctx, gateway.Request{
		Family:      gateway.FamilyMatchDetail,
		Region:      s.region,
		Path:        "/lol/match/v5/matches/" + url.PathEscape(matchID),
		Continental: true,
	})
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, nil
	}

	var detail matchDetail
	if err := json.Unmarshal(payload, &detail); err != nil {
		return nil, fmt.Errorf("failed to decode match detail: %w", err)
	}
	return &detail, nil
}

// mapParticipants flattens one match payload into per-participant records.
func mapParticipants(detail *matchDetail) []domain.MatchParticipantRecord {
	playedAt := time.UnixMilli(detail.Info.GameStartTimestamp).UTC()
	durationMinutes := float64(detail.Info.GameDuration) / 60.0

	records := make([]domain.MatchParticipantRecord, 0, len(detail.Info.Participants))
	for _, p := range detail.Info.Participants {
		records = append(records, domain.MatchParticipantRecord{
			MatchID:           detail.Metadata.MatchID,
			PlayerID:          p.PUUID,
			ChampionID:        p.ChampionID,
			ChampionName:      p.ChampionName,
			Role:              domain.Role(p.TeamPosition),
			Kills:             p.Kills,
			Deaths:            p.Deaths,
			Assists:           p.Assists,
			CreepScore:        p.TotalMinionsKilled + p.NeutralMinionsKilled,
			VisionScore:       p.VisionScore,
			GoldEarned:        p.GoldEarned,
			DamageToChampions: p.TotalDamageDealtToChampions,
			DurationMinutes:   durationMinutes,
			Win:               p.Win,
			PlayedAt:          playedAt,
		})
	}
	return records
}
