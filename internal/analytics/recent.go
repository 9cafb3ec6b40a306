package analytics

import (
	"sort"
	"time"

	"github.com/riftscope/riftscope/internal/domain"
)

// RecentMatchPerformance is a per-match scorecard for recent games.
type RecentMatchPerformance struct {
	MatchID          string    `json:"match_id"`
	PlayedAt         time.Time `json:"played_at"`
	DurationMinutes  float64   `json:"duration_minutes"`
	ChampionID       int       `json:"champion_id"`
	ChampionName     string    `json:"champion_name"`
	Kills            int       `json:"kills"`
	Deaths           int       `json:"deaths"`
	Assists          int       `json:"assists"`
	KDA              float64   `json:"kda"`
	CreepScore       int       `json:"cs"`
	CSPerMin         float64   `json:"cs_per_min"`
	DamageToChamps   int       `json:"damage_to_champions"`
	DamagePerMin     float64   `json:"damage_per_min"`
	VisionScore      int       `json:"vision_score"`
	GoldEarned       int       `json:"gold_earned"`
	Win              bool      `json:"win"`
	PerformanceScore float64   `json:"performance_score"`
}

// RecentMatches scores the player's most recent games, newest first.
// The score is a simple heuristic rewarding kills, assists, farm above
// 5 CS/min and vision above 20, penalizing deaths, plus a flat win bonus.
func (e *Engine) RecentMatches(records []domain.MatchParticipantRecord, limit int) []RecentMatchPerformance {
	if limit <= 0 {
		limit = 10
	}

	sorted := make([]domain.MatchParticipantRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].PlayedAt.Equal(sorted[j].PlayedAt) {
			return sorted[i].PlayedAt.After(sorted[j].PlayedAt)
		}
		return sorted[i].MatchID < sorted[j].MatchID
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}

	result := make([]RecentMatchPerformance, 0, len(sorted))
	for _, rec := range sorted {
		csPerMin := rec.CSPerMinute()
		var damagePerMin float64
		if rec.DurationMinutes > 0 {
			damagePerMin = float64(rec.DamageToChampions) / rec.DurationMinutes
		}

		score := float64(rec.Kills)*3 +
			float64(rec.Assists)*1.5 -
			float64(rec.Deaths)*2 +
			(csPerMin-5)*2 +
			(float64(rec.VisionScore)-20)*0.1
		if rec.Win {
			score += 10
		}

		result = append(result, RecentMatchPerformance{
			MatchID:          rec.MatchID,
			PlayedAt:         rec.PlayedAt,
			DurationMinutes:  round1(rec.DurationMinutes),
			ChampionID:       rec.ChampionID,
			ChampionName:     rec.ChampionName,
			Kills:            rec.Kills,
			Deaths:           rec.Deaths,
			Assists:          rec.Assists,
			KDA:              round2(rec.KDA()),
			CreepScore:       rec.CreepScore,
			CSPerMin:         round1(csPerMin),
			DamageToChamps:   rec.DamageToChampions,
			DamagePerMin:     round1(damagePerMin),
			VisionScore:      rec.VisionScore,
			GoldEarned:       rec.GoldEarned,
			Win:              rec.Win,
			PerformanceScore: round1(score),
		})
	}
	return result
}
