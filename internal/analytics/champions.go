package analytics

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/riftscope/riftscope/internal/domain"
)

// ChampionStats summarizes a player's performance on one champion.
type ChampionStats struct {
	ChampionID        int       `json:"champion_id"`
	ChampionName      string    `json:"champion_name"`
	TotalGames        int       `json:"total_games"`
	Wins              int       `json:"wins"`
	Losses            int       `json:"losses"`
	WinRate           float64   `json:"win_rate"`
	AvgKDA            float64   `json:"avg_kda"`
	AvgKills          float64   `json:"avg_kills"`
	AvgDeaths         float64   `json:"avg_deaths"`
	AvgAssists        float64   `json:"avg_assists"`
	AvgCSPerMin       float64   `json:"avg_cs_per_min"`
	AvgDamageToChamps float64   `json:"avg_damage_to_champions"`
	AvgVisionScore    float64   `json:"avg_vision_score"`
	LastPlayed        time.Time `json:"last_played"`
}

// Champions groups records by champion and computes per-champion stats,
// sorted by games played descending, ties broken by win rate descending and
// then champion ID ascending so the ordering is fully deterministic.
func (e *Engine) Champions(records []domain.MatchParticipantRecord) []ChampionStats {
	if len(records) == 0 {
		return []ChampionStats{}
	}

	groups := make(map[int][]domain.MatchParticipantRecord)
	for _, rec := range records {
		groups[rec.ChampionID] = append(groups[rec.ChampionID], rec)
	}

	result := make([]ChampionStats, 0, len(groups))
	for championID, recs := range groups {
		total := len(recs)
		cs := ChampionStats{
			ChampionID:   championID,
			ChampionName: recs[0].ChampionName,
			TotalGames:   total,
		}

		var kills, deaths, assists, damage, vision float64
		kdas := make([]float64, 0, total)
		var csPerMin []float64

		for _, rec := range recs {
			if rec.Win {
				cs.Wins++
			}
			kills += float64(rec.Kills)
			deaths += float64(rec.Deaths)
			assists += float64(rec.Assists)
			damage += float64(rec.DamageToChampions)
			vision += float64(rec.VisionScore)
			kdas = append(kdas, rec.KDA())
			if rec.DurationMinutes > 0 {
				csPerMin = append(csPerMin, rec.CSPerMinute())
			}
			if rec.PlayedAt.After(cs.LastPlayed) {
				cs.LastPlayed = rec.PlayedAt
			}
		}

		cs.Losses = total - cs.Wins
		cs.WinRate = round1(float64(cs.Wins) / float64(total) * 100)
		cs.AvgKDA = round2(stat.Mean(kdas, nil))
		cs.AvgKills = round1(kills / float64(total))
		cs.AvgDeaths = round1(deaths / float64(total))
		cs.AvgAssists = round1(assists / float64(total))
		if len(csPerMin) > 0 {
			cs.AvgCSPerMin = round1(stat.Mean(csPerMin, nil))
		}
		cs.AvgDamageToChamps = round1(damage / float64(total))
		cs.AvgVisionScore = round1(vision / float64(total))

		result = append(result, cs)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].TotalGames != result[j].TotalGames {
			return result[i].TotalGames > result[j].TotalGames
		}
		if result[i].WinRate != result[j].WinRate {
			return result[i].WinRate > result[j].WinRate
		}
		return result[i].ChampionID < result[j].ChampionID
	})

	return result
}
