package analytics

import (
	"gonum.org/v1/gonum/stat"

	"github.com/riftscope/riftscope/internal/domain"
)

// OverviewStats summarizes a player's performance across a timeframe.
type OverviewStats struct {
	TotalGames         int     `json:"total_games"`
	Wins               int     `json:"wins"`
	Losses             int     `json:"losses"`
	WinRate            float64 `json:"win_rate"`
	AvgKDA             float64 `json:"avg_kda"`
	AvgKills           float64 `json:"avg_kills"`
	AvgDeaths          float64 `json:"avg_deaths"`
	AvgAssists         float64 `json:"avg_assists"`
	AvgCSPerMin        float64 `json:"avg_cs_per_min"`
	AvgVisionScore     float64 `json:"avg_vision_score"`
	TotalPlaytimeHours float64 `json:"total_playtime_hours"`
	TimeframeDays      int     `json:"timeframe_days"`
}

// Overview computes overall stats for the record set. An empty input yields
// an all-zero result, never an error.
func (e *Engine) Overview(records []domain.MatchParticipantRecord, timeframeDays int) OverviewStats {
	stats := OverviewStats{TimeframeDays: timeframeDays}
	if len(records) == 0 {
		return stats
	}

	total := len(records)
	stats.TotalGames = total

	var kills, deaths, assists, visionSum, playtimeMinutes float64
	kdas := make([]float64, 0, total)
	var csPerMin []float64

	for _, rec := range records {
		if rec.Win {
			stats.Wins++
		}
		kills += float64(rec.Kills)
		deaths += float64(rec.Deaths)
		assists += float64(rec.Assists)
		visionSum += float64(rec.VisionScore)
		playtimeMinutes += rec.DurationMinutes
		kdas = append(kdas, rec.KDA())
		if rec.DurationMinutes > 0 {
			csPerMin = append(csPerMin, rec.CSPerMinute())
		}
	}

	stats.Losses = total - stats.Wins
	stats.WinRate = round1(float64(stats.Wins) / float64(total) * 100)
	stats.AvgKDA = round2(stat.Mean(kdas, nil))
	stats.AvgKills = round1(kills / float64(total))
	stats.AvgDeaths = round1(deaths / float64(total))
	stats.AvgAssists = round1(assists / float64(total))
	if len(csPerMin) > 0 {
		stats.AvgCSPerMin = round1(stat.Mean(csPerMin, nil))
	}
	stats.AvgVisionScore = round1(visionSum / float64(total))
	stats.TotalPlaytimeHours = round1(playtimeMinutes / 60)

	return stats
}
