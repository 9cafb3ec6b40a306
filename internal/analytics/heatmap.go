package analytics

import (
	"github.com/riftscope/riftscope/internal/domain"
)

// Activity pattern labels derived from the heatmap's peak cell.
const (
	PatternMorning   = "Morning Gamer"
	PatternAfternoon = "Afternoon Gamer"
	PatternEvening   = "Evening Gamer"
	PatternNightOwl  = "Night Owl"
	PatternBalanced  = "Balanced"
)

// HeatmapCell is one (day-of-week, hour-of-day) bucket.
type HeatmapCell struct {
	Day       int     `json:"day"`  // 0=Sunday ... 6=Saturday
	Hour      int     `json:"hour"` // 0-23
	Games     int     `json:"games"`
	Intensity float64 `json:"intensity"`
}

// ActivityHeatmap buckets games by when they were played.
type ActivityHeatmap struct {
	Cells           []HeatmapCell `json:"cells"`
	TotalGames      int           `json:"total_games"`
	PeakDay         int           `json:"peak_day"`
	PeakHour        int           `json:"peak_hour"`
	ActivityPattern string        `json:"activity_pattern"`
}

// Heatmap buckets games by (day-of-week, hour-of-day) in UTC. Intensity is
// cell_games / max_cell_games. Only non-empty cells are emitted, ordered by
// (day, hour). The peak cell classifies the player's activity pattern unless
// its share of total games is below the dominance threshold, in which case
// the pattern is Balanced.
func (e *Engine) Heatmap(records []domain.MatchParticipantRecord) ActivityHeatmap {
	hm := ActivityHeatmap{Cells: []HeatmapCell{}, ActivityPattern: PatternBalanced}
	if len(records) == 0 {
		return hm
	}

	var counts [7][24]int
	for _, rec := range records {
		ts := rec.PlayedAt.UTC()
		counts[int(ts.Weekday())][ts.Hour()]++
	}
	hm.TotalGames = len(records)

	maxGames := 0
	for day := 0; day < 7; day++ {
		for hour := 0; hour < 24; hour++ {
			if counts[day][hour] > maxGames {
				maxGames = counts[day][hour]
				hm.PeakDay = day
				hm.PeakHour = hour
			}
		}
	}

	for day := 0; day < 7; day++ {
		for hour := 0; hour < 24; hour++ {
			games := counts[day][hour]
			if games == 0 {
				continue
			}
			hm.Cells = append(hm.Cells, HeatmapCell{
				Day:       day,
				Hour:      hour,
				Games:     games,
				Intensity: round2(float64(games) / float64(maxGames)),
			})
		}
	}

	peakShare := float64(maxGames) / float64(hm.TotalGames)
	if peakShare >= e.cfg.DominanceThreshold {
		hm.ActivityPattern = classifyHour(hm.PeakHour)
	}

	return hm
}

func classifyHour(hour int) string {
	switch {
	case hour >= 6 && hour < 12:
		return PatternMorning
	case hour >= 12 && hour < 18:
		return PatternAfternoon
	case hour >= 18:
		return PatternEvening
	default:
		return PatternNightOwl
	}
}
