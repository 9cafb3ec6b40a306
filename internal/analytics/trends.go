package analytics

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/riftscope/riftscope/internal/domain"
)

// Trend direction labels.
const (
	TrendImproving        = "improving"
	TrendDeclining        = "declining"
	TrendStable           = "stable"
	TrendInsufficientData = "insufficient_data"
)

// minTrendGames is the smallest record set that produces a meaningful trend.
const minTrendGames = 5

// TrendPoint is one day's aggregate performance.
type TrendPoint struct {
	Date        string  `json:"date"` // YYYY-MM-DD, UTC
	TotalGames  int     `json:"total_games"`
	Wins        int     `json:"wins"`
	WinRate     float64 `json:"win_rate"`
	AvgKDA      float64 `json:"avg_kda"`
	AvgCSPerMin float64 `json:"avg_cs_per_min"`
}

// PerformanceTrends is the daily series plus coarse direction labels.
type PerformanceTrends struct {
	TrendData    []TrendPoint `json:"trend_data"`
	WinRateTrend string       `json:"win_rate_trend"`
	KDATrend     string       `json:"kda_trend"`
	CSTrend      string       `json:"cs_trend"`
}

// Trends buckets records by calendar day and compares the first half of the
// series against the second to label each stat's direction. Fewer than five
// games yields the insufficient-data labels with an empty series.
func (e *Engine) Trends(records []domain.MatchParticipantRecord) PerformanceTrends {
	trends := PerformanceTrends{
		TrendData:    []TrendPoint{},
		WinRateTrend: TrendInsufficientData,
		KDATrend:     TrendInsufficientData,
		CSTrend:      TrendInsufficientData,
	}
	if len(records) < minTrendGames {
		return trends
	}

	daily := make(map[string][]domain.MatchParticipantRecord)
	for _, rec := range records {
		key := rec.PlayedAt.UTC().Format("2006-01-02")
		daily[key] = append(daily[key], rec)
	}

	days := make([]string, 0, len(daily))
	for day := range daily {
		days = append(days, day)
	}
	sort.Strings(days)

	for _, day := range days {
		recs := daily[day]
		point := TrendPoint{Date: day, TotalGames: len(recs)}

		kdas := make([]float64, 0, len(recs))
		var csPerMin []float64
		for _, rec := range recs {
			if rec.Win {
				point.Wins++
			}
			kdas = append(kdas, rec.KDA())
			if rec.DurationMinutes > 0 {
				csPerMin = append(csPerMin, rec.CSPerMinute())
			}
		}

		point.WinRate = round1(float64(point.Wins) / float64(point.TotalGames) * 100)
		point.AvgKDA = round2(stat.Mean(kdas, nil))
		if len(csPerMin) > 0 {
			point.AvgCSPerMin = round1(stat.Mean(csPerMin, nil))
		}

		trends.TrendData = append(trends.TrendData, point)
	}

	if len(trends.TrendData) >= 2 {
		mid := len(trends.TrendData) / 2
		first, second := trends.TrendData[:mid], trends.TrendData[mid:]

		trends.WinRateTrend = direction(
			meanOf(first, func(p TrendPoint) float64 { return p.WinRate }),
			meanOf(second, func(p TrendPoint) float64 { return p.WinRate }),
		)
		trends.KDATrend = direction(
			meanOf(first, func(p TrendPoint) float64 { return p.AvgKDA }),
			meanOf(second, func(p TrendPoint) float64 { return p.AvgKDA }),
		)
		trends.CSTrend = direction(
			meanOf(first, func(p TrendPoint) float64 { return p.AvgCSPerMin }),
			meanOf(second, func(p TrendPoint) float64 { return p.AvgCSPerMin }),
		)
	}

	return trends
}

func meanOf(points []TrendPoint, value func(TrendPoint) float64) float64 {
	if len(points) == 0 {
		return 0
	}
	var sum float64
	for _, p := range points {
		sum += value(p)
	}
	return sum / float64(len(points))
}

func direction(first, second float64) string {
	switch {
	case second > first:
		return TrendImproving
	case second < first:
		return TrendDeclining
	default:
		return TrendStable
	}
}
