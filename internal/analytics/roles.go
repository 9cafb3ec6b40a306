package analytics

import (
	"gonum.org/v1/gonum/stat"

	"github.com/riftscope/riftscope/internal/config"
	"github.com/riftscope/riftscope/internal/domain"
)

// defaultBenchmark is used when a record carries a position name that has no
// configured reference values.
var defaultBenchmark = config.RoleBenchmark{KDA: 3.5, CSPerMin: 7.0, VisionScore: 30}

// RoleStats summarizes a player's performance in one position.
type RoleStats struct {
	Role             domain.Role `json:"role"`
	TotalGames       int         `json:"total_games"`
	Wins             int         `json:"wins"`
	Losses           int         `json:"losses"`
	WinRate          float64     `json:"win_rate"`
	AvgKDA           float64     `json:"avg_kda"`
	AvgCSPerMin      float64     `json:"avg_cs_per_min"`
	AvgVisionScore   float64     `json:"avg_vision_score"`
	PerformanceScore float64     `json:"performance_score"`
}

// RoleBreakdown is the full per-role result.
type RoleBreakdown struct {
	Roles              []RoleStats `json:"roles"`
	MostPlayedRole     domain.Role `json:"most_played_role"`
	BestPerformingRole domain.Role `json:"best_performing_role"`
}

// Roles groups records by position and scores each one against its reference
// benchmarks. Roles are returned in the canonical order, skipping positions
// the player never appeared in. most_played ties break toward the earlier
// canonical role; best_performing considers only roles meeting the minimum
// sample size.
func (e *Engine) Roles(records []domain.MatchParticipantRecord) RoleBreakdown {
	breakdown := RoleBreakdown{Roles: []RoleStats{}}
	if len(records) == 0 {
		return breakdown
	}

	groups := make(map[domain.Role][]domain.MatchParticipantRecord)
	for _, rec := range records {
		groups[rec.Role] = append(groups[rec.Role], rec)
	}

	var mostGames int
	var bestScore float64
	haveBest := false

	for _, role := range domain.CanonicalRoles {
		recs, ok := groups[role]
		if !ok {
			continue
		}

		rs := e.scoreRole(role, recs)
		breakdown.Roles = append(breakdown.Roles, rs)

		if rs.TotalGames > mostGames {
			mostGames = rs.TotalGames
			breakdown.MostPlayedRole = role
		}
		if rs.TotalGames >= e.cfg.RoleMinGames && (!haveBest || rs.PerformanceScore > bestScore) {
			bestScore = rs.PerformanceScore
			breakdown.BestPerformingRole = role
			haveBest = true
		}
	}

	return breakdown
}

func (e *Engine) scoreRole(role domain.Role, recs []domain.MatchParticipantRecord) RoleStats {
	total := len(recs)
	rs := RoleStats{Role: role, TotalGames: total}

	var vision float64
	kdas := make([]float64, 0, total)
	var csPerMin []float64

	for _, rec := range recs {
		if rec.Win {
			rs.Wins++
		}
		vision += float64(rec.VisionScore)
		kdas = append(kdas, rec.KDA())
		if rec.DurationMinutes > 0 {
			csPerMin = append(csPerMin, rec.CSPerMinute())
		}
	}

	rs.Losses = total - rs.Wins
	rs.WinRate = round1(float64(rs.Wins) / float64(total) * 100)
	avgKDA := stat.Mean(kdas, nil)
	rs.AvgKDA = round2(avgKDA)
	var avgCS float64
	if len(csPerMin) > 0 {
		avgCS = stat.Mean(csPerMin, nil)
		rs.AvgCSPerMin = round1(avgCS)
	}
	avgVision := vision / float64(total)
	rs.AvgVisionScore = round1(avgVision)

	rs.PerformanceScore = round1(e.performanceScore(role, rs.WinRate, avgKDA, avgCS, avgVision))
	return rs
}

// performanceScore is a weighted sum of the role's normalized stats, each
// scaled so the role benchmark maps to 100, clamped to [0,100].
func (e *Engine) performanceScore(role domain.Role, winRate, kda, csPerMin, visionScore float64) float64 {
	bench, ok := e.cfg.RoleBenchmarks[string(role)]
	if !ok {
		// Unknown position: fall back to neutral references.
		bench = defaultBenchmark
	}

	score := e.cfg.RoleWeightWinRate*clamp(winRate, 0, 100) +
		e.cfg.RoleWeightKDA*normalize(kda, bench.KDA) +
		e.cfg.RoleWeightCS*normalize(csPerMin, bench.CSPerMin) +
		e.cfg.RoleWeightVision*normalize(visionScore, bench.VisionScore)

	return clamp(score, 0, 100)
}

// normalize scales value so reference maps to 100, capped there.
func normalize(value, reference float64) float64 {
	if reference <= 0 {
		return 0
	}
	return clamp(value/reference*100, 0, 100)
}
