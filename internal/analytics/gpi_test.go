package analytics

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/riftscope/riftscope/internal/domain"
)

func assertAxesInRange(t *testing.T, gpi GPIMetrics) {
	t.Helper()
	for name, axis := range map[string]float64{
		"aggression":    gpi.Aggression,
		"farming":       gpi.Farming,
		"survivability": gpi.Survivability,
		"vision":        gpi.Vision,
		"versatility":   gpi.Versatility,
		"consistency":   gpi.Consistency,
	} {
		assert.GreaterOrEqual(t, axis, 0.0, "%s below range", name)
		assert.LessOrEqual(t, axis, 10.0, "%s above range", name)
	}
}

func TestGPIEmptyInputYieldsZeroProfile(t *testing.T) {
	gpi := testEngine().GPI(nil)
	assert.Equal(t, GPIMetrics{}, gpi)
}

func TestGPIAxesStayInRangeForExtremeStats(t *testing.T) {
	extreme := []domain.MatchParticipantRecord{
		record(func(r *domain.MatchParticipantRecord) {
			r.Kills, r.Deaths, r.Assists = 40, 0, 30
			r.DamageToChampions = 120000
			r.CreepScore, r.VisionScore = 500, 200
		}),
	}
	assertAxesInRange(t, testEngine().GPI(extreme))

	awful := []domain.MatchParticipantRecord{
		record(func(r *domain.MatchParticipantRecord) {
			r.Kills, r.Deaths, r.Assists = 0, 15, 0
			r.DamageToChampions = 500
			r.CreepScore, r.VisionScore = 10, 1
			r.Win = false
		}),
	}
	assertAxesInRange(t, testEngine().GPI(awful))
}

func TestGPIFarmingScalesWithCS(t *testing.T) {
	// 8 CS/min against a reference of 8 maps to a perfect farming score.
	records := []domain.MatchParticipantRecord{
		record(func(r *domain.MatchParticipantRecord) {
			r.CreepScore = 240
			r.DurationMinutes = 30
		}),
	}
	gpi := testEngine().GPI(records)
	assert.InDelta(t, 10.0, gpi.Farming, 1e-9)
}

func TestGPISurvivabilityPenalizesDeaths(t *testing.T) {
	fewDeaths := []domain.MatchParticipantRecord{
		record(func(r *domain.MatchParticipantRecord) { r.Deaths = 1 }),
	}
	manyDeaths := []domain.MatchParticipantRecord{
		record(func(r *domain.MatchParticipantRecord) { r.Deaths = 12 }),
	}

	engine := testEngine()
	assert.Greater(t, engine.GPI(fewDeaths).Survivability, engine.GPI(manyDeaths).Survivability)
}

func TestGPIVersatilityCountsDistinctChampions(t *testing.T) {
	var records []domain.MatchParticipantRecord
	for i := 0; i < 5; i++ {
		id := 100 + i
		records = append(records, record(func(r *domain.MatchParticipantRecord) {
			r.MatchID = fmt.Sprintf("m%d", i)
			r.ChampionID = id
		}))
	}

	gpi := testEngine().GPI(records)
	assert.InDelta(t, 10.0, gpi.Versatility, 1e-9, "five distinct champions maps to the full score")

	oneTrick := []domain.MatchParticipantRecord{record(nil), record(nil), record(nil)}
	assert.Less(t, testEngine().GPI(oneTrick).Versatility, 10.0)
}

func TestGPIConsistencyPenalizesVariance(t *testing.T) {
	steady := []domain.MatchParticipantRecord{
		record(func(r *domain.MatchParticipantRecord) { r.MatchID = "m1"; r.Kills, r.Deaths, r.Assists = 5, 2, 5 }),
		record(func(r *domain.MatchParticipantRecord) { r.MatchID = "m2"; r.Kills, r.Deaths, r.Assists = 5, 2, 5 }),
		record(func(r *domain.MatchParticipantRecord) { r.MatchID = "m3"; r.Kills, r.Deaths, r.Assists = 5, 2, 5 }),
	}
	volatile := []domain.MatchParticipantRecord{
		record(func(r *domain.MatchParticipantRecord) { r.MatchID = "m1"; r.Kills, r.Deaths, r.Assists = 25, 0, 20 }),
		record(func(r *domain.MatchParticipantRecord) { r.MatchID = "m2"; r.Kills, r.Deaths, r.Assists = 0, 10, 1 }),
		record(func(r *domain.MatchParticipantRecord) { r.MatchID = "m3"; r.Kills, r.Deaths, r.Assists = 15, 1, 10 }),
	}

	engine := testEngine()
	assert.Greater(t, engine.GPI(steady).Consistency, engine.GPI(volatile).Consistency)
}

func TestGPIIsIdempotent(t *testing.T) {
	records := []domain.MatchParticipantRecord{
		record(nil),
		record(func(r *domain.MatchParticipantRecord) { r.MatchID = "m2"; r.Kills = 12 }),
	}

	engine := testEngine()
	assert.Equal(t, engine.GPI(records), engine.GPI(records))
}
