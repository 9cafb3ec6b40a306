package analytics

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/riftscope/riftscope/internal/domain"
)

// GPIMetrics is a six-axis skill profile, each axis on a 0-10 scale.
type GPIMetrics struct {
	Aggression    float64 `json:"aggression"`
	Farming       float64 `json:"farming"`
	Survivability float64 `json:"survivability"`
	Vision        float64 `json:"vision"`
	Versatility   float64 `json:"versatility"`
	Consistency   float64 `json:"consistency"`
}

// GPI computes the skill profile. Every axis is clamped to [0,10] and an
// empty record set produces the zero profile.
func (e *Engine) GPI(records []domain.MatchParticipantRecord) GPIMetrics {
	if len(records) == 0 {
		return GPIMetrics{}
	}

	total := float64(len(records))

	var kills, deaths, damage, vision float64
	champions := make(map[int]struct{})
	kdas := make([]float64, 0, len(records))
	var csPerMin []float64
	wins := 0

	for _, rec := range records {
		kills += float64(rec.Kills)
		deaths += float64(rec.Deaths)
		damage += float64(rec.DamageToChampions)
		vision += float64(rec.VisionScore)
		champions[rec.ChampionID] = struct{}{}
		kdas = append(kdas, rec.KDA())
		if rec.DurationMinutes > 0 {
			csPerMin = append(csPerMin, rec.CSPerMinute())
		}
		if rec.Win {
			wins++
		}
	}

	killsPerGame := kills / total
	deathsPerGame := deaths / total
	avgDamage := damage / total
	avgVision := vision / total
	var avgCS float64
	if len(csPerMin) > 0 {
		avgCS = stat.Mean(csPerMin, nil)
	}

	aggression := math.Min(10, (killsPerGame*e.cfg.GPIKillWeight+avgDamage/e.cfg.GPIDamageScale)/2)
	farming := math.Min(10, avgCS/e.cfg.GPICSReference*10)
	survivability := clamp(10-(deathsPerGame-e.cfg.GPIDeathFloor)*e.cfg.GPIDeathSlope, 0, 10)
	visionAxis := math.Min(10, avgVision/e.cfg.GPIVisionReference*10)
	versatility := math.Min(10, float64(len(champions))/e.cfg.GPIChampionPoolSize*10)

	winRate := float64(wins) / total * 100
	var kdaStdDev float64
	if len(kdas) > 1 {
		kdaStdDev = stat.StdDev(kdas, nil)
	}
	penalty := math.Min(e.cfg.GPIVarianceCap, kdaStdDev*e.cfg.GPIVariancePenalty)
	consistency := clamp(winRate/10-penalty, 0, 10)

	return GPIMetrics{
		Aggression:    round1(aggression),
		Farming:       round1(farming),
		Survivability: round1(survivability),
		Vision:        round1(visionAxis),
		Versatility:   round1(versatility),
		Consistency:   round1(consistency),
	}
}
