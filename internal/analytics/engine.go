// Package analytics computes derived performance statistics from match
// participant records. The engine is pure: no I/O, no shared mutable state,
// and every function returns well-defined zero values on empty input.
package analytics

import (
	"math"

	"github.com/riftscope/riftscope/internal/config"
)

// Engine computes derived statistics. All reference constants and weights
// come from configuration; the engine itself holds no tunable numbers.
type Engine struct {
	cfg config.AnalyticsConfig
}

// NewEngine creates an aggregation engine with the given constants.
func NewEngine(cfg config.AnalyticsConfig) *Engine {
	return &Engine{cfg: cfg}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
