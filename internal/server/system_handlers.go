package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/riftscope/riftscope/internal/database"
	"github.com/riftscope/riftscope/internal/ratelimit"
	"github.com/riftscope/riftscope/internal/rescache"
)

// SystemHandlers serves health and operational stats endpoints.
type SystemHandlers struct {
	log       zerolog.Logger
	matchesDB *database.DB
	clientDB  *database.DB
	cache     *rescache.Cache
	limiter   *ratelimit.Limiter
	startedAt time.Time
}

// NewSystemHandlers creates the system endpoint handlers.
func NewSystemHandlers(
	log zerolog.Logger,
	matchesDB *database.DB,
	clientDB *database.DB,
	cache *rescache.Cache,
	limiter *ratelimit.Limiter,
) *SystemHandlers {
	return &SystemHandlers{
		log:       log.With().Str("handler", "system").Logger(),
		matchesDB: matchesDB,
		clientDB:  clientDB,
		cache:     cache,
		limiter:   limiter,
		startedAt: time.Now(),
	}
}

// HandleHealth reports liveness plus database reachability.
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	databases := map[string]string{}

	for name, db := range map[string]*database.DB{
		"matches":     h.matchesDB,
		"client_data": h.clientDB,
	} {
		if db == nil {
			continue
		}
		if err := db.HealthCheck(r.Context()); err != nil {
			databases[name] = "unreachable"
			status = "degraded"
		} else {
			databases[name] = "ok"
		}
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}

	h.writeJSON(w, code, map[string]interface{}{
		"status":         status,
		"databases":      databases,
		"uptime_seconds": int(time.Since(h.startedAt).Seconds()),
	})
}

// HandleStats reports cache, limiter and host resource statistics.
func (h *SystemHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{
		"uptime_seconds": int(time.Since(h.startedAt).Seconds()),
	}

	if h.cache != nil {
		stats["cache"] = h.cache.Stats()
	}
	if h.limiter != nil {
		stats["rate_limiter"] = h.limiter.Statuses()
	}

	if cpuPercent, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(cpuPercent) > 0 {
		stats["cpu_percent"] = cpuPercent[0]
	}
	if memStat, err := mem.VirtualMemory(); err == nil {
		stats["memory_used_percent"] = memStat.UsedPercent
	}

	h.writeJSON(w, http.StatusOK, stats)
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
