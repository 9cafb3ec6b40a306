// Package handlers provides HTTP handlers for the analytics read API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/riftscope/riftscope/internal/analytics"
)

// defaultTimeframeDays is used when the caller does not pass ?days=N.
const defaultTimeframeDays = 30

// Handler handles analytics HTTP requests.
type Handler struct {
	service *analytics.Service
	log     zerolog.Logger
}

// NewHandler creates a new analytics handler.
func NewHandler(service *analytics.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "analytics").Logger(),
	}
}

// RegisterRoutes registers the analytics routes on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/analytics/{playerID}", func(r chi.Router) {
		r.Get("/snapshot", h.HandleGetSnapshot)
		r.Get("/overview", h.HandleGetOverview)
		r.Get("/champions", h.HandleGetChampions)
		r.Get("/roles", h.HandleGetRoles)
		r.Get("/gpi", h.HandleGetGPI)
		r.Get("/heatmap", h.HandleGetHeatmap)
		r.Get("/trends", h.HandleGetTrends)
		r.Get("/recent", h.HandleGetRecentMatches)
		r.Post("/invalidate", h.HandleInvalidate)
	})
}

// timeframe parses ?days=N, defaulting to 30. Validation happens in the
// service so non-positive values get rejected there.
func timeframe(r *http.Request) int {
	raw := r.URL.Query().Get("days")
	if raw == "" {
		return defaultTimeframeDays
	}
	days, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return days
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) *analytics.Snapshot {
	playerID := chi.URLParam(r, "playerID")

	snap, err := h.service.GetSnapshot(r.Context(), playerID, timeframe(r))
	if err != nil {
		var invalid *analytics.InvalidTimeframeError
		if errors.As(err, &invalid) {
			h.writeError(w, http.StatusBadRequest, invalid.Error())
			return nil
		}
		h.log.Error().Err(err).Str("player_id", playerID).Msg("Failed to build analytics snapshot")
		h.writeError(w, http.StatusServiceUnavailable, "analytics temporarily unavailable")
		return nil
	}
	return snap
}

// HandleGetSnapshot returns the full analytics bundle.
func (h *Handler) HandleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	if snap := h.snapshot(w, r); snap != nil {
		h.writeJSON(w, http.StatusOK, snap)
	}
}

// HandleGetOverview returns overall stats for the timeframe.
func (h *Handler) HandleGetOverview(w http.ResponseWriter, r *http.Request) {
	if snap := h.snapshot(w, r); snap != nil {
		h.writeJSON(w, http.StatusOK, snap.Overview)
	}
}

// HandleGetChampions returns per-champion stats, most played first.
func (h *Handler) HandleGetChampions(w http.ResponseWriter, r *http.Request) {
	if snap := h.snapshot(w, r); snap != nil {
		h.writeJSON(w, http.StatusOK, snap.Champions)
	}
}

// HandleGetRoles returns the per-role breakdown.
func (h *Handler) HandleGetRoles(w http.ResponseWriter, r *http.Request) {
	if snap := h.snapshot(w, r); snap != nil {
		h.writeJSON(w, http.StatusOK, snap.Roles)
	}
}

// HandleGetGPI returns the six-axis skill profile.
func (h *Handler) HandleGetGPI(w http.ResponseWriter, r *http.Request) {
	if snap := h.snapshot(w, r); snap != nil {
		h.writeJSON(w, http.StatusOK, snap.GPI)
	}
}

// HandleGetHeatmap returns the day/hour activity heatmap.
func (h *Handler) HandleGetHeatmap(w http.ResponseWriter, r *http.Request) {
	if snap := h.snapshot(w, r); snap != nil {
		h.writeJSON(w, http.StatusOK, snap.Heatmap)
	}
}

// HandleGetTrends returns the daily performance trend series.
func (h *Handler) HandleGetTrends(w http.ResponseWriter, r *http.Request) {
	if snap := h.snapshot(w, r); snap != nil {
		h.writeJSON(w, http.StatusOK, snap.Trends)
	}
}

// HandleGetRecentMatches returns per-match scorecards for recent games.
func (h *Handler) HandleGetRecentMatches(w http.ResponseWriter, r *http.Request) {
	if snap := h.snapshot(w, r); snap != nil {
		h.writeJSON(w, http.StatusOK, snap.RecentMatches)
	}
}

// HandleInvalidate drops cached snapshots for the player. The record store
// calls this after ingesting new matches.
func (h *Handler) HandleInvalidate(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")
	h.service.Invalidate(playerID)
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated", "player_id": playerID})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
