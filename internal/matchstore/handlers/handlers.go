// Package handlers provides HTTP handlers for match ingestion.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/riftscope/riftscope/internal/gateway"
	"github.com/riftscope/riftscope/internal/matchstore"
	"github.com/riftscope/riftscope/internal/ratelimit"
)

// Handler handles match sync HTTP requests.
type Handler struct {
	sync *matchstore.SyncService
	repo *matchstore.Repository
	log  zerolog.Logger
}

// NewHandler creates a new match store handler.
func NewHandler(sync *matchstore.SyncService, repo *matchstore.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		sync: sync,
		repo: repo,
		log:  log.With().Str("handler", "matchstore").Logger(),
	}
}

// RegisterRoutes registers the match store routes on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/players/{playerID}", func(r chi.Router) {
		r.Post("/sync", h.HandleSync)
		r.Get("/matches/count", h.HandleCount)
	})
}

// HandleSync pulls recent matches for the player from the upstream provider
// and persists them. ?count=N bounds how many match IDs to fetch.
func (h *Handler) HandleSync(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")

	count := 20
	if raw := r.URL.Query().Get("count"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 100 {
			h.writeError(w, http.StatusBadRequest, "count must be between 1 and 100")
			return
		}
		count = parsed
	}

	result, err := h.sync.SyncPlayer(r.Context(), playerID, count)
	if err != nil {
		h.writeUpstreamError(w, playerID, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// HandleCount returns how many records are stored for the player.
func (h *Handler) HandleCount(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")

	count, err := h.repo.CountRecords(playerID)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"player_id": playerID,
		"records":   count,
	})
}

// writeUpstreamError maps the gateway error taxonomy onto HTTP statuses.
// Every terminal failure reads as "temporarily unavailable" to the caller,
// never as "no data exists".
func (h *Handler) writeUpstreamError(w http.ResponseWriter, playerID string, err error) {
	h.log.Error().Err(err).Str("player_id", playerID).Msg("Match sync failed")

	var throttled *gateway.ThrottledError
	if errors.As(err, &throttled) {
		if throttled.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(throttled.RetryAfter.Seconds())))
		}
		h.writeError(w, http.StatusServiceUnavailable, "upstream quota exhausted, try again later")
		return
	}
	if ratelimit.IsRateLimitExceeded(err) {
		h.writeError(w, http.StatusServiceUnavailable, "rate limit budget exceeded, try again later")
		return
	}
	if gateway.IsRejected(err) || gateway.IsUnavailable(err) {
		h.writeError(w, http.StatusBadGateway, "upstream data temporarily unavailable")
		return
	}
	h.writeError(w, http.StatusInternalServerError, "match sync failed")
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
