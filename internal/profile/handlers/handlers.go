// Package handlers provides HTTP handlers for identity and static lookups.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/riftscope/riftscope/internal/gateway"
	"github.com/riftscope/riftscope/internal/profile"
	"github.com/riftscope/riftscope/internal/ratelimit"
)

// Handler handles profile lookup HTTP requests.
type Handler struct {
	service *profile.Service
	log     zerolog.Logger
}

// NewHandler creates a new profile handler.
func NewHandler(service *profile.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "profile").Logger(),
	}
}

// RegisterRoutes registers the profile routes on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/profiles/lookup", h.HandleLookup)
	r.Get("/api/players/{playerID}/summoner", h.HandleSummoner)
	r.Get("/api/static/rotation", h.HandleRotation)
}

// HandleLookup resolves a Riot ID (?name=&tag=) to a full profile.
func (h *Handler) HandleLookup(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	tag := r.URL.Query().Get("tag")
	if name == "" || tag == "" {
		h.writeError(w, http.StatusBadRequest, "name and tag query parameters are required")
		return
	}

	prof, err := h.service.Lookup(r.Context(), name, tag)
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}
	if prof == nil {
		h.writeError(w, http.StatusNotFound, "no such player")
		return
	}

	h.writeJSON(w, http.StatusOK, prof)
}

// HandleSummoner returns the platform summoner record for a player.
func (h *Handler) HandleSummoner(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")

	summoner, err := h.service.SummonerByPUUID(r.Context(), playerID)
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}
	if summoner == nil {
		h.writeError(w, http.StatusNotFound, "no such player")
		return
	}

	h.writeJSON(w, http.StatusOK, summoner)
}

// HandleRotation returns the current free champion rotation.
func (h *Handler) HandleRotation(w http.ResponseWriter, r *http.Request) {
	rotation, err := h.service.Rotation(r.Context())
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, rotation)
}

// writeUpstreamError maps the gateway error taxonomy onto HTTP statuses.
func (h *Handler) writeUpstreamError(w http.ResponseWriter, err error) {
	h.log.Error().Err(err).Msg("Profile lookup failed")

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
	h.writeError(w, http.StatusInternalServerError, "profile lookup failed")
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
