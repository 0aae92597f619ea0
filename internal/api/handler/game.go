package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pitchboard/pitchboard/internal/api/respond"
	"github.com/pitchboard/pitchboard/internal/cache"
	"github.com/pitchboard/pitchboard/internal/table"
)

// GetPlays returns the flattened play feed for a session.
// @Summary Get session plays
// @Description Returns the play feed flattened into a table with per-column summaries.
// @Tags game
// @Produce json
// @Param sessionID path string true "Session ID"
// @Param separator query string false "Path separator for flattened columns (default .)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Failure 502 {object} respond.ErrorResponse
// @Router /api/v1/sessions/{sessionID}/plays [get]
func (h *Handler) GetPlays(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	separator := r.URL.Query().Get("separator")

	ttl := h.cfg.ResponseCacheTTL()
	cacheKey := cache.Key("plays", sessionID, separator)

	if data, etag, ok := h.cache.Get(cacheKey); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, ttl, true)
		return
	}

	t, err := h.svc.PlaysTable(r.Context(), sessionID, separator)
	if err != nil {
		h.writePipelineError(w, err)
		return
	}
	h.writeTable(w, t, cacheKey, ttl)
}

// GetBalls returns the flattened ball feed for a session.
// @Summary Get session balls
// @Description Returns the ball feed flattened into a table, optionally narrowed to one kind tag.
// @Tags game
// @Produce json
// @Param sessionID path string true "Session ID"
// @Param kind query string false "Keep only balls with this kind tag" Enums(Pitch, Hit)
// @Param separator query string false "Path separator for flattened columns (default .)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Failure 422 {object} respond.ErrorResponse
// @Failure 502 {object} respond.ErrorResponse
// @Router /api/v1/sessions/{sessionID}/balls [get]
func (h *Handler) GetBalls(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	separator := r.URL.Query().Get("separator")
	kind := r.URL.Query().Get("kind")

	ttl := h.cfg.ResponseCacheTTL()
	cacheKey := cache.Key("balls", sessionID, separator, kind)

	if data, etag, ok := h.cache.Get(cacheKey); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, ttl, true)
		return
	}

	t, err := h.svc.BallsTable(r.Context(), sessionID, separator, kind)
	if err != nil {
		h.writePipelineError(w, err)
		return
	}
	h.writeTable(w, t, cacheKey, ttl)
}

// writeTable marshals a table payload, stores it, and writes it with cache
// headers.
func (h *Handler) writeTable(w http.ResponseWriter, t *table.Table, cacheKey string, ttl time.Duration) {
	data, err := json.Marshal(h.tablePayload(t))
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "ENCODING", "Failed to encode table")
		return
	}
	etag := h.cache.Set(cacheKey, data, ttl)
	respond.WriteJSON(w, data, etag, ttl, false)
}
