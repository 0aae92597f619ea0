package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/pitchboard/pitchboard/internal/api/respond"
	"github.com/pitchboard/pitchboard/internal/cache"
	"github.com/pitchboard/pitchboard/internal/pipeline"
)

// ListSessions returns sessions in a time window for the session picker.
// @Summary List sessions
// @Description Returns TrackMan sessions in a UTC window with display labels. Defaults to the last seven days.
// @Tags sessions
// @Produce json
// @Param from query string false "Window start (RFC3339 or YYYY-MM-DD)"
// @Param to query string false "Window end (RFC3339 or YYYY-MM-DD)"
// @Param type query string false "Session type" Enums(All, Game, Practice)
// @Param team query string false "Keep sessions where home or away team matches; repeatable"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Failure 502 {object} respond.ErrorResponse
// @Router /api/v1/sessions [get]
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var f pipeline.SessionFilter
	if s := q.Get("from"); s != "" {
		ts, err := parseTimeParam(s)
		if err != nil {
			respond.WriteError(w, http.StatusBadRequest, "INVALID_TIME", "from must be RFC3339 or YYYY-MM-DD")
			return
		}
		f.From = ts
	}
	if s := q.Get("to"); s != "" {
		ts, err := parseTimeParam(s)
		if err != nil {
			respond.WriteError(w, http.StatusBadRequest, "INVALID_TIME", "to must be RFC3339 or YYYY-MM-DD")
			return
		}
		f.To = ts
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_TIME", "to is before from")
		return
	}
	f.Type = q.Get("type")
	f.Teams = q["team"]

	ttl := h.cfg.ResponseCacheTTL()
	cacheKey := cache.Key("sessions",
		f.From.UTC().Format(time.RFC3339),
		f.To.UTC().Format(time.RFC3339),
		f.Type,
		strings.Join(f.Teams, ","),
	)

	if data, etag, ok := h.cache.Get(cacheKey); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, ttl, true)
		return
	}

	sessions, err := h.svc.Sessions(r.Context(), f)
	if err != nil {
		h.writePipelineError(w, err)
		return
	}
	if sessions == nil {
		sessions = []pipeline.Session{}
	}

	data, err := json.Marshal(map[string]interface{}{
		"count":    len(sessions),
		"sessions": sessions,
	})
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "ENCODING", "Failed to encode sessions")
		return
	}

	etag := h.cache.Set(cacheKey, data, ttl)
	respond.WriteJSON(w, data, etag, ttl, false)
}
