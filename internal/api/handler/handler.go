// Package handler provides HTTP handlers for all API endpoints. Handlers
// call the pipeline service and pass rendered JSON through the response
// cache; no table state lives in the API layer.
package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/pitchboard/pitchboard/internal/api/respond"
	"github.com/pitchboard/pitchboard/internal/cache"
	"github.com/pitchboard/pitchboard/internal/config"
	"github.com/pitchboard/pitchboard/internal/pipeline"
	"github.com/pitchboard/pitchboard/internal/table"
	"github.com/pitchboard/pitchboard/internal/trackman"
)

// Service is the pipeline surface the handlers depend on.
// *pipeline.Service implements it; tests substitute a fake.
type Service interface {
	Sessions(ctx context.Context, f pipeline.SessionFilter) ([]pipeline.Session, error)
	GameTable(ctx context.Context, opts pipeline.Options) (*pipeline.Result, error)
	PlaysTable(ctx context.Context, sessionID, separator string) (*table.Table, error)
	BallsTable(ctx context.Context, sessionID, separator, kind string) (*table.Table, error)
	MemoStats() pipeline.MemoStats
}

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	svc   Service
	cache *cache.Cache
	cfg   *config.Config
}

// New creates a Handler with shared dependencies.
func New(svc Service, c *cache.Cache, cfg *config.Config) *Handler {
	return &Handler{svc: svc, cache: c, cfg: cfg}
}

// Root serves API info at /.
// @Summary API root info
// @Description Returns API name, version, status, and available features.
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"name":      "Pitchboard API",
		"version":   "1.0.0",
		"status":    "running",
		"docs":      "/docs",
		"dashboard": "/dashboard",
		"features": []string{
			"trackman_session_discovery",
			"json_flattening",
			"play_ball_join",
			"column_filters",
			"csv_export",
			"gzip_compression",
			"in_memory_cache",
			"etag_support",
		},
	})
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

// tablePayload renders a table plus per-column summaries for widget building.
func (h *Handler) tablePayload(t *table.Table) map[string]interface{} {
	cols := t.Columns()
	if cols == nil {
		cols = []string{}
	}
	rows := t.Rows()
	if rows == nil {
		rows = [][]any{}
	}
	return map[string]interface{}{
		"columns":   cols,
		"rowCount":  t.RowCount(),
		"rows":      rows,
		"summaries": table.Summarize(t, h.cfg.MaxDistinctValues),
	}
}

// writePipelineError maps pipeline failures onto API statuses: bad options
// are the caller's fault, schema mismatches are unprocessable, and upstream
// failures surface as bad gateway.
func (h *Handler) writePipelineError(w http.ResponseWriter, err error) {
	var se *table.SchemaError
	var ae *trackman.AuthError
	var fe *trackman.FetchError
	switch {
	case errors.Is(err, pipeline.ErrInvalidOptions):
		respond.WriteError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
	case errors.As(err, &se):
		respond.WriteErrorDetail(w, http.StatusUnprocessableEntity, "SCHEMA_MISMATCH",
			"Query references a column the table does not have", se.Error())
	case errors.As(err, &ae):
		respond.WriteErrorDetail(w, http.StatusBadGateway, "UPSTREAM_AUTH",
			"TrackMan token exchange failed", ae.Error())
	case errors.As(err, &fe):
		respond.WriteErrorDetail(w, http.StatusBadGateway, "UPSTREAM_FETCH",
			"TrackMan fetch failed", fe.Error())
	default:
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Unexpected error")
	}
}

// parseTimeParam accepts RFC3339 timestamps or bare dates.
func parseTimeParam(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}
