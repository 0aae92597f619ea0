package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pitchboard/pitchboard/internal/api/respond"
	"github.com/pitchboard/pitchboard/internal/pipeline"
	"github.com/pitchboard/pitchboard/internal/table"
)

// RunQuery runs the configurable pipeline and returns the resulting table.
// @Summary Run a game query
// @Description Fetches plays and balls for the requested sessions, joins and filters them, and returns the table with per-column summaries for widget building. An empty result is a 200 with rowCount 0.
// @Tags query
// @Accept json
// @Produce json
// @Param query body pipeline.Options true "Query options"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Failure 422 {object} respond.ErrorResponse
// @Failure 502 {object} respond.ErrorResponse
// @Router /api/v1/query [post]
func (h *Handler) RunQuery(w http.ResponseWriter, r *http.Request) {
	var opts pipeline.Options
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_BODY", "Request body must be a JSON query object")
		return
	}

	res, err := h.svc.GameTable(r.Context(), opts)
	if err != nil {
		h.writePipelineError(w, err)
		return
	}

	payload := h.tablePayload(res.Table)
	payload["runId"] = res.RunID
	if len(res.Warnings) > 0 {
		payload["warnings"] = res.Warnings
	}
	respond.WriteJSONObject(w, http.StatusOK, payload)
}

// ExportQuery runs the pipeline and streams the table as a CSV download.
// @Summary Export a game query as CSV
// @Description Runs the same pipeline as /query and streams the result as a CSV attachment.
// @Tags query
// @Accept json
// @Produce text/csv
// @Param query body pipeline.Options true "Query options"
// @Success 200 {string} string "CSV"
// @Failure 400 {object} respond.ErrorResponse
// @Failure 422 {object} respond.ErrorResponse
// @Failure 502 {object} respond.ErrorResponse
// @Router /api/v1/query/export [post]
func (h *Handler) ExportQuery(w http.ResponseWriter, r *http.Request) {
	var opts pipeline.Options
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_BODY", "Request body must be a JSON query object")
		return
	}

	res, err := h.svc.GameTable(r.Context(), opts)
	if err != nil {
		h.writePipelineError(w, err)
		return
	}

	short := res.RunID
	if len(short) > 8 {
		short = short[:8]
	}
	respond.StartCSVAttachment(w, fmt.Sprintf("pitchboard_%s.csv", short))
	_ = table.WriteCSV(w, res.Table)
}
