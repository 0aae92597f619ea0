package handler

import (
	_ "embed"
	"net/http"
)

//go:embed static/dashboard.html
var dashboardHTML []byte

// Dashboard serves the embedded single-page dashboard.
// @Summary Interactive dashboard
// @Description Serves the embedded HTML dashboard: session picker, filter widgets, time-series plots, CSV download.
// @Tags meta
// @Produce html
// @Success 200 {string} string "HTML"
// @Router /dashboard [get]
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(dashboardHTML)
}
