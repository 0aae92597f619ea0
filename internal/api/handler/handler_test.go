package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitchboard/pitchboard/internal/api"
	"github.com/pitchboard/pitchboard/internal/api/handler"
	"github.com/pitchboard/pitchboard/internal/cache"
	"github.com/pitchboard/pitchboard/internal/config"
	"github.com/pitchboard/pitchboard/internal/metrics"
	"github.com/pitchboard/pitchboard/internal/pipeline"
	"github.com/pitchboard/pitchboard/internal/table"
	"github.com/pitchboard/pitchboard/internal/trackman"
)

type fakeService struct {
	sessions    []pipeline.Session
	sessionsErr error
	result      *pipeline.Result
	gameErr     error
	plays       *table.Table
	playsErr    error
	balls       *table.Table
	ballsErr    error

	lastFilter pipeline.SessionFilter
	lastOpts   pipeline.Options
	lastKind   string
}

func (f *fakeService) Sessions(_ context.Context, filter pipeline.SessionFilter) ([]pipeline.Session, error) {
	f.lastFilter = filter
	return f.sessions, f.sessionsErr
}

func (f *fakeService) GameTable(_ context.Context, opts pipeline.Options) (*pipeline.Result, error) {
	f.lastOpts = opts
	if f.gameErr != nil {
		return nil, f.gameErr
	}
	return f.result, nil
}

func (f *fakeService) PlaysTable(_ context.Context, sessionID, separator string) (*table.Table, error) {
	return f.plays, f.playsErr
}

func (f *fakeService) BallsTable(_ context.Context, sessionID, separator, kind string) (*table.Table, error) {
	f.lastKind = kind
	return f.balls, f.ballsErr
}

func (f *fakeService) MemoStats() pipeline.MemoStats {
	return pipeline.MemoStats{Size: 1, Capacity: 256, Hits: 3, Misses: 2}
}

func newTestServer(t *testing.T, svc handler.Service) *httptest.Server {
	t.Helper()
	cfg := config.Default()
	cfg.TrackmanClientID = "id"
	cfg.TrackmanClientSecret = "secret"
	srv := httptest.NewServer(api.NewRouter(svc, cache.New(true), metrics.New(), cfg))
	t.Cleanup(srv.Close)
	return srv
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func gameResult() *pipeline.Result {
	return &pipeline.Result{
		RunID: "11111111-2222-3333-4444-555555555555",
		Table: table.FromRows(
			[]string{"playID", "pitch.release.relSpeed", "sessionId"},
			[][]any{{"p1", 92.4, "s1"}, {"p2", 88.0, "s1"}},
		),
	}
}

func TestRoot(t *testing.T) {
	srv := newTestServer(t, &fakeService{})

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	body := decodeBody(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Pitchboard API", body["name"])
	assert.Equal(t, "/dashboard", body["dashboard"])
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t, &fakeService{})

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	body := decodeBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])

	resp, err = http.Get(srv.URL + "/health/cache")
	require.NoError(t, err)
	body = decodeBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "cache")
	assert.Contains(t, body, "memo")
}

func TestListSessions(t *testing.T) {
	svc := &fakeService{sessions: []pipeline.Session{
		{ID: "s1", Label: "Tigers vs Lions (s1)"},
		{ID: "s2", Label: "Bullpen AM (s2)"},
	}}
	srv := newTestServer(t, svc)

	url := srv.URL + "/api/v1/sessions?from=2025-05-01&to=2025-05-02&type=Game&team=Tigers"
	resp, err := http.Get(url)
	require.NoError(t, err)
	body := decodeBody(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), body["count"])
	assert.Equal(t, "MISS", resp.Header.Get("X-Cache"))
	assert.Equal(t, "Game", svc.lastFilter.Type)
	assert.Equal(t, []string{"Tigers"}, svc.lastFilter.Teams)
	assert.Equal(t, 2025, svc.lastFilter.From.Year())

	etag := resp.Header.Get("ETag")
	require.NotEmpty(t, etag)

	// Second fetch is served from the response cache.
	resp, err = http.Get(url)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "HIT", resp.Header.Get("X-Cache"))

	// Conditional requests get a 304.
	req, _ := http.NewRequest(http.MethodGet, url, nil)
	req.Header.Set("If-None-Match", etag)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotModified, resp.StatusCode)
}

func TestListSessionsBadTime(t *testing.T) {
	srv := newTestServer(t, &fakeService{})

	resp, err := http.Get(srv.URL + "/api/v1/sessions?from=yesterday")
	require.NoError(t, err)
	body := decodeBody(t, resp)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	errObj := body["error"].(map[string]any)
	assert.Equal(t, "INVALID_TIME", errObj["code"])
}

func TestListSessionsUpstreamError(t *testing.T) {
	svc := &fakeService{sessionsErr: &trackman.AuthError{Status: 401, Body: "invalid_client"}}
	srv := newTestServer(t, svc)

	resp, err := http.Get(srv.URL + "/api/v1/sessions")
	require.NoError(t, err)
	body := decodeBody(t, resp)

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	errObj := body["error"].(map[string]any)
	assert.Equal(t, "UPSTREAM_AUTH", errObj["code"])
}

func TestGetPlays(t *testing.T) {
	svc := &fakeService{plays: table.FromRows(
		[]string{"playID", "utcDateTime"},
		[][]any{{"p1", "2025-05-01T18:00:00Z"}},
	)}
	srv := newTestServer(t, svc)

	resp, err := http.Get(srv.URL + "/api/v1/sessions/s1/plays")
	require.NoError(t, err)
	body := decodeBody(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["rowCount"])
	assert.Equal(t, []any{"playID", "utcDateTime"}, body["columns"])
	assert.NotEmpty(t, resp.Header.Get("ETag"))
	require.Len(t, body["summaries"], 2)
}

func TestGetBallsPassesKind(t *testing.T) {
	svc := &fakeService{balls: table.FromRows(
		[]string{"playId", "kind"},
		[][]any{{"p1", "Pitch"}},
	)}
	srv := newTestServer(t, svc)

	resp, err := http.Get(srv.URL + "/api/v1/sessions/s1/balls?kind=Pitch")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Pitch", svc.lastKind)
}

func TestRunQuery(t *testing.T) {
	svc := &fakeService{result: gameResult()}
	srv := newTestServer(t, svc)

	payload := `{"sessionIds":["s1"],"joinMode":"inner","pitchOnly":true,"filters":[{"column":"pitch.release.relSpeed","kind":"range","min":90}]}`
	resp, err := http.Post(srv.URL+"/api/v1/query", "application/json", strings.NewReader(payload))
	require.NoError(t, err)
	body := decodeBody(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "11111111-2222-3333-4444-555555555555", body["runId"])
	assert.Equal(t, float64(2), body["rowCount"])

	assert.Equal(t, []string{"s1"}, svc.lastOpts.SessionIDs)
	assert.Equal(t, "inner", svc.lastOpts.JoinMode)
	assert.True(t, svc.lastOpts.PitchOnly)
	require.Len(t, svc.lastOpts.Filters, 1)
	assert.Equal(t, table.FilterRange, svc.lastOpts.Filters[0].Kind)
	require.NotNil(t, svc.lastOpts.Filters[0].Min)
	assert.Equal(t, 90.0, *svc.lastOpts.Filters[0].Min)
}

func TestRunQueryWarnings(t *testing.T) {
	res := gameResult()
	res.Warnings = []string{"session s1: balls fetch failed: fetch /game/balls/s1 returned 500: boom"}
	srv := newTestServer(t, &fakeService{result: res})

	resp, err := http.Post(srv.URL+"/api/v1/query", "application/json", strings.NewReader(`{"sessionIds":["s1"]}`))
	require.NoError(t, err)
	body := decodeBody(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, body["warnings"], 1)
}

func TestRunQueryBadBody(t *testing.T) {
	srv := newTestServer(t, &fakeService{})

	resp, err := http.Post(srv.URL+"/api/v1/query", "application/json", strings.NewReader("not json"))
	require.NoError(t, err)
	body := decodeBody(t, resp)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	errObj := body["error"].(map[string]any)
	assert.Equal(t, "INVALID_BODY", errObj["code"])
}

func TestRunQueryErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"invalid options", pipeline.ErrInvalidOptions, http.StatusBadRequest, "INVALID_REQUEST"},
		{"schema mismatch", &table.SchemaError{Column: "playId", Reason: "join key not in right table"}, http.StatusUnprocessableEntity, "SCHEMA_MISMATCH"},
		{"upstream auth", &trackman.AuthError{Status: 401, Body: "nope"}, http.StatusBadGateway, "UPSTREAM_AUTH"},
		{"upstream fetch", &trackman.FetchError{Endpoint: "/game/plays/s1", Status: 503, Body: "down"}, http.StatusBadGateway, "UPSTREAM_FETCH"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(t, &fakeService{gameErr: tc.err})

			resp, err := http.Post(srv.URL+"/api/v1/query", "application/json", strings.NewReader(`{"sessionIds":["s1"]}`))
			require.NoError(t, err)
			body := decodeBody(t, resp)

			assert.Equal(t, tc.wantStatus, resp.StatusCode)
			errObj := body["error"].(map[string]any)
			assert.Equal(t, tc.wantCode, errObj["code"])
		})
	}
}

func TestExportQueryCSV(t *testing.T) {
	srv := newTestServer(t, &fakeService{result: gameResult()})

	resp, err := http.Post(srv.URL+"/api/v1/query/export", "application/json", strings.NewReader(`{"sessionIds":["s1"]}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), `attachment; filename="pitchboard_11111111.csv"`)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "playID,pitch.release.relSpeed,sessionId", lines[0])
}

func TestExportQueryErrorStaysJSON(t *testing.T) {
	srv := newTestServer(t, &fakeService{gameErr: &table.SchemaError{Column: "x", Reason: "missing"}})

	resp, err := http.Post(srv.URL+"/api/v1/query/export", "application/json", strings.NewReader(`{"sessionIds":["s1"]}`))
	require.NoError(t, err)
	body := decodeBody(t, resp)

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	errObj := body["error"].(map[string]any)
	assert.Equal(t, "SCHEMA_MISMATCH", errObj["code"])
}

func TestDashboardServed(t *testing.T) {
	srv := newTestServer(t, &fakeService{})

	resp, err := http.Get(srv.URL + "/dashboard")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.Contains(raw, []byte("<title>Pitchboard</title>")))
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, &fakeService{})

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "pitchboard_http_active_requests")
}

func TestProcessTimeHeader(t *testing.T) {
	srv := newTestServer(t, &fakeService{})

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.NotEmpty(t, resp.Header.Get("X-Process-Time"))
}
