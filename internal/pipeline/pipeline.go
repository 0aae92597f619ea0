// Package pipeline turns raw TrackMan records into joined, filtered,
// dashboard-ready tables. One configurable flow serves every surface: the
// HTTP API, the CSV exporter, and the embedded dashboard all run the same
// steps with different Options.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pitchboard/pitchboard/internal/config"
	"github.com/pitchboard/pitchboard/internal/metrics"
	"github.com/pitchboard/pitchboard/internal/table"
	"github.com/pitchboard/pitchboard/internal/trackman"
)

// Fetcher is the slice of the TrackMan client the pipeline needs.
// *trackman.Client satisfies it; tests substitute a fake.
type Fetcher interface {
	QuerySessions(ctx context.Context, q trackman.SessionQuery) ([]trackman.Record, error)
	Plays(ctx context.Context, sessionID string) ([]trackman.Record, error)
	Balls(ctx context.Context, sessionID string) ([]trackman.Record, error)
}

// Service wires fetching, memoization, and table shaping together.
type Service struct {
	cfg     *config.Config
	fetcher Fetcher
	memo    *Memo
	metrics *metrics.Manager
	logger  *slog.Logger
}

// New builds the pipeline service. A nil metrics manager or logger is
// replaced with a working default.
func New(cfg *config.Config, fetcher Fetcher, m *metrics.Manager, logger *slog.Logger) *Service {
	if m == nil {
		m = metrics.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:     cfg,
		fetcher: fetcher,
		memo:    NewMemo(cfg.MemoCapacity, cfg.MemoTTL()),
		metrics: m,
		logger:  logger,
	}
}

// MemoStats exposes fetch-cache counters for the health endpoint.
func (s *Service) MemoStats() MemoStats {
	return s.memo.Stats()
}

// ----------------------------------------------------------------------------
// Session discovery
// ----------------------------------------------------------------------------

// Session is one row of the session picker.
type Session struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Type     string `json:"type,omitempty"`
	UTCDate  string `json:"utcDateTime,omitempty"`
	HomeTeam string `json:"homeTeam,omitempty"`
	AwayTeam string `json:"awayTeam,omitempty"`
}

// SessionFilter narrows the session listing. Zero times default to the last
// seven days; an empty type falls back to the configured default.
type SessionFilter struct {
	From  time.Time
	To    time.Time
	Type  string
	Teams []string
}

// Sessions lists sessions in a window, newest window defaults first. Results
// are memoized per (type, window) so repeated picker loads do not refetch.
func (s *Service) Sessions(ctx context.Context, f SessionFilter) ([]Session, error) {
	if f.Type == "" {
		f.Type = s.cfg.DefaultSessionType
	}
	if f.To.IsZero() {
		f.To = time.Now().UTC()
	}
	if f.From.IsZero() {
		f.From = f.To.AddDate(0, 0, -7)
	}

	key := memoKey("sessions", f.Type, f.From.UTC().Format(time.RFC3339), f.To.UTC().Format(time.RFC3339))
	records, err := s.memoized(ctx, key, "sessions", func(ctx context.Context) ([]trackman.Record, error) {
		return s.fetcher.QuerySessions(ctx, trackman.SessionQuery{From: f.From, To: f.To, Type: f.Type})
	})
	if err != nil {
		return nil, err
	}

	sessions := toSessions(records)
	if len(f.Teams) > 0 {
		sessions = filterTeams(sessions, f.Teams)
	}
	return sessions, nil
}

func toSessions(records []trackman.Record) []Session {
	out := make([]Session, 0, len(records))
	for _, r := range records {
		id := stringField(r, "sessionId")
		if id == "" {
			id = stringField(r, "id")
		}
		if id == "" {
			continue
		}
		sess := Session{
			ID:       id,
			Type:     stringField(r, "sessionType"),
			UTCDate:  stringField(r, "utcDateTime"),
			HomeTeam: teamName(r, "homeTeam"),
			AwayTeam: teamName(r, "awayTeam"),
		}
		sess.Label = sessionLabel(sess, r)
		out = append(out, sess)
	}
	return out
}

// sessionLabel renders "Home vs Away (12345678)". Sessions without teams
// fall back to the session name, then to the bare id.
func sessionLabel(s Session, r trackman.Record) string {
	short := s.ID
	if len(short) > 8 {
		short = short[:8]
	}
	if s.HomeTeam != "" || s.AwayTeam != "" {
		home, away := s.HomeTeam, s.AwayTeam
		if home == "" {
			home = "Unknown"
		}
		if away == "" {
			away = "Unknown"
		}
		return fmt.Sprintf("%s vs %s (%s)", home, away, short)
	}
	if name := stringField(r, "sessionName"); name != "" {
		return fmt.Sprintf("%s (%s)", name, short)
	}
	return s.ID
}

// teamName digs a display name out of a team field, which the feed delivers
// either as a plain string or as an object with shortName/name.
func teamName(r trackman.Record, key string) string {
	switch t := r[key].(type) {
	case string:
		return t
	case map[string]any:
		for _, k := range []string{"shortName", "name", "fullName"} {
			if s, _ := t[k].(string); s != "" {
				return s
			}
		}
	}
	return ""
}

func stringField(r trackman.Record, key string) string {
	s, _ := r[key].(string)
	return s
}

func filterTeams(sessions []Session, teams []string) []Session {
	out := make([]Session, 0, len(sessions))
	for _, s := range sessions {
		for _, team := range teams {
			if strings.EqualFold(s.HomeTeam, team) || strings.EqualFold(s.AwayTeam, team) {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

// ----------------------------------------------------------------------------
// Game pipeline
// ----------------------------------------------------------------------------

// Result is one finished pipeline run.
type Result struct {
	RunID    string
	Table    *table.Table
	Warnings []string
}

func (r *Result) addWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// GameTable runs the full pipeline: fetch plays and balls for every session,
// flatten both feeds, join them on the play key, stack the sessions, sort,
// derive relative time, and filter. A session where one feed fails degrades
// to the surviving side with a warning; a session where both fail, or a
// filter or join against a missing column, fails the whole run.
func (s *Service) GameTable(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.Normalize(s.cfg.DefaultJoinMode, s.cfg.DefaultSeparator); err != nil {
		return nil, err
	}
	mode, err := table.ParseJoinMode(opts.JoinMode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}

	res := &Result{RunID: uuid.NewString()}
	start := time.Now()

	parts := make([]*table.Table, 0, len(opts.SessionIDs))
	for _, id := range opts.SessionIDs {
		part, err := s.sessionTable(ctx, id, mode, opts, res)
		if err != nil {
			return nil, err
		}
		if part == nil || len(part.Columns()) == 0 {
			continue
		}
		part = table.WithColumn(part, SessionColumn, repeat(id, part.RowCount()))
		parts = append(parts, part)
	}

	out := table.Concat(parts...)

	if out.HasColumn(opts.SortColumn) {
		if out, err = table.SortByTime(out, opts.SortColumn); err != nil {
			return nil, err
		}
	} else if out.RowCount() > 0 {
		res.addWarning("sort column %q not present; rows left unsorted", opts.SortColumn)
	}

	if opts.RelativeTime {
		if out.HasColumn(opts.SortColumn) {
			if out, err = table.WithRelativeSeconds(out, opts.SortColumn, RelativeTimeColumn); err != nil {
				return nil, err
			}
		} else if out.RowCount() > 0 {
			res.addWarning("relative time needs column %q; skipped", opts.SortColumn)
		}
	}

	if len(opts.Filters) > 0 {
		if out, err = table.ApplyFilters(out, opts.Filters); err != nil {
			return nil, err
		}
	}

	res.Table = out
	s.logger.Info("game table built",
		"runId", res.RunID,
		"sessions", len(opts.SessionIDs),
		"rows", out.RowCount(),
		"columns", len(out.Columns()),
		"warnings", len(res.Warnings),
		"elapsed", time.Since(start).Round(time.Millisecond).String(),
	)
	return res, nil
}

// sessionTable builds the joined table for a single session.
func (s *Service) sessionTable(ctx context.Context, id string, mode table.JoinMode, opts Options, res *Result) (*table.Table, error) {
	plays, balls, playsErr, ballsErr := s.fetchGame(ctx, id)
	if playsErr != nil && ballsErr != nil {
		return nil, playsErr
	}
	if playsErr != nil {
		res.addWarning("session %s: plays fetch failed: %v", id, playsErr)
		s.logger.Warn("plays fetch failed", "session", id, "error", playsErr)
	}
	if ballsErr != nil {
		res.addWarning("session %s: balls fetch failed: %v", id, ballsErr)
		s.logger.Warn("balls fetch failed", "session", id, "error", ballsErr)
	}

	left := table.Flatten(plays, opts.Separator)
	right := table.Flatten(balls, opts.Separator)

	if opts.PitchOnly {
		right = s.pitchOnly(right, res, id)
	}

	// A side with no columns means its fetch produced nothing; serve the
	// surviving side instead of failing the join.
	switch {
	case len(left.Columns()) == 0 && len(right.Columns()) == 0:
		return nil, nil
	case len(left.Columns()) == 0:
		return right, nil
	case len(right.Columns()) == 0:
		return left, nil
	}
	return table.Join(left, right, opts.LeftKey, opts.RightKey, mode, opts.Suffixes)
}

type gameFetch struct {
	kind    string
	records []trackman.Record
	err     error
}

// fetchGame pulls the play and ball feeds for one session concurrently.
func (s *Service) fetchGame(ctx context.Context, sessionID string) (plays, balls []trackman.Record, playsErr, ballsErr error) {
	ch := make(chan gameFetch, 2)
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		records, err := s.memoized(ctx, memoKey("plays", sessionID), "plays", func(ctx context.Context) ([]trackman.Record, error) {
			return s.fetcher.Plays(ctx, sessionID)
		})
		ch <- gameFetch{kind: "plays", records: records, err: err}
	}()
	go func() {
		defer wg.Done()
		records, err := s.memoized(ctx, memoKey("balls", sessionID), "balls", func(ctx context.Context) ([]trackman.Record, error) {
			return s.fetcher.Balls(ctx, sessionID)
		})
		ch <- gameFetch{kind: "balls", records: records, err: err}
	}()

	wg.Wait()
	close(ch)

	for r := range ch {
		if r.kind == "plays" {
			plays, playsErr = r.records, r.err
		} else {
			balls, ballsErr = r.records, r.err
		}
	}
	return plays, balls, playsErr, ballsErr
}

// pitchOnly keeps ball rows tagged as pitches. A feed without the kind
// column passes through with a warning rather than failing the run.
func (s *Service) pitchOnly(t *table.Table, res *Result, sessionID string) *table.Table {
	if !t.HasColumn(KindColumn) {
		if t.RowCount() > 0 {
			res.addWarning("session %s: no %s column; pitchOnly skipped", sessionID, KindColumn)
		}
		return t
	}
	filtered, err := table.ApplyFilters(t, []table.Filter{
		{Column: KindColumn, Kind: table.FilterIn, Values: []string{PitchKind}},
	})
	if err != nil {
		res.addWarning("session %s: pitchOnly skipped: %v", sessionID, err)
		return t
	}
	return filtered
}

// ----------------------------------------------------------------------------
// Single-feed tables
// ----------------------------------------------------------------------------

// PlaysTable returns the flattened play feed for one session.
func (s *Service) PlaysTable(ctx context.Context, sessionID, separator string) (*table.Table, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("%w: session id is required", ErrInvalidOptions)
	}
	if separator == "" {
		separator = s.cfg.DefaultSeparator
	}
	records, err := s.memoized(ctx, memoKey("plays", sessionID), "plays", func(ctx context.Context) ([]trackman.Record, error) {
		return s.fetcher.Plays(ctx, sessionID)
	})
	if err != nil {
		return nil, err
	}
	return table.Flatten(records, separator), nil
}

// BallsTable returns the flattened ball feed for one session, optionally
// narrowed to a single kind tag such as "Pitch" or "Hit".
func (s *Service) BallsTable(ctx context.Context, sessionID, separator, kind string) (*table.Table, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("%w: session id is required", ErrInvalidOptions)
	}
	if separator == "" {
		separator = s.cfg.DefaultSeparator
	}
	records, err := s.memoized(ctx, memoKey("balls", sessionID), "balls", func(ctx context.Context) ([]trackman.Record, error) {
		return s.fetcher.Balls(ctx, sessionID)
	})
	if err != nil {
		return nil, err
	}
	t := table.Flatten(records, separator)
	if kind == "" {
		return t, nil
	}
	return table.ApplyFilters(t, []table.Filter{
		{Column: KindColumn, Kind: table.FilterIn, Values: []string{kind}},
	})
}

// ----------------------------------------------------------------------------
// Fetch memoization
// ----------------------------------------------------------------------------

// memoized returns the records for key, fetching and storing them on miss.
func (s *Service) memoized(ctx context.Context, key, endpoint string, fetch func(context.Context) ([]trackman.Record, error)) ([]trackman.Record, error) {
	if records, ok := s.memo.Get(key); ok {
		s.metrics.MemoHit()
		return records, nil
	}
	s.metrics.MemoMiss()

	start := time.Now()
	records, err := fetch(ctx)
	s.metrics.ObserveUpstream(endpoint, statusOf(err), time.Since(start))
	if err != nil {
		return nil, err
	}
	s.memo.Set(key, records)
	return records, nil
}

// statusOf maps a fetch error onto the upstream status label; zero means no
// response was received at all.
func statusOf(err error) int {
	if err == nil {
		return 200
	}
	var fe *trackman.FetchError
	if errors.As(err, &fe) {
		return fe.Status
	}
	var ae *trackman.AuthError
	if errors.As(err, &ae) {
		return ae.Status
	}
	return 0
}

func repeat(v string, n int) []any {
	out := make([]any, n)
	for i := range out {
		out[i] = v
	}
	return out
}
