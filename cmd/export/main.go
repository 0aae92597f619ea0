// Command export is the Pitchboard CSV export CLI.
//
// Usage:
//
//	pitchboard-export sessions --from 2025-05-01 --to 2025-05-08 --type Game
//	pitchboard-export game --session 123e4567 --join left --pitch-only --out game.csv
//	pitchboard-export game --session A --session B --relative-time \
//	    --filters '[{"column":"pitch.release.relSpeed","kind":"range","min":90}]'
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/pitchboard/pitchboard/internal/config"
	"github.com/pitchboard/pitchboard/internal/pipeline"
	"github.com/pitchboard/pitchboard/internal/table"
	"github.com/pitchboard/pitchboard/internal/trackman"
)

var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

var configPath string

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "pitchboard-export",
		Short: "Pitchboard CSV export CLI",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")

	root.AddCommand(sessionsCmd())
	root.AddCommand(gameCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// sessions command
// --------------------------------------------------------------------------

func sessionsCmd() *cobra.Command {
	var (
		from, to    string
		sessionType string
		teams       []string
		out         string
	)
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List sessions in a window as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(func(ctx context.Context, cfg *config.Config, svc *pipeline.Service) error {
				filter := pipeline.SessionFilter{Type: sessionType, Teams: teams}
				var err error
				if filter.From, err = parseDateFlag(from); err != nil {
					return fmt.Errorf("parse --from: %w", err)
				}
				if filter.To, err = parseDateFlag(to); err != nil {
					return fmt.Errorf("parse --to: %w", err)
				}

				start := time.Now()
				sessions, err := svc.Sessions(ctx, filter)
				if err != nil {
					return err
				}
				logger.Info("Sessions fetched",
					"count", len(sessions),
					"duration", time.Since(start).Round(time.Millisecond))

				rows := make([][]any, len(sessions))
				for i, s := range sessions {
					rows[i] = []any{s.ID, s.Label, s.Type, s.UTCDate, s.HomeTeam, s.AwayTeam}
				}
				t := table.FromRows([]string{"id", "label", "type", "utcDateTime", "homeTeam", "awayTeam"}, rows)
				return writeCSVOut(t, out)
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Window start (RFC3339 or YYYY-MM-DD, default now-7d)")
	cmd.Flags().StringVar(&to, "to", "", "Window end (RFC3339 or YYYY-MM-DD, default now)")
	cmd.Flags().StringVar(&sessionType, "type", "", "Session type (All, Game, Practice)")
	cmd.Flags().StringSliceVar(&teams, "team", nil, "Keep sessions where home or away team matches; repeatable")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default stdout)")
	return cmd
}

// --------------------------------------------------------------------------
// game command
// --------------------------------------------------------------------------

func gameCmd() *cobra.Command {
	var (
		sessionIDs   []string
		joinMode     string
		separator    string
		pitchOnly    bool
		relativeTime bool
		sortColumn   string
		filtersJSON  string
		whereFlags   []string
		rangeFlags   []string
		contains     []string
		since, until string
		timeColumn   string
		out          string
	)
	cmd := &cobra.Command{
		Use:   "game",
		Short: "Build the joined play/ball table for sessions and export it as CSV",
		Long: `Fetches the play and ball feeds for each session, flattens the nested
JSON, joins the two feeds on the play key, stacks the sessions, and writes
the result as CSV.

Filters come from typed flags or a raw JSON array, applied in order:

  --where kind=Pitch,Hit
  --range pitch.release.relSpeed=90:95
  --contains pitcher.name=alice
  --since 2025-05-01T18:00:00Z --until 2025-05-01T19:00:00Z
  --filters '[{"column":"kind","kind":"in","values":["Pitch"]}]'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(sessionIDs) == 0 {
				return fmt.Errorf("--session is required")
			}
			opts := pipeline.Options{
				SessionIDs:   sessionIDs,
				JoinMode:     joinMode,
				Separator:    separator,
				PitchOnly:    pitchOnly,
				RelativeTime: relativeTime,
				SortColumn:   sortColumn,
			}
			if filtersJSON != "" {
				if err := json.Unmarshal([]byte(filtersJSON), &opts.Filters); err != nil {
					return fmt.Errorf("parse --filters: %w", err)
				}
			}
			flagFilters, err := buildFlagFilters(whereFlags, rangeFlags, contains, since, until, timeColumn, sortColumn)
			if err != nil {
				return err
			}
			opts.Filters = append(opts.Filters, flagFilters...)
			return runExport(func(ctx context.Context, cfg *config.Config, svc *pipeline.Service) error {
				start := time.Now()
				res, err := svc.GameTable(ctx, opts)
				if err != nil {
					return err
				}
				for _, w := range res.Warnings {
					logger.Warn(w)
				}
				logger.Info("Game table built",
					"runId", res.RunID,
					"rows", res.Table.RowCount(),
					"columns", len(res.Table.Columns()),
					"duration", time.Since(start).Round(time.Millisecond))
				return writeCSVOut(res.Table, out)
			})
		},
	}
	cmd.Flags().StringSliceVar(&sessionIDs, "session", nil, "Session ID; repeatable")
	cmd.Flags().StringVar(&joinMode, "join", "", "Join mode (inner, left, right; default from config)")
	cmd.Flags().StringVar(&separator, "separator", "", "Path separator for flattened columns (default from config)")
	cmd.Flags().BoolVar(&pitchOnly, "pitch-only", false, "Keep only ball records tagged Pitch")
	cmd.Flags().BoolVar(&relativeTime, "relative-time", false, "Add a relativeTime column in seconds since the earliest row")
	cmd.Flags().StringVar(&sortColumn, "sort", "", "Time column to sort by (default utcDateTime)")
	cmd.Flags().StringVar(&filtersJSON, "filters", "", "Filters as a JSON array")
	cmd.Flags().StringArrayVar(&whereFlags, "where", nil, "Keep rows where column is one of the values (col=v1,v2); repeatable")
	cmd.Flags().StringArrayVar(&rangeFlags, "range", nil, "Keep rows where column is within min:max, either side open (col=90:95); repeatable")
	cmd.Flags().StringArrayVar(&contains, "contains", nil, "Keep rows where column contains the substring, case-insensitive (col=text); repeatable")
	cmd.Flags().StringVar(&since, "since", "", "Keep rows at or after this timestamp (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&until, "until", "", "Keep rows at or before this timestamp (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&timeColumn, "time-column", "", "Column for --since/--until (default the sort column)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default stdout)")
	return cmd
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// runExport handles config loading, client wiring, and context cancellation.
func runExport(fn func(ctx context.Context, cfg *config.Config, svc *pipeline.Service) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	tokens := trackman.NewTokenSource(cfg.TrackmanTokenURL, cfg.TrackmanClientID, cfg.TrackmanClientSecret, logger)
	client := trackman.NewClient(cfg.TrackmanBaseURL, tokens, cfg.TrackmanRPS, cfg.TrackmanTimeout(), logger)
	svc := pipeline.New(cfg, client, nil, logger)

	return fn(ctx, cfg, svc)
}

// writeCSVOut writes a table to the given file, or to stdout when empty.
func writeCSVOut(t *table.Table, out string) error {
	var w io.Writer = os.Stdout
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("create %s: %w", out, err)
		}
		defer f.Close()
		w = f
	}
	if err := table.WriteCSV(w, t); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	if out != "" {
		logger.Info("CSV written", "file", out, "rows", t.RowCount())
	}
	return nil
}

// parseDateFlag accepts RFC3339 timestamps or bare dates; empty is zero.
func parseDateFlag(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

// buildFlagFilters converts the typed filter flags into table filters. They
// run after any --filters JSON. --since/--until target --time-column,
// falling back to the sort column.
func buildFlagFilters(where, ranges, contains []string, since, until, timeColumn, sortColumn string) ([]table.Filter, error) {
	var filters []table.Filter
	for _, arg := range where {
		col, vals, err := splitFilterFlag("--where", arg)
		if err != nil {
			return nil, err
		}
		filters = append(filters, table.Filter{Column: col, Kind: table.FilterIn, Values: strings.Split(vals, ",")})
	}
	for _, arg := range ranges {
		col, bounds, err := splitFilterFlag("--range", arg)
		if err != nil {
			return nil, err
		}
		lo, hi, ok := strings.Cut(bounds, ":")
		if !ok {
			return nil, fmt.Errorf("--range %q: want column=min:max", arg)
		}
		f := table.Filter{Column: col, Kind: table.FilterRange}
		if f.Min, err = parseBound(lo); err != nil {
			return nil, fmt.Errorf("--range %q: %w", arg, err)
		}
		if f.Max, err = parseBound(hi); err != nil {
			return nil, fmt.Errorf("--range %q: %w", arg, err)
		}
		if f.Min == nil && f.Max == nil {
			return nil, fmt.Errorf("--range %q: both bounds open", arg)
		}
		filters = append(filters, f)
	}
	for _, arg := range contains {
		col, substr, err := splitFilterFlag("--contains", arg)
		if err != nil {
			return nil, err
		}
		filters = append(filters, table.Filter{Column: col, Kind: table.FilterContains, Substring: substr})
	}
	if since == "" && until == "" {
		return filters, nil
	}
	f := table.Filter{Column: timeColumn, Kind: table.FilterTimeRange}
	if f.Column == "" {
		f.Column = sortColumn
	}
	if f.Column == "" {
		f.Column = pipeline.DefaultSortColumn
	}
	if ts, err := parseDateFlag(since); err != nil {
		return nil, fmt.Errorf("--since: %w", err)
	} else if !ts.IsZero() {
		f.From = &ts
	}
	if ts, err := parseDateFlag(until); err != nil {
		return nil, fmt.Errorf("--until: %w", err)
	} else if !ts.IsZero() {
		f.To = &ts
	}
	return append(filters, f), nil
}

// splitFilterFlag splits column=rest, rejecting an empty column name.
func splitFilterFlag(flag, arg string) (string, string, error) {
	col, rest, ok := strings.Cut(arg, "=")
	if !ok || col == "" {
		return "", "", fmt.Errorf("%s %q: want column=value", flag, arg)
	}
	return col, rest, nil
}

// parseBound parses one side of a min:max pair; empty means open.
func parseBound(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("bad bound %q", s)
	}
	return &n, nil
}
