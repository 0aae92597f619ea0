package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pitchboard/pitchboard/internal/table"
)

// ErrInvalidOptions marks query options the pipeline refuses to run.
// Callers can test for it with errors.Is.
var ErrInvalidOptions = errors.New("invalid query options")

// Column and tag names fixed by the TrackMan feed.
const (
	// DefaultLeftKey and DefaultRightKey join plays against balls. The
	// feed spells the identifier "playID" on plays and "playId" on balls.
	DefaultLeftKey  = "playID"
	DefaultRightKey = "playId"

	DefaultLeftSuffix  = "_play"
	DefaultRightSuffix = "_ball"

	// DefaultSortColumn orders rows chronologically after stacking.
	DefaultSortColumn = "utcDateTime"

	// KindColumn tags ball records as "Pitch" or "Hit".
	KindColumn = "kind"
	PitchKind  = "Pitch"

	// SessionColumn is added before stacking so rows stay traceable.
	SessionColumn = "sessionId"

	// RelativeTimeColumn holds seconds since the earliest row.
	RelativeTimeColumn = "relativeTime"
)

// Options configures one pipeline run. Zero fields are filled with defaults
// by Normalize; SessionIDs is the only field without one.
type Options struct {
	SessionIDs []string `json:"sessionIds"`

	JoinMode  string         `json:"joinMode"`
	LeftKey   string         `json:"leftKey"`
	RightKey  string         `json:"rightKey"`
	Suffixes  table.Suffixes `json:"-"`
	Separator string         `json:"separator"`

	// PitchOnly drops ball records not tagged as pitches before the join.
	PitchOnly bool `json:"pitchOnly"`

	SortColumn   string `json:"sortColumn"`
	RelativeTime bool   `json:"relativeTime"`

	Filters []table.Filter `json:"filters"`
}

// Normalize fills unset fields and validates the result. It returns an error
// wrapping ErrInvalidOptions when the options cannot run.
func (o *Options) Normalize(defaultJoinMode, defaultSeparator string) error {
	if len(o.SessionIDs) == 0 {
		return fmt.Errorf("%w: at least one session id is required", ErrInvalidOptions)
	}
	for _, id := range o.SessionIDs {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("%w: empty session id", ErrInvalidOptions)
		}
	}
	if o.JoinMode == "" {
		o.JoinMode = defaultJoinMode
	}
	if _, err := table.ParseJoinMode(o.JoinMode); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	if o.LeftKey == "" {
		o.LeftKey = DefaultLeftKey
	}
	if o.RightKey == "" {
		o.RightKey = DefaultRightKey
	}
	if o.Suffixes.Left == "" {
		o.Suffixes.Left = DefaultLeftSuffix
	}
	if o.Suffixes.Right == "" {
		o.Suffixes.Right = DefaultRightSuffix
	}
	if o.Separator == "" {
		o.Separator = defaultSeparator
	}
	if o.SortColumn == "" {
		o.SortColumn = DefaultSortColumn
	}
	for i, f := range o.Filters {
		if f.Column == "" {
			return fmt.Errorf("%w: filter %d has no column", ErrInvalidOptions, i)
		}
		if !table.KnownFilterKind(f.Kind) {
			return fmt.Errorf("%w: filter %d has unknown kind %q", ErrInvalidOptions, i, f.Kind)
		}
	}
	return nil
}
