package trackman

import (
	"context"
	"time"
)

// SessionQuery selects sessions by UTC time window and session type.
type SessionQuery struct {
	From time.Time
	To   time.Time
	Type string // "All", "Adhoc", ...; empty means "All"
}

// QuerySessions fetches the session list for a window. The upstream expects
// a JSON body with ISO-8601 UTC bounds.
func (c *Client) QuerySessions(ctx context.Context, q SessionQuery) ([]Record, error) {
	sessionType := q.Type
	if sessionType == "" {
		sessionType = "All"
	}
	body := map[string]string{
		"sessionType": sessionType,
		"utcDateFrom": q.From.UTC().Format(time.RFC3339),
		"utcDateTo":   q.To.UTC().Format(time.RFC3339),
	}
	return c.postRecords(ctx, "/game/sessions", body)
}
