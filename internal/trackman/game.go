package trackman

import (
	"context"
	"net/url"
)

// Plays fetches the play-by-play records for one session.
func (c *Client) Plays(ctx context.Context, sessionID string) ([]Record, error) {
	return c.getRecords(ctx, "/game/plays/"+url.PathEscape(sessionID))
}

// Balls fetches the tracked ball records (pitches and hits) for one session.
func (c *Client) Balls(ctx context.Context, sessionID string) ([]Record, error) {
	return c.getRecords(ctx, "/game/balls/"+url.PathEscape(sessionID))
}
