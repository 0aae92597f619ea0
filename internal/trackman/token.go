package trackman

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	// defaultTokenLifetime is assumed when the token response carries no
	// expires_in field.
	defaultTokenLifetime = 5 * time.Minute
	// refreshMargin is how long before expiry a token counts as stale.
	refreshMargin = 30 * time.Second
)

// TokenSource exchanges client credentials for bearer tokens and caches the
// result until shortly before expiry. Safe for concurrent use; concurrent
// callers share a single exchange.
type TokenSource struct {
	httpClient   *http.Client
	tokenURL     string
	clientID     string
	clientSecret string
	logger       *slog.Logger

	mu     sync.Mutex
	token  string
	expiry time.Time
}

// NewTokenSource creates a token source for the client-credentials grant.
func NewTokenSource(tokenURL, clientID, clientSecret string, logger *slog.Logger) *TokenSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenSource{
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		logger:       logger,
	}
}

// Token returns a valid bearer token, exchanging credentials when the cached
// one is absent or within the refresh margin of its expiry.
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != "" && time.Now().Before(s.expiry.Add(-refreshMargin)) {
		return s.token, nil
	}

	form := url.Values{}
	form.Set("client_id", s.clientID)
	form.Set("client_secret", s.clientSecret)
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &AuthError{Status: resp.StatusCode, Body: truncate(body, 200)}
	}

	var payload struct {
		AccessToken string  `json:"access_token"`
		ExpiresIn   float64 `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", &AuthError{Status: resp.StatusCode, Body: "response carried no access_token"}
	}

	lifetime := defaultTokenLifetime
	if payload.ExpiresIn > 0 {
		lifetime = time.Duration(payload.ExpiresIn * float64(time.Second))
	}
	s.token = payload.AccessToken
	s.expiry = time.Now().Add(lifetime)
	s.logger.Debug("bearer token refreshed", "lifetime", lifetime)
	return s.token, nil
}
