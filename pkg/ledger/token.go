package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ilpkit/ledgerws/pkg/log"
)

// TokenSource supplies the auth token appended to the websocket URL.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed token.
type StaticToken string

// Token returns t, or ErrAuthToken when t is empty.
func (t StaticToken) Token(context.Context) (string, error) {
	if t == "" {
		return "", fmt.Errorf("%w: empty token", ErrAuthToken)
	}
	return string(t), nil
}

// HTTPTokenSource fetches a token from the ledger's auth_token endpoint
// using basic auth.
type HTTPTokenSource struct {
	URL      string
	Username string
	Password string
	Client   *http.Client
}

type authTokenResponse struct {
	Token string `json:"token"`
}

// Token fetches a fresh token from URL. Username and Password, when set, are
// sent as basic auth.
func (s *HTTPTokenSource) Token(ctx context.Context) (string, error) {
	lg := log.FromContext(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAuthToken, err)
	}
	req.Header.Set("Accept", "application/json")
	if s.Username != "" {
		req.SetBasicAuth(s.Username, s.Password)
	}

	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	lg.Debug("requesting auth token", "url", s.URL)
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAuthToken, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return "", fmt.Errorf("%w: unauthorized", ErrAuthToken)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return "", fmt.Errorf("%w: unexpected status %d", ErrAuthToken, resp.StatusCode)
	}

	var body authTokenResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: failed to decode response: %w", ErrAuthToken, err)
	}
	if body.Token == "" {
		return "", fmt.Errorf("%w: empty token", ErrAuthToken)
	}

	if exp, ok := TokenExpiry(body.Token); ok {
		if time.Until(exp) <= 0 {
			lg.Warn("auth token already expired", "expiresAt", exp)
		} else {
			lg.Debug("auth token received", "expiresAt", exp)
		}
	}
	return body.Token, nil
}

// TokenExpiry reads the exp claim of a JWT without verifying it. Ledgers
// that issue opaque tokens yield false.
func TokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
