package ledger

import (
	"fmt"
	"net/url"
)

// WithToken returns wsURL with the token query parameter set.
func WithToken(wsURL, token string) (string, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return "", fmt.Errorf("invalid websocket url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", fmt.Errorf("%w: %q", ErrInvalidScheme, u.Scheme)
	}

	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
