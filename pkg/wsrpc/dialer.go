package wsrpc

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is the subset of *websocket.Conn used by a Channel.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	SetReadLimit(limit int64)
	Close() error
}

// Dialer opens websocket connections.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// WebsocketDialer dials with gorilla/websocket.
type WebsocketDialer struct {
	dialer    websocket.Dialer
	readLimit int64
}

// NewWebsocketDialer builds a gorilla dialer using the handshake timeout and
// read limit of cfg.
func NewWebsocketDialer(cfg Config) *WebsocketDialer {
	return &WebsocketDialer{
		dialer: websocket.Dialer{
			Proxy:             websocket.DefaultDialer.Proxy,
			HandshakeTimeout:  cfg.HandshakeTimeout,
			EnableCompression: true,
		},
		readLimit: cfg.ReadLimit,
	}
}

// Dial opens a websocket to rawURL. Errors wrap ErrDialingWebsocket and
// never contain the query string.
func (d *WebsocketDialer) Dial(ctx context.Context, rawURL string) (Conn, error) {
	conn, resp, err := d.dialer.DialContext(ctx, rawURL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%w: %s: status %d: %w", ErrDialingWebsocket, RedactURL(rawURL), resp.StatusCode, err)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrDialingWebsocket, RedactURL(rawURL), err)
	}
	if d.readLimit > 0 {
		conn.SetReadLimit(d.readLimit)
	}
	return conn, nil
}

// RedactURL masks query values of rawURL so that access tokens stay out of
// logs and errors.
func RedactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid url>"
	}
	if u.RawQuery == "" {
		return u.String()
	}

	q := u.Query()
	for key := range q {
		q.Set(key, "xxxxx")
	}
	u.RawQuery = q.Encode()
	return u.String()
}
