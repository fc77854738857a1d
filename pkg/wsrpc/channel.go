package wsrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/ilpkit/ledgerws/pkg/jsonrpc"
	"github.com/ilpkit/ledgerws/pkg/log"
)

// State is the lifecycle state of a Channel.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateOpen         State = "open"
	// StateFailed means reconnecting gave up. Open starts over.
	StateFailed State = "failed"
)

// Channel is a JSON-RPC client over one websocket URL. It reconnects after
// unexpected closures, correlates responses to requests and hands
// notifications to its Handler.
//
// A session runs from Open until Close, the Open context ending, or
// reconnects being exhausted. Handler.OnConnect fires once per session and
// Handler.OnReconnect after each later connect of the same session.
type Channel struct {
	url        string
	cfg        Config
	dialer     Dialer
	handler    Handler
	registry   *Registry
	dispatcher *Dispatcher
	metrics    *Metrics
	limiter    *rate.Limiter
	lg         log.Logger

	mu           sync.Mutex
	state        State
	conn         Conn
	attempts     int
	wasConnected bool
	closing      bool
	session      uint64
	cancel       context.CancelFunc
	done         chan struct{}
	sweepDone    chan struct{}

	writeMu sync.Mutex
}

// ChannelOption customizes a Channel.
type ChannelOption func(*Channel)

// WithDialer replaces the default gorilla dialer.
func WithDialer(dialer Dialer) ChannelOption {
	return func(c *Channel) {
		c.dialer = dialer
	}
}

// WithMetrics makes the channel report to metrics instead of a private
// registry.
func WithMetrics(metrics *Metrics) ChannelOption {
	return func(c *Channel) {
		c.metrics = metrics
	}
}

// NewChannel validates cfg and builds a disconnected channel for url. The
// logger is taken from ctx.
func NewChannel(ctx context.Context, url string, cfg Config, handler Handler, opts ...ChannelOption) (*Channel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if handler == nil {
		return nil, ErrNilHandler
	}

	c := &Channel{
		url:       url,
		cfg:       cfg,
		handler:   handler,
		state:     StateDisconnected,
		done:      make(chan struct{}),
		sweepDone: make(chan struct{}),
	}
	close(c.done)
	close(c.sweepDone)

	for _, opt := range opts {
		opt(c)
	}
	if c.dialer == nil {
		c.dialer = NewWebsocketDialer(cfg)
	}
	if c.metrics == nil {
		c.metrics = NewMetrics(nil)
	}
	if cfg.ReconnectRate > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.ReconnectRate), 1)
	}

	c.lg = log.FromContext(ctx).WithName("channel").WithKV("url", RedactURL(url))
	regCtx := log.SetContextLogger(ctx, c.lg)
	c.registry = NewRegistry(regCtx, cfg.RequestExpiry, c.metrics)
	c.dispatcher = NewDispatcher(c.registry, handler, c.metrics)

	return c, nil
}

// Open starts a session and returns without waiting for the connection.
// Calling Open on a connecting or open channel does nothing. The session
// ends when ctx is done.
func (c *Channel) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateConnecting, StateOpen:
		c.lg.Debug("channel already active", "state", c.state)
		return nil
	}

	if c.cancel != nil {
		c.cancel()
	}
	sessCtx, cancel := context.WithCancel(log.SetContextLogger(ctx, c.lg))
	c.cancel = cancel
	c.session++
	c.done = make(chan struct{})
	c.sweepDone = make(chan struct{})
	c.closing = false
	c.wasConnected = false
	c.attempts = 1
	c.state = StateConnecting

	go func(done chan struct{}) {
		defer close(done)
		c.registry.Run(sessCtx)
	}(c.sweepDone)
	go c.run(sessCtx, c.session, c.done)
	return nil
}

// Close ends the session: reconnects stop, the socket is closed and every
// pending request is answered with a channel-closed response.
func (c *Channel) Close() error {
	c.mu.Lock()
	c.closing = true
	c.state = StateDisconnected
	conn := c.conn
	c.conn = nil
	cancel := c.cancel
	c.mu.Unlock()

	var err error
	if conn != nil {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		if cerr := conn.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
			err = cerr
		}
		c.metrics.Connected.Set(0)
	}
	if cancel != nil {
		cancel()
	}

	if n := c.registry.FailAll(); n > 0 {
		c.lg.Info("failed pending requests on close", "count", n)
	}
	c.lg.Info("channel closed")
	return err
}

// Done is closed when the current session has stopped reconnecting.
func (c *Channel) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// State returns the current lifecycle state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsOpen reports whether the channel is connecting or connected.
func (c *Channel) IsOpen() bool {
	s := c.State()
	return s == StateConnecting || s == StateOpen
}

// CanSend reports whether a request written now would reach the socket.
func (c *Channel) CanSend() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && c.state == StateOpen
}

// Pending returns the number of requests waiting for a response.
func (c *Channel) Pending() int {
	return c.registry.Len()
}

// SendRequest writes req. A non-nil handler is registered under req.ID
// before the frame goes out and is later called exactly once. A nil handler
// makes the request fire-and-forget.
func (c *Channel) SendRequest(req *jsonrpc.Request, handler ResponseHandler) error {
	if req == nil {
		return ErrNilRequest
	}
	if req.ID == "" && handler != nil {
		return ErrMissingRequestID
	}

	c.mu.Lock()
	conn := c.conn
	open := c.state == StateOpen
	c.mu.Unlock()
	if conn == nil || !open {
		return ErrNotConnected
	}

	registered := false
	if handler != nil {
		prev, err := c.registry.Store(req, handler)
		if err != nil {
			return err
		}
		if prev != nil {
			c.lg.Warn("replaced handler of pending request", "id", req.ID)
		}
		registered = true
	}

	data, err := json.Marshal(req)
	if err != nil {
		if registered {
			c.registry.Remove(req.ID)
		}
		return fmt.Errorf("%w: %w", ErrMarshalingRequest, err)
	}

	if err := c.write(conn, data); err != nil {
		if registered {
			c.registry.Remove(req.ID)
		}
		return fmt.Errorf("%w: %w", ErrSendingRequest, err)
	}

	c.metrics.FramesSent.Inc()
	c.lg.Debug("request sent", "id", req.ID, "method", req.Method)
	return nil
}

func (c *Channel) write(conn Conn, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.cfg.WriteTimeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
			return err
		}
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Channel) run(ctx context.Context, session uint64, done chan struct{}) {
	for {
		err := c.connectAndServe(ctx, session)
		if !c.shouldReconnect(ctx, session, err) {
			break
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				break
			}
		}
		c.metrics.Reconnects.Inc()
	}

	// The Open context ended without Close: finish the session the same way.
	if ctx.Err() != nil {
		if c.endSession(session) {
			c.registry.FailAll()
			c.lg.Info("channel stopped", "reason", context.Cause(ctx))
		}
		close(done)
		return
	}

	close(done)
	c.stopWhenDrained(ctx, session)
}

// stopWhenDrained cancels a session that stopped reconnecting once its
// pending requests have been answered or have timed out.
func (c *Channel) stopWhenDrained(ctx context.Context, session uint64) {
	ticker := time.NewTicker(c.registry.SweepPeriod())
	defer ticker.Stop()

	for c.registry.Len() > 0 {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == session && c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Channel) connectAndServe(ctx context.Context, session uint64) error {
	c.metrics.ConnectAttempts.Inc()
	c.lg.Debug("connecting", "attempt", c.attemptCount())

	conn, err := c.dialer.Dial(ctx, c.url)
	if err != nil {
		return err
	}

	first, err := c.markOpen(ctx, session, conn)
	if err != nil {
		conn.Close()
		return err
	}
	c.lg.Info("connected")
	if first {
		c.handler.OnConnect(ctx)
	} else {
		c.handler.OnReconnect(ctx)
	}

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-connCtx.Done()
		conn.Close()
	}()
	c.keepAlive(connCtx, conn)

	return c.readMessages(ctx, conn)
}

// markOpen publishes conn and reports whether this is the first connection
// of the session.
func (c *Channel) markOpen(ctx context.Context, session uint64, conn Conn) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closing || ctx.Err() != nil || c.session != session {
		return false, ErrChannelClosed
	}

	c.conn = conn
	c.state = StateOpen
	c.attempts = 0
	first := !c.wasConnected
	c.wasConnected = true
	c.metrics.Connected.Set(1)
	return first, nil
}

func (c *Channel) readMessages(ctx context.Context, conn Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || c.isClosing() {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return fmt.Errorf("%w: %w", ErrConnectionClosed, err)
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return fmt.Errorf("%w: %w", ErrConnectionTimeout, err)
			}
			return fmt.Errorf("%w: %w", ErrReadingMessage, err)
		}

		c.dispatcher.Dispatch(ctx, data)
	}
}

// keepAlive pings the peer every PingInterval and expects a pong within two
// intervals. It stops when ctx is done or a ping cannot be written.
func (c *Channel) keepAlive(ctx context.Context, conn Conn) {
	interval := c.cfg.PingInterval
	if interval <= 0 {
		return
	}

	pongWait := 2 * interval
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(interval)); err != nil {
					c.lg.Warn("failed to send ping", "error", err)
					conn.Close()
					return
				}
			}
		}
	}()
}

// shouldReconnect runs after every closure or failed dial and decides
// whether the session goes on.
func (c *Channel) shouldReconnect(ctx context.Context, session uint64, err error) bool {
	c.mu.Lock()
	if c.closing || ctx.Err() != nil || c.session != session {
		c.mu.Unlock()
		return false
	}
	wasOpen := c.conn != nil
	c.conn = nil
	c.mu.Unlock()

	if wasOpen {
		c.metrics.Connected.Set(0)
	}
	if err != nil {
		c.lg.Warn("connection lost", "error", err)
		if !errors.Is(err, ErrConnectionClosed) {
			c.handler.OnTransportError(ctx, err)
		}
	}

	c.mu.Lock()
	if c.closing || ctx.Err() != nil || c.session != session {
		c.mu.Unlock()
		return false
	}
	if !c.cfg.AutoReconnect {
		c.state = StateDisconnected
		c.mu.Unlock()
		return false
	}
	if c.attempts < c.cfg.MaxConnectAttempts {
		c.attempts++
		c.state = StateConnecting
		c.mu.Unlock()
		return true
	}
	attempts := c.attempts
	c.state = StateFailed
	c.mu.Unlock()

	c.metrics.ReconnectExhausted.Inc()
	c.lg.Error("giving up reconnecting", "attempts", attempts)
	c.handler.OnTransportError(ctx, fmt.Errorf("%w after %d attempts", ErrReconnectExhausted, attempts))
	return false
}

// endSession marks session as disconnected unless Close or a newer Open
// already took over. It reports whether it did.
func (c *Channel) endSession(session uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closing || c.session != session {
		return false
	}
	c.state = StateDisconnected
	if c.conn != nil {
		c.conn = nil
		c.metrics.Connected.Set(0)
	}
	return true
}

func (c *Channel) isClosing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closing
}

func (c *Channel) attemptCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}
