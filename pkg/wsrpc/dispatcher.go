package wsrpc

import (
	"context"
	"fmt"

	"github.com/ilpkit/ledgerws/pkg/jsonrpc"
	"github.com/ilpkit/ledgerws/pkg/log"
)

// Handler receives what the channel does not consume itself. Methods are
// called from the channel's read goroutine, one frame at a time.
type Handler interface {
	// OnConnect is called once per session, on the first successful connect.
	OnConnect(ctx context.Context)
	// OnReconnect is called after every later successful connect of the
	// same session. The peer has forgotten any server-side state, such as
	// subscriptions, held for the previous socket.
	OnReconnect(ctx context.Context)
	// OnTransportError gets dial and read failures, and a final error
	// wrapping ErrReconnectExhausted when the channel gives up.
	OnTransportError(ctx context.Context, err error)
	// OnTransferNotification gets every notification classified as a transfer.
	OnTransferNotification(ctx context.Context, n jsonrpc.TransferNotification)
	// OnMessageNotification gets every notification classified as a message.
	OnMessageNotification(ctx context.Context, n jsonrpc.MessageNotification)
	// OnUnknownMessage gets frames that failed to decode or that no route
	// accepts. err wraps jsonrpc.ErrUnrecognizedMessage, a decode error or
	// ErrUnexpectedRequest.
	OnUnknownMessage(ctx context.Context, raw []byte, err error)
}

// Dispatcher routes decoded frames: responses to the registry, transfer and
// message notifications to the handler. The ledger's connect acknowledgement
// is dropped.
type Dispatcher struct {
	registry *Registry
	handler  Handler
	metrics  *Metrics
}

// NewDispatcher routes frames to registry and handler. A nil metrics
// reports to a private registry.
func NewDispatcher(registry *Registry, handler Handler, metrics *Metrics) *Dispatcher {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Dispatcher{
		registry: registry,
		handler:  handler,
		metrics:  metrics,
	}
}

// Dispatch decodes one frame and routes it. A panicking handler is logged
// and does not stop the caller's read loop.
func (d *Dispatcher) Dispatch(ctx context.Context, raw []byte) {
	lg := log.FromContext(ctx)
	defer func() {
		if v := recover(); v != nil {
			lg.Error("panic while dispatching frame", "panic", v)
		}
	}()

	msg, err := jsonrpc.Decode(raw)
	if err != nil {
		d.metrics.DecodeErrors.Inc()
		d.metrics.FramesReceived.WithLabelValues("invalid").Inc()
		lg.Warn("failed to decode frame", "error", err)
		d.handler.OnUnknownMessage(ctx, raw, err)
		return
	}

	d.metrics.FramesReceived.WithLabelValues(jsonrpc.ShapeOf(msg)).Inc()
	d.route(ctx, raw, msg)
}

func (d *Dispatcher) route(ctx context.Context, raw []byte, msg jsonrpc.Message) {
	lg := log.FromContext(ctx)

	switch m := msg.(type) {
	case *jsonrpc.Response:
		if err := d.registry.Resolve(m); err != nil {
			lg.Warn("failed to resolve response", "error", err)
		}
	case *jsonrpc.Notification:
		switch params := m.Params.(type) {
		case jsonrpc.TransferNotification:
			d.handler.OnTransferNotification(ctx, params)
		case jsonrpc.MessageNotification:
			d.handler.OnMessageNotification(ctx, params)
		case jsonrpc.ConnectNotification:
			lg.Debug("ledger acknowledged connection")
		default:
			d.handler.OnUnknownMessage(ctx, raw,
				fmt.Errorf("%w: event %q", jsonrpc.ErrUnrecognizedMessage, m.Params.EventName()))
		}
	case *jsonrpc.Request:
		d.handler.OnUnknownMessage(ctx, raw, fmt.Errorf("%w: method %q", ErrUnexpectedRequest, m.Method))
	default:
		d.handler.OnUnknownMessage(ctx, raw, jsonrpc.ErrUnrecognizedMessage)
	}
}
