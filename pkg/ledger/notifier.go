package ledger

import (
	"context"
	"time"

	"github.com/ilpkit/ledgerws/pkg/log"
	"github.com/ilpkit/ledgerws/pkg/wsrpc"
)

// DefaultRequestExpiry is how long the ledger gets to answer a request.
const DefaultRequestExpiry = 5 * time.Minute

// DefaultChannelConfig is wsrpc.DefaultConfig tuned for a ledger
// counterparty.
func DefaultChannelConfig() wsrpc.Config {
	cfg := wsrpc.DefaultConfig
	cfg.RequestExpiry = DefaultRequestExpiry
	return cfg
}

// Notifier is a ledger notification stream: a wsrpc.Channel wired to an
// Adapter.
type Notifier struct {
	channel *wsrpc.Channel
	adapter *Adapter
}

// NewNotifier fetches a token from tokens once, then builds a closed
// channel for wsURL?token=<token>. Call Open to connect.
func NewNotifier(ctx context.Context, wsURL string, tokens TokenSource, sink EventSink, converter Converter, cfg wsrpc.Config, opts ...wsrpc.ChannelOption) (*Notifier, error) {
	if sink == nil {
		return nil, ErrNilSink
	}

	token, err := tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	url, err := WithToken(wsURL, token)
	if err != nil {
		return nil, err
	}

	ctx = log.SetContextLogger(ctx, log.FromContext(ctx).WithName("ledger"))
	adapter := NewAdapter(sink, converter)
	channel, err := wsrpc.NewChannel(ctx, url, cfg, adapter, opts...)
	if err != nil {
		return nil, err
	}
	adapter.Bind(channel)

	return &Notifier{channel: channel, adapter: adapter}, nil
}

// Open connects in the background; the sink sees HandleConnect once the
// socket is up.
func (n *Notifier) Open(ctx context.Context) error {
	return n.channel.Open(ctx)
}

// Close closes the channel and fails requests still waiting for an answer.
func (n *Notifier) Close() error {
	return n.channel.Close()
}

// SubscribeAccounts subscribes accounts on the open socket. They are
// subscribed again after every reconnect until the session ends.
func (n *Notifier) SubscribeAccounts(ctx context.Context, accounts ...string) error {
	return n.adapter.SubscribeAccounts(ctx, accounts...)
}

// Channel exposes the underlying channel for state inspection.
func (n *Notifier) Channel() *wsrpc.Channel {
	return n.channel
}
