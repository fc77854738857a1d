package ledger

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/ilpkit/ledgerws/pkg/jsonrpc"
	"github.com/ilpkit/ledgerws/pkg/log"
	"github.com/ilpkit/ledgerws/pkg/wsrpc"
)

// Sender is the part of *wsrpc.Channel the Adapter writes through.
type Sender interface {
	CanSend() bool
	SendRequest(req *jsonrpc.Request, handler wsrpc.ResponseHandler) error
}

// Adapter implements wsrpc.Handler for a ledger: it converts notifications
// for an EventSink and issues account subscriptions.
//
// The ledger keeps subscriptions per socket. The Adapter remembers every
// account subscribed during a session and subscribes them again, in one
// request, when the channel reconnects.
type Adapter struct {
	sink      EventSink
	converter Converter

	mu         sync.RWMutex
	sender     Sender
	subscribed []string
}

var _ wsrpc.Handler = (*Adapter)(nil)

// NewAdapter builds an unbound adapter delivering to sink. A nil converter
// means NewJSONConverter.
func NewAdapter(sink EventSink, converter Converter) *Adapter {
	if converter == nil {
		converter = NewJSONConverter()
	}
	return &Adapter{
		sink:      sink,
		converter: converter,
	}
}

// Bind sets the channel subscriptions are sent through.
func (a *Adapter) Bind(sender Sender) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sender = sender
}

// SubscribeAccount subscribes to every event of one account.
func (a *Adapter) SubscribeAccount(ctx context.Context, account string) error {
	return a.SubscribeAccounts(ctx, account)
}

// SubscribeAccounts sends one subscribe_account request for accounts. It
// returns wsrpc.ErrNotConnected unless the channel can send right now. The
// outcome arrives asynchronously: a rejection or timeout is logged and
// reported to the sink as ErrSubscriptionFailed.
func (a *Adapter) SubscribeAccounts(ctx context.Context, accounts ...string) error {
	if len(accounts) == 0 {
		return ErrNoAccounts
	}

	a.mu.RLock()
	sender := a.sender
	a.mu.RUnlock()
	if sender == nil || !sender.CanSend() {
		return fmt.Errorf("%w: cannot subscribe to %v", wsrpc.ErrNotConnected, accounts)
	}

	params := jsonrpc.SubscribeAccountParams{
		EventType: jsonrpc.EventTypeAll,
		Accounts:  accounts,
	}
	req := jsonrpc.NewRequest(jsonrpc.NewRequestID(), jsonrpc.SubscribeAccountMethod, params)

	lg := log.FromContext(ctx).WithKV("requestID", req.ID)
	hctx := context.WithoutCancel(ctx)

	handler := func(_ *jsonrpc.Request, res *jsonrpc.Response) {
		if !res.IsSuccess() {
			lg.Error("account subscription failed", "accounts", accounts, "error", res.Err())
			a.sink.HandleError(hctx, fmt.Errorf("%w: %v: %w", ErrSubscriptionFailed, accounts, res.Err()))
			return
		}
		lg.Info("subscribed to account notifications", "accounts", accounts, "result", string(res.Result))
	}

	if err := sender.SendRequest(req, handler); err != nil {
		return err
	}
	a.remember(accounts)
	lg.Debug("subscription requested", "accounts", accounts)
	return nil
}

// Subscribed returns the accounts that will be subscribed again after a
// reconnect.
func (a *Adapter) Subscribed() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]string(nil), a.subscribed...)
}

func (a *Adapter) remember(accounts []string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, account := range accounts {
		if !slices.Contains(a.subscribed, account) {
			a.subscribed = append(a.subscribed, account)
		}
	}
}

// OnConnect starts a new session with no remembered subscriptions and hands
// the connect event to the sink.
func (a *Adapter) OnConnect(ctx context.Context) {
	a.mu.Lock()
	a.subscribed = nil
	a.mu.Unlock()

	a.sink.HandleConnect(ctx)
}

// OnReconnect subscribes the remembered accounts on the new socket. The sink
// sees no connect event; a failed resubscription reaches it as
// ErrSubscriptionFailed.
func (a *Adapter) OnReconnect(ctx context.Context) {
	accounts := a.Subscribed()
	if len(accounts) == 0 {
		return
	}

	lg := log.FromContext(ctx)
	lg.Info("resubscribing after reconnect", "accounts", accounts)
	if err := a.SubscribeAccounts(ctx, accounts...); err != nil {
		lg.Error("failed to resubscribe", "accounts", accounts, "error", err)
		a.sink.HandleError(ctx, fmt.Errorf("%w: %v: %w", ErrSubscriptionFailed, accounts, err))
	}
}

// OnTransportError forwards transport failures to the sink unchanged.
func (a *Adapter) OnTransportError(ctx context.Context, err error) {
	a.sink.HandleError(ctx, err)
}

// OnTransferNotification converts the resource and delivers a TransferEvent.
// Conversion failures reach the sink as ErrConversion.
func (a *Adapter) OnTransferNotification(ctx context.Context, n jsonrpc.TransferNotification) {
	transfer, err := a.converter.ToTransfer(n.Resource)
	if err != nil {
		log.FromContext(ctx).Warn("failed to convert transfer", "event", n.Event, "error", err)
		a.sink.HandleError(ctx, fmt.Errorf("%w: %s: %w", ErrConversion, n.Event, err))
		return
	}

	a.sink.HandleTransfer(ctx, TransferEvent{
		Event:            n.Event,
		Transfer:         transfer,
		RelatedResources: n.RelatedResources,
	})
}

// OnMessageNotification converts the resource and delivers a MessageEvent.
func (a *Adapter) OnMessageNotification(ctx context.Context, n jsonrpc.MessageNotification) {
	message, err := a.converter.ToMessage(n.Resource)
	if err != nil {
		log.FromContext(ctx).Warn("failed to convert message", "event", n.Event, "error", err)
		a.sink.HandleError(ctx, fmt.Errorf("%w: %s: %w", ErrConversion, n.Event, err))
		return
	}

	a.sink.HandleMessage(ctx, MessageEvent{Event: n.Event, Message: message})
}

// OnUnknownMessage reports the raw frame as an *UnrecognizedMessageError.
func (a *Adapter) OnUnknownMessage(ctx context.Context, raw []byte, err error) {
	a.sink.HandleError(ctx, &UnrecognizedMessageError{Raw: string(raw), Err: err})
}
