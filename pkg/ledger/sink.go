package ledger

import (
	"context"
	"encoding/json"
)

// EventSink receives the events of a Notifier. Calls are made from the
// channel's read goroutine, in frame order.
type EventSink interface {
	// HandleConnect is called once per session, when the first connection is
	// established. Subscriptions belong here.
	HandleConnect(ctx context.Context)
	// HandleError receives transport failures, unrecognized frames,
	// conversion failures and rejected subscriptions.
	HandleError(ctx context.Context, err error)
	HandleTransfer(ctx context.Context, event TransferEvent)
	HandleMessage(ctx context.Context, event MessageEvent)
}

// Converter turns raw notification resources into domain values.
type Converter interface {
	ToTransfer(resource json.RawMessage) (Transfer, error)
	ToMessage(resource json.RawMessage) (Message, error)
}
