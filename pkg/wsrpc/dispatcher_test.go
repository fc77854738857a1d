package wsrpc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilpkit/ledgerws/pkg/jsonrpc"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *Registry, *recordingHandler) {
	t.Helper()

	registry := NewRegistry(context.Background(), DefaultRequestExpiry, nil)
	handler := &recordingHandler{}
	return NewDispatcher(registry, handler, nil), registry, handler
}

func TestDispatcher_ResponseCompletesRequest(t *testing.T) {
	t.Parallel()

	d, registry, handler := newTestDispatcher(t)

	var got *jsonrpc.Response
	_, err := registry.Store(jsonrpc.NewRequest("sub-1", jsonrpc.SubscribeAccountMethod, nil),
		func(_ *jsonrpc.Request, res *jsonrpc.Response) { got = res })
	require.NoError(t, err)

	d.Dispatch(context.Background(), []byte(`{"jsonrpc":"2.0","id":"sub-1","result":1}`))

	require.NotNil(t, got)
	assert.True(t, got.IsSuccess())
	assert.JSONEq(t, `1`, string(got.Result))
	assert.Empty(t, handler.unknownErrors())
}

func TestDispatcher_Notifications(t *testing.T) {
	t.Parallel()

	d, _, handler := newTestDispatcher(t)
	ctx := context.Background()

	d.Dispatch(ctx, []byte(`{"jsonrpc":"2.0","id":null,"method":"notify","params":{"event":"transfer.update","resource":{"id":"t1","credits":[]}}}`))
	d.Dispatch(ctx, []byte(`{"jsonrpc":"2.0","id":null,"method":"notify","params":{"event":"message.send","resource":{"data":{"x":1}}}}`))
	d.Dispatch(ctx, []byte(`{"jsonrpc":"2.0","id":null,"method":"connect"}`))

	handler.mu.Lock()
	defer handler.mu.Unlock()
	require.Len(t, handler.transfers, 1)
	assert.Equal(t, "transfer.update", handler.transfers[0].Event)
	require.Len(t, handler.messages, 1)
	assert.Equal(t, "message.send", handler.messages[0].Event)
	assert.Empty(t, handler.unknown)
	assert.Empty(t, handler.errs)
	assert.Zero(t, handler.connects)
}

func TestDispatcher_UnknownFrames(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		frame  string
		target error
	}{
		{
			name:   "generic notification",
			frame:  `{"jsonrpc":"2.0","id":null,"method":"notify","params":{"event":"account.update","resource":{"name":"alice"}}}`,
			target: jsonrpc.ErrUnrecognizedMessage,
		},
		{
			name:   "server request",
			frame:  `{"jsonrpc":"2.0","id":"r1","method":"subscribe_account","params":{}}`,
			target: ErrUnexpectedRequest,
		},
		{
			name:   "not json",
			frame:  `not json`,
			target: jsonrpc.ErrMalformedFrame,
		},
		{
			name:   "unknown shape",
			frame:  `{"jsonrpc":"2.0","method":"ping"}`,
			target: jsonrpc.ErrUnrecognizedMessage,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			d, _, handler := newTestDispatcher(t)
			d.Dispatch(context.Background(), []byte(tc.frame))

			errs := handler.unknownErrors()
			require.Len(t, errs, 1)
			assert.ErrorIs(t, errs[0], tc.target)
		})
	}
}

func TestDispatcher_HandlerPanicIsContained(t *testing.T) {
	t.Parallel()

	d, _, handler := newTestDispatcher(t)
	handler.panicOn = "transfer.create"

	assert.NotPanics(t, func() {
		d.Dispatch(context.Background(), []byte(`{"jsonrpc":"2.0","method":"notify","params":{"event":"transfer.create","resource":{"credits":[]}}}`))
	})

	d.Dispatch(context.Background(), []byte(`{"jsonrpc":"2.0","method":"notify","params":{"event":"transfer.update","resource":{"credits":[]}}}`))
	assert.Equal(t, 1, handler.transferCount())
}
