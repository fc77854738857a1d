package ledger

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilpkit/ledgerws/pkg/jsonrpc"
	"github.com/ilpkit/ledgerws/pkg/wsrpc"
)

const aliceAccount = "http://ledger.example/accounts/alice"

const transferResource = `{
	"id": "http://ledger.example/transfers/3a2a1d9e-8640-4d2d-b06c-84f2cd613204",
	"ledger": "http://ledger.example",
	"debits": [{"account": "http://ledger.example/accounts/alice", "amount": "10.25", "authorized": true}],
	"credits": [{"account": "http://ledger.example/accounts/bob", "amount": "10.25", "memo": {"note": "hi"}}],
	"execution_condition": "ni:///sha-256;47DEQpj8HBSa-_TImW-5JCeuQeRkm5NMpJWZG3hSuFU?fpt=preimage-sha-256&cost=0",
	"expires_at": "2016-06-16T00:00:01.000Z",
	"state": "prepared"
}`

func TestAdapter_SubscribeRequiresConnection(t *testing.T) {
	t.Parallel()

	a := NewAdapter(&recordingSink{}, nil)
	assert.ErrorIs(t, a.SubscribeAccount(context.Background(), aliceAccount), wsrpc.ErrNotConnected)

	sender := &fakeSender{}
	a.Bind(sender)
	assert.ErrorIs(t, a.SubscribeAccount(context.Background(), aliceAccount), wsrpc.ErrNotConnected)
	assert.Empty(t, sender.sent)

	assert.ErrorIs(t, a.SubscribeAccounts(context.Background()), ErrNoAccounts)
}

func TestAdapter_SubscribeAccountRequest(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	sender := &fakeSender{canSend: true}
	a := NewAdapter(sink, nil)
	a.Bind(sender)

	require.NoError(t, a.SubscribeAccount(context.Background(), aliceAccount))

	sent := sender.last()
	require.NotNil(t, sent.handler)
	assert.NotEmpty(t, sent.req.ID)
	assert.Equal(t, jsonrpc.SubscribeAccountMethod, sent.req.Method)

	data, err := json.Marshal(sent.req)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"jsonrpc": "2.0",
		"id": "`+sent.req.ID+`",
		"method": "subscribe_account",
		"params": {"eventType": "*", "accounts": ["`+aliceAccount+`"]}
	}`, string(data))

	// Confirmation is only logged.
	sent.handler(sent.req, &jsonrpc.Response{ID: sent.req.ID, Result: json.RawMessage(`1`)})
	assert.Empty(t, sink.errorList())
}

func TestAdapter_SubscribeAccountIDsAreUnique(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{canSend: true}
	a := NewAdapter(&recordingSink{}, nil)
	a.Bind(sender)

	require.NoError(t, a.SubscribeAccount(context.Background(), aliceAccount))
	require.NoError(t, a.SubscribeAccount(context.Background(), aliceAccount))
	assert.NotEqual(t, sender.sent[0].req.ID, sender.sent[1].req.ID)
}

func TestAdapter_SubscriptionFailure(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		res  func(id string) *jsonrpc.Response
	}{
		{
			name: "server error",
			res: func(id string) *jsonrpc.Response {
				return jsonrpc.NewErrorResponse(id, 40001, "Invalid account")
			},
		},
		{
			name: "timeout",
			res:  jsonrpc.NewTimeoutResponse,
		},
		{
			name: "channel closed",
			res:  jsonrpc.NewChannelClosedResponse,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			sink := &recordingSink{}
			sender := &fakeSender{canSend: true}
			a := NewAdapter(sink, nil)
			a.Bind(sender)

			ctx, cancel := context.WithCancel(context.Background())
			require.NoError(t, a.SubscribeAccounts(ctx, aliceAccount))
			cancel()

			sent := sender.last()
			assert.NotPanics(t, func() { sent.handler(sent.req, tc.res(sent.req.ID)) })

			errs := sink.errorList()
			require.Len(t, errs, 1)
			assert.ErrorIs(t, errs[0], ErrSubscriptionFailed)
			assert.Contains(t, errs[0].Error(), aliceAccount)
		})
	}
}

func TestAdapter_SubscribeSendError(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{canSend: true, sendErr: wsrpc.ErrSendingRequest}
	a := NewAdapter(&recordingSink{}, nil)
	a.Bind(sender)

	assert.ErrorIs(t, a.SubscribeAccount(context.Background(), aliceAccount), wsrpc.ErrSendingRequest)
}

func TestAdapter_ReconnectResubscribes(t *testing.T) {
	t.Parallel()

	const bobAccount = "http://ledger.example/accounts/bob"

	sink := &recordingSink{}
	sender := &fakeSender{canSend: true}
	a := NewAdapter(sink, nil)
	a.Bind(sender)
	ctx := context.Background()

	a.OnConnect(ctx)
	require.NoError(t, a.SubscribeAccount(ctx, aliceAccount))
	require.NoError(t, a.SubscribeAccounts(ctx, bobAccount, aliceAccount))
	assert.Equal(t, []string{aliceAccount, bobAccount}, a.Subscribed())

	a.OnReconnect(ctx)

	require.Len(t, sender.sent, 3)
	resub := sender.last()
	assert.Equal(t, jsonrpc.SubscribeAccountMethod, resub.req.Method)
	assert.Equal(t, jsonrpc.SubscribeAccountParams{
		EventType: jsonrpc.EventTypeAll,
		Accounts:  []string{aliceAccount, bobAccount},
	}, resub.req.Params)
	assert.Equal(t, 1, sink.connects)
	assert.Empty(t, sink.errorList())

	// A new session forgets the previous one's subscriptions.
	a.OnConnect(ctx)
	assert.Empty(t, a.Subscribed())
	a.OnReconnect(ctx)
	assert.Len(t, sender.sent, 3)
}

func TestAdapter_ResubscribeFailureIsReported(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	sender := &fakeSender{canSend: true}
	a := NewAdapter(sink, nil)
	a.Bind(sender)

	require.NoError(t, a.SubscribeAccount(context.Background(), aliceAccount))

	sender.mu.Lock()
	sender.sendErr = wsrpc.ErrSendingRequest
	sender.mu.Unlock()
	a.OnReconnect(context.Background())

	errs := sink.errorList()
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrSubscriptionFailed)
	assert.ErrorIs(t, errs[0], wsrpc.ErrSendingRequest)
	assert.Equal(t, []string{aliceAccount}, a.Subscribed())
}

func TestAdapter_TransferNotification(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	a := NewAdapter(sink, NewJSONConverter())

	a.OnTransferNotification(context.Background(), jsonrpc.TransferNotification{
		Event:            "transfer.update",
		Resource:         json.RawMessage(transferResource),
		RelatedResources: json.RawMessage(`{"execution_condition_fulfillment":"oAKAAA"}`),
	})

	transfers := sink.transferList()
	require.Len(t, transfers, 1)
	ev := transfers[0]
	assert.Equal(t, "transfer.update", ev.Event)
	assert.Equal(t, "prepared", ev.Transfer.State)
	assert.True(t, decimal.RequireFromString("10.25").Equal(ev.Transfer.Amount()))
	assert.JSONEq(t, `{"execution_condition_fulfillment":"oAKAAA"}`, string(ev.RelatedResources))
	assert.Empty(t, sink.errorList())
}

func TestAdapter_MessageNotification(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	a := NewAdapter(sink, nil)

	a.OnMessageNotification(context.Background(), jsonrpc.MessageNotification{
		Event:    "message.send",
		Resource: json.RawMessage(`{"ledger":"http://ledger.example","from":"http://ledger.example/accounts/bob","to":"` + aliceAccount + `","data":{"method":"quote_request"}}`),
	})

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.messages, 1)
	assert.Equal(t, aliceAccount, sink.messages[0].Message.To)
	assert.JSONEq(t, `{"method":"quote_request"}`, string(sink.messages[0].Message.Data))
}

func TestAdapter_ConversionErrorsBecomeEvents(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	a := NewAdapter(sink, failingConverter{})

	a.OnTransferNotification(context.Background(), jsonrpc.TransferNotification{Event: "transfer.create"})
	a.OnMessageNotification(context.Background(), jsonrpc.MessageNotification{Event: "message.send"})

	errs := sink.errorList()
	require.Len(t, errs, 2)
	for _, err := range errs {
		assert.ErrorIs(t, err, ErrConversion)
		assert.ErrorIs(t, err, errConverter)
	}
	assert.Empty(t, sink.transferList())
}

func TestAdapter_LifecycleAndUnknownFrames(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	a := NewAdapter(sink, nil)
	ctx := context.Background()

	a.OnConnect(ctx)
	a.OnTransportError(ctx, wsrpc.ErrReconnectExhausted)
	a.OnUnknownMessage(ctx, []byte(`{"foo":1}`), jsonrpc.ErrUnrecognizedMessage)

	errs := sink.errorList()
	require.Len(t, errs, 2)
	assert.ErrorIs(t, errs[0], wsrpc.ErrReconnectExhausted)

	var unknown *UnrecognizedMessageError
	require.ErrorAs(t, errs[1], &unknown)
	assert.Equal(t, `{"foo":1}`, unknown.Raw)
	assert.Equal(t, `unrecognized message: {"foo":1}`, unknown.Error())
	assert.ErrorIs(t, errs[1], jsonrpc.ErrUnrecognizedMessage)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, 1, sink.connects)
}
