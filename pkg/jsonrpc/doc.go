// Package jsonrpc models the JSON-RPC 2.0 frames exchanged with a ledger's
// notification socket and decodes them.
//
// The ledger does not tag its frames with a discriminant field. A frame's
// variant follows from which members it carries, so Decode runs an ordered
// list of shape predicates:
//
//  1. an id plus result or error (or an id and nothing else) is a *Response
//  2. method "connect" without params is a *Notification carrying ConnectNotification
//  3. method "notify", or an id-less frame whose params look like {event, resource},
//     is a *Notification; its params are classified from params.resource:
//     credits/debits/execution_condition → TransferNotification,
//     from/to/data → MessageNotification, otherwise by the event prefix
//     ("transfer." / "message."), otherwise GenericNotification
//  4. a method plus an id is a *Request
//
// Anything else yields a *DecodeError wrapping ErrUnrecognizedMessage. Decode
// never panics on hostile input.
//
// Outbound requests are built with NewRequest and always carry "jsonrpc":"2.0":
//
//	req := jsonrpc.NewRequest(jsonrpc.NewRequestID(), jsonrpc.SubscribeAccountMethod,
//	    jsonrpc.SubscribeAccountParams{EventType: jsonrpc.EventTypeAll, Accounts: []string{acct}})
//	data, err := json.Marshal(req)
package jsonrpc
