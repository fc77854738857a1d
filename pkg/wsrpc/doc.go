// Package wsrpc is a JSON-RPC 2.0 client transport over a websocket.
//
// A Channel owns one connection at a time, re-dials after closures it did
// not initiate (bounded by Config.MaxConnectAttempts) and routes every
// inbound frame through a Dispatcher: responses complete requests held in
// the Registry, notifications go to the channel's Handler.
//
// Requests that get no answer within Config.RequestExpiry are completed
// with a synthetic timeout response; closing the channel completes the rest
// with a channel-closed response. Every registered handler runs exactly once.
package wsrpc
