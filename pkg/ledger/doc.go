// Package ledger turns a ledger's websocket notification stream into typed
// events.
//
// A Notifier fetches an auth token, opens a wsrpc.Channel against the
// ledger's websocket endpoint and routes notifications through an Adapter,
// which converts raw payloads with a Converter and hands the results to an
// EventSink. Accounts are subscribed with SubscribeAccounts once the sink
// has seen HandleConnect.
package ledger
