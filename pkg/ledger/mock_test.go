package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/ilpkit/ledgerws/pkg/jsonrpc"
	"github.com/ilpkit/ledgerws/pkg/wsrpc"
)

type recordingSink struct {
	mu        sync.Mutex
	connects  int
	errs      []error
	transfers []TransferEvent
	messages  []MessageEvent
	onConnect func(ctx context.Context)
}

func (s *recordingSink) HandleConnect(ctx context.Context) {
	s.mu.Lock()
	s.connects++
	onConnect := s.onConnect
	s.mu.Unlock()

	if onConnect != nil {
		onConnect(ctx)
	}
}

func (s *recordingSink) HandleError(_ context.Context, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

func (s *recordingSink) HandleTransfer(_ context.Context, event TransferEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transfers = append(s.transfers, event)
}

func (s *recordingSink) HandleMessage(_ context.Context, event MessageEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, event)
}

func (s *recordingSink) errorList() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.errs...)
}

func (s *recordingSink) transferList() []TransferEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]TransferEvent(nil), s.transfers...)
}

type sentRequest struct {
	req     *jsonrpc.Request
	handler wsrpc.ResponseHandler
}

type fakeSender struct {
	mu      sync.Mutex
	canSend bool
	sendErr error
	sent    []sentRequest
}

func (f *fakeSender) CanSend() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.canSend
}

func (f *fakeSender) SendRequest(req *jsonrpc.Request, handler wsrpc.ResponseHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, sentRequest{req: req, handler: handler})
	return nil
}

func (f *fakeSender) last() sentRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[len(f.sent)-1]
}

var errConverter = errors.New("converter failure")

type failingConverter struct{}

func (failingConverter) ToTransfer(json.RawMessage) (Transfer, error) {
	return Transfer{}, errConverter
}

func (failingConverter) ToMessage(json.RawMessage) (Message, error) {
	return Message{}, errConverter
}
