package wsrpc

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ilpkit/ledgerws/pkg/jsonrpc"
)

var errDropped = errors.New("connection dropped")

type mockConn struct {
	inbound   chan []byte
	closed    chan struct{}
	closeOnce sync.Once

	mu       sync.Mutex
	readErr  error
	written  chan []byte
	writeErr error
}

func newMockConn() *mockConn {
	return &mockConn{
		inbound: make(chan []byte, 16),
		closed:  make(chan struct{}),
		written: make(chan []byte, 16),
	}
}

func (m *mockConn) ReadMessage() (int, []byte, error) {
	select {
	case data := <-m.inbound:
		return websocket.TextMessage, data, nil
	case <-m.closed:
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.readErr != nil {
			return 0, nil, m.readErr
		}
		return 0, nil, io.ErrUnexpectedEOF
	}
}

func (m *mockConn) WriteMessage(_ int, data []byte) error {
	m.mu.Lock()
	err := m.writeErr
	m.mu.Unlock()
	if err != nil {
		return err
	}
	m.written <- data
	return nil
}

func (m *mockConn) WriteControl(int, []byte, time.Time) error {
	return nil
}

func (m *mockConn) SetReadDeadline(time.Time) error {
	return nil
}

func (m *mockConn) SetWriteDeadline(time.Time) error {
	return nil
}

func (m *mockConn) SetPongHandler(func(string) error) {}

func (m *mockConn) SetReadLimit(int64) {}

func (m *mockConn) Close() error {
	m.closeOnce.Do(func() { close(m.closed) })
	return nil
}

// drop simulates the server going away with err as the read error.
func (m *mockConn) drop(err error) {
	m.mu.Lock()
	m.readErr = err
	m.mu.Unlock()
	m.Close()
}

type mockDialer struct {
	mu    sync.Mutex
	dials int
	err   error
	conns chan *mockConn
}

func newMockDialer() *mockDialer {
	return &mockDialer{conns: make(chan *mockConn, 16)}
}

func (d *mockDialer) Dial(ctx context.Context, _ string) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.dials++
	if d.err != nil {
		return nil, d.err
	}
	conn := newMockConn()
	d.conns <- conn
	return conn, nil
}

func (d *mockDialer) setErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

func (d *mockDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

type recordingHandler struct {
	mu         sync.Mutex
	connects   int
	reconnects int
	errs       []error
	transfers  []jsonrpc.TransferNotification
	messages   []jsonrpc.MessageNotification
	unknown    []error
	panicOn    string
}

func (h *recordingHandler) OnConnect(context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connects++
}

func (h *recordingHandler) OnReconnect(context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reconnects++
}

func (h *recordingHandler) OnTransportError(_ context.Context, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errs = append(h.errs, err)
}

func (h *recordingHandler) OnTransferNotification(_ context.Context, n jsonrpc.TransferNotification) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.panicOn == n.Event {
		panic("handler failure")
	}
	h.transfers = append(h.transfers, n)
}

func (h *recordingHandler) OnMessageNotification(_ context.Context, n jsonrpc.MessageNotification) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, n)
}

func (h *recordingHandler) OnUnknownMessage(_ context.Context, _ []byte, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unknown = append(h.unknown, err)
}

func (h *recordingHandler) connectCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connects
}

func (h *recordingHandler) reconnectCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.reconnects
}

func (h *recordingHandler) errorsMatching(target error) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0
	for _, err := range h.errs {
		if errors.Is(err, target) {
			n++
		}
	}
	return n
}

func (h *recordingHandler) transferCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.transfers)
}

func (h *recordingHandler) unknownErrors() []error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]error(nil), h.unknown...)
}
