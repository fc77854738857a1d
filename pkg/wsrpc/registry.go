package wsrpc

import (
	"context"
	"sync"
	"time"

	"github.com/ilpkit/ledgerws/pkg/jsonrpc"
	"github.com/ilpkit/ledgerws/pkg/log"
)

// ResponseHandler is called exactly once per registered request: with the
// server's response, a timeout response or a channel-closed response.
type ResponseHandler func(req *jsonrpc.Request, res *jsonrpc.Response)

type pendingRequest struct {
	request    *jsonrpc.Request
	handler    ResponseHandler
	enqueuedAt time.Time
}

// Registry correlates outbound requests with their responses. A request is
// removed from the registry before its handler runs, so whichever of
// Resolve, the expiry sweep or FailAll takes it first is the only caller.
type Registry struct {
	expiry  time.Duration
	now     func() time.Time
	lg      log.Logger
	metrics *Metrics

	mu      sync.Mutex
	pending map[string]pendingRequest
}

// NewRegistry creates a registry whose requests expire after expiry. The
// logger is taken from ctx.
func NewRegistry(ctx context.Context, expiry time.Duration, metrics *Metrics) *Registry {
	if expiry <= 0 {
		expiry = DefaultRequestExpiry
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	return &Registry{
		expiry:  expiry,
		now:     time.Now,
		lg:      log.FromContext(ctx).WithName("registry"),
		metrics: metrics,
		pending: make(map[string]pendingRequest),
	}
}

// Store registers handler for req.ID. If the id was already pending the
// previous handler is returned; it will never be called.
func (r *Registry) Store(req *jsonrpc.Request, handler ResponseHandler) (ResponseHandler, error) {
	if req == nil {
		return nil, ErrNilRequest
	}
	if req.ID == "" {
		return nil, ErrMissingRequestID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	prev, ok := r.pending[req.ID]
	r.pending[req.ID] = pendingRequest{
		request:    req,
		handler:    handler,
		enqueuedAt: r.now(),
	}
	r.metrics.PendingRequests.Set(float64(len(r.pending)))

	if ok {
		return prev.handler, nil
	}
	return nil, nil
}

// Resolve delivers res to the handler registered under res.ID. Responses
// nobody waits for (late, duplicate or unsolicited) are dropped.
func (r *Registry) Resolve(res *jsonrpc.Response) error {
	if res == nil || res.ID == "" {
		return ErrEmptyResponseID
	}

	p, ok := r.take(res.ID)
	if !ok {
		r.lg.Debug("dropping response without pending request", "id", res.ID)
		return nil
	}

	r.invoke(p, res)
	return nil
}

// Remove forgets id without calling its handler.
func (r *Registry) Remove(id string) bool {
	_, ok := r.take(id)
	return ok
}

// Len returns the number of pending requests.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// SweepPeriod is how often Run looks for expired requests.
func (r *Registry) SweepPeriod() time.Duration {
	if period := r.expiry / 2; period > 0 {
		return period
	}
	return r.expiry
}

// Run evicts expired requests until ctx is done.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(r.SweepPeriod())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(r.now())
		}
	}
}

// FailAll answers every pending request with a channel-closed response.
func (r *Registry) FailAll() int {
	r.mu.Lock()
	failed := make([]pendingRequest, 0, len(r.pending))
	for id, p := range r.pending {
		failed = append(failed, p)
		delete(r.pending, id)
	}
	r.metrics.PendingRequests.Set(0)
	r.mu.Unlock()

	for _, p := range failed {
		r.invoke(p, jsonrpc.NewChannelClosedResponse(p.request.ID))
	}
	return len(failed)
}

func (r *Registry) sweep(now time.Time) int {
	r.mu.Lock()
	var expired []pendingRequest
	for id, p := range r.pending {
		if now.Sub(p.enqueuedAt) > r.expiry {
			expired = append(expired, p)
			delete(r.pending, id)
		}
	}
	r.metrics.PendingRequests.Set(float64(len(r.pending)))
	r.mu.Unlock()

	for _, p := range expired {
		r.lg.Warn("request timed out", "id", p.request.ID, "method", p.request.Method)
		r.metrics.RequestTimeouts.Inc()
		r.invoke(p, jsonrpc.NewTimeoutResponse(p.request.ID))
	}
	return len(expired)
}

func (r *Registry) take(id string) (pendingRequest, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pending[id]
	if ok {
		delete(r.pending, id)
		r.metrics.PendingRequests.Set(float64(len(r.pending)))
	}
	return p, ok
}

func (r *Registry) invoke(p pendingRequest, res *jsonrpc.Response) {
	if p.handler == nil {
		return
	}
	defer func() {
		if v := recover(); v != nil {
			r.lg.Error("response handler panicked", "id", p.request.ID, "panic", v)
		}
	}()

	p.handler(p.request, res)
}
