package wsrpc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of one Channel.
type Metrics struct {
	ConnectAttempts    prometheus.Counter
	Reconnects         prometheus.Counter
	ReconnectExhausted prometheus.Counter
	Connected          prometheus.Gauge

	FramesReceived *prometheus.CounterVec
	FramesSent     prometheus.Counter
	DecodeErrors   prometheus.Counter

	PendingRequests prometheus.Gauge
	RequestTimeouts prometheus.Counter
}

// NewMetrics registers the collectors with registry. A nil registry gets a
// private one, so channels built without metrics wiring never collide.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	factory := promauto.With(registry)

	return &Metrics{
		ConnectAttempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledgerws_connect_attempts_total",
			Help: "The total number of websocket connect attempts",
		}),
		Reconnects: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledgerws_reconnects_total",
			Help: "The total number of automatic reconnects after an unexpected closure",
		}),
		ReconnectExhausted: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledgerws_reconnect_exhausted_total",
			Help: "The number of times the channel gave up reconnecting",
		}),
		Connected: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ledgerws_connected",
			Help: "1 while the websocket is open, 0 otherwise",
		}),
		FramesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ledgerws_frames_received_total",
			Help: "The total number of frames received, by decoded kind",
		}, []string{"kind"}),
		FramesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledgerws_frames_sent_total",
			Help: "The total number of request frames written",
		}),
		DecodeErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledgerws_decode_errors_total",
			Help: "The total number of frames that could not be decoded",
		}),
		PendingRequests: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ledgerws_pending_requests",
			Help: "The number of requests waiting for a response",
		}),
		RequestTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledgerws_request_timeouts_total",
			Help: "The total number of requests evicted without a response",
		}),
	}
}
