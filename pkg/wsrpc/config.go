package wsrpc

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultMaxConnectAttempts = 5
	DefaultRequestExpiry      = time.Second
)

// Config drives a Channel. The env tags let composing layers load it with
// cleanenv; zero durations disable the corresponding timeout.
type Config struct {
	// AutoReconnect re-dials after a closure the caller did not ask for.
	AutoReconnect bool `env:"LEDGER_WS_AUTO_RECONNECT" env-default:"true"`
	// MaxConnectAttempts bounds consecutive failed connects before the
	// channel gives up with ErrReconnectExhausted.
	MaxConnectAttempts int `env:"LEDGER_WS_MAX_CONNECT_ATTEMPTS" env-default:"5" validate:"min=1"`
	// RequestExpiry is how long a request waits for its response before the
	// registry answers it with a timeout.
	RequestExpiry time.Duration `env:"LEDGER_WS_REQUEST_EXPIRY" env-default:"1s" validate:"gt=0"`

	HandshakeTimeout time.Duration `env:"LEDGER_WS_HANDSHAKE_TIMEOUT" env-default:"5s" validate:"gte=0"`
	WriteTimeout     time.Duration `env:"LEDGER_WS_WRITE_TIMEOUT" env-default:"10s" validate:"gte=0"`
	// PingInterval enables websocket-level keepalive pings. The peer must
	// answer within two intervals or the connection is dropped.
	PingInterval time.Duration `env:"LEDGER_WS_PING_INTERVAL" env-default:"0s" validate:"gte=0"`
	// ReadLimit caps inbound frame size in bytes.
	ReadLimit int64 `env:"LEDGER_WS_READ_LIMIT" env-default:"1048576" validate:"gte=0"`
	// ReconnectRate caps reconnects per second; 0 reconnects immediately.
	ReconnectRate float64 `env:"LEDGER_WS_RECONNECT_RATE" env-default:"0" validate:"gte=0"`
}

// DefaultConfig suits short-lived control traffic.
var DefaultConfig = Config{
	AutoReconnect:      true,
	MaxConnectAttempts: DefaultMaxConnectAttempts,
	RequestExpiry:      DefaultRequestExpiry,
	HandshakeTimeout:   5 * time.Second,
	WriteTimeout:       10 * time.Second,
	ReadLimit:          1 << 20,
}

var validate = validator.New()

// Validate checks c against its field constraints. Failures wrap
// ErrInvalidConfig.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
