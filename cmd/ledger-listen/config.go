package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/ilpkit/ledgerws/pkg/ledger"
	"github.com/ilpkit/ledgerws/pkg/log"
	"github.com/ilpkit/ledgerws/pkg/wsrpc"
)

const (
	configDirPathEnv     = "LEDGER_CONFIG_DIR_PATH"
	defaultConfigDirPath = "."

	// requestExpiryEnv overrides the ledger's five minute request expiry.
	requestExpiryEnv = "LEDGER_WS_REQUEST_EXPIRY"
)

const (
	OutputLog   = "log"
	OutputTable = "table"
)

var errNoCredentials = errors.New("either LEDGER_TOKEN or LEDGER_AUTH_TOKEN_URL must be set")

// Config represents the listener configuration.
type Config struct {
	Log log.Config

	WebsocketURL string   `env:"LEDGER_WS_URL" env-required:"true" validate:"required,url"`
	AuthTokenURL string   `env:"LEDGER_AUTH_TOKEN_URL" validate:"omitempty,url"`
	Username     string   `env:"LEDGER_USERNAME"`
	Password     string   `env:"LEDGER_PASSWORD"`
	Token        string   `env:"LEDGER_TOKEN"`
	Accounts     []string `env:"LEDGER_ACCOUNTS" env-separator:"," validate:"min=1,dive,required"`

	Output      string `env:"LEDGER_OUTPUT" env-default:"log" validate:"oneof=log table"`
	MetricsAddr string `env:"METRICS_ADDR" env-default:":4242"`

	Channel wsrpc.Config
}

// LoadConfig reads <LEDGER_CONFIG_DIR_PATH>/.env if present, then the
// environment.
func LoadConfig() (*Config, error) {
	configDirPath := os.Getenv(configDirPathEnv)
	if configDirPath == "" {
		configDirPath = defaultConfigDirPath
	}

	// A missing .env is fine; the environment may carry everything.
	_ = godotenv.Load(filepath.Join(configDirPath, ".env"))

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read env: %w", err)
	}
	if os.Getenv(requestExpiryEnv) == "" {
		cfg.Channel.RequestExpiry = ledger.DefaultRequestExpiry
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and that some credential is configured.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Token == "" && c.AuthTokenURL == "" {
		return errNoCredentials
	}
	return nil
}

// TokenSource prefers a fixed LEDGER_TOKEN over fetching one.
func (c *Config) TokenSource() ledger.TokenSource {
	if c.Token != "" {
		return ledger.StaticToken(c.Token)
	}
	return &ledger.HTTPTokenSource{
		URL:      c.AuthTokenURL,
		Username: c.Username,
		Password: c.Password,
	}
}
