package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// ErrInvalidConfig is returned when the loaded configuration fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all configuration for the application.
type Config struct {
	// Endpoint is the relay's websocket address.
	Endpoint   string `env:"RELAYCHAT_ENDPOINT" validate:"required,url,startswith=ws"`
	ListenAddr string `env:"RELAYCHAT_LISTEN_ADDR" envDefault:":8973" validate:"required"`

	// RawHTML inserts message content into the widget without escaping.
	// It has no effect on terminal output.
	RawHTML bool `env:"RELAYCHAT_RAW_HTML" envDefault:"false"`

	// RawTerminal prints relayed text to the terminal with its control
	// characters intact.
	RawTerminal bool `env:"RELAYCHAT_RAW_TERMINAL" envDefault:"false"`

	// DedupeWindow is the number of recent messages remembered for echo
	// suppression. Zero disables it.
	DedupeWindow int `env:"RELAYCHAT_DEDUPE_WINDOW" envDefault:"0" validate:"gte=0"`

	ReconnectInitial time.Duration `env:"RELAYCHAT_RECONNECT_INITIAL" envDefault:"1s" validate:"gt=0"`
	ReconnectMax     time.Duration `env:"RELAYCHAT_RECONNECT_MAX" envDefault:"30s" validate:"gtefield=ReconnectInitial"`
	WriteTimeout     time.Duration `env:"RELAYCHAT_WRITE_TIMEOUT" envDefault:"10s" validate:"gt=0"`

	// Transcript is an optional file the terminal view copies messages into.
	Transcript string `env:"RELAYCHAT_TRANSCRIPT"`

	LogFormat string `env:"LOG_FORMAT" envDefault:"text" validate:"oneof=text json"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// New loads configuration from a .env file, if present, and the environment.
// Overrides are applied before validation so CLI flags can fill required values.
func New(overrides ...func(*Config)) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	for _, o := range overrides {
		o(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration's field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// WithEndpoint overrides the relay endpoint when v is non-empty.
func WithEndpoint(v string) func(*Config) {
	return func(c *Config) {
		if v != "" {
			c.Endpoint = v
		}
	}
}

// WithListenAddr overrides the widget server address when v is non-empty.
func WithListenAddr(v string) func(*Config) {
	return func(c *Config) {
		if v != "" {
			c.ListenAddr = v
		}
	}
}

// WithTranscript overrides the transcript path when v is non-empty.
func WithTranscript(v string) func(*Config) {
	return func(c *Config) {
		if v != "" {
			c.Transcript = v
		}
	}
}
