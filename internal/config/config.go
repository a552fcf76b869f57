package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/berniyo/daraja-gateway/internal/mpesa"
)

// Config is the process configuration, loaded once at startup.
type Config struct {
	ConsumerKey       string `env:"MPESA_CONSUMER_KEY"`
	ConsumerSecret    string `env:"MPESA_CONSUMER_SECRET"`
	Passkey           string `env:"PASSKEY"`
	BusinessShortCode string `env:"BUSINESS_SHORTCODE"`
	CallbackURL       string `env:"CALLBACK_URL"`
	BaseURL           string `env:"BASE_URL"`
	PhoneNumber       string `env:"PHONE_NUMBER"`
	AccountReference  string `env:"ACCOUNT_REFERENCE"`

	Timezone    string        `env:"MPESA_TIMEZONE"`
	TokenCache  bool          `env:"MPESA_TOKEN_CACHE" envDefault:"true"`
	HTTPTimeout time.Duration `env:"MPESA_HTTP_TIMEOUT" envDefault:"10s"`

	// STKPushRateLimit caps push payments per second across the process. Zero disables it.
	STKPushRateLimit float64 `env:"STK_PUSH_RATE_LIMIT" envDefault:"0"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"debug"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	NotifyURL    string `env:"RESULT_NOTIFY_URL"`
	NotifySecret string `env:"RESULT_NOTIFY_SECRET"`
}

// Load reads an optional dotenv file and then the environment. Values already
// present in the environment win over the file. A missing file is not an error.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	return FromEnviron(os.Environ())
}

// FromEnviron parses cfg from KEY=VALUE pairs and validates it.
func FromEnviron(environ []string) (*Config, error) {
	vars := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			vars[k] = v
		}
	}

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every missing required value at once.
func (c *Config) Validate() error {
	m, err := c.mpesaConfig()
	if err != nil {
		return err
	}
	if err := m.Validate(); err != nil {
		return err
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("MPESA_HTTP_TIMEOUT must be positive, got %s", c.HTTPTimeout)
	}
	if c.STKPushRateLimit < 0 {
		return fmt.Errorf("STK_PUSH_RATE_LIMIT must not be negative, got %v", c.STKPushRateLimit)
	}
	return nil
}

// Mpesa returns the client configuration, or the error that makes it unusable.
func (c *Config) Mpesa() (*mpesa.Config, error) {
	return c.mpesaConfig()
}

func (c *Config) mpesaConfig() (*mpesa.Config, error) {
	loc := time.Local
	if tz := strings.TrimSpace(c.Timezone); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("MPESA_TIMEZONE: %w", err)
		}
		loc = l
	}

	return &mpesa.Config{
		ConsumerKey:       strings.TrimSpace(c.ConsumerKey),
		ConsumerSecret:    strings.TrimSpace(c.ConsumerSecret),
		Passkey:           strings.TrimSpace(c.Passkey),
		BusinessShortCode: strings.TrimSpace(c.BusinessShortCode),
		CallbackURL:       strings.TrimSpace(c.CallbackURL),
		BaseURL:           strings.TrimSpace(c.BaseURL),
		PhoneNumber:       strings.TrimSpace(c.PhoneNumber),
		AccountReference:  strings.TrimSpace(c.AccountReference),
		Location:          loc,
		TokenCache:        c.TokenCache,
	}, nil
}
