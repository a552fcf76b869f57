package mpesa

import (
	"encoding/base64"
	"strings"
	"time"
)

// DefaultBaseURL is the Daraja sandbox.
const DefaultBaseURL = "https://sandbox.safaricom.co.ke"

// Config carries everything the client needs. It is built once at startup and
// shared by pointer; the client never reads the environment itself.
type Config struct {
	ConsumerKey       string
	ConsumerSecret    string
	Passkey           string
	BusinessShortCode string
	CallbackURL       string
	BaseURL           string
	PhoneNumber       string
	AccountReference  string

	// Location is the zone timestamps are rendered in. Nil means time.Local.
	Location *time.Location
	// TokenCache reuses a bearer token for its declared lifetime. When false
	// every payment acquires a fresh token.
	TokenCache bool
}

func (c *Config) baseURL() string {
	base := strings.TrimSpace(c.BaseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	return strings.TrimSuffix(base, "/")
}

func (c *Config) location() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

// Secrets returns the configured values that must never appear in user-visible text.
func (c *Config) Secrets() []string {
	return nonEmpty(c.ConsumerKey, c.ConsumerSecret, c.Passkey)
}

// basicCredential is the value sent after "Basic " to the authorization endpoint.
func (c *Config) basicCredential() string {
	return base64.StdEncoding.EncodeToString([]byte(c.ConsumerKey + ":" + c.ConsumerSecret))
}

func (c *Config) credentialsError() error {
	return missing(
		field{"MPESA_CONSUMER_KEY", c.ConsumerKey},
		field{"MPESA_CONSUMER_SECRET", c.ConsumerSecret},
	)
}

func (c *Config) paymentError() error {
	return missing(
		field{"BUSINESS_SHORTCODE", c.BusinessShortCode},
		field{"PASSKEY", c.Passkey},
		field{"PHONE_NUMBER", c.PhoneNumber},
		field{"CALLBACK_URL", c.CallbackURL},
		field{"ACCOUNT_REFERENCE", c.AccountReference},
	)
}

// Validate checks every required setting, including the base URL that the
// client would otherwise default.
func (c *Config) Validate() error {
	return missing(
		field{"MPESA_CONSUMER_KEY", c.ConsumerKey},
		field{"MPESA_CONSUMER_SECRET", c.ConsumerSecret},
		field{"PASSKEY", c.Passkey},
		field{"BUSINESS_SHORTCODE", c.BusinessShortCode},
		field{"CALLBACK_URL", c.CallbackURL},
		field{"BASE_URL", c.BaseURL},
		field{"PHONE_NUMBER", c.PhoneNumber},
		field{"ACCOUNT_REFERENCE", c.AccountReference},
	)
}

type field struct {
	name  string
	value string
}

func missing(fields ...field) error {
	var names []string
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			names = append(names, f.name)
		}
	}
	if len(names) == 0 {
		return nil
	}
	return &ConfigurationError{Missing: names}
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
