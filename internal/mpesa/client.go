package mpesa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const defaultHTTPTimeout = 10 * time.Second

const (
	tokenPath   = "/oauth/v1/generate"
	stkPushPath = "/mpesa/stkpush/v1/processrequest"
)

// Client talks to the Daraja API. It is safe for concurrent use; everything
// guarded by authMu is shared between calls.
type Client struct {
	cfg        *Config
	httpClient *http.Client
	log        *logrus.Entry
	now        func() time.Time

	authMu       sync.Mutex
	cachedToken  *AccessToken
	tokenExpiry  time.Time
	lastIssued   string
	lastPassword string
	refresh      singleflight.Group
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger lets callers supply a logger entry.
func WithLogger(l *logrus.Entry) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithClock overrides the time source used for timestamps and token expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient builds a Client around cfg. Validation is deferred to each call so
// that a missing value fails the operation that needs it, before any I/O.
func NewClient(cfg *Config, opts ...Option) *Client {
	if cfg == nil {
		cfg = &Config{}
	}

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		log:        logrus.NewEntry(logrus.StandardLogger()),
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.log = c.log.WithField("component", "mpesa")
	return c
}

func (c *Client) doRequest(ctx context.Context, op, method, url, authorization string, payload any) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(payload); err != nil {
			return 0, nil, fmt.Errorf("encode %s payload: %w", op, err)
		}
		body = buf
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return 0, nil, fmt.Errorf("build %s request: %w", op, err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, &TransportError{Op: op, Err: fmt.Errorf("read body: %w", err)}
	}

	return resp.StatusCode, data, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
