package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultNotifyTimeout = 15 * time.Second
	notifySecretHeader   = "X-Callback-Secret"
	notifyStatusHeader   = "X-Payment-Outcome"
)

// Notifier posts payment outcomes to a downstream HTTP endpoint. It is used by
// the Lambda entry point, where no interactive caller waits for the result.
type Notifier struct {
	endpoint   string
	secret     string
	httpClient *http.Client
}

// NewNotifier builds a Notifier for endpoint. A nil client gets a bounded default.
func NewNotifier(endpoint, secret string, client *http.Client) (*Notifier, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("notify URL is required")
	}
	if client == nil {
		client = &http.Client{Timeout: defaultNotifyTimeout}
	}
	return &Notifier{endpoint: endpoint, secret: secret, httpClient: client}, nil
}

// Send implements OutcomeSender.
func (n *Notifier) Send(ctx context.Context, outcome PaymentOutcome) error {
	payload, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("encode outcome: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build outcome request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(notifyStatusHeader, outcomeStatus(outcome))
	if n.secret != "" {
		req.Header.Set(notifySecretHeader, n.secret)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("deliver outcome: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("notify endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return nil
}

func outcomeStatus(o PaymentOutcome) string {
	if o.OK {
		return "accepted"
	}
	return "failed"
}
