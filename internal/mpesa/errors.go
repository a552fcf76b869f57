package mpesa

import (
	"errors"
	"fmt"
	"strings"
)

// maxErrorBody caps how much of a provider response body is carried in an error.
const maxErrorBody = 1024

// ErrInvalidAmount is returned when a push payment is requested for a non-positive amount.
var ErrInvalidAmount = &InputError{Reason: "amount must be a positive integer"}

// Kind classifies failures so callers can branch without inspecting messages.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindConfiguration
	KindAuth
	KindProtocol
	KindTransport
	KindPayment
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindConfiguration:
		return "configuration"
	case KindAuth:
		return "auth"
	case KindProtocol:
		return "protocol"
	case KindTransport:
		return "transport"
	case KindPayment:
		return "payment"
	default:
		return "unknown"
	}
}

// KindOf reports the taxonomy kind of err, or KindUnknown.
func KindOf(err error) Kind {
	var (
		inputErr     *InputError
		cfgErr       *ConfigurationError
		authErr      *AuthError
		protocolErr  *ProtocolError
		transportErr *TransportError
		paymentErr   *PaymentError
	)
	switch {
	case err == nil:
		return KindUnknown
	case errors.As(err, &inputErr):
		return KindInvalidInput
	case errors.As(err, &cfgErr):
		return KindConfiguration
	case errors.As(err, &authErr):
		return KindAuth
	case errors.As(err, &protocolErr):
		return KindProtocol
	case errors.As(err, &transportErr):
		return KindTransport
	case errors.As(err, &paymentErr):
		return KindPayment
	default:
		return KindUnknown
	}
}

// InputError rejects a caller-supplied argument before any network I/O.
type InputError struct {
	Reason string
}

func (e *InputError) Error() string { return e.Reason }

// ConfigurationError reports required settings that are absent. It is always
// raised before any network I/O.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing required configuration: %s", strings.Join(e.Missing, ", "))
}

// AuthError surfaces a non-successful response from the authorization endpoint.
type AuthError struct {
	StatusCode int
	Body       string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authorization endpoint returned status=%d body=%s", e.StatusCode, e.Body)
}

// ProtocolError marks a response that arrived but could not be understood.
type ProtocolError struct {
	Op  string
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("invalid response from %s: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// TransportError wraps network level failures: timeouts, DNS, refused or reset connections.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s request failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// PaymentError surfaces a rejection from the push-payment endpoint.
type PaymentError struct {
	StatusCode int
	Body       string
}

func (e *PaymentError) Error() string {
	return fmt.Sprintf("push payment endpoint returned status=%d body=%s", e.StatusCode, e.Body)
}

func trimBody(data []byte) string {
	body := strings.TrimSpace(string(data))
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody] + "..."
	}
	return body
}
