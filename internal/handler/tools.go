package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/berniyo/daraja-gateway/internal/mpesa"
)

const (
	initiateFailure = "Failed to initiate push payment"
	tokenFailure    = "Failed to generate access token"
	redacted        = "[REDACTED]"
)

var (
	errAmountRequired   = &mpesa.InputError{Reason: "amount is required"}
	errAmountFractional = &mpesa.InputError{Reason: "amount must be a whole number"}
	errRateLimited      = errors.New("too many push payment requests, try again shortly")
)

// PaymentClient defines the subset of the M-Pesa client used by the tools.
type PaymentClient interface {
	InitiateSTKPush(ctx context.Context, amount int64) (mpesa.PaymentResponse, error)
	AcquireToken(ctx context.Context) (*mpesa.AccessToken, error)
	IssuedSecrets() []string
}

// Result is what a tool hands back to its caller. Failures are text too.
type Result struct {
	Text    string
	IsError bool
}

// Tools adapts the payment client to callable operations that never fail
// across their boundary.
type Tools struct {
	client  PaymentClient
	secrets []string
	limiter *rate.Limiter
	logger  *logrus.Entry
	newID   func() string
}

// Option customizes the tools.
type Option func(*Tools)

// WithLogger lets callers supply a logger entry.
func WithLogger(l *logrus.Entry) Option {
	return func(t *Tools) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithSecrets registers values that are scrubbed from every failure text.
func WithSecrets(secrets ...string) Option {
	return func(t *Tools) {
		for _, s := range secrets {
			if s != "" {
				t.secrets = append(t.secrets, s)
			}
		}
	}
}

// WithRateLimit caps push payments per second across all callers. Zero or
// less leaves them unlimited.
func WithRateLimit(perSecond float64) Option {
	return func(t *Tools) {
		if perSecond <= 0 {
			t.limiter = nil
			return
		}
		burst := int(math.Ceil(perSecond))
		t.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// NewTools builds Tools with sane defaults.
func NewTools(client PaymentClient, opts ...Option) *Tools {
	t := &Tools{
		client: client,
		logger: logrus.NewEntry(logrus.StandardLogger()),
		newID:  uuid.NewString,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Initiate runs a push payment for amount. The returned error is the raw
// failure; use FailureText to render it for a caller.
func (t *Tools) Initiate(ctx context.Context, amount int64) (mpesa.PaymentResponse, error) {
	log := t.logger.WithFields(logrus.Fields{"tool": "stk_push", "invocation_id": t.newID(), "amount": amount})

	if t.limiter != nil && !t.limiter.Allow() {
		log.Warn("push payment throttled")
		return nil, errRateLimited
	}

	log.Info("initiating push payment")
	resp, err := t.client.InitiateSTKPush(ctx, amount)
	if err != nil {
		t.logFailure(log, err, "push payment failed")
		return nil, err
	}

	log.WithField("checkout_request_id", resp.Summary().CheckoutRequestID).Info("push payment initiated")
	return resp, nil
}

// InitiatePayment is the "initiate payment" operation.
func (t *Tools) InitiatePayment(ctx context.Context, amount int64) Result {
	resp, err := t.Initiate(ctx, amount)
	if err != nil {
		return Result{Text: t.FailureText(initiateFailure, err), IsError: true}
	}
	return Result{Text: resp.String()}
}

// InitiatePaymentRaw parses an untyped amount argument before initiating.
func (t *Tools) InitiatePaymentRaw(ctx context.Context, rawAmount any) Result {
	amount, err := ParseAmount(rawAmount)
	if err != nil {
		t.logger.WithField("tool", "stk_push").WithError(err).Warn("rejected amount")
		return Result{Text: t.FailureText(initiateFailure, err), IsError: true}
	}
	return t.InitiatePayment(ctx, amount)
}

// GenerateToken is the "generate token" operation. It always performs a
// fresh exchange.
func (t *Tools) GenerateToken(ctx context.Context) Result {
	log := t.logger.WithFields(logrus.Fields{"tool": "generate_token", "invocation_id": t.newID()})

	token, err := t.client.AcquireToken(ctx)
	if err != nil {
		t.logFailure(log, err, "token generation failed")
		return Result{Text: t.FailureText(tokenFailure, err), IsError: true}
	}

	if token.ExpiresIn > 0 {
		log = log.WithField("expires_in", token.ExpiresIn.String())
	}
	log.Info("access token generated")
	return Result{Text: "Access token generated successfully: " + token.Token}
}

// FailureText renders err as "<prefix>: <reason>" with secrets removed.
func (t *Tools) FailureText(prefix string, err error) string {
	return t.redact(fmt.Sprintf("%s: %v", prefix, err))
}

func (t *Tools) redact(s string) string {
	values := append([]string(nil), t.secrets...)
	for _, v := range t.client.IssuedSecrets() {
		if v != "" {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return s
	}

	// Longest first so a secret that contains another is replaced whole.
	sort.Slice(values, func(i, j int) bool { return len(values[i]) > len(values[j]) })
	pairs := make([]string, 0, len(values)*2)
	for _, v := range values {
		pairs = append(pairs, v, redacted)
	}
	return strings.NewReplacer(pairs...).Replace(s)
}

func (t *Tools) logFailure(log *logrus.Entry, err error, msg string) {
	fields := logrus.Fields{"kind": mpesa.KindOf(err).String()}

	var authErr *mpesa.AuthError
	var paymentErr *mpesa.PaymentError
	switch {
	case errors.As(err, &authErr):
		fields["status"] = authErr.StatusCode
	case errors.As(err, &paymentErr):
		fields["status"] = paymentErr.StatusCode
	}

	entry := log.WithFields(fields).WithError(errors.New(t.redact(err.Error())))
	switch mpesa.KindOf(err) {
	case mpesa.KindInvalidInput, mpesa.KindConfiguration, mpesa.KindUnknown:
		entry.Warn(msg)
	default:
		entry.Error(msg)
	}
}

// ParseAmount accepts a JSON number, an integer or a decimal string and
// returns it as a positive whole amount.
func ParseAmount(raw any) (int64, error) {
	var (
		d   decimal.Decimal
		err error
	)

	switch v := raw.(type) {
	case nil:
		return 0, errAmountRequired
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, mpesa.ErrInvalidAmount
		}
		d = decimal.NewFromFloat(v)
	case int:
		d = decimal.NewFromInt(int64(v))
	case int64:
		d = decimal.NewFromInt(v)
	case json.Number:
		d, err = decimal.NewFromString(v.String())
	case string:
		if strings.TrimSpace(v) == "" {
			return 0, errAmountRequired
		}
		d, err = decimal.NewFromString(strings.TrimSpace(v))
	default:
		return 0, &mpesa.InputError{Reason: fmt.Sprintf("amount must be a number, got %T", raw)}
	}
	if err != nil {
		return 0, &mpesa.InputError{Reason: fmt.Sprintf("amount must be a number: %v", err)}
	}

	if !d.IsInteger() {
		return 0, errAmountFractional
	}
	if !d.IsPositive() {
		return 0, mpesa.ErrInvalidAmount
	}
	if d.GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
		return 0, &mpesa.InputError{Reason: fmt.Sprintf("amount %s is out of range", d.String())}
	}
	return d.IntPart(), nil
}
