package handler

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/berniyo/daraja-gateway/internal/mpesa"
)

// PaymentEvent represents the payload sent to the Lambda function.
type PaymentEvent struct {
	Amount   any            `json:"amount"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// PaymentOutcome is returned to the invoker and, when configured, forwarded
// to the notifier.
type PaymentOutcome struct {
	OK       bool                  `json:"ok"`
	Response mpesa.PaymentResponse `json:"response,omitempty"`
	Error    string                `json:"error,omitempty"`
	Request  PaymentEvent          `json:"request"`
}

// OutcomeSender delivers payment outcomes to downstream systems.
type OutcomeSender interface {
	Send(ctx context.Context, payload PaymentOutcome) error
}

// Processor adapts Tools to a Lambda handler.
type Processor struct {
	tools    *Tools
	logger   *logrus.Entry
	notifier OutcomeSender
}

// ProcessorOption customizes the processor.
type ProcessorOption func(*Processor)

// WithProcessorLogger lets callers supply a logger entry.
func WithProcessorLogger(l *logrus.Entry) ProcessorOption {
	return func(p *Processor) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithOutcomeSender wires a destination invoked after every processed event.
func WithOutcomeSender(sender OutcomeSender) ProcessorOption {
	return func(p *Processor) {
		p.notifier = sender
	}
}

// NewProcessor builds a Processor around tools.
func NewProcessor(tools *Tools, opts ...ProcessorOption) *Processor {
	p := &Processor{
		tools:  tools,
		logger: logrus.NewEntry(logrus.StandardLogger()),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Handle implements the AWS Lambda handler entry point. Payment failures are
// reported in the outcome; only malformed events return an error.
func (p *Processor) Handle(ctx context.Context, event PaymentEvent) (PaymentOutcome, error) {
	amount, err := ParseAmount(event.Amount)
	if err != nil {
		return PaymentOutcome{}, err
	}

	resp := PaymentOutcome{Request: event}
	body, err := p.tools.Initiate(ctx, amount)
	if err != nil {
		resp.Error = p.tools.FailureText(initiateFailure, err)
	} else {
		resp.OK = true
		resp.Response = body
	}

	p.emit(ctx, resp)
	return resp, nil
}

func (p *Processor) emit(ctx context.Context, resp PaymentOutcome) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.Send(ctx, resp); err != nil {
		p.logger.WithError(err).Warn("outcome delivery failed")
	}
}
