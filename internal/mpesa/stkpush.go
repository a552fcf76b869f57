package mpesa

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// TimestampLayout renders YYYYMMDDHHMMSS.
const TimestampLayout = "20060102150405"

var errInvalidJSON = errors.New("body is not valid JSON")

// Timestamp formats t as the 14 digit request timestamp.
func Timestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// Password derives the per-request password: base64(shortcode + passkey + timestamp).
func Password(shortcode, passkey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortcode + passkey + timestamp))
}

// NewSTKPushRequest composes the request body for amount at instant now. The
// timestamp and password are derived from the same instant.
func NewSTKPushRequest(cfg *Config, amount int64, now time.Time) STKPushRequest {
	ts := Timestamp(now.In(cfg.location()))

	return STKPushRequest{
		BusinessShortCode: cfg.BusinessShortCode,
		Password:          Password(cfg.BusinessShortCode, cfg.Passkey, ts),
		Timestamp:         ts,
		TransactionType:   TransactionTypePayBill,
		Amount:            amount,
		PartyA:            cfg.PhoneNumber,
		PartyB:            cfg.BusinessShortCode,
		PhoneNumber:       cfg.PhoneNumber,
		CallBackURL:       cfg.CallbackURL,
		AccountReference:  cfg.AccountReference,
		TransactionDesc:   TransactionDescription,
	}
}

// InitiateSTKPush prompts the configured subscriber to authorize a charge of
// amount. The provider's JSON acknowledgement is returned verbatim.
func (c *Client) InitiateSTKPush(ctx context.Context, amount int64) (PaymentResponse, error) {
	if err := c.cfg.paymentError(); err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	payload := NewSTKPushRequest(c.cfg, amount, c.now())
	c.authMu.Lock()
	c.lastPassword = payload.Password
	c.authMu.Unlock()

	token, err := c.Token(ctx)
	if err != nil {
		return nil, err
	}

	log := c.log.WithFields(logrus.Fields{"amount": amount, "timestamp": payload.Timestamp})
	log.Debug("sending push payment request")

	status, body, err := c.doRequest(ctx, "push payment", http.MethodPost, c.cfg.baseURL()+stkPushPath, "Bearer "+token.Token, payload)
	if err != nil {
		return nil, err
	}

	if !isSuccess(status) {
		if status == http.StatusUnauthorized && c.cfg.TokenCache {
			c.InvalidateToken()
		}
		log.WithFields(logrus.Fields{"status": status, "body": trimBody(body)}).Error("push payment request rejected")
		return nil, &PaymentError{StatusCode: status, Body: trimBody(body)}
	}

	if !json.Valid(body) {
		return nil, &ProtocolError{Op: "push payment endpoint", Err: fmt.Errorf("%w: %s", errInvalidJSON, trimBody(body))}
	}

	resp := PaymentResponse(body)
	summary := resp.Summary()
	log.WithFields(logrus.Fields{
		"checkout_request_id": summary.CheckoutRequestID,
		"response_code":       summary.ResponseCode,
	}).Info("push payment accepted")

	return resp, nil
}
