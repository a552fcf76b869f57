package mpesa

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	// TransactionTypePayBill is the only transaction type this gateway sends.
	TransactionTypePayBill = "CustomerPayBillOnline"
	// TransactionDescription is sent verbatim with every push payment.
	TransactionDescription = "Payment of goods/services"
)

// AccessToken is a bearer credential issued by the authorization endpoint.
type AccessToken struct {
	Token      string
	ObtainedAt time.Time
	// ExpiresIn is zero when the provider did not declare a lifetime.
	ExpiresIn time.Duration
}

// tokenResponse captures the payload returned by the OAuth generate endpoint.
// ExpiresIn is kept raw because providers send it as a string, a number or not at all.
type tokenResponse struct {
	AccessToken string          `json:"access_token"`
	ExpiresIn   json.RawMessage `json:"expires_in"`
}

// lifetime reads an expires_in value given as a JSON string ("3599") or number.
// An absent value is zero and ok. Anything unreadable, non-finite or negative is
// zero and not ok, so the caller falls back to a default lifetime.
func lifetime(raw json.RawMessage) (d time.Duration, ok bool) {
	data := bytes.TrimSpace(raw)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return 0, true
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return 0, false
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, true
		}
		data = []byte(s)
	}

	n, err := strconv.ParseFloat(string(data), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) || n < 0 {
		return 0, false
	}
	if n > float64(math.MaxInt64/int64(time.Second)) {
		return 0, false
	}
	return time.Duration(n * float64(time.Second)), true
}

// STKPushRequest is the body of a push-payment request.
type STKPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

// PaymentResponse is the provider's response body, passed through unmodified.
type PaymentResponse json.RawMessage

// MarshalJSON keeps the raw body when the response is embedded in another document.
func (r PaymentResponse) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return []byte(r), nil
}

// UnmarshalJSON stores the raw document so outcomes round-trip.
func (r *PaymentResponse) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = nil
		return nil
	}
	*r = append((*r)[:0], data...)
	return nil
}

func (r PaymentResponse) String() string { return string(r) }

// STKPushSummary holds the fields commonly present in a push-payment acknowledgement.
type STKPushSummary struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

// Summary decodes the well-known acknowledgement fields. Unknown shapes yield a zero summary.
func (r PaymentResponse) Summary() STKPushSummary {
	var s STKPushSummary
	_ = json.Unmarshal(r, &s)
	return s
}
