package dto

import (
	"encoding/json"
	"fmt"
	"strconv"
)

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

type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

type STKQueryRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
}

type STKQueryResponse struct {
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResultCode          string `json:"ResultCode"`
	ResultDesc          string `json:"ResultDesc"`
}

// DarajaError is the body Daraja returns for rejected API calls.
type DarajaError struct {
	RequestID    string `json:"requestId"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

type AccessTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

type MpesaCallbackPayload struct {
	Body struct {
		StkCallback *STKCallback `json:"stkCallback"`
	} `json:"Body"`
}

type STKCallback struct {
	MerchantRequestID string            `json:"MerchantRequestID"`
	CheckoutRequestID string            `json:"CheckoutRequestID"`
	ResultCode        int               `json:"ResultCode"`
	ResultDesc        string            `json:"ResultDesc"`
	CallbackMetadata  *CallbackMetadata `json:"CallbackMetadata,omitempty"`
}

type CallbackMetadata struct {
	Item []CallbackItem `json:"Item"`
}

type CallbackItem struct {
	Name  string          `json:"Name"`
	Value json.RawMessage `json:"Value,omitempty"`
}

// String returns the named value as text; numbers are rendered without
// exponent so that phone numbers and receipt dates survive intact.
func (m *CallbackMetadata) String(name string) (string, bool) {
	if m == nil {
		return "", false
	}
	for _, item := range m.Item {
		if item.Name != name || len(item.Value) == 0 {
			continue
		}

		var s string
		if err := json.Unmarshal(item.Value, &s); err == nil {
			return s, true
		}

		var n json.Number
		if err := json.Unmarshal(item.Value, &n); err == nil {
			return n.String(), true
		}
	}
	return "", false
}

func (m *CallbackMetadata) Float(name string) (float64, bool) {
	s, ok := m.String(name)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// CallbackAck is the body returned to the gateway; ResultCode 0 stops redelivery.
type CallbackAck struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

func AcceptCallback() CallbackAck {
	return CallbackAck{ResultCode: 0, ResultDesc: "Accepted"}
}

func RejectCallback(format string, args ...interface{}) CallbackAck {
	return CallbackAck{ResultCode: 1, ResultDesc: fmt.Sprintf(format, args...)}
}
