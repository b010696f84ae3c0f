package paymentgateway

import (
	"context"
	"errors"
)

const (
	// AcceptedCode is the response code of an initiation the provider accepted.
	AcceptedCode = "0"
	// SuccessCode is the result code of a payment the customer completed.
	SuccessCode = "0"
	// ProcessingCode is the result code Daraja reports while the customer has
	// not yet answered the push.
	ProcessingCode = "4999"
)

// ErrPaymentInProgress is returned by Query when the provider has no final
// outcome yet.
var ErrPaymentInProgress = errors.New("payment still in progress")

type PaymentRequest struct {
	OrderID     string
	Reference   string
	Description string
	PhoneNumber string
	CardToken   string
	Amount      float64
}

// PaymentIntent is the provider's answer to an initiation. Settled is set by
// providers that charge synchronously, in which case ReceiptNumber is final.
type PaymentIntent struct {
	ResponseCode        string
	ResponseDescription string
	CustomerMessage     string
	CheckoutRequestID   string
	MerchantRequestID   string
	Settled             bool
	ReceiptNumber       string
}

func (i PaymentIntent) Accepted() bool {
	return i.ResponseCode == AcceptedCode
}

type PaymentResult struct {
	ResultCode    string
	ResultDesc    string
	ReceiptNumber string
	Amount        float64
}

func (r PaymentResult) Succeeded() bool {
	return r.ResultCode == SuccessCode
}

// Gateway is a payment provider. Initiate returns an error only when the
// provider could not be reached; rejections come back as a non-accepted intent.
// Query returns an error while the outcome is not yet known.
type Gateway interface {
	Initiate(ctx context.Context, req PaymentRequest) (PaymentIntent, error)
	Query(ctx context.Context, checkoutRequestID string) (PaymentResult, error)
}
