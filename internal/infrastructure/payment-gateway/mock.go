package paymentgateway

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// MockCardGateway simulates card and PayPal payments. Every charge settles
// immediately and successfully.
type MockCardGateway struct{}

func CreateMockCardGateway() *MockCardGateway {
	return &MockCardGateway{}
}

func (g *MockCardGateway) Initiate(ctx context.Context, req PaymentRequest) (PaymentIntent, error) {
	id := uuid.NewString()
	return PaymentIntent{
		ResponseCode:        AcceptedCode,
		ResponseDescription: "Success. Payment processed",
		CustomerMessage:     "Payment processed successfully",
		CheckoutRequestID:   "pi_" + strings.ReplaceAll(id, "-", ""),
		MerchantRequestID:   req.Reference,
		Settled:             true,
		ReceiptNumber:       "MOCK" + strings.ToUpper(id[:8]),
	}, nil
}

func (g *MockCardGateway) Query(ctx context.Context, checkoutRequestID string) (PaymentResult, error) {
	return PaymentResult{
		ResultCode: SuccessCode,
		ResultDesc: "The service request is processed successfully.",
	}, nil
}
