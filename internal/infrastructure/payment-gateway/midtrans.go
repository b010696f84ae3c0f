package paymentgateway

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/adaze/marketplace-api/config"
	"github.com/google/uuid"
	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
)

// MidtransCardGateway charges tokenized cards through the Midtrans core API.
type MidtransCardGateway struct {
	client *coreapi.Client
}

func CreateMidtransCardGateway(config *config.Config) *MidtransCardGateway {
	env := midtrans.Sandbox
	if config.Environment == "production" {
		env = midtrans.Production
	}

	client := &coreapi.Client{}
	client.New(config.MidtransConfig.ServerKey, env)

	return &MidtransCardGateway{client: client}
}

func (g *MidtransCardGateway) Initiate(ctx context.Context, req PaymentRequest) (PaymentIntent, error) {
	chargeReq := &coreapi.ChargeReq{
		PaymentType: coreapi.PaymentTypeCreditCard,
		TransactionDetails: midtrans.TransactionDetails{
			// Midtrans order ids must be unique per charge, retries included.
			OrderID:  fmt.Sprintf("%s-%s", req.Reference, uuid.NewString()[:8]),
			GrossAmt: int64(math.Ceil(req.Amount)),
		},
		CreditCard: &coreapi.CreditCardDetails{
			TokenID:        req.CardToken,
			Authentication: false,
		},
	}

	resp, mErr := g.client.ChargeTransaction(chargeReq)
	if mErr != nil {
		if mErr.StatusCode >= 400 && mErr.StatusCode < 500 {
			return PaymentIntent{
				ResponseCode:        strconv.Itoa(mErr.StatusCode),
				ResponseDescription: mErr.Message,
			}, nil
		}
		return PaymentIntent{}, fmt.Errorf("midtrans charge: %s", mErr.Error())
	}

	if resp.StatusCode != "200" && resp.StatusCode != "201" {
		return PaymentIntent{
			ResponseCode:        resp.StatusCode,
			ResponseDescription: resp.StatusMessage,
		}, nil
	}

	return PaymentIntent{
		ResponseCode:        AcceptedCode,
		ResponseDescription: resp.StatusMessage,
		CustomerMessage:     resp.StatusMessage,
		CheckoutRequestID:   resp.TransactionID,
		MerchantRequestID:   resp.OrderID,
		Settled:             isSettled(resp.TransactionStatus, resp.FraudStatus),
		ReceiptNumber:       resp.TransactionID,
	}, nil
}

func (g *MidtransCardGateway) Query(ctx context.Context, checkoutRequestID string) (PaymentResult, error) {
	resp, mErr := g.client.CheckTransaction(checkoutRequestID)
	if mErr != nil {
		return PaymentResult{}, fmt.Errorf("midtrans status: %s", mErr.Error())
	}

	amount, _ := strconv.ParseFloat(resp.GrossAmount, 64)

	switch {
	case isSettled(resp.TransactionStatus, resp.FraudStatus):
		return PaymentResult{ResultCode: SuccessCode, ResultDesc: resp.StatusMessage, ReceiptNumber: resp.TransactionID, Amount: amount}, nil
	case resp.TransactionStatus == "pending":
		return PaymentResult{}, fmt.Errorf("midtrans transaction %s still pending", checkoutRequestID)
	default:
		return PaymentResult{ResultCode: "1", ResultDesc: resp.TransactionStatus}, nil
	}
}

func isSettled(transactionStatus, fraudStatus string) bool {
	switch transactionStatus {
	case "settlement":
		return true
	case "capture":
		return fraudStatus == "" || fraudStatus == "accept"
	}
	return false
}
