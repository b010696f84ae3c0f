package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/adaze/marketplace-api/config"
	"github.com/adaze/marketplace-api/internal/domain"
	"github.com/adaze/marketplace-api/internal/dto"
	paymentgateway "github.com/adaze/marketplace-api/internal/infrastructure/payment-gateway"
	"github.com/adaze/marketplace-api/internal/realtime"
	"github.com/adaze/marketplace-api/pkg/errs"
	"github.com/adaze/marketplace-api/pkg/utils"
	"github.com/stretchr/testify/suite"
)

const (
	testOrderID  = "6f1c2a4e-9b1d-4c8e-a0f2-3d5b7e9c1a20"
	testBuyerID  = int64(10)
	testTraderID = int64(20)
	testCheckout = "ws_CO_191220191020363925"
)

var testBuyer = utils.TokenUser{UserID: testBuyerID, Role: string(domain.RoleBuyer)}

type PaymentServiceTestSuite struct {
	suite.Suite
	store         *memoryStore
	notifications *fakeNotificationRepo
	publisher     *fakePublisher
	mpesa         *fakeGateway
	card          *fakeGateway
	service       *PaymentServiceImpl
	now           time.Time
}

func (s *PaymentServiceTestSuite) SetupTest() {
	s.store = newMemoryStore()
	s.notifications = &fakeNotificationRepo{}
	s.publisher = &fakePublisher{}
	s.mpesa = acceptingGateway(testCheckout)
	s.card = &fakeGateway{}
	s.now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	cfg := &config.Config{SweepConfig: config.SweepConfig{Interval: time.Minute, MinAge: 2 * time.Minute}}
	notifier := CreateNotificationService(s.notifications, newFakeProfileRepo(), cfg)

	s.service = CreatePaymentService(&fakePaymentRepo{store: s.store}, &fakeOrderRepo{store: s.store}, s.mpesa, s.card, notifier, s.publisher, cfg).(*PaymentServiceImpl)
	s.service.now = func() time.Time { return s.now }

	s.store.orders[testOrderID] = domain.Order{
		ID:            testOrderID,
		BuyerID:       testBuyerID,
		TraderID:      testTraderID,
		Title:         "Vintage denim jacket",
		Amount:        1500,
		Status:        domain.OrderStatusPending,
		PaymentStatus: domain.PaymentStatusPending,
	}
}

func (s *PaymentServiceTestSuite) addPendingTransaction(checkoutRequestID string, createdAt time.Time) {
	s.store.nextTxnID++
	s.store.txns[checkoutRequestID] = domain.PaymentTransaction{
		ID:                s.store.nextTxnID,
		Provider:          domain.ProviderMpesa,
		CheckoutRequestID: checkoutRequestID,
		OrderID:           testOrderID,
		Amount:            1500,
		PhoneNumber:       "254712345678",
		Status:            domain.TransactionStatusPending,
		CreatedAt:         createdAt,
	}
}

func callbackPayload(s *PaymentServiceTestSuite, body string) dto.MpesaCallbackPayload {
	var payload dto.MpesaCallbackPayload
	s.Require().NoError(json.Unmarshal([]byte(body), &payload))
	return payload
}

const successCallback = `{
	"Body": {
		"stkCallback": {
			"MerchantRequestID": "29115-34620561-1",
			"CheckoutRequestID": "ws_CO_191220191020363925",
			"ResultCode": 0,
			"ResultDesc": "The service request is processed successfully.",
			"CallbackMetadata": {
				"Item": [
					{"Name": "Amount", "Value": 1500},
					{"Name": "MpesaReceiptNumber", "Value": "ABC123"},
					{"Name": "Balance"},
					{"Name": "TransactionDate", "Value": 20191219102115},
					{"Name": "PhoneNumber", "Value": 254700000000}
				]
			}
		}
	}
}`

const cancelledCallback = `{
	"Body": {
		"stkCallback": {
			"MerchantRequestID": "29115-34620561-1",
			"CheckoutRequestID": "ws_CO_191220191020363925",
			"ResultCode": 1032,
			"ResultDesc": "Request cancelled by user"
		}
	}
}`

func (s *PaymentServiceTestSuite) Test_InitiateMpesaPayment() {
	type TestCase struct {
		Name        string
		Request     dto.InitiatePaymentRequest
		Setup       func()
		ExpectedErr error
	}

	valid := dto.InitiatePaymentRequest{OrderID: testOrderID, PhoneNumber: "0712345678", Amount: 1500, UserID: testBuyerID, Role: "buyer"}

	testCases := []TestCase{
		{
			Name:        "Missing order id",
			Request:     dto.InitiatePaymentRequest{PhoneNumber: "0712345678", Amount: 1500, UserID: testBuyerID},
			ExpectedErr: errs.ErrClient,
		},
		{
			Name:        "Invalid phone number",
			Request:     dto.InitiatePaymentRequest{OrderID: testOrderID, PhoneNumber: "12345", Amount: 1500, UserID: testBuyerID},
			ExpectedErr: errs.ErrClient,
		},
		{
			Name:        "Zero amount",
			Request:     dto.InitiatePaymentRequest{OrderID: testOrderID, PhoneNumber: "0712345678", UserID: testBuyerID},
			ExpectedErr: errs.ErrClient,
		},
		{
			Name:        "Unknown order",
			Request:     dto.InitiatePaymentRequest{OrderID: "0b8f7a7e-5d0c-4b6e-9f55-0c2d8e1f3a44", PhoneNumber: "0712345678", Amount: 1500, UserID: testBuyerID},
			ExpectedErr: errs.ErrNotFound,
		},
		{
			Name:        "Malformed order id",
			Request:     dto.InitiatePaymentRequest{OrderID: "not-an-order", PhoneNumber: "0712345678", Amount: 1500, UserID: testBuyerID},
			ExpectedErr: errs.ErrNotFound,
		},
		{
			Name:        "Not the buyer",
			Request:     dto.InitiatePaymentRequest{OrderID: testOrderID, PhoneNumber: "0712345678", Amount: 1500, UserID: 99, Role: "buyer"},
			ExpectedErr: errs.ErrUnauthorized,
		},
		{
			Name:        "Amount differs from order",
			Request:     dto.InitiatePaymentRequest{OrderID: testOrderID, PhoneNumber: "0712345678", Amount: 10, UserID: testBuyerID},
			ExpectedErr: errs.ErrClient,
		},
		{
			Name:    "Order already paid",
			Request: valid,
			Setup: func() {
				o := s.store.orders[testOrderID]
				o.PaymentStatus = domain.PaymentStatusPaid
				o.Status = domain.OrderStatusConfirmed
				s.store.orders[testOrderID] = o
			},
			ExpectedErr: errs.ErrOrderAlreadyPaid,
		},
		{
			Name:    "Order cancelled",
			Request: valid,
			Setup: func() {
				o := s.store.orders[testOrderID]
				o.Status = domain.OrderStatusCancelled
				s.store.orders[testOrderID] = o
			},
			ExpectedErr: errs.ErrOrderCancelled,
		},
	}

	for _, tc := range testCases {
		s.Run(tc.Name, func() {
			s.SetupTest()
			if tc.Setup != nil {
				tc.Setup()
			}

			_, err := s.service.InitiateMpesaPayment(context.Background(), tc.Request)
			s.ErrorIs(err, tc.ExpectedErr)
			s.Equal(0, s.store.txnCount())
			s.Empty(s.mpesa.requests)
		})
	}
}

func (s *PaymentServiceTestSuite) Test_InitiateMpesaPaymentAccepted() {
	resp, err := s.service.InitiateMpesaPayment(context.Background(), dto.InitiatePaymentRequest{
		OrderID: testOrderID, PhoneNumber: "+254 712 345 678", Amount: 1500, UserID: testBuyerID, Role: "buyer",
	})
	s.Require().NoError(err)

	s.Equal(testCheckout, resp.CheckoutRequestID)
	s.Equal("merchant-"+testCheckout, resp.MerchantRequestID)
	s.NotEmpty(resp.CustomerMessage)

	s.Require().Len(s.mpesa.requests, 1)
	s.Equal("ADAZE-6f1c2a4e", s.mpesa.requests[0].Reference)
	s.Equal("254712345678", s.mpesa.requests[0].PhoneNumber)

	txn := s.store.txn(testCheckout)
	s.Equal(domain.TransactionStatusPending, txn.Status)
	s.Equal(domain.ProviderMpesa, txn.Provider)
	s.Equal(testOrderID, txn.OrderID)
	s.Equal(1500.0, txn.Amount)
}

func (s *PaymentServiceTestSuite) Test_InitiateMpesaPaymentRejected() {
	s.mpesa.intent = paymentgateway.PaymentIntent{ResponseCode: "400.002.02", ResponseDescription: "Bad Request - Invalid Amount"}

	_, err := s.service.InitiateMpesaPayment(context.Background(), dto.InitiatePaymentRequest{
		OrderID: testOrderID, PhoneNumber: "0712345678", Amount: 1500, UserID: testBuyerID,
	})

	var gwErr *errs.GatewayError
	s.Require().ErrorAs(err, &gwErr)
	s.Equal("400.002.02", gwErr.Code)
	s.Equal("Bad Request - Invalid Amount", gwErr.Description)
	s.Equal(0, s.store.txnCount())
}

func (s *PaymentServiceTestSuite) Test_InitiateMpesaPaymentGatewayDown() {
	s.mpesa.initErr = errs.ErrGatewayUnavailable

	_, err := s.service.InitiateMpesaPayment(context.Background(), dto.InitiatePaymentRequest{
		OrderID: testOrderID, PhoneNumber: "0712345678", Amount: 1500, UserID: testBuyerID,
	})

	s.ErrorIs(err, errs.ErrGatewayUnavailable)
	s.Equal(0, s.store.txnCount())
}

func (s *PaymentServiceTestSuite) Test_CallbackAmountMismatchFailsTransaction() {
	s.addPendingTransaction(testCheckout, s.now)
	short := strings.Replace(successCallback, `{"Name": "Amount", "Value": 1500}`, `{"Name": "Amount", "Value": 150}`, 1)

	ack := s.service.HandleMpesaCallback(context.Background(), callbackPayload(s, short))
	s.Equal(0, ack.ResultCode)

	txn := s.store.txn(testCheckout)
	s.Equal(domain.TransactionStatusFailed, txn.Status)
	s.Require().NotNil(txn.ResultDesc)
	s.Equal("Amount mismatch: paid 150.00, expected 1500.00", *txn.ResultDesc)

	order := s.store.order(testOrderID)
	s.Equal(domain.PaymentStatusPending, order.PaymentStatus)
	s.Equal(domain.OrderStatusPending, order.Status)
	s.Empty(s.notifications.all())
	s.Empty(s.publisher.published())
}

func (s *PaymentServiceTestSuite) Test_CallbackSuccess() {
	s.addPendingTransaction(testCheckout, s.now)

	ack := s.service.HandleMpesaCallback(context.Background(), callbackPayload(s, successCallback))
	s.Equal(0, ack.ResultCode)

	txn := s.store.txn(testCheckout)
	s.Equal(domain.TransactionStatusCompleted, txn.Status)
	s.Require().NotNil(txn.MpesaReceiptNumber)
	s.Equal("ABC123", *txn.MpesaReceiptNumber)
	s.Equal("254700000000", txn.PhoneNumber)
	s.Require().NotNil(txn.TransactionDate)
	s.Equal(2019, txn.TransactionDate.Year())

	order := s.store.order(testOrderID)
	s.Equal(domain.PaymentStatusPaid, order.PaymentStatus)
	s.Equal(domain.OrderStatusConfirmed, order.Status)
	s.Equal(1, s.store.completedFor(testOrderID))

	notes := s.notifications.all()
	s.Require().Len(notes, 1)
	s.Equal(testBuyerID, notes[0].UserID)
	s.Equal("Order Confirmed", notes[0].Title)
	s.Equal(domain.NotificationTypeSuccess, notes[0].Type)
	s.Contains(notes[0].Message, "Vintage denim jacket")

	changes := s.publisher.published()
	s.Require().Len(changes, 1)
	s.Equal(realtime.EventUpdate, changes[0].changeType)
	s.Equal(domain.OrderStatusConfirmed, changes[0].order.Status)
}

func (s *PaymentServiceTestSuite) Test_CallbackRedelivery() {
	s.addPendingTransaction(testCheckout, s.now)

	first := s.service.HandleMpesaCallback(context.Background(), callbackPayload(s, successCallback))
	second := s.service.HandleMpesaCallback(context.Background(), callbackPayload(s, successCallback))

	s.Equal(0, first.ResultCode)
	s.Equal(0, second.ResultCode)
	s.Len(s.notifications.all(), 1)
	s.Len(s.publisher.published(), 1)
	s.Equal(1, s.store.completedFor(testOrderID))
}

func (s *PaymentServiceTestSuite) Test_CallbackFailure() {
	s.addPendingTransaction(testCheckout, s.now)

	ack := s.service.HandleMpesaCallback(context.Background(), callbackPayload(s, cancelledCallback))
	s.Equal(0, ack.ResultCode)

	txn := s.store.txn(testCheckout)
	s.Equal(domain.TransactionStatusFailed, txn.Status)
	s.Require().NotNil(txn.ResultDesc)
	s.Equal("Request cancelled by user", *txn.ResultDesc)

	order := s.store.order(testOrderID)
	s.Equal(domain.PaymentStatusPending, order.PaymentStatus)
	s.Equal(domain.OrderStatusPending, order.Status)
	s.Empty(s.notifications.all())
	s.Empty(s.publisher.published())
}

func (s *PaymentServiceTestSuite) Test_CallbackUnknownCheckout() {
	for _, body := range []string{successCallback, cancelledCallback} {
		ack := s.service.HandleMpesaCallback(context.Background(), callbackPayload(s, body))
		s.Equal(1, ack.ResultCode)
	}

	s.Equal(0, s.store.txnCount())
	s.Equal(domain.PaymentStatusPending, s.store.order(testOrderID).PaymentStatus)
	s.Empty(s.notifications.all())
}

func (s *PaymentServiceTestSuite) Test_CallbackInvalidPayload() {
	ack := s.service.HandleMpesaCallback(context.Background(), callbackPayload(s, `{"Body": {}}`))
	s.Equal(1, ack.ResultCode)
	s.Equal("Invalid callback payload", ack.ResultDesc)
}

func (s *PaymentServiceTestSuite) Test_CallbackStoreError() {
	s.addPendingTransaction(testCheckout, s.now)
	s.store.completeErr = errStoreDown

	ack := s.service.HandleMpesaCallback(context.Background(), callbackPayload(s, successCallback))
	s.Equal(1, ack.ResultCode)

	s.Equal(domain.TransactionStatusPending, s.store.txn(testCheckout).Status)
	s.Equal(domain.PaymentStatusPending, s.store.order(testOrderID).PaymentStatus)
}

func (s *PaymentServiceTestSuite) Test_CallbackNotificationFailureStillAcks() {
	s.addPendingTransaction(testCheckout, s.now)
	s.notifications.addErr = errStoreDown
	s.publisher.err = errStoreDown

	ack := s.service.HandleMpesaCallback(context.Background(), callbackPayload(s, successCallback))
	s.Equal(0, ack.ResultCode)
	s.Equal(domain.PaymentStatusPaid, s.store.order(testOrderID).PaymentStatus)
}

func (s *PaymentServiceTestSuite) Test_DuplicateSuccessForPaidOrder() {
	s.addPendingTransaction(testCheckout, s.now)
	s.addPendingTransaction("ws_CO_second", s.now)

	s.Equal(0, s.service.HandleMpesaCallback(context.Background(), callbackPayload(s, successCallback)).ResultCode)

	s.mpesa.result = paymentgateway.PaymentResult{ResultCode: paymentgateway.SuccessCode, ResultDesc: "The service request is processed successfully."}
	resp, err := s.service.GetPaymentStatus(context.Background(), testBuyer, "ws_CO_second")
	s.Require().NoError(err)

	s.Equal(string(domain.TransactionStatusFailed), resp.Status)
	s.Equal(1, s.store.completedFor(testOrderID))
}

func (s *PaymentServiceTestSuite) Test_GetPaymentStatus() {
	type TestCase struct {
		Name           string
		CheckoutID     string
		User           *utils.TokenUser
		Setup          func()
		ExpectedErr    error
		ExpectedStatus string
		ExpectedQuery  int
		AssertResponse func(resp dto.PaymentStatusResponse)
	}

	testCases := []TestCase{
		{
			Name:        "Missing checkout id",
			ExpectedErr: errs.ErrClient,
		},
		{
			Name:        "Unknown checkout id",
			CheckoutID:  "ws_CO_unknown",
			ExpectedErr: errs.ErrNotFound,
		},
		{
			Name:       "Unrelated user is refused before the gateway is queried",
			CheckoutID: testCheckout,
			User:       &utils.TokenUser{UserID: 99, Role: string(domain.RoleBuyer)},
			Setup: func() {
				s.addPendingTransaction(testCheckout, s.now)
				s.mpesa.result = paymentgateway.PaymentResult{ResultCode: "1032", ResultDesc: "Request cancelled by user"}
			},
			ExpectedErr: errs.ErrUnauthorized,
		},
		{
			Name:       "Transaction whose order is gone",
			CheckoutID: testCheckout,
			Setup: func() {
				s.addPendingTransaction(testCheckout, s.now)
				delete(s.store.orders, testOrderID)
			},
			ExpectedErr: errs.ErrNotFound,
		},
		{
			Name:       "Trader of the order may poll",
			CheckoutID: testCheckout,
			User:       &utils.TokenUser{UserID: testTraderID, Role: string(domain.RoleTrader)},
			Setup: func() {
				s.addPendingTransaction(testCheckout, s.now)
				s.mpesa.queryErr = errs.ErrGatewayUnavailable
			},
			ExpectedStatus: "pending",
			ExpectedQuery:  1,
		},
		{
			Name:       "Admin may poll any transaction",
			CheckoutID: testCheckout,
			User:       &utils.TokenUser{UserID: 1, Role: string(domain.RoleAdmin)},
			Setup: func() {
				s.addPendingTransaction(testCheckout, s.now)
				s.mpesa.queryErr = errs.ErrGatewayUnavailable
			},
			ExpectedStatus: "pending",
			ExpectedQuery:  1,
		},
		{
			Name:       "Completed returns cached result",
			CheckoutID: testCheckout,
			Setup: func() {
				s.addPendingTransaction(testCheckout, s.now)
				receipt := "ABC123"
				t := s.store.txns[testCheckout]
				t.Status = domain.TransactionStatusCompleted
				t.MpesaReceiptNumber = &receipt
				s.store.txns[testCheckout] = t
			},
			ExpectedStatus: "completed",
			ExpectedQuery:  0,
			AssertResponse: func(resp dto.PaymentStatusResponse) {
				s.Require().NotNil(resp.MpesaReceiptNumber)
				s.Equal("ABC123", *resp.MpesaReceiptNumber)
				s.Require().NotNil(resp.Amount)
				s.Equal(1500.0, *resp.Amount)
			},
		},
		{
			Name:       "Query failure falls back to local status",
			CheckoutID: testCheckout,
			Setup: func() {
				s.addPendingTransaction(testCheckout, s.now)
				s.mpesa.queryErr = errs.ErrGatewayUnavailable
			},
			ExpectedStatus: "pending",
			ExpectedQuery:  1,
			AssertResponse: func(resp dto.PaymentStatusResponse) {
				s.Equal(domain.PaymentStatusPending, s.store.order(testOrderID).PaymentStatus)
			},
		},
		{
			Name:       "Payment still processing keeps the transaction pending",
			CheckoutID: testCheckout,
			Setup: func() {
				s.addPendingTransaction(testCheckout, s.now)
				s.mpesa.queryErr = paymentgateway.ErrPaymentInProgress
			},
			ExpectedStatus: "pending",
			ExpectedQuery:  1,
			AssertResponse: func(resp dto.PaymentStatusResponse) {
				s.Equal(domain.TransactionStatusPending, s.store.txn(testCheckout).Status)
			},
		},
		{
			Name:       "Query success completes the payment",
			CheckoutID: testCheckout,
			Setup: func() {
				s.addPendingTransaction(testCheckout, s.now)
				s.mpesa.result = paymentgateway.PaymentResult{ResultCode: "0", ResultDesc: "The service request is processed successfully."}
			},
			ExpectedStatus: "completed",
			ExpectedQuery:  1,
			AssertResponse: func(resp dto.PaymentStatusResponse) {
				order := s.store.order(testOrderID)
				s.Equal(domain.PaymentStatusPaid, order.PaymentStatus)
				s.Equal(domain.OrderStatusConfirmed, order.Status)
				s.Len(s.notifications.all(), 1)
			},
		},
		{
			Name:       "Query failure code fails the transaction",
			CheckoutID: testCheckout,
			Setup: func() {
				s.addPendingTransaction(testCheckout, s.now)
				s.mpesa.result = paymentgateway.PaymentResult{ResultCode: "1032", ResultDesc: "Request cancelled by user"}
			},
			ExpectedStatus: "failed",
			ExpectedQuery:  1,
			AssertResponse: func(resp dto.PaymentStatusResponse) {
				s.Equal(domain.PaymentStatusPending, s.store.order(testOrderID).PaymentStatus)
				s.Require().NotNil(resp.ResultDesc)
				s.Equal("Request cancelled by user", *resp.ResultDesc)
			},
		},
	}

	for _, tc := range testCases {
		s.Run(tc.Name, func() {
			s.SetupTest()
			if tc.Setup != nil {
				tc.Setup()
			}

			user := testBuyer
			if tc.User != nil {
				user = *tc.User
			}

			resp, err := s.service.GetPaymentStatus(context.Background(), user, tc.CheckoutID)
			if tc.ExpectedErr != nil {
				s.ErrorIs(err, tc.ExpectedErr)
				s.Equal(0, s.mpesa.queryCalls)
				if txn, ok := s.store.txns[testCheckout]; ok {
					s.Equal(domain.TransactionStatusPending, txn.Status)
				}
				return
			}

			s.Require().NoError(err)
			s.Equal(tc.ExpectedStatus, resp.Status)
			s.Equal(tc.ExpectedQuery, s.mpesa.queryCalls)
			if tc.AssertResponse != nil {
				tc.AssertResponse(resp)
			}
		})
	}
}

func (s *PaymentServiceTestSuite) Test_PayWithCard() {
	s.card = &fakeGateway{intent: paymentgateway.PaymentIntent{
		ResponseCode:        paymentgateway.AcceptedCode,
		ResponseDescription: "Success. Payment processed",
		CustomerMessage:     "Payment processed successfully",
		CheckoutRequestID:   "pi_123",
		Settled:             true,
		ReceiptNumber:       "MOCK1234",
	}}
	s.service.card = s.card

	resp, err := s.service.PayWithCard(context.Background(), dto.CardPaymentRequest{OrderID: testOrderID, Method: "paypal", UserID: testBuyerID, Role: "buyer"})
	s.Require().NoError(err)

	s.Equal("pi_123", resp.PaymentIntentID)
	s.Equal("completed", resp.Status)

	txn := s.store.txn("pi_123")
	s.Equal(domain.ProviderPaypal, txn.Provider)
	s.Equal(domain.TransactionStatusCompleted, txn.Status)
	s.Equal(domain.PaymentStatusPaid, s.store.order(testOrderID).PaymentStatus)

	_, err = s.service.PayWithCard(context.Background(), dto.CardPaymentRequest{OrderID: testOrderID, UserID: testBuyerID})
	s.ErrorIs(err, errs.ErrOrderAlreadyPaid)
}

func (s *PaymentServiceTestSuite) Test_PayWithCardUnknownMethod() {
	_, err := s.service.PayWithCard(context.Background(), dto.CardPaymentRequest{OrderID: testOrderID, Method: "bitcoin", UserID: testBuyerID})
	s.ErrorIs(err, errs.ErrClient)
}

func (s *PaymentServiceTestSuite) Test_SweepPendingPayments() {
	s.addPendingTransaction(testCheckout, s.now.Add(-10*time.Minute))
	s.addPendingTransaction("ws_CO_recent", s.now.Add(-30*time.Second))
	s.mpesa.result = paymentgateway.PaymentResult{ResultCode: "1037", ResultDesc: "DS timeout user cannot be reached"}

	s.service.SweepPendingPayments(context.Background())

	s.Equal(domain.TransactionStatusFailed, s.store.txn(testCheckout).Status)
	s.Equal(domain.TransactionStatusPending, s.store.txn("ws_CO_recent").Status)
	s.Equal(1, s.mpesa.queryCalls)
}

func TestPaymentServiceTestSuite(t *testing.T) {
	suite.Run(t, new(PaymentServiceTestSuite))
}
