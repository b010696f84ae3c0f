package paymentgateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/adaze/marketplace-api/config"
	"github.com/adaze/marketplace-api/internal/dto"
	"github.com/adaze/marketplace-api/pkg/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type darajaStub struct {
	tokenCalls atomic.Int32
	push       func(w http.ResponseWriter, req dto.STKPushRequest)
	query      func(w http.ResponseWriter, req dto.STKQueryRequest)
}

func (s *darajaStub) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v1/generate", func(w http.ResponseWriter, r *http.Request) {
		s.tokenCalls.Add(1)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "key", user)
		assert.Equal(t, "secret", pass)
		json.NewEncoder(w).Encode(dto.AccessTokenResponse{AccessToken: "token-1", ExpiresIn: "3599"})
	})
	mux.HandleFunc("/mpesa/stkpush/v1/processrequest", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		var req dto.STKPushRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		s.push(w, req)
	})
	mux.HandleFunc("/mpesa/stkpushquery/v1/query", func(w http.ResponseWriter, r *http.Request) {
		var req dto.STKQueryRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		s.query(w, req)
	})
	return mux
}

func newTestGateway(t *testing.T, stub *darajaStub) *MpesaGateway {
	server := httptest.NewServer(stub.handler(t))
	t.Cleanup(server.Close)

	gw := CreateMpesaGateway(config.MpesaConfig{
		BaseURL:        server.URL,
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		ShortCode:      "174379",
		Passkey:        "passkey",
		CallbackURL:    "https://example.com/api/v1/payments/mpesa/callback",
	}, server.Client())
	gw.now = func() time.Time { return time.Date(2024, 1, 15, 11, 30, 22, 0, time.UTC) }

	return gw
}

func TestMpesaGatewayInitiateAccepted(t *testing.T) {
	stub := &darajaStub{
		push: func(w http.ResponseWriter, req dto.STKPushRequest) {
			assert.Equal(t, int64(1500), req.Amount)
			assert.Equal(t, "254712345678", req.PhoneNumber)
			assert.Equal(t, "ADAZE-1234abcd", req.AccountReference)
			assert.Equal(t, "20240115143022", req.Timestamp)
			json.NewEncoder(w).Encode(dto.STKPushResponse{
				MerchantRequestID:   "29115-34620561-1",
				CheckoutRequestID:   "ws_CO_191220191020363925",
				ResponseCode:        "0",
				ResponseDescription: "Success. Request accepted for processing",
				CustomerMessage:     "Success. Request accepted for processing",
			})
		},
	}
	gw := newTestGateway(t, stub)

	intent, err := gw.Initiate(context.Background(), PaymentRequest{
		Reference:   "ADAZE-1234abcd",
		PhoneNumber: "254712345678",
		Amount:      1499.5,
	})
	require.NoError(t, err)
	assert.True(t, intent.Accepted())
	assert.Equal(t, "ws_CO_191220191020363925", intent.CheckoutRequestID)
	assert.Equal(t, "29115-34620561-1", intent.MerchantRequestID)

	_, err = gw.Initiate(context.Background(), PaymentRequest{Reference: "ADAZE-1234abcd", PhoneNumber: "254712345678", Amount: 1500})
	require.NoError(t, err)
	assert.Equal(t, int32(1), stub.tokenCalls.Load(), "access token should be cached")
}

func TestMpesaGatewayInitiateRejected(t *testing.T) {
	stub := &darajaStub{
		push: func(w http.ResponseWriter, req dto.STKPushRequest) {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(dto.DarajaError{ErrorCode: "400.002.02", ErrorMessage: "Bad Request - Invalid PhoneNumber"})
		},
	}
	gw := newTestGateway(t, stub)

	intent, err := gw.Initiate(context.Background(), PaymentRequest{Reference: "ADAZE-1", PhoneNumber: "254712345678", Amount: 10})
	require.NoError(t, err)
	assert.False(t, intent.Accepted())
	assert.Equal(t, "400.002.02", intent.ResponseCode)
	assert.Equal(t, "Bad Request - Invalid PhoneNumber", intent.ResponseDescription)
}

func TestMpesaGatewayQuery(t *testing.T) {
	stub := &darajaStub{
		query: func(w http.ResponseWriter, req dto.STKQueryRequest) {
			switch req.CheckoutRequestID {
			case "done":
				json.NewEncoder(w).Encode(dto.STKQueryResponse{ResponseCode: "0", ResultCode: "0", ResultDesc: "The service request is processed successfully."})
			case "cancelled":
				json.NewEncoder(w).Encode(dto.STKQueryResponse{ResponseCode: "0", ResultCode: "1032", ResultDesc: "Request cancelled by user"})
			case "waiting":
				json.NewEncoder(w).Encode(dto.STKQueryResponse{ResponseCode: "0", ResultCode: "4999", ResultDesc: "The transaction is still under processing"})
			default:
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(dto.DarajaError{ErrorCode: "500.001.1001", ErrorMessage: "The transaction is being processed"})
			}
		},
	}
	gw := newTestGateway(t, stub)

	result, err := gw.Query(context.Background(), "done")
	require.NoError(t, err)
	assert.True(t, result.Succeeded())

	result, err = gw.Query(context.Background(), "cancelled")
	require.NoError(t, err)
	assert.False(t, result.Succeeded())
	assert.Equal(t, "1032", result.ResultCode)

	_, err = gw.Query(context.Background(), "waiting")
	assert.ErrorIs(t, err, ErrPaymentInProgress)

	_, err = gw.Query(context.Background(), "processing")
	assert.Error(t, err)
}

func TestMpesaGatewayUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	gw := CreateMpesaGateway(config.MpesaConfig{BaseURL: server.URL}, &http.Client{Timeout: time.Second})

	_, err := gw.Initiate(context.Background(), PaymentRequest{Reference: "ADAZE-1", PhoneNumber: "254712345678", Amount: 10})
	assert.ErrorIs(t, err, errs.ErrGatewayUnavailable)
}

func TestMockCardGatewayAlwaysSettles(t *testing.T) {
	gw := CreateMockCardGateway()

	intent, err := gw.Initiate(context.Background(), PaymentRequest{Reference: "ADAZE-1", Amount: 10})
	require.NoError(t, err)
	assert.True(t, intent.Accepted())
	assert.True(t, intent.Settled)
	assert.NotEmpty(t, intent.CheckoutRequestID)
	assert.NotEmpty(t, intent.ReceiptNumber)

	result, err := gw.Query(context.Background(), intent.CheckoutRequestID)
	require.NoError(t, err)
	assert.True(t, result.Succeeded())
}
