package paymentgateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/adaze/marketplace-api/config"
	"github.com/adaze/marketplace-api/internal/dto"
	circuitbreaker "github.com/adaze/marketplace-api/internal/infrastructure/circuit-breaker"
	"github.com/adaze/marketplace-api/pkg/errs"
	"github.com/adaze/marketplace-api/pkg/httpclient"
	"github.com/adaze/marketplace-api/pkg/utils"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"
)

// MpesaGateway talks to the Daraja STK push API.
type MpesaGateway struct {
	config       config.MpesaConfig
	client       *http.Client
	pushBreaker  *gobreaker.CircuitBreaker[[]byte]
	queryBreaker *gobreaker.CircuitBreaker[[]byte]
	now          func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func CreateMpesaGateway(cfg config.MpesaConfig, client *http.Client) *MpesaGateway {
	return &MpesaGateway{
		config:       cfg,
		client:       client,
		pushBreaker:  circuitbreaker.CreateCircuitBreaker("mpesa-stkpush", 30*time.Second),
		queryBreaker: circuitbreaker.CreateCircuitBreaker("mpesa-stkquery", 30*time.Second),
		now:          time.Now,
	}
}

func (g *MpesaGateway) Initiate(ctx context.Context, req PaymentRequest) (intent PaymentIntent, err error) {
	token, err := g.accessToken(ctx)
	if err != nil {
		return intent, err
	}

	timestamp := utils.MpesaTimestamp(g.now())
	payload := dto.STKPushRequest{
		BusinessShortCode: g.config.ShortCode,
		Password:          utils.MpesaPassword(g.config.ShortCode, g.config.Passkey, timestamp),
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            int64(math.Ceil(req.Amount)),
		PartyA:            req.PhoneNumber,
		PartyB:            g.config.ShortCode,
		PhoneNumber:       req.PhoneNumber,
		CallBackURL:       g.config.CallbackURL,
		AccountReference:  req.Reference,
		TransactionDesc:   req.Description,
	}

	status, body, err := g.post(ctx, g.pushBreaker, "/mpesa/stkpush/v1/processrequest", token, payload)
	if err != nil {
		return intent, err
	}

	if status != http.StatusOK {
		darajaErr := decodeDarajaError(body, status)
		return PaymentIntent{
			ResponseCode:        darajaErr.ErrorCode,
			ResponseDescription: darajaErr.ErrorMessage,
		}, nil
	}

	var resp dto.STKPushResponse
	if err = json.Unmarshal(body, &resp); err != nil {
		return intent, fmt.Errorf("decode stk push response: %w", err)
	}

	return PaymentIntent{
		ResponseCode:        resp.ResponseCode,
		ResponseDescription: resp.ResponseDescription,
		CustomerMessage:     resp.CustomerMessage,
		CheckoutRequestID:   resp.CheckoutRequestID,
		MerchantRequestID:   resp.MerchantRequestID,
	}, nil
}

func (g *MpesaGateway) Query(ctx context.Context, checkoutRequestID string) (result PaymentResult, err error) {
	token, err := g.accessToken(ctx)
	if err != nil {
		return result, err
	}

	timestamp := utils.MpesaTimestamp(g.now())
	payload := dto.STKQueryRequest{
		BusinessShortCode: g.config.ShortCode,
		Password:          utils.MpesaPassword(g.config.ShortCode, g.config.Passkey, timestamp),
		Timestamp:         timestamp,
		CheckoutRequestID: checkoutRequestID,
	}

	status, body, err := g.post(ctx, g.queryBreaker, "/mpesa/stkpushquery/v1/query", token, payload)
	if err != nil {
		return result, err
	}

	if status != http.StatusOK {
		darajaErr := decodeDarajaError(body, status)
		return result, fmt.Errorf("stk query rejected: %s (%s)", darajaErr.ErrorMessage, darajaErr.ErrorCode)
	}

	var resp dto.STKQueryResponse
	if err = json.Unmarshal(body, &resp); err != nil {
		return result, fmt.Errorf("decode stk query response: %w", err)
	}

	if resp.ResultCode == "" {
		return result, fmt.Errorf("stk query returned no result: %s", resp.ResponseDescription)
	}

	if resp.ResultCode == ProcessingCode {
		return result, fmt.Errorf("%w: %s", ErrPaymentInProgress, resp.ResultDesc)
	}

	return PaymentResult{
		ResultCode: resp.ResultCode,
		ResultDesc: resp.ResultDesc,
	}, nil
}

// post sends payload through the breaker. Only transport failures and
// gateway-unavailable statuses count against the breaker; any other status is
// returned to the caller for interpretation.
func (g *MpesaGateway) post(ctx context.Context, cb *gobreaker.CircuitBreaker[[]byte], path, token string, payload interface{}) (int, []byte, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}

	var status int
	body, err := cb.Execute(func() ([]byte, error) {
		code, respBody, err := httpclient.SendRequest(ctx, g.client, httpclient.HttpRequest{
			URL:    g.config.BaseURL + path,
			Method: http.MethodPost,
			Body:   reqBody,
			Headers: map[string]string{
				"Content-Type":  "application/json",
				"Authorization": "Bearer " + token,
			},
		})
		if err != nil {
			return nil, err
		}
		status = code
		if code == http.StatusBadGateway || code == http.StatusServiceUnavailable || code == http.StatusGatewayTimeout {
			return nil, fmt.Errorf("daraja returned %d", code)
		}
		return respBody, nil
	})
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "MpesaGateway").Str("path", path).Msg("")
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return 0, nil, errs.ErrGatewayUnavailable
		}
		return 0, nil, fmt.Errorf("%w: %v", errs.ErrGatewayUnavailable, err)
	}

	return status, body, nil
}

func (g *MpesaGateway) accessToken(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.token != "" && g.now().Before(g.tokenExpiry) {
		return g.token, nil
	}

	credentials := base64.StdEncoding.EncodeToString([]byte(g.config.ConsumerKey + ":" + g.config.ConsumerSecret))
	status, body, err := httpclient.SendRequest(ctx, g.client, httpclient.HttpRequest{
		URL:    g.config.BaseURL + "/oauth/v1/generate?grant_type=client_credentials",
		Method: http.MethodGet,
		Headers: map[string]string{
			"Authorization": "Basic " + credentials,
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrGatewayUnavailable, err)
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("%w: token endpoint returned %d", errs.ErrGatewayUnavailable, status)
	}

	var resp dto.AccessTokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode access token: %w", err)
	}

	expiresIn, err := strconv.Atoi(resp.ExpiresIn)
	if err != nil || expiresIn <= 0 {
		expiresIn = 3599
	}

	g.token = resp.AccessToken
	// refresh a minute early so a token never expires mid-request
	g.tokenExpiry = g.now().Add(time.Duration(expiresIn)*time.Second - time.Minute)

	return g.token, nil
}

func decodeDarajaError(body []byte, status int) dto.DarajaError {
	var darajaErr dto.DarajaError
	if err := json.Unmarshal(body, &darajaErr); err != nil || darajaErr.ErrorCode == "" {
		darajaErr.ErrorCode = strconv.Itoa(status)
		darajaErr.ErrorMessage = http.StatusText(status)
	}
	return darajaErr
}
