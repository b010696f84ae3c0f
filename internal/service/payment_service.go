package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/adaze/marketplace-api/config"
	"github.com/adaze/marketplace-api/internal/domain"
	"github.com/adaze/marketplace-api/internal/dto"
	paymentgateway "github.com/adaze/marketplace-api/internal/infrastructure/payment-gateway"
	"github.com/adaze/marketplace-api/internal/realtime"
	"github.com/adaze/marketplace-api/internal/repository"
	"github.com/adaze/marketplace-api/pkg/errs"
	"github.com/adaze/marketplace-api/pkg/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const sweepBatchSize = 50

type PaymentServiceImpl struct {
	paymentRepo repository.PaymentRepository
	orderRepo   repository.OrderRepository
	mpesa       paymentgateway.Gateway
	card        paymentgateway.Gateway
	notifier    NotificationService
	publisher   realtime.EventPublisher
	config      *config.Config
	now         func() time.Time
}

func CreatePaymentService(paymentRepo repository.PaymentRepository, orderRepo repository.OrderRepository, mpesa paymentgateway.Gateway, card paymentgateway.Gateway, notifier NotificationService, publisher realtime.EventPublisher, config *config.Config) PaymentService {
	return &PaymentServiceImpl{
		paymentRepo: paymentRepo,
		orderRepo:   orderRepo,
		mpesa:       mpesa,
		card:        card,
		notifier:    notifier,
		publisher:   publisher,
		config:      config,
		now:         time.Now,
	}
}

// accountReference is the short reference shown on the customer's phone.
func accountReference(orderID string) string {
	if len(orderID) > 8 {
		orderID = orderID[:8]
	}
	return "ADAZE-" + orderID
}

// payableOrder loads an order the caller may pay for.
func (s *PaymentServiceImpl) payableOrder(ctx context.Context, orderID string, userID int64, role domain.Role) (order domain.Order, err error) {
	if _, err = uuid.Parse(orderID); err != nil {
		return order, errs.ErrNotFound
	}

	order, err = s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		return
	}

	if order.ID == "" {
		return order, errs.ErrNotFound
	}

	if role != domain.RoleAdmin && order.BuyerID != userID {
		return order, errs.ErrUnauthorized
	}

	if order.PaymentStatus == domain.PaymentStatusPaid {
		return order, errs.ErrOrderAlreadyPaid
	}

	if order.Status == domain.OrderStatusCancelled {
		return order, errs.ErrOrderCancelled
	}

	return order, nil
}

func (s *PaymentServiceImpl) InitiateMpesaPayment(ctx context.Context, req dto.InitiatePaymentRequest) (resp dto.InitiatePaymentResponse, err error) {
	if req.OrderID == "" || req.Amount <= 0 {
		return resp, errs.ErrClient
	}

	phone, err := utils.NormalizePhoneNumber(req.PhoneNumber)
	if err != nil {
		return resp, errs.ErrClient
	}

	order, err := s.payableOrder(ctx, req.OrderID, req.UserID, domain.Role(req.Role))
	if err != nil {
		return
	}

	if math.Abs(order.Amount-req.Amount) >= 0.01 {
		log.Ctx(ctx).Warn().Str("component", "InitiateMpesaPayment").Str("order_id", order.ID).Float64("amount", req.Amount).Float64("order_amount", order.Amount).Msg("amount does not match order")
		return resp, errs.ErrClient
	}

	intent, err := s.mpesa.Initiate(ctx, paymentgateway.PaymentRequest{
		OrderID:     order.ID,
		Reference:   accountReference(order.ID),
		Description: "ADAZE order payment",
		PhoneNumber: phone,
		Amount:      req.Amount,
	})
	if err != nil {
		return
	}

	if !intent.Accepted() {
		log.Ctx(ctx).Warn().Str("component", "InitiateMpesaPayment").Str("code", intent.ResponseCode).Str("description", intent.ResponseDescription).Msg("push request rejected")
		return resp, &errs.GatewayError{Code: intent.ResponseCode, Description: intent.ResponseDescription}
	}

	now := s.now()
	_, err = s.paymentRepo.AddTransaction(ctx, domain.PaymentTransaction{
		Provider:          domain.ProviderMpesa,
		CheckoutRequestID: intent.CheckoutRequestID,
		MerchantRequestID: intent.MerchantRequestID,
		OrderID:           order.ID,
		Amount:            req.Amount,
		PhoneNumber:       phone,
		Status:            domain.TransactionStatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	})
	if err != nil {
		return
	}

	resp.CheckoutRequestID = intent.CheckoutRequestID
	resp.MerchantRequestID = intent.MerchantRequestID
	resp.CustomerMessage = intent.CustomerMessage

	return
}

// settle completes a pending transaction and marks its order paid, both in one
// database transaction. applied is false when the transaction was no longer
// pending. A success for an order that is already paid fails the transaction
// instead so that a paid order keeps exactly one completed payment.
func (s *PaymentServiceImpl) settle(ctx context.Context, txn domain.PaymentTransaction, result domain.TransactionResult) (applied bool, orderPaid bool, err error) {
	err = s.paymentRepo.HandleTrx(ctx, func(ctx context.Context, repo repository.PaymentRepository) error {
		order, err := repo.GetOrderForUpdate(ctx, txn.OrderID)
		if err != nil {
			return err
		}

		if order.PaymentStatus == domain.PaymentStatusPaid {
			log.Ctx(ctx).Warn().Str("component", "settle").Str("order_id", txn.OrderID).Str("checkout_request_id", txn.CheckoutRequestID).Msg("duplicate payment for a paid order")
			applied, err = repo.FailTransaction(ctx, txn.CheckoutRequestID, "Duplicate payment: order already paid")
			return err
		}

		applied, err = repo.CompleteTransaction(ctx, txn.CheckoutRequestID, result)
		if err != nil || !applied {
			return err
		}

		orderPaid, err = repo.MarkOrderPaid(ctx, txn.OrderID)
		if err != nil {
			return err
		}

		if !orderPaid {
			log.Ctx(ctx).Warn().Str("component", "settle").Str("order_id", txn.OrderID).Str("status", string(order.Status)).Msg("payment completed for an order that is no longer pending")
		}

		return nil
	})
	if err != nil {
		return false, false, err
	}

	return applied, orderPaid, nil
}

// announceOrderPaid notifies the buyer and publishes the new order image.
// Failures are logged only.
func (s *PaymentServiceImpl) announceOrderPaid(ctx context.Context, orderID string) {
	order, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil || order.ID == "" {
		log.Ctx(ctx).Error().Err(err).Str("component", "announceOrderPaid").Str("order_id", orderID).Msg("order not readable after payment")
		return
	}

	if err := s.notifier.EmitOrderStatus(ctx, order.BuyerID, order.ID, order.Title, domain.OrderStatusConfirmed); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "announceOrderPaid").Msg("")
	}

	if err := s.publisher.PublishOrderChange(ctx, realtime.EventUpdate, order); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "announceOrderPaid").Msg("")
	}
}

// amountMismatch reports whether a paid amount differs from the amount the
// transaction was opened for. A missing amount is taken as the stored one.
func amountMismatch(ctx context.Context, txn domain.PaymentTransaction, paid float64) bool {
	if paid == 0 || math.Abs(paid-txn.Amount) < 0.01 {
		return false
	}

	log.Ctx(ctx).Warn().Str("component", "amountMismatch").Str("checkout_request_id", txn.CheckoutRequestID).Str("order_id", txn.OrderID).Float64("paid", paid).Float64("expected", txn.Amount).Msg("paid amount does not match transaction")
	return true
}

func mismatchDesc(txn domain.PaymentTransaction, paid float64) string {
	return fmt.Sprintf("Amount mismatch: paid %.2f, expected %.2f", paid, txn.Amount)
}

func callbackResult(cb *dto.STKCallback) domain.TransactionResult {
	result := domain.TransactionResult{
		Status:     domain.TransactionStatusCompleted,
		ResultDesc: cb.ResultDesc,
	}

	meta := cb.CallbackMetadata
	if amount, ok := meta.Float("Amount"); ok {
		result.Amount = amount
	}
	if receipt, ok := meta.String("MpesaReceiptNumber"); ok {
		result.MpesaReceiptNumber = receipt
	}
	if phone, ok := meta.String("PhoneNumber"); ok {
		result.PhoneNumber = phone
	}
	if raw, ok := meta.String("TransactionDate"); ok {
		if date, err := utils.ParseMpesaTimestamp(raw); err == nil {
			result.TransactionDate = &date
		}
	}

	return result
}

func (s *PaymentServiceImpl) HandleMpesaCallback(ctx context.Context, payload dto.MpesaCallbackPayload) dto.CallbackAck {
	cb := payload.Body.StkCallback
	if cb == nil || cb.CheckoutRequestID == "" {
		return dto.RejectCallback("Invalid callback payload")
	}

	logger := log.Ctx(ctx).With().Str("component", "HandleMpesaCallback").Str("checkout_request_id", cb.CheckoutRequestID).Int("result_code", cb.ResultCode).Logger()

	txn, err := s.paymentRepo.GetTransactionByCheckoutRequestID(ctx, cb.CheckoutRequestID)
	if err != nil {
		if cb.ResultCode == 0 {
			return dto.RejectCallback("Failed to load transaction")
		}
		return dto.AcceptCallback()
	}

	if txn.ID == 0 {
		logger.Warn().Msg("callback for unknown checkout request")
		return dto.RejectCallback("Transaction not found")
	}

	if txn.Status.IsTerminal() {
		logger.Info().Str("status", string(txn.Status)).Msg("callback redelivered for settled transaction")
		return dto.AcceptCallback()
	}

	if cb.ResultCode != 0 {
		if _, err := s.paymentRepo.FailTransaction(ctx, cb.CheckoutRequestID, cb.ResultDesc); err != nil {
			logger.Error().Err(err).Msg("")
		}
		return dto.AcceptCallback()
	}

	result := callbackResult(cb)
	if amountMismatch(ctx, txn, result.Amount) {
		if _, err := s.paymentRepo.FailTransaction(ctx, cb.CheckoutRequestID, mismatchDesc(txn, result.Amount)); err != nil {
			logger.Error().Err(err).Msg("")
			return dto.RejectCallback("Failed to record payment")
		}
		return dto.AcceptCallback()
	}

	_, orderPaid, err := s.settle(ctx, txn, result)
	if err != nil {
		logger.Error().Err(err).Msg("")
		return dto.RejectCallback("Failed to record payment")
	}

	if orderPaid {
		s.announceOrderPaid(ctx, txn.OrderID)
	}

	return dto.AcceptCallback()
}

func statusResponse(txn domain.PaymentTransaction) dto.PaymentStatusResponse {
	resp := dto.PaymentStatusResponse{
		Status:             string(txn.Status),
		MpesaReceiptNumber: txn.MpesaReceiptNumber,
		ResultDesc:         txn.ResultDesc,
	}
	if txn.Status.IsTerminal() {
		amount := txn.Amount
		resp.Amount = &amount
	}
	return resp
}

func (s *PaymentServiceImpl) gatewayFor(provider domain.PaymentProvider) paymentgateway.Gateway {
	if provider == domain.ProviderMpesa || provider == "" {
		return s.mpesa
	}
	return s.card
}

// GetPaymentStatus reports the status of a transaction to a party of its order.
func (s *PaymentServiceImpl) GetPaymentStatus(ctx context.Context, user utils.TokenUser, checkoutRequestID string) (resp dto.PaymentStatusResponse, err error) {
	if checkoutRequestID == "" {
		return resp, errs.ErrClient
	}

	txn, err := s.paymentRepo.GetTransactionByCheckoutRequestID(ctx, checkoutRequestID)
	if err != nil {
		return
	}

	if txn.ID == 0 {
		return resp, errs.ErrNotFound
	}

	if domain.Role(user.Role) != domain.RoleAdmin {
		order, err := s.orderRepo.GetOrderByID(ctx, txn.OrderID)
		if err != nil {
			return resp, err
		}

		if order.ID == "" {
			return resp, errs.ErrNotFound
		}

		if !order.InvolvesUser(user.UserID) {
			return resp, errs.ErrUnauthorized
		}
	}

	return s.pollStatus(ctx, txn)
}

// pollStatus returns the cached status of a settled transaction and asks the
// gateway about a pending one, falling back to the local state when the gateway
// has no final answer.
func (s *PaymentServiceImpl) pollStatus(ctx context.Context, txn domain.PaymentTransaction) (resp dto.PaymentStatusResponse, err error) {
	if txn.Status.IsTerminal() {
		return statusResponse(txn), nil
	}

	checkoutRequestID := txn.CheckoutRequestID
	result, err := s.gatewayFor(txn.Provider).Query(ctx, checkoutRequestID)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("component", "GetPaymentStatus").Str("checkout_request_id", checkoutRequestID).Msg("status query failed, returning local status")
		return statusResponse(txn), nil
	}

	switch {
	case result.Succeeded() && amountMismatch(ctx, txn, result.Amount):
		if _, err := s.paymentRepo.FailTransaction(ctx, checkoutRequestID, mismatchDesc(txn, result.Amount)); err != nil {
			return resp, err
		}
	case result.Succeeded():
		amount := result.Amount
		if amount == 0 {
			amount = txn.Amount
		}

		_, orderPaid, err := s.settle(ctx, txn, domain.TransactionResult{
			Status:             domain.TransactionStatusCompleted,
			MpesaReceiptNumber: result.ReceiptNumber,
			ResultDesc:         result.ResultDesc,
			Amount:             amount,
		})
		if err != nil {
			return resp, err
		}

		if orderPaid {
			s.announceOrderPaid(ctx, txn.OrderID)
		}
	default:
		if _, err := s.paymentRepo.FailTransaction(ctx, checkoutRequestID, result.ResultDesc); err != nil {
			return resp, err
		}
	}

	txn, err = s.paymentRepo.GetTransactionByCheckoutRequestID(ctx, checkoutRequestID)
	if err != nil {
		return
	}

	return statusResponse(txn), nil
}

func (s *PaymentServiceImpl) PayWithCard(ctx context.Context, req dto.CardPaymentRequest) (resp dto.CardPaymentResponse, err error) {
	if req.OrderID == "" {
		return resp, errs.ErrClient
	}

	provider := domain.ProviderCard
	switch req.Method {
	case "", string(domain.ProviderCard):
	case string(domain.ProviderPaypal):
		provider = domain.ProviderPaypal
	default:
		return resp, errs.ErrClient
	}

	order, err := s.payableOrder(ctx, req.OrderID, req.UserID, domain.Role(req.Role))
	if err != nil {
		return
	}

	intent, err := s.card.Initiate(ctx, paymentgateway.PaymentRequest{
		OrderID:     order.ID,
		Reference:   accountReference(order.ID),
		Description: "ADAZE order payment",
		CardToken:   req.CardToken,
		Amount:      order.Amount,
	})
	if err != nil {
		return
	}

	if !intent.Accepted() {
		return resp, &errs.GatewayError{Code: intent.ResponseCode, Description: intent.ResponseDescription}
	}

	now := s.now()
	txn := domain.PaymentTransaction{
		Provider:          provider,
		CheckoutRequestID: intent.CheckoutRequestID,
		MerchantRequestID: intent.MerchantRequestID,
		OrderID:           order.ID,
		Amount:            order.Amount,
		Status:            domain.TransactionStatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	txn.ID, err = s.paymentRepo.AddTransaction(ctx, txn)
	if err != nil {
		return
	}

	resp.PaymentIntentID = intent.CheckoutRequestID
	resp.Message = intent.CustomerMessage
	resp.Status = string(domain.TransactionStatusPending)

	if !intent.Settled {
		return resp, nil
	}

	applied, orderPaid, err := s.settle(ctx, txn, domain.TransactionResult{
		Status:             domain.TransactionStatusCompleted,
		MpesaReceiptNumber: intent.ReceiptNumber,
		ResultDesc:         intent.ResponseDescription,
		Amount:             order.Amount,
	})
	if err != nil {
		return resp, err
	}

	if applied && orderPaid {
		resp.Status = string(domain.TransactionStatusCompleted)
		s.announceOrderPaid(ctx, order.ID)
	}

	return resp, nil
}

// SweepPendingPayments re-polls transactions still pending after the
// configured minimum age.
func (s *PaymentServiceImpl) SweepPendingPayments(ctx context.Context) {
	log.Info().Str("component", "SweepPendingPayments").Msg("cron starts")

	txns, err := s.paymentRepo.GetPendingTransactions(ctx, s.now().Add(-s.config.SweepConfig.MinAge), sweepBatchSize)
	if err != nil {
		return
	}

	for _, txn := range txns {
		resp, err := s.pollStatus(ctx, txn)
		if err != nil {
			log.Error().Err(err).Str("component", "SweepPendingPayments").Str("checkout_request_id", txn.CheckoutRequestID).Msg("")
			continue
		}
		log.Info().Str("component", "SweepPendingPayments").Str("checkout_request_id", txn.CheckoutRequestID).Str("status", resp.Status).Msg("")
	}

	log.Info().Str("component", "SweepPendingPayments").Int("checked", len(txns)).Msg("cron ends")
}
