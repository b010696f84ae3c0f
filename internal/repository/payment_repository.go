package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/adaze/marketplace-api/internal/domain"
	"github.com/adaze/marketplace-api/pkg/errs"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

type PaymentRepositoryImpl struct {
	db *sqlx.DB
	tx *sqlx.Tx
}

func CreatePaymentRepository(db *sqlx.DB) PaymentRepository {
	return &PaymentRepositoryImpl{
		db: db,
	}
}

func (r *PaymentRepositoryImpl) conn() sqlx.ExtContext {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *PaymentRepositoryImpl) AddTransaction(ctx context.Context, data domain.PaymentTransaction) (id int64, err error) {
	query, args, err := sqlx.Named("INSERT INTO payment_transactions(provider, checkout_request_id, merchant_request_id, order_id, amount, phone_number, status, created_at, updated_at) VALUES (:provider, :checkout_request_id, :merchant_request_id, :order_id, :amount, :phone_number, :status, :created_at, :updated_at) RETURNING id", data)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "AddTransaction").Msg("")
		return 0, errs.ErrInternalServer
	}

	err = sqlx.GetContext(ctx, r.conn(), &id, r.conn().Rebind(query), args...)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "AddTransaction").Msg("")
		return 0, errs.ErrInternalServer
	}

	return id, nil
}

func (r *PaymentRepositoryImpl) GetTransactionByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (data domain.PaymentTransaction, err error) {
	err = sqlx.GetContext(ctx, r.conn(), &data, "SELECT * FROM payment_transactions WHERE checkout_request_id = $1", checkoutRequestID)
	if err != nil {
		if err == sql.ErrNoRows {
			return data, nil
		}
		log.Ctx(ctx).Error().Err(err).Str("component", "GetTransactionByCheckoutRequestID").Msg("")
		return data, errs.ErrInternalServer
	}

	return
}

// GetOrderForUpdate locks the order row until the surrounding transaction ends.
func (r *PaymentRepositoryImpl) GetOrderForUpdate(ctx context.Context, orderID string) (data domain.Order, err error) {
	err = sqlx.GetContext(ctx, r.conn(), &data, "SELECT * FROM orders WHERE id = $1 FOR UPDATE", orderID)
	if err != nil {
		if err == sql.ErrNoRows {
			return data, nil
		}
		log.Ctx(ctx).Error().Err(err).Str("component", "GetOrderForUpdate").Msg("")
		return data, errs.ErrInternalServer
	}

	return
}

func (r *PaymentRepositoryImpl) GetPendingTransactions(ctx context.Context, createdBefore time.Time, limit int) (data []domain.PaymentTransaction, err error) {
	err = sqlx.SelectContext(ctx, r.conn(), &data, "SELECT * FROM payment_transactions WHERE status = 'pending' AND created_at < $1 ORDER BY created_at ASC LIMIT $2", createdBefore, limit)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "GetPendingTransactions").Msg("")
		return nil, errs.ErrInternalServer
	}

	return
}

// CompleteTransaction moves a pending transaction to completed. updated is
// false when the row was not pending anymore.
func (r *PaymentRepositoryImpl) CompleteTransaction(ctx context.Context, checkoutRequestID string, result domain.TransactionResult) (updated bool, err error) {
	res, err := r.conn().ExecContext(ctx, `UPDATE payment_transactions
		SET status = 'completed',
			mpesa_receipt_number = NULLIF($2, ''),
			result_desc = $3,
			transaction_date = $4,
			phone_number = COALESCE(NULLIF($5, ''), phone_number),
			amount = CASE WHEN $6::numeric > 0 THEN $6::numeric ELSE amount END,
			updated_at = now()
		WHERE checkout_request_id = $1 AND status = 'pending'`,
		checkoutRequestID, result.MpesaReceiptNumber, result.ResultDesc, result.TransactionDate, result.PhoneNumber, result.Amount)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "CompleteTransaction").Msg("")
		return false, errs.ErrInternalServer
	}

	return rowsAffected(ctx, res, "CompleteTransaction")
}

func (r *PaymentRepositoryImpl) FailTransaction(ctx context.Context, checkoutRequestID string, resultDesc string) (updated bool, err error) {
	res, err := r.conn().ExecContext(ctx, "UPDATE payment_transactions SET status = 'failed', result_desc = $2, updated_at = now() WHERE checkout_request_id = $1 AND status = 'pending'", checkoutRequestID, resultDesc)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "FailTransaction").Msg("")
		return false, errs.ErrInternalServer
	}

	return rowsAffected(ctx, res, "FailTransaction")
}

// MarkOrderPaid confirms an order whose payment is still pending.
func (r *PaymentRepositoryImpl) MarkOrderPaid(ctx context.Context, orderID string) (updated bool, err error) {
	res, err := r.conn().ExecContext(ctx, "UPDATE orders SET payment_status = 'paid', status = 'confirmed', updated_at = now() WHERE id = $1 AND payment_status = 'pending' AND status = 'pending'", orderID)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "MarkOrderPaid").Msg("")
		return false, errs.ErrInternalServer
	}

	return rowsAffected(ctx, res, "MarkOrderPaid")
}

func (r *PaymentRepositoryImpl) HandleTrx(ctx context.Context, fn func(ctx context.Context, repo PaymentRepository) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "HandleTrx").Msg("")
		return errs.ErrInternalServer
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	return fn(ctx, &PaymentRepositoryImpl{db: r.db, tx: tx})
}

func rowsAffected(ctx context.Context, res sql.Result, component string) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", component).Msg("")
		return false, errs.ErrInternalServer
	}
	return n > 0, nil
}
