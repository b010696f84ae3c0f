package domain

import "time"

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionStatusCompleted || s == TransactionStatusFailed
}

type PaymentProvider string

const (
	ProviderMpesa  PaymentProvider = "mpesa"
	ProviderCard   PaymentProvider = "card"
	ProviderPaypal PaymentProvider = "paypal"
)

// PaymentTransaction is one payment attempt for an order. Retries create new rows.
type PaymentTransaction struct {
	ID                 int64             `db:"id"`
	Provider           PaymentProvider   `db:"provider"`
	CheckoutRequestID  string            `db:"checkout_request_id"`
	MerchantRequestID  string            `db:"merchant_request_id"`
	OrderID            string            `db:"order_id"`
	Amount             float64           `db:"amount"`
	PhoneNumber        string            `db:"phone_number"`
	Status             TransactionStatus `db:"status"`
	MpesaReceiptNumber *string           `db:"mpesa_receipt_number"`
	ResultDesc         *string           `db:"result_desc"`
	TransactionDate    *time.Time        `db:"transaction_date"`
	CreatedAt          time.Time         `db:"created_at"`
	UpdatedAt          time.Time         `db:"updated_at"`
}

// TransactionResult is the terminal outcome applied to a pending transaction.
type TransactionResult struct {
	Status             TransactionStatus
	MpesaReceiptNumber string
	ResultDesc         string
	Amount             float64
	PhoneNumber        string
	TransactionDate    *time.Time
}
