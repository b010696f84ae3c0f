package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusInTransit OrderStatus = "in_transit"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// Manual delivery transitions. pending -> confirmed happens only through
// payment reconciliation and is therefore absent here.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusCancelled},
	OrderStatusConfirmed: {OrderStatusInTransit, OrderStatusCancelled},
	OrderStatusInTransit: {OrderStatusDelivered},
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusPaid || s == PaymentStatusFailed
}

type Order struct {
	ID              string        `db:"id" json:"id"`
	BuyerID         int64         `db:"buyer_id" json:"buyer_id"`
	TraderID        int64         `db:"trader_id" json:"trader_id"`
	TransporterID   *int64        `db:"transporter_id" json:"transporter_id"`
	Title           string        `db:"title" json:"title"`
	Amount          float64       `db:"amount" json:"amount"`
	Status          OrderStatus   `db:"status" json:"status"`
	PaymentStatus   PaymentStatus `db:"payment_status" json:"payment_status"`
	ShippingAddress string        `db:"shipping_address" json:"shipping_address"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

// InvolvesUser reports whether id is the buyer, trader or assigned transporter.
func (o Order) InvolvesUser(id int64) bool {
	if o.BuyerID == id || o.TraderID == id {
		return true
	}
	return o.TransporterID != nil && *o.TransporterID == id
}
