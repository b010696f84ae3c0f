package dto

import (
	"time"

	"github.com/adaze/marketplace-api/internal/domain"
)

type CheckoutRequest struct {
	ShippingAddress string `json:"shipping_address"`
	UserID          int64  `json:"-"`
}

type AssignTransporterRequest struct {
	TransporterID int64  `json:"transporter_id"`
	OrderID       string `json:"-"`
	UserID        int64  `json:"-"`
	Role          string `json:"-"`
}

type UpdateOrderStatusRequest struct {
	Status  string `json:"status"`
	OrderID string `json:"-"`
	UserID  int64  `json:"-"`
	Role    string `json:"-"`
}

type OrderResponse struct {
	ID              string    `json:"id"`
	BuyerID         int64     `json:"buyer_id"`
	TraderID        int64     `json:"trader_id"`
	TransporterID   *int64    `json:"transporter_id"`
	Title           string    `json:"title"`
	Amount          float64   `json:"amount"`
	Status          string    `json:"status"`
	PaymentStatus   string    `json:"payment_status"`
	ShippingAddress string    `json:"shipping_address"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func NewOrderResponse(o domain.Order) OrderResponse {
	return OrderResponse{
		ID:              o.ID,
		BuyerID:         o.BuyerID,
		TraderID:        o.TraderID,
		TransporterID:   o.TransporterID,
		Title:           o.Title,
		Amount:          o.Amount,
		Status:          string(o.Status),
		PaymentStatus:   string(o.PaymentStatus),
		ShippingAddress: o.ShippingAddress,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}
