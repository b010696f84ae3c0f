package dto

type InitiatePaymentRequest struct {
	OrderID     string  `json:"orderId"`
	PhoneNumber string  `json:"phoneNumber"`
	Amount      float64 `json:"amount"`
	UserID      int64   `json:"-"`
	Role        string  `json:"-"`
}

type InitiatePaymentResponse struct {
	CheckoutRequestID string `json:"checkoutRequestId"`
	MerchantRequestID string `json:"merchantRequestId"`
	CustomerMessage   string `json:"customerMessage"`
}

type PaymentStatusResponse struct {
	Status             string   `json:"status"`
	MpesaReceiptNumber *string  `json:"mpesaReceiptNumber,omitempty"`
	Amount             *float64 `json:"amount,omitempty"`
	ResultDesc         *string  `json:"resultDesc,omitempty"`
}

type CardPaymentRequest struct {
	OrderID   string `json:"orderId"`
	Method    string `json:"method"`
	CardToken string `json:"cardToken"`
	UserID    int64  `json:"-"`
	Role      string `json:"-"`
}

type CardPaymentResponse struct {
	PaymentIntentID string `json:"paymentIntentId"`
	Status          string `json:"status"`
	Message         string `json:"message"`
}
