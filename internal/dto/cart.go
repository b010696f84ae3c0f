package dto

type CartItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UserID    int64  `json:"-"`
}

type CartItemResponse struct {
	ProductID string  `json:"product_id"`
	TraderID  int64   `json:"trader_id"`
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Subtotal  float64 `json:"subtotal"`
}

type CartResponse struct {
	Items     []CartItemResponse `json:"items"`
	ItemCount int                `json:"item_count"`
	Total     float64            `json:"total"`
}
