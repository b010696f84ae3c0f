package dto

import "time"

type ProductRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Condition   string   `json:"condition"`
	Price       float64  `json:"price"`
	Quantity    int      `json:"quantity"`
	Images      []string `json:"images"`
	TraderID    int64    `json:"-"`
}

type ProductFilter struct {
	Limit     int     `query:"limit"`
	Page      int     `query:"page"`
	Q         string  `query:"q"`
	Category  string  `query:"category"`
	Condition string  `query:"condition"`
	MinPrice  float64 `query:"min_price"`
	MaxPrice  float64 `query:"max_price"`
	TraderID  int64   `query:"trader_id"`
	Sort      string  `query:"sort"`
}

type ProductResponse struct {
	ID          string    `json:"id"`
	TraderID    int64     `json:"trader_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Condition   string    `json:"condition"`
	Price       float64   `json:"price"`
	Quantity    int       `json:"quantity"`
	Images      []string  `json:"images"`
	CreatedAt   time.Time `json:"created_at"`
}
