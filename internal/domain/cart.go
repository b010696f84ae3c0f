package domain

import "time"

type CartItem struct {
	ProfileID int64     `db:"profile_id"`
	ProductID string    `db:"product_id"`
	TraderID  int64     `db:"trader_id"`
	Title     string    `db:"title"`
	Price     float64   `db:"price"`
	Quantity  int       `db:"quantity"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (i CartItem) Subtotal() float64 {
	return i.Price * float64(i.Quantity)
}

type Cart struct {
	Items []CartItem
}

func (c Cart) Total() float64 {
	var total float64
	for _, item := range c.Items {
		total += item.Subtotal()
	}
	return total
}

func (c Cart) ItemCount() int {
	var count int
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// GroupByTrader splits the cart into one slice per trader, preserving item order.
func (c Cart) GroupByTrader() (traderIDs []int64, groups map[int64][]CartItem) {
	groups = make(map[int64][]CartItem)
	for _, item := range c.Items {
		if _, seen := groups[item.TraderID]; !seen {
			traderIDs = append(traderIDs, item.TraderID)
		}
		groups[item.TraderID] = append(groups[item.TraderID], item)
	}
	return traderIDs, groups
}
