package realtime

import (
	"errors"
	"sync"

	"github.com/adaze/marketplace-api/internal/domain"
)

var ErrHubClosed = errors.New("change feed closed")

const (
	TableOrders = "orders"

	EventInsert = "INSERT"
	EventUpdate = "UPDATE"
)

// ChangeEvent carries the new image of a changed order row.
type ChangeEvent struct {
	Table  string       `json:"table"`
	Type   string       `json:"type"`
	Record domain.Order `json:"record"`
}

type Filter func(ev ChangeEvent) bool

// ForUser matches orders where the user is the buyer, trader or transporter.
func ForUser(userID int64) Filter {
	return func(ev ChangeEvent) bool {
		return ev.Record.InvolvesUser(userID)
	}
}

func ForOrder(orderID string) Filter {
	return func(ev ChangeEvent) bool {
		return ev.Record.ID == orderID
	}
}

type subscription struct {
	filter   Filter
	onChange func(ChangeEvent)
	onError  func(error)
}

// Hub fans change events out to every registered subscription.
type Hub struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]subscription
	closed bool
}

func CreateHub() *Hub {
	return &Hub{subs: make(map[uint64]subscription)}
}

func (h *Hub) add(sub subscription) (uint64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return 0, ErrHubClosed
	}

	h.nextID++
	h.subs[h.nextID] = sub
	return h.nextID, nil
}

func (h *Hub) remove(id uint64) {
	h.mu.Lock()
	delete(h.subs, id)
	h.mu.Unlock()
}

func (h *Hub) snapshot() []subscription {
	h.mu.RLock()
	defer h.mu.RUnlock()

	subs := make([]subscription, 0, len(h.subs))
	for _, sub := range h.subs {
		subs = append(subs, sub)
	}
	return subs
}

// Len returns the number of active subscriptions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) Publish(ev ChangeEvent) {
	for _, sub := range h.snapshot() {
		if sub.filter == nil || sub.filter(ev) {
			sub.onChange(ev)
		}
	}
}

// Fail reports a feed-level error to every subscription that asked for one.
func (h *Hub) Fail(err error) {
	for _, sub := range h.snapshot() {
		if sub.onError != nil {
			sub.onError(err)
		}
	}
}

// Close drops every subscription after telling it the feed is gone.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	subs := h.subs
	h.subs = make(map[uint64]subscription)
	h.mu.Unlock()

	for _, sub := range subs {
		if sub.onError != nil {
			sub.onError(ErrHubClosed)
		}
	}
}
