package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/adaze/marketplace-api/internal/domain"
	"github.com/adaze/marketplace-api/internal/dto"
	paymentgateway "github.com/adaze/marketplace-api/internal/infrastructure/payment-gateway"
	"github.com/adaze/marketplace-api/internal/repository"
	pkgdto "github.com/adaze/marketplace-api/pkg/dto"
	"github.com/adaze/marketplace-api/pkg/errs"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memoryStore backs the order and payment fakes so both see the same rows.
type memoryStore struct {
	mu        sync.Mutex
	orders    map[string]domain.Order
	txns      map[string]domain.PaymentTransaction
	nextTxnID int64

	completeErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		orders: make(map[string]domain.Order),
		txns:   make(map[string]domain.PaymentTransaction),
	}
}

func (m *memoryStore) order(id string) domain.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders[id]
}

func (m *memoryStore) txn(checkoutRequestID string) domain.PaymentTransaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.txns[checkoutRequestID]
}

func (m *memoryStore) txnCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.txns)
}

func (m *memoryStore) completedFor(orderID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int
	for _, t := range m.txns {
		if t.OrderID == orderID && t.Status == domain.TransactionStatusCompleted {
			n++
		}
	}
	return n
}

type fakePaymentRepo struct {
	store *memoryStore
}

func (r *fakePaymentRepo) HandleTrx(ctx context.Context, fn func(ctx context.Context, repo repository.PaymentRepository) error) error {
	return fn(ctx, r)
}

func (r *fakePaymentRepo) AddTransaction(ctx context.Context, data domain.PaymentTransaction) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.txns[data.CheckoutRequestID]; ok {
		return 0, errs.ErrInternalServer
	}
	r.store.nextTxnID++
	data.ID = r.store.nextTxnID
	r.store.txns[data.CheckoutRequestID] = data
	return data.ID, nil
}

func (r *fakePaymentRepo) GetTransactionByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (domain.PaymentTransaction, error) {
	return r.store.txn(checkoutRequestID), nil
}

func (r *fakePaymentRepo) GetOrderForUpdate(ctx context.Context, orderID string) (domain.Order, error) {
	return r.store.order(orderID), nil
}

func (r *fakePaymentRepo) GetPendingTransactions(ctx context.Context, createdBefore time.Time, limit int) (data []domain.PaymentTransaction, err error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, t := range r.store.txns {
		if t.Status == domain.TransactionStatusPending && t.CreatedAt.Before(createdBefore) {
			data = append(data, t)
		}
	}
	sort.Slice(data, func(i, j int) bool { return data[i].ID < data[j].ID })
	if len(data) > limit {
		data = data[:limit]
	}
	return data, nil
}

func (r *fakePaymentRepo) CompleteTransaction(ctx context.Context, checkoutRequestID string, result domain.TransactionResult) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.completeErr != nil {
		return false, r.store.completeErr
	}
	t, ok := r.store.txns[checkoutRequestID]
	if !ok || t.Status != domain.TransactionStatusPending {
		return false, nil
	}
	t.Status = domain.TransactionStatusCompleted
	receipt, desc := result.MpesaReceiptNumber, result.ResultDesc
	t.MpesaReceiptNumber = &receipt
	t.ResultDesc = &desc
	t.TransactionDate = result.TransactionDate
	if result.Amount > 0 {
		t.Amount = result.Amount
	}
	if result.PhoneNumber != "" {
		t.PhoneNumber = result.PhoneNumber
	}
	r.store.txns[checkoutRequestID] = t
	return true, nil
}

func (r *fakePaymentRepo) FailTransaction(ctx context.Context, checkoutRequestID string, resultDesc string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.txns[checkoutRequestID]
	if !ok || t.Status != domain.TransactionStatusPending {
		return false, nil
	}
	t.Status = domain.TransactionStatusFailed
	t.ResultDesc = &resultDesc
	r.store.txns[checkoutRequestID] = t
	return true, nil
}

func (r *fakePaymentRepo) MarkOrderPaid(ctx context.Context, orderID string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	o, ok := r.store.orders[orderID]
	if !ok || o.PaymentStatus != domain.PaymentStatusPending || o.Status != domain.OrderStatusPending {
		return false, nil
	}
	o.PaymentStatus = domain.PaymentStatusPaid
	o.Status = domain.OrderStatusConfirmed
	r.store.orders[orderID] = o
	return true, nil
}

type fakeOrderRepo struct {
	store  *memoryStore
	addErr error
}

func (r *fakeOrderRepo) HandleTrx(ctx context.Context, fn func(ctx context.Context, repo repository.OrderRepository) error) error {
	return fn(ctx, r)
}

func (r *fakeOrderRepo) AddOrder(ctx context.Context, data domain.Order) error {
	if r.addErr != nil {
		return r.addErr
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.orders[data.ID] = data
	return nil
}

func (r *fakeOrderRepo) GetOrderByID(ctx context.Context, id string) (domain.Order, error) {
	return r.store.order(id), nil
}

func (r *fakeOrderRepo) matching(userID int64, role domain.Role, filter pkgdto.Filter) (data []domain.Order) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, o := range r.store.orders {
		var mine bool
		switch role {
		case domain.RoleAdmin:
			mine = true
		case domain.RoleTrader:
			mine = o.TraderID == userID
		case domain.RoleTransporter:
			mine = o.TransporterID != nil && *o.TransporterID == userID
		case domain.RoleWholesaler:
			mine = o.BuyerID == userID || o.TraderID == userID
		default:
			mine = o.BuyerID == userID
		}
		if !mine || (filter.Status != "" && string(o.Status) != filter.Status) {
			continue
		}
		if filter.Q != "" && !strings.Contains(strings.ToLower(o.Title), strings.ToLower(filter.Q)) {
			continue
		}
		data = append(data, o)
	}
	sort.Slice(data, func(i, j int) bool { return data[i].ID < data[j].ID })
	return data
}

func (r *fakeOrderRepo) GetOrdersByUser(ctx context.Context, userID int64, role domain.Role, filter pkgdto.Filter) ([]domain.Order, error) {
	data := r.matching(userID, role, filter)
	if filter.Limit != 0 && filter.Page != 0 {
		start := filter.Offset()
		if start > len(data) {
			start = len(data)
		}
		end := start + filter.Limit
		if end > len(data) {
			end = len(data)
		}
		data = data[start:end]
	}
	return data, nil
}

func (r *fakeOrderRepo) CountOrdersByUser(ctx context.Context, userID int64, role domain.Role, filter pkgdto.Filter) (int64, error) {
	return int64(len(r.matching(userID, role, filter))), nil
}

func (r *fakeOrderRepo) AssignTransporter(ctx context.Context, orderID string, transporterID int64) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	o, ok := r.store.orders[orderID]
	if !ok || (o.Status != domain.OrderStatusPending && o.Status != domain.OrderStatusConfirmed) {
		return false, nil
	}
	o.TransporterID = &transporterID
	r.store.orders[orderID] = o
	return true, nil
}

func (r *fakeOrderRepo) UpdateOrderStatus(ctx context.Context, orderID string, from, to domain.OrderStatus) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	o, ok := r.store.orders[orderID]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	r.store.orders[orderID] = o
	return true, nil
}

type fakeNotificationRepo struct {
	mu     sync.Mutex
	items  []domain.Notification
	addErr error
}

func (r *fakeNotificationRepo) AddNotification(ctx context.Context, data domain.Notification) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.addErr != nil {
		return 0, r.addErr
	}
	data.ID = int64(len(r.items) + 1)
	r.items = append(r.items, data)
	return data.ID, nil
}

func (r *fakeNotificationRepo) all() []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Notification(nil), r.items...)
}

func (r *fakeNotificationRepo) GetNotificationsByUser(ctx context.Context, userID int64, filter pkgdto.Filter) (data []domain.Notification, err error) {
	for _, n := range r.all() {
		if n.UserID == userID {
			data = append(data, n)
		}
	}
	return data, nil
}

func (r *fakeNotificationRepo) CountNotificationsByUser(ctx context.Context, userID int64) (int64, error) {
	data, _ := r.GetNotificationsByUser(ctx, userID, pkgdto.Filter{})
	return int64(len(data)), nil
}

func (r *fakeNotificationRepo) CountUnread(ctx context.Context, userID int64) (count int64, err error) {
	for _, n := range r.all() {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (r *fakeNotificationRepo) MarkAsRead(ctx context.Context, id int64, userID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.items {
		if r.items[i].ID == id && r.items[i].UserID == userID {
			r.items[i].Read = true
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeNotificationRepo) MarkAllAsRead(ctx context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.items {
		if r.items[i].UserID == userID {
			r.items[i].Read = true
		}
	}
	return nil
}

type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles map[int64]domain.Profile
	logins   []domain.LoginHistory
	nextID   int64
}

func newFakeProfileRepo(profiles ...domain.Profile) *fakeProfileRepo {
	r := &fakeProfileRepo{profiles: make(map[int64]domain.Profile)}
	for _, p := range profiles {
		r.profiles[p.ID] = p
		if p.ID > r.nextID {
			r.nextID = p.ID
		}
	}
	return r
}

func (r *fakeProfileRepo) GetProfileByEmail(ctx context.Context, email string) (domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.profiles {
		if p.Email == email && p.DeletedAt == nil {
			return p, nil
		}
	}
	return domain.Profile{}, nil
}

func (r *fakeProfileRepo) GetProfileByID(ctx context.Context, id int64) (domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.profiles[id], nil
}

func (r *fakeProfileRepo) AddProfile(ctx context.Context, data domain.Profile) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	data.ID = r.nextID
	r.profiles[data.ID] = data
	return data.ID, nil
}

func (r *fakeProfileRepo) SetSuspended(ctx context.Context, id int64, suspended bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.profiles[id]
	p.Suspended = suspended
	r.profiles[id] = p
	return nil
}

func (r *fakeProfileRepo) SoftDeleteProfile(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.profiles[id]
	now := time.Now()
	p.DeletedAt = &now
	r.profiles[id] = p
	return nil
}

func (r *fakeProfileRepo) UpdateRole(ctx context.Context, id int64, role domain.Role) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[id]
	if !ok || p.DeletedAt != nil {
		return false, nil
	}
	p.Role = role
	r.profiles[id] = p
	return true, nil
}

func (r *fakeProfileRepo) GetProfiles(ctx context.Context, filter pkgdto.Filter) (data []domain.Profile, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.profiles {
		if p.DeletedAt == nil {
			data = append(data, p)
		}
	}
	sort.Slice(data, func(i, j int) bool { return data[i].ID < data[j].ID })
	return data, nil
}

func (r *fakeProfileRepo) CountProfiles(ctx context.Context, filter pkgdto.Filter) (int64, error) {
	data, _ := r.GetProfiles(ctx, filter)
	return int64(len(data)), nil
}

func (r *fakeProfileRepo) AddLoginHistory(ctx context.Context, data domain.LoginHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logins = append(r.logins, data)
	return nil
}

func (r *fakeProfileRepo) GetLoginHistories(ctx context.Context, profileID int64, limit int) (data []domain.LoginHistory, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.logins {
		if l.ProfileID == profileID {
			data = append(data, l)
		}
	}
	return data, nil
}

type fakeCartRepo struct {
	mu    sync.Mutex
	items map[int64][]domain.CartItem
}

func newFakeCartRepo() *fakeCartRepo {
	return &fakeCartRepo{items: make(map[int64][]domain.CartItem)}
}

func (r *fakeCartRepo) GetCartItems(ctx context.Context, profileID int64) ([]domain.CartItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.CartItem(nil), r.items[profileID]...), nil
}

func (r *fakeCartRepo) GetCartItem(ctx context.Context, profileID int64, productID string) (domain.CartItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.items[profileID] {
		if item.ProductID == productID {
			return item, nil
		}
	}
	return domain.CartItem{}, nil
}

func (r *fakeCartRepo) UpsertCartItem(ctx context.Context, data domain.CartItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := r.items[data.ProfileID]
	for i := range items {
		if items[i].ProductID == data.ProductID {
			items[i] = data
			return nil
		}
	}
	r.items[data.ProfileID] = append(items, data)
	return nil
}

func (r *fakeCartRepo) RemoveCartItem(ctx context.Context, profileID int64, productID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := r.items[profileID][:0]
	for _, item := range r.items[profileID] {
		if item.ProductID != productID {
			items = append(items, item)
		}
	}
	r.items[profileID] = items
	return nil
}

func (r *fakeCartRepo) ClearCart(ctx context.Context, profileID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, profileID)
	return nil
}

type fakeProductRepo struct {
	mu       sync.Mutex
	products map[string]domain.Product
}

func newFakeProductRepo(products ...domain.Product) *fakeProductRepo {
	r := &fakeProductRepo{products: make(map[string]domain.Product)}
	for _, p := range products {
		r.products[p.ID.Hex()] = p
	}
	return r
}

func (r *fakeProductRepo) quantity(id primitive.ObjectID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.products[id.Hex()].Quantity
}

func (r *fakeProductRepo) AddProduct(ctx context.Context, data domain.Product) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	data.ID = primitive.NewObjectID()
	r.products[data.ID.Hex()] = data
	return data.ID.Hex(), nil
}

func (r *fakeProductRepo) GetProductByID(ctx context.Context, id string) (domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.products[id], nil
}

func (r *fakeProductRepo) GetProducts(ctx context.Context, filter dto.ProductFilter) (data []domain.Product, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.products {
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		data = append(data, p)
	}
	sort.Slice(data, func(i, j int) bool { return data[i].Price < data[j].Price })
	return data, nil
}

func (r *fakeProductRepo) CountProducts(ctx context.Context, filter dto.ProductFilter) (int64, error) {
	data, _ := r.GetProducts(ctx, filter)
	return int64(len(data)), nil
}

func (r *fakeProductRepo) AdjustStock(ctx context.Context, id string, delta int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok || p.Quantity+delta < 0 {
		return false, nil
	}
	p.Quantity += delta
	r.products[id] = p
	return true, nil
}

type fakeGateway struct {
	mu         sync.Mutex
	intent     paymentgateway.PaymentIntent
	initErr    error
	result     paymentgateway.PaymentResult
	queryErr   error
	requests   []paymentgateway.PaymentRequest
	queryCalls int
}

func acceptingGateway(checkoutRequestID string) *fakeGateway {
	return &fakeGateway{
		intent: paymentgateway.PaymentIntent{
			ResponseCode:      paymentgateway.AcceptedCode,
			CustomerMessage:   "Success. Request accepted for processing",
			CheckoutRequestID: checkoutRequestID,
			MerchantRequestID: "merchant-" + checkoutRequestID,
		},
	}
}

func (g *fakeGateway) Initiate(ctx context.Context, req paymentgateway.PaymentRequest) (paymentgateway.PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	return g.intent, g.initErr
}

func (g *fakeGateway) Query(ctx context.Context, checkoutRequestID string) (paymentgateway.PaymentResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.queryCalls++
	return g.result, g.queryErr
}

type publishedChange struct {
	changeType string
	order      domain.Order
}

type fakePublisher struct {
	mu      sync.Mutex
	changes []publishedChange
	err     error
}

func (p *fakePublisher) PublishOrderChange(ctx context.Context, changeType string, order domain.Order) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, publishedChange{changeType: changeType, order: order})
	return p.err
}

func (p *fakePublisher) published() []publishedChange {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedChange(nil), p.changes...)
}

var errStoreDown = errors.New("store down")
