package repository

import (
	"context"
	"time"

	"github.com/adaze/marketplace-api/internal/domain"
	"github.com/adaze/marketplace-api/internal/dto"
	pkgdto "github.com/adaze/marketplace-api/pkg/dto"
)

// PaymentRepository owns payment transactions and the order payment columns
// they drive, so that both can change inside one database transaction.
type PaymentRepository interface {
	HandleTrx(ctx context.Context, fn func(ctx context.Context, repo PaymentRepository) error) error

	AddTransaction(ctx context.Context, data domain.PaymentTransaction) (id int64, err error)
	GetTransactionByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (data domain.PaymentTransaction, err error)
	GetOrderForUpdate(ctx context.Context, orderID string) (data domain.Order, err error)
	GetPendingTransactions(ctx context.Context, createdBefore time.Time, limit int) (data []domain.PaymentTransaction, err error)
	CompleteTransaction(ctx context.Context, checkoutRequestID string, result domain.TransactionResult) (updated bool, err error)
	FailTransaction(ctx context.Context, checkoutRequestID string, resultDesc string) (updated bool, err error)
	MarkOrderPaid(ctx context.Context, orderID string) (updated bool, err error)
}

type OrderRepository interface {
	HandleTrx(ctx context.Context, fn func(ctx context.Context, repo OrderRepository) error) error

	AddOrder(ctx context.Context, data domain.Order) (err error)
	GetOrderByID(ctx context.Context, id string) (data domain.Order, err error)
	GetOrdersByUser(ctx context.Context, userID int64, role domain.Role, filter pkgdto.Filter) (data []domain.Order, err error)
	CountOrdersByUser(ctx context.Context, userID int64, role domain.Role, filter pkgdto.Filter) (count int64, err error)
	AssignTransporter(ctx context.Context, orderID string, transporterID int64) (updated bool, err error)
	UpdateOrderStatus(ctx context.Context, orderID string, from, to domain.OrderStatus) (updated bool, err error)
}

type NotificationRepository interface {
	AddNotification(ctx context.Context, data domain.Notification) (id int64, err error)
	GetNotificationsByUser(ctx context.Context, userID int64, filter pkgdto.Filter) (data []domain.Notification, err error)
	CountUnread(ctx context.Context, userID int64) (count int64, err error)
	CountNotificationsByUser(ctx context.Context, userID int64) (count int64, err error)
	MarkAsRead(ctx context.Context, id int64, userID int64) (updated bool, err error)
	MarkAllAsRead(ctx context.Context, userID int64) (err error)
}

type ProfileRepository interface {
	GetProfileByEmail(ctx context.Context, email string) (data domain.Profile, err error)
	GetProfileByID(ctx context.Context, id int64) (data domain.Profile, err error)
	AddProfile(ctx context.Context, data domain.Profile) (id int64, err error)
	SetSuspended(ctx context.Context, id int64, suspended bool) (err error)
	SoftDeleteProfile(ctx context.Context, id int64) (err error)
	UpdateRole(ctx context.Context, id int64, role domain.Role) (updated bool, err error)
	GetProfiles(ctx context.Context, filter pkgdto.Filter) (data []domain.Profile, err error)
	CountProfiles(ctx context.Context, filter pkgdto.Filter) (count int64, err error)
	AddLoginHistory(ctx context.Context, data domain.LoginHistory) (err error)
	GetLoginHistories(ctx context.Context, profileID int64, limit int) (data []domain.LoginHistory, err error)
}

type CartRepository interface {
	GetCartItems(ctx context.Context, profileID int64) (data []domain.CartItem, err error)
	GetCartItem(ctx context.Context, profileID int64, productID string) (data domain.CartItem, err error)
	UpsertCartItem(ctx context.Context, data domain.CartItem) (err error)
	RemoveCartItem(ctx context.Context, profileID int64, productID string) (err error)
	ClearCart(ctx context.Context, profileID int64) (err error)
}

type ProductRepository interface {
	AddProduct(ctx context.Context, data domain.Product) (id string, err error)
	GetProductByID(ctx context.Context, id string) (data domain.Product, err error)
	GetProducts(ctx context.Context, filter dto.ProductFilter) (data []domain.Product, err error)
	CountProducts(ctx context.Context, filter dto.ProductFilter) (count int64, err error)
	// AdjustStock adds delta to the product quantity. A negative delta only
	// applies when enough stock is left.
	AdjustStock(ctx context.Context, id string, delta int) (updated bool, err error)
}
