package service

import (
	"context"
	"io"

	"github.com/adaze/marketplace-api/internal/domain"
	"github.com/adaze/marketplace-api/internal/dto"
	pkgdto "github.com/adaze/marketplace-api/pkg/dto"
	"github.com/adaze/marketplace-api/pkg/utils"
)

type PaymentService interface {
	InitiateMpesaPayment(ctx context.Context, req dto.InitiatePaymentRequest) (resp dto.InitiatePaymentResponse, err error)
	HandleMpesaCallback(ctx context.Context, payload dto.MpesaCallbackPayload) dto.CallbackAck
	GetPaymentStatus(ctx context.Context, user utils.TokenUser, checkoutRequestID string) (resp dto.PaymentStatusResponse, err error)
	PayWithCard(ctx context.Context, req dto.CardPaymentRequest) (resp dto.CardPaymentResponse, err error)
	SweepPendingPayments(ctx context.Context)
}

type NotificationService interface {
	EmitOrderStatus(ctx context.Context, userID int64, orderID string, orderTitle string, status domain.OrderStatus) (err error)
	GetNotifications(ctx context.Context, userID int64, filter pkgdto.Filter) (resp pkgdto.PaginationResponse, err error)
	CountUnread(ctx context.Context, userID int64) (count int64, err error)
	MarkAsRead(ctx context.Context, id int64, userID int64) (err error)
	MarkAllAsRead(ctx context.Context, userID int64) (err error)
}

type OrderService interface {
	Checkout(ctx context.Context, req dto.CheckoutRequest) (orders []dto.OrderResponse, err error)
	GetOrders(ctx context.Context, user utils.TokenUser, filter pkgdto.Filter) (resp pkgdto.PaginationResponse, err error)
	GetOrder(ctx context.Context, user utils.TokenUser, orderID string) (resp dto.OrderResponse, err error)
	AssignTransporter(ctx context.Context, req dto.AssignTransporterRequest) (resp dto.OrderResponse, err error)
	UpdateOrderStatus(ctx context.Context, req dto.UpdateOrderStatusRequest) (resp dto.OrderResponse, err error)
	CancelOrder(ctx context.Context, user utils.TokenUser, orderID string) (resp dto.OrderResponse, err error)
	ExportOrders(ctx context.Context, user utils.TokenUser, format string, w io.Writer) (err error)
}

type UserService interface {
	Register(ctx context.Context, req dto.UserRequest) (resp dto.UserResponse, err error)
	Login(ctx context.Context, req dto.LoginRequest) (resp dto.LoginResponse, err error)
	Logout(ctx context.Context, userID int64) (err error)
	GetProfile(ctx context.Context, userID int64) (resp dto.UserResponse, err error)
	Deactivate(ctx context.Context, userID int64) (err error)
	Reactivate(ctx context.Context, req dto.LoginRequest) (resp dto.LoginResponse, err error)
	DeleteAccount(ctx context.Context, userID int64) (err error)
	UpdateRole(ctx context.Context, userID int64, req dto.RoleUpdateRequest) (err error)
	GetUsers(ctx context.Context, filter pkgdto.Filter) (resp pkgdto.PaginationResponse, err error)
	GetLoginHistories(ctx context.Context, userID int64) (resp []domain.LoginHistory, err error)
}

type CartService interface {
	GetCart(ctx context.Context, userID int64) (resp dto.CartResponse, err error)
	AddItem(ctx context.Context, req dto.CartItemRequest) (resp dto.CartResponse, err error)
	SetQuantity(ctx context.Context, req dto.CartItemRequest) (resp dto.CartResponse, err error)
	RemoveItem(ctx context.Context, userID int64, productID string) (resp dto.CartResponse, err error)
	ClearCart(ctx context.Context, userID int64) (err error)
}

type ProductService interface {
	AddProduct(ctx context.Context, req dto.ProductRequest) (resp dto.ProductResponse, err error)
	GetProducts(ctx context.Context, filter dto.ProductFilter) (resp pkgdto.PaginationResponse, err error)
}
