package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/adaze/marketplace-api/internal/domain"
	"github.com/adaze/marketplace-api/internal/dto"
	"github.com/adaze/marketplace-api/internal/realtime"
	"github.com/adaze/marketplace-api/internal/repository"
	pkgdto "github.com/adaze/marketplace-api/pkg/dto"
	"github.com/adaze/marketplace-api/pkg/errs"
	"github.com/adaze/marketplace-api/pkg/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// orderTransporterAssigned has no delivery status of its own and is announced
// with the generic update notification.
const orderTransporterAssigned domain.OrderStatus = "transporter_assigned"

type OrderServiceImpl struct {
	orderRepo   repository.OrderRepository
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	profileRepo repository.ProfileRepository
	notifier    NotificationService
	publisher   realtime.EventPublisher
	now         func() time.Time
}

func CreateOrderService(orderRepo repository.OrderRepository, cartRepo repository.CartRepository, productRepo repository.ProductRepository, profileRepo repository.ProfileRepository, notifier NotificationService, publisher realtime.EventPublisher) OrderService {
	return &OrderServiceImpl{
		orderRepo:   orderRepo,
		cartRepo:    cartRepo,
		productRepo: productRepo,
		profileRepo: profileRepo,
		notifier:    notifier,
		publisher:   publisher,
		now:         time.Now,
	}
}

func orderTitle(items []domain.CartItem) string {
	if len(items) == 1 {
		return items[0].Title
	}
	return fmt.Sprintf("%s and %d more", items[0].Title, len(items)-1)
}

func (s *OrderServiceImpl) releaseStock(ctx context.Context, items []domain.CartItem) {
	for _, item := range items {
		if _, err := s.productRepo.AdjustStock(ctx, item.ProductID, item.Quantity); err != nil {
			log.Ctx(ctx).Error().Err(err).Str("component", "releaseStock").Str("product_id", item.ProductID).Msg("")
		}
	}
}

func (s *OrderServiceImpl) reserveStock(ctx context.Context, items []domain.CartItem) (priced []domain.CartItem, err error) {
	var reserved []domain.CartItem
	for _, item := range items {
		updated, err := s.productRepo.AdjustStock(ctx, item.ProductID, -item.Quantity)
		if err != nil || !updated {
			s.releaseStock(ctx, reserved)
			if err != nil {
				return nil, err
			}
			return nil, errs.ErrInsufficientStock
		}
		reserved = append(reserved, item)

		// Orders are priced at the current catalog price, not the price seen
		// when the item went into the cart.
		product, err := s.productRepo.GetProductByID(ctx, item.ProductID)
		if err != nil {
			s.releaseStock(ctx, reserved)
			return nil, err
		}

		if !product.ID.IsZero() && product.Price != item.Price {
			log.Ctx(ctx).Info().Str("component", "Checkout").Str("product_id", item.ProductID).Float64("cart_price", item.Price).Float64("price", product.Price).Msg("cart price refreshed")
			item.Price = product.Price
		}
		priced = append(priced, item)
	}
	return priced, nil
}

// announce notifies the given users and publishes the new order image.
func (s *OrderServiceImpl) announce(ctx context.Context, order domain.Order, changeType string, status domain.OrderStatus, userIDs ...int64) {
	for _, userID := range userIDs {
		if err := s.notifier.EmitOrderStatus(ctx, userID, order.ID, order.Title, status); err != nil {
			log.Ctx(ctx).Error().Err(err).Str("component", "announce").Msg("")
		}
	}

	if err := s.publisher.PublishOrderChange(ctx, changeType, order); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "announce").Msg("")
	}
}

// Checkout turns the cart into one pending order per trader.
func (s *OrderServiceImpl) Checkout(ctx context.Context, req dto.CheckoutRequest) (orders []dto.OrderResponse, err error) {
	if req.ShippingAddress == "" {
		return nil, errs.ErrClient
	}

	items, err := s.cartRepo.GetCartItems(ctx, req.UserID)
	if err != nil {
		return
	}

	if len(items) == 0 {
		return nil, errs.ErrCartEmpty
	}

	items, err = s.reserveStock(ctx, items)
	if err != nil {
		return nil, err
	}

	cart := domain.Cart{Items: items}
	traderIDs, groups := cart.GroupByTrader()

	now := s.now()
	created := make([]domain.Order, 0, len(traderIDs))
	for _, traderID := range traderIDs {
		group := groups[traderID]
		created = append(created, domain.Order{
			ID:              uuid.NewString(),
			BuyerID:         req.UserID,
			TraderID:        traderID,
			Title:           orderTitle(group),
			Amount:          domain.Cart{Items: group}.Total(),
			Status:          domain.OrderStatusPending,
			PaymentStatus:   domain.PaymentStatusPending,
			ShippingAddress: req.ShippingAddress,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	}

	err = s.orderRepo.HandleTrx(ctx, func(ctx context.Context, repo repository.OrderRepository) error {
		for _, order := range created {
			if err := repo.AddOrder(ctx, order); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.releaseStock(ctx, items)
		return nil, err
	}

	if err := s.cartRepo.ClearCart(ctx, req.UserID); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "Checkout").Msg("")
	}

	for _, order := range created {
		s.announce(ctx, order, realtime.EventInsert, order.Status, order.BuyerID, order.TraderID)
		orders = append(orders, dto.NewOrderResponse(order))
	}

	return orders, nil
}

func (s *OrderServiceImpl) GetOrders(ctx context.Context, user utils.TokenUser, filter pkgdto.Filter) (resp pkgdto.PaginationResponse, err error) {
	filter.Normalize()
	role := domain.Role(user.Role)

	data, err := s.orderRepo.GetOrdersByUser(ctx, user.UserID, role, filter)
	if err != nil {
		return
	}

	count, err := s.orderRepo.CountOrdersByUser(ctx, user.UserID, role, filter)
	if err != nil {
		return
	}

	records := make([]dto.OrderResponse, 0, len(data))
	for _, order := range data {
		records = append(records, dto.NewOrderResponse(order))
	}

	resp.Records = records
	resp.Metadata = pkgdto.PaginationMetadata{
		TotalCount: count,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}

	return
}

// visibleOrder loads an order the user takes part in. Admins see every order.
func (s *OrderServiceImpl) visibleOrder(ctx context.Context, user utils.TokenUser, orderID string) (order domain.Order, err error) {
	if _, err = uuid.Parse(orderID); err != nil {
		return order, errs.ErrNotFound
	}

	order, err = s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		return
	}

	if order.ID == "" {
		return order, errs.ErrNotFound
	}

	if domain.Role(user.Role) != domain.RoleAdmin && !order.InvolvesUser(user.UserID) {
		return order, errs.ErrUnauthorized
	}

	return order, nil
}

func (s *OrderServiceImpl) GetOrder(ctx context.Context, user utils.TokenUser, orderID string) (resp dto.OrderResponse, err error) {
	order, err := s.visibleOrder(ctx, user, orderID)
	if err != nil {
		return
	}

	return dto.NewOrderResponse(order), nil
}

func (s *OrderServiceImpl) reload(ctx context.Context, orderID string) (order domain.Order, err error) {
	order, err = s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		return
	}

	if order.ID == "" {
		return order, errs.ErrNotFound
	}

	return order, nil
}

func (s *OrderServiceImpl) AssignTransporter(ctx context.Context, req dto.AssignTransporterRequest) (resp dto.OrderResponse, err error) {
	if req.TransporterID == 0 {
		return resp, errs.ErrClient
	}

	user := utils.TokenUser{UserID: req.UserID, Role: req.Role}
	order, err := s.visibleOrder(ctx, user, req.OrderID)
	if err != nil {
		return
	}

	if domain.Role(req.Role) != domain.RoleAdmin && order.TraderID != req.UserID {
		return resp, errs.ErrUnauthorized
	}

	transporter, err := s.profileRepo.GetProfileByID(ctx, req.TransporterID)
	if err != nil {
		return
	}

	if !transporter.Active() || transporter.Role != domain.RoleTransporter {
		return resp, errs.ErrClient
	}

	updated, err := s.orderRepo.AssignTransporter(ctx, order.ID, req.TransporterID)
	if err != nil {
		return
	}

	if !updated {
		return resp, errs.ErrInvalidStatusTransition
	}

	order, err = s.reload(ctx, order.ID)
	if err != nil {
		return
	}

	s.announce(ctx, order, realtime.EventUpdate, orderTransporterAssigned, order.BuyerID, req.TransporterID)

	return dto.NewOrderResponse(order), nil
}

// transition moves the order along the delivery table, guarding against a
// concurrent change of the current status.
func (s *OrderServiceImpl) transition(ctx context.Context, order domain.Order, next domain.OrderStatus) (domain.Order, error) {
	if !order.Status.CanTransitionTo(next) {
		return order, errs.ErrInvalidStatusTransition
	}

	updated, err := s.orderRepo.UpdateOrderStatus(ctx, order.ID, order.Status, next)
	if err != nil {
		return order, err
	}

	if !updated {
		return order, errs.ErrConflict
	}

	order, err = s.reload(ctx, order.ID)
	if err != nil {
		return order, err
	}

	s.announce(ctx, order, realtime.EventUpdate, next, order.BuyerID)

	return order, nil
}

func (s *OrderServiceImpl) UpdateOrderStatus(ctx context.Context, req dto.UpdateOrderStatusRequest) (resp dto.OrderResponse, err error) {
	next := domain.OrderStatus(req.Status)
	if next == "" {
		return resp, errs.ErrClient
	}

	user := utils.TokenUser{UserID: req.UserID, Role: req.Role}
	order, err := s.visibleOrder(ctx, user, req.OrderID)
	if err != nil {
		return
	}

	switch domain.Role(req.Role) {
	case domain.RoleAdmin:
	case domain.RoleTrader, domain.RoleWholesaler:
		if order.TraderID != req.UserID {
			return resp, errs.ErrUnauthorized
		}
	case domain.RoleTransporter:
		if order.TransporterID == nil || *order.TransporterID != req.UserID {
			return resp, errs.ErrUnauthorized
		}
	default:
		return resp, errs.ErrUnauthorized
	}

	if next == domain.OrderStatusInTransit && order.TransporterID == nil {
		return resp, errs.ErrInvalidStatusTransition
	}

	order, err = s.transition(ctx, order, next)
	if err != nil {
		return
	}

	return dto.NewOrderResponse(order), nil
}

// CancelOrder lets the buyer cancel an unpaid order. Admins may also cancel
// confirmed orders.
func (s *OrderServiceImpl) CancelOrder(ctx context.Context, user utils.TokenUser, orderID string) (resp dto.OrderResponse, err error) {
	order, err := s.visibleOrder(ctx, user, orderID)
	if err != nil {
		return
	}

	if domain.Role(user.Role) != domain.RoleAdmin {
		if order.BuyerID != user.UserID {
			return resp, errs.ErrUnauthorized
		}
		if order.PaymentStatus == domain.PaymentStatusPaid {
			return resp, errs.ErrOrderAlreadyPaid
		}
	}

	order, err = s.transition(ctx, order, domain.OrderStatusCancelled)
	if err != nil {
		return
	}

	return dto.NewOrderResponse(order), nil
}

var exportHeader = []string{"id", "title", "amount", "status", "payment_status", "buyer_id", "trader_id", "transporter_id", "shipping_address", "created_at"}

func (s *OrderServiceImpl) ExportOrders(ctx context.Context, user utils.TokenUser, format string, w io.Writer) (err error) {
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "json" {
		return errs.ErrClient
	}

	data, err := s.orderRepo.GetOrdersByUser(ctx, user.UserID, domain.Role(user.Role), pkgdto.Filter{})
	if err != nil {
		return
	}

	if format == "json" {
		records := make([]dto.OrderResponse, 0, len(data))
		for _, order := range data {
			records = append(records, dto.NewOrderResponse(order))
		}
		return json.NewEncoder(w).Encode(records)
	}

	writer := csv.NewWriter(w)
	if err = writer.Write(exportHeader); err != nil {
		return
	}

	for _, order := range data {
		transporter := ""
		if order.TransporterID != nil {
			transporter = strconv.FormatInt(*order.TransporterID, 10)
		}

		err = writer.Write([]string{
			order.ID,
			order.Title,
			strconv.FormatFloat(order.Amount, 'f', 2, 64),
			string(order.Status),
			string(order.PaymentStatus),
			strconv.FormatInt(order.BuyerID, 10),
			strconv.FormatInt(order.TraderID, 10),
			transporter,
			order.ShippingAddress,
			order.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return
		}
	}

	writer.Flush()
	return writer.Error()
}
