package service

import (
	"context"
	"time"

	"github.com/adaze/marketplace-api/internal/domain"
	"github.com/adaze/marketplace-api/internal/dto"
	"github.com/adaze/marketplace-api/internal/repository"
	"github.com/adaze/marketplace-api/pkg/errs"
)

type CartServiceImpl struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	now         func() time.Time
}

func CreateCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository) CartService {
	return &CartServiceImpl{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		now:         time.Now,
	}
}

func toCartResponse(items []domain.CartItem) dto.CartResponse {
	cart := domain.Cart{Items: items}
	resp := dto.CartResponse{
		Items:     make([]dto.CartItemResponse, 0, len(items)),
		ItemCount: cart.ItemCount(),
		Total:     cart.Total(),
	}

	for _, item := range items {
		resp.Items = append(resp.Items, dto.CartItemResponse{
			ProductID: item.ProductID,
			TraderID:  item.TraderID,
			Title:     item.Title,
			Price:     item.Price,
			Quantity:  item.Quantity,
			Subtotal:  item.Subtotal(),
		})
	}

	return resp
}

func (s *CartServiceImpl) GetCart(ctx context.Context, userID int64) (resp dto.CartResponse, err error) {
	items, err := s.cartRepo.GetCartItems(ctx, userID)
	if err != nil {
		return
	}

	return toCartResponse(items), nil
}

// store writes the line with an absolute quantity after checking the catalog.
func (s *CartServiceImpl) store(ctx context.Context, userID int64, productID string, quantity int, existing domain.CartItem) (err error) {
	product, err := s.productRepo.GetProductByID(ctx, productID)
	if err != nil {
		return
	}

	if product.ID.IsZero() {
		return errs.ErrNotFound
	}

	if product.TraderID == userID {
		return errs.ErrClient
	}

	if quantity > product.Quantity {
		return errs.ErrInsufficientStock
	}

	now := s.now()
	item := domain.CartItem{
		ProfileID: userID,
		ProductID: productID,
		TraderID:  product.TraderID,
		Title:     product.Title,
		Price:     product.Price,
		Quantity:  quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if existing.ProductID != "" {
		item.CreatedAt = existing.CreatedAt
	}

	return s.cartRepo.UpsertCartItem(ctx, item)
}

// AddItem merges the requested quantity into any existing line.
func (s *CartServiceImpl) AddItem(ctx context.Context, req dto.CartItemRequest) (resp dto.CartResponse, err error) {
	if req.ProductID == "" || req.Quantity <= 0 {
		return resp, errs.ErrClient
	}

	existing, err := s.cartRepo.GetCartItem(ctx, req.UserID, req.ProductID)
	if err != nil {
		return
	}

	if err = s.store(ctx, req.UserID, req.ProductID, existing.Quantity+req.Quantity, existing); err != nil {
		return
	}

	return s.GetCart(ctx, req.UserID)
}

// SetQuantity replaces the line quantity; zero removes the line.
func (s *CartServiceImpl) SetQuantity(ctx context.Context, req dto.CartItemRequest) (resp dto.CartResponse, err error) {
	if req.ProductID == "" || req.Quantity < 0 {
		return resp, errs.ErrClient
	}

	if req.Quantity == 0 {
		return s.RemoveItem(ctx, req.UserID, req.ProductID)
	}

	existing, err := s.cartRepo.GetCartItem(ctx, req.UserID, req.ProductID)
	if err != nil {
		return
	}

	if existing.ProductID == "" {
		return resp, errs.ErrNotFound
	}

	if err = s.store(ctx, req.UserID, req.ProductID, req.Quantity, existing); err != nil {
		return
	}

	return s.GetCart(ctx, req.UserID)
}

func (s *CartServiceImpl) RemoveItem(ctx context.Context, userID int64, productID string) (resp dto.CartResponse, err error) {
	if err = s.cartRepo.RemoveCartItem(ctx, userID, productID); err != nil {
		return
	}

	return s.GetCart(ctx, userID)
}

func (s *CartServiceImpl) ClearCart(ctx context.Context, userID int64) (err error) {
	return s.cartRepo.ClearCart(ctx, userID)
}
