package service

import (
	"context"
	"time"

	"github.com/adaze/marketplace-api/internal/domain"
	"github.com/adaze/marketplace-api/internal/dto"
	"github.com/adaze/marketplace-api/internal/repository"
	pkgdto "github.com/adaze/marketplace-api/pkg/dto"
	"github.com/adaze/marketplace-api/pkg/errs"
)

var productSorts = map[string]bool{
	"":           true,
	"newest":     true,
	"price_asc":  true,
	"price_desc": true,
}

type ProductServiceImpl struct {
	repo repository.ProductRepository
}

func CreateProductService(repo repository.ProductRepository) ProductService {
	return &ProductServiceImpl{repo: repo}
}

func toProductResponse(p domain.Product) dto.ProductResponse {
	images := p.Images
	if images == nil {
		images = []string{}
	}

	return dto.ProductResponse{
		ID:          p.ID.Hex(),
		TraderID:    p.TraderID,
		Title:       p.Title,
		Description: p.Description,
		Category:    p.Category,
		Condition:   p.Condition,
		Price:       p.Price,
		Quantity:    p.Quantity,
		Images:      images,
		CreatedAt:   p.CreatedAt,
	}
}

func (s *ProductServiceImpl) AddProduct(ctx context.Context, req dto.ProductRequest) (resp dto.ProductResponse, err error) {
	if req.Title == "" || req.Price <= 0 || req.Quantity < 0 {
		return resp, errs.ErrClient
	}

	now := time.Now().UTC()
	product := domain.Product{
		TraderID:    req.TraderID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Condition:   req.Condition,
		Price:       req.Price,
		Quantity:    req.Quantity,
		Images:      req.Images,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	id, err := s.repo.AddProduct(ctx, product)
	if err != nil {
		return
	}

	resp = toProductResponse(product)
	resp.ID = id

	return resp, nil
}

func (s *ProductServiceImpl) GetProducts(ctx context.Context, filter dto.ProductFilter) (resp pkgdto.PaginationResponse, err error) {
	if !productSorts[filter.Sort] {
		return resp, errs.ErrClient
	}

	if filter.MinPrice < 0 || filter.MaxPrice < 0 || (filter.MaxPrice > 0 && filter.MinPrice > filter.MaxPrice) {
		return resp, errs.ErrClient
	}

	page := pkgdto.Filter{Page: filter.Page, Limit: filter.Limit}
	page.Normalize()
	filter.Page, filter.Limit = page.Page, page.Limit

	data, err := s.repo.GetProducts(ctx, filter)
	if err != nil {
		return
	}

	count, err := s.repo.CountProducts(ctx, filter)
	if err != nil {
		return
	}

	records := make([]dto.ProductResponse, 0, len(data))
	for _, product := range data {
		records = append(records, toProductResponse(product))
	}

	resp.Records = records
	resp.Metadata = pkgdto.PaginationMetadata{
		TotalCount: count,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}

	return
}
