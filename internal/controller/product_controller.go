package controller

import (
	"github.com/adaze/marketplace-api/internal/domain"
	"github.com/adaze/marketplace-api/internal/dto"
	"github.com/adaze/marketplace-api/internal/service"
	"github.com/adaze/marketplace-api/pkg/response"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

type ProductController struct {
	service service.ProductService
}

func CreateProductController(e *echo.Group, service service.ProductService, guard Guard) {
	c := ProductController{
		service: service,
	}

	e.GET("/products", c.GetProducts)
	e.POST("/products", c.AddProduct, guard(domain.PermManageProducts))
}

func (c *ProductController) AddProduct(e echo.Context) error {
	user, err := currentUser(e)
	if err != nil {
		return unauthenticated(e)
	}

	payload := dto.ProductRequest{}
	err = e.Bind(&payload)
	if err != nil {
		log.Ctx(e.Request().Context()).Error().Err(err).Str("component", "AddProduct").Msg("")
	}

	payload.TraderID = user.UserID

	resp, err := c.service.AddProduct(e.Request().Context(), payload)
	if err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteCreatedResponse(e, "", resp)
}

func (c *ProductController) GetProducts(e echo.Context) error {
	filter := dto.ProductFilter{}
	err := e.Bind(&filter)
	if err != nil {
		log.Ctx(e.Request().Context()).Error().Err(err).Str("component", "GetProducts").Msg("")
	}

	resp, err := c.service.GetProducts(e.Request().Context(), filter)
	if err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteSuccessResponse(e, "", resp)
}
