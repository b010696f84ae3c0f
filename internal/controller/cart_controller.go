package controller

import (
	"github.com/adaze/marketplace-api/internal/domain"
	"github.com/adaze/marketplace-api/internal/dto"
	"github.com/adaze/marketplace-api/internal/service"
	"github.com/adaze/marketplace-api/pkg/response"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

type CartController struct {
	service service.CartService
}

func CreateCartController(e *echo.Group, service service.CartService, guard Guard) {
	c := CartController{
		service: service,
	}

	g := e.Group("/cart", guard(domain.PermManageCart))
	g.GET("", c.GetCart)
	g.POST("/items", c.AddItem)
	g.PUT("/items/:productId", c.SetQuantity)
	g.DELETE("/items/:productId", c.RemoveItem)
	g.DELETE("", c.ClearCart)
}

func (c *CartController) GetCart(e echo.Context) error {
	user, err := currentUser(e)
	if err != nil {
		return unauthenticated(e)
	}

	resp, err := c.service.GetCart(e.Request().Context(), user.UserID)
	if err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteSuccessResponse(e, "", resp)
}

func (c *CartController) AddItem(e echo.Context) error {
	user, err := currentUser(e)
	if err != nil {
		return unauthenticated(e)
	}

	payload := dto.CartItemRequest{}
	err = e.Bind(&payload)
	if err != nil {
		log.Ctx(e.Request().Context()).Error().Err(err).Str("component", "AddItem").Msg("")
	}

	payload.UserID = user.UserID

	resp, err := c.service.AddItem(e.Request().Context(), payload)
	if err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteSuccessResponse(e, "", resp)
}

func (c *CartController) SetQuantity(e echo.Context) error {
	user, err := currentUser(e)
	if err != nil {
		return unauthenticated(e)
	}

	payload := dto.CartItemRequest{}
	err = e.Bind(&payload)
	if err != nil {
		log.Ctx(e.Request().Context()).Error().Err(err).Str("component", "SetQuantity").Msg("")
	}

	payload.ProductID = e.Param("productId")
	payload.UserID = user.UserID

	resp, err := c.service.SetQuantity(e.Request().Context(), payload)
	if err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteSuccessResponse(e, "", resp)
}

func (c *CartController) RemoveItem(e echo.Context) error {
	user, err := currentUser(e)
	if err != nil {
		return unauthenticated(e)
	}

	resp, err := c.service.RemoveItem(e.Request().Context(), user.UserID, e.Param("productId"))
	if err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteSuccessResponse(e, "", resp)
}

func (c *CartController) ClearCart(e echo.Context) error {
	user, err := currentUser(e)
	if err != nil {
		return unauthenticated(e)
	}

	if err = c.service.ClearCart(e.Request().Context(), user.UserID); err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteSuccessResponse(e, "", nil)
}
