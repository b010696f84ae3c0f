package controller

import (
	"net/http"

	"github.com/adaze/marketplace-api/internal/domain"
	"github.com/adaze/marketplace-api/internal/dto"
	"github.com/adaze/marketplace-api/internal/service"
	"github.com/adaze/marketplace-api/pkg/response"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

type PaymentController struct {
	service service.PaymentService
}

func CreatePaymentController(e *echo.Group, service service.PaymentService, guard Guard) {
	c := PaymentController{
		service: service,
	}

	e.POST("/payments/mpesa/initiate", c.InitiateMpesaPayment, guard(domain.PermPay))
	e.POST("/payments/mpesa/callback", c.MpesaCallback)
	e.GET("/payments/mpesa/status", c.GetPaymentStatus, guard(domain.PermViewPayments))
	e.POST("/payments/card", c.PayWithCard, guard(domain.PermPay))
}

func (c *PaymentController) InitiateMpesaPayment(e echo.Context) error {
	user, err := currentUser(e)
	if err != nil {
		return unauthenticated(e)
	}

	payload := dto.InitiatePaymentRequest{}
	err = e.Bind(&payload)
	if err != nil {
		log.Ctx(e.Request().Context()).Error().Err(err).Str("component", "InitiateMpesaPayment").Msg("")
	}

	payload.UserID = user.UserID
	payload.Role = user.Role

	resp, err := c.service.InitiateMpesaPayment(e.Request().Context(), payload)
	if err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteSuccessResponse(e, "STK push sent", resp)
}

// MpesaCallback always answers 200; the ack body tells Daraja whether to redeliver.
func (c *PaymentController) MpesaCallback(e echo.Context) error {
	payload := dto.MpesaCallbackPayload{}
	if err := e.Bind(&payload); err != nil {
		log.Ctx(e.Request().Context()).Error().Err(err).Str("component", "MpesaCallback").Msg("")
		return e.JSON(http.StatusOK, dto.RejectCallback("Invalid callback payload"))
	}

	return e.JSON(http.StatusOK, c.service.HandleMpesaCallback(e.Request().Context(), payload))
}

func (c *PaymentController) GetPaymentStatus(e echo.Context) error {
	user, err := currentUser(e)
	if err != nil {
		return unauthenticated(e)
	}

	resp, err := c.service.GetPaymentStatus(e.Request().Context(), user, e.QueryParam("checkoutRequestId"))
	if err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteSuccessResponse(e, "", resp)
}

func (c *PaymentController) PayWithCard(e echo.Context) error {
	user, err := currentUser(e)
	if err != nil {
		return unauthenticated(e)
	}

	payload := dto.CardPaymentRequest{}
	err = e.Bind(&payload)
	if err != nil {
		log.Ctx(e.Request().Context()).Error().Err(err).Str("component", "PayWithCard").Msg("")
	}

	payload.UserID = user.UserID
	payload.Role = user.Role

	resp, err := c.service.PayWithCard(e.Request().Context(), payload)
	if err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteSuccessResponse(e, "", resp)
}
