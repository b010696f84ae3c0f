package controller

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/adaze/marketplace-api/internal/domain"
	"github.com/adaze/marketplace-api/internal/dto"
	"github.com/adaze/marketplace-api/internal/realtime"
	"github.com/adaze/marketplace-api/internal/service"
	pkgdto "github.com/adaze/marketplace-api/pkg/dto"
	"github.com/adaze/marketplace-api/pkg/response"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

const (
	streamBuffer    = 16
	streamHeartbeat = 15 * time.Second
)

type OrderController struct {
	service service.OrderService
	hub     *realtime.Hub
}

func CreateOrderController(e *echo.Group, service service.OrderService, hub *realtime.Hub, guard Guard) {
	c := OrderController{
		service: service,
		hub:     hub,
	}

	e.POST("/orders/checkout", c.Checkout, guard(domain.PermCheckout))
	e.GET("/orders", c.GetOrders, guard(domain.PermViewOrders))
	e.GET("/orders/export", c.ExportOrders, guard(domain.PermViewOrders))
	e.GET("/orders/stream", c.StreamOrders, guard(domain.PermViewOrders))
	e.GET("/orders/:id", c.GetOrder, guard(domain.PermViewOrders))
	e.PUT("/orders/:id/transporter", c.AssignTransporter, guard(domain.PermAssignTransporter))
	e.PUT("/orders/:id/status", c.UpdateOrderStatus, guard(domain.PermUpdateDelivery))
	e.PUT("/orders/:id/cancel", c.CancelOrder, guard(domain.PermCancelOrder))
}

func (c *OrderController) Checkout(e echo.Context) error {
	user, err := currentUser(e)
	if err != nil {
		return unauthenticated(e)
	}

	payload := dto.CheckoutRequest{}
	err = e.Bind(&payload)
	if err != nil {
		log.Ctx(e.Request().Context()).Error().Err(err).Str("component", "Checkout").Msg("")
	}

	payload.UserID = user.UserID

	resp, err := c.service.Checkout(e.Request().Context(), payload)
	if err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteCreatedResponse(e, "", resp)
}

func (c *OrderController) GetOrders(e echo.Context) error {
	user, err := currentUser(e)
	if err != nil {
		return unauthenticated(e)
	}

	filter := pkgdto.Filter{}
	err = e.Bind(&filter)
	if err != nil {
		log.Ctx(e.Request().Context()).Error().Err(err).Str("component", "GetOrders").Msg("")
	}

	resp, err := c.service.GetOrders(e.Request().Context(), user, filter)
	if err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteSuccessResponse(e, "successfuly retrieved orders record", resp)
}

func (c *OrderController) GetOrder(e echo.Context) error {
	user, err := currentUser(e)
	if err != nil {
		return unauthenticated(e)
	}

	resp, err := c.service.GetOrder(e.Request().Context(), user, e.Param("id"))
	if err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteSuccessResponse(e, "", resp)
}

func (c *OrderController) AssignTransporter(e echo.Context) error {
	user, err := currentUser(e)
	if err != nil {
		return unauthenticated(e)
	}

	payload := dto.AssignTransporterRequest{}
	err = e.Bind(&payload)
	if err != nil {
		log.Ctx(e.Request().Context()).Error().Err(err).Str("component", "AssignTransporter").Msg("")
	}

	payload.OrderID = e.Param("id")
	payload.UserID = user.UserID
	payload.Role = user.Role

	resp, err := c.service.AssignTransporter(e.Request().Context(), payload)
	if err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteSuccessResponse(e, "", resp)
}

func (c *OrderController) UpdateOrderStatus(e echo.Context) error {
	user, err := currentUser(e)
	if err != nil {
		return unauthenticated(e)
	}

	payload := dto.UpdateOrderStatusRequest{}
	err = e.Bind(&payload)
	if err != nil {
		log.Ctx(e.Request().Context()).Error().Err(err).Str("component", "UpdateOrderStatus").Msg("")
	}

	payload.OrderID = e.Param("id")
	payload.UserID = user.UserID
	payload.Role = user.Role

	resp, err := c.service.UpdateOrderStatus(e.Request().Context(), payload)
	if err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteSuccessResponse(e, "", resp)
}

func (c *OrderController) CancelOrder(e echo.Context) error {
	user, err := currentUser(e)
	if err != nil {
		return unauthenticated(e)
	}

	resp, err := c.service.CancelOrder(e.Request().Context(), user, e.Param("id"))
	if err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteSuccessResponse(e, "", resp)
}

func (c *OrderController) ExportOrders(e echo.Context) error {
	user, err := currentUser(e)
	if err != nil {
		return unauthenticated(e)
	}

	format := e.QueryParam("format")
	if format == "" {
		format = "csv"
	}

	var buf bytes.Buffer
	if err = c.service.ExportOrders(e.Request().Context(), user, format, &buf); err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	contentType := "text/csv"
	if format == "json" {
		contentType = echo.MIMEApplicationJSON
	}

	e.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=orders.%s", format))
	return e.Blob(http.StatusOK, contentType, buf.Bytes())
}

// StreamOrders pushes order changes to the client as server-sent events until
// the client disconnects. With orderId only that order is streamed; otherwise
// every order the caller takes part in, or all orders for admins.
func (c *OrderController) StreamOrders(e echo.Context) error {
	user, err := currentUser(e)
	if err != nil {
		return unauthenticated(e)
	}

	ctx := e.Request().Context()

	filter := realtime.ForUser(user.UserID)
	if domain.Role(user.Role) == domain.RoleAdmin {
		filter = func(realtime.ChangeEvent) bool { return true }
	}

	if orderID := e.QueryParam("orderId"); orderID != "" {
		if _, err = c.service.GetOrder(ctx, user, orderID); err != nil {
			return response.WriteErrorResponse(e, err, nil)
		}
		filter = realtime.ForOrder(orderID)
	}

	events := make(chan realtime.ChangeEvent, streamBuffer)
	failures := make(chan error, 1)

	sub := realtime.CreateSubscriber(c.hub)
	defer sub.Close()

	sub.Subscribe(realtime.TableOrders, filter,
		func(ev realtime.ChangeEvent) {
			select {
			case events <- ev:
			default:
				log.Ctx(ctx).Warn().Str("component", "StreamOrders").Str("order_id", ev.Record.ID).Msg("slow client, event dropped")
			}
		},
		func(err error) {
			select {
			case failures <- err:
			default:
			}
		},
	)

	res := e.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-heartbeat.C:
			fmt.Fprint(res, ": ping\n\n")
			res.Flush()
		case ev := <-events:
			if err := writeEvent(res, "order", ev); err != nil {
				log.Ctx(ctx).Error().Err(err).Str("component", "StreamOrders").Msg("")
				return nil
			}
		case err := <-failures:
			if werr := writeEvent(res, "error", map[string]string{"message": err.Error()}); werr != nil {
				return nil
			}
			if errors.Is(err, realtime.ErrHubClosed) {
				return nil
			}
		}
	}
}

func writeEvent(res *echo.Response, name string, data interface{}) error {
	body, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if _, err = fmt.Fprintf(res, "event: %s\ndata: %s\n\n", name, body); err != nil {
		return err
	}

	res.Flush()
	return nil
}
