package controller

import (
	"strconv"

	"github.com/adaze/marketplace-api/internal/domain"
	"github.com/adaze/marketplace-api/internal/service"
	pkgdto "github.com/adaze/marketplace-api/pkg/dto"
	"github.com/adaze/marketplace-api/pkg/errs"
	"github.com/adaze/marketplace-api/pkg/response"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

type NotificationController struct {
	service service.NotificationService
}

func CreateNotificationController(e *echo.Group, service service.NotificationService, guard Guard) {
	c := NotificationController{
		service: service,
	}

	g := e.Group("/notifications", guard(domain.PermNotifications))
	g.GET("", c.GetNotifications)
	g.GET("/unread-count", c.CountUnread)
	g.PUT("/read-all", c.MarkAllAsRead)
	g.PUT("/:id/read", c.MarkAsRead)
}

func (c *NotificationController) GetNotifications(e echo.Context) error {
	user, err := currentUser(e)
	if err != nil {
		return unauthenticated(e)
	}

	filter := pkgdto.Filter{}
	err = e.Bind(&filter)
	if err != nil {
		log.Ctx(e.Request().Context()).Error().Err(err).Str("component", "GetNotifications").Msg("")
	}

	resp, err := c.service.GetNotifications(e.Request().Context(), user.UserID, filter)
	if err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteSuccessResponse(e, "", resp)
}

func (c *NotificationController) CountUnread(e echo.Context) error {
	user, err := currentUser(e)
	if err != nil {
		return unauthenticated(e)
	}

	count, err := c.service.CountUnread(e.Request().Context(), user.UserID)
	if err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteSuccessResponse(e, "", map[string]int64{"unread": count})
}

func (c *NotificationController) MarkAsRead(e echo.Context) error {
	user, err := currentUser(e)
	if err != nil {
		return unauthenticated(e)
	}

	id, err := strconv.ParseInt(e.Param("id"), 10, 64)
	if err != nil {
		return response.WriteErrorResponse(e, errs.ErrClient, nil)
	}

	if err = c.service.MarkAsRead(e.Request().Context(), id, user.UserID); err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteSuccessResponse(e, "", nil)
}

func (c *NotificationController) MarkAllAsRead(e echo.Context) error {
	user, err := currentUser(e)
	if err != nil {
		return unauthenticated(e)
	}

	if err = c.service.MarkAllAsRead(e.Request().Context(), user.UserID); err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteSuccessResponse(e, "", nil)
}
