package controller

import (
	"strconv"

	"github.com/adaze/marketplace-api/internal/domain"
	"github.com/adaze/marketplace-api/internal/dto"
	"github.com/adaze/marketplace-api/internal/service"
	pkgdto "github.com/adaze/marketplace-api/pkg/dto"
	"github.com/adaze/marketplace-api/pkg/errs"
	"github.com/adaze/marketplace-api/pkg/response"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

type UserController struct {
	service service.UserService
}

func CreateUserController(e *echo.Group, service service.UserService, guard Guard) {
	uc := UserController{
		service: service,
	}

	e.POST("/users/register", uc.Register)
	e.POST("/users/login", uc.Login)
	e.POST("/users/reactivate", uc.Reactivate)
	e.POST("/users/logout", uc.Logout, guard(""))
	e.GET("/users/me", uc.GetProfile, guard(""))
	e.PUT("/users/me/deactivate", uc.Deactivate, guard(""))
	e.DELETE("/users/me", uc.DeleteAccount, guard(""))
	e.GET("/users/me/logins", uc.GetLoginHistories, guard(""))
	e.GET("/users", uc.GetUsers, guard(domain.PermManageUsers))
	e.PUT("/users/:id/role", uc.UpdateRole, guard(domain.PermManageUsers))
}

func (c *UserController) Register(e echo.Context) error {
	payload := dto.UserRequest{}
	err := e.Bind(&payload)
	if err != nil {
		log.Ctx(e.Request().Context()).Error().Err(err).Str("component", "Register").Msg("")
	}

	resp, err := c.service.Register(e.Request().Context(), payload)
	if err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteCreatedResponse(e, "", resp)
}

func loginRequest(e echo.Context, component string) dto.LoginRequest {
	payload := dto.LoginRequest{}
	err := e.Bind(&payload)
	if err != nil {
		log.Ctx(e.Request().Context()).Error().Err(err).Str("component", component).Msg("")
	}

	payload.IPAddress = e.RealIP()
	payload.UserAgent = e.Request().UserAgent()

	return payload
}

func (c *UserController) Login(e echo.Context) error {
	resp, err := c.service.Login(e.Request().Context(), loginRequest(e, "Login"))
	if err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteSuccessResponse(e, "", resp)
}

func (c *UserController) Reactivate(e echo.Context) error {
	resp, err := c.service.Reactivate(e.Request().Context(), loginRequest(e, "Reactivate"))
	if err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteSuccessResponse(e, "account reactivated", resp)
}

func (c *UserController) Logout(e echo.Context) error {
	user, err := currentUser(e)
	if err != nil {
		return unauthenticated(e)
	}

	if err = c.service.Logout(e.Request().Context(), user.UserID); err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteSuccessResponse(e, "", nil)
}

func (c *UserController) GetProfile(e echo.Context) error {
	user, err := currentUser(e)
	if err != nil {
		return unauthenticated(e)
	}

	resp, err := c.service.GetProfile(e.Request().Context(), user.UserID)
	if err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteSuccessResponse(e, "", resp)
}

func (c *UserController) Deactivate(e echo.Context) error {
	user, err := currentUser(e)
	if err != nil {
		return unauthenticated(e)
	}

	if err = c.service.Deactivate(e.Request().Context(), user.UserID); err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteSuccessResponse(e, "account deactivated", nil)
}

func (c *UserController) DeleteAccount(e echo.Context) error {
	user, err := currentUser(e)
	if err != nil {
		return unauthenticated(e)
	}

	if err = c.service.DeleteAccount(e.Request().Context(), user.UserID); err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteSuccessResponse(e, "account deleted", nil)
}

func (c *UserController) GetLoginHistories(e echo.Context) error {
	user, err := currentUser(e)
	if err != nil {
		return unauthenticated(e)
	}

	resp, err := c.service.GetLoginHistories(e.Request().Context(), user.UserID)
	if err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteSuccessResponse(e, "", resp)
}

func (c *UserController) GetUsers(e echo.Context) error {
	payload := pkgdto.Filter{}
	err := e.Bind(&payload)
	if err != nil {
		log.Ctx(e.Request().Context()).Error().Err(err).Str("component", "GetUsers").Msg("")
	}

	resp, err := c.service.GetUsers(e.Request().Context(), payload)
	if err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteSuccessResponse(e, "", resp)
}

func (c *UserController) UpdateRole(e echo.Context) error {
	id, err := strconv.ParseInt(e.Param("id"), 10, 64)
	if err != nil {
		return response.WriteErrorResponse(e, errs.ErrClient, nil)
	}

	payload := dto.RoleUpdateRequest{}
	err = e.Bind(&payload)
	if err != nil {
		log.Ctx(e.Request().Context()).Error().Err(err).Str("component", "UpdateRole").Msg("")
	}

	if err = c.service.UpdateRole(e.Request().Context(), id, payload); err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteSuccessResponse(e, "", nil)
}
