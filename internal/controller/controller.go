package controller

import (
	"github.com/adaze/marketplace-api/internal/domain"
	"github.com/adaze/marketplace-api/internal/middleware"
	"github.com/adaze/marketplace-api/pkg/errs"
	"github.com/adaze/marketplace-api/pkg/response"
	"github.com/adaze/marketplace-api/pkg/utils"
	"github.com/labstack/echo/v4"
)

// Guard builds the middleware chain that authenticates a request and checks perm.
type Guard func(perm domain.Permission) echo.MiddlewareFunc

func currentUser(e echo.Context) (utils.TokenUser, error) {
	user, ok := middleware.CurrentUser(e)
	if !ok {
		return user, errs.ErrNotLoggedIn
	}
	return user, nil
}

func unauthenticated(e echo.Context) error {
	return response.WriteErrorResponse(e, errs.ErrNotLoggedIn, nil)
}
