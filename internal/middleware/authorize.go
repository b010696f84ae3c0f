package middleware

import (
	"github.com/adaze/marketplace-api/internal/domain"
	"github.com/adaze/marketplace-api/internal/repository"
	"github.com/adaze/marketplace-api/pkg/errs"
	"github.com/adaze/marketplace-api/pkg/response"
	"github.com/adaze/marketplace-api/pkg/utils"
	"github.com/labstack/echo/v4"
)

const tokenUserKey = "token_user"

// Authorize admits requests whose profile is active and whose stored role
// grants perm. An empty perm only requires an active profile. It must run
// after the JWT middleware.
func Authorize(profileRepo repository.ProfileRepository, perm domain.Permission) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, ok := utils.ExtractTokenUser(c)
			if !ok {
				return response.WriteErrorResponse(c, errs.ErrNotLoggedIn, nil)
			}

			profile, err := profileRepo.GetProfileByID(c.Request().Context(), user.UserID)
			if err != nil {
				return response.WriteErrorResponse(c, err, nil)
			}

			if profile.ID == 0 || profile.DeletedAt != nil {
				return response.WriteErrorResponse(c, errs.ErrNotLoggedIn, nil)
			}

			if profile.Suspended {
				return response.WriteErrorResponse(c, errs.ErrAccountSuspended, nil)
			}

			if perm != "" && !profile.Role.Can(perm) {
				return response.WriteErrorResponse(c, errs.ErrUnauthorized, nil)
			}

			// role changes take effect without a new token
			user.Role = string(profile.Role)
			c.Set(tokenUserKey, user)

			return next(c)
		}
	}
}

// CurrentUser returns the identity stored by Authorize.
func CurrentUser(c echo.Context) (user utils.TokenUser, ok bool) {
	user, ok = c.Get(tokenUserKey).(utils.TokenUser)
	return
}
