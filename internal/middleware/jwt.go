package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// JWT validates the bearer token. EventSource clients cannot send headers,
// so a token query parameter is accepted as well.
func JWT(secret string) echo.MiddlewareFunc {
	return middleware.JWTWithConfig(middleware.JWTConfig{
		SigningKey:  []byte(secret),
		TokenLookup: "header:" + echo.HeaderAuthorization + ",query:token",
		ErrorHandlerWithContext: func(err error, c echo.Context) error {
			errorResponse := map[string]interface{}{
				"status":  "error",
				"message": "Invalid or expired JWT",
				"errors":  nil,
			}
			return c.JSON(http.StatusUnauthorized, errorResponse)
		},
	})
}
