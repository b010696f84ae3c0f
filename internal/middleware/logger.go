package middleware

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// Logger tags every request with an id, reusing one supplied by a proxy,
// attaches a child logger to the request context and logs the outcome.
func Logger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()

		req := c.Request()
		requestID := req.Header.Get(echo.HeaderXRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Response().Header().Set(echo.HeaderXRequestID, requestID)

		logger := log.With().Str("request_id", requestID).Logger()
		c.SetRequest(req.WithContext(logger.WithContext(req.Context())))

		err := next(c)
		if err != nil {
			// c.Error writes the response, so the status logged below is final
			c.Error(err)
		}

		event := log.Ctx(c.Request().Context()).Info()
		if err != nil {
			event = log.Ctx(c.Request().Context()).Warn().Err(err)
		}

		event.
			Str("method", req.Method).
			Str("endpoint", c.Path()).
			Str("remote_ip", c.RealIP()).
			Int("status", c.Response().Status).
			Int64("latency", time.Since(start).Milliseconds()).
			Msg("Request processed")

		return nil
	}
}
