package middleware

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const HeaderRequestID = "X-Request-ID"

// RequestLogger assigns every request an ID (reusing a valid inbound
// X-Request-ID) and logs one line per request once it completes.  5xx
// responses log at error level and 4xx at warn.
func RequestLogger(log *logrus.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			rid := c.Request().Header.Get(HeaderRequestID)
			if _, err := uuid.Parse(rid); err != nil {
				rid = uuid.NewString()
			}
			c.Set("request_id", rid)
			c.Response().Header().Set(HeaderRequestID, rid)

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			entry := log.WithFields(logrus.Fields{
				"request_id": rid,
				"method":     c.Request().Method,
				"route":      c.Path(),
				"status":     status,
				"latency_ms": time.Since(start).Milliseconds(),
				"ip":         c.RealIP(),
				"user_id":    userID(c, ""),
			})
			if err != nil {
				entry = entry.WithError(err)
			}
			switch {
			case status >= 500:
				entry.Error("request failed")
			case status >= 400:
				entry.Warn("request rejected")
			default:
				entry.Info("request served")
			}
			return nil
		}
	}
}
