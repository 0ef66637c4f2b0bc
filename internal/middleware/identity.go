package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// userID renders the authenticated user stored by JWTAuth as a key
// component, or anon when the request carries no identity.
func userID(c echo.Context, anon string) string {
	switch v := c.Get("user_id").(type) {
	case uint64:
		return strconv.FormatUint(v, 10)
	case float64:
		return strconv.FormatUint(uint64(v), 10)
	case string:
		if v != "" {
			return v
		}
	}
	return anon
}
