package middleware

// identity.go holds helpers shared across middleware files for deriving a
// stable identifier for the current caller. Rate limit keys use it so that
// authenticated users are bucketed separately from anonymous traffic.

import (
	"encoding/json"
	"strconv"

	"github.com/labstack/echo/v4"
)

// currentUserID renders the "user_id" context value set by JWTAuth as a
// string. JSON decoding leaves numeric claims as float64 or json.Number, so
// both are handled. Unauthenticated requests map to "anon".
func currentUserID(c echo.Context) string {
	switch v := c.Get("user_id").(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return strconv.FormatUint(uint64(v), 10)
	case json.Number:
		return v.String()
	case uint64:
		return strconv.FormatUint(v, 10)
	case int64:
		return strconv.FormatInt(v, 10)
	}
	return "anon"
}
