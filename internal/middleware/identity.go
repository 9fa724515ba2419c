package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const userIDKey = "user_id"

// UserID returns the authenticated user id set by JWTAuth or OptionalJWT.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(userIDKey).(uint64)
	return id, ok && id != 0
}

// Viewer returns the caller as the optional viewer argument of the query
// engine: nil for anonymous requests.
func Viewer(c echo.Context) *uint64 {
	if id, ok := UserID(c); ok {
		return &id
	}
	return nil
}

// rateSubject identifies the caller for rate limiting keys.
func rateSubject(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
