// Package handler contains the HTTP handlers of the API.  Handlers
// bind and validate input, run repository calls under a bounded
// context, and map sentinel errors to HTTP status codes.
package handler

import (
	"errors"

	"github.com/labstack/echo/v4"
)

var errNoUser = errors.New("no authenticated user in context")

// getUserID extracts the authenticated user ID that the JWT middleware
// stored in the context.
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	if id, ok := v.(uint64); ok && id > 0 {
		return id, nil
	}
	return 0, errNoUser
}
