package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

const identityContextKey = "taskman.identity"

// RequireAuth gates every protected route. A request without a bearer token
// is rejected with 401; a request whose token fails verification with 403.
// On success the decoded identity is attached to the echo context for
// downstream handlers.
func RequireAuth(auth Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := bearerTokenFromHeader(c.Request().Header)
			if err != nil {
				if errors.Is(err, errMissingAuthorization) {
					return c.JSON(http.StatusUnauthorized, errorResponse{Error: "Unauthorized"})
				}
				return c.JSON(http.StatusForbidden, errorResponse{Error: "Forbidden"})
			}
			ident, err := auth.IdentityFromToken(token)
			if err != nil {
				return c.JSON(http.StatusForbidden, errorResponse{Error: "Forbidden"})
			}
			c.Set(identityContextKey, ident)
			return next(c)
		}
	}
}

// IdentityFrom returns the identity attached by RequireAuth.
func IdentityFrom(c echo.Context) (Identity, bool) {
	ident, ok := c.Get(identityContextKey).(Identity)
	return ident, ok
}
