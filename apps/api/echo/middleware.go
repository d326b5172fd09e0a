package echoapi

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// tenantMiddleware rejects requests naming a school other than the one the
// device token is bound to. A request carrying no school_id param passes;
// handlers derive the tenant from the claims anyway.
func tenantMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}

			raw := ctx.Param("school_id")
			if raw == "" {
				raw = ctx.QueryParam("school_id")
			}
			if raw == "" {
				return next(ctx)
			}

			id, err := strconv.Atoi(raw)
			if err != nil {
				return errMalformedSchoolID
			}
			if id != claims.SchoolID {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}
