package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/bala2006-m/smart-school-server-sub001/core"
	"github.com/bala2006-m/smart-school-server-sub001/core/attendance"
	"github.com/bala2006-m/smart-school-server-sub001/core/school"
	"github.com/bala2006-m/smart-school-server-sub001/core/tenant"
)

var (
	errUnauthorized      = echo.NewHTTPError(http.StatusUnauthorized, "device not authenticated")
	errHttpForbidden     = echo.NewHTTPError(http.StatusForbidden, "school_id does not match the device token")
	errMalformedSchoolID = echo.NewHTTPError(http.StatusBadRequest, "school_id must be an integer")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how
// to handle our errors. Every push failure below maps to a response meaning
// "nothing was applied"; partial application never happens.
// signalShutdown is called in order to gracefully shutdown the Server whenever
// a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default:
			switch origErr {
			case tenant.ErrUnknownTenant, school.ErrNotFound:
				code = http.StatusNotFound
				message = origErr.Error()
			case tenant.ErrStoreUnavailable:
				code = http.StatusServiceUnavailable
				message = origErr.Error()
			case attendance.ErrWriteFailed:
				code = http.StatusBadGateway
				message = origErr.Error()
			case school.ErrSchoolExists:
				code = http.StatusBadRequest
				message = origErr.Error()
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg

				args := []interface{}{errors.Wrap(err, msg)}
				if tc, cErr := getContextTenant(ctx); cErr == nil {
					args = append(args, tc)
				}
				logger.Error(msg, args...)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
