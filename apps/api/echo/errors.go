package echoapi

import (
	"fmt"
	"net/http"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(
	logger core.Logger,
	translator ut.Translator,
	debug bool,
	signalShutdown func(),
) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		// already handled (e.g. by the request logger)
		if ctx.Response().Committed {
			return
		}

		code, message := errorStatus(err, translator)
		if code == http.StatusInternalServerError {
			// the stack trace goes to the console in debug only; err itself is always reported
			usr, _ := getContextUser(ctx)
			if debug {
				logger.Error(fmt.Sprintf("%s %s: %+v", ctx.Request().Method, ctx.Path(), err), err, usr)
			} else {
				logger.Error(fmt.Sprintf("%s %s: %s", ctx.Request().Method, ctx.Path(), message), err, usr)
			}
			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		// Send response
		if ctx.Request().Method == http.MethodHead { // Issue #608
			err = ctx.NoContent(code)
		} else {
			err = ctx.JSON(code, errorResponse{Success: false, Error: message})
		}
		if err != nil {
			ctx.Echo().Logger.Error(err)
		}
	}
}

// errorStatus maps err to a status code and a client-safe message.
func errorStatus(err error, translator ut.Translator) (int, string) {
	switch origErr := errors.Cause(err).(type) {
	case *core.InvalidIDError:
		return http.StatusNotFound, origErr.Error()
	case *core.NotFoundError:
		return http.StatusNotFound, origErr.Error()
	case *core.DuplicateKeyError:
		return http.StatusBadRequest, origErr.Error()
	case validator.ValidationErrors:
		return http.StatusBadRequest, strings.Join(core.TranslateErrors(origErr, translator), ", ")
	case *core.ValidationError:
		return http.StatusBadRequest, origErr.Error()
	case *echo.HTTPError:
		if origErr.Internal != nil {
			if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
				origErr = herr
			}
		}
		if msg, ok := origErr.Message.(string); ok {
			return origErr.Code, msg
		}
		return origErr.Code, http.StatusText(origErr.Code)
	}
	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
}
