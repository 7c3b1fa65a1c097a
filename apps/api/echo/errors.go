package echoapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/included-edu/included/core"
	"github.com/included-edu/included/core/course"
	"github.com/included-edu/included/core/extract"
	"github.com/included-edu/included/core/generate"
)

// statusClientClosedRequest is used when the client went away before the response was ready.
const statusClientClosedRequest = 499

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errPayloadTooLarge      = echo.NewHTTPError(http.StatusRequestEntityTooLarge, "syllabus file is too large")
)

type kindResponse struct {
	status int
	code   string
}

// kindResponses maps the pipeline failure kinds to their HTTP status and code.
var kindResponses = map[error]kindResponse{
	course.ErrForbidden:              {http.StatusForbidden, "forbidden"},
	extract.ErrUnsupportedFormat:     {http.StatusUnsupportedMediaType, "unsupported_format"},
	extract.ErrExtractionFailure:     {http.StatusUnprocessableEntity, "extraction_failure"},
	extract.ErrDocumentTooLarge:      {http.StatusRequestEntityTooLarge, "payload_too_large"},
	generate.ErrGenerationFailure:    {http.StatusBadGateway, "generation_failure"},
	generate.ErrSchemaViolation:      {http.StatusFailedDependency, "schema_violation"},
	course.ErrOwnerNotFound:          {http.StatusForbidden, "owner_not_found"},
	course.ErrPersistenceFailure:     {http.StatusInternalServerError, "persistence_failure"},
	course.ErrNotFoundOrUnauthorized: {http.StatusNotFound, "not_found"},
}

var statusCodes = map[int]string{
	http.StatusBadRequest:            "invalid_input",
	http.StatusRequestEntityTooLarge: "payload_too_large",
	statusClientClosedRequest:        "client_closed_request",
}

func codeForStatus(status int) string {
	if code, ok := statusCodes[status]; ok {
		return code
	}
	return strings.ReplaceAll(strings.ToLower(http.StatusText(status)), " ", "_")
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code   string            `json:"code"`
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var status int
		var res ErrorResponse

		if errors.Is(err, context.Canceled) {
			status = statusClientClosedRequest
			res.Code, res.Error = codeForStatus(status), "request cancelled"
			logger.Info(fmt.Sprintf("%s %s: %v", ctx.Request().Method, ctx.Path(), err), contextIdentity(ctx))
		} else if kind := core.ErrorKind(err); kind != nil {
			kr, ok := kindResponses[kind]
			if !ok {
				kr = kindResponse{http.StatusInternalServerError, "internal_error"}
			}
			status, res.Code, res.Error = kr.status, kr.code, kind.Error()
			if status >= http.StatusInternalServerError {
				logger.Error(fmt.Sprintf("%s: %v", kr.code, err), err, contextIdentity(ctx))
			}
		} else {
			switch origErr := errors.Cause(err).(type) {
			case *echo.HTTPError:
				if origErr == middleware.ErrJWTMissing {
					status = http.StatusUnauthorized
					res.Error = fmt.Sprint(origErr.Message)
					break
				}
				if origErr.Internal != nil {
					if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
						origErr = herr
					}
				}
				status = origErr.Code
				res.Error = fmt.Sprint(origErr.Message)
			case validator.ValidationErrors:
				res.Fields = make(map[string]string, len(origErr))
				for _, vErr := range origErr {
					res.Fields[vErr.Field()] = vErr.Translate(translator)
				}
				status = http.StatusBadRequest
				res.Error = "invalid input"
			case *core.ValidationError:
				if origErr.Fields != nil {
					res.Fields = make(map[string]string, len(origErr.Fields))
					for _, fErr := range origErr.Fields {
						res.Fields[fErr.Field] = fErr.Error
					}
				}
				status = http.StatusBadRequest
				res.Error = "invalid input"
				if origErr.Err != nil && len(origErr.Fields) == 0 {
					res.Error = origErr.Error()
				}
			default: // any other error is a server error
				status = http.StatusInternalServerError
				res.Error = http.StatusText(http.StatusInternalServerError)
				logger.Error(res.Error, errors.Wrap(err, res.Error), contextIdentity(ctx))

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
			res.Code = codeForStatus(status)
		}

		if ctx.Echo().Debug {
			res.Error = err.Error()
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(status)
			} else {
				err = ctx.JSON(status, res)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
