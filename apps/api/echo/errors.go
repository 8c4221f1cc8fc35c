package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/vidyaverse/core"
	"github.com/trezcool/vidyaverse/core/school"
)

var (
	errUnauthorized  = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errHttpForbidden = echo.NewHTTPError(http.StatusForbidden, "permission denied")
)

type (
	overpaymentResponse struct {
		Error       string `json:"error"`
		Outstanding string `json:"outstanding"`
		TotalFees   string `json:"total_fees"`
	}

	batchItemResponse struct {
		ID    string `json:"id"`
		Error string `json:"error"`
	}

	partialBatchResponse struct {
		Error     string              `json:"error"`
		Succeeded []string            `json:"succeeded"`
		Failed    []batchItemResponse `json:"failed"`
	}
)

func fieldErrors(flds []core.FieldError) map[string]string {
	fldErrs := make(map[string]string, len(flds))
	for _, fErr := range flds {
		fldErrs[fErr.Field] = fErr.Error
	}
	return fldErrs
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
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
				message = fieldErrors(origErr.Fields)
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		case *core.OverpaymentError:
			code = http.StatusUnprocessableEntity
			message = overpaymentResponse{
				Error:       origErr.Error(),
				Outstanding: origErr.Outstanding.StringFixed(2),
				TotalFees:   origErr.TotalFees.StringFixed(2),
			}
		case *core.ConflictError:
			code = http.StatusConflict
			message = origErr.Error()
		case *core.PartialBatchFailure:
			resp := partialBatchResponse{Error: origErr.Error(), Succeeded: origErr.Succeeded}
			if resp.Succeeded == nil {
				resp.Succeeded = []string{}
			}
			for _, f := range origErr.Failed {
				resp.Failed = append(resp.Failed, batchItemResponse{ID: f.ID, Error: f.Err.Error()})
			}
			code = http.StatusMultiStatus
			message = resp
		case *core.UpstreamUnavailable:
			code = http.StatusServiceUnavailable
			message = http.StatusText(http.StatusServiceUnavailable)
			logger.Warn(origErr.Error(), err, contextPerson(ctx))
		default:
			if origErr == school.ErrStudentNotFound || origErr == school.ErrClassNotFound {
				code = http.StatusNotFound
				message = origErr.Error()
				break
			}

			// any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg
			logger.Error(msg, errors.Wrap(err, msg), contextPerson(ctx))

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if m, ok := message.(string); ok {
			if ctx.Echo().Debug {
				m = err.Error()
			}
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
