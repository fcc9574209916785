package errcodes

import (
	"context"
	"net/http"

	"github.com/iancoleman/strcase"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/errutils"
)

// Payload is the body of every error response.
type Payload struct {
	Error PayloadError `json:"error"`
}

type PayloadError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
}

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

// Handle is the echo error handler. Anything that isn't an *Error or an
// *echo.HTTPError becomes a logged 500.
func (h *Handler) Handle(err error, c echo.Context) {
	if errutils.IsIgnorableErr(err) {
		logger.FromEchoContext(c).Err(err).Warn("broken pipe")
		return
	}

	payload := toPayload(err)
	switch payload.Error.StatusCode {
	case http.StatusInternalServerError:
		logger.FromEchoContext(c).Err(err).Error("server error")
	case http.StatusGatewayTimeout:
		logger.FromEchoContext(c).Err(err).Warn("request timed out")
	}

	if c.Response().Committed {
		return
	}
	if err := c.JSON(payload.Error.StatusCode, payload); err != nil {
		logger.FromEchoContext(c).Err(errors.WithStack(err)).Error("error handler json error")
	}
}

func toPayload(err error) Payload {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		err = PayloadTooLarge(mbe.Limit)
	}

	var (
		custom *Error
		he     *echo.HTTPError
	)
	switch {
	case errors.As(err, &custom):
		return newPayload(custom.HTTPCode, custom.Code, custom.Message)
	case errors.As(err, &he):
		msg, ok := he.Message.(string)
		if !ok || msg == "" {
			msg = http.StatusText(he.Code)
		}
		return newPayload(he.Code, strcase.ToSnake(msg), msg)
	case errors.Is(err, context.DeadlineExceeded):
		return newPayload(http.StatusGatewayTimeout, "timeout", "The request took too long.")
	}
	return newPayload(http.StatusInternalServerError, "internal_server_error", "Internal Server Error")
}

func newPayload(status int, code, msg string) Payload {
	return Payload{Error: PayloadError{Code: code, Message: msg, StatusCode: status}}
}
