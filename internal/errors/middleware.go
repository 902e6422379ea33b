package errors

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPErrorsTotal tracks HTTP errors by type
	HTTPErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total HTTP errors by error type",
		},
		[]string{"type"},
	)
)

// Middleware returns an Echo middleware that converts errors returned by
// handlers into JSON responses with the right status code.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			// Echo's own HTTPErrors keep their status; only the metric
			// is recorded here.
			var httpErr *echo.HTTPError
			if stderrors.As(err, &httpErr) {
				HTTPErrorsTotal.WithLabelValues(string(wrapHTTPError(httpErr).Type)).Inc()
				return err
			}

			structured := AsStructuredError(err)
			HTTPErrorsTotal.WithLabelValues(string(structured.Type)).Inc()
			logError(c, structured)

			if err := c.JSON(structured.HTTPStatus(), structured.ToResponse()); err != nil {
				return fmt.Errorf("failed to write error response: %w", err)
			}
			return nil
		}
	}
}

// AsStructuredError converts any error into a structured Error. Errors that
// are not already structured become internal errors.
func AsStructuredError(err error) *Error {
	var structured *Error
	if stderrors.As(err, &structured) {
		return structured
	}
	return &Error{Type: TypeInternal, Message: "internal server error", Cause: err}
}

// ToResponse is the JSON body sent to the client for this error.
func (e *Error) ToResponse() map[string]any {
	return map[string]any{
		"error": map[string]any{
			"type":    e.Type,
			"message": e.Message,
		},
	}
}

func logError(c echo.Context, err *Error) {
	attrs := []any{
		"error_type", err.Type,
		"message", err.Message,
		"path", c.Request().URL.Path,
		"method", c.Request().Method,
		"status", err.HTTPStatus(),
	}
	if err.Cause != nil {
		attrs = append(attrs, "cause", err.Cause)
	}

	switch err.Type {
	case TypeValidation, TypeNotFound:
		slog.Info("Request failed", attrs...)
	case TypeConflict:
		slog.Warn("Request conflict", attrs...)
	default:
		slog.Error("Request error", attrs...)
	}
}

// wrapHTTPError maps Echo's HTTPError onto a structured error for metrics.
func wrapHTTPError(httpErr *echo.HTTPError) *Error {
	var errType ErrorType
	switch httpErr.Code {
	case http.StatusBadRequest:
		errType = TypeValidation
	case http.StatusNotFound:
		errType = TypeNotFound
	case http.StatusConflict:
		errType = TypeConflict
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		errType = TypeExternal
	default:
		errType = TypeInternal
	}

	message := "internal server error"
	if msg, ok := httpErr.Message.(string); ok {
		message = msg
	}

	return &Error{Type: errType, Message: message, Cause: httpErr.Internal}
}
