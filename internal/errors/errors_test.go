package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError(t *testing.T) {
	err := ValidationError("invalid input")

	assert.Equal(t, TypeValidation, err.Type)
	assert.Equal(t, "invalid input", err.Message)
	assert.Nil(t, err.Cause)
	assert.Equal(t, http.StatusBadRequest, err.HTTPStatus())
	assert.Contains(t, err.Error(), "validation")
	assert.Contains(t, err.Error(), "invalid input")
}

func TestNotFoundError(t *testing.T) {
	err := NotFoundError("show not found")

	assert.Equal(t, TypeNotFound, err.Type)
	assert.Equal(t, http.StatusNotFound, err.HTTPStatus())
	assert.Contains(t, err.Error(), "show not found")
}

func TestConflictError(t *testing.T) {
	err := ConflictError("task already running")

	assert.Equal(t, TypeConflict, err.Type)
	assert.Equal(t, http.StatusConflict, err.HTTPStatus())
}

func TestInternalError(t *testing.T) {
	cause := fmt.Errorf("database connection failed")
	err := InternalError("failed to save forecast", cause)

	assert.Equal(t, TypeInternal, err.Type)
	assert.Equal(t, cause, err.Cause)
	assert.Equal(t, http.StatusInternalServerError, err.HTTPStatus())
	assert.Contains(t, err.Error(), "database connection failed")
}

func TestExternalError(t *testing.T) {
	err := ExternalError("prediction service unreachable", nil)

	assert.Equal(t, TypeExternal, err.Type)
	assert.Equal(t, http.StatusBadGateway, err.HTTPStatus())
}

func TestTransportErrorDefaultsToInternalStatus(t *testing.T) {
	err := TransportError("send failed", fmt.Errorf("broken pipe"))

	assert.Equal(t, TypeTransport, err.Type)
	assert.Equal(t, http.StatusInternalServerError, err.HTTPStatus())
}

func TestUnwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := InternalError("wrapper", cause)

	assert.ErrorIs(t, err, cause)

	var structured *Error
	assert.True(t, errors.As(fmt.Errorf("outer: %w", err), &structured))
	assert.Equal(t, TypeInternal, structured.Type)
}

func TestAsStructuredError(t *testing.T) {
	structured := AsStructuredError(NotFoundError("missing"))
	assert.Equal(t, TypeNotFound, structured.Type)

	plain := AsStructuredError(fmt.Errorf("plain failure"))
	assert.Equal(t, TypeInternal, plain.Type)
	assert.Contains(t, plain.Cause.Error(), "plain failure")
}
