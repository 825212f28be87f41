package errorutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{name: "not found", err: NewNotFound("ticket", nil), wantCode: "NOT_FOUND", wantStatus: http.StatusNotFound},
		{name: "wrapped conflict", err: fmt.Errorf("assign: %w", NewConflict("busy", nil)), wantCode: "CONFLICT", wantStatus: http.StatusConflict},
		{name: "remote", err: NewRemoteFailure("store update", errors.New("boom")), wantCode: "REMOTE_FAILURE", wantStatus: http.StatusBadGateway},
		{name: "transition", err: NewInvalidTransition("nope", nil), wantCode: "INVALID_TRANSITION", wantStatus: http.StatusUnprocessableEntity},
		{name: "deadline", err: context.DeadlineExceeded, wantCode: "TIMEOUT", wantStatus: http.StatusGatewayTimeout},
		{name: "fiber", err: fiber.NewError(http.StatusMethodNotAllowed, "Method Not Allowed"), wantCode: "METHOD_NOT_ALLOWED", wantStatus: http.StatusMethodNotAllowed},
		{name: "plain", err: errors.New("boom"), wantCode: "INTERNAL_ERROR", wantStatus: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			de := ToDomainError(tt.err)
			require.NotNil(t, de)
			assert.Equal(t, tt.wantCode, de.Code)
			assert.Equal(t, tt.wantStatus, de.HTTPStatus)
		})
	}
}

func TestDomainErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewRemoteFailure("function call", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "function call failed: connection reset", err.Error())
	assert.Nil(t, ToDomainError(nil))
	assert.NoError(t, MapError(nil))
}
