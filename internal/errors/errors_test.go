package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		category ErrorCategory
		status   int
		message  string
	}{
		{
			name:     "validation error",
			err:      NewValidationError("days must be positive", "days", "-1"),
			category: CategoryValidation,
			status:   http.StatusBadRequest,
			message:  "[VALIDATION_ERROR] days must be positive",
		},
		{
			name:     "not found error",
			err:      NewNotFoundError("member", "m-42"),
			category: CategoryNotFound,
			status:   http.StatusNotFound,
			message:  "[NOT_FOUND] member not found",
		},
		{
			name:     "unavailable error",
			err:      NewUnavailableError("member directory", fmt.Errorf("connection refused")),
			category: CategoryUnavailable,
			status:   http.StatusServiceUnavailable,
			message:  "[UNAVAILABLE] member directory unavailable",
		},
		{
			name:     "timeout error",
			err:      NewTimeoutError("too slow", nil),
			category: CategoryTimeout,
			status:   http.StatusGatewayTimeout,
			message:  "[TIMEOUT_ERROR] too slow",
		},
		{
			name:     "configuration error",
			err:      NewConfigurationError("bad timezone", nil),
			category: CategoryConfiguration,
			status:   http.StatusInternalServerError,
			message:  "[CONFIGURATION_ERROR] Configuration error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotNil(t, tt.err)
			assert.Equal(t, tt.category, tt.err.Category)
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
			assert.Equal(t, tt.message, tt.err.Error())
		})
	}
}

func TestAppErrorJSONWithoutCause(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		category string
		detail   string
	}{
		{"not found", NewNotFoundError("member", "ghost"), "not_found", "ghost"},
		{"validation", NewValidationError("bad days", "days", "abc"), "validation", "abc"},
		{"validation without field", NewValidationError("bad request", "", ""), "validation", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.err)
			require.NoError(t, err)

			var body map[string]any
			require.NoError(t, json.Unmarshal(data, &body))
			assert.Equal(t, tt.category, body["category"])
			assert.EqualValues(t, tt.err.HTTPStatus, body["http_status"])
			assert.Equal(t, tt.err.ErrBuilder.Msg, body["message"])
			if tt.detail != "" {
				assert.Contains(t, string(data), tt.detail)
			} else {
				assert.NotContains(t, body, "details")
			}
		})
	}
}

func TestUnavailableErrorJSONHidesCause(t *testing.T) {
	data, err := json.Marshal(NewUnavailableError("raw-event store", errors.New("dial tcp 10.0.0.1: refused")))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "10.0.0.1")
	assert.Contains(t, string(data), `"category":"unavailable"`)
}

func TestUnavailableErrorWrapsSentinel(t *testing.T) {
	cause := fmt.Errorf("dial tcp: connection refused")
	err := NewUnavailableError("raw-event store", cause)

	assert.True(t, errors.Is(err, ErrInputUnavailable))
	assert.True(t, errors.Is(err, cause))
	assert.True(t, IsRetryableError(err))
}

func TestToAppError(t *testing.T) {
	assert.Nil(t, ToAppError(nil))

	original := NewValidationError("bad", "limit", "x")
	assert.Same(t, original, ToAppError(original))
	assert.Same(t, original, ToAppError(fmt.Errorf("wrapped: %w", original)))

	assert.Equal(t, CategoryTimeout, ToAppError(context.DeadlineExceeded).Category)
	assert.Equal(t, CategoryTimeout, ToAppError(context.Canceled).Category)
	assert.Equal(t, CategoryUnavailable, ToAppError(fmt.Errorf("load: %w", ErrInputUnavailable)).Category)
	assert.Equal(t, CategoryInternal, ToAppError(errors.New("boom")).Category)
}

func TestTaxonomyHelpers(t *testing.T) {
	malformed := MalformedEvent("evt-1", "missing timestamp")
	assert.True(t, errors.Is(malformed, ErrMalformedEvent))
	assert.Contains(t, malformed.Error(), "evt-1")

	fold := FoldFailed("act-9", "interface conversion")
	assert.True(t, errors.Is(fold, ErrFoldFailed))
	assert.Contains(t, fold.Error(), "interface conversion")
}

func TestIsRetryableError(t *testing.T) {
	assert.False(t, IsRetryableError(nil))
	assert.False(t, IsRetryableError(context.Canceled))
	assert.False(t, IsRetryableError(NewValidationError("bad", "", "")))
	assert.True(t, IsRetryableError(errors.New("database is locked")))
	assert.False(t, IsRetryableError(errors.New("no such table: members")))
}

func TestWrapError(t *testing.T) {
	assert.Nil(t, WrapError(nil, "ignored"))

	base := errors.New("base")
	wrapped := WrapError(base, "loading %s", "members")
	assert.EqualError(t, wrapped, "loading members: base")
	assert.True(t, errors.Is(wrapped, base))
}
