package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reelkit/reelkit/internal/ailink/driver"
	"github.com/reelkit/reelkit/internal/errclass"
)

func TestFromCategory(t *testing.T) {
	cases := map[errclass.Category]struct {
		code   string
		status int
	}{
		errclass.CategoryValidation: {CodeValidation, http.StatusBadRequest},
		errclass.CategoryAuth:       {CodeUnauthorized, http.StatusUnauthorized},
		errclass.CategoryRateLimit:  {CodeRateLimited, http.StatusTooManyRequests},
		errclass.CategoryNetwork:    {CodeExternalService, http.StatusBadGateway},
		errclass.CategoryAPI:        {CodeExternalService, http.StatusBadGateway},
		errclass.CategoryFile:       {CodeFile, http.StatusInternalServerError},
		errclass.CategoryConfig:     {CodeConfigInvalid, http.StatusInternalServerError},
		errclass.CategoryUnknown:    {CodeInternal, http.StatusInternalServerError},
	}
	for category, want := range cases {
		env := FromCategory(category, fmt.Errorf("boom"))
		require.Equal(t, want.code, env.Code, category)
		require.Equal(t, want.status, HTTPStatusFromEnvelope(env), category)
		require.Equal(t, "boom", env.Message)
		require.Equal(t, string(category), env.Context["category"])
	}
}

func TestEnsureEnvelopeClassifies(t *testing.T) {
	limited := &driver.ProviderError{Provider: "openai", Status: http.StatusTooManyRequests, Message: "slow"}
	require.Equal(t, CodeRateLimited, EnsureEnvelope(limited).Code)

	_, err := os.Open("/definitely/not/here")
	require.Equal(t, CodeFile, EnsureEnvelope(err).Code)

	original := NewNotFoundError("gone")
	require.Same(t, original, EnsureEnvelope(fmt.Errorf("wrapped: %w", original)))

	require.Equal(t, CodeInternal, EnsureEnvelope(nil).Code)
}

func TestRespondWithError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/queue", nil)

	RespondWithError(rec, req, errclass.NewValidationError("limit", "invalid limit"))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body HTTPErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, CodeValidation, body.Error.Code)
	require.Equal(t, "limit: invalid limit", body.Error.Message)
	require.NotEmpty(t, body.Error.RequestID)
	require.Equal(t, "VALIDATION", body.Error.Details["category"])
}

func TestWrapAddsContext(t *testing.T) {
	env := Wrap(context.Background(), NewDatabaseError("record post failed"), fmt.Errorf("disk full"))
	require.Equal(t, CodeDatabase, env.Code)
	require.Equal(t, "record post failed", env.Message)
	require.Equal(t, http.StatusInternalServerError, HTTPStatusFromEnvelope(env))
	require.Equal(t, "disk full", env.Context["wrapped_error"])
	require.NotEmpty(t, env.CorrelationID)
}

func TestWrapInternalServerFailure(t *testing.T) {
	env := Wrap(context.Background(), NewInternalError("server error"), fmt.Errorf("address already in use"))
	require.Equal(t, CodeInternal, env.Code)
	require.Equal(t, "address already in use", env.Context["wrapped_error"])
	require.Equal(t, env.CorrelationID, env.TraceID)

	require.Equal(t, CodeInternal, Wrap(context.Background(), nil, fmt.Errorf("x")).Code)
}

func TestFromCategoryUsesEnvelopeConstructors(t *testing.T) {
	require.Equal(t, NewRateLimitedError("x").Code, FromCategory(errclass.CategoryRateLimit, fmt.Errorf("x")).Code)
	require.Equal(t, NewExternalServiceError("x").Code, FromCategory(errclass.CategoryNetwork, fmt.Errorf("x")).Code)
	require.Equal(t, NewInternalError("x").Code, FromCategory(errclass.CategoryUnknown, nil).Code)
	require.Equal(t, "unexpected error", FromCategory(errclass.CategoryUnknown, nil).Message)
}
