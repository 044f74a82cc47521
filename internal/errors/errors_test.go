package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portalgate/portalgate/internal/server/middleware"
	"github.com/portalgate/portalgate/internal/upstream"
)

func TestFromUpstreamMapsTypedErrors(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{
			name:       "not found",
			err:        &upstream.NotFoundError{Resource: "character", ID: 999},
			wantCode:   CodeNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "upstream rate limited",
			err:        &upstream.RateLimitError{RetryAfter: time.Minute},
			wantCode:   CodeUpstreamRateLimited,
			wantStatus: http.StatusTooManyRequests,
		},
		{
			name:       "upstream unavailable",
			err:        &upstream.ServerUnavailableError{StatusCode: 503},
			wantCode:   CodeUpstreamUnavailable,
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "api error echoes upstream status",
			err:        &upstream.APIError{StatusCode: 418, Message: "There is nothing here"},
			wantCode:   CodeUpstreamError,
			wantStatus: http.StatusTeapot,
		},
		{
			name:       "timeout",
			err:        fmt.Errorf("request character/1: %w", context.DeadlineExceeded),
			wantCode:   CodeTimeout,
			wantStatus: http.StatusGatewayTimeout,
		},
		{
			name:       "transport failure",
			err:        fmt.Errorf("request character/1: connection refused"),
			wantCode:   CodeExternalService,
			wantStatus: http.StatusBadGateway,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			envelope := FromUpstream(ctx, tc.err)
			require.NotNil(t, envelope)
			assert.Equal(t, tc.wantCode, envelope.Code)
			assert.Equal(t, tc.wantStatus, HTTPStatusFromEnvelope(envelope))
		})
	}
}

func TestFromUpstreamWrapsTypedErrorsThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("fetch all: %w", &upstream.NotFoundError{Resource: "episode", ID: 51})
	envelope := FromUpstream(context.Background(), wrapped)
	assert.Equal(t, CodeNotFound, envelope.Code)
}

func TestRespondWithEnvelopeSetsRetryAfter(t *testing.T) {
	envelope := FromUpstream(context.Background(), &upstream.RateLimitError{RetryAfter: 60 * time.Second})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/characters", nil)
	RespondWithEnvelope(rec, req, envelope)

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	var body HTTPErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, CodeUpstreamRateLimited, body.Error.Code)
}

func TestRespondWithErrorCarriesCorrelationID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/characters/0", nil)
	ctx := context.WithValue(req.Context(), middleware.RequestIDContextKey, "req-123")
	req = req.WithContext(ctx)

	rec := httptest.NewRecorder()
	RespondWithError(rec, req, NewInvalidInputError("character ID must be a positive integer"))

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body HTTPErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, CodeInvalidInput, body.Error.Code)
	assert.Equal(t, "req-123", body.Error.RequestID)
}

func TestNewRateLimitedErrorEmbedsRetryAfter(t *testing.T) {
	envelope := NewRateLimitedError(60)
	assert.Equal(t, CodeRateLimited, envelope.Code)
	assert.Equal(t, http.StatusTooManyRequests, HTTPStatusFromEnvelope(envelope))
}

func TestEnsureEnvelopeWrapsPlainErrors(t *testing.T) {
	envelope := EnsureEnvelope(fmt.Errorf("boom"))
	require.NotNil(t, envelope)
	assert.Equal(t, CodeInternal, envelope.Code)

	passthrough := NewNotFoundError("gone")
	assert.Same(t, passthrough, EnsureEnvelope(passthrough))
}
