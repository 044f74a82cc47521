// Package errors maps the gateway's typed failures onto gofulmen error
// envelopes and HTTP responses. The upstream client speaks its own error
// types; this package is where they become status codes and JSON bodies.
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/portalgate/portalgate/internal/metrics"
	"github.com/portalgate/portalgate/internal/observability"
	"github.com/portalgate/portalgate/internal/server/middleware"
	"github.com/portalgate/portalgate/internal/upstream"
)

// Error codes used across the gateway.
const (
	CodeInvalidInput        = "INVALID_INPUT"
	CodeNotFound            = "NOT_FOUND"
	CodeMethodNotAllowed    = "METHOD_NOT_ALLOWED"
	CodeRateLimited         = "RATE_LIMITED"
	CodeUpstreamRateLimited = "UPSTREAM_RATE_LIMITED"
	CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	CodeUpstreamError       = "UPSTREAM_ERROR"
	CodeExternalService     = "EXTERNAL_SERVICE_ERROR"
	CodeTimeout             = "TIMEOUT"
	CodeInternal            = "INTERNAL_ERROR"
	CodeConfigInvalid       = "CONFIG_INVALID"
)

// Context keys carried inside envelopes for response shaping.
const (
	ctxRetryAfterSeconds = "retry_after_seconds"
	ctxUpstreamStatus    = "upstream_status"
)

func NewInvalidInputError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeInvalidInput, message)
}

func NewNotFoundError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeNotFound, message)
}

func NewMethodNotAllowedError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeMethodNotAllowed, message)
}

// NewRateLimitedError builds the 429 envelope for requests rejected by
// the gateway's own per-client limiter.
func NewRateLimitedError(retryAfterSeconds int) *errors.ErrorEnvelope {
	envelope := errors.NewErrorEnvelope(CodeRateLimited, "Too many requests. Please try again later.")
	envelope, _ = envelope.WithContext(map[string]interface{}{
		ctxRetryAfterSeconds: retryAfterSeconds,
	})
	return envelope
}

func NewInternalError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeInternal, message)
}

func NewConfigInvalidError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeConfigInvalid, message)
}

// WrapInternal wraps an unexpected error with correlation metadata.
func WrapInternal(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return wrap(ctx, err, CodeInternal, message)
}

// WrapConfigInvalid wraps a configuration error with correlation metadata.
func WrapConfigInvalid(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return wrap(ctx, err, CodeConfigInvalid, message)
}

// WrapExternalService wraps a cache or transport failure.
func WrapExternalService(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return wrap(ctx, err, CodeExternalService, message)
}

func wrap(ctx context.Context, err error, code, message string) *errors.ErrorEnvelope {
	envelope := errors.NewErrorEnvelope(code, message)
	envelope = envelope.WithCorrelationID(extractCorrelationID(ctx))
	if err != nil {
		envelope, _ = envelope.WithContext(map[string]interface{}{
			"wrapped_error": err.Error(),
		})
	}
	return envelope
}

// FromUpstream translates an upstream client failure into an envelope.
// NotFound keeps its resource-specific message; ServerUnavailable gets a
// generic body so upstream detail never leaks to gateway clients; the
// rate-limit envelope carries the Retry-After hint; transport failures
// after exhausted retries surface as bad-gateway or, for deadline
// expiry, gateway-timeout.
func FromUpstream(ctx context.Context, err error) *errors.ErrorEnvelope {
	var (
		notFound    *upstream.NotFoundError
		rateLimited *upstream.RateLimitError
		unavailable *upstream.ServerUnavailableError
		apiErr      *upstream.APIError
	)

	switch {
	case stderrors.As(err, &notFound):
		return wrap(ctx, nil, CodeNotFound, notFound.Error())

	case stderrors.As(err, &rateLimited):
		message := fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", int(rateLimited.RetryAfter.Seconds()))
		envelope := wrap(ctx, nil, CodeUpstreamRateLimited, message)
		envelope, _ = envelope.WithContext(map[string]interface{}{
			ctxRetryAfterSeconds: int(rateLimited.RetryAfter.Seconds()),
		})
		return envelope

	case stderrors.As(err, &unavailable):
		return wrap(ctx, nil, CodeUpstreamUnavailable, "The upstream catalog is currently unavailable. Please try again later.")

	case stderrors.As(err, &apiErr):
		envelope := wrap(ctx, nil, CodeUpstreamError, apiErr.Message)
		envelope, _ = envelope.WithContext(map[string]interface{}{
			ctxUpstreamStatus: apiErr.StatusCode,
		})
		return envelope

	case stderrors.Is(err, context.DeadlineExceeded):
		return wrap(ctx, err, CodeTimeout, "Upstream request timed out")

	default:
		return wrap(ctx, err, CodeExternalService, "Failed to reach the upstream catalog")
	}
}

// EnsureEnvelope normalizes any error into an envelope.
func EnsureEnvelope(err error) *errors.ErrorEnvelope {
	if err == nil {
		envelope := errors.NewErrorEnvelope(CodeInternal, "unexpected nil error")
		envelope, _ = envelope.WithSeverity(errors.SeverityCritical)
		return envelope
	}

	if envelope, ok := err.(*errors.ErrorEnvelope); ok && envelope != nil {
		return envelope
	}

	envelope := errors.NewErrorEnvelope(CodeInternal, "unexpected error")
	envelope, _ = envelope.WithContext(map[string]interface{}{
		"wrapped_error": err.Error(),
	})
	envelope, _ = envelope.WithSeverity(errors.SeverityHigh)
	return envelope
}

// HTTPStatusFromEnvelope resolves the response status for an envelope.
// UPSTREAM_ERROR echoes the status embedded by the upstream API.
func HTTPStatusFromEnvelope(envelope *errors.ErrorEnvelope) int {
	if envelope == nil {
		return http.StatusInternalServerError
	}

	if envelope.Code == CodeUpstreamError {
		if status, ok := contextInt(envelope, ctxUpstreamStatus); ok && status >= 400 {
			return status
		}
		return http.StatusBadGateway
	}

	return HTTPStatusFromCode(envelope.Code)
}

// HTTPStatusFromCode resolves the response status for an error code.
func HTTPStatusFromCode(code string) int {
	switch code {
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case CodeRateLimited, CodeUpstreamRateLimited:
		return http.StatusTooManyRequests
	case CodeUpstreamUnavailable:
		return http.StatusServiceUnavailable
	case CodeExternalService, CodeUpstreamError:
		return http.StatusBadGateway
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// HTTPErrorDetail is the error body returned to gateway clients.
type HTTPErrorDetail struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// HTTPErrorResponse wraps HTTPErrorDetail in the standard envelope shape.
type HTTPErrorResponse struct {
	Error HTTPErrorDetail `json:"error"`
}

// RespondWithError normalizes err and writes a JSON error response.
func RespondWithError(w http.ResponseWriter, r *http.Request, err error) {
	RespondWithEnvelope(w, r, EnsureEnvelope(err))
}

// RespondWithEnvelope finalizes the envelope, logs it, emits metrics, and
// writes the response. Rate-limit envelopes gain a Retry-After header.
func RespondWithEnvelope(w http.ResponseWriter, r *http.Request, envelope *errors.ErrorEnvelope) {
	if w == nil {
		return
	}

	if r != nil {
		envelope = ensureCorrelationID(envelope, r.Context())
	} else {
		envelope = ensureCorrelationID(envelope, nil)
	}

	statusCode := HTTPStatusFromEnvelope(envelope)

	response := HTTPErrorResponse{
		Error: HTTPErrorDetail{
			Code:      envelope.Code,
			Message:   envelope.Message,
			Details:   responseDetails(envelope),
			RequestID: envelope.CorrelationID,
		},
	}

	logHTTPError(envelope, statusCode)
	metrics.RecordError(envelope.Code, statusCode)
	if r != nil {
		metrics.RecordErrorByEndpoint(r.URL.Path, envelope.Code)
	}

	if seconds, ok := contextInt(envelope, ctxRetryAfterSeconds); ok && seconds > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

func ensureCorrelationID(envelope *errors.ErrorEnvelope, ctx context.Context) *errors.ErrorEnvelope {
	if envelope == nil {
		return nil
	}
	if envelope.CorrelationID != "" {
		return envelope
	}

	var correlationID string
	if ctx != nil {
		correlationID = middleware.GetRequestID(ctx)
	}
	if correlationID == "" {
		correlationID = "fallback-" + errors.GenerateCorrelationID()
	}

	return envelope.WithCorrelationID(correlationID)
}

func extractCorrelationID(ctx context.Context) string {
	if ctx != nil {
		if requestID := middleware.GetRequestID(ctx); requestID != "" {
			return requestID
		}
	}
	return uuid.New().String()
}

// responseDetails merges envelope details and context into the API-safe
// details map, without mutating the envelope.
func responseDetails(envelope *errors.ErrorEnvelope) map[string]interface{} {
	if envelope == nil {
		return nil
	}

	details := make(map[string]interface{})
	for key, value := range envelope.Details {
		details[key] = value
	}
	for key, value := range envelope.Context {
		if _, exists := details[key]; !exists {
			details[key] = value
		}
	}

	if len(details) == 0 {
		return nil
	}
	return details
}

func contextInt(envelope *errors.ErrorEnvelope, key string) (int, bool) {
	if envelope == nil || envelope.Context == nil {
		return 0, false
	}
	switch value := envelope.Context[key].(type) {
	case int:
		return value, true
	case int64:
		return int(value), true
	case float64:
		return int(value), true
	default:
		return 0, false
	}
}

func logHTTPError(envelope *errors.ErrorEnvelope, statusCode int) {
	if observability.ServerLogger == nil || envelope == nil {
		return
	}

	fields := []zap.Field{
		zap.String("error_code", envelope.Code),
		zap.Int("http_status", statusCode),
	}
	if envelope.Severity != "" {
		fields = append(fields, zap.String("severity", string(envelope.Severity)))
	}
	for key, value := range envelope.Context {
		fields = append(fields, zap.Any(key, value))
	}
	if envelope.CorrelationID != "" {
		fields = append(fields, zap.String("request_id", envelope.CorrelationID))
	}

	switch envelope.Severity {
	case errors.SeverityCritical, errors.SeverityHigh:
		observability.ServerLogger.Error(envelope.Message, fields...)
	case errors.SeverityMedium:
		observability.ServerLogger.Warn(envelope.Message, fields...)
	default:
		observability.ServerLogger.Info(envelope.Message, fields...)
	}
}
