package upstream

import (
	"fmt"
	"time"
)

// NotFoundError reports an upstream 404 for a singular resource lookup.
type NotFoundError struct {
	Resource string
	ID       int // 0 when the endpoint carried no numeric id segment
}

func (e *NotFoundError) Error() string {
	if e.ID > 0 {
		return fmt.Sprintf("%s with ID %d not found", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// RateLimitError reports that the upstream kept answering 429 until the
// retry budget ran out. RetryAfter is the server-supplied delay from the
// final response (60s when the header was absent).
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("upstream rate limit exceeded, retry in %s", e.RetryAfter)
}

// ServerUnavailableError reports that the upstream kept answering 5xx
// until the retry budget ran out.
type ServerUnavailableError struct {
	StatusCode int
}

func (e *ServerUnavailableError) Error() string {
	return fmt.Sprintf("upstream unavailable (status %d)", e.StatusCode)
}

// APIError reports a non-200 upstream response outside the dedicated
// 404/429/5xx cases. Message comes from the upstream JSON error body.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upstream error %d: %s", e.StatusCode, e.Message)
}
