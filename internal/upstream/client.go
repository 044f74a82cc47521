package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/portalgate/portalgate/internal/core"
)

// DefaultBaseURL is the public catalog API the gateway fronts.
const DefaultBaseURL = "https://rickandmortyapi.com/api"

const (
	defaultMaxRetries = 3
	defaultTimeout    = 10 * time.Second
	defaultRetryAfter = 60 * time.Second
)

// Client fetches catalog resources from the upstream API. The zero value
// is usable; unset fields fall back to defaults. Clients are safe for
// concurrent use: all request-scoped state lives on the stack and the
// underlying transport pool handles concurrent calls.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	MaxRetries int
	Timeout    time.Duration
	Logger     *logging.Logger

	// Courtesy throttles outbound calls to the upstream across all
	// concurrent fetches. Optional.
	Courtesy *rate.Limiter

	// Sleep overrides backoff waits, for tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

// FetchOne fetches a single resource by id. A 404 surfaces as *NotFoundError.
func (c *Client) FetchOne(ctx context.Context, resource core.ResourceType, id int) (core.Resource, error) {
	if !resource.Valid() {
		return nil, fmt.Errorf("unsupported resource type %q", resource)
	}

	payload, err := c.request(ctx, fmt.Sprintf("%s/%d", resource, id))
	if err != nil {
		return nil, err
	}
	return core.Resource(payload), nil
}

// FetchAll fetches every page of a filtered collection and concatenates
// the results in upstream page order. Unlike FetchOne, a 404 on the first
// page means "no such collection slice" and yields an empty result rather
// than an error.
func (c *Client) FetchAll(ctx context.Context, resource core.ResourceType, filters core.Filters) ([]core.Resource, error) {
	if !resource.Valid() {
		return nil, fmt.Errorf("unsupported resource type %q", resource)
	}

	endpoint := string(resource)
	if query := filters.Encode(); query != "" {
		endpoint += "/?" + query
	}

	all := make([]core.Resource, 0)
	firstPage := true

	for endpoint != "" {
		payload, err := c.request(ctx, endpoint)
		if err != nil {
			var notFound *NotFoundError
			if firstPage && errors.As(err, &notFound) {
				c.logWarn("collection not found upstream, returning empty result",
					zap.String("resource", string(resource)))
				return all, nil
			}
			return nil, err
		}
		firstPage = false

		raw, ok := payload["results"]
		if !ok {
			c.logWarn("upstream response missing results field, stopping pagination",
				zap.String("resource", string(resource)),
				zap.String("endpoint", endpoint))
			break
		}

		items, _ := raw.([]any)
		for _, item := range items {
			if obj, ok := item.(map[string]any); ok {
				all = append(all, core.Resource(obj))
			}
		}

		endpoint = c.nextEndpoint(payload)
	}

	return all, nil
}

// Close releases idle connections held by the transport pool.
func (c *Client) Close() {
	c.httpClient().CloseIdleConnections()
}

// request issues one logical request, retrying transient failures up to
// MaxRetries attempts: 429 waits the server-supplied Retry-After, 5xx and
// transport errors back off exponentially (2^attempt seconds), 404 and
// other non-200 responses fail immediately.
func (c *Client) request(ctx context.Context, endpoint string) (map[string]any, error) {
	resource, id := splitEndpoint(endpoint)
	reqURL := c.base() + "/" + endpoint
	maxAttempts := c.maxRetries()

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if c.Courtesy != nil {
			if err := c.Courtesy.Wait(ctx); err != nil {
				return nil, err
			}
		}

		payload, status, retryAfter, err := c.once(ctx, reqURL)
		if err != nil {
			if attempt == maxAttempts {
				c.logError("upstream request failed, retries exhausted",
					zap.String("endpoint", endpoint),
					zap.Int("attempts", maxAttempts),
					zap.Error(err))
				return nil, fmt.Errorf("request %s: %w", endpoint, err)
			}
			wait := backoff(attempt)
			c.logWarn("upstream request failed, retrying",
				zap.String("endpoint", endpoint),
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait),
				zap.Error(err))
			if err := c.sleep(ctx, wait); err != nil {
				return nil, err
			}
			continue
		}

		switch {
		case status == http.StatusOK:
			return payload, nil

		case status == http.StatusNotFound:
			return nil, &NotFoundError{Resource: resource, ID: id}

		case status == http.StatusTooManyRequests:
			if attempt == maxAttempts {
				return nil, &RateLimitError{RetryAfter: retryAfter}
			}
			c.logWarn("upstream rate limited, waiting",
				zap.String("endpoint", endpoint),
				zap.Int("attempt", attempt),
				zap.Duration("retry_after", retryAfter))
			if err := c.sleep(ctx, retryAfter); err != nil {
				return nil, err
			}

		case status >= 500 && status < 600:
			if attempt == maxAttempts {
				return nil, &ServerUnavailableError{StatusCode: status}
			}
			wait := backoff(attempt)
			c.logWarn("upstream server error, retrying",
				zap.String("endpoint", endpoint),
				zap.Int("status", status),
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait))
			if err := c.sleep(ctx, wait); err != nil {
				return nil, err
			}

		default:
			return nil, &APIError{StatusCode: status, Message: errorMessage(payload)}
		}
	}

	// Unreachable: every branch above either returns or retries, and the
	// final attempt always returns.
	return nil, fmt.Errorf("request %s: retries exhausted", endpoint)
}

// once performs a single HTTP attempt. A nil error with a non-zero status
// means the upstream answered; err covers transport and decode failures.
func (c *Client) once(ctx context.Context, reqURL string) (payload map[string]any, status int, retryAfter time.Duration, err error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, 0, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, 0, 0, err
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return nil, 0, 0, fmt.Errorf("decode upstream response: %w", err)
		}
		return payload, resp.StatusCode, 0, nil
	}

	// Error bodies are decoded best-effort; callers fall back to a
	// generic message when the body is absent or malformed.
	_ = json.NewDecoder(resp.Body).Decode(&payload)

	return payload, resp.StatusCode, retryAfterIn(resp), nil
}

// nextEndpoint extracts the continuation endpoint from the pagination
// metadata, stripped of the upstream base URL. Empty means no more pages.
func (c *Client) nextEndpoint(payload map[string]any) string {
	info, _ := payload["info"].(map[string]any)
	if info == nil {
		return ""
	}
	next, _ := info["next"].(string)
	if next == "" {
		return ""
	}
	return strings.TrimPrefix(next, c.base()+"/")
}

func (c *Client) base() string {
	if c != nil && c.BaseURL != "" {
		return strings.TrimSuffix(c.BaseURL, "/")
	}
	return DefaultBaseURL
}

func (c *Client) httpClient() *http.Client {
	if c != nil && c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) maxRetries() int {
	if c != nil && c.MaxRetries > 0 {
		return c.MaxRetries
	}
	return defaultMaxRetries
}

func (c *Client) timeout() time.Duration {
	if c != nil && c.Timeout > 0 {
		return c.Timeout
	}
	return defaultTimeout
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	if c != nil && c.Sleep != nil {
		return c.Sleep(ctx, d)
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) logWarn(msg string, fields ...zap.Field) {
	if c != nil && c.Logger != nil {
		c.Logger.Warn(msg, fields...)
	}
}

func (c *Client) logError(msg string, fields ...zap.Field) {
	if c != nil && c.Logger != nil {
		c.Logger.Error(msg, fields...)
	}
}

// backoff returns the exponential wait before the next attempt,
// 2^attempt seconds with attempt starting at 1.
func backoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Second
}

// retryAfterIn reads the Retry-After header as integer seconds,
// defaulting to 60s when absent or unparseable.
func retryAfterIn(resp *http.Response) time.Duration {
	retry := resp.Header.Get("Retry-After")
	if retry == "" {
		return defaultRetryAfter
	}
	if seconds, err := strconv.Atoi(retry); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}
	if parsed, err := http.ParseTime(retry); err == nil {
		if wait := time.Until(parsed); wait > 0 {
			return wait
		}
	}
	return defaultRetryAfter
}

// splitEndpoint derives the resource type and optional numeric id from an
// endpoint path. Used only to build readable NotFound messages.
func splitEndpoint(endpoint string) (string, int) {
	parts := strings.Split(endpoint, "/")
	resource := parts[0]
	if len(parts) > 1 {
		if id, err := strconv.Atoi(parts[1]); err == nil && id > 0 {
			return resource, id
		}
	}
	return resource, 0
}

// errorMessage pulls the message field from an upstream error body.
func errorMessage(payload map[string]any) string {
	if message, ok := payload["error"].(string); ok && message != "" {
		return message
	}
	return "Unknown error"
}
