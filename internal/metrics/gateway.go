// Package metrics emits the gateway's telemetry counters: upstream fetch
// outcomes, cache hits, and rate-limit rejections.
package metrics

import (
	"strconv"
	"time"

	"github.com/portalgate/portalgate/internal/observability"
)

// Metric names following Prometheus conventions.
const (
	UpstreamRequestsTotal   = "gateway_upstream_requests_total"
	UpstreamDuration        = "gateway_upstream_duration_ms"
	CacheLookupsTotal       = "gateway_cache_lookups_total"
	RateLimitRejectedTotal  = "gateway_ratelimit_rejected_total"
	ExportRunsTotal         = "gateway_export_runs_total"
	ExportResourcesExported = "gateway_export_resources"
)

// RecordUpstreamFetch records one logical upstream fetch (all retries and
// pages included) with its outcome and duration.
func RecordUpstreamFetch(resource string, success bool, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}

	status := "success"
	if !success {
		status = "failure"
	}

	_ = observability.TelemetrySystem.Counter(UpstreamRequestsTotal, 1, map[string]string{
		"resource": resource,
		"status":   status,
	})
	_ = observability.TelemetrySystem.Histogram(UpstreamDuration, duration, map[string]string{
		"resource": resource,
	})
}

// RecordCacheLookup records a response-cache hit or miss.
func RecordCacheLookup(resource string, hit bool) {
	if observability.TelemetrySystem == nil {
		return
	}

	outcome := "miss"
	if hit {
		outcome = "hit"
	}

	_ = observability.TelemetrySystem.Counter(CacheLookupsTotal, 1, map[string]string{
		"resource": resource,
		"outcome":  outcome,
	})
}

// RecordRateLimitRejection records a request turned away by the
// per-client limiter.
func RecordRateLimitRejection(path string) {
	if observability.TelemetrySystem == nil {
		return
	}

	_ = observability.TelemetrySystem.Counter(RateLimitRejectedTotal, 1, map[string]string{
		"path": path,
	})
}

// RecordExportRun records a bulk export run and how many resources it wrote.
func RecordExportRun(success bool, resources int) {
	if observability.TelemetrySystem == nil {
		return
	}

	status := "success"
	if !success {
		status = "failure"
	}

	_ = observability.TelemetrySystem.Counter(ExportRunsTotal, 1, map[string]string{
		"status": status,
	})
	_ = observability.TelemetrySystem.Gauge(ExportResourcesExported, float64(resources), map[string]string{
		"status": status,
	})
}

// RecordError records an error response with code and HTTP status.
func RecordError(errorCode string, httpStatus int) {
	if observability.TelemetrySystem == nil {
		return
	}

	_ = observability.TelemetrySystem.Counter("errors_total", 1, map[string]string{
		"error_code":  errorCode,
		"http_status": strconv.Itoa(httpStatus),
	})
}

// RecordErrorByEndpoint records an error response against its endpoint.
func RecordErrorByEndpoint(endpoint, errorCode string) {
	if observability.TelemetrySystem == nil {
		return
	}

	_ = observability.TelemetrySystem.Counter("errors_by_endpoint", 1, map[string]string{
		"endpoint":   endpoint,
		"error_code": errorCode,
	})
}

// RecordPanic records a recovered handler panic.
func RecordPanic(path string) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter("panics_total", 1, map[string]string{
		"path": path,
	})
}
