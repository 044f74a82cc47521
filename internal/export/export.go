// Package export implements the bulk catalog download: every resource
// type is fetched in full, concurrently, and written to one JSON file
// per type.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/portalgate/portalgate/internal/core"
	"github.com/portalgate/portalgate/internal/metrics"
	"github.com/portalgate/portalgate/internal/upstream"
)

// Fetcher is the slice of the upstream client the exporter needs.
type Fetcher interface {
	FetchAll(ctx context.Context, resource core.ResourceType, filters core.Filters) ([]core.Resource, error)
}

var _ Fetcher = (*upstream.Client)(nil)

// Result describes the outcome of exporting a single resource type.
type Result struct {
	Resource core.ResourceType `json:"resource"`
	Count    int               `json:"count"`
	Path     string            `json:"path,omitempty"`
	Err      error             `json:"-"`
}

// Exporter fetches complete resource collections and persists them.
type Exporter struct {
	Client Fetcher
	Dir    string
	Logger *logging.Logger
}

// Run exports all resource types concurrently. Each type succeeds or
// fails independently; the returned error joins the per-type failures
// and the results slice always has one entry per type.
func (e *Exporter) Run(ctx context.Context) ([]Result, error) {
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		metrics.RecordExportRun(false, 0)
		return nil, fmt.Errorf("create export directory %s: %w", e.Dir, err)
	}

	types := core.ResourceTypes()
	results := make([]Result, len(types))

	var wg sync.WaitGroup
	for i, rt := range types {
		wg.Add(1)
		go func(i int, rt core.ResourceType) {
			defer wg.Done()
			results[i] = e.exportOne(ctx, rt)
		}(i, rt)
	}
	wg.Wait()

	total := 0
	var errs []error
	for _, res := range results {
		total += res.Count
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.Resource, res.Err))
		}
	}

	metrics.RecordExportRun(len(errs) == 0, total)
	return results, errors.Join(errs...)
}

func (e *Exporter) exportOne(ctx context.Context, resource core.ResourceType) Result {
	start := time.Now()
	result := Result{Resource: resource}

	items, err := e.Client.FetchAll(ctx, resource, nil)
	if err != nil {
		result.Err = err
		e.logError("export fetch failed", resource, err)
		return result
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		result.Err = fmt.Errorf("encode %s: %w", resource, err)
		return result
	}

	path := filepath.Join(e.Dir, resource.Plural()+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		result.Err = fmt.Errorf("write %s: %w", path, err)
		e.logError("export write failed", resource, err)
		return result
	}

	result.Count = len(items)
	result.Path = path
	if e.Logger != nil {
		e.Logger.Info("resource export complete",
			zap.String("resource", string(resource)),
			zap.Int("count", result.Count),
			zap.String("path", path),
			zap.Duration("duration", time.Since(start)),
		)
	}
	return result
}

func (e *Exporter) logError(msg string, resource core.ResourceType, err error) {
	if e.Logger != nil {
		e.Logger.Error(msg,
			zap.String("resource", string(resource)),
			zap.Error(err),
		)
	}
}
