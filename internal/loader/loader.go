// Package loader obtains the raw catalog from an ordered chain of sources.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"points-catalog-service/internal/domain"
	"points-catalog-service/internal/metrics"
)

// ErrNoData is returned when every source in the chain failed.
var ErrNoData = errors.New("loader: no catalog data available")

// Attempt is the outcome of trying one source.
type Attempt struct {
	Source   string        `json:"source"`
	Err      error         `json:"-"`
	Duration time.Duration `json:"duration"`
}

// OK reports whether the attempt produced a payload.
func (a Attempt) OK() bool { return a.Err == nil }

// Report records every attempt of one load, in order.
type Report struct {
	Source   string    `json:"source"` // Name of the source that succeeded, empty on failure
	Attempts []Attempt `json:"attempts"`
}

// Loader walks its sources in order and returns the first valid payload.
type Loader struct {
	sources   []Source
	cachePath string
	logger    *log.Logger
}

// New creates a Loader over sources, tried in the given order. When cachePath is set,
// payloads obtained from remote sources are written there so a file source pointed at
// the same path serves the last good catalog.
func New(logger *log.Logger, cachePath string, sources ...Source) *Loader {
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	return &Loader{sources: sources, cachePath: cachePath, logger: logger}
}

// Sources returns the configured chain.
func (l *Loader) Sources() []Source { return l.sources }

// Load tries the whole chain.
func (l *Loader) Load(ctx context.Context) (domain.Payload, Report, error) {
	return l.run(ctx, l.sources)
}

// LoadFresh tries only the proxy sources. It is used by refreshes that want current data
// and fall back to Load themselves.
func (l *Loader) LoadFresh(ctx context.Context) (domain.Payload, Report, error) {
	var fresh []Source
	for _, s := range l.sources {
		if s.Kind() == KindProxy {
			fresh = append(fresh, s)
		}
	}
	return l.run(ctx, fresh)
}

func (l *Loader) run(ctx context.Context, sources []Source) (domain.Payload, Report, error) {
	var report Report
	var lastErr error

	for _, src := range sources {
		fetchCtx := ctx
		if err := ctx.Err(); err != nil {
			if src.Kind().Remote() {
				lastErr = fmt.Errorf("%s: skipped: %w", src.Name(), err)
				continue
			}
			// File and embedded sources need no network and still get their turn
			// once the deadline is spent on remote ones.
			fetchCtx = context.WithoutCancel(ctx)
		}
		start := time.Now()
		fetched, err := src.Fetch(fetchCtx)
		attempt := Attempt{Source: src.Name(), Err: err, Duration: time.Since(start)}
		report.Attempts = append(report.Attempts, attempt)

		if err != nil {
			metrics.LoadAttempts.WithLabelValues(src.Name(), "failure").Inc()
			l.logger.Printf("WARN: Catalog source %s failed after %s: %v", src.Name(), attempt.Duration, err)
			lastErr = fmt.Errorf("%s: %w", src.Name(), err)
			continue
		}

		metrics.LoadAttempts.WithLabelValues(src.Name(), "success").Inc()
		l.logger.Printf("INFO: Catalog loaded from source %s (%d categories)", src.Name(), len(fetched.Payload))
		report.Source = src.Name()
		if src.Kind().Remote() {
			l.writeCache(fetched.Raw)
		}
		return fetched.Payload, report, nil
	}

	if lastErr == nil {
		lastErr = errors.New("no sources configured")
	}
	return nil, report, fmt.Errorf("%w: %v", ErrNoData, lastErr)
}

// writeCache replaces the cache file atomically. Failures are logged and otherwise ignored.
func (l *Loader) writeCache(raw []byte) {
	if l.cachePath == "" {
		return
	}
	tmp, err := os.CreateTemp(filepath.Dir(l.cachePath), ".catalog-*.json")
	if err != nil {
		l.logger.Printf("WARN: Could not create catalog cache file: %v", err)
		return
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		l.logger.Printf("WARN: Could not write catalog cache: %v", err)
		return
	}
	if err := tmp.Close(); err != nil {
		l.logger.Printf("WARN: Could not write catalog cache: %v", err)
		return
	}
	if err := os.Rename(tmp.Name(), l.cachePath); err != nil {
		l.logger.Printf("WARN: Could not replace catalog cache %s: %v", l.cachePath, err)
	}
}
