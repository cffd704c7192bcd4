// Package metrics exposes pathbridge's operational counters over
// Prometheus, scoped to the cache/transform/filesystem-operation/error
// concerns of the FS process.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pathbridge/pathbridge/pkg/types"
)

// Config controls whether and where the metrics HTTP endpoint listens.
// Metrics are optional: spec section 6 treats monitoring as ambient, not
// a functional requirement. Enabled false disables both the metrics and
// the server; with Enabled true, Start listens on Port even when it is
// zero. cmd/pathbridgefs sets Enabled only for a non-zero port.
type Config struct {
	Enabled bool
	Port    int
	Path    string
}

// Collector implements types.MetricsCollector backed by Prometheus
// counters and histograms.
type Collector struct {
	mu       sync.RWMutex
	config   Config
	registry *prometheus.Registry

	operationCounter  *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	cacheEventCounter *prometheus.CounterVec
	cacheEvictionCtr  *prometheus.CounterVec
	transformCounter  *prometheus.CounterVec
	errorCounter      *prometheus.CounterVec

	server *http.Server
}

var _ types.MetricsCollector = (*Collector)(nil)

// NewCollector creates a Collector. When cfg.Enabled is false the
// returned Collector still satisfies types.MetricsCollector but every
// method is a no-op against an unregistered set of metrics.
func NewCollector(cfg Config) (*Collector, error) {
	if cfg.Path == "" {
		cfg.Path = "/metrics"
	}

	c := &Collector{config: cfg}
	if !cfg.Enabled {
		return c, nil
	}

	c.registry = prometheus.NewRegistry()
	c.operationCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pathbridge",
		Name:      "fs_operations_total",
		Help:      "Total filesystem dispatcher operations by name and outcome.",
	}, []string{"operation", "status"})

	c.operationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pathbridge",
		Name:      "fs_operation_duration_seconds",
		Help:      "Duration of filesystem dispatcher operations.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 12),
	}, []string{"operation"})

	c.cacheEventCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pathbridge",
		Name:      "cache_events_total",
		Help:      "Cache hits and misses by cache name.",
	}, []string{"cache", "event"})

	c.cacheEvictionCtr = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pathbridge",
		Name:      "cache_evictions_total",
		Help:      "Cache slot evictions by cache name.",
	}, []string{"cache"})

	c.transformCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pathbridge",
		Name:      "transform_invocations_total",
		Help:      "Content transform engine invocations by outcome.",
	}, []string{"outcome"})

	c.errorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pathbridge",
		Name:      "errors_total",
		Help:      "Errors by operation.",
	}, []string{"operation"})

	for _, m := range []prometheus.Collector{
		c.operationCounter, c.operationDuration, c.cacheEventCounter,
		c.cacheEvictionCtr, c.transformCounter, c.errorCounter,
	} {
		if err := c.registry.Register(m); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}

	return c, nil
}

// Start serves the Prometheus endpoint until ctx is canceled.
func (c *Collector) Start(ctx context.Context) error {
	if !c.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(c.config.Path, promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	})

	c.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", c.config.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := c.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = c.server.Shutdown(shutdownCtx)
	}()

	return nil
}

// Stop gracefully shuts the metrics HTTP server down.
func (c *Collector) Stop(ctx context.Context) error {
	if c.server == nil {
		return nil
	}
	return c.server.Shutdown(ctx)
}

// RecordOperation records a filesystem dispatcher operation.
func (c *Collector) RecordOperation(operation string, duration time.Duration, success bool) {
	if !c.config.Enabled {
		return
	}
	status := "success"
	if !success {
		status = "error"
	}
	c.operationCounter.WithLabelValues(operation, status).Inc()
	c.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCacheEvent records a hit or miss against one of NegCache,
// ReadCache, or SkipCache.
func (c *Collector) RecordCacheEvent(cache string, hit bool) {
	if !c.config.Enabled {
		return
	}
	event := "miss"
	if hit {
		event = "hit"
	}
	c.cacheEventCounter.WithLabelValues(cache, event).Inc()
}

// RecordCacheEviction records a slot eviction in one of the three caches.
func (c *Collector) RecordCacheEviction(cache string) {
	if !c.config.Enabled {
		return
	}
	c.cacheEvictionCtr.WithLabelValues(cache).Inc()
}

// RecordTransform records how the content transform engine handled one
// invocation.
func (c *Collector) RecordTransform(outcome types.TransformOutcome) {
	if !c.config.Enabled {
		return
	}
	c.transformCounter.WithLabelValues(string(outcome)).Inc()
}

// RecordError records an error against an operation name.
func (c *Collector) RecordError(operation string, err error) {
	if !c.config.Enabled || err == nil {
		return
	}
	c.errorCounter.WithLabelValues(operation).Inc()
}
