package types

import "time"

// DirTranslator is the directory-name encoding translator (spec 4.1).
type DirTranslator interface {
	// ToBacking rewrites each segment of an absolute container path
	// that matches a known ContainerName to its NativeName counterpart.
	ToBacking(path string) string
	// ToVisible maps a single backing directory entry name to the name
	// it should be presented as, and reports whether the entry should
	// be suppressed outright (deduplication).
	ToVisible(entryName string, siblingIsDir func(name string) bool) (visible string, suppress bool)
}

// ContentTransformer is the two-pass content transform engine (spec 4.2).
type ContentTransformer interface {
	// ToContainer applies Pass A (host->container) then Pass B
	// (native->container) to buf, used on the read path.
	ToContainer(buf []byte) (out []byte, changed bool)
	// ToHost applies Pass A (container->host) then Pass B
	// (container->native) to buf, used on the write path.
	ToHost(buf []byte) (out []byte, changed bool)
	// QuickScan reports whether the bounded prefix of a file contains no
	// mapping signature, making the file safe to treat as passthrough.
	QuickScan(prefix []byte) bool
}

// Cache is the shared read/negative/skip cache contract. Individual
// cache implementations (NegCache, ReadCache, SkipCache) are concrete
// types in internal/cache with cache-specific Get/Put signatures; this
// interface covers only the stats and invalidation surface common to
// all three.
type Cache interface {
	Stats() CacheStats
	Invalidate(backingPath string)
}

// MetricsCollector records operational counters. Implemented by
// internal/metrics.Collector; kept as an interface so internal/fuse can
// be unit-tested with a no-op implementation.
type MetricsCollector interface {
	RecordOperation(operation string, duration time.Duration, success bool)
	RecordCacheEvent(cache string, hit bool)
	RecordCacheEviction(cache string)
	RecordTransform(outcome TransformOutcome)
	RecordError(operation string, err error)
}

// NopMetricsCollector discards everything; used where a collector is
// required but metrics are disabled or a test has no interest in them.
type NopMetricsCollector struct{}

func (NopMetricsCollector) RecordOperation(string, time.Duration, bool) {}
func (NopMetricsCollector) RecordCacheEvent(string, bool)                {}
func (NopMetricsCollector) RecordCacheEviction(string)                   {}
func (NopMetricsCollector) RecordTransform(TransformOutcome)             {}
func (NopMetricsCollector) RecordError(string, error)                    {}
