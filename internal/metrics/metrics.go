// file: internal/metrics/metrics.go
// version: 2.0.0
// guid: 34a22408-3b32-422f-8a17-da86bdd5517c

package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	operationStarted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "audiobook_catalog",
		Name:      "operations_started_total",
		Help:      "Total number of operations started by type",
	}, []string{"type"})
	operationCompleted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "audiobook_catalog",
		Name:      "operations_completed_total",
		Help:      "Total number of operations successfully completed by type",
	}, []string{"type"})
	operationFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "audiobook_catalog",
		Name:      "operations_failed_total",
		Help:      "Total number of operations failed by type",
	}, []string{"type"})
	operationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "audiobook_catalog",
		Name:      "operation_duration_seconds",
		Help:      "Histogram of operation durations in seconds by type",
		Buckets:   prometheus.ExponentialBuckets(0.05, 1.6, 10), // ~50ms up to several seconds/minutes
	}, []string{"type"})

	scannedDirectories = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "audiobook_catalog",
		Name:      "scanned_directories_total",
		Help:      "Directories read by scans",
	})
	candidatesFound = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "audiobook_catalog",
		Name:      "candidates_total",
		Help:      "Book candidates produced by scans by kind",
	}, []string{"kind"})
	scanWarnings = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "audiobook_catalog",
		Name:      "scan_warnings_total",
		Help:      "Advisory warnings raised while walking",
	})
	commitItems = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "audiobook_catalog",
		Name:      "commit_items_total",
		Help:      "Committed items by action (inserted, updated, error)",
	}, []string{"action"})
	coverExtractions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "audiobook_catalog",
		Name:      "cover_extractions_total",
		Help:      "Embedded cover extractions by result (ok, error)",
	}, []string{"result"})

	recordsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "audiobook_catalog",
		Name:      "records_total",
		Help:      "Current total number of catalog records",
	})
	missingGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "audiobook_catalog",
		Name:      "records_missing_total",
		Help:      "Catalog records no longer observed on disk",
	})
	memoryAllocGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "audiobook_catalog",
		Name:      "process_memory_alloc_bytes",
		Help:      "Current process memory allocation (runtime.Alloc)",
	})
	goroutinesGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "audiobook_catalog",
		Name:      "process_goroutines",
		Help:      "Number of currently running goroutines",
	})
)

// Register initializes metrics with the global Prometheus registry (idempotent)
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(operationStarted, operationCompleted, operationFailed, operationDuration,
			scannedDirectories, candidatesFound, scanWarnings, commitItems, coverExtractions,
			recordsGauge, missingGauge, memoryAllocGauge, goroutinesGauge)
	})
}

// Operation lifecycle helpers
func IncOperationStarted(opType string)   { operationStarted.WithLabelValues(opType).Inc() }
func IncOperationCompleted(opType string) { operationCompleted.WithLabelValues(opType).Inc() }
func IncOperationFailed(opType string)    { operationFailed.WithLabelValues(opType).Inc() }
func ObserveOperationDuration(opType string, d time.Duration) {
	operationDuration.WithLabelValues(opType).Observe(d.Seconds())
}

// Ingestion
func AddScannedDirectories(n int) { scannedDirectories.Add(float64(n)) }
func IncCandidates(kind string)   { candidatesFound.WithLabelValues(kind).Inc() }
func AddScanWarnings(n int)       { scanWarnings.Add(float64(n)) }
func IncCommitItem(action string) { commitItems.WithLabelValues(action).Inc() }
func IncCoverExtraction(ok bool) {
	if ok {
		coverExtractions.WithLabelValues("ok").Inc()
		return
	}
	coverExtractions.WithLabelValues("error").Inc()
}

// Gauges
func SetRecords(n int)        { recordsGauge.Set(float64(n)) }
func SetMissing(n int)        { missingGauge.Set(float64(n)) }
func SetMemoryAlloc(b uint64) { memoryAllocGauge.Set(float64(b)) }
func SetGoroutines(n int)     { goroutinesGauge.Set(float64(n)) }
