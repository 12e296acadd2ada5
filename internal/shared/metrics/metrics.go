package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	uploadStartedTotal     atomic.Uint64
	uploadPersistedTotal   atomic.Uint64
	duplicateRetryTotal    atomic.Uint64
	blobDeleteFailedTotal  atomic.Uint64
	regenerationTotal      atomic.Uint64
	panicTotal             atomic.Uint64
	staleWriteRetryTotal   atomic.Uint64
	uploadFailedByReason   = newLabeledCounter()
	extractionDurationHist = newHistogram([]float64{250, 500, 1000, 2500, 5000, 10000, 30000, 60000})
)

// IncUploadStarted increments the started counter.
func IncUploadStarted() { uploadStartedTotal.Add(1) }

// IncUploadPersisted increments the persisted counter.
func IncUploadPersisted() { uploadPersistedTotal.Add(1) }

// IncUploadFailed increments the failure counter for reason.
func IncUploadFailed(reason string) { uploadFailedByReason.Inc(reason) }

// IncDuplicateRetry counts storage-level duplicate collisions that triggered a second resolver pass.
func IncDuplicateRetry() { duplicateRetryTotal.Add(1) }

// IncBlobDeleteFailed counts swallowed blob delete failures.
func IncBlobDeleteFailed() { blobDeleteFailedTotal.Add(1) }

// IncRegeneration counts rendered artifacts.
func IncRegeneration() { regenerationTotal.Add(1) }

// IncStaleWriteRetry counts bol data writes that lost a version race.
func IncStaleWriteRetry() { staleWriteRetryTotal.Add(1) }

// IncPanic counts handler panics caught by the recovery middleware.
func IncPanic() { panicTotal.Add(1) }

// ObserveExtractionDurationMs records an extraction call duration in milliseconds.
func ObserveExtractionDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	extractionDurationHist.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "upload_started_total", "Total uploads received", uploadStartedTotal.Load())
	writeCounter(&buf, "upload_persisted_total", "Total uploads persisted", uploadPersistedTotal.Load())
	writeLabeledCounter(&buf, "upload_failed_total", "Total uploads failed by reason", "reason", uploadFailedByReason.Snapshot())
	writeCounter(&buf, "duplicate_retry_total", "Duplicate key collisions resolved by a second pass", duplicateRetryTotal.Load())
	writeCounter(&buf, "blob_delete_failed_total", "Blob deletes that failed and were ignored", blobDeleteFailedTotal.Load())
	writeCounter(&buf, "regeneration_total", "Artifacts rendered", regenerationTotal.Load())
	writeCounter(&buf, "stale_write_retry_total", "Bol data writes retried after a concurrent change", staleWriteRetryTotal.Load())
	writeCounter(&buf, "http_panic_total", "Handler panics recovered", panicTotal.Load())
	writeHistogram(&buf, "extraction_duration_ms", "Extraction call duration in milliseconds", extractionDurationHist.Snapshot())
	return buf.String()
}

type labeledCounter struct {
	mu     sync.Mutex
	values map[string]uint64
}

func newLabeledCounter() *labeledCounter {
	return &labeledCounter{values: make(map[string]uint64)}
}

func (l *labeledCounter) Inc(label string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.values[label]++
}

func (l *labeledCounter) Snapshot() map[string]uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]uint64, len(l.values))
	for k, v := range l.values {
		out[k] = v
	}
	return out
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeLabeledCounter(buf *bytes.Buffer, name, help, label string, values map[string]uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(buf, "%s{%s=%q} %d\n", name, label, k, values[k])
	}
}

// Buckets hold per-bucket counts; cumulative totals are computed on render.
func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
