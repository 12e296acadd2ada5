package metrics

import (
	"strings"
	"testing"
)

func TestRenderIncludesUploadCounters(t *testing.T) {
	IncUploadStarted()
	IncUploadFailed("extraction_failed")
	IncUploadFailed("extraction_failed")
	ObserveExtractionDurationMs(300)

	out := Render()
	for _, want := range []string{
		"# TYPE upload_started_total counter",
		`upload_failed_total{reason="extraction_failed"} 2`,
		`extraction_duration_ms_bucket{le="500"}`,
		"extraction_duration_ms_count",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in metrics output:\n%s", want, out)
		}
	}
}

func TestHistogramBucketsAreCumulative(t *testing.T) {
	h := newHistogram([]float64{10, 100})
	h.Observe(5)
	h.Observe(50)
	h.Observe(500)

	snap := h.Snapshot()
	if snap.count != 3 {
		t.Fatalf("expected 3 observations, got %d", snap.count)
	}
	if snap.counts[0] != 1 || snap.counts[1] != 1 {
		t.Fatalf("unexpected per-bucket counts: %v", snap.counts)
	}
}
