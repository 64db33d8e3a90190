package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInit(t *testing.T) {
	// Reset collectors for testing purposes.
	scansTotal = nil
	analyzerDurationSeconds = nil
	httpRequestsTotal = nil
	httpRequestDurationSecs = nil

	// Call Init multiple times to test idempotency.
	Init()
	Init()

	if scansTotal == nil || analyzerDurationSeconds == nil ||
		httpRequestsTotal == nil || httpRequestDurationSecs == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}

	// A simple check to see if a metric can be used.
	scansTotal.WithLabelValues("completed").Inc()
	if val := testutil.ToFloat64(scansTotal.WithLabelValues("completed")); val != 1 {
		t.Errorf("Expected scansTotal to be 1, got %f", val)
	}
}

func TestObserveAnalyzer(t *testing.T) {
	Init()

	stop := ObserveAnalyzer("website")
	time.Sleep(time.Millisecond)
	stop()

	if val := testutil.CollectAndCount(analyzerDurationSeconds); val <= 0 {
		t.Errorf("Expected analyzerDurationSeconds to be observed, got %d", val)
	}
}

func TestObserveBeforeInitIsSafe(t *testing.T) {
	saved := scansTotal
	scansTotal = nil
	defer func() { scansTotal = saved }()

	// Must not panic.
	ObserveScan("failed")
}
