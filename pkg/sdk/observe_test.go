package medmatch

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserver_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := newTestClient(t, WithPrometheus(reg))
	ctx := context.Background()

	if _, err := c.Lookup(ctx, "dolo 650"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Lookup(ctx, "qwzx"); err != nil {
		t.Fatal(err)
	}
	_, _ = c.Lookup(ctx, "")

	ops := c.obs.metrics.operations
	if got := testutil.ToFloat64(ops.WithLabelValues("lookup", "matched")); got != 1 {
		t.Errorf("matched = %v, want 1", got)
	}
	if got := testutil.ToFloat64(ops.WithLabelValues("lookup", "empty")); got != 1 {
		t.Errorf("empty = %v, want 1", got)
	}
	if got := testutil.ToFloat64(ops.WithLabelValues("lookup", "error")); got != 1 {
		t.Errorf("error = %v, want 1", got)
	}
	// the failed call observes no match count
	if got := testutil.CollectAndCount(c.obs.metrics.matches); got != 1 {
		t.Errorf("matches series = %d, want 1", got)
	}
}

func TestObserver_ReusesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := newTestClient(t, WithPrometheus(reg))
	second := newTestClient(t, WithPrometheus(reg))

	if first.obs.metrics.operations != second.obs.metrics.operations {
		t.Error("second client should reuse the registered counter")
	}
}

func TestObserver_IncompatibleCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	clash := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "medmatch",
		Subsystem: "sdk",
		Name:      "operations_total",
		Help:      "Total SDK operations by type and status.",
	}, []string{"operation", "status"})
	reg.MustRegister(clash)

	_, err := New(context.Background(), WithEntries(testEntries()), WithPrometheus(reg))
	if err == nil {
		t.Fatal("expected error for incompatible collector")
	}
}

func TestObserver_Logging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	c := newTestClient(t, WithLogger(logger))

	if _, err := c.Lookup(context.Background(), "dolo 650"); err != nil {
		t.Fatal(err)
	}
	_, _ = c.Strip(context.Background(), "")

	out := buf.String()
	if !strings.Contains(out, "catalog loaded") {
		t.Errorf("missing load log: %s", out)
	}
	if !strings.Contains(out, "op=lookup") || !strings.Contains(out, "operation completed") {
		t.Errorf("missing lookup log: %s", out)
	}
	if !strings.Contains(out, "op=strip") || !strings.Contains(out, "operation failed") {
		t.Errorf("missing strip failure log: %s", out)
	}
}

func TestObserver_Nil(t *testing.T) {
	var o *observer
	o.observe("lookup", time.Now(), 0, nil)
}
