package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusCounters(t *testing.T) {
	prom := NewPrometheus()
	prom.Metrics.CyclesRun.Inc()
	prom.Metrics.CyclesRun.Inc()
	prom.Metrics.CyclesAborted.Inc()
	prom.Metrics.TicksStale.Inc()
	prom.Metrics.HedgesPlaced.Inc()
	prom.Metrics.HedgesFailed.Inc()
	prom.Metrics.OrdersPlaced.Inc()
	prom.Metrics.OrdersFailed.Inc()
	prom.Metrics.CancelsFailed.Inc()
	prom.Metrics.FeedReconnects.Inc()
	prom.Metrics.FramesDropped.Inc()

	expected := map[string]float64{
		"cycles_total":          2,
		"cycles_aborted_total":  1,
		"ticks_stale_total":     1,
		"hedges_placed_total":   1,
		"hedges_failed_total":   1,
		"orders_placed_total":   1,
		"orders_failed_total":   1,
		"cancels_failed_total":  1,
		"feed_reconnects_total": 1,
		"frames_dropped_total":  1,
	}
	if len(prom.counters) != len(expected) {
		t.Fatalf("expected %d counters, got %d", len(expected), len(prom.counters))
	}
	for name, want := range expected {
		c, ok := prom.counters[name]
		if !ok {
			t.Fatalf("missing counter %s", name)
		}
		if got := testutil.ToFloat64(c); got != want {
			t.Fatalf("%s: expected %v, got %v", name, want, got)
		}
	}
}

func TestPrometheusHandlerExposesNamespace(t *testing.T) {
	prom := NewPrometheus()
	prom.Metrics.CyclesRun.Inc()
	prom.Metrics.CycleSeconds.Observe(0.3)

	srv := httptest.NewServer(prom.Handler())
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{"shadow_hedger_cycles_total 1", "shadow_hedger_cycle_duration_seconds_count 1"} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("expected %q in scrape output", want)
		}
	}
}

func TestNoopMetricsAreSafe(t *testing.T) {
	m := NewNoop()
	m.CyclesRun.Inc()
	m.CycleSeconds.Observe(1)
}
