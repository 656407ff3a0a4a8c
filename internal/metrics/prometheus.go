package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const promNamespace = "shadow_hedger"

// Prometheus backs Metrics with collectors on a private registry.
type Prometheus struct {
	Metrics *Metrics

	registry *prometheus.Registry
	counters map[string]prometheus.Counter
	cycleDur prometheus.Histogram
}

func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		counters: make(map[string]prometheus.Counter),
	}
	p.cycleDur = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: promNamespace,
		Name:      "cycle_duration_seconds",
		Help:      "Wall time of completed hedge cycles.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8},
	})
	p.registry.MustRegister(p.cycleDur)

	p.Metrics = &Metrics{
		CyclesRun:      p.counter("cycles_total", "Total number of completed hedge cycles."),
		CyclesAborted:  p.counter("cycles_aborted_total", "Total number of cycles aborted during account refresh."),
		TicksStale:     p.counter("ticks_stale_total", "Total number of trade ticks dropped as stale."),
		HedgesPlaced:   p.counter("hedges_placed_total", "Total number of hedge orders placed on the primary venue."),
		HedgesFailed:   p.counter("hedges_failed_total", "Total number of hedge order failures."),
		OrdersPlaced:   p.counter("orders_placed_total", "Total number of quotes placed on the hedge venue."),
		OrdersFailed:   p.counter("orders_failed_total", "Total number of quote placement failures."),
		CancelsFailed:  p.counter("cancels_failed_total", "Total number of order cancellation failures."),
		FeedReconnects: p.counter("feed_reconnects_total", "Total number of market feed reconnects."),
		FramesDropped:  p.counter("frames_dropped_total", "Total number of feed frames dropped."),
		CycleSeconds:   p.cycleDur,
	}
	return p
}

func (p *Prometheus) counter(name, help string) prometheus.Counter {
	c := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      name,
		Help:      help,
	})
	p.registry.MustRegister(c)
	p.counters[name] = c
	return c
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
