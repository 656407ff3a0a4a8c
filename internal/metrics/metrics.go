package metrics

type Counter interface {
	Inc()
}

type Observer interface {
	Observe(float64)
}

type Metrics struct {
	CyclesRun      Counter
	CyclesAborted  Counter
	TicksStale     Counter
	HedgesPlaced   Counter
	HedgesFailed   Counter
	OrdersPlaced   Counter
	OrdersFailed   Counter
	CancelsFailed  Counter
	FeedReconnects Counter
	FramesDropped  Counter
	// CycleSeconds observes the wall time of every completed cycle.
	CycleSeconds Observer
}

type noop struct{}

func (noop) Inc()            {}
func (noop) Observe(float64) {}

func NewNoop() *Metrics {
	n := noop{}
	return &Metrics{
		CyclesRun:      n,
		CyclesAborted:  n,
		TicksStale:     n,
		HedgesPlaced:   n,
		HedgesFailed:   n,
		OrdersPlaced:   n,
		OrdersFailed:   n,
		CancelsFailed:  n,
		FeedReconnects: n,
		FramesDropped:  n,
		CycleSeconds:   n,
	}
}
