package market

import (
	"context"
	"sync"
)

// tickQueue sits between the stream read loop and a slower consumer. At most
// one depth snapshot is pending: a newer one overwrites it in place, so any
// trade queued behind it is evaluated against the freshest ladder.
type tickQueue struct {
	mu     sync.Mutex
	ticks  []Tick
	depth  int
	trades int
	limit  int
	wake   chan struct{}
}

func newTickQueue(limit int) *tickQueue {
	if limit < 1 {
		limit = 1
	}
	return &tickQueue{depth: -1, limit: limit, wake: make(chan struct{}, 1)}
}

// push reports false when a trade was dropped because limit trades are
// already waiting. Depth snapshots are never dropped.
func (q *tickQueue) push(tick Tick) bool {
	q.mu.Lock()
	switch {
	case tick.Kind == KindDepth && q.depth >= 0:
		q.ticks[q.depth] = tick
	case tick.Kind == KindDepth:
		q.depth = len(q.ticks)
		q.ticks = append(q.ticks, tick)
	case q.trades >= q.limit:
		q.mu.Unlock()
		return false
	default:
		q.trades++
		q.ticks = append(q.ticks, tick)
	}
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return true
}

func (q *tickQueue) pop() (Tick, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.ticks) == 0 {
		return Tick{}, false
	}
	tick := q.ticks[0]
	q.ticks[0] = Tick{}
	q.ticks = q.ticks[1:]
	switch {
	case q.depth == 0:
		q.depth = -1
	case q.depth > 0:
		q.depth--
	}
	if tick.Kind != KindDepth {
		q.trades--
	}
	return tick, true
}

func (q *tickQueue) empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ticks) == 0
}

// forward moves queued ticks to out until ctx ends, or until done is closed
// and nothing is left.
func (q *tickQueue) forward(ctx context.Context, out chan<- Tick, done <-chan struct{}) {
	for {
		if tick, ok := q.pop(); ok {
			select {
			case out <- tick:
			case <-ctx.Done():
				return
			}
			continue
		}
		select {
		case <-q.wake:
		case <-done:
			if q.empty() {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
