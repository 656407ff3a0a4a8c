package market

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
)

const (
	depthSubID = "id10"
	tradeSubID = "id11"
)

// Stream is the transport under the feed; frames arrive already inflated
// with heartbeats answered.
type Stream interface {
	Subscribe(ctx context.Context, sub any) error
	Run(ctx context.Context, handler func([]byte)) error
}

type Subscription struct {
	Sub string `json:"sub"`
	ID  string `json:"id"`
}

// Feed turns the depth and trade channels of one symbol into Ticks.
type Feed struct {
	stream Stream
	symbol string
	log    *zap.Logger
	onDrop func()

	dropped atomic.Uint64
}

func NewFeed(stream Stream, symbol string, log *zap.Logger) *Feed {
	if log == nil {
		log = zap.NewNop()
	}
	return &Feed{stream: stream, symbol: ChannelSymbol(symbol), log: log}
}

// OnDrop registers a callback for frames that were dropped (undecodable or
// consumer busy).
func (f *Feed) OnDrop(fn func()) {
	f.onDrop = fn
}

// ChannelSymbol strips separators: "btc_usdt" becomes "btcusdt".
func ChannelSymbol(symbol string) string {
	symbol = strings.ToLower(strings.TrimSpace(symbol))
	return strings.NewReplacer("_", "", "-", "", "/", "").Replace(symbol)
}

func DepthChannel(symbol string) string {
	return fmt.Sprintf("market.%s.depth.step0", ChannelSymbol(symbol))
}

func TradeChannel(symbol string) string {
	return fmt.Sprintf("market.%s.trade.detail", ChannelSymbol(symbol))
}

func (f *Feed) Subscriptions() []Subscription {
	return []Subscription{
		{Sub: DepthChannel(f.symbol), ID: depthSubID},
		{Sub: TradeChannel(f.symbol), ID: tradeSubID},
	}
}

// Run subscribes to both channels and hands decoded ticks to out until ctx
// ends. The read loop never blocks on out: ticks wait in a queue where a new
// depth snapshot replaces the pending one and trades beyond cap(out) are
// dropped. Run returns once the stream stops and the queue is handed over,
// or ctx ends.
func (f *Feed) Run(ctx context.Context, out chan<- Tick) error {
	for _, sub := range f.Subscriptions() {
		if err := f.stream.Subscribe(ctx, sub); err != nil {
			return err
		}
	}
	queue := newTickQueue(cap(out))
	streamDone := make(chan struct{})
	forwarded := make(chan struct{})
	go func() {
		defer close(forwarded)
		queue.forward(ctx, out, streamDone)
	}()

	err := f.stream.Run(ctx, func(data []byte) {
		tick, ok, err := Decode(data)
		if err != nil {
			f.drop()
			f.log.Warn("feed frame dropped", zap.Error(err))
			return
		}
		if !ok {
			return
		}
		if !queue.push(tick) {
			f.drop()
			f.log.Warn("feed consumer busy, tick dropped", zap.Stringer("kind", tick.Kind), zap.Int64("ts", tick.Timestamp))
		}
	})
	close(streamDone)
	<-forwarded
	return err
}

func (f *Feed) Dropped() uint64 {
	return f.dropped.Load()
}

func (f *Feed) drop() {
	f.dropped.Add(1)
	if f.onDrop != nil {
		f.onDrop()
	}
}
