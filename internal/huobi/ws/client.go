package ws

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"shadow-hedger/internal/venue"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

const readLimit = 1 << 20

var pingPrefix = []byte(`{"ping"`)

// Client keeps one streaming connection alive: it inflates gzip frames,
// answers the server's ping challenge and replays subscriptions after a
// reconnect. Frames reach the handler in arrival order within a connection.
type Client struct {
	url              string
	reconnectDelay   time.Duration
	heartbeatTimeout time.Duration
	log              *zap.Logger

	mu          sync.Mutex
	conn        *websocket.Conn
	subs        []any
	onReconnect func()
	lastPing    atomic.Int64
	writeMu     sync.Mutex
}

func New(url string, reconnectDelay, heartbeatTimeout time.Duration, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{url: url, reconnectDelay: reconnectDelay, heartbeatTimeout: heartbeatTimeout, log: log}
}

// OnReconnect registers a callback fired after every successful re-dial.
func (c *Client) OnReconnect(fn func()) {
	c.mu.Lock()
	c.onReconnect = fn
	c.mu.Unlock()
}

func (c *Client) Connect(ctx context.Context) error {
	_, err := c.dial(ctx)
	return err
}

func (c *Client) dial(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return false, nil
	}
	conn, _, err := websocket.Dial(ctx, c.url, nil)
	if err != nil {
		return false, &venue.TransientError{Op: "ws dial", Err: err}
	}
	conn.SetReadLimit(readLimit)
	c.conn = conn
	c.lastPing.Store(time.Now().UnixNano())
	return true, nil
}

// Subscribe records sub for replay after reconnects and sends it now when connected.
func (c *Client) Subscribe(ctx context.Context, sub any) error {
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	return c.writeJSON(ctx, conn, sub)
}

// Run reads until ctx is done, reconnecting after reconnectDelay whenever the
// connection drops.
func (c *Client) Run(ctx context.Context, handler func([]byte)) error {
	first := true
	for {
		fresh, err := c.ensureConnected(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Warn("ws connect failed", zap.Error(err))
			if !c.sleep(ctx) {
				return ctx.Err()
			}
			continue
		}
		if fresh && !first {
			c.mu.Lock()
			fn := c.onReconnect
			c.mu.Unlock()
			if fn != nil {
				fn()
			}
		}
		first = false
		hbCtx, cancel := context.WithCancel(ctx)
		hbDone := make(chan struct{})
		go func() {
			defer close(hbDone)
			c.heartbeatLoop(hbCtx)
		}()
		err = c.readLoop(ctx, handler)
		cancel()
		<-hbDone
		if ctx.Err() != nil {
			c.resetConn()
			return ctx.Err()
		}
		c.logReadLoopError(err)
		c.resetConn()
		if !c.sleep(ctx) {
			return ctx.Err()
		}
	}
}

func (c *Client) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(c.reconnectDelay):
		return true
	}
}

func (c *Client) ensureConnected(ctx context.Context) (bool, error) {
	fresh, err := c.dial(ctx)
	if err != nil {
		return false, err
	}
	c.mu.Lock()
	conn := c.conn
	subs := append([]any(nil), c.subs...)
	c.mu.Unlock()
	if !fresh {
		return false, nil
	}
	for _, sub := range subs {
		if err := c.writeJSON(ctx, conn, sub); err != nil {
			c.resetConn()
			return false, err
		}
	}
	return true, nil
}

func (c *Client) readLoop(ctx context.Context, handler func([]byte)) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return venue.ErrConnectionLost
	}
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("%w: %w", venue.ErrConnectionLost, err)
		}
		if typ == websocket.MessageBinary {
			inflated, err := inflate(data)
			if err != nil {
				c.log.Warn("ws frame dropped", zap.Error(&venue.ProtocolError{Op: "ws inflate", Err: err}))
				continue
			}
			data = inflated
		}
		if bytes.HasPrefix(data, pingPrefix) {
			if err := c.answerPing(ctx, conn, data); err != nil {
				return fmt.Errorf("%w: %w", venue.ErrConnectionLost, err)
			}
			continue
		}
		if handler != nil {
			handler(data)
		}
	}
}

// answerPing echoes the ping timestamp back untouched as a pong.
func (c *Client) answerPing(ctx context.Context, conn *websocket.Conn, data []byte) error {
	var ping struct {
		Ping json.RawMessage `json:"ping"`
	}
	if err := json.Unmarshal(data, &ping); err != nil || len(ping.Ping) == 0 {
		c.log.Warn("ws ping malformed", zap.ByteString("frame", data))
		return nil
	}
	c.lastPing.Store(time.Now().UnixNano())
	return c.writeJSON(ctx, conn, map[string]json.RawMessage{"pong": ping.Ping})
}

// heartbeatLoop drops the connection when the server stops sending pings, so
// Run can reconnect instead of waiting on a half-open socket.
func (c *Client) heartbeatLoop(ctx context.Context) {
	c.mu.Lock()
	conn := c.conn
	timeout := c.heartbeatTimeout
	c.mu.Unlock()
	if conn == nil || timeout <= 0 {
		return
	}
	ticker := time.NewTicker(timeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			last := time.Unix(0, c.lastPing.Load())
			if time.Since(last) > timeout {
				c.log.Warn("ws heartbeat timeout", zap.Duration("since_last_ping", time.Since(last)))
				_ = conn.Close(websocket.StatusGoingAway, "heartbeat timeout")
				return
			}
		}
	}
}

func (c *Client) logReadLoopError(err error) {
	if err == nil {
		return
	}
	status := websocket.CloseStatus(err)
	if status == websocket.StatusNormalClosure {
		var closeErr websocket.CloseError
		if errors.As(err, &closeErr) {
			c.log.Info("ws read loop ended", zap.Int("status", int(closeErr.Code)), zap.String("reason", closeErr.Reason))
			return
		}
	}
	c.log.Warn("ws read loop ended", zap.Error(err))
}

func (c *Client) resetConn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close(websocket.StatusNormalClosure, "reset")
		c.conn = nil
	}
}

func (c *Client) writeJSON(ctx context.Context, conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.Write(ctx, websocket.MessageText, data)
}

func inflate(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
