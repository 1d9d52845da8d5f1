package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Channel defaults.
const (
	DefaultURL            = "ws://localhost:8000/ws"
	DefaultConnectTimeout = 10 * time.Second
	DefaultWriteTimeout   = 5 * time.Second
)

var (
	// ErrConnectTimeout is reported when the handshake does not finish
	// within Config.ConnectTimeout.
	ErrConnectTimeout = errors.New("connection timeout")

	// ErrClosed is returned by Close on a channel that was already closed.
	ErrClosed = errors.New("channel closed")
)

// Config holds the channel configuration.
type Config struct {
	URL            string
	Policy         Policy
	ConnectTimeout time.Duration
	WriteTimeout   time.Duration
	Dialer         *websocket.Dialer
	Logger         *slog.Logger
}

// Channel owns a single WebSocket connection to the prediction service.
//
// Outbound payloads are JSON-encoded and written only while Connected;
// otherwise they are dropped. Any closure other than 1000/1001 schedules a
// reconnect according to the Policy. At most one reconnect timer is pending.
type Channel struct {
	config Config
	log    *slog.Logger
	dialer *websocket.Dialer

	mu         sync.Mutex
	state      State
	err        error
	conn       *websocket.Conn
	ctx        context.Context
	cancelDial context.CancelFunc
	timer      *time.Timer
	gen        uint64
	attempts   int
	stopped    bool
	pending    []Event

	writeMu  sync.Mutex
	notifyMu sync.Mutex

	subsMu    sync.RWMutex
	nextSub   int
	msgSubs   map[int]func(PredictionMessage)
	stateSubs map[int]func(Event)
}

// New creates a Channel. Zero-valued fields in config take their defaults.
func New(config Config) *Channel {
	if config.URL == "" {
		config.URL = DefaultURL
	}
	if config.Policy == nil {
		config.Policy = DefaultPolicy()
	}
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = DefaultConnectTimeout
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultWriteTimeout
	}

	dialer := config.Dialer
	if dialer == nil {
		d := *websocket.DefaultDialer
		dialer = &d
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Channel{
		config:    config,
		log:       logger.With("component", "realtime", "url", config.URL),
		dialer:    dialer,
		ctx:       context.Background(),
		msgSubs:   make(map[int]func(PredictionMessage)),
		stateSubs: make(map[int]func(Event)),
	}
}

// Connect starts a connection attempt and returns immediately. Failures
// surface as a Disconnected event carrying the error. Cancelling ctx stops
// any further reconnects. Connect cancels a pending reconnect timer and
// re-arms a channel that was previously closed.
func (c *Channel) Connect(ctx context.Context) {
	c.mu.Lock()
	if c.state == Connected || c.state == Connecting {
		c.mu.Unlock()
		return
	}
	c.ctx = ctx
	c.stopped = false
	c.startLocked()
	c.mu.Unlock()

	c.flush()
}

// startLocked begins a dial. Callers hold c.mu.
func (c *Channel) startLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}

	c.gen++
	gen := c.gen

	dialCtx, cancel := context.WithTimeout(c.ctx, c.config.ConnectTimeout)
	c.cancelDial = cancel

	c.setStateLocked(Event{State: Connecting, Attempt: c.attempts})
	c.log.Debug("connecting", "attempt", c.attempts)

	go c.dial(dialCtx, cancel, gen)
}

func (c *Channel) dial(ctx context.Context, cancel context.CancelFunc, gen uint64) {
	defer cancel()

	conn, resp, err := c.dialer.DialContext(ctx, c.config.URL, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	c.mu.Lock()
	if gen != c.gen || c.state != Connecting {
		c.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) || isTimeout(err) {
			err = fmt.Errorf("%w after %s", ErrConnectTimeout, c.config.ConnectTimeout)
		}
		c.failLocked(err)
		c.mu.Unlock()
		c.flush()
		return
	}

	c.conn = conn
	c.err = nil
	c.attempts = 0
	c.setStateLocked(Event{State: Connected})
	c.mu.Unlock()
	c.flush()

	c.log.Info("connected")
	c.readLoop(conn, gen)
}

func (c *Channel) readLoop(conn *websocket.Conn, gen uint64) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.dropped(conn, gen, err)
			return
		}

		msg, err := DecodeMessage(data)
		if err != nil {
			c.log.Warn("dropping inbound message", "error", err, "bytes", len(data))
			continue
		}
		c.deliver(msg)
	}
}

// dropped handles the end of a connection observed by the read loop.
func (c *Channel) dropped(conn *websocket.Conn, gen uint64, err error) {
	conn.Close()

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.conn = nil

	if c.stopped {
		c.setStateLocked(Event{State: Disconnected})
		c.mu.Unlock()
		c.flush()
		return
	}

	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		c.stopped = true
		c.err = nil
		c.setStateLocked(Event{State: Disconnected})
		c.mu.Unlock()
		c.flush()
		c.log.Info("server closed connection", "reason", err)
		return
	}

	c.failLocked(err)
	c.mu.Unlock()
	c.flush()
}

// failLocked records err, moves to Disconnected and schedules a reconnect
// unless the channel has been stopped. Callers hold c.mu.
func (c *Channel) failLocked(err error) {
	c.err = err

	if c.stopped || c.ctx.Err() != nil {
		c.setStateLocked(Event{State: Disconnected, Err: err, Attempt: c.attempts})
		return
	}

	delay := c.config.Policy.Delay(c.attempts)
	c.attempts++
	gen := c.gen

	c.timer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		if gen != c.gen || c.stopped || c.state != Disconnected || c.ctx.Err() != nil {
			c.mu.Unlock()
			return
		}
		c.timer = nil
		c.startLocked()
		c.mu.Unlock()
		c.flush()
	})

	c.setStateLocked(Event{State: Disconnected, Err: err, Attempt: c.attempts, RetryIn: delay})
	c.log.Warn("connection lost", "error", err, "attempt", c.attempts, "retry_in", delay)
}

// Send JSON-encodes v and writes it if the channel is connected. It returns
// false when the payload was dropped.
func (c *Channel) Send(v any) bool {
	c.mu.Lock()
	conn := c.conn
	connected := c.state == Connected
	c.mu.Unlock()

	if !connected || conn == nil {
		return false
	}

	data, err := json.Marshal(v)
	if err != nil {
		c.log.Error("encode outbound payload", "error", err)
		return false
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		// The read loop notices the broken connection and reconnects.
		c.log.Debug("write failed", "error", err)
		return false
	}
	return true
}

// Close performs a normal closure (code 1000). No reconnect follows until
// Connect is called again. Pending reconnect timers and in-flight dials are
// cancelled.
func (c *Channel) Close(reason string) error {
	c.mu.Lock()
	if c.stopped && c.state == Disconnected && c.conn == nil {
		c.mu.Unlock()
		return ErrClosed
	}

	c.stopped = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.cancelDial != nil {
		c.cancelDial()
	}

	conn := c.conn
	c.conn = nil
	c.gen++
	if conn != nil {
		c.setStateLocked(Event{State: Closing})
	}
	c.mu.Unlock()
	c.flush()

	var err error
	if conn != nil {
		c.writeMu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
		err = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		c.writeMu.Unlock()

		if cerr := conn.Close(); err == nil {
			err = cerr
		}
	}

	c.mu.Lock()
	c.err = nil
	c.setStateLocked(Event{State: Disconnected})
	c.mu.Unlock()
	c.flush()

	c.log.Info("closed", "reason", reason)
	if errors.Is(err, websocket.ErrCloseSent) {
		err = nil
	}
	return err
}

// Subscribe registers fn for every decoded inbound message. Handlers run on
// the channel's read goroutine and must not block. The returned function
// removes the subscription.
func (c *Channel) Subscribe(fn func(PredictionMessage)) func() {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()

	id := c.nextSub
	c.nextSub++
	c.msgSubs[id] = fn

	return func() {
		c.subsMu.Lock()
		defer c.subsMu.Unlock()
		delete(c.msgSubs, id)
	}
}

// WatchState registers fn for state transitions, delivered in order.
func (c *Channel) WatchState(fn func(Event)) func() {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()

	id := c.nextSub
	c.nextSub++
	c.stateSubs[id] = fn

	return func() {
		c.subsMu.Lock()
		defer c.subsMu.Unlock()
		delete(c.stateSubs, id)
	}
}

// State returns the current lifecycle state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsConnected reports whether the channel is Connected.
func (c *Channel) IsConnected() bool {
	return c.State() == Connected
}

// Err returns the reason for the most recent failure, or nil.
func (c *Channel) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Attempts returns the number of consecutive failed connection attempts.
func (c *Channel) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// setStateLocked records a transition for delivery by flush.
func (c *Channel) setStateLocked(ev Event) {
	c.state = ev.State
	c.pending = append(c.pending, ev)
}

// flush delivers queued state events outside c.mu, preserving order.
func (c *Channel) flush() {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	for {
		c.mu.Lock()
		events := c.pending
		c.pending = nil
		c.mu.Unlock()

		if len(events) == 0 {
			return
		}

		c.subsMu.RLock()
		subs := make([]func(Event), 0, len(c.stateSubs))
		for _, fn := range c.stateSubs {
			subs = append(subs, fn)
		}
		c.subsMu.RUnlock()

		for _, ev := range events {
			for _, fn := range subs {
				fn(ev)
			}
		}
	}
}

func (c *Channel) deliver(msg PredictionMessage) {
	c.subsMu.RLock()
	subs := make([]func(PredictionMessage), 0, len(c.msgSubs))
	for _, fn := range c.msgSubs {
		subs = append(subs, fn)
	}
	c.subsMu.RUnlock()

	for _, fn := range subs {
		fn(msg)
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
