// Package client implements the realtime channel client used by dashboard
// consumers. One client owns one transport connection, tracks the set of
// subscribed channels on that connection, reconnects with exponential
// backoff after unclean drops, and dispatches every parsed inbound frame to
// registered handlers in order.
//
// Subscriptions are deliberately not replayed across reconnects: the
// subscribed set is scoped to a single transport connection, and consumers
// re-subscribe when they observe the Connected state (see OnStateChange).
package client

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/agisfl/agisfl/proto"
)

// State is the connection state observable by consumers.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateFailed       State = "failed"
)

type Client struct {
	mu        sync.Mutex
	transport Transport
	state     State
	subs      map[string]struct{}

	msgHandlers   []func(proto.Message)
	stateHandlers []func(State)

	// Pending state notifications, drained in order by notifyLoop.
	notifyQueue []State
	notifyKick  chan struct{}

	backoffBase   time.Duration
	backoffCap    time.Duration
	maxAttempts   int
	autoReconnect bool
	pingInterval  time.Duration

	// attempt counts consecutive failed reconnect attempts since the last
	// successful connect.
	attempt    int
	retryTimer *time.Timer

	// gen invalidates receive/ping loops from previous connections.
	gen      int
	lastPong time.Time
	closed   bool

	ctx    context.Context
	cancel context.CancelFunc
}

type Option func(*Client)

// WithBackoff sets the reconnect delay parameters. Attempt n waits
// min(base * 2^(n-1), cap).
func WithBackoff(base, limit time.Duration) Option {
	return func(c *Client) {
		c.backoffBase = base
		c.backoffCap = limit
	}
}

// WithMaxAttempts bounds consecutive reconnect attempts before the client
// gives up and enters StateFailed.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		c.maxAttempts = n
	}
}

// WithAutoReconnect toggles automatic reconnection after unclean transport
// loss. When disabled, any drop lands in StateDisconnected and the consumer
// must call Connect again. Enabled by default.
func WithAutoReconnect(enabled bool) Option {
	return func(c *Client) {
		c.autoReconnect = enabled
	}
}

// WithPingInterval sets how often a ping command is sent while connected.
// Zero disables the heartbeat.
func WithPingInterval(d time.Duration) Option {
	return func(c *Client) {
		c.pingInterval = d
	}
}

func New(t Transport, opts ...Option) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	c := &Client{
		transport:     t,
		state:         StateDisconnected,
		subs:          make(map[string]struct{}),
		backoffBase:   time.Second,
		backoffCap:    30 * time.Second,
		maxAttempts:   10,
		autoReconnect: true,
		pingInterval:  30 * time.Second,
		notifyKick:    make(chan struct{}, 1),
		ctx:           ctx,
		cancel:        cancel,
	}

	for _, opt := range opts {
		opt(c)
	}

	go c.notifyLoop()

	return c
}

// Connect opens the transport. It is a no-op while already Connecting or
// Connected. Calling it from StateFailed resets the attempt counter and
// starts over. The returned error reflects the first dial only; when
// auto-reconnect is enabled a failed dial keeps retrying in the background.
func (c *Client) Connect() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClientClosed
	}
	if c.state == StateConnected || c.state == StateConnecting {
		c.mu.Unlock()
		return nil
	}
	c.stopRetryLocked()
	c.attempt = 0
	c.mu.Unlock()

	return c.dial()
}

func (c *Client) dial() error {
	c.mu.Lock()
	if c.closed || c.state == StateConnected || c.state == StateConnecting {
		c.mu.Unlock()
		return nil
	}
	c.setStateLocked(StateConnecting)
	c.mu.Unlock()

	if err := c.transport.Connect(c.ctx); err != nil {
		slog.Warn("realtime: connect failed", "error", err)
		c.scheduleRetry()
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = c.transport.Close()
		return ErrClientClosed
	}
	c.gen++
	gen := c.gen
	c.attempt = 0
	c.subs = make(map[string]struct{})
	c.lastPong = time.Time{}
	c.setStateLocked(StateConnected)
	c.mu.Unlock()

	go c.receiveLoop(gen)
	if c.pingInterval > 0 {
		go c.pingLoop(gen)
	}

	return nil
}

func (c *Client) receiveLoop(gen int) {
	for {
		data, err := c.transport.Receive()
		if err != nil {
			c.handleDisconnect(gen, err)
			return
		}

		var msg proto.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			// Malformed frames are dropped; the connection stays up.
			slog.Warn("realtime: dropping malformed frame", "error", err, "size", len(data))
			continue
		}

		c.mu.Lock()
		if gen != c.gen {
			c.mu.Unlock()
			return
		}
		if msg.Type == proto.TypePong {
			c.lastPong = time.Now()
		}
		handlers := slices.Clone(c.msgHandlers)
		c.mu.Unlock()

		// Synchronous dispatch in registration order preserves transport
		// delivery order.
		for _, h := range handlers {
			h(msg)
		}
	}
}

func (c *Client) pingLoop(gen int) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			live := gen == c.gen && c.state == StateConnected
			c.mu.Unlock()
			if !live {
				return
			}
			// A missing pong is not treated as a failure; the transport
			// itself has to notice a dead peer. LastPong exposes the gap.
			c.sendMessage(proto.Ping())
		}
	}
}

func (c *Client) handleDisconnect(gen int, err error) {
	c.mu.Lock()
	if c.closed || gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.gen++
	c.subs = make(map[string]struct{})
	c.mu.Unlock()

	_ = c.transport.Close()

	if errors.Is(err, ErrClosedNormally) {
		slog.Info("realtime: connection closed by peer")
		c.setState(StateDisconnected)
		return
	}

	slog.Warn("realtime: connection lost", "error", err)
	c.scheduleRetry()
}

func (c *Client) scheduleRetry() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if !c.autoReconnect {
		c.setStateLocked(StateDisconnected)
		c.mu.Unlock()
		return
	}
	if c.attempt >= c.maxAttempts {
		c.setStateLocked(StateFailed)
		attempts := c.attempt
		c.mu.Unlock()
		slog.Error("realtime: giving up after max reconnect attempts", "attempts", attempts)
		return
	}
	c.attempt++
	delay := backoffDelay(c.attempt, c.backoffBase, c.backoffCap)
	c.setStateLocked(StateReconnecting)
	c.retryTimer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		c.retryTimer = nil
		c.mu.Unlock()
		_ = c.dial()
	})
	attempt := c.attempt
	c.mu.Unlock()
	slog.Info("realtime: reconnecting", "attempt", attempt, "delay", delay)
}

// backoffDelay returns the wait before reconnect attempt n (1-based):
// min(base * 2^(n-1), cap).
func backoffDelay(n int, base, limit time.Duration) time.Duration {
	d := base
	for i := 1; i < n; i++ {
		d *= 2
		if d >= limit {
			return limit
		}
	}
	if d > limit {
		return limit
	}
	return d
}

// Subscribe sends a subscribe command for channel and records it in the
// local set. Not connected: logged no-op. There is no command queue; the
// caller re-subscribes after observing reconnection.
func (c *Client) Subscribe(channel string) {
	c.mu.Lock()
	if c.state != StateConnected {
		c.mu.Unlock()
		slog.Debug("realtime: subscribe ignored, not connected", "channel", channel)
		return
	}
	c.subs[channel] = struct{}{}
	c.mu.Unlock()

	c.sendMessage(proto.Subscribe(channel))
}

// Unsubscribe mirrors Subscribe.
func (c *Client) Unsubscribe(channel string) {
	c.mu.Lock()
	if c.state != StateConnected {
		c.mu.Unlock()
		slog.Debug("realtime: unsubscribe ignored, not connected", "channel", channel)
		return
	}
	delete(c.subs, channel)
	c.mu.Unlock()

	c.sendMessage(proto.Unsubscribe(channel))
}

// Send transmits an arbitrary JSON-serializable command. While not connected
// it drops the message with a warning and never touches the transport.
func (c *Client) Send(v any) {
	c.mu.Lock()
	connected := c.state == StateConnected
	c.mu.Unlock()

	if !connected {
		slog.Warn("realtime: send dropped, not connected")
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		slog.Warn("realtime: send dropped, marshal failed", "error", err)
		return
	}
	if err := c.transport.Send(data); err != nil {
		slog.Warn("realtime: send failed", "error", err)
	}
}

func (c *Client) sendMessage(msg proto.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Warn("realtime: marshal failed", "type", msg.Type, "error", err)
		return
	}
	if err := c.transport.Send(data); err != nil {
		slog.Warn("realtime: send failed", "type", msg.Type, "error", err)
	}
}

// OnMessage registers a handler invoked for every successfully parsed
// inbound frame. Handlers run in registration order.
func (c *Client) OnMessage(h func(proto.Message)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgHandlers = append(c.msgHandlers, h)
}

// OnStateChange registers a handler invoked on every state transition.
// Consumers typically re-subscribe their channels when the new state is
// StateConnected.
func (c *Client) OnStateChange(h func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stateHandlers = append(c.stateHandlers, h)
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Channels returns the channels subscribed on the current connection,
// sorted for stable output.
func (c *Client) Channels() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	channels := make([]string, 0, len(c.subs))
	for ch := range c.subs {
		channels = append(channels, ch)
	}
	slices.Sort(channels)
	return channels
}

// LastPong reports when the most recent pong arrived on the current
// connection; zero if none has.
func (c *Client) LastPong() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastPong
}

// Close tears the client down: any pending reconnect timer is cancelled, the
// transport is closed with a normal-closure frame, and no further reconnect
// is attempted. Terminal.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.stopRetryLocked()
	c.gen++
	c.subs = make(map[string]struct{})
	c.setStateLocked(StateDisconnected)
	c.mu.Unlock()

	c.cancel()
	return c.transport.Close()
}

func (c *Client) stopRetryLocked() {
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
}

// setStateLocked is called with c.mu held. Transitions are queued and
// delivered by the single notifyLoop goroutine, so observers see them in
// the order they occurred and handlers may call back into the client
// (Subscribe, Connect) without deadlocking.
func (c *Client) setStateLocked(s State) {
	if c.state == s {
		return
	}
	c.state = s
	c.notifyQueue = append(c.notifyQueue, s)
	select {
	case c.notifyKick <- struct{}{}:
	default:
	}
}

func (c *Client) notifyLoop() {
	for {
		select {
		case <-c.notifyKick:
			c.drainNotifications()
		case <-c.ctx.Done():
			// Deliver anything queued before teardown, then stop.
			c.drainNotifications()
			return
		}
	}
}

func (c *Client) drainNotifications() {
	for {
		c.mu.Lock()
		if len(c.notifyQueue) == 0 {
			c.mu.Unlock()
			return
		}
		s := c.notifyQueue[0]
		c.notifyQueue = c.notifyQueue[1:]
		handlers := slices.Clone(c.stateHandlers)
		c.mu.Unlock()

		for _, h := range handlers {
			h(s)
		}
	}
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.setStateLocked(s)
	c.mu.Unlock()
}
