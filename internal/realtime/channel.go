package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pixil98/go-gamesync/internal/dispatch"
	"github.com/pixil98/go-gamesync/internal/protocol"
)

const (
	DefaultMaxReconnectAttempts = 5
	DefaultReconnectDelay       = time.Second
	DefaultSendBuffer           = 256
	DefaultWriteTimeout         = 10 * time.Second
	closeWait                   = 2 * time.Second
)

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Channel is a persistent, auto-reconnecting websocket connection carrying
// named events. Handlers and connection hooks always run on the update
// goroutine via the poster.
type Channel struct {
	url    *url.URL
	dialer *websocket.Dialer
	poster dispatch.Poster

	maxAttempts  int
	retryDelay   time.Duration
	sendBuffer   int
	writeTimeout time.Duration

	hmu          sync.RWMutex
	handlers     map[string]Handler
	onConnect    func()
	onDisconnect func(error)

	mu     sync.Mutex
	state  State
	gen    uint64
	send   chan []byte
	cancel context.CancelFunc
	done   chan struct{}
}

func NewChannel(rawURL string, poster dispatch.Poster, opts ...ChannelOpt) (*Channel, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing realtime url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return nil, fmt.Errorf("realtime url must use ws or wss")
	}
	if u.Host == "" {
		return nil, fmt.Errorf("realtime url host is required")
	}
	if poster == nil {
		return nil, fmt.Errorf("poster is required")
	}

	c := &Channel{
		url:          u,
		dialer:       websocket.DefaultDialer,
		poster:       poster,
		maxAttempts:  DefaultMaxReconnectAttempts,
		retryDelay:   DefaultReconnectDelay,
		sendBuffer:   DefaultSendBuffer,
		writeTimeout: DefaultWriteTimeout,
		handlers:     map[string]Handler{},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// On registers the handler for an inbound event. Handlers are meant to be
// registered once, before Open.
func (c *Channel) On(event string, h Handler) {
	c.hmu.Lock()
	defer c.hmu.Unlock()
	if _, ok := c.handlers[event]; ok {
		slog.Warn("replacing realtime handler", "event", event)
	}
	c.handlers[event] = h
}

// HandleConnect sets the hook run on the update goroutine after every
// successful (re)connection.
func (c *Channel) HandleConnect(fn func()) {
	c.hmu.Lock()
	defer c.hmu.Unlock()
	c.onConnect = fn
}

// HandleDisconnect sets the hook run on the update goroutine whenever a
// connection ends or the connect attempts are exhausted.
func (c *Channel) HandleDisconnect(fn func(error)) {
	c.hmu.Lock()
	defer c.hmu.Unlock()
	c.onDisconnect = fn
}

func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Channel) IsConnected() bool {
	return c.State() == StateConnected
}

// Open starts connecting with the given credentials. A redundant Open while a
// connection is active or in progress is ignored.
func (c *Channel) Open(token, playerID string) {
	c.mu.Lock()
	if c.cancel != nil {
		state := c.state
		c.mu.Unlock()
		slog.Warn("realtime channel already open", "state", state.String())
		return
	}

	u := *c.url
	q := u.Query()
	q.Set("token", token)
	q.Set("playerId", playerID)
	u.RawQuery = q.Encode()

	ctx, cancel := context.WithCancel(context.Background())
	c.gen++
	gen := c.gen
	done := make(chan struct{})
	c.state = StateConnecting
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	go c.run(ctx, gen, u.String(), done)
}

// Close tears down the connection and stops reconnecting. It is idempotent.
func (c *Channel) Close() {
	c.mu.Lock()
	cancel := c.cancel
	done := c.done
	c.cancel = nil
	c.done = nil
	c.send = nil
	c.state = StateDisconnected
	// Hooks and events from the old connection are dropped from here on.
	c.gen++
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()

	select {
	case <-done:
	case <-time.After(closeWait):
		slog.Warn("realtime channel did not stop in time")
	}
}

// Emit queues an event for sending. It is fire-and-forget: false means the
// event was dropped (not connected, encode failure, or full buffer).
func (c *Channel) Emit(event string, payload any) bool {
	data, err := protocol.NewEnvelope(event, payload)
	if err != nil {
		slog.Error("encoding realtime event", "event", event, "error", err)
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.send == nil || c.state != StateConnected {
		slog.Debug("dropping realtime event while disconnected", "event", event)
		return false
	}

	select {
	case c.send <- data:
		return true
	default:
		slog.Warn("realtime send buffer full, dropping event", "event", event)
		return false
	}
}

func (c *Channel) run(ctx context.Context, gen uint64, target string, done chan struct{}) {
	defer close(done)

	attempts := 0
	for {
		conn, resp, err := c.dialer.DialContext(ctx, target, nil)
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		if err == nil {
			attempts = 0
			err = c.serve(ctx, gen, conn)
			if ctx.Err() != nil {
				return
			}
			slog.Warn("realtime connection lost", "error", err)
			c.postDisconnect(gen, err)
		} else if ctx.Err() != nil {
			return
		} else {
			slog.Warn("realtime connect failed", "attempt", attempts+1, "error", err)
		}

		attempts++
		if attempts > c.maxAttempts {
			slog.Error("realtime reconnect attempts exhausted", "attempts", c.maxAttempts)
			c.mu.Lock()
			var cancel context.CancelFunc
			if c.gen == gen {
				c.state = StateDisconnected
				cancel = c.cancel
				c.cancel = nil
				c.done = nil
			}
			c.mu.Unlock()
			if cancel != nil {
				cancel()
			}
			c.postDisconnect(gen, fmt.Errorf("giving up after %d attempts: %w", attempts, err))
			return
		}

		c.setState(gen, StateConnecting)

		timer := time.NewTimer(c.retryDelay * time.Duration(attempts))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (c *Channel) serve(ctx context.Context, gen uint64, conn *websocket.Conn) error {
	send := make(chan []byte, c.sendBuffer)

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	c.state = StateConnected
	c.send = send
	c.mu.Unlock()

	slog.Info("realtime channel connected", "url", c.url.String())
	c.postConnect(gen)

	connCtx, stop := context.WithCancel(ctx)
	writerDone := make(chan struct{})
	go c.writeLoop(connCtx, conn, send, writerDone)

	err := c.readLoop(gen, conn)

	stop()
	<-writerDone

	c.mu.Lock()
	if c.gen == gen {
		c.send = nil
		c.state = StateConnecting
	}
	c.mu.Unlock()

	return err
}

func (c *Channel) readLoop(gen uint64, conn *websocket.Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		c.dispatchFrame(gen, data)
	}
}

// dispatchFrame decodes one frame on the reader goroutine. A bad frame is
// logged and skipped; it never ends the connection.
func (c *Channel) dispatchFrame(gen uint64, data []byte) {
	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		slog.Warn("discarding malformed realtime frame", "error", err)
		return
	}

	c.hmu.RLock()
	h, ok := c.handlers[env.Event]
	c.hmu.RUnlock()
	if !ok {
		slog.Debug("no handler for realtime event", "event", env.Event)
		return
	}

	work, err := h(env.Data)
	if err != nil {
		slog.Warn("decoding realtime event", "event", env.Event, "error", err)
		return
	}

	c.poster.Post(func() {
		if !c.isGen(gen) {
			return
		}
		work()
	})
}

func (c *Channel) writeLoop(ctx context.Context, conn *websocket.Conn, send <-chan []byte, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			_ = conn.Close()
			return
		case data := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				slog.Warn("writing realtime frame", "error", err)
				// Unblocks the reader, which ends the connection.
				_ = conn.Close()
				<-ctx.Done()
				return
			}
		}
	}
}

func (c *Channel) isGen(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen == gen
}

func (c *Channel) setState(gen uint64, s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen == gen {
		c.state = s
	}
}

func (c *Channel) postConnect(gen uint64) {
	c.hmu.RLock()
	fn := c.onConnect
	c.hmu.RUnlock()
	if fn == nil {
		return
	}
	c.poster.Post(func() {
		if c.isGen(gen) {
			fn()
		}
	})
}

func (c *Channel) postDisconnect(gen uint64, err error) {
	c.hmu.RLock()
	fn := c.onDisconnect
	c.hmu.RUnlock()
	if fn == nil {
		return
	}
	c.poster.Post(func() {
		if c.isGen(gen) {
			fn(err)
		}
	})
}
