// Package realtime keeps the websocket connection to the messaging service.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Room is the room every terminal joins when it authenticates.
const Room = "app-comandago"

const (
	EventAuthenticate        = "authenticate"
	EventAuthenticated       = "authenticated"
	EventAuthenticationError = "authentication_error"
)

// ErrNotConnected is returned by operations that need a live connection.
var ErrNotConnected = errors.New("realtime: socket not connected")

// Frame is the JSON envelope exchanged over the socket.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Handler receives the data of one event.
type Handler func(data json.RawMessage)

// Status is a snapshot of the connection state.
type Status struct {
	Connected         bool   `json:"isConnected"`
	Authenticated     bool   `json:"isAuthenticated"`
	ConnectionError   string `json:"connectionError,omitempty"`
	ReconnectAttempts int    `json:"reconnectAttempts"`
}

// Options tune dialing and reconnection.
type Options struct {
	MaxReconnectAttempts int
	ReconnectDelay       time.Duration
	ReconnectDelayMax    time.Duration
	DialTimeout          time.Duration
}

// DefaultOptions mirror the messaging service's recommended client settings.
func DefaultOptions() Options {
	return Options{
		MaxReconnectAttempts: 5,
		ReconnectDelay:       time.Second,
		ReconnectDelayMax:    5 * time.Second,
		DialTimeout:          10 * time.Second,
	}
}

type listener struct {
	id int
	fn Handler
}

// Channel is a reconnecting publish/subscribe client.
type Channel struct {
	url    string
	opts   Options
	dialer *websocket.Dialer

	mu            sync.Mutex
	writeMu       sync.Mutex
	conn          *websocket.Conn
	gen           int
	epoch         int
	connected     bool
	authenticated bool
	connErr       string
	attempts      int
	closed        bool
	nextID        int
	listeners     map[string][]listener
	onConnect     []func()
}

func New(url string, opts Options) *Channel {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = time.Second
	}
	if opts.ReconnectDelayMax < opts.ReconnectDelay {
		opts.ReconnectDelayMax = opts.ReconnectDelay
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 10 * time.Second
	}
	return &Channel{
		url:       url,
		opts:      opts,
		dialer:    &websocket.Dialer{HandshakeTimeout: opts.DialTimeout},
		listeners: make(map[string][]listener),
	}
}

// OnConnect registers fn to run after every successful (re)connection.
func (c *Channel) OnConnect(fn func()) {
	c.mu.Lock()
	c.onConnect = append(c.onConnect, fn)
	c.mu.Unlock()
}

// Connect dials the service. Calling it on an open channel is a no-op. A
// failed dial starts background reconnection.
func (c *Channel) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		log.Printf("realtime: socket already initialized")
		return nil
	}
	c.closed = false
	epoch := c.epoch
	c.mu.Unlock()

	if err := c.dial(ctx); err != nil {
		go c.reconnect(epoch)
		return err
	}
	return nil
}

func (c *Channel) dial(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		c.mu.Lock()
		c.connErr = fmt.Sprintf("Connection error: %v", err)
		c.mu.Unlock()
		log.Printf("realtime: connection error: %v", err)
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close()
		return ErrNotConnected
	}
	if c.conn != nil {
		// another dial won the race
		c.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	c.gen++
	gen := c.gen
	c.conn = conn
	c.connected = true
	c.authenticated = false
	c.connErr = ""
	c.attempts = 0
	hooks := append([]func(){}, c.onConnect...)
	c.mu.Unlock()

	log.Printf("realtime: socket connected to %s", c.url)
	go c.readLoop(conn, gen)
	for _, fn := range hooks {
		fn()
	}
	return nil
}

func (c *Channel) readLoop(conn *websocket.Conn, gen int) {
	for {
		var frame Frame
		if err := conn.ReadJSON(&frame); err != nil {
			c.mu.Lock()
			stale := gen != c.gen || c.closed
			epoch := c.epoch
			if !stale {
				c.conn = nil
				c.connected = false
				c.authenticated = false
			}
			c.mu.Unlock()
			_ = conn.Close()
			if !stale {
				log.Printf("realtime: socket disconnected: %v", err)
				c.reconnect(epoch)
			}
			return
		}
		c.dispatch(frame)
	}
}

func (c *Channel) dispatch(frame Frame) {
	c.mu.Lock()
	switch frame.Event {
	case EventAuthenticated:
		c.authenticated = true
	case EventAuthenticationError:
		c.authenticated = false
		log.Printf("realtime: authentication error: %s", frame.Data)
	}
	ls := append([]listener(nil), c.listeners[frame.Event]...)
	c.mu.Unlock()

	for _, l := range ls {
		l.fn(frame.Data)
	}
}

func (c *Channel) reconnect(epoch int) {
	delay := c.opts.ReconnectDelay
	for {
		c.mu.Lock()
		if c.closed || c.conn != nil || c.epoch != epoch {
			c.mu.Unlock()
			return
		}
		if c.attempts >= c.opts.MaxReconnectAttempts {
			c.connErr = "Unable to connect after multiple attempts"
			c.mu.Unlock()
			log.Printf("realtime: max reconnection attempts reached")
			return
		}
		c.attempts++
		attempt := c.attempts
		c.mu.Unlock()

		time.Sleep(delay)
		log.Printf("realtime: reconnection attempt %d", attempt)
		ctx, cancel := context.WithTimeout(context.Background(), c.opts.DialTimeout)
		err := c.dial(ctx)
		cancel()
		if err == nil {
			log.Printf("realtime: reconnected after %d attempts", attempt)
			return
		}
		delay *= 2
		if delay > c.opts.ReconnectDelayMax {
			delay = c.opts.ReconnectDelayMax
		}
	}
}

// Authenticate identifies the logged-in user on the socket.
func (c *Channel) Authenticate(userID, username string) error {
	if !c.Status().Connected {
		log.Printf("realtime: socket not connected, cannot authenticate")
		return ErrNotConnected
	}
	log.Printf("realtime: authenticating socket user %s", userID)
	return c.Emit(EventAuthenticate, map[string]string{
		"user_id":  userID,
		"username": username,
		"room":     Room,
	})
}

// Emit sends an event. It fails with ErrNotConnected when there is no live connection.
func (c *Channel) Emit(event string, data any) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		log.Printf("realtime: socket not connected, cannot emit event %s", event)
		return ErrNotConnected
	}

	frame := Frame{Event: event}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return err
		}
		frame.Data = raw
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteJSON(frame)
}

// On registers fn for event and returns a function that removes it.
func (c *Channel) On(event string, fn Handler) func() {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.listeners[event] = append(c.listeners[event], listener{id: id, fn: fn})
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		ls := c.listeners[event]
		for i, l := range ls {
			if l.id == id {
				c.listeners[event] = append(ls[:i:i], ls[i+1:]...)
				return
			}
		}
	}
}

// Off removes every listener of event.
func (c *Channel) Off(event string) {
	c.mu.Lock()
	delete(c.listeners, event)
	c.mu.Unlock()
}

// Disconnect closes the socket and stops reconnection.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	c.closed = true
	c.conn = nil
	c.connected = false
	c.authenticated = false
	c.connErr = ""
	c.attempts = 0
	c.gen++
	c.epoch++
	c.mu.Unlock()

	if conn != nil {
		log.Printf("realtime: disconnecting socket")
		c.writeMu.Lock()
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		_ = conn.Close()
	}
}

// ForceReconnect drops the current connection, if any, and dials again.
func (c *Channel) ForceReconnect(ctx context.Context) error {
	c.Disconnect()
	return c.Connect(ctx)
}

func (c *Channel) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		Connected:         c.connected,
		Authenticated:     c.authenticated,
		ConnectionError:   c.connErr,
		ReconnectAttempts: c.attempts,
	}
}
