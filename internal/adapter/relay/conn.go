// Package relay keeps one Nostr relay subscription alive per wallet session.
package relay

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// State mirrors the WebSocket readyState values.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosing
	StateClosed
)

// String returns the readyState name.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateOpen:
		return "OPEN"
	case StateClosing:
		return "CLOSING"
	default:
		return "CLOSED"
	}
}

// ErrNotOpen is returned when writing without an open socket.
var ErrNotOpen = errors.New("relay socket is not open")

// Callbacks are invoked from the connection's own goroutine.
type Callbacks struct {
	OnOpen    func(Conn)
	OnMessage func([]byte)
}

// Conn is a relay socket. Dial returns it immediately in StateConnecting.
type Conn interface {
	State() State
	WriteMessage(data []byte) error
	Close() error
}

// Dialer opens relay sockets.
type Dialer interface {
	Dial(ctx context.Context, url string, cb Callbacks) Conn
}

// WSDialer dials with gorilla/websocket.
type WSDialer struct {
	dialer *websocket.Dialer
}

// NewWSDialer creates a dialer with the given handshake timeout.
func NewWSDialer(handshakeTimeout time.Duration) *WSDialer {
	return &WSDialer{
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
	}
}

// Dial starts the handshake in the background and returns at once.
func (d *WSDialer) Dial(ctx context.Context, url string, cb Callbacks) Conn {
	c := &wsConn{}
	c.state.Store(int32(StateConnecting))

	go func() {
		ws, _, err := d.dialer.DialContext(ctx, url, nil)
		if err != nil {
			c.state.Store(int32(StateClosed))
			return
		}

		c.mu.Lock()
		c.ws = ws
		c.mu.Unlock()

		// Close may have been called while the handshake was in flight.
		if !c.state.CompareAndSwap(int32(StateConnecting), int32(StateOpen)) {
			_ = ws.Close()
			return
		}

		if cb.OnOpen != nil {
			cb.OnOpen(c)
		}
		c.readLoop(cb.OnMessage)
	}()

	return c
}

type wsConn struct {
	state atomic.Int32
	mu    sync.Mutex // guards ws and serializes writes
	ws    *websocket.Conn
}

func (c *wsConn) State() State {
	return State(c.state.Load())
}

func (c *wsConn) WriteMessage(data []byte) error {
	if c.State() != StateOpen {
		return ErrNotOpen
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Close() error {
	prev := State(c.state.Swap(int32(StateClosing)))
	if prev == StateClosed {
		c.state.Store(int32(StateClosed))
		return nil
	}

	c.mu.Lock()
	ws := c.ws
	c.mu.Unlock()

	var err error
	if ws != nil {
		err = ws.Close()
	}
	c.state.Store(int32(StateClosed))
	return err
}

func (c *wsConn) readLoop(onMessage func([]byte)) {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.state.Store(int32(StateClosed))
			return
		}
		if onMessage != nil {
			onMessage(data)
		}
	}
}
