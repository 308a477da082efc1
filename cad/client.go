package cad

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"fdsbridge/protocol"

	"github.com/gorilla/websocket"
)

// State of the CAD link.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// ErrAlreadyOpen reports an Open call while the link is not disconnected.
var ErrAlreadyOpen = errors.New("cad: connection already open")

// FrameHandler receives each inbound frame from the read pump.
type FrameHandler func(data []byte)

// Notifier surfaces connection state changes. err is non-nil when the
// transition was caused by a transport failure.
type Notifier func(state State, err error)

// Client owns the websocket lifecycle to the CAD tool: one connection, one
// inbound stream, no automatic reconnect. Sends are fire-and-forget: a Send
// while the link is not connected is silently dropped, never queued.
type Client struct {
	url     string
	onFrame FrameHandler
	notify  Notifier

	mu    sync.Mutex
	state State
	conn  *websocket.Conn
}

// NewClient creates a client for the given websocket URL. Frames and state
// changes are delivered on the read pump's goroutine.
func NewClient(url string, onFrame FrameHandler, notify Notifier) *Client {
	return &Client{
		url:     url,
		onFrame: onFrame,
		notify:  notify,
	}
}

// Open dials the CAD endpoint and starts the read pump.
func (c *Client) Open(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return ErrAlreadyOpen
	}
	c.state = StateConnecting
	c.mu.Unlock()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		c.mu.Lock()
		c.state = StateDisconnected
		c.mu.Unlock()
		c.notifyState(StateDisconnected, err)
		return fmt.Errorf("cad: dial %s: %w", c.url, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.state = StateConnected
	c.mu.Unlock()

	log.Printf("cad: connected to %s", c.url)
	c.notifyState(StateConnected, nil)

	go c.readPump(conn)
	return nil
}

func (c *Client) readPump(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.teardown(err)
			return
		}
		if c.onFrame != nil {
			c.onFrame(data)
		}
	}
}

// Send serializes and transmits a message if the link is connected.
// Otherwise the message is dropped without error: delivery is not
// guaranteed and nothing is buffered for later.
func (c *Client) Send(m *protocol.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateConnected || c.conn == nil {
		return nil
	}
	data, err := m.Encode()
	if err != nil {
		return fmt.Errorf("cad: encode %s: %w", m.Method, err)
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("cad: write: %w", err)
	}
	return nil
}

// State returns the current link state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsConnected reports whether the link is up.
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// Close releases the connection cleanly. In-flight protocol state is
// abandoned by the layer above.
func (c *Client) Close() {
	c.mu.Lock()
	if c.state == StateDisconnected {
		c.mu.Unlock()
		return
	}
	conn := c.conn
	c.conn = nil
	c.state = StateDisconnected
	c.mu.Unlock()

	if conn != nil {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		conn.WriteMessage(websocket.CloseMessage, msg)
		conn.Close()
	}

	log.Printf("cad: connection closed")
	c.notifyState(StateDisconnected, nil)
}

// teardown handles an abrupt end of the connection seen by the read pump.
func (c *Client) teardown(err error) {
	c.mu.Lock()
	if c.state == StateDisconnected {
		// Close already ran; the read error is just the pump winding down.
		c.mu.Unlock()
		return
	}
	conn := c.conn
	c.conn = nil
	c.state = StateDisconnected
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}

	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		log.Printf("cad: peer closed the connection")
		err = nil
	} else {
		log.Printf("cad: connection lost: %v", err)
	}
	c.notifyState(StateDisconnected, err)
}

func (c *Client) notifyState(state State, err error) {
	if c.notify != nil {
		c.notify(state, err)
	}
}
