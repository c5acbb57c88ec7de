package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
)

// Handler consumes a received event's still-encoded arguments.
// Handlers run on the connection's read loop: a slow handler delays
// all subsequent events.
type Handler func(args []json.RawMessage)

// Client is a Socket.IO connection on the default namespace. Events
// are dispatched to registered handlers from a single read loop;
// emission is safe from any goroutine, including handlers.
type Client struct {
	conn *websocket.Conn
	log  logrus.FieldLogger

	writeMu sync.Mutex

	mu       sync.RWMutex
	handlers map[string][]Handler
	waiters  map[string][]chan []json.RawMessage

	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Dial connects to a Socket.IO server over the engine.io v4 websocket
// transport and completes both the engine.io and Socket.IO handshakes
// before returning.
func Dial(ctx context.Context, serverURL string,
	log logrus.FieldLogger) (*Client, error) {
	conn, _, err := websocket.Dial(ctx, endpointURL(serverURL), nil)
	if err != nil {
		return nil, fmt.Errorf("dial: could not connect to %v: %v",
			serverURL, err)
	}

	c := &Client{
		conn:     conn,
		log:      log,
		handlers: make(map[string][]Handler),
		waiters:  make(map[string][]chan []json.RawMessage),
		done:     make(chan struct{}),
	}

	if err := c.open(ctx); err != nil {
		conn.Close(websocket.StatusProtocolError, "handshake failed")
		return nil, fmt.Errorf("dial: %v", err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	go c.readLoop(loopCtx)

	return c, nil
}

// open performs the engine.io open exchange and the Socket.IO CONNECT
// for the default namespace.
func (c *Client) open(ctx context.Context) error {
	frame, err := c.read(ctx)
	if err != nil {
		return err
	}
	if len(frame) == 0 || frame[0] != engineOpen {
		return fmt.Errorf("open: expected an open packet, got %q", frame)
	}
	h, err := decodeHandshake(frame[1:])
	if err != nil {
		return fmt.Errorf("open: %v", err)
	}
	c.log.WithField("sid", h.SID).Debug("engine.io session opened")

	if err := c.write(ctx, encodeConnect()); err != nil {
		return err
	}

	frame, err = c.read(ctx)
	if err != nil {
		return err
	}
	if len(frame) < 2 || frame[0] != engineMessage ||
		frame[1] != socketConnect {
		return fmt.Errorf("open: expected a connect ack, got %q", frame)
	}
	return nil
}

// On registers a handler for an event. Multiple handlers for the same
// event run in registration order.
func (c *Client) On(name string, handler Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[name] = append(c.handlers[name], handler)
}

// Emit sends an event with the given arguments
func (c *Client) Emit(ctx context.Context, name string,
	args ...interface{}) error {
	frame, err := encodeEvent(name, args...)
	if err != nil {
		return fmt.Errorf("emit: %v", err)
	}
	if err := c.write(ctx, frame); err != nil {
		return fmt.Errorf("emit: could not send %v: %v", name, err)
	}
	return nil
}

// Await blocks until the next occurrence of the named event and
// returns its arguments. It honors context cancellation and fails when
// the connection closes first.
func (c *Client) Await(ctx context.Context,
	name string) ([]json.RawMessage, error) {
	ch := make(chan []json.RawMessage, 1)
	c.mu.Lock()
	c.waiters[name] = append(c.waiters[name], ch)
	c.mu.Unlock()

	select {
	case args := <-ch:
		return args, nil
	case <-ctx.Done():
		c.removeWaiter(name, ch)
		return nil, fmt.Errorf("await: %v: %v", name, ctx.Err())
	case <-c.done:
		return nil, fmt.Errorf("await: %v: connection closed", name)
	}
}

// removeWaiter deregisters an abandoned one-shot waiter so it does not
// linger for an event that may never recur. A no-op when dispatch has
// already claimed the waiter.
func (c *Client) removeWaiter(name string, ch chan []json.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	waiters := c.waiters[name]
	for i, w := range waiters {
		if w == ch {
			c.waiters[name] = append(waiters[:i], waiters[i+1:]...)
			break
		}
	}
	if len(c.waiters[name]) == 0 {
		delete(c.waiters, name)
	}
}

// Close tears down the connection. It is safe to call more than once.
func (c *Client) Close() error {
	if c.cancel != nil {
		c.cancel()
	}
	return c.conn.Close(websocket.StatusNormalClosure, "")
}

// Done is closed when the read loop exits, whether by Close or by a
// transport failure.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err reports why the read loop exited, or nil before it has
func (c *Client) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// readLoop reads and dispatches packets until the connection fails or
// is closed.
func (c *Client) readLoop(ctx context.Context) {
	defer close(c.done)

	for {
		frame, err := c.read(ctx)
		if err != nil {
			c.mu.Lock()
			c.err = err
			c.mu.Unlock()
			return
		}
		if len(frame) == 0 {
			continue
		}

		switch frame[0] {
		case enginePing:
			if err := c.write(ctx, string(enginePong)); err != nil {
				c.log.WithError(err).Warn("could not answer ping")
			}

		case engineClose:
			c.mu.Lock()
			c.err = fmt.Errorf("readloop: server closed the session")
			c.mu.Unlock()
			return

		case engineMessage:
			c.dispatch(frame[1:])
		}
	}
}

// dispatch routes a Socket.IO packet to the registered handlers and
// any one-shot waiters.
func (c *Client) dispatch(packet string) {
	if len(packet) == 0 {
		return
	}

	switch packet[0] {
	case socketEvent:
		e, err := decodeEvent(packet[1:])
		if err != nil {
			c.log.WithError(err).Warn("dropping malformed event")
			return
		}

		c.mu.Lock()
		handlers := append([]Handler(nil), c.handlers[e.Name]...)
		waiters := c.waiters[e.Name]
		delete(c.waiters, e.Name)
		c.mu.Unlock()

		for _, handler := range handlers {
			handler(e.Args)
		}
		for _, ch := range waiters {
			ch <- e.Args
		}

	case socketDisconnect:
		c.log.Info("server requested disconnect")

	case socketConnectError:
		c.log.WithField("payload", packet[1:]).Error("namespace rejected")
	}
}

// read returns the next text frame
func (c *Client) read(ctx context.Context) (string, error) {
	typ, data, err := c.conn.Read(ctx)
	if err != nil {
		return "", fmt.Errorf("read: %v", err)
	}
	if typ != websocket.MessageText {
		return "", fmt.Errorf("read: unexpected %v frame", typ)
	}
	return string(data), nil
}

// write sends a single text frame
func (c *Client) write(ctx context.Context, frame string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.Write(ctx, websocket.MessageText, []byte(frame))
}
