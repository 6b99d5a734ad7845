package hubs

import (
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/Sprinter05/duochat/internal/log"
	"github.com/Sprinter05/duochat/internal/spec"
	"github.com/gorilla/websocket"
)

/* CONNECTION */

// Live websocket connection of a client. Frames going to
// the client are queued and written by WritePump, so
// pushing to it never blocks.
type Conn struct {
	id   string
	addr string
	ws   *websocket.Conn
	send chan []byte

	mut    sync.Mutex
	closed bool
}

// Wraps a websocket connection, the socket may be
// nil for connections that are never written to.
func NewConn(id string, ws *websocket.Conn, addr string) *Conn {
	c := &Conn{
		id:   id,
		addr: addr,
		ws:   ws,
		send: make(chan []byte, spec.OutboxSize),
	}

	if ws != nil {
		ws.SetReadLimit(spec.MaxFrameSize)
		ws.SetReadDeadline(time.Now().Add(spec.PongWait))
		ws.SetPongHandler(func(string) error {
			// Works as an idle timeout
			return ws.SetReadDeadline(time.Now().Add(spec.PongWait))
		})
	}

	return c
}

func (c *Conn) ID() string {
	return c.id
}

func (c *Conn) Addr() string {
	return c.addr
}

// Queues a frame without blocking. If the queue is full the
// connection is closed, as the client is not keeping up.
// Returns false if the frame was not queued.
func (c *Conn) Push(frame []byte) bool {
	c.mut.Lock()
	defer c.mut.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- frame:
		return true
	default:
		c.closed = true
		close(c.send)
		return false
	}
}

// Stops accepting frames, the writer then sends a close
// message and closes the socket. Safe to call more than once.
func (c *Conn) Close() {
	c.mut.Lock()
	defer c.mut.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// Reports whether Close has been called.
func (c *Conn) Closed() bool {
	c.mut.Lock()
	defer c.mut.Unlock()
	return c.closed
}

// Queued frames, only to be read when WritePump is not running.
func (c *Conn) Outbox() <-chan []byte {
	return c.send
}

// Reads the next frame from the client. Frames that are not
// text return ErrorMalformed, any other error means the
// connection can no longer be read from.
func (c *Conn) ReadFrame() ([]byte, error) {
	kind, data, err := c.ws.ReadMessage()
	if err != nil {
		return nil, err
	}

	if kind != websocket.TextMessage {
		return nil, spec.ErrorMalformed
	}

	return data, nil
}

// Writes queued frames and keepalive pings until the
// connection is closed or a write fails. Must only be
// run once per connection.
func (c *Conn) WritePump() {
	ticker := time.NewTicker(spec.PingPeriod)
	defer func() {
		ticker.Stop()
		if err := c.ws.Close(); err != nil && !ExpectedClose(err) {
			log.IP(err.Error(), c.addr)
		}
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(spec.WriteWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				if !ExpectedClose(err) {
					log.IP(err.Error(), c.addr)
				}
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(spec.WriteWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Reports whether an error is the normal outcome
// of either side closing the connection.
func ExpectedClose(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, websocket.ErrCloseSent) {
		return true
	}

	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	)
}
