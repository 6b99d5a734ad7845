package commands

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/Sprinter05/duochat/internal/spec"
	"github.com/gorilla/websocket"
)

// Connection to a chat server. Sending is safe to
// use concurrently with listening.
type Conn struct {
	ws  *websocket.Conn
	mut sync.Mutex // One writer at a time
}

// Connects to the websocket endpoint of a server,
// e.g. ws://localhost:5000/ws
func Connect(ctx context.Context, url string) (*Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	ws, resp, err := dialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}

	return &Conn{ws: ws}, nil
}

// Sends a request to the server.
func (c *Conn) Send(op spec.Action, args any) error {
	raw, err := spec.NewRequest(op, args)
	if err != nil {
		return err
	}

	c.mut.Lock()
	defer c.mut.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(spec.WriteWait))
	return c.ws.WriteMessage(websocket.TextMessage, raw)
}

// Reads events until the connection fails, calling the handler
// for each of them. Frames the client cannot understand are
// skipped. Returns the error that ended the connection.
func (c *Conn) Listen(handler func(spec.Action, json.RawMessage)) error {
	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			return err
		}

		op, data, err := spec.ReadPacket(raw)
		if err != nil {
			continue
		}

		handler(op, data)
	}
}

// Closes the connection politely.
func (c *Conn) Close() error {
	c.mut.Lock()
	c.ws.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	c.mut.Unlock()
	return c.ws.Close()
}
