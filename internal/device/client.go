package device

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// client is the websocket connection to a device runtime. Setup commands
// are request/reply; after start, a single reader owns the connection's
// read side and writes are one-way.
type client struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	url    string
	logger *slog.Logger
}

func dial(ctx context.Context, wsURL string, handshake time.Duration, logger *slog.Logger) (*client, error) {
	d := websocket.Dialer{HandshakeTimeout: handshake}
	conn, _, err := d.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}
	return &client{conn: conn, url: wsURL, logger: logger}, nil
}

// send writes one command without waiting for a reply.
func (c *client) send(cmd string, body any) error {
	payload, err := json.Marshal(envelope(cmd, body))
	if err != nil {
		return fmt.Errorf("marshal %s: %w", cmd, err)
	}
	return c.write(websocket.TextMessage, payload)
}

func (c *client) write(kind int, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return errors.New("no websocket connection")
	}
	if err := c.conn.WriteMessage(kind, payload); err != nil {
		return fmt.Errorf("write to device: %w", err)
	}
	return nil
}

// sendAndRead writes cmd and waits for its reply. Only valid before start.
func (c *client) sendAndRead(cmd string, body any, timeout time.Duration) (reply, error) {
	if err := c.send(cmd, body); err != nil {
		return reply{}, err
	}
	if timeout > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(timeout))
		defer c.conn.SetReadDeadline(time.Time{})
	}
	for {
		kind, msg, err := c.conn.ReadMessage()
		if err != nil {
			return reply{}, fmt.Errorf("read %s reply: %w", cmd, err)
		}
		if kind != websocket.TextMessage {
			continue
		}
		return parseReply(cmd, msg)
	}
}

// loadBuffer sends the buffer header followed by its samples and waits for
// the device to accept it.
func (c *client) loadBuffer(b *DataBuffer, timeout time.Duration) error {
	if err := c.send(cmdLoadDataBuffer, b.header()); err != nil {
		return err
	}
	if err := c.write(websocket.BinaryMessage, b.Samples); err != nil {
		return err
	}
	if timeout > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(timeout))
		defer c.conn.SetReadDeadline(time.Time{})
	}
	for {
		kind, msg, err := c.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read %s reply: %w", cmdLoadDataBuffer, err)
		}
		if kind == websocket.TextMessage {
			_, err := parseReply(cmdLoadDataBuffer, msg)
			return err
		}
	}
}

// readLoop dispatches frames until the connection closes or ctx ends.
// Text frames are events; binary frames are device audio for out.
func (c *client) readLoop(ctx context.Context, handle func(Event), out io.Writer) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return errors.New("no websocket connection")
	}
	stop := context.AfterFunc(ctx, func() { c.Close() })
	defer stop()

	for {
		kind, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read from device: %w", err)
		}
		switch kind {
		case websocket.BinaryMessage:
			if out == nil {
				continue
			}
			if _, err := out.Write(msg); err != nil {
				c.logger.Warn("dropping device audio", "error", err)
			}
		case websocket.TextMessage:
			ev, err := parseEvent(msg)
			if err != nil {
				c.logger.Warn("ignoring device frame", "error", err)
				continue
			}
			handle(ev)
		}
	}
}

// Close closes the connection. It is safe to call more than once.
func (c *client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	err := c.conn.Close()
	c.conn = nil
	return err
}
