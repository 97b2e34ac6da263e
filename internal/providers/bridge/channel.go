package bridge

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrChannelClosed is returned by channel operations after close.
var ErrChannelClosed = errors.New("channel closed")

const writeWait = 10 * time.Second

// wsChannel adapts a websocket connection to device.Channel. A single reader
// goroutine owns ReadMessage; Done closes when the connection drops or Close
// is called.
type wsChannel struct {
	conn  *websocket.Conn
	inbox chan []byte
	done  chan struct{}

	writeMu sync.Mutex
	once    sync.Once
	errMu   sync.Mutex
	err     error
}

func newWSChannel(conn *websocket.Conn) *wsChannel {
	c := &wsChannel{
		conn:  conn,
		inbox: make(chan []byte, 64),
		done:  make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *wsChannel) readLoop() {
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			c.shutdown(err)
			return
		}
		select {
		case c.inbox <- msg:
		case <-c.done:
			return
		}
	}
}

func (c *wsChannel) Write(data []byte) error {
	select {
	case <-c.done:
		return c.closedErr()
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.BinaryMessage, data)
}

func (c *wsChannel) Read(ctx context.Context) ([]byte, error) {
	select {
	case msg := <-c.inbox:
		return msg, nil
	case <-c.done:
		// Drain what arrived before the close.
		select {
		case msg := <-c.inbox:
			return msg, nil
		default:
		}
		return nil, c.closedErr()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *wsChannel) Done() <-chan struct{} {
	return c.done
}

func (c *wsChannel) Close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()

	c.shutdown(ErrChannelClosed)
	return nil
}

func (c *wsChannel) shutdown(cause error) {
	c.once.Do(func() {
		c.errMu.Lock()
		c.err = cause
		c.errMu.Unlock()
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *wsChannel) closedErr() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	if c.err == nil || websocket.IsCloseError(c.err, websocket.CloseNormalClosure) {
		return ErrChannelClosed
	}
	return errors.Join(ErrChannelClosed, c.err)
}
