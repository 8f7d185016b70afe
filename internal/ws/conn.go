package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/BloggingApp/realtime-notifications/internal/hub"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type Config struct {
	SendBuffer     int
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
	MaxMessageSize int64
}

func DefaultConfig() Config {
	return Config{
		SendBuffer:     256,
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     54 * time.Second,
		MaxMessageSize: 4096,
	}
}

// Conn is a live websocket session. Writes go through a buffered queue
// drained by a single writer goroutine; Receive must be called from one
// goroutine only.
type Conn struct {
	id     string
	logger *zap.Logger
	conn   *websocket.Conn
	cfg    Config

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

var _ hub.Session = (*Conn)(nil)

// New wraps an upgraded websocket connection and starts its writer.
func New(logger *zap.Logger, conn *websocket.Conn, cfg Config) *Conn {
	c := &Conn{
		id:     uuid.NewString(),
		logger: logger,
		conn:   conn,
		cfg:    cfg,
		send:   make(chan []byte, cfg.SendBuffer),
		done:   make(chan struct{}),
	}

	conn.SetReadLimit(cfg.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	})

	go c.writePump()

	return c
}

func (c *Conn) ID() string {
	return c.id
}

// Send queues payload without blocking.
func (c *Conn) Send(payload []byte) error {
	select {
	case <-c.done:
		return hub.ErrSessionClosed
	default:
	}

	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return hub.ErrSessionClosed
	default:
		return hub.ErrSendBufferFull
	}
}

// SendWait queues payload, waiting for buffer room until ctx is done.
func (c *Conn) SendWait(ctx context.Context, payload []byte) error {
	select {
	case <-c.done:
		return hub.ErrSessionClosed
	default:
	}

	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return hub.ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive blocks until the next inbound message. A clean close by the peer
// is reported as hub.ErrPeerClosed.
func (c *Conn) Receive() ([]byte, error) {
	_, msg, err := c.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
			return nil, hub.ErrPeerClosed
		}
		select {
		case <-c.done:
			return nil, hub.ErrSessionClosed
		default:
		}
		return nil, err
	}
	return msg, nil
}

// Close is idempotent and safe to call from any goroutine.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(c.cfg.WriteWait),
		)
		err = c.conn.Close()
	})
	return err
}

// Done is closed once the session has been closed.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(c.cfg.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					c.logger.Sugar().Debugf("failed to write to session(%s): %s", c.id, err.Error())
				}
				c.Close()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.cfg.WriteWait)); err != nil {
				c.logger.Sugar().Debugf("failed to ping session(%s): %s", c.id, err.Error())
				c.Close()
				return
			}
		}
	}
}
