package ws

import (
	"context"
	"linkup/internal/core/domain"
	"linkup/pkg/logging"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RuntimeClient is one live connection of a user. Send only enqueues; the
// write loop owns the socket. The out channel is never closed, so a Send racing
// with Close returns an error instead of panicking.
type RuntimeClient struct {
	id     string
	userID string
	ws     *WebSocket
	out    chan []byte
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

func NewClient(parent context.Context, ws *WebSocket, userID string) *RuntimeClient {
	ctx, cancel := context.WithCancel(parent)
	c := &RuntimeClient{
		id:     uuid.NewString(),
		userID: userID,
		ws:     ws,
		out:    make(chan []byte, ws.cfg.SendBuffer),
		ctx:    ctx,
		cancel: cancel,
	}
	go c.writeLoop()
	return c
}

func (c *RuntimeClient) ID() string     { return c.id }
func (c *RuntimeClient) UserID() string { return c.userID }

// Done is closed once the client is closed.
func (c *RuntimeClient) Done() <-chan struct{} {
	return c.ctx.Done()
}

func (c *RuntimeClient) Send(ctx context.Context, data []byte) error {
	select {
	case <-c.ctx.Done():
		return domain.ErrClientClosed
	default:
	}
	select {
	case c.out <- data:
		return nil
	case <-c.ctx.Done():
		return domain.ErrClientClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *RuntimeClient) Close() {
	c.once.Do(func() {
		c.cancel()
		c.ws.Close()
	})
}

func (c *RuntimeClient) writeLoop() {
	defer c.Close()
	ticker := time.NewTicker(c.ws.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-c.ws.Done():
			return
		case data := <-c.out:
			if err := c.ws.WriteMessage(data); err != nil {
				c.ws.log.Debug("ws - write loop - write failed", logging.Conn(c.id), logging.User(c.userID), logging.Err(err))
				return
			}
		case <-ticker.C:
			if err := c.ws.WritePing(); err != nil {
				c.ws.log.Debug("ws - write loop - ping failed", logging.Conn(c.id), logging.User(c.userID), logging.Err(err))
				return
			}
		}
	}
}
