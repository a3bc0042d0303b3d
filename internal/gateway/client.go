package gateway

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/chessio/chessio-server/internal/obslog"
	"github.com/chessio/chessio-server/pkg/wire"
)

const sendBuffer = 64

// Client is one live websocket connection. Outbound envelopes go through a
// buffered channel drained by a single writer goroutine; a peer that cannot
// keep up has frames dropped rather than stalling a broadcast.
type Client struct {
	id       string
	playerID string

	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

func newClient(conn *websocket.Conn) *Client {
	return &Client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

// Emit queues an envelope for delivery.
func (c *Client) Emit(env *wire.Envelope) {
	if env.Timestamp.IsZero() {
		env.Timestamp = time.Now()
	}
	data, err := json.Marshal(env)
	if err != nil {
		obslog.L().Error("gateway_marshal", zap.String("event", env.Event), zap.Error(err))
		return
	}
	select {
	case c.send <- data:
	default:
		obslog.L().Warn("gateway_send_full", zap.String("client_id", c.id), zap.String("event", env.Event))
	}
}

func (c *Client) writeLoop(ctx context.Context) {
	for {
		select {
		case data := <-c.send:
			wctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := c.conn.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				return
			}
		case <-c.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) close() {
	select {
	case <-c.done:
	default:
		close(c.done)
	}
}
