package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/chessio/chessio-server/internal/obslog"
	"github.com/chessio/chessio-server/pkg/wire"
)

// Server exposes the websocket endpoint and health checks.
type Server struct {
	hub            *Hub
	handlers       *Handlers
	allowedOrigins []string
}

func NewServer(hub *Hub, handlers *Handlers, allowedOrigins []string) *Server {
	return &Server{hub: hub, handlers: handlers, allowedOrigins: allowedOrigins}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/ws", s.serveWS)
	return r
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	opts := &websocket.AcceptOptions{}
	if len(s.allowedOrigins) > 0 {
		opts.OriginPatterns = s.allowedOrigins
	} else {
		opts.InsecureSkipVerify = true
	}
	conn, err := websocket.Accept(w, r, opts)
	if err != nil {
		obslog.L().Warn("gateway_accept", zap.Error(err))
		return
	}

	c := newClient(conn)
	obslog.L().Info("gateway_connect", zap.String("client_id", c.id))

	ctx := r.Context()
	go c.writeLoop(ctx)
	s.readLoop(ctx, c, conn)
}

// readLoop decodes frames and dispatches them in arrival order. Handlers run
// on this goroutine so events from one connection cannot overtake each other;
// cross-connection races are resolved inside the core services.
func (s *Server) readLoop(ctx context.Context, c *Client, conn *websocket.Conn) {
	defer func() {
		c.close()
		s.handlers.Disconnected(context.WithoutCancel(ctx), c)
		_ = conn.Close(websocket.StatusNormalClosure, "bye")
	}()

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		if typ != websocket.MessageText {
			continue
		}
		var frame wire.Frame
		if err := json.Unmarshal(data, &frame); err != nil || frame.Event == "" {
			c.Emit(&wire.Envelope{Event: wire.EvError, Data: wire.ErrorPayload{Message: "malformed frame"}})
			continue
		}
		s.handlers.Dispatch(ctx, c, frame)
	}
}
