package gateway

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/chessio/chessio-server/internal/domain"
	"github.com/chessio/chessio-server/internal/matchmaking"
	"github.com/chessio/chessio-server/internal/obslog"
	"github.com/chessio/chessio-server/internal/outcome"
	"github.com/chessio/chessio-server/internal/playerstore"
	"github.com/chessio/chessio-server/internal/relay"
	"github.com/chessio/chessio-server/internal/session"
	"github.com/chessio/chessio-server/pkg/wire"
)

// Handlers dispatches decoded frames to the core services. Failures are
// reported on the "error" event to the originating connection only; no
// handler mutates state after a validation failure.
type Handlers struct {
	hub      *Hub
	store    playerstore.Store
	mm       *matchmaking.Service
	sessions *session.Manager
	resolver *outcome.Resolver
	chat     *relay.ChatRelay
}

func NewHandlers(hub *Hub, store playerstore.Store, mm *matchmaking.Service, sessions *session.Manager, resolver *outcome.Resolver, chat *relay.ChatRelay) *Handlers {
	return &Handlers{hub: hub, store: store, mm: mm, sessions: sessions, resolver: resolver, chat: chat}
}

// Dispatch routes one inbound frame.
func (h *Handlers) Dispatch(ctx context.Context, c *Client, frame wire.Frame) {
	var err error
	switch frame.Event {
	case wire.EvIdentify:
		err = h.identify(ctx, c, frame.Data)
	case wire.EvStartGame:
		err = h.startGame(ctx, c, frame.Data)
	case wire.EvCancelRequest:
		err = h.cancelRequest(ctx, c, frame.Data)
	case wire.EvJoiningGame:
		err = h.joiningGame(ctx, c, frame.Data)
	case wire.EvResignGame:
		err = h.resignGame(ctx, c, frame.Data)
	case wire.EvWinGame:
		err = h.winGame(ctx, c, frame.Data)
	case wire.EvDrawGame:
		err = h.drawGame(ctx, c, frame.Data)
	case wire.EvUpdateBoard:
		err = h.updateBoard(ctx, c, frame.Data)
	case wire.EvSendDrawProposal:
		err = h.proposal(ctx, c, frame.Data, wire.EvDrawProposal)
	case wire.EvRejectedProposal:
		err = h.proposal(ctx, c, frame.Data, wire.EvRejectedProposalTo)
	case wire.EvSendMessage:
		err = h.sendMessage(ctx, c, frame.Data)
	case wire.EvSendAnswer:
		err = h.sendAnswer(ctx, c, frame.Data)
	case wire.EvIceCandidateA:
		err = h.iceCandidate(ctx, c, frame.Data, wire.EvFirstIceCandidate)
	case wire.EvIceCandidateB:
		err = h.iceCandidate(ctx, c, frame.Data, wire.EvSecondIceCandidate)
	default:
		err = domain.ErrInvalidPayload
	}
	if err != nil {
		h.emitError(c, frame.Event, err)
	}
}

// Disconnected clears the connection registry entry and the online flag.
// The player's session, if any, stays open: a disconnect is not a resign and
// the player may reconnect.
func (h *Handlers) Disconnected(ctx context.Context, c *Client) {
	playerID := h.hub.Unbind(c)
	if playerID == "" {
		return
	}
	if err := h.store.SetOnline(ctx, playerID, false); err != nil {
		obslog.L().Warn("gateway_offline_flag", zap.String("player_id", playerID), zap.Error(err))
	}
	obslog.L().Info("gateway_disconnect", zap.String("client_id", c.id), zap.String("player_id", playerID))
}

func (h *Handlers) identify(ctx context.Context, c *Client, data json.RawMessage) error {
	var req wire.IdentifyRequest
	if err := decode(data, &req); err != nil {
		return err
	}
	p, err := h.store.FindByUsername(ctx, req.Username)
	if err != nil {
		return err
	}
	h.hub.BindPlayer(c, p.ID)
	if err := h.store.SetOnline(ctx, p.ID, true); err != nil {
		obslog.L().Warn("gateway_online_flag", zap.String("player_id", p.ID), zap.Error(err))
	}
	obslog.L().Info("gateway_identify", zap.String("client_id", c.id), zap.String("player_id", p.ID))
	return nil
}

func (h *Handlers) startGame(ctx context.Context, c *Client, data json.RawMessage) error {
	var req wire.StartGameRequest
	if err := decode(data, &req); err != nil {
		return err
	}
	gt, err := domain.ParseGameType(req.GameType)
	if err != nil {
		return err
	}
	p, err := h.store.FindByID(ctx, req.PlayerID)
	if err != nil {
		return err
	}
	h.hub.BindPlayer(c, p.ID)

	opp, err := h.mm.FindOrEnqueue(ctx, matchmaking.Entry{
		PlayerID: p.ID,
		Username: p.Username,
		Rating:   p.RatingFor(gt),
	}, gt)
	if err != nil {
		return err
	}
	if opp == nil {
		c.Emit(&wire.Envelope{Event: wire.EvWait, Data: wire.WaitPayload{Message: "no opponent available yet"}})
		return nil
	}

	// Ratings are re-read here so the frozen deltas reflect session creation
	// time, not enqueue time.
	oppPlayer, err := h.store.FindByID(ctx, opp.PlayerID)
	if err != nil {
		return err
	}
	s, err := h.sessions.Create(ctx, p, oppPlayer, gt)
	if err != nil {
		return err
	}
	if err := h.store.SetCurrentSession(ctx, p.ID, s.ID, domain.SessionOngoing); err != nil {
		obslog.L().Warn("gateway_session_ref", zap.String("player_id", p.ID), zap.Error(err))
	}
	h.hub.JoinRoom(s.ID, c)

	if !h.hub.EmitToPlayer(opp.PlayerID, &wire.Envelope{Event: wire.EvJoinGame, Data: wire.JoinGamePayload{SessionID: s.ID}}) {
		obslog.L().Warn("gateway_opponent_offline", zap.String("session_id", s.ID), zap.String("opponent_id", opp.PlayerID))
	}
	c.Emit(&wire.Envelope{Event: wire.EvGameStarted, Data: wire.GameStartedPayload{Session: s, YourColor: s.PlayerColor(p.ID)}})
	return nil
}

func (h *Handlers) cancelRequest(ctx context.Context, c *Client, data json.RawMessage) error {
	var req wire.CancelRequest
	if err := decode(data, &req); err != nil {
		return err
	}
	gt, err := domain.ParseGameType(req.GameType)
	if err != nil {
		return err
	}
	return h.mm.Cancel(ctx, req.PlayerID, gt)
}

func (h *Handlers) joiningGame(ctx context.Context, c *Client, data json.RawMessage) error {
	var req wire.JoiningGameRequest
	if err := decode(data, &req); err != nil {
		return err
	}
	s, err := h.sessions.Join(ctx, req.SessionID, req.PlayerID)
	if err != nil {
		return err
	}
	p, err := h.store.FindByID(ctx, req.PlayerID)
	if err != nil {
		return err
	}
	h.hub.BindPlayer(c, p.ID)
	if err := h.store.SetCurrentSession(ctx, p.ID, s.ID, domain.SessionOngoing); err != nil {
		obslog.L().Warn("gateway_session_ref", zap.String("player_id", p.ID), zap.Error(err))
	}
	if err := h.store.SetWaiting(ctx, p.ID, false); err != nil {
		obslog.L().Warn("gateway_waiting_flag", zap.String("player_id", p.ID), zap.Error(err))
	}
	h.hub.JoinRoom(s.ID, c)

	h.hub.EmitRoom(s.ID, &wire.Envelope{Event: wire.EvJoined, Data: wire.JoinedPayload{Username: p.Username}})
	c.Emit(&wire.Envelope{Event: wire.EvGameStarted, Data: wire.GameStartedPayload{Session: s, YourColor: s.PlayerColor(p.ID)}})
	return nil
}

func (h *Handlers) updateBoard(ctx context.Context, c *Client, data json.RawMessage) error {
	var req wire.UpdateBoardRequest
	if err := decode(data, &req); err != nil {
		return err
	}
	s, err := h.sessions.ApplyMove(ctx, req.SessionID, req.Board, domain.Color(req.SenderColor))
	if err != nil {
		return err
	}
	h.hub.EmitRoom(s.ID, &wire.Envelope{Event: wire.EvNewBoard, Data: wire.NewBoardPayload{ChessBoard: s.Board, CurrentTurn: s.Turn}})
	return nil
}

func (h *Handlers) resignGame(ctx context.Context, c *Client, data json.RawMessage) error {
	var req wire.TerminalRequest
	if err := decode(data, &req); err != nil {
		return err
	}
	// resignation credits the win to the other side
	winner := domain.Color(req.Color).Other()
	return h.settle(ctx, c, req.SessionID, domain.OutcomeResign, winner)
}

func (h *Handlers) winGame(ctx context.Context, c *Client, data json.RawMessage) error {
	var req wire.TerminalRequest
	if err := decode(data, &req); err != nil {
		return err
	}
	return h.settle(ctx, c, req.SessionID, domain.OutcomeWin, domain.Color(req.Color))
}

func (h *Handlers) drawGame(ctx context.Context, c *Client, data json.RawMessage) error {
	var req wire.DrawGameRequest
	if err := decode(data, &req); err != nil {
		return err
	}
	return h.settle(ctx, c, req.SessionID, domain.OutcomeDraw, "")
}

func (h *Handlers) settle(ctx context.Context, c *Client, sessionID string, kind domain.OutcomeKind, winner domain.Color) error {
	st, err := h.resolver.Settle(ctx, sessionID, kind, winner)
	if err != nil && st == nil {
		// nothing was applied; the loser of a terminal race lands here
		return err
	}
	if err != nil {
		// the session closed but the store application failed; both
		// participants must learn settlement is in a bad state
		h.hub.EmitRoom(sessionID, &wire.Envelope{Event: wire.EvError, Data: wire.ErrorPayload{Message: "settlement failed, contact support"}})
		return err
	}
	h.hub.EmitRoom(sessionID, &wire.Envelope{Event: wire.EvGameOver, Data: wire.GameOverPayload{
		SessionID:   st.Session.ID,
		Outcome:     st.Session.Outcome,
		WinnerColor: st.Session.WinnerColor,
		WhiteDelta:  st.WhiteDelta,
		BlackDelta:  st.BlackDelta,
	}})
	return nil
}

func (h *Handlers) proposal(ctx context.Context, c *Client, data json.RawMessage, outEvent string) error {
	var req wire.ProposalRequest
	if err := decode(data, &req); err != nil {
		return err
	}
	if _, err := h.sessions.Get(ctx, req.SessionID); err != nil {
		return err
	}
	h.hub.EmitRoom(req.SessionID, &wire.Envelope{Event: outEvent, Data: wire.ProposalPayload{PlayerID: req.PlayerID}})
	return nil
}

func (h *Handlers) sendMessage(ctx context.Context, c *Client, data json.RawMessage) error {
	var req wire.SendMessageRequest
	if err := decode(data, &req); err != nil {
		return err
	}
	msg, err := h.chat.Send(ctx, req.SessionID, req.SenderID, req.Message)
	if err != nil {
		return err
	}
	h.hub.EmitRoom(req.SessionID, &wire.Envelope{Event: wire.EvNewMessage, Data: wire.NewMessagePayload{
		SenderID:          msg.SenderID,
		Message:           msg.Text,
		TranslatedMessage: msg.TranslatedText,
	}})
	return nil
}

func (h *Handlers) sendAnswer(ctx context.Context, c *Client, data json.RawMessage) error {
	var req wire.SendAnswerRequest
	if err := decode(data, &req); err != nil {
		return err
	}
	h.hub.EmitRoomExcept(req.SessionID, c, &wire.Envelope{Event: wire.EvAnswered, Data: wire.AnsweredPayload{SDPAnswer: req.SDPAnswer}})
	return nil
}

func (h *Handlers) iceCandidate(ctx context.Context, c *Client, data json.RawMessage, outEvent string) error {
	var req wire.IceCandidateRequest
	if err := decode(data, &req); err != nil {
		return err
	}
	h.hub.EmitRoomExcept(req.SessionID, c, &wire.Envelope{Event: outEvent, Data: wire.IceCandidatePayload{IceCandidate: req.IceCandidate}})
	return nil
}

func (h *Handlers) emitError(c *Client, event string, err error) {
	obslog.L().Warn("gateway_event_error", zap.String("client_id", c.id), zap.String("event", event), zap.Error(err))
	c.Emit(&wire.Envelope{Event: wire.EvError, Data: wire.ErrorPayload{Event: event, Message: publicMessage(err)}})
}

// publicMessage maps errors onto client-safe text; internals stay in logs.
func publicMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidPayload):
		return err.Error()
	case errors.Is(err, domain.ErrInvalidGameType):
		return "invalid game type"
	case errors.Is(err, domain.ErrPlayerNotFound):
		return "player not found"
	case errors.Is(err, domain.ErrSessionNotFound):
		return "session not found"
	case errors.Is(err, domain.ErrSessionClosed), errors.Is(err, domain.ErrAlreadyClosed):
		return "session already closed"
	case errors.Is(err, domain.ErrNotYourTurn):
		return "not your turn"
	case errors.Is(err, domain.ErrNotParticipant):
		return "not a participant of this session"
	case errors.Is(err, domain.ErrAlreadyQueued):
		return "already waiting for a match"
	case errors.Is(err, domain.ErrConflict):
		return "concurrent update, try again"
	default:
		return "internal error"
	}
}

type validator interface {
	Validate() error
}

func decode(data json.RawMessage, into validator) error {
	if len(data) > 0 {
		if err := json.Unmarshal(data, into); err != nil {
			return domain.ErrInvalidPayload
		}
	}
	return into.Validate()
}
