package gateway

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/chessio/chessio-server/internal/domain"
	"github.com/chessio/chessio-server/internal/matchmaking"
	"github.com/chessio/chessio-server/internal/outcome"
	"github.com/chessio/chessio-server/internal/playerstore"
	"github.com/chessio/chessio-server/internal/relay"
	"github.com/chessio/chessio-server/internal/session"
	"github.com/chessio/chessio-server/pkg/wire"
)

type testRig struct {
	hub      *Hub
	store    *playerstore.Memory
	sessions *session.Manager
	handlers *Handlers
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := playerstore.NewMemory()
	sessions := session.NewManager(rdb, time.Hour)
	mm := matchmaking.NewService(rdb, store)
	resolver := outcome.NewResolver(sessions, store, nil)
	chat := relay.NewChatRelay(sessions, nil)
	hub := NewHub()
	return &testRig{
		hub:      hub,
		store:    store,
		sessions: sessions,
		handlers: NewHandlers(hub, store, mm, sessions, resolver, chat),
	}
}

func (r *testRig) seedPlayer(id, username string, rating float64) {
	r.store.Put(&domain.Player{
		ID:       id,
		Username: username,
		GameStats: map[domain.GameType]domain.GameStat{
			domain.Blitz: {CurrentRating: rating},
		},
	})
}

// testClient returns a Client with no transport; emitted envelopes pile up
// in the send buffer where the test reads them back.
func testClient() *Client {
	return newClient(nil)
}

func (r *testRig) dispatch(t *testing.T, c *Client, event string, payload any) {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	r.handlers.Dispatch(context.Background(), c, wire.Frame{Event: event, Data: data})
}

func nextEnvelope(t *testing.T, c *Client) *wire.Envelope {
	t.Helper()
	select {
	case data := <-c.send:
		var env wire.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			t.Fatalf("decode envelope: %v", err)
		}
		return &env
	default:
		t.Fatal("no envelope queued")
		return nil
	}
}

func decodeData(t *testing.T, env *wire.Envelope) map[string]any {
	t.Helper()
	raw, err := json.Marshal(env.Data)
	if err != nil {
		t.Fatalf("re-marshal data: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	return m
}

func drain(c *Client) {
	for {
		select {
		case <-c.send:
		default:
			return
		}
	}
}

func TestStartGameFirstPlayerWaits(t *testing.T) {
	rig := newTestRig(t)
	rig.seedPlayer("u1", "alice", 1200)
	c1 := testClient()

	rig.dispatch(t, c1, wire.EvStartGame, wire.StartGameRequest{PlayerID: "u1", GameType: "blitz"})

	env := nextEnvelope(t, c1)
	if env.Event != wire.EvWait {
		t.Fatalf("expected %q, got %q", wire.EvWait, env.Event)
	}
}

func TestStartGamePairsSecondPlayer(t *testing.T) {
	rig := newTestRig(t)
	rig.seedPlayer("u1", "alice", 1200)
	rig.seedPlayer("u2", "bob", 1250)
	c1, c2 := testClient(), testClient()

	rig.dispatch(t, c1, wire.EvStartGame, wire.StartGameRequest{PlayerID: "u1", GameType: "blitz"})
	drain(c1)
	rig.dispatch(t, c2, wire.EvStartGame, wire.StartGameRequest{PlayerID: "u2", GameType: "blitz"})

	// the queued player gets told to join the new session
	joinEnv := nextEnvelope(t, c1)
	if joinEnv.Event != wire.EvJoinGame {
		t.Fatalf("expected %q, got %q", wire.EvJoinGame, joinEnv.Event)
	}
	sessionID, _ := decodeData(t, joinEnv)["sessionId"].(string)
	if sessionID == "" {
		t.Fatal("join-game payload missing sessionId")
	}

	startedEnv := nextEnvelope(t, c2)
	if startedEnv.Event != wire.EvGameStarted {
		t.Fatalf("expected %q, got %q", wire.EvGameStarted, startedEnv.Event)
	}
	started := decodeData(t, startedEnv)
	if started["yourColor"] != "white" && started["yourColor"] != "black" {
		t.Fatalf("missing color assignment: %v", started["yourColor"])
	}

	s, err := rig.sessions.Get(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("session not created: %v", err)
	}
	if s.Status != domain.StatusOpen {
		t.Fatalf("expected open session, got %s", s.Status)
	}

	// the matched player joins the room over its own connection
	rig.dispatch(t, c1, wire.EvJoiningGame, wire.JoiningGameRequest{SessionID: sessionID, PlayerID: "u1"})
	if rig.hub.RoomSize(sessionID) != 2 {
		t.Fatalf("expected both participants in room, got %d", rig.hub.RoomSize(sessionID))
	}
}

// pairUp runs the full matchmaking exchange and returns the session with
// both clients joined to its room.
func pairUp(t *testing.T, rig *testRig) (*domain.Session, *Client, *Client) {
	t.Helper()
	rig.seedPlayer("u1", "alice", 1200)
	rig.seedPlayer("u2", "bob", 1200)
	c1, c2 := testClient(), testClient()

	rig.dispatch(t, c1, wire.EvStartGame, wire.StartGameRequest{PlayerID: "u1", GameType: "blitz"})
	drain(c1)
	rig.dispatch(t, c2, wire.EvStartGame, wire.StartGameRequest{PlayerID: "u2", GameType: "blitz"})
	joinEnv := nextEnvelope(t, c1)
	sessionID, _ := decodeData(t, joinEnv)["sessionId"].(string)
	rig.dispatch(t, c1, wire.EvJoiningGame, wire.JoiningGameRequest{SessionID: sessionID, PlayerID: "u1"})
	drain(c1)
	drain(c2)

	s, err := rig.sessions.Get(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("Get session: %v", err)
	}
	if s.PlayerColor("u1") == domain.White {
		return s, c1, c2
	}
	return s, c2, c1
}

func TestUpdateBoardBroadcastsNewBoard(t *testing.T) {
	rig := newTestRig(t)
	s, whiteC, blackC := pairUp(t, rig)

	rig.dispatch(t, whiteC, wire.EvUpdateBoard, wire.UpdateBoardRequest{
		SessionID:   s.ID,
		Board:       "B1",
		SenderColor: "white",
	})

	for _, c := range []*Client{whiteC, blackC} {
		env := nextEnvelope(t, c)
		if env.Event != wire.EvNewBoard {
			t.Fatalf("expected %q, got %q", wire.EvNewBoard, env.Event)
		}
		data := decodeData(t, env)
		if data["chessBoard"] != "B1" || data["currentTurn"] != "black" {
			t.Fatalf("unexpected board payload: %v", data)
		}
	}
}

func TestUpdateBoardOutOfTurnErrorsSenderOnly(t *testing.T) {
	rig := newTestRig(t)
	s, whiteC, blackC := pairUp(t, rig)

	rig.dispatch(t, blackC, wire.EvUpdateBoard, wire.UpdateBoardRequest{
		SessionID:   s.ID,
		Board:       "B1",
		SenderColor: "black",
	})

	env := nextEnvelope(t, blackC)
	if env.Event != wire.EvError {
		t.Fatalf("expected error event, got %q", env.Event)
	}
	select {
	case data := <-whiteC.send:
		t.Fatalf("opponent should see nothing, got %s", data)
	default:
	}
}

func TestResignSettlesAndBroadcastsGameOver(t *testing.T) {
	rig := newTestRig(t)
	s, whiteC, blackC := pairUp(t, rig)

	rig.dispatch(t, blackC, wire.EvResignGame, wire.TerminalRequest{SessionID: s.ID, Color: "black"})

	for _, c := range []*Client{whiteC, blackC} {
		env := nextEnvelope(t, c)
		if env.Event != wire.EvGameOver {
			t.Fatalf("expected %q, got %q", wire.EvGameOver, env.Event)
		}
		data := decodeData(t, env)
		if data["winnerColor"] != "white" || data["outcome"] != "resign" {
			t.Fatalf("unexpected game-over payload: %v", data)
		}
		if data["whiteDelta"].(float64) != 16 || data["blackDelta"].(float64) != -16 {
			t.Fatalf("unexpected deltas: %v", data)
		}
	}

	white, err := rig.store.FindByID(context.Background(), s.WhiteID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got := white.RatingFor(domain.Blitz); got != 1216 {
		t.Fatalf("winner rating = %v, want 1216", got)
	}
}

func TestDoubleTerminalSettlesOnce(t *testing.T) {
	rig := newTestRig(t)
	s, whiteC, blackC := pairUp(t, rig)

	rig.dispatch(t, blackC, wire.EvResignGame, wire.TerminalRequest{SessionID: s.ID, Color: "black"})
	drain(whiteC)
	drain(blackC)

	rig.dispatch(t, whiteC, wire.EvWinGame, wire.TerminalRequest{SessionID: s.ID, Color: "white"})

	env := nextEnvelope(t, whiteC)
	if env.Event != wire.EvError {
		t.Fatalf("late terminal should error, got %q", env.Event)
	}
	white, err := rig.store.FindByID(context.Background(), s.WhiteID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got := white.RatingFor(domain.Blitz); got != 1216 {
		t.Fatalf("rating applied twice: %v", got)
	}
}

func TestSendMessageBroadcastsToRoom(t *testing.T) {
	rig := newTestRig(t)
	s, whiteC, blackC := pairUp(t, rig)

	rig.dispatch(t, whiteC, wire.EvSendMessage, wire.SendMessageRequest{
		SessionID: s.ID,
		SenderID:  s.WhiteID,
		Message:   "good luck",
	})

	for _, c := range []*Client{whiteC, blackC} {
		env := nextEnvelope(t, c)
		if env.Event != wire.EvNewMessage {
			t.Fatalf("expected %q, got %q", wire.EvNewMessage, env.Event)
		}
		data := decodeData(t, env)
		if data["message"] != "good luck" {
			t.Fatalf("unexpected chat payload: %v", data)
		}
	}
}

func TestSignalingExcludesSender(t *testing.T) {
	rig := newTestRig(t)
	s, whiteC, blackC := pairUp(t, rig)

	rig.dispatch(t, whiteC, wire.EvSendAnswer, wire.SendAnswerRequest{
		SessionID: s.ID,
		SDPAnswer: json.RawMessage(`{"type":"answer"}`),
	})

	env := nextEnvelope(t, blackC)
	if env.Event != wire.EvAnswered {
		t.Fatalf("expected %q, got %q", wire.EvAnswered, env.Event)
	}
	select {
	case data := <-whiteC.send:
		t.Fatalf("sender should not receive its own answer, got %s", data)
	default:
	}
}

func TestUnknownEventReturnsError(t *testing.T) {
	rig := newTestRig(t)
	c := testClient()

	rig.handlers.Dispatch(context.Background(), c, wire.Frame{Event: "no-such-event"})

	env := nextEnvelope(t, c)
	if env.Event != wire.EvError {
		t.Fatalf("expected error event, got %q", env.Event)
	}
}

func TestDisconnectClearsBindingAndRoom(t *testing.T) {
	rig := newTestRig(t)
	s, whiteC, _ := pairUp(t, rig)

	rig.handlers.Disconnected(context.Background(), whiteC)

	if rig.hub.RoomSize(s.ID) != 1 {
		t.Fatalf("expected one remaining member, got %d", rig.hub.RoomSize(s.ID))
	}
	got, err := rig.sessions.Get(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != domain.StatusOpen {
		t.Fatalf("disconnect must not close the session, got %s", got.Status)
	}
}
