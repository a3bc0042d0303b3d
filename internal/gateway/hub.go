// Package gateway is the real-time edge: it accepts websocket connections,
// decodes event frames, and dispatches them to the core services. The hub
// doubles as the connection registry (player id to live transport) and the
// room map (session id to its two participants' connections).
package gateway

import (
	"sync"

	"github.com/chessio/chessio-server/pkg/wire"
)

type Hub struct {
	mu       sync.RWMutex
	byPlayer map[string]*Client
	rooms    map[string]map[*Client]bool
}

func NewHub() *Hub {
	return &Hub{
		byPlayer: make(map[string]*Client),
		rooms:    make(map[string]map[*Client]bool),
	}
}

// BindPlayer associates a live connection with a player identity. A newer
// connection for the same player replaces the old binding.
func (h *Hub) BindPlayer(c *Client, playerID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.playerID = playerID
	h.byPlayer[playerID] = c
}

// Unbind removes the connection from the registry and every room. It returns
// the bound player id, if any, so the caller can clear the online flag.
func (h *Hub) Unbind(c *Client) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	playerID := c.playerID
	if playerID != "" && h.byPlayer[playerID] == c {
		delete(h.byPlayer, playerID)
	}
	for sessionID, members := range h.rooms {
		if members[c] {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, sessionID)
			}
		}
	}
	return playerID
}

// JoinRoom adds the connection to a session room.
func (h *Hub) JoinRoom(sessionID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[sessionID]
	if !ok {
		members = make(map[*Client]bool)
		h.rooms[sessionID] = members
	}
	members[c] = true
}

// EmitToPlayer delivers an envelope to the player's live connection, if
// online. Returns false when no connection is bound.
func (h *Hub) EmitToPlayer(playerID string, env *wire.Envelope) bool {
	h.mu.RLock()
	c := h.byPlayer[playerID]
	h.mu.RUnlock()
	if c == nil {
		return false
	}
	c.Emit(env)
	return true
}

// EmitRoom broadcasts to every connection in the session room.
func (h *Hub) EmitRoom(sessionID string, env *wire.Envelope) {
	h.emitRoom(sessionID, nil, env)
}

// EmitRoomExcept broadcasts to the session room excluding the sender.
func (h *Hub) EmitRoomExcept(sessionID string, except *Client, env *wire.Envelope) {
	h.emitRoom(sessionID, except, env)
}

func (h *Hub) emitRoom(sessionID string, except *Client, env *wire.Envelope) {
	h.mu.RLock()
	members := make([]*Client, 0, 2)
	for c := range h.rooms[sessionID] {
		if c != except {
			members = append(members, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range members {
		c.Emit(env)
	}
}

// RoomSize reports the number of connections in a session room.
func (h *Hub) RoomSize(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[sessionID])
}
