package wire

import (
	"encoding/json"

	"github.com/chessio/chessio-server/internal/domain"
)

type GameStartedPayload struct {
	Session *domain.Session `json:"game"`
	// Color assigned to the receiving player.
	YourColor domain.Color `json:"yourColor,omitempty"`
}

type JoinGamePayload struct {
	SessionID string `json:"sessionId"`
}

type JoinedPayload struct {
	Username string `json:"username"`
}

type WaitPayload struct {
	Message string `json:"message"`
}

type NewBoardPayload struct {
	ChessBoard  string       `json:"chessBoard"`
	CurrentTurn domain.Color `json:"currentTurn"`
}

type ProposalPayload struct {
	PlayerID string `json:"playerId"`
}

type NewMessagePayload struct {
	SenderID          string `json:"senderId"`
	Message           string `json:"message"`
	TranslatedMessage string `json:"translatedMessage,omitempty"`
}

type AnsweredPayload struct {
	SDPAnswer json.RawMessage `json:"sdpAnswer"`
}

type IceCandidatePayload struct {
	IceCandidate json.RawMessage `json:"iceCandidate"`
}

type GameOverPayload struct {
	SessionID   string             `json:"sessionId"`
	Outcome     domain.OutcomeKind `json:"outcome"`
	WinnerColor domain.Color       `json:"winnerColor,omitempty"`
	WhiteDelta  float64            `json:"whiteDelta"`
	BlackDelta  float64            `json:"blackDelta"`
}
