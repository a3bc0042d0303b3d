package wire

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chessio/chessio-server/internal/domain"
)

func missing(field string) error {
	return fmt.Errorf("%w: missing %s", domain.ErrInvalidPayload, field)
}

type IdentifyRequest struct {
	Username string `json:"username"`
}

func (r *IdentifyRequest) Validate() error {
	if strings.TrimSpace(r.Username) == "" {
		return missing("username")
	}
	return nil
}

type StartGameRequest struct {
	PlayerID string `json:"playerId"`
	GameType string `json:"gameType"`
}

func (r *StartGameRequest) Validate() error {
	if strings.TrimSpace(r.PlayerID) == "" {
		return missing("playerId")
	}
	if strings.TrimSpace(r.GameType) == "" {
		return missing("gameType")
	}
	return nil
}

type CancelRequest struct {
	PlayerID string `json:"playerId"`
	GameType string `json:"gameType"`
}

func (r *CancelRequest) Validate() error {
	if strings.TrimSpace(r.PlayerID) == "" {
		return missing("playerId")
	}
	if strings.TrimSpace(r.GameType) == "" {
		return missing("gameType")
	}
	return nil
}

type JoiningGameRequest struct {
	SessionID string `json:"sessionId"`
	PlayerID  string `json:"playerId"`
}

func (r *JoiningGameRequest) Validate() error {
	if strings.TrimSpace(r.SessionID) == "" {
		return missing("sessionId")
	}
	if strings.TrimSpace(r.PlayerID) == "" {
		return missing("playerId")
	}
	return nil
}

// TerminalRequest covers resign-game and win-game: a session and the color
// the action is about (the resigner for resign, the claimed winner for win).
type TerminalRequest struct {
	SessionID string `json:"sessionId"`
	Color     string `json:"color"`
}

func (r *TerminalRequest) Validate() error {
	if strings.TrimSpace(r.SessionID) == "" {
		return missing("sessionId")
	}
	if !domain.Color(r.Color).Valid() {
		return missing("color")
	}
	return nil
}

type DrawGameRequest struct {
	SessionID string `json:"sessionId"`
}

func (r *DrawGameRequest) Validate() error {
	if strings.TrimSpace(r.SessionID) == "" {
		return missing("sessionId")
	}
	return nil
}

type UpdateBoardRequest struct {
	SessionID   string `json:"sessionId"`
	Board       string `json:"board"`
	SenderColor string `json:"senderColor"`
}

func (r *UpdateBoardRequest) Validate() error {
	if strings.TrimSpace(r.SessionID) == "" {
		return missing("sessionId")
	}
	if strings.TrimSpace(r.Board) == "" {
		return missing("board")
	}
	if !domain.Color(r.SenderColor).Valid() {
		return missing("senderColor")
	}
	return nil
}

// ProposalRequest covers send-draw-proposal and rejected-draw-proposal.
type ProposalRequest struct {
	SessionID string `json:"sessionId"`
	PlayerID  string `json:"playerId"`
}

func (r *ProposalRequest) Validate() error {
	if strings.TrimSpace(r.SessionID) == "" {
		return missing("sessionId")
	}
	if strings.TrimSpace(r.PlayerID) == "" {
		return missing("playerId")
	}
	return nil
}

type SendMessageRequest struct {
	SessionID string `json:"sessionId"`
	SenderID  string `json:"senderId"`
	Message   string `json:"message"`
}

func (r *SendMessageRequest) Validate() error {
	if strings.TrimSpace(r.SessionID) == "" {
		return missing("sessionId")
	}
	if strings.TrimSpace(r.SenderID) == "" {
		return missing("senderId")
	}
	if strings.TrimSpace(r.Message) == "" {
		return missing("message")
	}
	return nil
}

type SendAnswerRequest struct {
	SessionID string          `json:"sessionId"`
	SDPAnswer json.RawMessage `json:"sdpAnswer"`
}

func (r *SendAnswerRequest) Validate() error {
	if strings.TrimSpace(r.SessionID) == "" {
		return missing("sessionId")
	}
	if len(r.SDPAnswer) == 0 {
		return missing("sdpAnswer")
	}
	return nil
}

type IceCandidateRequest struct {
	SessionID    string          `json:"sessionId"`
	IceCandidate json.RawMessage `json:"iceCandidate"`
}

func (r *IceCandidateRequest) Validate() error {
	if strings.TrimSpace(r.SessionID) == "" {
		return missing("sessionId")
	}
	if len(r.IceCandidate) == 0 {
		return missing("iceCandidate")
	}
	return nil
}
