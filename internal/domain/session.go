package domain

import "time"

// Color identifies a chess side.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// Other returns the opposing color.
func (c Color) Other() Color {
	if c == White {
		return Black
	}
	return White
}

// Valid reports whether c is one of the two playable colors.
func (c Color) Valid() bool { return c == White || c == Black }

// GameType is a time-control category. Clocks themselves are not enforced
// server-side; the type only partitions matchmaking queues and rating stats.
type GameType string

const (
	Bullet GameType = "bullet"
	Blitz  GameType = "blitz"
	Rapid  GameType = "rapid"
)

// GameTypes lists every valid game type.
var GameTypes = []GameType{Bullet, Blitz, Rapid}

// ParseGameType normalizes and validates a game type token.
func ParseGameType(s string) (GameType, error) {
	switch GameType(s) {
	case Bullet, Blitz, Rapid:
		return GameType(s), nil
	}
	return "", ErrInvalidGameType
}

// SessionStatus represents a session lifecycle state. A session is open
// exactly until settlement closes it; the transition happens once.
type SessionStatus string

const (
	StatusOpen   SessionStatus = "OPEN"
	StatusClosed SessionStatus = "CLOSED"
)

// OutcomeKind classifies how a session ended.
type OutcomeKind string

const (
	OutcomeWin    OutcomeKind = "win"
	OutcomeResign OutcomeKind = "resign"
	OutcomeDraw   OutcomeKind = "draw"
)

// InitialBoard is the standard starting position token. The server never
// parses board tokens; they are relayed and stored verbatim.
const InitialBoard = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// RatingDeltas holds the six signed rating changes precomputed at session
// creation from the ratings observed at that instant. They are applied
// unchanged at settlement even if the underlying ratings drift meanwhile.
type RatingDeltas struct {
	WhiteWin  float64 `json:"white_win"`
	WhiteDraw float64 `json:"white_draw"`
	WhiteLose float64 `json:"white_lose"`
	BlackWin  float64 `json:"black_win"`
	BlackDraw float64 `json:"black_draw"`
	BlackLose float64 `json:"black_lose"`
}

// MoveEntry is one applied board update.
type MoveEntry struct {
	Number   int       `json:"number"`
	Board    string    `json:"board"`
	Color    Color     `json:"color"`
	PlayedAt time.Time `json:"played_at"`
}

// ChatMessage is an immutable session chat entry. TranslatedText is empty
// when the translation collaborator failed and the message degraded to the
// original text.
type ChatMessage struct {
	SenderID       string    `json:"sender_id"`
	Text           string    `json:"text"`
	TranslatedText string    `json:"translated_text,omitempty"`
	SentAt         time.Time `json:"sent_at"`
}

// Session is one live two-player game. Players hold only the session id as a
// back-reference; the session itself references players by id, never by
// pointer, so there is no ownership cycle.
type Session struct {
	ID        string        `json:"id"`
	GameType  GameType      `json:"game_type"`
	Status    SessionStatus `json:"status"`

	WhiteID   string `json:"white_id"`
	WhiteName string `json:"white_name"`
	BlackID   string `json:"black_id"`
	BlackName string `json:"black_name"`

	WhiteLang string `json:"white_lang,omitempty"`
	BlackLang string `json:"black_lang,omitempty"`

	Deltas RatingDeltas `json:"deltas"`

	Board string      `json:"board"`
	Turn  Color       `json:"turn"`
	Moves []MoveEntry `json:"moves"`

	Chat []ChatMessage `json:"chat,omitempty"`

	Outcome     OutcomeKind `json:"outcome,omitempty"`
	WinnerColor Color       `json:"winner_color,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	EndedAt   time.Time `json:"ended_at,omitempty"`
}

// PlayerColor returns the color assigned to the given player id, or "" when
// the player is not a participant.
func (s *Session) PlayerColor(playerID string) Color {
	switch playerID {
	case s.WhiteID:
		return White
	case s.BlackID:
		return Black
	}
	return ""
}

// PlayerID returns the participant id holding the given color.
func (s *Session) PlayerID(c Color) string {
	if c == White {
		return s.WhiteID
	}
	return s.BlackID
}

// OpponentID returns the other participant's id, or "" when the player is
// not a participant.
func (s *Session) OpponentID(playerID string) string {
	switch playerID {
	case s.WhiteID:
		return s.BlackID
	case s.BlackID:
		return s.WhiteID
	}
	return ""
}

// RecipientLang returns the preferred language of the participant opposite
// the sender, used as the chat translation target.
func (s *Session) RecipientLang(senderID string) string {
	if senderID == s.WhiteID {
		return s.BlackLang
	}
	return s.WhiteLang
}

// DeltaFor returns the precomputed delta for the given color and result.
func (d RatingDeltas) DeltaFor(c Color, result GameResult) float64 {
	if c == White {
		switch result {
		case ResultWin:
			return d.WhiteWin
		case ResultDraw:
			return d.WhiteDraw
		default:
			return d.WhiteLose
		}
	}
	switch result {
	case ResultWin:
		return d.BlackWin
	case ResultDraw:
		return d.BlackDraw
	default:
		return d.BlackLose
	}
}
