package domain

import "time"

// GameResult is a per-player outcome token as persisted in history.
type GameResult string

const (
	ResultWin  GameResult = "win"
	ResultLose GameResult = "lose"
	ResultDraw GameResult = "draw"
)

// DefaultRating is assumed when a player has no recorded rating for a game
// type yet.
const DefaultRating = 1000

// GameStat is the per-game-type rating block of a player document.
type GameStat struct {
	CurrentRating float64 `bson:"currentRating" json:"currentRating"`
	HighestRating float64 `bson:"highestRating,omitempty" json:"highestRating,omitempty"`
}

// OpponentAggregate is the running win/lose/draw tally against one opponent.
type OpponentAggregate struct {
	OpponentID string `bson:"opponentId" json:"opponentId"`
	WinCount   int    `bson:"winCount" json:"winCount"`
	LoseCount  int    `bson:"loseCount" json:"loseCount"`
	DrawCount  int    `bson:"drawCount" json:"drawCount"`
}

// OutcomeRecord is one settled-match history entry. Immutable once appended.
type OutcomeRecord struct {
	SessionID    string     `bson:"gameId" json:"gameId"`
	OpponentID   string     `bson:"opponentId" json:"opponentId"`
	Result       GameResult `bson:"result" json:"result"`
	Date         time.Time  `bson:"date" json:"date"`
	TotalMoves   int        `bson:"totalMoves" json:"totalMoves"`
	GameType     GameType   `bson:"gameType" json:"gameType"`
	RatingChange float64    `bson:"ratingChange" json:"ratingChange"`
}

// SessionRef is the status of a player's most recent session.
type SessionRef string

const (
	SessionOngoing   SessionRef = "ongoing"
	SessionCompleted SessionRef = "completed"
)

// Player is the persistent-store view of an account, trimmed to the fields
// the core reads or writes. Account credentials and profile CRUD belong to
// the external store, not to this service.
type Player struct {
	ID            string                `bson:"_id,omitempty" json:"id"`
	Username      string                `bson:"username" json:"username"`
	LanguagePreferred string            `bson:"languagePreferred,omitempty" json:"languagePreferred,omitempty"`
	IsOnline      bool                  `bson:"isOnline" json:"isOnline"`
	Waiting       bool                  `bson:"waiting" json:"waiting"`
	LastGameID    string                `bson:"lastGame,omitempty" json:"lastGame,omitempty"`
	LastGameStatus SessionRef           `bson:"lastGameStatus,omitempty" json:"lastGameStatus,omitempty"`
	GameStats     map[GameType]GameStat `bson:"gameStats,omitempty" json:"gameStats,omitempty"`
	OpponentHistory []OpponentAggregate `bson:"opponentHistory,omitempty" json:"opponentHistory,omitempty"`
	PastMatches   []OutcomeRecord       `bson:"pastMatches,omitempty" json:"pastMatches,omitempty"`
}

// RatingFor returns the player's current rating for a game type, falling
// back to DefaultRating when the stat block is absent or zero.
func (p *Player) RatingFor(gt GameType) float64 {
	if p == nil || p.GameStats == nil {
		return DefaultRating
	}
	st, ok := p.GameStats[gt]
	if !ok || st.CurrentRating == 0 {
		return DefaultRating
	}
	return st.CurrentRating
}
