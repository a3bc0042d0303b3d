// Package playerstore is the boundary to the external persistent store that
// owns player documents. The core only reads ratings and writes the narrow
// set of fields settlement and presence need.
package playerstore

import (
	"context"

	"github.com/chessio/chessio-server/internal/domain"
)

// Store is the contract with the external player store. Implementations must
// make ApplyRatingDelta and AddOpponentHistory atomic per document
// (increment-style updates, not read-modify-write).
type Store interface {
	FindByUsername(ctx context.Context, username string) (*domain.Player, error)
	FindByID(ctx context.Context, id string) (*domain.Player, error)

	SetOnline(ctx context.Context, id string, online bool) error
	SetWaiting(ctx context.Context, id string, waiting bool) error

	// SetCurrentSession updates the player's non-owning session back-reference
	// and its ongoing/completed status.
	SetCurrentSession(ctx context.Context, id, sessionID string, status domain.SessionRef) error

	// ApplyRatingDelta increments gameStats.<type>.currentRating by delta.
	ApplyRatingDelta(ctx context.Context, id string, gt domain.GameType, delta float64) error

	// AddOpponentHistory increments the win/lose/draw tally against opponentID,
	// creating the aggregate entry when absent.
	AddOpponentHistory(ctx context.Context, id, opponentID string, result domain.GameResult) error

	// AddOutcomeRecord appends an immutable past-match record.
	AddOutcomeRecord(ctx context.Context, id string, rec domain.OutcomeRecord) error
}
