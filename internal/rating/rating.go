// Package rating implements the Elo expected-score and delta math used to
// precompute session rating changes. It is pure: no state, no collaborators.
package rating

import (
	"math"

	"github.com/chessio/chessio-server/internal/domain"
)

// KFactor is the fixed Elo K used for every delta.
const KFactor = 32

// Result scores for the Elo formula.
const (
	ScoreLoss = 0.0
	ScoreDraw = 0.5
	ScoreWin  = 1.0
)

// Expected returns the expected score of a player rated a against a player
// rated b. Expected(a,b) + Expected(b,a) == 1 for all inputs.
func Expected(a, b float64) float64 {
	return 1 / (1 + math.Pow(10, (b-a)/400))
}

// Delta returns the signed rating change for a player rated a against an
// opponent rated b who scored result (0, 0.5 or 1).
func Delta(a, b, result float64) float64 {
	return KFactor * (result - Expected(a, b))
}

// Precompute evaluates all six per-color outcome deltas from the two ratings
// as observed right now. The values are frozen into the session and applied
// unchanged at settlement, even if either rating drifts before the game ends.
func Precompute(white, black float64) domain.RatingDeltas {
	return domain.RatingDeltas{
		WhiteWin:  Delta(white, black, ScoreWin),
		WhiteDraw: Delta(white, black, ScoreDraw),
		WhiteLose: Delta(white, black, ScoreLoss),
		BlackWin:  Delta(black, white, ScoreWin),
		BlackDraw: Delta(black, white, ScoreDraw),
		BlackLose: Delta(black, white, ScoreLoss),
	}
}
