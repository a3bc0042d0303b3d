// Package outcome settles finished sessions: it applies the precomputed
// rating deltas, records history, and closes the session, at most once per
// session no matter how many terminal requests race.
package outcome

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/chessio/chessio-server/internal/domain"
	"github.com/chessio/chessio-server/internal/obslog"
	"github.com/chessio/chessio-server/internal/playerstore"
	"github.com/chessio/chessio-server/internal/session"
)

// Archiver receives settled sessions for long-term storage. Archive failures
// are logged and never block settlement.
type Archiver interface {
	SaveResult(ctx context.Context, s *domain.Session, method string) error
}

// Settlement reports what one successful Settle applied.
type Settlement struct {
	Session     *domain.Session
	WhiteResult domain.GameResult
	BlackResult domain.GameResult
	WhiteDelta  float64
	BlackDelta  float64
}

type Resolver struct {
	sessions *session.Manager
	store    playerstore.Store
	archive  Archiver
}

// NewResolver wires the resolver. archive may be nil.
func NewResolver(sessions *session.Manager, store playerstore.Store, archive Archiver) *Resolver {
	return &Resolver{sessions: sessions, store: store, archive: archive}
}

// Settle closes the session and applies the outcome. For kind win or resign,
// winner names the color credited with the win (resignation is a win for the
// non-resigning side; callers pass the resigner's opposite). For draw, winner
// is ignored.
//
// The open-to-closed transition inside the session arena is the exclusion
// gate: only the caller that wins it proceeds to touch ratings and history,
// so the four settlement steps run exactly once. The loser of a terminal
// race gets domain.ErrAlreadyClosed and nothing else happens.
func (r *Resolver) Settle(ctx context.Context, sessionID string, kind domain.OutcomeKind, winner domain.Color) (*Settlement, error) {
	switch kind {
	case domain.OutcomeWin, domain.OutcomeResign:
		if !winner.Valid() {
			return nil, domain.ErrInvalidPayload
		}
	case domain.OutcomeDraw:
		winner = ""
	default:
		return nil, domain.ErrInvalidPayload
	}

	s, err := r.sessions.Close(ctx, sessionID, kind, winner)
	if err != nil {
		return nil, err
	}

	st := &Settlement{Session: s}
	if kind == domain.OutcomeDraw {
		st.WhiteResult, st.BlackResult = domain.ResultDraw, domain.ResultDraw
	} else if winner == domain.White {
		st.WhiteResult, st.BlackResult = domain.ResultWin, domain.ResultLose
	} else {
		st.WhiteResult, st.BlackResult = domain.ResultLose, domain.ResultWin
	}
	st.WhiteDelta = s.Deltas.DeltaFor(domain.White, st.WhiteResult)
	st.BlackDelta = s.Deltas.DeltaFor(domain.Black, st.BlackResult)

	// From here the session is closed; a store failure must surface loudly
	// rather than be retried, because rating increments are not idempotent
	// and a blind retry could apply a delta twice.
	var firstErr error
	apply := func(id, oppID string, res domain.GameResult, delta float64) {
		if err := r.store.ApplyRatingDelta(ctx, id, s.GameType, delta); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("apply rating for %s: %w", id, err)
		}
		if err := r.store.AddOpponentHistory(ctx, id, oppID, res); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("opponent history for %s: %w", id, err)
		}
		if err := r.store.AddOutcomeRecord(ctx, id, domain.OutcomeRecord{
			SessionID:    s.ID,
			OpponentID:   oppID,
			Result:       res,
			Date:         s.EndedAt,
			TotalMoves:   len(s.Moves),
			GameType:     s.GameType,
			RatingChange: delta,
		}); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("outcome record for %s: %w", id, err)
		}
		if err := r.store.SetCurrentSession(ctx, id, s.ID, domain.SessionCompleted); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("session status for %s: %w", id, err)
		}
	}
	apply(s.WhiteID, s.BlackID, st.WhiteResult, st.WhiteDelta)
	apply(s.BlackID, s.WhiteID, st.BlackResult, st.BlackDelta)

	if firstErr != nil {
		obslog.L().Error("settle_store_error",
			zap.String("session_id", s.ID),
			zap.String("outcome", string(kind)),
			zap.Error(firstErr),
		)
		return st, firstErr
	}

	if r.archive != nil {
		if err := r.archive.SaveResult(ctx, s, string(kind)); err != nil {
			obslog.L().Error("settle_archive_error", zap.String("session_id", s.ID), zap.Error(err))
		}
	}

	obslog.L().Info("settle_apply",
		zap.String("session_id", s.ID),
		zap.String("outcome", string(kind)),
		zap.String("winner_color", string(winner)),
		zap.Float64("white_delta", st.WhiteDelta),
		zap.Float64("black_delta", st.BlackDelta),
	)
	return st, nil
}

// IsAlreadyClosed reports whether err is the benign loser-of-the-race case.
func IsAlreadyClosed(err error) bool {
	return errors.Is(err, domain.ErrAlreadyClosed)
}
