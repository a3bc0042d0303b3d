// Package archive persists settled sessions to Postgres. The player store
// remains the store-of-record for ratings; the archive is an append-side
// record keyed by session id, safe to replay.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/chessio/chessio-server/internal/domain"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// SaveResult upserts one settled session. Re-settlement cannot happen, but a
// replayed archive write after a partial failure must stay idempotent, hence
// the ON CONFLICT update.
func (r *Repository) SaveResult(ctx context.Context, s *domain.Session, method string) error {
	if r == nil || r.db == nil || s == nil {
		return nil
	}

	result := resultToken(s)
	duration := s.EndedAt.Sub(s.CreatedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}

	q := `INSERT INTO settled_games (
	    session_id, game_type, white_id, white_name, black_id, black_name,
	    result, result_method, winner_color, move_count, final_board,
	    white_delta, black_delta, started_at, ended_at, duration_ms
	  ) VALUES (
	    $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16
	  ) ON CONFLICT (session_id) DO UPDATE SET
	    result=EXCLUDED.result,
	    result_method=EXCLUDED.result_method,
	    winner_color=EXCLUDED.winner_color,
	    move_count=EXCLUDED.move_count,
	    final_board=EXCLUDED.final_board,
	    white_delta=EXCLUDED.white_delta,
	    black_delta=EXCLUDED.black_delta,
	    ended_at=EXCLUDED.ended_at,
	    duration_ms=EXCLUDED.duration_ms`

	whiteDelta, blackDelta := appliedDeltas(s)
	_, err := r.db.ExecContext(ctx, q,
		s.ID, string(s.GameType),
		s.WhiteID, s.WhiteName,
		s.BlackID, s.BlackName,
		result, strings.TrimSpace(method), string(s.WinnerColor),
		len(s.Moves), s.Board,
		whiteDelta, blackDelta,
		s.CreatedAt, s.EndedAt, duration,
	)
	return err
}

func resultToken(s *domain.Session) string {
	switch {
	case s.Outcome == domain.OutcomeDraw:
		return "draw"
	case s.WinnerColor == domain.White:
		return "white_win"
	case s.WinnerColor == domain.Black:
		return "black_win"
	default:
		return "abandoned"
	}
}

func appliedDeltas(s *domain.Session) (white, black float64) {
	switch {
	case s.Outcome == domain.OutcomeDraw:
		return s.Deltas.WhiteDraw, s.Deltas.BlackDraw
	case s.WinnerColor == domain.White:
		return s.Deltas.WhiteWin, s.Deltas.BlackLose
	default:
		return s.Deltas.WhiteLose, s.Deltas.BlackWin
	}
}
