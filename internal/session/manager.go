// Package session owns the arena of live games. Sessions are stored as JSON
// under one Redis key each; every mutation runs inside a WATCH transaction on
// that key, so concurrent submissions for the same session serialize and
// apply against fresh state in the order they win the transaction.
package session

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/chessio/chessio-server/internal/domain"
	"github.com/chessio/chessio-server/internal/obslog"
	"github.com/chessio/chessio-server/internal/rating"
)

// maxTxRetries bounds the WATCH retry loop. A mutation that loses the race
// this many times in a row reports ErrConflict instead of spinning.
const maxTxRetries = 3

type Manager struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewManager(rdb *redis.Client, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{rdb: rdb, ttl: ttl}
}

func sessionKey(id string) string { return "session:" + strings.TrimSpace(id) }

// Create builds a new open session for two matched players. Colors are
// assigned uniformly at random and the six rating deltas are frozen from the
// ratings observed right now.
func (m *Manager) Create(ctx context.Context, a, b *domain.Player, gt domain.GameType) (*domain.Session, error) {
	if a == nil || b == nil || a.ID == b.ID {
		return nil, domain.ErrInvalidPayload
	}
	white, black := a, b
	if n, err := rand.Int(rand.Reader, big.NewInt(2)); err == nil && n.Int64() == 0 {
		white, black = b, a
	}

	now := time.Now()
	s := &domain.Session{
		ID:        uuid.NewString(),
		GameType:  gt,
		Status:    domain.StatusOpen,
		WhiteID:   white.ID,
		WhiteName: white.Username,
		BlackID:   black.ID,
		BlackName: black.Username,
		WhiteLang: white.LanguagePreferred,
		BlackLang: black.LanguagePreferred,
		Deltas:    rating.Precompute(white.RatingFor(gt), black.RatingFor(gt)),
		Board:     domain.InitialBoard,
		Turn:      domain.White,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.save(ctx, s); err != nil {
		return nil, err
	}
	obslog.L().Info("session_create",
		zap.String("session_id", s.ID),
		zap.String("game_type", string(gt)),
		zap.String("white_id", s.WhiteID),
		zap.String("black_id", s.BlackID),
		zap.Float64("white_win_delta", s.Deltas.WhiteWin),
		zap.Float64("black_win_delta", s.Deltas.BlackWin),
	)
	return s, nil
}

// Get loads a session by id.
func (m *Manager) Get(ctx context.Context, id string) (*domain.Session, error) {
	raw, err := m.rdb.Get(ctx, sessionKey(id)).Bytes()
	if err == redis.Nil {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	var s domain.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Join validates that the session exists and that the player is one of its
// participants. The player's store-side back-reference is the caller's job.
func (m *Manager) Join(ctx context.Context, id, playerID string) (*domain.Session, error) {
	s, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.PlayerColor(playerID) == "" {
		return nil, domain.ErrNotParticipant
	}
	return s, nil
}

// ApplyMove stores a new board token and flips the turn. The board token is
// opaque; only turn ordering is enforced. Rejections leave the session
// untouched.
func (m *Manager) ApplyMove(ctx context.Context, id, board string, sender domain.Color) (*domain.Session, error) {
	if strings.TrimSpace(board) == "" || !sender.Valid() {
		return nil, domain.ErrInvalidPayload
	}
	s, err := m.update(ctx, id, func(s *domain.Session) error {
		if s.Status != domain.StatusOpen {
			return domain.ErrSessionClosed
		}
		if s.Turn != sender {
			return domain.ErrNotYourTurn
		}
		now := time.Now()
		s.Board = board
		s.Turn = sender.Other()
		s.Moves = append(s.Moves, domain.MoveEntry{
			Number:   len(s.Moves) + 1,
			Board:    board,
			Color:    sender,
			PlayedAt: now,
		})
		s.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	obslog.L().Info("session_move",
		zap.String("session_id", s.ID),
		zap.String("sender", string(sender)),
		zap.String("turn", string(s.Turn)),
		zap.Int("move_count", len(s.Moves)),
	)
	return s, nil
}

// AppendChat adds an immutable chat entry to an open session.
func (m *Manager) AppendChat(ctx context.Context, id string, msg domain.ChatMessage) (*domain.Session, error) {
	if strings.TrimSpace(msg.Text) == "" {
		return nil, domain.ErrInvalidPayload
	}
	return m.update(ctx, id, func(s *domain.Session) error {
		if s.Status != domain.StatusOpen {
			return domain.ErrSessionClosed
		}
		if s.PlayerColor(msg.SenderID) == "" {
			return domain.ErrNotParticipant
		}
		s.Chat = append(s.Chat, msg)
		s.UpdatedAt = msg.SentAt
		return nil
	})
}

// Close performs the one-time open-to-closed transition and records how the
// session ended. The status check inside the transaction is the exclusion
// gate: of two racing terminal requests exactly one succeeds, the other
// observes ErrAlreadyClosed.
func (m *Manager) Close(ctx context.Context, id string, kind domain.OutcomeKind, winner domain.Color) (*domain.Session, error) {
	s, err := m.update(ctx, id, func(s *domain.Session) error {
		if s.Status != domain.StatusOpen {
			return domain.ErrAlreadyClosed
		}
		now := time.Now()
		s.Status = domain.StatusClosed
		s.Outcome = kind
		s.WinnerColor = winner
		s.EndedAt = now
		s.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	obslog.L().Info("session_close",
		zap.String("session_id", s.ID),
		zap.String("outcome", string(kind)),
		zap.String("winner_color", string(winner)),
	)
	return s, nil
}

// update runs fn against the freshest copy of the session inside a WATCH
// transaction, retrying on conflict. fn errors pass through unchanged and
// abort without writing.
func (m *Manager) update(ctx context.Context, id string, fn func(*domain.Session) error) (*domain.Session, error) {
	key := sessionKey(id)
	var out *domain.Session

	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err := m.rdb.Watch(ctx, func(tx *redis.Tx) error {
			raw, err := tx.Get(ctx, key).Bytes()
			if err == redis.Nil {
				return domain.ErrSessionNotFound
			}
			if err != nil {
				return err
			}
			var s domain.Session
			if err := json.Unmarshal(raw, &s); err != nil {
				return err
			}
			if err := fn(&s); err != nil {
				return err
			}
			newRaw, err := json.Marshal(&s)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, newRaw, m.ttl)
				return nil
			})
			if err != nil {
				return err
			}
			out = &s
			return nil
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, domain.ErrConflict
}

func (m *Manager) save(ctx context.Context, s *domain.Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return m.rdb.Set(ctx, sessionKey(s.ID), raw, m.ttl).Err()
}
