// Package matchmaking pairs players waiting for a game. Queues are FIFO per
// (game type, rating bracket) and live in Redis lists; the single LPOP that
// removes a waiter is the atomic step that makes each entry observable by
// exactly one matching attempt.
package matchmaking

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/chessio/chessio-server/internal/domain"
	"github.com/chessio/chessio-server/internal/obslog"
	"github.com/chessio/chessio-server/internal/playerstore"
)

// Queue entries are retained this long without a match. There is no active
// expiry sweep; TTL keeps abandoned queues from accumulating.
const ttlQueue = 24 * time.Hour

// Bracket is one fixed 500-point rating band.
type Bracket struct {
	Min int
	Max int
}

func (b Bracket) String() string { return fmt.Sprintf("%d-%d", b.Min, b.Max) }

// Brackets is the ordered band table. Ratings below the table or above it
// fall back to the first band.
var Brackets = []Bracket{
	{1000, 1500},
	{1501, 2000},
	{2001, 2500},
	{2501, 3000},
	{3001, 3500},
	{3501, 4000},
	{4001, 4500},
	{4501, 5000},
}

// BracketFor returns the band containing rating, defaulting to the first.
func BracketFor(rating float64) Bracket {
	r := int(rating)
	for _, b := range Brackets {
		if r >= b.Min && r <= b.Max {
			return b
		}
	}
	return Brackets[0]
}

// Entry is one waiting player as serialized into its bracket queue.
type Entry struct {
	PlayerID string    `json:"player_id"`
	Username string    `json:"username"`
	Rating   float64   `json:"rating"`
	QueuedAt time.Time `json:"queued_at"`
}

// Service owns the waiting queues. The store reference is used to mirror the
// waiting flag onto player documents; flag writes are best-effort and never
// fail a matchmaking operation.
type Service struct {
	rdb   *redis.Client
	store playerstore.Store
}

func NewService(rdb *redis.Client, store playerstore.Store) *Service {
	return &Service{rdb: rdb, store: store}
}

func queueKey(gt domain.GameType, b Bracket) string {
	return "mm:queue:" + string(gt) + ":" + b.String()
}

func waitingKey(playerID string) string {
	return "mm:waiting:" + strings.TrimSpace(playerID)
}

// Enqueue appends the player to the tail of its bracket queue. A player may
// occupy at most one (type, bracket) slot system-wide; the waiting marker
// set with SETNX enforces that.
func (s *Service) Enqueue(ctx context.Context, e Entry, gt domain.GameType) error {
	if _, err := domain.ParseGameType(string(gt)); err != nil {
		return err
	}
	if strings.TrimSpace(e.PlayerID) == "" {
		return domain.ErrInvalidPayload
	}
	b := BracketFor(e.Rating)
	if e.QueuedAt.IsZero() {
		e.QueuedAt = time.Now()
	}

	ok, err := s.rdb.SetNX(ctx, waitingKey(e.PlayerID), string(gt)+"|"+b.String(), ttlQueue).Result()
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrAlreadyQueued
	}

	raw, err := json.Marshal(&e)
	if err != nil {
		return err
	}
	if err := s.rdb.RPush(ctx, queueKey(gt, b), raw).Err(); err != nil {
		_ = s.rdb.Del(ctx, waitingKey(e.PlayerID)).Err()
		return err
	}
	_ = s.rdb.Expire(ctx, queueKey(gt, b), ttlQueue).Err()
	s.setWaiting(ctx, e.PlayerID, true)
	obslog.L().Info("mm_enqueue",
		zap.String("player_id", e.PlayerID),
		zap.String("game_type", string(gt)),
		zap.String("bracket", b.String()),
	)
	return nil
}

// FindOrEnqueue pops the oldest waiter in the requester's bracket and returns
// it. When the queue is empty the requester is enqueued instead and the
// returned entry is nil. The requester's own stale entry, if encountered, is
// discarded rather than matched.
func (s *Service) FindOrEnqueue(ctx context.Context, e Entry, gt domain.GameType) (*Entry, error) {
	if _, err := domain.ParseGameType(string(gt)); err != nil {
		return nil, err
	}
	b := BracketFor(e.Rating)
	key := queueKey(gt, b)

	for {
		raw, err := s.rdb.LPop(ctx, key).Bytes()
		if err == redis.Nil {
			return nil, s.Enqueue(ctx, e, gt)
		}
		if err != nil {
			return nil, err
		}
		var opp Entry
		if jerr := json.Unmarshal(raw, &opp); jerr != nil {
			obslog.L().Warn("mm_entry_decode", zap.String("key", key), zap.Error(jerr))
			continue
		}
		_ = s.rdb.Del(ctx, waitingKey(opp.PlayerID)).Err()
		if opp.PlayerID == e.PlayerID {
			// requester had a stale entry in this queue; drop it and keep looking
			s.setWaiting(ctx, e.PlayerID, false)
			continue
		}
		s.setWaiting(ctx, opp.PlayerID, false)
		obslog.L().Info("mm_match",
			zap.String("player_id", e.PlayerID),
			zap.String("opponent_id", opp.PlayerID),
			zap.String("game_type", string(gt)),
			zap.String("bracket", b.String()),
		)
		return &opp, nil
	}
}

// Cancel removes the player's entry from its bracket queue. A player already
// matched (entry gone) or never queued is a no-op.
func (s *Service) Cancel(ctx context.Context, playerID string, gt domain.GameType) error {
	if _, err := domain.ParseGameType(string(gt)); err != nil {
		return err
	}
	marker, err := s.rdb.Get(ctx, waitingKey(playerID)).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}
	parts := strings.SplitN(marker, "|", 2)
	if len(parts) != 2 || parts[0] != string(gt) {
		// queued for a different type; this cancel does not touch it
		return nil
	}
	key := "mm:queue:" + parts[0] + ":" + parts[1]

	items, err := s.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return err
	}
	for _, raw := range items {
		var e Entry
		if json.Unmarshal([]byte(raw), &e) != nil {
			continue
		}
		if e.PlayerID != playerID {
			continue
		}
		// LREM of the exact serialized value; if a concurrent match popped it
		// first, this removes nothing and the cancel degrades to a no-op.
		if err := s.rdb.LRem(ctx, key, 1, raw).Err(); err != nil {
			return err
		}
		break
	}
	_ = s.rdb.Del(ctx, waitingKey(playerID)).Err()
	s.setWaiting(ctx, playerID, false)
	obslog.L().Info("mm_cancel", zap.String("player_id", playerID), zap.String("game_type", string(gt)))
	return nil
}

// QueueDepth reports the current length of one bracket queue.
func (s *Service) QueueDepth(ctx context.Context, gt domain.GameType, b Bracket) (int64, error) {
	return s.rdb.LLen(ctx, queueKey(gt, b)).Result()
}

func (s *Service) setWaiting(ctx context.Context, playerID string, waiting bool) {
	if s.store == nil {
		return
	}
	if err := s.store.SetWaiting(ctx, playerID, waiting); err != nil {
		obslog.L().Warn("mm_waiting_flag", zap.String("player_id", playerID), zap.Bool("waiting", waiting), zap.Error(err))
	}
}
