package playerstore

import (
	"context"
	"sync"

	"github.com/chessio/chessio-server/internal/domain"
)

// Memory is an in-memory Store used by tests and by development runs
// without a MongoDB.
type Memory struct {
	mu         sync.RWMutex
	byID       map[string]*domain.Player
	byUsername map[string]string
}

func NewMemory() *Memory {
	return &Memory{
		byID:       make(map[string]*domain.Player),
		byUsername: make(map[string]string),
	}
}

// Put inserts or replaces a player document. Test seeding helper.
func (m *Memory) Put(p *domain.Player) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := clonePlayer(p)
	m.byID[cp.ID] = cp
	m.byUsername[cp.Username] = cp.ID
}

func (m *Memory) FindByUsername(ctx context.Context, username string) (*domain.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byUsername[username]
	if !ok {
		return nil, domain.ErrPlayerNotFound
	}
	return clonePlayer(m.byID[id]), nil
}

func (m *Memory) FindByID(ctx context.Context, id string) (*domain.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrPlayerNotFound
	}
	return clonePlayer(p), nil
}

func (m *Memory) SetOnline(ctx context.Context, id string, online bool) error {
	return m.mutate(id, func(p *domain.Player) { p.IsOnline = online })
}

func (m *Memory) SetWaiting(ctx context.Context, id string, waiting bool) error {
	return m.mutate(id, func(p *domain.Player) { p.Waiting = waiting })
}

func (m *Memory) SetCurrentSession(ctx context.Context, id, sessionID string, status domain.SessionRef) error {
	return m.mutate(id, func(p *domain.Player) {
		p.LastGameID = sessionID
		p.LastGameStatus = status
	})
}

func (m *Memory) ApplyRatingDelta(ctx context.Context, id string, gt domain.GameType, delta float64) error {
	return m.mutate(id, func(p *domain.Player) {
		if p.GameStats == nil {
			p.GameStats = make(map[domain.GameType]domain.GameStat)
		}
		st := p.GameStats[gt]
		if st.CurrentRating == 0 {
			st.CurrentRating = domain.DefaultRating
		}
		st.CurrentRating += delta
		if st.CurrentRating > st.HighestRating {
			st.HighestRating = st.CurrentRating
		}
		p.GameStats[gt] = st
	})
}

func (m *Memory) AddOpponentHistory(ctx context.Context, id, opponentID string, result domain.GameResult) error {
	return m.mutate(id, func(p *domain.Player) {
		for i := range p.OpponentHistory {
			if p.OpponentHistory[i].OpponentID != opponentID {
				continue
			}
			bump(&p.OpponentHistory[i], result)
			return
		}
		agg := domain.OpponentAggregate{OpponentID: opponentID}
		bump(&agg, result)
		p.OpponentHistory = append(p.OpponentHistory, agg)
	})
}

func (m *Memory) AddOutcomeRecord(ctx context.Context, id string, rec domain.OutcomeRecord) error {
	return m.mutate(id, func(p *domain.Player) {
		p.PastMatches = append(p.PastMatches, rec)
	})
}

func (m *Memory) mutate(id string, fn func(*domain.Player)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return domain.ErrPlayerNotFound
	}
	fn(p)
	return nil
}

func bump(agg *domain.OpponentAggregate, result domain.GameResult) {
	switch result {
	case domain.ResultWin:
		agg.WinCount++
	case domain.ResultLose:
		agg.LoseCount++
	default:
		agg.DrawCount++
	}
}

func clonePlayer(p *domain.Player) *domain.Player {
	if p == nil {
		return nil
	}
	cp := *p
	if p.GameStats != nil {
		cp.GameStats = make(map[domain.GameType]domain.GameStat, len(p.GameStats))
		for k, v := range p.GameStats {
			cp.GameStats[k] = v
		}
	}
	cp.OpponentHistory = append([]domain.OpponentAggregate(nil), p.OpponentHistory...)
	cp.PastMatches = append([]domain.OutcomeRecord(nil), p.PastMatches...)
	return &cp
}
