package db

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/udisondev/chessd/internal/model"
)

// MemoryUserRepository is a concurrency-safe in-memory UserRepository,
// generalized from the teacher's MockAccountRepository (login/handler_test.go)
// into a real stand-in usable outside tests too (cmd/chessd always wires the
// Postgres repositories), guarded by one mutex over plain maps.
type MemoryUserRepository struct {
	mu    sync.Mutex
	byID  map[string]*model.User
	byUser map[string]string // username -> id
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:   make(map[string]*model.User),
		byUser: make(map[string]string),
	}
}

func (m *MemoryUserRepository) CreateUser(_ context.Context, username, passwordHash string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byUser[username]; exists {
		return nil, ErrUsernameTaken
	}
	u := &model.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		Rating:       model.DefaultRating,
		CreatedAt:    time.Now(),
	}
	m.byID[u.ID] = u
	m.byUser[username] = u.ID
	cp := *u
	return &cp, nil
}

func (m *MemoryUserRepository) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byUser[username]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m.byID[id]
	return &cp, nil
}

func (m *MemoryUserRepository) GetUserByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryUserRepository) UpdateAfterGame(_ context.Context, userID string, ratingDelta int, outcome GameOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[userID]
	if !ok {
		return ErrNotFound
	}
	u.Games++
	switch outcome {
	case OutcomeWin:
		u.Wins++
	case OutcomeLoss:
		u.Losses++
	case OutcomeDraw:
		u.Draws++
	}
	u.Rating += ratingDelta
	if u.Rating < model.RatingFloor {
		u.Rating = model.RatingFloor
	}
	return nil
}

// MemoryGameRepository is a concurrency-safe in-memory GameRepository.
type MemoryGameRepository struct {
	mu    sync.Mutex
	games map[string]*model.Game
}

func NewMemoryGameRepository() *MemoryGameRepository {
	return &MemoryGameRepository{games: make(map[string]*model.Game)}
}

func (m *MemoryGameRepository) CreateGame(_ context.Context, g *model.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *g
	cp.Moves = append([]string(nil), g.Moves...)
	m.games[g.ID] = &cp
	return nil
}

func (m *MemoryGameRepository) AppendMove(_ context.Context, gameID, uciMove string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[gameID]
	if !ok {
		return ErrNotFound
	}
	g.Moves = append(g.Moves, uciMove)
	return nil
}

func (m *MemoryGameRepository) FinalizeGame(_ context.Context, g *model.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.games[g.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Status = g.Status
	existing.Result = g.Result
	existing.Cause = g.Cause
	existing.FEN = g.FEN
	existing.EndTime = g.EndTime
	return nil
}

func (m *MemoryGameRepository) GetGame(_ context.Context, id string) (*model.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *g
	cp.Moves = append([]string(nil), g.Moves...)
	return &cp, nil
}
