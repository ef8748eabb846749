// Package db implements the Repository component (spec §2, §6): durable
// storage for User and Game records behind narrow interfaces, mirroring the
// teacher's internal/db package (PostgresAccountRepository, CharacterRepository)
// — one small struct per aggregate, wrapping a shared *pgxpool.Pool.
package db

import (
	"context"
	"errors"

	"github.com/udisondev/chessd/internal/model"
)

// ErrNotFound is returned by repository lookups that find nothing, mirrored
// from the teacher's "nil, nil means not found" convention by wrapping it
// in a sentinel instead — this codebase prefers errors.Is at call sites.
var ErrNotFound = errors.New("db: not found")

// ErrUsernameTaken is returned by CreateUser when the username is already
// registered (spec §4.4 Register: "rejects if username exists").
var ErrUsernameTaken = errors.New("db: username already taken")

// UserRepository persists User records (spec §3 User, §6 `users` collection).
type UserRepository interface {
	CreateUser(ctx context.Context, username, passwordHash string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	// UpdateAfterGame atomically applies a rating delta and the counter
	// increment for exactly one of {win, loss, draw} to a user, as part of
	// game finalization (spec §3: "rating updates atomic with game
	// finalization").
	UpdateAfterGame(ctx context.Context, userID string, ratingDelta int, outcome GameOutcome) error
}

// GameOutcome is which counter a finalized game increments for a given
// player: exactly one of these per player per completed game.
type GameOutcome int

const (
	OutcomeWin GameOutcome = iota
	OutcomeLoss
	OutcomeDraw
)

// GameRepository persists Game records (spec §3 Game, §6 `games` collection).
type GameRepository interface {
	CreateGame(ctx context.Context, g *model.Game) error
	AppendMove(ctx context.Context, gameID, uciMove string) error
	FinalizeGame(ctx context.Context, g *model.Game) error
	GetGame(ctx context.Context, id string) (*model.Game, error)
}
