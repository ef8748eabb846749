// Package ai implements the AI Opponent delegated component (spec §4.10):
// an asynchronous move provider invoked after each human move. Grounded on
// the teacher's admin/commands registry pattern (a small self-contained
// subsystem with its own interface, swappable implementation, and a
// worker-backed dispatch so it never blocks the caller).
package ai

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/udisondev/chessd/internal/chessengine"
)

// Difficulty is the AI opponent's requested strength (spec §6 FIND_AI_MATCH).
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// MoveProvider proposes a move for the given position. Implementations may
// be slow (spec §4.10: "The AI provider is asynchronous") — callers must
// not invoke this directly from a latency-sensitive path; use Pool.Submit.
type MoveProvider interface {
	Propose(ctx context.Context, pos chessengine.Position, difficulty Difficulty) (string, error)
}

// BuiltinProvider is the default MoveProvider: picks a legal move at
// "easy", or the legal move maximizing a one-ply material-count heuristic
// at "medium"/"hard". It exists so the full move-application path (engine
// facade -> controller -> broadcast) can be exercised end to end without a
// real external engine binding (SPEC_FULL.md §6.9).
type BuiltinProvider struct{}

func (BuiltinProvider) Propose(_ context.Context, pos chessengine.Position, difficulty Difficulty) (string, error) {
	legal := chessengine.LegalMoves(pos)
	if len(legal) == 0 {
		return "", fmt.Errorf("ai: no legal moves available")
	}
	if difficulty == Easy {
		return legal[rand.IntN(len(legal))], nil
	}

	mover := pos.ToMove()
	best := legal[0]
	bestScore := -1 << 30
	for _, m := range legal {
		next, err := chessengine.ApplyUCI(pos, m)
		if err != nil {
			continue
		}
		score := chessengine.MaterialValue(next, mover) - chessengine.MaterialValue(next, mover.Opposite())
		if score > bestScore {
			bestScore = score
			best = m
		}
	}
	return best, nil
}
