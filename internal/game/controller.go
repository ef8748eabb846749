package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/udisondev/chessd/internal/chessengine"
	"github.com/udisondev/chessd/internal/db"
	"github.com/udisondev/chessd/internal/model"
)

// Errors returned by Controller operations, surfaced to callers as typed
// INVALID_MOVE (for MAKE_MOVE) or DOMAIN_ERROR replies per spec §7.
var (
	ErrNotInGame   = errors.New("game: session is not a participant in this game")
	ErrNotYourTurn = errors.New("game: not your turn")
	ErrGameOver    = errors.New("game: game has already ended")
	ErrNoDrawOffer = errors.New("game: no outstanding draw offer from the other side")
	ErrUnknownGame = errors.New("game: unknown game id")

	// ErrPersistence marks an error as a failed termination commit (spec §7
	// PersistenceError) rather than a rejected move or domain rule — callers
	// check errors.Is(err, ErrPersistence) to route the reply to an
	// internal-error message instead of an invalid-move one.
	ErrPersistence = errors.New("game: termination commit failed")
)

// Termination carries everything needed to build the GAME_OVER broadcast
// and apply the rating update, once an operation ends a game (spec §4.8
// termination sequence).
type Termination struct {
	Game           *model.Game
	WhiteDelta     int
	BlackDelta     int
	WhiteNewRating int
	BlackNewRating int
}

// entry is the live state the controller keeps per active game: the
// persisted-shape Game record plus the chessengine.Position needed to
// validate and apply further moves without reparsing FEN each time.
type entry struct {
	game *model.Game
	pos  chessengine.Position
}

// Controller owns the live Game map exclusively (spec §4.8). It has no
// internal locking: every exported method is called only while the
// coordinator holds its single serializing lock (spec §5), the same
// "global mutex guarding short critical sections" option the concurrency
// model names.
type Controller struct {
	engine chessengine.Engine
	games  db.GameRepository
	users  db.UserRepository

	active map[string]*entry
}

// New returns a Controller with an empty active-games map.
func New(engine chessengine.Engine, games db.GameRepository, users db.UserRepository) *Controller {
	return &Controller{
		engine: engine,
		games:  games,
		users:  users,
		active: make(map[string]*entry),
	}
}

// Get returns the live Game for id, if active.
func (c *Controller) Get(id string) (*model.Game, bool) {
	e, ok := c.active[id]
	if !ok {
		return nil, false
	}
	return e.game, true
}

// Position returns the live chessengine.Position for an active game, for
// callers (the AI move adapter) that need to evaluate the current position
// without replaying the FEN string themselves.
func (c *Controller) Position(id string) (chessengine.Position, bool) {
	e, ok := c.active[id]
	if !ok {
		return chessengine.Position{}, false
	}
	return e.pos, true
}

// StartGame creates a new live Game between two players (blackID empty for
// an AI opponent) and persists it (spec §4.6 "a new Game is created").
func (c *Controller) StartGame(ctx context.Context, whiteID, whiteUsername, blackID, blackUsername string, isAIGame bool) (*model.Game, error) {
	pos := c.engine.NewInitialPosition()
	g := &model.Game{
		ID:            uuid.NewString(),
		WhitePlayerID: whiteID,
		BlackPlayerID: blackID,
		WhiteUsername: whiteUsername,
		BlackUsername: blackUsername,
		IsAIGame:      isAIGame,
		FEN:           pos.FEN(),
		Status:        model.GameActive,
		Result:        model.ResultNone,
		StartTime:     time.Now(),
	}
	if err := c.games.CreateGame(ctx, g); err != nil {
		return nil, fmt.Errorf("persisting new game: %w", err)
	}
	c.active[g.ID] = &entry{game: g, pos: pos}
	return g, nil
}

// MakeMove validates and applies a UCI move on behalf of playerID, persists
// it, and — if the move ends the game — runs the termination sequence.
// Returns the updated Game and, non-nil only when the game just ended, the
// Termination to broadcast and apply.
func (c *Controller) MakeMove(ctx context.Context, gameID, playerID, uciMove string) (*model.Game, *Termination, error) {
	e, ok := c.active[gameID]
	if !ok {
		return nil, nil, ErrUnknownGame
	}
	g := e.game
	if g.Status != model.GameActive {
		return nil, nil, ErrGameOver
	}
	color, participant := g.ColorOf(playerID)
	if !participant {
		return nil, nil, ErrNotInGame
	}
	if color != model.Color(e.pos.ToMove().String()) {
		return nil, nil, ErrNotYourTurn
	}

	next, err := c.engine.ApplyUCI(e.pos, uciMove)
	if err != nil {
		var illegal *chessengine.IllegalMoveError
		if errors.As(err, &illegal) {
			return nil, nil, fmt.Errorf("illegal move %q: %w", uciMove, illegal)
		}
		return nil, nil, err
	}

	if err := c.games.AppendMove(ctx, gameID, uciMove); err != nil {
		return nil, nil, fmt.Errorf("persisting move: %w", err)
	}

	e.pos = next
	g.Moves = append(g.Moves, uciMove)
	g.FEN = next.FEN()
	g.DrawOffer = model.DrawOfferState{} // any move implicitly declines a pending offer

	status := c.engine.Status(next)
	if status.Kind == chessengine.Ongoing {
		return g, nil, nil
	}

	term, err := c.finish(ctx, g, resultFor(status), status.Kind.String())
	return g, term, err
}

// Resign ends the game with the resigning player's side losing.
func (c *Controller) Resign(ctx context.Context, gameID, playerID string) (*Termination, error) {
	e, ok := c.active[gameID]
	if !ok {
		return nil, ErrUnknownGame
	}
	g := e.game
	if g.Status != model.GameActive {
		return nil, ErrGameOver
	}
	color, participant := g.ColorOf(playerID)
	if !participant {
		return nil, ErrNotInGame
	}
	result := model.ResultBlackWin
	if color == model.Black {
		result = model.ResultWhiteWin
	}
	return c.finish(ctx, g, result, "resignation")
}

// OfferDraw records an outstanding draw offer from playerID's side.
// Offering again while your own offer is still outstanding is a no-op
// (spec §8 idempotence: "OFFER_DRAW followed immediately by another
// OFFER_DRAW from the same color is a no-op"). Offering while the other
// side's offer is already outstanding is treated as an implicit accept
// (spec §4.8), ending the game as a draw; Termination is non-nil in that
// case.
func (c *Controller) OfferDraw(ctx context.Context, gameID, playerID string) (*model.Game, *Termination, error) {
	e, ok := c.active[gameID]
	if !ok {
		return nil, nil, ErrUnknownGame
	}
	g := e.game
	if g.Status != model.GameActive {
		return nil, nil, ErrGameOver
	}
	color, participant := g.ColorOf(playerID)
	if !participant {
		return nil, nil, ErrNotInGame
	}
	if g.DrawOffer.Outstanding && g.DrawOffer.OfferedBy == color {
		return g, nil, nil
	}
	if g.DrawOffer.Outstanding && g.DrawOffer.OfferedBy != color {
		term, err := c.finish(ctx, g, model.ResultDraw, "agreement")
		return g, term, err
	}
	g.DrawOffer = model.DrawOfferState{Outstanding: true, OfferedBy: color}
	return g, nil, nil
}

// AcceptDraw accepts the other side's outstanding draw offer and ends the
// game as a draw.
func (c *Controller) AcceptDraw(ctx context.Context, gameID, playerID string) (*Termination, error) {
	e, ok := c.active[gameID]
	if !ok {
		return nil, ErrUnknownGame
	}
	g := e.game
	if g.Status != model.GameActive {
		return nil, ErrGameOver
	}
	color, participant := g.ColorOf(playerID)
	if !participant {
		return nil, ErrNotInGame
	}
	if !g.DrawOffer.Outstanding || g.DrawOffer.OfferedBy == color {
		return nil, ErrNoDrawOffer
	}
	return c.finish(ctx, g, model.ResultDraw, "agreement")
}

// DeclineDraw clears an outstanding draw offer from the other side. A
// decline with nothing outstanding is a no-op.
func (c *Controller) DeclineDraw(gameID, playerID string) (*model.Game, error) {
	e, ok := c.active[gameID]
	if !ok {
		return nil, ErrUnknownGame
	}
	g := e.game
	color, participant := g.ColorOf(playerID)
	if !participant {
		return nil, ErrNotInGame
	}
	if g.DrawOffer.Outstanding && g.DrawOffer.OfferedBy != color {
		g.DrawOffer = model.DrawOfferState{}
	}
	return g, nil
}

// Abort ends an active game because a participant disconnected. Spec §5:
// "a session disconnect while InGame is treated as resignation by that
// side; termination runs in the usual order" — so this shares resignation's
// cause and rating treatment rather than a distinct one.
func (c *Controller) Abort(ctx context.Context, gameID, disconnectedPlayerID string) (*Termination, error) {
	e, ok := c.active[gameID]
	if !ok {
		return nil, ErrUnknownGame
	}
	g := e.game
	if g.Status != model.GameActive {
		return nil, ErrGameOver
	}
	color, participant := g.ColorOf(disconnectedPlayerID)
	if !participant {
		return nil, ErrNotInGame
	}
	result := model.ResultBlackWin
	if color == model.Black {
		result = model.ResultWhiteWin
	}
	return c.finish(ctx, g, result, "resignation")
}

// finish runs the termination sequence (spec §4.8): persist the finalized
// game, then (for a rated game) compute the rating delta for both sides and
// update both users' ratings and counters, remove the game from the active
// map, and return
// everything the caller needs to broadcast GAME_OVER. If any commit step
// fails after the in-memory transition to Completed, the game is marked
// Aborted instead (spec §7) and still removed from the active map and
// returned as a Termination — the caller must still emit GAME_OVER and
// return both sessions to the lobby, it just reports the commit error too.
func (c *Controller) finish(ctx context.Context, g *model.Game, result model.GameResult, cause string) (*Termination, error) {
	g.Status = model.GameCompleted
	g.Result = result
	g.Cause = cause
	g.EndTime = time.Now()

	if err := c.games.FinalizeGame(ctx, g); err != nil {
		return c.abortOnCommitFailure(g, fmt.Errorf("finalizing game: %w", errors.Join(ErrPersistence, err)))
	}

	term := &Termination{Game: g}

	if !g.IsAIGame {
		whiteUser, err := c.users.GetUserByID(ctx, g.WhitePlayerID)
		if err != nil {
			return c.abortOnCommitFailure(g, fmt.Errorf("loading white user for rating update: %w", errors.Join(ErrPersistence, err)))
		}
		blackUser, err := c.users.GetUserByID(ctx, g.BlackPlayerID)
		if err != nil {
			return c.abortOnCommitFailure(g, fmt.Errorf("loading black user for rating update: %w", errors.Join(ErrPersistence, err)))
		}

		whiteOutcome, blackOutcome := outcomesFor(result)
		whiteDelta, blackDelta := RatingDeltas(whiteUser.Rating, blackUser.Rating, whiteOutcome)

		if err := c.users.UpdateAfterGame(ctx, whiteUser.ID, whiteDelta, dbOutcome(whiteOutcome)); err != nil {
			return c.abortOnCommitFailure(g, fmt.Errorf("updating white rating: %w", errors.Join(ErrPersistence, err)))
		}
		if err := c.users.UpdateAfterGame(ctx, blackUser.ID, blackDelta, dbOutcome(blackOutcome)); err != nil {
			return c.abortOnCommitFailure(g, fmt.Errorf("updating black rating: %w", errors.Join(ErrPersistence, err)))
		}

		term.WhiteDelta = whiteDelta
		term.BlackDelta = blackDelta
		term.WhiteNewRating = ApplyFloor(whiteUser.Rating + whiteDelta)
		term.BlackNewRating = ApplyFloor(blackUser.Rating + blackDelta)
	}

	delete(c.active, g.ID)
	return term, nil
}

// abortOnCommitFailure marks g Aborted, clearing the result a failed commit
// never made durable, removes it from the active map so it can't get stuck
// forever rejecting further moves with ErrGameOver, and returns it wrapped
// in a Termination alongside the triggering error — the caller still has
// enough to broadcast GAME_OVER and return both sessions to the lobby.
func (c *Controller) abortOnCommitFailure(g *model.Game, err error) (*Termination, error) {
	g.Status = model.GameAborted
	g.Result = model.ResultNone
	g.Cause = "aborted"
	delete(c.active, g.ID)
	return &Termination{Game: g}, err
}

// resultFor maps a terminal chessengine.Status to the corresponding
// model.GameResult.
func resultFor(s chessengine.Status) model.GameResult {
	if s.Kind == chessengine.Checkmate {
		if s.LoserColor == chessengine.White {
			return model.ResultBlackWin
		}
		return model.ResultWhiteWin
	}
	return model.ResultDraw
}

// outcomesFor returns the White, then Black, Outcome for a finished game's
// result.
func outcomesFor(result model.GameResult) (white, black Outcome) {
	switch result {
	case model.ResultWhiteWin:
		return Win, Loss
	case model.ResultBlackWin:
		return Loss, Win
	default:
		return Draw, Draw
	}
}

func dbOutcome(o Outcome) db.GameOutcome {
	switch o {
	case Win:
		return db.OutcomeWin
	case Loss:
		return db.OutcomeLoss
	default:
		return db.OutcomeDraw
	}
}
