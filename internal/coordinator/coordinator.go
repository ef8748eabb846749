// Package coordinator implements the single serializing lock named in spec
// §5: every mutation to the Session Registry, Matchmaker, Game Controller,
// and Presence Service passes through here. Grounded on the teacher's
// gameserver/handler_duel.go (one handler per request, validate-then-apply-
// then-broadcast) generalized from a single duel flow into every operation
// this server accepts, and on session_manager.go's single coarse mutex
// protecting its maps — the "global mutex guarding short critical sections"
// option spec §5 explicitly allows.
//
// Two call paths are deliberately kept outside the lock, matching spec §5's
// named blocking points: Auth Service calls (bcrypt hashing) and AI-move
// requests (handed to internal/ai's worker pool and consumed off a results
// channel). Every other repository call in this implementation executes
// while the lock is held — the repository is documented safe for
// concurrent use (spec §5), and this server's move rate is low enough
// (spec §4.1) that holding the lock across a local Postgres round-trip is a
// deliberate simplification rather than a latency problem; see DESIGN.md.
package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/udisondev/chessd/internal/ai"
	"github.com/udisondev/chessd/internal/auth"
	"github.com/udisondev/chessd/internal/config"
	"github.com/udisondev/chessd/internal/game"
	"github.com/udisondev/chessd/internal/matchmaker"
	"github.com/udisondev/chessd/internal/model"
	"github.com/udisondev/chessd/internal/presence"
	"github.com/udisondev/chessd/internal/session"
	"github.com/udisondev/chessd/internal/wire"
)

// Coordinator wires together every stateful component and is the sole
// mutator of Registry/Matchmaker/Controller/Presence (spec §3 Ownership,
// §5 Concurrency).
type Coordinator struct {
	mu sync.Mutex

	cfg       config.Config
	registry  *session.Registry
	matcher   *matchmaker.Matchmaker
	controller *game.Controller
	presence  *presence.Service
	auth      *auth.Service

	aiPool    *ai.Pool
	aiResults chan ai.Result
}

// New wires a Coordinator from its components. aiWorkers sizes the AI move
// worker pool (spec §5: "AI-move requests ... off-loaded to a worker
// pool").
func New(cfg config.Config, registry *session.Registry, matcher *matchmaker.Matchmaker, controller *game.Controller, pres *presence.Service, authSvc *auth.Service, aiProvider ai.MoveProvider, aiWorkers int) *Coordinator {
	results := make(chan ai.Result, 64)
	c := &Coordinator{
		cfg:        cfg,
		registry:   registry,
		matcher:    matcher,
		controller: controller,
		presence:   pres,
		auth:       authSvc,
		aiResults:  results,
	}
	c.aiPool = ai.NewPool(context.Background(), aiProvider, aiWorkers, results)
	return c
}

// RunAIResultLoop drains AI move results and applies them to their games,
// until ctx is cancelled. Run as its own goroutine from cmd/chessd.
func (c *Coordinator) RunAIResultLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case res, ok := <-c.aiResults:
			if !ok {
				return
			}
			c.applyAIResult(ctx, res)
		}
	}
}

// applyAIResult applies a completed AI move request. The AI opponent always
// plays Black in this implementation (FindAIMatch seats the human as
// White); see maybeRequestAIMove.
func (c *Coordinator) applyAIResult(ctx context.Context, res ai.Result) {
	if res.Err != nil {
		slog.Error("ai move provider failed", "game_id", res.GameID, "err", res.Err)
		return
	}

	c.mu.Lock()
	g, term, err := c.controller.MakeMove(ctx, res.GameID, "", res.Move)
	c.mu.Unlock()

	if err != nil {
		slog.Error("ai move rejected by controller", "game_id", res.GameID, "move", res.Move, "err", err)
		return
	}
	if len(g.Moves) > 0 {
		c.broadcastStateUpdate(g, g.Moves[len(g.Moves)-1])
	}
	if term != nil {
		c.broadcastGameOver(term)
		c.returnToLobby(term.Game)
	}
}

// Disconnect tears down a session: if InGame, resigns it; always removes
// it from matchmaking, challenges, the registry, and then presence, in that
// order (spec §4.2).
func (c *Coordinator) Disconnect(ctx context.Context, s *session.Session) {
	c.mu.Lock()
	gameID := s.GameID()
	userID, _ := s.Identity()
	var term *game.Termination
	if gameID != "" {
		var err error
		term, err = c.controller.Abort(ctx, gameID, userID)
		if err != nil {
			slog.Error("aborting game on disconnect", "game_id", gameID, "err", err)
		}
	}
	c.matcher.Leave(s.ID())
	c.matcher.RemoveChallengesInvolving(s.ID())
	c.registry.Remove(s.ID())
	c.mu.Unlock()

	if userID != "" {
		c.presence.Offline(userID)
	}
	if term != nil {
		c.broadcastGameOver(term)
		c.returnToLobby(term.Game)
	}
}

// SweepIdleSessions closes every session idle past the configured timeout
// (spec §5: "idle sessions exceeding 5 minutes with no traffic are
// disconnected"). Intended to run off a ticker in cmd/chessd.
func (c *Coordinator) SweepIdleSessions(ctx context.Context) {
	cutoff := c.cfg.IdleTimeout()
	var stale []*session.Session
	c.registry.Range(func(s *session.Session) {
		if s.IdleFor() > cutoff {
			stale = append(stale, s)
		}
	})
	for _, s := range stale {
		s.MarkClosed()
		c.Disconnect(ctx, s)
	}
}

// SweepExpiredChallenges expires due challenges and notifies challengers
// (spec §4.6, §5: "Challenges expire after 60 s").
func (c *Coordinator) SweepExpiredChallenges(now time.Time) {
	c.mu.Lock()
	expired := c.matcher.ExpireDue(now)
	c.mu.Unlock()

	for _, ch := range expired {
		if s, ok := c.registry.LookupBySession(ch.ChallengerSessionID); ok {
			_ = s.Send(wire.ChallengeDeclined, struct{}{})
		}
	}
}

// Register handles REGISTER (spec §4.4). Password hashing happens outside
// the coordinator lock (spec §5 named exception).
func (c *Coordinator) Register(ctx context.Context, s *session.Session, req wire.RegisterRequest) {
	if _, err := c.auth.Register(ctx, req.Username, req.Password); err != nil {
		reply := wire.RegisterResultPayload{Success: false, Error: registerErrorReason(err)}
		_ = s.Send(wire.RegisterResult, reply)
		return
	}
	_ = s.Send(wire.RegisterResult, wire.RegisterResultPayload{Success: true})
}

func registerErrorReason(err error) string {
	if errors.Is(err, auth.ErrUsernameTaken) {
		return "username taken"
	}
	return "registration failed"
}

// Login handles LOGIN (spec §4.4). Credential verification happens
// outside the coordinator lock; attaching identity to the session and
// publishing presence is the serialized part.
func (c *Coordinator) Login(ctx context.Context, s *session.Session, req wire.LoginRequest) {
	u, err := c.auth.Login(ctx, req.Username, req.Password)
	if err != nil {
		_ = s.Send(wire.LoginResult, wire.LoginResultPayload{Success: false})
		return
	}

	c.mu.Lock()
	s.SetIdentity(u.ID, u.Username, u.Rating)
	s.SetState(session.Authenticated)
	c.registry.BindUser(s, u.ID)
	c.mu.Unlock()

	_ = s.Send(wire.LoginResult, wire.LoginResultPayload{
		Success: true, UserID: u.ID, Username: u.Username, Rating: u.Rating,
	})
	c.presence.Online(u.ID, u.Username, u.Rating)
}

// FindMatch handles FIND_MATCH (spec §4.6 random pairing).
func (c *Coordinator) FindMatch(ctx context.Context, s *session.Session) {
	userID, username := s.Identity()

	c.mu.Lock()
	if err := c.matcher.Enqueue(matchmaker.QueueEntry{
		SessionID: s.ID(), UserID: userID, Username: username,
		Rating: s.Rating(), JoinedAt: time.Now(),
	}); err != nil {
		c.mu.Unlock()
		_ = s.Send(wire.DomainError, wire.DomainErrorPayload{Reason: queueErrorReason(err)})
		return
	}
	self, opponent, matched := c.matcher.MatchFor(s.ID())
	var whiteGame *model.Game
	var opponentSession *session.Session
	if matched {
		var ok bool
		opponentSession, ok = c.registry.LookupBySession(opponent.SessionID)
		if !ok {
			c.mu.Unlock()
			return
		}
		whiteGame = c.startMatchedGame(ctx, s, opponentSession, self, opponent)
	}
	c.mu.Unlock()

	if matched && whiteGame != nil {
		c.announceMatch(whiteGame, s, opponentSession)
	}
}

// CancelFindMatch handles CANCEL_FIND_MATCH.
func (c *Coordinator) CancelFindMatch(s *session.Session) {
	c.mu.Lock()
	c.matcher.Leave(s.ID())
	c.mu.Unlock()
}

func queueErrorReason(err error) string {
	if errors.Is(err, matchmaker.ErrAlreadyQueued) {
		return "already queued or in a game"
	}
	return "could not join queue"
}

func challengeErrorReason(err error) string {
	if errors.Is(err, matchmaker.ErrSelfChallenge) {
		return "cannot challenge yourself"
	}
	if errors.Is(err, matchmaker.ErrDuplicateChallenge) {
		return "already have an outstanding challenge"
	}
	return "challenge failed"
}

// startMatchedGame creates the Game for a random-paired match. Called with
// the coordinator lock held.
func (c *Coordinator) startMatchedGame(ctx context.Context, a, b *session.Session, aEntry, bEntry matchmaker.QueueEntry) *model.Game {
	whiteID, whiteName := aEntry.UserID, aEntry.Username
	blackID, blackName := bEntry.UserID, bEntry.Username
	g, err := c.controller.StartGame(ctx, whiteID, whiteName, blackID, blackName, false)
	if err != nil {
		slog.Error("starting matched game", "err", err)
		return nil
	}
	a.SetState(session.InGame)
	a.SetGameID(g.ID)
	b.SetState(session.InGame)
	b.SetGameID(g.ID)
	return g
}

func (c *Coordinator) announceMatch(g *model.Game, white, black *session.Session) {
	whiteUserID, whiteUsername := white.Identity()
	blackUserID, blackUsername := black.Identity()

	_ = white.Send(wire.MatchFound, wire.MatchFoundPayload{
		Opponent: wire.UserSummary{UserID: blackUserID, Username: blackUsername},
	})
	_ = black.Send(wire.MatchFound, wire.MatchFoundPayload{
		Opponent: wire.UserSummary{UserID: whiteUserID, Username: whiteUsername},
	})
	_ = white.Send(wire.GameStart, wire.GameStartPayload{
		GameID: g.ID, Color: "white", FEN: g.FEN,
		Opponent: wire.UserSummary{UserID: blackUserID, Username: blackUsername},
	})
	_ = black.Send(wire.GameStart, wire.GameStartPayload{
		GameID: g.ID, Color: "black", FEN: g.FEN,
		Opponent: wire.UserSummary{UserID: whiteUserID, Username: whiteUsername},
	})
}

// FindAIMatch handles FIND_AI_MATCH (spec §4.10).
func (c *Coordinator) FindAIMatch(ctx context.Context, s *session.Session, req wire.FindAIMatchRequest) {
	userID, username := s.Identity()

	c.mu.Lock()
	g, err := c.controller.StartGame(ctx, userID, username, "", "AI", true)
	if err != nil {
		c.mu.Unlock()
		slog.Error("starting ai game", "err", err)
		return
	}
	s.SetState(session.InGame)
	s.SetGameID(g.ID)
	c.mu.Unlock()

	_ = s.Send(wire.GameStart, wire.GameStartPayload{
		GameID: g.ID, Color: "white", FEN: g.FEN,
		Opponent: wire.UserSummary{Username: "AI (" + req.Difficulty + ")"},
	})
}

// Challenge handles CHALLENGE (spec §4.6 explicit challenge).
func (c *Coordinator) Challenge(s *session.Session, req wire.ChallengeRequest) {
	userID, username := s.Identity()

	c.mu.Lock()
	target, ok := c.registry.LookupByUser(req.TargetUserID)
	if !ok || target.State() != session.Authenticated {
		c.mu.Unlock()
		_ = s.Send(wire.DomainError, wire.DomainErrorPayload{Reason: "target not available"})
		return
	}
	err := c.matcher.Issue(matchmaker.Challenge{
		ChallengerSessionID: s.ID(),
		ChallengerUserID:    userID,
		ChallengerUsername:  username,
		TargetSessionID:     target.ID(),
		TargetUserID:        req.TargetUserID,
	}, time.Now())
	c.mu.Unlock()
	if err != nil {
		_ = s.Send(wire.DomainError, wire.DomainErrorPayload{Reason: challengeErrorReason(err)})
		return
	}

	_ = target.Send(wire.ChallengeReceived, wire.ChallengeReceivedPayload{
		Sender: wire.UserSummary{UserID: userID, Username: username},
	})
}

// AcceptChallenge handles ACCEPT_CHALLENGE.
func (c *Coordinator) AcceptChallenge(ctx context.Context, s *session.Session, req wire.AcceptChallengeRequest) {
	c.mu.Lock()
	challenger, ok := c.registry.LookupByUser(req.ChallengerUserID)
	if !ok {
		c.mu.Unlock()
		_ = s.Send(wire.DomainError, wire.DomainErrorPayload{Reason: "no such challenge"})
		return
	}
	ch, err := c.matcher.Accept(challenger.ID(), s.ID())
	if err != nil {
		c.mu.Unlock()
		_ = s.Send(wire.DomainError, wire.DomainErrorPayload{Reason: "no such challenge"})
		return
	}
	targetUserID, targetUsername := s.Identity()
	g, gerr := c.controller.StartGame(ctx, ch.ChallengerUserID, ch.ChallengerUsername, targetUserID, targetUsername, false)
	if gerr != nil {
		c.mu.Unlock()
		slog.Error("starting challenge game", "err", gerr)
		return
	}
	challenger.SetState(session.InGame)
	challenger.SetGameID(g.ID)
	s.SetState(session.InGame)
	s.SetGameID(g.ID)
	c.mu.Unlock()

	_ = challenger.Send(wire.ChallengeAccepted, struct{}{})
	c.announceMatch(g, challenger, s)
}

// DeclineChallenge handles DECLINE_CHALLENGE.
func (c *Coordinator) DeclineChallenge(s *session.Session, req wire.DeclineChallengeRequest) {
	c.mu.Lock()
	challenger, ok := c.registry.LookupByUser(req.ChallengerUserID)
	if !ok {
		c.mu.Unlock()
		_ = s.Send(wire.DomainError, wire.DomainErrorPayload{Reason: "no such challenge"})
		return
	}
	_, err := c.matcher.Decline(challenger.ID(), s.ID())
	c.mu.Unlock()
	if err != nil {
		_ = s.Send(wire.DomainError, wire.DomainErrorPayload{Reason: "no such challenge"})
		return
	}
	_ = challenger.Send(wire.ChallengeDeclined, struct{}{})
}

// MakeMove handles MAKE_MOVE (spec §4.8).
func (c *Coordinator) MakeMove(ctx context.Context, s *session.Session, req wire.MakeMoveRequest) {
	userID, _ := s.Identity()

	c.mu.Lock()
	g, term, err := c.controller.MakeMove(ctx, req.GameID, userID, req.Move)
	c.mu.Unlock()

	if err != nil {
		// A non-nil term alongside the error means the move itself applied
		// cleanly but the termination commit that followed it failed and
		// the game was aborted (game.ErrPersistence) — both sides still
		// need GAME_OVER and the lobby transition even though the mover
		// also gets told about the failure below.
		if term != nil {
			c.broadcastGameOver(term)
			c.returnToLobby(term.Game)
		}
		if errors.Is(err, game.ErrPersistence) {
			_ = s.Send(wire.InternalError, wire.InternalErrorPayload{Error: "internal error"})
		} else {
			_ = s.Send(wire.InvalidMove, wire.InvalidMovePayload{Reason: moveErrorReason(err)})
		}
		return
	}

	c.broadcastStateUpdate(g, req.Move)
	if term != nil {
		c.broadcastGameOver(term)
		c.returnToLobby(term.Game)
		return
	}
	c.maybeRequestAIMove(g)
}

func moveErrorReason(err error) string {
	if errors.Is(err, game.ErrNotYourTurn) {
		return "not your turn"
	}
	if errors.Is(err, game.ErrGameOver) {
		return "game is over"
	}
	if errors.Is(err, game.ErrNotInGame) {
		return "not a participant in this game"
	}
	if errors.Is(err, game.ErrUnknownGame) {
		return "unknown game"
	}
	return "illegal move"
}

// gameDomainErrorReason maps a game-scoped domain rejection (spec §7
// DomainError) to its client-facing reason string. Not used for MAKE_MOVE,
// which gets its own INVALID_MOVE reply via moveErrorReason.
func gameDomainErrorReason(err error) string {
	if errors.Is(err, game.ErrUnknownGame) {
		return "unknown game"
	}
	if errors.Is(err, game.ErrNotInGame) {
		return "not a participant in this game"
	}
	if errors.Is(err, game.ErrGameOver) {
		return "game is over"
	}
	if errors.Is(err, game.ErrNoDrawOffer) {
		return "no outstanding draw offer"
	}
	return "request failed"
}

// replyGameError answers a failed RESIGN/OFFER_DRAW/ACCEPT_DRAW request.
// If the controller still produced a Termination (a commit failure mid
// termination, game.ErrPersistence), both sides still get GAME_OVER and
// return to the lobby regardless of which error the requester is told
// about.
func (c *Coordinator) replyGameError(s *session.Session, gameID string, term *game.Termination, err error) {
	if term != nil {
		c.broadcastGameOver(term)
		c.returnToLobby(term.Game)
	}
	if errors.Is(err, game.ErrPersistence) {
		_ = s.Send(wire.InternalError, wire.InternalErrorPayload{Error: "internal error"})
		return
	}
	_ = s.Send(wire.DomainError, wire.DomainErrorPayload{GameID: gameID, Reason: gameDomainErrorReason(err)})
}

// maybeRequestAIMove submits an AI move request if the side now to move is
// the synthetic AI opponent (spec §4.10). The AI always plays Black in this
// implementation (FindAIMatch seats the human as White).
func (c *Coordinator) maybeRequestAIMove(g *model.Game) {
	if !g.IsAIGame || g.Status != model.GameActive {
		return
	}
	if model.SideToMove(len(g.Moves)) != model.Black {
		return
	}
	c.mu.Lock()
	pos, ok := c.controller.Position(g.ID)
	c.mu.Unlock()
	if !ok {
		return
	}
	c.aiPool.Submit(g.ID, pos, ai.Medium)
}

// Resign handles RESIGN.
func (c *Coordinator) Resign(ctx context.Context, s *session.Session, req wire.GameIDRequest) {
	userID, _ := s.Identity()
	c.mu.Lock()
	term, err := c.controller.Resign(ctx, req.GameID, userID)
	c.mu.Unlock()
	if err != nil {
		c.replyGameError(s, req.GameID, term, err)
		return
	}
	c.broadcastGameOver(term)
	c.returnToLobby(term.Game)
}

// OfferDraw handles OFFER_DRAW, including the implicit-accept path (spec
// §4.8).
func (c *Coordinator) OfferDraw(ctx context.Context, s *session.Session, req wire.GameIDRequest) {
	userID, _ := s.Identity()
	c.mu.Lock()
	alreadyOffered := false
	if cur, ok := c.controller.Get(req.GameID); ok {
		color, participant := cur.ColorOf(userID)
		alreadyOffered = participant && cur.DrawOffer.Outstanding && cur.DrawOffer.OfferedBy == color
	}
	g, term, err := c.controller.OfferDraw(ctx, req.GameID, userID)
	c.mu.Unlock()
	if err != nil {
		c.replyGameError(s, req.GameID, term, err)
		return
	}
	if term != nil {
		c.broadcastGameOver(term)
		c.returnToLobby(term.Game)
		return
	}
	if alreadyOffered {
		return // repeated offer from the same side: no duplicate notification
	}
	c.notifyOthers(g, userID, wire.DrawOfferReceived, struct{}{})
}

// AcceptDraw handles ACCEPT_DRAW.
func (c *Coordinator) AcceptDraw(ctx context.Context, s *session.Session, req wire.GameIDRequest) {
	userID, _ := s.Identity()
	c.mu.Lock()
	term, err := c.controller.AcceptDraw(ctx, req.GameID, userID)
	c.mu.Unlock()
	if err != nil {
		c.replyGameError(s, req.GameID, term, err)
		return
	}
	c.broadcastGameOver(term)
	c.returnToLobby(term.Game)
}

// DeclineDraw handles DECLINE_DRAW.
func (c *Coordinator) DeclineDraw(s *session.Session, req wire.GameIDRequest) {
	userID, _ := s.Identity()
	c.mu.Lock()
	g, err := c.controller.DeclineDraw(req.GameID, userID)
	c.mu.Unlock()
	if err != nil {
		_ = s.Send(wire.DomainError, wire.DomainErrorPayload{GameID: req.GameID, Reason: gameDomainErrorReason(err)})
		return
	}
	c.notifyOthers(g, userID, wire.DrawOfferDeclined, struct{}{})
}

func (c *Coordinator) broadcastStateUpdate(g *model.Game, lastMove string) {
	turn := model.SideToMove(len(g.Moves))
	payload := wire.GameStateUpdatePayload{
		GameID: g.ID, FEN: g.FEN, LastMove: lastMove, Turn: string(turn),
	}
	c.sendToParticipants(g, wire.GameStateUpdate, payload)
}

func (c *Coordinator) broadcastGameOver(term *game.Termination) {
	payload := wire.GameOverPayload{
		GameID: term.Game.ID, Result: string(term.Game.Result), Cause: term.Game.Cause,
	}
	c.sendToParticipants(term.Game, wire.GameOver, payload)
}

// returnToLobby transitions both (human) participants back to
// Authenticated and clears their game pointer (spec §4.8 step 6).
func (c *Coordinator) returnToLobby(g *model.Game) {
	for _, playerID := range []string{g.WhitePlayerID, g.BlackPlayerID} {
		if playerID == "" {
			continue
		}
		if s, ok := c.registry.LookupByUser(playerID); ok {
			s.SetState(session.Authenticated)
			s.SetGameID("")
		}
	}
}

func (c *Coordinator) sendToParticipants(g *model.Game, messageID uint16, payload any) {
	for _, playerID := range []string{g.WhitePlayerID, g.BlackPlayerID} {
		if playerID == "" {
			continue
		}
		if s, ok := c.registry.LookupByUser(playerID); ok {
			_ = s.Send(messageID, payload)
		}
	}
}

// notifyOthers sends messageID/payload to every participant of g except
// fromUserID.
func (c *Coordinator) notifyOthers(g *model.Game, fromUserID string, messageID uint16, payload any) {
	for _, playerID := range []string{g.WhitePlayerID, g.BlackPlayerID} {
		if playerID == "" || playerID == fromUserID {
			continue
		}
		if s, ok := c.registry.LookupByUser(playerID); ok {
			_ = s.Send(messageID, payload)
		}
	}
}
