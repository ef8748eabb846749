package model

import "time"

// GameStatus is the lifecycle state of a Game.
type GameStatus string

const (
	GameActive    GameStatus = "active"
	GameCompleted GameStatus = "completed"
	GameAborted   GameStatus = "aborted"
)

// GameResult is the terminal outcome of a Game. None while Active.
type GameResult string

const (
	ResultNone      GameResult = ""
	ResultWhiteWin  GameResult = "white_win"
	ResultBlackWin  GameResult = "black_win"
	ResultDraw      GameResult = "draw"
)

// Color identifies a side in a Game.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// Opposite returns the other color.
func (c Color) Opposite() Color {
	if c == White {
		return Black
	}
	return White
}

// DrawOfferState records which side (if any) currently has an outstanding
// draw offer on a Game. The zero value means no offer is outstanding.
type DrawOfferState struct {
	Outstanding bool
	OfferedBy   Color
}

// Game is the authoritative record of one chess game, live in memory while
// Active and persisted for history regardless of status.
type Game struct {
	ID            string
	WhitePlayerID string
	BlackPlayerID string // empty for an AI opponent
	WhiteUsername string
	BlackUsername string
	IsAIGame      bool

	FEN       string
	Moves     []string // UCI moves, in order played
	Status    GameStatus
	Result    GameResult
	Cause     string
	DrawOffer DrawOfferState

	StartTime time.Time
	EndTime   time.Time
}

// SideToMove returns which color is on move given the number of moves played.
func SideToMove(moveCount int) Color {
	if moveCount%2 == 0 {
		return White
	}
	return Black
}

// PlayerID returns the player id for the given color. Empty for the AI
// side of an AI game.
func (g *Game) PlayerID(c Color) string {
	if c == White {
		return g.WhitePlayerID
	}
	return g.BlackPlayerID
}

// ColorOf returns the color the given player id is playing, and whether
// that player participates in this game at all. The synthetic AI opponent
// (BlackPlayerID == "" when IsAIGame) is addressed by the empty id.
func (g *Game) ColorOf(playerID string) (Color, bool) {
	switch playerID {
	case g.WhitePlayerID:
		return White, true
	case g.BlackPlayerID:
		return Black, g.BlackPlayerID != "" || g.IsAIGame
	default:
		return "", false
	}
}
