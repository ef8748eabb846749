package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/udisondev/chessd/internal/model"
)

// PostgresGameRepository implements GameRepository for PostgreSQL.
type PostgresGameRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresGameRepository(pool *pgxpool.Pool) *PostgresGameRepository {
	return &PostgresGameRepository{pool: pool}
}

func (r *PostgresGameRepository) CreateGame(ctx context.Context, g *model.Game) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO games (id, white_player_id, black_player_id, white_username, black_username,
		                     moves, pgn, fen, status, result, cause, start_time, end_time)
		 VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, '', $7, $8, $9, $10, $11, NULL)`,
		g.ID, g.WhitePlayerID, g.BlackPlayerID, g.WhiteUsername, g.BlackUsername,
		g.Moves, g.FEN, string(g.Status), string(g.Result), g.Cause, g.StartTime,
	)
	if err != nil {
		return fmt.Errorf("creating game %q: %w", g.ID, err)
	}
	return nil
}

// AppendMove is the durable, per-move write the Game Controller performs
// before broadcasting GAME_STATE_UPDATE (spec §4.8: "persists the
// append-only move ... durable before broadcast").
func (r *PostgresGameRepository) AppendMove(ctx context.Context, gameID, uciMove string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE games SET moves = array_append(moves, $1) WHERE id = $2`,
		uciMove, gameID,
	)
	if err != nil {
		return fmt.Errorf("appending move to game %q: %w", gameID, err)
	}
	return nil
}

// FinalizeGame persists the terminal state of a game: final FEN, move list
// as PGN, result, cause, and end time (spec §4.8 termination step 3).
func (r *PostgresGameRepository) FinalizeGame(ctx context.Context, g *model.Game) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE games
		 SET status = $1, result = $2, cause = $3, fen = $4, pgn = $5, end_time = $6
		 WHERE id = $7`,
		string(g.Status), string(g.Result), g.Cause, g.FEN, ToPGN(g.Moves), g.EndTime, g.ID,
	)
	if err != nil {
		return fmt.Errorf("finalizing game %q: %w", g.ID, err)
	}
	return nil
}

func (r *PostgresGameRepository) GetGame(ctx context.Context, id string) (*model.Game, error) {
	var g model.Game
	var blackID *string
	err := r.pool.QueryRow(ctx,
		`SELECT id, white_player_id, black_player_id, white_username, black_username,
		        moves, fen, status, result, cause, start_time, end_time
		 FROM games WHERE id = $1`, id,
	).Scan(&g.ID, &g.WhitePlayerID, &blackID, &g.WhiteUsername, &g.BlackUsername,
		&g.Moves, &g.FEN, &g.Status, &g.Result, &g.Cause, &g.StartTime, &g.EndTime)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying game %q: %w", id, err)
	}
	if blackID != nil {
		g.BlackPlayerID = *blackID
	} else {
		g.IsAIGame = true
	}
	return &g, nil
}

// ToPGN renders a UCI move list as a minimal space-joined movetext. A full
// SAN-converting PGN writer is outside this core's scope (spec §1: the
// chess rule engine is an external collaborator) — this keeps the stored
// "pgn" column populated with the same information the move list already
// carries, in algebraic-move-pair form.
func ToPGN(moves []string) string {
	var sb strings.Builder
	for i, m := range moves {
		if i%2 == 0 {
			if i > 0 {
				sb.WriteByte(' ')
			}
			fmt.Fprintf(&sb, "%d.%s", i/2+1, m)
		} else {
			sb.WriteByte(' ')
			sb.WriteString(m)
		}
	}
	return sb.String()
}
