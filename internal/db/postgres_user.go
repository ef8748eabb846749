package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/udisondev/chessd/internal/model"
)

const pgUniqueViolation = "23505"

// PostgresUserRepository implements UserRepository for PostgreSQL, mirroring
// the teacher's PostgresAccountRepository.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

func (r *PostgresUserRepository) CreateUser(ctx context.Context, username, passwordHash string) (*model.User, error) {
	var u model.User
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (username, password_hash, rating, games, wins, losses, draws, created_at)
		 VALUES ($1, $2, $3, 0, 0, 0, 0, now())
		 RETURNING id, username, password_hash, rating, games, wins, losses, draws, created_at`,
		username, passwordHash, model.DefaultRating,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Rating, &u.Games, &u.Wins, &u.Losses, &u.Draws, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("creating user %q: %w", username, err)
	}
	return &u, nil
}

func (r *PostgresUserRepository) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	err := r.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, rating, games, wins, losses, draws, created_at
		 FROM users WHERE username = $1`, username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Rating, &u.Games, &u.Wins, &u.Losses, &u.Draws, &u.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying user %q: %w", username, err)
	}
	return &u, nil
}

func (r *PostgresUserRepository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := r.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, rating, games, wins, losses, draws, created_at
		 FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Rating, &u.Games, &u.Wins, &u.Losses, &u.Draws, &u.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying user %q: %w", id, err)
	}
	return &u, nil
}

func (r *PostgresUserRepository) UpdateAfterGame(ctx context.Context, userID string, ratingDelta int, outcome GameOutcome) error {
	var column string
	switch outcome {
	case OutcomeWin:
		column = "wins"
	case OutcomeLoss:
		column = "losses"
	case OutcomeDraw:
		column = "draws"
	default:
		return fmt.Errorf("unknown game outcome %d", outcome)
	}

	tag, err := r.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE users
		 SET games = games + 1, %s = %s + 1,
		     rating = GREATEST($1, rating + $2)
		 WHERE id = $3`, column, column),
		model.RatingFloor, ratingDelta, userID,
	)
	if err != nil {
		return fmt.Errorf("updating user %q after game: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("updating user %q after game: %w", userID, ErrNotFound)
	}
	return nil
}
