// Package auth implements the Auth Service (spec §4.4): registration and
// login against the user repository. Grounded on the teacher's
// internal/login/handler.go RequestAuthLogin flow (hash, compare, attach
// identity to the connection, promote state), generalized from the
// teacher's SHA1-then-compare scheme to bcrypt (spec §1 treats the hash
// itself as an external collaborator, so only the call site is ours).
package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/udisondev/chessd/internal/db"
	"github.com/udisondev/chessd/internal/model"
)

// Errors returned by Register/Login. Login never lets a caller distinguish
// ErrUnknownUser from ErrBadCredentials on the wire (spec §4.4) — callers
// translate both to the same generic LOGIN_RESULT failure. Rejecting LOGIN
// from an already-authenticated session is the dispatcher's job (spec
// §4.3's Connected-only precondition on LOGIN, answered with STATE_ERROR)
// rather than this service's — Login here never sees a session at all, so
// it has nothing to check that against.
var (
	ErrUsernameTaken  = errors.New("auth: username already taken")
	ErrUnknownUser    = errors.New("auth: unknown user")
	ErrBadCredentials = errors.New("auth: bad credentials")
)

// Service is the Auth Service.
type Service struct {
	users    db.UserRepository
	hashCost int
}

// New returns a Service hashing passwords at the given bcrypt cost (spec §6
// Configuration: password_hash_cost, default 12).
func New(users db.UserRepository, hashCost int) *Service {
	if hashCost <= 0 {
		hashCost = bcrypt.DefaultCost
	}
	return &Service{users: users, hashCost: hashCost}
}

// Register creates a new user with a default rating and zero counters.
// Rejects if the username already exists.
func (s *Service) Register(ctx context.Context, username, password string) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	u, err := s.users.CreateUser(ctx, username, string(hash))
	if err != nil {
		if errors.Is(err, db.ErrUsernameTaken) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("registering %q: %w", username, err)
	}
	return u, nil
}

// Login verifies credentials against the stored hash. It does not mutate
// session state itself — callers (the dispatcher's LOGIN handler) attach
// the resulting User to the session and promote it to Authenticated, since
// that belongs to the Session Registry, not this service.
func (s *Service) Login(ctx context.Context, username, password string) (*model.User, error) {
	u, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrUnknownUser
		}
		return nil, fmt.Errorf("looking up %q: %w", username, err)
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrBadCredentials
	}

	return u, nil
}
