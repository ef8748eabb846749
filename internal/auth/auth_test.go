package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/udisondev/chessd/internal/db"
)

func TestRegisterThenLogin(t *testing.T) {
	repo := db.NewMemoryUserRepository()
	svc := New(repo, 4) // low cost for fast tests

	ctx := context.Background()
	u, err := svc.Register(ctx, "alice", "hunter2")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.Rating != 1200 {
		t.Fatalf("expected default rating 1200, got %d", u.Rating)
	}

	got, err := svc.Login(ctx, "alice", "hunter2")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("login returned different user: %+v", got)
	}
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	repo := db.NewMemoryUserRepository()
	svc := New(repo, 4)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "pw1"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, err := svc.Register(ctx, "alice", "pw2")
	if !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestLoginUnknownUser(t *testing.T) {
	svc := New(db.NewMemoryUserRepository(), 4)
	_, err := svc.Login(context.Background(), "ghost", "pw")
	if !errors.Is(err, ErrUnknownUser) {
		t.Fatalf("expected ErrUnknownUser, got %v", err)
	}
}

func TestLoginBadPassword(t *testing.T) {
	repo := db.NewMemoryUserRepository()
	svc := New(repo, 4)
	ctx := context.Background()
	if _, err := svc.Register(ctx, "bob", "correct"); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err := svc.Login(ctx, "bob", "wrong")
	if !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("expected ErrBadCredentials, got %v", err)
	}
}
