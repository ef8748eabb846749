package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/udisondev/chessd/internal/ai"
	"github.com/udisondev/chessd/internal/auth"
	"github.com/udisondev/chessd/internal/chessengine"
	"github.com/udisondev/chessd/internal/chessserver"
	"github.com/udisondev/chessd/internal/config"
	"github.com/udisondev/chessd/internal/coordinator"
	"github.com/udisondev/chessd/internal/db"
	"github.com/udisondev/chessd/internal/game"
	"github.com/udisondev/chessd/internal/matchmaker"
	"github.com/udisondev/chessd/internal/presence"
	"github.com/udisondev/chessd/internal/session"
)

const ConfigPath = "config/chessd.yaml"

// aiWorkerCount sizes the AI move worker pool (spec §5).
const aiWorkerCount = 4

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	slog.Info("chessd starting")

	cfgPath := ConfigPath
	if p := os.Getenv("CHESSD_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return fmt.Errorf("parsing log_level %q: %w", cfg.LogLevel, err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})))
	slog.Info("config loaded", "listen_host", cfg.ListenHost, "listen_port", cfg.ListenPort)

	database, err := db.New(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()
	slog.Info("database connected")

	if err := db.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database migrations applied")

	users := db.NewPostgresUserRepository(database.Pool())
	games := db.NewPostgresGameRepository(database.Pool())

	registry := session.NewRegistry()
	matcher := matchmaker.New(cfg.MatchRatingWindow, cfg.ChallengeTTL())
	controller := game.New(chessengine.DefaultEngine{}, games, users)
	pres := presence.New(registry)
	authSvc := auth.New(users, cfg.PasswordHashCost)

	coord := coordinator.New(cfg, registry, matcher, controller, pres, authSvc, ai.BuiltinProvider{}, aiWorkerCount)

	go coord.RunAIResultLoop(ctx)
	go runSweeps(ctx, coord)

	srv := chessserver.New(cfg, coord, registry)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("running server: %w", err)
	}
	return nil
}

// runSweeps periodically retires idle sessions and expired challenges
// (spec §4.2 idle timeout, §4.6 challenge TTL) until ctx is cancelled.
func runSweeps(ctx context.Context, coord *coordinator.Coordinator) {
	idleTicker := time.NewTicker(30 * time.Second)
	defer idleTicker.Stop()
	challengeTicker := time.NewTicker(5 * time.Second)
	defer challengeTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-idleTicker.C:
			coord.SweepIdleSessions(ctx)
		case <-challengeTicker.C:
			coord.SweepExpiredChallenges(time.Now())
		}
	}
}
