// Command server runs the arena: a websocket-facing match orchestration
// service for autonomous fighting-game bots.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"arena/internal/app"
	"arena/internal/config"
	"arena/internal/log"
	"arena/internal/store"
	"arena/internal/transport"
)

func main() {
	configPath := flag.String("config", "", "path to a JSON config file (defaults are used if omitted)")
	jwtSecret := flag.String("jwt-secret", os.Getenv("ARENA_JWT_SECRET"), "HMAC secret for bot credential JWTs")
	jwtIssuer := flag.String("jwt-issuer", "arena", "issuer claim for bot credential JWTs")
	flag.Parse()

	logger := log.New()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config: %v", err)
		os.Exit(1)
	}

	db, err := store.Open(dbConfigFromEnv())
	if err != nil {
		logger.Error("failed to open database: %v", err)
		os.Exit(1)
	}
	if _, err := db.ExecContext(context.Background(), store.Schema); err != nil {
		logger.Error("failed to apply schema: %v", err)
		os.Exit(1)
	}

	identities := store.NewBotIdentityRepository(db)
	histories := store.NewMatchHistoryRepository(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := transport.NewRegistry(logger.With("subsystem", "registry"))
	auth := transport.NewAuthenticator(*jwtSecret, *jwtIssuer, identities)
	limiters := transport.NewPeerLimiters(cfg.RateLimits)
	dispatcher := transport.NewDispatcher(limiters, registry)

	controller := app.NewController(ctx, cfg, registry, auth, identities, histories, nil, logger.With("subsystem", "controller"))
	controller.RegisterHandlers(dispatcher)

	srv := transport.NewServer(cfg.ListenAddr, registry, dispatcher, limiters, logger.With("subsystem", "transport"))

	go controller.Matchmaker().Run(ctx)
	go cleanupStaleConnections(ctx, registry, time.Duration(cfg.ConnectionStaleMs)*time.Millisecond)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening on %s", cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error("server error: %v", err)
		}
	}

	// §5 shutdown order: matchmaking first (ctx cancellation via stop()
	// already halts its Run loop and every match's tick loop), then the
	// transport is closed last, draining in-flight sends best-effort.
	stop()
	time.Sleep(200 * time.Millisecond)
	if err := srv.Shutdown(); err != nil {
		logger.Error("error during transport shutdown: %v", err)
	}
}

func cleanupStaleConnections(ctx context.Context, registry *transport.Registry, ageLimit time.Duration) {
	ticker := time.NewTicker(ageLimit / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			registry.CleanupStale(ageLimit)
		}
	}
}

func dbConfigFromEnv() store.Config {
	cfg := store.DefaultConfig()
	if v := os.Getenv("ARENA_DB_HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("ARENA_DB_USER"); v != "" {
		cfg.User = v
	}
	if v := os.Getenv("ARENA_DB_PASSWORD"); v != "" {
		cfg.Password = v
	}
	if v := os.Getenv("ARENA_DB_NAME"); v != "" {
		cfg.Database = v
	}
	return cfg
}
