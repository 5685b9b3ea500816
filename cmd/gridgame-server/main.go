// Package main starts the grid game server: a REST API over the
// session engine, query surface, and leaderboard cache.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gridgame/cmd/gridgame-server/cli"
	"gridgame/internal/config"
	"gridgame/internal/leaderboard"
	"gridgame/internal/logging"
	"gridgame/internal/query"
	"gridgame/internal/session"
	"gridgame/internal/store"
	httptransport "gridgame/internal/transport/http"
)

const gracefulShutdownTimeout = 5 * time.Second

func main() {
	if len(os.Args) > 1 && os.Args[1] == "db" {
		if err := cli.Run(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "CLI error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging init error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	db, err := store.NewStore(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	initCtx, initCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer initCancel()
	if err := db.InitDB(initCtx); err != nil {
		logger.Fatal("failed to initialize schema", zap.Error(err))
	}

	engine := session.New(db, func() string { return uuid.New().String() }, func() time.Time { return time.Now().UTC() })
	querySurface := query.New(db)

	lbCache := leaderboard.New(querySurface, logger, cfg.LeaderboardRefreshInterval)
	startCtx, startCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := lbCache.Start(startCtx); err != nil {
		logger.Warn("leaderboard cache refresh job failed to start, serving the startup snapshot without periodic refresh", zap.Error(err))
	}
	startCancel()
	defer lbCache.Stop()

	handler := httptransport.NewHandler(db, engine, querySurface, lbCache)
	app := httptransport.NewFiberApp(handler, httptransport.Config{
		CORSOrigins:     cfg.CORSOrigins,
		RateLimitPerSec: cfg.RateLimitPerSec,
	}, logger)

	addr := fmt.Sprintf("%s:%d", cfg.HTTPHost, cfg.HTTPPort)
	go func() {
		logger.Info("grid game server listening", zap.String("addr", addr))
		if err := app.Listen(addr); err != nil {
			logger.Error("http server listen error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer shutdownCancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}
