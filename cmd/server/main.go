package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Tyrowin/collabhub/internal/auth"
	"github.com/Tyrowin/collabhub/internal/config"
	"github.com/Tyrowin/collabhub/internal/domain/project"
	"github.com/Tyrowin/collabhub/internal/logging"
	"github.com/Tyrowin/collabhub/internal/realtime"
	"github.com/Tyrowin/collabhub/internal/server"
	"github.com/Tyrowin/collabhub/internal/sqlite"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		logging.New(os.Stderr, "info", "text").Error("failed to load configuration", "error", err)
		return err
	}

	logger := logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	logger.Info("starting collabhub", "port", cfg.Server.Port, "db", cfg.DB.Path)

	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return err
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		logger.Error("failed to run migrations", "error", err)
		return err
	}

	projects := sqlite.NewProjectRepository(db)
	messages := sqlite.NewMessageRepository(db)
	documents := sqlite.NewDocumentRepository(db)
	users := sqlite.NewUserRepository(db)

	hub := realtime.NewHub(realtime.Stores{
		Projects:  projects,
		Messages:  messages,
		Documents: documents,
	}, realtime.Options{
		StoreTimeout:              cfg.Hub.StoreTimeout,
		RequireDocumentMembership: cfg.Hub.RequireDocumentMembership,
	}, logger)
	go hub.Run()

	srv := server.New(cfg, server.Deps{
		Hub:       hub,
		Projects:  project.NewService(projects, hub, logger),
		Messages:  messages,
		Documents: documents,
		Users:     users,
		Verifier:  auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
	}, logger)

	httpServer := server.CreateServer(cfg.Server.Port, srv.Handler())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.StartServer(httpServer, logger)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped unexpectedly", "error", err)
			_ = hub.Shutdown(shutdownTimeout)
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	if err := server.ShutdownServer(httpServer, shutdownTimeout, logger); err != nil {
		logger.Warn("http server did not shut down cleanly", "error", err)
	}
	if err := hub.Shutdown(shutdownTimeout); err != nil {
		logger.Warn("hub did not shut down cleanly", "error", err)
	}
	return nil
}
