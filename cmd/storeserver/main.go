// Command storeserver runs the reference activity store that the fieldwork engine talks to.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rpggio/fieldwork/internal/auth"
	"github.com/rpggio/fieldwork/internal/config"
	"github.com/rpggio/fieldwork/internal/events"
	"github.com/rpggio/fieldwork/internal/logging"
	"github.com/rpggio/fieldwork/internal/sqlite"
	"github.com/rpggio/fieldwork/internal/storeapi"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger, closeLog, err := logging.New(os.Stdout, cfg.Log.Level, os.Getenv("FIELDWORK_LOG_PATH"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
	}
	defer closeLog()

	if cfg.Auth.JWTSecret == "" {
		logger.Error("FIELDWORK_JWT_SECRET is required to verify ranger tokens")
		os.Exit(1)
	}

	if err := ensureDBDir(cfg.DB.Path); err != nil {
		logger.Error("failed to prepare database path", "error", err)
		os.Exit(1)
	}
	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(context.Background()); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	publisher := newPublisher(cfg.Events, logger)
	defer publisher.Close()

	router := storeapi.NewServer(storeapi.Options{
		Activities: sqlite.NewActivityRepository(db),
		Findings:   sqlite.NewFindingRepository(db),
		Publisher:  publisher,
		Resolver: storeapi.JWTResolver{Config: auth.Config{
			Secret: cfg.Auth.JWTSecret,
			Issuer: cfg.Auth.JWTIssuer,
			TTL:    cfg.Auth.TokenTTL,
		}},
		Logger: logger,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("store listening", "addr", addr, "db", cfg.DB.Path)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
		}
	}()

	waitForShutdown(logger, httpServer)
}

func newPublisher(cfg config.EventsConfig, logger *slog.Logger) events.Publisher {
	if len(cfg.Brokers) == 0 {
		logger.Info("lifecycle events disabled")
		return events.Noop{}
	}
	logger.Info("publishing lifecycle events", "brokers", cfg.Brokers, "topic", cfg.Topic)
	return events.NewKafkaPublisher(events.NewKafkaWriter(cfg.Brokers, cfg.Topic), "storeserver", logger)
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func waitForShutdown(logger *slog.Logger, server *http.Server) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
