// Command fieldwork runs the ranger-side engine and exposes it to the field UI as MCP tools.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/fieldwork/internal/cache"
	"github.com/rpggio/fieldwork/internal/config"
	"github.com/rpggio/fieldwork/internal/engine"
	"github.com/rpggio/fieldwork/internal/logging"
	"github.com/rpggio/fieldwork/internal/mcp"
	"github.com/rpggio/fieldwork/internal/observability"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// Use stderr for logs in stdio mode to keep stdout clean for JSON-RPC.
	logWriter := io.Writer(os.Stdout)
	if cfg.Transport.Mode == "stdio" {
		logWriter = os.Stderr
	}
	logger, closeLog, err := logging.New(logWriter, cfg.Log.Level, os.Getenv("FIELDWORK_LOG_PATH"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
	}
	defer closeLog()

	backend, closeBackend, err := newCacheBackend(cfg.Cache)
	if err != nil {
		logger.Error("failed to connect cache backend", "backend", cfg.Cache.Backend, "error", err)
		os.Exit(1)
	}
	defer closeBackend()

	eng := engine.New(engine.Options{
		StoreURL:     cfg.Store.BaseURL,
		StoreTimeout: cfg.Store.Timeout,
		RetryCount:   cfg.Store.RetryCount,
		CacheBackend: backend,
		CacheTTL:     cfg.Cache.TTL,
		Logger:       logger,
	})
	eng.OnSessionExpired(func() {
		logger.Warn("store rejected credentials; field sessions cleared until the next sign_in")
	})

	if cfg.Auth.Token != "" {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Store.Timeout)
		rangerID, _, resumed, err := eng.SignIn(ctx, cfg.Auth.Token)
		cancel()
		if err != nil {
			logger.Warn("startup sign-in failed; waiting for sign_in", "error", err)
		} else {
			if cfg.Ranger.ID != "" && cfg.Ranger.ID != rangerID {
				logger.Warn("token subject differs from configured ranger", "configured", cfg.Ranger.ID, "token", rangerID)
			}
			logger.Info("signed in from configuration", "ranger_id", rangerID, "resumed", resumed)
		}
	}

	mcpServer := mcp.NewServer(mcp.Config{
		Services: mcp.Services{
			Activities: eng.Activities,
			Sessions:   eng.Sessions,
			Findings:   eng.Findings,
			Identity:   eng,
		},
		Version: version,
		Logger:  logger,
	})

	if cfg.Transport.Mode == "stdio" {
		runStdioMode(logger, mcpServer)
	} else {
		runHTTPMode(logger, mcpServer, cfg.Transport.Host, cfg.Transport.Port)
	}
}

func newCacheBackend(cfg config.CacheConfig) (cache.Backend, func() error, error) {
	if cfg.Backend != "redis" {
		return cache.NewMemoryBackend(), func() error { return nil }, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, err
	}
	return cache.NewRedisBackend(client, cfg.Redis.Prefix), client.Close, nil
}

func runStdioMode(logger *slog.Logger, mcpServer *sdkmcp.Server) {
	logger.Info("starting stdio transport")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Run blocks until stdin closes or the context is canceled.
	if err := mcpServer.Run(ctx, &sdkmcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		logger.Error("stdio server error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutting down")
}

func runHTTPMode(logger *slog.Logger, mcpServer *sdkmcp.Server, host string, port int) {
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return mcpServer },
		&sdkmcp.StreamableHTTPOptions{SessionTimeout: 30 * time.Minute},
	)

	router := chi.NewRouter()
	router.Handle("/mcp", mcpHandler)
	router.Handle("/mcp/*", mcpHandler)
	router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	router.Handle("/metrics", observability.Handler())

	addr := fmt.Sprintf("%s:%d", host, port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
		}
	}()

	waitForShutdown(logger, httpServer)
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
