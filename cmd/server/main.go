package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ctchen222/Battleship/internal/api/controller"
	apirepository "ctchen222/Battleship/internal/api/repository"
	"ctchen222/Battleship/internal/api/service"
	"ctchen222/Battleship/internal/config"
	"ctchen222/Battleship/internal/db"
	"ctchen222/Battleship/internal/hub"
	"ctchen222/Battleship/internal/logger"
	"ctchen222/Battleship/internal/repository"
	"ctchen222/Battleship/internal/server"
	"ctchen222/Battleship/internal/session"
	"ctchen222/Battleship/internal/telemetry"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.ParseConfig(flag.CommandLine, os.Args[1:], nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}
	if err := run(cfg); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	level, _ := config.ParseLevel(cfg.Log.Level)
	logFile := logger.Init(logger.Options{
		Level:      level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	defer logFile.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize telemetry
	shutdownOtel, err := telemetry.InitOtel(ctx, telemetry.Config{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: cfg.ServiceName,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownOtel(shutdownCtx); err != nil {
			slog.Error("Error shutting down telemetry", "error", err)
		}
	}()
	metrics, err := telemetry.NewMetrics(otel.Meter("battleship"))
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}

	var (
		stores      hub.Stores
		userService service.UserService
	)

	// Initialize SQLite DB
	if cfg.DBPath != "" {
		sqlDB, err := db.Open(ctx, cfg.DBPath)
		if err != nil {
			return fmt.Errorf("failed to initialize sqlite db: %w", err)
		}
		defer sqlDB.Close()
		stores.Matches = repository.NewMatchRepository(sqlDB)
		if cfg.JWTSecret != "" {
			userService = service.NewUserService(apirepository.NewUserRepository(sqlDB), cfg.JWTSecret, cfg.TokenTTL)
		} else {
			slog.Warn("BATTLESHIP_JWT_SECRET not set, user accounts are disabled")
		}
	}

	// Initialize Redis
	if cfg.RedisConn != "" {
		rdb, err := db.NewRedisClient(ctx, cfg.RedisConn)
		if err != nil {
			return fmt.Errorf("failed to initialize redis: %w", err)
		}
		defer rdb.Close()
		stores.Leaderboard = repository.NewLeaderboardRepository(rdb)
		stores.Presence = repository.NewPresenceRepository(rdb)
		stores.Events = repository.NewEventPublisher(rdb)
	}

	opts := hub.Options{
		ServerID: cfg.ServerID,
		Metrics:  metrics,
		Stores:   stores,
		Session: session.Config{
			InactivityTimeout: cfg.InactivityTimeout,
			KeepAliveInterval: cfg.KeepAliveInterval,
			SeatPollInterval:  cfg.SeatPollInterval,
			OutboxSize:        cfg.OutboxSize,
			RequireAuth:       cfg.RequireAuth,
		},
	}
	if userService != nil {
		opts.Verifier = userService
	}
	h := hub.NewHub(opts)

	srvOpts := server.Options{
		Games:        controller.NewGameController(service.NewGameService(h, h.Registry(), stores)),
		WriteTimeout: cfg.WriteTimeout,
	}
	if userService != nil {
		srvOpts.Users = controller.NewUserController(userService)
	}
	srv := server.NewServer(h, srvOpts)

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Addr, err)
	}
	errCh := make(chan error, 2)
	go func() {
		if err := srv.ServeTCP(ln); err != nil {
			errCh <- fmt.Errorf("tcp server: %w", err)
		}
	}()

	var httpServer *http.Server
	if cfg.HTTPAddr != "" {
		gin.SetMode(gin.ReleaseMode)
		httpServer = &http.Server{
			Addr:    cfg.HTTPAddr,
			Handler: srv.Engine(),
		}
		go func() {
			slog.Info("HTTP server started", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("http server: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("Shutting down server...")
	case runErr = <-errCh:
		slog.Error("Server failed, shutting down", "error", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server forced to shutdown", "error", err)
		}
	}
	srv.Close()
	h.Wait()

	slog.Info("Server exiting")
	return runErr
}
