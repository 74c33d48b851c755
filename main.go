package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/room4-2/serviceswarm/config"
	"github.com/room4-2/serviceswarm/dialogue"
	"github.com/room4-2/serviceswarm/logger"
	"github.com/room4-2/serviceswarm/metrics"
	"github.com/room4-2/serviceswarm/nlu"
	"github.com/room4-2/serviceswarm/providers"
	"github.com/room4-2/serviceswarm/server"
	"github.com/room4-2/serviceswarm/session"
	"github.com/room4-2/serviceswarm/turn"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(&logger.LogConfig{Level: cfg.LogLevel, Filename: cfg.LogFile}, cfg.LogMode); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Session store and manager
	store := session.NewStore(cfg)
	sessionManager := session.NewManager(store, cfg.SweepInterval)
	go sessionManager.StartCleanupRoutine(ctx)

	m := metrics.New(func() float64 {
		return float64(sessionManager.GetActiveSessionCount(context.Background()))
	})

	p, err := providers.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to create NLU provider", zap.String("provider", cfg.NLUProvider), zap.Error(err))
		os.Exit(1)
	}
	extractor := providers.NewExtractor(p, cfg, nlu.WithObserver(m))

	orchOpts := []turn.Option{turn.WithRecorder(m)}
	srvOpts := []server.Option{server.WithMetrics(m.Handler())}
	if cfg.MonitorEnabled {
		hub := server.NewHub(cfg.AllowedOrigins)
		orchOpts = append(orchOpts, turn.WithObserver(hub))
		srvOpts = append(srvOpts, server.WithMonitor(hub))
	}
	orchestrator := turn.New(sessionManager, extractor, dialogue.NewMachine(cfg.MaxReprompts), orchOpts...)

	srv := server.NewServer(cfg, orchestrator, sessionManager, srvOpts...)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Closed once in-flight requests have drained and sessions are released
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-sigChan
		logger.Info("Received shutdown signal")
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", zap.Error(err))
		}
		sessionManager.Shutdown()
	}()

	logger.Info("ServiceSwarm starting",
		zap.String("nlu_provider", cfg.NLUProvider),
		zap.String("session_backend", cfg.SessionBackend),
		zap.String("timezone", cfg.Timezone.String()),
		zap.Int("max_reprompts", cfg.MaxReprompts),
	)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", zap.Error(err))
		os.Exit(1)
	}
	<-done

	logger.Info("Server stopped")
}
