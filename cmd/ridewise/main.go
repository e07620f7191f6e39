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

	"github.com/antoniostano/ridewise/internal/assistant"
	"github.com/antoniostano/ridewise/internal/config"
	"github.com/antoniostano/ridewise/internal/conversation"
	"github.com/antoniostano/ridewise/internal/httpapi"
	"github.com/antoniostano/ridewise/internal/memory"
	"github.com/antoniostano/ridewise/internal/observability"
	"github.com/antoniostano/ridewise/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	store, err := memory.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("memory store init failed: %v", err)
	}
	defer store.Close()

	var adapter assistant.Adapter
	gemini, err := assistant.NewGeminiAdapter(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiFallbackModel)
	switch {
	case err == nil:
		adapter = assistant.NewFailoverAdapter(gemini)
		log.Printf("assistant: gemini (%s, fallback %s)", cfg.GeminiModel, cfg.GeminiFallbackModel)
	case errors.Is(err, assistant.ErrUnavailable):
		log.Printf("assistant: GEMINI_API_KEY not set, chat endpoints will report unavailable")
	default:
		log.Fatalf("assistant init failed: %v", err)
	}

	sessions := session.NewManager(cfg.SessionInactivityTimeout)
	sessions.SetExpireHook(func(_ *session.Session) {
		metrics.SessionEvents.WithLabelValues("expired").Inc()
		metrics.ActiveSessions.Set(float64(sessions.ActiveCount()))
	})

	runner := conversation.NewRunner(cfg, sessions, store, adapter, metrics)
	log.Printf("voice capability: %s", cfg.VoiceCapability)

	api := httpapi.New(cfg, sessions, runner, store, adapter, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	sessions.StartJanitor(runCtx, 5*time.Second)

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
