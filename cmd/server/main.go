package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/AkhileshRajan/zentra-pro/internal/auth"
	"github.com/AkhileshRajan/zentra-pro/internal/config"
	"github.com/AkhileshRajan/zentra-pro/internal/llm"
	"github.com/AkhileshRajan/zentra-pro/internal/logging"
	"github.com/AkhileshRajan/zentra-pro/internal/server"
	"github.com/AkhileshRajan/zentra-pro/internal/storage/backend"
)

func main() {
	loadLocalEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.RequireLLM(); err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, closeLogs, err := logging.New(logging.Options{Level: cfg.LogLevel, Dev: cfg.LogDev, File: cfg.LogFile})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer closeLogs()

	ctx := context.Background()
	store, err := backend.Open(ctx, cfg)
	if err != nil {
		logger.Fatal("init database", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer store.Close()

	assistant, err := llm.New(llm.Config{
		APIKey:         cfg.OpenAIAPIKey,
		BaseURL:        cfg.OpenAIBaseURL,
		Model:          cfg.OpenAIModel,
		MaxTokens:      cfg.OpenAIMaxTokens,
		CharBudget:     cfg.SummaryCharBudget,
		RequestTimeout: cfg.LLMTimeout,
	})
	if err != nil {
		logger.Fatal("init llm client", zap.Error(err))
	}

	srv := server.New(cfg, server.Deps{
		Store:     store,
		Verifier:  newVerifier(ctx, cfg),
		Assistant: assistant,
		Logger:    logger,
	})

	go func() {
		logger.Info("zentra backend listening", zap.String("addr", cfg.HTTPAddress()), zap.String("store", cfg.StoreDriver))
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Error("graceful shutdown error", zap.Error(err))
	}
}

// newVerifier prefers JWKS when both a JWKS URL and a shared secret are configured.
func newVerifier(ctx context.Context, cfg config.Config) auth.Verifier {
	if cfg.AuthJWKSURL != "" {
		return auth.NewJWKSVerifier(ctx, cfg.AuthJWKSURL, cfg.AuthIssuer, cfg.AuthAudience)
	}
	return auth.NewTokenManager(cfg.AuthJWTSecret, cfg.AuthIssuer, cfg.AuthAudience, cfg.AuthTokenTTL)
}

func loadLocalEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found; relying on existing environment")
	}
}
