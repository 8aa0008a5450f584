package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"spendsmart/internal/assistant"
	"spendsmart/internal/backend"
	"spendsmart/internal/config"
	"spendsmart/internal/expense"
	apphttp "spendsmart/internal/http"
	"spendsmart/internal/log"
	"spendsmart/internal/session"
)

func main() {
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", log.FieldError, err.Error())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	factory := backend.NewFactory(logger.Logger)
	be, err := factory.CreateBackend(ctx, backend.Config{
		Type:         backend.Type(cfg.DataBackend),
		DataDir:      cfg.DataDir,
		SQLiteDBPath: cfg.SQLiteDBPath,
	})
	if err != nil {
		logger.Error("Failed to initialize backend",
			log.FieldBackend, cfg.DataBackend,
			log.FieldError, err.Error())
		os.Exit(1)
	}
	if be.Cleanup != nil {
		defer func() {
			if err := be.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", log.FieldError, err.Error())
			}
		}()
	}

	sessions := session.NewManager(be.Identities, cfg.LoginDelay, logger)
	store := expense.NewStore(be.Expenses, cfg.MutateDelay, logger)
	sessions.Subscribe(store.HandleIdentityChange)

	if err := sessions.Restore(ctx); err != nil {
		logger.Error("Failed to restore session",
			log.FieldOperation, log.OpRestore,
			log.FieldError, err.Error())
		os.Exit(1)
	}

	ai := assistant.NewClient(cfg.GeminiAPIKey, cfg.GeminiModel, logger)
	if !ai.Enabled() {
		logger.Warn("GEMINI_API_KEY not set, AI features disabled")
	}

	srv := apphttp.NewServer(":"+cfg.Port, sessions, store, ai, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting spendsmart server",
			log.FieldOperation, log.OpStartup,
			"port", cfg.Port,
			log.FieldBackend, cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully", log.FieldOperation, log.OpShutdown)
}
