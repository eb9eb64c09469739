package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"feelance/internal/ai"
	"feelance/internal/amqp"
	"feelance/internal/auth"
	"feelance/internal/config"
	apphttp "feelance/internal/http"
	"feelance/internal/log"
	"feelance/internal/services"
	"feelance/internal/storage"
)

func main() {
	// .env is for local development, ignore when absent
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository",
			log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// publisher is optional: without AMQP the narrative cache is warmed
	// lazily on request instead
	var publisher services.RefreshPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		publisher = amqpClient
		logger.Info("AMQP publisher initialized", "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled, summary refresh messages will not be published")
	}

	var generator services.Generator
	if cfg.GenerationConfigured() {
		generator = ai.New(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
		logger.Info("Generation client initialized", "model", cfg.OpenAIModel)
	} else {
		logger.Warn("OPENAI_API_KEY not set, chat and generation endpoints will return 503")
	}

	sessions := auth.NewSessions(cfg.SessionSecret, cfg.SessionMaxAge)
	transactions := services.NewTransactionService(repo, publisher, logger)
	diary := services.NewDiaryService(repo, generator, logger)
	reports := services.NewReportService(repo, generator, logger)
	retro := services.NewRetrospectiveService(repo, generator, cfg.SummaryCacheTTL, logger)

	srv := apphttp.NewServer(":"+cfg.Port, sessions, repo, transactions, diary, reports, retro, logger)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 5 * time.Minute // streaming responses outlive normal requests
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		cancel()
	}()

	logger.Info("Starting feelance server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
