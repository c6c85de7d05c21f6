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

	"github.com/shubham5177/expense-tracker/internal/amqp"
	"github.com/shubham5177/expense-tracker/internal/auth"
	"github.com/shubham5177/expense-tracker/internal/config"
	apphttp "github.com/shubham5177/expense-tracker/internal/http"
	"github.com/shubham5177/expense-tracker/internal/log"
	"github.com/shubham5177/expense-tracker/internal/report"
	"github.com/shubham5177/expense-tracker/internal/stats"
	"github.com/shubham5177/expense-tracker/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("failed to initialize storage", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// AMQP is optional: without a broker, signup simply skips the
	// verification mail step.
	var mailPublisher apphttp.MailPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("failed to connect to AMQP broker", log.FieldError, err)
			os.Exit(1)
		}
		defer client.Close()
		mailPublisher = client
		logger.Info("verification mail queue enabled",
			log.FieldExchange, cfg.AMQPExchange, log.FieldQueue, cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled, verification mail will be skipped")
	}

	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.JWTExpiresIn)
	aggregator := stats.New(repo)
	renderer := report.New(repo)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Users:    repo,
		Expenses: repo,
		Stats:    aggregator,
		Reports:  renderer,
		Tokens:   tokens,
		Mail:     mailPublisher,
		Logger:   logger.WithComponent(log.ComponentHTTP),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting expense tracker", "port", cfg.Port, "db", cfg.SQLiteDBPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("server stopped gracefully")
}
