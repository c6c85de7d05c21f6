package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/shubham5177/expense-tracker/internal/amqp"
	"github.com/shubham5177/expense-tracker/internal/config"
	"github.com/shubham5177/expense-tracker/internal/log"
	"github.com/shubham5177/expense-tracker/internal/mail"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.Config{Level: log.DefaultConfig().Level, Component: log.ComponentWorker})
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the mail worker")
		os.Exit(1)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("failed to connect to AMQP broker", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	mailer := mail.New(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailSender, cfg.BaseURL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("mail worker started",
		log.FieldExchange, cfg.AMQPExchange, log.FieldQueue, cfg.AMQPQueue)

	err = client.ConsumeVerificationMail(ctx, func(msg *amqp.VerificationMailMessage) error {
		if err := mailer.SendVerification(ctx, msg.Email, msg.Name, msg.Token); err != nil {
			logger.Error("send verification mail failed", log.FieldError, err, log.FieldEmail, msg.Email)
			return err
		}
		logger.Info("verification mail sent", log.FieldEmail, msg.Email)
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("message consumption failed", log.FieldError, err)
		os.Exit(1)
	}

	logger.Info("mail worker stopped gracefully")
}
