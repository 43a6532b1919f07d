package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"property_portal_backend/internal/email"
	"property_portal_backend/internal/notification/mailer"
	"property_portal_backend/internal/scheduler"
	"property_portal_backend/platform/config"
	"property_portal_backend/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting worker", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.GetRedisURL() == "" {
		log.Error("REDIS_URL is required by the worker")
		os.Exit(1)
	}

	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}
	if !sender.IsConfigured() {
		log.Warn("email provider not configured; queued batches will be dropped")
	}

	worker, err := scheduler.NewWorker(cfg, mailer.NewBatcher(sender, cfg.GetEmailSendInterval(), log), log)
	if err != nil {
		log.Error("failed to initialize worker", "error", err)
		panic("failed to initialize worker: " + err.Error())
	}

	if err := worker.Run(ctx); err != nil {
		log.Error("worker stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("worker stopped")
}
