package main

// Email delivery worker. Drains the queue configured by SQS_QUEUE_URL (or an
// in-memory queue in development) and mails rendered resumes.

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"resumegen-backend/internal/bootstrap"
	"resumegen-backend/internal/email"
	"resumegen-backend/internal/shared/config"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}

	if !app.Mailer.Configured() {
		log.Fatal("SMTP_SERVER and SMTP_FROM are required for the delivery worker")
	}
	if cfg.SQSQueueURL == "" {
		log.Printf("SQS_QUEUE_URL not set, polling in-memory queue (development only)")
	}

	worker := &email.Worker{
		Queue:    app.Receiver,
		Runs:     app.GenRepo,
		Mailer:   app.Mailer,
		Activity: app.Activity,
	}

	log.Printf("worker started queue=%s", cfg.SQSQueueURL)
	worker.Run(ctx)
	log.Printf("worker stopped")
}
