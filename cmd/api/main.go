package main

import (
	"context"
	"log"
	"net"

	"resumegen-backend/internal/bootstrap"
	"resumegen-backend/internal/shared/config"
)

func main() {
	cfg := config.Load()

	app, err := bootstrap.Build(context.Background(), cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}

	go app.Cleaner.Run(context.Background())

	addr := net.JoinHostPort("", cfg.Port)
	log.Printf("Starting API server on %s", addr)

	if err := app.Router.Run(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
