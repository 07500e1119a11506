package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	cfg := LoadConfig()
	log.Printf("Agent starting. Service: %s (%s)", cfg.ServiceName, cfg.Version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Received shutdown signal")
		cancel()
	}()

	err := NewRunner(cfg).Run(ctx)
	switch {
	case errors.Is(err, errRejected):
		log.Println("Agent stopped: rejected by administrator")
		os.Exit(1)
	case errors.Is(err, context.Canceled):
		log.Println("Agent shutting down.")
	case err != nil:
		log.Fatalf("Agent failed: %v", err)
	}
}
