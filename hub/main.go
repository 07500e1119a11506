package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Ali-Mohammed/openRadius-monitor/hub/store"
	"github.com/Ali-Mohammed/openRadius-monitor/hub/streaming"
)

func main() {
	cfg := LoadConfig()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open approval store: %v", err)
	}
	defer st.Close()

	var publisher streaming.Publisher
	if cfg.NatsURL != "" {
		publisher, err = streaming.NewNatsPublisher(cfg.NatsURL)
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
	} else {
		publisher = streaming.NewLogPublisher()
	}
	defer publisher.Close()

	hub := NewHub(st, publisher)
	api := NewAPI(hub)

	monitor := NewStalenessMonitor(hub, cfg.StaleCheckInterval, cfg.DegradedAfter, cfg.OfflineAfter)
	monitor.Start(ctx)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: api.Routes(),
	}

	go func() {
		log.Printf("Monitoring hub listening on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Println("Received shutdown signal")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
	log.Println("Hub stopped")
}

// openStore picks the approval backend: Postgres when configured, then
// Redis, then in-process memory.
func openStore(ctx context.Context, cfg *Config) (store.Store, error) {
	switch {
	case cfg.PostgresURL != "":
		log.Printf("Using Postgres approval store")
		return store.NewPostgresStore(ctx, cfg.PostgresURL)
	case cfg.RedisAddr != "":
		log.Printf("Using Redis approval store at %s", cfg.RedisAddr)
		return store.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, 0)
	default:
		log.Printf("Using in-memory approval store")
		return store.NewMemoryStore(), nil
	}
}
