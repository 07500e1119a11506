package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Ali-Mohammed/openRadius-monitor/monitor"
)

func main() {
	hubURL := flag.String("hub", "ws://localhost:8090/ws/dashboard", "monitoring hub websocket URL")
	interval := flag.Duration("interval", 5*time.Second, "render interval")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	client := monitor.NewClient(monitor.Config{HubURL: *hubURL})
	if err := client.Connect(ctx); err != nil {
		log.Fatalf("Failed to connect to hub: %v", err)
	}
	defer client.Close()
	log.Printf("Connected to hub at %s", *hubURL)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Dashboard shutting down.")
			return
		case <-ticker.C:
			render(client)
		}
	}
}

func render(c *monitor.Client) {
	latency := "unknown"
	if ms, ok := c.DashboardLatency(); ok {
		latency = fmt.Sprintf("%.0fms (%s)", ms, c.DashboardQuality())
	}
	fmt.Printf("\n=== Services (%s, hub latency %s) ===\n", c.State(), latency)

	services := c.Services()
	if len(services) == 0 {
		fmt.Println("  no services connected")
	}
	for _, svc := range services {
		name := svc.ServiceName
		if svc.DisplayName != "" {
			name = fmt.Sprintf("%s (%s)", svc.DisplayName, svc.ServiceName)
		}
		ping := "-"
		if svc.LastPing != nil {
			ping = fmt.Sprintf("%.0fms", *svc.LastPing)
		}
		activity := svc.CurrentActivity
		if activity == "" {
			activity = "idle"
		}
		fmt.Printf("  %-40s %-12s %-10s ping=%-8s %s\n",
			name, svc.Status, svc.ApprovalStatus, ping, activity)
	}

	logs := c.Logs()
	if n := len(logs); n > 0 {
		fmt.Println("--- recent logs ---")
		start := n - 5
		if start < 0 {
			start = 0
		}
		for _, e := range logs[start:] {
			fmt.Printf("  [%s] %-8s %s: %s\n",
				e.Timestamp.Format("15:04:05"), e.Level, e.ServiceName, e.Message)
		}
	}
}
