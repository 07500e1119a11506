package main

import (
	"log"
	"net"
	"os"
	"runtime"

	"github.com/joho/godotenv"
)

// Config holds the agent identity and hub endpoint.
type Config struct {
	ServiceName string
	Version     string
	HubURL      string
	Environment string
	Metadata    map[string]string
}

// LoadConfig initializes the agent configuration from the environment, with
// an optional .env file.
func LoadConfig() *Config {
	for _, path := range []string{".env", "../.env", "/app/.env"} {
		if err := godotenv.Load(path); err == nil {
			log.Printf("Loaded environment from %s", path)
			break
		}
	}

	hostname, err := os.Hostname()
	if err != nil {
		log.Printf("Warning: could not get hostname: %v", err)
		hostname = "unknown"
	}

	cfg := &Config{
		ServiceName: envOr("SERVICE_NAME", "radius-sync-"+hostname),
		Version:     envOr("SERVICE_VERSION", "0.1.0"),
		HubURL:      envOr("HUB_URL", "ws://localhost:8090/ws/service"),
		Environment: envOr("ENVIRONMENT", "development"),
	}

	cfg.Metadata = map[string]string{
		"machineName": hostname,
		"platform":    runtime.GOOS + "/" + runtime.GOARCH,
		"osVersion":   runtime.GOOS,
		"environment": cfg.Environment,
	}
	if ip := outboundIP(); ip != "" {
		cfg.Metadata["ipAddress"] = ip
	}
	return cfg
}

// outboundIP finds the local address used to reach the network. No packet
// is sent; UDP dial only resolves the route.
func outboundIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return ""
	}
	defer conn.Close()
	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return ""
	}
	return addr.IP.String()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
