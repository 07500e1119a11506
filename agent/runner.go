package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Ali-Mohammed/openRadius-monitor/protocol"
)

const (
	heartbeatInterval = 5 * time.Second

	initialBackoff = 1 * time.Second
	maxBackoff     = 30 * time.Second

	// A session that stayed up this long was healthy, so the next drop
	// starts the backoff schedule over.
	sessionHealthyAfter = 30 * time.Second
)

var errRejected = errors.New("service rejected by administrator")

// Runner keeps one registered connection to the monitoring hub: it
// heartbeats, answers pings, executes operator commands and reports
// activity.
type Runner struct {
	cfg *Config

	mu      sync.Mutex
	conn    *websocket.Conn
	status  protocol.ServiceStatus
	syncing bool

	writeMu sync.Mutex
}

func NewRunner(cfg *Config) *Runner {
	return &Runner{cfg: cfg, status: protocol.StatusOnline}
}

// Run connects and serves until the context is cancelled or the hub rejects
// this service. Connection loss is retried with capped backoff.
func (r *Runner) Run(ctx context.Context) error {
	var backoff time.Duration

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		start := time.Now()
		err := r.session(ctx)
		if errors.Is(err, errRejected) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		backoff = retryDelay(backoff, time.Since(start))
		log.Printf("Hub session ended: %v. Retrying in %s...", err, backoff)

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// retryDelay picks the wait before the next dial attempt: doubling with a
// cap while sessions die young, restarting at the initial delay once a
// session stayed up long enough to count as healthy.
func retryDelay(prev, sessionLen time.Duration) time.Duration {
	if prev < initialBackoff || sessionLen >= sessionHealthyAfter {
		return initialBackoff
	}
	next := prev * 2
	if next > maxBackoff {
		next = maxBackoff
	}
	return next
}

// session dials, registers and pumps frames until the connection drops.
func (r *Runner) session(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, r.cfg.HubURL, nil)
	if err != nil {
		return fmt.Errorf("dial hub: %w", err)
	}
	r.mu.Lock()
	r.conn = conn
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.conn = nil
		r.mu.Unlock()
		conn.Close()
	}()

	err = r.send(protocol.FrameRegister, protocol.Register{
		ServiceName: r.cfg.ServiceName,
		Version:     r.cfg.Version,
		Metadata:    r.cfg.Metadata,
	})
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}
	log.Printf("Registered with hub as %s", r.cfg.ServiceName)

	hbCtx, stopHeartbeats := context.WithCancel(ctx)
	defer stopHeartbeats()
	go r.heartbeatLoop(hbCtx)

	r.sendHeartbeat()
	return r.readPump(conn)
}

func (r *Runner) readPump(conn *websocket.Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		env, err := protocol.DecodeEnvelope(data)
		if err != nil {
			log.Printf("Bad frame from hub: %v", err)
			continue
		}

		switch env.Type {
		case protocol.FramePing:
			var ping protocol.Ping
			if err := json.Unmarshal(env.Payload, &ping); err == nil {
				r.send(protocol.FramePong, protocol.Pong{PingID: ping.PingID})
			}
		case protocol.FrameCommand:
			var cmd protocol.Command
			if err := json.Unmarshal(env.Payload, &cmd); err == nil {
				r.handleCommand(cmd)
			}
		case protocol.FrameApproved:
			var approved protocol.Approved
			if err := json.Unmarshal(env.Payload, &approved); err == nil {
				log.Printf("Approved by administrator as %q", approved.DisplayName)
			}
		case protocol.FrameRejected:
			log.Printf("Rejected by administrator, shutting down")
			return errRejected
		default:
			log.Printf("Unknown frame from hub: %q", env.Type)
		}
	}
}

func (r *Runner) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.sendHeartbeat()
		case <-ctx.Done():
			return
		}
	}
}

func (r *Runner) sendHeartbeat() {
	r.mu.Lock()
	status := r.status
	syncing := r.syncing
	r.mu.Unlock()

	pending := 0
	if syncing {
		pending = 1
	}

	err := r.send(protocol.FrameHeartbeat, protocol.Heartbeat{
		Status:       status,
		Timestamp:    time.Now(),
		HealthReport: collectHealth(1, pending),
	})
	if err != nil {
		log.Printf("Heartbeat failed: %v", err)
	}
}

// handleCommand executes an operator command from the dashboard.
func (r *Runner) handleCommand(cmd protocol.Command) {
	log.Printf("Received command %q", cmd.Command)

	switch cmd.Command {
	case "sync-now":
		r.mu.Lock()
		if r.syncing {
			r.mu.Unlock()
			r.sendLog(protocol.LevelWarning, "Sync already in progress", nil)
			return
		}
		r.syncing = true
		r.mu.Unlock()
		go r.runSync()

	case "pause":
		r.setStatus(protocol.StatusMaintenance)
		r.sendLog(protocol.LevelInfo, "Service paused by operator", nil)

	case "resume":
		r.setStatus(protocol.StatusOnline)
		r.sendLog(protocol.LevelInfo, "Service resumed by operator", nil)

	default:
		r.sendLog(protocol.LevelWarning, fmt.Sprintf("Unknown command %q", cmd.Command), nil)
	}
}

// runSync simulates a RADIUS synchronization pass, streaming progress as
// activity frames.
func (r *Runner) runSync() {
	defer func() {
		r.mu.Lock()
		r.syncing = false
		r.mu.Unlock()
	}()

	r.sendLog(protocol.LevelInfo, "Synchronization started", nil)
	steps := []string{"Loading subscriber profiles", "Diffing NAS state", "Applying changes"}
	for i, step := range steps {
		r.send(protocol.FrameActivity, protocol.Activity{
			CurrentActivity:  step,
			ActivityProgress: float64(i) / float64(len(steps)) * 100,
		})
		time.Sleep(500 * time.Millisecond)
	}
	r.send(protocol.FrameActivity, protocol.Activity{
		CurrentActivity:  "Idle",
		ActivityProgress: 100,
	})
	r.sendLog(protocol.LevelInfo, "Synchronization finished", map[string]any{"steps": len(steps)})
}

func (r *Runner) setStatus(s protocol.ServiceStatus) {
	r.mu.Lock()
	r.status = s
	r.mu.Unlock()
	r.sendHeartbeat()
}

func (r *Runner) sendLog(level protocol.LogLevel, message string, data map[string]any) {
	if err := r.send(protocol.FrameLog, protocol.Log{Level: level, Message: message, Data: data}); err != nil {
		log.Printf("Log frame failed: %v", err)
	}
}

func (r *Runner) send(msgType string, payload any) error {
	r.mu.Lock()
	conn := r.conn
	r.mu.Unlock()
	if conn == nil {
		return errors.New("not connected")
	}

	data, err := protocol.Encode(msgType, payload)
	if err != nil {
		return err
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, data)
}
