package main

import (
	"context"
	"log"
	"time"

	"github.com/Ali-Mohammed/openRadius-monitor/hub/observability"
	"github.com/Ali-Mohammed/openRadius-monitor/protocol"
)

// StalenessMonitor periodically checks for silent services. A service past
// the degraded threshold is downgraded, past the offline threshold it is
// marked Offline; both changes are broadcast as heartbeat patches so
// dashboards see the transition without the service saying anything.
type StalenessMonitor struct {
	hub      *Hub
	interval time.Duration
	degraded time.Duration
	offline  time.Duration
	now      func() time.Time
}

func NewStalenessMonitor(h *Hub, interval, degraded, offline time.Duration) *StalenessMonitor {
	return &StalenessMonitor{
		hub:      h,
		interval: interval,
		degraded: degraded,
		offline:  offline,
		now:      time.Now,
	}
}

func (m *StalenessMonitor) Start(ctx context.Context) {
	go m.loop(ctx)
}

func (m *StalenessMonitor) loop(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	log.Printf("Starting staleness monitor (interval: %v, degraded: %v, offline: %v)",
		m.interval, m.degraded, m.offline)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.check()
		}
	}
}

func (m *StalenessMonitor) check() {
	now := m.now()

	m.hub.mu.RLock()
	sessions := make([]*serviceSession, 0, len(m.hub.services))
	for _, s := range m.hub.services {
		sessions = append(sessions, s)
	}
	m.hub.mu.RUnlock()

	for _, sess := range sessions {
		sess.mu.Lock()
		age := now.Sub(sess.rec.LastHeartbeat)
		var next protocol.ServiceStatus
		switch {
		case age > m.offline && sess.rec.Status != protocol.StatusOffline:
			next = protocol.StatusOffline
		case age > m.degraded && sess.rec.Status == protocol.StatusOnline:
			next = protocol.StatusDegraded
		}
		if next == "" {
			sess.mu.Unlock()
			continue
		}
		sess.rec.Status = next
		name := sess.rec.ServiceName
		last := sess.rec.LastHeartbeat
		health := sess.rec.HealthReport
		sess.mu.Unlock()

		log.Printf("hub: service %s heartbeat stale (%v), marking %s", name, age, next)
		observability.StaleTransitions.WithLabelValues(string(next)).Inc()
		m.hub.broadcast(&protocol.ServiceHeartbeat{
			ServiceName:   name,
			Status:        next,
			LastHeartbeat: last,
			HealthReport:  health,
		})
	}
}
