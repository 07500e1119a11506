package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Ali-Mohammed/openRadius-monitor/hub/observability"
	"github.com/Ali-Mohammed/openRadius-monitor/hub/store"
	"github.com/Ali-Mohammed/openRadius-monitor/hub/streaming"
	"github.com/Ali-Mohammed/openRadius-monitor/protocol"
)

var (
	errServiceNotConnected = errors.New("service not connected")
	errDisplayNameRequired = errors.New("display name must not be empty")
)

// sender is the writable side of a peer connection. Production peers wrap a
// websocket; tests substitute fakes.
type sender interface {
	send(msgType string, payload any) error
	sendEvent(ev protocol.Event) error
	close()
}

// serviceSession is one live service connection and its current record.
type serviceSession struct {
	peer sender

	mu  sync.Mutex
	rec protocol.ServiceRecord
}

func (s *serviceSession) record() protocol.ServiceRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec
}

// Hub owns every live connection: service sessions keyed by serviceName and
// the dashboard broadcast group. All lifecycle pushes fan out from here.
type Hub struct {
	store     store.Store
	publisher streaming.Publisher

	// Storm protection for chatty peers.
	heartbeatLimiter *rate.Limiter
	pingLimiter      *rate.Limiter

	mu         sync.RWMutex
	services   map[string]*serviceSession
	dashboards map[sender]struct{}
}

func NewHub(st store.Store, publisher streaming.Publisher) *Hub {
	return &Hub{
		store:     st,
		publisher: publisher,
		// Allow 100 heartbeats/sec, burst 200
		heartbeatLimiter: rate.NewLimiter(rate.Limit(100), 200),
		// Allow 10 pings/sec, burst 20
		pingLimiter: rate.NewLimiter(rate.Limit(10), 20),
		services:    make(map[string]*serviceSession),
		dashboards:  make(map[sender]struct{}),
	}
}

func newConnectionID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("conn-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}

// registerService admits a service connection. Approved names come back with
// their durable display name; unknown names start Pending and stay
// display-only until an administrator decides.
func (h *Hub) registerService(ctx context.Context, reg protocol.Register, peer sender) (*serviceSession, error) {
	if strings.TrimSpace(reg.ServiceName) == "" {
		return nil, errors.New("service name must not be empty")
	}

	rec := protocol.ServiceRecord{
		ServiceName:    reg.ServiceName,
		Version:        reg.Version,
		ConnectionID:   newConnectionID(),
		Status:         protocol.StatusOnline,
		ApprovalStatus: protocol.ApprovalPending,
		ConnectedAt:    time.Now(),
		LastHeartbeat:  time.Now(),
		Metadata:       reg.Metadata,
	}

	approval, err := h.store.GetApproval(ctx, reg.ServiceName)
	if err != nil {
		log.Printf("hub: approval lookup for %s failed: %v", reg.ServiceName, err)
	} else if approval != nil {
		rec.ApprovalStatus = protocol.ApprovalApproved
		rec.DisplayName = approval.DisplayName
	}

	sess := &serviceSession{peer: peer, rec: rec}

	h.mu.Lock()
	old := h.services[reg.ServiceName]
	h.services[reg.ServiceName] = sess
	h.mu.Unlock()

	if old != nil {
		// A reconnect supersedes the stale session.
		old.peer.close()
	}

	h.updateServiceGauges()
	h.broadcast(&protocol.ServiceConnected{Service: rec})
	h.publish("monitor.service.connected", rec)
	log.Printf("hub: service %s connected (%s, approval=%s)", rec.ServiceName, rec.ConnectionID, rec.ApprovalStatus)
	return sess, nil
}

// unregisterService drops a session if it is still the current one for its
// name; a session replaced by a reconnect must not remove its successor.
func (h *Hub) unregisterService(sess *serviceSession) {
	rec := sess.record()

	h.mu.Lock()
	current, ok := h.services[rec.ServiceName]
	if !ok || current != sess {
		h.mu.Unlock()
		return
	}
	delete(h.services, rec.ServiceName)
	h.mu.Unlock()

	h.updateServiceGauges()
	h.broadcast(&protocol.ServiceDisconnected{ServiceName: rec.ServiceName})
	h.publish("monitor.service.disconnected", rec)
	log.Printf("hub: service %s disconnected", rec.ServiceName)
}

func (h *Hub) handleHeartbeat(sess *serviceSession, hb protocol.Heartbeat) {
	if !h.heartbeatLimiter.Allow() {
		observability.FramesRateLimited.WithLabelValues(protocol.FrameHeartbeat).Inc()
		return
	}
	observability.HeartbeatsReceived.Inc()

	ts := hb.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	status := hb.Status
	if status == "" {
		status = protocol.StatusOnline
	}

	sess.mu.Lock()
	sess.rec.Status = status
	sess.rec.LastHeartbeat = ts
	if hb.HealthReport != nil {
		sess.rec.HealthReport = hb.HealthReport
	}
	name := sess.rec.ServiceName
	sess.mu.Unlock()

	h.broadcast(&protocol.ServiceHeartbeat{
		ServiceName:   name,
		Status:        status,
		LastHeartbeat: ts,
		HealthReport:  hb.HealthReport,
	})
}

func (h *Hub) handleActivity(sess *serviceSession, act protocol.Activity) {
	sess.mu.Lock()
	sess.rec.CurrentActivity = act.CurrentActivity
	sess.rec.ActivityProgress = act.ActivityProgress
	name := sess.rec.ServiceName
	sess.mu.Unlock()

	h.broadcast(&protocol.ServiceActivity{
		ServiceName:      name,
		CurrentActivity:  act.CurrentActivity,
		ActivityProgress: act.ActivityProgress,
	})
}

func (h *Hub) handleLog(sess *serviceSession, entry protocol.Log) {
	h.broadcast(&protocol.ServiceLog{Log: protocol.LogEvent{
		ServiceName: sess.record().ServiceName,
		Level:       entry.Level,
		Message:     entry.Message,
		Data:        entry.Data,
		Timestamp:   time.Now(),
	}})
}

func (h *Hub) handlePong(sess *serviceSession, pong protocol.Pong) {
	h.broadcast(&protocol.PingResult{
		ServiceName: sess.record().ServiceName,
		PingID:      pong.PingID,
	})
}

// joinDashboard adds a peer to the broadcast group.
func (h *Hub) joinDashboard(d sender) {
	h.mu.Lock()
	h.dashboards[d] = struct{}{}
	n := len(h.dashboards)
	h.mu.Unlock()

	observability.ConnectedDashboards.Set(float64(n))
	log.Printf("hub: dashboard joined. Total: %d", n)
}

func (h *Hub) leaveDashboard(d sender) {
	h.mu.Lock()
	if _, ok := h.dashboards[d]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.dashboards, d)
	n := len(h.dashboards)
	h.mu.Unlock()

	observability.ConnectedDashboards.Set(float64(n))
	log.Printf("hub: dashboard left. Total: %d", n)
}

// snapshot returns the current record of every connected service.
func (h *Hub) snapshot() []protocol.ServiceRecord {
	h.mu.RLock()
	sessions := make([]*serviceSession, 0, len(h.services))
	for _, s := range h.services {
		sessions = append(sessions, s)
	}
	h.mu.RUnlock()

	out := make([]protocol.ServiceRecord, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.record())
	}
	return out
}

// broadcast fans one event out to every joined dashboard.
func (h *Hub) broadcast(ev protocol.Event) {
	h.mu.RLock()
	peers := make([]sender, 0, len(h.dashboards))
	for d := range h.dashboards {
		peers = append(peers, d)
	}
	h.mu.RUnlock()

	observability.EventsBroadcast.WithLabelValues(ev.EventType()).Inc()
	for _, d := range peers {
		if err := d.sendEvent(ev); err != nil {
			log.Printf("hub: dashboard write failed: %v", err)
		}
	}
}

func (h *Hub) publish(topic string, payload any) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.publisher.Publish(ctx, topic, payload); err != nil {
		log.Printf("hub: publish %s failed: %v", topic, err)
	}
}

// approve persists the administrator's display name, flips the live session
// to Approved and notifies everyone.
func (h *Hub) approve(ctx context.Context, serviceName, displayName string) error {
	if strings.TrimSpace(displayName) == "" {
		return errDisplayNameRequired
	}

	h.mu.RLock()
	sess := h.services[serviceName]
	h.mu.RUnlock()
	if sess == nil {
		return errServiceNotConnected
	}

	err := h.store.SaveApproval(ctx, &store.Approval{
		ServiceName: serviceName,
		DisplayName: displayName,
		ApprovedAt:  time.Now(),
	})
	if err != nil {
		return fmt.Errorf("persist approval: %w", err)
	}

	sess.mu.Lock()
	sess.rec.ApprovalStatus = protocol.ApprovalApproved
	sess.rec.DisplayName = displayName
	rec := sess.rec
	sess.mu.Unlock()

	if err := sess.peer.send(protocol.FrameApproved, protocol.Approved{DisplayName: displayName}); err != nil {
		log.Printf("hub: approval notify for %s failed: %v", serviceName, err)
	}

	h.updateServiceGauges()
	observability.ApprovalDecisions.WithLabelValues("approved").Inc()
	h.broadcast(&protocol.ServiceApproved{Service: rec})
	h.publish("monitor.service.approved", rec)
	log.Printf("hub: service %s approved as %q", serviceName, displayName)
	return nil
}

// reject removes any stored approval, drops the live session and tells
// dashboards to forget the record.
func (h *Hub) reject(ctx context.Context, serviceName string) error {
	if err := h.store.DeleteApproval(ctx, serviceName); err != nil {
		return fmt.Errorf("remove approval: %w", err)
	}

	h.mu.Lock()
	sess := h.services[serviceName]
	delete(h.services, serviceName)
	h.mu.Unlock()

	if sess != nil {
		sess.peer.send(protocol.FrameRejected, nil)
		sess.peer.close()
	}

	h.updateServiceGauges()
	observability.ApprovalDecisions.WithLabelValues("rejected").Inc()
	h.broadcast(&protocol.ServiceRejected{ServiceName: serviceName})
	h.publish("monitor.service.rejected", map[string]string{"serviceName": serviceName})
	log.Printf("hub: service %s rejected", serviceName)
	return nil
}

// relayPing forwards a dashboard latency probe to the target service.
func (h *Hub) relayPing(req protocol.PingService) error {
	if !h.pingLimiter.Allow() {
		observability.FramesRateLimited.WithLabelValues(protocol.InvokePingService).Inc()
		return errors.New("ping rate limit exceeded")
	}

	h.mu.RLock()
	sess := h.services[req.ServiceName]
	h.mu.RUnlock()
	if sess == nil {
		return errServiceNotConnected
	}

	observability.PingsRelayed.Inc()
	return sess.peer.send(protocol.FramePing, protocol.Ping{PingID: req.PingID})
}

// relayCommand forwards an operator command to the target service.
func (h *Hub) relayCommand(req protocol.SendCommand) error {
	h.mu.RLock()
	sess := h.services[req.ServiceName]
	h.mu.RUnlock()
	if sess == nil {
		return errServiceNotConnected
	}
	return sess.peer.send(protocol.FrameCommand, protocol.Command{
		Command: req.Command,
		Payload: req.Payload,
	})
}

func (h *Hub) updateServiceGauges() {
	h.mu.RLock()
	counts := map[protocol.ApprovalStatus]int{}
	for _, s := range h.services {
		counts[s.record().ApprovalStatus]++
	}
	h.mu.RUnlock()

	for _, st := range []protocol.ApprovalStatus{protocol.ApprovalPending, protocol.ApprovalApproved} {
		observability.ConnectedServices.WithLabelValues(string(st)).Set(float64(counts[st]))
	}
}

func (h *Hub) serviceCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.services)
}

func (h *Hub) dashboardCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.dashboards)
}
