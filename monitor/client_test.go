package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Ali-Mohammed/openRadius-monitor/protocol"
)

// fakeHub is a minimal in-process monitoring hub: it records every
// invocation, answers snapshot requests and echoes pings.
type fakeHub struct {
	t        *testing.T
	srv      *httptest.Server
	upgrader websocket.Upgrader

	// When set before dialing, snapshot requests are recorded but not
	// answered; the test replies itself with push.
	manualSnapshots bool

	mu       sync.Mutex
	frames   []protocol.Envelope
	conns    []*websocket.Conn
	snapshot []protocol.ServiceRecord
}

func newFakeHub(t *testing.T, snapshot []protocol.ServiceRecord) *fakeHub {
	h := &fakeHub{t: t, snapshot: snapshot}
	h.srv = httptest.NewServer(http.HandlerFunc(h.handle))
	t.Cleanup(h.srv.Close)
	return h
}

func (h *fakeHub) url() string {
	return "ws" + strings.TrimPrefix(h.srv.URL, "http")
}

func (h *fakeHub) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.mu.Lock()
	h.conns = append(h.conns, conn)
	h.mu.Unlock()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		env, err := protocol.DecodeEnvelope(data)
		if err != nil {
			h.t.Errorf("fake hub: bad frame: %v", err)
			continue
		}
		h.mu.Lock()
		h.frames = append(h.frames, env)
		snapshot := h.snapshot
		h.mu.Unlock()

		switch env.Type {
		case protocol.InvokeGetConnectedServices:
			if h.manualSnapshots {
				continue
			}
			h.writeEvent(conn, &protocol.InitialState{Services: snapshot})
		case protocol.InvokePingService:
			var ping protocol.PingService
			json.Unmarshal(env.Payload, &ping)
			h.writeEvent(conn, &protocol.PingResult{
				ServiceName: ping.ServiceName,
				PingID:      ping.PingID,
			})
		}
	}
}

func (h *fakeHub) writeEvent(conn *websocket.Conn, ev protocol.Event) {
	data, err := protocol.EncodeEvent(ev)
	if err != nil {
		h.t.Errorf("fake hub: encode: %v", err)
		return
	}
	conn.WriteMessage(websocket.TextMessage, data)
}

// push broadcasts an event on every accepted connection.
func (h *fakeHub) push(ev protocol.Event) {
	h.mu.Lock()
	conns := append([]*websocket.Conn(nil), h.conns...)
	h.mu.Unlock()
	for _, c := range conns {
		h.writeEvent(c, ev)
	}
}

func (h *fakeHub) invocationCount(msgType string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, f := range h.frames {
		if f.Type == msgType {
			n++
		}
	}
	return n
}

func (h *fakeHub) sawInvocation(msgType string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, f := range h.frames {
		if f.Type == msgType {
			return true
		}
	}
	return false
}

func waitFor(t *testing.T, d time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func dialTestClient(t *testing.T, hub *fakeHub) *Client {
	t.Helper()
	c := NewClient(Config{HubURL: hub.url(), PingTimeout: 2 * time.Second})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestClientConnectJoinsAndSeedsRegistry(t *testing.T) {
	hub := newFakeHub(t, []protocol.ServiceRecord{onlineService("svc-a")})
	c := dialTestClient(t, hub)

	if c.State() != StateConnected {
		t.Errorf("state = %s, want Connected", c.State())
	}
	waitFor(t, 2*time.Second, "registry seed", func() bool {
		_, ok := c.Service("svc-a")
		return ok
	})
	if !hub.sawInvocation(protocol.InvokeJoinDashboard) {
		t.Error("client never joined the dashboard group")
	}
	waitFor(t, 2*time.Second, "dashboard latency", func() bool {
		_, ok := c.DashboardLatency()
		return ok
	})
	if q := c.DashboardQuality(); q == QualityUnknown {
		t.Error("quality should be banded once latency is measured")
	}
}

func TestClientPingRoundTrip(t *testing.T) {
	hub := newFakeHub(t, []protocol.ServiceRecord{onlineService("svc-a")})
	c := dialTestClient(t, hub)
	waitFor(t, 2*time.Second, "registry seed", func() bool {
		_, ok := c.Service("svc-a")
		return ok
	})

	pingID, err := c.PingService("svc-a")
	if err != nil {
		t.Fatalf("ping: %v", err)
	}

	waitFor(t, 2*time.Second, "ping result", func() bool {
		rec, ok := c.Service("svc-a")
		return ok && rec.LastPing != nil
	})
	if c.pings.isPending(pingID) {
		t.Error("pending entry survived the result")
	}
	if c.IsPinging("svc-a") {
		t.Error("pinging indicator still set after the result")
	}

	found := false
	for _, e := range c.Logs() {
		if e.ServiceName == "svc-a" && strings.HasPrefix(e.Message, "Ping:") {
			found = true
		}
	}
	if !found {
		t.Error("no ping latency log entry")
	}
}

func TestClientPushEventsMutateRegistry(t *testing.T) {
	hub := newFakeHub(t, nil)
	c := dialTestClient(t, hub)
	waitFor(t, 2*time.Second, "join", func() bool {
		return hub.sawInvocation(protocol.InvokeJoinDashboard)
	})

	hub.push(&protocol.ServiceConnected{Service: onlineService("svc-a")})
	waitFor(t, 2*time.Second, "connected push", func() bool {
		_, ok := c.Service("svc-a")
		return ok
	})

	hub.push(&protocol.ServiceHeartbeat{
		ServiceName: "svc-a",
		Status:      protocol.StatusDegraded,
	})
	waitFor(t, 2*time.Second, "heartbeat push", func() bool {
		rec, ok := c.Service("svc-a")
		return ok && rec.Status == protocol.StatusDegraded
	})

	hub.push(&protocol.ServiceDisconnected{ServiceName: "svc-a"})
	waitFor(t, 2*time.Second, "disconnect push", func() bool {
		_, ok := c.Service("svc-a")
		return !ok
	})

	warned := false
	for _, e := range c.Logs() {
		if e.Level == protocol.LevelWarning && e.ServiceName == "svc-a" {
			warned = true
		}
	}
	if !warned {
		t.Error("disconnect should leave a warning log entry")
	}
}

func TestApproveRefusesBlankDisplayName(t *testing.T) {
	hub := newFakeHub(t, nil)
	c := dialTestClient(t, hub)

	for _, name := range []string{"", "   ", "\t"} {
		if err := c.ApproveService("svc-a", name); err != ErrDisplayNameRequired {
			t.Errorf("ApproveService(%q) = %v, want ErrDisplayNameRequired", name, err)
		}
	}

	time.Sleep(50 * time.Millisecond)
	if hub.sawInvocation(protocol.InvokeApproveService) {
		t.Error("blank display name must never reach the hub")
	}

	if err := c.ApproveService("svc-a", "Edge Sync"); err != nil {
		t.Fatalf("valid approval failed: %v", err)
	}
	waitFor(t, 2*time.Second, "approval invocation", func() bool {
		return hub.sawInvocation(protocol.InvokeApproveService)
	})
}

func TestCloseLeavesDashboardGroup(t *testing.T) {
	hub := newFakeHub(t, nil)
	c := dialTestClient(t, hub)
	waitFor(t, 2*time.Second, "join", func() bool {
		return hub.sawInvocation(protocol.InvokeJoinDashboard)
	})

	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if c.State() != StateDisconnected {
		t.Errorf("state = %s, want Disconnected", c.State())
	}
	if _, ok := c.DashboardLatency(); ok {
		t.Error("latency must be cleared on teardown")
	}
	waitFor(t, 2*time.Second, "leave invocation", func() bool {
		return hub.sawInvocation(protocol.InvokeLeaveDashboard)
	})

	// Closing again is a no-op.
	if err := c.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestMeasureLatencyWaitsForOwnReply(t *testing.T) {
	hub := newFakeHub(t, nil)
	hub.manualSnapshots = true

	conn, _, err := websocket.DefaultDialer.Dial(hub.url(), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	c := NewClient(Config{HubURL: hub.url()})
	c.adoptConn(conn)
	t.Cleanup(func() { c.Close() })
	go c.readLoop(conn)

	// A resync request goes out first; its reply is still in flight when
	// the measurement starts.
	if err := c.requestSnapshot(); err != nil {
		t.Fatalf("snapshot request: %v", err)
	}

	measured := make(chan bool, 1)
	go func() {
		_, ok := c.MeasureLatency()
		measured <- ok
	}()
	waitFor(t, 2*time.Second, "both snapshot requests", func() bool {
		return hub.invocationCount(protocol.InvokeGetConnectedServices) == 2
	})

	// The reply to the earlier resync arrives first. It must not complete
	// the measurement.
	hub.push(&protocol.InitialState{})
	select {
	case <-measured:
		t.Fatal("measurement completed on the reply to an earlier request")
	case <-time.After(100 * time.Millisecond):
	}
	if _, ok := c.DashboardLatency(); ok {
		t.Fatal("latency recorded before the measurement's own reply")
	}

	// The reply to the measurement's own request completes it.
	hub.push(&protocol.InitialState{})
	select {
	case ok := <-measured:
		if !ok {
			t.Fatal("measurement failed")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("measurement never completed")
	}
	if _, ok := c.DashboardLatency(); !ok {
		t.Error("latency not recorded after the measurement's reply")
	}
}

func TestSendFailsWhenNeverConnected(t *testing.T) {
	c := NewClient(Config{HubURL: "ws://127.0.0.1:0/ws/dashboard"})
	if _, err := c.PingService("svc-a"); err == nil {
		t.Error("ping without a connection should fail")
	}
	if c.pings.pendingCount() != 0 {
		t.Error("failed ping left a pending entry behind")
	}
}
