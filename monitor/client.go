// Package monitor implements the dashboard side of the openRadius service
// monitoring channel: a reconnecting hub connection, an event-driven service
// registry, ping latency tracking and a bounded log history.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Ali-Mohammed/openRadius-monitor/protocol"
)

// ConnectionState is the lifecycle state of the hub connection.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "Disconnected"
	StateConnected    ConnectionState = "Connected"
	StateReconnecting ConnectionState = "Reconnecting"
	StateError        ConnectionState = "Error"
)

// reconnectDelays is the backoff sequence after a transport drop. Past the
// end, every further attempt waits the final delay.
var reconnectDelays = []time.Duration{
	0,
	2 * time.Second,
	5 * time.Second,
	10 * time.Second,
	30 * time.Second,
}

const (
	defaultSelfPingInterval  = 5 * time.Second
	defaultConnectRetryDelay = 5 * time.Second
	writeTimeout             = 5 * time.Second
)

var (
	ErrNotConnected        = errors.New("not connected to hub")
	ErrClosed              = errors.New("client closed")
	ErrDisplayNameRequired = errors.New("display name must not be empty")
)

// Config configures a dashboard Client.
type Config struct {
	// HubURL is the websocket endpoint, e.g. ws://localhost:8090/ws/dashboard.
	HubURL string

	// PingTimeout bounds how long a service ping or latency probe may stay
	// unanswered. Defaults to 5s.
	PingTimeout time.Duration

	// SelfPingInterval is the period of the dashboard latency probe while
	// connected. Defaults to 5s.
	SelfPingInterval time.Duration

	// ConnectRetryDelay is the wait between initial connect attempts.
	// Defaults to 5s.
	ConnectRetryDelay time.Duration
}

func (c *Config) fillDefaults() {
	if c.PingTimeout <= 0 {
		c.PingTimeout = defaultPingTimeout
	}
	if c.SelfPingInterval <= 0 {
		c.SelfPingInterval = defaultSelfPingInterval
	}
	if c.ConnectRetryDelay <= 0 {
		c.ConnectRetryDelay = defaultConnectRetryDelay
	}
}

// Client owns one live connection to the monitoring hub and the in-memory
// state fed by its pushes. Each Client is an independent writer; two mounted
// views mean two Clients, two connections and two registries.
type Client struct {
	cfg      Config
	registry *Registry
	logs     *LogBuffer
	pings    *pingTracker

	mu          sync.Mutex
	conn        *websocket.Conn
	state       ConnectionState
	dashLatency *float64
	pinging     map[string]bool
	closed      bool

	// The hub answers every GetConnectedServices with one InitialState, in
	// request order per connection. Counting requests and replies lets a
	// latency probe wait for the reply to its own request instead of
	// whichever snapshot arrives first.
	snapReq  uint64
	snapRecv uint64
	waiters  map[chan struct{}]uint64

	// writeMu serializes frames onto the websocket.
	writeMu sync.Mutex

	done chan struct{}
	wg   sync.WaitGroup
}

// NewClient builds a Client. Call Connect to establish the channel.
func NewClient(cfg Config) *Client {
	cfg.fillDefaults()
	return &Client{
		cfg:      cfg,
		registry: NewRegistry(),
		logs:     NewLogBuffer(),
		pings:    newPingTracker(cfg.PingTimeout),
		state:    StateDisconnected,
		pinging:  make(map[string]bool),
		waiters:  make(map[chan struct{}]uint64),
		done:     make(chan struct{}),
	}
}

// Connect dials the hub, joins the dashboard group and requests the initial
// snapshot. Initial connect failures are retried every ConnectRetryDelay
// until the context is cancelled or the client is closed; the failure shows
// only through the Error state, never as a fatal condition.
func (c *Client) Connect(ctx context.Context) error {
	for {
		if c.isClosed() {
			return ErrClosed
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.cfg.HubURL, nil)
		if err == nil {
			if !c.adoptConn(conn) {
				conn.Close()
				return ErrClosed
			}
			c.joinAndSync()

			c.wg.Add(2)
			go c.run(conn)
			go c.selfPingLoop()
			return nil
		}

		c.setState(StateError)
		log.Printf("monitor: hub connect failed: %v (retrying in %s)", err, c.cfg.ConnectRetryDelay)

		select {
		case <-ctx.Done():
			c.setState(StateDisconnected)
			return ctx.Err()
		case <-c.done:
			return ErrClosed
		case <-time.After(c.cfg.ConnectRetryDelay):
		}
	}
}

// run reads frames until the connection drops, then resumes it with the
// backoff schedule. It exits only when the client is closed.
func (c *Client) run(conn *websocket.Conn) {
	defer c.wg.Done()

	for {
		c.readLoop(conn)
		if c.isClosed() {
			return
		}

		c.onDrop()
		conn = c.redial()
		if conn == nil {
			return
		}
		c.joinAndSync()
	}
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !c.isClosed() {
				log.Printf("monitor: hub connection lost: %v", err)
			}
			return
		}

		ev, err := protocol.DecodeEvent(data)
		if err != nil {
			log.Printf("monitor: dropping frame: %v", err)
			continue
		}
		c.handleEvent(ev)
	}
}

// onDrop records the transport loss: latency is no longer meaningful, the
// state turns Reconnecting while redial runs, and snapshot replies still in
// flight will never arrive, so outstanding probes are abandoned.
func (c *Client) onDrop() {
	c.mu.Lock()
	c.conn = nil
	c.state = StateReconnecting
	c.dashLatency = nil
	c.snapReq = 0
	c.snapRecv = 0
	for w := range c.waiters {
		delete(c.waiters, w)
	}
	c.mu.Unlock()
}

// redial walks the reconnect backoff schedule until a dial succeeds or the
// client is closed.
func (c *Client) redial() *websocket.Conn {
	for attempt := 0; ; attempt++ {
		idx := attempt
		if idx >= len(reconnectDelays) {
			idx = len(reconnectDelays) - 1
		}
		if d := reconnectDelays[idx]; d > 0 {
			select {
			case <-c.done:
				return nil
			case <-time.After(d):
			}
		} else if c.isClosed() {
			return nil
		}

		conn, _, err := websocket.DefaultDialer.Dial(c.cfg.HubURL, nil)
		if err != nil {
			log.Printf("monitor: reconnect attempt %d failed: %v", attempt+1, err)
			continue
		}
		if !c.adoptConn(conn) {
			conn.Close()
			return nil
		}
		log.Printf("monitor: reconnected to hub")
		return conn
	}
}

// adoptConn installs a live connection unless the client was closed in the
// meantime.
func (c *Client) adoptConn(conn *websocket.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.conn = conn
	c.state = StateConnected
	return true
}

// joinAndSync enters the dashboard group and requests a fresh snapshot.
// Required after every (re)connect: state may have changed while away.
func (c *Client) joinAndSync() {
	if err := c.send(protocol.InvokeJoinDashboard, nil); err != nil {
		log.Printf("monitor: join dashboard failed: %v", err)
		return
	}
	if err := c.requestSnapshot(); err != nil {
		log.Printf("monitor: snapshot request failed: %v", err)
	}
}

// requestSnapshot asks for the full service list, counting the request so
// replies can be matched back in order.
func (c *Client) requestSnapshot() error {
	c.mu.Lock()
	c.snapReq++
	c.mu.Unlock()
	return c.send(protocol.InvokeGetConnectedServices, nil)
}

// Close leaves the dashboard group, tears down the transport and cancels all
// timers. Safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.state = StateDisconnected
	c.dashLatency = nil
	c.mu.Unlock()

	close(c.done)
	c.pings.cancelAll()

	if conn != nil {
		// Best-effort group leave before the transport goes away.
		if data, err := protocol.Encode(protocol.InvokeLeaveDashboard, nil); err == nil {
			c.writeMu.Lock()
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			conn.WriteMessage(websocket.TextMessage, data)
			c.writeMu.Unlock()
		}
		conn.Close()
	}

	c.wg.Wait()
	return nil
}

// handleEvent applies one inbound push. Registry mutation, ping resolution
// and log appends each happen in a single synchronous pass.
func (c *Client) handleEvent(ev protocol.Event) {
	switch ev := ev.(type) {
	case *protocol.InitialState:
		c.registry.Apply(ev)
		c.notifySnapshotWaiters()
	case *protocol.ServiceLog:
		c.logs.AppendEvent(ev.Log)
	case *protocol.PingResult:
		c.handlePingResult(ev)
	case *protocol.ServiceConnected:
		c.registry.Apply(ev)
		c.logs.Append(ev.Service.ServiceName, protocol.LevelInfo, "Service connected", nil)
	case *protocol.ServiceDisconnected:
		c.registry.Apply(ev)
		c.logs.Append(ev.ServiceName, protocol.LevelWarning, "Service disconnected", nil)
	default:
		c.registry.Apply(ev)
	}
}

func (c *Client) handlePingResult(ev *protocol.PingResult) {
	serviceName, latency, ok := c.pings.resolve(ev.PingID)
	if !ok {
		// The timeout already consumed this ping.
		return
	}
	c.registry.RecordPing(serviceName, latency)
	c.setPinging(serviceName, false)
	c.logs.Append(serviceName, protocol.LevelInfo, fmt.Sprintf("Ping: %.0fms", latency), nil)
}

// PingService issues an application-level latency probe to one service and
// returns the correlation id. The result arrives asynchronously as a
// PingResult push or, failing that, a timeout warning in the log buffer.
func (c *Client) PingService(serviceName string) (string, error) {
	pingID := newPingID()
	c.setPinging(serviceName, true)
	c.pings.track(serviceName, pingID, func(svc string) {
		c.setPinging(svc, false)
		c.logs.Append(svc, protocol.LevelWarning,
			fmt.Sprintf("Ping timeout (>%dms)", c.cfg.PingTimeout.Milliseconds()), nil)
	})

	err := c.send(protocol.InvokePingService, protocol.PingService{
		ServiceName: serviceName,
		PingID:      pingID,
	})
	if err != nil {
		c.pings.remove(pingID)
		c.setPinging(serviceName, false)
		c.logs.Append(serviceName, protocol.LevelError, "Ping failed: "+err.Error(), nil)
		log.Printf("monitor: ping %s failed: %v", serviceName, err)
		return "", err
	}
	return pingID, nil
}

// MeasureLatency probes the hub round trip with a snapshot request and
// records the result. The probe completes only on the reply to its own
// request, so a resync racing it cannot finish the measurement early. It
// runs automatically on the self-ping interval and may also be called on
// demand.
func (c *Client) MeasureLatency() (float64, bool) {
	waiter := make(chan struct{}, 1)
	c.mu.Lock()
	c.snapReq++
	c.waiters[waiter] = c.snapReq
	c.mu.Unlock()

	start := time.Now()
	if err := c.send(protocol.InvokeGetConnectedServices, nil); err != nil {
		c.dropWaiter(waiter)
		return 0, false
	}

	select {
	case <-waiter:
		ms := float64(time.Since(start)) / float64(time.Millisecond)
		c.mu.Lock()
		c.dashLatency = &ms
		c.mu.Unlock()
		return ms, true
	case <-time.After(c.cfg.PingTimeout):
		c.dropWaiter(waiter)
		return 0, false
	case <-c.done:
		c.dropWaiter(waiter)
		return 0, false
	}
}

func (c *Client) selfPingLoop() {
	defer c.wg.Done()

	// First measurement right after connecting.
	if c.State() == StateConnected {
		c.MeasureLatency()
	}

	ticker := time.NewTicker(c.cfg.SelfPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if c.State() == StateConnected {
				c.MeasureLatency()
			}
		}
	}
}

func (c *Client) notifySnapshotWaiters() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapRecv++
	for w, target := range c.waiters {
		if c.snapRecv < target {
			continue
		}
		select {
		case w <- struct{}{}:
		default:
		}
		delete(c.waiters, w)
	}
}

func (c *Client) dropWaiter(w chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.waiters, w)
}

// ApproveService asks the hub to approve a pending service under the given
// display name. An empty or whitespace-only name is refused locally without
// touching the hub.
func (c *Client) ApproveService(serviceName, displayName string) error {
	if strings.TrimSpace(displayName) == "" {
		return ErrDisplayNameRequired
	}
	return c.send(protocol.InvokeApproveService, protocol.ApproveService{
		ServiceName: serviceName,
		DisplayName: displayName,
	})
}

// RejectService asks the hub to reject a pending service. On success the
// record is removed outright by the ServiceRejected push.
func (c *Client) RejectService(serviceName string) error {
	return c.send(protocol.InvokeRejectService, protocol.RejectService{
		ServiceName: serviceName,
	})
}

// SendCommand forwards an operator command to one service through the hub.
func (c *Client) SendCommand(serviceName, command string, payload map[string]any) error {
	err := c.send(protocol.InvokeSendCommand, protocol.SendCommand{
		ServiceName: serviceName,
		Command:     command,
		Payload:     payload,
	})
	if err != nil {
		c.logs.Append(serviceName, protocol.LevelError,
			fmt.Sprintf("Command %q failed: %v", command, err), nil)
		log.Printf("monitor: command %q to %s failed: %v", command, serviceName, err)
	}
	return err
}

func (c *Client) send(msgType string, payload any) error {
	c.mu.Lock()
	conn := c.conn
	closed := c.closed
	c.mu.Unlock()

	if closed {
		return ErrClosed
	}
	if conn == nil {
		return ErrNotConnected
	}

	data, err := protocol.Encode(msgType, payload)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) setState(s ConnectionState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Services returns the read-only projection of the registry.
func (c *Client) Services() []ServiceRecord {
	return c.registry.Snapshot()
}

// Service returns the projection of one record.
func (c *Client) Service(serviceName string) (ServiceRecord, bool) {
	return c.registry.Get(serviceName)
}

// Logs returns the retained log entries, oldest first.
func (c *Client) Logs() []LogEntry {
	return c.logs.Entries()
}

// DashboardLatency returns the last hub round-trip measurement, if any.
func (c *Client) DashboardLatency() (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dashLatency == nil {
		return 0, false
	}
	return *c.dashLatency, true
}

// DashboardQuality is the display band of the last latency measurement.
func (c *Client) DashboardQuality() LatencyQuality {
	ms, ok := c.DashboardLatency()
	if !ok {
		return QualityUnknown
	}
	return LatencyBand(ms)
}

// IsPinging reports whether a ping to serviceName is in flight.
func (c *Client) IsPinging(serviceName string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pinging[serviceName]
}

func (c *Client) setPinging(serviceName string, v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v {
		c.pinging[serviceName] = true
	} else {
		delete(c.pinging, serviceName)
	}
}
