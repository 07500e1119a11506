package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConnectedServices tracks live service connections by approval status.
	ConnectedServices = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "radius_monitor_connected_services",
		Help: "Number of currently connected services",
	}, []string{"approval"})

	// ConnectedDashboards tracks dashboards in the broadcast group.
	ConnectedDashboards = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "radius_monitor_connected_dashboards",
		Help: "Number of dashboards joined to the broadcast group",
	})

	// EventsBroadcast counts pushes fanned out to the dashboard group.
	EventsBroadcast = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radius_monitor_events_broadcast_total",
		Help: "Total events broadcast to dashboards, by event type",
	}, []string{"event"})

	// HeartbeatsReceived counts heartbeat frames accepted from services.
	HeartbeatsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "radius_monitor_heartbeats_total",
		Help: "Total heartbeat frames accepted from services",
	})

	// FramesRateLimited counts frames dropped by storm protection.
	FramesRateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radius_monitor_rate_limited_total",
		Help: "Total frames dropped by the rate limiter, by frame type",
	}, []string{"frame"})

	// PingsRelayed counts dashboard pings forwarded to services.
	PingsRelayed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "radius_monitor_pings_relayed_total",
		Help: "Total ping probes relayed to services",
	})

	// ApprovalDecisions counts administrator approvals and rejections.
	ApprovalDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radius_monitor_approval_decisions_total",
		Help: "Total approval workflow decisions",
	}, []string{"decision"})

	// StaleTransitions counts services flipped by the staleness monitor.
	StaleTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radius_monitor_stale_transitions_total",
		Help: "Total status downgrades applied by the staleness monitor",
	}, []string{"status"})
)
