// Package protocol defines the wire format spoken between the monitoring hub,
// the monitored services and the dashboards. All frames are JSON envelopes
// carried over a websocket.
package protocol

import "time"

// ServiceStatus is the operational state reported by a service.
type ServiceStatus string

const (
	StatusOnline      ServiceStatus = "Online"
	StatusOffline     ServiceStatus = "Offline"
	StatusDegraded    ServiceStatus = "Degraded"
	StatusMaintenance ServiceStatus = "Maintenance"
)

// ApprovalStatus gates whether a service is treated as active.
// New services start Pending until an administrator approves them.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "Pending"
	ApprovalApproved ApprovalStatus = "Approved"
	ApprovalRejected ApprovalStatus = "Rejected"
)

// LogLevel classifies a service log event.
type LogLevel string

const (
	LevelInfo    LogLevel = "info"
	LevelWarning LogLevel = "warning"
	LevelError   LogLevel = "error"
	LevelDebug   LogLevel = "debug"
)

// HealthReport carries point-in-time health metrics from a service heartbeat.
type HealthReport struct {
	IsHealthy         bool               `json:"isHealthy"`
	CPUUsage          float64            `json:"cpuUsage"`
	MemoryUsageMB     float64            `json:"memoryUsageMb"`
	ActiveConnections int                `json:"activeConnections"`
	PendingTasks      int                `json:"pendingTasks"`
	CustomMetrics     map[string]float64 `json:"customMetrics,omitempty"`
}

// ServiceRecord is the hub's view of one connected service.
// ServiceName is the sole identity; the record is replaced wholesale on
// reconnect and removed on disconnect or rejection.
type ServiceRecord struct {
	ServiceName      string            `json:"serviceName"`
	DisplayName      string            `json:"displayName,omitempty"`
	Version          string            `json:"version"`
	ConnectionID     string            `json:"connectionId"`
	Status           ServiceStatus     `json:"status"`
	ApprovalStatus   ApprovalStatus    `json:"approvalStatus"`
	ConnectedAt      time.Time         `json:"connectedAt"`
	LastHeartbeat    time.Time         `json:"lastHeartbeat"`
	CurrentActivity  string            `json:"currentActivity,omitempty"`
	ActivityProgress float64           `json:"activityProgress,omitempty"`
	HealthReport     *HealthReport     `json:"healthReport,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// LogEvent is a log line pushed by a service through the hub.
type LogEvent struct {
	ServiceName string         `json:"serviceName"`
	Level       LogLevel       `json:"level"`
	Message     string         `json:"message"`
	Data        map[string]any `json:"data,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}
