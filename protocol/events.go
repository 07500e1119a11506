package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event is a server->dashboard push. The set is closed: DecodeEvent rejects
// unknown type tags, and the marker method keeps the union exhaustive so a
// dispatch switch covers every case.
type Event interface {
	EventType() string
}

const (
	EventInitialState        = "InitialState"
	EventServiceConnected    = "ServiceConnected"
	EventServiceDisconnected = "ServiceDisconnected"
	EventServiceHeartbeat    = "ServiceHeartbeat"
	EventServiceActivity     = "ServiceActivity"
	EventServiceLog          = "ServiceLog"
	EventPingResult          = "PingResult"
	EventServiceApproved     = "ServiceApproved"
	EventServiceRejected     = "ServiceRejected"
)

// InitialState replaces the whole dashboard registry with a snapshot.
// The services wrapper is the one canonical wire shape; a bare array is
// not accepted.
type InitialState struct {
	Services []ServiceRecord `json:"services"`
}

func (InitialState) EventType() string { return EventInitialState }

// ServiceConnected upserts the full record for a newly connected service.
type ServiceConnected struct {
	Service ServiceRecord `json:"service"`
}

func (ServiceConnected) EventType() string { return EventServiceConnected }

type ServiceDisconnected struct {
	ServiceName string `json:"serviceName"`
}

func (ServiceDisconnected) EventType() string { return EventServiceDisconnected }

// ServiceHeartbeat patches status, heartbeat time and health on one record.
type ServiceHeartbeat struct {
	ServiceName   string        `json:"serviceName"`
	Status        ServiceStatus `json:"status"`
	LastHeartbeat time.Time     `json:"lastHeartbeat"`
	HealthReport  *HealthReport `json:"healthReport,omitempty"`
}

func (ServiceHeartbeat) EventType() string { return EventServiceHeartbeat }

type ServiceActivity struct {
	ServiceName      string  `json:"serviceName"`
	CurrentActivity  string  `json:"currentActivity"`
	ActivityProgress float64 `json:"activityProgress"`
}

func (ServiceActivity) EventType() string { return EventServiceActivity }

type ServiceLog struct {
	Log LogEvent `json:"log"`
}

func (ServiceLog) EventType() string { return EventServiceLog }

// PingResult answers an application-level ping issued by a dashboard.
// Correlation is by PingID only; latency is computed on the dashboard side.
type PingResult struct {
	ServiceName string `json:"serviceName"`
	PingID      string `json:"pingId"`
}

func (PingResult) EventType() string { return EventPingResult }

// ServiceApproved carries the full updated record including the
// administrator-assigned display name.
type ServiceApproved struct {
	Service ServiceRecord `json:"service"`
}

func (ServiceApproved) EventType() string { return EventServiceApproved }

type ServiceRejected struct {
	ServiceName string `json:"serviceName"`
}

func (ServiceRejected) EventType() string { return EventServiceRejected }

// Envelope is the outer JSON frame for every message in both directions.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// EncodeEvent wraps an event in its envelope.
func EncodeEvent(ev Event) ([]byte, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", ev.EventType(), err)
	}
	return json.Marshal(Envelope{Type: ev.EventType(), Payload: payload})
}

// DecodeEvent parses a server->dashboard frame into its concrete event type.
func DecodeEvent(data []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode event envelope: %w", err)
	}

	var ev Event
	switch env.Type {
	case EventInitialState:
		ev = &InitialState{}
	case EventServiceConnected:
		ev = &ServiceConnected{}
	case EventServiceDisconnected:
		ev = &ServiceDisconnected{}
	case EventServiceHeartbeat:
		ev = &ServiceHeartbeat{}
	case EventServiceActivity:
		ev = &ServiceActivity{}
	case EventServiceLog:
		ev = &ServiceLog{}
	case EventPingResult:
		ev = &PingResult{}
	case EventServiceApproved:
		ev = &ServiceApproved{}
	case EventServiceRejected:
		ev = &ServiceRejected{}
	default:
		return nil, fmt.Errorf("unknown event type %q", env.Type)
	}

	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, ev); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", env.Type, err)
		}
	}
	return ev, nil
}
