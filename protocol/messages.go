package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// Dashboard->hub invocation type tags.
const (
	InvokeJoinDashboard        = "JoinDashboard"
	InvokeLeaveDashboard       = "LeaveDashboard"
	InvokeGetConnectedServices = "GetConnectedServices"
	InvokeSendCommand          = "SendCommand"
	InvokePingService          = "PingService"
	InvokeApproveService       = "ApproveService"
	InvokeRejectService        = "RejectService"
)

// SendCommand asks the hub to forward an operator command to one service.
type SendCommand struct {
	ServiceName string         `json:"serviceName"`
	Command     string         `json:"command"`
	Payload     map[string]any `json:"payload,omitempty"`
}

type PingService struct {
	ServiceName string `json:"serviceName"`
	PingID      string `json:"pingId"`
}

type ApproveService struct {
	ServiceName string `json:"serviceName"`
	DisplayName string `json:"displayName"`
}

type RejectService struct {
	ServiceName string `json:"serviceName"`
}

// Service->hub frame type tags.
const (
	FrameRegister  = "Register"
	FrameHeartbeat = "Heartbeat"
	FrameActivity  = "Activity"
	FrameLog       = "Log"
	FramePong      = "Pong"
)

// Register is the first frame a service sends after dialing the hub.
type Register struct {
	ServiceName string            `json:"serviceName"`
	Version     string            `json:"version"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type Heartbeat struct {
	Status       ServiceStatus `json:"status"`
	Timestamp    time.Time     `json:"timestamp"`
	HealthReport *HealthReport `json:"healthReport,omitempty"`
}

type Activity struct {
	CurrentActivity  string  `json:"currentActivity"`
	ActivityProgress float64 `json:"activityProgress"`
}

type Log struct {
	Level   LogLevel       `json:"level"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// Pong answers a relayed ping, echoing the correlation id.
type Pong struct {
	PingID string `json:"pingId"`
}

// Hub->service frame type tags.
const (
	FramePing     = "Ping"
	FrameCommand  = "Command"
	FrameApproved = "Approved"
	FrameRejected = "Rejected"
)

type Ping struct {
	PingID string `json:"pingId"`
}

type Command struct {
	Command string         `json:"command"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Approved notifies a service of its administrator-assigned display name.
type Approved struct {
	DisplayName string `json:"displayName"`
}

// Encode wraps an arbitrary typed payload in the envelope.
func Encode(msgType string, payload any) ([]byte, error) {
	if payload == nil {
		return json.Marshal(Envelope{Type: msgType})
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	return json.Marshal(Envelope{Type: msgType, Payload: raw})
}

// DecodeEnvelope parses just the outer frame, leaving the payload raw for
// the receiver's own dispatch.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	return env, nil
}
