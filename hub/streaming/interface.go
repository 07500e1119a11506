// Package streaming fans service lifecycle events out to the rest of the
// openRadius backend, outside the dashboard websocket path.
package streaming

import (
	"context"
	"encoding/json"
	"time"
)

// Event is the published wrapper around a lifecycle payload.
type Event struct {
	ID        string          `json:"id"`
	Topic     string          `json:"topic"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
	Source    string          `json:"source"`
}

// Publisher delivers lifecycle events to an external bus.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
	Close() error
}
