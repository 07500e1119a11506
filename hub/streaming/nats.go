package streaming

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
)

// NatsPublisher delivers lifecycle events over NATS so the rest of the
// openRadius backend (provisioning, billing hooks) can react to service
// state changes.
type NatsPublisher struct {
	conn *nats.Conn
	seq  atomic.Uint64
}

func NewNatsPublisher(natsURL string) (*NatsPublisher, error) {
	conn, err := nats.Connect(natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	log.Printf("Hub connected to NATS at %s", natsURL)
	return &NatsPublisher{conn: conn}, nil
}

func (p *NatsPublisher) Publish(ctx context.Context, topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	event := Event{
		ID:        fmt.Sprintf("evt-%d-%d", time.Now().UnixNano(), p.seq.Add(1)),
		Topic:     topic,
		Payload:   data,
		Timestamp: time.Now(),
		Source:    "radius-monitor-hub",
	}
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if err := p.conn.Publish(topic, eventBytes); err != nil {
		return fmt.Errorf("nats publish %s: %w", topic, err)
	}
	return nil
}

func (p *NatsPublisher) Close() error {
	if p.conn != nil {
		p.conn.Close()
		log.Printf("Hub disconnected from NATS")
	}
	return nil
}
