// Package store persists service approval decisions. Approval is the only
// durable state the hub keeps: a service approved under a display name must
// come back Approved after either side restarts.
package store

import (
	"context"
	"time"
)

// Approval records an administrator's decision for one service name.
type Approval struct {
	ServiceName string    `json:"serviceName"`
	DisplayName string    `json:"displayName"`
	ApprovedAt  time.Time `json:"approvedAt"`
}

// Store abstracts the approval backend. Implementations exist for memory
// (single node, tests), Redis (shared, ephemeral) and Postgres (durable).
type Store interface {
	// GetApproval returns nil with no error when the service has never
	// been approved.
	GetApproval(ctx context.Context, serviceName string) (*Approval, error)
	SaveApproval(ctx context.Context, a *Approval) error
	DeleteApproval(ctx context.Context, serviceName string) error
	ListApprovals(ctx context.Context) ([]*Approval, error)
	Close() error
}
