package store

import (
	"context"
	"sync"
)

// MemoryStore keeps approvals in a mutex-guarded map. Suitable for a single
// hub instance and for tests.
type MemoryStore struct {
	mu        sync.RWMutex
	approvals map[string]*Approval
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{approvals: make(map[string]*Approval)}
}

func (s *MemoryStore) GetApproval(ctx context.Context, serviceName string) (*Approval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.approvals[serviceName]
	if !ok {
		return nil, nil
	}
	// Return copy
	cp := *a
	return &cp, nil
}

func (s *MemoryStore) SaveApproval(ctx context.Context, a *Approval) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *a
	s.approvals[a.ServiceName] = &cp
	return nil
}

func (s *MemoryStore) DeleteApproval(ctx context.Context, serviceName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.approvals, serviceName)
	return nil
}

func (s *MemoryStore) ListApprovals(ctx context.Context) ([]*Approval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Approval, 0, len(s.approvals))
	for _, a := range s.approvals {
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
