package store

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreApprovalLifecycle(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	got, err := s.GetApproval(ctx, "radius-sync-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatal("expected nil approval for unknown service")
	}

	a := &Approval{
		ServiceName: "radius-sync-1",
		DisplayName: "RADIUS Sync (Primary)",
		ApprovedAt:  time.Now(),
	}
	if err := s.SaveApproval(ctx, a); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err = s.GetApproval(ctx, "radius-sync-1")
	if err != nil || got == nil {
		t.Fatalf("get after save: %v, %v", got, err)
	}
	if got.DisplayName != "RADIUS Sync (Primary)" {
		t.Errorf("display name = %q", got.DisplayName)
	}

	// Returned value is a copy.
	got.DisplayName = "mutated"
	again, _ := s.GetApproval(ctx, "radius-sync-1")
	if again.DisplayName != "RADIUS Sync (Primary)" {
		t.Error("mutation of returned approval leaked into the store")
	}

	list, err := s.ListApprovals(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("list = %v, %v", list, err)
	}

	if err := s.DeleteApproval(ctx, "radius-sync-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, _ = s.GetApproval(ctx, "radius-sync-1")
	if got != nil {
		t.Error("approval survived delete")
	}
}
