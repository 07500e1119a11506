package monitor

import (
	"testing"
	"time"

	"github.com/Ali-Mohammed/openRadius-monitor/protocol"
)

func onlineService(name string) protocol.ServiceRecord {
	return protocol.ServiceRecord{
		ServiceName:    name,
		Version:        "1.4.0",
		ConnectionID:   "conn-" + name,
		Status:         protocol.StatusOnline,
		ApprovalStatus: protocol.ApprovalApproved,
		ConnectedAt:    time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		LastHeartbeat:  time.Date(2026, 3, 1, 10, 0, 5, 0, time.UTC),
		Metadata:       map[string]string{"environment": "production"},
	}
}

func TestInitialStateSeedsRegistry(t *testing.T) {
	r := NewRegistry()
	r.Apply(&protocol.InitialState{Services: []protocol.ServiceRecord{onlineService("svc-a")}})

	if r.Len() != 1 {
		t.Fatalf("expected 1 record, got %d", r.Len())
	}
	rec, ok := r.Get("svc-a")
	if !ok {
		t.Fatal("svc-a not found")
	}
	if rec.Status != protocol.StatusOnline {
		t.Errorf("expected Online, got %s", rec.Status)
	}
}

func TestInitialStateReplacesEverything(t *testing.T) {
	r := NewRegistry()
	r.Apply(&protocol.InitialState{Services: []protocol.ServiceRecord{
		onlineService("svc-a"), onlineService("svc-b"),
	}})
	r.Apply(&protocol.InitialState{Services: []protocol.ServiceRecord{onlineService("svc-c")}})

	if r.Len() != 1 {
		t.Fatalf("expected 1 record after replacement, got %d", r.Len())
	}
	if _, ok := r.Get("svc-a"); ok {
		t.Error("svc-a should be gone after snapshot replacement")
	}
	if _, ok := r.Get("svc-c"); !ok {
		t.Error("svc-c missing after snapshot replacement")
	}
}

func TestServiceConnectedUpsertIsIdempotent(t *testing.T) {
	r := NewRegistry()
	ev := &protocol.ServiceConnected{Service: onlineService("svc-a")}
	r.Apply(ev)
	r.Apply(ev)

	if r.Len() != 1 {
		t.Fatalf("duplicate entry after repeated ServiceConnected: %d records", r.Len())
	}
}

func TestServiceConnectedReplacesWholesale(t *testing.T) {
	r := NewRegistry()
	r.Apply(&protocol.ServiceConnected{Service: onlineService("svc-a")})
	r.RecordPing("svc-a", 42)

	updated := onlineService("svc-a")
	updated.ConnectionID = "conn-new"
	r.Apply(&protocol.ServiceConnected{Service: updated})

	rec, _ := r.Get("svc-a")
	if rec.ConnectionID != "conn-new" {
		t.Errorf("expected replaced connection id, got %s", rec.ConnectionID)
	}
	if rec.LastPing != nil || len(rec.PingHistory) != 0 {
		t.Error("ping stats should reset when the record is replaced on reconnect")
	}
}

func TestHeartbeatPatchesOnlyMatchingRecord(t *testing.T) {
	r := NewRegistry()
	r.Apply(&protocol.InitialState{Services: []protocol.ServiceRecord{
		onlineService("svc-a"), onlineService("svc-b"),
	}})

	before, _ := r.Get("svc-b")
	hb := time.Date(2026, 3, 1, 10, 1, 0, 0, time.UTC)
	r.Apply(&protocol.ServiceHeartbeat{
		ServiceName:   "svc-a",
		Status:        protocol.StatusDegraded,
		LastHeartbeat: hb,
		HealthReport:  &protocol.HealthReport{IsHealthy: false, CPUUsage: 93.5},
	})

	a, _ := r.Get("svc-a")
	if a.Status != protocol.StatusDegraded {
		t.Errorf("expected Degraded, got %s", a.Status)
	}
	if !a.LastHeartbeat.Equal(hb) {
		t.Errorf("lastHeartbeat not patched: %v", a.LastHeartbeat)
	}
	if a.HealthReport == nil || a.HealthReport.IsHealthy {
		t.Error("health report not patched")
	}
	if !a.ConnectedAt.Equal(onlineService("svc-a").ConnectedAt) {
		t.Error("connectedAt must not change on heartbeat")
	}

	after, _ := r.Get("svc-b")
	if after.Status != before.Status || !after.LastHeartbeat.Equal(before.LastHeartbeat) {
		t.Error("heartbeat for svc-a altered svc-b")
	}
}

func TestHeartbeatForUnknownServiceIsNoop(t *testing.T) {
	r := NewRegistry()
	r.Apply(&protocol.ServiceHeartbeat{ServiceName: "ghost", Status: protocol.StatusOnline})
	if r.Len() != 0 {
		t.Error("heartbeat for unknown service must not create a record")
	}
}

func TestActivityPatchesMatchingRecord(t *testing.T) {
	r := NewRegistry()
	r.Apply(&protocol.ServiceConnected{Service: onlineService("svc-a")})
	r.Apply(&protocol.ServiceActivity{
		ServiceName:      "svc-a",
		CurrentActivity:  "Syncing NAS profiles",
		ActivityProgress: 60,
	})

	rec, _ := r.Get("svc-a")
	if rec.CurrentActivity != "Syncing NAS profiles" || rec.ActivityProgress != 60 {
		t.Errorf("activity not patched: %q %v", rec.CurrentActivity, rec.ActivityProgress)
	}
}

func TestDisconnectRemovesRecord(t *testing.T) {
	r := NewRegistry()
	r.Apply(&protocol.InitialState{Services: []protocol.ServiceRecord{
		onlineService("svc-a"), onlineService("svc-b"),
	}})
	r.Apply(&protocol.ServiceDisconnected{ServiceName: "svc-a"})

	if _, ok := r.Get("svc-a"); ok {
		t.Error("svc-a still present after disconnect")
	}
	if _, ok := r.Get("svc-b"); !ok {
		t.Error("disconnect of svc-a removed svc-b")
	}
}

func TestRejectedRemovesRecord(t *testing.T) {
	r := NewRegistry()
	pending := onlineService("svc-new")
	pending.ApprovalStatus = protocol.ApprovalPending
	r.Apply(&protocol.ServiceConnected{Service: pending})
	r.Apply(&protocol.ServiceRejected{ServiceName: "svc-new"})

	if r.Len() != 0 {
		t.Error("rejected service must be removed outright")
	}
}

func TestApprovedReplacesRecordKeepingPingStats(t *testing.T) {
	r := NewRegistry()
	pending := onlineService("svc-new")
	pending.ApprovalStatus = protocol.ApprovalPending
	r.Apply(&protocol.ServiceConnected{Service: pending})
	r.RecordPing("svc-new", 30)

	approved := pending
	approved.ApprovalStatus = protocol.ApprovalApproved
	approved.DisplayName = "Edge Sync (Beirut)"
	r.Apply(&protocol.ServiceApproved{Service: approved})

	rec, _ := r.Get("svc-new")
	if rec.ApprovalStatus != protocol.ApprovalApproved {
		t.Errorf("expected Approved, got %s", rec.ApprovalStatus)
	}
	if rec.DisplayName != "Edge Sync (Beirut)" {
		t.Errorf("display name not applied: %q", rec.DisplayName)
	}
	if rec.Metadata["environment"] != "production" {
		t.Error("metadata lost on approval")
	}
	if rec.LastPing == nil || *rec.LastPing != 30 {
		t.Error("ping stats should survive approval")
	}
}

func TestRecordPingBoundsHistoryAndComputesAverage(t *testing.T) {
	r := NewRegistry()
	r.Apply(&protocol.ServiceConnected{Service: onlineService("svc-a")})

	for i := 1; i <= 15; i++ {
		r.RecordPing("svc-a", float64(i*10))
	}

	rec, _ := r.Get("svc-a")
	if len(rec.PingHistory) != pingHistorySize {
		t.Fatalf("history length %d, want %d", len(rec.PingHistory), pingHistorySize)
	}
	// The 10 most recent are 60..150, in arrival order.
	for i, v := range rec.PingHistory {
		want := float64((i + 6) * 10)
		if v != want {
			t.Errorf("history[%d] = %v, want %v", i, v, want)
		}
	}
	if rec.LastPing == nil || *rec.LastPing != 150 {
		t.Error("lastPing should be the most recent latency")
	}
	if rec.AvgPing == nil || *rec.AvgPing != 105 {
		t.Errorf("avgPing = %v, want 105", rec.AvgPing)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	r := NewRegistry()
	r.Apply(&protocol.ServiceConnected{Service: onlineService("svc-a")})

	snap := r.Snapshot()
	snap[0].Status = protocol.StatusMaintenance

	rec, _ := r.Get("svc-a")
	if rec.Status != protocol.StatusOnline {
		t.Error("snapshot mutation leaked into the registry")
	}
}
