package monitor

import (
	"sync"

	"github.com/Ali-Mohammed/openRadius-monitor/protocol"
)

// pingHistorySize bounds the per-service latency history.
const pingHistorySize = 10

// ServiceRecord is the dashboard projection of one monitored service:
// the wire record plus locally measured ping statistics.
type ServiceRecord struct {
	protocol.ServiceRecord

	// LastPing and AvgPing are nil until a ping has completed.
	LastPing    *float64
	AvgPing     *float64
	PingHistory []float64
}

type serviceState struct {
	rec      protocol.ServiceRecord
	lastPing *float64
	avgPing  *float64
	history  *ring[float64]
}

// Registry holds the last-known state of every monitored service, mutated
// exclusively by applying hub events. Records are kept in receipt order and
// matched by serviceName equality; an event for an absent name is a no-op.
type Registry struct {
	mu       sync.RWMutex
	services []*serviceState
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Apply folds one hub event into the registry. Each event is a single
// atomic update under the registry lock.
func (r *Registry) Apply(ev protocol.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch ev := ev.(type) {
	case *protocol.InitialState:
		r.applyInitialState(ev)
	case *protocol.ServiceConnected:
		r.applyConnected(ev)
	case *protocol.ServiceDisconnected:
		r.remove(ev.ServiceName)
	case *protocol.ServiceHeartbeat:
		r.applyHeartbeat(ev)
	case *protocol.ServiceActivity:
		r.applyActivity(ev)
	case *protocol.ServiceApproved:
		r.applyApproved(ev)
	case *protocol.ServiceRejected:
		r.remove(ev.ServiceName)
	case *protocol.ServiceLog, *protocol.PingResult:
		// Handled by the log buffer and ping tracker, not the registry.
	}
}

func (r *Registry) applyInitialState(ev *protocol.InitialState) {
	r.services = make([]*serviceState, 0, len(ev.Services))
	for _, rec := range ev.Services {
		r.services = append(r.services, &serviceState{
			rec:     rec,
			history: newRing[float64](pingHistorySize),
		})
	}
}

func (r *Registry) applyConnected(ev *protocol.ServiceConnected) {
	// Reconnect replaces the record wholesale, ping history included.
	fresh := &serviceState{
		rec:     ev.Service,
		history: newRing[float64](pingHistorySize),
	}
	for i, s := range r.services {
		if s.rec.ServiceName == ev.Service.ServiceName {
			r.services[i] = fresh
			return
		}
	}
	r.services = append(r.services, fresh)
}

func (r *Registry) applyHeartbeat(ev *protocol.ServiceHeartbeat) {
	for _, s := range r.services {
		if s.rec.ServiceName == ev.ServiceName {
			s.rec.Status = ev.Status
			s.rec.LastHeartbeat = ev.LastHeartbeat
			if ev.HealthReport != nil {
				s.rec.HealthReport = ev.HealthReport
			}
			return
		}
	}
}

func (r *Registry) applyActivity(ev *protocol.ServiceActivity) {
	for _, s := range r.services {
		if s.rec.ServiceName == ev.ServiceName {
			s.rec.CurrentActivity = ev.CurrentActivity
			s.rec.ActivityProgress = ev.ActivityProgress
			return
		}
	}
}

func (r *Registry) applyApproved(ev *protocol.ServiceApproved) {
	for _, s := range r.services {
		if s.rec.ServiceName == ev.Service.ServiceName {
			// The service connection is unchanged, so ping stats survive.
			s.rec = ev.Service
			return
		}
	}
	r.services = append(r.services, &serviceState{
		rec:     ev.Service,
		history: newRing[float64](pingHistorySize),
	})
}

func (r *Registry) remove(serviceName string) {
	for i, s := range r.services {
		if s.rec.ServiceName == serviceName {
			r.services = append(r.services[:i], r.services[i+1:]...)
			return
		}
	}
}

// RecordPing appends a completed ping latency (milliseconds) to the named
// service's bounded history and refreshes last/avg.
func (r *Registry) RecordPing(serviceName string, latencyMS float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.services {
		if s.rec.ServiceName != serviceName {
			continue
		}
		s.history.push(latencyMS)
		last := latencyMS
		s.lastPing = &last

		var sum float64
		samples := s.history.snapshot()
		for _, v := range samples {
			sum += v
		}
		avg := sum / float64(len(samples))
		s.avgPing = &avg
		return
	}
}

// Get returns a copy of the record for serviceName.
func (r *Registry) Get(serviceName string) (ServiceRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.services {
		if s.rec.ServiceName == serviceName {
			return s.projection(), true
		}
	}
	return ServiceRecord{}, false
}

// Snapshot returns copies of all records in receipt order.
func (r *Registry) Snapshot() []ServiceRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ServiceRecord, 0, len(r.services))
	for _, s := range r.services {
		out = append(out, s.projection())
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.services)
}

func (s *serviceState) projection() ServiceRecord {
	rec := ServiceRecord{
		ServiceRecord: s.rec,
		PingHistory:   s.history.snapshot(),
	}
	if s.lastPing != nil {
		v := *s.lastPing
		rec.LastPing = &v
	}
	if s.avgPing != nil {
		v := *s.avgPing
		rec.AvgPing = &v
	}
	return rec
}
