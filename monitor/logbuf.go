package monitor

import (
	"fmt"
	"sync"
	"time"

	"github.com/Ali-Mohammed/openRadius-monitor/protocol"
)

// logBufferSize bounds the cross-service log history.
const logBufferSize = 100

// LogEntry is one displayed log line with a locally assigned id.
type LogEntry struct {
	ID          string
	ServiceName string
	Level       protocol.LogLevel
	Message     string
	Data        map[string]any
	Timestamp   time.Time
}

// LogBuffer is an append-only bounded history of recent log events across
// all services. Nothing is persisted; a reload starts empty.
type LogBuffer struct {
	mu      sync.Mutex
	entries *ring[LogEntry]
	seq     uint64
}

func NewLogBuffer() *LogBuffer {
	return &LogBuffer{entries: newRing[LogEntry](logBufferSize)}
}

// Append stores an entry, assigning it a unique id, and trims to the most
// recent entries.
func (b *LogBuffer) Append(serviceName string, level protocol.LogLevel, message string, data map[string]any) LogEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	entry := LogEntry{
		ID:          fmt.Sprintf("log-%d-%d", time.Now().UnixNano(), b.seq),
		ServiceName: serviceName,
		Level:       level,
		Message:     message,
		Data:        data,
		Timestamp:   time.Now(),
	}
	b.entries.push(entry)
	return entry
}

// AppendEvent stores a log event pushed by the hub, keeping its own timestamp.
func (b *LogBuffer) AppendEvent(ev protocol.LogEvent) LogEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	entry := LogEntry{
		ID:          fmt.Sprintf("log-%d-%d", time.Now().UnixNano(), b.seq),
		ServiceName: ev.ServiceName,
		Level:       ev.Level,
		Message:     ev.Message,
		Data:        ev.Data,
		Timestamp:   ts,
	}
	b.entries.push(entry)
	return entry
}

// Entries returns the retained log lines, oldest first.
func (b *LogBuffer) Entries() []LogEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.entries.snapshot()
}

func (b *LogBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.entries.len()
}
