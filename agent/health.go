package main

import (
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/Ali-Mohammed/openRadius-monitor/protocol"
)

// unhealthy thresholds for the heartbeat health flag.
const (
	cpuUnhealthyPct = 95.0
	memUnhealthyPct = 95.0
)

// collectHealth samples host metrics for a heartbeat. Sampling errors leave
// the affected field zero rather than failing the heartbeat.
func collectHealth(activeConnections, pendingTasks int) *protocol.HealthReport {
	report := &protocol.HealthReport{
		IsHealthy:         true,
		ActiveConnections: activeConnections,
		PendingTasks:      pendingTasks,
		CustomMetrics:     map[string]float64{},
	}

	var memPct float64
	if cpuPercent, err := cpu.Percent(0, false); err == nil && len(cpuPercent) > 0 {
		report.CPUUsage = cpuPercent[0]
	}
	if memStats, err := mem.VirtualMemory(); err == nil {
		report.MemoryUsageMB = float64(memStats.Used) / (1024 * 1024)
		memPct = memStats.UsedPercent
		report.CustomMetrics["memory_usage_percent"] = memStats.UsedPercent
	}
	if loadStats, err := load.Avg(); err == nil {
		report.CustomMetrics["load_1m"] = loadStats.Load1
		report.CustomMetrics["load_5m"] = loadStats.Load5
		report.CustomMetrics["load_15m"] = loadStats.Load15
	}

	if report.CPUUsage > cpuUnhealthyPct || memPct > memUnhealthyPct {
		report.IsHealthy = false
	}
	return report
}
