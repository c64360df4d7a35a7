// Package performance reports process and host resource usage for refinery
// summaries.
package performance

import (
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// ResourceUsage contains resource usage information
type ResourceUsage struct {
	CPUPercent            float64   `json:"cpu_percent"`
	MemoryRSS             uint64    `json:"memory_rss_bytes"`
	MemoryVMS             uint64    `json:"memory_vms_bytes"`
	HeapAlloc             uint64    `json:"heap_alloc_bytes"`
	SystemMemoryPercent   float64   `json:"system_memory_percent"`
	SystemMemoryAvailable uint64    `json:"system_memory_available_bytes"`
	LogicalCPUs           int       `json:"logical_cpus"`
	GoroutineCount        int       `json:"goroutines"`
	ThreadCount           int32     `json:"threads"`
	CapturedAt            time.Time `json:"captured_at"`
}

// ResourceMonitor monitors system resources for the current process.
type ResourceMonitor struct {
	process      *process.Process
	startCPUTime float64
	startTime    time.Time
	mu           sync.Mutex
}

// NewResourceMonitor creates a resource monitor. Process-level fields stay
// zero when the platform does not expose them.
func NewResourceMonitor() *ResourceMonitor {
	rm := &ResourceMonitor{startTime: time.Now()}
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return rm
	}
	rm.process = proc
	if cpuTime, err := proc.Times(); err == nil {
		rm.startCPUTime = cpuTime.Total()
	}
	return rm
}

// Usage returns current resource usage. CPU percent is averaged over the
// monitor's lifetime.
func (rm *ResourceMonitor) Usage() ResourceUsage {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	usage := ResourceUsage{
		GoroutineCount: runtime.NumGoroutine(),
		CapturedAt:     time.Now().UTC(),
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	usage.HeapAlloc = ms.HeapAlloc

	if rm.process != nil {
		if cpuTime, err := rm.process.Times(); err == nil {
			if elapsed := time.Since(rm.startTime).Seconds(); elapsed > 0 {
				usage.CPUPercent = ((cpuTime.Total() - rm.startCPUTime) / elapsed) * 100
			}
		}
		if memInfo, err := rm.process.MemoryInfo(); err == nil {
			usage.MemoryRSS = memInfo.RSS
			usage.MemoryVMS = memInfo.VMS
		}
		usage.ThreadCount, _ = rm.process.NumThreads()
	}

	if vmStat, err := mem.VirtualMemory(); err == nil {
		usage.SystemMemoryPercent = vmStat.UsedPercent
		usage.SystemMemoryAvailable = vmStat.Available
	}

	if n, err := cpu.Counts(true); err == nil {
		usage.LogicalCPUs = n
	} else {
		usage.LogicalCPUs = runtime.NumCPU()
	}

	return usage
}

var (
	defaultMonitor     *ResourceMonitor
	defaultMonitorOnce sync.Once
)

// Snapshot returns resource usage from a process-wide monitor created on
// first use.
func Snapshot() ResourceUsage {
	defaultMonitorOnce.Do(func() {
		defaultMonitor = NewResourceMonitor()
	})
	return defaultMonitor.Usage()
}
