package performance

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnapshot(t *testing.T) {
	usage := Snapshot()

	assert.Greater(t, usage.GoroutineCount, 0)
	assert.Greater(t, usage.HeapAlloc, uint64(0))
	assert.Greater(t, usage.LogicalCPUs, 0)
	assert.False(t, usage.CapturedAt.IsZero())
	assert.GreaterOrEqual(t, usage.CPUPercent, 0.0)

	if runtime.GOOS == "linux" {
		assert.Greater(t, usage.MemoryRSS, uint64(0))
		assert.Greater(t, usage.SystemMemoryAvailable, uint64(0))
	}
}

func TestResourceMonitorReusable(t *testing.T) {
	rm := NewResourceMonitor()

	first := rm.Usage()
	second := rm.Usage()

	assert.False(t, second.CapturedAt.Before(first.CapturedAt))
	assert.Equal(t, first.LogicalCPUs, second.LogicalCPUs)
}
