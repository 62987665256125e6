package system

import (
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostStats describes the machine a render ran on.
type HostStats struct {
	LogicalCPUs    int
	TotalMemoryMB  uint64
	UsedMemoryPct  float64
	HeapAllocMB    uint64
	GoroutineCount int
}

// CollectHostStats never fails: figures gopsutil cannot read stay zero.
func CollectHostStats() HostStats {
	var s HostStats
	if n, err := cpu.Counts(true); err == nil {
		s.LogicalCPUs = n
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		s.TotalMemoryMB = vm.Total / 1024 / 1024
		s.UsedMemoryPct = vm.UsedPercent
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	s.HeapAllocMB = m.HeapAlloc / 1024 / 1024
	s.GoroutineCount = runtime.NumGoroutine()
	return s
}

func (s HostStats) String() string {
	return fmt.Sprintf("cpus=%d mem=%dMB used=%.1f%% heap=%dMB goroutines=%d",
		s.LogicalCPUs, s.TotalMemoryMB, s.UsedMemoryPct, s.HeapAllocMB, s.GoroutineCount)
}
