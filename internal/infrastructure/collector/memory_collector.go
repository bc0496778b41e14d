package collector

import (
	"context"

	"github.com/shirou/gopsutil/v3/mem"
)

// MemoryUsage содержит сводку по оперативной памяти
type MemoryUsage struct {
	Total       string
	Used        string
	UsedPercent float64
	Status      string
}

// MemoryCollector собирает метрики памяти
type MemoryCollector struct {
	virtualMemory func(ctx context.Context) (*mem.VirtualMemoryStat, error)
}

// NewMemoryCollector создает новый Memory collector
func NewMemoryCollector() *MemoryCollector {
	return &MemoryCollector{virtualMemory: mem.VirtualMemoryWithContext}
}

// Collect собирает Memory метрики
func (c *MemoryCollector) Collect(ctx context.Context) (*MemoryUsage, error) {
	vmStat, err := c.virtualMemory(ctx)
	if err != nil {
		return nil, err
	}

	return &MemoryUsage{
		Total:       formatBytes(vmStat.Total),
		Used:        formatBytes(vmStat.Used),
		UsedPercent: round1(vmStat.UsedPercent),
		Status:      usageStatus(vmStat.UsedPercent),
	}, nil
}
