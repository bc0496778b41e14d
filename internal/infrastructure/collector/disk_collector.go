package collector

import (
	"context"

	"github.com/shirou/gopsutil/v3/disk"
)

// DiskUsage содержит сводку по одному разделу
type DiskUsage struct {
	Mount       string
	Total       string
	Free        string
	UsedPercent float64
	Status      string
}

// DiskCollector собирает метрики дисков
type DiskCollector struct {
	usage func(ctx context.Context, path string) (*disk.UsageStat, error)
}

// NewDiskCollector создает новый Disk collector
func NewDiskCollector() *DiskCollector {
	return &DiskCollector{usage: disk.UsageWithContext}
}

// Collect собирает метрики раздела, смонтированного в path
func (c *DiskCollector) Collect(ctx context.Context, path string) (*DiskUsage, error) {
	usage, err := c.usage(ctx, path)
	if err != nil {
		return nil, err
	}

	return &DiskUsage{
		Mount:       usage.Path,
		Total:       formatBytes(usage.Total),
		Free:        formatBytes(usage.Free),
		UsedPercent: round1(usage.UsedPercent),
		Status:      usageStatus(usage.UsedPercent),
	}, nil
}
