package collector

import (
	"context"

	"github.com/shirou/gopsutil/v3/load"
)

// LoadCollector читает средние значения загрузки системы
type LoadCollector struct {
	avg func(ctx context.Context) (*load.AvgStat, error)
}

// NewLoadCollector создает новый load collector
func NewLoadCollector() *LoadCollector {
	return &LoadCollector{avg: load.AvgWithContext}
}

// Collect возвращает load average за 1, 5 и 15 минут
func (c *LoadCollector) Collect(ctx context.Context) (load1, load5, load15 float64, err error) {
	stat, err := c.avg(ctx)
	if err != nil {
		return 0, 0, 0, err
	}
	return stat.Load1, stat.Load5, stat.Load15, nil
}
