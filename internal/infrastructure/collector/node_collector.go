package collector

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"golang.org/x/sync/errgroup"

	"github.com/dreschagin/health-checker/internal/application/dto"
)

const (
	// StatusNormal и StatusAbnormal: качественные метки использования ресурса
	StatusNormal   = "normal"
	StatusAbnormal = "abnormal"

	abnormalPercent = 90.0
)

// NodeCollector собирает снимок узла в формате POST /nodes
type NodeCollector struct {
	hostname func(ctx context.Context) (string, error)
	load     *LoadCollector
	memory   *MemoryCollector
	disk     *DiskCollector
	network  *NetworkCollector

	diskPath      string
	secondaryPath string
	now           func() time.Time
}

// NewNodeCollector создает collector. secondaryPath может быть пустым.
func NewNodeCollector(diskPath, secondaryPath string) *NodeCollector {
	if diskPath == "" {
		diskPath = "/"
	}

	return &NodeCollector{
		hostname:      hostInfoName,
		load:          NewLoadCollector(),
		memory:        NewMemoryCollector(),
		disk:          NewDiskCollector(),
		network:       NewNetworkCollector(),
		diskPath:      diskPath,
		secondaryPath: secondaryPath,
		now:           time.Now,
	}
}

func hostInfoName(ctx context.Context) (string, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return "", err
	}
	return info.Hostname, nil
}

// Collect опрашивает все источники параллельно. Ошибка обязательного
// источника (hostname, память, основной диск) прерывает сбор.
func (c *NodeCollector) Collect(ctx context.Context) (*dto.UpsertNodeRequest, error) {
	req := &dto.UpsertNodeRequest{
		TimeDay: c.now().Format("2006-01-02 15:04:05"),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		name, err := c.hostname(gctx)
		if err != nil {
			return fmt.Errorf("failed to read hostname: %w", err)
		}
		req.SystemHostname = name
		return nil
	})

	g.Go(func() error {
		// load average недоступен на части платформ
		if l1, l5, l15, err := c.load.Collect(gctx); err == nil {
			req.Load1, req.Load5, req.Load15 = l1, l5, l15
		}
		return nil
	})

	g.Go(func() error {
		usage, err := c.memory.Collect(gctx)
		if err != nil {
			return fmt.Errorf("failed to read memory: %w", err)
		}
		req.MemStatusTotal = usage.Total
		req.MemStatusUse = usage.Used
		req.MemStatusPer = usage.UsedPercent
		req.MemStatus = usage.Status
		return nil
	})

	g.Go(func() error {
		usage, err := c.disk.Collect(gctx, c.diskPath)
		if err != nil {
			return fmt.Errorf("failed to read disk %s: %w", c.diskPath, err)
		}
		req.DiskF = usage.Mount
		req.DiskTotal = usage.Total
		req.DiskFree = usage.Free
		req.DiskPer = usage.UsedPercent
		req.DiskStatus = usage.Status
		return nil
	})

	if c.secondaryPath != "" {
		g.Go(func() error {
			if usage, err := c.disk.Collect(gctx, c.secondaryPath); err == nil {
				req.DiskF60 = usage.Mount
				req.DiskPer60 = fmt.Sprintf("%.1f", usage.UsedPercent)
			}
			return nil
		})
	}

	g.Go(func() error {
		if ip, err := c.network.Collect(gctx); err == nil {
			req.SystemIP = ip
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return req, nil
}

func usageStatus(percent float64) string {
	if percent >= abnormalPercent {
		return StatusAbnormal
	}
	return StatusNormal
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func formatBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%dB", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%c", float64(b)/float64(div), "KMGTPE"[exp])
}
