package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
)

func stubCollector() *NodeCollector {
	c := NewNodeCollector("/", "/data")
	c.now = func() time.Time { return time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC) }
	c.hostname = func(context.Context) (string, error) { return "web-1", nil }
	c.load.avg = func(context.Context) (*load.AvgStat, error) {
		return &load.AvgStat{Load1: 0.5, Load5: 0.25, Load15: 0.1}, nil
	}
	c.memory.virtualMemory = func(context.Context) (*mem.VirtualMemoryStat, error) {
		return &mem.VirtualMemoryStat{Total: 8 << 30, Used: 2 << 30, UsedPercent: 25.04}, nil
	}
	c.disk.usage = func(_ context.Context, path string) (*disk.UsageStat, error) {
		if path == "/data" {
			return &disk.UsageStat{Path: path, Total: 100 << 30, Free: 5 << 30, UsedPercent: 95}, nil
		}
		return &disk.UsageStat{Path: path, Total: 50 << 30, Free: 40 << 30, UsedPercent: 20}, nil
	}
	c.network.interfaces = func(context.Context) (net.InterfaceStatList, error) {
		return net.InterfaceStatList{
			{Name: "lo", Flags: []string{"up", "loopback"}, Addrs: net.InterfaceAddrList{{Addr: "127.0.0.1/8"}}},
			{Name: "eth0", Flags: []string{"up", "broadcast"}, Addrs: net.InterfaceAddrList{
				{Addr: "fe80::1/64"},
				{Addr: "10.0.0.7/24"},
			}},
		}, nil
	}
	return c
}

func TestNodeCollector_Collect(t *testing.T) {
	req, err := stubCollector().Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	if req.SystemHostname != "web-1" || req.SystemIP != "10.0.0.7" {
		t.Fatalf("unexpected identity: %s %s", req.SystemHostname, req.SystemIP)
	}
	if req.TimeDay != "2026-10-14 12:00:00" {
		t.Fatalf("time_day = %s", req.TimeDay)
	}
	if req.Load1 != 0.5 || req.Load15 != 0.1 {
		t.Fatalf("unexpected load: %v %v %v", req.Load1, req.Load5, req.Load15)
	}
	if req.MemStatusPer != 25 || req.MemStatusTotal != "8.0G" || req.MemStatus != StatusNormal {
		t.Fatalf("unexpected memory: %+v", req)
	}
	if req.DiskF != "/" || req.DiskPer != 20 || req.DiskFree != "40.0G" || req.DiskStatus != StatusNormal {
		t.Fatalf("unexpected disk: %+v", req)
	}
	if req.DiskF60 != "/data" || req.DiskPer60 != "95.0" {
		t.Fatalf("unexpected secondary disk: %s %s", req.DiskF60, req.DiskPer60)
	}
}

func TestNodeCollector_RequiredSourceFails(t *testing.T) {
	c := stubCollector()
	c.memory.virtualMemory = func(context.Context) (*mem.VirtualMemoryStat, error) {
		return nil, errors.New("no /proc")
	}

	if _, err := c.Collect(context.Background()); err == nil {
		t.Fatal("expected error when memory is unavailable")
	}
}

func TestNodeCollector_OptionalSourcesFail(t *testing.T) {
	c := stubCollector()
	c.load.avg = func(context.Context) (*load.AvgStat, error) { return nil, errors.New("not implemented") }
	c.network.interfaces = func(context.Context) (net.InterfaceStatList, error) { return nil, nil }

	req, err := c.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if req.Load1 != 0 || req.SystemIP != "" {
		t.Fatalf("optional fields must stay empty: %+v", req)
	}
}

func TestUsageHelpers(t *testing.T) {
	tests := []struct {
		percent float64
		want    string
	}{
		{89.9, StatusNormal},
		{90, StatusAbnormal},
	}
	for _, tt := range tests {
		if got := usageStatus(tt.percent); got != tt.want {
			t.Errorf("usageStatus(%v) = %s, want %s", tt.percent, got, tt.want)
		}
	}

	for in, want := range map[uint64]string{512: "512B", 1536: "1.5K", 3 << 20: "3.0M"} {
		if got := formatBytes(in); got != want {
			t.Errorf("formatBytes(%d) = %s, want %s", in, got, want)
		}
	}
}
