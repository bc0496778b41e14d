package collector

import (
	"context"
	"errors"
	stdnet "net"
	"strings"

	"github.com/shirou/gopsutil/v3/net"
)

// ErrNoAddress возвращается, если у узла нет глобального IPv4
var ErrNoAddress = errors.New("no usable ipv4 address")

// NetworkCollector определяет основной IPv4 адрес узла
type NetworkCollector struct {
	interfaces func(ctx context.Context) (net.InterfaceStatList, error)
}

// NewNetworkCollector создает новый Network collector
func NewNetworkCollector() *NetworkCollector {
	return &NetworkCollector{interfaces: net.InterfacesWithContext}
}

// Collect возвращает первый не-loopback IPv4 поднятого интерфейса
func (c *NetworkCollector) Collect(ctx context.Context) (string, error) {
	ifaces, err := c.interfaces(ctx)
	if err != nil {
		return "", err
	}

	for _, iface := range ifaces {
		if !hasFlag(iface.Flags, "up") || hasFlag(iface.Flags, "loopback") {
			continue
		}
		for _, addr := range iface.Addrs {
			ip, _, err := stdnet.ParseCIDR(addr.Addr)
			if err != nil {
				ip = stdnet.ParseIP(addr.Addr)
			}
			if ip == nil || ip.IsLoopback() || ip.IsLinkLocalUnicast() {
				continue
			}
			if v4 := ip.To4(); v4 != nil {
				return v4.String(), nil
			}
		}
	}

	return "", ErrNoAddress
}

func hasFlag(flags []string, want string) bool {
	for _, f := range flags {
		if strings.EqualFold(f, want) {
			return true
		}
	}
	return false
}
