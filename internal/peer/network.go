package peer

import (
	"net"
	"strings"
)

// cgnat is 100.64.0.0/10, shared by carrier NATs, Tailscale and WARP.
var cgnat = &net.IPNet{IP: net.IPv4(100, 64, 0, 0), Mask: net.CIDRMask(10, 32)}

// tunnelMarkers are interface name fragments used by common VPN adapters.
var tunnelMarkers = []string{"tun", "tap", "wg", "ppp", "warp"}

// ShouldForceRelay reports whether this host looks like it sits behind a VPN
// or carrier-grade NAT, where direct candidates rarely connect and TURN
// should be used instead.
func ShouldForceRelay() bool {
	interfaces, err := net.Interfaces()
	if err != nil {
		return false
	}

	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if isTunnelInterface(iface.Name) {
			return true
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if isCGNAT(addrIP(addr)) {
				return true
			}
		}
	}
	return false
}

func isTunnelInterface(name string) bool {
	name = strings.ToLower(name)
	for _, marker := range tunnelMarkers {
		if strings.Contains(name, marker) {
			return true
		}
	}
	return false
}

func isCGNAT(ip net.IP) bool {
	return ip != nil && cgnat.Contains(ip)
}

func addrIP(addr net.Addr) net.IP {
	switch v := addr.(type) {
	case *net.IPNet:
		return v.IP
	case *net.IPAddr:
		return v.IP
	}
	return nil
}

// UseRelay decides the ICE transport policy for cfg: relay-only when asked
// for, or when a TURN server is configured and the network looks restricted.
func UseRelay(requested, haveTURN bool) bool {
	if requested {
		return true
	}
	return haveTURN && ShouldForceRelay()
}
