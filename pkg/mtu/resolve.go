package mtu

import (
	"fmt"
	"net"
)

// PathInfo is what the resolver learns about the way toward one peer.
type PathInfo struct {
	PMTU      int  // 0 = the route carries no MTU for this endpoint
	Cached    bool // PMTU originates from the kernel PMTU cache
	Device    string
	DeviceMTU int
}

// ResolvePath looks up the route the kernel would pick for endpoint
// (optionally pinned to src, see SessionTable) and reads the egress
// device's own MTU. ErrUnreachable from the table is passed through so the
// caller can treat it as a per-peer skip.
func ResolvePath(rt RouteTable, ifs InterfaceInfo, endpoint, src net.IP) (PathInfo, error) {
	route, err := rt.Lookup(endpoint, src)
	if err != nil {
		return PathInfo{}, err
	}
	devMTU, err := ifs.MTU(route.Device)
	if err != nil {
		return PathInfo{}, fmt.Errorf("device %s mtu: %w", route.Device, err)
	}
	info := PathInfo{Device: route.Device, DeviceMTU: devMTU}
	if route.MTU > 0 {
		info.PMTU = route.MTU
		info.Cached = route.Cached
	}
	return info, nil
}
