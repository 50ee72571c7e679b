// Package mtu contains the route-MTU decision core: the policy arithmetic,
// the path resolver and the per-destination reconciler. All kernel access
// goes through the ports in ports.go so the core runs against fakes in
// tests.
package mtu

// Per-packet encapsulation cost between the tunnel payload and the wire.
// Path constriction is materially an IPv6 concern here, so the outer header
// is always counted at IPv6 size.
const (
	OuterIPHeader  = 40 // outer IPv6 header
	TransportHdr   = 8  // UDP
	TunnelOverhead = 32 // WireGuard: type + index + counter + tag
	Overhead       = OuterIPHeader + TransportHdr + TunnelOverhead
)

// EffectivePathMTU picks the best known upper bound on the usable path:
// the cached PMTU when the kernel has one, otherwise the egress link MTU.
func EffectivePathMTU(pmtu, deviceMTU int) int {
	if pmtu > 0 {
		return pmtu
	}
	return deviceMTU
}

// Target computes the route MTU override for destinations behind a peer.
// ok=false means no override is needed: the tunnel can already carry
// packets of its configured size, so any existing override must be cleared.
// A non-positive target is returned as-is; the route change is still
// attempted and left to the route layer to reject.
func Target(tunnelMTU, pmtu, deviceMTU int) (target int, ok bool) {
	candidate := EffectivePathMTU(pmtu, deviceMTU) - Overhead
	if candidate >= tunnelMTU {
		return 0, false
	}
	return candidate, true
}
