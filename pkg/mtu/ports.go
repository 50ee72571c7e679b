package mtu

import (
	"errors"
	"net"
)

// ErrUnreachable is returned by RouteTable.Lookup when the kernel has no
// route toward the peer endpoint. Callers skip the peer and continue.
var ErrUnreachable = errors.New("no route to endpoint")

// Route is a single entry scoped to the tunnel interface.
type Route struct {
	Dst    *net.IPNet
	Device string
	MTU    int  // 0 = no explicit override
	Cached bool // entry originates from the kernel PMTU cache
}

// RouteTable is the externally owned routing state. Implementations must
// restrict SetMTU to the MTU metric: no route is created, deleted or
// otherwise modified.
type RouteTable interface {
	// Lookup answers "what route would a packet to dst use", optionally
	// constrained to the given source address. src may be nil.
	Lookup(dst net.IP, src net.IP) (Route, error)
	// List returns routes on device matching dst exactly. In practice the
	// tunnel carries 0 or 1 route per allowed prefix.
	List(device string, dst *net.IPNet) ([]Route, error)
	// SetMTU sets (mtu > 0) or clears (mtu == 0) the override on the route
	// for dst scoped to device, preserving every other attribute.
	SetMTU(device string, dst *net.IPNet, mtu int) error
}

// InterfaceInfo resolves a device name to its configured MTU.
type InterfaceInfo interface {
	MTU(device string) (int, error)
}

// SessionTable finds the local source address of an active flow toward a
// peer. ok=false is not an error; the route lookup proceeds without a
// source hint.
type SessionTable interface {
	LocalSource(peer net.IP, peerPort, localPort int) (src net.IP, ok bool)
}
