// Package routetable adapts the kernel routing tables (via rtnetlink) to
// the ports consumed by the MTU core. It is the only package allowed to
// mutate routes, and the only mutation it performs is the MTU metric.
package routetable

import (
	"fmt"
	"net"

	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"

	"wg-pmtud/pkg/mtu"
)

// Table implements mtu.RouteTable and mtu.InterfaceInfo.
type Table struct{}

func New() Table { return Table{} }

// Lookup asks the kernel which route a packet to dst would take. A source
// hint is passed when available because some setups only carry routes with
// an explicit source selector.
func (Table) Lookup(dst net.IP, src net.IP) (mtu.Route, error) {
	var (
		routes []netlink.Route
		err    error
	)
	if src != nil {
		routes, err = netlink.RouteGetWithOptions(dst, &netlink.RouteGetOptions{SrcAddr: src})
	} else {
		routes, err = netlink.RouteGet(dst)
	}
	if err != nil {
		return mtu.Route{}, fmt.Errorf("%w: %v", mtu.ErrUnreachable, err)
	}
	if len(routes) == 0 {
		return mtu.Route{}, mtu.ErrUnreachable
	}
	r := routes[0]
	link, err := netlink.LinkByIndex(r.LinkIndex)
	if err != nil {
		return mtu.Route{}, fmt.Errorf("link index %d: %w", r.LinkIndex, err)
	}
	return mtu.Route{
		Dst:    r.Dst,
		Device: link.Attrs().Name,
		MTU:    r.MTU,
		Cached: r.Flags&unix.RTM_F_CLONED != 0,
	}, nil
}

// List returns the routes for dst scoped to device.
func (Table) List(device string, dst *net.IPNet) ([]mtu.Route, error) {
	raw, err := listRaw(device, dst)
	if err != nil {
		return nil, err
	}
	out := make([]mtu.Route, 0, len(raw))
	for _, r := range raw {
		out = append(out, mtu.Route{Dst: r.Dst, Device: device, MTU: r.MTU})
	}
	return out, nil
}

// SetMTU rewrites the MTU metric on the route for dst. mtu == 0 drops the
// metric entirely. The fetched route is replayed unchanged otherwise, so
// nexthop, priority and the rest survive the replace. Negative values are
// refused here: the netlink library only serializes positive metrics, so a
// negative value would silently turn into a clear instead of an error.
func (Table) SetMTU(device string, dst *net.IPNet, mtuValue int) error {
	if mtuValue < 0 {
		return fmt.Errorf("mtu %d out of range", mtuValue)
	}
	raw, err := listRaw(device, dst)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return fmt.Errorf("no route for %s on %s", dst, device)
	}
	route := raw[0]
	route.MTU = mtuValue
	if err := netlink.RouteChange(&route); err != nil {
		return fmt.Errorf("route change %s mtu=%d: %w", dst, mtuValue, err)
	}
	return nil
}

// MTU reads the configured MTU of a device.
func (Table) MTU(device string) (int, error) {
	link, err := netlink.LinkByName(device)
	if err != nil {
		return 0, fmt.Errorf("link %s: %w", device, err)
	}
	return link.Attrs().MTU, nil
}

func listRaw(device string, dst *net.IPNet) ([]netlink.Route, error) {
	link, err := netlink.LinkByName(device)
	if err != nil {
		return nil, fmt.Errorf("link %s: %w", device, err)
	}
	family := netlink.FAMILY_V6
	if dst.IP.To4() != nil {
		family = netlink.FAMILY_V4
	}
	filter := &netlink.Route{LinkIndex: link.Attrs().Index, Dst: dst}
	routes, err := netlink.RouteListFiltered(family, filter, netlink.RT_FILTER_OIF|netlink.RT_FILTER_DST)
	if err != nil {
		return nil, fmt.Errorf("route list %s on %s: %w", dst, device, err)
	}
	return routes, nil
}
