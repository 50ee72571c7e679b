package mtu

import (
	"fmt"
	"net"
)

// fakeTable is an in-memory RouteTable/InterfaceInfo for exercising the
// core without netlink.
type fakeTable struct {
	lookup    map[string]Route // endpoint string -> route
	overrides map[string]int   // "device dst" -> current override
	present   map[string]bool
	linkMTU   map[string]int
	setCalls  int
	lastSrc   net.IP
}

func newFakeTable() *fakeTable {
	return &fakeTable{
		lookup:    map[string]Route{},
		overrides: map[string]int{},
		present:   map[string]bool{},
		linkMTU:   map[string]int{},
	}
}

func key(device string, dst *net.IPNet) string { return device + " " + dst.String() }

func (f *fakeTable) addDest(device, cidr string, mtu int) net.IPNet {
	_, ipnet, err := net.ParseCIDR(cidr)
	if err != nil {
		panic(err)
	}
	f.present[key(device, ipnet)] = true
	if mtu > 0 {
		f.overrides[key(device, ipnet)] = mtu
	}
	return *ipnet
}

func (f *fakeTable) Lookup(dst net.IP, src net.IP) (Route, error) {
	f.lastSrc = src
	r, ok := f.lookup[dst.String()]
	if !ok {
		return Route{}, ErrUnreachable
	}
	return r, nil
}

func (f *fakeTable) List(device string, dst *net.IPNet) ([]Route, error) {
	if !f.present[key(device, dst)] {
		return nil, nil
	}
	return []Route{{Dst: dst, Device: device, MTU: f.overrides[key(device, dst)]}}, nil
}

func (f *fakeTable) SetMTU(device string, dst *net.IPNet, mtu int) error {
	f.setCalls++
	if !f.present[key(device, dst)] {
		return fmt.Errorf("destination vanished")
	}
	if mtu < 0 {
		return fmt.Errorf("invalid mtu %d", mtu)
	}
	if mtu == 0 {
		delete(f.overrides, key(device, dst))
		return nil
	}
	f.overrides[key(device, dst)] = mtu
	return nil
}

func (f *fakeTable) MTU(device string) (int, error) {
	mtu, ok := f.linkMTU[device]
	if !ok {
		return 0, fmt.Errorf("device not found")
	}
	return mtu, nil
}
