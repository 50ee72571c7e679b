package agent

import (
	"fmt"
	"net"
	"testing"

	"wg-pmtud/pkg/model"
	"wg-pmtud/pkg/mtu"
)

type fakeRegistry struct{ dev model.Device }

func (f fakeRegistry) Device(string) (model.Device, error) { return f.dev, nil }

type fakeSessions struct {
	src       net.IP
	lastQuery string
}

func (f *fakeSessions) LocalSource(peer net.IP, peerPort, localPort int) (net.IP, bool) {
	f.lastQuery = fmt.Sprintf("%s %d %d", peer, peerPort, localPort)
	return f.src, f.src != nil
}

type fakeKernel struct {
	lookup    map[string]mtu.Route
	linkMTU   map[string]int
	overrides map[string]int
	present   map[string]bool
	lastSrc   net.IP
}

func newFakeKernel() *fakeKernel {
	return &fakeKernel{
		lookup:    map[string]mtu.Route{},
		linkMTU:   map[string]int{},
		overrides: map[string]int{},
		present:   map[string]bool{},
	}
}

func (f *fakeKernel) Lookup(dst, src net.IP) (mtu.Route, error) {
	f.lastSrc = src
	r, ok := f.lookup[dst.String()]
	if !ok {
		return mtu.Route{}, mtu.ErrUnreachable
	}
	return r, nil
}

func (f *fakeKernel) List(device string, dst *net.IPNet) ([]mtu.Route, error) {
	if !f.present[device+" "+dst.String()] {
		return nil, nil
	}
	return []mtu.Route{{Dst: dst, Device: device, MTU: f.overrides[device+" "+dst.String()]}}, nil
}

func (f *fakeKernel) SetMTU(device string, dst *net.IPNet, m int) error {
	k := device + " " + dst.String()
	if !f.present[k] {
		return fmt.Errorf("no such route")
	}
	if m == 0 {
		delete(f.overrides, k)
	} else {
		f.overrides[k] = m
	}
	return nil
}

func (f *fakeKernel) MTU(device string) (int, error) {
	m, ok := f.linkMTU[device]
	if !ok {
		return 0, fmt.Errorf("device not found")
	}
	return m, nil
}

func (f *fakeKernel) route(device, cidr string) net.IPNet {
	_, ipnet, err := net.ParseCIDR(cidr)
	if err != nil {
		panic(err)
	}
	f.present[device+" "+ipnet.String()] = true
	return *ipnet
}

func peerWith(pub, endpoint string, port int, allowed ...net.IPNet) model.Peer {
	p := model.Peer{PublicKey: pub, AllowedIPs: allowed}
	if endpoint != "" {
		p.Endpoint = &net.UDPAddr{IP: net.ParseIP(endpoint), Port: port}
	}
	return p
}

func TestRunOnceAppliesOverride(t *testing.T) {
	k := newFakeKernel()
	k.lookup["2001:db8::1"] = mtu.Route{Device: "eth0", MTU: 1400, Cached: true}
	k.linkMTU["eth0"] = 1500
	dst := k.route("wg0", "2001:db8:10::/64")

	dev := model.Device{Name: "wg0", ListenPort: 51820, MTU: 1420,
		Peers: []model.Peer{peerWith("peerAkey1234", "2001:db8::1", 51821, dst)}}

	var events []model.RouteChange
	r := &Runner{
		Iface: "wg0", Registry: fakeRegistry{dev}, Routes: k, Links: k,
		Sessions: &fakeSessions{}, Events: func(c model.RouteChange) { events = append(events, c) },
	}
	rep, err := r.RunOnce()
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.Changes) != 1 || rep.Changes[0].NewMTU != 1320 {
		t.Fatalf("changes = %+v", rep.Changes)
	}
	if len(events) != 1 {
		t.Fatalf("events = %+v", events)
	}
	if got := k.overrides["wg0 2001:db8:10::/64"]; got != 1320 {
		t.Fatalf("override = %d, want 1320", got)
	}
	if rep.Peers[0].Outcome != model.PeerUpdated || rep.Peers[0].TargetMTU != 1320 {
		t.Fatalf("peer report = %+v", rep.Peers[0])
	}

	// second pass with unchanged kernel state must be a no-op
	rep2, err := r.RunOnce()
	if err != nil {
		t.Fatal(err)
	}
	if len(rep2.Changes) != 0 || rep2.Peers[0].Outcome != model.PeerUnchanged {
		t.Fatalf("second pass mutated: %+v", rep2)
	}
}

func TestRunOnceClearsWhenTunnelCarriesFullSize(t *testing.T) {
	k := newFakeKernel()
	// no cached PMTU, wide local link: 1500-80=1420, not < 1420
	k.lookup["2001:db8::1"] = mtu.Route{Device: "eth0"}
	k.linkMTU["eth0"] = 1500
	dst := k.route("wg0", "2001:db8:10::/64")
	k.overrides["wg0 "+dst.String()] = 1320 // stale override from an earlier pass

	dev := model.Device{Name: "wg0", MTU: 1420,
		Peers: []model.Peer{peerWith("peerAkey1234", "2001:db8::1", 51821, dst)}}
	r := &Runner{Iface: "wg0", Registry: fakeRegistry{dev}, Routes: k, Links: k, Sessions: &fakeSessions{}}

	rep, err := r.RunOnce()
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.Changes) != 1 || rep.Changes[0].NewMTU != 0 || rep.Changes[0].OldMTU != 1320 {
		t.Fatalf("changes = %+v", rep.Changes)
	}
	if _, still := k.overrides["wg0 "+dst.String()]; still {
		t.Fatal("stale override not cleared")
	}
	if rep.Peers[0].TargetMTU != 0 {
		t.Fatalf("peer report = %+v", rep.Peers[0])
	}
}

func TestRunOnceUnreachablePeerDoesNotStopPass(t *testing.T) {
	k := newFakeKernel()
	k.lookup["2001:db8::2"] = mtu.Route{Device: "eth0", MTU: 1400}
	k.linkMTU["eth0"] = 1500
	dstA := k.route("wg0", "2001:db8:a::/64")
	dstB := k.route("wg0", "2001:db8:b::/64")

	dev := model.Device{Name: "wg0", MTU: 1420, Peers: []model.Peer{
		peerWith("unreachable1", "2001:db8::dead", 51821, dstA),
		peerWith("reachable123", "2001:db8::2", 51821, dstB),
	}}
	r := &Runner{Iface: "wg0", Registry: fakeRegistry{dev}, Routes: k, Links: k, Sessions: &fakeSessions{}}

	rep, err := r.RunOnce()
	if err != nil {
		t.Fatal(err)
	}
	if rep.PeerErrors != 1 {
		t.Fatalf("peerErrors = %d, want 1", rep.PeerErrors)
	}
	if rep.Peers[0].Outcome != model.PeerUnreachable {
		t.Fatalf("first peer = %+v", rep.Peers[0])
	}
	if _, touched := k.overrides["wg0 "+dstA.String()]; touched {
		t.Fatal("unreachable peer's destination was mutated")
	}
	if got := k.overrides["wg0 "+dstB.String()]; got != 1320 {
		t.Fatalf("second peer not reconciled, override = %d", got)
	}
}

func TestRunOnceSkipsEndpointlessAndIPv4Peers(t *testing.T) {
	k := newFakeKernel()
	dev := model.Device{Name: "wg0", MTU: 1420, Peers: []model.Peer{
		peerWith("noendpoint12", "", 0),
		peerWith("v4endpoint12", "203.0.113.7", 51821),
	}}
	r := &Runner{Iface: "wg0", Registry: fakeRegistry{dev}, Routes: k, Links: k, Sessions: &fakeSessions{}}

	rep, err := r.RunOnce()
	if err != nil {
		t.Fatal(err)
	}
	if rep.PeerErrors != 0 {
		t.Fatalf("routine skips counted as errors: %+v", rep)
	}
	for _, pr := range rep.Peers {
		if pr.Outcome != model.PeerSkipped {
			t.Fatalf("peer %s outcome = %s", pr.Peer, pr.Outcome)
		}
	}
}

func TestRunOncePassesSessionSourceHint(t *testing.T) {
	k := newFakeKernel()
	k.lookup["2001:db8::1"] = mtu.Route{Device: "eth0"}
	k.linkMTU["eth0"] = 1500
	dst := k.route("wg0", "2001:db8:10::/64")

	src := net.ParseIP("2001:db8:f00::5")
	sessions := &fakeSessions{src: src}
	dev := model.Device{Name: "wg0", ListenPort: 51820, MTU: 1420,
		Peers: []model.Peer{peerWith("peerAkey1234", "2001:db8::1", 51821, dst)}}
	r := &Runner{Iface: "wg0", Registry: fakeRegistry{dev}, Routes: k, Links: k, Sessions: sessions}

	if _, err := r.RunOnce(); err != nil {
		t.Fatal(err)
	}
	if !k.lastSrc.Equal(src) {
		t.Fatalf("route lookup got src %v, want %v", k.lastSrc, src)
	}
	if sessions.lastQuery != "2001:db8::1 51821 51820" {
		t.Fatalf("session query = %q", sessions.lastQuery)
	}
}
