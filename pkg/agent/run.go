// Package agent drives one reconciliation pass: peers in, route-MTU
// mutations out. It owns no state between passes; everything is re-read
// from the kernel each time.
package agent

import (
	"errors"
	"fmt"
	"log"
	"net"
	"time"

	"wg-pmtud/pkg/model"
	"wg-pmtud/pkg/mtu"
	"wg-pmtud/pkg/netutil"
)

// PeerSource enumerates the tunnel device and its peers.
type PeerSource interface {
	Device(iface string) (model.Device, error)
}

// Runner wires the decision core to its collaborators. Events, when set,
// receives every applied mutation (used by the websocket hub and journal).
type Runner struct {
	Iface    string
	Registry PeerSource
	Routes   mtu.RouteTable
	Links    mtu.InterfaceInfo
	Sessions mtu.SessionTable
	Events   func(model.RouteChange)
}

// RunOnce walks every peer of the tunnel interface exactly once. Per-peer
// and per-destination failures are logged, counted in the report and
// skipped; the pass itself only fails when the peer registry is unusable.
func (r *Runner) RunOnce() (model.RunReport, error) {
	started := time.Now()
	dev, err := r.Registry.Device(r.Iface)
	if err != nil {
		return model.RunReport{}, fmt.Errorf("list peers: %w", err)
	}

	report := model.RunReport{
		Interface: dev.Name,
		TunnelMTU: dev.MTU,
		Started:   started,
	}
	for _, peer := range dev.Peers {
		pr, failed := r.runPeer(dev, peer, &report)
		if failed {
			report.PeerErrors++
		}
		report.Peers = append(report.Peers, pr)
	}
	report.Duration = time.Since(started)
	log.Printf("pass done iface=%s peers=%d changes=%d errors=%d took=%s",
		dev.Name, len(report.Peers), len(report.Changes), report.PeerErrors, report.Duration)
	return report, nil
}

const (
	reasonNoEndpoint = "no known endpoint"
	reasonIPv4       = "ipv4 endpoint"
)

// runPeer handles one peer and reports whether it counts as a failure
// (routine skips for endpoint-less or IPv4 peers do not).
func (r *Runner) runPeer(dev model.Device, peer model.Peer, report *model.RunReport) (model.PeerReport, bool) {
	pr := model.PeerReport{Peer: shortKey(peer.PublicKey)}
	if !peer.HasEndpoint() {
		pr.Outcome = model.PeerSkipped
		pr.Reason = reasonNoEndpoint
		return pr, false
	}
	ep := peer.Endpoint
	if ep.IP.To4() != nil {
		// IPv4 paths keep enough headroom under the tunnel's assumption;
		// only IPv6 endpoints are reconciled.
		pr.Outcome = model.PeerSkipped
		pr.Reason = reasonIPv4
		pr.Endpoint = ep.String()
		return pr, false
	}
	pr.Endpoint = netutil.ExpandIPv6(ep.IP.String())

	var src net.IP
	if s, ok := r.Sessions.LocalSource(ep.IP, ep.Port, dev.ListenPort); ok {
		src = s
	}

	info, err := mtu.ResolvePath(r.Routes, r.Links, ep.IP, src)
	switch {
	case errors.Is(err, mtu.ErrUnreachable):
		log.Printf("peer %s endpoint %s unreachable, skipping", pr.Peer, pr.Endpoint)
		pr.Outcome = model.PeerUnreachable
		pr.Reason = err.Error()
		return pr, true
	case err != nil:
		log.Printf("peer %s path resolve failed: %v", pr.Peer, err)
		pr.Outcome = model.PeerSkipped
		pr.Reason = err.Error()
		return pr, true
	}
	pr.EgressDev = info.Device
	pr.PathMTU = mtu.EffectivePathMTU(info.PMTU, info.DeviceMTU)
	pr.PmtuCached = info.Cached

	target, need := mtu.Target(dev.MTU, info.PMTU, info.DeviceMTU)
	if need {
		pr.TargetMTU = target
	}

	res := mtu.Reconcile(r.Routes, dev.Name, peer.AllowedIPs, target, need)
	pr.Unchanged = res.Unchanged
	pr.DestErrors = res.Errors
	pr.Changed = len(res.Changed)
	for _, ch := range res.Changed {
		rec := model.RouteChange{
			Peer:        pr.Peer,
			Destination: ch.Dst.String(),
			Device:      dev.Name,
			OldMTU:      ch.OldMTU,
			NewMTU:      ch.NewMTU,
			Time:        time.Now(),
		}
		log.Printf("route %s dev %s mtu %d -> %d (peer %s)",
			rec.Destination, rec.Device, rec.OldMTU, rec.NewMTU, rec.Peer)
		report.Changes = append(report.Changes, rec)
		if r.Events != nil {
			r.Events(rec)
		}
	}
	if pr.Changed > 0 {
		pr.Outcome = model.PeerUpdated
	} else {
		pr.Outcome = model.PeerUnchanged
	}
	return pr, false
}

func shortKey(pub string) string {
	if len(pub) > 8 {
		return pub[:8]
	}
	return pub
}
