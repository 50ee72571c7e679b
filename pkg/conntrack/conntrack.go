// Package conntrack resolves the local source address of the UDP session
// toward a peer by scanning the kernel connection-tracking table.
package conntrack

import (
	"log"
	"net"

	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
)

// Sessions implements mtu.SessionTable over nf_conntrack.
type Sessions struct{}

func New() Sessions { return Sessions{} }

// LocalSource scans IPv6 UDP flows for one that matches the peer in either
// direction and returns our end of it. First match wins; the table holds at
// most one active flow per peer/port tuple in steady state. No match is not
// an error: the route lookup is then attempted without a hint.
func (Sessions) LocalSource(peer net.IP, peerPort, localPort int) (net.IP, bool) {
	flows, err := netlink.ConntrackTableList(netlink.ConntrackTable, unix.AF_INET6)
	if err != nil {
		log.Printf("conntrack list failed: %v", err)
		return nil, false
	}
	for _, f := range flows {
		if src, ok := flowLocalSource(f, peer, peerPort, localPort); ok {
			return src, true
		}
	}
	return nil, false
}

// flowLocalSource returns our end of a UDP flow matching the peer and port
// pair in either orientation.
func flowLocalSource(f *netlink.ConntrackFlow, peer net.IP, peerPort, localPort int) (net.IP, bool) {
	if f.Forward.Protocol != unix.IPPROTO_UDP {
		return nil, false
	}
	// outbound flow: peer recorded as destination, we hold the source port
	if peer.Equal(f.Forward.DstIP) &&
		int(f.Forward.DstPort) == peerPort && int(f.Forward.SrcPort) == localPort {
		return f.Forward.SrcIP, true
	}
	// inbound flow: peer recorded as source, we hold the destination port
	if peer.Equal(f.Forward.SrcIP) &&
		int(f.Forward.SrcPort) == peerPort && int(f.Forward.DstPort) == localPort {
		return f.Forward.DstIP, true
	}
	return nil, false
}
