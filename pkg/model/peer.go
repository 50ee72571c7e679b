package model

import "net"

// Peer describes a WireGuard peer as read from the kernel on each pass.
type Peer struct {
	PublicKey  string       `json:"publicKey"`
	Endpoint   *net.UDPAddr `json:"endpoint,omitempty"`
	AllowedIPs []net.IPNet  `json:"allowedIPs"`
}

// HasEndpoint reports whether the peer has ever resolved a remote endpoint.
// Peers reachable only via unsolicited connections have none.
func (p Peer) HasEndpoint() bool {
	return p.Endpoint != nil && p.Endpoint.IP != nil
}

// Device is the tunnel interface the peers hang off.
type Device struct {
	Name       string `json:"name"`
	ListenPort int    `json:"listenPort"`
	MTU        int    `json:"mtu"`
	Peers      []Peer `json:"peers"`
}
