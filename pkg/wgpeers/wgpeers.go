// Package wgpeers reads the peer set of a WireGuard interface through the
// kernel's wgctrl interface. The registry is read fresh on every pass and
// never mutated.
package wgpeers

import (
	"fmt"

	"golang.zx2c4.com/wireguard/wgctrl"

	"wg-pmtud/pkg/model"
)

// Registry lists peers of one tunnel interface.
type Registry struct {
	linkMTU func(device string) (int, error)
}

// New builds a registry; linkMTU supplies the tunnel interface MTU, which
// wgctrl itself does not expose.
func New(linkMTU func(device string) (int, error)) *Registry {
	return &Registry{linkMTU: linkMTU}
}

// Device returns the tunnel device with its current peers and MTU.
func (r *Registry) Device(iface string) (model.Device, error) {
	client, err := wgctrl.New()
	if err != nil {
		return model.Device{}, fmt.Errorf("wgctrl: %w", err)
	}
	defer client.Close()

	dev, err := client.Device(iface)
	if err != nil {
		return model.Device{}, fmt.Errorf("wireguard device %s: %w", iface, err)
	}
	mtu, err := r.linkMTU(iface)
	if err != nil {
		return model.Device{}, fmt.Errorf("tunnel mtu: %w", err)
	}

	out := model.Device{
		Name:       dev.Name,
		ListenPort: dev.ListenPort,
		MTU:        mtu,
		Peers:      make([]model.Peer, 0, len(dev.Peers)),
	}
	for _, p := range dev.Peers {
		out.Peers = append(out.Peers, model.Peer{
			PublicKey:  p.PublicKey.String(),
			Endpoint:   p.Endpoint,
			AllowedIPs: p.AllowedIPs,
		})
	}
	return out, nil
}
