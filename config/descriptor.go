package config

import (
	"encoding/base64"
	"net"
	"net/netip"

	"github.com/aurabx/wgagentd/internal/keys"
	"github.com/aurabx/wgagentd/internal/tunnel"
	"github.com/aurabx/wgagentd/internal/werrors"
)

// MARK: ToDescriptor
// Loads the network's private key from disk and resolves every peer's
// public key, endpoint, and allowed CIDRs into the runtime types the
// tunnel package consumes. This is the only place config's string-typed
// fields become the core's strict types.
func (n NetworkConfig) ToDescriptor(name string) (tunnel.Descriptor, error) {
	keyPair, err := keys.LoadKeyPairFile(n.PrivateKeyPath)
	if err != nil {
		return tunnel.Descriptor{}, werrors.Wrap(werrors.Config, "loading key pair for network "+name, err)
	}

	peers := make([]tunnel.PeerDescriptor, 0, len(n.Peers))
	for _, p := range n.Peers {
		desc, err := p.toPeerDescriptor()
		if err != nil {
			return tunnel.Descriptor{}, err
		}
		peers = append(peers, desc)
	}

	return tunnel.Descriptor{
		Name:       name,
		Interface:  n.Interface,
		MTU:        n.MTU,
		ListenPort: n.ListenPort,
		Address:    n.Address,
		DNS:        n.DNS,
		KeyPair:    keyPair,
		Peers:      peers,
	}, nil
}

func (p PeerConfig) toPeerDescriptor() (tunnel.PeerDescriptor, error) {
	pub, err := keys.ParsePublicKeyBase64(p.PublicKey)
	if err != nil {
		return tunnel.PeerDescriptor{}, werrors.Wrap(werrors.Config, "parsing public key for peer "+p.Name, err)
	}

	var endpoint *net.UDPAddr
	if p.Endpoint != "" {
		endpoint, err = net.ResolveUDPAddr("udp", p.Endpoint)
		if err != nil {
			return tunnel.PeerDescriptor{}, werrors.Wrap(werrors.Config, "resolving endpoint for peer "+p.Name, err)
		}
	}

	cidrs := make([]netip.Prefix, 0, len(p.AllowedIPs))
	for _, raw := range p.AllowedIPs {
		prefix, err := netip.ParsePrefix(raw)
		if err != nil {
			return tunnel.PeerDescriptor{}, werrors.Wrap(werrors.Config, "parsing allowed_ips for peer "+p.Name, err)
		}
		cidrs = append(cidrs, prefix)
	}

	var psk []byte
	if p.PresharedKey != "" {
		psk, err = base64.StdEncoding.DecodeString(p.PresharedKey)
		if err != nil {
			return tunnel.PeerDescriptor{}, werrors.Wrap(werrors.Config, "parsing preshared_key for peer "+p.Name, err)
		}
	}

	return tunnel.PeerDescriptor{
		Name:             p.Name,
		PublicKey:        pub,
		Endpoint:         endpoint,
		AllowedCIDRs:     cidrs,
		KeepaliveSeconds: p.PersistentKeepaliveInt,
		PresharedKey:     psk,
	}, nil
}
