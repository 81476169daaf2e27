package config

import (
	"encoding/base64"
	"net"
	"strconv"

	"github.com/aurabx/wgagentd/internal/werrors"
)

// MARK: validate
func (c *Config) validate() error {
	for name, network := range c.Networks {
		if err := network.validate(); err != nil {
			return werrors.Wrap(werrors.Config, "network '"+name+"'", err)
		}
	}
	return nil
}

// MARK: validate
func (n *NetworkConfig) validate() error {
	if err := validateInterfaceName(n.Interface); err != nil {
		return err
	}
	if err := validateMTU(n.MTU); err != nil {
		return err
	}
	if n.PrivateKeyPath == "" {
		return werrors.New(werrors.Config, "private_key_path must be set")
	}
	for _, dns := range n.DNS {
		if net.ParseIP(dns) == nil {
			return werrors.New(werrors.Config, "invalid dns server: "+dns)
		}
	}
	if n.Address != "" {
		if _, _, err := net.ParseCIDR(n.Address); err != nil {
			return werrors.Wrap(werrors.Config, "invalid address "+n.Address, err)
		}
	}
	for _, peer := range n.Peers {
		if err := peer.validate(); err != nil {
			return err
		}
	}
	return nil
}

// MARK: validate
func (p *PeerConfig) validate() error {
	if p.Name == "" {
		return werrors.New(werrors.Config, "peer missing name")
	}
	if err := validatePublicKey(p.PublicKey); err != nil {
		return werrors.Wrap(werrors.Config, "peer "+p.Name, err)
	}
	if p.Endpoint != "" {
		if err := validateEndpoint(p.Endpoint); err != nil {
			return werrors.Wrap(werrors.Config, "peer "+p.Name, err)
		}
	}
	if len(p.AllowedIPs) == 0 {
		return werrors.New(werrors.Config, "peer "+p.Name+" must have at least one allowed_ip")
	}
	for _, ip := range p.AllowedIPs {
		if _, _, err := net.ParseCIDR(ip); err != nil {
			return werrors.Wrap(werrors.Config, "peer "+p.Name+" allowed_ip "+ip, err)
		}
	}
	if err := validateKeepalive(p.PersistentKeepaliveInt); err != nil {
		return werrors.Wrap(werrors.Config, "peer "+p.Name, err)
	}
	if p.PresharedKey != "" {
		decoded, err := base64.StdEncoding.DecodeString(p.PresharedKey)
		if err != nil {
			return werrors.Wrap(werrors.Config, "peer "+p.Name+" invalid preshared_key encoding", err)
		}
		if len(decoded) != 32 {
			return werrors.New(werrors.Config, "peer "+p.Name+" preshared_key must decode to 32 bytes")
		}
	}
	return nil
}

// MARK: validateInterfaceName
func validateInterfaceName(name string) error {
	if name == "" {
		return werrors.New(werrors.Config, "interface name must not be empty")
	}
	if len(name) > 15 {
		return werrors.New(werrors.Config, "interface name too long: "+name)
	}
	return nil
}

// MARK: validateMTU
func validateMTU(mtu int) error {
	if mtu < minMTU || mtu > maxMTU {
		return werrors.New(werrors.Config, "mtu out of range ["+strconv.Itoa(minMTU)+","+strconv.Itoa(maxMTU)+"]: "+strconv.Itoa(mtu))
	}
	return nil
}

// MARK: validatePublicKey
func validatePublicKey(key string) error {
	decoded, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return werrors.Wrap(werrors.Config, "invalid public_key encoding", err)
	}
	if len(decoded) != 32 {
		return werrors.New(werrors.Config, "public_key must decode to 32 bytes")
	}
	return nil
}

// MARK: validateEndpoint
func validateEndpoint(endpoint string) error {
	host, port, err := net.SplitHostPort(endpoint)
	if err != nil {
		return werrors.Wrap(werrors.Config, "endpoint must be host:port", err)
	}
	if host == "" {
		return werrors.New(werrors.Config, "endpoint host must not be empty")
	}
	p, err := strconv.Atoi(port)
	if err != nil || p < 1 || p > 65535 {
		return werrors.New(werrors.Config, "invalid endpoint port: "+port)
	}
	return nil
}

// MARK: validateKeepalive
func validateKeepalive(secs int) error {
	if secs == 0 {
		return nil
	}
	if secs < 10 || secs > 300 {
		return werrors.New(werrors.Config, "persistent_keepalive_secs must be 0 or in [10,300]: "+strconv.Itoa(secs))
	}
	return nil
}
