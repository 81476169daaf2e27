package tunnel

import (
	"net"
	"net/netip"

	"github.com/aurabx/wgagentd/internal/keys"
	"github.com/aurabx/wgagentd/internal/werrors"
)

// PeerDescriptor is the static, validated configuration for one peer.
// It is immutable once constructed; a PeerSlot holds a copy of one
// alongside the peer's mutable runtime state.
type PeerDescriptor struct {
	Name             string
	PublicKey        keys.PublicKey
	Endpoint         *net.UDPAddr // nil means receive-only
	AllowedCIDRs     []netip.Prefix
	KeepaliveSeconds int
	PresharedKey     []byte // optional, 32 bytes when set
}

// MARK: Validate
func (d *PeerDescriptor) Validate() error {
	if d.Name == "" {
		return werrors.New(werrors.Config, "peer name must not be empty")
	}
	for _, cidr := range d.AllowedCIDRs {
		if !cidr.IsValid() {
			return werrors.New(werrors.Config, "peer "+d.Name+" has an invalid allowed CIDR")
		}
		bits := cidr.Bits()
		if cidr.Addr().Is4() && bits > 32 {
			return werrors.New(werrors.Config, "peer "+d.Name+" allowed CIDR prefix exceeds /32 for IPv4")
		}
		if cidr.Addr().Is6() && bits > 128 {
			return werrors.New(werrors.Config, "peer "+d.Name+" allowed CIDR prefix exceeds /128 for IPv6")
		}
	}
	if d.KeepaliveSeconds != 0 && (d.KeepaliveSeconds < 10 || d.KeepaliveSeconds > 300) {
		return werrors.New(werrors.Config, "peer "+d.Name+" keepalive_seconds must be 0 or in [10,300]")
	}
	if d.PresharedKey != nil && len(d.PresharedKey) != 32 {
		return werrors.New(werrors.Config, "peer "+d.Name+" preshared_key must be 32 bytes")
	}
	return nil
}
