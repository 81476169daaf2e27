// Package osnet implements the OS abstraction the core consumes for
// everything beyond TUN packet I/O: addresses, routes, DNS, interface
// up/down, and the privilege check the tunnel orchestrator runs before
// touching any of it. Routes and addresses go through netlink, the
// same library the teacher already depends on; DNS has no netlink
// facility on Linux, so it shells out to resolvectl the way the
// teacher's own tuntap.go shells out to platform tools for the
// operations netlink doesn't cover.
package osnet

import (
	"net"
	"os"
	"os/exec"
	"strings"

	"github.com/aurabx/wgagentd/internal/ostun"
	"github.com/aurabx/wgagentd/internal/tunnel"
	"github.com/aurabx/wgagentd/internal/werrors"
	"github.com/vishvananda/netlink"
)

// Linux implements the tunnel package's OS interface.
type Linux struct{}

// MARK: New
func New() *Linux {
	return &Linux{}
}

// MARK: CreateTUN
// Delegates to the ostun package, which owns water.Interface creation;
// Linux bundles it here so a single value satisfies the tunnel
// package's OS interface in full.
func (l *Linux) CreateTUN(name string, mtu int) (tunnel.TUNDevice, error) {
	return ostun.Create(name, mtu)
}

// MARK: SetInterfaceUp
func (l *Linux) SetInterfaceUp(name string) error {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return werrors.Wrap(werrors.Platform, "finding interface "+name, err)
	}
	if err := netlink.LinkSetUp(link); err != nil {
		return werrors.Wrap(werrors.Platform, "bringing up interface "+name, err)
	}
	return nil
}

// MARK: SetInterfaceDown
func (l *Linux) SetInterfaceDown(name string) error {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return werrors.Wrap(werrors.Platform, "finding interface "+name, err)
	}
	if err := netlink.LinkSetDown(link); err != nil {
		return werrors.Wrap(werrors.Platform, "bringing down interface "+name, err)
	}
	return nil
}

// MARK: SetMTU
func (l *Linux) SetMTU(name string, mtu int) error {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return werrors.Wrap(werrors.Platform, "finding interface "+name, err)
	}
	if err := netlink.LinkSetMTU(link, mtu); err != nil {
		return werrors.Wrap(werrors.Platform, "setting mtu on "+name, err)
	}
	return nil
}

// MARK: SetAddress
func (l *Linux) SetAddress(name, cidr string) error {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return werrors.Wrap(werrors.Platform, "finding interface "+name, err)
	}
	ip, ipnet, err := net.ParseCIDR(cidr)
	if err != nil {
		return werrors.Wrap(werrors.Config, "parsing address "+cidr, err)
	}
	addr := &netlink.Addr{IPNet: &net.IPNet{IP: ip, Mask: ipnet.Mask}}
	if err := netlink.AddrAdd(link, addr); err != nil {
		if strings.Contains(err.Error(), "file exists") {
			return nil
		}
		return werrors.Wrap(werrors.Platform, "adding address "+cidr+" to "+name, err)
	}
	return nil
}

// MARK: AddRoutes
func (l *Linux) AddRoutes(name string, cidrs []string) error {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return werrors.Wrap(werrors.Platform, "finding interface "+name, err)
	}
	for _, cidr := range cidrs {
		_, dst, err := net.ParseCIDR(cidr)
		if err != nil {
			return werrors.Wrap(werrors.Config, "parsing route "+cidr, err)
		}
		route := &netlink.Route{LinkIndex: link.Attrs().Index, Dst: dst}
		if err := netlink.RouteAdd(route); err != nil {
			if strings.Contains(err.Error(), "file exists") {
				continue
			}
			return werrors.Wrap(werrors.Platform, "adding route "+cidr+" via "+name, err)
		}
	}
	return nil
}

// MARK: RemoveRoutes
func (l *Linux) RemoveRoutes(name string, cidrs []string) error {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return nil // interface already gone; nothing to remove routes from
	}
	for _, cidr := range cidrs {
		_, dst, err := net.ParseCIDR(cidr)
		if err != nil {
			continue
		}
		route := &netlink.Route{LinkIndex: link.Attrs().Index, Dst: dst}
		if err := netlink.RouteDel(route); err != nil && !strings.Contains(err.Error(), "no such process") {
			return werrors.Wrap(werrors.Platform, "removing route "+cidr+" via "+name, err)
		}
	}
	return nil
}

// MARK: ConfigureDNS
func (l *Linux) ConfigureDNS(name string, servers []string) error {
	if len(servers) == 0 {
		return nil
	}
	args := append([]string{"dns", name}, servers...)
	if out, err := exec.Command("resolvectl", args...).CombinedOutput(); err != nil {
		return werrors.Wrap(werrors.Platform, "configuring dns via resolvectl: "+string(out), err)
	}
	return nil
}

// MARK: RemoveDNS
func (l *Linux) RemoveDNS(name string) error {
	if out, err := exec.Command("resolvectl", "revert", name).CombinedOutput(); err != nil {
		return werrors.Wrap(werrors.Platform, "reverting dns via resolvectl: "+string(out), err)
	}
	return nil
}

// MARK: DestroyInterface
// TUN destruction happens implicitly when the device's file descriptor
// is closed; this only handles the (rare) case where a caller asked us
// to destroy an interface we did not create via TUN (e.g. stale state
// from a previous crash).
func (l *Linux) DestroyInterface(name string) error {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return nil
	}
	return netlink.LinkDel(link)
}

// MARK: CheckCapabilities
// Returns the list of missing capabilities, empty meaning OK. Mirrors
// the privilege check the Rust prototype's platform::linux module runs
// before creating any interface.
func (l *Linux) CheckCapabilities() []string {
	var missing []string
	if os.Geteuid() != 0 {
		missing = append(missing, "NET_ADMIN capability required (process is not running as root)")
	}
	return missing
}
