package tunnel

import (
	"sync"
	"time"

	"github.com/aurabx/wgagentd/internal"
	"github.com/aurabx/wgagentd/internal/keys"
	"github.com/aurabx/wgagentd/internal/werrors"
)

// State is one of the Tunnel's finite life-cycle states.
type State int

const (
	Uninitialized State = iota
	Starting
	Active
	Stopping
	Stopped
	Error
)

// MARK: String
func (s State) String() string {
	switch s {
	case Starting:
		return "starting"
	case Active:
		return "active"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	case Error:
		return "error"
	default:
		return "uninitialized"
	}
}

const healthyWindow = 180 * time.Second

// Descriptor is the validated configuration a Tunnel is built from —
// one named network's worth of interface/address/peer settings.
type Descriptor struct {
	Name       string
	Interface  string
	MTU        int
	ListenPort int
	Address    string
	DNS        []string
	KeyPair    *keys.KeyPair
	Peers      []PeerDescriptor
}

// PeerStatus summarizes one peer for a status snapshot.
type PeerStatus struct {
	Name    string
	Healthy bool
}

// Snapshot is the structured result Supervisor.Status returns.
type Snapshot struct {
	State     State
	Interface string
	Total     int
	Active    int
	Healthy   int
	Names     []string
	TxBytes   uint64
	RxBytes   uint64
}

// Tunnel is the life-cycle wrapper around a Device: it validates
// configuration, acquires OS resources, installs peers, and tears down
// symmetrically, exposing aggregated stats and a finite state machine.
type Tunnel struct {
	mu     sync.Mutex
	state  State
	desc   Descriptor
	device *Device
	os     OS
	logger *internal.Logger
}

// MARK: NewTunnel
func NewTunnel(desc Descriptor, osAbstraction OS, logger *internal.Logger) *Tunnel {
	return &Tunnel{
		state:  Uninitialized,
		desc:   desc,
		os:     osAbstraction,
		logger: logger,
	}
}

// MARK: State
func (t *Tunnel) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// MARK: PeerNames
func (t *Tunnel) PeerNames() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	names := make([]string, 0, len(t.desc.Peers))
	for _, p := range t.desc.Peers {
		names = append(names, p.Name)
	}
	return names
}

// MARK: Stats
func (t *Tunnel) Stats() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Tunnel) snapshotLocked() Snapshot {
	snap := Snapshot{State: t.state, Interface: t.desc.Interface}
	if t.device == nil {
		return snap
	}
	slots := t.device.PeerSnapshot()
	snap.Total = len(slots)
	for _, slot := range slots {
		snap.Active++
		snap.Names = append(snap.Names, slot.Descriptor.Name)
		if slot.Healthy(healthyWindow) {
			snap.Healthy++
		}
	}
	stats := t.device.Stats()
	snap.TxBytes = stats.TxBytes
	snap.RxBytes = stats.RxBytes
	return snap
}

// MARK: Start
// Runs the ordered start sequence from the orchestrator design: enter
// Starting, check capabilities, construct the Device, install routes
// and DNS (soft-fail), enter Active. Capability and Device-construction
// failures move the Tunnel to Error and propagate; route/DNS failures
// are logged and otherwise ignored.
func (t *Tunnel) Start() error {
	t.mu.Lock()
	if t.state != Uninitialized && t.state != Stopped && t.state != Error {
		t.mu.Unlock()
		return werrors.New(werrors.InvalidState, "tunnel "+t.desc.Name+" cannot start from state "+t.state.String())
	}
	t.state = Starting
	t.mu.Unlock()

	if missing := t.os.CheckCapabilities(); len(missing) > 0 {
		t.setState(Error)
		return werrors.New(werrors.Permission, "missing capabilities for "+t.desc.Name+": "+joinStrings(missing))
	}

	device, err := NewDevice(t.os, DeviceConfig{
		Interface:  t.desc.Interface,
		MTU:        t.desc.MTU,
		ListenPort: t.desc.ListenPort,
		KeyPair:    t.desc.KeyPair,
		Peers:      t.desc.Peers,
	}, t.logger)
	if err != nil {
		t.setState(Error)
		return werrors.Wrap(werrors.TunDevice, "constructing device for "+t.desc.Name, err)
	}

	if t.desc.Address != "" {
		if err := t.os.SetAddress(device.Interface(), t.desc.Address); err != nil {
			t.logger.Warn("setting address failed, continuing", "network", t.desc.Name, "error", err)
		}
	}
	if err := t.os.SetInterfaceUp(device.Interface()); err != nil {
		t.logger.Warn("bringing interface up failed, continuing", "network", t.desc.Name, "error", err)
	}

	for _, peer := range t.desc.Peers {
		if len(peer.AllowedCIDRs) == 0 {
			continue
		}
		cidrs := make([]string, 0, len(peer.AllowedCIDRs))
		for _, c := range peer.AllowedCIDRs {
			cidrs = append(cidrs, c.String())
		}
		if err := t.os.AddRoutes(device.Interface(), cidrs); err != nil {
			t.logger.Warn("adding routes failed, continuing", "network", t.desc.Name, "peer", peer.Name, "error", err)
		}
	}

	if len(t.desc.DNS) > 0 {
		if err := t.os.ConfigureDNS(device.Interface(), t.desc.DNS); err != nil {
			t.logger.Warn("configuring dns failed, continuing", "network", t.desc.Name, "error", err)
		}
	}

	t.mu.Lock()
	t.device = device
	t.state = Active
	t.mu.Unlock()
	return nil
}

// MARK: Stop
// Best-effort, symmetric teardown: every step runs even if an earlier
// one failed, so the Tunnel always reaches Stopped.
func (t *Tunnel) Stop() error {
	t.mu.Lock()
	if t.state != Active && t.state != Starting {
		t.mu.Unlock()
		return werrors.New(werrors.InvalidState, "tunnel "+t.desc.Name+" cannot stop from state "+t.state.String())
	}
	t.state = Stopping
	device := t.device
	t.mu.Unlock()

	ifaceName := t.desc.Interface
	if device != nil {
		ifaceName = device.Interface()
		device.Stop()
	}

	if err := t.os.RemoveDNS(ifaceName); err != nil {
		t.logger.Warn("removing dns failed, continuing", "network", t.desc.Name, "error", err)
	}
	for _, peer := range t.desc.Peers {
		if len(peer.AllowedCIDRs) == 0 {
			continue
		}
		cidrs := make([]string, 0, len(peer.AllowedCIDRs))
		for _, c := range peer.AllowedCIDRs {
			cidrs = append(cidrs, c.String())
		}
		if err := t.os.RemoveRoutes(ifaceName, cidrs); err != nil {
			t.logger.Warn("removing routes failed, continuing", "network", t.desc.Name, "peer", peer.Name, "error", err)
		}
	}
	if err := t.os.DestroyInterface(ifaceName); err != nil {
		t.logger.Warn("destroying interface failed, continuing", "network", t.desc.Name, "error", err)
	}

	t.mu.Lock()
	t.device = nil
	t.state = Stopped
	t.mu.Unlock()
	return nil
}

// MARK: Reload
// Implemented as stop followed by start against the new descriptor;
// hot peer-diff is not contracted.
func (t *Tunnel) Reload(desc Descriptor) error {
	t.mu.Lock()
	current := t.state
	t.mu.Unlock()

	if current == Active || current == Starting {
		if err := t.Stop(); err != nil {
			return err
		}
	}

	t.mu.Lock()
	t.desc = desc
	t.mu.Unlock()

	return t.Start()
}

func (t *Tunnel) setState(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

func joinStrings(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "; "
		}
		out += p
	}
	return out
}
