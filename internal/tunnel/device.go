package tunnel

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/aurabx/wgagentd/internal"
	"github.com/aurabx/wgagentd/internal/keys"
	"github.com/aurabx/wgagentd/internal/werrors"
	"github.com/aurabx/wgagentd/internal/wgcrypto"
)

const (
	tunReadBufferSize = 2048
	udpReadBufferSize = 65535
	tunBackoff        = 10 * time.Millisecond
	timerTick         = 250 * time.Millisecond
	stopDeadline      = 5 * time.Second
)

// DeviceConfig bundles everything Device needs to construct its TUN
// handle, UDP socket, and initial peer table.
type DeviceConfig struct {
	Interface  string
	MTU        int
	ListenPort int
	KeyPair    *keys.KeyPair
	Peers      []PeerDescriptor
}

// Stats holds the monotonic counters a Device accumulates over its
// lifetime.
type Stats struct {
	TxBytes   uint64
	RxBytes   uint64
	TxPackets uint64
	RxPackets uint64
	Errors    uint64
}

// command is one entry in the Device's single-consumer mailbox.
type command struct {
	kind       commandKind
	descriptor PeerDescriptor
	publicKey  keys.PublicKey
	done       chan error
}

type commandKind int

const (
	cmdAddPeer commandKind = iota
	cmdRemovePeer
	cmdStop
)

// Device is the per-network I/O engine: it owns a TUN handle and a UDP
// socket exclusively, keyed peer tables, and runs the four cooperating
// goroutines (outbound, inbound, timer, command) described in the
// concurrency model.
type Device struct {
	logger *internal.Logger

	tun  TUNDevice
	udp  *net.UDPConn
	conf DeviceConfig

	// mu guards peersByKey, endpointIndex, and peerOrder together; they
	// are always mutated as one unit, and every Session operation runs
	// with mu held for its whole duration — one exclusive guard per
	// Device, not per-slot, so a slot is never touched by two loops at
	// once (see DESIGN.md).
	mu            sync.Mutex
	peersByKey    map[keys.PublicKey]*PeerSlot
	endpointIndex map[string]keys.PublicKey
	peerOrder     []*PeerSlot // insertion order, for tie-break on outbound selection
	nextIndex     int

	statsMu sync.Mutex
	stats   Stats

	mailbox chan command
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	tunPool *packetBufferPool
	udpPool *packetBufferPool
}

// MARK: NewDevice
// Constructs a Device: creates the TUN handle, binds UDP, seeds the
// peer table, then spawns the four loops. Any failure here releases
// whatever resources were already acquired.
func NewDevice(osAbstraction OS, conf DeviceConfig, logger *internal.Logger) (*Device, error) {
	if len(conf.Peers) == 0 {
		return nil, werrors.New(werrors.Config, "device requires at least one peer")
	}

	tun, err := osAbstraction.CreateTUN(conf.Interface, conf.MTU)
	if err != nil {
		return nil, werrors.Wrap(werrors.TunDevice, "creating tun device", err)
	}

	udpAddr := &net.UDPAddr{IP: net.IPv4zero, Port: conf.ListenPort}
	udp, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		tun.Close()
		return nil, werrors.Wrap(werrors.Platform, "binding udp socket", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Device{
		logger:        logger,
		tun:           tun,
		udp:           udp,
		conf:          conf,
		peersByKey:    make(map[keys.PublicKey]*PeerSlot),
		endpointIndex: make(map[string]keys.PublicKey),
		mailbox:       make(chan command, 64),
		ctx:           ctx,
		cancel:        cancel,
		tunPool:       newPacketBufferPool(128, tunReadBufferSize),
		udpPool:       newPacketBufferPool(128, udpReadBufferSize),
	}

	for _, desc := range conf.Peers {
		if err := desc.Validate(); err != nil {
			d.teardownPartial()
			return nil, err
		}
		if _, err := d.insertPeerLocked(desc); err != nil {
			d.teardownPartial()
			return nil, err
		}
	}

	d.wg.Add(4)
	go d.outboundLoop()
	go d.inboundLoop()
	go d.timerLoop()
	go d.commandLoop()

	return d, nil
}

func (d *Device) teardownPartial() {
	d.udp.Close()
	d.tun.Close()
}

// insertPeerLocked constructs a Session for desc and inserts it into
// the peer map, endpoint index, and insertion-order slice atomically
// (caller must hold d.mu, or be single-threaded during construction).
func (d *Device) insertPeerLocked(desc PeerDescriptor) (*PeerSlot, error) {
	session, err := wgcrypto.NewNoiseLiteSession(d.conf.KeyPair.Private, desc.PublicKey, desc.Endpoint != nil, desc.PresharedKey)
	if err != nil {
		return nil, werrors.Wrap(werrors.WireGuard, "constructing session for peer "+desc.Name, err)
	}

	slot := &PeerSlot{
		Descriptor:      desc,
		Session:         session,
		CurrentEndpoint: desc.Endpoint,
		Index:           d.nextIndex,
	}
	d.nextIndex++

	d.peersByKey[desc.PublicKey] = slot
	d.peerOrder = append(d.peerOrder, slot)
	if desc.Endpoint != nil {
		d.endpointIndex[desc.Endpoint.String()] = desc.PublicKey
	}
	return slot, nil
}

// removePeerLocked is insertPeerLocked's inverse: drops the slot from
// all three structures. Caller must hold d.mu.
func (d *Device) removePeerLocked(pk keys.PublicKey) {
	slot, ok := d.peersByKey[pk]
	if !ok {
		return
	}
	delete(d.peersByKey, pk)
	if slot.CurrentEndpoint != nil {
		delete(d.endpointIndex, slot.CurrentEndpoint.String())
	}
	for i, s := range d.peerOrder {
		if s == slot {
			d.peerOrder = append(d.peerOrder[:i], d.peerOrder[i+1:]...)
			break
		}
	}
}

// MARK: Interface
func (d *Device) Interface() string { return d.tun.Name() }

// MARK: Stats
func (d *Device) Stats() Stats {
	d.statsMu.Lock()
	defer d.statsMu.Unlock()
	return d.stats
}

// MARK: PeerSnapshot
// Returns a point-in-time copy of every peer slot's identity and
// activity, used by Tunnel to compute status without holding the
// device's lock for the duration of a control-protocol response.
func (d *Device) PeerSnapshot() []PeerSlot {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]PeerSlot, 0, len(d.peerOrder))
	for _, slot := range d.peerOrder {
		out = append(out, *slot)
	}
	return out
}

// MARK: AddPeer
func (d *Device) AddPeer(desc PeerDescriptor) error {
	return d.submit(command{kind: cmdAddPeer, descriptor: desc})
}

// MARK: RemovePeer
func (d *Device) RemovePeer(pk keys.PublicKey) error {
	return d.submit(command{kind: cmdRemovePeer, publicKey: pk})
}

func (d *Device) submit(cmd command) error {
	cmd.done = make(chan error, 1)
	select {
	case d.mailbox <- cmd:
	case <-d.ctx.Done():
		return werrors.New(werrors.InvalidState, "device is stopped")
	}
	select {
	case err := <-cmd.done:
		return err
	case <-d.ctx.Done():
		return werrors.New(werrors.InvalidState, "device is stopped")
	}
}

// MARK: Stop
// Sends Stop to the mailbox, cancels the loops' context and closes the
// TUN and UDP handles, then waits up to 5 s for all four loops to exit.
// Past the deadline it logs a warning and returns without waiting further.
func (d *Device) Stop() {
	select {
	case d.mailbox <- command{kind: cmdStop}:
	default:
	}
	d.cancel()

	// Closing the handles is what actually unblocks the outbound and
	// inbound loops' in-flight blocking reads; cancelling the context
	// alone only stops them between iterations.
	d.tun.Close()
	d.udp.Close()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(stopDeadline):
		d.logger.Warn("device stop deadline exceeded, some tasks did not exit", "interface", d.tun.Name())
	}
}

// MARK: outboundLoop
// TUN -> UDP. Reads one packet, then offers it to every peer's Session
// in insertion order; the first to accept (WriteToNetwork) wins. This
// makes the Session the authoritative allowed-IP filter rather than a
// separate CIDR table (see DESIGN.md's Open Question decision).
func (d *Device) outboundLoop() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return
		default:
		}

		pb := d.tunPool.Get()
		n, err := d.tun.Read(pb.data)
		if err != nil {
			d.tunPool.Put(pb)
			if d.ctx.Err() != nil {
				return
			}
			time.Sleep(tunBackoff)
			continue
		}
		if n == 0 {
			d.tunPool.Put(pb)
			continue
		}
		d.dispatchOutbound(pb.data[:n])
		d.tunPool.Put(pb)
	}
}

func (d *Device) dispatchOutbound(packet []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, slot := range d.peerOrder {
		result := slot.Session.Encapsulate(packet)
		switch result.Kind {
		case wgcrypto.WriteToNetwork:
			if slot.CurrentEndpoint == nil {
				d.countError()
				continue
			}
			if _, err := d.udp.WriteToUDP(result.Data, slot.CurrentEndpoint); err != nil {
				d.countError()
				continue
			}
			d.countTx(len(result.Data))
			slot.touch()
			return
		case wgcrypto.Done:
			continue
		case wgcrypto.Err:
			d.countError()
			continue
		}
	}
}

// MARK: inboundLoop
// UDP -> TUN. Looks up the sender in the endpoint index; unknown
// senders are dropped silently (no roaming, by design).
func (d *Device) inboundLoop() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return
		default:
		}

		pb := d.udpPool.Get()
		n, srcAddr, err := d.udp.ReadFromUDP(pb.data)
		if err != nil {
			d.udpPool.Put(pb)
			if d.ctx.Err() != nil {
				return
			}
			continue
		}
		d.dispatchInbound(pb.data[:n], srcAddr)
		d.udpPool.Put(pb)
	}
}

func (d *Device) dispatchInbound(datagram []byte, src *net.UDPAddr) {
	d.mu.Lock()
	defer d.mu.Unlock()

	pk, ok := d.endpointIndex[src.String()]
	var slot *PeerSlot
	if ok {
		slot = d.peersByKey[pk]
	}
	if !ok || slot == nil {
		return // unknown sender: silently dropped per spec
	}

	result := slot.Session.Decapsulate(src.IP, datagram)
	switch result.Kind {
	case wgcrypto.WriteToNetwork:
		if _, err := d.udp.WriteToUDP(result.Data, src); err != nil {
			d.countError()
			return
		}
		d.countTx(len(result.Data))
		slot.touch()
	case wgcrypto.WriteToTunnelV4, wgcrypto.WriteToTunnelV6:
		if _, err := d.tun.Write(result.Data); err != nil {
			d.countError()
			return
		}
		d.countRx(len(result.Data))
		slot.touch()
	case wgcrypto.Done:
		slot.touch()
	case wgcrypto.Err:
		d.countError()
	}
}

// MARK: timerLoop
func (d *Device) timerLoop() {
	defer d.wg.Done()
	ticker := time.NewTicker(timerTick)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			d.tickAllPeers()
		}
	}
}

func (d *Device) tickAllPeers() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, slot := range d.peerOrder {
		result := slot.Session.Tick()
		switch result.Kind {
		case wgcrypto.WriteToNetwork:
			if slot.CurrentEndpoint == nil {
				continue
			}
			if _, err := d.udp.WriteToUDP(result.Data, slot.CurrentEndpoint); err != nil {
				d.countError()
				continue
			}
			d.countTx(len(result.Data))
			slot.touch()
		case wgcrypto.Err:
			d.countError()
		}
	}
}

// MARK: commandLoop
func (d *Device) commandLoop() {
	defer d.wg.Done()
	for {
		select {
		case <-d.ctx.Done():
			return
		case cmd := <-d.mailbox:
			switch cmd.kind {
			case cmdStop:
				d.cancel()
				return
			case cmdAddPeer:
				err := cmd.descriptor.Validate()
				if err == nil {
					d.mu.Lock()
					_, err = d.insertPeerLocked(cmd.descriptor)
					d.mu.Unlock()
				}
				if err != nil {
					d.countError()
				}
				if cmd.done != nil {
					cmd.done <- err
				}
			case cmdRemovePeer:
				d.mu.Lock()
				d.removePeerLocked(cmd.publicKey)
				d.mu.Unlock()
				if cmd.done != nil {
					cmd.done <- nil
				}
			}
		}
	}
}

func (d *Device) countTx(n int) {
	d.statsMu.Lock()
	d.stats.TxBytes += uint64(n)
	d.stats.TxPackets++
	d.statsMu.Unlock()
}

func (d *Device) countRx(n int) {
	d.statsMu.Lock()
	d.stats.RxBytes += uint64(n)
	d.stats.RxPackets++
	d.statsMu.Unlock()
}

func (d *Device) countError() {
	d.statsMu.Lock()
	d.stats.Errors++
	d.statsMu.Unlock()
}
