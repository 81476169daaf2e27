package tunnel

import (
	"net"
	"time"

	"github.com/aurabx/wgagentd/internal/wgcrypto"
)

// PeerSlot is the mutable per-peer runtime state a Device owns: the
// immutable descriptor, the opaque Session driving its crypto, and the
// bookkeeping the I/O loops touch on every packet.
type PeerSlot struct {
	Descriptor      PeerDescriptor
	Session         wgcrypto.Session
	CurrentEndpoint *net.UDPAddr // never reassigned once the slot exists
	LastActivity    time.Time
	Index           int
}

// MARK: touch
func (s *PeerSlot) touch() {
	s.LastActivity = time.Now()
}

// MARK: Healthy
// Reports whether the slot has seen activity within the last window —
// used by Tunnel.Stats to compute the "healthy" peer count.
func (s *PeerSlot) Healthy(window time.Duration) bool {
	return !s.LastActivity.IsZero() && time.Since(s.LastActivity) <= window
}
